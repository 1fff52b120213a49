package models

import (
	"fmt"
	"sort"
	"strings"
)

// HourBuckets is the number of hourly activity buckets kept per chat.
const HourBuckets = 24

// ChatActivity aggregates group message activity: an hourly histogram
// over the last day and per-user message counts.
type ChatActivity struct {
	ChatID    int64              `json:"chat_id"`
	Hourly    [HourBuckets]int64 `json:"hourly"`
	ByUser    map[int64]int64    `json:"by_user"`
	Total     int64              `json:"total"`
	Usernames map[int64]string   `json:"usernames"`
}

func NewChatActivity(chatID int64) *ChatActivity {
	return &ChatActivity{
		ChatID:    chatID,
		ByUser:    make(map[int64]int64),
		Usernames: make(map[int64]string),
	}
}

// UserCount is a per-user tally used for leaderboards.
type UserCount struct {
	UserID   int64
	Username string
	Count    int64
}

// TopUsers returns the n most active users, highest count first.
func (a *ChatActivity) TopUsers(n int) []UserCount {
	counts := make([]UserCount, 0, len(a.ByUser))
	for userID, count := range a.ByUser {
		counts = append(counts, UserCount{
			UserID:   userID,
			Username: a.Usernames[userID],
			Count:    count,
		})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].UserID < counts[j].UserID
	})
	if len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

// Summary renders the activity report posted back to the group.
func (a *ChatActivity) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "📈 Group activity\n\nTotal messages: %d\n\nTop members:\n", a.Total)
	for i, user := range a.TopUsers(5) {
		name := user.Username
		if name == "" {
			name = fmt.Sprintf("user %d", user.UserID)
		}
		fmt.Fprintf(&b, "%d. %s — %d\n", i+1, name, user.Count)
	}
	return b.String()
}
