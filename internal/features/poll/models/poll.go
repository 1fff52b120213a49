package models

import (
	"fmt"
	"strings"
)

// Option is a single poll choice with its running tally.
type Option struct {
	ID    int    `json:"id"`
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

// Poll is a governance poll bound to a group. Only wallet-verified
// members of the group may vote, and each member votes once.
type Poll struct {
	ID        string   `json:"id"`
	ChatID    int64    `json:"chat_id"`
	MessageID int64    `json:"message_id"`
	Question  string   `json:"question"`
	Options   []Option `json:"options"`
	Voters    []int64  `json:"voters"`
	CreatedAt int64    `json:"created_at"`
}

func (p *Poll) HasVoted(userID int64) bool {
	for _, v := range p.Voters {
		if v == userID {
			return true
		}
	}
	return false
}

// Tally renders the poll question with current vote counts.
func (p *Poll) Tally() string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 %s\n\n", p.Question)
	for _, opt := range p.Options {
		fmt.Fprintf(&b, "• %s — %d\n", opt.Text, opt.Votes)
	}
	return b.String()
}
