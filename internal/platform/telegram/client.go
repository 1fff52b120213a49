package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"paladin-guard-backend/internal/common/logger"
)

const defaultAPIBase = "https://api.telegram.org"

// Client is a thin Bot API client covering the membership primitives the
// verification core needs.
type Client struct {
	httpClient *http.Client
	apiBase    string
	token      string
}

// ChatMember carries the member fields relevant to compliance checks.
type ChatMember struct {
	Status string `json:"status"`
}

// ChatInviteLink is the result of createChatInviteLink.
type ChatInviteLink struct {
	InviteLink  string `json:"invite_link"`
	MemberLimit int    `json:"member_limit"`
}

func NewClient(token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiBase:    defaultAPIBase,
		token:      token,
	}
}

// NewClientWithBase points the client at a custom API base, used in tests.
func NewClientWithBase(token, apiBase string) *Client {
	c := NewClient(token)
	c.apiBase = strings.TrimRight(apiBase, "/")
	return c
}

// SendMessage posts a plain text message to the chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	params := url.Values{
		"chat_id": {fmt.Sprintf("%d", chatID)},
		"text":    {text},
	}
	var result json.RawMessage
	return c.makeRequest(ctx, "sendMessage", params, &result)
}

// CreateInviteLink mints an invite link capped at memberLimit uses.
func (c *Client) CreateInviteLink(ctx context.Context, chatID int64, memberLimit int) (string, error) {
	params := url.Values{
		"chat_id":      {fmt.Sprintf("%d", chatID)},
		"member_limit": {fmt.Sprintf("%d", memberLimit)},
	}
	var link ChatInviteLink
	if err := c.makeRequest(ctx, "createChatInviteLink", params, &link); err != nil {
		logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to create invite link")
		return "", err
	}
	return link.InviteLink, nil
}

// GetMemberStatus returns the user's membership status in the chat
// ("member", "administrator", "creator", "left", "kicked", ...).
func (c *Client) GetMemberStatus(ctx context.Context, chatID, userID int64) (string, error) {
	params := url.Values{
		"chat_id": {fmt.Sprintf("%d", chatID)},
		"user_id": {fmt.Sprintf("%d", userID)},
	}
	var member ChatMember
	if err := c.makeRequest(ctx, "getChatMember", params, &member); err != nil {
		return "", err
	}
	return member.Status, nil
}

// BanChatMember removes the user from the chat.
func (c *Client) BanChatMember(ctx context.Context, chatID, userID int64) error {
	params := url.Values{
		"chat_id": {fmt.Sprintf("%d", chatID)},
		"user_id": {fmt.Sprintf("%d", userID)},
	}
	var result json.RawMessage
	return c.makeRequest(ctx, "banChatMember", params, &result)
}

// UnbanChatMember lifts the ban so the user may rejoin later. Paired with
// BanChatMember it kicks without permanently blocking.
func (c *Client) UnbanChatMember(ctx context.Context, chatID, userID int64) error {
	params := url.Values{
		"chat_id": {fmt.Sprintf("%d", chatID)},
		"user_id": {fmt.Sprintf("%d", userID)},
	}
	var result json.RawMessage
	return c.makeRequest(ctx, "unbanChatMember", params, &result)
}

// PromoteMember grants the restricted admin role used for governance
// participants: invite and post rights only.
func (c *Client) PromoteMember(ctx context.Context, chatID, userID int64, title string) error {
	params := url.Values{
		"chat_id":           {fmt.Sprintf("%d", chatID)},
		"user_id":           {fmt.Sprintf("%d", userID)},
		"can_change_info":   {"false"},
		"can_invite_users":  {"true"},
		"can_pin_messages":  {"false"},
		"can_post_messages": {"true"},
		"can_manage_chat":   {"false"},
	}
	var result json.RawMessage
	if err := c.makeRequest(ctx, "promoteChatMember", params, &result); err != nil {
		return err
	}

	titleParams := url.Values{
		"chat_id":      {fmt.Sprintf("%d", chatID)},
		"user_id":      {fmt.Sprintf("%d", userID)},
		"custom_title": {title},
	}
	return c.makeRequest(ctx, "setChatAdministratorCustomTitle", titleParams, &result)
}

func (c *Client) makeRequest(ctx context.Context, method string, params url.Values, result interface{}) error {
	endpoint := fmt.Sprintf("%s/bot%s/%s", c.apiBase, c.token, method)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var envelope struct {
		Ok          bool            `json:"ok"`
		Description string          `json:"description,omitempty"`
		Result      json.RawMessage `json:"result,omitempty"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !envelope.Ok {
		return fmt.Errorf("telegram API error: %s", envelope.Description)
	}
	if result != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("failed to decode result: %w", err)
		}
	}
	return nil
}
