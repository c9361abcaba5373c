package slack

import (
	"context"
	"net/url"
	"strconv"
)

// PostMessage sends text to a channel and returns the platform timestamp of
// the posted message.
func (c *Client) PostMessage(ctx context.Context, token, channel, text string) (string, error) {
	resp, err := c.postJSON(ctx, token, "chat.postMessage", map[string]any{
		"channel": channel,
		"text":    text,
	})
	if err != nil {
		return "", err
	}
	return str(resp.Payload, "ts"), nil
}

// ScheduleMessage schedules text for delivery at postAt (Unix seconds) and
// returns the scheduled message ID.
func (c *Client) ScheduleMessage(ctx context.Context, token, channel, text string, postAt int) (string, error) {
	resp, err := c.postJSON(ctx, token, "chat.scheduleMessage", map[string]any{
		"channel": channel,
		"text":    text,
		"post_at": postAt,
	})
	if err != nil {
		return "", err
	}
	return str(resp.Payload, "scheduled_message_id"), nil
}

// ConversationHistory returns up to limit recent messages from a channel,
// newest first, as the vendor returns them.
func (c *Client) ConversationHistory(ctx context.Context, token, channel string, limit int) ([]map[string]any, error) {
	q := url.Values{}
	q.Set("channel", channel)
	q.Set("limit", strconv.Itoa(limit))
	resp, err := c.getQuery(ctx, token, "conversations.history", q)
	if err != nil {
		return nil, err
	}
	return objects(resp.Payload, "messages"), nil
}

// ListChannels returns all workspace channels shaped as {id, name}.
func (c *Client) ListChannels(ctx context.Context, token string) ([]map[string]any, error) {
	resp, err := c.getQuery(ctx, token, "conversations.list", nil)
	if err != nil {
		return nil, err
	}
	channels := objects(resp.Payload, "channels")
	out := make([]map[string]any, 0, len(channels))
	for _, ch := range channels {
		out = append(out, map[string]any{
			"id":   str(ch, "id"),
			"name": str(ch, "name"),
		})
	}
	return out, nil
}

// CreateChannel creates a channel and returns its shaped description.
func (c *Client) CreateChannel(ctx context.Context, token, name string, isPrivate bool) (map[string]any, error) {
	resp, err := c.postJSON(ctx, token, "conversations.create", map[string]any{
		"name":       name,
		"is_private": isPrivate,
	})
	if err != nil {
		return nil, err
	}
	ch, ok := resp.Payload["channel"].(map[string]any)
	if !ok {
		return nil, upstream("", "slack conversations.create returned no channel object")
	}
	private, _ := ch["is_private"].(bool)
	created, _ := ch["created"].(float64)
	return map[string]any{
		"id":         str(ch, "id"),
		"name":       str(ch, "name"),
		"is_private": private,
		"created":    int64(created),
	}, nil
}

// InviteToChannel invites a comma-separated user list into a channel.
func (c *Client) InviteToChannel(ctx context.Context, token, channel, users string) error {
	_, err := c.postJSON(ctx, token, "conversations.invite", map[string]any{
		"channel": channel,
		"users":   users,
	})
	return err
}

// OpenConversation opens (or resumes) a direct message with the given Slack
// user and returns the conversation's channel ID.
func (c *Client) OpenConversation(ctx context.Context, token, users string) (string, error) {
	resp, err := c.postJSON(ctx, token, "conversations.open", map[string]any{
		"users": users,
	})
	if err != nil {
		return "", err
	}
	ch, ok := resp.Payload["channel"].(map[string]any)
	if !ok {
		return "", upstream("", "slack conversations.open returned no channel object")
	}
	return str(ch, "id"), nil
}

// ListUsers returns all workspace members shaped as {id, name, email}.
func (c *Client) ListUsers(ctx context.Context, token string) ([]map[string]any, error) {
	resp, err := c.getQuery(ctx, token, "users.list", nil)
	if err != nil {
		return nil, err
	}
	members := objects(resp.Payload, "members")
	out := make([]map[string]any, 0, len(members))
	for _, m := range members {
		email := ""
		if profile, ok := m["profile"].(map[string]any); ok {
			email = str(profile, "email")
		}
		out = append(out, map[string]any{
			"id":    str(m, "id"),
			"name":  str(m, "real_name"),
			"email": email,
		})
	}
	return out, nil
}

// LookupUserByEmail returns the vendor user object for an email address.
func (c *Client) LookupUserByEmail(ctx context.Context, token, email string) (map[string]any, error) {
	q := url.Values{}
	q.Set("email", email)
	resp, err := c.getQuery(ctx, token, "users.lookupByEmail", q)
	if err != nil {
		return nil, err
	}
	user, ok := resp.Payload["user"].(map[string]any)
	if !ok {
		return nil, upstream("", "slack users.lookupByEmail returned no user object")
	}
	return user, nil
}

// AddReaction attaches an emoji reaction to the message at timestamp.
func (c *Client) AddReaction(ctx context.Context, token, channel, timestamp, emoji string) error {
	_, err := c.postJSON(ctx, token, "reactions.add", map[string]any{
		"channel":   channel,
		"timestamp": timestamp,
		"name":      emoji,
	})
	return err
}

// AuthTest returns the Slack user ID the token authenticates as.
func (c *Client) AuthTest(ctx context.Context, token string) (string, error) {
	resp, err := c.getQuery(ctx, token, "auth.test", nil)
	if err != nil {
		return "", err
	}
	id := str(resp.Payload, "user_id")
	if id == "" {
		return "", upstream("", "slack auth.test returned no user_id")
	}
	return id, nil
}

// UserProfile returns the profile object for a Slack user ID.
func (c *Client) UserProfile(ctx context.Context, token, slackUserID string) (map[string]any, error) {
	q := url.Values{}
	q.Set("user", slackUserID)
	resp, err := c.getQuery(ctx, token, "users.profile.get", q)
	if err != nil {
		return nil, err
	}
	profile, ok := resp.Payload["profile"].(map[string]any)
	if !ok {
		return nil, upstream("", "slack users.profile.get returned no profile object")
	}
	return profile, nil
}

// UserConversations lists the conversations the authenticated user is part
// of, shaped with the membership flags callers care about.
func (c *Client) UserConversations(ctx context.Context, token string, limit int) ([]map[string]any, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("types", "public_channel,private_channel,mpim,im")
	resp, err := c.getQuery(ctx, token, "users.conversations", q)
	if err != nil {
		return nil, err
	}
	channels := objects(resp.Payload, "channels")
	out := make([]map[string]any, 0, len(channels))
	for _, ch := range channels {
		name := str(ch, "name")
		if name == "" {
			name = "DM"
		}
		out = append(out, map[string]any{
			"id":         str(ch, "id"),
			"name":       name,
			"is_channel": boolean(ch, "is_channel"),
			"is_group":   boolean(ch, "is_group"),
			"is_im":      boolean(ch, "is_im"),
			"is_private": boolean(ch, "is_private"),
		})
	}
	return out, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Payload extraction helpers
// ──────────────────────────────────────────────────────────────────────────────

func str(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

func boolean(m map[string]any, key string) bool {
	v, _ := m[key].(bool)
	return v
}

// objects pulls a JSON array of objects out of a decoded payload, skipping
// any non-object entries.
func objects(m map[string]any, key string) []map[string]any {
	raw, _ := m[key].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}
