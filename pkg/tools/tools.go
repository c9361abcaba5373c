// Package tools declares the fixed tool surface: thirteen Slack operations,
// each bound to an argument schema, a credential class, and a gateway
// handler. The surface is the external contract — names, required arguments,
// and credential classes here must match the product documentation exactly.
package tools

import (
	"context"
	"fmt"

	"github.com/mpopa/slackgate/pkg/registry"
	"github.com/mpopa/slackgate/pkg/slack"
)

const (
	defaultHistoryLimit       = 10
	defaultSearchLimit        = 50
	defaultConversationsLimit = 100
)

// BuildRegistry registers the full tool surface against the given gateway
// client and freezes the registry.
func BuildRegistry(gw *slack.Client) (*registry.Registry, error) {
	reg := registry.New()
	for _, def := range definitions(gw) {
		if err := reg.Register(def); err != nil {
			return nil, fmt.Errorf("tool surface: %w", err)
		}
	}
	reg.Freeze()
	return reg, nil
}

func definitions(gw *slack.Client) []registry.ToolDefinition {
	return []registry.ToolDefinition{
		{
			Name:        "slack_send_message",
			Description: "Send a message to a Slack channel.",
			Schema: []registry.Field{
				{Name: "channel_id", Type: registry.TypeString, Required: true},
				{Name: "text", Type: registry.TypeString, Required: true},
			},
			Credential: registry.CredentialService,
			Handler: func(ctx context.Context, secret string, args map[string]any) (map[string]any, error) {
				ts, err := gw.PostMessage(ctx, secret, argString(args, "channel_id"), argString(args, "text"))
				if err != nil {
					return nil, err
				}
				return map[string]any{"timestamp": ts}, nil
			},
		},
		{
			Name:        "slack_standup",
			Description: "Post a formatted daily standup update to a Slack channel.",
			Schema: []registry.Field{
				{Name: "user_name", Type: registry.TypeString, Required: true},
				{Name: "channel_id", Type: registry.TypeString, Required: true},
				{Name: "standup_text", Type: registry.TypeString, Required: true},
			},
			Credential: registry.CredentialService,
			Handler: func(ctx context.Context, secret string, args map[string]any) (map[string]any, error) {
				message := fmt.Sprintf("👋 Hi %s, starting your daily standup!\n%s",
					argString(args, "user_name"), argString(args, "standup_text"))
				ts, err := gw.PostMessage(ctx, secret, argString(args, "channel_id"), message)
				if err != nil {
					return nil, err
				}
				return map[string]any{"timestamp": ts, "message": message}, nil
			},
		},
		{
			Name:        "slack_fetch_conversation_history",
			Description: "Fetch the latest messages from a channel as the authenticated user.",
			Schema: []registry.Field{
				{Name: "user_id", Type: registry.TypeString, Required: true},
				{Name: "channel_id", Type: registry.TypeString, Required: true},
				{Name: "limit", Type: registry.TypeInt, Required: false},
			},
			Credential: registry.CredentialUser,
			Handler: func(ctx context.Context, secret string, args map[string]any) (map[string]any, error) {
				messages, err := gw.ConversationHistory(ctx, secret,
					argString(args, "channel_id"), argInt(args, "limit", defaultHistoryLimit))
				if err != nil {
					return nil, err
				}
				return map[string]any{"messages": messages}, nil
			},
		},
		{
			Name:        "slack_list_users",
			Description: "List all users in the workspace.",
			Schema:      []registry.Field{},
			Credential:  registry.CredentialService,
			Handler: func(ctx context.Context, secret string, args map[string]any) (map[string]any, error) {
				users, err := gw.ListUsers(ctx, secret)
				if err != nil {
					return nil, err
				}
				return map[string]any{"users": users}, nil
			},
		},
		{
			Name:        "slack_find_user_by_email",
			Description: "Find a workspace user by email address.",
			Schema: []registry.Field{
				{Name: "user_id", Type: registry.TypeString, Required: true},
				{Name: "email", Type: registry.TypeString, Required: true},
			},
			Credential: registry.CredentialUser,
			Handler: func(ctx context.Context, secret string, args map[string]any) (map[string]any, error) {
				user, err := gw.LookupUserByEmail(ctx, secret, argString(args, "email"))
				if err != nil {
					return nil, err
				}
				return map[string]any{"user": user}, nil
			},
		},
		{
			Name:        "slack_list_channels",
			Description: "List all channels in the workspace.",
			Schema:      []registry.Field{},
			Credential:  registry.CredentialService,
			Handler: func(ctx context.Context, secret string, args map[string]any) (map[string]any, error) {
				channels, err := gw.ListChannels(ctx, secret)
				if err != nil {
					return nil, err
				}
				return map[string]any{"channels": channels}, nil
			},
		},
		{
			Name:        "slack_schedule_message",
			Description: "Schedule a message for later delivery (post_at is Unix seconds).",
			Schema: []registry.Field{
				{Name: "channel_id", Type: registry.TypeString, Required: true},
				{Name: "text", Type: registry.TypeString, Required: true},
				{Name: "post_at", Type: registry.TypeInt, Required: true},
			},
			Credential: registry.CredentialService,
			Handler: func(ctx context.Context, secret string, args map[string]any) (map[string]any, error) {
				id, err := gw.ScheduleMessage(ctx, secret,
					argString(args, "channel_id"), argString(args, "text"), argInt(args, "post_at", 0))
				if err != nil {
					return nil, err
				}
				return map[string]any{"scheduled_message_id": id}, nil
			},
		},
		{
			Name:        "slack_create_channel",
			Description: "Create a new Slack channel, optionally inviting a user.",
			Schema: []registry.Field{
				{Name: "name", Type: registry.TypeString, Required: true},
				{Name: "is_private", Type: registry.TypeBool, Required: false},
				{Name: "invite_user_id", Type: registry.TypeString, Required: false},
			},
			Credential: registry.CredentialService,
			Handler: func(ctx context.Context, secret string, args map[string]any) (map[string]any, error) {
				private, _ := args["is_private"].(bool)
				channel, err := gw.CreateChannel(ctx, secret, argString(args, "name"), private)
				if err != nil {
					return nil, err
				}
				if invitee := argString(args, "invite_user_id"); invitee != "" {
					if err := gw.InviteToChannel(ctx, secret, channel["id"].(string), invitee); err != nil {
						return nil, err
					}
				}
				return map[string]any{"channel": channel}, nil
			},
		},
		{
			Name:        "slack_open_dm",
			Description: "Open a direct message with a user as the authenticated user.",
			Schema: []registry.Field{
				{Name: "user_id", Type: registry.TypeString, Required: true},
				{Name: "slack_user_id", Type: registry.TypeString, Required: true},
			},
			Credential: registry.CredentialUser,
			Handler: func(ctx context.Context, secret string, args map[string]any) (map[string]any, error) {
				channelID, err := gw.OpenConversation(ctx, secret, argString(args, "slack_user_id"))
				if err != nil {
					return nil, err
				}
				return map[string]any{"channel_id": channelID}, nil
			},
		},
		{
			Name:        "slack_add_reaction",
			Description: "Add an emoji reaction to a message.",
			Schema: []registry.Field{
				{Name: "channel_id", Type: registry.TypeString, Required: true},
				{Name: "timestamp", Type: registry.TypeString, Required: true},
				{Name: "emoji", Type: registry.TypeString, Required: true},
			},
			Credential: registry.CredentialService,
			Handler: func(ctx context.Context, secret string, args map[string]any) (map[string]any, error) {
				err := gw.AddReaction(ctx, secret,
					argString(args, "channel_id"), argString(args, "timestamp"), argString(args, "emoji"))
				if err != nil {
					return nil, err
				}
				return map[string]any{}, nil
			},
		},
		{
			Name:        "slack_search_messages",
			Description: "Search recent channel messages by keyword as the authenticated user.",
			Schema: []registry.Field{
				{Name: "user_id", Type: registry.TypeString, Required: true},
				{Name: "channel_id", Type: registry.TypeString, Required: true},
				{Name: "keyword", Type: registry.TypeString, Required: true},
				{Name: "limit", Type: registry.TypeInt, Required: false},
			},
			Credential: registry.CredentialUser,
			Handler: func(ctx context.Context, secret string, args map[string]any) (map[string]any, error) {
				messages, err := gw.ConversationHistory(ctx, secret,
					argString(args, "channel_id"), argInt(args, "limit", defaultSearchLimit))
				if err != nil {
					return nil, err
				}
				return map[string]any{"matches": filterByKeyword(messages, argString(args, "keyword"))}, nil
			},
		},
		{
			Name:        "slack_get_user_profile",
			Description: "Get the authenticated user's own Slack profile.",
			Schema: []registry.Field{
				{Name: "user_id", Type: registry.TypeString, Required: true},
			},
			Credential: registry.CredentialUser,
			Handler: func(ctx context.Context, secret string, args map[string]any) (map[string]any, error) {
				slackUserID, err := gw.AuthTest(ctx, secret)
				if err != nil {
					return nil, err
				}
				profile, err := gw.UserProfile(ctx, secret, slackUserID)
				if err != nil {
					return nil, err
				}
				return map[string]any{"slack_user_id": slackUserID, "profile": profile}, nil
			},
		},
		{
			Name:        "slack_list_user_conversations",
			Description: "List all conversations the authenticated user is part of.",
			Schema: []registry.Field{
				{Name: "user_id", Type: registry.TypeString, Required: true},
				{Name: "limit", Type: registry.TypeInt, Required: false},
			},
			Credential: registry.CredentialUser,
			Handler: func(ctx context.Context, secret string, args map[string]any) (map[string]any, error) {
				conversations, err := gw.UserConversations(ctx, secret, argInt(args, "limit", defaultConversationsLimit))
				if err != nil {
					return nil, err
				}
				return map[string]any{"conversations": conversations}, nil
			},
		},
	}
}
