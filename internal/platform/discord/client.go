package discord

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	apperrors "discord-giveaway-bot/internal/common/errors"
	"discord-giveaway-bot/internal/features/giveaway/models"
	"discord-giveaway-bot/internal/features/giveaway/service"
)

const (
	reactionPageSize = 100
	memberPageSize   = 1000

	privateAllow = discordgo.PermissionViewChannel |
		discordgo.PermissionSendMessages |
		discordgo.PermissionReadMessageHistory
)

// Client implements service.Platform over the Discord REST API.
type Client struct {
	session Session
	logger  zerolog.Logger

	mu        sync.RWMutex
	botUserID string
}

var _ service.Platform = (*Client)(nil)

func NewClient(session Session, logger zerolog.Logger) *Client {
	return &Client{
		session: session,
		logger:  logger.With().Str("component", "discord_client").Logger(),
	}
}

// SetBotUser records the bot's own user id once the gateway is ready. The bot
// is granted access to every private channel it creates and its reactions are
// never counted as entries.
func (c *Client) SetBotUser(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.botUserID = id
}

func (c *Client) botUser() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.botUserID
}

func (c *Client) SendAnnouncement(ctx context.Context, channelID string, a models.Announcement) (string, error) {
	msg, err := c.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{AnnouncementEmbed(a)},
		Components: AnnouncementComponents(a),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", classify("send_announcement", err)
	}
	return msg.ID, nil
}

func (c *Client) EditAnnouncement(ctx context.Context, channelID, messageID string, a models.Announcement) error {
	components := AnnouncementComponents(a)
	edit := discordgo.NewMessageEdit(channelID, messageID).SetEmbed(AnnouncementEmbed(a))
	edit.Components = &components
	if _, err := c.session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx)); err != nil {
		return classify("edit_announcement", err)
	}
	return nil
}

func (c *Client) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	if err := c.session.MessageReactionAdd(channelID, messageID, emoji, discordgo.WithContext(ctx)); err != nil {
		return classify("add_reaction", err)
	}
	return nil
}

// ReactionUsers pages through every user that reacted with emoji.
func (c *Client) ReactionUsers(ctx context.Context, channelID, messageID, emoji string) ([]string, error) {
	var (
		ids   []string
		after string
	)
	for {
		users, err := c.session.MessageReactions(channelID, messageID, emoji, reactionPageSize, "", after, discordgo.WithContext(ctx))
		if err != nil {
			return nil, classify("list_reactions", err)
		}
		for _, u := range users {
			if u.Bot {
				continue
			}
			ids = append(ids, u.ID)
		}
		if len(users) < reactionPageSize {
			return ids, nil
		}
		after = users[len(users)-1].ID
	}
}

func (c *Client) SendMessage(ctx context.Context, channelID, content string) error {
	if _, err := c.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx)); err != nil {
		return classify("send_message", err)
	}
	return nil
}

func (c *Client) ChannelNames(ctx context.Context, guildID string) ([]string, error) {
	channels, err := c.session.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, classify("list_channels", err)
	}
	names := make([]string, 0, len(channels))
	for _, ch := range channels {
		names = append(names, ch.Name)
	}
	return names, nil
}

// CreatePrivateChannel creates a text channel hidden from @everyone. The
// @everyone role shares the guild's id.
func (c *Client) CreatePrivateChannel(ctx context.Context, req service.PrivateChannelRequest) (string, error) {
	overwrites := []*discordgo.PermissionOverwrite{
		{ID: req.GuildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionViewChannel},
	}
	members := req.MemberIDs
	if bot := c.botUser(); bot != "" {
		members = append(append([]string(nil), members...), bot)
	}
	for _, id := range members {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID: id, Type: discordgo.PermissionOverwriteTypeMember, Allow: privateAllow,
		})
	}
	for _, id := range req.RoleIDs {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID: id, Type: discordgo.PermissionOverwriteTypeRole, Allow: privateAllow,
		})
	}

	ch, err := c.session.GuildChannelCreateComplex(req.GuildID, discordgo.GuildChannelCreateData{
		Name:                 req.Name,
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             req.CategoryID,
		PermissionOverwrites: overwrites,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", classify("create_channel", err)
	}
	return ch.ID, nil
}

func (c *Client) GrantVisibility(ctx context.Context, channelID, userID string) error {
	err := c.session.ChannelPermissionSet(channelID, userID, discordgo.PermissionOverwriteTypeMember, privateAllow, 0, discordgo.WithContext(ctx))
	if err != nil {
		return classify("grant_visibility", err)
	}
	return nil
}

func (c *Client) DeleteChannel(ctx context.Context, channelID string) error {
	if _, err := c.session.ChannelDelete(channelID, discordgo.WithContext(ctx)); err != nil {
		return classify("delete_channel", err)
	}
	return nil
}

func (c *Client) Member(ctx context.Context, guildID, userID string) (models.Member, error) {
	m, err := c.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return models.Member{}, classify("get_member", err)
	}
	return toMember(m), nil
}

// AdminMembers lists the guild owner and every member holding a role with
// the Administrator permission. It needs the guild members intent.
func (c *Client) AdminMembers(ctx context.Context, guildID string) ([]models.Member, error) {
	guild, err := c.session.Guild(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, classify("get_guild", err)
	}
	roles, err := c.session.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, classify("list_roles", err)
	}
	adminRoles := make(map[string]struct{})
	for _, r := range roles {
		if r.Permissions&discordgo.PermissionAdministrator != 0 {
			adminRoles[r.ID] = struct{}{}
		}
	}

	var (
		admins []models.Member
		after  string
	)
	for {
		page, err := c.session.GuildMembers(guildID, after, memberPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, classify("list_members", err)
		}
		for _, m := range page {
			if m.User == nil {
				continue
			}
			if m.User.ID == guild.OwnerID || hasAnyRole(m.Roles, adminRoles) {
				admins = append(admins, toMember(m))
			}
		}
		if len(page) < memberPageSize {
			break
		}
		after = page[len(page)-1].User.ID
	}
	c.logger.Debug().Str("guild_id", guildID).Int("admins", len(admins)).Msg("Resolved administrators")
	return admins, nil
}

func hasAnyRole(roles []string, set map[string]struct{}) bool {
	for _, id := range roles {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}

func toMember(m *discordgo.Member) models.Member {
	out := models.Member{}
	if m.User != nil {
		out.ID = m.User.ID
		out.Bot = m.User.Bot
		out.DisplayName = m.User.Username
		if m.User.GlobalName != "" {
			out.DisplayName = m.User.GlobalName
		}
	}
	if m.Nick != "" {
		out.DisplayName = m.Nick
	}
	return out
}

// classify maps discordgo failures onto application errors. Rate limits,
// server errors and network failures are transient.
func classify(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewPlatformError(op, err)
	}
	var rateLimit *discordgo.RateLimitError
	if errors.As(err, &rateLimit) {
		return apperrors.NewRateLimitedError(op, err)
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		code := rest.Response.StatusCode
		if code == http.StatusTooManyRequests {
			return apperrors.NewRateLimitedError(op, err)
		}
		if code >= http.StatusInternalServerError {
			return apperrors.NewTransientPlatformError(op, err)
		}
		if code == http.StatusNotFound {
			return apperrors.Wrap(err, apperrors.ErrCodeNotFound, "platform resource not found: "+op)
		}
		return apperrors.NewPlatformError(op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return apperrors.NewTransientPlatformError(op, err)
	}
	return apperrors.NewPlatformError(op, err)
}
