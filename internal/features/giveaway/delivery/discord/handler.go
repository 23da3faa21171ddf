package discord

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	apperrors "discord-giveaway-bot/internal/common/errors"
	"discord-giveaway-bot/internal/features/giveaway/models"
	"discord-giveaway-bot/internal/features/giveaway/service"
	discordplatform "discord-giveaway-bot/internal/platform/discord"
)

const requestTimeout = 30 * time.Second

// responder is the part of the session used to answer interactions.
type responder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// BotUserSetter receives the bot's user id once the gateway is ready.
type BotUserSetter interface {
	SetBotUser(id string)
}

type Options struct {
	EntryEmoji string
	// GuildID scopes command registration; empty registers global commands.
	GuildID string
}

// Handler routes gateway events to the giveaway service.
type Handler struct {
	service service.GiveawayService
	botUser BotUserSetter
	opts    Options
	logger  zerolog.Logger

	mu        sync.RWMutex
	botUserID string
}

func NewHandler(svc service.GiveawayService, botUser BotUserSetter, opts Options, logger zerolog.Logger) *Handler {
	if opts.EntryEmoji == "" {
		opts.EntryEmoji = service.DefaultEntryEmoji
	}
	return &Handler{
		service: svc,
		botUser: botUser,
		opts:    opts,
		logger:  logger.With().Str("component", "discord_handler").Logger(),
	}
}

// Register attaches the gateway handlers to the session.
func (h *Handler) Register(s *discordgo.Session) {
	s.AddHandler(h.Ready)
	s.AddHandler(h.InteractionCreate)
	s.AddHandler(h.MessageReactionAdd)
	s.AddHandler(h.MessageReactionRemove)
}

func (h *Handler) Ready(s *discordgo.Session, r *discordgo.Ready) {
	h.mu.Lock()
	h.botUserID = r.User.ID
	h.mu.Unlock()
	if h.botUser != nil {
		h.botUser.SetBotUser(r.User.ID)
	}
	for _, cmd := range Commands() {
		if _, err := s.ApplicationCommandCreate(r.User.ID, h.opts.GuildID, cmd); err != nil {
			h.logger.Error().Err(err).Str("command", cmd.Name).Msg("Cannot create command")
		}
	}
	h.logger.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("Bot is ready")
}

func (h *Handler) InteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	h.handleInteraction(s, i)
}

func (h *Handler) MessageReactionAdd(_ *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if r.MessageReaction == nil {
		return
	}
	if r.Member != nil && r.Member.User != nil && r.Member.User.Bot {
		return
	}
	h.handleReaction(r.MessageReaction, true)
}

func (h *Handler) MessageReactionRemove(_ *discordgo.Session, r *discordgo.MessageReactionRemove) {
	if r.MessageReaction == nil {
		return
	}
	h.handleReaction(r.MessageReaction, false)
}

func (h *Handler) handleInteraction(r responder, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		switch i.ApplicationCommandData().Name {
		case CommandStart:
			h.startGiveaway(r, i)
		case CommandCancel:
			h.cancelGiveaway(r, i)
		}
	case discordgo.InteractionMessageComponent:
		switch i.MessageComponentData().CustomID {
		case discordplatform.EnterButtonID:
			h.enterGiveaway(r, i)
		case discordplatform.LeaveButtonID:
			h.leaveGiveaway(r, i)
		}
	}
}

func (h *Handler) handleReaction(r *discordgo.MessageReaction, added bool) {
	if r.Emoji.Name != h.opts.EntryEmoji || r.UserID == "" || r.UserID == h.selfID() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	var err error
	if added {
		_, err = h.service.Enter(ctx, r.MessageID, r.UserID, models.EntrySourceReaction)
	} else {
		_, err = h.service.Leave(ctx, r.MessageID, r.UserID, models.EntrySourceReaction)
	}
	switch {
	case err == nil:
	case apperrors.HasCode(err, apperrors.ErrCodeGiveawayNotFound):
		// Reaction on some other message.
	case apperrors.HasCode(err, apperrors.ErrCodeGiveawayClosed):
		h.logger.Debug().Str("giveaway_id", r.MessageID).Str("user_id", r.UserID).Msg("Late reaction ignored")
	default:
		h.logger.Error().Err(err).Str("giveaway_id", r.MessageID).Str("user_id", r.UserID).Msg("Failed to handle reaction")
	}
}

func (h *Handler) selfID() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.botUserID
}

func (h *Handler) startGiveaway(r responder, i *discordgo.InteractionCreate) {
	if !isAdmin(i) {
		h.respond(r, i, "You lack the Administrator permission to use this command.")
		return
	}
	req, err := startRequestFrom(i)
	if err != nil {
		h.respond(r, i, userMessage(err))
		return
	}

	// Posting the announcement may retry past the interaction deadline.
	if err := r.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}); err != nil {
		h.logger.Error().Err(err).Msg("Error deferring interaction")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	g, err := h.service.Start(ctx, req)
	content := ""
	if err != nil {
		h.logger.Warn().Err(err).Str("guild_id", req.GuildID).Msg("Failed to start giveaway")
		content = userMessage(err)
	} else {
		content = fmt.Sprintf("Giveaway `%s` started! It ends <t:%d:R>.", g.ID, g.EndsAt.Unix())
	}
	if _, err := r.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content}); err != nil {
		h.logger.Error().Err(err).Msg("Error editing interaction response")
	}
}

func (h *Handler) cancelGiveaway(r responder, i *discordgo.InteractionCreate) {
	if !isAdmin(i) {
		h.respond(r, i, "You lack the Administrator permission to use this command.")
		return
	}
	id := ""
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "id" {
			id = opt.StringValue()
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if g, err := h.service.GetByID(ctx, id); err == nil && g.GuildID != i.GuildID {
		h.respond(r, i, "Giveaway not found.")
		return
	}
	if _, err := h.service.Cancel(ctx, id); err != nil {
		h.respond(r, i, userMessage(err))
		return
	}
	h.respond(r, i, "Giveaway cancelled.")
}

func (h *Handler) enterGiveaway(r responder, i *discordgo.InteractionCreate) {
	userID := interactionUserID(i)
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	added, err := h.service.Enter(ctx, i.Message.ID, userID, models.EntrySourceButton)
	switch {
	case err != nil:
		h.respond(r, i, userMessage(err))
	case added:
		h.respond(r, i, "You have entered the giveaway!")
	default:
		h.respond(r, i, "You have already entered this giveaway.")
	}
}

func (h *Handler) leaveGiveaway(r responder, i *discordgo.InteractionCreate) {
	userID := interactionUserID(i)
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	removed, err := h.service.Leave(ctx, i.Message.ID, userID, models.EntrySourceButton)
	switch {
	case err != nil:
		h.respond(r, i, userMessage(err))
	case removed:
		h.respond(r, i, "You have left the giveaway.")
	default:
		h.respond(r, i, "You have not entered this giveaway.")
	}
}

func (h *Handler) respond(r responder, i *discordgo.InteractionCreate, content string) {
	err := r.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("Error responding to interaction")
	}
}

func startRequestFrom(i *discordgo.InteractionCreate) (models.StartRequest, error) {
	req := models.StartRequest{
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		HostID:    interactionUserID(i),
	}
	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Name {
		case "time":
			d, err := models.DurationFromSeconds(opt.IntValue())
			if err != nil {
				return req, err
			}
			req.Duration = d
		case "winners":
			req.WinnersCount = int(opt.IntValue())
		case "prize":
			req.Prize = opt.StringValue()
		case "description":
			req.Description = opt.StringValue()
		}
	}
	if req.GuildID == "" {
		return req, apperrors.NewConfigurationError("guild", "giveaways can only run inside a server")
	}
	return req, nil
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func isAdmin(i *discordgo.InteractionCreate) bool {
	return i.Member != nil && i.Member.Permissions&discordgo.PermissionAdministrator != 0
}

func userMessage(err error) string {
	appErr, ok := apperrors.As(err)
	if !ok {
		return "Something went wrong, please try again later."
	}
	switch {
	case appErr.IsValidation():
		return "Invalid giveaway: " + appErr.Message
	case appErr.Code == apperrors.ErrCodeGiveawayClosed:
		return "This giveaway has ended."
	case appErr.IsNotFound():
		return "Giveaway not found."
	default:
		return "Something went wrong, please try again later."
	}
}
