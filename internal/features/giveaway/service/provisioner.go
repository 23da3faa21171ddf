package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"discord-giveaway-bot/internal/common/config"
	apperrors "discord-giveaway-bot/internal/common/errors"
	"discord-giveaway-bot/internal/features/giveaway/models"
)

const maxChannelNameLen = 100

// ProvisionerOptions configures how winner channels are created.
type ProvisionerOptions struct {
	// AdminPolicy is config.AdminPolicySnapshot or config.AdminPolicyRole.
	AdminPolicy string
	AdminRoleID string
	CategoryID  string
	Retries     int
	RetryDelay  time.Duration
}

// Provisioner creates a private channel per winner, notifies them there and
// opens it to administrators.
type Provisioner struct {
	platform Platform
	opts     ProvisionerOptions
	retry    retryPolicy
	logger   zerolog.Logger

	mu sync.Mutex
	// reserved holds names picked by in-flight provisions, keyed by guild.
	reserved map[string]map[string]struct{}
}

var _ WinnerProvisioner = (*Provisioner)(nil)

func NewProvisioner(platform Platform, opts ProvisionerOptions, logger zerolog.Logger) *Provisioner {
	if opts.AdminPolicy == "" {
		opts.AdminPolicy = config.AdminPolicySnapshot
	}
	return &Provisioner{
		platform: platform,
		opts:     opts,
		retry:    retryPolicy{attempts: opts.Retries, delay: opts.RetryDelay},
		logger:   logger.With().Str("component", "provisioner").Logger(),
		reserved: make(map[string]map[string]struct{}),
	}
}

// Provision creates and announces the winner channel. A returned error means
// nothing usable was left behind for this winner.
func (p *Provisioner) Provision(ctx context.Context, g *models.Giveaway, winnerID string) (models.ProvisionedChannel, error) {
	log := p.logger.With().Str("giveaway_id", g.ID).Str("winner_id", winnerID).Logger()

	displayName := winnerID
	member, err := p.platform.Member(ctx, g.GuildID, winnerID)
	if err != nil {
		log.Warn().Err(err).Msg("Could not resolve winner display name, using id")
	} else if member.DisplayName != "" {
		displayName = member.DisplayName
	}

	var existing []string
	err = p.retry.do(ctx, func(ctx context.Context) error {
		var err error
		existing, err = p.platform.ChannelNames(ctx, g.GuildID)
		return err
	})
	if err != nil {
		return models.ProvisionedChannel{}, apperrors.NewProvisioningError(winnerID, "list_channels", err)
	}

	name, err := p.reserve(g.GuildID, ChannelName(g.Prize, displayName), existing)
	if err != nil {
		return models.ProvisionedChannel{}, apperrors.NewProvisioningError(winnerID, "channel_name", err)
	}
	defer p.release(g.GuildID, name)

	req := PrivateChannelRequest{
		GuildID:    g.GuildID,
		Name:       name,
		CategoryID: p.opts.CategoryID,
		MemberIDs:  []string{winnerID},
	}
	if p.opts.AdminPolicy == config.AdminPolicyRole && p.opts.AdminRoleID != "" {
		req.RoleIDs = []string{p.opts.AdminRoleID}
	}

	var channelID string
	err = p.retry.rateLimitedOnly().do(ctx, func(ctx context.Context) error {
		var err error
		channelID, err = p.platform.CreatePrivateChannel(ctx, req)
		return err
	})
	if err != nil {
		return models.ProvisionedChannel{}, apperrors.NewProvisioningError(winnerID, "create_channel", err)
	}
	log = log.With().Str("channel_id", channelID).Str("channel_name", name).Logger()

	notice := fmt.Sprintf("<@%s> you have won the giveaway for %s!", winnerID, g.Prize)
	err = p.retry.do(ctx, func(ctx context.Context) error {
		return p.platform.SendMessage(ctx, channelID, notice)
	})
	if err != nil {
		if delErr := p.platform.DeleteChannel(ctx, channelID); delErr != nil {
			log.Error().Err(delErr).Msg("Failed to remove channel after notice failure")
		}
		return models.ProvisionedChannel{}, apperrors.NewProvisioningError(winnerID, "notify", fmt.Errorf("%w: %v", ErrNotifyFailed, err))
	}

	if p.opts.AdminPolicy == config.AdminPolicySnapshot {
		p.grantAdmins(ctx, g.GuildID, channelID, winnerID, log)
	}

	log.Info().Msg("Winner channel provisioned")
	return models.ProvisionedChannel{WinnerID: winnerID, ChannelID: channelID, ChannelName: name}, nil
}

// grantAdmins opens the channel to each administrator present right now.
// Individual failures leave that admin without access but keep the channel.
func (p *Provisioner) grantAdmins(ctx context.Context, guildID, channelID, winnerID string, log zerolog.Logger) {
	admins, err := p.platform.AdminMembers(ctx, guildID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list administrators")
		return
	}
	granted := 0
	for _, admin := range admins {
		if admin.Bot || admin.ID == winnerID {
			continue
		}
		err := p.retry.do(ctx, func(ctx context.Context) error {
			return p.platform.GrantVisibility(ctx, channelID, admin.ID)
		})
		if err != nil {
			log.Warn().Err(err).Str("admin_id", admin.ID).Msg("Failed to grant admin visibility")
			continue
		}
		granted++
	}
	log.Debug().Int("admins", granted).Msg("Administrators granted")
}

func (p *Provisioner) reserve(guildID, base string, existing []string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	taken := make(map[string]struct{}, len(existing)+len(p.reserved[guildID]))
	for _, n := range existing {
		taken[strings.ToLower(n)] = struct{}{}
	}
	for n := range p.reserved[guildID] {
		taken[n] = struct{}{}
	}

	name, ok := freeName(base, taken)
	if !ok {
		return "", ErrNoFreeName
	}
	if p.reserved[guildID] == nil {
		p.reserved[guildID] = make(map[string]struct{})
	}
	p.reserved[guildID][name] = struct{}{}
	return name, nil
}

func (p *Provisioner) release(guildID, name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.reserved[guildID], name)
	if len(p.reserved[guildID]) == 0 {
		delete(p.reserved, guildID)
	}
}

// freeName returns base, or base with the first free "-N" suffix.
func freeName(base string, taken map[string]struct{}) (string, bool) {
	if _, ok := taken[base]; !ok {
		return base, true
	}
	for n := 2; n <= MaxChannelNameAttempts; n++ {
		suffix := "-" + strconv.Itoa(n)
		candidate := truncateRunes(base, maxChannelNameLen-len(suffix)) + suffix
		if _, ok := taken[candidate]; !ok {
			return candidate, true
		}
	}
	return "", false
}

// ChannelName derives a text-channel name from the prize and the winner's
// display name. Letters and digits are lowercased and kept, runs of
// whitespace, "-" and "_" become a single "-", anything else is dropped.
// The result is capped at 100 runes.
func ChannelName(prize, displayName string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(prize + " " + displayName) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '_':
			pendingDash = true
		}
	}
	name := truncateRunes(b.String(), maxChannelNameLen)
	name = strings.Trim(name, "-")
	if name == "" {
		return "giveaway"
	}
	return name
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimRight(string(runes[:max]), "-")
}
