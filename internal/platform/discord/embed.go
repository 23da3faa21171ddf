package discord

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"discord-giveaway-bot/internal/features/giveaway/models"
	"discord-giveaway-bot/internal/features/giveaway/service"
)

// Custom ids of the announcement buttons.
const (
	EnterButtonID = "giveaway_enter"
	LeaveButtonID = "giveaway_leave"
)

const (
	colorOpen      = 0x00ff00
	colorEnded     = 0xffd700
	colorNoEntries = 0xff0000
	colorCancelled = 0x808080
)

// AnnouncementEmbed renders the public giveaway message.
func AnnouncementEmbed(a models.Announcement) *discordgo.MessageEmbed {
	if a.State != models.GiveawayStateOpen && a.Outcome != nil {
		return endedEmbed(a)
	}
	description := fmt.Sprintf(
		"%s\n\n"+
			"React with %s or press Enter to join!\n"+
			"Hosted by: <@%s>\n"+
			"Winners: **%d**\n"+
			"Participants: **%d**\n"+
			"Ends: <t:%d:R>",
		a.Description, a.EntryEmoji, a.HostID, a.WinnersCount, a.EntrantCount, a.EndsAt.Unix())

	return &discordgo.MessageEmbed{
		Title:       "🎉 " + a.Prize,
		Description: description,
		Color:       colorOpen,
		Timestamp:   a.EndsAt.UTC().Format(time.RFC3339),
		Footer:      &discordgo.MessageEmbedFooter{Text: "Ends at"},
	}
}

func endedEmbed(a models.Announcement) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:     fmt.Sprintf("Giveaway for %s has ended!", a.Prize),
		Color:     colorEnded,
		Timestamp: a.Outcome.ConcludedAt.UTC().Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: "Ended at"},
	}
	switch a.Outcome.Kind {
	case models.OutcomeNoParticipants:
		embed.Color = colorNoEntries
		embed.Description = service.NoParticipantsText
	case models.OutcomeCancelled:
		embed.Title = fmt.Sprintf("Giveaway for %s was cancelled", a.Prize)
		embed.Color = colorCancelled
		embed.Description = service.ResultText(a.Outcome)
	case models.OutcomeFailed:
		embed.Color = colorNoEntries
		embed.Description = service.ResultText(a.Outcome)
	default:
		embed.Description = fmt.Sprintf("%s\n\nParticipants: **%d**", service.ResultText(a.Outcome), a.Outcome.EntrantCount)
	}
	return embed
}

// AnnouncementComponents renders the entry buttons, disabled once the
// giveaway has left the open state.
func AnnouncementComponents(a models.Announcement) []discordgo.MessageComponent {
	closed := a.State != models.GiveawayStateOpen
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Enter",
					Emoji:    &discordgo.ComponentEmoji{Name: a.EntryEmoji},
					Style:    discordgo.PrimaryButton,
					CustomID: EnterButtonID,
					Disabled: closed,
				},
				discordgo.Button{
					Label:    "Leave",
					Style:    discordgo.SecondaryButton,
					CustomID: LeaveButtonID,
					Disabled: closed,
				},
			},
		},
	}
}
