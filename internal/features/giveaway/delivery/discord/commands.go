package discord

import (
	"github.com/bwmarrin/discordgo"
)

const (
	CommandStart  = "startgiveaway"
	CommandCancel = "cancelgiveaway"
)

var (
	adminPermissions int64 = discordgo.PermissionAdministrator
	minOne                 = 1.0
)

// Commands returns the slash commands the bot registers.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:                     CommandStart,
			Description:              "Start a giveaway.",
			DefaultMemberPermissions: &adminPermissions,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "time",
					Description: "Duration of the giveaway in seconds",
					Required:    true,
					MinValue:    &minOne,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "winners",
					Description: "Number of winners",
					Required:    true,
					MinValue:    &minOne,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "prize",
					Description: "The prize for the giveaway",
					Required:    true,
					MaxLength:   200,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "description",
					Description: "Description of the giveaway",
					Required:    false,
					MaxLength:   2000,
				},
			},
		},
		{
			Name:                     CommandCancel,
			Description:              "Cancel a running giveaway without drawing winners.",
			DefaultMemberPermissions: &adminPermissions,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "id",
					Description: "Giveaway ID (the announcement message id)",
					Required:    true,
				},
			},
		},
	}
}
