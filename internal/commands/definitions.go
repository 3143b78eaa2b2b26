package commands

import "github.com/bwmarrin/discordgo"

const (
	Connect = "connect"
	Cancel  = "cancel"
)

// GetCommands returns the application commands registered globally so they
// are usable in direct messages as well as in guilds.
func GetCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:         Connect,
			Description:  "Connect your Lightning wallet to send and receive zaps",
			DMPermission: boolPtr(true),
		},
		{
			Name:         Cancel,
			Description:  "Cancel the wallet connection dialog",
			DMPermission: boolPtr(true),
		},
	}
}

func boolPtr(b bool) *bool {
	return &b
}
