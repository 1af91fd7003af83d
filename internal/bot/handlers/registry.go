package handlers

import (
	"context"
)

// CommandFunc handles one slash command.
type CommandFunc func(ctx context.Context, in Inbound)

// RegisteredCommand pairs a command handler with its description.
type RegisteredCommand struct {
	Description string
	Handler     CommandFunc
}

// RegisterAllCommands initializes and returns a map of all available bot
// commands keyed by their "/name".
func RegisterAllCommands(deps HandlerDeps) map[string]RegisteredCommand {
	commands := make(map[string]RegisteredCommand)

	commands["/start"] = RegisteredCommand{
		Description: "Welcome message",
		Handler:     NewStartHandler(deps),
	}
	commands["/help"] = RegisteredCommand{
		Description: "How to use the bot",
		Handler:     NewHelpHandler(deps),
	}
	commands["/history"] = RegisteredCommand{
		Description: "Latest analyses",
		Handler:     NewHistoryHandler(deps),
	}
	commands["/stats"] = RegisteredCommand{
		Description: "Totals for the last 7 days",
		Handler:     NewStatsHandler(deps),
	}

	return commands
}
