package commands

import (
	"strings"

	"github.com/goliatone/go-agrocms/internal/logging"
	"github.com/goliatone/go-agrocms/pkg/interfaces"
)

const commandModuleRoot = "agrocms.commands"

// CommandLogger returns the logger for a command module, e.g.
// "agrocms.commands.animals".
func CommandLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	name := strings.TrimSpace(module)
	if name == "" {
		name = "core"
	}
	logger := logging.ModuleLogger(provider, commandModuleRoot+"."+name)
	return logging.WithFields(logger, map[string]any{
		"component":      "command",
		"command_module": name,
	})
}
