// Package utils provides utility functions for CLI commands in Berth.
package utils

import (
	"log/slog"

	"github.com/berth-cd/berth/cmd/output"
	"github.com/berth-cd/berth/services"
	"github.com/spf13/cobra"
)

// HandleCommandError provides consistent error handling for CLI commands
func HandleCommandError(cmd *cobra.Command, operation string, err error, context ...any) {
	slog.Error("Command failed", append([]any{"operation", operation, "error", err}, context...)...)
	_ = output.FprintError(cmd, "Error: %s failed: %s", operation, services.FormatErrorForUser(err))
}
