// Toonctl controls a Toon thermostat through the Eneco web service.
//
// It logs in with the account used for the Toon web app, keeps the session
// for the duration of one command, and can read the thermostat state, switch
// presets and set a manual target temperature.
//
// Usage:
//
//	toonctl [command] [flags]
//
// The username is read from the config file or TOONAPP_USERNAME. The password
// is never stored: it comes from TOONAPP_PASSWORD or an interactive prompt.
// See 'toonctl --help' for available commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/muurk/toonapp/internal/logging"
	"github.com/muurk/toonapp/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Sync()

	if err != nil {
		// Failures already shown in a result box only set the exit code
		var reported *reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "toonctl",
	Short: "Toon Thermostat Control Utility",
	Long: `A command line client for the Toon thermostat web service.

Reads the thermostat state, switches temperature presets and sets a manual
target temperature using the credentials of the Toon web app.`,
	Version:           version.Version,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Line("toonctl"))
	},
}
