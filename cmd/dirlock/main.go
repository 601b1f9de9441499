package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/decibelvc/dirlock/internal/commands"
	"github.com/decibelvc/dirlock/internal/errors"
)

var (
	// Version information - injected at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "dirlock",
		Short: "dirlock - cooperative directory locking between processes",
		Long: "A tool for inspecting and managing the file-based locks that\n" +
			"coordinate exclusive access to shared project directories.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dirlock version %s\n", Version)
			fmt.Printf("commit: %s\n", GitCommit)
			fmt.Printf("built: %s\n", BuildDate)
		},
	}

	// Add commands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(commands.NewStatusCmd())
	rootCmd.AddCommand(commands.NewHolderCmd())
	rootCmd.AddCommand(commands.NewCleanCmd())
	rootCmd.AddCommand(commands.NewRunCmd())

	if err := rootCmd.Execute(); err != nil {
		errors.Handle(err, wantJSON())
	}
}

// wantJSON mirrors the per-command --json flag so error output matches
// the requested format even when the command never ran.
func wantJSON() bool {
	for _, arg := range os.Args[1:] {
		if arg == "--json" {
			return true
		}
		if arg == "--" {
			break
		}
	}
	return os.Getenv("DIRLOCK_JSON_OUTPUT") != ""
}
