package commands

import (
	"errors"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/decibelvc/dirlock/internal/lock"
)

// RunOptions contains options for the run command
type RunOptions struct {
	Dir  string
	Argv []string
}

// NewRunCmd creates the run command
func NewRunCmd() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run <directory> -- <command> [args...]",
		Short: "Run a command while holding the lock on a directory",
		Long: `Acquire the lock on a directory, run the given command, and release
the lock when the command exits. If the directory is locked by a live
process the command is not started. A stale lock is taken over with a
warning.

The child's exit code becomes dirlock's exit code.

Example:
  dirlock run ~/projects/amplifier -- make release`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Dir = args[0]
			opts.Argv = args[1:]
			return runRun(opts)
		},
	}

	// Flags after the directory belong to the child command.
	cmd.Flags().SetInterspersed(false)

	return cmd
}

func runRun(opts *RunOptions) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	h, err := lock.Open(opts.Dir,
		lock.WithLogger(log),
		lock.WithStartTimeTolerance(cfg.StartTimeTolerance()),
	)
	if err != nil {
		return err
	}

	child := exec.Command(opts.Argv[0], opts.Argv[1:]...)
	child.Dir = opts.Dir
	child.Stdin = os.Stdin
	child.Stdout = os.Stdout
	child.Stderr = os.Stderr

	runErr := child.Run()

	// The lock must go before we surface the child's fate; exiting
	// while still holding it would leave a stale sentinel behind.
	h.Close()

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		return runErr
	}
	return nil
}
