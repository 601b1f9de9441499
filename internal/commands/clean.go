package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/decibelvc/dirlock/internal/errors"
	"github.com/decibelvc/dirlock/internal/lock"
)

// CleanOptions contains options for the clean command
type CleanOptions struct {
	Dir   string
	Force bool
}

// NewCleanCmd creates the clean command
func NewCleanCmd() *cobra.Command {
	opts := &CleanOptions{}

	cmd := &cobra.Command{
		Use:   "clean <directory>",
		Short: "Remove a stale lock from a directory",
		Long: `Remove the lock sentinel of a directory whose holder no longer
runs. A lock held by a live process is refused unless --force is given.

Example:
  dirlock clean ~/projects/amplifier
  dirlock clean --force /srv/shared/board-rev2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Dir = args[0]
			return runClean(opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Force, "force", false, "remove the lock even if its holder is alive")

	return cmd
}

func runClean(opts *CleanOptions) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	h := newHandle(opts.Dir, cfg, log)
	st, err := h.Status()
	if err != nil {
		return err
	}

	switch st {
	case lock.StatusUnlocked:
		fmt.Printf("%s is not locked, nothing to clean\n", h.Dir())
		return nil
	case lock.StatusLocked:
		if !opts.Force {
			rec, err := h.Holder()
			if err != nil {
				return err
			}
			return errors.NewLockError(h.SentinelPath(), rec.PID, errors.ErrAlreadyLocked)
		}
		log.Warn("removing lock on %s although its holder is alive", h.Dir())
	}

	if err := h.Release(); err != nil {
		return err
	}
	fmt.Printf("removed lock from %s\n", h.Dir())
	return nil
}
