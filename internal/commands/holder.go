package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// HolderOptions contains options for the holder command
type HolderOptions struct {
	Dir        string
	OutputJSON bool
}

// NewHolderCmd creates the holder command
func NewHolderCmd() *cobra.Command {
	opts := &HolderOptions{}

	cmd := &cobra.Command{
		Use:   "holder <directory>",
		Short: "Show who wrote the lock on a directory",
		Long: `Decode the lock sentinel of a directory and print the recorded
holder: user, host, pid, process start time and lock time. When the
holder runs on this host, its executable name is resolved as well.

Example:
  dirlock holder ~/projects/amplifier`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Dir = args[0]
			return runHolder(opts)
		},
	}

	cmd.Flags().BoolVar(&opts.OutputJSON, "json", false, "output result as JSON")

	return cmd
}

func runHolder(opts *HolderOptions) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	h := newHandle(opts.Dir, cfg, log)
	rec, err := h.Holder()
	if err != nil {
		return err
	}

	if rec == nil {
		if useJSON(opts.OutputJSON, cfg) {
			fmt.Println("null")
		} else {
			fmt.Printf("%s is not locked\n", h.Dir())
		}
		return nil
	}

	info := holderInfo(rec)
	if useJSON(opts.OutputJSON, cfg) {
		data, _ := json.MarshalIndent(info, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Lock on %s:\n", h.Dir())
	printHolder(info)
	return nil
}
