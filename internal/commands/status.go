package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/decibelvc/dirlock/internal/lock"
	"github.com/decibelvc/dirlock/internal/proc"
	"github.com/decibelvc/dirlock/internal/sysinfo"
)

// StatusOptions contains options for the status command
type StatusOptions struct {
	Dir        string
	OutputJSON bool
}

// StatusResult represents the output of the status command
type StatusResult struct {
	Dir    string      `json:"dir"`
	Status string      `json:"status"`
	Holder *HolderInfo `json:"holder,omitempty"`
}

// HolderInfo is the JSON shape of a decoded lock record
type HolderInfo struct {
	DisplayName      string `json:"display_name,omitempty"`
	LoginName        string `json:"login_name"`
	HostName         string `json:"host_name"`
	PID              int64  `json:"pid"`
	ProcessStartTime string `json:"process_start_time"`
	LockTime         string `json:"lock_time,omitempty"`
	ProcessName      string `json:"process_name,omitempty"`
}

func holderInfo(rec *lock.Record) *HolderInfo {
	info := &HolderInfo{
		DisplayName:      rec.DisplayName,
		LoginName:        rec.LoginName,
		HostName:         rec.HostName,
		PID:              rec.PID,
		ProcessStartTime: rec.ProcessStartTime.Format(time.RFC3339),
		ProcessName:      liveProcessName(rec),
	}
	if !rec.LockTime.IsZero() {
		info.LockTime = rec.LockTime.Format(time.RFC3339)
	}
	return info
}

// liveProcessName resolves the executable name of the holder when it
// runs on this host and is visible to us. Best-effort only.
func liveProcessName(rec *lock.Record) string {
	if rec.HostName != sysinfo.Hostname() {
		return ""
	}
	name, err := proc.System{}.Name(rec.PID)
	if err != nil {
		return ""
	}
	return name
}

// NewStatusCmd creates the status command
func NewStatusCmd() *cobra.Command {
	opts := &StatusOptions{}

	cmd := &cobra.Command{
		Use:   "status <directory>",
		Short: "Show the lock status of a directory",
		Long: `Show whether a directory is unlocked, locked by a live process,
or left with a stale lock by a holder that no longer runs.

Example:
  dirlock status ~/projects/amplifier
  dirlock status --json /srv/shared/board-rev2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Dir = args[0]
			return runStatus(opts)
		},
	}

	cmd.Flags().BoolVar(&opts.OutputJSON, "json", false, "output result as JSON")

	return cmd
}

func runStatus(opts *StatusOptions) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	h := newHandle(opts.Dir, cfg, log)
	st, err := h.Status()
	if err != nil {
		return err
	}

	result := StatusResult{Dir: h.Dir(), Status: st.String()}
	if st != lock.StatusUnlocked {
		rec, err := h.Holder()
		if err != nil {
			return err
		}
		result.Holder = holderInfo(rec)
	}

	if useJSON(opts.OutputJSON, cfg) {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("%s: %s\n", result.Dir, result.Status)
	if result.Holder != nil {
		printHolder(result.Holder)
	}
	return nil
}

func printHolder(info *HolderInfo) {
	who := info.LoginName
	if info.DisplayName != "" {
		who = fmt.Sprintf("%s (%s)", info.DisplayName, info.LoginName)
	}
	fmt.Printf("  Holder: %s@%s\n", who, info.HostName)
	if info.ProcessName != "" {
		fmt.Printf("  Process: %s (PID %d)\n", info.ProcessName, info.PID)
	} else {
		fmt.Printf("  PID: %d\n", info.PID)
	}
	fmt.Printf("  Process started: %s\n", info.ProcessStartTime)
	if info.LockTime != "" {
		fmt.Printf("  Locked at: %s\n", info.LockTime)
	}
}
