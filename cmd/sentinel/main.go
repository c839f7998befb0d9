package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/client"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "Sentinel - autonomous remediation engine",
	Long: `Sentinel watches a small compute cluster, detects adverse conditions
(stopped VMs, unreachable nodes, resource threshold breaches) and fixes
them automatically within strict safety guardrails: a kill switch, a
per-incident rate limit, a single-remediation blast radius and a
configurable autonomy level. Every decision is written to a durable
audit log.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Sentinel version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("addr", "127.0.0.1:8530", "Address of the sentinel daemon")

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(killswitchCmd)
	rootCmd.AddCommand(autonomyCmd)
	rootCmd.AddCommand(actionsCmd)
}

func daemonClient(cmd *cobra.Command) *client.Client {
	addr, _ := cmd.Flags().GetString("addr")
	return client.NewClient(addr)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := daemonClient(cmd).Status()
		if err != nil {
			return err
		}

		fmt.Printf("Running:             %v\n", status.Running)
		fmt.Printf("Kill switch:         %s\n", onOff(status.KillSwitchActive))
		fmt.Printf("Autonomy level:      %d (%s)\n", status.AutonomyLevel, status.AutonomyLevelName)
		fmt.Printf("Active remediations: %d\n", status.ActiveRemediations)
		fmt.Printf("Queue depth:         %d\n", status.QueueDepth)
		fmt.Printf("Uptime:              %s\n", (time.Duration(status.UptimeSeconds) * time.Second).String())
		return nil
	},
}

var killswitchCmd = &cobra.Command{
	Use:   "killswitch [on|off]",
	Short: "Activate or deactivate the remediation kill switch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var active bool
		switch args[0] {
		case "on":
			active = true
		case "off":
			active = false
		default:
			return fmt.Errorf("argument must be 'on' or 'off', got %q", args[0])
		}

		if err := daemonClient(cmd).SetKillSwitch(active); err != nil {
			return err
		}
		fmt.Printf("✓ Kill switch %s\n", onOff(active))
		return nil
	},
}

var autonomyCmd = &cobra.Command{
	Use:   "autonomy LEVEL",
	Short: "Set the autonomy level (0=observe, 1=alert, 2=recommend, 3=act-and-report, 4=act-silently)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("level must be an integer 0-4, got %q", args[0])
		}

		if err := daemonClient(cmd).SetAutonomyLevel(level); err != nil {
			return err
		}
		fmt.Printf("✓ Autonomy level set to %d\n", level)
		return nil
	},
}

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "List recent remediation actions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		records, err := daemonClient(cmd).ListActions(limit)
		if err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Println("No recorded actions")
			return nil
		}

		fmt.Printf("%-25s %-28s %-16s %-10s %-8s %s\n",
			"TIMESTAMP", "INCIDENT", "ACTION", "RESULT", "ATTEMPT", "DETAIL")
		for _, rec := range records {
			detail := rec.VerificationResult
			if rec.BlockReason != "" {
				detail = rec.BlockReason
			}
			fmt.Printf("%-25s %-28s %-16s %-10s %-8d %s\n",
				rec.Timestamp.Format(time.RFC3339),
				rec.IncidentKey,
				rec.Action,
				rec.Result,
				rec.AttemptNumber,
				detail,
			)
		}
		return nil
	},
}

func init() {
	actionsCmd.Flags().Int("limit", 20, "Maximum number of actions to list")
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
