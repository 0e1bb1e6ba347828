package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/helpmebro911/panel/pkg/manager"
	"github.com/helpmebro911/panel/pkg/types"
	"github.com/spf13/cobra"
)

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Manage proxy nodes",
}

var nodeAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Register a new proxy node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openManager(cmd)
		if err != nil {
			return err
		}
		defer mgr.Shutdown()

		address, _ := cmd.Flags().GetString("address")
		port, _ := cmd.Flags().GetInt("port")
		labels, _ := cmd.Flags().GetStringSlice("label")
		dataLimit, _ := cmd.Flags().GetUint64("data-limit")
		coefficient, _ := cmd.Flags().GetFloat64("usage-coefficient")
		strategy, _ := cmd.Flags().GetString("reset-strategy")
		resetTime, _ := cmd.Flags().GetInt64("reset-time")

		labelMap, err := parseLabels(labels)
		if err != nil {
			return err
		}

		node, err := mgr.AddNode(manager.NodeSpec{
			Name:             args[0],
			Address:          address,
			Port:             port,
			Labels:           labelMap,
			DataLimit:        dataLimit,
			UsageCoefficient: coefficient,
			ResetStrategy:    types.ResetStrategy(strategy),
			ResetTime:        resetTime,
		})
		if err != nil {
			return fmt.Errorf("failed to add node: %v", err)
		}

		fmt.Printf("✓ Node added: %s (ID: %d)\n", node.Name, node.ID)
		return nil
	},
}

var nodeListCmd = &cobra.Command{
	Use:   "ls",
	Short: "List proxy nodes",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openManager(cmd)
		if err != nil {
			return err
		}
		defer mgr.Shutdown()

		statusFilter, _ := cmd.Flags().GetString("status")
		var statuses []types.NodeStatus
		if statusFilter != "" {
			statuses = append(statuses, types.NodeStatus(statusFilter))
		}

		nodes, err := mgr.ListNodes(statuses...)
		if err != nil {
			return fmt.Errorf("failed to list nodes: %v", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tADDRESS\tSTATUS\tUSED\tLIMIT\tRESET")
		for _, n := range nodes {
			fmt.Fprintf(w, "%d\t%s\t%s:%d\t%s\t%s\t%s\t%s\n",
				n.ID, n.Name, n.Address, n.Port, n.Status,
				formatBytes(n.UsedTraffic()), formatLimit(n.DataLimit),
				formatResetPolicy(n.ResetStrategy, n.ResetTime),
			)
		}
		return w.Flush()
	},
}

var nodeRemoveCmd = &cobra.Command{
	Use:   "rm NODE",
	Short: "Remove a proxy node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openManager(cmd)
		if err != nil {
			return err
		}
		defer mgr.Shutdown()

		node, err := resolveNode(mgr, args[0])
		if err != nil {
			return err
		}
		if err := mgr.RemoveNode(node.ID); err != nil {
			return fmt.Errorf("failed to remove node: %v", err)
		}

		fmt.Printf("✓ Node removed: %s\n", node.Name)
		return nil
	},
}

var nodeResetCmd = &cobra.Command{
	Use:   "reset NODE",
	Short: "Reset a node's usage counters now",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openManager(cmd)
		if err != nil {
			return err
		}
		defer mgr.Shutdown()

		node, err := resolveNode(mgr, args[0])
		if err != nil {
			return err
		}
		before := node.UsedTraffic()
		if _, err := mgr.ResetNodeUsage(node.ID); err != nil {
			return fmt.Errorf("failed to reset usage: %v", err)
		}

		fmt.Printf("✓ Usage reset for %s (was %s)\n", node.Name, formatBytes(before))
		return nil
	},
}

var nodeEnableCmd = &cobra.Command{
	Use:   "enable NODE",
	Short: "Re-enable a disabled node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openManager(cmd)
		if err != nil {
			return err
		}
		defer mgr.Shutdown()

		node, err := resolveNode(mgr, args[0])
		if err != nil {
			return err
		}
		if _, err := mgr.EnableNode(node.ID); err != nil {
			return fmt.Errorf("failed to enable node: %v", err)
		}

		fmt.Printf("✓ Node enabled: %s\n", node.Name)
		return nil
	},
}

var nodeDisableCmd = &cobra.Command{
	Use:   "disable NODE",
	Short: "Disable a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openManager(cmd)
		if err != nil {
			return err
		}
		defer mgr.Shutdown()

		node, err := resolveNode(mgr, args[0])
		if err != nil {
			return err
		}
		if _, err := mgr.DisableNode(node.ID); err != nil {
			return fmt.Errorf("failed to disable node: %v", err)
		}

		fmt.Printf("✓ Node disabled: %s\n", node.Name)
		return nil
	},
}

var nodeCertCmd = &cobra.Command{
	Use:   "cert NODE",
	Short: "Issue a client certificate bundle for a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openManager(cmd)
		if err != nil {
			return err
		}
		defer mgr.Shutdown()

		node, err := resolveNode(mgr, args[0])
		if err != nil {
			return err
		}
		dir, err := mgr.IssueNodeCertificate(node.ID)
		if err != nil {
			return fmt.Errorf("failed to issue certificate: %v", err)
		}

		fmt.Printf("✓ Certificate bundle written to %s\n", dir)
		return nil
	},
}

var nodeKeyCmd = &cobra.Command{
	Use:   "key NODE",
	Short: "Show or rotate a node's API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openManager(cmd)
		if err != nil {
			return err
		}
		defer mgr.Shutdown()

		node, err := resolveNode(mgr, args[0])
		if err != nil {
			return err
		}

		rotate, _ := cmd.Flags().GetBool("rotate")
		if rotate {
			key, err := mgr.RotateNodeAPIKey(node.ID)
			if err != nil {
				return fmt.Errorf("failed to rotate API key: %v", err)
			}
			fmt.Printf("✓ API key rotated for %s\n%s\n", node.Name, key)
			return nil
		}

		key, err := mgr.NodeAPIKey(node.ID)
		if err != nil {
			return fmt.Errorf("failed to read API key: %v", err)
		}
		fmt.Println(key)
		return nil
	},
}

var nodeTokenCmd = &cobra.Command{
	Use:   "token NODE",
	Short: "Generate a one-time enrollment token for a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openManager(cmd)
		if err != nil {
			return err
		}
		defer mgr.Shutdown()

		node, err := resolveNode(mgr, args[0])
		if err != nil {
			return err
		}

		ttl, _ := cmd.Flags().GetDuration("ttl")
		token, err := mgr.TokenManager().GenerateToken(node.ID, ttl)
		if err != nil {
			return fmt.Errorf("failed to generate token: %v", err)
		}

		fmt.Printf("✓ Enrollment token for %s (expires %s)\n%s\n",
			node.Name, token.ExpiresAt.Format(time.RFC3339), token.Token)
		return nil
	},
}

var nodeStatsCmd = &cobra.Command{
	Use:   "stats NODE",
	Short: "Show host metrics reported by a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openManager(cmd)
		if err != nil {
			return err
		}
		defer mgr.Shutdown()

		node, err := resolveNode(mgr, args[0])
		if err != nil {
			return err
		}

		since, _ := cmd.Flags().GetDuration("since")
		end := time.Now().UTC()
		stats, err := mgr.NodeStats(node.ID, end.Add(-since), end)
		if err != nil {
			return fmt.Errorf("failed to load stats: %v", err)
		}
		if len(stats) == 0 {
			fmt.Printf("No samples for %s in the last %s\n", node.Name, since)
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tCPU\tMEM\tIN/s\tOUT/s")
		for _, s := range stats {
			fmt.Fprintf(w, "%s\t%.1f%%\t%s / %s\t%s\t%s\n",
				s.CreatedAt.Format(time.RFC3339),
				s.CPUUsage,
				formatBytes(s.MemUsed), formatBytes(s.MemTotal),
				formatBytes(s.IncomingBandwidthSpeed),
				formatBytes(s.OutgoingBandwidthSpeed),
			)
		}
		return w.Flush()
	},
}

func init() {
	nodeCmd.AddCommand(nodeAddCmd)
	nodeCmd.AddCommand(nodeListCmd)
	nodeCmd.AddCommand(nodeRemoveCmd)
	nodeCmd.AddCommand(nodeResetCmd)
	nodeCmd.AddCommand(nodeEnableCmd)
	nodeCmd.AddCommand(nodeDisableCmd)
	nodeCmd.AddCommand(nodeCertCmd)
	nodeCmd.AddCommand(nodeKeyCmd)
	nodeCmd.AddCommand(nodeTokenCmd)
	nodeCmd.AddCommand(nodeStatsCmd)

	// Flags for add command
	nodeAddCmd.Flags().String("address", "", "Node host address (IP or domain)")
	nodeAddCmd.Flags().Int("port", 62050, "Node API port")
	nodeAddCmd.Flags().StringSlice("label", nil, "Node label in key=value form (repeatable)")
	nodeAddCmd.Flags().Uint64("data-limit", 0, "Traffic limit in bytes (0 = unlimited)")
	nodeAddCmd.Flags().Float64("usage-coefficient", 1.0, "Multiplier applied to reported traffic")
	nodeAddCmd.Flags().String("reset-strategy", "no_reset", "Usage reset cycle (no_reset, day, week, month, year)")
	nodeAddCmd.Flags().Int64("reset-time", -1, "Reset point within the cycle (-1 = interval mode)")
	_ = nodeAddCmd.MarkFlagRequired("address")

	nodeListCmd.Flags().String("status", "", "Filter by status (connecting, connected, error, disabled, limited)")

	nodeKeyCmd.Flags().Bool("rotate", false, "Generate a fresh API key")

	nodeTokenCmd.Flags().Duration("ttl", time.Hour, "Token time to live")

	nodeStatsCmd.Flags().Duration("since", time.Hour, "How far back to show samples")
}

func parseLabels(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	labels := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid label %q, expected key=value", pair)
		}
		labels[k] = v
	}
	return labels, nil
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func formatLimit(limit uint64) string {
	if limit == 0 {
		return "-"
	}
	return formatBytes(limit)
}

func formatResetPolicy(strategy types.ResetStrategy, resetTime int64) string {
	if strategy == types.ResetStrategyNoReset {
		return "-"
	}
	if resetTime < 0 {
		return fmt.Sprintf("%s (interval)", strategy)
	}
	return fmt.Sprintf("%s @%d", strategy, resetTime)
}
