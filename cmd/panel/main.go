package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/helpmebro911/panel/pkg/manager"
	"github.com/helpmebro911/panel/pkg/types"
	"github.com/spf13/cobra"
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
	Use:   "panel",
	Short: "Panel - Proxy node fleet management panel",
	Long: `Panel manages a fleet of remote proxy nodes: enrollment, health
monitoring, traffic accounting, data limits, and scheduled usage
resets, delivered as a single binary with an embedded datastore.`,
	Version: Version,
}

func init() {
	// Set version template
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Panel version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("data-dir", "./panel-data", "Data directory for panel state")
	rootCmd.PersistentFlags().String("secret", "", "Secret protecting node API keys and the CA root key (or PANEL_SECRET)")

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(nodeCmd)
	rootCmd.AddCommand(applyCmd)
}

// openManager constructs a Manager against the local data directory.
// CLI commands and the serve loop share the same store, so commands
// that write state must run while the server is stopped.
func openManager(cmd *cobra.Command) (*manager.Manager, error) {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	secret, _ := cmd.Flags().GetString("secret")
	if secret == "" {
		secret = os.Getenv("PANEL_SECRET")
	}
	if secret == "" {
		return nil, fmt.Errorf("--secret or PANEL_SECRET is required")
	}

	return manager.NewManager(&manager.Config{
		DataDir: dataDir,
		Secret:  secret,
	})
}

// resolveNode accepts either a numeric node ID or a node name.
func resolveNode(mgr *manager.Manager, arg string) (*types.Node, error) {
	if id, err := strconv.ParseUint(arg, 10, 64); err == nil {
		return mgr.GetNode(id)
	}
	return mgr.GetNodeByName(arg)
}
