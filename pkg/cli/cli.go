// Package cli builds the nym-vpn-core cobra command tree: `run` and
// `import-credential`. Errors propagate up to main(), which prints them to
// stderr and exits 1 after ExecuteContext returns.
package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/nymtech/nym-vpn-tunnel-core/pkg/logging"
)

// Command returns the top-level "nym-vpn-core" command.
func Command() *cobra.Command {
	var debug bool

	rootCmd := &cobra.Command{
		Use:   "nym-vpn-core",
		Short: "Nym mixnet VPN tunnel core",
		Long: strings.TrimSpace(`
nym-vpn-core establishes a connection through the Nym mixnet, either as a
single mix tunnel terminated by an IP packet router, or as a chained pair
of WireGuard tunnels (entry and exit gateway).`),
		SilenceErrors: true, // main() handles it after ExecuteContext returns
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(logging.InitContext(cmd.Context(), debug))
			return nil
		},
	}
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug-level logging")

	rootCmd.AddCommand(runCommand())
	rootCmd.AddCommand(importCredentialCommand())
	return rootCmd
}
