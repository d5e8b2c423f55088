package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/nymtech/nym-vpn-tunnel-core/pkg/config"
	"github.com/nymtech/nym-vpn-tunnel-core/pkg/errcat"
	"github.com/nymtech/nym-vpn-tunnel-core/pkg/platform"
)

func importCredentialCommand() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "import-credential",
		Short: "Import a zk-nym credential into the persisted state directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			data, err := os.ReadFile(path)
			if err != nil {
				return errcat.Config.Newf("read credential file %s: %w", path, err)
			}

			p := platform.GetPlatform(ctx)
			if p == nil {
				return errcat.Config.New("no platform data directory installed on context")
			}
			return config.ImportCredential(ctx, p.PlatformDataDir, data)
		},
	}

	cmd.Flags().StringVar(&path, "credential-path", "", "path to the encoded credential file")
	_ = cmd.MarkFlagRequired("credential-path")
	return cmd
}
