package main

import (
	"context"
	"fmt"
	"os"

	"github.com/nymtech/nym-vpn-tunnel-core/pkg/cli"
)

func main() {
	ctx := context.Background()

	cmd := cli.Command()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: error: %v\n", cmd.CommandPath(), err)
		os.Exit(1)
	}
}
