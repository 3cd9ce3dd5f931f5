package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dispatchmesh/dispatch/internal/cli/output"
	"github.com/dispatchmesh/dispatch/pkg/config"
)

var peersCmd = &cobra.Command{
	Use:   "peers",
	Short: "List the peers configured for seed connection",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		table := output.NewTableData("PEER", "RECONNECT INITIAL", "RECONNECT MAX")
		for _, peer := range cfg.Node.Peers {
			table.AddRow(peer, cfg.Reconnect.InitialInterval.String(), cfg.Reconnect.MaxInterval.String())
		}
		return output.PrintTable(cmd.OutOrStdout(), table)
	},
}
