package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/someoneelse131/purfacted-sub002/internal/daemon"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the engine daemon (HTTP API + periodic sweeps)",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := daemon.New()
		if err != nil {
			return err
		}
		return d.Run(context.Background())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
