package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mathvoice/mathvoice/internal/client"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check whether the server is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		session := client.NewSession(cfg.Client, nil, nil, logger)
		if err := session.Health(cmd.Context()); err != nil {
			return fmt.Errorf("server unhealthy: %w", err)
		}
		fmt.Printf("ok: %s\n", cfg.Client.ServerURL)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
