package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newLoginCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Verify the configured credentials against the service",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			cfg, err := loadConfig(*cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if _, _, err := newSignedInClient(ctx, cfg, &logger); err != nil {
				return err
			}
			fmt.Println("credentials ok")
			return nil
		},
	}
}
