package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"aulabot/internal/config"
	"aulabot/internal/ledger"
	"aulabot/internal/report"
)

func newReportCmd(cfgFile *string) *cobra.Command {
	var excelPath string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Export the booking ledger to Excel and Google Sheets",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			cfg, err := loadConfig(*cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if excelPath != "" {
				cfg.Report.ExcelPath = excelPath
			}
			if cfg.Report.ExcelPath == "" {
				cfg.Report.ExcelPath = "reports/bookings.xlsx"
			}

			led, err := ledger.Open(cfg.Ledger.Path, &logger)
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer led.Close()

			return writeReports(cmd.Context(), cfg, led, &logger)
		},
	}

	cmd.Flags().StringVar(&excelPath, "out", "", "Excel output path (overrides config)")
	return cmd
}

// writeReports exports the full ledger to every configured report
// target. Targets without configuration are silently skipped.
func writeReports(ctx context.Context, cfg *config.Config, led *ledger.Ledger, logger *zerolog.Logger) error {
	entries, err := led.All(ctx)
	if err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}
	if len(entries) == 0 {
		logger.Info().Msg("ledger empty, nothing to report")
		return nil
	}

	if cfg.Report.ExcelPath != "" {
		if err := report.WriteExcel(cfg.Report.ExcelPath, entries); err != nil {
			return fmt.Errorf("excel report: %w", err)
		}
		logger.Info().Str("path", cfg.Report.ExcelPath).Int("entries", len(entries)).Msg("excel report written")
	}

	if s := cfg.Report.Sheets; s.SpreadsheetID != "" && s.CredentialsFile != "" {
		publisher, err := report.NewSheetsPublisher(ctx, s.CredentialsFile, s.SpreadsheetID, s.SheetName)
		if err != nil {
			return fmt.Errorf("sheets: %w", err)
		}
		if err := publisher.Publish(ctx, entries); err != nil {
			return fmt.Errorf("sheets: %w", err)
		}
		logger.Info().Str("spreadsheet", s.SpreadsheetID).Msg("sheet updated")
	}
	return nil
}
