package cmd

import (
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vibe-labs/vibe-rewards/internal/config"
	"github.com/vibe-labs/vibe-rewards/internal/logger"
	"go.uber.org/zap"
)

var claimsCmd = &cobra.Command{
	Use:   "claims",
	Short: "Inspect and manage locally cached claim records",
}

var exportClaimsCmd = &cobra.Command{
	Use:   "export",
	Short: "Export cached claim records as CSV",
	Run: func(cmd *cobra.Command, args []string) {
		bindCommandFlags(cmd)
		cfg := config.NewConfig()

		l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})

		slot, storage, err := newClaimStorage(cfg, l)
		if err != nil {
			l.Sugar().Fatalw("Failed to open claim storage", zap.Error(err))
		}
		defer slot.Close()

		var w io.Writer = os.Stdout
		if out := viper.GetString(config.ExportOutputFile); out != "" {
			f, err := os.Create(out)
			if err != nil {
				l.Sugar().Fatalw("Failed to create output file", zap.String("file", out), zap.Error(err))
			}
			defer f.Close()
			w = f
		}

		count, err := storage.ExportCSV(w)
		if err != nil {
			l.Sugar().Fatalw("Failed to export claim records", zap.Error(err))
		}
		l.Sugar().Infow("Exported claim records", zap.Int("count", count))
	},
}

var clearClaimsCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear all cached claim records, or only those of --address",
	Run: func(cmd *cobra.Command, args []string) {
		bindCommandFlags(cmd)
		cfg := config.NewConfig()

		l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})

		svc, err := newServices(cfg, l)
		if err != nil {
			l.Sugar().Fatalw("Failed to setup services", zap.Error(err))
		}
		defer svc.Close()

		address := viper.GetString(config.ClaimAddress)
		if address == "" {
			err = svc.rewards.ClearAllClaimRecords()
		} else {
			err = svc.rewards.ClearUserClaimRecord(address)
		}
		if err != nil {
			l.Sugar().Fatalw("Failed to clear claim records", zap.Error(err))
		}
		l.Sugar().Infow("Remaining claim records", zap.Int("count", svc.rewards.GetTotalClaimsCount()))
	},
}
