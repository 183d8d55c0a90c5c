package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vibe-labs/vibe-rewards/internal/config"
	"github.com/vibe-labs/vibe-rewards/internal/logger"
	"github.com/vibe-labs/vibe-rewards/pkg/airQuality"
	"github.com/vibe-labs/vibe-rewards/pkg/claimStorage"
	"go.uber.org/zap"
)

var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Fetch an air quality reading and claim the reward once",
	Run: func(cmd *cobra.Command, args []string) {
		bindCommandFlags(cmd)
		cfg := config.NewConfig()
		ctx := context.Background()

		l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})

		svc, err := newServices(cfg, l)
		if err != nil {
			l.Sugar().Fatalw("Failed to setup services", zap.Error(err))
		}
		defer svc.Close()

		if err := svc.initialize(ctx, l); err != nil {
			l.Sugar().Fatalw("Failed to initialize", zap.Error(err))
		}

		address := viper.GetString(config.ClaimAddress)
		if address == "" {
			address = svc.wallet.Info().Address
		}
		if !common.IsHexAddress(address) {
			l.Sugar().Fatalw("Invalid address", zap.String("address", address))
		}

		fmt.Println(svc.rewards.GetRewardRule())

		result := svc.rewards.CheckAndReward(ctx, address)
		printJSON(result)
		if !result.Success {
			svc.Close()
			os.Exit(1)
		}
	},
}

type statusOutput struct {
	Address       string                    `json:"address"`
	CanClaim      bool                      `json:"canClaim"`
	PreviousClaim *claimStorage.ClaimRecord `json:"previousClaim,omitempty"`
	Level         *airQuality.AQILevel      `json:"level,omitempty"`
	TotalClaims   int                       `json:"totalClaims"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the cached claim status of an address",
	Run: func(cmd *cobra.Command, args []string) {
		bindCommandFlags(cmd)
		cfg := config.NewConfig()

		l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})

		address := viper.GetString(config.ClaimAddress)
		if !common.IsHexAddress(address) {
			l.Sugar().Fatalw("A valid --address is required", zap.String("address", address))
		}

		svc, err := newServices(cfg, l)
		if err != nil {
			l.Sugar().Fatalw("Failed to setup services", zap.Error(err))
		}
		defer svc.Close()

		status := svc.rewards.CheckClaimStatus(address)
		out := &statusOutput{
			Address:       address,
			CanClaim:      status.CanClaim,
			PreviousClaim: status.PreviousClaim,
			TotalClaims:   svc.rewards.GetTotalClaimsCount(),
		}
		if status.PreviousClaim != nil {
			level := airQuality.Classify(status.PreviousClaim.Aqi)
			out.Level = &level
		}
		printJSON(out)
	},
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
