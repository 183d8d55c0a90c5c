package cmd

import (
	"context"

	"github.com/pkg/errors"
	"github.com/vibe-labs/vibe-rewards/internal/config"
	"github.com/vibe-labs/vibe-rewards/internal/metrics"
	"github.com/vibe-labs/vibe-rewards/pkg/airQuality"
	"github.com/vibe-labs/vibe-rewards/pkg/claimStorage"
	"github.com/vibe-labs/vibe-rewards/pkg/clients/ethereum"
	"github.com/vibe-labs/vibe-rewards/pkg/clients/primus"
	"github.com/vibe-labs/vibe-rewards/pkg/eventBus"
	"github.com/vibe-labs/vibe-rewards/pkg/rewardService"
	"github.com/vibe-labs/vibe-rewards/pkg/vibeToken"
	"github.com/vibe-labs/vibe-rewards/pkg/wallet"
	"go.uber.org/zap"
)

type services struct {
	sink       *metrics.MetricsSink
	eventBus   *eventBus.EventBus
	slot       claimStorage.Slot
	storage    *claimStorage.ClaimStorage
	wallet     *wallet.Service
	airQuality *airQuality.Service
	rewards    *rewardService.RewardService
}

func (s *services) Close() {
	if s.slot != nil {
		_ = s.slot.Close()
	}
}

func newMetricsSink(cfg *config.Config, l *zap.Logger) (*metrics.MetricsSink, error) {
	metricsClients, err := metrics.InitMetricsSinksFromConfig(cfg, l)
	if err != nil {
		return nil, errors.Wrap(err, "failed to setup metrics clients")
	}
	return metrics.NewMetricsSink(&metrics.MetricsSinkConfig{}, metricsClients)
}

func newClaimStorage(cfg *config.Config, l *zap.Logger) (claimStorage.Slot, *claimStorage.ClaimStorage, error) {
	slot, err := claimStorage.NewSlotFromConfig(cfg, l)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to open claim storage")
	}
	return slot, claimStorage.NewClaimStorage(slot, l), nil
}

// newServices wires every component used to claim rewards. The ledger is built
// lazily on first use so that commands which never touch the contract do not
// need a reachable node.
func newServices(cfg *config.Config, l *zap.Logger) (*services, error) {
	sink, err := newMetricsSink(cfg, l)
	if err != nil {
		return nil, err
	}

	slot, storage, err := newClaimStorage(cfg, l)
	if err != nil {
		return nil, err
	}

	chainClient := ethereum.NewClient(ethereum.ConvertGlobalConfigToEthereumConfig(&cfg.ChainConfig), l)
	providerClient := ethereum.NewClient(&ethereum.EthereumClientConfig{BaseUrl: cfg.GetWalletProviderUrl()}, l)

	w, err := wallet.NewService(cfg, chainClient, providerClient, l)
	if err != nil {
		_ = slot.Close()
		return nil, err
	}

	primusClient, err := primus.NewClient(primus.ConvertGlobalConfigToPrimusConfig(&cfg.PrimusConfig), l)
	if err != nil {
		_ = slot.Close()
		return nil, errors.Wrap(err, "failed to create attestation client")
	}
	if len(cfg.PrimusConfig.AttestorAddresses) == 0 {
		l.Sugar().Warnw("No trusted attestors configured, attestations cannot be verified")
	}
	aq := airQuality.NewService(primusClient, &airQuality.ServiceConfig{
		TemplateId: cfg.PrimusConfig.TemplateId,
		Location:   cfg.PrimusConfig.Location,
	}, sink, l)

	eb := eventBus.NewEventBus(l)

	newLedger := func(ctx context.Context) (vibeToken.Ledger, error) {
		deployment, err := cfg.LoadDeployment()
		if err != nil {
			return nil, err
		}
		return vibeToken.NewLedger(ctx, &vibeToken.LedgerParams{
			Deployment:      deployment,
			EthereumClient:  chainClient,
			Signer:          w.Signer(),
			ChainId:         cfg.ChainConfig.ChainId,
			SimulationDelay: cfg.GetSimulationDelay(),
		}, sink, l)
	}

	rs := rewardService.NewRewardService(w, aq, newLedger, storage, eb, sink, l)

	return &services{
		sink:       sink,
		eventBus:   eb,
		slot:       slot,
		storage:    storage,
		wallet:     w,
		airQuality: aq,
		rewards:    rs,
	}, nil
}

// initialize connects the wallet and the attestation client. A failed
// attestation init is not fatal; readings fall back to random values.
func (s *services) initialize(ctx context.Context, l *zap.Logger) error {
	if err := s.airQuality.Initialize(ctx); err != nil {
		l.Sugar().Warnw("Attestation client unavailable, readings will be degraded", zap.Error(err))
	}
	if _, err := s.wallet.Connect(ctx); err != nil {
		return errors.Wrap(err, "failed to connect wallet")
	}
	return nil
}
