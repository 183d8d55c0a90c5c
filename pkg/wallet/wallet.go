package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/vibe-labs/vibe-rewards/internal/config"
	"github.com/vibe-labs/vibe-rewards/pkg/clients/ethereum"
	"github.com/vibe-labs/vibe-rewards/pkg/utils"
	"go.uber.org/zap"
)

// ErrorCode_UnrecognizedChain is returned by wallet_switchEthereumChain when the
// provider does not know the chain yet.
const ErrorCode_UnrecognizedChain = 4902

var ErrWalletNotConfigured = errors.New("wallet private key is not configured")

type NetworkSwitchError struct {
	ChainId uint64
	Err     error
}

func (e *NetworkSwitchError) Error() string {
	return fmt.Sprintf("failed to switch to chain %d: %v", e.ChainId, e.Err)
}

func (e *NetworkSwitchError) Unwrap() error {
	return e.Err
}

type WalletInfo struct {
	Address string `json:"address"`
	ChainId uint64 `json:"chainId"`
	Balance string `json:"balance"`
}

// Service owns the signing key used for claims. It counts as connected once
// Connect has read the account's chain id and balance.
type Service struct {
	chainClient    *ethereum.Client
	providerClient *ethereum.Client
	chainConfig    *config.ChainConfig
	contractConfig *config.ContractConfig
	logger         *zap.Logger

	key *ecdsa.PrivateKey

	mu   sync.RWMutex
	info *WalletInfo
}

func NewService(
	cfg *config.Config,
	chainClient *ethereum.Client,
	providerClient *ethereum.Client,
	l *zap.Logger,
) (*Service, error) {
	s := &Service{
		chainClient:    chainClient,
		providerClient: providerClient,
		chainConfig:    &cfg.ChainConfig,
		contractConfig: &cfg.ContractConfig,
		logger:         l,
	}
	if cfg.WalletConfig.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.WalletConfig.PrivateKey, "0x"))
		if err != nil {
			return nil, errors.Wrap(err, "invalid wallet private key")
		}
		s.key = key
	}
	return s, nil
}

func (s *Service) Connect(ctx context.Context) (*WalletInfo, error) {
	if s.key == nil {
		return nil, ErrWalletNotConfigured
	}
	address := crypto.PubkeyToAddress(s.key.PublicKey).Hex()

	chainId, err := s.chainClient.GetChainId(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read chain id")
	}
	balance, err := s.chainClient.GetBalance(ctx, address)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read balance")
	}

	info := &WalletInfo{
		Address: address,
		ChainId: chainId,
		Balance: utils.FormatEther(balance),
	}
	if chainId != s.chainConfig.ChainId {
		s.logger.Sugar().Warnw("Wallet is connected to an unexpected chain",
			zap.Uint64("chainId", chainId),
			zap.Uint64("expectedChainId", s.chainConfig.ChainId),
		)
	}

	s.mu.Lock()
	s.info = info
	s.mu.Unlock()

	s.logger.Sugar().Infow("Wallet connected",
		zap.String("address", info.Address),
		zap.Uint64("chainId", info.ChainId),
		zap.String("balance", info.Balance),
	)
	return info, nil
}

func (s *Service) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.info = nil
}

func (s *Service) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info != nil
}

func (s *Service) Info() *WalletInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.info == nil {
		return nil
	}
	info := *s.info
	return &info
}

// Signer returns the private key, or nil when none is configured.
func (s *Service) Signer() *ecdsa.PrivateKey {
	return s.key
}

func (s *Service) NetworkParams() *ethereum.ChainParameters {
	params := &ethereum.ChainParameters{
		ChainId:   hexutil.EncodeUint64(s.chainConfig.ChainId),
		ChainName: s.chainConfig.ChainName,
		NativeCurrency: ethereum.NativeCurrency{
			Name:     s.chainConfig.CurrencyName,
			Symbol:   s.chainConfig.CurrencySymbol,
			Decimals: s.chainConfig.CurrencyDecimals,
		},
		RpcUrls: []string{s.chainConfig.RpcUrl},
	}
	if s.chainConfig.ExplorerUrl != "" {
		params.BlockExplorerUrls = []string{s.chainConfig.ExplorerUrl}
	}
	return params
}

// SwitchNetwork asks the provider to switch to the configured chain, adding the
// chain first when the provider does not recognize it.
func (s *Service) SwitchNetwork(ctx context.Context) error {
	chainId := s.chainConfig.ChainId

	err := s.providerClient.SwitchEthereumChain(ctx, chainId)
	if err == nil {
		return nil
	}

	var rpcErr *ethereum.RPCError
	if !errors.As(err, &rpcErr) || rpcErr.Code != ErrorCode_UnrecognizedChain {
		return &NetworkSwitchError{ChainId: chainId, Err: err}
	}

	s.logger.Sugar().Infow("Chain unknown to provider, adding it", zap.Uint64("chainId", chainId))
	if err := s.providerClient.AddEthereumChain(ctx, s.NetworkParams()); err != nil {
		return &NetworkSwitchError{ChainId: chainId, Err: errors.Wrap(err, "failed to add chain")}
	}
	return nil
}

// WatchAsset asks the provider to track the reward token.
func (s *Service) WatchAsset(ctx context.Context, contractAddress string) (bool, error) {
	added, err := s.providerClient.WatchAsset(ctx, &ethereum.WatchAssetOptions{
		Address:  contractAddress,
		Symbol:   s.contractConfig.TokenSymbol,
		Decimals: s.contractConfig.TokenDecimals,
		Image:    s.contractConfig.TokenIconUrl,
	})
	if err != nil {
		return false, errors.Wrap(err, "failed to register token with wallet")
	}
	return added, nil
}
