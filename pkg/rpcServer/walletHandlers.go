package rpcServer

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/vibe-labs/vibe-rewards/pkg/utils"
	"github.com/vibe-labs/vibe-rewards/pkg/wallet"
	"go.uber.org/zap"
)

type switchNetworkResponse struct {
	Switched bool `json:"switched"`
}

type watchAssetRequest struct {
	ContractAddress string `json:"contractAddress"`
}

type watchAssetResponse struct {
	ContractAddress string `json:"contractAddress"`
	Added           bool   `json:"added"`
}

func (s *RpcServer) handleConnectWallet(w http.ResponseWriter, r *http.Request) {
	info, err := s.wallet.Connect(r.Context())
	if err != nil {
		s.Logger.Sugar().Errorw("Failed to connect wallet", zap.Error(err))
		if errors.Is(err, wallet.ErrWalletNotConfigured) {
			s.writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	s.writeJSON(w, http.StatusOK, info)
}

func (s *RpcServer) handleSwitchNetwork(w http.ResponseWriter, r *http.Request) {
	if err := s.wallet.SwitchNetwork(r.Context()); err != nil {
		s.Logger.Sugar().Errorw("Failed to switch network", zap.Error(err))
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	s.writeJSON(w, http.StatusOK, &switchNetworkResponse{Switched: true})
}

// handleWatchAsset defaults to the deployed reward token when no address is given.
func (s *RpcServer) handleWatchAsset(w http.ResponseWriter, r *http.Request) {
	req := &watchAssetRequest{}
	if err := readJSON(r, req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	address := req.ContractAddress
	if address == "" {
		address = s.rewards.GetContractAddress(r.Context())
	}
	if !common.IsHexAddress(address) {
		s.writeError(w, http.StatusBadRequest, errors.Errorf("invalid contract address '%s'", address))
		return
	}
	if utils.IsNullAddress(address) {
		s.writeError(w, http.StatusConflict, errors.New("token contract is not deployed"))
		return
	}

	added, err := s.wallet.WatchAsset(r.Context(), address)
	if err != nil {
		s.Logger.Sugar().Errorw("Failed to watch asset", zap.String("address", address), zap.Error(err))
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	s.writeJSON(w, http.StatusOK, &watchAssetResponse{ContractAddress: address, Added: added})
}
