package rpcServer

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/vibe-labs/vibe-rewards/pkg/airQuality"
	"github.com/vibe-labs/vibe-rewards/pkg/rewardService"
	"go.uber.org/zap"
)

type airQualityResponse struct {
	Reading *airQuality.AirQualityReading `json:"reading"`
	Level   *airQuality.AQILevel          `json:"level"`
	Preview *rewardService.RewardResult   `json:"preview"`
}

type claimRequest struct {
	Address string `json:"address"`
}

type ruleResponse struct {
	Rule string `json:"rule"`
}

type balanceResponse struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

type contractResponse struct {
	ContractAddress string `json:"contractAddress"`
	SimulationMode  bool   `json:"simulationMode"`
}

type countResponse struct {
	Count int `json:"count"`
}

func (s *RpcServer) handleAirQuality(w http.ResponseWriter, r *http.Request) {
	address, err := pathAddress(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	reading := s.readings.FetchReading(r.Context(), address)
	level := airQuality.Classify(reading.Aqi)
	s.writeJSON(w, http.StatusOK, &airQualityResponse{
		Reading: reading,
		Level:   &level,
		Preview: s.rewards.SimulateReward(reading),
	})
}

// handleClaim always answers 200 once the request is well formed; the outcome
// is carried by the result body.
func (s *RpcServer) handleClaim(w http.ResponseWriter, r *http.Request) {
	req := &claimRequest{}
	if err := readJSON(r, req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Address == "" {
		if info := s.wallet.Info(); info != nil {
			req.Address = info.Address
		}
	}
	if !common.IsHexAddress(req.Address) {
		s.writeError(w, http.StatusBadRequest, errors.Errorf("invalid address '%s'", req.Address))
		return
	}

	result := s.rewards.CheckAndReward(r.Context(), req.Address)
	s.writeJSON(w, http.StatusOK, result)
}

func (s *RpcServer) handleClaimStatus(w http.ResponseWriter, r *http.Request) {
	address, err := pathAddress(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.rewards.CheckClaimStatus(address))
}

func (s *RpcServer) handleRewardRule(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, &ruleResponse{Rule: s.rewards.GetRewardRule()})
}

func (s *RpcServer) handleTokenInfo(w http.ResponseWriter, r *http.Request) {
	info := s.rewards.GetTokenInfo(r.Context())
	if info == nil {
		s.writeError(w, http.StatusServiceUnavailable, errors.New("token info is unavailable"))
		return
	}
	s.writeJSON(w, http.StatusOK, info)
}

func (s *RpcServer) handleTokenBalance(w http.ResponseWriter, r *http.Request) {
	address, err := pathAddress(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusOK, &balanceResponse{
		Address: address,
		Balance: s.rewards.GetTokenBalance(r.Context(), address),
	})
}

func (s *RpcServer) handleContract(w http.ResponseWriter, r *http.Request) {
	address := s.rewards.GetContractAddress(r.Context())
	s.writeJSON(w, http.StatusOK, &contractResponse{
		ContractAddress: address,
		SimulationMode:  s.rewards.IsSimulationMode(r.Context()),
	})
}

func (s *RpcServer) handleClaimsCount(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, &countResponse{Count: s.rewards.GetTotalClaimsCount()})
}

func (s *RpcServer) handleClearClaims(w http.ResponseWriter, r *http.Request) {
	if err := s.rewards.ClearAllClaimRecords(); err != nil {
		s.Logger.Sugar().Errorw("Failed to clear claim records", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *RpcServer) handleClearClaim(w http.ResponseWriter, r *http.Request) {
	address, err := pathAddress(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.rewards.ClearUserClaimRecord(address); err != nil {
		s.Logger.Sugar().Errorw("Failed to clear claim record", zap.String("address", address), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
