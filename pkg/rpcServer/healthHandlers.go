package rpcServer

import (
	"net/http"
)

type healthResponse struct {
	Status string `json:"status"`
}

type readyResponse struct {
	Ready           bool `json:"ready"`
	WalletConnected bool `json:"walletConnected"`
}

func (s *RpcServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, &healthResponse{Status: "SERVING"})
}

// Ready requires a connected wallet, since every claim signs with it.
func (s *RpcServer) handleReady(w http.ResponseWriter, r *http.Request) {
	connected := s.wallet.IsConnected()
	status := http.StatusOK
	if !connected {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, &readyResponse{Ready: connected, WalletConnected: connected})
}
