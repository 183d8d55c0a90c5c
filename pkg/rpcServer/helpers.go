package rpcServer

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/vibe-labs/vibe-rewards/internal/metrics/metricsTypes"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *RpcServer) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.Logger.Sugar().Errorw("Failed to encode response", zap.Error(err))
	}
}

func (s *RpcServer) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, &errorResponse{Error: err.Error()})
}

// readJSON decodes an optional request body; an empty body leaves dst untouched.
func readJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return errors.Wrap(err, "invalid request body")
}

func pathAddress(r *http.Request) (string, error) {
	address := r.PathValue("address")
	if !common.IsHexAddress(address) {
		return "", errors.Errorf("invalid address '%s'", address)
	}
	return address, nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *RpcServer) withMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		labels := []metricsTypes.MetricsLabel{
			{Name: "path", Value: path},
			{Name: "status", Value: strconv.Itoa(rec.status)},
		}
		_ = s.metrics.Incr(metricsTypes.Metric_Incr_HttpRequest, labels, 1)
		_ = s.metrics.Timing(metricsTypes.Metric_Timing_HttpDuration, time.Since(start), labels)

		s.Logger.Sugar().Debugw("Handled request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
