package rpcServer

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/vibe-labs/vibe-rewards/pkg/eventBus/eventBusTypes"
	"go.uber.org/zap"
)

const (
	eventBufferSize   = 100
	keepAliveInterval = 30 * time.Second
)

// handleEvents streams claim events as newline delimited JSON until the client
// goes away.
func (s *RpcServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, errors.New("streaming is not supported"))
		return
	}

	ctx := r.Context()
	consumer := eventBusTypes.NewConsumer(ctx, eventBufferSize)
	s.eventBus.Subscribe(consumer)
	defer s.eventBus.Unsubscribe(consumer)

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	encoder := json.NewEncoder(w)
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Logger.Sugar().Debugw("Event stream closed", zap.String("consumerId", string(consumer.Id)))
			return
		case <-ticker.C:
			if _, err := w.Write([]byte("\n")); err != nil {
				return
			}
			flusher.Flush()
		case event := <-consumer.Channel:
			if err := encoder.Encode(event); err != nil {
				s.Logger.Sugar().Errorw("Failed to write event",
					zap.String("consumerId", string(consumer.Id)),
					zap.Error(err),
				)
				return
			}
			flusher.Flush()
		}
	}
}
