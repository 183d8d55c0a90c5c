package eventBus

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vibe-labs/vibe-rewards/internal/config"
	"github.com/vibe-labs/vibe-rewards/internal/logger"
	"github.com/vibe-labs/vibe-rewards/pkg/eventBus/eventBusTypes"
)

func Test_EventBus(t *testing.T) {
	debug := os.Getenv(config.Debug) == "true"
	l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: debug})

	t.Run("Should deliver events until the consumer unsubscribes", func(t *testing.T) {
		eb := NewEventBus(l)

		consumer := eventBusTypes.NewConsumer(context.Background(), 1000)

		receivedCount := atomic.Uint64{}
		wg := sync.WaitGroup{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case event := <-consumer.Channel:
					t.Logf("Received event: %v", event)
					if receivedCount.Add(1) == uint64(3) {
						eb.Unsubscribe(consumer)
						return
					}
				case <-consumer.Context.Done():
					return
				}
			}
		}()
		eb.Subscribe(consumer)

		for i := 0; i < 3; i++ {
			eb.Publish(&eventBusTypes.Event{
				Name: eventBusTypes.Event_ClaimCompleted,
				Data: &eventBusTypes.ClaimEventData{Address: "0xaa", Amount: 50},
			})
		}
		wg.Wait()

		assert.Equal(t, uint64(3), receivedCount.Load())
		assert.Equal(t, 0, eb.ConsumerCount())
	})

	t.Run("Should not block on a full consumer", func(t *testing.T) {
		eb := NewEventBus(l)
		consumer := eventBusTypes.NewConsumer(context.Background(), 1)
		eb.Subscribe(consumer)

		for i := 0; i < 5; i++ {
			eb.Publish(&eventBusTypes.Event{Name: eventBusTypes.Event_ClaimFailed})
		}
		assert.Len(t, consumer.Channel, 1)
	})

	t.Run("Should give every consumer a distinct id", func(t *testing.T) {
		a := eventBusTypes.NewConsumer(context.Background(), 1)
		b := eventBusTypes.NewConsumer(context.Background(), 1)
		assert.NotEqual(t, a.Id, b.Id)
	})
}
