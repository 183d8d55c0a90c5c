package eventBusTypes

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

const (
	Event_ClaimCompleted = "claim.completed"
	Event_ClaimRejected  = "claim.rejected"
	Event_ClaimFailed    = "claim.failed"
	Event_ClaimsCleared  = "claims.cleared"
)

type Event struct {
	Name string `json:"name"`
	Data any    `json:"data"`
}

type ConsumerId string

type Consumer struct {
	Id      ConsumerId
	Context context.Context
	Channel chan *Event
}

// NewConsumer creates a consumer with a random id and a buffered channel.
func NewConsumer(ctx context.Context, bufferSize int) *Consumer {
	return &Consumer{
		Id:      ConsumerId(uuid.New().String()),
		Context: ctx,
		Channel: make(chan *Event, bufferSize),
	}
}

type ConsumerList struct {
	mu        sync.Mutex
	consumers []*Consumer
}

func NewConsumerList() *ConsumerList {
	return &ConsumerList{
		consumers: make([]*Consumer, 0),
	}
}

func (cl *ConsumerList) Add(consumer *Consumer) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.consumers = append(cl.consumers, consumer)
}

func (cl *ConsumerList) Remove(consumer *Consumer) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	for i, c := range cl.consumers {
		if c.Id == consumer.Id {
			cl.consumers = append(cl.consumers[:i], cl.consumers[i+1:]...)
			break
		}
	}
}

// GetAll returns a snapshot of the current consumers.
func (cl *ConsumerList) GetAll() []*Consumer {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	all := make([]*Consumer, len(cl.consumers))
	copy(all, cl.consumers)
	return all
}

func (cl *ConsumerList) Len() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return len(cl.consumers)
}

type IEventBus interface {
	Subscribe(consumer *Consumer)
	Unsubscribe(consumer *Consumer)
	Publish(event *Event)
}

// ClaimEventData describes the outcome of one claim attempt.
type ClaimEventData struct {
	Address        string `json:"address"`
	Amount         int    `json:"amount"`
	Aqi            int    `json:"aqi,omitempty"`
	TxHash         string `json:"txHash,omitempty"`
	AlreadyClaimed bool   `json:"alreadyClaimed"`
	Degraded       bool   `json:"degraded,omitempty"`
	SimulationMode bool   `json:"simulationMode"`
	Message        string `json:"message"`
	Timestamp      int64  `json:"timestamp"`
}

type ClaimsClearedData struct {
	// Address is empty when every record was cleared.
	Address string `json:"address,omitempty"`
}
