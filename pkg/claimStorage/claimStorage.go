package claimStorage

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/vibe-labs/vibe-rewards/pkg/utils"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.uber.org/zap"
)

// StorageKey names the single slot holding the serialized list of claim records.
const StorageKey = "vibe_claim_records"

type ClaimRecord struct {
	Address string `json:"address" csv:"address"`
	// Timestamp is the unix time in milliseconds at which the record was written.
	Timestamp int64  `json:"timestamp" csv:"timestamp"`
	Aqi       int    `json:"aqi" csv:"aqi"`
	Amount    int    `json:"amount" csv:"amount"`
	TxHash    string `json:"txHash,omitempty" csv:"tx_hash"`
}

func (r *ClaimRecord) Time() time.Time {
	return time.UnixMilli(r.Timestamp)
}

type ClaimStorage struct {
	slot   Slot
	logger *zap.Logger
	now    func() time.Time

	// serializes read-modify-write sequences against the slot
	mu sync.Mutex
}

func NewClaimStorage(slot Slot, l *zap.Logger) *ClaimStorage {
	return &ClaimStorage{
		slot:   slot,
		logger: l,
		now:    time.Now,
	}
}

// SetClock replaces the clock used to stamp new records.
func (cs *ClaimStorage) SetClock(now func() time.Time) {
	cs.now = now
}

// load decodes the slot into an address-keyed ordered map. Unreadable or corrupt
// state is logged and treated as an empty collection.
func (cs *ClaimStorage) load() *orderedmap.OrderedMap[string, *ClaimRecord] {
	records := orderedmap.New[string, *ClaimRecord]()

	raw, ok, err := cs.slot.Get(StorageKey)
	if err != nil {
		cs.logger.Sugar().Errorw("Failed to read claim records", zap.Error(err))
		return records
	}
	if !ok || len(raw) == 0 {
		return records
	}

	var list []*ClaimRecord
	if err := json.Unmarshal(raw, &list); err != nil {
		cs.logger.Sugar().Errorw("Failed to decode claim records, treating as empty", zap.Error(err))
		return records
	}
	for _, r := range list {
		if r == nil {
			continue
		}
		key := utils.NormalizeAddress(r.Address)
		if _, exists := records.Get(key); exists {
			continue
		}
		records.Set(key, r)
	}
	return records
}

func (cs *ClaimStorage) persist(records *orderedmap.OrderedMap[string, *ClaimRecord]) error {
	list := make([]*ClaimRecord, 0, records.Len())
	for pair := records.Oldest(); pair != nil; pair = pair.Next() {
		list = append(list, pair.Value)
	}
	data, err := json.Marshal(list)
	if err != nil {
		return err
	}
	if err := cs.slot.Set(StorageKey, data); err != nil {
		cs.logger.Sugar().Errorw("Failed to persist claim records", zap.Error(err))
		return err
	}
	return nil
}

func (cs *ClaimStorage) HasClaimed(address string) bool {
	return cs.GetRecord(address) != nil
}

// AddRecord normalizes the address, stamps the record with the current time and
// persists it. A previous record for the same address is replaced.
func (cs *ClaimStorage) AddRecord(record *ClaimRecord) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	records := cs.load()

	stored := &ClaimRecord{
		Address:   utils.NormalizeAddress(record.Address),
		Timestamp: cs.now().UnixMilli(),
		Aqi:       record.Aqi,
		Amount:    record.Amount,
		TxHash:    record.TxHash,
	}
	records.Delete(stored.Address)
	records.Set(stored.Address, stored)

	cs.logger.Sugar().Debugw("Adding claim record",
		zap.String("address", stored.Address),
		zap.Int("aqi", stored.Aqi),
		zap.Int("amount", stored.Amount),
	)
	return cs.persist(records)
}

func (cs *ClaimStorage) GetRecord(address string) *ClaimRecord {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	r, ok := cs.load().Get(utils.NormalizeAddress(address))
	if !ok {
		return nil
	}
	return r
}

// GetRecords returns all records in insertion order.
func (cs *ClaimStorage) GetRecords() []*ClaimRecord {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	records := cs.load()
	list := make([]*ClaimRecord, 0, records.Len())
	for pair := records.Oldest(); pair != nil; pair = pair.Next() {
		list = append(list, pair.Value)
	}
	return list
}

func (cs *ClaimStorage) ClearAll() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if err := cs.slot.Remove(StorageKey); err != nil {
		cs.logger.Sugar().Errorw("Failed to clear claim records", zap.Error(err))
		return err
	}
	return nil
}

// ClearOne removes the record for address, leaving every other record untouched.
func (cs *ClaimStorage) ClearOne(address string) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	records := cs.load()
	records.Delete(utils.NormalizeAddress(address))
	return cs.persist(records)
}

func (cs *ClaimStorage) Count() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	return cs.load().Len()
}
