package claimStorage

import (
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

type LevelDbSlot struct {
	db *leveldb.DB
}

func NewLevelDbSlot(path string) (*LevelDbSlot, error) {
	if path == "" {
		return nil, errors.New("leveldb path is required")
	}
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open leveldb at %s", path)
	}
	return &LevelDbSlot{db: db}, nil
}

// NewInMemoryLevelDbSlot backs the slot with leveldb's memory storage.
func NewInMemoryLevelDbSlot() (*LevelDbSlot, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open in-memory leveldb")
	}
	return &LevelDbSlot{db: db}, nil
}

func (s *LevelDbSlot) Get(key string) ([]byte, bool, error) {
	v, err := s.db.Get([]byte(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "failed to read slot %s", key)
	}
	return v, true, nil
}

func (s *LevelDbSlot) Set(key string, value []byte) error {
	return errors.Wrapf(s.db.Put([]byte(key), value, nil), "failed to write slot %s", key)
}

func (s *LevelDbSlot) Remove(key string) error {
	return errors.Wrapf(s.db.Delete([]byte(key), nil), "failed to remove slot %s", key)
}

func (s *LevelDbSlot) Close() error {
	return s.db.Close()
}
