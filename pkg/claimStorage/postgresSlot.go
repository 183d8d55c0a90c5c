package claimStorage

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const StorageSlotsTableName = "storage_slots"

type StorageSlot struct {
	Name      string `gorm:"primaryKey"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

func (StorageSlot) TableName() string {
	return StorageSlotsTableName
}

type PostgresSlot struct {
	db *gorm.DB
}

func NewPostgresSlot(grm *gorm.DB) (*PostgresSlot, error) {
	if err := grm.AutoMigrate(&StorageSlot{}); err != nil {
		return nil, errors.Wrap(err, "failed to migrate storage_slots")
	}
	return &PostgresSlot{db: grm}, nil
}

func (s *PostgresSlot) Get(key string) ([]byte, bool, error) {
	var slot StorageSlot
	res := s.db.Model(&StorageSlot{}).Where("name = ?", key).First(&slot)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if res.Error != nil {
		return nil, false, errors.Wrapf(res.Error, "failed to read slot %s", key)
	}
	return []byte(slot.Value), true, nil
}

func (s *PostgresSlot) Set(key string, value []byte) error {
	slot := &StorageSlot{Name: key, Value: string(value), UpdatedAt: time.Now()}
	res := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(slot)
	return errors.Wrapf(res.Error, "failed to write slot %s", key)
}

func (s *PostgresSlot) Remove(key string) error {
	res := s.db.Where("name = ?", key).Delete(&StorageSlot{})
	return errors.Wrapf(res.Error, "failed to remove slot %s", key)
}

func (s *PostgresSlot) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
