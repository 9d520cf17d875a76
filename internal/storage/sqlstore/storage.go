package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mcoot/lanequeue/internal/model"
	"github.com/mcoot/lanequeue/internal/storage"
)

// Storage is a gorm-backed implementation of the queue and match stores
type Storage struct {
	db *gorm.DB
}

// Open connects to Postgres and migrates the schema
func Open(cfg Config) (*Storage, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	s := NewWithDB(db)
	if err := s.Migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewWithDB creates a storage over an existing gorm handle (for testing)
func NewWithDB(db *gorm.DB) *Storage {
	return &Storage{db: db}
}

// Migrate creates or updates the tables
func (s *Storage) Migrate() error {
	if err := s.db.AutoMigrate(&queueRow{}, &matchRow{}, &matchSlotRow{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ensure Storage implements the interfaces
var (
	_ storage.QueueStore = (*Storage)(nil)
	_ storage.MatchStore = (*Storage)(nil)
)

// Queue operations

func (s *Storage) Add(ctx context.Context, p *model.QueuedParticipant) error {
	row := newQueueRow(p)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&queueRow{}).Where("participant_id = ?", row.ParticipantID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return model.ErrAlreadyQueued
		}
		if err := tx.Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return model.ErrAlreadyQueued
			}
			return err
		}
		return nil
	})
}

func (s *Storage) Get(ctx context.Context, id model.ParticipantID) (*model.QueuedParticipant, error) {
	var row queueRow
	if err := s.db.WithContext(ctx).First(&row, "participant_id = ?", string(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrParticipantNotFound
		}
		return nil, err
	}
	p := row.toModel()
	return &p, nil
}

func (s *Storage) List(ctx context.Context) ([]model.QueuedParticipant, error) {
	var rows []queueRow
	err := s.db.WithContext(ctx).
		Order("joined_at asc, participant_id asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make([]model.QueuedParticipant, len(rows))
	for i, row := range rows {
		result[i] = row.toModel()
		result[i].Position = i + 1
	}
	return result, nil
}

func (s *Storage) ListEligible(ctx context.Context) ([]model.QueuedParticipant, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	eligible := make([]model.QueuedParticipant, 0, len(all))
	for _, p := range all {
		if p.Status == model.ProcessingAvailable {
			eligible = append(eligible, p)
		}
	}
	return eligible, nil
}

func (s *Storage) CountEligible(ctx context.Context) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&queueRow{}).
		Where("status = ?", string(model.ProcessingAvailable)).
		Count(&count).Error
	return int(count), err
}

func (s *Storage) MarkProcessing(ctx context.Context, ids []model.ParticipantID, at time.Time) error {
	keys := idStrings(ids)
	// Conditional update inside a transaction: if any row was already taken
	// or has left, the whole claim is rolled back.
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&queueRow{}).
			Where("participant_id IN ? AND status = ?", keys, string(model.ProcessingAvailable)).
			Updates(map[string]any{
				"status":     string(model.ProcessingActive),
				"claimed_at": at.UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != int64(len(keys)) {
			return model.ErrQueueConflict
		}
		return nil
	})
}

func (s *Storage) RevertProcessing(ctx context.Context, ids []model.ParticipantID) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Model(&queueRow{}).
		Where("participant_id IN ? AND status = ?", idStrings(ids), string(model.ProcessingActive)).
		Updates(map[string]any{
			"status":     string(model.ProcessingAvailable),
			"claimed_at": nil,
		}).Error
}

func (s *Storage) ListStaleClaims(ctx context.Context, before time.Time) ([]model.QueuedParticipant, error) {
	var rows []queueRow
	err := s.db.WithContext(ctx).
		Where("status = ? AND claimed_at < ?", string(model.ProcessingActive), before.UTC()).
		Order("joined_at asc, participant_id asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make([]model.QueuedParticipant, len(rows))
	for i, row := range rows {
		result[i] = row.toModel()
	}
	return result, nil
}

func (s *Storage) Remove(ctx context.Context, id model.ParticipantID) error {
	res := s.db.WithContext(ctx).Delete(&queueRow{}, "participant_id = ?", string(id))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.ErrParticipantNotFound
	}
	return nil
}

func (s *Storage) RemoveAll(ctx context.Context, ids []model.ParticipantID) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Delete(&queueRow{}, "participant_id IN ?", idStrings(ids)).Error
}

func (s *Storage) IsActiveMember(ctx context.Context, id model.ParticipantID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&queueRow{}).
		Where("participant_id = ?", string(id)).
		Count(&count).Error
	return count > 0, err
}

// Match operations

func (s *Storage) Save(ctx context.Context, match *model.Match) error {
	row := newMatchRow(match)
	slots := row.Slots
	row.Slots = nil

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
		if err := tx.Where("match_id = ?", row.ID).Delete(&matchSlotRow{}).Error; err != nil {
			return err
		}
		if len(slots) == 0 {
			return nil
		}
		return tx.Create(&slots).Error
	})
}

func (s *Storage) FindByID(ctx context.Context, id model.MatchID) (*model.Match, error) {
	var row matchRow
	err := s.withSlots(ctx).First(&row, "id = ?", string(id)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrMatchNotFound
		}
		return nil, err
	}
	return row.toModel(), nil
}

func (s *Storage) FindActiveForParticipant(ctx context.Context, id model.ParticipantID) (*model.Match, error) {
	memberOf := s.db.Model(&matchSlotRow{}).Select("match_id").Where("participant_id = ?", string(id))

	var row matchRow
	err := s.withSlots(ctx).
		Where("status IN ?", activeStatuses()).
		Where("id IN (?)", memberOf).
		Order("created_at desc").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrMatchNotFound
		}
		return nil, err
	}
	return row.toModel(), nil
}

func (s *Storage) UpdateStatus(ctx context.Context, id model.MatchID, status model.MatchStatus) error {
	res := s.db.WithContext(ctx).Model(&matchRow{}).
		Where("id = ?", string(id)).
		Update("status", string(status))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.ErrMatchNotFound
	}
	return nil
}

func (s *Storage) withSlots(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Preload("Slots", func(db *gorm.DB) *gorm.DB {
		return db.Order("side asc, slot_index asc")
	})
}

func activeStatuses() []string {
	return []string{
		string(model.MatchStatusPendingAcceptance),
		string(model.MatchStatusDrafting),
		string(model.MatchStatusInProgress),
	}
}

func idStrings(ids []model.ParticipantID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
