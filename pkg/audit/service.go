package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jordanlanch/leadintake/pkg/logger"
	"github.com/jordanlanch/leadintake/pkg/models"
	"gorm.io/gorm"
)

// Actions recorded for whole-record events. Field-level updates carry the
// changed-field diff instead.
const (
	ActionCreated  = "created"
	ActionImported = "imported"
)

// Service writes and reads the buyer change history.
type Service struct {
	db  *gorm.DB
	log logger.Logger
}

// NewService creates a new audit service.
func NewService(db *gorm.DB, log logger.Logger) *Service {
	return &Service{db: db, log: log}
}

// Record writes one immutable history entry inside the given transaction
// (pass the base handle for standalone writes). The diff can be any
// JSON-serializable value; mutations pass the changed-field map, creation
// and import pass an action envelope.
func (s *Service) Record(tx *gorm.DB, buyerID, changedBy string, diff interface{}) error {
	payload, err := toJSONMap(diff)
	if err != nil {
		return fmt.Errorf("failed to encode history diff: %w", err)
	}

	entry := models.BuyerHistory{
		ID:        uuid.NewString(),
		BuyerID:   buyerID,
		ChangedBy: changedBy,
		ChangedAt: time.Now().UTC().Truncate(time.Microsecond),
		Diff:      payload,
	}

	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to write history entry: %w", err)
	}
	return nil
}

// RecordCreated writes the creation entry for a new buyer.
func (s *Service) RecordCreated(tx *gorm.DB, buyerID, changedBy string, submitted interface{}) error {
	return s.Record(tx, buyerID, changedBy, map[string]interface{}{
		"action": ActionCreated,
		"data":   submitted,
	})
}

// RecordImported writes the import entry for a bulk-inserted buyer.
func (s *Service) RecordImported(tx *gorm.DB, buyerID, changedBy string, data interface{}) error {
	return s.Record(tx, buyerID, changedBy, map[string]interface{}{
		"action": ActionImported,
		"data":   data,
	})
}

// ListByBuyer returns the change history for one buyer, newest first.
func (s *Service) ListByBuyer(ctx context.Context, buyerID string, limit int) ([]models.BuyerHistory, error) {
	if limit <= 0 {
		limit = 50
	}

	var entries []models.BuyerHistory
	err := s.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("changed_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	return entries, nil
}

// PruneOlderThan deletes history entries older than the cutoff and returns
// how many were removed. History survives buyer deletion, so this sweep is
// the only thing that ever removes entries.
func (s *Service) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("changed_at < ?", cutoff).
		Delete(&models.BuyerHistory{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to prune history: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func toJSONMap(v interface{}) (models.JSONMap, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m models.JSONMap
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}
