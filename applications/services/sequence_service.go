package services

import (
	"fmt"
	"time"

	"permit-processing-backend/db/models"

	"gorm.io/gorm"
)

// Reference numbers look like B-2503000001 (type prefix, YYMM, six digits).
// Permit numbers drop the prefix and draw from a pool shared by both
// application types: 2503000001.
const sequenceDigits = 6

// maxSequence is a hard ceiling; exhausting six digits within one calendar
// month is treated as fatal misconfiguration, not a recoverable state.
const maxSequence = 999999

// SequenceIssuer allocates unique, monotonically increasing numbers scoped to
// a calendar month. The issuer runs inside the caller's transaction so a
// failed creation never burns a gap observable as a duplicate.
type SequenceIssuer interface {
	NextReferenceNumber(tx *gorm.DB, appType models.ApplicationType, at time.Time) (string, error)
	NextPermitNumber(tx *gorm.DB, at time.Time) (string, error)
}

type sequenceService struct{}

func NewSequenceService() SequenceIssuer {
	return &sequenceService{}
}

// TypePrefix returns the reference-number prefix for an application type.
func TypePrefix(appType models.ApplicationType) string {
	if appType == models.OccupancyApplication {
		return "O"
	}
	return "B"
}

// FormatReferenceNumber composes {prefix}-{YY}{MM}{seq} from an allocated
// sequence value.
func FormatReferenceNumber(appType models.ApplicationType, at time.Time, seq int64) string {
	return fmt.Sprintf("%s-%s%0*d", TypePrefix(appType), at.Format("0601"), sequenceDigits, seq)
}

// FormatPermitNumber composes {YY}{MM}{seq} from an allocated sequence value.
func FormatPermitNumber(at time.Time, seq int64) string {
	return fmt.Sprintf("%s%0*d", at.Format("0601"), sequenceDigits, seq)
}

func (s *sequenceService) NextReferenceNumber(tx *gorm.DB, appType models.ApplicationType, at time.Time) (string, error) {
	scope := fmt.Sprintf("REF:%s:%s", TypePrefix(appType), at.Format("0601"))
	seq, err := s.nextValue(tx, scope)
	if err != nil {
		return "", err
	}
	return FormatReferenceNumber(appType, at, seq), nil
}

func (s *sequenceService) NextPermitNumber(tx *gorm.DB, at time.Time) (string, error) {
	scope := "PERMIT:" + at.Format("0601")
	seq, err := s.nextValue(tx, scope)
	if err != nil {
		return "", err
	}
	return FormatPermitNumber(at, seq), nil
}

// nextValue increments the per-scope counter atomically. The upsert holds a
// row lock until the surrounding transaction commits, so two concurrent
// creations in the same month can never read the same value. A plain
// read-max-then-write would race here.
func (s *sequenceService) nextValue(tx *gorm.DB, scope string) (int64, error) {
	var value int64
	err := tx.Raw(`
		INSERT INTO sequence_counters (scope, value, updated_at)
		VALUES (?, 1, NOW())
		ON CONFLICT (scope)
		DO UPDATE SET value = sequence_counters.value + 1, updated_at = NOW()
		RETURNING value`, scope).Scan(&value).Error
	if err != nil {
		return 0, fmt.Errorf("failed to allocate sequence for scope %s: %w", scope, err)
	}
	if value > maxSequence {
		return 0, fmt.Errorf("sequence pool exhausted for scope %s", scope)
	}
	return value, nil
}
