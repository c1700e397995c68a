package repositories

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"permit-processing-backend/applications/services"
	"permit-processing-backend/db/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// createRetries bounds the reference-number conflict retry loop. With the
// atomic counters a collision needs a restored backup or manual insert, so
// one retry is almost always enough.
const createRetries = 3

type ApplicationRepository interface {
	Create(app *models.Application) (*models.Application, error)
	GetByID(id string) (*models.Application, error)
	GetByIDTx(tx *gorm.DB, id string) (*models.Application, error)
	ResolveBuildingPermit(identifier string) (*models.Application, error)
	SaveTransition(tx *gorm.DB, app *models.Application, result *services.TransitionResult) error
	SaveDocuments(tx *gorm.DB, app *models.Application) error
	GetFilteredApplications(pageSize int, offset int, filters map[string]string) ([]models.Application, int64, error)
	GetHistory(applicationID string) ([]models.WorkflowHistoryEntry, error)
}

type applicationRepository struct {
	db        *gorm.DB
	sequences services.SequenceIssuer
}

func NewApplicationRepository(db *gorm.DB, sequences services.SequenceIssuer) ApplicationRepository {
	return &applicationRepository{db: db, sequences: sequences}
}

// Create allocates the reference number and persists the aggregate plus its
// initial history entry in one transaction. A duplicate reference (possible
// only if the counter table was tampered with) retries with a fresh number a
// bounded number of times before surfacing ErrConflict.
func (r *applicationRepository) Create(app *models.Application) (*models.Application, error) {
	var lastErr error
	for attempt := 0; attempt < createRetries; attempt++ {
		err := r.db.Transaction(func(tx *gorm.DB) error {
			referenceNo, err := r.sequences.NextReferenceNumber(tx, app.ApplicationType, app.SubmissionDate)
			if err != nil {
				return err
			}
			app.ReferenceNo = referenceNo

			if err := tx.Omit("Applicant", "BuildingPermit", "FeeItems", "History").Create(app).Error; err != nil {
				return err
			}

			entry := &models.WorkflowHistoryEntry{
				ApplicationID: app.ID,
				Status:        models.StatusSubmitted,
				Comments:      "Application submitted",
				UpdatedBy:     app.CreatedBy,
				CreatedAt:     app.SubmissionDate,
			}
			return tx.Create(entry).Error
		})
		if err == nil {
			return app, nil
		}
		if !isDuplicateKey(err) {
			return nil, fmt.Errorf("failed to create application: %w", err)
		}
		app.ID = uuid.Nil // fresh id for the retry attempt
		lastErr = err
	}
	return nil, fmt.Errorf("%w: reference number allocation kept colliding: %v", services.ErrConflict, lastErr)
}

func (r *applicationRepository) GetByID(id string) (*models.Application, error) {
	return r.GetByIDTx(r.db, id)
}

func (r *applicationRepository) GetByIDTx(tx *gorm.DB, id string) (*models.Application, error) {
	appID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a valid application id", services.ErrValidation, id)
	}

	var app models.Application
	err = tx.
		Preload("FeeItems", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Documents", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Applicant").
		Where("id = ?", appID).
		First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, services.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load application: %w", err)
	}
	return &app, nil
}

// ResolveBuildingPermit implements the cross-application linker: a
// case-insensitive reference-number match first, then an id match when the
// identifier parses as a UUID. Only Building applications qualify.
func (r *applicationRepository) ResolveBuildingPermit(identifier string) (*models.Application, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, fmt.Errorf("%w: building permit identifier is required", services.ErrValidation)
	}

	var app models.Application
	err := r.db.
		Where("UPPER(reference_no) = ? AND application_type = ?", strings.ToUpper(identifier), models.BuildingApplication).
		First(&app).Error
	if err == nil {
		return &app, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to resolve building permit reference: %w", err)
	}

	if appID, parseErr := uuid.Parse(identifier); parseErr == nil {
		err = r.db.
			Where("id = ? AND application_type = ?", appID, models.BuildingApplication).
			First(&app).Error
		if err == nil {
			return &app, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to resolve building permit id: %w", err)
		}
	}

	return nil, fmt.Errorf("%w: no building application matches %q", services.ErrNotFound, identifier)
}

// SaveTransition persists one transition atomically: the mutated aggregate,
// a replaced fee ledger when the engine rebuilt it, and the history append.
// The caller owns the transaction.
func (r *applicationRepository) SaveTransition(tx *gorm.DB, app *models.Application, result *services.TransitionResult) error {
	if result.FeesReplaced {
		if err := tx.Where("application_id = ?", app.ID).Delete(&models.FeeLineItem{}).Error; err != nil {
			return fmt.Errorf("failed to clear fee ledger: %w", err)
		}
		if len(app.FeeItems) > 0 {
			if err := tx.Create(&app.FeeItems).Error; err != nil {
				return fmt.Errorf("failed to write fee ledger: %w", err)
			}
		}
	}

	if err := tx.Omit("Applicant", "BuildingPermit", "FeeItems", "Documents", "History").Save(app).Error; err != nil {
		return fmt.Errorf("failed to save application: %w", err)
	}

	if err := tx.Create(result.Entry).Error; err != nil {
		return fmt.Errorf("failed to append workflow history: %w", err)
	}
	return nil
}

// SaveDocuments flushes the aggregate's document list (replace-in-place
// updates and appended rows alike).
func (r *applicationRepository) SaveDocuments(tx *gorm.DB, app *models.Application) error {
	for i := range app.Documents {
		if err := tx.Save(&app.Documents[i]).Error; err != nil {
			return fmt.Errorf("failed to save document %q: %w", app.Documents[i].Name, err)
		}
	}
	return nil
}

func (r *applicationRepository) GetHistory(applicationID string) ([]models.WorkflowHistoryEntry, error) {
	appID, err := uuid.Parse(applicationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a valid application id", services.ErrValidation, applicationID)
	}

	var entries []models.WorkflowHistoryEntry
	err = r.db.Where("application_id = ?", appID).Order("created_at ASC").Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow history: %w", err)
	}
	return entries, nil
}

func (r *applicationRepository) GetFilteredApplications(pageSize int, offset int, filters map[string]string) ([]models.Application, int64, error) {
	var apps []models.Application
	var total int64

	db := r.db.Model(&models.Application{})

	for key, value := range filters {
		if value == "" {
			continue
		}
		switch key {
		case "status":
			db = db.Where("status = ?", value)
		case "application_type":
			db = db.Where("application_type = ?", strings.ToUpper(value))
		case "applicant_id":
			db = db.Where("applicant_id = ?", value)
		case "reference_no":
			db = db.Where("UPPER(reference_no) LIKE ?", "%"+strings.ToUpper(value)+"%")
		case "payment_status":
			db = db.Where("payment_status = ?", value)
		case "start_date":
			if parsed, err := time.Parse("2006-01-02", value); err == nil {
				db = db.Where("submission_date >= ?", parsed)
			}
		case "end_date":
			if parsed, err := time.Parse("2006-01-02", value); err == nil {
				db = db.Where("submission_date <= ?", parsed.Add(24*time.Hour-time.Second))
			}
		}
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count applications: %w", err)
	}

	err := db.
		Preload("Applicant").
		Order("created_at DESC").
		Limit(pageSize).
		Offset(offset).
		Find(&apps).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list applications: %w", err)
	}
	return apps, total, nil
}

func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "duplicate key value")
}
