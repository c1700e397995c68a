package services

import (
	"fmt"
	"mime/multipart"
	"path/filepath"

	"permit-processing-backend/db/models"
	"permit-processing-backend/utils"

	"github.com/google/uuid"
)

// RevisionLabel prefixes documents uploaded as part of a correction batch.
const RevisionLabel = "Revision"

// DocumentService stores uploaded supporting documents. File content is an
// opaque blob handed to the storage collaborator; only the metadata lives on
// the aggregate.
type DocumentService struct {
	storage utils.FileStorage
}

func NewDocumentService(storage utils.FileStorage) *DocumentService {
	return &DocumentService{storage: storage}
}

// PlaceDocument applies the aggregate's append-or-replace-by-name rule:
// an incoming document whose name matches an existing entry replaces that
// entry's file fields in place (same position, same id); otherwise it is
// appended at the next position. Returns true when an entry was replaced.
func PlaceDocument(app *models.Application, incoming models.ApplicationDocument) bool {
	for i := range app.Documents {
		if app.Documents[i].Name == incoming.Name {
			app.Documents[i].FilePath = incoming.FilePath
			app.Documents[i].MimeType = incoming.MimeType
			app.Documents[i].FileSize = incoming.FileSize
			app.Documents[i].UploadedBy = incoming.UploadedBy
			return true
		}
	}

	maxPosition := 0
	for _, doc := range app.Documents {
		if doc.Position > maxPosition {
			maxPosition = doc.Position
		}
	}
	incoming.Position = maxPosition + 1
	incoming.ApplicationID = app.ID
	app.Documents = append(app.Documents, incoming)
	return false
}

// AttachUpload stores one uploaded file and places its metadata on the
// aggregate under the given requirement name.
func (s *DocumentService) AttachUpload(app *models.Application, fileHeader *multipart.FileHeader, name, uploadedBy string) error {
	if name == "" {
		name = fileHeader.Filename
	}

	file, err := fileHeader.Open()
	if err != nil {
		return fmt.Errorf("failed to open uploaded file %q: %w", fileHeader.Filename, err)
	}
	defer file.Close()

	storedName := uuid.NewString() + filepath.Ext(fileHeader.Filename)
	filePath, err := s.storage.UploadFile(file, storedName)
	if err != nil {
		return fmt.Errorf("failed to store uploaded file %q: %w", fileHeader.Filename, err)
	}

	PlaceDocument(app, models.ApplicationDocument{
		Name:       name,
		FilePath:   filePath,
		MimeType:   fileHeader.Header.Get("Content-Type"),
		FileSize:   fileHeader.Size,
		UploadedBy: uploadedBy,
	})
	return nil
}

// AttachRevisionBatch stores each file of a correction upload under the fixed
// revision label. Names carry the original filename so the entries append
// rather than overwrite one another.
func (s *DocumentService) AttachRevisionBatch(app *models.Application, files []*multipart.FileHeader, uploadedBy string) error {
	for _, fileHeader := range files {
		name := fmt.Sprintf("%s (%s)", RevisionLabel, fileHeader.Filename)
		if err := s.AttachUpload(app, fileHeader, name, uploadedBy); err != nil {
			return err
		}
	}
	return nil
}

// StorePaymentProof stores a payment proof blob and returns its path.
func (s *DocumentService) StorePaymentProof(fileHeader *multipart.FileHeader) (string, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open payment proof: %w", err)
	}
	defer file.Close()

	storedName := "proof-" + uuid.NewString() + filepath.Ext(fileHeader.Filename)
	filePath, err := s.storage.UploadFile(file, storedName)
	if err != nil {
		return "", fmt.Errorf("failed to store payment proof: %w", err)
	}
	return filePath, nil
}
