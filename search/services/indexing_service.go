package services

import (
	"fmt"
	"sync"

	"permit-processing-backend/db/models"

	"github.com/blevesearch/bleve/v2"
	"go.uber.org/zap"
)

// ApplicationIndexDoc is the searchable projection of an application.
type ApplicationIndexDoc struct {
	ReferenceNo     string `json:"reference_no"`
	PermitNumber    string `json:"permit_number"`
	ApplicantName   string `json:"applicant_name"`
	ApplicantEmail  string `json:"applicant_email"`
	Status          string `json:"status"`
	ApplicationType string `json:"application_type"`
}

// IndexingService maintains the bleve full-text index over applications.
// Indexing runs after commit and is best-effort: a failed index write is
// logged, never surfaced to the workflow.
type IndexingService struct {
	mu       sync.Mutex
	index    bleve.Index
	logger   *zap.Logger
	basePath string
}

func NewIndexingService(logger *zap.Logger, basePath string) *IndexingService {
	return &IndexingService{logger: logger, basePath: basePath}
}

func (s *IndexingService) getIndex() (bleve.Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index != nil {
		return s.index, nil
	}

	fullPath := fmt.Sprintf("%s/applications.bleve", s.basePath)
	mapping := bleve.NewIndexMapping()

	idx, err := bleve.Open(fullPath)
	if err != nil {
		idx, err = bleve.New(fullPath, mapping)
		if err != nil {
			return nil, fmt.Errorf("failed to create index %s: %w", fullPath, err)
		}
	}

	s.index = idx
	return idx, nil
}

// IndexApplication (re-)indexes one application document.
func (s *IndexingService) IndexApplication(app *models.Application) {
	idx, err := s.getIndex()
	if err != nil {
		s.logger.Error("Could not open applications index", zap.Error(err))
		return
	}

	doc := ApplicationIndexDoc{
		ReferenceNo:     app.ReferenceNo,
		ApplicantName:   app.Applicant.FullName(),
		ApplicantEmail:  app.Applicant.Email,
		Status:          string(app.Status),
		ApplicationType: string(app.ApplicationType),
	}
	if app.PermitNumber != nil {
		doc.PermitNumber = *app.PermitNumber
	}

	if err := idx.Index(app.ID.String(), doc); err != nil {
		s.logger.Error("Failed to index application",
			zap.String("application_id", app.ID.String()),
			zap.Error(err),
		)
	}
}

// SearchApplications runs a match query over the index and returns matching
// application ids with their stored fields.
func (s *IndexingService) SearchApplications(queryString string, size int) (*bleve.SearchResult, error) {
	idx, err := s.getIndex()
	if err != nil {
		return nil, err
	}

	q := bleve.NewMatchQuery(queryString)
	request := bleve.NewSearchRequestOptions(q, size, 0, false)
	request.Fields = []string{"*"}

	result, err := idx.Search(request)
	if err != nil {
		s.logger.Error("Application search failed", zap.String("query", queryString), zap.Error(err))
		return nil, err
	}
	return result, nil
}

// DeleteApplication removes an application from the index.
func (s *IndexingService) DeleteApplication(id string) {
	idx, err := s.getIndex()
	if err != nil {
		return
	}
	if err := idx.Delete(id); err != nil {
		s.logger.Error("Failed to delete application from index", zap.String("application_id", id), zap.Error(err))
	}
}
