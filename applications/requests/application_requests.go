package requests

import (
	"encoding/json"

	"permit-processing-backend/applications/services"
)

type CreateBuildingApplicationRequest struct {
	FormData json.RawMessage `json:"form_data"`
}

type CreateOccupancyApplicationRequest struct {
	FormData json.RawMessage `json:"form_data"`
	// Reference number (case-insensitive) or raw id of the parent Building
	// Application.
	BuildingPermitIdentifier string `json:"building_permit_identifier"`
}

type UpdateStatusRequest struct {
	Status           string                       `json:"status"`
	Comments         string                       `json:"comments"`
	MissingDocuments []string                     `json:"missing_documents"`
	RejectionDetails *services.RejectionOverride  `json:"rejection_details"`
	Assessment       map[string]json.RawMessage   `json:"assessment"`
	FeeItems         []services.FeeInput          `json:"fee_items"`
}

type SubmitPaymentRequest struct {
	Method     string `form:"method" json:"method"`
	Reference  string `form:"reference" json:"reference"`
	AmountPaid string `form:"amount_paid" json:"amount_paid"`
}

type ResolveMissingDocumentRequest struct {
	Item string `json:"item"`
}
