package utils

import (
	"fmt"

	"permit-processing-backend/db/models"

	"github.com/xuri/excelize/v2"
)

// ExportApplicationsRegister renders the filtered applications register as a
// spreadsheet for front-desk reporting.
func ExportApplicationsRegister(apps []models.Application) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := "Applications"

	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{
		"Reference No", "Type", "Applicant", "Status",
		"Total Amount Due", "Payment Status", "Permit Number", "Submitted",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for row, app := range apps {
		permitNumber := ""
		if app.PermitNumber != nil {
			permitNumber = *app.PermitNumber
		}
		values := []interface{}{
			app.ReferenceNo,
			string(app.ApplicationType),
			app.Applicant.FullName(),
			string(app.Status),
			app.TotalAmountDue.StringFixed(2),
			string(app.PaymentStatus),
			permitNumber,
			app.SubmissionDate.Format("2006-01-02"),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write row %d: %w", row+2, err)
			}
		}
	}

	return f, nil
}
