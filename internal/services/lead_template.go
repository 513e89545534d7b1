package services

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const templateSheet = "Leads"

var templateHeaders = []interface{}{
	"Name", "Phone", "Email", "Status", "Source", "Notes", "Callback Date", "Callback Time",
}

var templateExample = []interface{}{
	"Dana Levi", "050-1234567", "dana@example.com", "new", "website", "Interested in the annual plan", "2025-09-28", "21:03",
}

// Template builds the downloadable import workbook. Its headers are chosen
// so that DetectColumns maps every column from the keyword pass alone.
func (s *LeadImportService) Template() (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", templateSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(templateSheet, "A1", &templateHeaders); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(templateSheet, "A2", &templateExample); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(templateHeaders))
	if err := f.SetCellStyle(templateSheet, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(templateSheet, "A", lastCol, 20); err != nil {
		return nil, err
	}

	// Dates and times stay text so Excel does not reformat them.
	textStyle, err := f.NewStyle(&excelize.Style{NumFmt: 49})
	if err != nil {
		return nil, err
	}
	if err := f.SetColStyle(templateSheet, "G:H", textStyle); err != nil {
		return nil, err
	}

	if err := s.writeInstructions(f); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write template: %w", err)
	}
	return buf, nil
}

func (s *LeadImportService) writeInstructions(f *excelize.File) error {
	const sheet = "Instructions"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	lines := []string{
		"Phone is required. Rows without a phone are reported as errors.",
		"If Name is empty the phone number is used as the name.",
		"Callback Date is YYYY-MM-DD, Callback Time is HH:MM (organization time, UTC+3).",
		"A reminder is created for every row that has both callback fields.",
		"הטלפון הוא שדה חובה. שורות ללא טלפון ידווחו כשגיאה.",
		"תאריך חזרה בפורמט YYYY-MM-DD ושעת חזרה בפורמט HH:MM.",
	}
	for i, line := range lines {
		if err := f.SetCellValue(sheet, fmt.Sprintf("A%d", i+1), line); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheet, "A", "A", 90)
}
