package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"crm-system/internal/dto"
	"crm-system/internal/entities"
	"crm-system/internal/repositories"
	"crm-system/pkg/customvalidator"
	apperrors "crm-system/pkg/errors"
	"crm-system/pkg/metrics"
	"crm-system/pkg/utils"
)

const ImportLeadSource = "excel_import"

type LeadImportServiceInterface interface {
	ImportExcel(ctx context.Context, r io.Reader) (*dto.ImportResultDTO, error)
	Template() (*bytes.Buffer, error)
}

type LeadImportService struct {
	leadRepo     repositories.LeadRepositoryInterface
	customerRepo repositories.CustomerRepositoryInterface
	reminders    ReminderSyncInterface
	txManager    repositories.TxManagerInterface
	metrics      *metrics.Metrics
	phoneRegion  string
	logger       *zap.Logger
}

func NewLeadImportService(
	leadRepo repositories.LeadRepositoryInterface,
	customerRepo repositories.CustomerRepositoryInterface,
	reminders ReminderSyncInterface,
	txManager repositories.TxManagerInterface,
	m *metrics.Metrics,
	phoneRegion string,
	logger *zap.Logger,
) LeadImportServiceInterface {
	return &LeadImportService{
		leadRepo:     leadRepo,
		customerRepo: customerRepo,
		reminders:    reminders,
		txManager:    txManager,
		metrics:      m,
		phoneRegion:  phoneRegion,
		logger:       logger,
	}
}

// importRow is one parsed spreadsheet row; Row is 1-based, header excluded.
type importRow struct {
	Row  int
	Lead entities.Lead
}

func (s *LeadImportService) ImportExcel(ctx context.Context, r io.Reader) (*dto.ImportResultDTO, error) {
	actor, err := utils.GetUserFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	sheet, err := readFirstSheet(r)
	if err != nil {
		return nil, err
	}
	cols := DetectColumns(sheet.Display, s.phoneRegion)
	if cols.Phone < 0 {
		return nil, apperrors.NewValidationError("could not find a phone column in the file", cols)
	}

	result := &dto.ImportResultDTO{
		Errors:   []dto.ImportRowIssue{},
		Warnings: []dto.ImportRowIssue{},
		Columns:  cols,
	}
	candidates, total := s.parseRows(actor, sheet.Display[1:], sheet.Raw[1:], cols, result)

	imported := make([]entities.Lead, 0, len(candidates))
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		for _, c := range candidates {
			var saved *entities.Lead
			rowErr := s.txManager.RunInSavepoint(ctx, tx, func(sp pgx.Tx) error {
				var err error
				saved, err = s.saveRow(ctx, sp, actor, &c.Lead)
				return err
			})
			if rowErr != nil {
				s.logger.Warn("import row failed", zap.Int("row", c.Row), zap.Error(rowErr))
				result.Errors = append(result.Errors, dto.ImportRowIssue{Row: c.Row, Message: "could not save row"})
				continue
			}
			imported = append(imported, *saved)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("import transaction: %w", err)
	}

	reminders := s.reminders.OnBulkImport(ctx, actor, imported)

	result.Summary = dto.ImportSummary{
		Total:     total,
		Imported:  len(imported),
		Failed:    len(result.Errors),
		Warnings:  len(result.Warnings),
		Reminders: reminders.Created,
	}
	s.metrics.RecordImportRows(result.Summary.Imported, result.Summary.Failed)
	s.logger.Info("lead import finished",
		zap.Uint64("user_id", actor.ID),
		zap.Int("imported", result.Summary.Imported),
		zap.Int("failed", result.Summary.Failed),
		zap.Int("reminders", reminders.Created),
	)
	return result, nil
}

func (s *LeadImportService) saveRow(ctx context.Context, tx pgx.Tx, actor *entities.User, lead *entities.Lead) (*entities.Lead, error) {
	customer, err := s.customerRepo.CreateCustomer(ctx, tx, &entities.Customer{
		ClientID:  lead.ClientID,
		Name:      lead.Name,
		Phone:     lead.Phone,
		Email:     lead.Email,
		Notes:     lead.Notes,
		CreatedBy: &actor.ID,
	})
	if err != nil {
		return nil, err
	}
	lead.CustomerID = &customer.ID
	return s.leadRepo.CreateLead(ctx, tx, lead)
}

// parseRows validates every data row. Rows without a phone go to errors;
// recoverable problems become warnings and the row is still imported.
func (s *LeadImportService) parseRows(actor *entities.User, rows, raw [][]string, cols dto.ColumnMapping, result *dto.ImportResultDTO) ([]importRow, int) {
	var assignee *uint64
	if actor.IsAgent() {
		assignee = &actor.ID
	}

	out := make([]importRow, 0, len(rows))
	total := 0
	for i, row := range rows {
		rowNum := i + 1
		if isBlankRow(row) {
			continue
		}
		total++
		phone := cell(row, cols.Phone)
		if phone == "" {
			result.Errors = append(result.Errors, dto.ImportRowIssue{Row: rowNum, Message: "phone is required"})
			continue
		}
		name := cell(row, cols.Name)
		if name == "" {
			name = phone
			result.Warnings = append(result.Warnings, dto.ImportRowIssue{Row: rowNum, Message: "name is empty, phone used instead"})
		}

		lead := entities.Lead{
			ClientID:   actor.ClientID,
			Name:       name,
			Phone:      utils.NormalizePhone(phone, s.phoneRegion),
			Email:      cell(row, cols.Email),
			Status:     cell(row, cols.Status),
			Source:     cell(row, cols.Source),
			Notes:      cell(row, cols.Notes),
			AssignedTo: assignee,
			CreatedBy:  &actor.ID,
		}
		if lead.Status == "" {
			lead.Status = DefaultLeadStatus
		}
		if lead.Source == "" {
			lead.Source = ImportLeadSource
		}
		if lead.Email != "" && !emailRegex.MatchString(lead.Email) {
			result.Warnings = append(result.Warnings, dto.ImportRowIssue{Row: rowNum, Message: fmt.Sprintf("invalid email %q ignored", lead.Email)})
			lead.Email = ""
		}

		// Date and time cells are read unformatted so serial numbers survive.
		var rawRow []string
		if i < len(raw) {
			rawRow = raw[i]
		}
		rawDate, rawTime := cell(rawRow, cols.CallbackDate), cell(rawRow, cols.CallbackTime)
		if rawDate != "" || rawTime != "" {
			date, okDate := normalizeImportDate(rawDate)
			hhmm, okTime := normalizeImportTime(rawTime)
			if okDate && okTime {
				lead.CallbackDate = &date
				lead.CallbackTime = &hhmm
			} else {
				result.Warnings = append(result.Warnings, dto.ImportRowIssue{
					Row:     rowNum,
					Message: fmt.Sprintf("callback %q %q not understood, skipped", rawDate, rawTime),
				})
			}
		}

		out = append(out, importRow{Row: rowNum, Lead: lead})
	}
	return out, total
}

// sheetRows is the first sheet as displayed, and again with number formats
// stripped so that date and time cells keep their serial values.
type sheetRows struct {
	Display [][]string
	Raw     [][]string
}

func readFirstSheet(r io.Reader) (*sheetRows, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.NewValidationError("could not read the Excel file", nil)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.NewValidationError("the Excel file has no sheets", nil)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperrors.NewValidationError("could not read the first sheet", nil)
	}
	if len(rows) < 2 {
		return nil, apperrors.NewValidationError("the file has no data rows", nil)
	}
	raw, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, apperrors.NewValidationError("could not read the first sheet", nil)
	}
	return &sheetRows{Display: rows, Raw: raw}, nil
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

var (
	dmyRegex    = regexp.MustCompile(`^(\d{1,2})[./-](\d{1,2})[./-](\d{4})$`)
	ymdRegex    = regexp.MustCompile(`^(\d{4})[./-](\d{1,2})[./-](\d{1,2})$`)
	hmsRegex    = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::\d{2})?$`)
	excelEpoch  = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	serialRegex = regexp.MustCompile(`^\d+(\.\d+)?$`)
)

// normalizeImportDate accepts YYYY-MM-DD, DD/MM/YYYY (also with . or -) and
// Excel serial day numbers, returning YYYY-MM-DD.
func normalizeImportDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	var out string
	switch {
	case ymdRegex.MatchString(s):
		m := ymdRegex.FindStringSubmatch(s)
		out = fmt.Sprintf("%s-%02s-%02s", m[1], m[2], m[3])
	case dmyRegex.MatchString(s):
		m := dmyRegex.FindStringSubmatch(s)
		out = fmt.Sprintf("%s-%02s-%02s", m[3], m[2], m[1])
	case serialRegex.MatchString(s):
		days, err := strconv.ParseFloat(s, 64)
		if err != nil || days < 1 || days > 2958465 {
			return "", false
		}
		out = excelEpoch.AddDate(0, 0, int(math.Floor(days))).Format("2006-01-02")
	default:
		return "", false
	}
	out = strings.ReplaceAll(out, " ", "0")
	return out, customvalidator.IsYMD(out)
}

// normalizeImportTime accepts H:MM, HH:MM, HH:MM:SS and Excel day fractions.
func normalizeImportTime(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if m := hmsRegex.FindStringSubmatch(s); m != nil {
		out := fmt.Sprintf("%02s:%s", m[1], m[2])
		out = strings.ReplaceAll(out, " ", "0")
		return out, customvalidator.IsHHMM(out)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 && f < 1 {
		minutes := int(math.Round(f * 24 * 60))
		if minutes >= 24*60 {
			return "", false
		}
		return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60), true
	}
	return "", false
}
