package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"crm-system/internal/dto"
	"crm-system/internal/entities"
	"crm-system/internal/repositories"
	apperrors "crm-system/pkg/errors"
	"crm-system/pkg/metrics"
	"crm-system/pkg/utils"
)

const (
	dayLayout          = "2006-01-02"
	defaultHistoryDays = 30
	staleSessionNote   = "closed automatically at the end of the day"

	ReportFormatXLSX = "xlsx"
	ReportFormatPDF  = "pdf"
)

type AttendanceReport struct {
	Content     *bytes.Buffer
	ContentType string
	FileName    string
}

type AttendanceServiceInterface interface {
	ClockIn(ctx context.Context, notes string) (*entities.AttendanceRecord, error)
	ClockOut(ctx context.Context, notes string) (*entities.AttendanceRecord, error)
	Status(ctx context.Context) (*entities.AttendanceRecord, error)
	History(ctx context.Context, q dto.AttendanceQuery) ([]entities.AttendanceRecord, error)
	Report(ctx context.Context, q dto.AttendanceQuery) (*AttendanceReport, error)
}

type AttendanceService struct {
	repo      repositories.AttendanceRepositoryInterface
	userRepo  repositories.UserRepositoryInterface
	txManager repositories.TxManagerInterface
	metrics   *metrics.Metrics
	now       func() time.Time
	logger    *zap.Logger
}

func NewAttendanceService(
	repo repositories.AttendanceRepositoryInterface,
	userRepo repositories.UserRepositoryInterface,
	txManager repositories.TxManagerInterface,
	m *metrics.Metrics,
	now func() time.Time,
	logger *zap.Logger,
) AttendanceServiceInterface {
	if now == nil {
		now = time.Now
	}
	return &AttendanceService{
		repo:      repo,
		userRepo:  userRepo,
		txManager: txManager,
		metrics:   m,
		now:       now,
		logger:    logger,
	}
}

// ClockIn opens today's session. A second clock-in while today's session is
// still open is a conflict and writes nothing. A session left open on an
// earlier day is closed at the end of that day first, so a user never holds
// two open sessions.
func (s *AttendanceService) ClockIn(ctx context.Context, notes string) (*entities.AttendanceRecord, error) {
	actor, err := utils.GetUserFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	day := now.Format(dayLayout)

	var record *entities.AttendanceRecord
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		if err := s.repo.LockUser(ctx, tx, actor.ID); err != nil {
			return err
		}
		open, err := s.repo.FindLatestOpen(ctx, tx, actor.ID)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		if open != nil {
			if open.Date.Format(dayLayout) >= day {
				return apperrors.NewConflictError("already clocked in", apperrors.ErrAlreadyClockedIn)
			}
			if err := s.closeStale(ctx, tx, open, now.Location()); err != nil {
				return err
			}
		}
		record, err = s.repo.Create(ctx, tx, &entities.AttendanceRecord{
			UserID:   actor.ID,
			ClientID: actor.ClientID,
			ClockIn:  now,
			Notes:    notes,
		}, day)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordAttendance("clock_in")
	s.logger.Info("clock-in", zap.Uint64("user_id", actor.ID), zap.String("day", day))
	return record, nil
}

// closeStale ends a forgotten session at midnight after its day.
func (s *AttendanceService) closeStale(ctx context.Context, tx pgx.Tx, open *entities.AttendanceRecord, loc *time.Location) error {
	y, m, d := open.Date.Date()
	end := time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	if end.Before(open.ClockIn) {
		end = open.ClockIn
	}
	if _, err := s.repo.Close(ctx, tx, open.ID, end, WorkedHours(open.ClockIn, end), staleSessionNote); err != nil {
		return fmt.Errorf("close stale session: %w", err)
	}
	s.metrics.RecordAttendance("auto_close")
	s.logger.Warn("closed session left open on an earlier day",
		zap.Uint64("user_id", open.UserID), zap.Uint64("attendance_id", open.ID),
		zap.String("day", open.Date.Format(dayLayout)))
	return nil
}

func (s *AttendanceService) ClockOut(ctx context.Context, notes string) (*entities.AttendanceRecord, error) {
	actor, err := utils.GetUserFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()

	var record *entities.AttendanceRecord
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		if err := s.repo.LockUser(ctx, tx, actor.ID); err != nil {
			return err
		}
		open, err := s.repo.FindLatestOpen(ctx, tx, actor.ID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.NewConflictError("no active session", apperrors.ErrNoActiveSession)
			}
			return err
		}
		record, err = s.repo.Close(ctx, tx, open.ID, now, WorkedHours(open.ClockIn, now), notes)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordAttendance("clock_out")
	s.logger.Info("clock-out", zap.Uint64("user_id", actor.ID), zap.Float64("hours", utils.SafeDeref(record.TotalHours)))
	return record, nil
}

// Status returns the open session, or nil when the user is clocked out.
func (s *AttendanceService) Status(ctx context.Context) (*entities.AttendanceRecord, error) {
	actor, err := utils.GetUserFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	open, err := s.repo.FindLatestOpen(ctx, nil, actor.ID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	return open, err
}

func (s *AttendanceService) History(ctx context.Context, q dto.AttendanceQuery) ([]entities.AttendanceRecord, error) {
	actor, err := utils.GetUserFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	userID, err := s.resolveSubject(ctx, actor, q.UserID)
	if err != nil {
		return nil, err
	}
	from, to := s.period(q)
	return s.repo.History(ctx, userID, from, to)
}

// resolveSubject decides whose attendance the actor may read.
func (s *AttendanceService) resolveSubject(ctx context.Context, actor *entities.User, requested *uint64) (uint64, error) {
	if requested == nil || *requested == actor.ID {
		return actor.ID, nil
	}
	if actor.IsAgent() {
		return 0, apperrors.ErrForbidden
	}
	target, err := s.userRepo.FindUser(ctx, *requested)
	if err != nil {
		return 0, err
	}
	if target.ClientID != actor.ClientID {
		return 0, apperrors.ErrNotFound
	}
	if actor.IsManager() && (target.Role != entities.RoleAgent || utils.SafeDeref(target.ManagerID) != actor.ID) {
		return 0, apperrors.ErrForbidden
	}
	return target.ID, nil
}

func (s *AttendanceService) period(q dto.AttendanceQuery) (string, string) {
	to := q.To
	if to == "" {
		to = s.now().Format(dayLayout)
	}
	from := q.From
	if from == "" {
		end, err := time.Parse(dayLayout, to)
		if err != nil {
			end = s.now()
		}
		from = end.AddDate(0, 0, -defaultHistoryDays).Format(dayLayout)
	}
	return from, to
}

func (s *AttendanceService) Report(ctx context.Context, q dto.AttendanceQuery) (*AttendanceReport, error) {
	records, err := s.History(ctx, q)
	if err != nil {
		return nil, err
	}
	from, to := s.period(q)
	title := fmt.Sprintf("Attendance %s to %s", from, to)

	switch q.Format {
	case ReportFormatPDF:
		buf, err := attendancePDF(title, records)
		if err != nil {
			return nil, err
		}
		return &AttendanceReport{Content: buf, ContentType: "application/pdf", FileName: fmt.Sprintf("attendance_%s_%s.pdf", from, to)}, nil
	default:
		buf, err := attendanceXLSX(records)
		if err != nil {
			return nil, err
		}
		return &AttendanceReport{
			Content:     buf,
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			FileName:    fmt.Sprintf("attendance_%s_%s.xlsx", from, to),
		}, nil
	}
}

// WorkedHours is the session length in hours rounded to two decimals.
func WorkedHours(in, out time.Time) float64 {
	return math.Round(out.Sub(in).Hours()*100) / 100
}

func attendanceRow(r entities.AttendanceRecord) []string {
	out, hours := "", ""
	if r.ClockOut != nil {
		out = r.ClockOut.Format("15:04")
	}
	if r.TotalHours != nil {
		hours = fmt.Sprintf("%.2f", *r.TotalHours)
	}
	return []string{r.Date.Format(dayLayout), r.ClockIn.Format("15:04"), out, hours, r.Notes}
}

func totalHours(records []entities.AttendanceRecord) float64 {
	var sum float64
	for _, r := range records {
		sum += utils.SafeDeref(r.TotalHours)
	}
	return math.Round(sum*100) / 100
}

var attendanceHeaders = []string{"Date", "Clock in", "Clock out", "Hours", "Notes"}

func attendanceXLSX(records []entities.AttendanceRecord) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Sheet1"

	header := make([]interface{}, len(attendanceHeaders))
	for i, h := range attendanceHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheet, "A1", "E1", style); err != nil {
		return nil, err
	}

	for i, r := range records {
		cells := attendanceRow(r)
		row := make([]interface{}, len(cells))
		for j, c := range cells {
			row[j] = c
		}
		if r.TotalHours != nil {
			row[3] = *r.TotalHours
		}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return nil, err
		}
	}
	totalRow := []interface{}{"Total", "", "", totalHours(records)}
	if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", len(records)+2), &totalRow); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheet, "A", "E", 16); err != nil {
		return nil, err
	}
	return f.WriteToBuffer()
}

func attendancePDF(title string, records []entities.AttendanceRecord) (*bytes.Buffer, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")

	widths := []float64{30, 25, 25, 20, 80}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range attendanceHeaders {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	// Helvetica only covers cp1252; other scripts come out as question marks.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Helvetica", "", 10)
	for _, r := range records {
		for i, c := range attendanceRow(r) {
			pdf.CellFormat(widths[i], 7, tr(c), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(widths[0]+widths[1]+widths[2], 8, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[3], 8, fmt.Sprintf("%.2f", totalHours(records)), "1", 0, "L", false, 0, "")
	pdf.CellFormat(widths[4], 8, "", "1", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render attendance pdf: %w", err)
	}
	return &buf, nil
}
