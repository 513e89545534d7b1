package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"crm-system/internal/entities"
	apperrors "crm-system/pkg/errors"
)

const attendanceSelectFields = "a.id, a.user_id, a.client_id, a.date, a.clock_in, a.clock_out, a.total_hours::float8, a.notes, a.created_at"

type AttendanceRepositoryInterface interface {
	LockUser(ctx context.Context, tx pgx.Tx, userID uint64) error
	FindLatestOpen(ctx context.Context, tx pgx.Tx, userID uint64) (*entities.AttendanceRecord, error)
	Create(ctx context.Context, tx pgx.Tx, record *entities.AttendanceRecord, day string) (*entities.AttendanceRecord, error)
	Close(ctx context.Context, tx pgx.Tx, id uint64, clockOut time.Time, totalHours float64, notes string) (*entities.AttendanceRecord, error)
	History(ctx context.Context, userID uint64, from, to string) ([]entities.AttendanceRecord, error)
}

type AttendanceRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewAttendanceRepository(storage *pgxpool.Pool, logger *zap.Logger) AttendanceRepositoryInterface {
	return &AttendanceRepository{storage: storage, logger: logger}
}

func scanAttendance(row pgx.Row) (*entities.AttendanceRecord, error) {
	var a entities.AttendanceRecord
	err := row.Scan(&a.ID, &a.UserID, &a.ClientID, &a.Date, &a.ClockIn, &a.ClockOut, &a.TotalHours, &a.Notes, &a.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// LockUser serializes attendance writes of one user until tx ends.
func (r *AttendanceRepository) LockUser(ctx context.Context, tx pgx.Tx, userID uint64) error {
	hi, lo := userLockKey(userID)
	_, err := pick(r.storage, tx).Exec(ctx, "SELECT pg_advisory_xact_lock($1::int4, $2::int4)", hi, lo)
	return err
}

// userLockKey splits the full 64-bit id over the two-key advisory lock form.
func userLockKey(userID uint64) (int32, int32) {
	return int32(userID >> 32), int32(uint32(userID))
}

func (r *AttendanceRepository) FindLatestOpen(ctx context.Context, tx pgx.Tx, userID uint64) (*entities.AttendanceRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance a
		WHERE a.user_id = $1 AND a.clock_out IS NULL
		ORDER BY a.clock_in DESC LIMIT 1`, attendanceSelectFields)
	return scanAttendance(pick(r.storage, tx).QueryRow(ctx, query, userID))
}

func (r *AttendanceRepository) Create(ctx context.Context, tx pgx.Tx, record *entities.AttendanceRecord, day string) (*entities.AttendanceRecord, error) {
	query := fmt.Sprintf(`
		INSERT INTO attendance AS a (user_id, client_id, date, clock_in, notes)
		VALUES ($1, $2, $3::date, $4, $5)
		RETURNING %s`, attendanceSelectFields)
	created, err := scanAttendance(pick(r.storage, tx).QueryRow(ctx, query,
		record.UserID, record.ClientID, day, record.ClockIn, record.Notes))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.NewConflictError("already clocked in", apperrors.ErrAlreadyClockedIn)
		}
		return nil, fmt.Errorf("insert attendance: %w", err)
	}
	return created, nil
}

func (r *AttendanceRepository) Close(ctx context.Context, tx pgx.Tx, id uint64, clockOut time.Time, totalHours float64, notes string) (*entities.AttendanceRecord, error) {
	query := fmt.Sprintf(`
		UPDATE attendance AS a SET clock_out = $1, total_hours = $2,
			notes = CASE WHEN $3 = '' THEN a.notes ELSE $3 END
		WHERE a.id = $4 AND a.clock_out IS NULL
		RETURNING %s`, attendanceSelectFields)
	rec, err := scanAttendance(pick(r.storage, tx).QueryRow(ctx, query, clockOut, totalHours, notes, id))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNoActiveSession
		}
		return nil, err
	}
	return rec, nil
}

func (r *AttendanceRepository) History(ctx context.Context, userID uint64, from, to string) ([]entities.AttendanceRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance a
		WHERE a.user_id = $1 AND a.date BETWEEN $2::date AND $3::date
		ORDER BY a.date DESC, a.clock_in DESC`, attendanceSelectFields)
	rows, err := r.storage.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	records := make([]entities.AttendanceRecord, 0)
	for rows.Next() {
		rec, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}
