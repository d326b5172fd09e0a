package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/bala2006-m/smart-school-server-sub001/core"
	"github.com/bala2006-m/smart-school-server-sub001/core/attendance"
	"github.com/bala2006-m/smart-school-server-sub001/core/tenant"
)

type attendanceRepository struct{}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository() *attendanceRepository {
	return &attendanceRepository{}
}

// attendanceRow mirrors the attendance table; updated_at is stored as unix
// milliseconds so watermark comparisons behave identically on postgres and
// sqlite.
type attendanceRow struct {
	Username  string   `db:"username"`
	SchoolID  int      `db:"school_id"`
	Date      string   `db:"date"`
	ClassID   null.Int `db:"class_id"`
	FnStatus  string   `db:"fn_status"`
	AnStatus  string   `db:"an_status"`
	UpdatedAt int64    `db:"updated_at"`
	IsDeleted bool     `db:"is_deleted"`
}

func (repo attendanceRepository) fromRow(row attendanceRow) attendance.Record {
	return attendance.Record{
		Username:  row.Username,
		SchoolID:  row.SchoolID,
		Date:      row.Date,
		ClassID:   row.ClassID,
		FnStatus:  row.FnStatus,
		AnStatus:  row.AnStatus,
		UpdatedAt: time.UnixMilli(row.UpdatedAt).UTC(),
		IsDeleted: row.IsDeleted,
	}
}

func (repo attendanceRepository) fromRows(rows []attendanceRow) []attendance.Record {
	records := make([]attendance.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, repo.fromRow(row))
	}
	return records
}

const selectColumns = "username, school_id, date, class_id, fn_status, an_status, updated_at, is_deleted"

func (repo attendanceRepository) PullSince(ctx context.Context, h *tenant.Handle, schoolID int, after time.Time) ([]attendance.Record, time.Time, error) {
	tx, err := h.DB().BeginTxx(ctx, nil)
	if err != nil {
		return nil, time.Time{}, errors.Wrap(err, "starting pull snapshot")
	}
	defer func() { _ = tx.Rollback() }()

	// clock first: a row committed mid-pull can then never be older than the
	// watermark we hand back
	serverTime, err := storeTime(ctx, tx, h.Driver())
	if err != nil {
		return nil, time.Time{}, errors.Wrap(err, "reading store clock")
	}

	var rows []attendanceRow
	q := tx.Rebind(`SELECT ` + selectColumns + ` FROM attendance
		WHERE school_id = ? AND updated_at > ?
		ORDER BY updated_at, username, date`)
	if err = tx.SelectContext(ctx, &rows, q, schoolID, after.UnixMilli()); err != nil {
		return nil, time.Time{}, errors.Wrap(err, "querying attendance window")
	}

	if err = tx.Commit(); err != nil {
		return nil, time.Time{}, errors.Wrap(err, "closing pull snapshot")
	}
	return repo.fromRows(rows), serverTime, nil
}

func (repo attendanceRepository) ApplyBatch(ctx context.Context, h *tenant.Handle, batch []attendance.RecordDelta, strict bool) (int, error) {
	upsert := `INSERT INTO attendance (` + selectColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (username, school_id, date) DO UPDATE SET
			class_id = COALESCE(excluded.class_id, attendance.class_id),
			fn_status = excluded.fn_status,
			an_status = excluded.an_status,
			updated_at = excluded.updated_at,
			is_deleted = excluded.is_deleted`
	if strict {
		upsert += `
		WHERE attendance.updated_at <= excluded.updated_at`
	}

	tx, err := h.DB().BeginTxx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "starting push transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var applied int64
	q := tx.Rebind(upsert)
	for _, d := range batch {
		res, err := tx.ExecContext(ctx, q,
			d.Username, d.SchoolID, d.Date, d.ClassID,
			d.FnStatus, d.AnStatus, d.UpdatedAt.UnixMilli(), d.IsDeleted.Bool)
		if err != nil {
			return 0, errors.Wrapf(err, "upserting %s/%d/%s", d.Username, d.SchoolID, d.Date)
		}
		cnt, err := res.RowsAffected()
		if err != nil {
			return 0, errors.Wrap(err, "counting applied rows")
		}
		applied += cnt
	}

	if err = tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "committing push transaction")
	}
	return int(applied), nil
}

var activeOrderColumns = map[string]bool{
	"username":   true,
	"date":       true,
	"class_id":   true,
	"fn_status":  true,
	"an_status":  true,
	"updated_at": true,
}

func (repo attendanceRepository) ActiveByDate(ctx context.Context, h *tenant.Handle, schoolID int, date string, ordering []core.DBOrdering) ([]attendance.Record, error) {
	orderList := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		if activeOrderColumns[ord.Field] {
			orderList = append(orderList, ord.String())
		}
	}
	if len(orderList) == 0 {
		orderList = append(orderList, "username ASC")
	}

	var rows []attendanceRow
	q := h.DB().Rebind(`SELECT ` + selectColumns + ` FROM attendance
		WHERE school_id = ? AND date = ? AND NOT is_deleted
		ORDER BY ` + strings.Join(orderList, ", "))
	if err := h.DB().SelectContext(ctx, &rows, q, schoolID, date); err != nil {
		return nil, errors.Wrap(err, "querying active attendance")
	}
	return repo.fromRows(rows), nil
}

// storeTime reads the resolved store's authoritative clock.
func storeTime(ctx context.Context, tx *sqlx.Tx, driver string) (time.Time, error) {
	if driver == "sqlite" {
		var s string
		if err := tx.QueryRowxContext(ctx, `SELECT strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`).Scan(&s); err != nil {
			return time.Time{}, err
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, err
		}
		return t.UTC(), nil
	}

	var t time.Time
	if err := tx.QueryRowxContext(ctx, `SELECT now()`).Scan(&t); err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
