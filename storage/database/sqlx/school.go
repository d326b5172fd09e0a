package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/bala2006-m/smart-school-server-sub001/core/school"
	"github.com/bala2006-m/smart-school-server-sub001/core/tenant"
)

type schoolRepository struct{}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository() *schoolRepository {
	return &schoolRepository{}
}

type schoolRow struct {
	ID        int    `db:"id"`
	Name      string `db:"name"`
	Address   string `db:"address"`
	CreatedAt int64  `db:"created_at"`
}

type classRow struct {
	ID        string `db:"id"`
	SchoolID  int    `db:"school_id"`
	Name      string `db:"name"`
	Section   string `db:"section"`
	CreatedAt int64  `db:"created_at"`
}

func fromSchoolRow(row schoolRow) school.School {
	return school.School{
		ID:        row.ID,
		Name:      row.Name,
		Address:   row.Address,
		CreatedAt: time.UnixMilli(row.CreatedAt).UTC(),
	}
}

func fromClassRow(row classRow) school.Class {
	return school.Class{
		ID:        row.ID,
		SchoolID:  row.SchoolID,
		Name:      row.Name,
		Section:   row.Section,
		CreatedAt: time.UnixMilli(row.CreatedAt).UTC(),
	}
}

// trapNoRowsErr maps "no rows" to school.ErrNotFound
func trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return school.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo schoolRepository) CreateSchool(ctx context.Context, h *tenant.Handle, sch school.School) (school.School, error) {
	q := h.DB().Rebind(`INSERT INTO schools (id, name, address, created_at) VALUES (?, ?, ?, ?)`)
	if _, err := h.DB().ExecContext(ctx, q, sch.ID, sch.Name, sch.Address, sch.CreatedAt.UnixMilli()); err != nil {
		return school.School{}, errors.Wrap(err, "inserting school")
	}
	return sch, nil
}

func (repo schoolRepository) QuerySchools(ctx context.Context, h *tenant.Handle) ([]school.School, error) {
	var rows []schoolRow
	q := `SELECT id, name, address, created_at FROM schools ORDER BY id`
	if err := h.DB().SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying schools")
	}
	schools := make([]school.School, 0, len(rows))
	for _, row := range rows {
		schools = append(schools, fromSchoolRow(row))
	}
	return schools, nil
}

func (repo schoolRepository) GetSchoolByID(ctx context.Context, h *tenant.Handle, id int) (school.School, error) {
	var row schoolRow
	q := h.DB().Rebind(`SELECT id, name, address, created_at FROM schools WHERE id = ?`)
	if err := h.DB().GetContext(ctx, &row, q, id); err != nil {
		return school.School{}, trapNoRowsErr(err, "finding school by ID")
	}
	return fromSchoolRow(row), nil
}

func (repo schoolRepository) CreateClass(ctx context.Context, h *tenant.Handle, cls school.Class) (school.Class, error) {
	q := h.DB().Rebind(`INSERT INTO classes (id, school_id, name, section, created_at) VALUES (?, ?, ?, ?, ?)`)
	if _, err := h.DB().ExecContext(ctx, q, cls.ID, cls.SchoolID, cls.Name, cls.Section, cls.CreatedAt.UnixMilli()); err != nil {
		return school.Class{}, errors.Wrap(err, "inserting class")
	}
	return cls, nil
}

func (repo schoolRepository) QueryClasses(ctx context.Context, h *tenant.Handle, schoolID int) ([]school.Class, error) {
	var rows []classRow
	q := h.DB().Rebind(`SELECT id, school_id, name, section, created_at FROM classes WHERE school_id = ? ORDER BY name, section`)
	if err := h.DB().SelectContext(ctx, &rows, q, schoolID); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	classes := make([]school.Class, 0, len(rows))
	for _, row := range rows {
		classes = append(classes, fromClassRow(row))
	}
	return classes, nil
}

func (repo schoolRepository) DeleteClass(ctx context.Context, h *tenant.Handle, schoolID int, id string) error {
	q := h.DB().Rebind(`DELETE FROM classes WHERE school_id = ? AND id = ?`)
	res, err := h.DB().ExecContext(ctx, q, schoolID, id)
	if err != nil {
		return errors.Wrap(err, "deleting class")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return school.ErrNotFound
	}
	return nil
}

func (repo schoolRepository) CreateHoliday(ctx context.Context, h *tenant.Handle, hol school.Holiday) (school.Holiday, error) {
	q := h.DB().Rebind(`INSERT INTO holidays (id, school_id, date, reason) VALUES (?, ?, ?, ?)`)
	if _, err := h.DB().ExecContext(ctx, q, hol.ID, hol.SchoolID, hol.Date, hol.Reason); err != nil {
		return school.Holiday{}, errors.Wrap(err, "inserting holiday")
	}
	return hol, nil
}

func (repo schoolRepository) QueryHolidays(ctx context.Context, h *tenant.Handle, schoolID int) ([]school.Holiday, error) {
	var holidays []school.Holiday
	q := h.DB().Rebind(`SELECT id, school_id, date, reason FROM holidays WHERE school_id = ? ORDER BY date`)
	if err := h.DB().SelectContext(ctx, &holidays, q, schoolID); err != nil {
		return nil, errors.Wrap(err, "querying holidays")
	}
	return holidays, nil
}

func (repo schoolRepository) DeleteHoliday(ctx context.Context, h *tenant.Handle, schoolID int, id string) error {
	q := h.DB().Rebind(`DELETE FROM holidays WHERE school_id = ? AND id = ?`)
	res, err := h.DB().ExecContext(ctx, q, schoolID, id)
	if err != nil {
		return errors.Wrap(err, "deleting holiday")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return school.ErrNotFound
	}
	return nil
}
