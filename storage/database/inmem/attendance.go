package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/bala2006-m/smart-school-server-sub001/core"
	"github.com/bala2006-m/smart-school-server-sub001/core/attendance"
	"github.com/bala2006-m/smart-school-server-sub001/core/tenant"
)

type attendanceRepository struct {
	db *attendanceTable

	// NowFunc is the store clock; mockable
	NowFunc func() time.Time
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) *attendanceRepository {
	return &attendanceRepository{db: db.attendance, NowFunc: time.Now}
}

func (repo *attendanceRepository) query(schoolID int) []attendance.Record {
	records := make([]attendance.Record, 0, len(repo.db.table))
	for _, rec := range repo.db.table {
		if rec.SchoolID == schoolID {
			records = append(records, *rec)
		}
	}
	return records
}

func (repo *attendanceRepository) PullSince(_ context.Context, _ *tenant.Handle, schoolID int, after time.Time) ([]attendance.Record, time.Time, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	serverTime := repo.NowFunc().UTC()

	var records []attendance.Record
	for _, rec := range repo.query(schoolID) {
		if rec.UpdatedAt.After(after) {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].UpdatedAt.Equal(records[j].UpdatedAt) {
			return records[i].UpdatedAt.Before(records[j].UpdatedAt)
		}
		if records[i].Username != records[j].Username {
			return records[i].Username < records[j].Username
		}
		return records[i].Date < records[j].Date
	})
	return records, serverTime, nil
}

func (repo *attendanceRepository) ApplyBatch(_ context.Context, _ *tenant.Handle, batch []attendance.RecordDelta, strict bool) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var applied int
	for _, d := range batch {
		key := attendance.Key{Username: d.Username, SchoolID: d.SchoolID, Date: d.Date}
		rec, ok := repo.db.table[key]
		if !ok {
			rec = &attendance.Record{Username: d.Username, SchoolID: d.SchoolID, Date: d.Date}
			repo.db.table[key] = rec
		} else if strict && rec.UpdatedAt.After(d.UpdatedAt) {
			continue
		}
		if d.ClassID.Valid {
			rec.ClassID = d.ClassID
		}
		rec.FnStatus = d.FnStatus
		rec.AnStatus = d.AnStatus
		rec.UpdatedAt = d.UpdatedAt.UTC()
		rec.IsDeleted = d.IsDeleted.Bool
		applied++
	}
	return applied, nil
}

func (repo *attendanceRepository) ActiveByDate(_ context.Context, _ *tenant.Handle, schoolID int, date string, ordering []core.DBOrdering) ([]attendance.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var records []attendance.Record
	for _, rec := range repo.query(schoolID) {
		if rec.Date == date && !rec.IsDeleted {
			records = append(records, rec)
		}
	}
	// ordering hints are only honored by the SQL backends
	sort.Slice(records, func(i, j int) bool { return records[i].Username < records[j].Username })
	return records, nil
}
