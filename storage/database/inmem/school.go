package inmemdb

import (
	"context"
	"sort"

	"github.com/bala2006-m/smart-school-server-sub001/core/school"
	"github.com/bala2006-m/smart-school-server-sub001/core/tenant"
)

type schoolRepository struct {
	db *schoolTable
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) *schoolRepository {
	return &schoolRepository{db: db.schools}
}

func (repo *schoolRepository) CreateSchool(_ context.Context, _ *tenant.Handle, sch school.School) (school.School, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.schools[sch.ID] = &sch
	return sch, nil
}

func (repo *schoolRepository) QuerySchools(_ context.Context, _ *tenant.Handle) ([]school.School, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	schools := make([]school.School, 0, len(repo.db.schools))
	for _, sch := range repo.db.schools {
		schools = append(schools, *sch)
	}
	sort.Slice(schools, func(i, j int) bool { return schools[i].ID < schools[j].ID })
	return schools, nil
}

func (repo *schoolRepository) GetSchoolByID(_ context.Context, _ *tenant.Handle, id int) (school.School, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if sch, ok := repo.db.schools[id]; ok {
		return *sch, nil
	}
	return school.School{}, school.ErrNotFound
}

func (repo *schoolRepository) CreateClass(_ context.Context, _ *tenant.Handle, cls school.Class) (school.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.classes[cls.ID] = &cls
	return cls, nil
}

func (repo *schoolRepository) QueryClasses(_ context.Context, _ *tenant.Handle, schoolID int) ([]school.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var classes []school.Class
	for _, cls := range repo.db.classes {
		if cls.SchoolID == schoolID {
			classes = append(classes, *cls)
		}
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].Name < classes[j].Name })
	return classes, nil
}

func (repo *schoolRepository) DeleteClass(_ context.Context, _ *tenant.Handle, schoolID int, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if cls, ok := repo.db.classes[id]; ok && cls.SchoolID == schoolID {
		delete(repo.db.classes, id)
		return nil
	}
	return school.ErrNotFound
}

func (repo *schoolRepository) CreateHoliday(_ context.Context, _ *tenant.Handle, hol school.Holiday) (school.Holiday, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.holidays[hol.ID] = &hol
	return hol, nil
}

func (repo *schoolRepository) QueryHolidays(_ context.Context, _ *tenant.Handle, schoolID int) ([]school.Holiday, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var holidays []school.Holiday
	for _, hol := range repo.db.holidays {
		if hol.SchoolID == schoolID {
			holidays = append(holidays, *hol)
		}
	}
	sort.Slice(holidays, func(i, j int) bool { return holidays[i].Date < holidays[j].Date })
	return holidays, nil
}

func (repo *schoolRepository) DeleteHoliday(_ context.Context, _ *tenant.Handle, schoolID int, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if hol, ok := repo.db.holidays[id]; ok && hol.SchoolID == schoolID {
		delete(repo.db.holidays, id)
		return nil
	}
	return school.ErrNotFound
}
