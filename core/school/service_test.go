package school_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/bala2006-m/smart-school-server-sub001/core/school"
	"github.com/bala2006-m/smart-school-server-sub001/core/tenant"
	inmemdb "github.com/bala2006-m/smart-school-server-sub001/storage/database/inmem"
)

type stubResolver struct {
	h   *tenant.Handle
	err error
}

func (r stubResolver) Resolve(ctx context.Context, tc tenant.Context) (*tenant.Handle, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.h, nil
}

func (r stubResolver) Cloud(ctx context.Context) (*tenant.Handle, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.h, nil
}

func newTestService(t *testing.T) *school.Service {
	t.Helper()
	db := inmemdb.NewDB()
	return school.NewService(stubResolver{h: &tenant.Handle{}}, inmemdb.NewSchoolRepository(db))
}

func TestServiceCreateSchool(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	sch, err := svc.CreateSchool(ctx, school.NewSchool{ID: 1, Name: "Central"})
	if err != nil {
		t.Fatalf("CreateSchool() failed: %v", err)
	}
	if sch.ID != 1 || sch.CreatedAt.IsZero() {
		t.Errorf("school = %+v; want ID 1 with a creation time", sch)
	}

	if _, err = svc.CreateSchool(ctx, school.NewSchool{ID: 1, Name: "Central Again"}); errors.Cause(err) != school.ErrSchoolExists {
		t.Errorf("err = %v; want ErrSchoolExists", err)
	}

	if _, err = svc.GetSchool(ctx, 9); errors.Cause(err) != school.ErrNotFound {
		t.Errorf("err = %v; want ErrNotFound", err)
	}
}

func TestServiceClasses(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	tc := tenant.Context{SchoolID: 1, DeviceID: "dev-a"}

	cls, err := svc.CreateClass(ctx, tc, school.NewClass{Name: "Grade 5", Section: "B"})
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	if cls.ID == "" || cls.SchoolID != 1 {
		t.Errorf("class = %+v; want a generated ID bound to school 1", cls)
	}

	// tenant scoping: another school sees nothing
	other := tenant.Context{SchoolID: 2, DeviceID: "dev-b"}
	classes, err := svc.QueryClasses(ctx, other)
	if err != nil {
		t.Fatalf("QueryClasses() failed: %v", err)
	}
	if len(classes) != 0 {
		t.Errorf("classes = %+v; want none for school 2", classes)
	}

	if err = svc.DeleteClass(ctx, other, cls.ID); errors.Cause(err) != school.ErrNotFound {
		t.Errorf("cross-school delete err = %v; want ErrNotFound", err)
	}
	if err = svc.DeleteClass(ctx, tc, cls.ID); err != nil {
		t.Errorf("DeleteClass() failed: %v", err)
	}
}

func TestServiceHolidays(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	tc := tenant.Context{SchoolID: 1, DeviceID: "dev-a"}

	hol, err := svc.CreateHoliday(ctx, tc, school.NewHoliday{Date: "2024-01-26", Reason: "Republic Day"})
	if err != nil {
		t.Fatalf("CreateHoliday() failed: %v", err)
	}

	holidays, err := svc.QueryHolidays(ctx, tc)
	if err != nil {
		t.Fatalf("QueryHolidays() failed: %v", err)
	}
	if len(holidays) != 1 || holidays[0].ID != hol.ID {
		t.Errorf("holidays = %+v; want the created one", holidays)
	}

	if err = svc.DeleteHoliday(ctx, tc, hol.ID); err != nil {
		t.Errorf("DeleteHoliday() failed: %v", err)
	}
}

func TestServiceResolverFailures(t *testing.T) {
	db := inmemdb.NewDB()
	resolver := stubResolver{err: errors.Wrapf(tenant.ErrUnknownTenant, "school %d", 9)}
	svc := school.NewService(resolver, inmemdb.NewSchoolRepository(db))
	ctx := context.Background()

	if _, err := svc.QueryClasses(ctx, tenant.Context{SchoolID: 9}); errors.Cause(err) != tenant.ErrUnknownTenant {
		t.Errorf("err = %v; want ErrUnknownTenant", err)
	}
}
