package attendance_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/bala2006-m/smart-school-server-sub001/core"
	"github.com/bala2006-m/smart-school-server-sub001/core/attendance"
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

// failingRepo wraps a Repository and fails every write.
type failingRepo struct {
	attendance.Repository
}

func (failingRepo) ApplyBatch(ctx context.Context, h *tenant.Handle, batch []attendance.RecordDelta, strict bool) (int, error) {
	return 0, errors.New("disk full")
}

func newValidator(t *testing.T) (*validator.Validate, ut.Translator) {
	t.Helper()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)
	return validate, translator
}

func newTestService(t *testing.T, strict bool) (*attendance.Service, *inmemdb.DB) {
	t.Helper()
	db := inmemdb.NewDB()
	validate, translator := newValidator(t)
	conf := &core.Config{Sync: core.SyncConfig{StrictConflict: strict}}
	svc := attendance.NewService(stubResolver{h: &tenant.Handle{}}, inmemdb.NewAttendanceRepository(db), validate, translator, conf)
	return svc, db
}

func delta(uname string, school int, date, fn, an string, upd time.Time) attendance.RecordDelta {
	return attendance.RecordDelta{
		Username:  uname,
		SchoolID:  school,
		Date:      date,
		FnStatus:  fn,
		AnStatus:  an,
		UpdatedAt: upd,
	}
}

func mustPush(t *testing.T, svc *attendance.Service, tc tenant.Context, items attendance.Batch) int {
	t.Helper()
	applied, err := svc.Push(context.Background(), tc, items)
	if err != nil {
		t.Fatalf("Push() failed: %v", err)
	}
	return applied
}

func mustPull(t *testing.T, svc *attendance.Service, tc tenant.Context, lastSync time.Time) attendance.PullResult {
	t.Helper()
	res, err := svc.Pull(context.Background(), tc, lastSync)
	if err != nil {
		t.Fatalf("Pull() failed: %v", err)
	}
	return res
}

// Pushing the same batch twice produces the same final state as pushing once.
func TestServicePush_idempotent(t *testing.T) {
	svc, _ := newTestService(t, false)
	tc := tenant.Context{SchoolID: 1, DeviceID: "dev-a"}
	upd := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	batch := attendance.Batch{
		delta("u1", 1, "2024-01-10", "P", "P", upd),
		delta("u2", 1, "2024-01-10", "A", "L", upd.Add(time.Minute)),
	}

	if applied := mustPush(t, svc, tc, batch); applied != 2 {
		t.Errorf("applied = %d; want 2", applied)
	}
	first := mustPull(t, svc, tc, time.Time{}).Records

	mustPush(t, svc, tc, batch)
	second := mustPull(t, svc, tc, time.Time{}).Records

	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("record counts = %d, %d; want 2, 2", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("record %d diverged after re-push: %+v != %+v", i, first[i], second[i])
		}
	}
}

// A pull returns exactly the records with updated_at strictly after the
// watermark.
func TestServicePull_watermarkWindow(t *testing.T) {
	svc, _ := newTestService(t, false)
	tc := tenant.Context{SchoolID: 1, DeviceID: "dev-a"}
	base := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	mustPush(t, svc, tc, attendance.Batch{
		delta("u1", 1, "2024-01-10", "P", "P", base),
		delta("u2", 1, "2024-01-10", "P", "A", base.Add(time.Hour)),
		delta("u3", 1, "2024-01-10", "L", "P", base.Add(2*time.Hour)),
	})

	got := mustPull(t, svc, tc, base.Add(time.Hour)).Records
	if len(got) != 1 || got[0].Username != "u3" {
		t.Fatalf("window = %+v; want exactly u3", got)
	}

	// a record at exactly the watermark is excluded
	got = mustPull(t, svc, tc, base.Add(2*time.Hour)).Records
	if len(got) != 0 {
		t.Errorf("window = %+v; want empty", got)
	}
}

// Repeated pulls adopting each returned server time converge to empty windows.
func TestServicePull_convergesToEmpty(t *testing.T) {
	db := inmemdb.NewDB()
	repo := inmemdb.NewAttendanceRepository(db)
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	repo.NowFunc = func() time.Time { return now }

	validate, translator := newValidator(t)
	svc := attendance.NewService(stubResolver{h: &tenant.Handle{}}, repo, validate, translator, &core.Config{})
	tc := tenant.Context{SchoolID: 1, DeviceID: "dev-a"}

	mustPush(t, svc, tc, attendance.Batch{
		delta("u1", 1, "2024-01-10", "P", "P", now.Add(-3*time.Hour)),
	})

	res := mustPull(t, svc, tc, time.Time{})
	if len(res.Records) != 1 {
		t.Fatalf("first pull returned %d records; want 1", len(res.Records))
	}
	for i := 0; i < 3; i++ {
		res = mustPull(t, svc, tc, res.ServerTime)
		if len(res.Records) != 0 {
			t.Fatalf("pull %d returned %+v; want empty", i+2, res.Records)
		}
	}
}

// A tombstone push stays visible to pulls so replicas learn of the deletion.
func TestServicePush_tombstoneVisibleToPull(t *testing.T) {
	svc, _ := newTestService(t, false)
	tc := tenant.Context{SchoolID: 1, DeviceID: "dev-a"}
	base := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	mustPush(t, svc, tc, attendance.Batch{delta("u1", 1, "2024-01-10", "P", "P", base)})

	del := delta("u1", 1, "2024-01-10", "P", "P", base.Add(time.Hour))
	del.IsDeleted = null.BoolFrom(true)
	mustPush(t, svc, tc, attendance.Batch{del})

	got := mustPull(t, svc, tc, base).Records
	if len(got) != 1 {
		t.Fatalf("pull returned %d records; want the tombstone", len(got))
	}
	if !got[0].IsDeleted {
		t.Error("tombstoned record pulled with is_deleted=false")
	}
}

// One invalid item rejects the whole batch; nothing is written.
func TestServicePush_invalidItemRejectsBatch(t *testing.T) {
	svc, _ := newTestService(t, false)
	tc := tenant.Context{SchoolID: 1, DeviceID: "dev-a"}
	upd := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	_, err := svc.Push(context.Background(), tc, attendance.Batch{
		delta("u1", 1, "2024-01-10", "P", "P", upd),
		delta("u2", 1, "2024-01-10", "X", "P", upd), // invalid status
	})
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	if !ok {
		t.Fatalf("err = %v; want a ValidationError", err)
	}
	if len(vErr.Fields) != 1 || vErr.Fields[0].Field != "items[1].fn_status" {
		t.Errorf("fields = %+v; want items[1].fn_status", vErr.Fields)
	}

	if got := mustPull(t, svc, tc, time.Time{}).Records; len(got) != 0 {
		t.Errorf("store state = %+v; want untouched", got)
	}
}

func TestServicePush_emptyBatch(t *testing.T) {
	svc, _ := newTestService(t, false)
	tc := tenant.Context{SchoolID: 1, DeviceID: "dev-a"}

	applied, err := svc.Push(context.Background(), tc, nil)
	if err != nil {
		t.Fatalf("Push(nil) failed: %v", err)
	}
	if applied != 0 {
		t.Errorf("applied = %d; want 0", applied)
	}
}

// A batch may only mutate the school it was resolved for.
func TestServicePush_schoolMismatch(t *testing.T) {
	svc, _ := newTestService(t, false)
	tc := tenant.Context{SchoolID: 1, DeviceID: "dev-a"}
	upd := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	_, err := svc.Push(context.Background(), tc, attendance.Batch{
		delta("u1", 2, "2024-01-10", "P", "P", upd),
	})
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	if !ok {
		t.Fatalf("err = %v; want a ValidationError", err)
	}
	if len(vErr.Fields) != 1 || vErr.Fields[0].Field != "items[0].school_id" {
		t.Errorf("fields = %+v; want items[0].school_id", vErr.Fields)
	}

	if got := mustPull(t, svc, tc, time.Time{}).Records; len(got) != 0 {
		t.Errorf("store state = %+v; want untouched", got)
	}
}

func TestServicePush_writeFailure(t *testing.T) {
	db := inmemdb.NewDB()
	validate, translator := newValidator(t)
	repo := failingRepo{Repository: inmemdb.NewAttendanceRepository(db)}
	svc := attendance.NewService(stubResolver{h: &tenant.Handle{}}, repo, validate, translator, &core.Config{})
	tc := tenant.Context{SchoolID: 1, DeviceID: "dev-a"}
	upd := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	_, err := svc.Push(context.Background(), tc, attendance.Batch{
		delta("u1", 1, "2024-01-10", "P", "P", upd),
	})
	if errors.Cause(err) != attendance.ErrWriteFailed {
		t.Errorf("err = %v; want ErrWriteFailed", err)
	}
}

func TestServicePush_unknownTenant(t *testing.T) {
	validate, translator := newValidator(t)
	resolver := stubResolver{err: errors.Wrapf(tenant.ErrUnknownTenant, "school %d", 9)}
	svc := attendance.NewService(resolver, inmemdb.NewAttendanceRepository(inmemdb.NewDB()), validate, translator, &core.Config{})

	_, err := svc.Push(context.Background(), tenant.Context{SchoolID: 9}, attendance.Batch{
		delta("u1", 9, "2024-01-10", "P", "P", time.Now()),
	})
	if errors.Cause(err) != tenant.ErrUnknownTenant {
		t.Errorf("Push err = %v; want ErrUnknownTenant", err)
	}
	if _, err = svc.Pull(context.Background(), tenant.Context{SchoolID: 9}, time.Time{}); errors.Cause(err) != tenant.ErrUnknownTenant {
		t.Errorf("Pull err = %v; want ErrUnknownTenant", err)
	}
}

// With StrictConflict on, an item older than the stored row is skipped.
func TestServicePush_strictConflict(t *testing.T) {
	svc, _ := newTestService(t, true)
	tc := tenant.Context{SchoolID: 1, DeviceID: "dev-a"}
	base := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	mustPush(t, svc, tc, attendance.Batch{delta("u1", 1, "2024-01-10", "A", "A", base.Add(time.Hour))})
	mustPush(t, svc, tc, attendance.Batch{delta("u1", 1, "2024-01-10", "P", "P", base)}) // stale

	got := mustPull(t, svc, tc, time.Time{}).Records
	if len(got) != 1 || got[0].FnStatus != "A" {
		t.Errorf("records = %+v; want the newer write preserved", got)
	}
}

// Default mode is source-compatible last-write-wins: the incoming write
// overwrites regardless of timestamps.
func TestServicePush_lastWriteWins(t *testing.T) {
	svc, _ := newTestService(t, false)
	tc := tenant.Context{SchoolID: 1, DeviceID: "dev-a"}
	base := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	mustPush(t, svc, tc, attendance.Batch{delta("u1", 1, "2024-01-10", "A", "A", base.Add(time.Hour))})
	mustPush(t, svc, tc, attendance.Batch{delta("u1", 1, "2024-01-10", "P", "P", base)})

	got := mustPull(t, svc, tc, time.Time{}).Records
	if len(got) != 1 || got[0].FnStatus != "P" {
		t.Errorf("records = %+v; want the last write applied", got)
	}
}
