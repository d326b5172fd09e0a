package attendance

import (
	"context"
	"fmt"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/bala2006-m/smart-school-server-sub001/core"
	"github.com/bala2006-m/smart-school-server-sub001/core/tenant"
)

var (
	// errors
	ErrWriteFailed           = errors.New("attendance store write failed; nothing was applied")
	errBatchValidationFailed = errors.New("batch validation failed")
)

type (
	// Repository persists attendance records on a resolved store handle.
	Repository interface {
		// PullSince returns every record (tombstoned or not) of the school with
		// updated_at strictly after `after`, ordered by updated_at then natural
		// key, together with the store's clock read in the same snapshot before
		// the scan.
		PullSince(ctx context.Context, h *tenant.Handle, schoolID int, after time.Time) ([]Record, time.Time, error)
		// ApplyBatch upserts the whole batch in a single transaction,
		// last-write-wins by natural key. With strict set, an item older than
		// the stored row (by updated_at) is skipped instead of overwriting.
		// Returns the number of rows applied.
		ApplyBatch(ctx context.Context, h *tenant.Handle, batch []RecordDelta, strict bool) (int, error)
		// ActiveByDate returns the school's non-tombstoned records for a date.
		ActiveByDate(ctx context.Context, h *tenant.Handle, schoolID int, date string, ordering []core.DBOrdering) ([]Record, error)
	}

	// Resolver maps a tenant context to its store handle (see tenant.Registry).
	Resolver interface {
		Resolve(ctx context.Context, tc tenant.Context) (*tenant.Handle, error)
	}

	Service struct {
		resolver   Resolver
		repo       Repository
		validate   *validator.Validate
		translator ut.Translator
		strict     bool
	}
)

func NewService(resolver Resolver, repo Repository, validate *validator.Validate, translator ut.Translator, conf *core.Config) *Service {
	return &Service{
		resolver:   resolver,
		repo:       repo,
		validate:   validate,
		translator: translator,
		strict:     conf.Sync.StrictConflict,
	}
}

// Pull returns the tenant's records mutated strictly after lastSync and the
// store's current time. The caller must adopt the returned ServerTime as its
// next watermark, even when the window is empty; a pull has no side effects
// and is safe to retry.
func (svc *Service) Pull(ctx context.Context, tc tenant.Context, lastSync time.Time) (PullResult, error) {
	h, err := svc.resolver.Resolve(ctx, tc)
	if err != nil {
		return PullResult{}, err
	}

	records, serverTime, err := svc.repo.PullSince(ctx, h, tc.SchoolID, lastSync.UTC())
	if err != nil {
		return PullResult{}, errors.Wrap(err, "pulling attendance window")
	}
	if records == nil {
		records = []Record{}
	}
	return PullResult{Records: records, ServerTime: serverTime}, nil
}

// Push applies a batch of locally mutated records to the tenant's store,
// all-or-nothing. Re-pushing an identical batch converges to the same final
// state, so callers may blindly retry after an unknown outcome.
func (svc *Service) Push(ctx context.Context, tc tenant.Context, items Batch) (int, error) {
	h, err := svc.resolver.Resolve(ctx, tc)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}
	if err = items.Validate(svc.validate, svc.translator); err != nil {
		return 0, err
	}

	// a batch may only mutate the school it was resolved for
	var fldErrs []core.FieldError
	for i := range items {
		if items[i].SchoolID != tc.SchoolID {
			fldErrs = append(fldErrs, core.FieldError{
				Field: fmt.Sprintf("items[%d].school_id", i),
				Error: "does not match the tenant context",
			})
		}
	}
	if fldErrs != nil {
		return 0, core.NewValidationError(errBatchValidationFailed, fldErrs...)
	}

	applied, err := svc.repo.ApplyBatch(ctx, h, items, svc.strict)
	if err != nil {
		return 0, errors.Wrapf(ErrWriteFailed, "school %d: %v", tc.SchoolID, err)
	}
	return applied, nil
}
