package attendance

import (
	"fmt"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/bala2006-m/smart-school-server-sub001/core"
)

// Attendance statuses, recorded separately for forenoon and afternoon.
const (
	StatusPresent = "P"
	StatusAbsent  = "A"
	StatusLate    = "L"
	StatusHoliday = "H"
)

var AllStatuses = []string{StatusPresent, StatusAbsent, StatusLate, StatusHoliday}

// Key is the natural identity of an attendance record; no surrogate key
// participates in sync matching.
type Key struct {
	Username string
	SchoolID int
	Date     string
}

// Record is the unit of synchronization. Tombstoned rows (IsDeleted) stay
// visible to pulls so replicas learn of deletions; they are only excluded
// from active business views.
type Record struct {
	Username  string    `json:"username" db:"username"`
	SchoolID  int       `json:"school_id" db:"school_id"`
	Date      string    `json:"date" db:"date"` // YYYY-MM-DD
	ClassID   null.Int  `json:"class_id" db:"class_id"`
	FnStatus  string    `json:"fn_status" db:"fn_status"`
	AnStatus  string    `json:"an_status" db:"an_status"`
	UpdatedAt time.Time `json:"updated_at" db:"-"` // UTC
	IsDeleted bool      `json:"is_deleted" db:"is_deleted"`
}

func (r Record) Key() Key {
	return Key{Username: r.Username, SchoolID: r.SchoolID, Date: r.Date}
}

// RecordDelta is one locally mutated record carried by a push batch.
// UpdatedAt is client-assigned; IsDeleted defaults to false when unset.
type RecordDelta struct {
	Username  string    `json:"username" validate:"required,alphanum_"`
	SchoolID  int       `json:"school_id" validate:"required,min=1"`
	Date      string    `json:"date" validate:"required,datefmt"`
	ClassID   null.Int  `json:"class_id"`
	FnStatus  string    `json:"fn_status" validate:"required,attstatus"`
	AnStatus  string    `json:"an_status" validate:"required,attstatus"`
	UpdatedAt time.Time `json:"updated_at" validate:"required"`
	IsDeleted null.Bool `json:"is_deleted"`
}

func (d *RecordDelta) Clean() {
	d.Username = core.CleanString(d.Username, true /* lower */)
	d.UpdatedAt = d.UpdatedAt.UTC()
}

// Batch is a push payload. The whole batch validates or none of it applies.
type Batch []RecordDelta

// Validate cleans and validates every item; a single invalid item rejects the
// batch with a core.ValidationError reporting which items failed.
func (b Batch) Validate(validate *validator.Validate, translator ut.Translator) error {
	var fldErrs []core.FieldError
	for i := range b {
		b[i].Clean()
		if err := validate.Struct(&b[i]); err != nil {
			vErrs, ok := err.(validator.ValidationErrors)
			if !ok {
				return err
			}
			for _, vErr := range vErrs {
				fldErrs = append(fldErrs, core.FieldError{
					Field: fmt.Sprintf("items[%d].%s", i, vErr.Field()),
					Error: vErr.Translate(translator),
				})
			}
		}
	}
	if fldErrs != nil {
		return core.NewValidationError(errBatchValidationFailed, fldErrs...)
	}
	return nil
}

// PullResult is an incremental sync window. ServerTime is the resolved
// store's authoritative clock; callers must adopt it as their next lastSync
// watermark instead of their own local clock.
type PullResult struct {
	Records    []Record  `json:"data"`
	ServerTime time.Time `json:"server_time"`
}
