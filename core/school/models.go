package school

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/bala2006-m/smart-school-server-sub001/core"
)

// School is tenant metadata kept on the central cloud store.
type School struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Address   string    `json:"address" db:"address"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
}

// Class and Holiday live on whichever store serves their school.
type Class struct {
	ID        string    `json:"id" db:"id"`
	SchoolID  int       `json:"school_id" db:"school_id"`
	Name      string    `json:"name" db:"name"`
	Section   string    `json:"section" db:"section"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
}

type Holiday struct {
	ID       string `json:"id" db:"id"`
	SchoolID int    `json:"school_id" db:"school_id"`
	Date     string `json:"date" db:"date"` // YYYY-MM-DD
	Reason   string `json:"reason" db:"reason"`
}

// NewSchool contains information needed to register a new School.
type NewSchool struct {
	ID      int    `json:"id" validate:"required,min=1"`
	Name    string `json:"name" validate:"required"`
	Address string `json:"address"`
}

func (ns *NewSchool) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Address = core.CleanString(ns.Address)
	return validate.Struct(ns)
}

type NewClass struct {
	Name    string `json:"name" validate:"required"`
	Section string `json:"section"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Section = core.CleanString(nc.Section)
	return validate.Struct(nc)
}

type NewHoliday struct {
	Date   string `json:"date" validate:"required,datefmt"`
	Reason string `json:"reason" validate:"required"`
}

func (nh *NewHoliday) Validate(validate *validator.Validate) error {
	nh.Reason = core.CleanString(nh.Reason)
	return validate.Struct(nh)
}
