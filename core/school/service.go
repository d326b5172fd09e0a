package school

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/bala2006-m/smart-school-server-sub001/core/tenant"
)

var (
	// errors
	ErrNotFound     = errors.New("not found")
	ErrSchoolExists = errors.New("a school with this ID already exists")
)

type (
	Repository interface {
		CreateSchool(ctx context.Context, h *tenant.Handle, sch School) (School, error)
		QuerySchools(ctx context.Context, h *tenant.Handle) ([]School, error)
		GetSchoolByID(ctx context.Context, h *tenant.Handle, id int) (School, error)

		CreateClass(ctx context.Context, h *tenant.Handle, cls Class) (Class, error)
		QueryClasses(ctx context.Context, h *tenant.Handle, schoolID int) ([]Class, error)
		DeleteClass(ctx context.Context, h *tenant.Handle, schoolID int, id string) error

		CreateHoliday(ctx context.Context, h *tenant.Handle, hol Holiday) (Holiday, error)
		QueryHolidays(ctx context.Context, h *tenant.Handle, schoolID int) ([]Holiday, error)
		DeleteHoliday(ctx context.Context, h *tenant.Handle, schoolID int, id string) error
	}

	// Resolver is the slice of the tenant registry this collaborator consumes:
	// school records live on the cloud store, class/holiday records on
	// whichever store serves their school. It does not participate in sync.
	Resolver interface {
		Resolve(ctx context.Context, tc tenant.Context) (*tenant.Handle, error)
		Cloud(ctx context.Context) (*tenant.Handle, error)
	}

	Service struct {
		resolver Resolver
		repo     Repository
	}
)

func NewService(resolver Resolver, repo Repository) *Service {
	return &Service{resolver: resolver, repo: repo}
}

func (svc *Service) CreateSchool(ctx context.Context, ns NewSchool) (School, error) {
	h, err := svc.resolver.Cloud(ctx)
	if err != nil {
		return School{}, err
	}

	if _, err = svc.repo.GetSchoolByID(ctx, h, ns.ID); err == nil {
		return School{}, ErrSchoolExists
	} else if errors.Cause(err) != ErrNotFound {
		return School{}, err
	}

	sch := School{
		ID:        ns.ID,
		Name:      ns.Name,
		Address:   ns.Address,
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.CreateSchool(ctx, h, sch)
}

func (svc *Service) QuerySchools(ctx context.Context) ([]School, error) {
	h, err := svc.resolver.Cloud(ctx)
	if err != nil {
		return nil, err
	}
	return svc.repo.QuerySchools(ctx, h)
}

func (svc *Service) GetSchool(ctx context.Context, id int) (School, error) {
	h, err := svc.resolver.Cloud(ctx)
	if err != nil {
		return School{}, err
	}
	return svc.repo.GetSchoolByID(ctx, h, id)
}

func (svc *Service) CreateClass(ctx context.Context, tc tenant.Context, nc NewClass) (Class, error) {
	h, err := svc.resolver.Resolve(ctx, tc)
	if err != nil {
		return Class{}, err
	}

	cls := Class{
		ID:        uuid.New().String(),
		SchoolID:  tc.SchoolID,
		Name:      nc.Name,
		Section:   nc.Section,
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.CreateClass(ctx, h, cls)
}

func (svc *Service) QueryClasses(ctx context.Context, tc tenant.Context) ([]Class, error) {
	h, err := svc.resolver.Resolve(ctx, tc)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryClasses(ctx, h, tc.SchoolID)
}

func (svc *Service) DeleteClass(ctx context.Context, tc tenant.Context, id string) error {
	h, err := svc.resolver.Resolve(ctx, tc)
	if err != nil {
		return err
	}
	return svc.repo.DeleteClass(ctx, h, tc.SchoolID, id)
}

func (svc *Service) CreateHoliday(ctx context.Context, tc tenant.Context, nh NewHoliday) (Holiday, error) {
	h, err := svc.resolver.Resolve(ctx, tc)
	if err != nil {
		return Holiday{}, err
	}

	hol := Holiday{
		ID:       uuid.New().String(),
		SchoolID: tc.SchoolID,
		Date:     nh.Date,
		Reason:   nh.Reason,
	}
	return svc.repo.CreateHoliday(ctx, h, hol)
}

func (svc *Service) QueryHolidays(ctx context.Context, tc tenant.Context) ([]Holiday, error) {
	h, err := svc.resolver.Resolve(ctx, tc)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryHolidays(ctx, h, tc.SchoolID)
}

func (svc *Service) DeleteHoliday(ctx context.Context, tc tenant.Context, id string) error {
	h, err := svc.resolver.Resolve(ctx, tc)
	if err != nil {
		return err
	}
	return svc.repo.DeleteHoliday(ctx, h, tc.SchoolID, id)
}
