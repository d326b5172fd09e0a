package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/bala2006-m/smart-school-server-sub001/core/school"
)

type schoolApi struct {
	svc      *school.Service
	validate *validator.Validate
}

func registerSchoolAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *school.Service, validate *validator.Validate) {
	api := schoolApi{svc: svc, validate: validate}

	sg := g.Group("/schools", jwt)

	// school records are cloud-global tenant metadata
	sg.POST("", api.create)
	sg.GET("", api.query)
	sg.GET("/:school_id", api.retrieve)

	// classes and holidays live on the school's own store
	cg := sg.Group("/:school_id/classes", tenantMiddleware())
	cg.POST("", api.createClass)
	cg.GET("", api.queryClasses)
	cg.DELETE("/:id", api.destroyClass)

	hg := sg.Group("/:school_id/holidays", tenantMiddleware())
	hg.POST("", api.createHoliday)
	hg.GET("", api.queryHolidays)
	hg.DELETE("/:id", api.destroyHoliday)
}

// Handlers

func (api *schoolApi) create(ctx echo.Context) error {
	var data school.NewSchool
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchool")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sch, err := api.svc.CreateSchool(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating school")
	}
	return ctx.JSON(http.StatusCreated, sch)
}

func (api *schoolApi) query(ctx echo.Context) error {
	schools, err := api.svc.QuerySchools(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying schools")
	}
	return ctx.JSON(http.StatusOK, schools)
}

func (api *schoolApi) retrieve(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("school_id"))
	if err != nil {
		return errMalformedSchoolID
	}

	sch, err := api.svc.GetSchool(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding school by ID")
	}
	return ctx.JSON(http.StatusOK, sch)
}

func (api *schoolApi) createClass(ctx echo.Context) error {
	var data school.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	tc, err := getContextTenant(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context tenant")
	}

	cls, err := api.svc.CreateClass(ctx.Request().Context(), tc, data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *schoolApi) queryClasses(ctx echo.Context) error {
	tc, err := getContextTenant(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context tenant")
	}

	classes, err := api.svc.QueryClasses(ctx.Request().Context(), tc)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *schoolApi) destroyClass(ctx echo.Context) error {
	tc, err := getContextTenant(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context tenant")
	}

	if err = api.svc.DeleteClass(ctx.Request().Context(), tc, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *schoolApi) createHoliday(ctx echo.Context) error {
	var data school.NewHoliday
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewHoliday")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	tc, err := getContextTenant(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context tenant")
	}

	hol, err := api.svc.CreateHoliday(ctx.Request().Context(), tc, data)
	if err != nil {
		return errors.Wrap(err, "creating holiday")
	}
	return ctx.JSON(http.StatusCreated, hol)
}

func (api *schoolApi) queryHolidays(ctx echo.Context) error {
	tc, err := getContextTenant(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context tenant")
	}

	holidays, err := api.svc.QueryHolidays(ctx.Request().Context(), tc)
	if err != nil {
		return errors.Wrap(err, "querying holidays")
	}
	return ctx.JSON(http.StatusOK, holidays)
}

func (api *schoolApi) destroyHoliday(ctx echo.Context) error {
	tc, err := getContextTenant(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context tenant")
	}

	if err = api.svc.DeleteHoliday(ctx.Request().Context(), tc, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting holiday")
	}
	return ctx.NoContent(http.StatusNoContent)
}
