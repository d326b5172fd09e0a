package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/bala2006-m/smart-school-server-sub001/core"
	"github.com/bala2006-m/smart-school-server-sub001/core/attendance"
)

type syncApi struct {
	svc       *attendance.Service
	reportSvc *attendance.ReportService
}

type PushResponse struct {
	Success bool `json:"success"`
	Applied int  `json:"applied"`
}

type ReportResponse struct {
	Absent int `json:"absent"`
}

func registerSyncAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *attendance.Service,
	reportSvc *attendance.ReportService,
) {
	api := syncApi{svc: svc, reportSvc: reportSvc}

	sg := g.Group("/sync", jwt, tenantMiddleware())
	sg.GET("/attendance", api.pull)
	sg.POST("/attendance", api.push)

	ag := g.Group("/attendance", jwt, tenantMiddleware())
	ag.GET("/report", api.report)
	ag.POST("/report", api.sendReport)
}

// Handlers

// pull serves an incremental window of the tenant's records. The client must
// adopt the returned server_time as its next lastSync watermark.
func (api *syncApi) pull(ctx echo.Context) error {
	tc, err := getContextTenant(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context tenant")
	}

	var lastSync time.Time // zero value: full pull
	if raw := ctx.QueryParam("lastSync"); raw != "" {
		if lastSync, err = time.Parse(time.RFC3339, raw); err != nil {
			return core.NewValidationError(nil, core.FieldError{
				Field: "lastSync",
				Error: "must be an RFC 3339 timestamp",
			})
		}
	}

	res, err := api.svc.Pull(ctx.Request().Context(), tc, lastSync)
	if err != nil {
		return errors.Wrap(err, "pulling attendance")
	}
	return ctx.JSON(http.StatusOK, res)
}

// push applies a batch of locally mutated records, all-or-nothing.
func (api *syncApi) push(ctx echo.Context) error {
	var items attendance.Batch
	if err := ctx.Bind(&items); err != nil {
		return errors.Wrap(err, "binding to attendance batch")
	}

	tc, err := getContextTenant(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context tenant")
	}

	applied, err := api.svc.Push(ctx.Request().Context(), tc, items)
	if err != nil {
		return errors.Wrap(err, "pushing attendance")
	}
	return ctx.JSON(http.StatusOK, PushResponse{Success: true, Applied: applied})
}

// report serves the active view for a date; tombstoned records are excluded.
func (api *syncApi) report(ctx echo.Context) error {
	tc, err := getContextTenant(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context tenant")
	}

	date := ctx.QueryParam("date")
	if date == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "date", Error: "this field is required"})
	}

	var ord Ordering
	ord.Bind(ctx)

	records, err := api.reportSvc.Active(ctx.Request().Context(), tc, date, ord.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying active attendance")
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *syncApi) sendReport(ctx echo.Context) error {
	tc, err := getContextTenant(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context tenant")
	}

	date := ctx.QueryParam("date")
	if date == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "date", Error: "this field is required"})
	}

	absent, err := api.reportSvc.SendAbsenceSummary(ctx.Request().Context(), tc, date)
	if err != nil {
		return errors.Wrap(err, "sending absence summary")
	}
	return ctx.JSON(http.StatusOK, ReportResponse{Absent: absent})
}
