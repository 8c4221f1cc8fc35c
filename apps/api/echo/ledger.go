package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/vidyaverse/core"
	"github.com/trezcool/vidyaverse/core/attendance"
	"github.com/trezcool/vidyaverse/core/fees"
	"github.com/trezcool/vidyaverse/core/promotion"
	"github.com/trezcool/vidyaverse/core/school"
	cachesvc "github.com/trezcool/vidyaverse/services/cache"
)

type (
	AttendanceRequest struct {
		attendance.SaveRequest
		MarkAllAs string `json:"mark_all"` // present or absent: marks every roster member
	}

	RollsRequest struct {
		Section      string            `json:"section"`
		Rolls        map[string]string `json:"rolls"` // student id -> roll
		Alphabetical bool              `json:"alphabetical"`
	}

	LeavingCertificateResponse struct {
		Student   school.Student `json:"student"`
		Duplicate bool           `json:"duplicate"`
	}

	ReminderResponse struct {
		Link string `json:"link"`
	}

	PromotionResponse struct {
		Promoted []string `json:"promoted"`
	}

	RollsResponse struct {
		Updated int `json:"updated"`
	}
)

type ledgerApi struct {
	feesSvc       *fees.Service
	attendanceSvc *attendance.Service
	promotionSvc  *promotion.Service
	cache         cachesvc.ReportCache
	validate      *validator.Validate
}

func registerLedgerAPI(g *echo.Group, deps ServerDeps) {
	api := ledgerApi{
		feesSvc:       deps.FeesSvc,
		attendanceSvc: deps.AttendanceSvc,
		promotionSvc:  deps.PromotionSvc,
		cache:         deps.Cache,
		validate:      deps.Validate,
	}

	g.GET("/fees/reconcile", api.reconcile)
	g.GET("/students/:id/reminder", api.reminder)
	g.GET("/attendance/roster", api.roster)

	// writes
	g.POST("/fees/collect", api.collect, adminMiddleware())
	g.POST("/fees/reconcile", api.fixDrifts, adminMiddleware())
	g.POST("/students/:id/leaving-certificate", api.issueLeavingCertificate, adminMiddleware())
	g.POST("/attendance", api.saveAttendance, adminMiddleware())
	g.POST("/promotions", api.promote, adminMiddleware())
	g.POST("/classes", api.createClass, adminMiddleware())
	g.PUT("/classes/:class/rolls", api.reassignRolls, adminMiddleware())
}

// written invalidates the report cache after a write, partial ones included.
func (api *ledgerApi) written(ctx echo.Context) {
	api.cache.Invalidate(ctx.Request().Context())
}

// Handlers

func (api *ledgerApi) collect(ctx echo.Context) error {
	var data fees.CollectRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to fees.CollectRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.feesSvc.Collect(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	api.written(ctx)
	return ctx.JSON(http.StatusCreated, res)
}

func (api *ledgerApi) reconcile(ctx echo.Context) error {
	drifts, err := api.feesSvc.Reconcile(ctx.Request().Context(), false)
	if err != nil {
		return errors.Wrap(err, "reconciling fees")
	}
	return ctx.JSON(http.StatusOK, drifts)
}

func (api *ledgerApi) fixDrifts(ctx echo.Context) error {
	drifts, err := api.feesSvc.Reconcile(ctx.Request().Context(), true)
	api.written(ctx)
	if err != nil {
		return errors.Wrap(err, "fixing fee drifts")
	}
	return ctx.JSON(http.StatusOK, drifts)
}

func (api *ledgerApi) reminder(ctx echo.Context) error {
	link, err := api.feesSvc.Reminder(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ReminderResponse{Link: link})
}

func (api *ledgerApi) issueLeavingCertificate(ctx echo.Context) error {
	st, duplicate, err := api.feesSvc.IssueLeavingCertificate(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if !duplicate {
		api.written(ctx)
	}
	return ctx.JSON(http.StatusOK, LeavingCertificateResponse{Student: st, Duplicate: duplicate})
}

func (api *ledgerApi) roster(ctx echo.Context) error {
	kind := core.CleanString(ctx.QueryParam("kind"), true /* lower */)
	roster, err := api.attendanceSvc.Roster(
		ctx.Request().Context(), kind, core.CleanString(ctx.QueryParam("class")), core.CleanString(ctx.QueryParam("section")),
	)
	if err != nil {
		return errors.Wrap(err, "listing roster")
	}
	if roster == nil {
		roster = []attendance.Person{}
	}
	return ctx.JSON(http.StatusOK, roster)
}

func (api *ledgerApi) saveAttendance(ctx echo.Context) error {
	var data AttendanceRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AttendanceRequest")
	}

	reqCtx := ctx.Request().Context()
	switch data.MarkAllAs {
	case "":
	case school.Present, school.Absent:
		data.Clean()
		roster, err := api.attendanceSvc.Roster(reqCtx, data.Kind, data.Class, data.Section)
		if err != nil {
			return errors.Wrap(err, "listing roster")
		}
		data.MarkAll(roster, data.MarkAllAs)
	default:
		return core.NewValidationError(nil, core.FieldError{Field: "mark_all", Error: "must be one of present, absent"})
	}
	if err := data.SaveRequest.Validate(api.validate); err != nil {
		return err
	}

	counts, err := api.attendanceSvc.Save(reqCtx, data.SaveRequest)
	api.written(ctx)
	if err != nil {
		return errors.Wrap(err, "saving attendance")
	}
	return ctx.JSON(http.StatusOK, counts)
}

func (api *ledgerApi) promote(ctx echo.Context) error {
	var data promotion.Request
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to promotion.Request")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	promoted, err := api.promotionSvc.Promote(ctx.Request().Context(), data.From, data.To)
	api.written(ctx)
	if err != nil {
		return errors.Wrap(err, "promoting class")
	}
	return ctx.JSON(http.StatusOK, PromotionResponse{Promoted: promoted})
}

func (api *ledgerApi) createClass(ctx echo.Context) error {
	var data promotion.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to promotion.NewClass")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cls, err := api.promotionSvc.CreateClass(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *ledgerApi) reassignRolls(ctx echo.Context) error {
	var data RollsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RollsRequest")
	}
	class := core.CleanString(ctx.Param("class"))
	section := core.CleanString(data.Section)

	var n int
	var err error
	if data.Alphabetical {
		n, err = api.promotionSvc.ReassignRollsAlphabetically(ctx.Request().Context(), class, section)
	} else {
		n, err = api.promotionSvc.ReassignRolls(ctx.Request().Context(), class, section, data.Rolls)
	}
	api.written(ctx)
	if err != nil {
		return errors.Wrap(err, "reassigning rolls")
	}
	return ctx.JSON(http.StatusOK, RollsResponse{Updated: n})
}
