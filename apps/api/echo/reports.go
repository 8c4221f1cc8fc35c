package echoapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/vidyaverse/core/balancesheet"
	"github.com/trezcool/vidyaverse/core/report"
	cachesvc "github.com/trezcool/vidyaverse/services/cache"
	"github.com/trezcool/vidyaverse/services/render"
)

const formatParam = "format"

type reportApi struct {
	svc       *report.Service
	renderers *render.Registry
	cache     cachesvc.ReportCache
	validate  *validator.Validate
}

func registerReportAPI(g *echo.Group, deps ServerDeps) {
	api := reportApi{
		svc:       deps.ReportSvc,
		renderers: deps.Renderers,
		cache:     deps.Cache,
		validate:  deps.Validate,
	}

	g.GET("/reports/:kind", api.report)
	g.POST("/reports/marksheet", api.marksheet)
	g.GET("/dashboard", api.dashboard)
	g.GET("/balance-sheet", api.balanceSheet)
}

func (api *reportApi) bindFilter(ctx echo.Context) (report.Filter, error) {
	var f report.Filter
	if err := ctx.Bind(&f); err != nil {
		return report.Filter{}, errors.Wrap(err, "binding to report.Filter")
	}
	if err := f.Validate(api.validate); err != nil {
		return report.Filter{}, err
	}
	return f, nil
}

func (api *reportApi) report(ctx echo.Context) error {
	kind := ctx.Param("kind")
	f, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}

	format := ctx.QueryParam(formatParam)
	if format == "" || format == render.JSON {
		t, err := api.svc.Build(ctx.Request().Context(), kind, f)
		if err != nil {
			return errors.Wrap(err, "building report")
		}
		return ctx.JSON(http.StatusOK, t)
	}

	renderer, err := api.renderers.Get(format)
	if err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	key := cachesvc.Key(
		kind, f.Class, f.Section, strconv.Itoa(f.Year), strconv.Itoa(f.Month), f.From, f.To, f.Mode, f.Orientation, format,
	)
	body, slot, ok := api.cache.Get(reqCtx, key)
	if !ok {
		t, err := api.svc.Build(reqCtx, kind, f)
		if err != nil {
			return errors.Wrap(err, "building report")
		}
		var buff bytes.Buffer
		if err = renderer.Render(reqCtx, &buff, t); err != nil {
			return errors.Wrapf(err, "rendering %s report", format)
		}
		body = buff.Bytes()
		api.cache.Set(reqCtx, slot, body)
	}
	return blob(ctx, renderer, kind, body)
}

// marksheet renders the posted marks; marksheets are not cached since they are not read from the ledgers.
func (api *reportApi) marksheet(ctx echo.Context) error {
	var data report.MarksheetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to report.MarksheetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	t, err := api.svc.Marksheet(reqCtx, data)
	if err != nil {
		return errors.Wrap(err, "building marksheet")
	}
	format := ctx.QueryParam(formatParam)
	if format == "" || format == render.JSON {
		return ctx.JSON(http.StatusOK, t)
	}

	renderer, err := api.renderers.Get(format)
	if err != nil {
		return err
	}
	var buff bytes.Buffer
	if err = renderer.Render(reqCtx, &buff, t); err != nil {
		return errors.Wrapf(err, "rendering %s marksheet", format)
	}
	return blob(ctx, renderer, report.KindMarksheet, buff.Bytes())
}

// blob sends a rendered report; every format but html is sent as a download.
func blob(ctx echo.Context, renderer render.Renderer, name string, body []byte) error {
	if renderer.Ext() != render.HTML {
		ctx.Response().Header().Set(
			echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name+"."+renderer.Ext()),
		)
	}
	return ctx.Blob(http.StatusOK, renderer.ContentType(), body)
}

func (api *reportApi) dashboard(ctx echo.Context) error {
	summary, err := api.svc.Dashboard(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "summarizing dashboard")
	}
	return ctx.JSON(http.StatusOK, summary)
}

func (api *reportApi) balanceSheet(ctx echo.Context) error {
	f, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}
	period, err := balancesheet.NewPeriod(f.Mode, f.Year, f.Month)
	if err != nil {
		return err
	}
	sheet, err := api.svc.BalanceSheet(ctx.Request().Context(), period)
	if err != nil {
		return errors.Wrap(err, "computing balance sheet")
	}
	return ctx.JSON(http.StatusOK, sheet)
}
