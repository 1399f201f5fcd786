package echoapi

import (
	"fmt"
	"net/http"
	"net/mail"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/classroom-curator/planner/core"
	"github.com/classroom-curator/planner/core/yearplan"
)

const contextObjectKey = "object"

type yearPlanApi struct {
	svc      yearplan.Service
	validate *validator.Validate
}

func registerYearPlanAPI(g *echo.Group, jwt echo.MiddlewareFunc, conf *core.Config, svc yearplan.Service, validate *validator.Validate) {
	api := yearPlanApi{
		svc:      svc,
		validate: validate,
	}

	yg := g.Group("/year-plans")

	// un-authed endpoints
	yg.POST("/calculate", api.calculate)

	// authed endpoints
	ag := yg.Group("", jwt, ownerMiddleware(conf))
	ag.POST("", api.create)
	ag.GET("", api.query)

	// detail endpoints
	dg := ag.Group("/:id", planOwnerMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.DELETE("", api.destroy)
	dg.POST("/recalculate", api.recalculate)
	dg.GET("/ical", api.exportICal)
	dg.POST("/share", api.share)
}

type (
	CreateResponse struct {
		ID      string `json:"id"`
		Message string `json:"message"`
		yearplan.Preview
	}

	ShareRequest struct {
		Emails []string `json:"emails" validate:"required,min=1,max=20,dive,email"`
	}

	MessageResponse struct {
		Message string `json:"message"`
	}
)

func (sr *ShareRequest) Validate(validate *validator.Validate) error {
	sr.Emails = core.CleanStrings(sr.Emails)
	for i := range sr.Emails {
		sr.Emails[i] = core.CleanString(sr.Emails[i], true /* lower */)
	}
	return validate.Struct(sr)
}

func (sr *ShareRequest) Addresses() []mail.Address {
	addrs := make([]mail.Address, 0, len(sr.Emails))
	for _, e := range sr.Emails {
		addrs = append(addrs, mail.Address{Address: e})
	}
	return addrs
}

// Handlers

func (api *yearPlanApi) bindCalculateRequest(ctx echo.Context) (yearplan.CalculateRequest, error) {
	var data yearplan.CalculateRequest
	if err := ctx.Bind(&data); err != nil {
		return data, errors.Wrap(err, "binding to CalculateRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return data, err
	}
	return data, nil
}

func (api *yearPlanApi) calculate(ctx echo.Context) error {
	data, err := api.bindCalculateRequest(ctx)
	if err != nil {
		return err
	}

	preview, err := api.svc.Calculate(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "calculating year plan")
	}
	return ctx.JSON(http.StatusOK, preview)
}

func (api *yearPlanApi) create(ctx echo.Context) error {
	owner, err := getContextOwner(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context owner")
	}
	data, err := api.bindCalculateRequest(ctx)
	if err != nil {
		return err
	}

	plan, preview, err := api.svc.Create(ctx.Request().Context(), owner.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating year plan")
	}
	return ctx.JSON(http.StatusCreated, CreateResponse{
		ID:      plan.ID,
		Message: "Year plan created successfully",
		Preview: preview,
	})
}

func (api *yearPlanApi) query(ctx echo.Context) error {
	owner, err := getContextOwner(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context owner")
	}

	filter := new(yearplan.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []yearplan.YearPlan{})
	}
	filter.Clean()
	filter.OwnerID = owner.ID // callers only ever see their own plans
	ordering := new(Ordering)
	ordering.Bind(ctx, yearplan.OrderingFields)

	plans, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying year plans")
	}
	if plans == nil {
		plans = []yearplan.YearPlan{}
	}
	return ctx.JSON(http.StatusOK, plans)
}

func getContextPlan(ctx echo.Context) (yearplan.YearPlan, error) {
	plan, ok := ctx.Get(contextObjectKey).(yearplan.YearPlan)
	if !ok {
		return yearplan.YearPlan{}, errors.Wrap(errPlanNotInCtx, "retrieving object from context")
	}
	return plan, nil
}

func (api *yearPlanApi) retrieve(ctx echo.Context) error {
	plan, err := getContextPlan(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, plan)
}

func (api *yearPlanApi) recalculate(ctx echo.Context) error {
	plan, err := getContextPlan(ctx)
	if err != nil {
		return err
	}

	preview, err := api.svc.Recalculate(ctx.Request().Context(), plan)
	if err != nil {
		return errors.Wrap(err, "recalculating year plan")
	}
	return ctx.JSON(http.StatusOK, preview)
}

func (api *yearPlanApi) exportICal(ctx echo.Context) error {
	plan, err := getContextPlan(ctx)
	if err != nil {
		return err
	}

	export, err := api.svc.ExportICal(ctx.Request().Context(), plan)
	if err != nil {
		return errors.Wrap(err, "exporting year plan")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", export.Filename))
	return ctx.Blob(http.StatusOK, export.ContentType, export.Data)
}

func (api *yearPlanApi) share(ctx echo.Context) error {
	plan, err := getContextPlan(ctx)
	if err != nil {
		return err
	}

	var data ShareRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ShareRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ShareByEmail(ctx.Request().Context(), plan, data.Addresses()); err != nil {
		return errors.Wrap(err, "sharing year plan")
	}
	return ctx.JSON(http.StatusAccepted, MessageResponse{
		Message: fmt.Sprintf("Year plan shared with %d recipient(s)", len(data.Emails)),
	})
}

func (api *yearPlanApi) destroy(ctx echo.Context) error {
	plan, err := getContextPlan(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), plan.ID); err != nil {
		return errors.Wrap(err, "deleting year plan")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// planOwnerMiddleware loads the year plan `:id` into the context when it belongs to the caller.
// Plans of other owners are reported as not found.
func planOwnerMiddleware(svc yearplan.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			owner, err := getContextOwner(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context owner")
			}

			plan, err := svc.Get(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == yearplan.ErrNotFound {
					return errPlanNotFound
				}
				return errors.Wrap(err, "finding year plan by ID")
			}
			if plan.OwnerID != owner.ID {
				return errPlanNotFound
			}

			ctx.Set(contextObjectKey, plan)
			return next(ctx)
		}
	}
}
