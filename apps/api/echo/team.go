package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mtokoni/tathmini/core/judging"
	"github.com/mtokoni/tathmini/core/team"
)

type teamApi struct {
	svc        team.Service
	judgingSvc judging.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerTeamAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := teamApi{
		svc:        deps.TeamSvc,
		judgingSvc: deps.JudgingSvc,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	tg := g.Group("/teams", jwt)

	tg.GET("", api.query)
	tg.POST("", api.create, adminMiddleware())
	tg.DELETE("", api.destroyMultiple, adminMiddleware())

	tg.GET("/landing", api.landing)
	tg.POST("/scores/submit", api.submitScores, judgeOrAdminMiddleware())

	dg := tg.Group("/:team_id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, adminMiddleware())
	dg.GET("/details", api.details)
	dg.POST("/approve", api.approveIdeas, judgeOrAdminMiddleware())
	dg.GET("/ideas", api.queryIdeas)
	dg.POST("/ideas", api.upsertIdea, adminMiddleware())
	dg.DELETE("/ideas", api.destroyIdeas, adminMiddleware())
}

// Handlers

func (api *teamApi) create(ctx echo.Context) error {
	var data team.NewTeam
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeam")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	t, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating team")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *teamApi) query(ctx echo.Context) error {
	filter := new(team.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []team.Team{})
	}
	filter.Clean()
	ordering := bindOrdering(ctx, "team_id", "team_name", "created_at")

	teams, err := api.svc.Query(ctx.Request().Context(), filter, ordering)
	if err != nil {
		return errors.Wrap(err, "querying teams")
	}
	if teams == nil {
		teams = []team.Team{}
	}
	return ctx.JSON(http.StatusOK, teams)
}

func (api *teamApi) retrieve(ctx echo.Context) error {
	t, err := api.svc.GetByTeamID(ctx.Request().Context(), ctx.Param("team_id"))
	if err != nil {
		return errors.Wrap(err, "finding team")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *teamApi) update(ctx echo.Context) error {
	t, err := api.svc.GetByTeamID(ctx.Request().Context(), ctx.Param("team_id"))
	if err != nil {
		return errors.Wrap(err, "finding team")
	}

	var data team.UpdateTeam
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTeam")
	}
	if err := data.Validate(t, api.validate, api.svc); err != nil {
		return err
	}

	t, err = api.svc.Update(ctx.Request().Context(), t.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating team")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *teamApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting teams")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *teamApi) queryIdeas(ctx echo.Context) error {
	ideas, err := api.svc.QueryIdeas(ctx.Request().Context(), ctx.Param("team_id"))
	if err != nil {
		return errors.Wrap(err, "querying ideas")
	}
	if ideas == nil {
		ideas = []team.Idea{}
	}
	return ctx.JSON(http.StatusOK, ideas)
}

func (api *teamApi) upsertIdea(ctx echo.Context) error {
	var data team.UpsertIdea
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpsertIdea")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	idea, created, err := api.svc.UpsertIdea(ctx.Request().Context(), ctx.Param("team_id"), data)
	if err != nil {
		return errors.Wrap(err, "upserting idea")
	}
	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	return ctx.JSON(code, idea)
}

func (api *teamApi) destroyIdeas(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	if err := api.svc.DeleteIdeas(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting ideas")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// approveIdeas replaces the team's approval set with the submitted titles.
// Any unmatched title fails the whole request and no approval changes.
func (api *teamApi) approveIdeas(ctx echo.Context) error {
	var data team.ApproveIdeas
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ApproveIdeas")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.SetApprovedIdeas(ctx.Request().Context(), ctx.Param("team_id"), data.ApprovedIdeas); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Approved ideas updated."})
}

// submitScores records the caller's scores against the team's primary idea.
// Valid entries are saved even when others fail (partial success).
func (api *teamApi) submitScores(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data map[string]interface{}
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding scores payload")
	}

	teamID, _ := data["team_id"].(string)
	if teamID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "team_id is required")
	}
	delete(data, "team_id")

	res, err := api.judgingSvc.SubmitScores(ctx.Request().Context(), claims.Subject, teamID, data)
	if err != nil {
		return err
	}
	if res.HasErrors() {
		return ctx.JSON(http.StatusBadRequest, res)
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *teamApi) landing(ctx echo.Context) error {
	landing, err := api.judgingSvc.TeamLanding(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing landing")
	}
	return ctx.JSON(http.StatusOK, landing)
}

func (api *teamApi) details(ctx echo.Context) error {
	detail, err := api.judgingSvc.TeamDetail(ctx.Request().Context(), ctx.Param("team_id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, detail)
}

type SuccessResponse struct {
	Success string `json:"success"`
}
