package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mtokoni/tathmini/core/judging"
)

type judgingApi struct {
	svc      judging.Service
	validate *validator.Validate
}

func registerJudgingAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := judgingApi{
		svc:      deps.JudgingSvc,
		validate: deps.Validate,
	}

	jg := g.Group("/judging", jwt)

	rg := jg.Group("/rubrics")
	rg.GET("", api.queryCriteria)
	rg.POST("", api.createCriterion, adminMiddleware())
	rg.PUT("/:id", api.updateCriterion, adminMiddleware())
	rg.DELETE("", api.destroyCriteria, adminMiddleware())

	jg.GET("/scores", api.queryScores, judgeOrAdminMiddleware())
}

// Handlers

func (api *judgingApi) queryCriteria(ctx echo.Context) error {
	criteria, err := api.svc.QueryCriteria(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying criteria")
	}
	if criteria == nil {
		criteria = []judging.RubricCriterion{}
	}
	return ctx.JSON(http.StatusOK, criteria)
}

func (api *judgingApi) createCriterion(ctx echo.Context) error {
	var data judging.NewCriterion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCriterion")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.CreateCriterion(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating criterion")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *judgingApi) updateCriterion(ctx echo.Context) error {
	var data judging.UpdateCriterion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCriterion")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.UpdateCriterion(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating criterion")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *judgingApi) destroyCriteria(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	if err := api.svc.DeleteCriteria(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting criteria")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// queryScores lists recorded scores. Judges only see their own; admins see all
// and may filter by judge.
func (api *judgingApi) queryScores(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	filter := &judging.ScoreQueryFilter{
		IdeaID:      ctx.QueryParam("idea"),
		CriterionID: ctx.QueryParam("criterion"),
	}
	if claims.IsAdmin {
		filter.JudgeID = ctx.QueryParam("judge")
	} else {
		filter.JudgeID = claims.Subject
	}

	scores, err := api.svc.QueryScores(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying scores")
	}
	if scores == nil {
		scores = []judging.IdeaScore{}
	}
	return ctx.JSON(http.StatusOK, scores)
}
