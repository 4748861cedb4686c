package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/hesabu/core"
	"github.com/trezcool/hesabu/core/abacus"
	"github.com/trezcool/hesabu/core/assignment"
)

type SuccessResponse struct {
	Success string `json:"success"`
}

// QuestionResponse is a question as played back, for clients doing their own timing.
type QuestionResponse struct {
	Label    string   `json:"label"`
	Number   int      `json:"number"`
	Question string   `json:"question"`
	Tokens   []string `json:"tokens"`
	Display  []string `json:"display"`
	Answer   string   `json:"answer"`
}

type assignmentAPIDeps struct {
	conf     *core.Config
	logger   core.Logger
	svc      *assignment.Service
	validate *validator.Validate
}

type assignmentApi struct {
	assignmentAPIDeps
}

func registerAssignmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps assignmentAPIDeps) {
	api := assignmentApi{deps}

	ag := g.Group("/assignments")

	// learner endpoints
	ag.GET("", api.query)
	ag.GET("/:id", api.retrieve)
	ag.GET("/:id/questions/:number", api.question)
	ag.GET("/:id/play", api.play)

	// instructor endpoints
	instructor := []echo.MiddlewareFunc{jwt, instructorMiddleware}
	ag.POST("", api.create, instructor...)
	ag.DELETE("", api.destroyMultiple, instructor...)
	ag.PUT("/:id", api.update, instructor...)
	ag.DELETE("/:id", api.destroy, instructor...)
	ag.POST("/:id/share", api.share, instructor...)
}

// Handlers

func (api *assignmentApi) query(ctx echo.Context) error {
	var ord Ordering
	if err := ord.Bind(ctx, assignment.OrderingFields...); err != nil {
		return err
	}

	items, err := api.svc.Query(ctx.Request().Context(), ord.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *assignmentApi) create(ctx echo.Context) error {
	asg, err := api.svc.AddNew(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "adding assignment")
	}
	return ctx.JSON(http.StatusCreated, assignment.NewListItem(asg))
}

func (api *assignmentApi) retrieve(ctx echo.Context) error {
	asg, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting assignment")
	}
	return ctx.JSON(http.StatusOK, assignment.NewListItem(asg))
}

func (api *assignmentApi) update(ctx echo.Context) error {
	var data assignment.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	asg, err := api.svc.Save(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "saving assignment")
	}
	return ctx.JSON(http.StatusOK, assignment.NewListItem(asg))
}

func (api *assignmentApi) destroy(ctx echo.Context) error {
	cnt, err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	if cnt == 0 {
		return errHttpNotFound
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *assignmentApi) destroyMultiple(ctx echo.Context) error {
	var ids IDs
	ids.Bind(ctx)
	if len(ids.Values) == 0 {
		return core.NewValidationError(nil, core.FieldError{Field: idParam, Error: "at least one id is required"})
	}

	if _, err := api.svc.Delete(ctx.Request().Context(), ids.Values...); err != nil {
		return errors.Wrap(err, "deleting assignments")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *assignmentApi) share(ctx echo.Context) error {
	var data assignment.ShareRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ShareRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.Share(ctx.Request().Context(), ctx.Param("id"), data); err != nil {
		return errors.Wrap(err, "sharing assignment")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "The assignment was sent to " + strconv.Itoa(len(data.Emails)) + " learner(s).",
	})
}

func (api *assignmentApi) question(ctx echo.Context) error {
	asg, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting assignment")
	}

	n, err := strconv.Atoi(ctx.Param("number"))
	if err != nil || n < 1 || n > len(asg.Sequence) {
		return errHttpNotFound
	}

	q := asg.Sequence[n-1].Question
	tokens := abacus.Tokenize(q)
	display := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		display = append(display, abacus.FormatForDisplay(tok))
	}
	return ctx.JSON(http.StatusOK, QuestionResponse{
		Label:    abacus.QuestionLabel(n - 1),
		Number:   n,
		Question: q,
		Tokens:   tokens,
		Display:  display,
		Answer:   abacus.EvaluateTokens(tokens).String(),
	})
}
