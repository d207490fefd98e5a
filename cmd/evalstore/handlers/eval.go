package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/memofn/evalstore/cmd/evalstore/middleware"
	"github.com/memofn/evalstore/cmd/evalstore/models"
	"github.com/memofn/evalstore/cmd/evalstore/repository"
	"github.com/memofn/evalstore/cmd/evalstore/service"
	"github.com/memofn/evalstore/common/bootstrap"
	"github.com/memofn/evalstore/common/framing"
)

// evalRepository is the slice of repository.EvalRepository the handler
// needs. Tests substitute a fake.
type evalRepository interface {
	InsertWithBlob(ctx context.Context, apiKey string, ins *models.EvalInsert) (uuid.UUID, error)
	QueryByParams(ctx context.Context, apiKey string, params repository.EvalQuery) ([]models.Eval, error)
	RecentExperiments(ctx context.Context, apiKey string, count int64) ([]models.Eval, error)
}

// EvalHandler handles eval cache operations
type EvalHandler struct {
	components *bootstrap.Components
	store      *service.Store
	evals      evalRepository
}

// NewEvalHandler creates a new eval handler
func NewEvalHandler(components *bootstrap.Components, store *service.Store, evals evalRepository) *EvalHandler {
	return &EvalHandler{
		components: components,
		store:      store,
		evals:      evals,
	}
}

// PutEval caches an evaluation result. The body is a framed upload:
// length-prefixed JSON metadata followed by the raw result payload,
// streamed into the blob store under its content hash.
// PUT /api/v1/evals
func (h *EvalHandler) PutEval(c echo.Context) error {
	apiKey, err := middleware.RequireAPIKey(c)
	if err != nil {
		return err
	}

	var ins models.EvalInsert
	payload, err := framing.Extract(c.Request().Body, &ins)
	if err != nil {
		return framingHTTPError(err)
	}

	ctx := c.Request().Context()

	key, err := h.store.Upload(ctx, payload, ins.ContentHash, ins.ContentLength)
	if err != nil {
		return uploadHTTPError(err)
	}
	// The database must record the canonical key the object was stored
	// under, not the claim as the client spelled it.
	ins.ContentHash = key

	evalID, err := h.evals.InsertWithBlob(ctx, apiKey, &ins)
	if err != nil {
		if errors.Is(err, repository.ErrUnauthorized) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid api key")
		}
		requestLogger(c, h.components.Logger).Error("failed to record eval", "fn_key", ins.FnKey, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to record eval")
	}

	return c.String(http.StatusOK, evalID.String())
}

// GetEvals looks up cached evaluations by key fields. Every query
// parameter is optional and absent ones match anything. With
// poll=true the lookup also counts as an access on each hit.
// GET /api/v1/evals
func (h *EvalHandler) GetEvals(c echo.Context) error {
	apiKey, err := middleware.RequireAPIKey(c)
	if err != nil {
		return err
	}

	params := repository.EvalQuery{
		FnKey:    optionalParam(c, "fn_key"),
		FnHash:   optionalParam(c, "fn_hash"),
		ArgsHash: optionalParam(c, "args_hash"),
		Poll:     c.QueryParam("poll") == "true",
	}
	if v := c.QueryParam("is_experiment"); v != "" {
		b := v == "true"
		params.IsExperiment = &b
	}

	evals, err := h.evals.QueryByParams(c.Request().Context(), apiKey, params)
	if err != nil {
		requestLogger(c, h.components.Logger).Error("failed to query evals", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to query evals")
	}

	if len(evals) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "evals not found for params")
	}

	return c.JSON(http.StatusOK, evals)
}

// GetExperiments lists the caller's most recent experiment evals.
// GET /api/v1/experiments
func (h *EvalHandler) GetExperiments(c echo.Context) error {
	apiKey, err := middleware.RequireAPIKey(c)
	if err != nil {
		return err
	}

	count := int64(10)
	if v := c.QueryParam("count"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid count parameter")
		}
		count = n
	}

	evals, err := h.evals.RecentExperiments(c.Request().Context(), apiKey, count)
	if err != nil {
		requestLogger(c, h.components.Logger).Error("failed to list experiments", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list experiments")
	}

	return c.JSON(http.StatusOK, evals)
}

func optionalParam(c echo.Context, name string) *string {
	if v := c.QueryParam(name); v != "" {
		return &v
	}
	return nil
}
