// Package api serves price estimates over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"appraisal/internal/model"
	"appraisal/internal/types"
)

// PriceCache is the subset of the prediction cache the handlers use.
type PriceCache interface {
	Get(ctx context.Context, modelID string, row types.Row) (float64, bool, error)
	Set(ctx context.Context, modelID string, row types.Row, price float64) error
}

// ModelHandler serves schema, model metadata and predictions from one
// artifact loaded at startup.
type ModelHandler struct {
	model        *model.Artifact
	loadErr      error
	cache        PriceCache
	allowUnknown bool
	log          *zap.Logger
}

// Options configures a ModelHandler. Cache may be nil.
type Options struct {
	Cache        PriceCache
	AllowUnknown bool
	Logger       *zap.Logger
}

// NewModelHandler serves a. When a is nil, loadErr is returned to every
// request that needs the model.
func NewModelHandler(a *model.Artifact, loadErr error, opts Options) *ModelHandler {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if a == nil && loadErr == nil {
		loadErr = &model.ArtifactError{Err: errors.New("no model loaded")}
	}
	return &ModelHandler{
		model:        a,
		loadErr:      loadErr,
		cache:        opts.Cache,
		allowUnknown: opts.AllowUnknown,
		log:          log,
	}
}

func (h *ModelHandler) artifact() (*model.Artifact, error) {
	if h.model == nil {
		return nil, h.loadErr
	}
	return h.model, nil
}

func (h *ModelHandler) RegisterRoutes(r gin.IRouter) {
	v1 := r.Group("/v1")
	v1.GET("/schema", h.schema)
	v1.GET("/model", h.modelInfo)
	v1.POST("/predict", h.predict)
}

func (h *ModelHandler) schema(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "columns": types.Columns})
}

type modelResponse struct {
	ID           string                    `json:"id"`
	Version      int                       `json:"version"`
	CreatedAt    time.Time                 `json:"created_at"`
	TrainingRows int                       `json:"training_rows"`
	InputColumns []string                  `json:"input_columns"`
	Features     int                       `json:"features"`
	Trees        int                       `json:"trees"`
	Metrics      *model.Metrics            `json:"metrics,omitempty"`
	Importances  []model.FeatureImportance `json:"importances"`
}

func (h *ModelHandler) modelInfo(c *gin.Context) {
	a, err := h.artifact()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "model": modelResponse{
		ID:           a.ID,
		Version:      a.Version,
		CreatedAt:    a.CreatedAt,
		TrainingRows: a.TrainingRows,
		InputColumns: a.InputColumns(),
		Features:     len(a.FeatureNames),
		Trees:        len(a.Forest.Trees),
		Metrics:      a.Metrics,
		Importances:  a.Importances(),
	}})
}

type predictResponse struct {
	OK      bool    `json:"ok"`
	Price   float64 `json:"price"`
	ModelID string  `json:"model_id"`
	Cached  bool    `json:"cached"`
}

func (h *ModelHandler) predict(c *gin.Context) {
	a, err := h.artifact()
	if err != nil {
		h.fail(c, err)
		return
	}

	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	values := make(map[string]string, len(body))
	for k, v := range body {
		switch v := v.(type) {
		case string:
			values[k] = v
		case float64:
			values[k] = strconv.FormatFloat(v, 'g', -1, 64)
		default:
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": fmt.Sprintf("%s: expected a string or number", k)})
			return
		}
	}
	row, err := types.ParseRow(values, !h.allowUnknown)
	if err != nil {
		h.fail(c, err)
		return
	}

	ctx := c.Request.Context()
	if h.cache != nil {
		price, ok, err := h.cache.Get(ctx, a.ID, row)
		if err != nil {
			h.log.Warn("prediction cache unavailable", zap.Error(err))
		} else if ok {
			c.JSON(http.StatusOK, predictResponse{OK: true, Price: price, ModelID: a.ID, Cached: true})
			return
		}
	}

	price, err := a.Predict(row)
	if err != nil {
		h.fail(c, err)
		return
	}
	if h.cache != nil {
		if err := h.cache.Set(ctx, a.ID, row, price); err != nil {
			h.log.Warn("prediction not cached", zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, predictResponse{OK: true, Price: price, ModelID: a.ID})
}

// fail maps err onto a status code. Input problems are the caller's fault,
// artifact problems make the service unavailable, anything else is ours.
func (h *ModelHandler) fail(c *gin.Context, err error) {
	var (
		mismatch *model.SchemaMismatchError
		artErr   *model.ArtifactError
	)
	switch {
	case errors.As(err, &mismatch):
		c.JSON(http.StatusBadRequest, gin.H{
			"ok":         false,
			"error":      mismatch.Error(),
			"missing":    mismatch.Missing,
			"unexpected": mismatch.Unexpected,
			"invalid":    mismatch.Invalid,
		})
	case errors.Is(err, types.ErrUnknownColumn), errors.Is(err, types.ErrBadValue):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
	case errors.As(err, &artErr):
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "model unavailable"})
	default:
		h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal error"})
	}
}

// NewRouter builds the engine with every route registered.
func NewRouter(serviceName, version string, models *ModelHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	NewHealthHandler(serviceName, version, models).RegisterRoutes(r)
	models.RegisterRoutes(r)
	return r
}
