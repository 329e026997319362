package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Model     string    `json:"model"`
	ModelID   string    `json:"model_id,omitempty"`
}

type HealthHandler struct {
	serviceName string
	version     string
	models      *ModelHandler
}

func NewHealthHandler(serviceName, version string, models *ModelHandler) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		models:      models,
	}
}

// HealthCheck reports "degraded" while no artifact is loaded. The process is
// still alive, so the status code stays 200.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Service:   h.serviceName,
		Version:   h.version,
		Model:     "loaded",
	}
	if a, err := h.models.artifact(); err != nil {
		resp.Status = "degraded"
		resp.Model = "unavailable"
	} else {
		resp.ModelID = a.ID
	}
	c.JSON(http.StatusOK, resp)
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.HealthCheck)
}
