// Package server exposes the small operational HTTP surface of the
// rating engine: liveness, run status and the calculation guard other
// services mount in front of their read paths.
package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/communitylab/rating-engine/internal/pipeline"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var errMissingOrchestrator = errors.New("orchestrator dependency required")

// RunStatus is the subset of orchestrator state the status endpoint and
// the guard consult.
type RunStatus interface {
	InProgress() bool
	LastProcessedDate() (time.Time, bool)
	LastReport() (pipeline.RunReport, bool)
}

// Dependencies wires the HTTP handler.
type Dependencies struct {
	Status RunStatus
	Logger *zap.Logger
}

// NewHTTPHandler builds the gin router. The status endpoints are not
// guarded; a run in progress must stay observable.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Status == nil {
		return nil, errMissingOrchestrator
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{"Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{status: deps.Status, logger: logger}

	router.GET("/healthz", handler.handleHealth)
	router.GET("/api/status", handler.handleStatus)

	return router, nil
}

type httpHandler struct {
	status RunStatus
	logger *zap.Logger
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type statusResponsePayload struct {
	InProgress        bool                `json:"in_progress"`
	LastProcessedDate string              `json:"last_processed_date,omitempty"`
	LastReport        *pipeline.RunReport `json:"last_report,omitempty"`
}

func (h *httpHandler) handleStatus(c *gin.Context) {
	response := statusResponsePayload{InProgress: h.status.InProgress()}
	if date, ok := h.status.LastProcessedDate(); ok {
		response.LastProcessedDate = date.Format("2006-01-02")
	}
	if report, ok := h.status.LastReport(); ok {
		response.LastReport = &report
	}
	c.JSON(http.StatusOK, response)
}

// CalculationGuard rejects requests with 503 while a rating run is in
// progress. Read surfaces serving scores mount it so clients never see
// a half-written run.
func CalculationGuard(status RunStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		if status.InProgress() {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"error": "calculation in progress, retry later"})
			return
		}
		c.Next()
	}
}
