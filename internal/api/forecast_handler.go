package api

import (
	"context"
	stderrors "errors"
	"log"
	"net/http"

	"mrforecast/adapters/hyperfile"
	"mrforecast/app"
	"mrforecast/domain/hyper"
	"mrforecast/domain/units"
	"mrforecast/internal/errors"
	"mrforecast/internal/forecast"
	"mrforecast/ports"

	"github.com/gin-gonic/gin"
)

// Forecaster is the subset of app.ForecastService the handlers need
type Forecaster interface {
	Forward(ctx context.Context, req app.ForwardRequest) (*app.Forecast, error)
	ForwardStats(ctx context.Context, req app.StatsRequest) (*app.Forecast, error)
	Inverse(ctx context.Context, req app.InverseRequest) (*app.Forecast, error)
	InverseStats(ctx context.Context, req app.StatsRequest) (*app.Forecast, error)
	Table() *hyper.Table
}

// ForecastHandler serves the forecast operations over JSON
type ForecastHandler struct {
	service  Forecaster
	datasets ports.HyperparameterRepository // optional
}

// NewForecastHandler creates a new forecast handler. datasets may be nil.
func NewForecastHandler(service Forecaster, datasets ports.HyperparameterRepository) *ForecastHandler {
	return &ForecastHandler{
		service:  service,
		datasets: datasets,
	}
}

// TableInfo describes the loaded posterior table
type TableInfo struct {
	NPop        int      `json:"n_pop"`
	Rows        int      `json:"rows"`
	Columns     []string `json:"columns"`
	Populations []string `json:"populations"`
	Fingerprint string   `json:"fingerprint"`
}

// Forward handles POST /forward
func (h *ForecastHandler) Forward(c *gin.Context) {
	var req app.ForwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "code": errors.CodeInvalidInput})
		return
	}
	result, err := h.service.Forward(c.Request.Context(), req)
	h.respond(c, result, err)
}

// ForwardStats handles POST /forward/stats
func (h *ForecastHandler) ForwardStats(c *gin.Context) {
	var req app.StatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "code": errors.CodeInvalidInput})
		return
	}
	result, err := h.service.ForwardStats(c.Request.Context(), req)
	h.respond(c, result, err)
}

// Inverse handles POST /inverse
func (h *ForecastHandler) Inverse(c *gin.Context) {
	var req app.InverseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "code": errors.CodeInvalidInput})
		return
	}
	result, err := h.service.Inverse(c.Request.Context(), req)
	h.respond(c, result, err)
}

// InverseStats handles POST /inverse/stats
func (h *ForecastHandler) InverseStats(c *gin.Context) {
	var req app.StatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "code": errors.CodeInvalidInput})
		return
	}
	result, err := h.service.InverseStats(c.Request.Context(), req)
	h.respond(c, result, err)
}

// Table handles GET /table
func (h *ForecastHandler) Table(c *gin.Context) {
	table := h.service.Table()
	populations := make([]string, table.NPop())
	for i := range populations {
		populations[i] = forecast.Population(i).Name(table.NPop())
	}
	c.JSON(http.StatusOK, TableInfo{
		NPop:        table.NPop(),
		Rows:        table.Len(),
		Columns:     hyperfile.Header(table.Layout()),
		Populations: populations,
		Fingerprint: table.Fingerprint().String(),
	})
}

// Units handles GET /units
func (h *ForecastHandler) Units(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"units": units.Supported(), "native": units.Native})
}

// Datasets handles GET /datasets
func (h *ForecastHandler) Datasets(c *gin.Context) {
	if h.datasets == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No dataset repository configured"})
		return
	}
	datasets, err := h.datasets.ListDatasets(c.Request.Context())
	if err != nil {
		log.Printf("[ForecastHandler] Failed to list datasets: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list datasets", "code": errors.CodeDatabaseError})
		return
	}
	c.JSON(http.StatusOK, gin.H{"datasets": datasets})
}

func (h *ForecastHandler) respond(c *gin.Context, result *app.Forecast, err error) {
	if err != nil {
		status := StatusFor(err)
		if status >= http.StatusInternalServerError {
			log.Printf("[ForecastHandler] %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		}
		c.JSON(status, gin.H{"error": err.Error(), "code": errors.GetCode(err)})
		return
	}
	if c.Query("summary_only") == "true" {
		result.Samples = nil
	}
	c.JSON(http.StatusOK, result)
}

// StatusFor maps an error code to an HTTP status
func StatusFor(err error) int {
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case stderrors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}
	switch errors.GetCode(err) {
	case errors.CodeInvalidInput, errors.CodeInvalidInputShape, errors.CodeInvalidUnit, errors.CodeNonPositiveValue:
		return http.StatusBadRequest
	case errors.CodeOutOfModelRange, errors.CodeGridTooSparse, errors.CodeDegenerateLikelihood:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
