package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/computeuse/backend/internal/infrastructure/monitoring"
	"github.com/computeuse/backend/internal/llm"
	"github.com/computeuse/backend/internal/pipeline"
	"github.com/computeuse/backend/internal/providers/bash"
	"github.com/computeuse/backend/internal/providers/terminal"
	"github.com/computeuse/backend/internal/service"
	"github.com/computeuse/backend/internal/shared/utils"
	"github.com/computeuse/backend/internal/types"
)

// Version is reported by the identity endpoint.
const Version = "0.2.0"

const defaultTaskTimeout = 10 * time.Minute

// Handlers contains all HTTP handlers
type Handlers struct {
	registry    *service.Registry
	pipe        *pipeline.Pipeline
	shell       *bash.Provider
	terminals   *terminal.Manager
	model       *llm.Client
	metrics     *monitoring.Metrics
	taskTimeout time.Duration
}

// NewHandlers creates a new handler set. Terminals, model, and metrics may
// be nil; the health report degrades accordingly.
func NewHandlers(
	registry *service.Registry,
	pipe *pipeline.Pipeline,
	shell *bash.Provider,
	terminals *terminal.Manager,
	model *llm.Client,
	metrics *monitoring.Metrics,
	taskTimeout time.Duration,
) *Handlers {
	if taskTimeout <= 0 {
		taskTimeout = defaultTaskTimeout
	}
	return &Handlers{
		registry:    registry,
		pipe:        pipe,
		shell:       shell,
		terminals:   terminals,
		model:       model,
		metrics:     metrics,
		taskTimeout: taskTimeout,
	}
}

// Root handles health check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "Compute Service (Go)",
		"version": Version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	state, started := h.shell.SessionState()

	modelHealth := gin.H{"connected": h.model != nil}
	if h.model != nil {
		modelHealth["circuit"] = h.model.BreakerState().String()
	}

	terminalHealth := gin.H{"enabled": h.terminals != nil}
	if h.terminals != nil {
		terminalHealth["active"] = h.terminals.ActiveCount()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":           "healthy",
		"service_registry": h.registry.Stats(),
		"session": gin.H{
			"started": started,
			"state":   state.String(),
		},
		"model":     modelHealth,
		"terminals": terminalHealth,
	})
}

// ListServices lists all available services
func (h *Handlers) ListServices(c *gin.Context) {
	categoryStr := c.Query("category")

	// Validate category if provided
	if categoryStr != "" {
		if err := utils.ValidateCategory(categoryStr, false); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	var category *types.Category
	if categoryStr != "" {
		cat := types.Category(categoryStr)
		category = &cat
	}

	services := h.registry.List(category)
	stats := h.registry.Stats()

	c.JSON(http.StatusOK, gin.H{
		"services": services,
		"stats":    stats,
	})
}

// DiscoverServices discovers relevant services for a query
func (h *Handlers) DiscoverServices(c *gin.Context) {
	var req types.DiscoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Validate query
	if err := utils.ValidateMessage(req.Query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 5
	}
	if limit > 20 {
		limit = 20
	}

	services := h.registry.Discover(req.Query, limit)

	c.JSON(http.StatusOK, gin.H{
		"query":    req.Query,
		"services": services,
	})
}

// ExecuteService executes a service tool
func (h *Handlers) ExecuteService(c *gin.Context) {
	var req types.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Validate tool ID
	if err := utils.ValidateToolID(req.ToolID, "tool_id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Bound param nesting before handing the map to a provider
	if err := utils.ValidateJSONDepth(req.Params, 20); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Validate client ID if provided
	if req.ClientID != nil {
		if err := utils.ValidateID(*req.ClientID, "client_id", false); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	var execCtx *types.Context
	if req.ClientID != nil {
		execCtx = &types.Context{ClientID: req.ClientID}
	}

	timer := monitoring.NewTimer(h.metrics, "service_registry", "execute")
	result, err := h.registry.Execute(c.Request.Context(), req.ToolID, req.Params, execCtx)
	if err != nil {
		timer.Stop("error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	timer.Stop(resultStatus(result))

	c.JSON(http.StatusOK, result)
}

// ListModels lists the models served by the pipeline
func (h *Handlers) ListModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"models": h.pipe.Models(),
	})
}

// Chat runs one task through the pipeline and returns the transcript
func (h *Handlers) Chat(c *gin.Context) {
	var req types.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Validate message
	if err := utils.ValidateMessage(req.Message); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	model := req.Model
	if model == "" {
		model = pipeline.ModelBash
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.taskTimeout)
	defer cancel()

	timer := monitoring.NewTimer(h.metrics, "pipeline", "chat")
	response, err := h.pipe.Pipe(ctx, req.Message, model, nil, pipeline.Options{TitleRequest: req.TitleRequest})
	if err != nil {
		timer.Stop("error")
		status := http.StatusInternalServerError
		if errors.Is(err, pipeline.ErrUnknownModel) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	timer.Stop("success")

	c.JSON(http.StatusOK, gin.H{
		"response": response,
		"model":    model,
	})
}

func resultStatus(result *types.Result) string {
	if result != nil && result.Success {
		return "success"
	}
	return "failure"
}
