package ws

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/computeuse/backend/internal/infrastructure/logging"
	"github.com/computeuse/backend/internal/infrastructure/monitoring"
	"github.com/computeuse/backend/internal/llm"
	"github.com/computeuse/backend/internal/loop"
	"github.com/computeuse/backend/internal/pipeline"
	"github.com/computeuse/backend/internal/shared/id"
	"github.com/computeuse/backend/internal/shared/utils"
	"github.com/computeuse/backend/internal/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in dev
	},
}

const defaultTaskTimeout = 10 * time.Minute

// Handler manages WebSocket connections. Each connection carries its own
// conversation; tasks on one connection run sequentially.
type Handler struct {
	loop        *loop.Loop
	log         *logging.Logger
	metrics     *monitoring.Metrics
	taskTimeout time.Duration
}

// NewHandler creates a new WebSocket handler. Metrics may be nil.
func NewHandler(l *loop.Loop, log *logging.Logger, metrics *monitoring.Metrics, taskTimeout time.Duration) *Handler {
	if log == nil {
		log = logging.NewDefault()
	}
	if taskTimeout <= 0 {
		taskTimeout = defaultTaskTimeout
	}
	return &Handler{
		loop:        l,
		log:         log.Component("ws"),
		metrics:     metrics,
		taskTimeout: taskTimeout,
	}
}

// HandleConnection handles WebSocket upgrade and messages
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(utils.MaxJSONSize)

	clientID := uuid.New().String()
	log := h.log.With(zap.String("client_id", clientID))

	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}

	// Get request context for propagation
	reqCtx := c.Request.Context()

	// Send welcome message
	h.send(conn, map[string]interface{}{
		"type":      "system",
		"message":   "Connected to Compute Service (Go)",
		"client_id": clientID,
		"timestamp": time.Now().Unix(),
	})

	// One conversation per connection, carried across chat messages
	var history []llm.Message

	for {
		var msg types.WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			log.Info("websocket closed", zap.Error(err))
			break
		}
		if h.metrics != nil {
			h.metrics.RecordWSMessage("in", msg.Type)
		}

		switch msg.Type {
		case "chat":
			history = h.handleChat(conn, log, reqCtx, msg, history)
		case "ping":
			h.send(conn, map[string]interface{}{"type": "pong"})
		default:
			h.sendError(conn, "unknown message type")
		}
	}
}

// handleChat runs one task through the agent loop and relays its events to
// the client. Returns the conversation including this run's messages.
func (h *Handler) handleChat(conn *websocket.Conn, log *zap.Logger, reqCtx context.Context, msg types.WSMessage, history []llm.Message) []llm.Message {
	if err := utils.ValidateMessage(msg.Message); err != nil {
		h.sendError(conn, err.Error())
		return history
	}
	if msg.Model != "" && msg.Model != pipeline.ModelBash {
		h.sendError(conn, fmt.Sprintf("unknown model id: %s", msg.Model))
		return history
	}

	runID := id.NewRunID().String()
	log.Info("task started", zap.String("run_id", runID))

	// Bound the task so one run cannot pin the connection forever.
	// Derive from the request context to respect cancellations.
	ctx, cancel := context.WithTimeout(reqCtx, h.taskTimeout)
	defer cancel()

	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, llm.UserText(msg.Message))

	events, final := h.loop.Run(ctx, messages)

	// Only canceled runs end without an EventDone
	outcome := loop.OutcomeCanceled
	dropped := false
	for ev := range events {
		if ev.Kind == loop.EventDone {
			outcome = ev.Text
			continue
		}
		if dropped {
			// Client is gone; keep draining so the run can finish
			continue
		}
		if err := h.send(conn, frameFor(ev, runID)); err != nil {
			log.Warn("websocket send failed", zap.String("run_id", runID), zap.Error(err))
			dropped = true
		}
	}

	updated := final()

	if !dropped {
		h.send(conn, map[string]interface{}{
			"type":      "complete",
			"run_id":    runID,
			"outcome":   outcome,
			"timestamp": time.Now().Unix(),
		})
	}

	log.Info("task finished",
		zap.String("run_id", runID),
		zap.String("outcome", outcome),
	)
	return updated
}

// frameFor maps a loop event to its wire frame
func frameFor(ev loop.Event, runID string) map[string]interface{} {
	frame := map[string]interface{}{
		"run_id":    runID,
		"timestamp": time.Now().Unix(),
	}

	switch ev.Kind {
	case loop.EventText:
		frame["type"] = "token"
		frame["content"] = ev.Text
	case loop.EventToolUse:
		frame["type"] = "tool_use"
		frame["tool"] = ev.Tool
		frame["tool_id"] = ev.ToolID
		frame["input"] = ev.Input
	case loop.EventToolResult:
		frame["type"] = "tool_result"
		frame["tool_id"] = ev.ToolID
		frame["content"] = ev.Text
	case loop.EventSystem:
		frame["type"] = "system"
		frame["message"] = ev.Text
	case loop.EventError:
		frame["type"] = "error"
		frame["message"] = ev.Text
	default:
		frame["type"] = string(ev.Kind)
		frame["content"] = ev.Text
	}
	return frame
}

func (h *Handler) send(conn *websocket.Conn, data map[string]interface{}) error {
	if h.metrics != nil {
		if msgType, ok := data["type"].(string); ok {
			h.metrics.RecordWSMessage("out", msgType)
		}
	}
	return conn.WriteJSON(data)
}

func (h *Handler) sendError(conn *websocket.Conn, msg string) error {
	return h.send(conn, map[string]interface{}{
		"type":      "error",
		"message":   msg,
		"timestamp": time.Now().Unix(),
	})
}
