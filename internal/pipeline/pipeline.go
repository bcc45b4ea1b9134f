package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/computeuse/backend/internal/infrastructure/logging"
	"github.com/computeuse/backend/internal/llm"
	"github.com/computeuse/backend/internal/loop"
)

// ModelBash is the model id the pipeline accepts.
const ModelBash = "compute-bash"

// ErrUnknownModel is returned for model ids the pipeline does not serve.
var ErrUnknownModel = errors.New("unknown model id")

// Model describes one selectable model in the catalog.
type Model struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Options adjusts a single Pipe call.
type Options struct {
	// TitleRequest asks for a conversation title instead of running the
	// agent. Answered statically.
	TitleRequest bool
}

// Pipeline adapts the agent loop to a synchronous chat contract: one user
// message in, the full transcript out.
type Pipeline struct {
	id   string
	name string
	loop *loop.Loop
	log  *logging.Logger
}

// New builds the pipeline over an agent loop. Logger may be nil.
func New(l *loop.Loop, log *logging.Logger) *Pipeline {
	if log == nil {
		log = logging.NewDefault()
	}
	return &Pipeline{
		id:   "compute",
		name: "Compute Pipeline",
		loop: l,
		log:  log.Component("pipeline"),
	}
}

// ID returns the pipeline identifier.
func (p *Pipeline) ID() string { return p.id }

// Name returns the human-readable pipeline name.
func (p *Pipeline) Name() string { return p.name }

// Models returns the catalog of selectable models.
func (p *Pipeline) Models() []Model {
	return []Model{
		{
			ID:          ModelBash,
			Name:        "Compute Pipeline (Bash)",
			Description: "Execute bash commands via pipeline",
		},
	}
}

// Pipe runs one chat turn and returns the concatenated transcript. History
// is prior turns; the user message is appended as the task. Errors from the
// run itself are folded into the transcript so partial progress is never
// lost; the error return is reserved for requests the pipeline cannot serve.
func (p *Pipeline) Pipe(ctx context.Context, userMessage, modelID string, history []llm.Message, opts Options) (string, error) {
	if opts.TitleRequest {
		return p.name, nil
	}
	if modelID != ModelBash {
		return "", fmt.Errorf("%w: %s (use %q)", ErrUnknownModel, modelID, ModelBash)
	}

	p.log.Info("pipe called",
		zap.String("model", modelID),
		zap.Int("history", len(history)),
	)

	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, llm.UserText(userMessage))

	events, _ := p.loop.Run(ctx, messages)

	var parts []string
	for ev := range events {
		switch ev.Kind {
		case loop.EventText, loop.EventSystem, loop.EventError:
			if ev.Text != "" {
				parts = append(parts, ev.Text)
			}
		case loop.EventToolResult:
			switch {
			case ev.Text != "":
				parts = append(parts, ev.Text)
			case ev.Result != nil && ev.Result.System != "":
				// Keep session notices visible even when the result body
				// is empty, e.g. after a restart.
				parts = append(parts, "<s>"+ev.Result.System+"</s>")
			}
		}
	}

	if len(parts) == 0 {
		return "Command executed successfully", nil
	}
	return strings.Join(parts, "\n"), nil
}
