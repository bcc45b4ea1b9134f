package loop

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/computeuse/backend/internal/infrastructure/logging"
	"github.com/computeuse/backend/internal/infrastructure/monitoring"
	"github.com/computeuse/backend/internal/llm"
	"github.com/computeuse/backend/internal/tools"
)

// eventBuffer sizes the run channel so bursts of events do not block tool
// execution on a slow consumer.
const eventBuffer = 64

// cacheBreakpoints is how many recent user turns carry ephemeral cache
// markers when prompt caching is on.
const cacheBreakpoints = 3

// ModelClient is the slice of the Messages API the loop depends on.
type ModelClient interface {
	Messages(ctx context.Context, req *llm.Request) (*llm.Response, error)
}

// Config tunes a Loop.
type Config struct {
	Model         string
	MaxTokens     int
	MaxOperations int
	PromptCaching bool
	SystemSuffix  string
}

// DefaultConfig returns the stock loop configuration.
func DefaultConfig() Config {
	return Config{
		Model:         "claude-3-5-sonnet-20241022",
		MaxTokens:     1024,
		MaxOperations: 5,
		PromptCaching: true,
	}
}

// Loop drives the conversation between the model and the tool set until the
// model signals completion or the operation budget runs out. A turn that
// invokes at least one tool counts as one operation.
type Loop struct {
	cfg     Config
	client  ModelClient
	tools   *tools.Collection
	log     *logging.Logger
	metrics *monitoring.Metrics
}

// New builds a Loop over the given client and tool set. Logger and metrics
// may be nil.
func New(cfg Config, client ModelClient, collection *tools.Collection, log *logging.Logger, metrics *monitoring.Metrics) *Loop {
	def := DefaultConfig()
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.MaxOperations <= 0 {
		cfg.MaxOperations = def.MaxOperations
	}
	if log == nil {
		log = logging.NewDefault()
	}

	return &Loop{
		cfg:     cfg,
		client:  client,
		tools:   collection,
		log:     log.Component("loop"),
		metrics: metrics,
	}
}

// Run starts a run over the given history. It returns a buffered channel of
// events, closed when the run ends, and a function that blocks until then
// and returns the final history.
func (l *Loop) Run(ctx context.Context, messages []llm.Message) (<-chan Event, func() []llm.Message) {
	events := make(chan Event, eventBuffer)
	done := make(chan struct{})

	var final []llm.Message
	go func() {
		defer close(done)
		defer close(events)
		final = l.run(ctx, messages, events)
	}()

	return events, func() []llm.Message {
		<-done
		return final
	}
}

// RunTask starts a run over a fresh history seeded with the task text.
func (l *Loop) RunTask(ctx context.Context, task string) (<-chan Event, func() []llm.Message) {
	return l.Run(ctx, []llm.Message{llm.UserText(task)})
}

func (l *Loop) run(ctx context.Context, messages []llm.Message, events chan<- Event) []llm.Message {
	started := time.Now()
	operations := 0
	outcome := OutcomeEnded

	defer func() {
		if l.metrics != nil {
			l.metrics.RecordLoopRun(outcome, operations)
		}
		l.log.Info("run finished",
			zap.String("outcome", outcome),
			zap.Int("operations", operations),
			zap.Duration("duration", time.Since(started)),
		)
	}()

	system := l.systemBlocks()

	for operations < l.cfg.MaxOperations {
		if l.cfg.PromptCaching {
			llm.MarkCacheBreakpoints(messages, cacheBreakpoints)
		}

		resp, err := l.client.Messages(ctx, &llm.Request{
			Model:     l.cfg.Model,
			MaxTokens: l.cfg.MaxTokens,
			System:    system,
			Messages:  messages,
			Tools:     l.tools.Params(),
		})
		if err != nil {
			outcome = OutcomeError
			l.emit(ctx, events, Event{Kind: EventError, Text: fmt.Sprintf("API Error: %v", err)})
			l.emit(ctx, events, Event{Kind: EventDone, Text: outcome})
			return messages
		}

		var assistant []llm.ContentBlock
		var toolResults []llm.ContentBlock
		usedTool := false

		for _, block := range resp.Content {
			switch block.Type {
			case llm.BlockText:
				assistant = append(assistant, llm.TextBlock(block.Text))
				if !l.emit(ctx, events, Event{Kind: EventText, Text: block.Text}) {
					outcome = OutcomeCanceled
					return messages
				}

				// A completion marker ends the run immediately; later
				// blocks in the same response are not executed.
				if o, ok := CompletionOutcome(block.Text); ok {
					messages = append(messages, llm.AssistantMessage(assistant...))
					outcome = o
					l.emit(ctx, events, Event{Kind: EventDone, Text: outcome})
					return messages
				}

			case llm.BlockToolUse:
				usedTool = true
				assistant = append(assistant, block)
				if !l.emit(ctx, events, Event{Kind: EventToolUse, ToolID: block.ID, Tool: block.Name, Input: block.Input}) {
					outcome = OutcomeCanceled
					return messages
				}

				result, err := l.tools.Run(ctx, block.Name, block.Input)
				if err != nil {
					outcome = OutcomeError
					l.emit(ctx, events, Event{Kind: EventError, Text: fmt.Sprintf("Error executing command: %v", err)})
					l.emit(ctx, events, Event{Kind: EventDone, Text: outcome})
					return messages
				}

				text := FormatResult(*result)
				toolResults = append(toolResults, llm.ToolResultBlock(block.ID, text, result.Error != ""))
				if !l.emit(ctx, events, Event{Kind: EventToolResult, ToolID: block.ID, Tool: block.Name, Text: text, Result: result}) {
					outcome = OutcomeCanceled
					return messages
				}
			}
		}

		if len(assistant) > 0 {
			messages = append(messages, llm.AssistantMessage(assistant...))
		}
		if len(toolResults) > 0 {
			messages = append(messages, llm.UserMessage(toolResults...))
		}

		if !usedTool {
			outcome = OutcomeEnded
			l.emit(ctx, events, Event{Kind: EventDone, Text: outcome})
			return messages
		}
		operations++
	}

	outcome = OutcomeLimit
	l.emit(ctx, events, Event{Kind: EventSystem, Text: "Operation limit reached without a final status."})
	l.emit(ctx, events, Event{Kind: EventDone, Text: outcome})
	return messages
}

func (l *Loop) systemBlocks() []llm.ContentBlock {
	prompt := SystemPrompt(l.cfg.MaxOperations)
	if l.cfg.SystemSuffix != "" {
		prompt += " " + l.cfg.SystemSuffix
	}

	block := llm.TextBlock(prompt)
	if l.cfg.PromptCaching {
		block.CacheControl = llm.EphemeralCache()
	}
	return []llm.ContentBlock{block}
}

// emit delivers an event unless the context ends first.
func (l *Loop) emit(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
