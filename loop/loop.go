// Package loop runs a session: planner, actor and executor in turn until
// the planner reports the task complete.
//
// Information Hiding:
// - Canonical log ownership hidden; collaborators get read-only copies
// - Turn sequencing and termination rules hidden
// - Transcript recording hidden

package loop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/richinex/vlmpilot/computer"
	"github.com/richinex/vlmpilot/history"
	jsonutil "github.com/richinex/vlmpilot/internal/json"
	"github.com/richinex/vlmpilot/model"
	"github.com/richinex/vlmpilot/observer"
	"github.com/richinex/vlmpilot/planner"
	"github.com/richinex/vlmpilot/storage"
)

// DefaultMaxTurns bounds a session when Options.MaxTurns is zero.
const DefaultMaxTurns = 20

// Planner decides the next action from the session log.
type Planner interface {
	Decide(ctx context.Context, log []model.Message) (planner.Decision, error)
}

// Actor grounds an instruction into an action record.
type Actor interface {
	Act(ctx context.Context, instruction string) (model.ActionRecord, error)
	Reset()
}

// Executor runs an action record and reports the outcome.
type Executor interface {
	Execute(ctx context.Context, rec model.ActionRecord) model.ToolResult
}

// StopReason explains why a session ended without error.
type StopReason string

const (
	StopCompleted   StopReason = "completed"   // planner answered None
	StopUnparseable StopReason = "unparseable" // planner output held no JSON
	StopNoAction    StopReason = "no_action"   // direct-mode actor output held no action
	StopMaxTurns    StopReason = "max_turns"
)

// Options tune a loop.
type Options struct {
	MaxTurns int

	// DirectMode skips the planner; the actor receives the task itself.
	DirectMode bool

	// HideImages keeps screenshot tags out of rendered tool results.
	HideImages bool
}

// SessionState is the mutable state of one run.
type SessionState struct {
	SessionID string
	Task      string
	Log       *model.Log
	Turns     int
	Stop      StopReason
	StartedAt time.Time
	Duration  time.Duration
}

// Loop orchestrates sessions. A Loop runs one session at a time.
type Loop struct {
	planner     Planner
	actor       Actor
	executor    Executor
	shaper      *history.Shaper
	transcripts storage.TranscriptStore
	sink        observer.Sink
	opts        Options
	logger      *zap.Logger
}

// New creates a loop in direct mode unless a planner is attached with
// WithPlanner.
func New(actor Actor, executor Executor, opts Options, logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = DefaultMaxTurns
	}
	return &Loop{
		actor:    actor,
		executor: executor,
		shaper:   history.NewShaper(nil, logger),
		sink:     observer.Nop,
		opts:     opts,
		logger:   logger.Named("loop"),
	}
}

// WithPlanner attaches a planner. Ignored in direct mode.
func (l *Loop) WithPlanner(p Planner) *Loop {
	l.planner = p
	return l
}

// WithShaper sets the shaper that bounds screenshots kept in the log.
func (l *Loop) WithShaper(s *history.Shaper) *Loop {
	l.shaper = s
	return l
}

// WithTranscripts records every turn to store.
func (l *Loop) WithTranscripts(store storage.TranscriptStore) *Loop {
	l.transcripts = store
	return l
}

// WithSink sets the observer sink.
func (l *Loop) WithSink(sink observer.Sink) *Loop {
	if sink == nil {
		sink = observer.Nop
	}
	l.sink = sink
	return l
}

func (l *Loop) direct() bool {
	return l.opts.DirectMode || l.planner == nil
}

// Run executes task until completion, a stop condition or ctx is done.
// Configuration and transport errors end the run and are returned together
// with the state reached so far.
func (l *Loop) Run(ctx context.Context, task string) (*SessionState, error) {
	state := &SessionState{
		SessionID: uuid.NewString(),
		Task:      task,
		Log:       model.NewLog(),
		StartedAt: time.Now(),
	}
	defer func() { state.Duration = time.Since(state.StartedAt) }()

	l.actor.Reset()
	state.Log.Append(model.UserText(task))

	logger := l.logger.With(zap.String("session", state.SessionID))
	logger.Info("session started", zap.String("task", task), zap.Bool("direct", l.direct()))

	for turn := 0; turn < l.opts.MaxTurns; turn++ {
		// Check context cancellation at top of loop
		if err := ctx.Err(); err != nil {
			return state, fmt.Errorf("session cancelled: %w", err)
		}

		stop, err := l.step(ctx, state, turn, logger)
		if err != nil {
			return state, err
		}
		if stop != "" {
			state.Stop = stop
			logger.Info("session finished", zap.String("reason", string(stop)), zap.Int("turns", state.Turns))
			return state, nil
		}
	}

	state.Stop = StopMaxTurns
	logger.Warn("turn limit reached", zap.Int("turns", state.Turns))
	return state, nil
}

func (l *Loop) step(ctx context.Context, state *SessionState, turn int, logger *zap.Logger) (StopReason, error) {
	record := storage.Turn{SessionID: state.SessionID, Index: turn, Task: state.Task}

	instruction := state.Task
	if !l.direct() {
		decision, err := l.planner.Decide(ctx, state.Log.Messages())
		if errors.Is(err, jsonutil.ErrNoJSONObject) || errors.Is(err, planner.ErrInvalidDecision) {
			logger.Warn("planner output unparseable", zap.Error(err))
			l.sink.Output(decision.Response)
			return StopUnparseable, nil
		}
		if err != nil {
			return "", fmt.Errorf("turn %d: %w", turn, err)
		}
		if decision.Done() {
			return StopCompleted, nil
		}
		state.Log.Append(model.AssistantText(decision.Raw))
		instruction = decision.NextAction
		record.Decision = decision.Raw
		record.Tokens = decision.Tokens
	}

	action, err := l.actor.Act(ctx, instruction)
	if err != nil {
		return "", fmt.Errorf("turn %d: %w", turn, err)
	}
	record.Action = action.Content

	if l.direct() {
		if _, err := computer.ParseAction(action.Content); err != nil {
			logger.Info("actor produced no action", zap.String("content", action.Content))
			l.sink.Output(action.Content)
			l.record(ctx, record, logger)
			return StopNoAction, nil
		}
	}
	state.Log.Append(model.AssistantText(action.Content))

	result := l.executor.Execute(ctx, action)
	toolID := uuid.NewString()
	state.Log.Append(model.ToolResultMessage(toolID, result))
	state.Turns++

	l.sink.ToolResult(toolID, result)
	if rendered := observer.RenderToolResult(result, l.opts.HideImages); rendered != "" {
		l.sink.Output(rendered)
	}

	if removed := l.shaper.Prune(state.Log.Entries()); removed > 0 {
		logger.Debug("pruned screenshots", zap.Int("removed", removed))
	}

	record.Result = observer.RenderToolResult(result, true)
	record.IsError = result.IsError()
	if result.Image != nil {
		record.ScreenshotRef = result.Image.Ref
	}
	l.record(ctx, record, logger)
	return "", nil
}

// record stores a turn. Transcript failures are logged, never fatal.
func (l *Loop) record(ctx context.Context, turn storage.Turn, logger *zap.Logger) {
	if l.transcripts == nil {
		return
	}
	if err := l.transcripts.RecordTurn(ctx, turn); err != nil {
		logger.Warn("failed to record turn", zap.Int("turn", turn.Index), zap.Error(err))
	}
}
