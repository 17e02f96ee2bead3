package statemachine

import (
	"log/slog"
)

// LoggingExtension logs every hook through slog: Debug for transition
// processing, Error for collected action failures.
type LoggingExtension[S, E comparable] struct {
	logger *slog.Logger
}

// NewLoggingExtension creates a logging extension. A nil logger uses
// slog.Default.
func NewLoggingExtension[S, E comparable](logger *slog.Logger) *LoggingExtension[S, E] {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingExtension[S, E]{logger: logger}
}

func (l *LoggingExtension[S, E]) MachineInitialized(state S) {
	l.logger.Debug("machine initialized", "state", state)
}

func (l *LoggingExtension[S, E]) EventQueued(event E, argument any) {
	l.logger.Debug("event queued", "event", event, "argument", argument)
}

func (l *LoggingExtension[S, E]) TransitionBegin(ctx *TransitionContext[S, E]) {
	l.logger.Debug("transition begin",
		"id", ctx.ID(), "event", ctx.Event(), "source", ctx.Source(), "target", ctx.Target())
}

func (l *LoggingExtension[S, E]) GuardEvaluated(ctx *TransitionContext[S, E], target S, satisfied bool) {
	l.logger.Debug("guard evaluated",
		"id", ctx.ID(), "event", ctx.Event(), "target", target, "satisfied", satisfied)
}

func (l *LoggingExtension[S, E]) ActionExceptionCaught(ctx *TransitionContext[S, E], err error) {
	l.logger.Error("action failed",
		"id", ctx.ID(), "event", ctx.Event(), "source", ctx.Source(), "error", err)
}

func (l *LoggingExtension[S, E]) TransitionEnd(ctx *TransitionContext[S, E]) {
	l.logger.Debug("transition end",
		"id", ctx.ID(), "event", ctx.Event(), "source", ctx.Source(), "target", ctx.Target(),
		"failures", len(ctx.Errors()))
}

func (l *LoggingExtension[S, E]) EventDeclined(ctx *TransitionContext[S, E]) {
	l.logger.Debug("event declined",
		"id", ctx.ID(), "event", ctx.Event(), "source", ctx.Source())
}
