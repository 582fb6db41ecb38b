package stageexec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"visiogen/internal/logging"
	"visiogen/internal/services"
)

// Func is the body of a pipeline stage.
type Func func(ctx context.Context, logger *slog.Logger) error

// Options controls a single stage execution.
type Options struct {
	Logger    *slog.Logger
	StageName string
	// Timeout bounds the stage when positive. Exceeding it yields
	// services.ErrTimeout.
	Timeout time.Duration
	Fields  []logging.Attr
}

// Run executes fn with the stage name attached to its context and logger,
// emitting start, completion, and failure events.
func Run(ctx context.Context, opts Options, fn Func) error {
	if fn == nil {
		return fmt.Errorf("stage handler unavailable: %s", opts.StageName)
	}
	if err := services.FromContext(ctx, opts.StageName, "start"); err != nil {
		return err
	}

	stageCtx := logging.WithStage(ctx, opts.StageName)
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(stageCtx, opts.Timeout)
		defer cancel()
	}
	stageLogger := logging.WithContext(stageCtx, opts.Logger)

	startAttrs := append([]logging.Attr{logging.String(logging.FieldEventType, "stage_start")}, opts.Fields...)
	stageLogger.Info("stage started", logging.Args(startAttrs...)...)

	started := time.Now()
	err := fn(stageCtx, stageLogger)
	if err != nil {
		return handleFailure(stageCtx, stageLogger, opts.StageName, err, time.Since(started))
	}

	stageLogger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}

func handleFailure(stageCtx context.Context, logger *slog.Logger, stageName string, stageErr error, elapsed time.Duration) error {
	stageErr = classify(stageCtx, stageName, stageErr)

	details := services.Details(stageErr)
	message := strings.TrimSpace(details.Message)
	if message == "" {
		message = strings.TrimSpace(stageErr.Error())
	}

	if errors.Is(stageErr, services.ErrCanceled) {
		logger.Info(
			"stage canceled",
			logging.String(logging.FieldEventType, "stage_canceled"),
			logging.Duration("elapsed", elapsed),
		)
		return stageErr
	}

	logging.ErrorWithContext(logger, "stage failed", "stage_failure",
		logging.String("failure_kind", details.Kind),
		logging.String("error_message", message),
		logging.Duration("elapsed", elapsed),
		logging.Error(stageErr),
	)
	return stageErr
}

// classify maps bare context errors from the stage body onto the marker
// errors the CLI reports.
func classify(stageCtx context.Context, stageName string, err error) error {
	if errors.Is(err, services.ErrTimeout) || errors.Is(err, services.ErrCanceled) {
		return err
	}
	if ctxErr := services.FromContext(stageCtx, stageName, "run"); ctxErr != nil {
		return ctxErr
	}
	return err
}
