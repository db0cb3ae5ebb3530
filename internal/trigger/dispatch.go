// Package trigger exposes the fill agent to callers outside the page: an
// HTTP command endpoint, a WebSocket channel, and the dispatch used by the
// floating button binding.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/xkilldash9x/smartfill/api/schemas"
	"github.com/xkilldash9x/smartfill/internal/autofill"
)

// ErrUnknownAction is returned for a command whose action is not fillForm.
var ErrUnknownAction = errors.New("unknown action")

// Runner runs one fill pass. *autofill.Agent implements it.
type Runner interface {
	FillAll(ctx context.Context) (autofill.Summary, error)
}

// Dispatcher turns FillCommands into runs.
type Dispatcher struct {
	runner Runner
	logger *zap.Logger
}

// NewDispatcher creates a dispatcher over runner.
func NewDispatcher(runner Runner, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{runner: runner, logger: logger.Named("dispatch")}
}

// Dispatch executes cmd and returns the response with the HTTP status that
// best describes it.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd schemas.FillCommand) (schemas.FillResponse, int) {
	if cmd.Action != schemas.ActionFillForm {
		err := fmt.Errorf("%w: %q", ErrUnknownAction, cmd.Action)
		d.logger.Warn("Rejected command.", zap.String("action", cmd.Action), zap.String("request_id", cmd.RequestID))
		return schemas.NewFillResponse(cmd.RequestID, "", err), http.StatusBadRequest
	}

	summary, err := d.runner.FillAll(ctx)
	switch {
	case errors.Is(err, autofill.ErrBusy):
		return schemas.NewFillResponse(cmd.RequestID, "", err), http.StatusConflict
	case err != nil:
		d.logger.Warn("Fill run failed.", zap.String("request_id", cmd.RequestID), zap.Error(err))
		return schemas.NewFillResponse(cmd.RequestID, "", err), http.StatusInternalServerError
	}
	d.logger.Info("Fill run complete.",
		zap.String("request_id", cmd.RequestID),
		zap.String("run_id", summary.RunID),
		zap.Int("filled", summary.Filled))
	return schemas.NewFillResponse(cmd.RequestID, summary.Message(), nil), http.StatusOK
}
