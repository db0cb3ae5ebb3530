package browser

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ExposeFunction makes window[name] call fn with the payload string the
// page passes. fn runs on its own goroutine per call.
func (s *Session) ExposeFunction(ctx context.Context, name string, fn func(payload string)) error {
	if fn == nil {
		return fmt.Errorf("provided implementation for '%s' is nil", name)
	}
	if err := s.runActions(ctx, runtime.AddBinding(name)); err != nil {
		return fmt.Errorf("failed to add binding '%s': %w", name, err)
	}

	chromedp.ListenTarget(s.ctx, func(ev interface{}) {
		called, ok := ev.(*runtime.EventBindingCalled)
		if !ok || called.Name != name {
			return
		}
		// Listener callbacks must not block the event loop.
		go func(payload string) {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("Panic during exposed function call.",
						zap.String("name", name),
						zap.Any("panic_reason", r),
						zap.String("stack", string(debug.Stack())))
				}
			}()
			fn(payload)
		}(called.Payload)
	})
	return nil
}

// InjectScriptPersistently adds a script that runs on every new document in the tab.
func (s *Session) InjectScriptPersistently(ctx context.Context, script string) error {
	var scriptID page.ScriptIdentifier
	err := s.runActions(ctx, chromedp.ActionFunc(func(c context.Context) error {
		var err error
		scriptID, err = page.AddScriptToEvaluateOnNewDocument(script).Do(c)
		return err
	}))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("could not inject persistent script: %w", err)
	}
	s.logger.Debug("Injected persistent script.", zap.String("scriptID", string(scriptID)))
	return nil
}

// Floating fill button identity.
const (
	ControlButtonID    = "smart-autofill-btn"
	ControlButtonLabel = "Auto-Fill Form"
)

type controlPayload struct {
	Action string `json:"action"`
}

// InstallControl exposes binding to the page and inserts the floating
// button into every future document. The current document gets it through
// LiveDocument.EnsureControl. onAction receives the action named in each
// click payload.
func (s *Session) InstallControl(ctx context.Context, label, binding string, onAction func(action string)) error {
	err := s.ExposeFunction(ctx, binding, func(payload string) {
		var p controlPayload
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			s.logger.Warn("Ignoring malformed control payload.", zap.String("payload", payload), zap.Error(err))
			return
		}
		onAction(p.Action)
	})
	if err != nil {
		return err
	}

	script, err := persistentControlScript(ControlButtonID, label, binding)
	if err != nil {
		return err
	}
	if err := s.InjectScriptPersistently(ctx, script); err != nil {
		return err
	}

	s.logger.Debug("Fill control installed.", zap.String("binding", binding))
	return nil
}
