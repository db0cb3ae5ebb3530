package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/smartfill/internal/dom"
)

// DefaultBinding is the runtime binding name the floating button calls.
const DefaultBinding = "__smartfillTrigger"

// ScriptRunner evaluates JavaScript in a page. *Session implements it.
type ScriptRunner interface {
	ExecuteScript(ctx context.Context, script string, res interface{}) error
}

// LiveDocument is a dom.Document over a real page. Reads use an in-memory
// mirror taken by Refresh; writes run in the page and are then applied to
// the mirror so later reads in the same run see them.
type LiveDocument struct {
	runner  ScriptRunner
	logger  *zap.Logger
	binding string

	mu     sync.RWMutex
	mirror *dom.Memory
}

var (
	_ dom.Document    = (*LiveDocument)(nil)
	_ dom.Refresher   = (*LiveDocument)(nil)
	_ dom.ControlHost = (*LiveDocument)(nil)
)

// NewLiveDocument takes the first snapshot of the page behind runner.
func NewLiveDocument(ctx context.Context, runner ScriptRunner, logger *zap.Logger) (*LiveDocument, error) {
	if runner == nil {
		return nil, errors.New("script runner cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &LiveDocument{
		runner:  runner,
		logger:  logger.Named("live_document"),
		binding: DefaultBinding,
	}
	if err := d.Refresh(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// SetBinding changes the binding name used by EnsureControl.
func (d *LiveDocument) SetBinding(name string) {
	d.mu.Lock()
	d.binding = name
	d.mu.Unlock()
}

// Refresh replaces the mirror with a fresh snapshot of the page.
func (d *LiveDocument) Refresh(ctx context.Context) error {
	var snapshot string
	if err := d.runner.ExecuteScript(ctx, snapshotScript, &snapshot); err != nil {
		return fmt.Errorf("failed to snapshot page: %w", err)
	}
	mirror, err := dom.ParseString(snapshot)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.mirror = mirror
	d.mu.Unlock()
	d.logger.Debug("Page snapshot refreshed.", zap.Int("bytes", len(snapshot)))
	return nil
}

func (d *LiveDocument) current() *dom.Memory {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.mirror
}

// Root returns the mirror's document node.
func (d *LiveDocument) Root() *html.Node {
	return d.current().Root()
}

// Visible uses the rendered box recorded at snapshot time. Nodes the
// snapshot did not tag fall back to the markup rules.
func (d *LiveDocument) Visible(n *html.Node) bool {
	if dom.HasAttr(n, VisibleAttr) {
		return dom.Attr(n, VisibleAttr) == "true"
	}
	return d.current().Visible(n)
}

func (d *LiveDocument) SetValue(ctx context.Context, n *html.Node, value string) error {
	if err := d.call(ctx, n, setValueFn, value); err != nil {
		return err
	}
	return d.current().SetValue(ctx, n, value)
}

func (d *LiveDocument) SetChecked(ctx context.Context, n *html.Node, checked bool) error {
	if err := d.call(ctx, n, setCheckedFn, checked); err != nil {
		return err
	}
	return d.current().SetChecked(ctx, n, checked)
}

func (d *LiveDocument) SelectIndex(ctx context.Context, n *html.Node, index int) error {
	if index < 0 || index >= len(dom.Options(n)) {
		return fmt.Errorf("%w: %d", dom.ErrOutOfRange, index)
	}
	if err := d.call(ctx, n, selectIndexFn, index); err != nil {
		return err
	}
	return d.current().SelectIndex(ctx, n, index)
}

func (d *LiveDocument) Dispatch(ctx context.Context, n *html.Node, eventType string) error {
	if err := d.call(ctx, n, dispatchFn, eventType); err != nil {
		return err
	}
	return d.current().Dispatch(ctx, n, eventType)
}

// Highlight runs in the page only; the page reverts it on its own timer.
func (d *LiveDocument) Highlight(ctx context.Context, n *html.Node, message string, dur time.Duration) error {
	return d.call(ctx, n, highlightFn, message, dur.Milliseconds())
}

func (d *LiveDocument) Notify(ctx context.Context, message string, dur time.Duration) error {
	script, err := callScript(notifyFn, message, dur.Milliseconds())
	if err != nil {
		return err
	}
	if err := d.runner.ExecuteScript(ctx, script, nil); err != nil {
		return fmt.Errorf("failed to show notification: %w", err)
	}
	return nil
}

// EnsureControl inserts the floating button into the current page.
func (d *LiveDocument) EnsureControl(ctx context.Context, id, label string) (bool, error) {
	d.mu.RLock()
	binding := d.binding
	d.mu.RUnlock()

	script, err := callScript(ensureControlFn, id, label, binding)
	if err != nil {
		return false, err
	}
	var created bool
	if err := d.runner.ExecuteScript(ctx, script, &created); err != nil {
		return false, fmt.Errorf("failed to insert control: %w", err)
	}
	return created, nil
}

// call runs fn(id, args...) against the page element mirrored by n.
func (d *LiveDocument) call(ctx context.Context, n *html.Node, fn string, args ...interface{}) error {
	if !dom.Attached(n) {
		return dom.ErrDetached
	}
	id := dom.Attr(n, NodeIDAttr)
	if id == "" {
		return fmt.Errorf("%w: %s has no %s", dom.ErrDetached, dom.Describe(n), NodeIDAttr)
	}
	script, err := callScript(fn, append([]interface{}{id}, args...)...)
	if err != nil {
		return err
	}
	if err := d.runner.ExecuteScript(ctx, script, nil); err != nil {
		if strings.Contains(err.Error(), "no longer in the page") {
			return fmt.Errorf("%w: %v", dom.ErrDetached, err)
		}
		return fmt.Errorf("page script failed on %s: %w", dom.Describe(n), err)
	}
	return nil
}
