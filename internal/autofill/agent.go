// Package autofill runs the fill loop over every fillable control of a page.
package autofill

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/smartfill/internal/classify"
	"github.com/xkilldash9x/smartfill/internal/config"
	"github.com/xkilldash9x/smartfill/internal/dom"
	"github.com/xkilldash9x/smartfill/internal/form"
	"github.com/xkilldash9x/smartfill/internal/inject"
	"github.com/xkilldash9x/smartfill/internal/observability"
)

// ErrBusy is returned when FillAll is called while a run is in progress.
var ErrBusy = errors.New("autofill run already in progress")

// Run result labels.
const (
	runOK        = "ok"
	runError     = "error"
	runBusy      = "busy"
	runCancelled = "cancelled"
)

// ValueResolver produces a value for a field, or reports that it has none.
type ValueResolver interface {
	Resolve(ctx context.Context, fc form.FieldContext) (string, bool)
}

// ValueInjector writes a value into a control.
type ValueInjector interface {
	Fill(ctx context.Context, doc dom.Document, n *html.Node, value string) (inject.Status, error)
}

// Settings tune a run.
type Settings struct {
	Pacing            time.Duration
	HighlightDuration time.Duration
	NotifyDuration    time.Duration
	SurroundingLimit  int
	PhotoPath         string
	ResumePath        string
}

// DefaultSettings mirrors the configuration defaults.
func DefaultSettings() Settings {
	return SettingsFromConfig(config.NewDefaultConfig().Autofill())
}

// SettingsFromConfig maps the autofill configuration section.
func SettingsFromConfig(cfg config.AutofillConfig) Settings {
	return Settings{
		Pacing:            cfg.Pacing,
		HighlightDuration: cfg.HighlightDuration,
		NotifyDuration:    cfg.NotifyDuration,
		SurroundingLimit:  cfg.SurroundingTextLimit,
		PhotoPath:         cfg.Files.Photo,
		ResumePath:        cfg.Files.Resume,
	}
}

// Option configures an Agent.
type Option func(*Agent)

// WithSettings replaces the default settings.
func WithSettings(s Settings) Option {
	return func(a *Agent) { a.settings = s }
}

// WithClassifier replaces the default keyword classifier.
func WithClassifier(c *classify.Classifier) Option {
	return func(a *Agent) { a.classifier = c }
}

// WithInjector replaces the default injector.
func WithInjector(i ValueInjector) Option {
	return func(a *Agent) { a.injector = i }
}

// WithMetrics records run, field and oracle counters.
func WithMetrics(m *observability.Metrics) Option {
	return func(a *Agent) { a.metrics = m }
}

// Agent fills one page. Runs never overlap; see ErrBusy.
type Agent struct {
	doc        dom.Document
	resolver   ValueResolver
	injector   ValueInjector
	classifier *classify.Classifier
	scraper    *form.Scraper
	builder    *form.Builder
	settings   Settings
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *zap.Logger
	busy       atomic.Bool
}

// New creates an Agent for doc.
func New(doc dom.Document, resolver ValueResolver, logger *zap.Logger, opts ...Option) (*Agent, error) {
	if doc == nil || resolver == nil {
		return nil, fmt.Errorf("cannot initialize autofill agent with nil dependencies")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &Agent{
		doc:      doc,
		resolver: resolver,
		settings: DefaultSettings(),
		logger:   logger.Named("autofill"),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.injector == nil {
		a.injector = inject.New(logger)
	}
	if a.classifier == nil {
		a.classifier = classify.New(classify.DefaultKeywords())
	}

	a.scraper = form.NewScraper()
	a.builder = form.NewBuilder(a.scraper, a.settings.SurroundingLimit)

	limit := rate.Inf
	if a.settings.Pacing > 0 {
		limit = rate.Every(a.settings.Pacing)
	}
	a.limiter = rate.NewLimiter(limit, 1)
	return a, nil
}

// Busy reports whether a run is in progress.
func (a *Agent) Busy() bool { return a.busy.Load() }

// FillAll runs one pass over the page. Per-field problems are recorded in
// the Summary; an error is returned only when the run as a whole could not
// proceed or was cancelled.
func (a *Agent) FillAll(ctx context.Context) (Summary, error) {
	if !a.busy.CompareAndSwap(false, true) {
		a.metrics.ObserveRun(runBusy, 0)
		return Summary{}, ErrBusy
	}
	defer a.busy.Store(false)

	start := time.Now()
	summary := Summary{RunID: uuid.NewString()}
	logger := a.logger.With(zap.String("run_id", summary.RunID))
	logger.Info("Starting autofill run.")

	if r, ok := a.doc.(dom.Refresher); ok {
		if err := r.Refresh(ctx); err != nil {
			summary.Duration = time.Since(start)
			a.metrics.ObserveRun(runError, summary.Duration)
			return summary, fmt.Errorf("failed to refresh document: %w", err)
		}
	}

	catalog := a.scraper.Scrape(a.doc)
	logger.Debug("Scraped option catalog.", zap.Int("entries", len(catalog)))

	fields := form.Fillable(a.doc.Root())
	logger.Debug("Found fillable elements.", zap.Int("count", len(fields)))

	var runErr error
	for _, n := range fields {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		outcome := a.processField(ctx, logger, n)
		summary.Outcomes = append(summary.Outcomes, outcome)
		if outcome.Kind == Filled {
			summary.Filled++
		}
		a.metrics.ObserveField(outcome.Kind.String())
	}

	msg := fmt.Sprintf("Successfully filled %d form fields", summary.Filled)
	if err := a.doc.Notify(context.WithoutCancel(ctx), msg, a.settings.NotifyDuration); err != nil {
		logger.Warn("Failed to show completion notice.", zap.Error(err))
	}

	summary.Duration = time.Since(start)
	result := runOK
	if runErr != nil {
		result = runCancelled
	}
	a.metrics.ObserveRun(result, summary.Duration)
	logger.Info("Autofill run finished.",
		zap.Int("filled", summary.Filled),
		zap.Int("fields", len(summary.Outcomes)),
		zap.Duration("duration", summary.Duration))
	return summary, runErr
}

// processField handles one control. It never panics.
func (a *Agent) processField(ctx context.Context, logger *zap.Logger, n *html.Node) (out FieldOutcome) {
	out = FieldOutcome{
		Locator: dom.XPath(n),
		Field:   dom.Describe(n),
		Label:   form.Label(a.doc.Root(), n),
	}
	logger = logger.With(zap.String("field", out.Field))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Recovered from panic while filling field.", zap.Any("panic", r), zap.Stack("stack"))
			out.Kind = Failed
			out.Reason = fmt.Sprintf("%s%v", reasonPanicPrefix, r)
		}
	}()

	if form.HasPrefill(n) {
		return skip(out, ReasonPrefilled)
	}
	if !a.doc.Visible(n) {
		return skip(out, ReasonNotVisible)
	}

	fc := a.builder.Build(a.doc, n)
	if fc.Label != "" {
		out.Label = fc.Label
	}

	if fc.InputType == "file" {
		return a.handleUpload(ctx, logger, n, fc, out)
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return skip(out, ReasonCancelled)
	}

	value, ok := a.resolver.Resolve(ctx, fc)
	a.pace()
	if !ok {
		logger.Warn("No value resolved for field.")
		return skip(out, ReasonNoValue)
	}
	out.Value = value

	status, err := a.injector.Fill(ctx, a.doc, n, value)
	if err != nil {
		logger.Warn("Failed to inject value.", zap.Error(err))
		out.Kind = Failed
		out.Reason = err.Error()
		return out
	}
	switch status {
	case inject.Applied:
		out.Kind = Filled
		logger.Debug("Filled field.", zap.String("value", value))
	case inject.Unsupported:
		out = skip(out, ReasonUnsupported)
	default:
		logger.Warn("Control rejected value.", zap.String("value", value))
		out.Kind = Failed
		out.Reason = ReasonRejected
	}
	return out
}

func (a *Agent) handleUpload(ctx context.Context, logger *zap.Logger, n *html.Node, fc form.FieldContext, out FieldOutcome) FieldOutcome {
	var path string
	switch a.classifier.Classify(fc) {
	case classify.Photo:
		path = a.settings.PhotoPath
	case classify.Resume:
		path = a.settings.ResumePath
	default:
		logger.Info("Upload field needs manual attention.")
		return skip(out, ReasonManualUpload)
	}

	msg := fmt.Sprintf("📂 Please select %s for this field", path)
	if err := a.doc.Highlight(ctx, n, msg, a.settings.HighlightDuration); err != nil {
		logger.Warn("Failed to highlight upload field.", zap.Error(err))
		out.Kind = Failed
		out.Reason = reasonHighlightError + err.Error()
		return out
	}
	out.Kind = Highlighted
	out.Value = path
	return out
}

// pace empties the limiter when an oracle call returns, so the next call
// starts no sooner than Pacing after this one finished.
func (a *Agent) pace() {
	if a.settings.Pacing <= 0 {
		return
	}
	a.limiter = rate.NewLimiter(rate.Every(a.settings.Pacing), 1)
	a.limiter.Allow()
}

func skip(out FieldOutcome, reason string) FieldOutcome {
	out.Kind = Skipped
	out.Reason = reason
	return out
}
