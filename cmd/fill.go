package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/smartfill/api/schemas"
	"github.com/xkilldash9x/smartfill/internal/autofill"
	"github.com/xkilldash9x/smartfill/internal/browser"
	"github.com/xkilldash9x/smartfill/internal/config"
	"github.com/xkilldash9x/smartfill/internal/dom"
	"github.com/xkilldash9x/smartfill/internal/observability"
	"github.com/xkilldash9x/smartfill/internal/trigger"
)

const fetchTimeout = 30 * time.Second

type fillOptions struct {
	output string
	live   bool
	wait   bool
	report bool
}

func newFillCmd() *cobra.Command {
	var opts fillOptions

	fillCmd := &cobra.Command{
		Use:   "fill <url|file|->",
		Short: "Fill the form fields of a page",
		Long: `Fill every fillable field of a page from your profile.

Static mode (default) loads the page from a URL, a file or stdin, fills an
in-memory copy and writes the filled HTML to --output or stdout.

Live mode (--live) opens the page in Chrome and fills it in place. With
--wait the browser stays open and the floating "Auto-Fill Form" button
runs the fill again on demand.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			if opts.wait && !opts.live {
				return errors.New("--wait requires --live")
			}
			if opts.live {
				return runLiveFill(cmd, cfg, args[0], opts)
			}
			return runStaticFill(cmd, cfg, args[0], opts)
		},
	}

	fillCmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the filled HTML here instead of stdout (static mode)")
	fillCmd.Flags().BoolVar(&opts.live, "live", false, "fill the page in a Chrome tab")
	fillCmd.Flags().BoolVar(&opts.wait, "wait", false, "keep the browser open and serve the floating fill button (live mode)")
	fillCmd.Flags().BoolVar(&opts.report, "report", false, "print a table of field outcomes to stderr")
	return fillCmd
}

func runStaticFill(cmd *cobra.Command, cfg *config.Config, src string, opts fillOptions) error {
	ctx := cmd.Context()
	logger := observability.GetLogger()

	doc, err := dom.Load(ctx, src, &http.Client{Timeout: fetchTimeout})
	if err != nil {
		return err
	}

	agent, err := newAgent(ctx, cfg, doc, observability.NewMetrics(), logger)
	if err != nil {
		return err
	}

	summary, runErr := agent.FillAll(ctx)
	// Highlights and notifications are transient; the written page carries values only.
	doc.Settle()
	finishRun(cmd, summary, opts.report)
	if runErr != nil {
		return runErr
	}

	page, err := doc.HTML()
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), opts.output, page)
}

func writeOutput(stdout io.Writer, path, content string) error {
	if path == "" || path == "-" {
		_, err := io.WriteString(stdout, content)
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func finishRun(cmd *cobra.Command, summary autofill.Summary, report bool) {
	if report {
		renderReport(cmd.ErrOrStderr(), summary)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), summary.Message())
}

// liveTab is an open Chrome tab with its document.
type liveTab struct {
	manager *browser.Manager
	session *browser.Session
	doc     *browser.LiveDocument
}

func (t *liveTab) close(logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := t.manager.Shutdown(ctx); err != nil {
		logger.Warn("Browser shutdown failed.", zap.Error(err))
	}
}

// openLive launches Chrome and loads src, which may be a URL or a local file.
func openLive(ctx context.Context, cfg *config.Config, src string, logger *zap.Logger) (*liveTab, error) {
	target, err := pageURL(src)
	if err != nil {
		return nil, err
	}

	mgr := browser.NewManager(cfg.Browser(), logger)
	tab := &liveTab{manager: mgr}

	tab.session, err = mgr.NewSession(ctx)
	if err != nil {
		tab.close(logger)
		return nil, err
	}
	if err := tab.session.Navigate(ctx, target); err != nil {
		tab.close(logger)
		return nil, err
	}
	tab.doc, err = browser.NewLiveDocument(ctx, tab.session, logger)
	if err != nil {
		tab.close(logger)
		return nil, err
	}
	return tab, nil
}

// pageURL turns a file path into a file:// URL and passes URLs through.
func pageURL(src string) (string, error) {
	switch {
	case src == "-":
		return "", errors.New("live mode cannot read a page from stdin")
	case strings.Contains(src, "://"), strings.HasPrefix(src, "about:"):
		return src, nil
	}
	abs, err := filepath.Abs(src)
	if err != nil {
		return "", fmt.Errorf("could not resolve page path: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("could not open page: %w", err)
	}
	return "file://" + filepath.ToSlash(abs), nil
}

// installControl wires the floating button in tab to dispatcher.
func installControl(ctx context.Context, tab *liveTab, dispatcher *trigger.Dispatcher, logger *zap.Logger) error {
	onAction := func(action string) {
		resp, _ := dispatcher.Dispatch(ctx, schemas.FillCommand{Action: action})
		logger.Info("Floating control run finished.",
			zap.Bool("success", resp.Success),
			zap.String("message", resp.Message))
	}
	if err := tab.session.InstallControl(ctx, browser.ControlButtonLabel, browser.DefaultBinding, onAction); err != nil {
		return err
	}
	if _, err := tab.doc.EnsureControl(ctx, browser.ControlButtonID, browser.ControlButtonLabel); err != nil {
		return err
	}
	return nil
}

func runLiveFill(cmd *cobra.Command, cfg *config.Config, src string, opts fillOptions) error {
	ctx := cmd.Context()
	logger := observability.GetLogger()

	tab, err := openLive(ctx, cfg, src, logger)
	if err != nil {
		return err
	}
	defer tab.close(logger)

	agent, err := newAgent(ctx, cfg, tab.doc, observability.NewMetrics(), logger)
	if err != nil {
		return err
	}

	summary, err := agent.FillAll(ctx)
	finishRun(cmd, summary, opts.report)
	if err != nil || !opts.wait {
		return err
	}

	if cfg.Browser().TriggerButton {
		if err := installControl(ctx, tab, trigger.NewDispatcher(agent, logger), logger); err != nil {
			return err
		}
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "Browser left open. Press Ctrl+C to exit.")

	select {
	case <-ctx.Done():
	case <-tab.session.Done():
		logger.Info("Browser tab closed.")
	}
	return nil
}
