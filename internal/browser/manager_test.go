package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/smartfill/internal/config"
	"github.com/xkilldash9x/smartfill/internal/dom"
)

func TestExecOptions(t *testing.T) {
	base := len(ExecOptions(config.BrowserConfig{}))

	full := ExecOptions(config.BrowserConfig{
		Headless:        true,
		IgnoreTLSErrors: true,
		ExecPath:        "/usr/bin/chromium",
		Args:            []string{"--window-size=1280,720", "disable-extensions"},
	})
	assert.Len(t, full, base+5)
}

// chromeAvailable reports whether a Chrome or Chromium binary is on PATH.
func chromeAvailable() bool {
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "chrome"} {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}
	return false
}

func setupSession(t *testing.T) *Session {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser integration test in short mode")
	}
	if !chromeAvailable() {
		t.Skip("no Chrome or Chromium binary found")
	}

	mgr := NewManager(config.BrowserConfig{Headless: true, IgnoreTLSErrors: true}, zaptest.NewLogger(t))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = mgr.Shutdown(ctx)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s, err := mgr.NewSession(ctx)
	require.NoError(t, err)
	return s
}

const formPage = `<!DOCTYPE html><html><body><form>
<label for="email">Email</label><input id="email" type="email">
<input id="hidden" type="text" style="display:none">
<select id="country"><option value="">Choose</option><option>India</option></select>
<input id="agree" type="checkbox">
</form></body></html>`

func TestLiveDocument_AgainstChrome(t *testing.T) {
	s := setupSession(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, formPage)
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, s.Navigate(ctx, srv.URL))

	d, err := NewLiveDocument(ctx, s, zaptest.NewLogger(t))
	require.NoError(t, err)
	root := d.Root()

	email := dom.ElementByID(root, "email")
	require.NotNil(t, email)
	assert.True(t, d.Visible(email))
	assert.False(t, d.Visible(dom.ElementByID(root, "hidden")))

	require.NoError(t, d.SetValue(ctx, email, "a@b.com"))
	require.NoError(t, d.SelectIndex(ctx, dom.ElementByID(root, "country"), 1))
	require.NoError(t, d.SetChecked(ctx, dom.ElementByID(root, "agree"), true))

	var got struct {
		Email   string `json:"email"`
		Country string `json:"country"`
		Agree   bool   `json:"agree"`
	}
	require.NoError(t, s.ExecuteScript(ctx, `({
		email: document.getElementById("email").value,
		country: document.getElementById("country").value,
		agree: document.getElementById("agree").checked,
	})`, &got))
	assert.Equal(t, "a@b.com", got.Email)
	assert.Equal(t, "India", got.Country)
	assert.True(t, got.Agree)

	// A fresh snapshot sees the live state.
	require.NoError(t, d.Refresh(ctx))
	assert.Equal(t, "a@b.com", dom.Value(dom.ElementByID(d.Root(), "email")))
	assert.True(t, dom.Checked(dom.ElementByID(d.Root(), "agree")))
}

func TestInstallControl_AgainstChrome(t *testing.T) {
	s := setupSession(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, formPage)
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, s.Navigate(ctx, srv.URL))

	actions := make(chan string, 1)
	require.NoError(t, s.InstallControl(ctx, ControlButtonLabel, DefaultBinding, func(action string) { actions <- action }))

	d, err := NewLiveDocument(ctx, s, zaptest.NewLogger(t))
	require.NoError(t, err)
	created, err := d.EnsureControl(ctx, ControlButtonID, ControlButtonLabel)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = d.EnsureControl(ctx, ControlButtonID, ControlButtonLabel)
	require.NoError(t, err)
	assert.False(t, created, "second insert is a no-op")

	var clicked bool
	require.NoError(t, s.ExecuteScript(ctx,
		`(() => { const b = document.getElementById("smart-autofill-btn"); if (!b) return false; b.click(); return true; })()`,
		&clicked))
	require.True(t, clicked)

	select {
	case a := <-actions:
		assert.Equal(t, "fillForm", a)
	case <-ctx.Done():
		t.Fatal("binding was never called")
	}

	// The button survives a reload.
	require.NoError(t, s.Navigate(ctx, srv.URL))
	var present bool
	require.NoError(t, s.ExecuteScript(ctx, `!!document.getElementById("smart-autofill-btn")`, &present))
	assert.True(t, present)
}
