package trigger

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/smartfill/api/schemas"
	"github.com/xkilldash9x/smartfill/internal/autofill"
	"github.com/xkilldash9x/smartfill/internal/config"
	"github.com/xkilldash9x/smartfill/internal/dom"
	"github.com/xkilldash9x/smartfill/internal/form"
	"github.com/xkilldash9x/smartfill/internal/observability"
)

type runnerFunc func(ctx context.Context) (autofill.Summary, error)

func (f runnerFunc) FillAll(ctx context.Context) (autofill.Summary, error) { return f(ctx) }

func filled(n int) runnerFunc {
	return func(context.Context) (autofill.Summary, error) {
		return autofill.Summary{RunID: "run-1", Filled: n}, nil
	}
}

func testConfig() config.TriggerConfig {
	return config.TriggerConfig{
		ListenAddr:     "127.0.0.1:0",
		RequestTimeout: 5 * time.Second,
		AllowedOrigins: []string{"*"},
	}
}

func newTestServer(t *testing.T, cfg config.TriggerConfig, runner Runner, metrics *observability.Metrics) *httptest.Server {
	t.Helper()
	s := NewServer(cfg, runner, metrics, zaptest.NewLogger(t))
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postCommand(t *testing.T, srv *httptest.Server, body string) (int, string) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/v1/command", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t, testConfig(), filled(0), nil)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
}

func TestHandleCommand(t *testing.T) {
	testCases := []struct {
		name       string
		runner     Runner
		body       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "fill succeeds",
			runner:     filled(2),
			body:       `{"action":"fillForm"}`,
			wantStatus: http.StatusOK,
			wantBody:   `{"success":true,"message":"Filled 2 elements"}`,
		},
		{
			name:       "request id is echoed",
			runner:     filled(0),
			body:       `{"action":"fillForm","request_id":"abc"}`,
			wantStatus: http.StatusOK,
			wantBody:   `{"success":true,"message":"Filled 0 elements","request_id":"abc"}`,
		},
		{
			name: "busy",
			runner: runnerFunc(func(context.Context) (autofill.Summary, error) {
				return autofill.Summary{}, autofill.ErrBusy
			}),
			body:       `{"action":"fillForm"}`,
			wantStatus: http.StatusConflict,
			wantBody:   `{"success":false,"message":"` + autofill.ErrBusy.Error() + `"}`,
		},
		{
			name: "run error",
			runner: runnerFunc(func(context.Context) (autofill.Summary, error) {
				return autofill.Summary{}, errors.New("page gone")
			}),
			body:       `{"action":"fillForm"}`,
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"success":false,"message":"page gone"}`,
		},
		{
			name:       "unknown action",
			runner:     filled(0),
			body:       `{"action":"scrape"}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"success":false,"message":"unknown action: \"scrape\""}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t, testConfig(), tc.runner, nil)
			status, body := postCommand(t, srv, tc.body)
			assert.Equal(t, tc.wantStatus, status)
			assert.JSONEq(t, tc.wantBody, body)
		})
	}
}

func TestHandleCommand_BadBodyNeverRuns(t *testing.T) {
	var calls atomic.Int32
	runner := runnerFunc(func(context.Context) (autofill.Summary, error) {
		calls.Add(1)
		return autofill.Summary{}, nil
	})
	srv := newTestServer(t, testConfig(), runner, nil)

	status, body := postCommand(t, srv, `{not json`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "invalid request body")

	status, _ = postCommand(t, srv, `{"action":"other"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Zero(t, calls.Load())
}

func TestCORS(t *testing.T) {
	cfg := testConfig()
	cfg.AllowedOrigins = []string{"https://jobs.example.com"}
	srv := newTestServer(t, cfg, filled(0), nil)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/v1/command", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://jobs.example.com")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://jobs.example.com", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://evil.example.com")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	metrics := observability.NewMetrics()
	metrics.ObserveRun("ok", time.Second)
	srv := newTestServer(t, testConfig(), filled(0), metrics)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `smartfill_runs_total{result="ok"} 1`)

	withoutMetrics := newTestServer(t, testConfig(), filled(0), nil)
	resp2, err := http.Get(withoutMetrics.URL + "/metrics")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func dialFill(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/v1/fill"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	return conn
}

func TestFillSocket(t *testing.T) {
	srv := newTestServer(t, testConfig(), filled(3), nil)
	conn := dialFill(t, srv)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	require.NoError(t, conn.WriteJSON(schemas.FillCommand{Action: schemas.ActionFillForm, RequestID: "r1"}))
	var resp schemas.FillResponse
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, schemas.FillResponse{Success: true, Message: "Filled 3 elements", RequestID: "r1"}, resp)

	require.NoError(t, conn.WriteJSON(schemas.FillCommand{Action: "nope", RequestID: "r2"}))
	resp = schemas.FillResponse{}
	require.NoError(t, conn.ReadJSON(&resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "r2", resp.RequestID)
	assert.Contains(t, resp.Message, "unknown action")

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
}

func TestFillSocket_DisconnectCancelsRun(t *testing.T) {
	started := make(chan struct{})
	cancelled := make(chan struct{})
	runner := runnerFunc(func(ctx context.Context) (autofill.Summary, error) {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return autofill.Summary{}, ctx.Err()
	})
	srv := newTestServer(t, testConfig(), runner, nil)
	conn := dialFill(t, srv)

	require.NoError(t, conn.WriteJSON(schemas.FillCommand{Action: schemas.ActionFillForm}))
	<-started
	require.NoError(t, conn.Close())

	select {
	case <-cancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("run was not cancelled after the client went away")
	}
}

func TestFillSocket_RejectsForeignOrigin(t *testing.T) {
	cfg := testConfig()
	cfg.AllowedOrigins = []string{"https://jobs.example.com"}
	srv := newTestServer(t, cfg, filled(0), nil)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/v1/fill"
	header := http.Header{"Origin": []string{"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

type mockResolver struct{ mock.Mock }

func (m *mockResolver) Resolve(ctx context.Context, fc form.FieldContext) (string, bool) {
	args := m.Called(ctx, fc)
	return args.String(0), args.Bool(1)
}

func TestHandleCommand_WithAgent(t *testing.T) {
	doc, err := dom.ParseString(`<html><body><form>
		<label for="email">Email</label><input id="email" type="email">
		<input id="name" name="full_name" value="Ada">
	</form></body></html>`)
	require.NoError(t, err)
	t.Cleanup(doc.Settle)

	res := &mockResolver{}
	res.On("Resolve", mock.Anything, mock.Anything).Return("a@b.com", true).Once()

	settings := autofill.DefaultSettings()
	settings.Pacing = 0
	settings.NotifyDuration = 10 * time.Millisecond
	agent, err := autofill.New(doc, res, zaptest.NewLogger(t), autofill.WithSettings(settings))
	require.NoError(t, err)

	srv := newTestServer(t, testConfig(), agent, nil)
	status, body := postCommand(t, srv, `{"action":"fillForm"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"success":true,"message":"Filled 1 elements"}`, body)
	assert.Equal(t, "a@b.com", dom.Value(dom.ElementByID(doc.Root(), "email")))
	res.AssertExpectations(t)
}
