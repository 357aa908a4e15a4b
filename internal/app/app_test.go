package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-vtiger/auth"
	"github.com/jrsteele09/go-vtiger/internal/app"
	"github.com/jrsteele09/go-vtiger/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAccessKey = "secretkey"

// fakeCRM answers the webservice operations the way the server does.
type fakeCRM struct {
	lock     sync.Mutex
	token    string
	sessions map[string]bool
	calls    map[string]int
}

func newFakeCRM() *fakeCRM {
	return &fakeCRM{token: "tok-1", sessions: make(map[string]bool), calls: make(map[string]int)}
}

func (f *fakeCRM) count(op string) int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.calls[op]
}

func (f *fakeCRM) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.lock.Lock()
	defer f.lock.Unlock()

	op := r.FormValue("operation")
	f.calls[op]++

	var result any
	switch op {
	case "getchallenge":
		result = map[string]any{"token": f.token, "serverTime": time.Now().Unix(), "expireTime": time.Now().Add(5 * time.Minute).Unix()}
	case "login":
		if r.Method != http.MethodPost || r.FormValue("accessKey") != auth.DeriveAccessKey(f.token, testAccessKey) {
			writeFailure(w, "INVALID_USER_CREDENTIALS", "Invalid username or password")
			return
		}
		id := fmt.Sprintf("sid-%d", f.calls["login"])
		f.sessions[id] = true
		result = map[string]string{"sessionName": id, "userId": "19x1"}
	case "logout":
		delete(f.sessions, r.FormValue("sessionName"))
		result = map[string]string{"message": "successfull"}
	case "query":
		if !f.sessions[r.FormValue("sessionName")] {
			writeFailure(w, "INVALID_SESSIONID", "Session Identifier provided is Invalid")
			return
		}
		result = []map[string]string{{"id": "12x1", "lastname": "Smith"}}
	default:
		writeFailure(w, "INVALID_OPERATION", "unsupported")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "result": result})
}

func writeFailure(w http.ResponseWriter, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   map[string]string{"code": code, "message": message},
	})
}

func setEnv(t *testing.T, url string, extra map[string]string) {
	t.Helper()
	for _, name := range []string{"VTIGER_CONFIG_FILE", "VTIGER_SESSION_KEY", "VTIGER_PERSIST_CONNECTION", "VTIGER_MAX_RETRIES", "VTIGER_OPERATION_RETRIES"} {
		t.Setenv(name, "")
	}
	t.Setenv("VTIGER_URL", url)
	t.Setenv("VTIGER_USERNAME", "admin")
	t.Setenv("VTIGER_ACCESSKEY", testAccessKey)
	t.Setenv("VTIGER_SESSION_DRIVER", "memory")
	t.Setenv("VTIGER_RETRY_DELAY", "1ms")
	for k, v := range extra {
		t.Setenv(k, v)
	}
}

func TestApp_QueryAgainstServer(t *testing.T) {
	crmServer := newFakeCRM()
	ts := httptest.NewServer(crmServer)
	defer ts.Close()
	setEnv(t, ts.URL+"/webservice.php", nil)

	a, err := app.New(config.New(), app.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	defer a.Close()

	for i := 0; i < 2; i++ {
		resp, err := a.Client.Query(context.Background(), "SELECT * FROM Contacts;")
		require.NoError(t, err)
		require.True(t, resp.Succeeded())
	}
	assert.Equal(t, 1, crmServer.count("getchallenge"))
	assert.Equal(t, 2, crmServer.count("login"))
	assert.Equal(t, 2, crmServer.count("logout"))
}

func TestApp_PersistentFileSessionSurvivesRestart(t *testing.T) {
	crmServer := newFakeCRM()
	ts := httptest.NewServer(crmServer)
	defer ts.Close()
	setEnv(t, ts.URL+"/webservice.php", map[string]string{
		"VTIGER_SESSION_DRIVER":     "file",
		"VTIGER_SESSION_FILE":       t.TempDir(),
		"VTIGER_PERSIST_CONNECTION": "true",
	})

	for i := 0; i < 2; i++ {
		a, err := app.New(config.New(), app.WithLogger(zerolog.Nop()))
		require.NoError(t, err)
		resp, err := a.Client.Query(context.Background(), "SELECT * FROM Contacts;")
		require.NoError(t, err)
		require.True(t, resp.Succeeded())
		require.NoError(t, a.Close())
	}
	assert.Equal(t, 1, crmServer.count("getchallenge"))
	assert.Equal(t, 1, crmServer.count("login"))
	assert.Equal(t, 0, crmServer.count("logout"))
	assert.Equal(t, 2, crmServer.count("query"))
}

func TestApp_ServerSideSessionLossRecovers(t *testing.T) {
	crmServer := newFakeCRM()
	ts := httptest.NewServer(crmServer)
	defer ts.Close()
	setEnv(t, ts.URL+"/webservice.php", map[string]string{"VTIGER_PERSIST_CONNECTION": "true"})

	a, err := app.New(config.New(), app.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Client.Query(context.Background(), "SELECT * FROM Contacts;")
	require.NoError(t, err)

	crmServer.lock.Lock()
	crmServer.sessions = make(map[string]bool)
	crmServer.lock.Unlock()

	resp, err := a.Client.Query(context.Background(), "SELECT * FROM Contacts;")
	require.NoError(t, err)
	assert.Equal(t, "INVALID_SESSIONID", resp.ErrorCode())

	resp, err = a.Client.Query(context.Background(), "SELECT * FROM Contacts;")
	require.NoError(t, err)
	assert.True(t, resp.Succeeded())
	assert.Equal(t, 2, crmServer.count("login"))
}

func TestApp_InvalidConfig(t *testing.T) {
	setEnv(t, "", map[string]string{"VTIGER_SESSION_DRIVER": "mongo"})
	_, err := app.New(config.New())
	require.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := app.NewLogger(&buf, "PROD", "warn")
	logger.Info().Msg("hidden")
	logger.Warn().Str("k", "v").Msg("shown")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["message"])
	assert.Equal(t, "warn", line["level"])

	buf.Reset()
	logger = app.NewLogger(&buf, "DEV", "nonsense")
	logger.Info().Msg("console")
	assert.Contains(t, buf.String(), "console")
	assert.NotContains(t, buf.String(), "{")
}
