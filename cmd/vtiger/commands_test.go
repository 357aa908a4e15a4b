package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-vtiger/auth"
	"github.com/jrsteele09/go-vtiger/crmmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCRMServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var result any
		switch r.FormValue("operation") {
		case "getchallenge":
			result = map[string]any{"token": "tok", "expireTime": time.Now().Add(time.Minute).Unix()}
		case "login":
			if r.FormValue("accessKey") != auth.DeriveAccessKey("tok", "key") {
				_, _ = w.Write([]byte(`{"success":false,"error":{"code":"INVALID_USER_CREDENTIALS","message":"bad"}}`))
				return
			}
			result = map[string]string{"sessionName": "sid-cli"}
		case "logout":
			result = map[string]string{"message": "successfull"}
		case "describe":
			result = map[string]any{"name": r.FormValue("elementType"), "fields": []any{}}
		case "create":
			var element map[string]any
			if err := json.Unmarshal([]byte(r.FormValue("element")), &element); err != nil {
				_, _ = w.Write([]byte(`{"success":false,"error":{"code":"MANDATORY_FIELDS_MISSING","message":"bad element"}}`))
				return
			}
			element["id"] = "12x99"
			result = element
		default:
			_, _ = w.Write([]byte(`{"success":false,"error":{"code":"ACCESS_DENIED","message":"denied"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "result": result})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func setEnv(t *testing.T, url string) {
	t.Helper()
	for _, name := range []string{"VTIGER_CONFIG_FILE", "VTIGER_SESSION_KEY", "VTIGER_PERSIST_CONNECTION", "VTIGER_LOG_LEVEL"} {
		t.Setenv(name, "")
	}
	t.Setenv("VTIGER_URL", url)
	t.Setenv("VTIGER_USERNAME", "admin")
	t.Setenv("VTIGER_ACCESSKEY", "key")
	t.Setenv("VTIGER_SESSION_DRIVER", "memory")
	t.Setenv("VTIGER_RETRY_DELAY", "1ms")
	t.Setenv("VTIGER_ENV", "TEST")
	t.Setenv("VTIGER_LOG_LEVEL", "error")
}

func TestCLI_Session(t *testing.T) {
	setEnv(t, newCRMServer(t).URL)
	out, err := runCLI(t, "", "session")
	require.NoError(t, err)
	assert.Equal(t, "sid-cli\n", out)
}

func TestCLI_SessionExpiry(t *testing.T) {
	setEnv(t, newCRMServer(t).URL)
	out, err := runCLI(t, "", "session", "--expiry")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "sid-cli", lines[0])
	expiresAt, err := time.Parse(time.RFC3339, lines[1])
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), expiresAt, 5*time.Second)
}

func TestCLI_Describe(t *testing.T) {
	setEnv(t, newCRMServer(t).URL)
	out, err := runCLI(t, "", "describe", "Contacts")
	require.NoError(t, err)

	var resp crmmodel.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Succeeded())
	assert.Contains(t, string(resp.Result), "Contacts")
}

func TestCLI_CreateFromStdin(t *testing.T) {
	setEnv(t, newCRMServer(t).URL)
	out, err := runCLI(t, `{"lastname":"Smith"}`, "create", "Contacts", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "12x99")

	_, err = runCLI(t, "", "create", "Contacts", "{not json")
	require.Error(t, err)
}

func TestCLI_BusinessFailureExitsNonZero(t *testing.T) {
	setEnv(t, newCRMServer(t).URL)
	out, err := runCLI(t, "", "query", "SELECT * FROM Contacts;")
	require.ErrorIs(t, err, crmmodel.ErrOperationFailed)
	assert.Contains(t, out, "ACCESS_DENIED")
}

func TestCLI_InvalidID(t *testing.T) {
	setEnv(t, newCRMServer(t).URL)
	_, err := runCLI(t, "", "retrieve", "not-an-id")
	require.ErrorIs(t, err, crmmodel.ErrInvalidID)
}

func TestCLI_MissingConfig(t *testing.T) {
	setEnv(t, "")
	_, err := runCLI(t, "", "session")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VTIGER_URL")
}

func TestCLI_Version(t *testing.T) {
	out, err := runCLI(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, version)
}
