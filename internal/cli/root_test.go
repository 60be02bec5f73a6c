package cli

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commerce3d/api/internal/app"
	"commerce3d/api/internal/install"
	"commerce3d/api/internal/session"
)

type harness struct {
	server    *httptest.Server
	tokenFile string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log, _ := logtest.NewNullLogger()
	dir := t.TempDir()
	registry := install.NewRegistry(install.NewFileBackend(filepath.Join(dir, "config.json")), log)
	svc := app.New(registry, session.NewMemoryStore(), log)
	srv := httptest.NewServer(app.NewHTTPServer(svc, "*").Handler())
	t.Cleanup(srv.Close)
	return &harness{server: srv, tokenFile: filepath.Join(dir, "session")}
}

func (h *harness) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--server", h.server.URL, "--token-file", h.tokenFile}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "installctl", cmd.Use)

	for _, name := range []string{"status", "setup", "login", "logout", "session", "reset", "open"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "", "--format", "yaml", "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestSetupUnattendedThenSession(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Installed: no")

	out, err = h.run(t, "", "setup", "--email", "a@b.com", "--usage", "company")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as a@b.com")

	raw, err := os.ReadFile(h.tokenFile)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "sess_"))

	out, err = h.run(t, "", "session")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as a@b.com")

	out, err = h.run(t, "", "--format", "json", "status")
	require.NoError(t, err)
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	data := resp.Data.(map[string]any)
	assert.Equal(t, true, data["installed"])
	assert.Equal(t, "a@b.com", data["adminEmail"])

	_, err = h.run(t, "", "setup", "--email", "c@d.com")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestSetupInteractiveRetriesEmail(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "nobody\na@b.com\nsmall_business\ny\n", "setup")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as a@b.com")

	status, err := h.run(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, status, "Admin: a@b.com")
}

func TestSetupInteractiveEOFAborts(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "", "setup")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSetupUnattendedRejectsBadEmail(t *testing.T) {
	h := newHarness(t)
	out, err := h.run(t, "", "setup", "--email", "nobody")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "VALIDATION_ERROR")
}

func TestLoginLogoutOpen(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "", "setup", "--email", "a@b.com")
	require.NoError(t, err)

	out, err := h.run(t, "", "open", "/dashboard/orders")
	require.NoError(t, err)
	assert.Contains(t, out, "Dashboard")

	_, err = h.run(t, "", "logout")
	require.NoError(t, err)
	_, err = os.Stat(h.tokenFile)
	assert.True(t, os.IsNotExist(err))

	out, err = h.run(t, "", "open", "/settings")
	require.NoError(t, err)
	assert.Contains(t, out, "Sign in")

	out, err = h.run(t, "", "login", "wrong@b.com")
	require.Error(t, err)
	assert.Contains(t, out, "INVALID_CREDENTIALS")

	_, err = h.run(t, "", "login", "a@b.com")
	require.NoError(t, err)

	_, err = h.run(t, "", "session")
	require.NoError(t, err)
}

func TestResetRequiresConfirmation(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "", "setup", "--email", "a@b.com")
	require.NoError(t, err)

	_, err = h.run(t, "", "reset")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = h.run(t, "", "reset", "--yes")
	require.NoError(t, err)

	out, err := h.run(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Installed: no")

	_, err = h.run(t, "", "session")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()

	cmd := NewRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--server", url, "--token-file", filepath.Join(t.TempDir(), "s"), "status"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "NETWORK_ERROR")
}

func TestFormatterErrWriterFallback(t *testing.T) {
	out := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: out}
	assert.Same(t, out, f.GetErrWriter())

	errOut := &bytes.Buffer{}
	f.ErrWriter = errOut
	assert.Same(t, errOut, f.GetErrWriter())
}

func TestSetupPromptsGoToStderr(t *testing.T) {
	h := newHarness(t)
	cmd := NewRootCommand()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetIn(strings.NewReader("a@b.com\n\ny\n"))
	cmd.SetArgs([]string{"--server", h.server.URL, "--token-file", h.tokenFile, "setup"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, stderr.String(), "Admin email: ")
	assert.NotContains(t, stdout.String(), "Admin email: ")
	assert.Contains(t, stdout.String(), "Signed in as a@b.com")
}
