package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/tartampluch/go-vcf/internal/config"
	"github.com/tartampluch/go-vcf/internal/engine"
)

const (
	johnDoe = "BEGIN:VCARD\r\nVERSION:4.0\r\nFN:John Doe\r\nN:Doe;John;;;\r\nBDAY:19850615\r\nEND:VCARD\r\n"
	janeDoe = "BEGIN:VCARD\r\nVERSION:4.0\r\nFN:Jane Doe\r\nBDAY:--0704\r\nANNIVERSARY:20100501\r\nEND:VCARD\r\n"
)

type result struct {
	stdout string
	stderr string
	code   int
}

// runCLI executes the application with an empty settings location so the
// user's real configuration is never read.
func runCLI(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	env := &appEnv{
		stdin:   strings.NewReader(stdin),
		stdout:  &stdout,
		stderr:  &stderr,
		fetcher: engine.NewHTTPFetcher(),
	}
	defer env.close()

	full := append([]string{config.CommandName, "--" + config.FlagConfig, filepath.Join(t.TempDir(), "absent.yaml")}, args...)
	code := run(context.Background(), env, full)
	return result{stdout: stdout.String(), stderr: stderr.String(), code: code}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	res := runCLI(t, "", "--version")
	assert.Equal(t, config.ExitCodeSuccess, res.code)
	assert.Contains(t, res.stdout, config.AppName)
	assert.Contains(t, res.stdout, config.Version)
}

func TestMissingArguments(t *testing.T) {
	res := runCLI(t, "", config.CmdRename, "only-one.vcf")
	assert.Equal(t, config.ExitCodeError, res.code)
	assert.Contains(t, res.stderr, config.ErrArgsMissing)
}

func TestInvalidSettingsFile(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "settings.yaml", "language: de\n")
	path := writeFile(t, dir, "john.vcf", johnDoe)

	var stdout, stderr bytes.Buffer
	env := &appEnv{stdin: strings.NewReader(""), stdout: &stdout, stderr: &stderr}
	code := run(context.Background(), env, []string{config.CommandName, "--config", cfg, config.CmdShow, path})

	assert.Equal(t, config.ExitCodeError, code)
	assert.Contains(t, stderr.String(), config.ErrSettingsLanguage)
}

func TestShow(t *testing.T) {
	path := writeFile(t, t.TempDir(), "john.vcf", johnDoe)

	res := runCLI(t, "", config.CmdShow, path)
	require.Equal(t, config.ExitCodeSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "John Doe")
	assert.Contains(t, res.stdout, "19850615")
}

func TestShow_LocalizedErrors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.vcf")

	res := runCLI(t, "", config.CmdShow, missing)
	assert.Equal(t, config.ExitCodeError, res.code)
	assert.Contains(t, res.stderr, "Invalid file")

	res = runCLI(t, "", "--lang", "fr", config.CmdShow, missing)
	assert.Equal(t, config.ExitCodeError, res.code)
	assert.Contains(t, res.stderr, "Fichier invalide")
}

func TestShow_Strict(t *testing.T) {
	path := writeFile(t, t.TempDir(), "junk.vcf", "junk\r\n"+johnDoe)

	assert.Equal(t, config.ExitCodeSuccess, runCLI(t, "", config.CmdShow, path).code)

	res := runCLI(t, "", "--strict", config.CmdShow, path)
	assert.Equal(t, config.ExitCodeError, res.code)
	assert.Contains(t, res.stderr, "Invalid card")
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.vcf", johnDoe)
	writeFile(t, dir, "b.vcf", "BEGIN:VCARD\r\nFN:x\r\nEND:VCARD\r\n")
	writeFile(t, dir, "notes.txt", "x")

	res := runCLI(t, "", config.CmdList, dir)
	require.Equal(t, config.ExitCodeSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "a.vcf\n")
	assert.Contains(t, res.stdout, "John Doe")
	assert.Contains(t, res.stdout, "b.vcf\nError: INV_CARD")
	assert.NotContains(t, res.stdout, "notes.txt")
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.vcf", johnDoe)
	bad := writeFile(t, dir, "bad.vcf", "BEGIN:VCARD\r\nVERSION:4.0\r\nFN:x\r\nN:a;b\r\nEND:VCARD\r\n")

	res := runCLI(t, "", config.CmdValidate, good)
	assert.Equal(t, config.ExitCodeSuccess, res.code)
	assert.Equal(t, good+": OK\n", res.stdout)

	res = runCLI(t, "", config.CmdValidate, good, bad)
	assert.Equal(t, config.ExitCodeError, res.code)
	assert.Contains(t, res.stdout, good+": OK\n")
	assert.Contains(t, res.stdout, bad+": Invalid property")
}

func TestRenameNewCopy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fresh.vcf")

	require.Equal(t, config.ExitCodeSuccess, runCLI(t, "", config.CmdNew, path, "Fresh").code)
	require.Equal(t, config.ExitCodeSuccess, runCLI(t, "", config.CmdRename, path, "Renamed").code)

	dst := filepath.Join(dir, "copy.vcard")
	require.Equal(t, config.ExitCodeSuccess, runCLI(t, "", config.CmdCopy, path, dst).code)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "BEGIN:VCARD\r\nVERSION:4.0\r\nFN:Renamed\r\nEND:VCARD\r\n", string(data))

	res := runCLI(t, "", config.CmdNew, path, "Again")
	assert.Equal(t, config.ExitCodeError, res.code)
	assert.Contains(t, res.stderr, "Invalid file")
}

func TestFormat(t *testing.T) {
	dir := t.TempDir()
	folded := "BEGIN:VCARD\r\nversion:4.0\r\nFN:John\r\n  Doe\r\nEND:VCARD\r\n" + janeDoe
	path := writeFile(t, dir, "in.vcf", folded)

	res := runCLI(t, "", config.CmdFormat, path)
	require.Equal(t, config.ExitCodeSuccess, res.code, res.stderr)
	assert.Equal(t, "BEGIN:VCARD\r\nVERSION:4.0\r\nFN:John Doe\r\nEND:VCARD\r\n"+janeDoe, res.stdout)

	out := filepath.Join(dir, "out.vcf")
	long := writeFile(t, dir, "long.vcf", "BEGIN:VCARD\r\nVERSION:4.0\r\nFN:"+strings.Repeat("x", 100)+"\r\nEND:VCARD\r\n")
	res = runCLI(t, "", "--fold", "75", config.CmdFormat, "--output", out, long)
	require.Equal(t, config.ExitCodeSuccess, res.code, res.stderr)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\r\n ")
}

func TestIndexContactsBirthdays(t *testing.T) {
	dir := t.TempDir()
	cards := filepath.Join(dir, "cards")
	require.NoError(t, os.Mkdir(cards, 0o755))
	writeFile(t, cards, "john.vcf", johnDoe)
	writeFile(t, cards, "jane.vcf", janeDoe)
	db := filepath.Join(dir, "index.db")

	res := runCLI(t, "", config.CmdIndex, "--db", db, cards)
	require.Equal(t, config.ExitCodeSuccess, res.code, res.stderr)
	assert.Equal(t, "2 contacts indexed\n", res.stdout)

	res = runCLI(t, "", config.CmdContacts, "--db", db)
	require.Equal(t, config.ExitCodeSuccess, res.code, res.stderr)
	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Name")
	assert.Contains(t, lines[1], "Jane Doe")
	assert.Contains(t, lines[1], "20100501")
	assert.Contains(t, lines[2], "John Doe")
	assert.Contains(t, lines[2], "N/A")

	res = runCLI(t, "", config.CmdBirthdays, "--db", db, "--month", "7")
	require.Equal(t, config.ExitCodeSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Jane Doe")
	assert.NotContains(t, res.stdout, "John Doe")

	res = runCLI(t, "", config.CmdBirthdays, "--db", db, "--date", "2024-06-01")
	require.Equal(t, config.ExitCodeSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "John Doe")

	res = runCLI(t, "", config.CmdBirthdays, "--db", db, "--month", "13")
	assert.Equal(t, config.ExitCodeError, res.code)
	assert.Contains(t, res.stderr, config.ErrMonthRange)
}

func TestUpcoming(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "john.vcf", johnDoe)
	writeFile(t, dir, "jane.vcf", janeDoe)

	res := runCLI(t, "", config.CmdUpcoming, "--date", "2024-06-01", dir)
	require.Equal(t, config.ExitCodeSuccess, res.code, res.stderr)
	assert.Equal(t,
		"2024-06-15  Birthday: John Doe (39)\n"+
			"2024-07-04  Birthday: Jane Doe\n"+
			"2025-05-01  Anniversary: Jane Doe (15)\n",
		res.stdout)
}

func TestCalendar(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "john.vcf", johnDoe)
	out := filepath.Join(dir, "feed.ics")

	res := runCLI(t, "", config.CmdCalendar, "--date", "2024-06-01", "--reminder", "-P1D", "--output", out, path)
	require.Equal(t, config.ExitCodeSuccess, res.code, res.stderr)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	ics := string(data)
	assert.Contains(t, ics, "BEGIN:VCALENDAR")
	assert.Contains(t, ics, "SUMMARY:Birthday: John Doe (39)")
	assert.Contains(t, ics, "TRIGGER:-P1D")

	res = runCLI(t, "", "--lang", "fr", config.CmdCalendar, "--date", "2024-06-01", path)
	require.Equal(t, config.ExitCodeSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Anniversaire : John Doe (39 ans)")
}

func TestCalendar_NoSource(t *testing.T) {
	res := runCLI(t, "", config.CmdCalendar)
	assert.Equal(t, config.ExitCodeError, res.code)
	assert.Contains(t, res.stderr, config.ErrArgsMissing)
}

func TestFetch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(johnDoe + janeDoe))
	}))
	defer ts.Close()

	res := runCLI(t, "", config.CmdFetch, "--url", ts.URL)
	require.Equal(t, config.ExitCodeSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "John Doe")
	assert.Contains(t, res.stdout, "Jane Doe")

	out := filepath.Join(t.TempDir(), "remote.vcf")
	res = runCLI(t, "", config.CmdFetch, "--url", ts.URL, "--output", out)
	require.Equal(t, config.ExitCodeSuccess, res.code, res.stderr)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, johnDoe+janeDoe, string(data))
}

func TestFetch_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	res := runCLI(t, "", config.CmdFetch, "--url", ts.URL)
	assert.Equal(t, config.ExitCodeError, res.code)
	assert.Contains(t, res.stderr, "500")
}

func TestPassword(t *testing.T) {
	keyring.MockInit()

	res := runCLI(t, "s3cret\n", config.CmdPassword, "bob")
	require.Equal(t, config.ExitCodeSuccess, res.code, res.stderr)
	assert.Equal(t, "s3cret", engine.Password("bob"))

	res = runCLI(t, "\n", config.CmdPassword, "bob")
	assert.Equal(t, config.ExitCodeError, res.code)
	assert.Contains(t, res.stderr, config.ErrPasswordEmpty)
}

func TestQRScanRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "john.vcf", johnDoe)
	png := filepath.Join(dir, "john.png")

	res := runCLI(t, "", config.CmdQR, "--size", "512", "--output", png, path)
	require.Equal(t, config.ExitCodeSuccess, res.code, res.stderr)

	res = runCLI(t, "", config.CmdScan, png)
	require.Equal(t, config.ExitCodeSuccess, res.code, res.stderr)
	assert.Equal(t, johnDoe, res.stdout)

	out := filepath.Join(dir, "scanned.vcf")
	res = runCLI(t, "", config.CmdScan, "--output", out, png)
	require.Equal(t, config.ExitCodeSuccess, res.code, res.stderr)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, johnDoe, string(data))

	res = runCLI(t, "", config.CmdScan, path)
	assert.Equal(t, config.ExitCodeError, res.code)
}

func TestServe_InvalidPort(t *testing.T) {
	path := writeFile(t, t.TempDir(), "john.vcf", johnDoe)

	res := runCLI(t, "", config.CmdServe, "--port", "99999", path)
	assert.Equal(t, config.ExitCodeError, res.code)
	assert.Contains(t, res.stderr, config.ErrPortRange)
}

func TestRefreshLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	done := make(chan struct{})

	go func() {
		refreshLoop(ctx, 5*time.Millisecond, func(context.Context) error {
			if calls.Add(1) == 1 {
				return errors.New("transient")
			}
			return nil
		})
		close(done)
	}()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond,
		"a failed refresh must not stop the loop")
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh loop did not stop on cancellation")
	}
}
