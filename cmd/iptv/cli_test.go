package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"iptv/internal/config"
	"iptv/internal/history"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	distDir    string
	tmpDir     string
	stateDir   string
}

const testCatalog = `CATE:央视
CCTV1
CCTV2
CATE:卫视
湖南卫视
`

const testM3U = `#EXTM3U
#EXTINF:-1 group-title="央视",CCTV1
http://a.example:80/cctv1$线路1
#EXTINF:-1 group-title="卫视",湖南卫视
http://c.example/hunan
#EXTINF:-1 group-title="其他",Unknown TV
http://d.example/unknown
`

const testTXT = `央视,#genre#
CCTV1,http://a.example/cctv1
CCTV2,http://b.example/cctv2
`

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	for _, key := range []string{"IPTV_CONFIG", "IPTV_CHANNEL", "IPTV_DIST", "IPTV_TMP", "NTFY_TOPIC"} {
		t.Setenv(key, "")
	}
	t.Setenv("DEBUG", "")
	if err := os.Unsetenv("DEBUG"); err != nil {
		t.Fatalf("unset DEBUG: %v", err)
	}

	env := &cliTestEnv{
		baseDir:    base,
		configPath: filepath.Join(base, "config.toml"),
		distDir:    filepath.Join(base, "dist"),
		tmpDir:     filepath.Join(base, "tmp"),
		stateDir:   filepath.Join(base, "state"),
	}
	channelFile := filepath.Join(base, "channel.txt")
	m3u := filepath.Join(base, "a.m3u")
	txt := filepath.Join(base, "b.txt")
	writeFile(t, channelFile, testCatalog)
	writeFile(t, m3u, testM3U)
	writeFile(t, txt, testTXT)

	cfg := fmt.Sprintf(`[paths]
channel_file = %q
dist_dir = %q
tmp_dir = %q
state_dir = %q

[sources]
urls = [%q, %q, %q]
request_timeout = 5
concurrency = 2

[channels]
limit = 10

[export]
disable_info = true
`, channelFile, env.distDir, env.tmpDir, env.stateDir, m3u, txt, filepath.Join(base, "missing.m3u"))
	writeFile(t, env.configPath, cfg)
	return env
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

func TestRunExportsMergedPlaylists(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, []string{"run"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	requireContains(t, out, "3/3 populated")
	requireContains(t, out, "2 ok, 1 failed")

	txt, err := os.ReadFile(filepath.Join(env.distDir, "live.txt"))
	if err != nil {
		t.Fatalf("read live.txt: %v", err)
	}
	body := string(txt)
	requireContains(t, body, "CCTV1,http://a.example/cctv1$IPv4『线路1』")
	requireContains(t, body, "湖南卫视,http://c.example/hunan$IPv4『线路1』")
	if strings.Contains(body, "Unknown TV") {
		t.Fatalf("unknown channel leaked into export:\n%s", body)
	}
	if strings.Count(body, "http://a.example") != 1 {
		t.Fatalf("expected CCTV1 duplicates to merge into one line:\n%s", body)
	}
	if _, err := os.Stat(filepath.Join(env.distDir, "live.m3u")); err != nil {
		t.Fatalf("expected live.m3u: %v", err)
	}
	if _, err := os.Stat(filepath.Join(env.tmpDir, "channel.json")); err != nil {
		t.Fatalf("expected channel.json: %v", err)
	}
	if _, err := os.Stat(filepath.Join(env.tmpDir, "source.json")); !os.IsNotExist(err) {
		t.Fatalf("source.json should only be written with diagnostics, stat err = %v", err)
	}
}

func TestRunRecordsHistory(t *testing.T) {
	env := setupCLITestEnv(t)

	if out, err := runCLI(t, []string{"run", "--dry-run"}, env.configPath); err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	if _, err := os.Stat(filepath.Join(env.distDir, "live.txt")); !os.IsNotExist(err) {
		t.Fatalf("dry run must not export, stat err = %v", err)
	}

	store, err := history.Open(filepath.Join(env.stateDir, "history.db"))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	runs, err := store.Recent(context.Background(), 5)
	_ = store.Close()
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected one recorded run, got %d", len(runs))
	}
	run := runs[0]
	if run.Status != history.StatusPartial || run.SourcesFailed != 1 || run.Populated != 3 {
		t.Fatalf("unexpected run: %#v", run)
	}

	out, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, run.ID)

	out, err = runCLI(t, []string{"history", "--run", run.ID}, env.configPath)
	if err != nil {
		t.Fatalf("history --run: %v", err)
	}
	requireContains(t, out, "missing.m3u")
	requireContains(t, out, "partial")
}

func TestRunDiagnosticsWritesSourceJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	if out, err := runCLI(t, []string{"run", "--diagnostics"}, env.configPath); err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	raw, err := os.ReadFile(filepath.Join(env.tmpDir, "source.json"))
	if err != nil {
		t.Fatalf("read source.json: %v", err)
	}
	requireContains(t, string(raw), "Unknown TV")

	logs, err := filepath.Glob(filepath.Join(env.tmpDir, "iptv-*.debug.log"))
	if err != nil || len(logs) != 1 {
		t.Fatalf("expected one diagnostics log, got %v (%v)", logs, err)
	}
}

func TestCanonCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, []string{"canon", "CCTV1", "湖南衛視"}, env.configPath)
	if err != nil {
		t.Fatalf("canon: %v", err)
	}
	requireContains(t, out, "湖南卫视")
	requireContains(t, out, "卫视")
	requireContains(t, out, "cctv")
}

func TestInspectCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, []string{"inspect", filepath.Join(env.baseDir, "b.txt")}, env.configPath)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	requireContains(t, out, "TXT")
	requireContains(t, out, "2 parsed")
	requireContains(t, out, "http://b.example/cctv2")
}

func TestCheckCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, []string{"check"}, env.configPath)
	if err == nil {
		t.Fatalf("expected the missing source to fail the check:\n%s", out)
	}
	requireContains(t, out, "Channel file")

	out, err = runCLI(t, []string{"check", "--skip-sources"}, env.configPath)
	if err != nil {
		t.Fatalf("check --skip-sources: %v\n%s", err, out)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "Sources: 3")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, _, _, err := config.Load(target); err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}

	if _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Notifications disabled")
}
