package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"iptv/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckReadableFile(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "channel.txt")
	if err := os.WriteFile(f, []byte("CATE:央视\n-CCTV1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckReadableFile("channels", f); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if result := CheckReadableFile("channels", dir); result.Passed {
		t.Fatal("expected failure for directory")
	}
	if result := CheckReadableFile("channels", ""); result.Passed {
		t.Fatal("expected failure for empty path")
	}
}

func TestCheckOptionalFile_Missing(t *testing.T) {
	result := CheckOptionalFile("map", filepath.Join(t.TempDir(), "epg.txt"))
	if !result.Passed {
		t.Fatalf("expected missing optional file to pass, got: %s", result.Detail)
	}
}

func TestCheckSource_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD, got %s", r.Method)
		}
		if r.Header.Get("User-Agent") != "probe" {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if result := CheckSource(context.Background(), srv.Client(), srv.URL+"/list.m3u", "probe"); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if result := CheckSource(context.Background(), srv.Client(), srv.URL+"/missing", "probe"); result.Passed {
		t.Fatal("expected failure for 404")
	}
}

func TestCheckSource_HeadNotAllowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	defer srv.Close()

	if result := CheckSource(context.Background(), nil, srv.URL, ""); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckSource_LocalFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "list.m3u")
	if err := os.WriteFile(f, []byte("#EXTM3U\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckSource(context.Background(), nil, "file://"+f, ""); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if result := CheckSource(context.Background(), nil, f+".missing", ""); result.Passed {
		t.Fatal("expected failure for missing local source")
	}
}

func TestRunAll(t *testing.T) {
	dir := t.TempDir()
	channelFile := filepath.Join(dir, "channel.txt")
	if err := os.WriteFile(channelFile, []byte("CATE:央视\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Paths.ChannelFile = channelFile
	cfg.Paths.DistDir = filepath.Join(dir, "dist")
	cfg.Paths.TmpDir = dir
	cfg.Paths.StateDir = dir
	cfg.EPG.MapFile = filepath.Join(dir, "epg.txt")
	cfg.Sources.URLs = []string{channelFile}

	results := RunAll(context.Background(), &cfg, Options{ProbeSources: true})
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "Dist directory" {
		t.Fatalf("expected only the missing dist dir to fail, got %#v", failed)
	}
	if got := results[len(results)-1].Name; got != "Source "+channelFile {
		t.Fatalf("expected source probe last, got %q", got)
	}
}

func TestRunAllNilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil, Options{}); results != nil {
		t.Fatalf("expected nil results, got %#v", results)
	}
}
