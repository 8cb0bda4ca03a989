package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"iptv/internal/fileutil"
	"iptv/internal/logging"
)

const (
	M3UFile     = "live.m3u"
	TXTFile     = "live.txt"
	JSONFile    = "channel.json"
	RawJSONFile = "source.json"
	lockFile    = ".iptv.lock"
)

// ErrLocked is returned when another process holds the dist lock.
var ErrLocked = errors.New("dist directory is locked by another run")

// Options selects outputs and their locations.
type Options struct {
	DistDir     string
	TmpDir      string
	M3U         bool
	TXT         bool
	JSON        bool
	Decorations Decorations
	LockTimeout time.Duration
	Logger      *slog.Logger
}

// Result lists the files written by one export.
type Result struct {
	Files []string
}

// Exporter writes views to disk.
type Exporter struct {
	opts   Options
	logger *slog.Logger
}

func New(opts Options) *Exporter {
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = 5 * time.Second
	}
	return &Exporter{opts: opts, logger: logging.NewComponentLogger(opts.Logger, "export")}
}

// Write renders the enabled formats. raw is written to the tmp directory
// when non-nil.
func (e *Exporter) Write(ctx context.Context, view View, raw *RawView) (Result, error) {
	var result Result
	if err := os.MkdirAll(e.opts.DistDir, 0o755); err != nil {
		return result, fmt.Errorf("create dist dir: %w", err)
	}

	lock := flock.New(filepath.Join(e.opts.DistDir, lockFile))
	lockCtx, cancel := context.WithTimeout(ctx, e.opts.LockTimeout)
	defer cancel()
	locked, err := lock.TryLockContext(lockCtx, 100*time.Millisecond)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return result, fmt.Errorf("lock dist dir: %w", err)
	}
	if !locked {
		return result, ErrLocked
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			e.logger.Warn("dist lock release failed", logging.Error(err))
		}
	}()

	type job struct {
		enabled bool
		path    string
		render  func(io.Writer) error
	}
	jobs := []job{
		{e.opts.M3U, filepath.Join(e.opts.DistDir, M3UFile), func(w io.Writer) error { return RenderM3U(w, view, e.opts.Decorations) }},
		{e.opts.TXT, filepath.Join(e.opts.DistDir, TXTFile), func(w io.Writer) error { return RenderTXT(w, view, e.opts.Decorations) }},
		{e.opts.JSON, filepath.Join(e.opts.TmpDir, JSONFile), func(w io.Writer) error { return RenderJSON(w, view) }},
	}
	if raw != nil {
		jobs = append(jobs, job{true, filepath.Join(e.opts.TmpDir, RawJSONFile), func(w io.Writer) error { return RenderRawJSON(w, *raw) }})
	}

	for _, j := range jobs {
		if !j.enabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := fileutil.WriteAtomic(j.path, 0o644, j.render); err != nil {
			return result, fmt.Errorf("write %s: %w", filepath.Base(j.path), err)
		}
		result.Files = append(result.Files, j.path)
		e.logger.Info("export written",
			logging.String("path", j.path),
			logging.String(logging.FieldEventType, "export_written"),
		)
	}
	return result, nil
}
