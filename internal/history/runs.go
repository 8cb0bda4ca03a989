package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const runColumns = `id, started_at, finished_at, status, error_message, sources_total, sources_failed,
	channels, populated, records_created, records_updated, unknown, denied, invalid`

// Record stores run and its source results in one transaction.
func (s *Store) Record(ctx context.Context, run Run) error {
	if run.ID == "" {
		return errors.New("record run: id is required")
	}
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin run tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		_, err = tx.ExecContext(ctx, `INSERT INTO runs (`+runColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, formatTime(run.StartedAt), formatTime(run.FinishedAt), string(run.Status), nullString(run.ErrorMessage),
			run.SourcesTotal, run.SourcesFailed, run.Channels, run.Populated,
			run.Created, run.Updated, run.Unknown, run.Denied, run.Invalid,
		)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		for _, src := range run.Sources {
			_, err = tx.ExecContext(ctx, `INSERT INTO source_results
				(run_id, position, url, format, entries, merged, elapsed_ms, error_message)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				run.ID, src.Position, src.URL, nullString(src.Format), src.Entries, src.Merged,
				src.Elapsed.Milliseconds(), nullString(src.ErrorMessage),
			)
			if err != nil {
				return fmt.Errorf("insert source result: %w", err)
			}
		}
		return tx.Commit()
	})
}

// Recent returns up to limit runs, newest first, without source results.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Get returns one run including its source results.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Run{}, err
	}
	run.Sources, err = s.Sources(ctx, id)
	return run, err
}

// Sources returns the source results of a run in declaration order.
func (s *Store) Sources(ctx context.Context, runID string) ([]SourceResult, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT position, url, format, entries, merged, elapsed_ms, error_message
		FROM source_results WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query source results: %w", err)
	}
	defer rows.Close()

	var out []SourceResult
	for rows.Next() {
		var (
			src       SourceResult
			format    sql.NullString
			errMsg    sql.NullString
			elapsedMS int64
		)
		if err := rows.Scan(&src.Position, &src.URL, &format, &src.Entries, &src.Merged, &elapsedMS, &errMsg); err != nil {
			return nil, fmt.Errorf("scan source result: %w", err)
		}
		src.Format = format.String
		src.ErrorMessage = errMsg.String
		src.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		out = append(out, src)
	}
	return out, rows.Err()
}

// Prune keeps the newest keep runs and deletes the rest. It returns the
// number of runs removed.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	var removed int64
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		const keepSet = `SELECT id FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`
		if _, err := tx.ExecContext(ctx, `DELETE FROM source_results WHERE run_id NOT IN (`+keepSet+`)`, keep); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id NOT IN (`+keepSet+`)`, keep)
		if err != nil {
			return err
		}
		if removed, err = res.RowsAffected(); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return removed, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run              Run
		status           string
		started, stopped string
		errMsg           sql.NullString
	)
	err := row.Scan(&run.ID, &started, &stopped, &status, &errMsg,
		&run.SourcesTotal, &run.SourcesFailed, &run.Channels, &run.Populated,
		&run.Created, &run.Updated, &run.Unknown, &run.Denied, &run.Invalid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	if run.StartedAt, err = parseTimeString(started); err != nil {
		return Run{}, fmt.Errorf("parse started_at %q: %w", started, err)
	}
	if run.FinishedAt, err = parseTimeString(stopped); err != nil {
		return Run{}, fmt.Errorf("parse finished_at %q: %w", stopped, err)
	}
	run.Status = Status(status)
	run.ErrorMessage = errMsg.String
	return run, nil
}

// timeLayout keeps a fixed width so started_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
