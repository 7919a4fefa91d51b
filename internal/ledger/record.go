package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/setpoint/internal/generate"
)

// RunInfo is the metadata recorded alongside a generation run.
type RunInfo struct {
	// CommitSHA identifies the authoring revision the artifacts were
	// generated from. Empty when the caller has no VCS context.
	CommitSHA string

	// CommitTimestamp is the author time of CommitSHA. The zero value is
	// stored as unknown.
	CommitTimestamp time.Time

	// GeneratedAt is when the run happened. The zero value means now.
	GeneratedAt time.Time
}

// RecordRun writes one run row plus one row per emitted artifact in a
// single transaction and returns the run ID. Run IDs are UUIDv7, so ID
// order matches recording order.
func (l *Ledger) RecordRun(ctx context.Context, info RunInfo, artifacts []generate.Artifact) (string, error) {
	id := uuid.Must(uuid.NewV7()).String()

	generatedAt := info.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("record run: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO generation_runs (id, commit_sha, commit_timestamp, generated_at)
		VALUES (?, ?, ?, ?)
	`, id, info.CommitSHA, nullableUnix(info.CommitTimestamp), generatedAt.Unix())
	if err != nil {
		return "", fmt.Errorf("record run: insert run: %w", err)
	}

	for _, a := range artifacts {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO artifacts (run_id, namespace, target, name, digest, size)
			VALUES (?, ?, ?, ?, ?, ?)
		`, id, a.Namespace, a.Target, a.Name, a.Digest(), len(a.Data))
		if err != nil {
			return "", fmt.Errorf("record run: insert artifact %s: %w", a.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("record run: commit: %w", err)
	}

	return id, nil
}

// nullableUnix converts t to unix seconds, mapping the zero time to NULL.
func nullableUnix(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Unix()
}
