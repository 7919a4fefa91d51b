package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Run is one recorded generation run.
type Run struct {
	ID              string
	CommitSHA       string
	CommitTimestamp time.Time // zero when the run carried no commit metadata
	GeneratedAt     time.Time
	ArtifactCount   int
}

// ArtifactRecord is one emitted artifact within a run.
type ArtifactRecord struct {
	RunID     string
	Namespace string
	Target    string
	Name      string
	Digest    string
	Size      int64
}

// RunQuery narrows a ListRuns call.
type RunQuery struct {
	// Namespace keeps only runs that emitted at least one artifact for
	// it. Empty matches every run.
	Namespace string

	// Limit caps the number of runs returned; zero or negative means all.
	Limit int
}

// ListRuns returns recorded runs, newest first. Ordering is deterministic:
// generated_at descending, then run ID descending.
//
// Returns an empty slice (not nil) when nothing matches.
func (l *Ledger) ListRuns(ctx context.Context, q RunQuery) ([]Run, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as unbounded
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT r.id, r.commit_sha, r.commit_timestamp, r.generated_at,
		       (SELECT COUNT(*) FROM artifacts a WHERE a.run_id = r.id)
		FROM generation_runs r
		WHERE ? = '' OR EXISTS (
			SELECT 1 FROM artifacts f WHERE f.run_id = r.id AND f.namespace = ?
		)
		ORDER BY r.generated_at DESC, r.id COLLATE BINARY DESC
		LIMIT ?
	`, q.Namespace, q.Namespace, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run         Run
			commitTS    sql.NullInt64
			generatedAt int64
		)
		if err := rows.Scan(&run.ID, &run.CommitSHA, &commitTS, &generatedAt, &run.ArtifactCount); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if commitTS.Valid {
			run.CommitTimestamp = time.Unix(commitTS.Int64, 0).UTC()
		}
		run.GeneratedAt = time.Unix(generatedAt, 0).UTC()
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	// Return empty slice instead of nil
	if runs == nil {
		runs = []Run{}
	}

	return runs, nil
}

// RunArtifacts returns the artifact rows for one run, ordered by namespace
// then target.
//
// Returns an empty slice (not nil) for an unknown run ID.
func (l *Ledger) RunArtifacts(ctx context.Context, runID string) ([]ArtifactRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT run_id, namespace, target, name, digest, size
		FROM artifacts
		WHERE run_id = ?
		ORDER BY namespace COLLATE BINARY ASC, target COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	var records []ArtifactRecord
	for rows.Next() {
		var rec ArtifactRecord
		if err := rows.Scan(&rec.RunID, &rec.Namespace, &rec.Target, &rec.Name, &rec.Digest, &rec.Size); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artifacts: %w", err)
	}

	// Return empty slice instead of nil
	if records == nil {
		records = []ArtifactRecord{}
	}

	return records, nil
}
