package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/ETAnderson/deskflow/internal/domain"
	"github.com/ETAnderson/deskflow/internal/ingest"
)

func (s *MySQLStore) CreateBatch(ctx context.Context, rec BatchRecord, rows []ingest.RawRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
INSERT INTO batches (
	batch_id, kind, source, content_hash, status, attempts, row_count,
	accepted, rejected, duplicates, created_at
) VALUES (?, ?, ?, NULLIF(?, ''), ?, ?, ?, 0, 0, 0, ?)
`,
		rec.BatchID, string(rec.Kind), rec.Source, rec.ContentHash,
		string(rec.Status), rec.Attempts, rec.RowCount, rec.CreatedAt.UTC(),
	)
	if err != nil {
		return err
	}

	for seq, row := range rows {
		fields, err := json.Marshal(row)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO batch_rows (batch_id, seq, fields_json) VALUES (?, ?, ?)`,
			rec.BatchID, seq, fields,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *MySQLStore) GetBatch(ctx context.Context, batchID string) (BatchRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT batch_id, kind, source, COALESCE(content_hash, ''), status, attempts, row_count,
       accepted, rejected, duplicates, COALESCE(rejections_json, ''),
       COALESCE(error_message, ''), created_at, started_at, completed_at
FROM batches
WHERE batch_id = ?
`, batchID)

	rec, err := scanBatch(row)
	if err == sql.ErrNoRows {
		return BatchRecord{}, false, nil
	}
	if err != nil {
		return BatchRecord{}, false, err
	}
	return rec, true, nil
}

func (s *MySQLStore) FindBatchByHash(ctx context.Context, hash string) (string, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT batch_id FROM batches WHERE content_hash = ?`, hash,
	).Scan(&id)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (s *MySQLStore) ListBatches(ctx context.Context, limit int) ([]BatchRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT batch_id, kind, source, COALESCE(content_hash, ''), status, attempts, row_count,
       accepted, rejected, duplicates, COALESCE(rejections_json, ''),
       COALESCE(error_message, ''), created_at, started_at, completed_at
FROM batches
ORDER BY created_at DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BatchRecord
	for rows.Next() {
		rec, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *MySQLStore) ListBatchRows(ctx context.Context, batchID string) ([]ingest.RawRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT fields_json FROM batch_rows WHERE batch_id = ? ORDER BY seq ASC`,
		batchID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ingest.RawRecord
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var rec ingest.RawRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ClaimBatches selects re-drivable batches under FOR UPDATE and marks them
// in_progress with the attempt counter bumped, all in one transaction, so
// concurrent workers never claim the same batch twice.
func (s *MySQLStore) ClaimBatches(ctx context.Context, p ClaimParams) ([]BatchClaim, error) {
	if p.Limit <= 0 {
		p.Limit = 10
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
SELECT batch_id, kind, attempts
FROM batches
WHERE status = 'pending'
   OR (status = 'in_progress' AND started_at < ?)
   OR (status = 'failed' AND attempts < ?)
ORDER BY created_at ASC
LIMIT ?
FOR UPDATE
`, p.StaleBefore.UTC(), p.MaxAttempts, p.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claims []BatchClaim
	for rows.Next() {
		var c BatchClaim
		var kind string
		if err := rows.Scan(&c.BatchID, &kind, &c.Attempts); err != nil {
			return nil, err
		}
		c.Kind = domain.BatchKind(kind)
		c.Attempts++
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for _, c := range claims {
		_, err := tx.ExecContext(ctx, `
UPDATE batches
SET status = 'in_progress', attempts = ?, started_at = ?
WHERE batch_id = ?
`, c.Attempts, now, c.BatchID)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *MySQLStore) CompleteBatch(ctx context.Context, batchID string, res ingest.BatchResult) error {
	rejections, err := json.Marshal(res.Rejections)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
UPDATE batches
SET status = 'completed', accepted = ?, rejected = ?, duplicates = ?,
    rejections_json = ?, error_message = NULL, completed_at = ?
WHERE batch_id = ?
`,
		res.Accepted, res.Rejected, res.Duplicates,
		rejections, time.Now().UTC(), batchID,
	)
	return err
}

func (s *MySQLStore) FailBatch(ctx context.Context, batchID string, message string, terminal bool) error {
	status := domain.BatchStatusFailed
	if terminal {
		status = domain.BatchStatusFailedPermanently
	}

	_, err := s.db.ExecContext(ctx, `
UPDATE batches
SET status = ?, error_message = ?
WHERE batch_id = ?
`, string(status), message, batchID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBatch(r rowScanner) (BatchRecord, error) {
	var rec BatchRecord
	var kind, status, rejections string
	var started, completed sql.NullTime

	err := r.Scan(
		&rec.BatchID, &kind, &rec.Source, &rec.ContentHash, &status,
		&rec.Attempts, &rec.RowCount,
		&rec.Result.Accepted, &rec.Result.Rejected, &rec.Result.Duplicates,
		&rejections, &rec.Error, &rec.CreatedAt, &started, &completed,
	)
	if err != nil {
		return BatchRecord{}, err
	}

	rec.Kind = domain.BatchKind(kind)
	rec.Status = domain.BatchStatus(status)
	if rejections != "" {
		_ = json.Unmarshal([]byte(rejections), &rec.Result.Rejections)
	}
	if started.Valid {
		t := started.Time.UTC()
		rec.StartedAt = &t
	}
	if completed.Valid {
		t := completed.Time.UTC()
		rec.CompletedAt = &t
	}
	return rec, nil
}
