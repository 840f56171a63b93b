package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/brief-builder/internal/apperror"
	"github.com/sakif/brief-builder/internal/model"
	"github.com/sakif/brief-builder/internal/repository"
)

var _ repository.SubmissionRepository = (*DB)(nil)

const submissionColumns = `id, brief_id, session_id, answers, submitted_at`

// CreateSubmission stores the answers exactly as received (key order
// included). sub.SessionID must already be set by the caller.
func (db *DB) CreateSubmission(ctx context.Context, sub *model.Submission) error {
	answers, err := json.Marshal(sub.Answers)
	if err != nil {
		return fmt.Errorf("sqlite: encoding answers: %w", err)
	}

	sub.ID = xid.New().String()
	sub.SubmittedAt = time.Now().UTC()

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO submissions (`+submissionColumns+`)
		 VALUES (?, ?, ?, ?, ?)`,
		sub.ID,
		sub.BriefID,
		sub.SessionID,
		string(answers),
		sub.SubmittedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("brief", sub.BriefID)
		}
		if isUniqueViolation(err) {
			return apperror.Conflict("submission", "session_id")
		}
		return fmt.Errorf("sqlite: creating submission for brief %s: %w", sub.BriefID, err)
	}

	return nil
}

// ListSubmissionsByBrief returns the brief's submissions, newest first.
func (db *DB) ListSubmissionsByBrief(ctx context.Context, briefID string) ([]model.Submission, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+submissionColumns+`
		 FROM submissions
		 WHERE brief_id = ?
		 ORDER BY submitted_at DESC, rowid DESC`,
		briefID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing submissions of brief %s: %w", briefID, err)
	}
	defer rows.Close()

	subs := make([]model.Submission, 0)
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating submissions: %w", err)
	}
	return subs, nil
}

// GetSubmissionBySession returns the submission with its brief hydrated.
func (db *DB) GetSubmissionBySession(ctx context.Context, sessionID string) (*model.Submission, error) {
	sub, err := scanSubmission(db.conn.QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE session_id = ?`, sessionID,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("submission", sessionID)
		}
		return nil, err
	}

	brief, err := db.GetBrief(ctx, sub.BriefID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading brief of submission %s: %w", sessionID, err)
	}
	sub.Brief = brief

	return sub, nil
}

func scanSubmission(row rowScanner) (*model.Submission, error) {
	var (
		s       model.Submission
		answers []byte
	)
	if err := row.Scan(&s.ID, &s.BriefID, &s.SessionID, &answers, &s.SubmittedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("sqlite: scanning submission row: %w", err)
	}
	if err := json.Unmarshal(answers, &s.Answers); err != nil {
		return nil, fmt.Errorf("sqlite: decoding answers of submission %s: %w", s.ID, err)
	}
	return &s, nil
}
