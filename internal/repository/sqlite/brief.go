package sqlite

import (
	"bytes"
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

var _ repository.BriefRepository = (*DB)(nil)

const briefColumns = `id, owner_id, title, description, is_main, created_at, updated_at`

// CreateBrief inserts the brief row and its full step/question tree in one
// transaction. IDs, orders and timestamps are written back into brief.
func (db *DB) CreateBrief(ctx context.Context, brief *model.Brief) error {
	now := time.Now().UTC()
	brief.ID = xid.New().String()
	brief.IsMain = false
	brief.CreatedAt = now
	brief.UpdatedAt = now

	return db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO briefs (`+briefColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			brief.ID,
			brief.OwnerID,
			brief.Title,
			brief.Description,
			brief.IsMain,
			brief.CreatedAt,
			brief.UpdatedAt,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return apperror.NotFound("user", brief.OwnerID)
			}
			return fmt.Errorf("sqlite: creating brief: %w", err)
		}

		return insertSteps(ctx, tx, brief.ID, brief.Steps, now)
	})
}

// GetBrief returns the hydrated aggregate.
func (db *DB) GetBrief(ctx context.Context, id string) (*model.Brief, error) {
	brief, err := scanBrief(db.conn.QueryRowContext(ctx,
		`SELECT `+briefColumns+` FROM briefs WHERE id = ?`, id,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("brief", id)
		}
		return nil, fmt.Errorf("sqlite: getting brief %s: %w", id, err)
	}

	if err := loadTree(ctx, db.conn, brief); err != nil {
		return nil, err
	}
	return brief, nil
}

// ListBriefsByOwner returns every brief of the owner, newest first.
func (db *DB) ListBriefsByOwner(ctx context.Context, ownerID string) ([]model.Brief, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+briefColumns+`
		 FROM briefs
		 WHERE owner_id = ?
		 ORDER BY created_at DESC, rowid DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing briefs for %s: %w", ownerID, err)
	}

	briefs := make([]model.Brief, 0)
	for rows.Next() {
		b, err := scanBrief(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: scanning brief row: %w", err)
		}
		briefs = append(briefs, *b)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("sqlite: iterating briefs: %w", err)
	}
	// Close before hydrating: an in-memory pool has a single connection.
	rows.Close()

	for i := range briefs {
		if err := loadTree(ctx, db.conn, &briefs[i]); err != nil {
			return nil, err
		}
	}
	return briefs, nil
}

// ReplaceBrief is a destructive full replace: title and description are
// overwritten, every existing step and question is deleted and brief.Steps is
// inserted with fresh IDs. Nothing is diffed or merged.
func (db *DB) ReplaceBrief(ctx context.Context, brief *model.Brief) error {
	now := time.Now().UTC()

	return db.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkOwner(ctx, tx, brief.ID, brief.OwnerID); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx,
			`UPDATE briefs SET title = ?, description = ?, updated_at = ? WHERE id = ?`,
			brief.Title, brief.Description, now, brief.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating brief %s: %w", brief.ID, err)
		}
		brief.UpdatedAt = now

		if err := deleteTree(ctx, tx, brief.ID); err != nil {
			return err
		}
		return insertSteps(ctx, tx, brief.ID, brief.Steps, now)
	})
}

// SetMainBrief clears is_main on all of the owner's briefs and sets it on id,
// inside one write transaction. Readers never observe zero or two main briefs
// for the owner, and the partial unique index rejects any interleaving that
// would produce two.
func (db *DB) SetMainBrief(ctx context.Context, id, ownerID string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkOwner(ctx, tx, id, ownerID); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE briefs SET is_main = 0 WHERE owner_id = ? AND is_main = 1`, ownerID,
		); err != nil {
			return fmt.Errorf("sqlite: clearing main brief for %s: %w", ownerID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE briefs SET is_main = 1 WHERE id = ? AND owner_id = ?`, id, ownerID,
		); err != nil {
			return fmt.Errorf("sqlite: setting main brief %s: %w", id, err)
		}
		return nil
	})
}

// DeleteBrief removes questions, steps, submissions and finally the brief.
// The deletes are explicit; ON DELETE CASCADE in the schema is only a backstop.
func (db *DB) DeleteBrief(ctx context.Context, id, ownerID string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkOwner(ctx, tx, id, ownerID); err != nil {
			return err
		}

		if err := deleteTree(ctx, tx, id); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM submissions WHERE brief_id = ?`, id); err != nil {
			return fmt.Errorf("sqlite: deleting submissions of brief %s: %w", id, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM briefs WHERE id = ?`, id); err != nil {
			return fmt.Errorf("sqlite: deleting brief %s: %w", id, err)
		}
		return nil
	})
}

// GetMainBrief picks the first registered user (lowest rowid) and returns
// their main brief, falling back to their oldest brief.
func (db *DB) GetMainBrief(ctx context.Context) (*model.Brief, error) {
	var ownerID string
	err := db.conn.QueryRowContext(ctx,
		`SELECT id FROM users ORDER BY rowid ASC LIMIT 1`,
	).Scan(&ownerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("brief", "main")
		}
		return nil, fmt.Errorf("sqlite: selecting first owner: %w", err)
	}

	brief, err := scanBrief(db.conn.QueryRowContext(ctx,
		`SELECT `+briefColumns+`
		 FROM briefs
		 WHERE owner_id = ?
		 ORDER BY is_main DESC, created_at ASC, rowid ASC
		 LIMIT 1`,
		ownerID,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("brief", "main")
		}
		return nil, fmt.Errorf("sqlite: getting main brief of %s: %w", ownerID, err)
	}

	if err := loadTree(ctx, db.conn, brief); err != nil {
		return nil, err
	}
	return brief, nil
}

// checkOwner distinguishes a missing brief (NotFound) from someone else's
// brief (Forbidden).
func checkOwner(ctx context.Context, q querier, id, ownerID string) error {
	var owner string
	err := q.QueryRowContext(ctx, `SELECT owner_id FROM briefs WHERE id = ?`, id).Scan(&owner)
	if err != nil {
		if err == sql.ErrNoRows {
			return apperror.NotFound("brief", id)
		}
		return fmt.Errorf("sqlite: checking owner of brief %s: %w", id, err)
	}
	if owner != ownerID {
		return apperror.Forbidden("brief does not belong to the current user")
	}
	return nil
}

func deleteTree(ctx context.Context, q querier, briefID string) error {
	if _, err := q.ExecContext(ctx,
		`DELETE FROM questions WHERE step_id IN (SELECT id FROM steps WHERE brief_id = ?)`, briefID,
	); err != nil {
		return fmt.Errorf("sqlite: deleting questions of brief %s: %w", briefID, err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM steps WHERE brief_id = ?`, briefID); err != nil {
		return fmt.Errorf("sqlite: deleting steps of brief %s: %w", briefID, err)
	}
	return nil
}

// insertSteps writes the tree, assigning new IDs and dense orders from slice
// position. The slice elements are updated in place.
func insertSteps(ctx context.Context, q querier, briefID string, steps []model.Step, now time.Time) error {
	for i := range steps {
		s := &steps[i]
		s.ID = xid.New().String()
		s.BriefID = briefID
		s.Order = i

		if _, err := q.ExecContext(ctx,
			`INSERT INTO steps (id, brief_id, title, description, position, conditional_logic)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			s.ID, s.BriefID, s.Title, s.Description, s.Order, jsonArg(s.ConditionalLogic),
		); err != nil {
			return fmt.Errorf("sqlite: inserting step %d of brief %s: %w", i, briefID, err)
		}

		if s.Questions == nil {
			s.Questions = []model.Question{}
		}
		for j := range s.Questions {
			qn := &s.Questions[j]
			qn.ID = xid.New().String()
			qn.StepID = s.ID
			qn.Order = j
			qn.CreatedAt = now
			qn.UpdatedAt = now

			options, err := optionsArg(qn.Options)
			if err != nil {
				return err
			}

			if _, err := q.ExecContext(ctx,
				`INSERT INTO questions (id, step_id, text, question_type, options, is_required, position, conditional_logic, created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				qn.ID, qn.StepID, qn.Text, qn.QuestionType, options, qn.IsRequired,
				qn.Order, jsonArg(qn.ConditionalLogic), qn.CreatedAt, qn.UpdatedAt,
			); err != nil {
				return fmt.Errorf("sqlite: inserting question %d of step %d: %w", j, i, err)
			}
		}
	}
	return nil
}

// loadTree hydrates brief.Steps and their Questions, both in order.
func loadTree(ctx context.Context, q querier, brief *model.Brief) error {
	steps, err := loadSteps(ctx, q, brief.ID)
	if err != nil {
		return err
	}

	byStep := make(map[string]int, len(steps))
	for i := range steps {
		byStep[steps[i].ID] = i
	}

	questions, err := loadQuestions(ctx, q, brief.ID)
	if err != nil {
		return err
	}
	for _, qn := range questions {
		if i, ok := byStep[qn.StepID]; ok {
			steps[i].Questions = append(steps[i].Questions, qn)
		}
	}

	brief.Steps = steps
	return nil
}

func loadSteps(ctx context.Context, q querier, briefID string) ([]model.Step, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, brief_id, title, description, position, conditional_logic
		 FROM steps
		 WHERE brief_id = ?
		 ORDER BY position`,
		briefID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading steps of brief %s: %w", briefID, err)
	}
	defer rows.Close()

	steps := make([]model.Step, 0)
	for rows.Next() {
		var (
			s     model.Step
			logic []byte
		)
		if err := rows.Scan(&s.ID, &s.BriefID, &s.Title, &s.Description, &s.Order, &logic); err != nil {
			return nil, fmt.Errorf("sqlite: scanning step row: %w", err)
		}
		s.ConditionalLogic = rawJSON(logic)
		s.Questions = []model.Question{}
		steps = append(steps, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating steps: %w", err)
	}
	return steps, nil
}

func loadQuestions(ctx context.Context, q querier, briefID string) ([]model.Question, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT q.id, q.step_id, q.text, q.question_type, q.options, q.is_required,
		        q.position, q.conditional_logic, q.created_at, q.updated_at
		 FROM questions q
		 JOIN steps s ON s.id = q.step_id
		 WHERE s.brief_id = ?
		 ORDER BY s.position, q.position`,
		briefID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading questions of brief %s: %w", briefID, err)
	}
	defer rows.Close()

	questions := make([]model.Question, 0)
	for rows.Next() {
		var (
			qn      model.Question
			options []byte
			logic   []byte
		)
		if err := rows.Scan(
			&qn.ID, &qn.StepID, &qn.Text, &qn.QuestionType, &options, &qn.IsRequired,
			&qn.Order, &logic, &qn.CreatedAt, &qn.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning question row: %w", err)
		}
		if options != nil {
			if err := json.Unmarshal(options, &qn.Options); err != nil {
				return nil, fmt.Errorf("sqlite: decoding options of question %s: %w", qn.ID, err)
			}
		}
		qn.ConditionalLogic = rawJSON(logic)
		questions = append(questions, qn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating questions: %w", err)
	}
	return questions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBrief(row rowScanner) (*model.Brief, error) {
	var b model.Brief
	if err := row.Scan(
		&b.ID,
		&b.OwnerID,
		&b.Title,
		&b.Description,
		&b.IsMain,
		&b.CreatedAt,
		&b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &b, nil
}

// jsonArg stores opaque JSON as TEXT, mapping absent or null to SQL NULL.
func jsonArg(raw json.RawMessage) any {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return string(trimmed)
}

func rawJSON(b []byte) json.RawMessage {
	if b == nil {
		return nil
	}
	return json.RawMessage(b)
}

func optionsArg(options []string) (any, error) {
	if options == nil {
		return nil, nil
	}
	b, err := json.Marshal(options)
	if err != nil {
		return nil, fmt.Errorf("sqlite: encoding options: %w", err)
	}
	return string(b), nil
}
