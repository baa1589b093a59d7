package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"carousel/internal/app/model"
)

const createGenerationsTable = `CREATE TABLE IF NOT EXISTS generations (
	id TEXT PRIMARY KEY,
	topic TEXT NOT NULL,
	slide_count INTEGER NOT NULL,
	mode TEXT NOT NULL,
	theme TEXT NOT NULL,
	context TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	slides TEXT NOT NULL DEFAULT '[]',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

const createCreatedAtIndex = `CREATE INDEX IF NOT EXISTS idx_generations_created_at ON generations(created_at)`

// Fixed width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type generationRow struct {
	ID         string `db:"id"`
	Topic      string `db:"topic"`
	SlideCount int    `db:"slide_count"`
	Mode       string `db:"mode"`
	Theme      string `db:"theme"`
	Context    string `db:"context"`
	Status     string `db:"status"`
	Slides     string `db:"slides"`
	CreatedAt  string `db:"created_at"`
	UpdatedAt  string `db:"updated_at"`
}

type SQLite struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ Store = (*SQLite)(nil)

func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sqlx.ConnectContext(ctx, "sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// Read-modify-write updates rely on a single connection.
	db.SetMaxOpenConns(1)

	for _, query := range []string{createGenerationsTable, createCreatedAtIndex} {
		if _, err := db.ExecContext(ctx, query); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create tables: %w", err)
		}
	}

	return &SQLite{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *SQLite) Insert(ctx context.Context, gen *model.Generation) error {
	row, err := toRow(gen)
	if err != nil {
		return err
	}

	_, err = s.db.NamedExecContext(ctx, `INSERT INTO generations
		(id, topic, slide_count, mode, theme, context, status, slides, created_at, updated_at)
		VALUES (:id, :topic, :slide_count, :mode, :theme, :context, :status, :slides, :created_at, :updated_at)`, row)
	if err != nil {
		return fmt.Errorf("insert generation %s: %w", gen.ID, err)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, id string) (*model.Generation, error) {
	return s.get(ctx, s.db, id)
}

func (s *SQLite) get(ctx context.Context, q sqlx.QueryerContext, id string) (*model.Generation, error) {
	var row generationRow
	err := sqlx.GetContext(ctx, q, &row, `SELECT * FROM generations WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("generation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get generation %s: %w", id, err)
	}
	return fromRow(row)
}

func (s *SQLite) List(ctx context.Context, limit int) ([]*model.Generation, error) {
	var rows []generationRow
	err := s.db.SelectContext(ctx, &rows, `SELECT * FROM generations ORDER BY created_at DESC LIMIT ?`, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}

	out := make([]*model.Generation, 0, len(rows))
	for _, row := range rows {
		gen, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, gen)
	}
	return out, nil
}

func (s *SQLite) Update(ctx context.Context, id string, update model.GenerationUpdate) error {
	return s.modify(ctx, id, func(gen *model.Generation) error {
		update.Apply(gen, s.now())
		return nil
	})
}

func (s *SQLite) PatchSlide(ctx context.Context, id, slideID string, patch model.SlidePatch) error {
	return s.modify(ctx, id, func(gen *model.Generation) error {
		slide, ok := gen.Slide(slideID)
		if !ok {
			return fmt.Errorf("slide %s in generation %s: %w", slideID, id, ErrNotFound)
		}
		patch.Apply(slide)
		gen.UpdatedAt = s.now()
		return nil
	})
}

func (s *SQLite) modify(ctx context.Context, id string, fn func(*model.Generation) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	gen, err := s.get(ctx, tx, id)
	if err != nil {
		return err
	}
	if err := fn(gen); err != nil {
		return err
	}

	row, err := toRow(gen)
	if err != nil {
		return err
	}
	_, err = tx.NamedExecContext(ctx, `UPDATE generations SET
		topic = :topic, theme = :theme, status = :status, slides = :slides, updated_at = :updated_at
		WHERE id = :id`, row)
	if err != nil {
		return fmt.Errorf("update generation %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func toRow(gen *model.Generation) (generationRow, error) {
	slides := gen.Slides
	if slides == nil {
		slides = []model.Slide{}
	}
	data, err := json.Marshal(slides)
	if err != nil {
		return generationRow{}, fmt.Errorf("marshal slides: %w", err)
	}

	return generationRow{
		ID:         gen.ID,
		Topic:      gen.Topic,
		SlideCount: gen.SlideCount,
		Mode:       string(gen.Mode),
		Theme:      gen.Theme,
		Context:    gen.Context,
		Status:     string(gen.Status),
		Slides:     string(data),
		CreatedAt:  gen.CreatedAt.UTC().Format(timeLayout),
		UpdatedAt:  gen.UpdatedAt.UTC().Format(timeLayout),
	}, nil
}

func fromRow(row generationRow) (*model.Generation, error) {
	var slides []model.Slide
	if err := json.Unmarshal([]byte(row.Slides), &slides); err != nil {
		return nil, fmt.Errorf("unmarshal slides of %s: %w", row.ID, err)
	}
	if slides == nil {
		slides = []model.Slide{}
	}

	createdAt, err := time.Parse(timeLayout, row.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at of %s: %w", row.ID, err)
	}
	updatedAt, err := time.Parse(timeLayout, row.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at of %s: %w", row.ID, err)
	}

	return &model.Generation{
		ID:         row.ID,
		Topic:      row.Topic,
		SlideCount: row.SlideCount,
		Mode:       model.Mode(row.Mode),
		Theme:      row.Theme,
		Context:    row.Context,
		Status:     model.Status(row.Status),
		Slides:     slides,
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
	}, nil
}
