package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/lib/pq"

	"github.com/noeunkim/black-white-siseon/internal/config"
	"github.com/noeunkim/black-white-siseon/internal/model"
	"github.com/noeunkim/black-white-siseon/internal/storage"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

// Store is the durable postgres-backed result store.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS searches (
	id TEXT PRIMARY KEY,
	query TEXT NOT NULL,
	topic TEXT NOT NULL DEFAULT '',
	original_title TEXT NOT NULL DEFAULT '',
	original_topic TEXT NOT NULL DEFAULT '',
	original_stance TEXT NOT NULL DEFAULT 'neutral',
	original_summary TEXT NOT NULL DEFAULT '',
	balanced_summary TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS articles (
	id TEXT PRIMARY KEY,
	search_id TEXT NOT NULL REFERENCES searches(id) ON DELETE CASCADE,
	title TEXT NOT NULL,
	url TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	stance TEXT NOT NULL,
	key_point TEXT NOT NULL DEFAULT '',
	is_youtube BOOLEAN NOT NULL DEFAULT FALSE,
	video_id TEXT NOT NULL DEFAULT '',
	thumbnail TEXT NOT NULL DEFAULT '',
	position INT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS key_points (
	search_id TEXT NOT NULL REFERENCES searches(id) ON DELETE CASCADE,
	position INT NOT NULL,
	content TEXT NOT NULL,
	PRIMARY KEY (search_id, position)
);

CREATE INDEX IF NOT EXISTS idx_articles_search_id ON articles(search_id);
CREATE INDEX IF NOT EXISTS idx_searches_created_at ON searches(created_at DESC);
`

// New opens the database and initializes the schema.
func New(cfg config.DBConfig) (*Store, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close implements storage.Store.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveResult writes the result and its articles in one transaction.
func (s *Store) SaveResult(ctx context.Context, result *model.AnalysisResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO searches (id, query, topic, original_title, original_topic,
			original_stance, original_summary, balanced_summary, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		result.ID, result.Query, result.Topic,
		sanitize(result.OriginalAnalysis.Title), sanitize(result.OriginalAnalysis.Topic),
		string(result.OriginalAnalysis.Stance), sanitize(result.OriginalAnalysis.Summary),
		sanitize(result.BalancedSummary), result.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert search: %w", err)
	}

	insertArticle := func(a *model.AnalyzedArticle, pos int) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO articles (id, search_id, title, url, source, summary,
				stance, key_point, is_youtube, video_id, thumbnail, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			a.ID, result.ID, sanitize(a.Title), a.URL, a.Source, sanitize(a.Summary),
			string(a.Stance), sanitize(a.KeyPoint), a.IsYouTube, a.VideoID, a.Thumbnail, pos)
		return err
	}
	for i := range result.ProArticles {
		if err := insertArticle(&result.ProArticles[i], i); err != nil {
			return fmt.Errorf("insert pro article: %w", err)
		}
	}
	for i := range result.ConArticles {
		if err := insertArticle(&result.ConArticles[i], i); err != nil {
			return fmt.Errorf("insert con article: %w", err)
		}
	}

	for i, kp := range result.OriginalAnalysis.KeyPoints {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO key_points (search_id, position, content) VALUES ($1, $2, $3)`,
			result.ID, i, sanitize(kp)); err != nil {
			return fmt.Errorf("insert key point: %w", err)
		}
	}

	return tx.Commit()
}

// GetResult loads one result, reconstructing the pro/con split from the
// stored stance column.
func (s *Store) GetResult(ctx context.Context, id string) (*model.AnalysisResult, error) {
	var r model.AnalysisResult
	var stance string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, query, topic, original_title, original_topic,
			original_stance, original_summary, balanced_summary, created_at
		FROM searches WHERE id = $1`, id).Scan(
		&r.ID, &r.Query, &r.Topic, &r.OriginalAnalysis.Title, &r.OriginalAnalysis.Topic,
		&stance, &r.OriginalAnalysis.Summary, &r.BalancedSummary, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r.OriginalAnalysis.Stance = model.Stance(stance)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, url, source, summary, stance, key_point,
			is_youtube, video_id, thumbnail
		FROM articles WHERE search_id = $1 ORDER BY (stance = 'pro') DESC, position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var a model.AnalyzedArticle
		var st string
		if err := rows.Scan(&a.ID, &a.Title, &a.URL, &a.Source, &a.Summary, &st,
			&a.KeyPoint, &a.IsYouTube, &a.VideoID, &a.Thumbnail); err != nil {
			return nil, err
		}
		a.Stance = model.Stance(st)
		if a.Stance == model.StancePro {
			r.ProArticles = append(r.ProArticles, a)
		} else {
			r.ConArticles = append(r.ConArticles, a)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	kpRows, err := s.db.QueryContext(ctx, `
		SELECT content FROM key_points WHERE search_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer kpRows.Close()
	for kpRows.Next() {
		var kp string
		if err := kpRows.Scan(&kp); err != nil {
			return nil, err
		}
		r.OriginalAnalysis.KeyPoints = append(r.OriginalAnalysis.KeyPoints, kp)
	}
	if err := kpRows.Err(); err != nil {
		return nil, err
	}

	return &r, nil
}

// ListResults returns summaries newest-first.
func (s *Store) ListResults(ctx context.Context, limit int) ([]*model.ResultSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, query, original_stance, created_at
		FROM searches ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []*model.ResultSummary
	for rows.Next() {
		var sum model.ResultSummary
		var stance string
		if err := rows.Scan(&sum.ID, &sum.Query, &stance, &sum.CreatedAt); err != nil {
			return nil, err
		}
		sum.OriginalStance = model.Stance(stance)
		summaries = append(summaries, &sum)
	}
	return summaries, rows.Err()
}

// DeleteResult removes the search row; articles and key points go with it
// via ON DELETE CASCADE.
func (s *Store) DeleteResult(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM searches WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// sanitize strips NULL bytes, which postgres text columns reject.
func sanitize(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}
