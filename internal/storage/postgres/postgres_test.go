package postgres

import (
	"context"
	"errors"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/noeunkim/black-white-siseon/internal/config"
	"github.com/noeunkim/black-white-siseon/internal/model"
	"github.com/noeunkim/black-white-siseon/internal/storage"
)

// testStore connects to the database named by SISEON_TEST_PG_* and skips the
// test when no database is configured.
func testStore(t *testing.T) *Store {
	t.Helper()

	host := os.Getenv("SISEON_TEST_PG_HOST")
	if host == "" {
		t.Skip("Skipping postgres store test: SISEON_TEST_PG_HOST not set")
	}

	port := 5432
	if p, err := strconv.Atoi(os.Getenv("SISEON_TEST_PG_PORT")); err == nil {
		port = p
	}
	cfg := config.DBConfig{
		Host:     host,
		Port:     port,
		User:     envOr("SISEON_TEST_PG_USER", "siseon"),
		Password: os.Getenv("SISEON_TEST_PG_PASSWORD"),
		Name:     envOr("SISEON_TEST_PG_NAME", "siseon_test"),
	}

	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func sampleResult(createdAt time.Time) *model.AnalysisResult {
	return &model.AnalysisResult{
		ID:    uuid.NewString(),
		Query: "최저임금 인상",
		Topic: "최저임금 인상",
		OriginalAnalysis: model.OriginalAnalysis{
			Title:     "최저임금 기사",
			Topic:     "최저임금 인상",
			Stance:    model.StancePro,
			Summary:   "인상에 찬성하는 기사",
			KeyPoints: []string{"소득 증대", "내수 진작"},
		},
		ProArticles: []model.AnalyzedArticle{
			{ID: uuid.NewString(), Title: "찬성 1", URL: "https://news.example.com/p1", Source: "예시뉴스", Summary: "요약", Stance: model.StancePro, KeyPoint: "핵심"},
			{ID: uuid.NewString(), Title: "찬성 2", URL: "https://news.example.com/p2", Source: "예시뉴스", Summary: "요약", Stance: model.StancePro},
		},
		ConArticles: []model.AnalyzedArticle{
			{ID: uuid.NewString(), Title: "반대 1", URL: "https://youtube.com/watch?v=dQw4w9WgXcQ", Source: "YouTube", Summary: "요약", Stance: model.StanceCon,
				MediaInfo: model.MediaInfo{IsYouTube: true, VideoID: "dQw4w9WgXcQ", Thumbnail: "https://i.ytimg.com/vi/dQw4w9WgXcQ/mqdefault.jpg"}},
		},
		BalancedSummary: "균형 요약",
		CreatedAt:       createdAt,
	}
}

func TestSaveAndGetRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	want := sampleResult(time.Now().UTC())
	if err := s.SaveResult(ctx, want); err != nil {
		t.Fatalf("SaveResult() error = %v", err)
	}
	t.Cleanup(func() { _ = s.DeleteResult(ctx, want.ID) })

	got, err := s.GetResult(ctx, want.ID)
	if err != nil {
		t.Fatalf("GetResult() error = %v", err)
	}

	if got.Query != want.Query || got.Topic != want.Topic || got.BalancedSummary != want.BalancedSummary {
		t.Errorf("result fields = %q/%q/%q, want %q/%q/%q",
			got.Query, got.Topic, got.BalancedSummary, want.Query, want.Topic, want.BalancedSummary)
	}
	if got.OriginalAnalysis.Stance != model.StancePro {
		t.Errorf("original stance = %q, want %q", got.OriginalAnalysis.Stance, model.StancePro)
	}
	if len(got.OriginalAnalysis.KeyPoints) != 2 || got.OriginalAnalysis.KeyPoints[0] != "소득 증대" {
		t.Errorf("key points = %v", got.OriginalAnalysis.KeyPoints)
	}
	// The pro/con split is reconstructed from the stance column; position
	// order must survive within each side.
	if len(got.ProArticles) != 2 || len(got.ConArticles) != 1 {
		t.Fatalf("split = %d pro / %d con, want 2/1", len(got.ProArticles), len(got.ConArticles))
	}
	if got.ProArticles[0].Title != "찬성 1" || got.ProArticles[1].Title != "찬성 2" {
		t.Errorf("pro order = %q, %q", got.ProArticles[0].Title, got.ProArticles[1].Title)
	}
	for _, a := range got.ProArticles {
		if a.Stance != model.StancePro {
			t.Errorf("pro article %q stance = %q", a.Title, a.Stance)
		}
	}
	con := got.ConArticles[0]
	if con.Stance != model.StanceCon {
		t.Errorf("con article stance = %q", con.Stance)
	}
	if !con.IsYouTube || con.VideoID != "dQw4w9WgXcQ" || con.Thumbnail == "" {
		t.Errorf("media info = %+v", con.MediaInfo)
	}
	// TIMESTAMPTZ precision differs from Go's; second granularity is enough.
	if got.CreatedAt.Unix() != want.CreatedAt.Unix() {
		t.Errorf("createdAt = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
}

func TestGetResultIsIdempotent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	want := sampleResult(time.Now().UTC())
	if err := s.SaveResult(ctx, want); err != nil {
		t.Fatalf("SaveResult() error = %v", err)
	}
	t.Cleanup(func() { _ = s.DeleteResult(ctx, want.ID) })

	first, err := s.GetResult(ctx, want.ID)
	if err != nil {
		t.Fatal(err)
	}
	first.ProArticles[0].Title = "변조"
	first.OriginalAnalysis.KeyPoints[0] = "변조"

	second, err := s.GetResult(ctx, want.ID)
	if err != nil {
		t.Fatal(err)
	}
	if second.ProArticles[0].Title != "찬성 1" {
		t.Errorf("second read title = %q, want %q", second.ProArticles[0].Title, "찬성 1")
	}
	if second.OriginalAnalysis.KeyPoints[0] != "소득 증대" {
		t.Errorf("second read key point = %q", second.OriginalAnalysis.KeyPoints[0])
	}
}

func TestListResultsNewestFirst(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	older := sampleResult(base.Add(-2 * time.Hour))
	newer := sampleResult(base.Add(2 * time.Hour))
	for _, r := range []*model.AnalysisResult{older, newer} {
		if err := s.SaveResult(ctx, r); err != nil {
			t.Fatalf("SaveResult() error = %v", err)
		}
		id := r.ID
		t.Cleanup(func() { _ = s.DeleteResult(ctx, id) })
	}

	summaries, err := s.ListResults(ctx, 100)
	if err != nil {
		t.Fatalf("ListResults() error = %v", err)
	}
	newerIdx, olderIdx := -1, -1
	for i, sum := range summaries {
		switch sum.ID {
		case newer.ID:
			newerIdx = i
		case older.ID:
			olderIdx = i
		}
	}
	if newerIdx == -1 || olderIdx == -1 {
		t.Fatalf("saved results missing from list (newer=%d, older=%d)", newerIdx, olderIdx)
	}
	if newerIdx > olderIdx {
		t.Errorf("newer result listed at %d, after older at %d", newerIdx, olderIdx)
	}
}

func TestDeleteResultCascades(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	r := sampleResult(time.Now().UTC())
	if err := s.SaveResult(ctx, r); err != nil {
		t.Fatalf("SaveResult() error = %v", err)
	}

	if err := s.DeleteResult(ctx, r.ID); err != nil {
		t.Fatalf("DeleteResult() error = %v", err)
	}

	if _, err := s.GetResult(ctx, r.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetResult() after delete error = %v, want ErrNotFound", err)
	}
	// Articles must be gone with the parent row.
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM articles WHERE search_id = $1`, r.ID).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("orphaned articles after delete = %d", n)
	}

	if err := s.DeleteResult(ctx, r.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second DeleteResult() error = %v, want ErrNotFound", err)
	}
}

func TestGetResultUnknownID(t *testing.T) {
	s := testStore(t)

	if _, err := s.GetResult(context.Background(), uuid.NewString()); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetResult() error = %v, want ErrNotFound", err)
	}
}
