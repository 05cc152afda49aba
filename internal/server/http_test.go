package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/noeunkim/black-white-siseon/internal/config"
	"github.com/noeunkim/black-white-siseon/internal/logger"
	"github.com/noeunkim/black-white-siseon/internal/model"
	"github.com/noeunkim/black-white-siseon/internal/oracle"
	"github.com/noeunkim/black-white-siseon/internal/pipeline"
	"github.com/noeunkim/black-white-siseon/internal/scraper"
	"github.com/noeunkim/black-white-siseon/internal/search"
	"github.com/noeunkim/black-white-siseon/internal/storage/memory"
	"github.com/noeunkim/black-white-siseon/internal/youtube"
)

func TestMain(m *testing.M) {
	_ = logger.InitLogger("error", "")
	os.Exit(m.Run())
}

type stubScraper struct{}

func (stubScraper) Fetch(ctx context.Context, url string) (*scraper.Article, error) {
	return nil, nil
}

type stubYouTube struct{}

func (stubYouTube) FetchTranscript(ctx context.Context, url string) (*youtube.Transcript, error) {
	return nil, nil
}

func (stubYouTube) FetchTitle(ctx context.Context, videoID string) string { return "영상" }

type stubOracle struct{}

func (stubOracle) GenerateQueryPlan(ctx context.Context, content string) (*model.StanceQueryPlan, error) {
	return &model.StanceQueryPlan{
		Topic:           "주제",
		OriginalStance:  model.StancePro,
		SupportingQuery: "주제 찬성",
		OpposingQuery:   "주제 반대",
	}, nil
}

func (stubOracle) Synthesize(ctx context.Context, userInput, originalContent string, supporting, opposing []search.Result, originalStance model.Stance) (*oracle.Synthesis, error) {
	return &oracle.Synthesis{
		Topic: "최저임금 인상",
		OriginalAnalysis: model.OriginalAnalysis{
			Topic:   "최저임금 인상",
			Stance:  model.StanceNeutral,
			Summary: "중립적 주제 검색",
		},
		ProArticles: []model.AnalyzedArticle{
			{Title: "찬성 기사", URL: "https://news.example.com/pro", Summary: "요약"},
		},
		ConArticles: []model.AnalyzedArticle{
			{Title: "반대 기사", URL: "https://news.example.com/con", Summary: "요약"},
		},
		BalancedSummary: "균형 요약",
	}, nil
}

type stubSearcher struct{}

func (stubSearcher) Search(ctx context.Context, req *search.Request) (*search.Response, error) {
	return &search.Response{Results: []search.Result{
		{Title: "최저임금 관련 보도", URL: "https://news.example.com/a", Content: strings.Repeat("최저임금 인상 논쟁이 이어지고 있다. ", 5)},
	}}, nil
}

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	p := pipeline.New(stubScraper{}, stubYouTube{}, stubOracle{}, stubSearcher{}, store, config.PipelineConfig{
		SearchLimit:     6,
		ArticlesPerSide: 4,
		HistoryLimit:    50,
	})
	return NewService(p, store, config.PipelineConfig{HistoryLimit: 50}), store
}

func TestHandleSearchRejectsEmptyQuery(t *testing.T) {
	svc, _ := newTestService(t)

	for _, body := range []string{`{}`, `{"query":"  "}`, `not json`} {
		req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(body))
		rec := httptest.NewRecorder()
		svc.handleSearch(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want %d", body, rec.Code, http.StatusBadRequest)
		}
	}
}

func TestHandleSearchReturnsResult(t *testing.T) {
	svc, store := newTestService(t)

	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{"query":"최저임금 인상"}`))
	rec := httptest.NewRecorder()
	svc.handleSearch(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var result model.AnalysisResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Query != "최저임금 인상" {
		t.Errorf("query = %q", result.Query)
	}
	if result.BalancedSummary != "균형 요약" {
		t.Errorf("balancedSummary = %q", result.BalancedSummary)
	}

	summaries, err := store.ListResults(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 1 {
		t.Fatalf("persisted %d results, want 1", len(summaries))
	}
}

func TestHandleSearchStreamEventOrder(t *testing.T) {
	svc, _ := newTestService(t)

	req := httptest.NewRequest(http.MethodPost, "/api/search/stream", strings.NewReader(`{"query":"최저임금 인상"}`))
	rec := httptest.NewRecorder()
	svc.handleSearchStream(rec, req)

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	var types []string
	for _, line := range strings.Split(rec.Body.String(), "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			t.Fatalf("decode event %q: %v", line, err)
		}
		types = append(types, ev.Type)
	}

	want := []string{"start", "search_pro", "search_con", "search_pro_done", "search_con_done", "analyze", "complete"}
	if len(types) != len(want) {
		t.Fatalf("event types = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("event[%d] = %q, want %q (all: %v)", i, types[i], want[i], types)
		}
	}
}

func TestHandleSearchStreamRejectsEmptyQuery(t *testing.T) {
	svc, _ := newTestService(t)

	req := httptest.NewRequest(http.MethodPost, "/api/search/stream", strings.NewReader(`{"query":""}`))
	rec := httptest.NewRecorder()
	svc.handleSearchStream(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if ct := rec.Header().Get("Content-Type"); strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("stream started for invalid request, Content-Type = %q", ct)
	}
}

func TestHandleHistoryLifecycle(t *testing.T) {
	svc, store := newTestService(t)

	saved := &model.AnalysisResult{
		ID:    "hist-1",
		Query: "부동산 규제",
		Topic: "부동산 규제",
		OriginalAnalysis: model.OriginalAnalysis{
			Stance: model.StanceNeutral,
		},
		BalancedSummary: "요약",
	}
	if err := store.SaveResult(context.Background(), saved); err != nil {
		t.Fatal(err)
	}

	// List.
	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	rec := httptest.NewRecorder()
	svc.handleHistory(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var listBody struct {
		Searches []model.ResultSummary `json:"searches"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listBody); err != nil {
		t.Fatal(err)
	}
	if len(listBody.Searches) != 1 || listBody.Searches[0].ID != "hist-1" {
		t.Fatalf("searches = %+v", listBody.Searches)
	}

	// Get one.
	req = httptest.NewRequest(http.MethodGet, "/api/history/hist-1", nil)
	rec = httptest.NewRecorder()
	svc.handleHistory(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var got model.AnalysisResult
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Query != "부동산 규제" {
		t.Errorf("query = %q", got.Query)
	}

	// Delete.
	req = httptest.NewRequest(http.MethodDelete, "/api/history/hist-1", nil)
	rec = httptest.NewRecorder()
	svc.handleHistory(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}

	// Gone afterwards.
	req = httptest.NewRequest(http.MethodGet, "/api/history/hist-1", nil)
	rec = httptest.NewRecorder()
	svc.handleHistory(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", rec.Code)
	}
}

func TestHandleHistoryUnknownID(t *testing.T) {
	svc, _ := newTestService(t)

	req := httptest.NewRequest(http.MethodGet, "/api/history/no-such-id", nil)
	rec := httptest.NewRecorder()
	svc.handleHistory(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/history/no-such-id", nil)
	rec = httptest.NewRecorder()
	svc.handleHistory(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("delete status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandleHealth(t *testing.T) {
	svc, _ := newTestService(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	svc.handleHealth(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
