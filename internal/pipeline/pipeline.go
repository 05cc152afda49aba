package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noeunkim/black-white-siseon/internal/classify"
	"github.com/noeunkim/black-white-siseon/internal/config"
	"github.com/noeunkim/black-white-siseon/internal/logger"
	"github.com/noeunkim/black-white-siseon/internal/model"
	"github.com/noeunkim/black-white-siseon/internal/oracle"
	"github.com/noeunkim/black-white-siseon/internal/scraper"
	"github.com/noeunkim/black-white-siseon/internal/search"
	"github.com/noeunkim/black-white-siseon/internal/storage"
	"github.com/noeunkim/black-white-siseon/internal/youtube"
)

// ErrEmptyQuery rejects blank input before any stage starts.
var ErrEmptyQuery = errors.New("query is required")

// Heuristic fallback used when no original content could be retrieved.
const (
	supportingMarker  = "찬성 지지"
	opposingMarker    = "반대 비판"
	heuristicTopicCap = 20
	videoTitleCap     = 30
)

// ArticleFetcher retrieves article bodies. nil article means unusable
// content; the pipeline degrades either way.
type ArticleFetcher interface {
	Fetch(ctx context.Context, url string) (*scraper.Article, error)
}

// TranscriptFetcher retrieves YouTube caption tracks and titles.
type TranscriptFetcher interface {
	FetchTranscript(ctx context.Context, url string) (*youtube.Transcript, error)
	FetchTitle(ctx context.Context, videoID string) string
}

// Oracle is the reasoning model behind the extraction and synthesis stages.
type Oracle interface {
	GenerateQueryPlan(ctx context.Context, content string) (*model.StanceQueryPlan, error)
	Synthesize(ctx context.Context, userInput, originalContent string, supporting, opposing []search.Result, originalStance model.Stance) (*oracle.Synthesis, error)
}

// Pipeline runs one analysis per call: classify, retrieve, plan, search both
// stances, synthesize, persist, streaming progress to the sink throughout.
type Pipeline struct {
	scraper  ArticleFetcher
	youtube  TranscriptFetcher
	oracle   Oracle
	searcher search.Searcher
	store    storage.Store
	cfg      config.PipelineConfig
}

// New wires the pipeline's collaborators.
func New(s ArticleFetcher, yt TranscriptFetcher, o Oracle, searcher search.Searcher, store storage.Store, cfg config.PipelineConfig) *Pipeline {
	return &Pipeline{
		scraper:  s,
		youtube:  yt,
		oracle:   o,
		searcher: searcher,
		store:    store,
		cfg:      cfg,
	}
}

// Run executes one analysis. Progress events are delivered to sink in stage
// order; a sink error (caller gone) stops the run without an error event.
// On success exactly one result has been persisted; on failure none.
func (p *Pipeline) Run(ctx context.Context, query string, sink Sink) (result *model.AnalysisResult, err error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Log.Errorf("분석 파이프라인 panic: %v", r)
			_ = sink.Send(Event{Type: EventError, Message: "분석 중 오류가 발생했습니다."})
			result, err = nil, fmt.Errorf("pipeline panic: %v", r)
		}
	}()

	if err := sink.Send(Event{Type: EventStart, Message: "분석을 시작합니다..."}); err != nil {
		return nil, err
	}

	modality := classify.Classify(query)

	content, topicSeed, err := p.retrieveOriginal(ctx, query, modality, sink)
	if err != nil {
		return nil, err
	}

	plan, err := p.buildPlan(ctx, content, topicSeed, sink)
	if err != nil {
		return nil, err
	}

	if err := sink.Send(Event{Type: EventSearchPro, Message: "같은 입장 뉴스 검색 중..."}); err != nil {
		return nil, err
	}
	if err := sink.Send(Event{Type: EventSearchCon, Message: "반대 입장 뉴스 검색 중..."}); err != nil {
		return nil, err
	}

	supporting, opposing := p.searchBothStances(ctx, plan.SupportingQuery, plan.OpposingQuery)

	// Completion events go out in fixed logical order once both sides have
	// joined, regardless of which search finished first.
	if err := sink.Send(Event{
		Type:    EventSearchProDone,
		Message: fmt.Sprintf("같은 입장 %d개 발견", len(supporting)),
		Data:    SearchDoneData{Articles: buildPreviews(supporting, model.StancePro)},
	}); err != nil {
		return nil, err
	}
	if err := sink.Send(Event{
		Type:    EventSearchConDone,
		Message: fmt.Sprintf("반대 입장 %d개 발견", len(opposing)),
		Data:    SearchDoneData{Articles: buildPreviews(opposing, model.StanceCon)},
	}); err != nil {
		return nil, err
	}

	if err := sink.Send(Event{Type: EventAnalyze, Message: "AI가 종합 분석 중..."}); err != nil {
		return nil, err
	}

	var contentText string
	if content != nil {
		contentText = content.Text
	}
	synth, err := p.oracle.Synthesize(ctx, query, contentText, supporting, opposing, plan.OriginalStance)
	if err != nil {
		return nil, p.fail(sink, "종합 분석에 실패했습니다.", err)
	}

	result = p.assembleResult(query, synth)

	if err := p.store.SaveResult(ctx, result); err != nil {
		return nil, p.fail(sink, "분석 결과 저장에 실패했습니다.", err)
	}

	if err := sink.Send(Event{Type: EventComplete, Message: "분석 완료!", Data: CompleteData{Result: result}}); err != nil {
		return nil, err
	}

	return result, nil
}

// retrieveOriginal handles the fetch_original stage. Retrieval failures are
// never fatal: the run degrades to the heuristic path with a topic seed.
func (p *Pipeline) retrieveOriginal(ctx context.Context, query string, modality model.Modality, sink Sink) (*model.RetrievedContent, string, error) {
	topicSeed := query

	switch modality {
	case model.ModalityVideoURL:
		if err := sink.Send(Event{Type: EventFetchOriginal, Message: "YouTube 영상 자막을 추출하는 중..."}); err != nil {
			return nil, "", err
		}

		tr, err := p.youtube.FetchTranscript(ctx, query)
		if err != nil {
			logger.Log.Warnf("자막 추출 실패 [%s]: %v", query, err)
			tr = nil
		}

		if tr != nil && tr.Transcript != "" {
			title := p.youtube.FetchTitle(ctx, tr.VideoID)
			if err := sink.Send(Event{
				Type:    EventFetchOriginal,
				Message: fmt.Sprintf("자막 추출 완료: \"%s...\"", truncateRunes(title, 40)),
				Data:    FetchOriginalData{HasContent: true, Title: title, Source: "YouTube"},
			}); err != nil {
				return nil, "", err
			}
			return &model.RetrievedContent{Text: tr.Transcript, Title: title, Source: "YouTube"}, topicSeed, nil
		}

		if err := sink.Send(Event{
			Type:    EventFetchOriginal,
			Message: "자막 없음. 영상 제목으로 검색합니다.",
			Data:    FetchOriginalData{HasContent: false},
		}); err != nil {
			return nil, "", err
		}
		if videoID := youtube.ExtractVideoID(query); videoID != "" {
			topicSeed = truncateRunes(p.youtube.FetchTitle(ctx, videoID), videoTitleCap)
		}
		return nil, topicSeed, nil

	case model.ModalityArticleURL:
		if err := sink.Send(Event{Type: EventFetchOriginal, Message: "원문 기사를 가져오는 중..."}); err != nil {
			return nil, "", err
		}

		article, err := p.scraper.Fetch(ctx, query)
		if err != nil {
			logger.Log.Warnf("원문 수집 실패 [%s]: %v", query, err)
			article = nil
		}

		if article != nil {
			if err := sink.Send(Event{
				Type:    EventFetchOriginal,
				Message: fmt.Sprintf("원문 로드 완료: \"%s...\"", truncateRunes(article.Title, 40)),
				Data:    FetchOriginalData{HasContent: true, Title: article.Title, Source: article.Source},
			}); err != nil {
				return nil, "", err
			}
			return &model.RetrievedContent{Text: article.Content, Title: article.Title, Source: article.Source}, topicSeed, nil
		}

		if err := sink.Send(Event{
			Type:    EventFetchOriginal,
			Message: "원문을 가져올 수 없습니다.",
			Data:    FetchOriginalData{HasContent: false},
		}); err != nil {
			return nil, "", err
		}
		return nil, topicSeed, nil

	default:
		// Plain topics skip the fetch stage entirely, no event emitted.
		return nil, topicSeed, nil
	}
}

// buildPlan handles the extract_topic stage. With content it is one oracle
// call and stage-fatal on failure; without, the heuristic plan, which never
// fails and never calls the oracle.
func (p *Pipeline) buildPlan(ctx context.Context, content *model.RetrievedContent, topicSeed string, sink Sink) (*model.StanceQueryPlan, error) {
	if content == nil {
		return HeuristicPlan(topicSeed), nil
	}

	if err := sink.Send(Event{Type: EventExtractTopic, Message: "AI가 콘텐츠 입장을 분석하는 중..."}); err != nil {
		return nil, err
	}

	plan, err := p.oracle.GenerateQueryPlan(ctx, content.Text)
	if err != nil {
		return nil, p.fail(sink, "콘텐츠 입장 분석에 실패했습니다.", err)
	}

	if err := sink.Send(Event{
		Type:    EventExtractTopic,
		Message: "분석 완료: " + plan.StanceDescription,
		Data: ExtractTopicData{
			Topic:           plan.Topic,
			Stance:          plan.OriginalStance,
			SupportingQuery: plan.SupportingQuery,
			OpposingQuery:   plan.OpposingQuery,
		},
	}); err != nil {
		return nil, err
	}

	return plan, nil
}

// HeuristicPlan derives a plan from the raw topic without the oracle: fixed
// agreement/disagreement markers around the truncated topic, neutral stance.
func HeuristicPlan(topic string) *model.StanceQueryPlan {
	short := truncateRunes(strings.TrimSpace(topic), heuristicTopicCap)
	return &model.StanceQueryPlan{
		Topic:           short,
		OriginalStance:  model.StanceNeutral,
		SupportingQuery: short + " " + supportingMarker,
		OpposingQuery:   short + " " + opposingMarker,
	}
}

// searchBothStances fans out the two searches and joins them. A failed side
// resolves to an empty list; it never fails the run or blocks the other side.
func (p *Pipeline) searchBothStances(ctx context.Context, supportingQuery, opposingQuery string) (supporting, opposing []search.Result) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		supporting = p.searchSide(ctx, supportingQuery)
	}()
	go func() {
		defer wg.Done()
		opposing = p.searchSide(ctx, opposingQuery)
	}()
	wg.Wait()
	return supporting, opposing
}

func (p *Pipeline) searchSide(ctx context.Context, query string) []search.Result {
	// Over-fetch so dedup and filtering still leave a full page.
	resp, err := p.searcher.Search(ctx, &search.Request{
		Query:      query,
		Topic:      "general",
		MaxResults: p.cfg.SearchLimit * 2,
	})
	if err != nil {
		logger.Log.Warnf("뉴스 검색 실패 [%s]: %v", query, err)
		return nil
	}
	return filterResults(resp.Results, p.cfg.SearchLimit)
}

// buildPreviews converts one filtered side into preview articles for the
// search-done events.
func buildPreviews(results []search.Result, stance model.Stance) []model.PreviewArticle {
	previews := make([]model.PreviewArticle, 0, len(results))
	for _, r := range results {
		pv := model.PreviewArticle{
			ID:     uuid.NewString(),
			Title:  r.Title,
			URL:    r.URL,
			Source: scraper.ExtractSource(r.URL),
			Stance: stance,
		}
		applyMedia(&pv.MediaInfo, r.URL)
		if pv.IsYouTube {
			pv.Source = "YouTube"
		}
		previews = append(previews, pv)
	}
	return previews
}

// assembleResult turns the synthesis draft into the terminal artifact,
// forcing each article's stance to match the search bucket it came from.
func (p *Pipeline) assembleResult(query string, synth *oracle.Synthesis) *model.AnalysisResult {
	result := &model.AnalysisResult{
		ID:               uuid.NewString(),
		Query:            query,
		Topic:            synth.Topic,
		OriginalAnalysis: synth.OriginalAnalysis,
		ProArticles:      finalizeArticles(synth.ProArticles, model.StancePro, p.cfg.ArticlesPerSide),
		ConArticles:      finalizeArticles(synth.ConArticles, model.StanceCon, p.cfg.ArticlesPerSide),
		BalancedSummary:  synth.BalancedSummary,
		CreatedAt:        time.Now().UTC(),
	}
	if result.OriginalAnalysis.Stance == "" {
		result.OriginalAnalysis.Stance = model.StanceNeutral
	}
	return result
}

func finalizeArticles(articles []model.AnalyzedArticle, stance model.Stance, perSide int) []model.AnalyzedArticle {
	if len(articles) > perSide {
		articles = articles[:perSide]
	}
	out := make([]model.AnalyzedArticle, 0, len(articles))
	for _, a := range articles {
		a.ID = uuid.NewString()
		// Bucket wins over whatever stance label the model assigned.
		a.Stance = stance
		applyMedia(&a.MediaInfo, a.URL)
		if a.IsYouTube {
			a.Source = "YouTube"
		}
		out = append(out, a)
	}
	return out
}

func applyMedia(m *model.MediaInfo, url string) {
	lower := strings.ToLower(url)
	if !strings.Contains(lower, "youtube.com") && !strings.Contains(lower, "youtu.be") {
		return
	}
	m.IsYouTube = true
	if videoID := youtube.ExtractVideoID(url); videoID != "" {
		m.VideoID = videoID
		m.Thumbnail = youtube.ThumbnailURL(videoID)
	}
}

// fail logs a stage-fatal error, emits the terminal error event, and wraps
// the cause for the caller.
func (p *Pipeline) fail(sink Sink, msg string, cause error) error {
	logger.Log.Errorf("%s %v", msg, cause)
	_ = sink.Send(Event{Type: EventError, Message: msg})
	return fmt.Errorf("%s: %w", msg, cause)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
