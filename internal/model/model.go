package model

import "time"

// Modality classifies the raw user input.
type Modality string

const (
	ModalityTopic      Modality = "plain-topic"
	ModalityArticleURL Modality = "article-url"
	ModalityVideoURL   Modality = "video-url"
)

// Stance is a categorical position toward a topic.
type Stance string

const (
	StancePro     Stance = "pro"
	StanceCon     Stance = "con"
	StanceNeutral Stance = "neutral"
)

// AnalysisRequest is created at pipeline start and never persisted.
type AnalysisRequest struct {
	Query    string
	Modality Modality
}

// RetrievedContent holds the extracted text of the user's article or video.
// A nil *RetrievedContent is the expected state for plain topics and failed
// retrievals, not an error.
type RetrievedContent struct {
	Text   string
	Title  string
	Source string
}

// StanceQueryPlan drives the two-sided search. Produced once per run, either
// by the stance-extraction LLM call or by the heuristic fallback.
type StanceQueryPlan struct {
	Topic             string `json:"topic"`
	OriginalStance    Stance `json:"originalStance"`
	StanceDescription string `json:"stanceDescription"`
	SupportingQuery   string `json:"supportingSearchQuery"`
	OpposingQuery     string `json:"opposingSearchQuery"`
}

// MediaInfo marks YouTube results so the UI can render thumbnails inline.
type MediaInfo struct {
	IsYouTube bool   `json:"isYouTube,omitempty"`
	VideoID   string `json:"videoId,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// PreviewArticle is the lightweight record streamed after each search side
// resolves, before synthesis has produced summaries.
type PreviewArticle struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	Source string `json:"source"`
	Stance Stance `json:"stance"`
	MediaInfo
}

// AnalyzedArticle is one article in the final result. Stance is always pro or
// con here, matching the search bucket the article came from.
type AnalyzedArticle struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	Stance   Stance `json:"stance"`
	KeyPoint string `json:"keyPoint"`
	MediaInfo
}

// OriginalAnalysis describes the user's own content, or a neutral placeholder
// when the input was a bare topic.
type OriginalAnalysis struct {
	Title     string   `json:"title"`
	Topic     string   `json:"topic"`
	Stance    Stance   `json:"stance"`
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"keyPoints"`
}

// AnalysisResult is the terminal artifact of one pipeline run. Immutable once
// persisted; deletion is whole-record.
type AnalysisResult struct {
	ID               string            `json:"id"`
	Query            string            `json:"query"`
	Topic            string            `json:"topic"`
	OriginalAnalysis OriginalAnalysis  `json:"originalAnalysis"`
	ProArticles      []AnalyzedArticle `json:"proArticles"`
	ConArticles      []AnalyzedArticle `json:"conArticles"`
	BalancedSummary  string            `json:"balancedSummary"`
	CreatedAt        time.Time         `json:"createdAt"`
}

// ResultSummary is the history-list projection of a persisted result.
type ResultSummary struct {
	ID             string    `json:"id"`
	Query          string    `json:"query"`
	OriginalStance Stance    `json:"originalStance"`
	CreatedAt      time.Time `json:"createdAt"`
}
