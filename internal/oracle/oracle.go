package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	"github.com/noeunkim/black-white-siseon/internal/config"
	dm "github.com/noeunkim/black-white-siseon/internal/model"
	"github.com/noeunkim/black-white-siseon/internal/search"
)

const (
	// Prompt budgets, in runes.
	extractContentCap    = 2000
	synthesisContentCap  = 3000
	synthesisExcerptCap  = 400
	planTopicCap         = 30
	planQueryCap         = 50
	systemPromptJSONOnly = "당신은 JSON 생성기입니다. JSON 문자열만 출력하세요."
)

// Client wraps the reasoning model behind the two pipeline calls: query-plan
// extraction and synthesis. Calls are throttled by a shared limiter.
type Client struct {
	chatModel model.ChatModel
	limiter   *rate.Limiter
}

// New initializes the chat model from config.
func New(ctx context.Context, llm config.LLMConfig, cc config.ConcurrencyConfig) (*Client, error) {
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: llm.BaseURL,
		APIKey:  llm.APIKey,
		Model:   llm.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM init failed: %w", err)
	}

	limit := rate.Limit(float64(cc.RPM) / 60.0)
	limiter := rate.NewLimiter(limit, cc.QPS)

	return &Client{chatModel: chatModel, limiter: limiter}, nil
}

// complete sends one prompt and returns the raw text. 429s are retried with
// backoff inside this collaborator; every other failure propagates.
func (c *Client) complete(ctx context.Context, userPrompt string) (string, error) {
	maxRetries := 3
	baseDelay := 2 * time.Second
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}

		messages := []*schema.Message{
			{Role: schema.System, Content: systemPromptJSONOnly},
			{Role: schema.User, Content: userPrompt},
		}

		resp, err := c.chatModel.Generate(ctx, messages)
		if err != nil {
			if strings.Contains(err.Error(), "429") ||
				strings.Contains(strings.ToLower(err.Error()), "too many requests") {
				lastErr = err
				if i < maxRetries {
					select {
					case <-time.After(baseDelay * time.Duration(1<<i)):
						continue
					case <-ctx.Done():
						return "", ctx.Err()
					}
				}
			}
			return "", err
		}
		return resp.Content, nil
	}
	return "", lastErr
}

// GenerateQueryPlan asks the model to classify the stance of retrieved
// content and derive one supporting and one opposing search query. A
// response without a decodable plan is a hard error for this stage.
func (c *Client) GenerateQueryPlan(ctx context.Context, content string) (*dm.StanceQueryPlan, error) {
	prompt := fmt.Sprintf(`콘텐츠를 분석하여 검색 쿼리를 생성하세요.

[콘텐츠]
%s

JSON 형식으로 응답:
{
  "topic": "핵심 주제 (3-5단어, 검색용)",
  "originalStance": "pro/con/neutral",
  "stanceDescription": "입장 설명 (한 문장)",
  "supportingSearchQuery": "같은 입장 검색어 (20자 이내)",
  "opposingSearchQuery": "반대 입장 검색어 (20자 이내)"
}

지침:
- 비판 콘텐츠 → originalStance: "con"
- 옹호 콘텐츠 → originalStance: "pro"
- 검색어는 반드시 20자 이내로 간결하게
- 예: "쿠팡 대표 옹호 해명", "쿠팡 대표 비판 논란"

JSON만 출력:`, clampRunes(content, extractContentCap))

	raw, err := c.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	jsonText, err := ExtractJSONObject(raw)
	if err != nil {
		return nil, fmt.Errorf("query plan parse failed: %w", err)
	}

	var plan dm.StanceQueryPlan
	if err := json.Unmarshal([]byte(jsonText), &plan); err != nil {
		return nil, fmt.Errorf("query plan decode failed: %w", err)
	}
	if plan.SupportingQuery == "" || plan.OpposingQuery == "" {
		return nil, fmt.Errorf("query plan missing search queries")
	}

	plan.Topic = clampRunes(plan.Topic, planTopicCap)
	plan.SupportingQuery = clampRunes(plan.SupportingQuery, planQueryCap)
	plan.OpposingQuery = clampRunes(plan.OpposingQuery, planQueryCap)

	return &plan, nil
}

// Synthesis is the decoded shape of the second model call. Article entries
// carry no ids or media flags yet; the pipeline assigns those.
type Synthesis struct {
	Topic            string               `json:"topic"`
	OriginalAnalysis dm.OriginalAnalysis  `json:"originalAnalysis"`
	ProArticles      []dm.AnalyzedArticle `json:"proArticles"`
	ConArticles      []dm.AnalyzedArticle `json:"conArticles"`
	BalancedSummary  string               `json:"balancedSummary"`
}

// Synthesize asks the model to reconcile both search sides into the final
// categorized result. originalContent may be empty for plain-topic runs.
func (c *Client) Synthesize(ctx context.Context, userInput, originalContent string, supporting, opposing []search.Result, originalStance dm.Stance) (*Synthesis, error) {
	var originalSection string
	if originalContent != "" {
		originalSection = fmt.Sprintf("\n[원문 콘텐츠]\n%s\n", clampRunes(originalContent, synthesisContentCap))
	}
	if originalStance == "" {
		originalStance = dm.StanceNeutral
	}

	prompt := fmt.Sprintf(`뉴스 분석 전문가로서 다음을 분석하세요.

[입력]
%s
%s
[같은 입장 검색 결과]
%s

[반대 입장 검색 결과]
%s

JSON 응답:
{
  "topic": "핵심 주제 (5단어 이내)",
  "originalAnalysis": {
    "title": "원문 제목",
    "topic": "핵심 이슈",
    "stance": "%s",
    "summary": "핵심 주장 (2문장)",
    "keyPoints": ["논점1", "논점2", "논점3"]
  },
  "proArticles": [{"title":"","url":"","source":"","summary":"","stance":"pro","keyPoint":""}],
  "conArticles": [{"title":"","url":"","source":"","summary":"","stance":"con","keyPoint":""}],
  "balancedSummary": "균형 요약 (2문장)"
}

지침:
- proArticles: 긍정/찬성/옹호 기사
- conArticles: 부정/반대/비판 기사
- 각 최대 4개, 관련 없는 기사 제외
- JSON만 출력`,
		userInput, originalSection,
		formatResults(supporting), formatResults(opposing), originalStance)

	raw, err := c.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	jsonText, err := ExtractJSONObject(raw)
	if err != nil {
		return nil, fmt.Errorf("synthesis parse failed: %w", err)
	}

	var synth Synthesis
	if err := json.Unmarshal([]byte(jsonText), &synth); err != nil {
		return nil, fmt.Errorf("synthesis decode failed: %w", err)
	}

	return &synth, nil
}

func formatResults(results []search.Result) string {
	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "%d. %s\n%s\n%s", i+1, r.Title, r.URL, clampRunes(r.Content, synthesisExcerptCap))
	}
	return sb.String()
}

func clampRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
