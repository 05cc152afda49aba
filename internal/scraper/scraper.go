package scraper

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
)

// Article is the extracted body of one news page.
type Article struct {
	Title   string
	Content string
	Source  string
	URL     string
}

const (
	fetchTimeout = 30 * time.Second
	// Pages whose extracted body is shorter than this are treated the same
	// as a failed fetch.
	minContentRunes = 200
	maxContentRunes = 8000
)

// sourceMap translates outlet hostnames to display labels.
var sourceMap = map[string]string{
	"chosun.com":       "조선일보",
	"donga.com":        "동아일보",
	"joongang.co.kr":   "중앙일보",
	"hani.co.kr":       "한겨레",
	"khan.co.kr":       "경향신문",
	"kmib.co.kr":       "국민일보",
	"mk.co.kr":         "매일경제",
	"mt.co.kr":         "머니투데이",
	"sedaily.com":      "서울경제",
	"hankyung.com":     "한국경제",
	"yonhapnews.co.kr": "연합뉴스",
	"yna.co.kr":        "연합뉴스",
	"news.kbs.co.kr":   "KBS",
	"imnews.imbc.com":  "MBC",
	"news.sbs.co.kr":   "SBS",
	"jtbc.co.kr":       "JTBC",
	"newsis.com":       "뉴시스",
	"news1.kr":         "뉴스1",
	"hankookilbo.com":  "한국일보",
	"segye.com":        "세계일보",
	"nocutnews.co.kr":  "노컷뉴스",
	"ohmynews.com":     "오마이뉴스",
	"pressian.com":     "프레시안",
	"munhwa.com":       "문화일보",
	"news.naver.com":   "네이버뉴스",
	"n.news.naver.com": "네이버뉴스",
}

// ExtractSource maps a URL to its outlet label, falling back to the bare
// hostname and "Unknown" for unparsable input.
func ExtractSource(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "Unknown"
	}
	hostname := strings.TrimPrefix(u.Hostname(), "www.")
	if label, ok := sourceMap[hostname]; ok {
		return label
	}
	return hostname
}

// Scraper retrieves and extracts news article bodies.
type Scraper struct{}

// New creates a Scraper.
func New() *Scraper {
	return &Scraper{}
}

// Fetch downloads the page at rawURL and extracts its readable body.
// Returns nil when the page yields no title or too little text; callers
// treat nil the same as a network failure and degrade.
func (s *Scraper) Fetch(ctx context.Context, rawURL string) (*Article, error) {
	parsed, err := readability.FromURL(rawURL, fetchTimeout)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(parsed.Title)
	content := cleanContent(parsed.TextContent)

	if title == "" || len([]rune(content)) < minContentRunes {
		return nil, nil
	}

	if r := []rune(content); len(r) > maxContentRunes {
		content = string(r[:maxContentRunes])
	}

	return &Article{
		Title:   title,
		Content: content,
		Source:  ExtractSource(rawURL),
		URL:     rawURL,
	}, nil
}

// cleanContent collapses whitespace and drops navigation/boilerplate lines
// that readability tends to leave behind on Korean news pages.
func cleanContent(text string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if len([]rune(line)) < 15 {
			continue
		}
		if hasBoilerplatePrefix(line) {
			continue
		}
		lower := strings.ToLower(line)
		if strings.Contains(lower, "copyright") ||
			strings.Contains(line, "저작권") ||
			strings.Contains(line, "무단전재") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

var boilerplatePrefixes = []string{
	"공유", "댓글", "좋아요", "구독", "알림", "로그인", "회원가입",
	"이전기사", "다음기사", "관련기사", "추천기사", "인기기사",
}

func hasBoilerplatePrefix(line string) bool {
	for _, p := range boilerplatePrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}
