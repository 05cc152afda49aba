package scraper

import (
	"strings"
	"testing"
)

func TestExtractSource(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.chosun.com/politics/2024/01/01/abc", "조선일보"},
		{"https://n.news.naver.com/article/001/0001", "네이버뉴스"},
		{"https://www.hani.co.kr/arti/society/1", "한겨레"},
		{"https://unknown-outlet.example/story", "unknown-outlet.example"},
		{"::not a url::", "Unknown"},
	}

	for _, tt := range tests {
		if got := ExtractSource(tt.url); got != tt.want {
			t.Errorf("ExtractSource(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestCleanContent(t *testing.T) {
	in := strings.Join([]string{
		"댓글 0",
		"정부는 오늘 새로운 에너지 정책을 발표하면서 원전 비중 확대 방침을 밝혔다.",
		"짧은 줄",
		"관련기사 보기를 누르면 더 많은 기사를 볼 수 있습니다",
		"Copyright ⓒ 연합뉴스. 무단전재 및 재배포 금지",
		"야당은 이번 발표가 충분한 공론화 없이 이루어졌다고 즉각 반발하고 나섰다.",
	}, "\n")

	got := cleanContent(in)

	if strings.Contains(got, "댓글") || strings.Contains(got, "관련기사") {
		t.Errorf("boilerplate survived cleaning: %q", got)
	}
	if strings.Contains(got, "Copyright") || strings.Contains(got, "무단전재") {
		t.Errorf("copyright line survived cleaning: %q", got)
	}
	if !strings.Contains(got, "에너지 정책") || !strings.Contains(got, "반발") {
		t.Errorf("body lines were dropped: %q", got)
	}
}
