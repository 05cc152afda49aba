package youtube

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Transcript is the retrieved caption track of one video.
type Transcript struct {
	VideoID    string
	Transcript string
}

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`youtube\.com/watch\?v=([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtu\.be/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/shorts/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/embed/([a-zA-Z0-9_-]{11})`),
}

// IsVideoURL reports whether s points at a YouTube watch page, short, or
// shortlink. Pure string matching, no network.
func IsVideoURL(s string) bool {
	return strings.Contains(s, "youtube.com/watch") ||
		strings.Contains(s, "youtu.be/") ||
		strings.Contains(s, "youtube.com/shorts/")
}

// ExtractVideoID pulls the 11-character video id out of any recognized
// YouTube URL form, returning "" when none matches.
func ExtractVideoID(rawURL string) string {
	for _, p := range videoIDPatterns {
		if m := p.FindStringSubmatch(rawURL); m != nil {
			return m[1]
		}
	}
	return ""
}

// ThumbnailURL returns the medium-quality thumbnail for a video id.
func ThumbnailURL(videoID string) string {
	return fmt.Sprintf("https://img.youtube.com/vi/%s/mqdefault.jpg", videoID)
}

// Client fetches transcripts and titles from YouTube's public endpoints.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a YouTube client.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// timedtext XML shape.
type transcriptXML struct {
	Texts []struct {
		Value string `xml:",chardata"`
	} `xml:"text"`
}

// FetchTranscript retrieves the caption track for a video URL. Korean
// captions are preferred; the default track is tried when none exist.
// Returns nil when the URL is not a video or no track is available.
func (c *Client) FetchTranscript(ctx context.Context, rawURL string) (*Transcript, error) {
	videoID := ExtractVideoID(rawURL)
	if videoID == "" {
		return nil, nil
	}

	for _, lang := range []string{"ko", "en", ""} {
		text, err := c.fetchTrack(ctx, videoID, lang)
		if err != nil {
			return nil, err
		}
		if text != "" {
			return &Transcript{VideoID: videoID, Transcript: text}, nil
		}
	}
	return nil, nil
}

func (c *Client) fetchTrack(ctx context.Context, videoID, lang string) (string, error) {
	q := url.Values{}
	q.Set("v", videoID)
	if lang != "" {
		q.Set("lang", lang)
	}
	endpoint := "https://www.youtube.com/api/timedtext?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("timedtext request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", nil
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}

	var tx transcriptXML
	if err := xml.Unmarshal(body, &tx); err != nil || len(tx.Texts) == 0 {
		// An empty or non-XML body means the track does not exist.
		return "", nil
	}

	parts := make([]string, 0, len(tx.Texts))
	for _, t := range tx.Texts {
		parts = append(parts, html.UnescapeString(t.Value))
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " "), nil
}

// FetchTitle looks up the video title via oEmbed. It never fails: any error
// yields the placeholder title.
func (c *Client) FetchTitle(ctx context.Context, videoID string) string {
	placeholder := fmt.Sprintf("YouTube 영상 (%s)", videoID)

	endpoint := fmt.Sprintf(
		"https://www.youtube.com/oembed?url=https://www.youtube.com/watch?v=%s&format=json", videoID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return placeholder
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return placeholder
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return placeholder
	}

	var data struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(res.Body).Decode(&data); err != nil || data.Title == "" {
		return placeholder
	}
	return data.Title
}
