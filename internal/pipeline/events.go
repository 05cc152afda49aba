package pipeline

import "github.com/noeunkim/black-white-siseon/internal/model"

// EventType tags one progress event. The set is closed; the stream emits no
// other types.
type EventType string

const (
	EventStart         EventType = "start"
	EventFetchOriginal EventType = "fetch_original"
	EventExtractTopic  EventType = "extract_topic"
	EventSearchPro     EventType = "search_pro"
	EventSearchCon     EventType = "search_con"
	EventSearchProDone EventType = "search_pro_done"
	EventSearchConDone EventType = "search_con_done"
	EventAnalyze       EventType = "analyze"
	EventComplete      EventType = "complete"
	EventError         EventType = "error"
)

// Event is the envelope every progress record shares on the wire. Data is
// nil or one of the payload types below, fixed per event type.
type Event struct {
	Type    EventType `json:"type"`
	Message string    `json:"message"`
	Data    any       `json:"data,omitempty"`
}

// FetchOriginalData accompanies the second fetch_original event.
type FetchOriginalData struct {
	HasContent bool   `json:"hasContent"`
	Title      string `json:"title,omitempty"`
	Source     string `json:"source,omitempty"`
}

// ExtractTopicData accompanies the second extract_topic event.
type ExtractTopicData struct {
	Topic           string       `json:"topic"`
	Stance          model.Stance `json:"stance"`
	SupportingQuery string       `json:"supportingQuery"`
	OpposingQuery   string       `json:"opposingQuery"`
}

// SearchDoneData accompanies search_pro_done and search_con_done.
type SearchDoneData struct {
	Articles []model.PreviewArticle `json:"articles"`
}

// CompleteData accompanies the terminal complete event.
type CompleteData struct {
	Result *model.AnalysisResult `json:"result"`
}

// Sink receives progress events in logical stage order. A Send error means
// the caller is gone; the run stops emitting and winds down.
type Sink interface {
	Send(event Event) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(event Event) error

// Send implements Sink.
func (f SinkFunc) Send(event Event) error { return f(event) }

// DiscardSink drops all events. Used by the non-streaming endpoint.
var DiscardSink = SinkFunc(func(Event) error { return nil })
