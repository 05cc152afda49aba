package classify

import (
	"strings"

	"github.com/noeunkim/black-white-siseon/internal/model"
	"github.com/noeunkim/black-white-siseon/internal/youtube"
)

// Classify resolves the modality of a raw query string. Video URL patterns
// take priority over the generic URL check; everything else is a plain topic.
// Deterministic, no network.
func Classify(query string) model.Modality {
	switch {
	case youtube.IsVideoURL(query):
		return model.ModalityVideoURL
	case strings.HasPrefix(query, "http://"), strings.HasPrefix(query, "https://"):
		return model.ModalityArticleURL
	default:
		return model.ModalityTopic
	}
}
