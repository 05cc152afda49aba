package storage

import (
	"context"
	"errors"

	"github.com/noeunkim/black-white-siseon/internal/model"
)

// ErrNotFound is returned when no result exists for the requested id.
var ErrNotFound = errors.New("result not found")

// Store is the persistence port for analysis results. One SaveResult call is
// atomic: the result and all of its articles become visible together or not
// at all. Persisted records are immutable; the only mutation is whole-record
// deletion, which cascades to articles.
type Store interface {
	SaveResult(ctx context.Context, result *model.AnalysisResult) error
	GetResult(ctx context.Context, id string) (*model.AnalysisResult, error)
	ListResults(ctx context.Context, limit int) ([]*model.ResultSummary, error)
	DeleteResult(ctx context.Context, id string) error
	Close() error
}
