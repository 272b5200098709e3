// Package activity stores the unbounded activity history. The repository
// doubles as a status.Sink.
package activity

import (
	"context"

	"github.com/dmitrijs2005/moodkeeper/internal/client/status"
)

type Repository interface {
	Record(ctx context.Context, a status.Activity) error
	// List returns up to limit most recent activities, oldest first. A
	// non-positive limit returns everything.
	List(ctx context.Context, limit int) ([]status.Activity, error)
}
