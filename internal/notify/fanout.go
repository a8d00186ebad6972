package notify

import (
	"context"
	"errors"

	"github.com/saurabh97858/myshow-sub000/internal/domain"
)

// Fanout hands every event to each sink and joins their errors.
type Fanout []domain.Notifier

func (f Fanout) Notify(ctx context.Context, holderID string, event domain.Event) error {
	var errs []error

	for _, n := range f {
		if err := n.Notify(ctx, holderID, event); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
