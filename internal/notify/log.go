package notify

import (
	"context"
	"log/slog"

	"github.com/saurabh97858/myshow-sub000/internal/domain"
)

// LogNotifier writes events to the application log. It is the sink used when
// no broker or mail server is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, holderID string, event domain.Event) error {
	n.logger.InfoContext(ctx, "booking event",
		"holder_id", holderID,
		"event", event.Type,
		"showtime_id", event.ShowtimeID,
		"seats", event.Seats,
	)

	return nil
}
