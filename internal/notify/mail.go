package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/saurabh97858/myshow-sub000/internal/domain"
	"github.com/saurabh97858/myshow-sub000/internal/mailer"
)

var templates = map[domain.EventType]string{
	domain.EventBookingHeld:      "booking_held.tmpl",
	domain.EventBookingPaid:      "booking_paid.tmpl",
	domain.EventBookingCancelled: "booking_cancelled.tmpl",
	domain.EventBookingExpired:   "booking_expired.tmpl",
}

type mailData struct {
	BookingID     string
	ShowtimeID    string
	Seats         []string
	TotalPrice    string
	HoldExpiresAt time.Time
}

// MailNotifier e-mails events to the booking's contact address. Sending happens
// in the background; Wait blocks until every pending message is handled.
type MailNotifier struct {
	mailer     mailer.Mailer
	holdWindow time.Duration
	logger     *slog.Logger
	wg         sync.WaitGroup
}

func NewMailNotifier(m mailer.Mailer, holdWindow time.Duration, logger *slog.Logger) *MailNotifier {
	return &MailNotifier{
		mailer:     m,
		holdWindow: holdWindow,
		logger:     logger,
	}
}

func (n *MailNotifier) Notify(_ context.Context, holderID string, event domain.Event) error {
	tmpl, ok := templates[event.Type]
	if !ok || event.Email == "" {
		return nil
	}

	data := mailData{
		BookingID:     event.BookingID,
		ShowtimeID:    event.ShowtimeID,
		Seats:         event.Seats,
		TotalPrice:    event.TotalPrice.StringFixed(2),
		HoldExpiresAt: event.OccurredAt.Add(n.holdWindow),
	}

	n.wg.Add(1)

	go func() {
		defer n.wg.Done()

		defer func() {
			if err := recover(); err != nil {
				n.logger.Error("mail notifier panicked", "error", err)
			}
		}()

		err := n.mailer.Send(event.Email, tmpl, data)
		if err != nil {
			n.logger.Error("failed to send booking e-mail",
				"holder_id", holderID, "event", event.Type, "error", err)
		}
	}()

	return nil
}

func (n *MailNotifier) Wait() {
	n.wg.Wait()
}
