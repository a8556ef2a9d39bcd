package notifier

import (
	"context"
	"fmt"
	"time"

	"abitickets/internal/logger"
	"abitickets/internal/models"
	"abitickets/internal/order"
)

// Store is what the sweep needs from the ledger's storage.
type Store interface {
	ListUnnotified(ctx context.Context) ([]models.Order, error)
	TicketsByOrder(ctx context.Context, bestellnummer string) ([]models.Ticket, error)
	MarkEmailSent(ctx context.Context, bestellnummer string) error
	DeleteOrphanTickets(ctx context.Context) (int64, error)
}

// Renderer produces the PDF attachment for one ticket.
type Renderer interface {
	Render(order models.Order, ticket models.Ticket) ([]byte, error)
}

// Sweep periodically delivers tickets for paid orders. Delivery is
// at-least-once: email_sent only flips after a successful send, and a
// failed order is retried on the next pass. Each pass also drops
// ticket rows whose order has been deleted.
type Sweep struct {
	Store    Store
	Renderer Renderer
	Mailer   order.Mailer
	Logger   *logger.Logger
	Interval time.Duration
}

func NewSweep(store Store, renderer Renderer, mailer order.Mailer, interval time.Duration, log *logger.Logger) *Sweep {
	return &Sweep{Store: store, Renderer: renderer, Mailer: mailer, Interval: interval, Logger: log}
}

// Run blocks until ctx is cancelled, executing one pass per interval.
// A failed pass is logged and skipped; the next tick retries.
func (s *Sweep) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			passCtx, cancel := context.WithTimeout(ctx, s.Interval)
			if err := s.RunOnce(passCtx); err != nil {
				s.Logger.Error("SWEEP", fmt.Sprintf("pass failed: %v", err))
			}
			cancel()
		}
	}
}

// RunOnce executes a single notification pass.
func (s *Sweep) RunOnce(ctx context.Context) error {
	if removed, err := s.Store.DeleteOrphanTickets(ctx); err != nil {
		s.Logger.Error("SWEEP", fmt.Sprintf("orphan cleanup: %v", err))
	} else if removed > 0 {
		s.Logger.Warn("SWEEP", fmt.Sprintf("removed %d orphaned tickets", removed))
	}

	orders, err := s.Store.ListUnnotified(ctx)
	if err != nil {
		return fmt.Errorf("list unnotified orders: %w", err)
	}

	for _, ord := range orders {
		if err := s.deliver(ctx, ord); err != nil {
			// Retried on the next pass.
			s.Logger.Error("SWEEP", fmt.Sprintf("deliver %s: %v", ord.Bestellnummer, err))
		}
	}
	return nil
}

func (s *Sweep) deliver(ctx context.Context, ord models.Order) error {
	ticketRows, err := s.Store.TicketsByOrder(ctx, ord.Bestellnummer)
	if err != nil {
		return fmt.Errorf("load tickets: %w", err)
	}

	attachments := make([]models.Attachment, 0, len(ticketRows))
	for _, ticket := range ticketRows {
		pdf, err := s.Renderer.Render(ord, ticket)
		if err != nil {
			return err
		}
		attachments = append(attachments, models.Attachment{
			Filename: fmt.Sprintf("ticket-%d.pdf", ticket.Nummer),
			Data:     pdf,
		})
	}

	if err := s.Mailer.SendTickets(ord, attachments); err != nil {
		return err
	}
	if err := s.Store.MarkEmailSent(ctx, ord.Bestellnummer); err != nil {
		return fmt.Errorf("mark email sent: %w", err)
	}
	s.Logger.LogMail("TICKETS", ord.Email, ord.Bestellnummer)
	return nil
}
