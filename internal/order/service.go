package order

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"abitickets/internal/config"
	"abitickets/internal/logger"
	"abitickets/internal/models"
)

// DBLayer is everything the ledger needs from storage. Cross-field
// invariants (inventory, uniqueness, scan-once, pay-once) are enforced
// inside these methods, never by read-then-write in the service.
type DBLayer interface {
	CreateOrder(ctx context.Context, order *models.Order, maxTickets int) ([]models.Ticket, error)
	GetOrderByNumber(ctx context.Context, bestellnummer string) (*models.Order, error)
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	ListOrders(ctx context.Context) ([]models.Order, error)
	SumTicketCount(ctx context.Context) (int, error)
	MarkPaid(ctx context.Context, bestellnummer string) (bool, error)
	MarkReminderSent(ctx context.Context, bestellnummer string) error
	MarkOrderScanned(ctx context.Context, bestellnummer string) error
	GetTicketByToken(ctx context.Context, token string) (*models.Ticket, error)
	MarkTicketScanned(ctx context.Context, token string) (bool, error)
	DeleteOrderByNumber(ctx context.Context, bestellnummer string) (bool, error)
}

// Mailer sends the templated mails. A returned error means the order
// must not be treated as notified.
type Mailer interface {
	SendOrderConfirmation(order models.Order) error
	SendReminder(order models.Order) error
	SendTickets(order models.Order, attachments []models.Attachment) error
}

// EventPublisher streams domain events. Publishing is fire-and-forget;
// failures are logged and never fail the operation.
type EventPublisher interface {
	PublishOrderCreated(order models.Order) error
	PublishOrderPaid(order models.Order) error
	PublishOrderDeleted(order models.Order) error
	PublishTicketScanned(ticket models.Ticket) error
}

// OrderService is the order ledger.
type OrderService struct {
	DB     DBLayer
	Mailer Mailer
	Events EventPublisher
	Logger *logger.Logger

	cfg config.TicketConfig

	// Serializes purchases within the process, on top of the
	// transactional check in storage.
	placeMu sync.Mutex
}

func NewOrderService(db DBLayer, mailer Mailer, events EventPublisher, cfg config.TicketConfig, log *logger.Logger) *OrderService {
	return &OrderService{DB: db, Mailer: mailer, Events: events, cfg: cfg, Logger: log}
}

// Price computes the tiered total: base price plus a surcharge per
// additional ticket.
func (s *OrderService) Price(anzahl int) float64 {
	return s.cfg.BasePrice + float64(anzahl-1)*s.cfg.AdditionalPrice
}

// PlaceOrder validates the purchase form, allocates numbers and
// persists the order, then sends the confirmation mail best-effort.
// A failed mail leaves the order persisted and is reported through
// PlacedOrder.EmailSent.
func (s *OrderService) PlaceOrder(ctx context.Context, req models.OrderRequest) (*models.PlacedOrder, error) {
	if strings.TrimSpace(req.Vorname) == "" ||
		strings.TrimSpace(req.Name) == "" ||
		strings.TrimSpace(req.Email) == "" {
		return nil, models.ErrMissingFields
	}
	if req.AnzahlTickets < 1 || req.AnzahlTickets > 10 {
		return nil, models.ErrInvalidTicketCount
	}

	order := models.Order{
		Vorname:       strings.TrimSpace(req.Vorname),
		Name:          strings.TrimSpace(req.Name),
		Email:         strings.TrimSpace(req.Email),
		AnzahlTickets: req.AnzahlTickets,
		Gesamtpreis:   s.Price(req.AnzahlTickets),
		CreatedAt:     time.Now(),
	}

	s.placeMu.Lock()
	tickets, err := s.DB.CreateOrder(ctx, &order, s.cfg.MaxTickets)
	s.placeMu.Unlock()
	if err != nil {
		return nil, err
	}
	s.Logger.LogOrder("CREATE", order.Bestellnummer,
		fmt.Sprintf("%d tickets for %s %s", order.AnzahlTickets, order.Vorname, order.Name))

	if err := s.Events.PublishOrderCreated(order); err != nil {
		s.Logger.Error("EVENTS", fmt.Sprintf("publish order created: %v", err))
	}

	emailSent := true
	if err := s.Mailer.SendOrderConfirmation(order); err != nil {
		emailSent = false
		s.Logger.Error("MAIL", fmt.Sprintf("confirmation for %s: %v", order.Bestellnummer, err))
	}

	return &models.PlacedOrder{
		Bestellnummer: order.Bestellnummer,
		Vorname:       order.Vorname,
		Name:          order.Name,
		Email:         order.Email,
		Gesamtpreis:   order.Gesamtpreis,
		Tickets:       tickets,
		Token:         order.Token,
		EmailSent:     emailSent,
	}, nil
}

// ConfirmPayment marks the order paid. Calling it again for a paid
// order is a no-op success; an unknown order is ErrNotFound.
func (s *OrderService) ConfirmPayment(ctx context.Context, bestellnummer string) (*models.Order, error) {
	updated, err := s.DB.MarkPaid(ctx, bestellnummer)
	if err != nil {
		return nil, fmt.Errorf("mark paid: %w", err)
	}

	order, err := s.DB.GetOrderByNumber(ctx, bestellnummer)
	if err != nil {
		return nil, err
	}

	if updated {
		s.Logger.LogOrder("PAID", bestellnummer, "payment confirmed")
		if err := s.Events.PublishOrderPaid(*order); err != nil {
			s.Logger.Error("EVENTS", fmt.Sprintf("publish order paid: %v", err))
		}
	}
	return order, nil
}

// ValidateAndScan accepts a ticket token exactly once. Fails closed on
// unknown tokens, unpaid orders and repeated scans.
func (s *OrderService) ValidateAndScan(ctx context.Context, token string) (*models.Ticket, error) {
	ticket, err := s.DB.GetTicketByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	order, err := s.DB.GetOrderByNumber(ctx, ticket.Bestellnummer)
	if err != nil {
		return nil, err
	}
	if !order.Gezahlt {
		return nil, models.ErrUnpaid
	}

	scanned, err := s.DB.MarkTicketScanned(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("mark scanned: %w", err)
	}
	if !scanned {
		return nil, models.ErrAlreadyScanned
	}

	if err := s.DB.MarkOrderScanned(ctx, ticket.Bestellnummer); err != nil {
		s.Logger.Error("SCAN", fmt.Sprintf("mark order %s scanned: %v", ticket.Bestellnummer, err))
	}
	s.Logger.LogScan("ACCEPTED", fmt.Sprintf("ticket %d (%s)", ticket.Nummer, ticket.Bestellnummer))

	if err := s.Events.PublishTicketScanned(*ticket); err != nil {
		s.Logger.Error("EVENTS", fmt.Sprintf("publish ticket scanned: %v", err))
	}

	ticket.Scanned = true
	return ticket, nil
}

// DeleteOrder removes the order and its tickets by Bestellnummer.
func (s *OrderService) DeleteOrder(ctx context.Context, bestellnummer string) error {
	order, err := s.DB.GetOrderByNumber(ctx, bestellnummer)
	if err != nil {
		return err
	}
	deleted, err := s.DB.DeleteOrderByNumber(ctx, bestellnummer)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if !deleted {
		return models.ErrNotFound
	}
	s.Logger.LogOrder("DELETE", bestellnummer, "order removed")
	if err := s.Events.PublishOrderDeleted(*order); err != nil {
		s.Logger.Error("EVENTS", fmt.Sprintf("publish order deleted: %v", err))
	}
	return nil
}

// DeleteOrderByID removes the order by its numeric id.
func (s *OrderService) DeleteOrderByID(ctx context.Context, id int64) error {
	order, err := s.DB.GetOrderByID(ctx, id)
	if err != nil {
		return err
	}
	return s.DeleteOrder(ctx, order.Bestellnummer)
}

// Remaining is configured capacity minus tickets sold. Deliberately
// not clamped: a negative value means an oversell and should be seen.
func (s *OrderService) Remaining(ctx context.Context) (int, error) {
	sold, err := s.DB.SumTicketCount(ctx)
	if err != nil {
		return 0, err
	}
	return s.cfg.MaxTickets - sold, nil
}

func (s *OrderService) ListOrders(ctx context.Context) ([]models.Order, error) {
	return s.DB.ListOrders(ctx)
}

func (s *OrderService) GetOrder(ctx context.Context, bestellnummer string) (*models.Order, error) {
	return s.DB.GetOrderByNumber(ctx, bestellnummer)
}

// ResendConfirmation re-sends the payment instructions mail.
func (s *OrderService) ResendConfirmation(ctx context.Context, bestellnummer string) error {
	order, err := s.DB.GetOrderByNumber(ctx, bestellnummer)
	if err != nil {
		return err
	}
	if err := s.Mailer.SendOrderConfirmation(*order); err != nil {
		return fmt.Errorf("resend confirmation: %w", err)
	}
	s.Logger.LogMail("RESEND", order.Email, bestellnummer)
	return nil
}

// SendReminder mails a payment reminder and records it.
func (s *OrderService) SendReminder(ctx context.Context, bestellnummer string) error {
	order, err := s.DB.GetOrderByNumber(ctx, bestellnummer)
	if err != nil {
		return err
	}
	if err := s.Mailer.SendReminder(*order); err != nil {
		return fmt.Errorf("send reminder: %w", err)
	}
	if err := s.DB.MarkReminderSent(ctx, bestellnummer); err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	s.Logger.LogMail("REMINDER", order.Email, bestellnummer)
	return nil
}
