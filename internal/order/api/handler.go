package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"abitickets/internal/models"
	"abitickets/internal/order"
	"abitickets/internal/utils"
)

type Handler struct {
	OrderService *order.OrderService
}

// ListOrders returns every order in the ledger.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.OrderService.ListOrders(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "could not load orders", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, orders)
}

// Remaining reports the remaining inventory.
func (h *Handler) Remaining(w http.ResponseWriter, r *http.Request) {
	remaining, err := h.OrderService.Remaining(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "could not compute remaining tickets", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]int{"verbleibend": remaining})
}

// CreateOrder handles the purchase form. A failed confirmation mail
// still yields 201: the order is saved and the response says the mail
// did not go out.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req models.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	placed, err := h.OrderService.PlaceOrder(r.Context(), req)
	if err != nil {
		utils.WriteError(w, statusFor(err), "could not place order", err)
		return
	}

	message := "Tickets erfolgreich gekauft. Eine Bestätigungs-E-Mail wurde an Ihre Adresse gesendet."
	if !placed.EmailSent {
		message = "Tickets erfolgreich reserviert. Die Bestätigungs-E-Mail konnte jedoch nicht gesendet werden. Sie können die E-Mail erneut senden."
	}
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse(message, placed))
}

// ResendEmail re-sends the payment instructions for an order.
func (h *Handler) ResendEmail(w http.ResponseWriter, r *http.Request) {
	bestellnummer := chi.URLParam(r, "bestellnummer")
	if err := h.OrderService.ResendConfirmation(r.Context(), bestellnummer); err != nil {
		utils.WriteError(w, statusFor(err), "could not resend email", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("confirmation email sent", nil))
}

// SendReminder mails a payment reminder.
func (h *Handler) SendReminder(w http.ResponseWriter, r *http.Request) {
	bestellnummer := chi.URLParam(r, "bestellnummer")
	if err := h.OrderService.SendReminder(r.Context(), bestellnummer); err != nil {
		utils.WriteError(w, statusFor(err), "could not send reminder", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("reminder sent", nil))
}

// MarkPaid confirms a bank transfer arrived. Idempotent.
func (h *Handler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	bestellnummer := chi.URLParam(r, "bestellnummer")
	updated, err := h.OrderService.ConfirmPayment(r.Context(), bestellnummer)
	if err != nil {
		utils.WriteError(w, statusFor(err), "could not update payment status", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("payment status updated", updated))
}

// ValidateTicket checks a scan token at the door.
func (h *Handler) ValidateTicket(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		utils.WriteError(w, http.StatusBadRequest, "token is required", err)
		return
	}

	ticket, err := h.OrderService.ValidateAndScan(r.Context(), req.Token)
	if err != nil {
		utils.WriteError(w, statusFor(err), "ticket rejected", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("ticket accepted",
		map[string]interface{}{"nummer": ticket.Nummer, "bestellnummer": ticket.Bestellnummer}))
}

// DeleteByNumber removes an order by Bestellnummer.
func (h *Handler) DeleteByNumber(w http.ResponseWriter, r *http.Request) {
	bestellnummer := chi.URLParam(r, "bestellnummer")
	if err := h.OrderService.DeleteOrder(r.Context(), bestellnummer); err != nil {
		utils.WriteError(w, statusFor(err), "could not delete order", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteByID removes an order by its numeric id.
func (h *Handler) DeleteByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid order id", err)
		return
	}
	if err := h.OrderService.DeleteOrderByID(r.Context(), id); err != nil {
		utils.WriteError(w, statusFor(err), "could not delete order", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// statusFor maps domain errors to HTTP statuses; anything unknown is a
// storage failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrMissingFields),
		errors.Is(err, models.ErrInvalidTicketCount),
		errors.Is(err, models.ErrDuplicateBuyer),
		errors.Is(err, models.ErrSoldOut),
		errors.Is(err, models.ErrUnpaid),
		errors.Is(err, models.ErrAlreadyScanned):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
