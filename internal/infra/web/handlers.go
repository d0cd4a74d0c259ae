package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/model"
)

// ===== JSON helpers =====

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps domain sentinels onto HTTP statuses with a
// human-readable message; transition failures are rejected, never hidden.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrPlanInUse):
		writeError(w, http.StatusConflict, "plan is still referenced by subscriptions")
	case errors.Is(err, domain.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "subscription is being updated, try again")
	case errors.Is(err, domain.ErrGatewayFailure):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// ===== DTOs =====

type planDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Price       string `json:"price"`
	Description string `json:"description,omitempty"`
}

func toPlanDTO(p *model.Plan) planDTO {
	return planDTO{ID: p.ID, Name: p.Name, Price: p.Price.StringFixed(2), Description: p.Description}
}

type subscriptionDTO struct {
	ID          string     `json:"id"`
	PlanID      string     `json:"plan_id"`
	Status      string     `json:"status"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	IsRecurring bool       `json:"is_recurring"`
}

func toSubscriptionDTO(s *model.Subscription) subscriptionDTO {
	return subscriptionDTO{
		ID: s.ID, PlanID: s.PlanID, Status: string(s.Status),
		StartDate: s.StartDate, EndDate: s.EndDate, IsRecurring: s.IsRecurring,
	}
}

type paymentDTO struct {
	ID                   string    `json:"id"`
	SubscriptionID       string    `json:"subscription_id"`
	Amount               string    `json:"amount"`
	Method               string    `json:"method"`
	Status               string    `json:"status"`
	PaymentDate          time.Time `json:"payment_date"`
	TransactionReference *string   `json:"transaction_reference,omitempty"`
}

func toPaymentDTO(p *model.Payment) paymentDTO {
	return paymentDTO{
		ID: p.ID, SubscriptionID: p.SubscriptionID, Amount: p.Amount.StringFixed(2),
		Method: string(p.Method), Status: string(p.Status),
		PaymentDate: p.PaymentDate, TransactionReference: p.TransactionReference,
	}
}

// ===== Plan catalog =====

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.plans.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]planDTO, 0, len(plans))
	for _, p := range plans {
		out = append(out, toPlanDTO(p))
	}
	writeJSON(w, http.StatusOK, out)
}

type planRequest struct {
	Name        string `json:"name"`
	Price       string `json:"price"`
	Description string `json:"description"`
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid price")
		return
	}
	plan, err := s.plans.Create(r.Context(), req.Name, price, req.Description)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlanDTO(plan))
}

func (s *Server) handleUpdatePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	price := decimal.Zero
	if req.Price != "" {
		var err error
		price, err = decimal.NewFromString(req.Price)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid price")
			return
		}
	}
	plan, err := s.plans.Update(r.Context(), chi.URLParam(r, "planID"), req.Name, price, req.Description)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanDTO(plan))
}

func (s *Server) handleDeletePlan(w http.ResponseWriter, r *http.Request) {
	if err := s.plans.Delete(r.Context(), chi.URLParam(r, "planID")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ===== Subscriptions =====

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	isRecurring, _ := strconv.ParseBool(r.URL.Query().Get("is_recurring"))

	res, err := s.subs.Subscribe(r.Context(), claims.UserID(), chi.URLParam(r, "planID"), isRecurring)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// An existing subscription is a soft success with an informational
	// message, mirroring the catalog flow.
	msg := "subscribed successfully"
	status := http.StatusCreated
	if res.AlreadySubscribed {
		msg = "you are already subscribed to this plan"
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]interface{}{
		"message":      msg,
		"subscription": toSubscriptionDTO(res.Subscription),
	})
}

func (s *Server) handleManage(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	sub, err := s.subs.GetActive(r.Context(), claims.UserID())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusOK, map[string]interface{}{"subscription": nil})
			return
		}
		writeDomainError(w, err)
		return
	}

	history, err := s.payments.History(r.Context(), claims.UserID(), sub.ID, 10)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		writeDomainError(w, err)
		return
	}
	recent := make([]paymentDTO, 0, len(history))
	for _, p := range history {
		recent = append(recent, toPaymentDTO(p))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"subscription":    toSubscriptionDTO(sub),
		"recent_payments": recent,
	})
}

func (s *Server) handleRenew(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	sub, err := s.subs.StartRenewal(r.Context(), claims.UserID(), chi.URLParam(r, "subscriptionID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubscriptionDTO(sub))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	sub, err := s.subs.Cancel(r.Context(), claims.UserID(), chi.URLParam(r, "subscriptionID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubscriptionDTO(sub))
}

// ===== Payments =====

type initiatePaymentRequest struct {
	SubscriptionID string `json:"subscription_id"`
	Method         string `json:"method"`
}

func (s *Server) handleInitiatePayment(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	var req initiatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	method, err := model.ParsePaymentMethod(req.Method)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	res, err := s.payments.Initiate(r.Context(), claims.UserID(), req.SubscriptionID, method)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	body := map[string]interface{}{"payment": toPaymentDTO(res.Payment)}
	if res.ApprovalURL != "" {
		body["approval_url"] = res.ApprovalURL
	}
	writeJSON(w, http.StatusCreated, body)
}

func (s *Server) handlePaymentHistory(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	history, err := s.payments.History(r.Context(), claims.UserID(), chi.URLParam(r, "subscriptionID"), 50)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]paymentDTO, 0, len(history))
	for _, p := range history {
		out = append(out, toPaymentDTO(p))
	}
	writeJSON(w, http.StatusOK, out)
}

// handlePayPalExecute is the gateway's return redirect: ?paymentId=..&PayerID=..
func (s *Server) handlePayPalExecute(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	paymentID := q.Get("paymentId")
	payerID := q.Get("PayerID")
	if paymentID == "" || payerID == "" {
		s.renderHTML(w, http.StatusBadRequest, false, "missing paymentId or PayerID")
		return
	}

	p, err := s.payments.ExecuteGateway(r.Context(), paymentID, payerID)
	if err != nil {
		s.log.Warn().Str("gateway_id", paymentID).Err(err).Msg("paypal execute failed")
		s.renderHTML(w, http.StatusBadGateway, false, "your payment could not be confirmed, please try again")
		return
	}
	s.renderHTML(w, http.StatusOK, true, fmt.Sprintf("payment %s confirmed", p.ID))
}

func (s *Server) handlePayPalCancel(w http.ResponseWriter, r *http.Request) {
	paymentID := r.URL.Query().Get("paymentId")
	if paymentID == "" {
		s.renderHTML(w, http.StatusBadRequest, false, "missing paymentId")
		return
	}
	if _, err := s.payments.CancelGateway(r.Context(), paymentID); err != nil {
		s.renderHTML(w, http.StatusNotFound, false, "payment not found")
		return
	}
	s.renderHTML(w, http.StatusOK, false, "payment cancelled")
}

// ===== Admin =====

type bulkConfirmRequest struct {
	PaymentIDs []string `json:"payment_ids"`
}

func (s *Server) handleBulkConfirm(w http.ResponseWriter, r *http.Request) {
	var req bulkConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.PaymentIDs) == 0 {
		writeError(w, http.StatusBadRequest, "payment_ids is required")
		return
	}
	res, err := s.payments.BulkConfirm(r.Context(), req.PaymentIDs)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"confirmed":    res.Confirmed,
		"skipped":      res.Skipped,
		"already_done": res.AlreadyDone,
		"failed":       res.Failed,
	})
}

func (s *Server) handleSubscriptionStats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.subs.Stats(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make(map[string]int, len(counts))
	for status, n := range counts {
		out[string(status)] = n
	}
	writeJSON(w, http.StatusOK, out)
}

// renderHTML shows a minimal result page for browser redirects from the
// gateway.
func (s *Server) renderHTML(w http.ResponseWriter, status int, ok bool, msg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	title, color := "Payment Failed", "#F44336"
	if ok {
		title, color = "Payment Successful", "#4CAF50"
	}
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>%s</title><meta charset="utf-8"></head>
<body style="font-family: Arial, sans-serif; text-align: center; padding: 50px;">
  <h1 style="color: %s;">%s</h1>
  <p>%s</p>
</body>
</html>`, title, color, title, msg)
}
