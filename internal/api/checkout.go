package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/nyashahama/carefund-backend/internal/auth"
	"github.com/nyashahama/carefund-backend/internal/store"
	stripeinternal "github.com/nyashahama/carefund-backend/internal/stripe"
)

// ─── POST /api/autopay/setup ─────────────────────────────────────────────────

type autoPaySetupRequest struct {
	AssessmentID string `json:"assessmentId"`
}

type autoPaySetupResponse struct {
	// ClientSecret is the Stripe PaymentIntent client_secret. The browser
	// passes this to Stripe.js to collect and save the payment method.
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
	PlanName        string `json:"planName"`
	Amount          int64  `json:"amount"` // paise
	Currency        string `json:"currency"`
}

// archivedPlan is the part of an archived financial result the charge is
// priced from. The amount is never taken from the request body.
type archivedPlan struct {
	Plan struct {
		Name    string `json:"name"`
		Premium int    `json:"premium"`
	} `json:"insurancePlan"`
}

// handleAutoPaySetup creates a Stripe PaymentIntent for the first monthly
// premium of the plan recommended in one of the caller's assessments. The
// payment method is saved for later off-session charges.
func (s *Server) handleAutoPaySetup(w http.ResponseWriter, r *http.Request) {
	if s.stripe == nil {
		respondErr(w, http.StatusServiceUnavailable, "Auto-pay is not available")
		return
	}

	var req autoPaySetupRequest
	if !decode(w, r, &req) {
		return
	}
	if _, err := uuid.Parse(req.AssessmentID); err != nil {
		respondErr(w, http.StatusBadRequest, "assessmentId is required")
		return
	}

	id, _ := auth.FromContext(r.Context())

	rec, err := s.history.Get(r.Context(), req.AssessmentID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && rec.UserID != id.UserID) {
		respondErr(w, http.StatusNotFound, "assessment not found")
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("get assessment: %w", err))
		return
	}

	var plan archivedPlan
	if len(rec.Financial) == 0 || json.Unmarshal(rec.Financial, &plan) != nil || plan.Plan.Name == "" {
		respondErr(w, http.StatusConflict, "assessment has no financial plan")
		return
	}

	params, err := stripeinternal.PremiumIntentParams(id.UserID, id.Email, plan.Plan.Name, plan.Plan.Premium)
	if errors.Is(err, stripeinternal.ErrInvalidAmount) {
		respondErr(w, http.StatusConflict, "assessment has no payable premium")
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, err)
		return
	}
	params.Metadata["assessment_id"] = rec.ID

	pi, err := s.stripe.CreatePaymentIntent(r.Context(), params)
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("create payment intent: %w", err))
		return
	}

	s.logger.Info("autopay: payment intent created",
		"user_id", id.UserID,
		"assessment_id", rec.ID,
		"payment_intent", pi.ID,
		logField(r),
	)

	respondOK(w, autoPaySetupResponse{
		ClientSecret:    pi.ClientSecret,
		PaymentIntentID: pi.ID,
		PlanName:        plan.Plan.Name,
		Amount:          params.Amount,
		Currency:        params.Currency,
	})
}
