// Package email defines the interface for transactional email delivery and
// provides a Resend-backed implementation.
package email

import (
	"context"
	"log/slog"
)

// AssessmentReadyParams holds the data for the "your assessment is saved"
// email. Amounts arrive pre-formatted (e.g. "₹19,584").
type AssessmentReadyParams struct {
	To             string // recipient email address
	Name           string // used in the greeting; may be empty
	AssessmentID   string // inserted into the dashboard URL
	RiskScore      int
	RiskLevel      string
	PlanName       string // empty when only the risk stage ran
	MonthlyPremium string
	MonthlySavings string
}

// AutoPayParams holds the data for the auto-pay setup confirmation.
type AutoPayParams struct {
	To       string
	Name     string
	PlanName string
	Amount   string // e.g. "₹19,584"
}

// Sender is the interface the worker and the auto-pay handler use to send
// email. Tests inject a stub that records calls without hitting the network.
type Sender interface {
	// SendAssessmentReady is called by the worker after the assessment has
	// been archived.
	SendAssessmentReady(ctx context.Context, p AssessmentReadyParams) error

	// SendAutoPayScheduled is called after a premium payment intent has been
	// created.
	SendAutoPayScheduled(ctx context.Context, p AutoPayParams) error
}

// NoopSender logs instead of sending. Used when no Resend key is configured.
type NoopSender struct {
	Logger *slog.Logger
}

func (n NoopSender) SendAssessmentReady(_ context.Context, p AssessmentReadyParams) error {
	n.Logger.Debug("email: delivery disabled, skipping assessment email", "assessment_id", p.AssessmentID)
	return nil
}

func (n NoopSender) SendAutoPayScheduled(_ context.Context, p AutoPayParams) error {
	n.Logger.Debug("email: delivery disabled, skipping auto-pay email", "plan", p.PlanName)
	return nil
}
