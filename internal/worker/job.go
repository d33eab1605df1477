package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nyashahama/carefund-backend/internal/email"
	"github.com/nyashahama/carefund-backend/internal/store"
)

// Task is one assessment handed off for archiving. Notify is optional; when
// Notify.To is empty no email is sent.
type Task struct {
	Record store.Record
	Notify email.AssessmentReadyParams
}

// Saver is the slice of *store.Store the job needs.
type Saver interface {
	Save(ctx context.Context, rec store.Record) (store.Record, error)
}

// Job archives an assessment and then sends the summary email.
type Job struct {
	store  Saver
	mailer email.Sender
	logger *slog.Logger
}

// NewJob constructs a Job with all required dependencies.
func NewJob(st Saver, mailer email.Sender, logger *slog.Logger) *Job {
	return &Job{
		store:  st,
		mailer: mailer,
		logger: logger,
	}
}

// Run persists the record and, if requested, emails the user. Only the
// persist step can fail the job; email failures are logged because the
// assessment is already retrievable from the history endpoint.
func (j *Job) Run(ctx context.Context, t Task) error {
	log := j.logger.With("assessment_id", t.Record.ID, "user_id", t.Record.UserID)

	saved, err := j.store.Save(ctx, t.Record)
	if err != nil {
		return fmt.Errorf("job: save assessment: %w", err)
	}
	log.Info("job: assessment archived", "has_financial", saved.Financial != nil)

	if t.Notify.To == "" {
		return nil
	}

	p := t.Notify
	p.AssessmentID = saved.ID
	if err := j.mailer.SendAssessmentReady(ctx, p); err != nil {
		log.Error("job: failed to send assessment email", "to", p.To, "error", err)
	}
	return nil
}
