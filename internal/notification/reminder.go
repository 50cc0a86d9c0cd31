package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Reminder periodically nudges users about splits that have gone
// unsettled for too long.
type Reminder struct {
	repo   *Repository
	mailer *Mailer
	log    *logrus.Logger
	maxAge time.Duration
	cron   *cron.Cron
}

// NewReminder creates a reminder job. mailer may be nil, in which case
// only in-app notifications are created.
func NewReminder(repo *Repository, mailer *Mailer, log *logrus.Logger, maxAge time.Duration) *Reminder {
	return &Reminder{
		repo:   repo,
		mailer: mailer,
		log:    log,
		maxAge: maxAge,
	}
}

// Start schedules the job with the given cron expression and begins
// running it.
func (r *Reminder) Start(schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, r.run); err != nil {
		return fmt.Errorf("failed to schedule reminder job: %w", err)
	}
	c.Start()
	r.cron = c

	r.log.WithField("schedule", schedule).Info("settlement reminder job started")
	return nil
}

// Stop halts the job and waits for an in-flight run to finish.
func (r *Reminder) Stop() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
}

func (r *Reminder) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-r.maxAge)
	stale, err := r.repo.ListStaleUnsettledSplits(ctx, cutoff)
	if err != nil {
		r.log.WithError(err).Error("reminder job failed to list stale splits")
		return
	}
	if len(stale) == 0 {
		return
	}

	entityType := EntitySplit
	for _, s := range stale {
		msg := fmt.Sprintf("Reminder: you still owe %.2f %s to %s for %q",
			s.Amount, s.Currency, s.PayerName, s.Description)

		if _, err := r.repo.Create(ctx, s.OwerID, msg, &entityType, &s.SplitID); err != nil {
			r.log.WithError(err).WithField("split_id", s.SplitID).
				Warn("reminder job failed to create notification")
			continue
		}

		if r.mailer != nil && s.OwerEmail != "" {
			subject := "Unsettled expense reminder"
			body := fmt.Sprintf("Hi %s,\n\n%s.\n", s.OwerName, msg)
			if err := r.mailer.Send(s.OwerEmail, subject, body); err != nil {
				r.log.WithError(err).WithField("split_id", s.SplitID).
					Warn("reminder job failed to send email")
			}
		}
	}

	r.log.WithField("count", len(stale)).Info("settlement reminders issued")
}
