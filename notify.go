package main

import (
	"fmt"
	"log"

	"gopkg.in/gomail.v2"
)

// SummaryNotifier emails the end-of-run summary. Without SMTP configuration
// it stays quiet; notification is optional and never fails the run.
type SummaryNotifier struct {
	cfg NotifySettings
}

// NewSummaryNotifier builds a notifier over the configured SMTP settings.
func NewSummaryNotifier(cfg NotifySettings) *SummaryNotifier {
	return &SummaryNotifier{cfg: cfg}
}

// Send mails the summary and the artifact path. Missing configuration is not
// an error.
func (n *SummaryNotifier) Send(summary *Summary, artifact string) error {
	if n.cfg.SMTPHost == "" || n.cfg.From == "" || n.cfg.To == "" {
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.From)
	m.SetHeader("To", n.cfg.To)
	m.SetHeader("Subject", fmt.Sprintf("creator-scout run finished: %d scraped, %d failed", summary.Succeeded, summary.Failed))
	m.SetBody("text/plain", fmt.Sprintf(
		"Attempted: %d\nScraped: %d\nDuplicates skipped: %d\nFailed: %d\nAPI calls: %d\n\nResults: %s\n",
		summary.Attempted, summary.Succeeded, summary.DuplicatesSkipped,
		summary.Failed, summary.APICalls, artifact,
	))

	d := gomail.NewDialer(n.cfg.SMTPHost, n.cfg.SMTPPort, n.cfg.SMTPUser, n.cfg.SMTPPass)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("sending summary email: %w", err)
	}
	log.Printf("Summary email sent to %s", n.cfg.To)
	return nil
}
