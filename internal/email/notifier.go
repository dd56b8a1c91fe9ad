package email

import (
	"bytes"
	"context"
	"html/template"
	"time"

	"changemgmt/internal/metrics"
	"changemgmt/models"

	"github.com/sirupsen/logrus"
)

const sendTimeout = 15 * time.Second

var decisionTmpl = template.Must(template.New("decision").Parse(
	`<p>Hello {{.SubmittedBy}},</p>
<p>Your change request <strong>{{.Title}}</strong> (#{{.ID}}) is now <strong>{{.Status}}</strong>.</p>
{{with .AdminReason}}<p>Reason: {{.}}</p>{{end}}
<p>Change Management System</p>
`))

// Notifier sends best-effort notifications. Failures are logged, never
// returned.
type Notifier struct {
	sender  Sender
	log     logrus.FieldLogger
	metrics *metrics.Metrics
}

// NewNotifier wraps sender; a nil sender disables delivery.
func NewNotifier(sender Sender, log logrus.FieldLogger, m *metrics.Metrics) *Notifier {
	return &Notifier{sender: sender, log: log.WithField("component", "email"), metrics: m}
}

func (n *Notifier) Notify(ctx context.Context, msg Message) {
	if n == nil {
		return
	}
	entry := n.log.WithFields(logrus.Fields{"to": msg.To, "subject": msg.Subject})
	if n.sender == nil {
		entry.Warn("email settings not configured, email was not sent")
		n.metrics.IncEmail("skipped")
		return
	}
	if msg.To == "" {
		entry.Warn("recipient has no email address, email was not sent")
		n.metrics.IncEmail("skipped")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	defer cancel()
	if err := n.sender.Send(ctx, msg); err != nil {
		entry.WithError(err).Error("failed to send email")
		n.metrics.IncEmail(metrics.OutcomeError)
		return
	}
	entry.Info("email sent")
	n.metrics.IncEmail(metrics.OutcomeSuccess)
}

// NotifyDecision tells the submitter that a decision was recorded.
func (n *Notifier) NotifyDecision(ctx context.Context, to string, r *models.Request) {
	if n == nil {
		return
	}
	var buf bytes.Buffer
	if err := decisionTmpl.Execute(&buf, r); err != nil {
		n.log.WithError(err).Error("render decision email")
		return
	}
	n.Notify(ctx, Message{
		To:      to,
		Subject: "Change request " + string(r.Status) + ": " + r.Title,
		HTML:    buf.String(),
	})
}
