package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/medichat/internal/config"
	"github.com/fyrsmithlabs/medichat/internal/conversation"
	"github.com/fyrsmithlabs/medichat/internal/insight"
	"github.com/fyrsmithlabs/medichat/internal/redact"
)

// ErrDeliveryFailed wraps every delivery failure.
var ErrDeliveryFailed = errors.New("email delivery failed")

// Ticket constants.
const (
	TicketPriority = "MEDIUM"
	TicketCategory = "User Query Support"
	// RecentTurns is how many turns a report includes.
	RecentTurns = 5
)

// DeliveriesTotal counts delivery attempts by kind and outcome.
var DeliveriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "medichat",
		Subsystem: "notify",
		Name:      "deliveries_total",
		Help:      "Email delivery attempts, by message kind and outcome",
	},
	[]string{"kind", "result"},
)

// DeliveryError carries the human-readable reason a delivery failed.
type DeliveryError struct {
	Reason string
	Err    error
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrDeliveryFailed, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrDeliveryFailed, e.Reason)
}

// Unwrap exposes ErrDeliveryFailed and the underlying cause.
func (e *DeliveryError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrDeliveryFailed, e.Err}
	}
	return []error{ErrDeliveryFailed}
}

// DeliveryResult is the outcome of one send.
type DeliveryResult struct {
	Delivered bool   `json:"delivered"`
	MessageID string `json:"message_id,omitempty"`
	TicketID  string `json:"ticket_id,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// ReportData is the content of an analytics report.
type ReportData struct {
	SessionID      string
	Generated      time.Time
	Documents      int
	Chunks         int
	TotalTurns     int
	Question       string
	Answer         string
	Insight        *insight.Insight
	Recent         []conversation.Turn
	LLMModel       string
	EmbeddingModel string
	ChunkWindow    int
	ChunkOverlap   int
}

// TicketRequest is a user-raised support ticket.
type TicketRequest struct {
	SessionID   string `validate:"required"`
	Question    string `validate:"required"`
	Answer      string
	Description string
	UserEmail   string `validate:"omitempty,email"`
}

type ticketView struct {
	TicketRequest
	TicketID string
	Created  time.Time
	Priority string
	Category string
}

// Dispatcher renders and sends reports and tickets.
type Dispatcher struct {
	cfg      config.EmailConfig
	sender   Sender
	validate *validator.Validate
	logger   *zap.Logger
	scrubber *redact.Scrubber
	now      func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithScrubber redacts question, answer and description text before it is
// rendered into a message.
func WithScrubber(s *redact.Scrubber) Option {
	return func(d *Dispatcher) { d.scrubber = s }
}

// NewDispatcher returns a Dispatcher. A nil sender builds an SMTPSender
// from cfg.
func NewDispatcher(cfg config.EmailConfig, sender Sender, logger *zap.Logger, opts ...Option) *Dispatcher {
	if sender == nil {
		sender = NewSMTPSender(SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.Username,
			Password: cfg.Password.Value(),
			Timeout:  cfg.Timeout,
		})
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		cfg:      cfg,
		sender:   sender,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// scrub applies the scrubber to each field in place and logs the total.
func (d *Dispatcher) scrub(kind string, fields ...*string) {
	if d.scrubber == nil {
		return
	}
	total := 0
	for _, f := range fields {
		r := d.scrubber.Scrub(*f)
		*f = r.Text
		total += r.Count()
	}
	if total > 0 {
		d.logger.Info("redacted outbound content", zap.String("kind", kind), zap.Int("redactions", total))
	}
}

// Enabled reports whether delivery is configured.
func (d *Dispatcher) Enabled() bool {
	return d.cfg.Enabled
}

// ReportSubject returns the subject line for a report generated at t.
func ReportSubject(t time.Time) string {
	return "MediChat Pro - Medical Document Analysis Report - " + t.Format("2006-01-02 15:04")
}

// TicketSubject returns the subject line for ticketID.
func TicketSubject(ticketID string) string {
	return "MediChat Pro Support Ticket - " + ticketID
}

// NewTicketID derives a ticket identifier from t.
func NewTicketID(t time.Time) string {
	return "MC-" + t.Format("20060102150405")
}

// SendReport emails data to the configured report recipient, or to
// recipient when non-empty.
func (d *Dispatcher) SendReport(ctx context.Context, recipient string, data ReportData) (DeliveryResult, error) {
	if data.Generated.IsZero() {
		data.Generated = d.now()
	}
	if len(data.Recent) > RecentTurns {
		data.Recent = data.Recent[len(data.Recent)-RecentTurns:]
	}
	data.Recent = append([]conversation.Turn(nil), data.Recent...)
	fields := []*string{&data.Question, &data.Answer}
	for i := range data.Recent {
		fields = append(fields, &data.Recent[i].Question, &data.Recent[i].Answer)
	}
	d.scrub("report", fields...)
	to := recipient
	if to == "" {
		to = d.cfg.To
	}

	var text, html bytes.Buffer
	if err := reportTextTmpl.Execute(&text, data); err != nil {
		return d.failed("report", "rendering report", err)
	}
	if err := reportHTMLTmpl.Execute(&html, data); err != nil {
		return d.failed("report", "rendering report", err)
	}

	return d.send(ctx, "report", to, Message{
		Subject: ReportSubject(data.Generated),
		Text:    text.String(),
		HTML:    html.String(),
		Date:    data.Generated,
	}, "")
}

// SendTicket emails req to the configured support address.
func (d *Dispatcher) SendTicket(ctx context.Context, req TicketRequest) (DeliveryResult, error) {
	if err := d.validate.Struct(req); err != nil {
		return d.failed("ticket", "invalid ticket", err)
	}
	d.scrub("ticket", &req.Question, &req.Answer, &req.Description)
	created := d.now()
	view := ticketView{
		TicketRequest: req,
		TicketID:      NewTicketID(created),
		Created:       created,
		Priority:      TicketPriority,
		Category:      TicketCategory,
	}

	var text, html bytes.Buffer
	if err := ticketTextTmpl.Execute(&text, view); err != nil {
		return d.failed("ticket", "rendering ticket", err)
	}
	if err := ticketHTMLTmpl.Execute(&html, view); err != nil {
		return d.failed("ticket", "rendering ticket", err)
	}

	to := d.cfg.SupportAddress
	if to == "" {
		to = d.cfg.To
	}
	return d.send(ctx, "ticket", to, Message{
		Subject: TicketSubject(view.TicketID),
		Text:    text.String(),
		HTML:    html.String(),
		Date:    created,
	}, view.TicketID)
}

func (d *Dispatcher) send(ctx context.Context, kind, to string, msg Message, ticketID string) (DeliveryResult, error) {
	if !d.cfg.Enabled {
		return d.failed(kind, "email delivery is not configured", nil)
	}
	if err := d.validate.Var(to, "required,email"); err != nil {
		return d.failed(kind, fmt.Sprintf("invalid recipient %q", to), nil)
	}

	msg.From = d.cfg.From
	msg.To = []string{to}
	raw, id, err := Compose(msg)
	if err != nil {
		return d.failed(kind, "composing message", err)
	}
	if err := d.sender.Send(ctx, msg.From, msg.To, raw); err != nil {
		return d.failed(kind, "sending message", err)
	}

	DeliveriesTotal.WithLabelValues(kind, "success").Inc()
	d.logger.Info("email delivered",
		zap.String("kind", kind),
		zap.String("message_id", id),
		zap.String("ticket_id", ticketID),
	)
	return DeliveryResult{Delivered: true, MessageID: id, TicketID: ticketID}, nil
}

func (d *Dispatcher) failed(kind, reason string, cause error) (DeliveryResult, error) {
	DeliveriesTotal.WithLabelValues(kind, "error").Inc()
	err := &DeliveryError{Reason: reason, Err: cause}
	d.logger.Warn("email delivery failed", zap.String("kind", kind), zap.Error(err))
	result := DeliveryResult{Reason: reason}
	if cause != nil {
		result.Reason = reason + ": " + cause.Error()
	}
	return result, err
}
