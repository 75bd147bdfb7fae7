// Package notifications renders and sends the moderation emails:
// the decision request to approvers and the outcome to the uploader.
package notifications

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"

	"go.uber.org/zap"

	"github.com/JaimeStill/casse/pkg/mail"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// ErrNoApprovers is returned when an approval request has nobody to go to.
var ErrNoApprovers = errors.New("no approvers configured")

// Request describes a submission awaiting a decision and the links an
// approver uses to act on it.
type Request struct {
	Owner      string
	Title      string
	PlayURL    string
	ApproveURL string
	DenyURL    string
}

type outcome struct {
	Owner string
	Title string
}

// Notifier sends moderation emails through a mail.Sender.
type Notifier struct {
	sender    mail.Sender
	approvers []string
	logger    *zap.Logger
}

// New creates a Notifier that sends approval requests to approvers.
func New(sender mail.Sender, approvers []string, logger *zap.Logger) *Notifier {
	return &Notifier{
		sender:    sender,
		approvers: approvers,
		logger:    logger.With(zap.String("system", "notifications")),
	}
}

// ApprovalRequested asks every approver to decide on req.
func (n *Notifier) ApprovalRequested(ctx context.Context, req Request) error {
	if len(n.approvers) == 0 {
		return ErrNoApprovers
	}
	return n.send(ctx, n.approvers, "New Song Approval Request: "+req.Title, "approval_request.html", req)
}

// Approved tells the uploader their submission was accepted.
func (n *Notifier) Approved(ctx context.Context, owner, title string) error {
	subject := fmt.Sprintf("Your Song '%s' Has Been Approved!", title)
	return n.send(ctx, []string{owner}, subject, "approved.html", outcome{Owner: owner, Title: title})
}

// Denied tells the uploader their submission was rejected.
func (n *Notifier) Denied(ctx context.Context, owner, title string) error {
	subject := fmt.Sprintf("Your Song '%s' Has Been Denied", title)
	return n.send(ctx, []string{owner}, subject, "denied.html", outcome{Owner: owner, Title: title})
}

func (n *Notifier) send(ctx context.Context, to []string, subject, name string, data any) error {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}

	if err := n.sender.Send(ctx, mail.Message{To: to, Subject: subject, HTML: buf.String()}); err != nil {
		return fmt.Errorf("send %s: %w", name, err)
	}

	n.logger.Debug("notification sent", zap.String("template", name), zap.Strings("to", to))
	return nil
}
