package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"nightslip/internal/adapters/email"
	"nightslip/internal/domain/attendance"
	"nightslip/internal/domain/member"
	"nightslip/internal/domain/trackeddate"
	"nightslip/internal/platform/metrics"
)

const receiptTimeout = 15 * time.Second

// ReceiptDeps holds dependencies for the ReceiptDispatcher.
type ReceiptDeps struct {
	Sender email.Sender
	From   string
}

// ReceiptDispatcher emails a member a copy of the submission that used up their self-edit.
type ReceiptDispatcher struct {
	deps ReceiptDeps
	wg   sync.WaitGroup
}

var _ ReceiptNotifier = (*ReceiptDispatcher)(nil)

// NewReceiptDispatcher creates a dispatcher.
// PRE: deps.Sender is non-nil
func NewReceiptDispatcher(deps ReceiptDeps) *ReceiptDispatcher {
	return &ReceiptDispatcher{deps: deps}
}

// Notify sends the receipt in the background. Failures are logged and counted.
func (d *ReceiptDispatcher) Notify(m member.Member, date trackeddate.TrackedDate, r attendance.Record) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), receiptTimeout)
		defer cancel()
		if err := ExecuteSendReceipt(ctx, SendReceiptInput{Member: m, Date: date, Record: r}, d.deps); err != nil {
			slog.Warn("receipt_email_failed", "member_id", m.ID, "date_id", date.ID, "error", err)
		}
	}()
}

// Wait blocks until queued receipts have been attempted.
func (d *ReceiptDispatcher) Wait() {
	d.wg.Wait()
}

// SendReceiptInput is the submission to confirm.
type SendReceiptInput struct {
	Member member.Member
	Date   trackeddate.TrackedDate
	Record attendance.Record
}

// ExecuteSendReceipt renders and sends one receipt.
// POST: metrics.ReceiptEmails is incremented with the outcome
func ExecuteSendReceipt(ctx context.Context, input SendReceiptInput, deps ReceiptDeps) error {
	html, err := email.RenderMarkdown(receiptMarkdown(input))
	if err != nil {
		metrics.ReceiptEmails.WithLabelValues("error").Inc()
		return err
	}
	_, err = deps.Sender.Send(ctx, email.SendRequest{
		To:      []string{input.Member.Email},
		From:    deps.From,
		Subject: "Night slip submitted for " + input.Date.DateString,
		HTML:    html,
	})
	if err != nil {
		metrics.ReceiptEmails.WithLabelValues("error").Inc()
		return fmt.Errorf("send receipt: %w", err)
	}
	metrics.ReceiptEmails.WithLabelValues("sent").Inc()
	return nil
}

func receiptMarkdown(in SendReceiptInput) string {
	var b strings.Builder
	name := in.Member.Name
	if name == "" {
		name = in.Member.Email
	}
	fmt.Fprintf(&b, "Hi %s,\n\n", escapeMarkdown(name))
	fmt.Fprintf(&b, "Your night slip for **%s** has been submitted:\n\n", in.Date.DateString)
	fmt.Fprintf(&b, "- Coming: %s\n", escapeMarkdown(in.Record.Intent))
	fmt.Fprintf(&b, "- Applied: %s\n\n", escapeMarkdown(in.Record.Applied))
	b.WriteString("This was your one self-service change for the date. Ask an administrator if anything needs correcting.\n")
	return b.String()
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`, "<", "&lt;", ">", "&gt;",
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
