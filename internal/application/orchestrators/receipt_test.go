package orchestrators

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"nightslip/internal/adapters/email"
	"nightslip/internal/domain/attendance"
	"nightslip/internal/domain/member"
	"nightslip/internal/domain/trackeddate"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []email.SendRequest
	err  error
}

func (s *fakeSender) Send(_ context.Context, req email.SendRequest) (email.SendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return email.SendResult{}, s.err
	}
	s.sent = append(s.sent, req)
	return email.SendResult{MessageID: "m1"}, nil
}

func TestReceiptDispatcher_Notify(t *testing.T) {
	sender := &fakeSender{}
	d := NewReceiptDispatcher(ReceiptDeps{Sender: sender, From: "Night Slips <noreply@club.org>"})

	rec := attendance.Default(anaEmail, "d1").
		Apply(attendance.FieldIntent, attendance.IntentComing, false).
		Apply(attendance.FieldApplied, attendance.AppliedYes, false)
	d.Notify(member.New("Ana_*Silva*", "R1", anaEmail), trackeddate.New("d1", "2025-03-01"), rec)
	d.Wait()

	if len(sender.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(sender.sent))
	}
	req := sender.sent[0]
	if req.To[0] != anaEmail || !strings.Contains(req.Subject, "2025-03-01") {
		t.Errorf("req = %+v", req)
	}
	if !strings.Contains(req.HTML, "<li>Coming: COMING</li>") || !strings.Contains(req.HTML, "<strong>2025-03-01</strong>") {
		t.Errorf("html = %s", req.HTML)
	}
	if !strings.Contains(req.HTML, "Ana_*Silva*") {
		t.Errorf("member name must render literally: %s", req.HTML)
	}
}

func TestExecuteSendReceipt_SenderFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("rate limited")}
	err := ExecuteSendReceipt(context.Background(), SendReceiptInput{
		Member: member.New("Ana", "", anaEmail),
		Date:   trackeddate.New("d1", "2025-03-01"),
		Record: attendance.Default(anaEmail, "d1"),
	}, ReceiptDeps{Sender: sender})
	if err == nil {
		t.Fatal("expected error")
	}
}
