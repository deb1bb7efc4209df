package repo

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/event-campaigns/internal/domain"
)

func logRow(owner, event, phone string, kind domain.MessageKind, out domain.Outcome, at time.Time) *domain.DeliveryLogEntry {
	return &domain.DeliveryLogEntry{
		OwnerID: owner, EventID: event, GuestID: "g-" + phone, Phone: phone,
		Kind: kind, Outcome: out, BatchID: "b1", Trigger: domain.TriggerManual, CreatedAt: at,
	}
}

func TestAppendDelivery_FillsIDAndTime(t *testing.T) {
	db := newTestDB(t)
	e := logRow("acct", "e1", "0501111111", domain.KindReminder, domain.OutcomeSent, time.Time{})
	if err := AppendDelivery(context.Background(), db, e); err != nil {
		t.Fatalf("AppendDelivery: %v", err)
	}
	if e.ID == "" || e.CreatedAt.IsZero() {
		t.Fatalf("expected generated id and timestamp: %+v", e)
	}
}

func TestListDeliveriesPage_FiltersAndOrder(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Now().UTC()
	rows := []*domain.DeliveryLogEntry{
		logRow("acct", "e1", "0501111111", domain.KindReminder, domain.OutcomeSent, base),
		logRow("acct", "e1", "0502222222", domain.KindReminder, domain.OutcomeFailed, base.Add(time.Second)),
		logRow("acct", "e1", "0501111111", domain.KindInvitation, domain.OutcomeSent, base.Add(2*time.Second)),
		logRow("acct", "e2", "0501111111", domain.KindReminder, domain.OutcomeSent, base.Add(3*time.Second)),
		logRow("other", "e1", "0501111111", domain.KindReminder, domain.OutcomeSent, base.Add(4*time.Second)),
	}
	for _, r := range rows {
		if err := AppendDelivery(ctx, db, r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	f := DeliveryFilter{OwnerID: "acct", EventID: "e1"}
	total, err := CountDeliveries(ctx, db, f)
	if err != nil || total != 3 {
		t.Fatalf("CountDeliveries = %d, %v", total, err)
	}
	page, err := ListDeliveriesPage(ctx, db, f, 0, 2)
	if err != nil || len(page) != 2 {
		t.Fatalf("ListDeliveriesPage: %d rows, %v", len(page), err)
	}
	if page[0].Kind != domain.KindInvitation {
		t.Fatalf("expected newest first, got %+v", page[0])
	}

	f.Kind, f.Phone = domain.KindReminder, "0502222222"
	if n, _ := CountDeliveries(ctx, db, f); n != 1 {
		t.Fatalf("phone+kind filter: %d", n)
	}
	f.Phone, f.Outcome = "", domain.OutcomeSent
	if n, _ := CountDeliveries(ctx, db, f); n != 1 {
		t.Fatalf("outcome filter: %d", n)
	}
}

func TestReachedPhones_OnlySentRowsCount(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	for _, r := range []*domain.DeliveryLogEntry{
		logRow("acct", "e1", "0501111111", domain.KindReminder, domain.OutcomeSent, now),
		logRow("acct", "e1", "0501111111", domain.KindReminder, domain.OutcomeSent, now),
		logRow("acct", "e1", "0502222222", domain.KindReminder, domain.OutcomeFailed, now),
		logRow("acct", "e1", "0503333333", domain.KindInvitation, domain.OutcomeSent, now),
	} {
		if err := AppendDelivery(ctx, db, r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	got, err := ReachedPhones(ctx, db, "acct", "e1", domain.KindReminder)
	if err != nil {
		t.Fatalf("ReachedPhones: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 reached phone, got %v", got)
	}
	if _, ok := got["0501111111"]; !ok {
		t.Fatalf("missing reached phone: %v", got)
	}
}
