package service

import (
	"context"
	"testing"
	"time"

	"github.com/spec-kit/crm-service/internal/domain"
)

func TestNotificationsFollowMutations(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	account := h.addProspect(t, "Acme")
	if _, err := h.accounts.Qualify(ctx, testAgent, QualifyInput{AccountID: account.ID, Channel: domain.ChannelCall, RuleID: "NC_DEFECT"}); err != nil {
		t.Fatalf("Qualify: %v", err)
	}
	if _, err := h.accounts.ConvertToClient(ctx, testAgent, account.ID); err != nil {
		t.Fatalf("ConvertToClient: %v", err)
	}

	h.clock.Advance(90 * time.Minute)
	items, err := h.notifications.ListNotifications(ctx, 0)
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	wantCategories := []domain.NotificationCategory{
		domain.NotificationAccount,       // converted
		domain.NotificationQualification, // qualified
		domain.NotificationTicket,        // automated ticket
		domain.NotificationAccount,       // created
	}
	if len(items) != len(wantCategories) {
		t.Fatalf("notifications = %d, want %d: %+v", len(items), len(wantCategories), items)
	}
	for i, want := range wantCategories {
		if items[i].Category != want {
			t.Errorf("item %d category = %s, want %s", i, items[i].Category, want)
		}
		if items[i].Read {
			t.Errorf("item %d already read", i)
		}
		if items[i].RelativeTime != "1 h ago" {
			t.Errorf("item %d relative time = %q", i, items[i].RelativeTime)
		}
	}

	if err := h.notifications.MarkAllRead(ctx); err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	items, _ = h.notifications.ListNotifications(ctx, 2)
	if len(items) != 2 || !items[0].Read || !items[1].Read {
		t.Errorf("after MarkAllRead: %+v", items)
	}

	if err := h.notifications.ClearNotifications(ctx); err != nil {
		t.Fatalf("ClearNotifications: %v", err)
	}
	items, _ = h.notifications.ListNotifications(ctx, 0)
	if len(items) != 0 {
		t.Errorf("after clear: %d items", len(items))
	}
}

func TestEscalationNotifies(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	account := h.addProspect(t, "Acme")
	h.addTicket(t, account.ID, domain.TicketPriorityHigh)
	h.clock.Advance(5 * time.Hour)
	if _, err := h.tickets.EscalateOverdue(ctx); err != nil {
		t.Fatalf("EscalateOverdue: %v", err)
	}

	items, err := h.notifications.ListNotifications(ctx, 1)
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if len(items) != 1 || items[0].Category != domain.NotificationEscalation {
		t.Errorf("latest = %+v", items)
	}
}
