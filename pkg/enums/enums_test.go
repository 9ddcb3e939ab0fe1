package enums

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	for _, target := range []OrderStatus{OrderStatusPaid, OrderStatusCanceled, OrderStatusChargedBack} {
		if !OrderStatusPending.CanTransitionTo(target) {
			t.Fatalf("expected pending -> %s to be allowed", target)
		}
		if !target.IsTerminal() {
			t.Fatalf("expected %s to be terminal", target)
		}
		for _, next := range orderStatuses {
			if target.CanTransitionTo(next) {
				t.Fatalf("expected %s -> %s to be rejected", target, next)
			}
		}
	}
	if OrderStatusPending.CanTransitionTo(OrderStatusPending) {
		t.Fatal("pending -> pending is not a transition")
	}
}

func TestParseOrderStatus(t *testing.T) {
	if _, err := ParseOrderStatus("refunded"); err == nil {
		t.Fatal("expected unknown status to fail")
	}
	got, err := ParseOrderStatus("charged_back")
	if err != nil || got != OrderStatusChargedBack {
		t.Fatalf("unexpected parse result %q %v", got, err)
	}
	if got.PaymentStatus() != PaymentStatusChargedBack {
		t.Fatalf("expected payment status mirror, got %q", got.PaymentStatus())
	}
}

func TestPaymentMethodOffline(t *testing.T) {
	if PaymentMethodPayHere.IsOffline() {
		t.Fatal("gateway redirect is not offline")
	}
	if !PaymentMethodBankTransfer.IsOffline() || !PaymentMethodCashOnDelivery.IsOffline() {
		t.Fatal("expected cash and bank transfer to be offline")
	}
	if _, err := ParsePaymentMethod("ach"); err == nil {
		t.Fatal("expected unknown method to fail")
	}
}

func TestParseTrimsButIsValidIsExact(t *testing.T) {
	got, err := ParsePaymentStatus(" paid ")
	if err != nil || got != PaymentStatusPaid {
		t.Fatalf("unexpected parse result %q %v", got, err)
	}
	if PaymentStatus(" paid").IsValid() {
		t.Fatal("IsValid must not trim")
	}
	if _, err := ParseCustomerRole("root"); err == nil {
		t.Fatal("expected unknown role to fail")
	}
}

func TestOutboxEnums(t *testing.T) {
	if !OutboxDLQReasonMaxAttempts.IsValid() || OutboxDLQErrorReason("timeout").IsValid() {
		t.Fatal("unexpected dlq reason validity")
	}
	if ev, err := ParseOutboxEventType("order_status_changed"); err != nil || ev != EventOrderStatusChanged {
		t.Fatalf("unexpected event type %q %v", ev, err)
	}
	if AddressType("mailing").IsValid() {
		t.Fatal("unknown address type accepted")
	}
}
