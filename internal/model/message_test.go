package model

import "testing"

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to MessageStatus }{
		{StatusPending, StatusSent},
		{StatusSent, StatusDelivered},
		{StatusDelivered, StatusRead},
		{StatusPending, StatusDelivered}, // provider collapsed sent
		{StatusPending, StatusRead},
		{StatusSent, StatusRead},
		{StatusSent, StatusFailed},
		{StatusDelivered, StatusFailed},
	}
	for _, c := range allowed {
		if !CanTransition(c.from, c.to) {
			t.Fatalf("expected %s -> %s to be allowed", c.from, c.to)
		}
	}

	denied := []struct{ from, to MessageStatus }{
		{StatusRead, StatusDelivered}, // no regression
		{StatusRead, StatusSent},
		{StatusDelivered, StatusSent},
		{StatusSent, StatusPending},
		{StatusFailed, StatusSent}, // failed is terminal
		{StatusFailed, StatusDelivered},
		{StatusPending, StatusFailed}, // failure only after a send attempt landed
		{StatusRead, StatusFailed},
		{StatusPending, StatusPending},
	}
	for _, c := range denied {
		if CanTransition(c.from, c.to) {
			t.Fatalf("expected %s -> %s to be denied", c.from, c.to)
		}
	}
}

func TestTransitionsToUnknownTarget(t *testing.T) {
	if got := TransitionsTo(StatusPending); got != nil {
		t.Fatalf("pending is never a transition target, got %v", got)
	}
	if got := TransitionsTo(StatusReceived); got != nil {
		t.Fatalf("received takes no part in the outbound machine, got %v", got)
	}
}

func TestParseMessageStatus(t *testing.T) {
	cases := []struct {
		in     string
		want   MessageStatus
		wantOK bool
	}{
		{"sent", StatusSent, true},
		{"DELIVERED", StatusDelivered, true},
		{"  read ", StatusRead, true},
		{"failed", StatusFailed, true},
		{"received", "", false}, // inbound marker, not a provider status
		{"bogus", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := ParseMessageStatus(c.in)
		if ok != c.wantOK || got != c.want {
			t.Fatalf("ParseMessageStatus(%q) = (%q, %v), want (%q, %v)", c.in, got, ok, c.want, c.wantOK)
		}
	}
}

func TestParseMessageType(t *testing.T) {
	if got, ok := ParseMessageType(""); !ok || got != TypeText {
		t.Fatalf("empty type should default to text, got (%q, %v)", got, ok)
	}
	if got, ok := ParseMessageType("Template"); !ok || got != TypeTemplate {
		t.Fatalf("ParseMessageType(Template) = (%q, %v)", got, ok)
	}
	if _, ok := ParseMessageType("sticker"); ok {
		t.Fatal("unknown type should not parse")
	}
}
