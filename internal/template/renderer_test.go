package template

import "testing"

func TestRenderPositional(t *testing.T) {
	got := Render("Hi {{1}}! Order {{2}} is ready.", Variables{Positional: []string{"Ada", "A-42"}})
	want := "Hi Ada! Order A-42 is ready."
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRenderNamed(t *testing.T) {
	got := Render("Track {{order_id}} at {{tracking_url}}", Variables{Named: map[string]string{
		"order_id":     "A-42",
		"tracking_url": "https://example.com/t/A-42",
	}})
	want := "Track A-42 at https://example.com/t/A-42"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRenderMixed(t *testing.T) {
	got := Render("Hi {{1}}, order {{order_id}} total {{2}}", Variables{
		Positional: []string{"Ada", "$10"},
		Named:      map[string]string{"order_id": "A-42"},
	})
	want := "Hi Ada, order A-42 total $10"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRenderUnmatchedStaysVerbatim(t *testing.T) {
	got := Render("Hi {{1}}, code {{code}}", Variables{Positional: []string{"Ada"}})
	want := "Hi Ada, code {{code}}"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	// Surplus variables are simply unused.
	got = Render("Hi {{1}}", Variables{Positional: []string{"Ada", "extra"}})
	if got != "Hi Ada" {
		t.Fatalf("got %q, want %q", got, "Hi Ada")
	}
}

func TestRenderRepeatedPlaceholder(t *testing.T) {
	got := Render("{{1}} and {{1}} again", Variables{Positional: []string{"x"}})
	if got != "x and x again" {
		t.Fatalf("got %q", got)
	}
}

func TestComponents(t *testing.T) {
	comps := Components(Variables{Positional: []string{"Ada", "A-42"}})
	if len(comps) != 1 {
		t.Fatalf("expected 1 component, got %d", len(comps))
	}
	body := comps[0]
	if body.Type != "body" || len(body.Parameters) != 2 {
		t.Fatalf("unexpected component: %+v", body)
	}
	if body.Parameters[0].Text != "Ada" || body.Parameters[1].Text != "A-42" {
		t.Fatalf("parameter order lost: %+v", body.Parameters)
	}
	for _, p := range body.Parameters {
		if p.Type != "text" {
			t.Fatalf("expected text parameter, got %q", p.Type)
		}
	}

	if comps := Components(Variables{Named: map[string]string{"k": "v"}}); comps != nil {
		t.Fatalf("named-only variables must not produce components, got %+v", comps)
	}
}
