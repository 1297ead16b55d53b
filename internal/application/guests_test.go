package application

import (
	"slices"
	"testing"
)

func TestNormalizeGuestsKeepsCaseAndDropsExactDuplicates(t *testing.T) {
	t.Parallel()

	vErr := &ValidationError{}
	got := normalizeGuests([]string{"b@example.com", "A@example.com", "a@example.com", "b@example.com"}, "guest_emails", vErr)
	if vErr.HasErrors() {
		t.Fatalf("unexpected validation error: %v", vErr.FieldErrors)
	}
	want := []string{"A@example.com", "a@example.com", "b@example.com"}
	if !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestNormalizeGuestsRejectsBlank(t *testing.T) {
	t.Parallel()

	vErr := &ValidationError{}
	normalizeGuests([]string{"a@example.com", "  "}, "guest_emails", vErr)
	if _, ok := vErr.FieldErrors["guest_emails"]; !ok {
		t.Fatalf("expected guest_emails error, got %v", vErr.FieldErrors)
	}
}

func TestUnionGuests(t *testing.T) {
	t.Parallel()

	merged, added := unionGuests([]string{"a@example.com", "c@example.com"}, []string{"c@example.com", "b@example.com"})
	if !slices.Equal(merged, []string{"a@example.com", "b@example.com", "c@example.com"}) {
		t.Fatalf("unexpected merged set %v", merged)
	}
	if !slices.Equal(added, []string{"b@example.com"}) {
		t.Fatalf("unexpected added set %v", added)
	}

	_, added = unionGuests([]string{"a@example.com"}, []string{"a@example.com"})
	if added != nil {
		t.Fatalf("expected nothing added, got %v", added)
	}
}

func TestRecipientsForIncludesOrganizerOnce(t *testing.T) {
	t.Parallel()

	got := recipientsFor("owner@example.com", []string{"owner@example.com", "guest@example.com"})
	if !slices.Equal(got, []string{"guest@example.com", "owner@example.com"}) {
		t.Fatalf("unexpected recipients %v", got)
	}
	if got := recipientsFor("", nil); got != nil {
		t.Fatalf("expected no recipients, got %v", got)
	}
}
