package application

import (
	"slices"
	"strings"
)

// normalizeGuests returns the guest set in canonical order. Addresses are
// opaque and case-sensitive; only exact duplicates collapse. Blank entries
// are rejected.
func normalizeGuests(emails []string, field string, vErr *ValidationError) []string {
	for _, email := range emails {
		if strings.TrimSpace(email) == "" {
			vErr.add(field, "guest e-mail must not be blank")
			return nil
		}
	}
	return sortedGuests(emails)
}

func sortedGuests(emails []string) []string {
	if len(emails) == 0 {
		return nil
	}
	out := slices.Clone(emails)
	slices.Sort(out)
	return slices.Compact(out)
}

// unionGuests adds the incoming addresses to the current set and reports
// which of them were not already present.
func unionGuests(current, incoming []string) (merged, added []string) {
	merged = sortedGuests(current)
	for _, email := range sortedGuests(incoming) {
		if _, found := slices.BinarySearch(merged, email); found {
			continue
		}
		added = append(added, email)
	}
	if len(added) == 0 {
		return merged, nil
	}
	return sortedGuests(append(merged, added...)), added
}

// addedGuests lists the addresses of next that are missing from previous.
func addedGuests(previous, next []string) []string {
	_, added := unionGuests(previous, next)
	return added
}

// recipientsFor joins the organizer address with the guests, without duplicates.
func recipientsFor(organizerEmail string, guests []string) []string {
	if organizerEmail == "" {
		return sortedGuests(guests)
	}
	return sortedGuests(append([]string{organizerEmail}, guests...))
}
