package services

import (
	"context"
	"fmt"
	"strings"

	"card-service/internal/slug"
)

// SlugExistsFunc answers whether a candidate slug is already held by
// another card.
type SlugExistsFunc func(ctx context.Context, candidate string) (bool, error)

// maxSlugAttempts bounds write-time retries after a uniqueness violation.
const maxSlugAttempts = 20

// AllocateSlug finds an unused slug for a card owner's name. The base
// candidate is the normalized "first last" string; collisions are resolved
// by probing base, base-1, base-2, ... against the lookup.
//
// Returns "" (no error) when the name yields no usable slug; the caller then
// falls back to the card id as the public locator. The probe is a best-effort
// pre-check only: the unique index on custom_slug is the actual guarantee,
// and callers retry on a write-time conflict.
func AllocateSlug(ctx context.Context, firstName, lastName string, exists SlugExistsFunc) (string, error) {
	name := strings.TrimSpace(strings.TrimSpace(firstName) + " " + strings.TrimSpace(lastName))
	base := slug.Normalize(name)
	if !slug.IsValid(base) {
		return "", nil
	}

	candidate := base
	for i := 1; ; i++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("slug lookup failed: %w", err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}
