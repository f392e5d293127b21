package permissions

import (
	"sort"
	"strings"

	"github.com/meditrack/meditrack-backend/pkg/errors"
)

// Filters that select every pharmacy in the caller's access set.
const (
	ScopeBoth = "both"
	ScopeAll  = "all"
)

// SelectsAll reports whether filter asks for the whole access set.
func SelectsAll(filter string) bool {
	switch strings.ToLower(strings.TrimSpace(filter)) {
	case "", ScopeBoth, ScopeAll:
		return true
	}
	return false
}

// ResolveScope maps a pharmacy access set and a requested filter to the
// pharmacy ids a read may include. An empty filter, "both" or "all" yields
// the whole access set; a specific id outside the set is denied.
func ResolveScope(access []string, filter string) ([]string, error) {
	if SelectsAll(filter) {
		return normalize(access), nil
	}
	filter = strings.TrimSpace(filter)

	if err := CheckPharmacyAccess(access, filter); err != nil {
		return nil, err
	}
	return []string{filter}, nil
}

// CheckPharmacyAccess gates a write against a single pharmacy.
func CheckPharmacyAccess(access []string, pharmacyID string) error {
	for _, id := range access {
		if id == pharmacyID {
			return nil
		}
	}
	return errors.AccessDenied(pharmacyID)
}

func normalize(access []string) []string {
	seen := make(map[string]bool, len(access))
	out := make([]string, 0, len(access))
	for _, id := range access {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
