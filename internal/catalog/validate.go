package catalog

import (
	"fmt"
	"sort"
	"strings"
)

const (
	maxSourceIDLength = 128
	maxItemIDLength   = 512
	maxNameLength     = 1024
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		keys = append(keys, field)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, field := range keys {
		parts[i] = fmt.Sprintf("%s: %s", field, e.Fields[field])
	}
	return "invalid source update: " + strings.Join(parts, "; ")
}

// Validate checks a source update and fills in each item's Source from the
// update. Deleted updates only need a valid source id.
func Validate(u *SourceUpdate) error {
	errs := make(map[string]string)

	u.Source = strings.TrimSpace(u.Source)
	if u.Source == "" {
		errs["source"] = "source is required"
	} else if len(u.Source) > maxSourceIDLength {
		errs["source"] = fmt.Sprintf("source must be at most %d characters", maxSourceIDLength)
	}

	if !u.Deleted {
		seen := make(map[string]int, len(u.Items))
		for i := range u.Items {
			item := &u.Items[i]
			field := fmt.Sprintf("items[%d]", i)
			switch {
			case item.ID == "":
				errs[field+".id"] = "id is required"
			case len(item.ID) > maxItemIDLength:
				errs[field+".id"] = fmt.Sprintf("id must be at most %d characters", maxItemIDLength)
			default:
				if first, dup := seen[item.ID]; dup {
					errs[field+".id"] = fmt.Sprintf("duplicate id %q (first at items[%d])", item.ID, first)
				} else {
					seen[item.ID] = i
				}
			}
			if strings.TrimSpace(item.Name) == "" {
				errs[field+".name"] = "name is required"
			} else if len(item.Name) > maxNameLength {
				errs[field+".name"] = fmt.Sprintf("name must be at most %d characters", maxNameLength)
			}
			if item.Source == "" {
				item.Source = u.Source
			}
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
