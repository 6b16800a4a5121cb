package inbox

import (
	"fmt"
	"strings"

	"github.com/BaSui01/agentinbox/langgraph"
	"github.com/BaSui01/agentinbox/types"
)

// Filter selects which threads the inbox lists.
type Filter string

const (
	FilterAll                 Filter = "all"
	FilterInterrupted         Filter = "interrupted"
	FilterIdle                Filter = "idle"
	FilterBusy                Filter = "busy"
	FilterError               Filter = "error"
	FilterHumanResponseNeeded Filter = "human_response_needed"
)

var filters = []Filter{
	FilterAll,
	FilterInterrupted,
	FilterIdle,
	FilterBusy,
	FilterError,
	FilterHumanResponseNeeded,
}

// ParseFilter parses a filter name. Empty means FilterAll.
func ParseFilter(s string) (Filter, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FilterAll, nil
	}
	for _, f := range filters {
		if string(f) == s {
			return f, nil
		}
	}
	return "", types.NewValidationError("unknown filter %q", s)
}

// SearchStatus is the server-side status filter sent with threads.search.
// FilterAll and FilterHumanResponseNeeded send none.
func (f Filter) SearchStatus() langgraph.ThreadStatus {
	switch f {
	case FilterInterrupted, FilterIdle, FilterBusy, FilterError:
		return langgraph.ThreadStatus(f)
	default:
		return ""
	}
}

// MaxPageLimit is the largest accepted page size.
const MaxPageLimit = 100

// Pagination is an offset/limit window.
type Pagination struct {
	Offset int
	Limit  int
}

// Validate checks 1 <= Limit <= MaxPageLimit and Offset >= 0.
func (p Pagination) Validate() error {
	if p.Limit < 1 || p.Limit > MaxPageLimit {
		return types.NewValidationError("limit must be between 1 and %d, got %d", MaxPageLimit, p.Limit)
	}
	if p.Offset < 0 {
		return types.NewValidationError("offset must not be negative, got %d", p.Offset)
	}
	return nil
}

// Next returns the following page.
func (p Pagination) Next() Pagination {
	return Pagination{Offset: p.Offset + p.Limit, Limit: p.Limit}
}

func (p Pagination) String() string {
	return fmt.Sprintf("offset=%d limit=%d", p.Offset, p.Limit)
}
