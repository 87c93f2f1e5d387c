package models

// SortBy selects the ordering of the question list
type SortBy string

const (
	SortNewest       SortBy = "newest"
	SortOldest       SortBy = "oldest"
	SortMostViewed   SortBy = "mostViewed"
	SortMostAnswered SortBy = "mostAnswered"
)

// Valid reports whether s is a known ordering
func (s SortBy) Valid() bool {
	switch s {
	case SortNewest, SortOldest, SortMostViewed, SortMostAnswered:
		return true
	}
	return false
}

// Status selects questions by resolution
type Status string

const (
	StatusAll        Status = "all"
	StatusResolved   Status = "resolved"
	StatusUnresolved Status = "unresolved"
)

// Valid reports whether s is a known status filter
func (s Status) Valid() bool {
	switch s {
	case StatusAll, StatusResolved, StatusUnresolved:
		return true
	}
	return false
}

// QuestionFilters is the list view configuration. It has no identity and is
// replaced wholesale on every change.
type QuestionFilters struct {
	Tags       []string `json:"tags"`
	SearchTerm string   `json:"searchTerm"`
	SortBy     SortBy   `json:"sortBy"`
	Status     Status   `json:"status"`
	AuthorID   string   `json:"authorId,omitempty"`
}

// DefaultFilters returns the initial list configuration
func DefaultFilters() QuestionFilters {
	return QuestionFilters{
		Tags:   []string{},
		SortBy: SortNewest,
		Status: StatusAll,
	}
}
