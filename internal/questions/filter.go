package questions

import (
	"cmp"
	"slices"
	"strings"

	"duvidapp/models"
)

// Apply projects questions through filters. Tags match when the question carries
// ANY of the selected tags. Sorting is stable and the result holds deep copies.
func Apply(questions []models.Question, filters models.QuestionFilters) []models.Question {
	term := strings.ToLower(strings.TrimSpace(filters.SearchTerm))

	out := make([]models.Question, 0, len(questions))
	for _, q := range questions {
		if term != "" &&
			!strings.Contains(strings.ToLower(q.Title), term) &&
			!strings.Contains(strings.ToLower(q.Content), term) {
			continue
		}
		if len(filters.Tags) > 0 && !hasAnyTag(q, filters.Tags) {
			continue
		}
		switch filters.Status {
		case models.StatusResolved:
			if !q.HasVerifiedAnswer() {
				continue
			}
		case models.StatusUnresolved:
			if q.HasVerifiedAnswer() {
				continue
			}
		}
		if filters.AuthorID != "" && q.Author.ID != filters.AuthorID {
			continue
		}
		out = append(out, q.Clone())
	}

	switch filters.SortBy {
	case models.SortOldest:
		slices.SortStableFunc(out, func(a, b models.Question) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		})
	case models.SortMostViewed:
		slices.SortStableFunc(out, func(a, b models.Question) int {
			return cmp.Compare(b.Views, a.Views)
		})
	case models.SortMostAnswered:
		slices.SortStableFunc(out, func(a, b models.Question) int {
			return cmp.Compare(b.AnswerCount(), a.AnswerCount())
		})
	default:
		slices.SortStableFunc(out, func(a, b models.Question) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		})
	}
	return out
}

func hasAnyTag(q models.Question, wanted []string) bool {
	for _, tag := range q.Tags {
		for _, w := range wanted {
			if strings.EqualFold(tag, w) {
				return true
			}
		}
	}
	return false
}

// TagCount is a tag and how many questions carry it
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// CountTags counts tag usage, most used first and ties by name
func CountTags(questions []models.Question, limit int) []TagCount {
	counts := make(map[string]int)
	for _, q := range questions {
		for _, tag := range q.Tags {
			counts[strings.ToLower(tag)]++
		}
	}

	out := make([]TagCount, 0, len(counts))
	for tag, n := range counts {
		out = append(out, TagCount{Tag: tag, Count: n})
	}
	slices.SortFunc(out, func(a, b TagCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Tag, b.Tag)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
