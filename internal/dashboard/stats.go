// Package dashboard summarizes the question cache for the sidebar and the
// statistics page.
package dashboard

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"time"

	"duvidapp/models"

	"github.com/montanaflynn/stats"
)

const (
	defaultTopTags  = 10
	defaultActivity = 10
	week            = 7 * 24 * time.Hour
)

// ActivityKind identifies a recent activity entry
type ActivityKind string

const (
	ActivityQuestion     ActivityKind = "question"
	ActivityAnswer       ActivityKind = "answer"
	ActivityVerification ActivityKind = "verification"
)

// TagShare is a tag with its usage and its share of all questions
type TagShare struct {
	Tag     string  `json:"tag"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Activity is one entry of the recent activity feed
type Activity struct {
	Kind          ActivityKind `json:"kind"`
	QuestionID    string       `json:"questionId"`
	QuestionTitle string       `json:"questionTitle"`
	Actor         string       `json:"actor"`
	At            time.Time    `json:"at"`
}

// Stats is the dashboard summary
type Stats struct {
	TotalQuestions      int        `json:"totalQuestions"`
	ResolvedQuestions   int        `json:"resolvedQuestions"`
	UnresolvedQuestions int        `json:"unresolvedQuestions"`
	TotalAnswers        int        `json:"totalAnswers"`
	VerifiedAnswers     int        `json:"verifiedAnswers"`
	QuestionsThisWeek   int        `json:"questionsThisWeek"`
	AnswersThisWeek     int        `json:"answersThisWeek"`
	ResolutionRate      float64    `json:"resolutionRate"`
	MeanAnswers         float64    `json:"meanAnswersPerQuestion"`
	MedianAnswers       float64    `json:"medianAnswersPerQuestion"`
	MeanViews           float64    `json:"meanViews"`
	TopTags             []TagShare `json:"topTags"`
	RecentActivity      []Activity `json:"recentActivity"`
}

// Options limits the list sections of Stats
type Options struct {
	TopTags  int
	Activity int
}

// Compute summarizes questions as of now with the default list sizes
func Compute(questions []models.Question, now time.Time) Stats {
	return ComputeWithOptions(questions, now, Options{})
}

// ComputeWithOptions summarizes questions as of now
func ComputeWithOptions(questions []models.Question, now time.Time, opts Options) Stats {
	if opts.TopTags <= 0 {
		opts.TopTags = defaultTopTags
	}
	if opts.Activity <= 0 {
		opts.Activity = defaultActivity
	}

	s := Stats{
		TotalQuestions: len(questions),
		TopTags:        []TagShare{},
		RecentActivity: []Activity{},
	}
	if len(questions) == 0 {
		return s
	}

	since := now.Add(-week)
	answerCounts := make([]float64, 0, len(questions))
	views := make([]float64, 0, len(questions))
	tagCounts := make(map[string]int)
	var feed []Activity

	for _, q := range questions {
		if q.HasVerifiedAnswer() {
			s.ResolvedQuestions++
		}
		if q.CreatedAt.After(since) {
			s.QuestionsThisWeek++
		}
		answerCounts = append(answerCounts, float64(q.AnswerCount()))
		views = append(views, float64(q.Views))
		for _, tag := range q.Tags {
			tagCounts[strings.ToLower(tag)]++
		}
		feed = append(feed, Activity{
			Kind: ActivityQuestion, QuestionID: q.ID, QuestionTitle: q.Title, Actor: q.Author.Name, At: q.CreatedAt,
		})

		for _, a := range q.Answers {
			s.TotalAnswers++
			if a.CreatedAt.After(since) {
				s.AnswersThisWeek++
			}
			feed = append(feed, Activity{
				Kind: ActivityAnswer, QuestionID: q.ID, QuestionTitle: q.Title, Actor: a.AuthorName, At: a.CreatedAt,
			})
			if a.IsVerified {
				s.VerifiedAnswers++
				feed = append(feed, Activity{
					Kind: ActivityVerification, QuestionID: q.ID, QuestionTitle: q.Title, Actor: a.AuthorName, At: a.UpdatedAt,
				})
			}
		}
	}

	s.UnresolvedQuestions = s.TotalQuestions - s.ResolvedQuestions
	s.ResolutionRate = round2(100 * float64(s.ResolvedQuestions) / float64(s.TotalQuestions))

	if mean, err := stats.Mean(answerCounts); err == nil {
		s.MeanAnswers = round2(mean)
	}
	if median, err := stats.Median(answerCounts); err == nil {
		s.MedianAnswers = round2(median)
	}
	if mean, err := stats.Mean(views); err == nil {
		s.MeanViews = round2(mean)
	}

	for tag, n := range tagCounts {
		s.TopTags = append(s.TopTags, TagShare{
			Tag:     tag,
			Count:   n,
			Percent: round2(100 * float64(n) / float64(s.TotalQuestions)),
		})
	}
	slices.SortFunc(s.TopTags, func(a, b TagShare) int {
		return cmp.Or(cmp.Compare(b.Count, a.Count), cmp.Compare(a.Tag, b.Tag))
	})
	if len(s.TopTags) > opts.TopTags {
		s.TopTags = s.TopTags[:opts.TopTags]
	}

	slices.SortStableFunc(feed, func(a, b Activity) int {
		return b.At.Compare(a.At)
	})
	if len(feed) > opts.Activity {
		feed = feed[:opts.Activity]
	}
	s.RecentActivity = append(s.RecentActivity, feed...)
	return s
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
