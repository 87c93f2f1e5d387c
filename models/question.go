package models

import (
	"slices"
	"time"
)

// Author is the denormalized author of a question
type Author struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
	Role   Role   `json:"role"`
}

// Question is a posted doubt
type Question struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Tags       []string  `json:"tags"`
	Author     Author    `json:"author"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Views      uint      `json:"views"`
	Likes      int       `json:"likes"`
	IsResolved bool      `json:"isResolved"`
	Answers    []Answer  `json:"answers"`
}

// Answer is a response to a question. Votes is always len(LikedBy)-len(DislikedBy)
// once the answer has been normalized.
type Answer struct {
	ID                  string    `json:"id"`
	QuestionID          string    `json:"questionId"`
	Content             string    `json:"content"`
	AuthorID            string    `json:"authorId"`
	AuthorName          string    `json:"authorName"`
	AuthorAvatar        string    `json:"authorAvatar,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
	Votes               int       `json:"votes"`
	IsVerified          bool      `json:"isVerified"`
	IsCorrect           bool      `json:"isCorrect"`
	VerificationComment string    `json:"verificationComment,omitempty"`
	LikedBy             []string  `json:"likedBy"`
	DislikedBy          []string  `json:"dislikedBy"`
}

// VoteType is the direction of a vote
type VoteType string

const (
	VoteUp   VoteType = "up"
	VoteDown VoteType = "down"
)

// Delta is the like-count contribution of a single vote of this type
func (t VoteType) Delta() int {
	if t == VoteDown {
		return -1
	}
	return 1
}

// Vote is a single user's vote on a question or an answer. Exactly one of
// QuestionID and AnswerID is set.
type Vote struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	QuestionID string    `json:"questionId,omitempty"`
	AnswerID   string    `json:"answerId,omitempty"`
	Type       VoteType  `json:"type"`
	CreatedAt  time.Time `json:"createdAt"`
}

// AnswerCount returns the number of answers held for q
func (q Question) AnswerCount() int {
	return len(q.Answers)
}

// HasVerifiedAnswer reports whether any answer has been verified
func (q Question) HasVerifiedAnswer() bool {
	for _, a := range q.Answers {
		if a.IsVerified {
			return true
		}
	}
	return false
}

// HasTag reports whether q carries tag
func (q Question) HasTag(tag string) bool {
	return slices.Contains(q.Tags, tag)
}

// Clone returns a deep copy of q
func (q Question) Clone() Question {
	out := q
	out.Tags = slices.Clone(q.Tags)
	if q.Answers != nil {
		out.Answers = make([]Answer, len(q.Answers))
		for i, a := range q.Answers {
			out.Answers[i] = a.Clone()
		}
	}
	return out
}

// Normalize re-derives IsResolved and every answer's vote count
func (q *Question) Normalize() {
	for i := range q.Answers {
		q.Answers[i].Normalize()
	}
	q.IsResolved = q.HasVerifiedAnswer()
}

// Clone returns a deep copy of a
func (a Answer) Clone() Answer {
	out := a
	out.LikedBy = slices.Clone(a.LikedBy)
	out.DislikedBy = slices.Clone(a.DislikedBy)
	return out
}

// Normalize recomputes Votes from the like/dislike sets
func (a *Answer) Normalize() {
	a.Votes = len(a.LikedBy) - len(a.DislikedBy)
}

// UserVote returns the vote type userID holds on a, if any
func (a Answer) UserVote(userID string) (VoteType, bool) {
	if slices.Contains(a.LikedBy, userID) {
		return VoteUp, true
	}
	if slices.Contains(a.DislikedBy, userID) {
		return VoteDown, true
	}
	return "", false
}

// ToggleVote applies toggle semantics for userID: the same type again retracts,
// a different type replaces it. Votes is recomputed.
func (a *Answer) ToggleVote(userID string, t VoteType) {
	current, ok := a.UserVote(userID)
	a.LikedBy = slices.DeleteFunc(a.LikedBy, func(id string) bool { return id == userID })
	a.DislikedBy = slices.DeleteFunc(a.DislikedBy, func(id string) bool { return id == userID })
	if !ok || current != t {
		if t == VoteUp {
			a.LikedBy = append(a.LikedBy, userID)
		} else {
			a.DislikedBy = append(a.DislikedBy, userID)
		}
	}
	a.Normalize()
}

// MarkCorrect verifies the answer with the given id as the correct one and demotes
// every sibling. Nothing changes when id is not in answers.
func MarkCorrect(answers []Answer, id, comment string, at time.Time) bool {
	if !slices.ContainsFunc(answers, func(a Answer) bool { return a.ID == id }) {
		return false
	}
	for i := range answers {
		if answers[i].ID != id {
			answers[i].IsCorrect = false
			continue
		}
		answers[i].IsVerified = true
		answers[i].IsCorrect = true
		answers[i].VerificationComment = comment
		answers[i].UpdatedAt = at
	}
	return true
}
