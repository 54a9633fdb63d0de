package domain

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusNotStarted Status = "not-started"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusNotStarted, StatusInProgress, StatusCompleted}

func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown status %q", s)
	}
	return st, nil
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Weight orders priorities by severity: high=3, medium=2, low=1. Unknown values weigh 0.
func (p Priority) Weight() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

func (p Priority) Valid() bool {
	return p.Weight() > 0
}

func ParsePriority(s string) (Priority, error) {
	p := Priority(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown priority %q", s)
	}
	return p, nil
}

const (
	MinEstimatedMinutes = 1
	MaxMinutes          = 1440
	DefaultEstimate     = 60
)

// Task is a unit of study work owned by exactly one user.
// An empty Status means the caller did not choose one and Normalize derives it.
type Task struct {
	ID               string     `json:"id"`
	OwnerID          string     `json:"owner_id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Subject          string     `json:"subject"`
	DueDate          *time.Time `json:"due_date,omitempty"`
	Priority         Priority   `json:"priority"`
	Status           Status     `json:"status"`
	EstimatedMinutes int        `json:"estimated_minutes"`
	CompletedMinutes int        `json:"completed_minutes"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Normalize clamps the minute counts and reconciles status with them.
// It works on a copy; the argument is never modified.
func Normalize(t Task) Task {
	if t.EstimatedMinutes < MinEstimatedMinutes {
		t.EstimatedMinutes = MinEstimatedMinutes
	}
	if !t.Priority.Valid() {
		t.Priority = PriorityMedium
	}
	t.CompletedMinutes = clampMinutes(t.CompletedMinutes, t.EstimatedMinutes)
	if !t.Status.Valid() {
		t.Status = deriveStatus(t.CompletedMinutes, t.EstimatedMinutes)
	}
	if t.Status == StatusCompleted {
		t.CompletedMinutes = t.EstimatedMinutes
	}
	t.DueDate = copyTime(t.DueDate)
	return t
}

func clampMinutes(m, estimated int) int {
	if m < 0 {
		return 0
	}
	if m > estimated {
		return estimated
	}
	return m
}

func deriveStatus(completed, estimated int) Status {
	switch {
	case completed <= 0:
		return StatusNotStarted
	case completed >= estimated:
		return StatusCompleted
	default:
		return StatusInProgress
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	tt := *t
	return &tt
}
