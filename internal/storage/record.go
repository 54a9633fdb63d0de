package storage

import (
	"time"

	"example.com/studytracker/internal/domain"
)

// Record is the persisted shape of a task. DueAt is meaningful only when HasDueAt
// is set; a record without a deadline keeps DueAt zero.
type Record struct {
	ID               string    `datastore:"-"`
	OwnerID          string    `datastore:"owner_id"`
	Title            string    `datastore:"title"`
	Description      string    `datastore:"description,noindex"`
	Subject          string    `datastore:"subject"`
	DueAt            time.Time `datastore:"due_at"`
	HasDueAt         bool      `datastore:"has_due_at"`
	Priority         string    `datastore:"priority"`
	Status           string    `datastore:"status"`
	EstimatedMinutes int64     `datastore:"estimated_minutes"`
	CompletedMinutes int64     `datastore:"completed_minutes"`
	CreatedAt        time.Time `datastore:"created_at"`
	UpdatedAt        time.Time `datastore:"updated_at"`
}

func ToRecord(t domain.Task) Record {
	r := Record{
		ID:               t.ID,
		OwnerID:          t.OwnerID,
		Title:            t.Title,
		Description:      t.Description,
		Subject:          t.Subject,
		Priority:         string(t.Priority),
		Status:           string(t.Status),
		EstimatedMinutes: int64(t.EstimatedMinutes),
		CompletedMinutes: int64(t.CompletedMinutes),
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
	if t.DueDate != nil {
		r.DueAt = *t.DueDate
		r.HasDueAt = true
	}
	return r
}

func FromRecord(r Record) domain.Task {
	t := domain.Task{
		ID:               r.ID,
		OwnerID:          r.OwnerID,
		Title:            r.Title,
		Description:      r.Description,
		Subject:          r.Subject,
		Priority:         domain.Priority(r.Priority),
		Status:           domain.Status(r.Status),
		EstimatedMinutes: int(r.EstimatedMinutes),
		CompletedMinutes: int(r.CompletedMinutes),
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	if r.HasDueAt {
		due := r.DueAt
		t.DueDate = &due
	}
	return t
}

// UTC returns the record with all timestamps in UTC.
func (r Record) UTC() Record {
	if r.HasDueAt {
		r.DueAt = r.DueAt.UTC()
	}
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return r
}
