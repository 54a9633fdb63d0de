package domain

import "time"

// TaskPatch is a partial update. Nil fields are left untouched; ClearDueDate
// removes the deadline and takes precedence over DueDate.
type TaskPatch struct {
	Title            *string    `json:"title,omitempty"`
	Description      *string    `json:"description,omitempty"`
	Subject          *string    `json:"subject,omitempty"`
	DueDate          *time.Time `json:"due_date,omitempty"`
	ClearDueDate     bool       `json:"clear_due_date,omitempty"`
	Priority         *Priority  `json:"priority,omitempty"`
	Status           *Status    `json:"status,omitempty"`
	EstimatedMinutes *int       `json:"estimated_minutes,omitempty"`
	CompletedMinutes *int       `json:"completed_minutes,omitempty"`
}

// Apply returns t with the patch fields copied over it.
func (p TaskPatch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Subject != nil {
		t.Subject = *p.Subject
	}
	switch {
	case p.ClearDueDate:
		t.DueDate = nil
	case p.DueDate != nil:
		t.DueDate = copyTime(p.DueDate)
	default:
		t.DueDate = copyTime(t.DueDate)
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.EstimatedMinutes != nil {
		t.EstimatedMinutes = *p.EstimatedMinutes
	}
	if p.CompletedMinutes != nil {
		t.CompletedMinutes = *p.CompletedMinutes
	}
	return t
}

// TouchesMinutes reports whether the patch changes either minute count.
func (p TaskPatch) TouchesMinutes() bool {
	return p.EstimatedMinutes != nil || p.CompletedMinutes != nil
}

// FullPatch builds a patch that replaces every mutable field with t's values.
func FullPatch(t Task) TaskPatch {
	p := TaskPatch{
		Title:            &t.Title,
		Description:      &t.Description,
		Subject:          &t.Subject,
		Priority:         &t.Priority,
		Status:           &t.Status,
		EstimatedMinutes: &t.EstimatedMinutes,
		CompletedMinutes: &t.CompletedMinutes,
	}
	if t.DueDate == nil {
		p.ClearDueDate = true
	} else {
		p.DueDate = copyTime(t.DueDate)
	}
	return p
}
