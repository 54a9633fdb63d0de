package domain

// ApplyStatusChange sets an explicit status. Completing a task fills its logged time;
// any other status leaves the minutes alone, so an explicit override wins over derivation.
func ApplyStatusChange(t Task, status Status) Task {
	if status == StatusCompleted {
		t.CompletedMinutes = t.EstimatedMinutes
	}
	t.Status = status
	t.DueDate = copyTime(t.DueDate)
	return t
}

// ApplyProgressChange logs time and re-derives the status from it.
func ApplyProgressChange(t Task, completedMinutes int) Task {
	t.CompletedMinutes = clampMinutes(completedMinutes, t.EstimatedMinutes)
	t.Status = deriveStatus(t.CompletedMinutes, t.EstimatedMinutes)
	t.DueDate = copyTime(t.DueDate)
	return t
}

// ToggleCompleted mirrors the task card checkbox.
func ToggleCompleted(t Task, completed bool) Task {
	if completed {
		return ApplyStatusChange(t, StatusCompleted)
	}
	if t.CompletedMinutes > 0 {
		return ApplyStatusChange(t, StatusInProgress)
	}
	return ApplyStatusChange(t, StatusNotStarted)
}

// ProgressPercent is the share of the estimate already logged, capped at 100.
func ProgressPercent(t Task) int {
	if t.EstimatedMinutes <= 0 {
		return 0
	}
	p := RoundPercent(t.CompletedMinutes, t.EstimatedMinutes)
	if p > 100 {
		return 100
	}
	return p
}

// RoundPercent returns part/whole*100 rounded half up, or 0 when whole is not positive.
func RoundPercent(part, whole int) int {
	if whole <= 0 || part <= 0 {
		return 0
	}
	return (200*part + whole) / (2 * whole)
}
