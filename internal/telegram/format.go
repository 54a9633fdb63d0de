package telegram

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"example.com/studytracker/internal/collection"
	"example.com/studytracker/internal/dashboard"
	"example.com/studytracker/internal/domain"
)

func parseCommand(text string) (string, string) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "/") {
		return "", ""
	}
	parts := strings.SplitN(trimmed, " ", 2)
	cmd := strings.TrimPrefix(parts[0], "/")
	if idx := strings.Index(cmd, "@"); idx >= 0 {
		cmd = cmd[:idx]
	}
	cmd = strings.ToLower(cmd)
	if len(parts) == 1 {
		return cmd, ""
	}
	return cmd, strings.TrimSpace(parts[1])
}

type addArgs struct {
	subject string
	title   string
	due     *time.Time
	minutes int
}

// parseAddArgs reads "<subject>: <title> [YYYY-MM-DD HH:MM] [~minutes]".
func parseAddArgs(args string, loc *time.Location) (addArgs, error) {
	subject, rest, ok := strings.Cut(args, ":")
	if !ok {
		return addArgs{}, errors.New("missing subject")
	}
	out := addArgs{subject: strings.TrimSpace(subject)}
	fields := strings.Fields(rest)

	if n := len(fields); n > 0 && strings.HasPrefix(fields[n-1], "~") {
		m, err := strconv.Atoi(strings.TrimPrefix(fields[n-1], "~"))
		if err != nil || m < domain.MinEstimatedMinutes || m > domain.MaxMinutes {
			return addArgs{}, errors.New("minutes")
		}
		out.minutes = m
		fields = fields[:n-1]
	}
	if n := len(fields); n >= 3 && looksLikeDate(fields[n-2]) && looksLikeTime(fields[n-1]) {
		dt, err := time.ParseInLocation("2006-01-02 15:04", fields[n-2]+" "+fields[n-1], loc)
		if err != nil {
			return addArgs{}, err
		}
		out.due = &dt
		fields = fields[:n-2]
	}
	out.title = strings.Join(fields, " ")
	if out.subject == "" || out.title == "" {
		return addArgs{}, errors.New("empty")
	}
	return out, nil
}

func parseIndexArg(args string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil || n <= 0 {
		return 0, errors.New("index")
	}
	return n, nil
}

func parseProgressArgs(args string) (int, int, error) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return 0, 0, errors.New("invalid")
	}
	n, err := parseIndexArg(fields[0])
	if err != nil {
		return 0, 0, err
	}
	m, err := strconv.Atoi(fields[1])
	if err != nil || m < 0 || m > domain.MaxMinutes {
		return 0, 0, errors.New("minutes")
	}
	return n, m, nil
}

func looksLikeDate(s string) bool {
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return false
	}
	for i := 0; i < len(s); i++ {
		if i == 4 || i == 7 {
			continue
		}
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func looksLikeTime(s string) bool {
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	for i := 0; i < len(s); i++ {
		if i == 2 {
			continue
		}
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func statusMark(s domain.Status) string {
	switch s {
	case domain.StatusCompleted:
		return "[x]"
	case domain.StatusInProgress:
		return "[~]"
	}
	return "[ ]"
}

func formatDue(due time.Time, now time.Time, loc *time.Location) string {
	local := due.In(loc)
	return domain.FormatDue(local, now.In(loc)) + " " + local.Format("15:04")
}

// formatTaskList prints the numbered list, keeping each task's number from the
// full list when a status filter hides some of them.
func formatTaskList(items []domain.Task, status domain.Status, now time.Time, loc *time.Location) string {
	lines := []string{}
	for i, t := range items {
		if status != collection.All && t.Status != status {
			continue
		}
		line := fmt.Sprintf("%d) %s %s: %s (%d/%d min)",
			i+1, statusMark(t.Status), t.Subject, t.Title, t.CompletedMinutes, t.EstimatedMinutes)
		if t.DueDate != nil {
			line += ", due " + formatDue(*t.DueDate, now, loc)
		}
		if domain.IsOverdue(t, now.In(loc)) {
			line += ", overdue"
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return "Nothing here yet. Add a task with /add."
	}
	return strings.Join(lines, "\n")
}

func formatSummary(s dashboard.Summary, now time.Time, loc *time.Location) string {
	lines := []string{
		fmt.Sprintf("Tasks: %d (%d completed, %d in progress, %d not started)",
			s.TotalCount, s.CompletedCount, s.InProgressCount, s.NotStartedCount),
		fmt.Sprintf("Completion: %d%%", s.CompletionRate),
		fmt.Sprintf("Study time: %d/%d min (%d%%)", s.TotalCompletedMinutes, s.TotalEstimatedMinutes, s.TimeProgress),
	}
	if t := s.NextUpcomingTask; t != nil {
		lines = append(lines, fmt.Sprintf("Next up: %s: %s, due %s", t.Subject, t.Title, formatDue(*t.DueDate, now, loc)))
	}
	return strings.Join(lines, "\n")
}

func helpText() string {
	return strings.Join([]string{
		"Commands:",
		"/start - this help",
		"/add <subject>: <title> [YYYY-MM-DD HH:MM] [~minutes] - add a task",
		"/list [status] - tasks by due date",
		"/done <n> - mark task n completed",
		"/undo <n> - reopen task n",
		"/progress <n> <minutes> - log study time",
		"/del <n> - delete task n",
		"/stats - dashboard",
		"/tip - a study tip",
	}, "\n")
}
