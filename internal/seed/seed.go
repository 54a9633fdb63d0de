// Package seed loads the starter tasks new users see.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"example.com/studytracker/internal/domain"
)

//go:embed default_tasks.yaml
var defaultTasks []byte

type entry struct {
	Title            string `yaml:"title"`
	Description      string `yaml:"description"`
	Subject          string `yaml:"subject"`
	DueInDays        *int   `yaml:"due_in_days"`
	Priority         string `yaml:"priority"`
	Status           string `yaml:"status"`
	EstimatedMinutes int    `yaml:"estimated_minutes"`
	CompletedMinutes int    `yaml:"completed_minutes"`
}

// Importer is the part of a session the seeder needs.
type Importer interface {
	Import(ctx context.Context, t domain.Task) (domain.Task, error)
	Now() time.Time
}

// Parse decodes seed YAML, resolving relative due dates against now.
func Parse(data []byte, now time.Time) ([]domain.Task, error) {
	var entries []entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	out := make([]domain.Task, 0, len(entries))
	for i, e := range entries {
		t := domain.Task{
			Title:            e.Title,
			Description:      e.Description,
			Subject:          e.Subject,
			EstimatedMinutes: e.EstimatedMinutes,
			CompletedMinutes: e.CompletedMinutes,
		}
		if e.Priority != "" {
			p, err := domain.ParsePriority(e.Priority)
			if err != nil {
				return nil, fmt.Errorf("seed entry %d: %w", i, err)
			}
			t.Priority = p
		}
		if e.Status != "" {
			s, err := domain.ParseStatus(e.Status)
			if err != nil {
				return nil, fmt.Errorf("seed entry %d: %w", i, err)
			}
			t.Status = s
		}
		if e.DueInDays != nil {
			due := now.AddDate(0, 0, *e.DueInDays)
			t.DueDate = &due
		}
		out = append(out, t)
	}
	return out, nil
}

func Defaults(now time.Time) ([]domain.Task, error) {
	return Parse(defaultTasks, now)
}

// Load inserts the default tasks through the session and returns what was stored.
// It stops at the first failure.
func Load(ctx context.Context, s Importer) ([]domain.Task, error) {
	tasks, err := Defaults(s.Now())
	if err != nil {
		return nil, err
	}
	created := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		c, err := s.Import(ctx, t)
		if err != nil {
			return created, fmt.Errorf("seed %q: %w", t.Title, err)
		}
		created = append(created, c)
	}
	return created, nil
}
