package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"example.com/studytracker/internal/collection"
	"example.com/studytracker/internal/dashboard"
	"example.com/studytracker/internal/domain"
	"example.com/studytracker/internal/storage"
	"example.com/studytracker/internal/tips"
	"example.com/studytracker/internal/usecase"
)

const (
	HeaderOwnerID = "X-Owner-ID"
	sessionKey    = "session"
)

type Handler struct {
	identity *usecase.Identity
	sessions *usecase.Sessions
	log      zerolog.Logger
}

// New builds the echo router serving the task API.
func New(identity *usecase.Identity, sessions *usecase.Sessions, log zerolog.Logger) *echo.Echo {
	h := &Handler{identity: identity, sessions: sessions, log: log}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = h.errorHandler
	e.Use(middleware.Recover())
	e.Use(h.requestLogger())
	h.routes(e)
	return e
}

func (h *Handler) routes(e *echo.Echo) {
	e.GET("/healthz", h.health)
	e.POST("/users", h.createUser)
	e.GET("/tips/:n", h.tip)

	owned := h.requireOwner
	e.GET("/tasks", h.tasks, owned)
	e.POST("/tasks", h.createTask, owned)
	e.GET("/tasks/:id", h.task, owned)
	e.PATCH("/tasks/:id", h.updateTask, owned)
	e.DELETE("/tasks/:id", h.deleteTask, owned)
	e.PUT("/tasks/:id/status", h.setStatus, owned)
	e.PUT("/tasks/:id/progress", h.setProgress, owned)
	e.PUT("/tasks/:id/completed", h.setCompleted, owned)
	e.GET("/dashboard", h.dashboard, owned)
}

func (h *Handler) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := h.log.Info()
			if v.Error != nil {
				ev = h.log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}

// requireOwner resolves the X-Owner-ID header to a loaded session.
func (h *Handler) requireOwner(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		user, err := h.identity.Resolve(ctx, c.Request().Header.Get(HeaderOwnerID))
		if err != nil {
			return h.fail(c, err)
		}
		s, err := h.sessions.For(ctx, user.ID)
		if err != nil {
			return h.fail(c, err)
		}
		c.Set(sessionKey, s)
		return next(c)
	}
}

func session(c echo.Context) *usecase.Session {
	return c.Get(sessionKey).(*usecase.Session)
}

type taskView struct {
	domain.Task
	ProgressPercent int    `json:"progress_percent"`
	Overdue         bool   `json:"overdue"`
	DueLabel        string `json:"due_label,omitempty"`
}

func viewOf(t domain.Task, now time.Time) taskView {
	v := taskView{
		Task:            t,
		ProgressPercent: domain.ProgressPercent(t),
		Overdue:         domain.IsOverdue(t, now),
	}
	if t.DueDate != nil {
		v.DueLabel = domain.FormatDue(*t.DueDate, now)
	}
	return v
}

func viewsOf(items []domain.Task, now time.Time) []taskView {
	out := make([]taskView, 0, len(items))
	for _, t := range items {
		out = append(out, viewOf(t, now))
	}
	return out
}

func (h *Handler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"ok": "true"})
}

func (h *Handler) createUser(c echo.Context) error {
	var req struct {
		DisplayName string `json:"display_name"`
		ExternalID  string `json:"external_id"`
		Timezone    string `json:"timezone"`
	}
	if err := decodeJSON(c.Request(), &req); err != nil {
		return writeError(c, http.StatusBadRequest, "json")
	}
	user, err := h.identity.Register(c.Request().Context(), domain.User{
		DisplayName: req.DisplayName,
		ExternalID:  req.ExternalID,
		Timezone:    req.Timezone,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, user)
}

func (h *Handler) tip(c echo.Context) error {
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil {
		return writeError(c, http.StatusBadRequest, "n")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"tip":   tips.At(n),
		"next":  tips.Next(n),
		"total": tips.Len(),
	})
}

func (h *Handler) tasks(c echo.Context) error {
	q := collection.Query{Status: collection.All, Search: c.QueryParam("q")}
	if raw := c.QueryParam("status"); raw != "" && raw != string(collection.All) {
		status, err := domain.ParseStatus(raw)
		if err != nil {
			return writeError(c, http.StatusBadRequest, "status")
		}
		q.Status = status
	}
	if raw := c.QueryParam("sort"); raw != "" {
		key, ok := collection.ParseSortKey(raw)
		if !ok {
			return writeError(c, http.StatusBadRequest, "sort")
		}
		q.Sort = key
	}
	s := session(c)
	all := s.Tasks()
	counts := map[string]int{string(collection.All): len(all)}
	for _, st := range domain.Statuses {
		counts[string(st)] = collection.CountByStatus(all, st)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"items":  viewsOf(collection.Apply(all, q), s.Now()),
		"counts": counts,
	})
}

func (h *Handler) task(c echo.Context) error {
	s := session(c)
	item, ok := s.Get(c.Param("id"))
	if !ok {
		return writeError(c, http.StatusNotFound, "not_found")
	}
	return c.JSON(http.StatusOK, viewOf(item, s.Now()))
}

type taskRequest struct {
	Title            *string    `json:"title"`
	Description      *string    `json:"description"`
	Subject          *string    `json:"subject"`
	DueDate          *time.Time `json:"due_date"`
	ClearDueDate     bool       `json:"clear_due_date"`
	Priority         *string    `json:"priority"`
	Status           *string    `json:"status"`
	EstimatedMinutes *int       `json:"estimated_minutes"`
	CompletedMinutes *int       `json:"completed_minutes"`
}

// patch validates the request fields and converts them; the returned string
// names the first bad field.
func (r taskRequest) patch() (domain.TaskPatch, string) {
	p := domain.TaskPatch{
		Title:            r.Title,
		Description:      r.Description,
		Subject:          r.Subject,
		DueDate:          r.DueDate,
		ClearDueDate:     r.ClearDueDate,
		EstimatedMinutes: r.EstimatedMinutes,
		CompletedMinutes: r.CompletedMinutes,
	}
	if r.Priority != nil {
		pr, err := domain.ParsePriority(*r.Priority)
		if err != nil {
			return p, "priority"
		}
		p.Priority = &pr
	}
	if r.Status != nil {
		st, err := domain.ParseStatus(*r.Status)
		if err != nil {
			return p, "status"
		}
		p.Status = &st
	}
	if m := r.EstimatedMinutes; m != nil && (*m < domain.MinEstimatedMinutes || *m > domain.MaxMinutes) {
		return p, "estimated_minutes"
	}
	if m := r.CompletedMinutes; m != nil && (*m < 0 || *m > domain.MaxMinutes) {
		return p, "completed_minutes"
	}
	return p, ""
}

func (h *Handler) createTask(c echo.Context) error {
	var req taskRequest
	if err := decodeJSON(c.Request(), &req); err != nil {
		return writeError(c, http.StatusBadRequest, "json")
	}
	p, bad := req.patch()
	if bad != "" {
		return writeError(c, http.StatusBadRequest, bad)
	}
	// time is logged through the progress route once the task exists
	if req.CompletedMinutes != nil {
		return writeError(c, http.StatusBadRequest, "completed_minutes")
	}
	item, err := session(c).Add(c.Request().Context(), p.Apply(domain.Task{}))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, viewOf(item, session(c).Now()))
}

func (h *Handler) updateTask(c echo.Context) error {
	var req taskRequest
	if err := decodeJSON(c.Request(), &req); err != nil {
		return writeError(c, http.StatusBadRequest, "json")
	}
	p, bad := req.patch()
	if bad != "" {
		return writeError(c, http.StatusBadRequest, bad)
	}
	s := session(c)
	item, err := s.Edit(c.Request().Context(), c.Param("id"), p)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, viewOf(item, s.Now()))
}

func (h *Handler) deleteTask(c echo.Context) error {
	if err := session(c).Delete(c.Request().Context(), c.Param("id")); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) setStatus(c echo.Context) error {
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(c.Request(), &req); err != nil {
		return writeError(c, http.StatusBadRequest, "json")
	}
	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		return writeError(c, http.StatusBadRequest, "status")
	}
	s := session(c)
	item, err := s.SetStatus(c.Request().Context(), c.Param("id"), status)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, viewOf(item, s.Now()))
}

func (h *Handler) setProgress(c echo.Context) error {
	var req struct {
		CompletedMinutes *int `json:"completed_minutes"`
	}
	if err := decodeJSON(c.Request(), &req); err != nil {
		return writeError(c, http.StatusBadRequest, "json")
	}
	if req.CompletedMinutes == nil || *req.CompletedMinutes < 0 || *req.CompletedMinutes > domain.MaxMinutes {
		return writeError(c, http.StatusBadRequest, "completed_minutes")
	}
	s := session(c)
	item, err := s.LogProgress(c.Request().Context(), c.Param("id"), *req.CompletedMinutes)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, viewOf(item, s.Now()))
}

func (h *Handler) setCompleted(c echo.Context) error {
	var req struct {
		Completed *bool `json:"completed"`
	}
	if err := decodeJSON(c.Request(), &req); err != nil {
		return writeError(c, http.StatusBadRequest, "json")
	}
	if req.Completed == nil {
		return writeError(c, http.StatusBadRequest, "completed")
	}
	s := session(c)
	item, err := s.SetCompleted(c.Request().Context(), c.Param("id"), *req.Completed)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, viewOf(item, s.Now()))
}

type dashboardView struct {
	dashboard.Summary
	NextUpcomingTask *taskView `json:"next_upcoming_task"`
}

func (h *Handler) dashboard(c echo.Context) error {
	s := session(c)
	now := s.Now()
	sum := dashboard.Compute(s.Tasks(), now)
	out := dashboardView{Summary: sum}
	if sum.NextUpcomingTask != nil {
		v := viewOf(*sum.NextUpcomingTask, now)
		out.NextUpcomingTask = &v
	}
	return c.JSON(http.StatusOK, out)
}

// fail maps domain and store errors onto status codes.
func (h *Handler) fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, usecase.ErrUnauthenticated):
		return writeError(c, http.StatusUnauthorized, "unauthenticated")
	case errors.Is(err, storage.ErrNotFound):
		return writeError(c, http.StatusNotFound, "not_found")
	case errors.Is(err, storage.ErrConflict):
		return writeError(c, http.StatusConflict, "conflict")
	case errors.Is(err, storage.ErrUnavailable):
		h.log.Warn().Err(err).Str("path", c.Path()).Msg("store unavailable")
		return writeError(c, http.StatusServiceUnavailable, "store")
	case errors.Is(err, usecase.ErrEmptyTitle):
		return writeError(c, http.StatusBadRequest, "title")
	case errors.Is(err, usecase.ErrEmptySubject):
		return writeError(c, http.StatusBadRequest, "subject")
	case errors.Is(err, usecase.ErrInvalidStatus):
		return writeError(c, http.StatusBadRequest, "status")
	case errors.Is(err, usecase.ErrEmptyName):
		return writeError(c, http.StatusBadRequest, "display_name")
	case errors.Is(err, usecase.ErrInvalidTimezone):
		return writeError(c, http.StatusBadRequest, "timezone")
	}
	h.log.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
	return writeError(c, http.StatusInternalServerError, "internal")
}

func (h *Handler) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := "internal"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = http.StatusText(code)
	}
	if werr := writeError(c, code, msg); werr != nil {
		h.log.Error().Err(werr).Msg("write error response")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("extra data")
	}
	return nil
}

func writeError(c echo.Context, code int, msg string) error {
	return c.JSON(code, map[string]string{"error": msg})
}
