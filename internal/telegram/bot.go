package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"example.com/studytracker/internal/collection"
	"example.com/studytracker/internal/domain"
	"example.com/studytracker/internal/storage"
	"example.com/studytracker/internal/tips"
	"example.com/studytracker/internal/usecase"
)

type Bot struct {
	api         API
	identity    *usecase.Identity
	sessions    *usecase.Sessions
	pollTimeout time.Duration
	log         zerolog.Logger

	mu     sync.Mutex
	tipPos map[int64]int
}

func NewBot(api API, identity *usecase.Identity, sessions *usecase.Sessions, pollTimeout time.Duration, log zerolog.Logger) *Bot {
	return &Bot{
		api:         api,
		identity:    identity,
		sessions:    sessions,
		pollTimeout: pollTimeout,
		log:         log.With().Str("component", "telegram").Logger(),
		tipPos:      make(map[int64]int),
	}
}

// Run long-polls for messages until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = int(b.pollTimeout.Seconds())
	u.AllowedUpdates = []string{"message"}
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			if upd.Message == nil || upd.Message.Text == "" {
				continue
			}
			if err := b.handleMessage(ctx, upd.Message); err != nil {
				b.log.Warn().Err(err).Int("update_id", upd.UpdateID).Msg("handle message")
			}
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil || msg.Chat == nil {
		return nil
	}
	command, args := parseCommand(msg.Text)
	if command == "" {
		return nil
	}

	user, err := b.identity.Ensure(ctx, usecase.TelegramExternalID(msg.From.ID), displayName(msg.From))
	if err != nil {
		_ = b.send(msg.Chat.ID, "Something went wrong, please try again.")
		return err
	}
	s, err := b.sessions.For(ctx, user.ID)
	if err != nil {
		_ = b.send(msg.Chat.ID, errorText(err))
		return err
	}
	loc, err := usecase.LocationFromTZ(user.Timezone)
	if err != nil {
		loc = time.UTC
	}
	return b.send(msg.Chat.ID, b.reply(ctx, msg.Chat.ID, s, loc, command, args))
}

func (b *Bot) send(chatID int64, text string) error {
	_, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (b *Bot) reply(ctx context.Context, chatID int64, s *usecase.Session, loc *time.Location, command, args string) string {
	switch command {
	case "start", "help":
		return helpText()
	case "add":
		in, err := parseAddArgs(args, loc)
		if err != nil {
			return "Format: /add <subject>: <title> [YYYY-MM-DD HH:MM] [~minutes]"
		}
		task, err := s.Add(ctx, domain.Task{
			Title:            in.title,
			Subject:          in.subject,
			DueDate:          in.due,
			EstimatedMinutes: in.minutes,
		})
		if err != nil {
			return errorText(err)
		}
		return fmt.Sprintf("Added #%d: %s.", position(s, task.ID), task.Title)
	case "list":
		status := collection.All
		if args != "" && args != string(collection.All) {
			st, err := domain.ParseStatus(args)
			if err != nil {
				return "Format: /list [all|not-started|in-progress|completed]"
			}
			status = st
		}
		return formatTaskList(numbered(s), status, s.Now(), loc)
	case "done", "undo":
		n, err := parseIndexArg(args)
		if err != nil {
			return fmt.Sprintf("Format: /%s <n>", command)
		}
		task, ok := taskAt(s, n)
		if !ok {
			return "Task not found."
		}
		task, err = s.SetCompleted(ctx, task.ID, command == "done")
		if err != nil {
			return errorText(err)
		}
		if command == "done" {
			return fmt.Sprintf("Done: %s.", task.Title)
		}
		return fmt.Sprintf("Reopened: %s (%s).", task.Title, task.Status)
	case "progress":
		n, minutes, err := parseProgressArgs(args)
		if err != nil {
			return "Format: /progress <n> <minutes>"
		}
		task, ok := taskAt(s, n)
		if !ok {
			return "Task not found."
		}
		task, err = s.LogProgress(ctx, task.ID, minutes)
		if err != nil {
			return errorText(err)
		}
		return fmt.Sprintf("%s: %d/%d min (%d%%), %s.",
			task.Title, task.CompletedMinutes, task.EstimatedMinutes, domain.ProgressPercent(task), task.Status)
	case "del":
		n, err := parseIndexArg(args)
		if err != nil {
			return "Format: /del <n>"
		}
		task, ok := taskAt(s, n)
		if !ok {
			return "Task not found."
		}
		if err := s.Delete(ctx, task.ID); err != nil {
			return errorText(err)
		}
		return fmt.Sprintf("Deleted: %s.", task.Title)
	case "stats":
		return formatSummary(s.Summary(), s.Now(), loc)
	case "tip":
		return b.nextTip(chatID)
	default:
		return "Unknown command. /start shows the help."
	}
}

func (b *Bot) nextTip(chatID int64) string {
	b.mu.Lock()
	n := b.tipPos[chatID]
	b.tipPos[chatID] = tips.Next(n)
	b.mu.Unlock()
	t := tips.At(n)
	return t.Title + "\n" + t.Description
}

// numbered is the list that /done, /del and friends index into.
func numbered(s *usecase.Session) []domain.Task {
	return s.View(collection.Query{Sort: collection.SortByDueDate})
}

func taskAt(s *usecase.Session, n int) (domain.Task, bool) {
	items := numbered(s)
	if n < 1 || n > len(items) {
		return domain.Task{}, false
	}
	return items[n-1], true
}

func position(s *usecase.Session, id string) int {
	for i, t := range numbered(s) {
		if t.ID == id {
			return i + 1
		}
	}
	return 0
}

func displayName(u *tgbotapi.User) string {
	if u.UserName != "" {
		return u.UserName
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func errorText(err error) string {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return "Task not found."
	case errors.Is(err, storage.ErrUnavailable):
		return "Storage is unavailable right now, try again later."
	case errors.Is(err, usecase.ErrEmptyTitle):
		return "The title is empty."
	case errors.Is(err, usecase.ErrEmptySubject):
		return "The subject is empty."
	}
	return "Something went wrong, please try again."
}
