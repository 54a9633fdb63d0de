package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"example.com/studytracker/internal/domain"
	"example.com/studytracker/internal/repository"
	"example.com/studytracker/internal/storage"
)

var (
	ErrInvalidTimezone = errors.New("invalid timezone")
	ErrEmptyName       = errors.New("display name is empty")
)

// Identity answers "who is the current owner" for the transports.
type Identity struct {
	users repository.UserRepository
}

func NewIdentity(users repository.UserRepository) *Identity {
	return &Identity{users: users}
}

// Resolve checks that ownerID names a known user.
func (i *Identity) Resolve(ctx context.Context, ownerID string) (domain.User, error) {
	if ownerID == "" {
		return domain.User{}, ErrUnauthenticated
	}
	u, err := i.users.GetUser(ctx, ownerID)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.User{}, fmt.Errorf("owner %s: %w", ownerID, ErrUnauthenticated)
	}
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (i *Identity) Register(ctx context.Context, u domain.User) (domain.User, error) {
	u.DisplayName = strings.TrimSpace(u.DisplayName)
	if u.DisplayName == "" {
		return domain.User{}, ErrEmptyName
	}
	if _, err := LocationFromTZ(u.Timezone); err != nil {
		return domain.User{}, err
	}
	return i.users.CreateUser(ctx, u)
}

// Ensure returns the user linked to externalID, creating it on first contact.
func (i *Identity) Ensure(ctx context.Context, externalID, displayName string) (domain.User, error) {
	u, err := i.users.GetUserByExternalID(ctx, externalID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return domain.User{}, err
	}
	if displayName = strings.TrimSpace(displayName); displayName == "" {
		displayName = externalID
	}
	u, err = i.users.CreateUser(ctx, domain.User{ExternalID: externalID, DisplayName: displayName, Timezone: "UTC"})
	if errors.Is(err, storage.ErrConflict) {
		return i.users.GetUserByExternalID(ctx, externalID)
	}
	return u, err
}

func TelegramExternalID(userID int64) string {
	return "telegram:" + strconv.FormatInt(userID, 10)
}

// LocationFromTZ accepts an IANA zone name or a fixed "+HH:MM" offset.
func LocationFromTZ(tz string) (*time.Location, error) {
	if tz == "" || tz == "UTC" {
		return time.UTC, nil
	}
	if loc, ok := parseOffsetLocation(tz); ok {
		return loc, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, ErrInvalidTimezone
	}
	return loc, nil
}

func parseOffsetLocation(tz string) (*time.Location, bool) {
	if len(tz) != 6 || (tz[0] != '+' && tz[0] != '-') || tz[3] != ':' {
		return nil, false
	}
	hours, err := strconv.Atoi(tz[1:3])
	if err != nil || hours > 14 {
		return nil, false
	}
	minutes, err := strconv.Atoi(tz[4:6])
	if err != nil || minutes > 59 {
		return nil, false
	}
	offset := hours*3600 + minutes*60
	if tz[0] == '-' {
		offset = -offset
	}
	return time.FixedZone(tz, offset), true
}
