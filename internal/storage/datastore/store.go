// Package dsstore stores users and tasks in Google Cloud Datastore. Tasks live
// under their owner's key so listing is a strongly consistent ancestor query.
// The client honours DATASTORE_EMULATOR_HOST.
package dsstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/google/uuid"

	"example.com/studytracker/internal/domain"
	"example.com/studytracker/internal/storage"
)

const (
	KindOwner = "Owner"
	KindTask  = "Task"
)

type userEntity struct {
	ExternalID  string    `datastore:"external_id"`
	DisplayName string    `datastore:"display_name,noindex"`
	Timezone    string    `datastore:"timezone,noindex"`
	CreatedAt   time.Time `datastore:"created_at"`
}

type Store struct {
	ds  *datastore.Client
	now func() time.Time
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func Open(ctx context.Context, projectID string, opts ...Option) (*Store, error) {
	ds, err := datastore.NewClient(ctx, projectID)
	if err != nil {
		return nil, storage.Unavailable("datastore client", err)
	}
	return New(ds, opts...), nil
}

func New(ds *datastore.Client, opts ...Option) *Store {
	s := &Store{ds: ds, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Close() error {
	return s.ds.Close()
}

func ownerKey(id string) *datastore.Key {
	return datastore.NameKey(KindOwner, id, nil)
}

func taskKey(ownerID, id string) *datastore.Key {
	return datastore.NameKey(KindTask, id, ownerKey(ownerID))
}

func classify(op string, err error) error {
	if errors.Is(err, datastore.ErrNoSuchEntity) {
		return storage.ErrNotFound
	}
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrConflict) {
		return err
	}
	return storage.Unavailable(op, err)
}

func toUser(key *datastore.Key, e userEntity) domain.User {
	return domain.User{
		ID:          key.Name,
		ExternalID:  e.ExternalID,
		DisplayName: e.DisplayName,
		Timezone:    e.Timezone,
		CreatedAt:   e.CreatedAt.UTC(),
	}
}

func (s *Store) GetUser(ctx context.Context, id string) (domain.User, error) {
	var e userEntity
	key := ownerKey(id)
	if err := s.ds.Get(ctx, key, &e); err != nil {
		return domain.User{}, classify("get user", err)
	}
	return toUser(key, e), nil
}

func (s *Store) GetUserByExternalID(ctx context.Context, externalID string) (domain.User, error) {
	q := datastore.NewQuery(KindOwner).FilterField("external_id", "=", externalID).Limit(1)
	var found []userEntity
	keys, err := s.ds.GetAll(ctx, q, &found)
	if err != nil {
		return domain.User{}, classify("get user", err)
	}
	if len(keys) == 0 {
		return domain.User{}, storage.ErrNotFound
	}
	return toUser(keys[0], found[0]), nil
}

func (s *Store) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	if u.ExternalID != "" {
		_, err := s.GetUserByExternalID(ctx, u.ExternalID)
		if err == nil {
			return domain.User{}, storage.ErrConflict
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return domain.User{}, err
		}
	}
	if u.Timezone == "" {
		u.Timezone = "UTC"
	}
	u.ID = uuid.NewString()
	u.CreatedAt = s.now().UTC()
	e := userEntity{ExternalID: u.ExternalID, DisplayName: u.DisplayName, Timezone: u.Timezone, CreatedAt: u.CreatedAt}
	if _, err := s.ds.Put(ctx, ownerKey(u.ID), &e); err != nil {
		return domain.User{}, classify("create user", err)
	}
	return u, nil
}

// List returns the owner's tasks oldest first. Ordering an ancestor query by a
// property needs a composite index, so the rows are sorted here instead.
func (s *Store) List(ctx context.Context, ownerID string) ([]domain.Task, error) {
	q := datastore.NewQuery(KindTask).Ancestor(ownerKey(ownerID))
	var records []storage.Record
	keys, err := s.ds.GetAll(ctx, q, &records)
	if err != nil {
		return nil, classify("list tasks", err)
	}
	out := make([]domain.Task, 0, len(records))
	for i, key := range keys {
		r := records[i]
		r.ID = key.Name
		out = append(out, storage.FromRecord(r.UTC()))
	}
	slices.SortStableFunc(out, compareCreated)
	return out, nil
}

func compareCreated(a, b domain.Task) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

func (s *Store) Create(ctx context.Context, ownerID string, t domain.Task) (domain.Task, error) {
	if _, err := s.GetUser(ctx, ownerID); err != nil {
		return domain.Task{}, err
	}
	now := s.now().UTC()
	t.ID = uuid.NewString()
	t.OwnerID = ownerID
	t.CreatedAt = now
	t.UpdatedAt = now
	r := storage.ToRecord(t).UTC()
	if _, err := s.ds.Put(ctx, taskKey(ownerID, r.ID), &r); err != nil {
		return domain.Task{}, classify("create task", err)
	}
	return storage.FromRecord(r), nil
}

func (s *Store) Update(ctx context.Context, ownerID, id string, patch domain.TaskPatch) (domain.Task, error) {
	key := taskKey(ownerID, id)
	var out storage.Record
	_, err := s.ds.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var cur storage.Record
		if err := tx.Get(key, &cur); err != nil {
			return err
		}
		cur.ID = id
		t := patch.Apply(storage.FromRecord(cur.UTC()))
		t.UpdatedAt = s.now().UTC()
		out = storage.ToRecord(t).UTC()
		_, err := tx.Put(key, &out)
		return err
	})
	if err != nil {
		return domain.Task{}, classify(fmt.Sprintf("update task %s", id), err)
	}
	return storage.FromRecord(out), nil
}

func (s *Store) Delete(ctx context.Context, ownerID, id string) error {
	key := taskKey(ownerID, id)
	_, err := s.ds.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var cur storage.Record
		if err := tx.Get(key, &cur); err != nil {
			return err
		}
		return tx.Delete(key)
	})
	if err != nil {
		return classify(fmt.Sprintf("delete task %s", id), err)
	}
	return nil
}
