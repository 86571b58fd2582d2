package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arnab9957/CodeFuse/internal/models"
)

// ErrNotFound is returned when no snapshot exists for a room id. File
// mutations treat it as "ephemeral room": broadcast only, nothing durable.
var ErrNotFound = errors.New("session not found")

const keyPrefix = "session:"

// DefaultFile seeds every newly created session.
var DefaultFile = models.File{
	ID:       "default",
	Name:     "main.js",
	Language: "javascript",
	Content:  "// Write your code here",
}

// Store keeps session snapshots in Redis, one JSON value per room id.
type Store struct {
	rdb *redis.Client
	now func() time.Time
}

func NewStore(redisAddr string) *Store {
	return &Store{
		rdb: redis.NewClient(&redis.Options{Addr: redisAddr}),
		now: time.Now,
	}
}

func key(roomID string) string { return keyPrefix + roomID }

// Create writes a fresh snapshot for the room with the default file. An
// existing snapshot for the same room id is overwritten.
func (s *Store) Create(ctx context.Context, roomID, sessionName string) (*models.Session, error) {
	now := s.now().UTC()
	sess := &models.Session{
		RoomID:      roomID,
		SessionName: sessionName,
		Files:       []models.File{DefaultFile},
		CreatedAt:   now,
		LastUpdated: now,
	}
	if err := s.put(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Store) Get(ctx context.Context, roomID string) (*models.Session, error) {
	raw, err := s.rdb.Get(ctx, key(roomID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	var sess models.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

// List returns summaries of every stored session.
func (s *Store) List(ctx context.Context) ([]models.SessionSummary, error) {
	out := []models.SessionSummary{}
	iter := s.rdb.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		raw, err := s.rdb.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue // expired between scan and get
		}
		if err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		var sess models.Session
		if err := json.Unmarshal(raw, &sess); err != nil {
			continue
		}
		out = append(out, models.SessionSummary{
			RoomID:      sess.RoomID,
			SessionName: sess.SessionName,
			CreatedAt:   sess.CreatedAt,
			LastUpdated: sess.LastUpdated,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}

// UpdateFiles replaces the session's file list wholesale.
func (s *Store) UpdateFiles(ctx context.Context, roomID string, files []models.File) (*models.Session, error) {
	sess, err := s.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	sess.Files = files
	sess.LastUpdated = s.now().UTC()
	if err := s.put(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// ApplyChange overwrites the content of one file. Last write wins; a stale
// file id leaves the snapshot untouched without reporting an error.
func (s *Store) ApplyChange(ctx context.Context, roomID, fileID, content string) error {
	return s.mutate(ctx, roomID, func(sess *models.Session) bool {
		for i := range sess.Files {
			if sess.Files[i].ID == fileID {
				sess.Files[i].Content = content
				return true
			}
		}
		return false
	})
}

// ApplyCreate appends the file to the session's file list.
func (s *Store) ApplyCreate(ctx context.Context, roomID string, file models.File) error {
	return s.mutate(ctx, roomID, func(sess *models.Session) bool {
		sess.Files = append(sess.Files, file)
		return true
	})
}

// ApplyDelete removes the file with the given id, if present.
func (s *Store) ApplyDelete(ctx context.Context, roomID, fileID string) error {
	return s.mutate(ctx, roomID, func(sess *models.Session) bool {
		for i := range sess.Files {
			if sess.Files[i].ID == fileID {
				sess.Files = append(sess.Files[:i], sess.Files[i+1:]...)
				return true
			}
		}
		return false
	})
}

// ApplyRename overwrites the file's name only; language re-derivation is a
// client concern.
func (s *Store) ApplyRename(ctx context.Context, roomID, fileID, newName string) error {
	return s.mutate(ctx, roomID, func(sess *models.Session) bool {
		for i := range sess.Files {
			if sess.Files[i].ID == fileID {
				sess.Files[i].Name = newName
				return true
			}
		}
		return false
	})
}

// Ping verifies connectivity, for startup checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) mutate(ctx context.Context, roomID string, fn func(*models.Session) bool) error {
	sess, err := s.Get(ctx, roomID)
	if err != nil {
		return err
	}
	if !fn(sess) {
		return nil
	}
	sess.LastUpdated = s.now().UTC()
	return s.put(ctx, sess)
}

func (s *Store) put(ctx context.Context, sess *models.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.rdb.Set(ctx, key(sess.RoomID), raw, 0).Err(); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}
