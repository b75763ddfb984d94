// Package session owns the doctor's authenticated identity.
//
// Store keeps the token and profile in memory and mirrors them to the local
// metadata table under two keys that are always written and cleared
// together. On start Restore reconciles what is on disk: anything short of
// a token with a well-formed profile is wiped and reported as no session.
//
// A failed write switches the store to memory-only for the rest of the
// process; writes are never retried.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/dmitrijs2005/pvault/internal/client/models"
	"github.com/dmitrijs2005/pvault/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/pvault/internal/common"
	"github.com/dmitrijs2005/pvault/internal/dbx"
	"github.com/dmitrijs2005/pvault/internal/logging"
)

var ErrEmptyToken = errors.New("session token is empty")

// Database is what the store needs from *sql.DB.
type Database interface {
	dbx.DBTX
	dbx.Beginner
}

type Store struct {
	mu         sync.RWMutex
	db         Database
	log        logging.Logger
	current    *models.Session
	persistent bool
}

// New returns a store backed by db. A nil db gives a memory-only store.
func New(db Database, log logging.Logger) *Store {
	if log == nil {
		log = logging.Nop()
	}
	return &Store{
		db:         db,
		log:        log.With("component", "session"),
		persistent: db != nil,
	}
}

// Restore loads a previously persisted session. Corrupt or partial data is
// removed silently. It is meant to run once, before the first Current.
func (s *Store) Restore(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.persistent {
		return
	}
	repo := metadata.NewSQLiteRepository(s.db)

	token, hasToken, err := repo.Lookup(ctx, common.SessionTokenKey)
	if err != nil {
		s.degrade(ctx, "read session token", err)
		return
	}
	profile, hasProfile, err := repo.Lookup(ctx, common.SessionProfileKey)
	if err != nil {
		s.degrade(ctx, "read session profile", err)
		return
	}

	if !hasToken && !hasProfile {
		return
	}

	doctor, perr := decodeProfile(profile)
	if !hasToken || !hasProfile || strings.TrimSpace(string(token)) == "" || perr != nil {
		s.log.Warn(ctx, "discarding corrupt session",
			"has_token", hasToken, "has_profile", hasProfile, "error", perr)
		s.wipe(ctx)
		return
	}

	s.current = &models.Session{Token: string(token), Doctor: doctor}
	s.log.Debug(ctx, "session restored", "doctor_id", doctor.ID)
}

func decodeProfile(b []byte) (models.Doctor, error) {
	var d models.Doctor
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '{' {
		return d, errors.New("profile is not a JSON object")
	}
	if err := json.Unmarshal(b, &d); err != nil {
		return d, err
	}
	// every doctor call is keyed by the id
	if strings.TrimSpace(string(d.ID)) == "" {
		return d, errors.New("profile has no doctor id")
	}
	return d, nil
}

// Login replaces the current session. Only an empty token is rejected; the
// token itself is opaque.
func (s *Store) Login(ctx context.Context, token string, doctor models.Doctor) error {
	if token == "" {
		return ErrEmptyToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = &models.Session{Token: token, Doctor: doctor}

	if !s.persistent {
		return nil
	}

	profile, err := json.Marshal(doctor)
	if err != nil {
		s.degrade(ctx, "encode profile", err)
		return nil
	}
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, common.SessionTokenKey, []byte(token)); err != nil {
			return err
		}
		return repo.Set(ctx, common.SessionProfileKey, profile)
	})
	if err != nil {
		s.degrade(ctx, "persist session", err)
	}
	return nil
}

// Logout clears the session from memory and storage. It is idempotent and
// storage errors are only logged.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = nil
	if s.db != nil {
		s.wipe(ctx)
	}
}

// wipe deletes both keys; callers hold mu.
func (s *Store) wipe(ctx context.Context) {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return metadata.NewSQLiteRepository(tx).Delete(ctx, common.SessionTokenKey, common.SessionProfileKey)
	})
	if err != nil {
		s.log.Warn(ctx, "failed to clear stored session", "error", err)
	}
}

// degrade switches to memory-only; callers hold mu.
func (s *Store) degrade(ctx context.Context, what string, err error) {
	if s.persistent {
		s.log.Error(ctx, "session storage unavailable, continuing in memory", "op", what, "error", err)
	}
	s.persistent = false
}

// Current returns a copy of the session, ok is false when there is none.
func (s *Store) Current() (models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return models.Session{}, false
	}
	return *s.current, true
}

func (s *Store) IsAuthenticated() bool {
	_, ok := s.Current()
	return ok
}

// Token returns the bearer token or "".
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.Token
}

// Persistent reports whether changes still reach durable storage.
func (s *Store) Persistent() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persistent
}
