// Package engine composes the ranger-side fieldwork engine: credentials, the cached store client
// and the lifecycle, session and finding services.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rpggio/fieldwork/internal/auth"
	"github.com/rpggio/fieldwork/internal/cache"
	"github.com/rpggio/fieldwork/internal/domain/activity"
	"github.com/rpggio/fieldwork/internal/domain/finding"
	"github.com/rpggio/fieldwork/internal/domain/session"
	"github.com/rpggio/fieldwork/internal/httpstore"
	"github.com/rpggio/fieldwork/internal/store"
)

// ErrSignedOut is returned when an operation needs a ranger identity and none is known.
var ErrSignedOut = errors.New("no ranger is signed in")

// Options configures an Engine.
type Options struct {
	StoreURL     string
	StoreTimeout time.Duration
	RetryCount   int
	CacheBackend cache.Backend
	CacheTTL     time.Duration
	Logger       *slog.Logger
}

// Engine owns one ranger's client-side state.
type Engine struct {
	Activities *activity.Service
	Sessions   *session.Service
	Findings   *finding.Service

	credentials *auth.Session
	remote      *httpstore.Client
	cache       *cache.Cache
	logger      *slog.Logger

	mu        sync.Mutex
	listeners []func()
}

// New builds an engine. Nobody is signed in until SignIn succeeds.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	backend := opts.CacheBackend
	if backend == nil {
		backend = cache.NewMemoryBackend()
	}

	credentials := auth.NewSession()
	remote := httpstore.New(httpstore.Options{
		BaseURL:    opts.StoreURL,
		Timeout:    opts.StoreTimeout,
		RetryCount: opts.RetryCount,
		Logger:     logger,
	}, credentials)
	c := cache.New(backend, cache.WithTTL(opts.CacheTTL), cache.WithLogger(logger))
	cached := store.NewCached(remote, c)

	sessions := session.NewService(cached, logger)
	e := &Engine{
		Activities:  activity.NewService(cached, sessions, logger),
		Sessions:    sessions,
		Findings:    finding.NewService(cached, logger),
		credentials: credentials,
		remote:      remote,
		cache:       c,
		logger:      logger,
	}
	remote.OnSessionExpired(e.expire)
	return e
}

// OnSessionExpired registers fn to run after the engine dropped its state because the store
// rejected the credentials.
func (e *Engine) OnSessionExpired(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// SessionExpired reports whether mutations are suppressed until the ranger signs in again.
func (e *Engine) SessionExpired() bool {
	return e.remote.SessionExpired()
}

// RangerID returns the signed-in ranger.
func (e *Engine) RangerID() string {
	return e.credentials.RangerID()
}

// SignIn installs a new bearer token, lifting any session-expired suppression, and resumes the
// ranger's in-progress field session if there is one.
func (e *Engine) SignIn(ctx context.Context, token string) (string, session.Buffer, bool, error) {
	previous := e.credentials.RangerID()
	rangerID, err := e.credentials.SignIn(token)
	if err != nil {
		return "", session.Buffer{}, false, fmt.Errorf("signing in: %w", err)
	}
	if previous != "" && previous != rangerID {
		e.Sessions.Clear()
		e.cache.Reset(ctx)
	}
	e.logger.Info("ranger signed in", "ranger_id", rangerID)

	buf, resumed, err := e.Resume(ctx)
	if err != nil {
		return rangerID, session.Buffer{}, false, err
	}
	return rangerID, buf, resumed, nil
}

// Resume runs the session resumption protocol for the signed-in ranger.
func (e *Engine) Resume(ctx context.Context) (session.Buffer, bool, error) {
	rangerID := e.credentials.RangerID()
	if rangerID == "" {
		return session.Buffer{}, false, ErrSignedOut
	}
	return e.Sessions.Resume(ctx, rangerID)
}

// SignOut forgets the credentials. Persisted items stay in the store; buffered evidence is lost.
func (e *Engine) SignOut(ctx context.Context) {
	e.credentials.SignOut()
	e.Sessions.Clear()
	e.cache.Reset(ctx)
}

func (e *Engine) expire() {
	e.Sessions.Clear()
	e.cache.Reset(context.Background())

	e.mu.Lock()
	listeners := append([]func(){}, e.listeners...)
	e.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}
