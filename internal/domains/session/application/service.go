package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/Apurer/agenda-client/internal/domains/session/domain"
	"github.com/Apurer/agenda-client/internal/domains/session/ports"
)

// Store owns the process-wide session. Storage, the outbound Authorization
// header and the in-memory value are only changed together under mu.
type Store struct {
	storage   ports.Storage
	exchanger ports.CredentialExchanger
	decoder   ports.TokenDecoder
	headers   ports.HeaderSink
	logger    *slog.Logger

	mu        sync.Mutex
	bound     bool
	session   domain.Session
	listeners []listener
	nextID    uint64
}

type listener struct {
	id uint64
	fn func(domain.Session)
}

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

func WithHeaderSink(headers ports.HeaderSink) Option {
	return func(s *Store) { s.headers = headers }
}

func NewStore(storage ports.Storage, exchanger ports.CredentialExchanger, decoder ports.TokenDecoder, opts ...Option) *Store {
	s := &Store{
		storage:   storage,
		exchanger: exchanger,
		decoder:   decoder,
		headers:   ports.NoopHeaderSink,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.headers == nil {
		s.headers = ports.NoopHeaderSink
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s
}

// Init hydrates the session from storage. Missing or malformed data yields a
// signed-out session; only storage I/O failures are returned.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bound {
		return nil
	}

	token, hasToken, err := s.storage.Get(ctx, ports.TokenKey)
	if err != nil {
		return fmt.Errorf("load session token: %w", err)
	}
	rawUser, hasUser, err := s.storage.Get(ctx, ports.UserKey)
	if err != nil {
		return fmt.Errorf("load session user: %w", err)
	}

	s.session = domain.Session{}
	s.bound = true

	if !hasToken && !hasUser {
		s.headers.ClearAuthorization()
		return nil
	}
	if hasToken && hasUser {
		var profile domain.UserProfile
		if err := json.Unmarshal([]byte(rawUser), &profile); err == nil {
			if restored, err := domain.NewSession(token, &profile); err == nil {
				s.session = restored
				s.headers.SetAuthorization(bearer(token))
				return nil
			}
		}
	}

	s.logger.LogAttrs(ctx, slog.LevelWarn, "discarding incomplete persisted session",
		slog.Bool("token_present", hasToken), slog.Bool("user_present", hasUser))
	s.headers.ClearAuthorization()
	if err := s.clearStorage(ctx); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "failed to clear persisted session", slog.String("error", err.Error()))
	}
	return nil
}

// Teardown unbinds the store; later calls fail with ErrNotInitialized.
func (s *Store) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bound = false
	s.session = domain.Session{}
	s.listeners = nil
}

// SignIn exchanges the credentials and, on success, persists and publishes the
// new session. The context only bounds the network exchange: once tokens are
// received the commit always completes.
func (s *Store) SignIn(ctx context.Context, creds ports.Credentials) (domain.Session, error) {
	if err := s.checkBound(); err != nil {
		return domain.Session{}, err
	}

	pair, err := s.exchanger.Exchange(ctx, creds)
	if err != nil {
		return domain.Session{}, exchangeFailure(err)
	}
	profile, err := s.decoder.Decode(pair.Access)
	if err != nil {
		return domain.Session{}, &SignInError{Reason: ReasonMalformedToken, Err: err}
	}
	next, err := domain.NewSession(pair.Access, &profile)
	if err != nil {
		return domain.Session{}, &SignInError{Reason: ReasonMalformedToken, Err: fmt.Errorf("%w: %w", ports.ErrMalformedToken, err)}
	}
	encoded, err := json.Marshal(profile)
	if err != nil {
		return domain.Session{}, &SignInError{Reason: ReasonMalformedToken, Err: err}
	}

	commitCtx := context.WithoutCancel(ctx)
	s.mu.Lock()
	if !s.bound {
		s.mu.Unlock()
		return domain.Session{}, ErrNotInitialized
	}
	if err := s.persist(commitCtx, next.Token, string(encoded)); err != nil {
		s.mu.Unlock()
		return domain.Session{}, &SignInError{Reason: ReasonStorage, Err: err}
	}
	s.headers.SetAuthorization(bearer(next.Token))
	s.session = next
	notify := s.snapshotLocked()
	s.mu.Unlock()

	notify()
	return next.Clone(), nil
}

// SignOut clears storage, header and memory. Storage failures are logged,
// never returned; the only error is ErrNotInitialized.
func (s *Store) SignOut(ctx context.Context) error {
	s.mu.Lock()
	if !s.bound {
		s.mu.Unlock()
		return ErrNotInitialized
	}
	if err := s.clearStorage(context.WithoutCancel(ctx)); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "failed to clear persisted session", slog.String("error", err.Error()))
	}
	s.headers.ClearAuthorization()
	s.session = domain.Session{}
	notify := s.snapshotLocked()
	s.mu.Unlock()

	notify()
	return nil
}

// UpdateUser replaces the profile of the active session and keeps the token.
// Calling it while signed out is a caller defect reported as a PreconditionError.
func (s *Store) UpdateUser(ctx context.Context, user domain.UserProfile) (domain.Session, error) {
	s.mu.Lock()
	if !s.bound {
		s.mu.Unlock()
		return domain.Session{}, ErrNotInitialized
	}
	if !s.session.Authenticated() {
		s.mu.Unlock()
		s.logger.LogAttrs(ctx, slog.LevelError, "UpdateUser called without an active session")
		return domain.Session{}, &PreconditionError{Op: "UpdateUser", Err: ErrNoActiveSession}
	}
	if err := user.Validate(); err != nil {
		s.mu.Unlock()
		return domain.Session{}, mapProfileError(err)
	}
	encoded, err := json.Marshal(user)
	if err != nil {
		s.mu.Unlock()
		return domain.Session{}, fmt.Errorf("encode user profile: %w", err)
	}
	if err := s.storage.Set(context.WithoutCancel(ctx), ports.UserKey, string(encoded)); err != nil {
		s.mu.Unlock()
		return domain.Session{}, fmt.Errorf("persist user profile: %w", err)
	}
	s.session = s.session.WithUser(user)
	updated := s.session.Clone()
	notify := s.snapshotLocked()
	s.mu.Unlock()

	notify()
	return updated, nil
}

// Current returns a copy of the latest session.
func (s *Store) Current() (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.bound {
		return domain.Session{}, ErrNotInitialized
	}
	return s.session.Clone(), nil
}

// Subscribe registers fn for session changes. Listeners run after each commit,
// outside the lock, in registration order.
func (s *Store) Subscribe(fn func(domain.Session)) (func(), error) {
	if fn == nil {
		return nil, errors.New("listener is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.bound {
		return nil, ErrNotInitialized
	}
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listener{id: id, fn: fn})
	return func() { s.unsubscribe(id) }, nil
}

func (s *Store) unsubscribe(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, l := range s.listeners {
		if l.id == id {
			s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
			return
		}
	}
}

func (s *Store) checkBound() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.bound {
		return ErrNotInitialized
	}
	return nil
}

// persist writes both keys; on a partial failure storage is restored to the
// current in-memory session.
func (s *Store) persist(ctx context.Context, token, user string) error {
	if err := s.storage.Set(ctx, ports.TokenKey, token); err != nil {
		s.restoreLocked(ctx)
		return fmt.Errorf("persist session token: %w", err)
	}
	if err := s.storage.Set(ctx, ports.UserKey, user); err != nil {
		s.restoreLocked(ctx)
		return fmt.Errorf("persist session user: %w", err)
	}
	return nil
}

func (s *Store) restoreLocked(ctx context.Context) {
	var err error
	if s.session.Authenticated() {
		encoded, encErr := json.Marshal(s.session.User)
		if encErr != nil {
			err = encErr
		} else {
			err = errors.Join(
				s.storage.Set(ctx, ports.TokenKey, s.session.Token),
				s.storage.Set(ctx, ports.UserKey, string(encoded)),
			)
		}
	} else {
		err = s.clearStorage(ctx)
	}
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "failed to restore persisted session", slog.String("error", err.Error()))
	}
}

func (s *Store) clearStorage(ctx context.Context) error {
	return errors.Join(
		s.storage.Delete(ctx, ports.TokenKey),
		s.storage.Delete(ctx, ports.UserKey),
	)
}

func (s *Store) snapshotLocked() func() {
	current := s.session.Clone()
	fns := make([]func(domain.Session), 0, len(s.listeners))
	for _, l := range s.listeners {
		fns = append(fns, l.fn)
	}
	return func() {
		for _, fn := range fns {
			fn(current.Clone())
		}
	}
}

func bearer(token string) string {
	return "Bearer " + token
}

var _ ports.Service = (*Store)(nil)
