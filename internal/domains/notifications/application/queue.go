package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/Apurer/agenda-client/internal/domains/notifications/domain"
	"github.com/Apurer/agenda-client/internal/domains/notifications/ports"
)

// DefaultTTL is how long a toast stays visible unless dismissed.
const DefaultTTL = 3000 * time.Millisecond

const maxIDAttempts = 8

// Queue holds the visible toasts in insertion order and expires each one
// after its TTL. An id is never issued twice: random uuids are only checked
// against the visible toasts, while an injected generator has every id it
// produced remembered for the life of the queue.
type Queue struct {
	clock  clockwork.Clock
	ttl    time.Duration
	ids    ports.IDGenerator
	logger *slog.Logger

	mu        sync.Mutex
	closed    bool
	entries   []entry
	issued    map[string]struct{} // nil unless a custom generator is set
	listeners []listener
	nextSubID uint64
}

type entry struct {
	msg   domain.Message
	timer clockwork.Timer
}

type listener struct {
	id uint64
	fn func([]domain.Message)
}

type Option func(*Queue)

func WithClock(clock clockwork.Clock) Option {
	return func(q *Queue) { q.clock = clock }
}

// WithTTL overrides DefaultTTL. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(q *Queue) {
		if ttl > 0 {
			q.ttl = ttl
		}
	}
}

func WithIDGenerator(ids ports.IDGenerator) Option {
	return func(q *Queue) {
		if ids != nil {
			q.ids = ids
			q.issued = make(map[string]struct{})
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) { q.logger = logger }
}

func NewQueue(opts ...Option) *Queue {
	q := &Queue{
		clock:  clockwork.NewRealClock(),
		ttl:    DefaultTTL,
		ids:    ports.IDGeneratorFunc(uuid.NewString),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(q)
		}
	}
	if q.clock == nil {
		q.clock = clockwork.NewRealClock()
	}
	if q.logger == nil {
		q.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return q
}

// Add appends a toast and arms its expiry. It never fails; on a closed queue
// the message is returned but not shown.
func (q *Queue) Add(ctx context.Context, draft domain.Draft) domain.Message {
	q.mu.Lock()
	msg := domain.NewMessage(q.uniqueIDLocked(), draft)
	if q.closed {
		q.mu.Unlock()
		q.logger.LogAttrs(ctx, slog.LevelError, "toast added to a closed queue", slog.String("toast_id", msg.ID))
		return msg
	}
	id := msg.ID
	timer := q.clock.AfterFunc(q.ttl, func() { q.expire(id) })
	q.entries = append(q.entries, entry{msg: msg, timer: timer})
	notify := q.snapshotLocked()
	q.mu.Unlock()

	notify()
	return msg
}

// Remove drops the toast with id. It reports false when nothing was removed,
// which is the expected outcome when dismissal and expiry race.
func (q *Queue) Remove(ctx context.Context, id string) bool {
	removed, notify := q.remove(id)
	if removed {
		q.logger.LogAttrs(ctx, slog.LevelDebug, "toast dismissed", slog.String("toast_id", id))
		notify()
	}
	return removed
}

func (q *Queue) expire(id string) {
	removed, notify := q.remove(id)
	if removed {
		q.logger.LogAttrs(context.Background(), slog.LevelDebug, "toast expired", slog.String("toast_id", id))
		notify()
	}
}

func (q *Queue) remove(id string) (bool, func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, e := range q.entries {
		if e.msg.ID != id {
			continue
		}
		if e.timer != nil {
			e.timer.Stop()
		}
		q.entries = append(q.entries[:i:i], q.entries[i+1:]...)
		return true, q.snapshotLocked()
	}
	return false, nil
}

// Messages returns the visible toasts in insertion order.
func (q *Queue) Messages() []domain.Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.messagesLocked()
}

// Subscribe registers fn for queue changes and returns its cancel function.
func (q *Queue) Subscribe(fn func([]domain.Message)) func() {
	if fn == nil {
		return func() {}
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.nextSubID++
	id := q.nextSubID
	q.listeners = append(q.listeners, listener{id: id, fn: fn})
	return func() { q.unsubscribe(id) }
}

func (q *Queue) unsubscribe(id uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, l := range q.listeners {
		if l.id == id {
			q.listeners = append(q.listeners[:i:i], q.listeners[i+1:]...)
			return
		}
	}
}

// Close stops pending expiries and empties the queue. It is idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	for _, e := range q.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	q.entries = nil
	q.listeners = nil
}

// uniqueIDLocked returns an id that is neither visible nor, for a custom
// generator, issued before. It falls back to a suffixed id when the generator
// keeps colliding.
func (q *Queue) uniqueIDLocked() string {
	var id string
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id = q.ids.NewID()
		if id != "" && !q.takenLocked(id) {
			q.markIssuedLocked(id)
			return id
		}
	}
	if id == "" {
		id = "toast"
	}
	for n := len(q.issued) + len(q.entries); ; n++ {
		candidate := fmt.Sprintf("%s-%d", id, n)
		if !q.takenLocked(candidate) {
			q.markIssuedLocked(candidate)
			return candidate
		}
	}
}

func (q *Queue) takenLocked(id string) bool {
	if q.issued != nil {
		_, taken := q.issued[id]
		return taken
	}
	for _, e := range q.entries {
		if e.msg.ID == id {
			return true
		}
	}
	return false
}

func (q *Queue) markIssuedLocked(id string) {
	if q.issued != nil {
		q.issued[id] = struct{}{}
	}
}

func (q *Queue) messagesLocked() []domain.Message {
	out := make([]domain.Message, len(q.entries))
	for i, e := range q.entries {
		out[i] = e.msg
	}
	return out
}

func (q *Queue) snapshotLocked() func() {
	if len(q.listeners) == 0 {
		return func() {}
	}
	current := q.messagesLocked()
	fns := make([]func([]domain.Message), 0, len(q.listeners))
	for _, l := range q.listeners {
		fns = append(fns, l.fn)
	}
	return func() {
		for _, fn := range fns {
			snapshot := make([]domain.Message, len(current))
			copy(snapshot, current)
			fn(snapshot)
		}
	}
}

var _ ports.Service = (*Queue)(nil)
