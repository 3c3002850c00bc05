// Package board keeps a local mirror of the dashboard in sync with the API.
// Reads are served from the store; writes land locally first and are queued
// in an outbox until the server accepts them.
package board

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmcdole/perch/internal/domain"
)

const defaultTimeout = 15 * time.Second

// Service orchestrates API client + store operations.
type Service struct {
	client  domain.EntryRepository
	store   domain.EntryStore
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time

	// syncMu serialises outbox flushes and refreshes
	syncMu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithTimeout bounds each scheduled refresh.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithClock overrides the time source used to stamp local writes.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new board service.
func NewService(client domain.EntryRepository, store domain.EntryStore, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		client:  client,
		store:   store,
		logger:  logger,
		timeout: defaultTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Entries returns the locally mirrored entries: pinned first, then most
// recently updated. ok is false when nothing has been cached yet.
func (s *Service) Entries(_ context.Context) ([]domain.Entry, bool) {
	entries, ok := s.store.GetEntries()
	if !ok {
		return nil, false
	}
	sortEntries(entries)
	return entries, true
}

// Refresh pushes queued writes, then re-fetches the board unless the local
// copy is already current. force skips the freshness check.
func (s *Service) Refresh(ctx context.Context, force bool) (domain.SyncResult, error) {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	pushed, err := s.flushLocked(ctx)
	if err != nil {
		s.logger.Warn("outbox flush failed", "error", err, "pushed", pushed)
		if errors.Is(err, domain.ErrServerOffline) || errors.Is(err, domain.ErrAuthFailed) {
			return domain.SyncResult{Pushed: pushed}, err
		}
	}

	// 1. Freshness check
	board, err := s.client.GetBoard(ctx)
	if err != nil {
		s.logger.Error("failed to fetch board", "error", err)
		return domain.SyncResult{Pushed: pushed}, err
	}
	if !force && s.store.IsFresh(board.UpdatedAt) {
		entries, _ := s.store.GetEntries()
		s.logger.Debug("cache fresh", "count", len(entries))
		return domain.SyncResult{FromCache: true, Count: len(entries), Pushed: pushed}, nil
	}

	// 2. Fetch
	s.logger.Debug("cache stale, fetching", "serverTS", board.UpdatedAt, "force", force)
	entries, err := s.client.ListEntries(ctx)
	if err != nil {
		s.logger.Error("failed to fetch entries", "error", err)
		return domain.SyncResult{Pushed: pushed}, err
	}

	// 3. Local writes the server has not seen yet win
	entries = overlayPending(entries, s.store.PendingOps())

	if err := s.store.SaveEntries(entries, board.UpdatedAt); err != nil {
		s.logger.Error("failed to save entries", "error", err)
	}
	s.logger.Debug("fetched entries", "count", len(entries))
	return domain.SyncResult{Count: len(entries), Pushed: pushed}, nil
}

// Save validates entry, writes it locally, queues it for the server and
// tries to push it right away. If the push fails the entry stays queued and
// is returned with Pending set; that is not an error.
func (s *Service) Save(ctx context.Context, entry domain.Entry) (domain.Entry, error) {
	entry.Title = strings.TrimSpace(entry.Title)
	if entry.Title == "" {
		return domain.Entry{}, fmt.Errorf("%w: title required", domain.ErrInvalidEntry)
	}
	if entry.Kind == "" {
		entry.Kind = domain.KindNote
	}
	if !entry.Kind.Valid() {
		return domain.Entry{}, fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidEntry, entry.Kind)
	}
	if entry.Kind == domain.KindLink && strings.TrimSpace(entry.URL) == "" {
		return domain.Entry{}, fmt.Errorf("%w: link needs a url", domain.ErrInvalidEntry)
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.UpdatedAt = s.now().Unix()
	entry.Pending = true

	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	if err := s.store.PutEntry(entry); err != nil {
		return domain.Entry{}, fmt.Errorf("save entry locally: %w", err)
	}
	queued := entry
	queued.Pending = false
	if err := s.store.QueueOp(domain.PendingOp{Kind: domain.OpPut, EntryID: entry.ID, Entry: &queued}); err != nil {
		return domain.Entry{}, fmt.Errorf("queue entry: %w", err)
	}
	s.logger.Info("entry saved", "id", entry.ID, "kind", entry.Kind)

	if _, err := s.flushLocked(ctx); err != nil {
		s.logger.Warn("entry left pending", "id", entry.ID, "error", err)
		return entry, nil
	}
	if stored, ok := s.find(entry.ID); ok {
		return stored, nil
	}
	return entry, nil
}

// Delete removes an entry locally and queues the removal for the server.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	if _, ok := s.find(id); !ok {
		return domain.ErrEntryNotFound
	}
	if err := s.store.DeleteEntry(id); err != nil {
		return fmt.Errorf("delete entry locally: %w", err)
	}
	if err := s.store.QueueOp(domain.PendingOp{Kind: domain.OpDelete, EntryID: id}); err != nil {
		return fmt.Errorf("queue delete: %w", err)
	}
	s.logger.Info("entry deleted", "id", id)

	if _, err := s.flushLocked(ctx); err != nil {
		s.logger.Warn("delete left pending", "id", id, "error", err)
	}
	return nil
}

// ToggleDone flips the completion state of an entry.
func (s *Service) ToggleDone(ctx context.Context, id string) (domain.Entry, error) {
	entry, ok := s.find(id)
	if !ok {
		return domain.Entry{}, domain.ErrEntryNotFound
	}
	entry.Done = !entry.Done
	return s.Save(ctx, entry)
}

// Flush pushes queued writes in order and stops at the first failure.
// It returns how many were pushed.
func (s *Service) Flush(ctx context.Context) (int, error) {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()
	return s.flushLocked(ctx)
}

// Pending returns the number of writes waiting for the server.
func (s *Service) Pending() int {
	return len(s.store.PendingOps())
}

// InvalidateAll drops the mirror so the next refresh refetches. Queued
// writes are kept.
func (s *Service) InvalidateAll() {
	s.store.InvalidateAll()
	s.logger.Info("invalidated all cache")
}

// Run performs a non-forced refresh bounded by the configured timeout.
func (s *Service) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	_, err := s.Refresh(ctx, false)
	return err
}

// --- Private helpers ---

func (s *Service) flushLocked(ctx context.Context) (int, error) {
	ops := s.store.PendingOps()
	if len(ops) == 0 {
		return 0, nil
	}

	remaining := make(map[string]int, len(ops))
	for _, op := range ops {
		remaining[op.EntryID]++
	}

	pushed := 0
	for _, op := range ops {
		if err := s.push(ctx, op, remaining[op.EntryID] > 1); err != nil {
			return pushed, fmt.Errorf("push %s %s: %w", op.Kind, op.EntryID, err)
		}
		if err := s.store.AckOp(op.Seq); err != nil {
			s.logger.Error("failed to ack op", "seq", op.Seq, "error", err)
			return pushed, err
		}
		remaining[op.EntryID]--
		pushed++
	}
	s.logger.Debug("outbox flushed", "pushed", pushed)
	return pushed, nil
}

// push sends one op. stillPending is true when a later op touches the same
// entry, so the mirror keeps it flagged.
func (s *Service) push(ctx context.Context, op domain.PendingOp, stillPending bool) error {
	switch op.Kind {
	case domain.OpPut:
		if op.Entry == nil {
			return nil
		}
		saved, err := s.client.PutEntry(ctx, *op.Entry)
		if err != nil {
			return err
		}
		if stillPending {
			return nil
		}
		if err := s.store.PutEntry(saved); err != nil {
			s.logger.Error("failed to save pushed entry", "id", saved.ID, "error", err)
		}
		return nil
	case domain.OpDelete:
		return s.client.DeleteEntry(ctx, op.EntryID)
	default:
		s.logger.Warn("dropping unknown op", "kind", op.Kind, "seq", op.Seq)
		return nil
	}
}

func (s *Service) find(id string) (domain.Entry, bool) {
	entries, _ := s.store.GetEntries()
	for _, e := range entries {
		if e.ID == id {
			return e, true
		}
	}
	return domain.Entry{}, false
}

func overlayPending(entries []domain.Entry, ops []domain.PendingOp) []domain.Entry {
	for _, op := range ops {
		switch op.Kind {
		case domain.OpPut:
			if op.Entry == nil {
				continue
			}
			local := *op.Entry
			local.Pending = true
			idx := slices.IndexFunc(entries, func(e domain.Entry) bool { return e.ID == local.ID })
			if idx >= 0 {
				entries[idx] = local
			} else {
				entries = append(entries, local)
			}
		case domain.OpDelete:
			entries = slices.DeleteFunc(entries, func(e domain.Entry) bool { return e.ID == op.EntryID })
		}
	}
	return entries
}

func sortEntries(entries []domain.Entry) {
	slices.SortStableFunc(entries, func(a, b domain.Entry) int {
		if a.Pinned != b.Pinned {
			if a.Pinned {
				return -1
			}
			return 1
		}
		if c := cmp.Compare(b.UpdatedAt, a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
