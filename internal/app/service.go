// Package service provides the core duel service that implements the
// dependencies required by the HTTP API: pair selection, comparison
// submission with Elo updates, and the best-effort post-commit pipeline.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	taskqueue "github.com/vitislabs/decant/internal/adapters/mq/queue"
	workerpool "github.com/vitislabs/decant/internal/adapters/mq/worker"
	"github.com/vitislabs/decant/internal/adapters/repository"
	"github.com/vitislabs/decant/internal/domain/dedupe"
	"github.com/vitislabs/decant/internal/domain/model"
	"github.com/vitislabs/decant/internal/domain/rank"
	"github.com/vitislabs/decant/internal/domain/rating"
	"github.com/vitislabs/decant/pkg/logger"
	"github.com/vitislabs/decant/pkg/metrics"
)

// Service orchestrates the duel flow over the persistence store.
type Service struct {
	mu sync.RWMutex

	// Core components
	store        repository.Store
	deduper      dedupe.Deduper
	taskQueue    taskqueue.Queue
	materializer *rank.Materializer
	workerPool   *workerpool.Pool

	// Configuration
	workerCount int
	queueSize   int
	dedupeSize  int

	// State
	started bool

	// Shared infrastructure
	logger logger.Logger
	now    func() time.Time
	newID  func() string
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the persistence store. Defaults to an in-memory store,
// which is what tests and the "memory" storage mode use.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithWorkerCount sets the number of best-effort workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the best-effort task queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the comparison-id dedupe cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source. Tests use a fixed clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides the id source. Tests use a deterministic one.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: 4,
		queueSize:   10_000,
		dedupeSize:  50_000,
		now:         time.Now,
		newID:       uuid.NewString,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("duel")
	}

	if s.store == nil {
		s.store = repository.NewMemStore()
		s.logger.Info(ctx, "using in-memory store")
	}

	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.taskQueue = taskqueue.NewInMemoryQueue(
		taskqueue.WithCapacity(s.queueSize),
	)
	s.materializer = rank.New(s.store,
		rank.WithLogger(s.logger.Named("rank")),
		rank.WithClock(s.now),
	)

	s.workerPool = workerpool.NewPool(s.workerCount, s.taskQueue, s.materializer, s.store)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "duel service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping duel service...")

	if q, ok := s.taskQueue.(*taskqueue.InMemoryQueue); ok {
		_ = q.Close()
	}
	if s.workerPool != nil {
		s.workerPool.Stop()
	}

	s.started = false
	s.logger.Info(ctx, "duel service stopped")
}

// NextPair returns the next duel prompt for a user.
// Returns ErrInsufficientCandidates when the pool holds fewer than two wines.
func (s *Service) NextPair(ctx context.Context, userID string) (model.Pair, error) {
	pair, ok, err := s.store.NextPair(ctx, userID)
	if err != nil {
		metrics.RecordErrorByComponent("duel", "pair_query")
		return model.Pair{}, fmt.Errorf("fetching next pair: %w", err)
	}
	if !ok {
		metrics.RecordInsufficientPair()
		return model.Pair{}, ErrInsufficientCandidates
	}

	metrics.RecordPairServed()
	return pair, nil
}

// SubmitComparison runs the duel outcome through the full pipeline: log
// append, Elo update, rating upserts, then the best-effort reposition and
// activity steps. The returned duplicate flag marks a replayed comparison id
// that was acknowledged without re-processing.
//
// Once the comparison append has been issued the operation runs to
// completion; it is not cancellable mid-way because the log entry is already
// externally visible.
func (s *Service) SubmitComparison(ctx context.Context, c model.Comparison) (duplicate bool, err error) {
	// Contract checks before any I/O.
	if c.UserID == "" || c.WineAID == "" || c.WineBID == "" {
		return false, ErrInvalidSubmission
	}
	if c.WineAID == c.WineBID {
		return false, fmt.Errorf("%w: wine %s cannot duel itself", ErrInvalidSubmission, c.WineAID)
	}
	if c.WinnerID != c.WineAID && c.WinnerID != c.WineBID {
		metrics.RecordDuelRejected()
		return false, fmt.Errorf("%w: winner %s not in (%s, %s)", ErrInvalidWinner, c.WinnerID, c.WineAID, c.WineBID)
	}

	if c.ID == "" {
		c.ID = s.newID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}

	if s.deduper.SeenAndRecord(ctx, c.ID) {
		metrics.RecordDuelDuplicate()
		s.logger.Debug(ctx, "duplicate comparison, skipping",
			logger.String("comparisonID", c.ID),
			logger.String("userID", c.UserID),
		)
		return true, nil
	}

	if err := s.processComparison(ctx, c); err != nil {
		// The submission did not commit; allow the client to retry with the
		// same comparison id.
		s.deduper.Unrecord(ctx, c.ID)
		return false, err
	}

	return false, nil
}

// processComparison performs the required persistence steps and enqueues the
// best-effort tail.
func (s *Service) processComparison(ctx context.Context, c model.Comparison) error {
	// Step 1: append the immutable comparison record.
	if err := s.store.AppendComparison(ctx, c); err != nil {
		metrics.RecordErrorByComponent("duel", "comparison_append")
		return fmt.Errorf("appending comparison %s: %w", c.ID, err)
	}

	winnerID, loserID := c.WineAID, c.WineBID
	if c.WinnerID == c.WineBID {
		winnerID, loserID = c.WineBID, c.WineAID
	}

	// Step 2: read current scores, absent records default to 1500.
	winnerScore, err := s.currentScore(ctx, c.UserID, winnerID)
	if err != nil {
		return err
	}
	loserScore, err := s.currentScore(ctx, c.UserID, loserID)
	if err != nil {
		return err
	}

	// Step 3: pure Elo update.
	newWinner, newLoser := rating.Update(winnerScore, loserScore)

	// Step 4: persist both new scores. Positions are written as a placeholder
	// and fixed up by the reposition task.
	now := s.now()
	for _, r := range []model.Rating{
		{UserID: c.UserID, WineID: winnerID, EloScore: newWinner, UpdatedAt: now},
		{UserID: c.UserID, WineID: loserID, EloScore: newLoser, UpdatedAt: now},
	} {
		if err := s.store.UpsertRating(ctx, r); err != nil {
			metrics.RecordErrorByComponent("duel", "rating_write")
			return fmt.Errorf("writing rating for wine %s: %w", r.WineID, err)
		}
	}

	metrics.RecordDuelSubmitted()
	metrics.RecordEloSwing(newWinner - winnerScore)
	metrics.RecordEloSwing(newLoser - loserScore)

	// Steps 5 and 6: best-effort tail, detached from the submission outcome.
	s.enqueueTask(ctx, model.Task{Kind: model.TaskReposition, UserID: c.UserID})
	s.enqueueTask(ctx, model.Task{
		Kind:   model.TaskActivity,
		UserID: c.UserID,
		Activity: model.Activity{
			ID:           s.newID(),
			UserID:       c.UserID,
			Type:         model.ActivityDuelWin,
			WineID:       winnerID,
			TargetWineID: loserID,
			CreatedAt:    now,
		},
	})

	s.logger.Debug(ctx, "duel committed",
		logger.String("comparisonID", c.ID),
		logger.String("winner", winnerID),
		logger.Float64("winnerScore", newWinner),
		logger.Float64("loserScore", newLoser),
	)

	return nil
}

// currentScore reads the rating for a pair, defaulting absent records.
func (s *Service) currentScore(ctx context.Context, userID, wineID string) (float64, error) {
	score, ok, err := s.store.Rating(ctx, userID, wineID)
	if err != nil {
		metrics.RecordErrorByComponent("duel", "rating_read")
		return 0, fmt.Errorf("reading rating for wine %s: %w", wineID, err)
	}
	if !ok {
		return rating.DefaultScore, nil
	}
	return score, nil
}

// enqueueTask hands a task to the pipeline. A dropped task is logged and
// counted but never fails the submission.
func (s *Service) enqueueTask(ctx context.Context, t model.Task) {
	if !s.taskQueue.Enqueue(ctx, t) {
		metrics.RecordBestEffortFailure(t.Kind)
		s.logger.Warn(ctx, "best-effort task dropped",
			logger.String("kind", t.Kind),
			logger.String("userID", t.UserID),
		)
	}
}

// Rankings returns the user's ranked wines ordered by position.
func (s *Service) Rankings(ctx context.Context, userID string) ([]model.RankedWine, error) {
	rankings, err := s.store.ListRankings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing rankings: %w", err)
	}
	return rankings, nil
}

// Activity returns the user's most recent feed entries, newest first.
func (s *Service) Activity(ctx context.Context, userID string, limit int) ([]model.Activity, error) {
	entries, err := s.store.ListActivity(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing activity: %w", err)
	}
	return entries, nil
}

// AddWine upserts a catalog wine, assigning an id when absent.
func (s *Service) AddWine(ctx context.Context, w model.Wine) (model.Wine, error) {
	if w.ID == "" {
		w.ID = s.newID()
	}
	if err := s.store.UpsertWine(ctx, w); err != nil {
		return model.Wine{}, fmt.Errorf("upserting wine: %w", err)
	}
	return w, nil
}

// AddCellarItem links a wine into a user's cellar. Wines marked "had" join
// the duel candidate pool.
func (s *Service) AddCellarItem(ctx context.Context, userID, wineID, status string) (model.CellarItem, error) {
	item := model.CellarItem{
		ID:        s.newID(),
		UserID:    userID,
		WineID:    wineID,
		Status:    status,
		CreatedAt: s.now(),
	}
	if err := s.store.AddCellarItem(ctx, item); err != nil {
		return model.CellarItem{}, fmt.Errorf("adding cellar item: %w", err)
	}
	return item, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}

	if s.started {
		stats["queueLength"] = s.taskQueue.Len(context.Background())
		stats["dedupeEntries"] = s.deduper.Size()
	}

	return stats
}
