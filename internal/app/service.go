// Package service owns the recognition core and its persisted state and
// exposes the operations the HTTP API needs.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/visage/internal/adapters/mq/queue"
	"github.com/okian/visage/internal/adapters/mq/worker"
	"github.com/okian/visage/internal/adapters/repository"
	"github.com/okian/visage/internal/adapters/storage"
	"github.com/okian/visage/internal/domain/dedupe"
	"github.com/okian/visage/internal/domain/ledger"
	"github.com/okian/visage/internal/domain/model"
	"github.com/okian/visage/internal/domain/session"
	"github.com/okian/visage/internal/domain/threshold"
	"github.com/okian/visage/pkg/errs"
	"github.com/okian/visage/pkg/logger"
	"github.com/okian/visage/pkg/metrics"
)

// Service implements the API dependencies for the recognition core.
type Service struct {
	mu sync.RWMutex // lifecycle: started, queue, worker, cancel

	// core serializes every recognition decision, feedback and mutation of
	// persisted state, so the core runs one step at a time.
	core sync.Mutex

	backend storage.Backend
	store   *repository.Descriptors
	table   *threshold.Table
	ledger  *ledger.Ledger
	ctrl    *session.Controller
	deduper dedupe.Deduper
	queue   *queue.InMemoryQueue
	worker  *worker.FrameWorker

	// Configuration
	seed            model.Settings
	descriptorDim   int
	queueSize       int
	dedupeSize      int
	historyLimit    int
	maxHistoryLimit int

	// Optional in-process capture loop
	capture         bool
	frameSource     session.FrameSource
	faceModel       session.FaceModel
	captureInterval time.Duration

	// State
	started bool
	cancel  context.CancelFunc
	now     func() time.Time

	logger logger.Logger
}

// New constructs a Service. State is read from the backend by Start.
func New(opts ...Option) *Service {
	s := &Service{
		backend:         storage.NewMemory(),
		seed:            model.DefaultSettings(),
		descriptorDim:   128,
		queueSize:       64,
		dedupeSize:      4096,
		historyLimit:    10,
		maxHistoryLimit: 500,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.store = repository.NewDescriptors(s.backend,
		repository.WithDimension(s.descriptorDim),
		repository.WithClock(s.now),
		repository.WithLogger(s.logger.Named("descriptors")),
	)
	s.table = threshold.New(s.seed.ConfidenceThreshold)
	s.ledger = ledger.New(ledger.WithClock(s.now))
	s.ctrl = session.NewController(s.store, s.table, s.ledger,
		session.WithSettings(s.seed),
		session.WithDimension(s.descriptorDim),
		session.WithClock(s.now),
		session.WithLogger(s.logger.Named("session")),
		session.WithTransitionHook(func(from, to session.State) {
			if from == session.AwaitingFeedback && to == session.Detected {
				metrics.RecordResultSuperseded()
			}
		}),
	)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	return s
}

// Start loads persisted state and starts the frame worker.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting recognition service...")

	if err := s.load(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.worker = worker.NewFrameWorker(s.queue, worker.ProcessorFunc(s.Process),
		worker.WithLogger(s.logger.Named("frame-worker")),
	)
	s.worker.Start(runCtx)

	if s.capture {
		runner := session.NewRunner(s.frameSource, s.faceModel, s,
			session.WithInterval(s.captureInterval),
			session.WithRunnerLogger(s.logger.Named("capture")),
		)
		go func() { _ = runner.Run(runCtx) }()
	}

	s.started = true
	s.logger.Info(ctx, "recognition service started",
		logger.Int("people", s.store.Count(ctx)),
		logger.Int("feedback", s.ledger.Len()),
		logger.Int("queueSize", s.queueSize),
		logger.Bool("capture", s.capture),
	)
	return nil
}

// Stop drains the worker and closes the queue. The backend stays open and
// belongs to the caller, so a stopped Service can be started again.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping recognition service...")

	_ = s.queue.Close()
	err := s.worker.Shutdown(ctx)
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "recognition service stopped")
	return err
}

// load restores every persisted record. Missing or corrupt records fall
// back to empty or default state.
func (s *Service) load(ctx context.Context) error {
	s.core.Lock()
	defer s.core.Unlock()

	if err := s.store.Load(ctx); err != nil {
		return err
	}

	var records []model.Feedback
	if _, err := s.loadRecord(ctx, storage.KeyFeedback, &records); err != nil {
		return err
	}
	var stats model.Stats
	if _, err := s.loadRecord(ctx, storage.KeyStats, &stats); err != nil {
		return err
	}
	s.ledger.Restore(records, stats.LastUpdated)
	if stats.TotalFeedback != len(records) {
		s.logger.Warn(ctx, "learning stats disagree with feedback log, recomputed",
			logger.Int("stored_total", stats.TotalFeedback),
			logger.Int("records", len(records)),
		)
	}
	s.table.Restore(stats.AdaptiveThresholds)

	settings := s.seed
	var stored model.Settings
	found, err := s.loadRecord(ctx, storage.KeySettings, &stored)
	if err != nil {
		return err
	}
	if found {
		if validThreshold(stored.ConfidenceThreshold) {
			settings = stored
		} else {
			s.logger.Warn(ctx, "stored settings invalid, using defaults",
				logger.Float64("confidence_threshold", stored.ConfidenceThreshold))
		}
	}
	s.ctrl.SetSettings(settings)

	s.publishLearning()
	return nil
}

// loadRecord decodes key into v and reports whether a usable record was
// there. Missing and corrupt records leave v zero.
func (s *Service) loadRecord(ctx context.Context, key string, v any) (bool, error) {
	err := storage.LoadJSON(ctx, s.backend, key, v)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, storage.ErrNotFound):
		return false, nil
	case errs.IsConfiguration(err):
		s.logger.Warn(ctx, "persisted record is corrupt, starting empty",
			logger.String("key", key), logger.Error(err))
		return false, nil
	default:
		return false, fmt.Errorf("load %s: %w", key, err)
	}
}

// persistLearning writes the feedback log and the statistics. Failures are
// logged; in-memory state stays authoritative and the next save rewrites it.
func (s *Service) persistLearning(ctx context.Context) {
	if err := storage.SaveJSON(ctx, s.backend, storage.KeyFeedback, s.ledger.All()); err != nil {
		s.logger.Error(ctx, "failed to save feedback log", logger.Error(err))
	}
	if err := storage.SaveJSON(ctx, s.backend, storage.KeyStats, s.statsLocked()); err != nil {
		s.logger.Error(ctx, "failed to save learning stats", logger.Error(err))
	}
}

func (s *Service) statsLocked() model.Stats {
	st := s.ledger.Stats()
	st.AdaptiveThresholds = s.table.Snapshot()
	return st
}

func (s *Service) publishLearning() {
	st := s.ledger.Stats()
	if st.HasAccuracy() {
		metrics.UpdateLearningAccuracy(st.Accuracy)
	} else {
		metrics.UpdateLearningAccuracy(0)
	}
	metrics.ResetAdaptiveThresholds()
	for name, v := range s.table.Snapshot() {
		metrics.UpdateAdaptiveThreshold(name, v)
	}
}

// SubmitFrame queues a frame for recognition. A frame id seen recently is
// reported as duplicate and not queued again. A full queue returns
// queue.ErrFull and the id is forgotten so the frame can be retried.
func (s *Service) SubmitFrame(ctx context.Context, f model.Frame) (id string, duplicate bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return "", false, errs.Wrap("service.submit", errs.ErrResourceUnavailable, ErrNotStarted)
	}

	if err := s.checkFrame(f); err != nil {
		return f.ID, false, err
	}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.ReceivedAt.IsZero() {
		f.ReceivedAt = s.now()
	}
	if s.deduper.SeenAndRecord(ctx, f.ID) {
		metrics.RecordFrameDuplicate()
		s.logger.Debug(ctx, "duplicate frame skipped", logger.String("frame_id", f.ID))
		return f.ID, true, nil
	}

	if err := s.queue.Enqueue(ctx, f); err != nil {
		s.deduper.Unrecord(ctx, f.ID)
		return f.ID, false, fmt.Errorf("enqueue frame %s: %w", f.ID, err)
	}
	return f.ID, false, nil
}

// checkFrame rejects a frame whose first descriptor cannot be matched
// against the store, before it takes a queue slot.
func (s *Service) checkFrame(f model.Frame) error {
	if len(f.Detections) == 0 {
		return nil
	}
	if n := len(f.Detections[0].Descriptor); s.descriptorDim > 0 && n > 0 && n != s.descriptorDim {
		return errs.Wrap("service.submit", errs.ErrConfiguration,
			fmt.Errorf("%w: got %d, want %d", session.ErrDimensionMismatch, n, s.descriptorDim))
	}
	return nil
}

// Process is the frame worker's entry point.
func (s *Service) Process(ctx context.Context, f model.Frame) error {
	_, _, err := s.Tick(ctx, f)
	return err
}

// Tick runs one recognition step synchronously.
func (s *Service) Tick(ctx context.Context, f model.Frame) (model.Result, session.State, error) {
	s.core.Lock()
	defer s.core.Unlock()

	start := time.Now()
	res, state, err := s.ctrl.Tick(ctx, f)
	metrics.RecordTickLatency(float64(time.Since(start).Microseconds()) / 1000)
	metrics.RecordFrameProcessed()

	switch {
	case err != nil:
		metrics.RecordErrorByComponent("session", "tick")
	case len(f.Detections) == 0:
		metrics.RecordFrameEmpty()
	case res.Known():
		metrics.RecordRecognition("known", res.Confidence)
	default:
		metrics.RecordRecognition("unknown", res.Confidence)
	}
	return res, state, err
}

// SetUnavailable records a face model or frame source failure. A nil err
// clears it.
func (s *Service) SetUnavailable(err error) {
	s.core.Lock()
	defer s.core.Unlock()

	was := s.ctrl.Unavailable() != nil
	s.ctrl.SetUnavailable(err)
	metrics.SetResourceUnavailable(err != nil)
	switch {
	case err != nil && !was:
		s.logger.Error(context.Background(), "recognition unavailable", logger.Error(err))
	case err == nil && was:
		s.logger.Info(context.Background(), "recognition available again")
	}
}

// Current returns the session state and the open result, if any.
func (s *Service) Current(_ context.Context) model.SessionSnapshot {
	s.core.Lock()
	defer s.core.Unlock()

	res, state, ok := s.ctrl.Current()
	snap := model.SessionSnapshot{State: state.String(), Settings: s.ctrl.Settings()}
	if ok {
		snap.Result = &res
	}
	if err := s.ctrl.Unavailable(); err != nil {
		snap.Unavailable = err.Error()
	}
	return snap
}

// Feedback confirms or corrects the open result. actual is only used for
// corrections.
func (s *Service) Feedback(ctx context.Context, typ model.FeedbackType, actual string) (session.Outcome, error) {
	s.core.Lock()
	defer s.core.Unlock()

	var (
		out session.Outcome
		err error
	)
	switch typ {
	case model.Confirmed:
		out, err = s.ctrl.Confirm(ctx)
	case model.Corrected:
		out, err = s.ctrl.Correct(ctx, actual)
	default:
		return session.Outcome{}, errs.Input("service.feedback", fmt.Sprintf("unknown feedback type %q", typ))
	}
	if err != nil {
		return session.Outcome{}, err
	}

	metrics.RecordFeedback(string(typ))
	if out.Enrolled != nil {
		metrics.RecordEnrollment("correction")
	}
	s.persistLearning(ctx)
	s.publishLearning()
	return out, nil
}

// EnrollCurrent enrolls the face currently in view under name.
func (s *Service) EnrollCurrent(ctx context.Context, name string) (model.Person, error) {
	s.core.Lock()
	defer s.core.Unlock()

	p, err := s.ctrl.EnrollCurrent(ctx, name)
	if err != nil {
		return model.Person{}, err
	}
	metrics.RecordEnrollment("current")
	return p, nil
}

// EnrollDescriptor enrolls an externally computed descriptor under name.
func (s *Service) EnrollDescriptor(ctx context.Context, name string, d model.Descriptor) (model.Person, error) {
	s.core.Lock()
	defer s.core.Unlock()

	p, err := s.store.Enroll(ctx, name, d)
	if err != nil {
		return model.Person{}, err
	}
	metrics.RecordEnrollment("descriptor")
	return p, nil
}

// People lists enrolled people in insertion order.
func (s *Service) People(ctx context.Context) []model.Person {
	return s.store.All(ctx)
}

// History returns recent feedback, most recent first. limit <= 0 uses the
// default page; larger values are capped.
func (s *Service) History(_ context.Context, limit int) []model.Feedback {
	switch {
	case limit <= 0:
		limit = s.historyLimit
	case limit > s.maxHistoryLimit:
		limit = s.maxHistoryLimit
	}
	s.core.Lock()
	defer s.core.Unlock()
	return s.ledger.History(limit)
}

// HistoryLimits returns the default and maximum feedback page sizes.
func (s *Service) HistoryLimits() (def, maxLimit int) {
	return s.historyLimit, s.maxHistoryLimit
}

// Stats returns the learning statistics with the accuracy curve.
func (s *Service) Stats(ctx context.Context) model.LearningReport {
	s.core.Lock()
	defer s.core.Unlock()
	return model.LearningReport{
		Stats:           s.statsLocked(),
		AccuracyCurve:   s.ledger.AccuracyCurve(),
		GlobalThreshold: s.table.Default(),
		EnrolledPeople:  s.store.Count(ctx),
	}
}

// Settings returns the operator settings.
func (s *Service) Settings(_ context.Context) model.Settings {
	s.core.Lock()
	defer s.core.Unlock()
	return s.ctrl.Settings()
}

// UpdateSettings validates, applies and persists new operator settings.
func (s *Service) UpdateSettings(ctx context.Context, settings model.Settings) (model.Settings, error) {
	if !validThreshold(settings.ConfidenceThreshold) {
		return model.Settings{}, errs.Input("service.settings", "confidenceThreshold must be within [0,1]")
	}
	s.core.Lock()
	defer s.core.Unlock()

	s.ctrl.SetSettings(settings)
	if err := storage.SaveJSON(ctx, s.backend, storage.KeySettings, settings); err != nil {
		s.logger.Error(ctx, "failed to save settings", logger.Error(err))
	}
	s.logger.Info(ctx, "settings updated",
		logger.Float64("confidence_threshold", settings.ConfidenceThreshold),
		logger.Bool("show_expressions", settings.ShowExpressions),
		logger.Bool("adaptive_learning", settings.AdaptiveLearning),
	)
	return settings, nil
}

// Export returns every persisted structure plus the export time.
func (s *Service) Export(ctx context.Context) model.Export {
	s.core.Lock()
	defer s.core.Unlock()
	return model.Export{
		FeedbackDatabase: s.ledger.All(),
		LearningStats:    s.statsLocked(),
		FaceDatabase:     s.store.All(ctx),
		ExportDate:       s.now(),
	}
}

// ResetLearning clears the feedback log, statistics and adaptive thresholds.
func (s *Service) ResetLearning(ctx context.Context) error {
	s.core.Lock()
	defer s.core.Unlock()
	return s.resetLearningLocked(ctx)
}

func (s *Service) resetLearningLocked(ctx context.Context) error {
	s.ledger.Reset()
	s.table.Reset()
	var err error
	if serr := storage.SaveJSON(ctx, s.backend, storage.KeyFeedback, []model.Feedback{}); serr != nil {
		err = errors.Join(err, serr)
	}
	if serr := storage.SaveJSON(ctx, s.backend, storage.KeyStats, s.statsLocked()); serr != nil {
		err = errors.Join(err, serr)
	}
	s.publishLearning()
	s.logger.Info(ctx, "learning data reset")
	return err
}

// ResetAll clears learning data and every enrolled person.
func (s *Service) ResetAll(ctx context.Context) error {
	s.core.Lock()
	defer s.core.Unlock()

	err := s.resetLearningLocked(ctx)
	if cerr := s.store.Clear(ctx); cerr != nil {
		err = errors.Join(err, cerr)
	}
	s.deduper.Reset()
	s.logger.Info(ctx, "all data reset")
	return err
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":    s.started,
		"queueSize":  s.queueSize,
		"dedupeSize": s.dedupeSize,
		"people":     s.store.Count(ctx),
		"goroutines": runtime.NumGoroutine(),
	}
	if s.started {
		stats["queueLength"] = s.queue.Len(ctx)
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	metrics.UpdateSystemMemoryUsage(mem.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	return stats
}

func validThreshold(v float64) bool {
	return v >= 0 && v <= 1
}
