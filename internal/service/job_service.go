package service

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"smartparking/internal/db"
	"smartparking/internal/repository"
)

// cronLogger adapts zap to the cron.Logger interface.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}

// JobService runs the periodic expiry sweep and persists engine snapshots.
type JobService struct {
	Engine *ReservationService
	Store  repository.Store
	cron   *cron.Cron
	logger *zap.Logger
}

func NewJobService(engine *ReservationService, store repository.Store, logger *zap.Logger) *JobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := cronLogger{l: logger.Sugar()}
	return &JobService{
		Engine: engine,
		Store:  store,
		logger: logger,
		cron:   cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
	}
}

// Start schedules the expiry sweep and, when snapshotSpec is not empty, the
// snapshot save.
func (s *JobService) Start(expirySpec, snapshotSpec string) error {
	if _, err := s.cron.AddFunc(expirySpec, func() {
		if _, err := s.RunExpiry(context.Background()); err != nil {
			s.logger.Error("cron_expiry_failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("cron job: invalid expiry schedule %q: %w", expirySpec, err)
	}
	if snapshotSpec != "" && s.Store != nil {
		if _, err := s.cron.AddFunc(snapshotSpec, func() {
			if err := s.SaveSnapshot(context.Background()); err != nil {
				s.logger.Error("cron_snapshot_failed", zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("cron job: invalid snapshot schedule %q: %w", snapshotSpec, err)
		}
	}
	s.cron.Start()
	s.logger.Info("cron_started", zap.String("expiry", expirySpec), zap.String("snapshot", snapshotSpec))
	return nil
}

// Stop halts the scheduler and waits for running jobs or ctx.
func (s *JobService) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunExpiry completes every booking whose end time has passed.
func (s *JobService) RunExpiry(ctx context.Context) (int, error) {
	n, err := s.Engine.ExpireBookings(ctx, s.Engine.Now())
	if err != nil {
		return n, fmt.Errorf("cron job: expiring bookings: %w", err)
	}
	if n > 0 {
		s.logger.Info("cron_expired_bookings", zap.Int("count", n))
	}
	return n, nil
}

func (s *JobService) SaveSnapshot(ctx context.Context) error {
	snap := s.Engine.Snapshot()
	if err := s.Store.SaveAll(ctx, snap); err != nil {
		return fmt.Errorf("cron job: saving snapshot: %w", err)
	}
	s.logger.Debug("snapshot_saved", zap.Int("lots", len(snap.Lots)), zap.Int("bookings", len(snap.Bookings)))
	return nil
}

// LoadSnapshot restores the engine from the store, seeding the default lots
// when the store holds none.
func (s *JobService) LoadSnapshot(ctx context.Context) error {
	snap, err := s.Store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}
	if len(snap.Lots) == 0 {
		snap.Lots = db.DefaultLots()
		s.logger.Info("seeding_default_lots", zap.Int("count", len(snap.Lots)))
	}
	if err := s.Engine.Restore(snap); err != nil {
		return err
	}
	return nil
}
