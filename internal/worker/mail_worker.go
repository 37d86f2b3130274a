package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/appointment-service/internal/domain"
	"github.com/spec-kit/appointment-service/internal/mail"
	"github.com/spec-kit/appointment-service/internal/observability"
	"github.com/spec-kit/appointment-service/internal/repository"
)

// MailRenderer turns a queued mail into a deliverable message.
type MailRenderer interface {
	Render(m domain.Mail) (mail.Message, error)
}

// MailWorkerConfig bounds the outbox drain loop.
type MailWorkerConfig struct {
	PollInterval time.Duration
	SendTimeout  time.Duration
	MaxAttempts  int
	BatchSize    int32
}

// MailWorker delivers queued mail. Every entry gets at most MaxAttempts sends,
// each bounded by SendTimeout; exhausted entries are marked failed and never retried.
type MailWorker struct {
	outbox   repository.MailOutboxRepository
	renderer MailRenderer
	sender   mail.Sender
	metrics  *observability.Metrics
	logger   *zap.Logger
	cfg      MailWorkerConfig
}

// NewMailWorker constructs the worker, filling zero config values with defaults.
func NewMailWorker(outbox repository.MailOutboxRepository, renderer MailRenderer, sender mail.Sender, metrics *observability.Metrics, logger *zap.Logger, cfg MailWorkerConfig) *MailWorker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.MaxAttempts > 2 {
		cfg.MaxAttempts = 2
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 25
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MailWorker{
		outbox:   outbox,
		renderer: renderer,
		sender:   sender,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
	}
}

// Run polls the outbox until ctx is cancelled.
func (w *MailWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	w.logger.Info("mail worker started",
		zap.Duration("interval", w.cfg.PollInterval),
		zap.Int("max_attempts", w.cfg.MaxAttempts))
	for {
		if _, err := w.DrainOnce(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("mail outbox drain failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			w.logger.Info("mail worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// DrainOnce claims one batch and attempts each entry. It returns the number delivered.
// Once ctx ends no new send starts and the rest of the batch is released unsent.
func (w *MailWorker) DrainOnce(ctx context.Context) (int, error) {
	entries, err := w.outbox.Claim(ctx, w.cfg.BatchSize, w.cfg.MaxAttempts, w.lease())
	if err != nil {
		return 0, err
	}
	// A started send runs to its own timeout even after shutdown begins.
	detached := context.WithoutCancel(ctx)
	delivered := 0
	for i, entry := range entries {
		if ctx.Err() != nil {
			w.release(detached, entries[i:])
			break
		}
		if w.deliver(detached, entry) {
			delivered++
		}
	}
	return delivered, nil
}

func (w *MailWorker) release(ctx context.Context, entries []repository.OutboxEntry) {
	ctx, cancel := context.WithTimeout(ctx, w.cfg.SendTimeout)
	defer cancel()
	for _, entry := range entries {
		if err := w.outbox.Release(ctx, entry.ID); err != nil {
			w.logger.Error("release mail outbox entry failed",
				zap.String("outbox_id", entry.ID.String()),
				zap.Error(err))
			continue
		}
		w.logger.Info("mail outbox entry released unsent", zap.String("outbox_id", entry.ID.String()))
	}
}

func (w *MailWorker) lease() time.Duration {
	return 2 * w.cfg.SendTimeout
}

func (w *MailWorker) deliver(ctx context.Context, entry repository.OutboxEntry) bool {
	fields := []zap.Field{
		zap.String("outbox_id", entry.ID.String()),
		zap.String("template", entry.Mail.Template),
		zap.String("to", entry.Mail.To),
		zap.Int("attempt", entry.Attempts),
	}

	msg, err := w.renderer.Render(entry.Mail)
	if err != nil {
		w.logger.Error("mail render failed; giving up", append(fields, zap.Error(err))...)
		w.fail(ctx, entry, err, true)
		return false
	}

	sendCtx, cancel := context.WithTimeout(ctx, w.cfg.SendTimeout)
	err = w.sender.Send(sendCtx, msg)
	cancel()
	if err != nil {
		final := entry.Attempts >= w.cfg.MaxAttempts
		if final {
			w.logger.Error("mail delivery failed; giving up", append(fields, zap.Error(err))...)
		} else {
			w.logger.Warn("mail delivery failed; will retry once", append(fields, zap.Error(err))...)
		}
		w.fail(ctx, entry, err, final)
		return false
	}

	if err := w.outbox.MarkDelivered(ctx, entry.ID); err != nil {
		w.logger.Error("mark mail delivered failed", append(fields, zap.Error(err))...)
	}
	w.metrics.RecordNotification(entry.Mail.Template, "sent")
	return true
}

func (w *MailWorker) fail(ctx context.Context, entry repository.OutboxEntry, cause error, final bool) {
	status := "retry"
	if final {
		status = "failed"
	}
	w.metrics.RecordNotification(entry.Mail.Template, status)
	if err := w.outbox.MarkAttemptFailed(ctx, entry.ID, cause.Error(), final); err != nil {
		w.logger.Error("mark mail attempt failed",
			zap.String("outbox_id", entry.ID.String()),
			zap.Error(err))
	}
}
