package scheduler

import (
	"context"
	"fmt"

	"leadops_backend/internal/events"
	"leadops_backend/internal/orders/repository"
	"leadops_backend/platform/config"
	"leadops_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	repo   repository.Repository
	bus    events.Bus
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, pool *pgxpool.Pool, bus events.Bus, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		repo:   repository.New(pool),
		bus:    bus,
		log:    log,
	}

	mux.HandleFunc(TaskOrderRelease, w.handleOrderRelease)

	return w, nil
}

// handleOrderRelease returns a cancelled order's leads to the pool. An
// error makes asynq retry the task; the release is idempotent so retries
// are harmless.
func (w *Worker) handleOrderRelease(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseOrderReleasePayload(task)
	if err != nil {
		return err
	}

	orderID, err := uuid.Parse(payload.OrderID)
	if err != nil {
		return err
	}

	released, err := w.repo.ReleaseOrderLeads(ctx, orderID)
	if err != nil {
		return err
	}
	w.log.ReleaseSweep(orderID.String(), released)

	if w.bus == nil {
		return nil
	}
	return w.bus.PublishSync(ctx, events.LeadsReleased{
		BaseEvent: events.NewBaseEvent(),
		OrderID:   orderID,
		Released:  released,
	})
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
