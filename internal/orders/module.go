// Package orders provides the order allocation bounded context module.
package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"leadops_backend/internal/events"
	apphttp "leadops_backend/internal/http"
	"leadops_backend/internal/orders/allocation"
	"leadops_backend/internal/orders/handler"
	"leadops_backend/internal/orders/repository"
	"leadops_backend/internal/orders/service"
	"leadops_backend/internal/refcache"
	"leadops_backend/internal/scheduler"
	"leadops_backend/platform/config"
	"leadops_backend/platform/logger"
	"leadops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ModuleConfig combines the config interfaces the orders module reads.
type ModuleConfig interface {
	config.AllocationConfig
	config.RefCacheConfig
}

// Module is the orders bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
	cache   *refcache.Cache
}

// NewModule creates and initializes the orders module. rdb and sched may be
// nil when Redis is not configured; reference checks then hit the database
// directly and lead release runs inline on cancellation.
func NewModule(pool *pgxpool.Pool, rdb *redis.Client, sched scheduler.ReleaseScheduler, bus events.Bus, val *validator.Validator, cfg ModuleConfig, log *logger.Logger) *Module {
	repo := repository.New(pool)
	cache := refcache.New(rdb, referenceReader{repo: repo}, cfg.GetRefCacheTTL(), log)
	engine := allocation.New(repo, log, allocation.Config{
		CooldownWindow:     cfg.GetCooldownWindow(),
		FullFetchThreshold: cfg.GetFullFetchThreshold(),
	})
	svc := service.New(repo, engine, cache, sched, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
		cache:   cache,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "orders"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for direct access if needed.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// Cache returns the reference cache so main can warm it at startup.
func (m *Module) Cache() *refcache.Cache {
	return m.cache
}

// RegisterRoutes mounts order routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	orders := ctx.Protected.Group("/orders")
	orders.POST("", m.handler.Create)
	orders.GET("", m.handler.List)
	orders.GET("/:id", m.handler.GetByID)
	orders.POST("/:id/cancel", m.handler.Cancel)
	orders.POST("/:id/leads/:leadId/replace", m.handler.ReplaceLead)
}

// referenceReader adapts the repository's reference lookups to the cache's
// Reader port.
type referenceReader struct {
	repo repository.Repository
}

func (r referenceReader) GetNetwork(ctx context.Context, id uuid.UUID) (refcache.Entry, error) {
	entry, err := r.repo.GetNetwork(ctx, id)
	return refcache.Entry(entry), err
}

func (r referenceReader) GetBroker(ctx context.Context, id uuid.UUID) (refcache.Entry, error) {
	entry, err := r.repo.GetBroker(ctx, id)
	return refcache.Entry(entry), err
}

func (r referenceReader) GetCampaign(ctx context.Context, id uuid.UUID) (refcache.Entry, error) {
	entry, err := r.repo.GetCampaign(ctx, id)
	return refcache.Entry(entry), err
}

func (r referenceReader) ListNetworks(ctx context.Context) ([]refcache.Entry, error) {
	return convertEntries(r.repo.ListNetworks(ctx))
}

func (r referenceReader) ListBrokers(ctx context.Context) ([]refcache.Entry, error) {
	return convertEntries(r.repo.ListBrokers(ctx))
}

func (r referenceReader) ListCampaigns(ctx context.Context) ([]refcache.Entry, error) {
	return convertEntries(r.repo.ListCampaigns(ctx))
}

func convertEntries(entries []repository.ReferenceEntry, err error) ([]refcache.Entry, error) {
	if err != nil {
		return nil, err
	}
	out := make([]refcache.Entry, len(entries))
	for i, entry := range entries {
		out[i] = refcache.Entry(entry)
	}
	return out, nil
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
