package service

import (
	"context"
	"time"

	"finnews-notifier/pkg/common"
	"finnews-notifier/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// CycleGate serializes ingestion cycles across process instances with a
// Redis lease. The existence check in the orchestrator assumes a single
// writer; the gate keeps that assumption when more than one instance runs.
type CycleGate struct {
	client   *redis.Client
	logger   *logger.Logger
	leaseTTL time.Duration
	holder   string
}

// NewCycleGate creates a gate with the given lease TTL. holder identifies
// this instance in the lease value.
func NewCycleGate(client *redis.Client, log *logger.Logger, leaseTTL time.Duration, holder string) *CycleGate {
	return &CycleGate{
		client:   client,
		logger:   log,
		leaseTTL: leaseTTL,
		holder:   holder,
	}
}

// TryAcquire attempts to take the lease. It returns false when another
// instance holds it; Redis errors also return false so a broken lock service
// never lets two cycles overlap.
func (g *CycleGate) TryAcquire(ctx context.Context) bool {
	ok, err := g.client.SetNX(ctx, common.RedisKeyIngestionLease, g.holder, g.leaseTTL).Result()
	if err != nil {
		g.logger.Error("Failed to acquire ingestion lease", logger.ErrorField(err))
		return false
	}
	if !ok {
		g.logger.Info("Ingestion lease held elsewhere, skipping cycle")
	}
	return ok
}

// Release drops the lease if this instance still holds it.
func (g *CycleGate) Release(ctx context.Context) {
	val, err := g.client.Get(ctx, common.RedisKeyIngestionLease).Result()
	if err != nil {
		if err != redis.Nil {
			g.logger.Error("Failed to read ingestion lease", logger.ErrorField(err))
		}
		return
	}
	if val != g.holder {
		return
	}
	if err := g.client.Del(ctx, common.RedisKeyIngestionLease).Err(); err != nil {
		g.logger.Error("Failed to release ingestion lease", logger.ErrorField(err))
	}
}
