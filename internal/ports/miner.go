package ports

import (
	"context"

	"persodash/internal/domain"
)

type WorkerFetcher interface {
	Workers(ctx context.Context, address string) ([]domain.Worker, error)
}

type PoolStatsFetcher interface {
	PoolStats(ctx context.Context) (domain.PoolStats, error)
}
