package ports

import (
	"context"

	"persodash/internal/domain"
)

type BtcBalanceReader interface {
	AddressBalance(ctx context.Context, address string) (domain.BtcBalance, error)
}

type SolBalanceReader interface {
	Balance(ctx context.Context, address string) (domain.SolBalance, error)
}

type PortfolioReader interface {
	Portfolio(ctx context.Context, address string) (domain.Portfolio, error)
}

type AccountLister interface {
	Accounts(ctx context.Context) ([]domain.CoinbaseAccount, error)
}

type WebsiteLister interface {
	Websites(ctx context.Context) ([]domain.Website, error)
}
