package service

import (
	"context"

	"github.com/efreitasn/spotbot/internal/domain"
	"github.com/shopspring/decimal"
)

// MarketGateway is the read-only part of the exchange gateway.
type MarketGateway interface {
	AccountInfo(ctx context.Context) (*domain.Account, error)
	SymbolInfo(ctx context.Context, symbol string) (*domain.SymbolInfo, error)
	CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// MarketService serves account and market data lookups.
type MarketService struct {
	gateway MarketGateway
}

// NewMarketService creates a new MarketService backed by gateway.
func NewMarketService(gateway MarketGateway) *MarketService {
	return &MarketService{gateway: gateway}
}

// Account returns the authenticated account.
func (s *MarketService) Account(ctx context.Context) (*domain.Account, error) {
	return s.gateway.AccountInfo(ctx)
}

// SymbolInfo returns nil, nil when the exchange does not list symbol.
func (s *MarketService) SymbolInfo(ctx context.Context, symbol string) (*domain.SymbolInfo, error) {
	if err := domain.ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	return s.gateway.SymbolInfo(ctx, symbol)
}

// CurrentPrice returns the latest trade price of symbol.
func (s *MarketService) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if err := domain.ValidateSymbol(symbol); err != nil {
		return decimal.Zero, err
	}
	return s.gateway.CurrentPrice(ctx, symbol)
}
