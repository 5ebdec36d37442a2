package handler

import (
	"net/http"

	"github.com/efreitasn/spotbot/internal/domain"
	"github.com/efreitasn/spotbot/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// MarketHandler handles account and market data endpoints.
type MarketHandler struct {
	marketSvc *service.MarketService
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(marketSvc *service.MarketService) *MarketHandler {
	return &MarketHandler{marketSvc: marketSvc}
}

type accountResponse struct {
	AccountType string           `json:"account_type"`
	CanTrade    bool             `json:"can_trade"`
	CanWithdraw bool             `json:"can_withdraw"`
	CanDeposit  bool             `json:"can_deposit"`
	Balances    []domain.Balance `json:"balances"`
}

// GetAccount handles GET /api/account. Only non-zero balances are listed.
func (h *MarketHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := h.marketSvc.Account(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, accountResponse{
		AccountType: acct.AccountType,
		CanTrade:    acct.CanTrade,
		CanWithdraw: acct.CanWithdraw,
		CanDeposit:  acct.CanDeposit,
		Balances:    acct.NonZeroBalances(),
	})
}

// GetSymbol handles GET /api/symbols/{symbol}.
func (h *MarketHandler) GetSymbol(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	info, err := h.marketSvc.SymbolInfo(r.Context(), symbol)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if info == nil {
		WriteError(w, http.StatusNotFound, "symbol_not_found", "Symbol not found: "+symbol)
		return
	}

	WriteJSON(w, http.StatusOK, info)
}

type priceResponse struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

// GetPrice handles GET /api/symbols/{symbol}/price.
func (h *MarketHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	price, err := h.marketSvc.CurrentPrice(r.Context(), symbol)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, priceResponse{Symbol: symbol, Price: price})
}
