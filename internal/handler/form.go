package handler

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/efreitasn/spotbot/internal/domain"
	"github.com/efreitasn/spotbot/internal/service"
	"github.com/shopspring/decimal"
)

//go:embed templates/form.html
var templateFS embed.FS

var formTemplate = template.Must(template.ParseFS(templateFS, "templates/form.html"))

type typeOption struct {
	Value string
	Label string
}

var typeOptions = []typeOption{
	{Value: string(domain.OrderTypeMarket), Label: "Market"},
	{Value: string(domain.OrderTypeLimit), Label: "Limit"},
	{Value: string(domain.OrderTypeStopLimit), Label: "Stop-Limit"},
}

// formData is the view model of the order form. Inputs are echoed back
// as typed so a failed submission can be corrected.
type formData struct {
	Types     []typeOption
	Type      string
	Symbol    string
	Side      string
	Quantity  string
	Price     string
	StopPrice string
	Error     string
	Result    []domain.Field
}

// FormHandler serves the single-page order form.
type FormHandler struct {
	orderSvc *service.OrderService
	logger   *slog.Logger
}

// NewFormHandler creates a new FormHandler.
func NewFormHandler(orderSvc *service.OrderService, logger *slog.Logger) *FormHandler {
	return &FormHandler{orderSvc: orderSvc, logger: logger}
}

// Show handles GET /.
func (h *FormHandler) Show(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, formData{
		Type:     string(domain.OrderTypeMarket),
		Symbol:   "BTCUSDT",
		Side:     string(domain.OrderSideBuy),
		Quantity: "0.001",
	})
}

// Submit handles POST /.
func (h *FormHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, http.StatusBadRequest, formData{Error: "malformed form submission"})
		return
	}
	data := formData{
		Type:      r.PostForm.Get("type"),
		Symbol:    strings.ToUpper(strings.TrimSpace(r.PostForm.Get("symbol"))),
		Side:      r.PostForm.Get("side"),
		Quantity:  strings.TrimSpace(r.PostForm.Get("quantity")),
		Price:     strings.TrimSpace(r.PostForm.Get("price")),
		StopPrice: strings.TrimSpace(r.PostForm.Get("stop_price")),
	}

	req, err := data.orderRequest()
	if err == nil {
		var ack *domain.OrderAck
		if ack, err = h.orderSvc.Submit(r.Context(), req); err == nil {
			data.Result = ack.Fields()
			h.render(w, http.StatusOK, data)
			return
		}
	}

	if domain.IsInputError(err) {
		h.logger.WarnContext(r.Context(), "invalid order input", slog.String("error", err.Error()))
	} else {
		h.logger.ErrorContext(r.Context(), "order placement failed", slog.String("error", err.Error()))
	}
	status, _ := classifyError(err)
	data.Error = err.Error()
	h.render(w, status, data)
}

// orderRequest parses the form's numeric fields. Blank price fields are
// absent, not zero.
func (d formData) orderRequest() (domain.OrderRequest, error) {
	req := domain.OrderRequest{
		Symbol: d.Symbol,
		Side:   domain.OrderSide(d.Side),
		Type:   domain.OrderType(d.Type),
	}
	var err error
	if req.Quantity, err = parseDecimal("quantity", d.Quantity); err != nil {
		return req, err
	}
	if req.Price, err = parseOptionalDecimal("price", d.Price); err != nil {
		return req, err
	}
	if req.StopPrice, err = parseOptionalDecimal("stop price", d.StopPrice); err != nil {
		return req, err
	}
	return req, nil
}

func parseDecimal(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &domain.ValidationError{Message: fmt.Sprintf("%s must be a number, got %q", field, s)}
	}
	return d, nil
}

func parseOptionalDecimal(field, s string) (decimal.NullDecimal, error) {
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := parseDecimal(field, s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

func (h *FormHandler) render(w http.ResponseWriter, status int, data formData) {
	data.Types = typeOptions
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := formTemplate.Execute(w, data); err != nil {
		h.logger.Error("render form", slog.String("error", err.Error()))
	}
}
