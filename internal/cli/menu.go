// Package cli is the line-mode front end: a fixed prompt sequence that
// collects one order and prints the exchange's answer.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/efreitasn/spotbot/internal/domain"
	"github.com/shopspring/decimal"
)

// OrderSubmitter places a validated order. *service.OrderService
// implements it.
type OrderSubmitter interface {
	Submit(ctx context.Context, req domain.OrderRequest) (*domain.OrderAck, error)
}

// choices maps the menu number to the order type.
var choices = map[string]domain.OrderType{
	"1": domain.OrderTypeMarket,
	"2": domain.OrderTypeLimit,
	"3": domain.OrderTypeStopLimit,
}

// Menu runs one interactive order session.
type Menu struct {
	in     *bufio.Reader
	out    io.Writer
	orders OrderSubmitter
	logger *slog.Logger
}

// NewMenu creates a Menu reading answers from in and writing to out.
func NewMenu(in io.Reader, out io.Writer, orders OrderSubmitter, logger *slog.Logger) *Menu {
	return &Menu{
		in:     bufio.NewReader(in),
		out:    out,
		orders: orders,
		logger: logger,
	}
}

// Run prompts for one order, submits it and prints the result. Order
// failures are printed and logged, not returned; Run only returns an
// error when the input stream itself fails.
func (m *Menu) Run(ctx context.Context) error {
	req, err := m.Prompt()
	if err != nil {
		var validationErr *domain.ValidationError
		if !errors.As(err, &validationErr) {
			return err
		}
		m.report(ctx, err)
		return nil
	}

	ack, err := m.orders.Submit(ctx, req)
	if err != nil {
		m.report(ctx, err)
		return nil
	}
	PrintOrderResult(m.out, ack)
	return nil
}

// Prompt asks for the order fields in order. Unparseable numbers come back
// as *domain.ValidationError; I/O failures are returned as is.
func (m *Menu) Prompt() (domain.OrderRequest, error) {
	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, "=== Binance Spot Testnet Trading Bot ===")
	fmt.Fprintln(m.out, "Select order type:")
	fmt.Fprintln(m.out, "1. Market Order")
	fmt.Fprintln(m.out, "2. Limit Order")
	fmt.Fprintln(m.out, "3. Stop-Limit Order")

	choice, err := m.ask("Enter choice (1/2/3): ")
	if err != nil {
		return domain.OrderRequest{}, err
	}
	symbol, err := m.ask("Enter trading pair symbol (e.g., BTCUSDT): ")
	if err != nil {
		return domain.OrderRequest{}, err
	}
	side, err := m.ask("Enter side (BUY/SELL): ")
	if err != nil {
		return domain.OrderRequest{}, err
	}

	req := domain.OrderRequest{
		Symbol: strings.ToUpper(symbol),
		Side:   domain.OrderSide(strings.ToUpper(side)),
		Type:   orderType(choice),
	}

	if req.Quantity, err = m.askDecimal("Enter quantity: ", "quantity"); err != nil {
		return domain.OrderRequest{}, err
	}
	if choice == "2" || choice == "3" {
		price, err := m.askDecimal("Enter price: ", "price")
		if err != nil {
			return domain.OrderRequest{}, err
		}
		req.Price = decimal.NewNullDecimal(price)
	}
	if choice == "3" {
		stop, err := m.askDecimal("Enter stop price: ", "stop price")
		if err != nil {
			return domain.OrderRequest{}, err
		}
		req.StopPrice = decimal.NewNullDecimal(stop)
	}
	return req, nil
}

// orderType resolves a menu choice. Unknown choices pass through so the
// façade rejects them with ErrInvalidOrderType.
func orderType(choice string) domain.OrderType {
	if t, ok := choices[choice]; ok {
		return t
	}
	return domain.OrderType(choice)
}

func (m *Menu) ask(prompt string) (string, error) {
	fmt.Fprint(m.out, prompt)
	line, err := m.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (m *Menu) askDecimal(prompt, field string) (decimal.Decimal, error) {
	s, err := m.ask(prompt)
	if err != nil {
		return decimal.Zero, err
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &domain.ValidationError{Message: fmt.Sprintf("%s must be a number, got %q", field, s)}
	}
	return d, nil
}

func (m *Menu) report(ctx context.Context, err error) {
	if domain.IsInputError(err) {
		m.logger.WarnContext(ctx, "invalid order input", slog.String("error", err.Error()))
	} else {
		m.logger.ErrorContext(ctx, "order placement failed", slog.String("error", err.Error()))
	}
	fmt.Fprintf(m.out, "Error: %s\n", err)
}

// PrintOrderResult writes the six displayed fields of ack.
func PrintOrderResult(w io.Writer, ack *domain.OrderAck) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Order Result:")
	for _, f := range ack.Fields() {
		fmt.Fprintf(w, "  %-11s %s\n", f.Label+":", f.Value)
	}
}
