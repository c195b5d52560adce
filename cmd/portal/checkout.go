package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/zatekoja/patientcare/backend/internal/adapters/payment"
	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
	"github.com/zatekoja/patientcare/backend/internal/portal/booking"
)

// consoleCheckout stands in for the hosted checkout when the portal runs
// against the mock gateway. The operator types a payment id to pay, an empty
// line to close the checkout, or "fail: <reason>" to decline.
//
// One goroutine owns the input for the checkout's lifetime, so a line typed
// after a cancelled Open goes to the next Open instead of being lost.
type consoleCheckout struct {
	in    *bufio.Reader
	out   io.Writer
	lines chan readResult
	once  sync.Once
}

type readResult struct {
	line string
	err  error
}

func newConsoleCheckout(in io.Reader, out io.Writer) *consoleCheckout {
	return &consoleCheckout{
		in:    bufio.NewReader(in),
		out:   out,
		lines: make(chan readResult),
	}
}

// readLines feeds c.lines until the input fails, then closes it
func (c *consoleCheckout) readLines() {
	defer close(c.lines)
	for {
		line, err := c.in.ReadString('\n')
		if err != nil && line == "" {
			c.lines <- readResult{err: err}
			return
		}
		c.lines <- readResult{line: strings.TrimSpace(line)}
	}
}

func (c *consoleCheckout) Open(ctx context.Context, order *entities.PaymentOrder, prefill booking.Prefill) (*entities.PaymentConfirmation, error) {
	amount := decimal.New(order.Amount, -2).StringFixed(2)
	fmt.Fprintf(c.out, "Checkout %s: %s %s", order.OrderID, order.Currency, amount)
	if prefill.Name != "" {
		fmt.Fprintf(c.out, " for %s", prefill.Name)
	}
	fmt.Fprint(c.out, "\nPayment id (empty to cancel, \"fail: reason\" to decline): ")

	c.once.Do(func() { go c.readLines() })

	var line string
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r, ok := <-c.lines:
		if !ok || r.err == io.EOF {
			return nil, booking.ErrCheckoutDismissed
		}
		if r.err != nil {
			return nil, r.err
		}
		line = r.line
	}

	switch {
	case line == "":
		return nil, booking.ErrCheckoutDismissed
	case strings.EqualFold(line, "fail") || strings.HasPrefix(strings.ToLower(line), "fail:"):
		reason := strings.TrimSpace(strings.TrimPrefix(line[4:], ":"))
		if reason == "" {
			reason = "declined"
		}
		return nil, &booking.PaymentFailedError{Code: "BAD_REQUEST_ERROR", Description: reason}
	}

	return &entities.PaymentConfirmation{
		OrderID:   order.OrderID,
		PaymentID: line,
		Signature: payment.MockSignature(order.OrderID, line),
	}, nil
}
