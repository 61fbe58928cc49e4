// Package wallet is the transactions screen: the user's payment history,
// a today's-earnings tally, and the two confirmation flows (cash in hand,
// card via a held PaymentIntent).
package wallet

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/example/tricy-client/internal/gateway"
	"github.com/example/tricy-client/internal/logging"
	"github.com/example/tricy-client/internal/models"
	"github.com/example/tricy-client/internal/observability"
	"github.com/example/tricy-client/internal/signal"
)

// API is the slice of the gateway this screen needs.
type API interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
}

// Processor holds, captures, and releases card payments. Cash flows never
// touch it.
type Processor interface {
	Hold(ctx context.Context, amount int64, currency, customerID string) (string, error)
	Capture(ctx context.Context, paymentIntentID string) error
	Cancel(ctx context.Context, paymentIntentID string) error
}

type Screen struct {
	api       API
	bus       *signal.Bus
	userID    string
	processor Processor
	currency  string
	log       *slog.Logger

	mu           sync.Mutex
	mounted      bool
	cancel       context.CancelFunc
	unsubs       []func()
	transactions []models.Transaction
}

func NewScreen(api API, bus *signal.Bus, userID string, log *slog.Logger) *Screen {
	if log == nil {
		log = logging.Discard()
	}
	return &Screen{api: api, bus: bus, userID: userID, currency: "php", log: log}
}

// WithProcessor enables the card confirmation flow.
func (s *Screen) WithProcessor(p Processor) *Screen {
	s.processor = p
	return s
}

func (s *Screen) Mount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mounted {
		return
	}
	s.mounted = true
	if s.bus != nil {
		s.unsubs = append(s.unsubs, s.bus.SubscribeLogout(s.onLogout))
	}
}

func (s *Screen) Unmount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return
	}
	s.mounted = false
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	for _, unsub := range s.unsubs {
		unsub()
	}
	s.unsubs = nil
}

// Load fetches the user's transactions. Auth failures and cancellation
// propagate; any other failure degrades the screen to an empty list.
func (s *Screen) Load(ctx context.Context) ([]models.Transaction, error) {
	fctx := s.beginFetch(ctx)

	var txs []models.Transaction
	if err := s.api.Get(fctx, "/transactions/user/"+s.userID, &txs); err != nil {
		switch {
		case gateway.IsUnauthorized(err):
			observability.ScreenLoads.WithLabelValues("wallet", "unauthorized").Inc()
			return nil, err
		case errors.Is(err, context.Canceled):
			return nil, err
		default:
			s.log.Warn("transactions fetch failed, degrading to empty list", "error", err)
			observability.ScreenLoads.WithLabelValues("wallet", "degraded").Inc()
			s.mu.Lock()
			s.transactions = nil
			s.mu.Unlock()
			return nil, nil
		}
	}

	s.mu.Lock()
	s.transactions = txs
	s.mu.Unlock()
	observability.ScreenLoads.WithLabelValues("wallet", "ok").Inc()
	return s.Transactions(), nil
}

func (s *Screen) Transactions() []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Transaction, len(s.transactions))
	copy(out, s.transactions)
	return out
}

// TodayTotal sums the settled transactions created on now's calendar day.
// Timestamps are ISO-8601 strings, so the day is a prefix match.
func (s *Screen) TodayTotal(now time.Time) float64 {
	day := now.Format("2006-01-02")
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0.0
	for _, t := range s.transactions {
		if t.Settled() && strings.HasPrefix(t.CreatedAt, day) {
			total += t.Amount
		}
	}
	return total
}

// ConfirmCash settles a cash transaction: the server flips it to success
// and returns the updated copy, which replaces the local one.
func (s *Screen) ConfirmCash(ctx context.Context, transactionID string) error {
	cur, known := s.find(transactionID)
	if known && cur.Settled() {
		observability.LocalConflicts.Inc()
		return &gateway.Conflict{Message: "transaction already settled"}
	}

	var updated models.Transaction
	if err := s.api.Post(ctx, "/transactions/"+transactionID+"/confirm", struct{}{}, &updated); err != nil {
		return err
	}
	s.replace(transactionID, updated)
	return nil
}

// ConfirmCard settles an online transaction through the processor: hold
// the fare, confirm server-side, then capture. A failed confirmation
// releases the hold so the user is never charged for a failed settlement.
func (s *Screen) ConfirmCard(ctx context.Context, transactionID, customerID string) error {
	if s.processor == nil {
		return errors.New("no payment processor configured")
	}
	cur, known := s.find(transactionID)
	if !known {
		return &gateway.Conflict{Message: "unknown transaction " + transactionID}
	}
	if cur.Settled() {
		observability.LocalConflicts.Inc()
		return &gateway.Conflict{Message: "transaction already settled"}
	}

	cents := int64(math.Round(cur.Amount * 100))
	holdID, err := s.processor.Hold(ctx, cents, s.currency, customerID)
	if err != nil {
		return err
	}

	var updated models.Transaction
	if err := s.api.Post(ctx, "/transactions/"+transactionID+"/confirm", struct{}{}, &updated); err != nil {
		if cerr := s.processor.Cancel(ctx, holdID); cerr != nil {
			s.log.Warn("releasing payment hold failed", "hold_id", holdID, "error", cerr)
		}
		return err
	}
	if err := s.processor.Capture(ctx, holdID); err != nil {
		// The server already settled; surface the capture failure but keep
		// the settled local state so a retry does not double-confirm.
		s.replace(transactionID, updated)
		return err
	}
	s.replace(transactionID, updated)
	return nil
}

func (s *Screen) find(transactionID string) (models.Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.transactions {
		if t.TransactionID == transactionID {
			return t, true
		}
	}
	return models.Transaction{}, false
}

func (s *Screen) replace(transactionID string, updated models.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.transactions {
		if t.TransactionID != transactionID {
			continue
		}
		if updated.TransactionID == transactionID {
			s.transactions[i] = updated
		} else {
			s.transactions[i].PaymentStatus = models.PaymentStatusSuccess
		}
		return
	}
}

func (s *Screen) beginFetch(ctx context.Context) context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	fctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	return fctx
}

func (s *Screen) onLogout() {
	s.mu.Lock()
	s.transactions = nil
	s.mu.Unlock()
}
