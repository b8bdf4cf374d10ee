// Package payment is the simulated top-up collaborator. It validates
// amounts against the configured bounds, persists the user's rail/amount
// selection, and calls the session's credit entry point exactly once per
// completed payment, appending to the payment log blob.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/scoins/coinmarket/internal/blob"
	"github.com/scoins/coinmarket/internal/config"
	"github.com/scoins/coinmarket/internal/domain"
	"github.com/scoins/coinmarket/internal/session"
)

var (
	ErrUnknownMethod   = errors.New("unknown payment method")
	ErrMethodDisabled  = errors.New("payment method disabled")
	ErrInvalidAmount   = errors.New("amount out of top-up bounds")
	ErrUnknownPayment  = errors.New("unknown payment id")
)

const (
	MethodStars  = "stars"
	MethodTon    = "ton"
	MethodCrypto = "crypto"
)

// Method describes one payment rail. Rate is stars per unit; zero means a
// dynamic rate resolved outside the core.
type Method struct {
	Name    string  `json:"name"`
	Rate    float64 `json:"rate"`
	Enabled bool    `json:"enabled"`
}

func Methods() map[string]Method {
	return map[string]Method{
		MethodStars:  {Name: "Telegram Stars", Rate: 1, Enabled: true},
		MethodTon:    {Name: "TON", Rate: 150, Enabled: true},
		MethodCrypto: {Name: "Crypto", Rate: 0, Enabled: true},
	}
}

// System manages pending top-ups for one session. Handlers call it from
// concurrent requests, so all access to settings and pending is serialized
// behind mu the same way Session serializes its commands.
type System struct {
	cfg     *config.Config
	blobs   blob.Store
	session *session.Session
	clock   session.Clock

	mu       sync.Mutex
	settings domain.PaymentSettings
	pending  map[string]int64 // payment id -> amount
}

func settingsKey(userID string) string { return "payment-settings-" + userID }
func logsKey(userID string) string     { return "payment-logs-" + userID }

func New(ctx context.Context, cfg *config.Config, blobs blob.Store, sess *session.Session, clock session.Clock) *System {
	if clock == nil {
		clock = session.SystemClock()
	}
	sys := &System{
		cfg:     cfg,
		blobs:   blobs,
		session: sess,
		clock:   clock,
		settings: domain.PaymentSettings{
			SelectedMethod: MethodStars,
			SelectedAmount: 100,
		},
		pending: make(map[string]int64),
	}

	raw, err := blobs.Load(ctx, settingsKey(sess.UserID()))
	if err == nil {
		var saved domain.PaymentSettings
		if json.Unmarshal(raw, &saved) == nil && saved.SelectedMethod != "" {
			sys.settings = saved
		}
	}
	return sys
}

func (p *System) Settings() domain.PaymentSettings {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settings
}

// Select persists the chosen rail and amount.
func (p *System) Select(ctx context.Context, method string, amount int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, ok := Methods()[method]
	if !ok {
		return ErrUnknownMethod
	}
	if !m.Enabled {
		return ErrMethodDisabled
	}

	p.settings = domain.PaymentSettings{
		SelectedMethod: method,
		SelectedAmount: amount,
		LastUpdated:    p.clock.Now(),
	}
	raw, err := json.Marshal(p.settings)
	if err != nil {
		return fmt.Errorf("encode payment settings: %w", err)
	}
	if err := p.blobs.Save(ctx, settingsKey(p.session.UserID()), raw); err != nil {
		return &blob.PersistError{Key: settingsKey(p.session.UserID()), Err: err}
	}
	return nil
}

// Start validates the amount and registers a pending payment on the
// currently selected rail, returning its id.
func (p *System) Start(amount int64) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, ok := Methods()[p.settings.SelectedMethod]
	if !ok {
		return "", ErrUnknownMethod
	}
	if !m.Enabled {
		return "", ErrMethodDisabled
	}
	if !p.cfg.ValidTopUp(amount) {
		return "", ErrInvalidAmount
	}

	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	id := fmt.Sprintf("payment_%s_%d_%s", p.session.UserID(), p.clock.Now().UnixMilli(), suffix)
	p.pending[id] = amount
	return id, nil
}

// Confirm completes a pending payment: credits the balance through the
// session and appends to the payment log. A second confirm of the same id
// fails without crediting again.
func (p *System) Confirm(ctx context.Context, paymentID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	amount, ok := p.pending[paymentID]
	if !ok {
		return ErrUnknownPayment
	}

	if err := p.session.TopUp(ctx, amount); err != nil {
		return err
	}
	delete(p.pending, paymentID)

	p.appendLog(ctx, domain.PaymentRecord{
		ID:        paymentID,
		UserID:    p.session.UserID(),
		Amount:    amount,
		Method:    p.settings.SelectedMethod,
		Timestamp: p.clock.Now(),
		Status:    "completed",
	})
	return nil
}

// appendLog is best-effort: a lost log entry does not fail the credit.
func (p *System) appendLog(ctx context.Context, rec domain.PaymentRecord) {
	key := logsKey(rec.UserID)
	var logs []domain.PaymentRecord
	if raw, err := p.blobs.Load(ctx, key); err == nil {
		_ = json.Unmarshal(raw, &logs)
	}
	logs = append(logs, rec)
	if raw, err := json.Marshal(logs); err == nil {
		_ = p.blobs.Save(ctx, key, raw)
	}
}
