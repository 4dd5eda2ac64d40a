package funding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/congo_wallet/internal/access"
	"github.com/congo-pay/congo_wallet/internal/apperr"
	"github.com/congo-pay/congo_wallet/internal/logging"
	"github.com/congo-pay/congo_wallet/internal/metrics"
	"github.com/congo-pay/congo_wallet/internal/notification"
	"github.com/congo-pay/congo_wallet/internal/paystack"
	"github.com/congo-pay/congo_wallet/internal/wallet"
)

// DepositReferencePrefix marks references generated for deposits.
const DepositReferencePrefix = "TRX-"

// Outcome names what a webhook delivery did. Every outcome except
// OutcomeSettled leaves balances untouched.
type Outcome string

const (
	OutcomeSettled          Outcome = "settled"
	OutcomeIgnoredEvent     Outcome = "ignored_event"
	OutcomeMalformed        Outcome = "malformed"
	OutcomeUnknownReference Outcome = "unknown_reference"
	OutcomeNoWallet         Outcome = "no_wallet"
	OutcomeNotDeposit       Outcome = "not_deposit"
	OutcomeAlreadySettled   Outcome = "already_settled"
	OutcomeAmountMismatch   Outcome = "amount_mismatch"
	OutcomeFailed           Outcome = "failed"
)

// Payers resolves the email the gateway bills when the credential does not
// carry one.
type Payers interface {
	Email(ctx context.Context, userID string) (string, error)
}

// Config is the immutable gateway configuration injected at startup.
type Config struct {
	WebhookSecret string
	CallbackURL   string
}

// Service coordinates deposit initiation and gateway-driven settlement.
type Service struct {
	wallets  wallet.Repository
	gateway  Gateway
	payers   Payers
	cfg      Config
	notifier notification.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithNotifier sets the notifier for settled and flagged deposits.
func WithNotifier(n notification.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithMetrics records deposit and settlement outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = logging.Component(l, "funding") }
}

// NewService prepares a funding service.
func NewService(wallets wallet.Repository, gateway Gateway, payers Payers, cfg Config, opts ...Option) (*Service, error) {
	if wallets == nil {
		return nil, fmt.Errorf("wallet repository is required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway is required")
	}
	if cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("webhook secret is required")
	}
	s := &Service{
		wallets: wallets,
		gateway: gateway,
		payers:  payers,
		cfg:     cfg,
		logger:  logging.Discard(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Deposit is returned to the caller after initiation. The wallet balance is
// unchanged until the gateway confirms payment.
type Deposit struct {
	Reference        string
	AuthorizationURL string
	Amount           int64
}

// InitiateDeposit opens a gateway session and records a pending deposit.
// amount is in minor units.
func (s *Service) InitiateDeposit(ctx context.Context, p access.Principal, amount int64) (Deposit, error) {
	if err := access.Require(p, access.PermDeposit); err != nil {
		return Deposit{}, err
	}
	if err := wallet.ValidateAmount(amount); err != nil {
		s.metrics.DepositInitiated("invalid")
		return Deposit{}, wallet.AsAppError(err)
	}

	w, err := s.wallets.GetByUser(ctx, p.UserID)
	if err != nil {
		return Deposit{}, wallet.AsAppError(err)
	}
	email, err := s.payerEmail(ctx, p)
	if err != nil {
		return Deposit{}, err
	}

	reference := DepositReferencePrefix + uuid.NewString()
	session, err := s.gateway.InitializeTransaction(ctx, paystack.InitializeRequest{
		Email:       email,
		Amount:      amount,
		Reference:   reference,
		CallbackURL: s.cfg.CallbackURL,
	})
	if err != nil {
		s.metrics.DepositInitiated("gateway_error")
		s.logger.ErrorContext(ctx, "initialize gateway session", "reference", reference, "error", err)
		return Deposit{}, apperr.Internal(err, "payment gateway unavailable")
	}

	now := s.now()
	err = s.wallets.InsertTransaction(ctx, wallet.Transaction{
		ID:        uuid.NewString(),
		WalletID:  w.ID,
		Reference: reference,
		Type:      wallet.TypeDeposit,
		Status:    wallet.StatusPending,
		Amount:    amount,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		// The gateway session is orphaned; its webhook will find no
		// pending transaction and no-op.
		s.metrics.DepositInitiated("persist_error")
		s.logger.ErrorContext(ctx, "record pending deposit", "reference", reference, "error", err)
		return Deposit{}, wallet.AsAppError(err)
	}

	s.metrics.DepositInitiated("initiated")
	s.logger.InfoContext(ctx, "deposit initiated", "reference", reference, "wallet_id", w.ID, "amount", amount)
	return Deposit{Reference: reference, AuthorizationURL: session.AuthorizationURL, Amount: amount}, nil
}

func (s *Service) payerEmail(ctx context.Context, p access.Principal) (string, error) {
	if p.Email != "" {
		return p.Email, nil
	}
	if s.payers == nil {
		return "", apperr.Internal(errors.New("no payer directory"), "payer email unavailable")
	}
	email, err := s.payers.Email(ctx, p.UserID)
	if err != nil {
		return "", err
	}
	return email, nil
}

// HandleWebhook authenticates a raw gateway delivery and settles it. Only a
// bad signature is an error; every business outcome is reported through
// Outcome so that the transport can acknowledge the delivery.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) (Outcome, error) {
	if !paystack.VerifySignature(s.cfg.WebhookSecret, body, strings.TrimSpace(signature)) {
		s.metrics.WebhookRejected("bad_signature")
		s.logger.WarnContext(ctx, "webhook signature mismatch")
		return "", apperr.Forbidden("invalid signature")
	}

	event, err := paystack.ParseEvent(body)
	if err != nil {
		s.metrics.WebhookRejected("malformed")
		s.logger.WarnContext(ctx, "malformed webhook body", "error", err)
		return OutcomeMalformed, nil
	}
	if event.Event != paystack.EventChargeSuccess {
		s.record(ctx, event.Data.Reference, OutcomeIgnoredEvent, 0, "event", event.Event)
		return OutcomeIgnoredEvent, nil
	}
	return s.Settle(ctx, event.Data.Reference, event.Data.Amount)
}

// Settle credits the deposit identified by reference at most once. A
// returned error means nothing was applied and a redelivery may succeed.
func (s *Service) Settle(ctx context.Context, reference string, amount int64) (Outcome, error) {
	txn, err := s.wallets.TransactionByReference(ctx, reference)
	switch {
	case errors.Is(err, wallet.ErrTransactionNotFound):
		return s.record(ctx, reference, OutcomeUnknownReference, amount), nil
	case err != nil:
		return s.fail(ctx, reference, err)
	}

	switch {
	case txn.WalletID == "":
		return s.record(ctx, reference, OutcomeNoWallet, amount), nil
	case txn.Type != wallet.TypeDeposit:
		return s.record(ctx, reference, OutcomeNotDeposit, amount), nil
	case txn.Status.Terminal():
		return s.record(ctx, reference, OutcomeAlreadySettled, amount, "status", txn.Status), nil
	case amount != txn.Amount:
		s.metrics.Settlement(string(OutcomeAmountMismatch), 0)
		s.logger.WarnContext(ctx, "deposit amount mismatch",
			"reference", reference,
			"outcome", OutcomeAmountMismatch,
			"expected", txn.Amount,
			"received", amount,
			"manual_review", true,
		)
		s.notifyOwner(ctx, txn.WalletID, notification.Message{
			Kind:      notification.KindDepositReview,
			Reference: reference,
			Amount:    amount,
			Body:      fmt.Sprintf("gateway reported %d, expected %d", amount, txn.Amount),
		})
		return OutcomeAmountMismatch, nil
	}

	var credited wallet.Wallet
	outcome := OutcomeSettled
	err = s.wallets.WithTx(ctx, func(tx wallet.Tx) error {
		locked, err := wallet.LockWallets(ctx, tx, txn.WalletID)
		if err != nil {
			return err
		}
		moved, err := tx.TransitionTransaction(ctx, reference, wallet.StatusPending, wallet.StatusSuccess)
		if err != nil {
			return err
		}
		if !moved {
			outcome = OutcomeAlreadySettled
			return nil
		}
		credited, err = wallet.Credit(ctx, tx, locked[txn.WalletID], amount)
		return err
	})
	if err != nil {
		return s.fail(ctx, reference, err)
	}
	if outcome != OutcomeSettled {
		return s.record(ctx, reference, outcome, amount), nil
	}

	s.record(ctx, reference, OutcomeSettled, amount, "wallet_id", credited.ID)
	notification.Deliver(ctx, s.notifier, s.logger, notification.Message{
		Kind:        notification.KindDepositSettled,
		Destination: credited.UserID,
		Reference:   reference,
		Amount:      amount,
		Body:        fmt.Sprintf("wallet %s credited", credited.WalletNumber),
	})
	return OutcomeSettled, nil
}

// VerifyPayment asks the gateway how a reference stands. It never changes
// local state; settlement only happens through the webhook.
func (s *Service) VerifyPayment(ctx context.Context, reference string) (paystack.Verification, error) {
	if strings.TrimSpace(reference) == "" {
		return paystack.Verification{}, apperr.BadRequest("reference is required")
	}
	v, err := s.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		s.logger.ErrorContext(ctx, "verify gateway transaction", "reference", reference, "error", err)
		return paystack.Verification{}, apperr.Internal(err, "payment gateway unavailable")
	}
	return v, nil
}

func (s *Service) record(ctx context.Context, reference string, outcome Outcome, amount int64, attrs ...any) Outcome {
	s.metrics.Settlement(string(outcome), amount)
	args := append([]any{"reference", reference, "outcome", outcome, "amount", amount}, attrs...)
	s.logger.InfoContext(ctx, "webhook processed", args...)
	return outcome
}

func (s *Service) fail(ctx context.Context, reference string, err error) (Outcome, error) {
	s.metrics.Settlement(string(OutcomeFailed), 0)
	s.logger.ErrorContext(ctx, "settlement failed", "reference", reference, "outcome", OutcomeFailed, "error", err)
	return OutcomeFailed, wallet.AsAppError(err)
}

func (s *Service) notifyOwner(ctx context.Context, walletID string, msg notification.Message) {
	if s.notifier == nil {
		return
	}
	w, err := s.wallets.GetByID(ctx, walletID)
	if err != nil {
		s.logger.WarnContext(ctx, "resolve wallet owner", "wallet_id", walletID, "error", err)
		return
	}
	msg.Destination = w.UserID
	notification.Deliver(ctx, s.notifier, s.logger, msg)
}
