package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/congo_wallet/internal/access"
	"github.com/congo-pay/congo_wallet/internal/apperr"
	"github.com/congo-pay/congo_wallet/internal/logging"
	"github.com/congo-pay/congo_wallet/internal/metrics"
	"github.com/congo-pay/congo_wallet/internal/notification"
	"github.com/congo-pay/congo_wallet/internal/wallet"
)

// TransferReferencePrefix marks references generated for transfers.
const TransferReferencePrefix = "TRF-"

// Service executes peer-to-peer transfers between wallets.
type Service struct {
	wallets  wallet.Repository
	notifier notification.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithMetrics records transfer outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = logging.Component(l, "payments") }
}

// NewService constructs a payment service.
func NewService(wallets wallet.Repository, notifier notification.Notifier, opts ...Option) *Service {
	s := &Service{
		wallets:  wallets,
		notifier: notifier,
		logger:   logging.Discard(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TransferInput captures the data needed to move funds. Amount is in minor
// units.
type TransferInput struct {
	RecipientWalletNumber string
	Amount                int64
}

// TransferResult describes a completed transfer.
type TransferResult struct {
	Reference             string
	SenderWalletNumber    string
	RecipientWalletNumber string
	Amount                int64
	SenderBalance         int64
	CompletedAt           time.Time
}

var (
	errSelfTransfer      = apperr.BadRequest("cannot transfer to your own wallet")
	errRecipientNotFound = apperr.NotFound("recipient wallet not found")
	errSenderNotFound    = apperr.NotFound("wallet not found")
)

// Transfer debits the caller's wallet and credits the wallet identified by
// RecipientWalletNumber in one unit of work. Both wallets are locked in
// ascending id order before either is read for mutation.
func (s *Service) Transfer(ctx context.Context, p access.Principal, in TransferInput) (TransferResult, error) {
	if err := access.Require(p, access.PermTransfer); err != nil {
		return TransferResult{}, err
	}
	if err := wallet.ValidateAmount(in.Amount); err != nil {
		s.metrics.Transfer("invalid", 0)
		return TransferResult{}, wallet.AsAppError(err)
	}
	if !wallet.ValidWalletNumber(in.RecipientWalletNumber) {
		s.metrics.Transfer("invalid", 0)
		return TransferResult{}, apperr.BadRequest("wallet number must be 10 digits")
	}

	var (
		result    TransferResult
		recipient wallet.Wallet
	)
	err := s.wallets.WithTx(ctx, func(tx wallet.Tx) error {
		sender, err := tx.WalletByUser(ctx, p.UserID)
		if err != nil {
			if errors.Is(err, wallet.ErrWalletNotFound) {
				return errSenderNotFound
			}
			return err
		}

		ids := []string{sender.ID}
		target, err := tx.WalletByNumber(ctx, in.RecipientWalletNumber)
		switch {
		case errors.Is(err, wallet.ErrWalletNotFound):
		case err != nil:
			return err
		case target.ID == sender.ID:
			return errSelfTransfer
		default:
			ids = append(ids, target.ID)
		}

		locked, err := wallet.LockWallets(ctx, tx, ids...)
		if err != nil {
			return err
		}
		from := locked[sender.ID]
		if from.Balance < in.Amount {
			return wallet.ErrInsufficientFunds
		}
		to, ok := locked[target.ID]
		if !ok {
			return errRecipientNotFound
		}

		if from, err = wallet.Debit(ctx, tx, from, in.Amount); err != nil {
			return err
		}
		if to, err = wallet.Credit(ctx, tx, to, in.Amount); err != nil {
			return err
		}

		now := s.now()
		reference := TransferReferencePrefix + uuid.NewString()
		err = tx.InsertTransaction(ctx, wallet.Transaction{
			ID:                    uuid.NewString(),
			WalletID:              from.ID,
			Reference:             reference,
			Type:                  wallet.TypeTransfer,
			Status:                wallet.StatusSuccess,
			Amount:                in.Amount,
			SenderWalletNumber:    from.WalletNumber,
			RecipientWalletNumber: to.WalletNumber,
			CreatedAt:             now,
			UpdatedAt:             now,
		})
		if err != nil {
			return err
		}

		recipient = to
		result = TransferResult{
			Reference:             reference,
			SenderWalletNumber:    from.WalletNumber,
			RecipientWalletNumber: to.WalletNumber,
			Amount:                in.Amount,
			SenderBalance:         from.Balance,
			CompletedAt:           now,
		}
		return nil
	})
	if err != nil {
		appErr := wallet.AsAppError(err)
		s.metrics.Transfer(apperr.KindOf(appErr).String(), 0)
		if apperr.Is(appErr, apperr.KindInternal) {
			s.logger.ErrorContext(ctx, "transfer failed", "user_id", p.UserID, "error", err)
		}
		return TransferResult{}, appErr
	}

	s.metrics.Transfer("success", in.Amount)
	s.logger.InfoContext(ctx, "transfer completed",
		"reference", result.Reference,
		"sender", result.SenderWalletNumber,
		"recipient", result.RecipientWalletNumber,
		"amount", result.Amount,
	)
	notification.Deliver(ctx, s.notifier, s.logger, notification.Message{
		Kind:        notification.KindTransferReceived,
		Destination: recipient.UserID,
		Reference:   result.Reference,
		Amount:      result.Amount,
		Body:        fmt.Sprintf("You received %d from wallet %s", result.Amount, result.SenderWalletNumber),
	})
	return result, nil
}
