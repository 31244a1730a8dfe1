package services

import (
	"context"
	"fmt"

	"prizeledger/domain"
	"prizeledger/domain/entities"
	"prizeledger/domain/interfaces"
	"prizeledger/domain/saga"
	"prizeledger/domain/utils"
	"prizeledger/events"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// FreezeWithdrawal reserves amount for a withdrawal and opens a request for review.
// The balance is untouched until the request is approved.
func (c *transferCoordinator) FreezeWithdrawal(ctx context.Context, walletID int64, amount decimal.Decimal, referenceID string) (*interfaces.WithdrawalResult, error) {
	const operation = "withdrawal_freeze"

	if _, err := utils.ValidateAmount(amount); err != nil {
		c.metrics.RecordWalletOperation(operation, outcomeRejected)
		return nil, err
	}

	j := c.newJournal(correlationOrNew(referenceID))
	request := &entities.WithdrawalRequest{
		WalletID:      walletID,
		Amount:        amount,
		Status:        entities.WithdrawalStatusPending,
		CorrelationID: j.correlationID,
	}

	s := saga.New(operation).
		AddStep(saga.Step{
			Name: "freeze_funds",
			Execute: func(ctx context.Context) error {
				before, after, err := c.mutate(ctx, operation, walletID, func(wallet *entities.Wallet) (entities.WalletDelta, error) {
					if err := requireAvailable(wallet, amount); err != nil {
						return entities.WalletDelta{}, err
					}
					return entities.FreezeDelta(amount), nil
				})
				if err != nil {
					return err
				}
				request.UserID = after.UserID
				j.forward(before, after, entities.TransactionTypeWithdrawal, entities.LedgerStatusPending)
				return nil
			},
			Compensate: func(ctx context.Context) error {
				before, after, err := c.mutate(ctx, operation, walletID, func(wallet *entities.Wallet) (entities.WalletDelta, error) {
					return entities.ReleaseDelta(amount), nil
				})
				if err != nil {
					return err
				}
				j.reversed(before, after)
				return nil
			},
		}).
		AddStep(saga.Step{
			Name: "create_request",
			Execute: func(ctx context.Context) error {
				if err := c.withdrawalRepo.Create(ctx, request); err != nil {
					return fmt.Errorf("failed to create withdrawal request: %w", err)
				}
				return nil
			},
		}).
		WithState(j.state)

	err := s.Run(ctx)
	c.finish(ctx, operation, s, err)
	if err != nil {
		c.commit(ctx, j, err)
		return nil, err
	}

	j.buffer.Add(events.WithdrawalRequestedEvent{
		RequestID: request.ID,
		WalletID:  walletID,
		UserID:    request.UserID,
		Amount:    amount,
	})
	entries, ledgerFailed := c.commit(ctx, j, nil)

	log.WithFields(log.Fields{
		"requestID":     request.ID,
		"walletID":      walletID,
		"amount":        amount.String(),
		"correlationID": j.correlationID,
	}).Info("Withdrawal funds frozen for review")

	return &interfaces.WithdrawalResult{
		Request:           request,
		Wallet:            j.last(walletID),
		LedgerEntry:       entries[0],
		LedgerWriteFailed: ledgerFailed,
	}, nil
}

// ApproveWithdrawal debits the frozen amount and releases the reservation in one delta
func (c *transferCoordinator) ApproveWithdrawal(ctx context.Context, requestID int64) (*interfaces.WithdrawalResult, error) {
	return c.reviewWithdrawal(ctx, "withdrawal_approve", requestID, entities.WithdrawalStatusApproved, nil,
		entities.LedgerStatusCompleted, entities.SettleWithdrawalDelta)
}

// RejectWithdrawal releases the frozen amount without debiting it
func (c *transferCoordinator) RejectWithdrawal(ctx context.Context, requestID int64, reason string) (*interfaces.WithdrawalResult, error) {
	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}
	return c.reviewWithdrawal(ctx, "withdrawal_reject", requestID, entities.WithdrawalStatusRejected, reasonPtr,
		entities.LedgerStatusFailed, entities.ReleaseDelta)
}

// reviewWithdrawal claims a pending request and settles its frozen funds. Claiming first makes
// a second review of the same request fail with ErrWithdrawalNotPending.
func (c *transferCoordinator) reviewWithdrawal(
	ctx context.Context,
	operation string,
	requestID int64,
	decision entities.WithdrawalStatus,
	reason *string,
	ledgerStatus entities.LedgerStatus,
	settle func(amount decimal.Decimal) entities.WalletDelta,
) (*interfaces.WithdrawalResult, error) {
	request, err := c.withdrawalRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get withdrawal request: %w", err)
	}
	if request == nil {
		return nil, domain.ErrWithdrawalNotFound
	}
	if !request.IsPending() {
		c.metrics.RecordWalletOperation(operation, outcomeRejected)
		return nil, domain.ErrWithdrawalNotPending
	}

	j := c.newJournal(request.CorrelationID)

	s := saga.New(operation).
		AddStep(saga.Step{
			Name: "claim_request",
			Execute: func(ctx context.Context) error {
				ok, err := c.withdrawalRepo.TransitionStatus(ctx, requestID, entities.WithdrawalStatusPending, decision, reason)
				if err != nil {
					return fmt.Errorf("failed to update withdrawal request: %w", err)
				}
				if !ok {
					return domain.ErrWithdrawalNotPending
				}
				return nil
			},
			Compensate: func(ctx context.Context) error {
				ok, err := c.withdrawalRepo.TransitionStatus(ctx, requestID, decision, entities.WithdrawalStatusPending, nil)
				if err != nil {
					return fmt.Errorf("failed to reopen withdrawal request: %w", err)
				}
				if !ok {
					return fmt.Errorf("withdrawal request %d is no longer %s", requestID, decision)
				}
				return nil
			},
		}).
		AddStep(saga.Step{
			Name: "settle_funds",
			Execute: func(ctx context.Context) error {
				before, after, err := c.mutate(ctx, operation, request.WalletID, func(wallet *entities.Wallet) (entities.WalletDelta, error) {
					if wallet.FrozenBalance.LessThan(request.Amount) {
						return entities.WalletDelta{}, fmt.Errorf("%w: frozen %s, request %s",
							domain.ErrInsufficientAvailable, wallet.FrozenBalance.String(), request.Amount.String())
					}
					return settle(request.Amount), nil
				})
				if err != nil {
					return err
				}
				j.forward(before, after, entities.TransactionTypeWithdrawal, ledgerStatus)
				return nil
			},
		}).
		WithState(j.state)

	err = s.Run(ctx)
	c.finish(ctx, operation, s, err)
	if err != nil {
		c.commit(ctx, j, err)
		return nil, err
	}

	request.Status = decision
	request.Reason = reason

	j.buffer.Add(events.WithdrawalReviewedEvent{
		RequestID: request.ID,
		UserID:    request.UserID,
		Amount:    request.Amount,
		Status:    string(decision),
	})
	entries, ledgerFailed := c.commit(ctx, j, nil)

	log.WithFields(log.Fields{
		"requestID":     requestID,
		"walletID":      request.WalletID,
		"amount":        request.Amount.String(),
		"decision":      decision,
		"correlationID": j.correlationID,
	}).Info("Withdrawal request reviewed")

	return &interfaces.WithdrawalResult{
		Request:           request,
		Wallet:            j.last(request.WalletID),
		LedgerEntry:       entries[0],
		LedgerWriteFailed: ledgerFailed,
	}, nil
}
