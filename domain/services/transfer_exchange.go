package services

import (
	"context"
	"fmt"

	"prizeledger/domain"
	"prizeledger/domain/entities"
	"prizeledger/domain/interfaces"
	"prizeledger/domain/saga"
	"prizeledger/domain/utils"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Exchange moves fromAmount out of the user's exchange source wallet and credits the converted
// amount to the target wallet. If the credit fails the source debit is reversed.
func (c *transferCoordinator) Exchange(ctx context.Context, userID int64, fromAmount decimal.Decimal) (*interfaces.ExchangeResult, error) {
	const operation = "exchange"

	if _, err := utils.ValidateAmount(fromAmount); err != nil {
		c.metrics.RecordWalletOperation(operation, outcomeRejected)
		return nil, err
	}

	ex := c.settings.Exchange
	source, err := c.walletRepo.GetByOwner(ctx, userID, ex.SourceKind, ex.SourceCurrency)
	if err != nil {
		return nil, fmt.Errorf("failed to get source wallet: %w", err)
	}
	target, err := c.walletRepo.GetByOwner(ctx, userID, ex.TargetKind, ex.TargetCurrency)
	if err != nil {
		return nil, fmt.Errorf("failed to get target wallet: %w", err)
	}
	if source == nil || target == nil {
		return nil, domain.ErrWalletNotFound
	}
	if source.ID == target.ID {
		c.metrics.RecordWalletOperation(operation, outcomeRejected)
		return nil, domain.ErrSameWallet
	}
	if err := requireAvailable(source, fromAmount); err != nil {
		c.metrics.RecordWalletOperation(operation, outcomeRejected)
		return nil, err
	}

	toAmount := utils.Convert(fromAmount, ex.Rate)
	if !toAmount.IsPositive() {
		c.metrics.RecordWalletOperation(operation, outcomeRejected)
		return nil, fmt.Errorf("%w: converts to zero at rate %s", domain.ErrInvalidAmount, ex.Rate.String())
	}

	j := c.newJournal(correlationOrNew(""))

	s := saga.New(operation).
		AddStep(saga.Step{
			Name: "debit_source",
			Execute: func(ctx context.Context) error {
				before, after, err := c.mutate(ctx, operation, source.ID, func(wallet *entities.Wallet) (entities.WalletDelta, error) {
					if err := requireAvailable(wallet, fromAmount); err != nil {
						return entities.WalletDelta{}, err
					}
					return entities.DebitDelta(fromAmount), nil
				})
				if err != nil {
					return err
				}
				j.forward(before, after, entities.TransactionTypeExchange, entities.LedgerStatusCompleted)
				return nil
			},
			Compensate: func(ctx context.Context) error {
				before, after, err := c.mutate(ctx, operation, source.ID, func(wallet *entities.Wallet) (entities.WalletDelta, error) {
					return entities.CreditDelta(fromAmount), nil
				})
				if err != nil {
					return err
				}
				j.reversed(before, after)
				return nil
			},
		}).
		AddStep(saga.Step{
			Name: "credit_target",
			Execute: func(ctx context.Context) error {
				before, after, err := c.mutate(ctx, operation, target.ID, func(wallet *entities.Wallet) (entities.WalletDelta, error) {
					return entities.CreditDelta(toAmount), nil
				})
				if err != nil {
					return err
				}
				j.forward(before, after, entities.TransactionTypeExchange, entities.LedgerStatusCompleted)
				return nil
			},
		}).
		WithState(j.state)

	err = s.Run(ctx)
	c.finish(ctx, operation, s, err)
	if err != nil {
		c.commit(ctx, j, err)
		log.WithFields(log.Fields{
			"userID":         userID,
			"sourceWalletID": source.ID,
			"targetWalletID": target.ID,
			"amount":         fromAmount.String(),
			"completedSteps": s.Completed(),
			"error":          err,
		}).Warn("Exchange did not complete")
		return nil, err
	}

	_, ledgerFailed := c.commit(ctx, j, nil)

	log.WithFields(log.Fields{
		"userID":         userID,
		"sourceWalletID": source.ID,
		"targetWalletID": target.ID,
		"sourceAmount":   fromAmount.String(),
		"targetAmount":   toAmount.String(),
		"correlationID":  j.correlationID,
	}).Info("Exchange completed")

	return &interfaces.ExchangeResult{
		Source:            j.last(source.ID),
		Target:            j.last(target.ID),
		SourceAmount:      fromAmount,
		TargetAmount:      toAmount,
		CorrelationID:     j.correlationID,
		LedgerWriteFailed: ledgerFailed,
	}, nil
}
