package utils

import (
	"prizeledger/domain/entities"
	"prizeledger/events"

	log "github.com/sirupsen/logrus"
)

// BalanceChanged builds the notification for a wallet moving from before to after
func BalanceChanged(before, after *entities.Wallet, txType entities.TransactionType, correlationID string) events.BalanceChangedEvent {
	return events.BalanceChangedEvent{
		WalletID:        after.ID,
		UserID:          after.UserID,
		Kind:            string(after.Kind),
		Currency:        after.Currency,
		OldBalance:      before.Balance,
		NewBalance:      after.Balance,
		FrozenBalance:   after.FrozenBalance,
		TransactionType: txType.String(),
		CorrelationID:   correlationID,
	}
}

// QueueBalanceChange adds a balance notification to buf. It is only dispatched if the
// operation that produced it completes.
func QueueBalanceChange(buf *events.Buffer, before, after *entities.Wallet, txType entities.TransactionType, correlationID string) {
	event := BalanceChanged(before, after, txType, correlationID)
	log.WithFields(log.Fields{
		"walletID":        event.WalletID,
		"userID":          event.UserID,
		"oldBalance":      event.OldBalance,
		"newBalance":      event.NewBalance,
		"transactionType": event.TransactionType,
	}).Debug("Queueing BalanceChangedEvent")
	buf.Add(event)
}
