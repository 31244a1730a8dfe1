package utils

import (
	"testing"

	"prizeledger/domain/entities"
	"prizeledger/events"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mock.Mock
}

func (p *recordingPublisher) Publish(event events.Event) error {
	args := p.Called(event)
	return args.Error(0)
}

func TestQueueBalanceChange(t *testing.T) {
	t.Parallel()

	before := &entities.Wallet{
		ID:            4,
		UserID:        9,
		Kind:          entities.WalletKindBalance,
		Currency:      "USD",
		Balance:       decimal.NewFromInt(100),
		FrozenBalance: decimal.Zero,
	}
	after, err := before.Preview(entities.FreezeDelta(decimal.NewFromInt(30)))
	require.NoError(t, err)

	publisher := &recordingPublisher{}
	publisher.On("Publish", mock.MatchedBy(func(e events.BalanceChangedEvent) bool {
		return e.WalletID == 4 &&
			e.UserID == 9 &&
			e.Kind == "balance" &&
			e.NewBalance.Equal(decimal.NewFromInt(100)) &&
			e.FrozenBalance.Equal(decimal.NewFromInt(30)) &&
			e.TransactionType == "withdrawal" &&
			e.CorrelationID == "wd-1"
	})).Return(nil).Once()

	buf := events.NewBuffer(publisher)
	QueueBalanceChange(buf, before, after, entities.TransactionTypeWithdrawal, "wd-1")

	assert.Equal(t, 1, buf.Len())
	publisher.AssertNotCalled(t, "Publish", mock.Anything)

	buf.Flush()
	publisher.AssertExpectations(t)
}
