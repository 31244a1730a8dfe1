package cmd

import (
	"testing"

	"prizeledger/config"
	"prizeledger/domain/entities"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletSlots(t *testing.T) {
	slots := WalletSlots([]config.WalletSpec{
		{Kind: "balance", Currency: "USD"},
		{Kind: "points", Currency: "PTS"},
	})

	require.Len(t, slots, 2)
	assert.Equal(t, entities.WalletKind("balance"), slots[0].Kind)
	assert.Equal(t, "PTS", slots[1].Currency)
	assert.Empty(t, WalletSlots(nil))
}

func TestCoordinatorSettings(t *testing.T) {
	cfg := config.NewTestConfig()
	cfg.MaxRetries = 4
	cfg.ExchangeSource = config.WalletSpec{Kind: "commission", Currency: "USD"}
	cfg.ExchangeTarget = config.WalletSpec{Kind: "balance", Currency: "USD"}
	cfg.ExchangeRate = decimal.RequireFromString("0.5")

	settings := CoordinatorSettings(cfg)

	assert.Equal(t, 4, settings.MaxRetries)
	assert.Equal(t, entities.WalletKind("commission"), settings.Exchange.SourceKind)
	assert.Equal(t, entities.WalletKind("balance"), settings.Exchange.TargetKind)
	assert.True(t, settings.Exchange.Rate.Equal(decimal.RequireFromString("0.5")))
}

func TestReconcileRejectsBadWalletID(t *testing.T) {
	for _, raw := range []string{"", "abc", "0", "-3"} {
		assert.Error(t, Reconcile(t.Context(), raw), raw)
	}
}
