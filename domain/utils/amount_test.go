package utils

import (
	"testing"

	"prizeledger/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "integer", input: "100", want: "100"},
		{name: "fraction", input: "12.5", want: "12.5"},
		{name: "surrounding whitespace", input: "  30 ", want: "30"},
		{name: "max scale", input: "0.00000001", want: "0.00000001"},
		{name: "too precise", input: "0.000000001", wantErr: true},
		{name: "zero", input: "0", wantErr: true},
		{name: "negative", input: "-5", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "garbage", input: "ten", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestConvert(t *testing.T) {
	t.Parallel()

	got := Convert(decimal.NewFromInt(1), decimal.RequireFromString("0.123456789"))
	assert.Equal(t, "0.12345678", got.String())

	got = Convert(decimal.NewFromInt(25), decimal.NewFromInt(1))
	assert.True(t, got.Equal(decimal.NewFromInt(25)))
}
