package purchase_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duartefn/mercado/internal/purchase"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeTotal(t *testing.T) {
	tests := []struct {
		name      string
		unitPrice string
		quantity  string
		want      string
	}{
		{name: "ExactProduct", unitPrice: "3.33", quantity: "3", want: "9.99"},
		{name: "HalfCentRoundsUp", unitPrice: "2.005", quantity: "1", want: "2.01"},
		{name: "RoundsDown", unitPrice: "2.004", quantity: "1", want: "2.00"},
		{name: "FractionalQuantity", unitPrice: "12.90", quantity: "0.485", want: "6.26"},
		{name: "LargeValues", unitPrice: "199.99", quantity: "50", want: "9999.50"},
		{name: "OneCent", unitPrice: "0.01", quantity: "1", want: "0.01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := purchase.ComputeTotal(dec(tt.unitPrice), dec(tt.quantity))
			require.NoError(t, err)
			assert.True(t, got.Equal(dec(tt.want)), "got %s, want %s", got, tt.want)
		})
	}
}

func TestComputeTotal_RejectsNonPositive(t *testing.T) {
	cases := []struct {
		name      string
		unitPrice string
		quantity  string
	}{
		{name: "ZeroPrice", unitPrice: "0", quantity: "1"},
		{name: "NegativePrice", unitPrice: "-1.50", quantity: "1"},
		{name: "ZeroQuantity", unitPrice: "1.50", quantity: "0"},
		{name: "NegativeQuantity", unitPrice: "1.50", quantity: "-2"},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := purchase.ComputeTotal(dec(tt.unitPrice), dec(tt.quantity))
			assert.ErrorIs(t, err, purchase.ErrInvalid)
		})
	}
}
