package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundDownToStep(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		x    float64
		step float64
		want float64
	}{
		{"exact", 0.25, 0.01, 0.25},
		{"rounds_down", 0.257, 0.01, 0.25},
		{"below_step", 0.004, 0.01, 0.0},
		{"coarse_step", 0.37, 0.1, 0.3},
		{"zero_step_passthrough", 0.123, 0, 0.123},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, RoundDownToStep(tt.x, tt.step), 1e-12)
		})
	}
}

func TestPipValuePerLot(t *testing.T) {
	t.Parallel()

	info := SymbolInfo{
		Symbol:       "EURUSD",
		Point:        0.0001,
		Digits:       5,
		ContractSize: 100000,
		LotStep:      0.01,
		MinLot:       0.01,
	}
	assert.InDelta(t, 10.0, info.PipValuePerLot(), 1e-9)
	assert.NoError(t, info.Validate())
}

func TestSymbolInfoValidate(t *testing.T) {
	t.Parallel()

	bad := SymbolInfo{Symbol: "EURUSD", Point: 0, ContractSize: 100000, LotStep: 0.01, MinLot: 0.01}
	assert.Error(t, bad.Validate())

	bad = SymbolInfo{Symbol: "", Point: 0.0001, ContractSize: 100000, LotStep: 0.01, MinLot: 0.01}
	assert.Error(t, bad.Validate())
}

func TestSideAndType(t *testing.T) {
	t.Parallel()

	assert.True(t, Buy.Valid())
	assert.True(t, Sell.Valid())
	assert.False(t, Side("hold").Valid())
	assert.True(t, Market.Valid())
	assert.False(t, OrderType("iceberg").Valid())
}
