package inventory_test

import (
	"testing"

	"github.com/jhoicas/pdv-nfce/internal/domain/inventory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestWeightedAverageCost(t *testing.T) {
	// 10 u a 5.00 + 10 u a 7.00 => 6.00
	assert.True(t, d("6").Equal(inventory.WeightedAverageCost(10, d("5"), 10, d("7"))))
	// sin stock previo => costo de la entrada
	assert.True(t, d("3.33").Equal(inventory.WeightedAverageCost(0, d("9"), 4, d("3.33"))))
	// 3 u a 1.00 + 1 u a 2.00 => 1.25
	assert.True(t, d("1.25").Equal(inventory.WeightedAverageCost(3, d("1"), 1, d("2"))))
	// redondeo a centavos: 2 a 1.00 + 1 a 0.00 => 0.67
	assert.True(t, d("0.67").Equal(inventory.WeightedAverageCost(2, d("1"), 1, d("0"))))
	assert.True(t, decimal.Zero.Equal(inventory.WeightedAverageCost(0, d("1"), 0, d("1"))))
}
