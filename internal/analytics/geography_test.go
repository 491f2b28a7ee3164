package analytics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailpulse/pkg/contracts/domain"
)

func countrySales(n int) []domain.Transaction {
	var sales []domain.Transaction
	for i := 0; i < n; i++ {
		country := fmt.Sprintf("K%02d", i+1)
		sales = append(sales, newTx(fmt.Sprintf("%d", i), "c1", "P", country, 1, fmt.Sprintf("%d", 1000-i), day1))
	}
	return sales
}

func TestCountryRevenueTiers(t *testing.T) {
	countries := CountryRevenue(countrySales(35))
	require.Len(t, countries, 35)

	assert.Equal(t, "K01", countries[0].Country)
	assert.Equal(t, 1, countries[0].Rank)
	assert.Equal(t, domain.TierTop20, countries[19].Tier)
	assert.Equal(t, domain.TierOthers, countries[20].Tier)
	assert.Equal(t, domain.TierOthers, countries[24].Tier)
	assert.Equal(t, domain.TierLast10, countries[25].Tier)
	assert.Equal(t, domain.TierLast10, countries[34].Tier)
}

func TestCountryRevenueBottomTierWinsOverlap(t *testing.T) {
	countries := CountryRevenue(countrySales(25))
	assert.Equal(t, domain.TierTop20, countries[14].Tier)
	assert.Equal(t, domain.TierLast10, countries[15].Tier)
}

func TestCancellationsByCountry(t *testing.T) {
	cancellations := []domain.Transaction{
		newTx("C1", "c1", "A", "France", -1, "1", day1),
		newTx("C1", "c1", "B", "France", -1, "1", day1),
		newTx("C2", "c1", "A", "UK", -1, "1", day1),
		newTx("C3", "c2", "A", "UK", -1, "1", day1),
	}
	result := CancellationsByCountry(cancellations)
	require.Equal(t, 2, result.Len())
	assert.Equal(t, "UK", result.Rows[0].Key.Label)
	assert.True(t, dec("2").Equal(result.Rows[0].Value))
	assert.True(t, dec("1").Equal(result.Rows[1].Value))
}

func TestTopProductsByCountry(t *testing.T) {
	sales := []domain.Transaction{
		newTx("1", "c1", "Mug", "France", 1, "5", day1),
		newTx("2", "c1", "Lamp", "France", 1, "50", day1),
		newTx("3", "c1", "Bag", "France", 1, "20", day1),
		newTx("4", "c2", "Mug", "UK", 1, "500", day1),
	}

	result, err := TopProductsByCountry(sales, 2, 10)
	require.NoError(t, err)
	require.Len(t, result, 2)

	assert.Equal(t, "UK", result[0].Country)
	assert.Equal(t, "France", result[1].Country)
	require.Len(t, result[1].Products, 2)
	assert.Equal(t, "Lamp", result[1].Products[0].Key.Label)
	assert.Equal(t, "Bag", result[1].Products[1].Key.Label)
}

func TestTopProductsByCountryCapacity(t *testing.T) {
	result, err := TopProductsByCountry(countrySales(11), 10, 10)
	assert.True(t, errors.Is(err, ErrCapacityExceeded))
	assert.Nil(t, result)

	result, err = TopProductsByCountry(countrySales(11), 10, 0)
	require.NoError(t, err)
	assert.Len(t, result, 11)
}
