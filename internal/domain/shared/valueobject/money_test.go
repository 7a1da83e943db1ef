package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoneyFromString(t *testing.T) {
	t.Run("valid string", func(t *testing.T) {
		m, err := NewMoneyFromString("123.45")
		require.NoError(t, err)
		assert.True(t, m.Amount().Equal(decimal.RequireFromString("123.45")))
		assert.Equal(t, BRL, m.Currency())
	})

	t.Run("invalid string", func(t *testing.T) {
		_, err := NewMoneyFromString("not-a-number")
		assert.Error(t, err)
	})
}

func TestMoney_MinorUnits(t *testing.T) {
	assert.Equal(t, int64(100000), MustMoney("1000").MinorUnits())
	assert.Equal(t, int64(1), MustMoney("0.005").MinorUnits())
	assert.Equal(t, int64(33333), NewMoneyFromMinor(33333).MinorUnits())
}

func TestMoney_FloorDiv(t *testing.T) {
	tests := []struct {
		name      string
		total     string
		n         int
		part      string
		remainder string
	}{
		{"even split", "100.00", 4, "25.00", "0.00"},
		{"thirds", "1000.00", 3, "333.33", "0.01"},
		{"more parts than cents", "0.05", 7, "0.00", "0.05"},
		{"single part", "10.99", 1, "10.99", "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			part, rem, err := MustMoney(tt.total).FloorDiv(tt.n)
			require.NoError(t, err)
			assert.Equal(t, tt.part, part.StringFixed())
			assert.Equal(t, tt.remainder, rem.StringFixed())
		})
	}

	t.Run("rejects non-positive divisor", func(t *testing.T) {
		_, _, err := MustMoney("10").FloorDiv(0)
		assert.Error(t, err)
	})
}

func TestMoney_Percentage(t *testing.T) {
	m := MustMoney("100.00")
	assert.Equal(t, "33.33", m.Percentage(decimal.RequireFromString("33.333")).StringFixed())
	assert.Equal(t, "0.01", MustMoney("0.05").Percentage(decimal.NewFromInt(10)).StringFixed())
}

func TestMoney_Arithmetic(t *testing.T) {
	a := MustMoney("10.50")
	b := MustMoney("0.25")

	assert.Equal(t, "10.75", a.Add(b).StringFixed())
	assert.Equal(t, "10.25", a.Subtract(b).StringFixed())
	assert.True(t, b.LessThan(a))
	assert.True(t, a.GreaterThan(b))
	assert.True(t, a.Subtract(a).IsZero())
	assert.True(t, b.Subtract(a).IsNegative())
	assert.Equal(t, "10.50 BRL", a.String())
}

func TestMoney_JSON(t *testing.T) {
	data, err := json.Marshal(MustMoney("12.3"))
	require.NoError(t, err)
	assert.Equal(t, `"12.30"`, string(data))

	var fromString Money
	require.NoError(t, json.Unmarshal([]byte(`"99.99"`), &fromString))
	assert.Equal(t, "99.99", fromString.StringFixed())

	var fromNumber Money
	require.NoError(t, json.Unmarshal([]byte(`42.5`), &fromNumber))
	assert.Equal(t, "42.50", fromNumber.StringFixed())

	var bad Money
	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &bad))
}

func TestMoney_Scan(t *testing.T) {
	var m Money
	require.NoError(t, m.Scan("123.4500"))
	assert.Equal(t, "123.45", m.StringFixed())

	require.NoError(t, m.Scan([]byte("7.10")))
	assert.Equal(t, "7.10", m.StringFixed())

	require.NoError(t, m.Scan(nil))
	assert.True(t, m.IsZero())

	v, err := MustMoney("5.5").Value()
	require.NoError(t, err)
	assert.Equal(t, "5.5", v)
}
