package fixture

import (
	"math/rand/v2"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRand(seed uint64) *rand.Rand { return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }

// TestGenerateDeterministic verifies the same seed yields the same batch.
func TestGenerateDeterministic(t *testing.T) {
	t.Parallel()

	for _, name := range Names() {
		a, err := Generate(name, Options{Rows: 30}, newRand(7))
		require.NoError(t, err, name)
		b, err := Generate(name, Options{Rows: 30}, newRand(7))
		require.NoError(t, err, name)
		assert.Equal(t, a, b, name)
		assert.Len(t, a.Rows, 30, name)
	}
}

func TestGenerateUnknown(t *testing.T) {
	t.Parallel()

	_, err := Generate("weather", Options{Rows: 1}, newRand(1))
	assert.Error(t, err)
	_, err = Generate(SalesName, Options{Rows: -1}, newRand(1))
	assert.Error(t, err)
}

// TestUsersHasDuplicatesAndGaps verifies the user fixture carries repeated
// e-mails and absent cells.
func TestUsersHasDuplicatesAndGaps(t *testing.T) {
	t.Parallel()

	r := Users(Options{Rows: 20}, newRand(3))
	emails := map[string]int{}
	absent := 0
	for i := range r.Rows {
		for j := range r.Header {
			if r.Cell(i, j).Missing {
				absent++
			}
		}
		if c := r.Cell(i, 2); !c.Missing {
			emails[c.Text]++
		}
	}
	assert.Greater(t, absent, 0)
	assert.LessOrEqual(t, absent, 8)

	dups := 0
	for _, n := range emails {
		if n > 1 {
			dups++
		}
	}
	assert.Greater(t, dups, 0)
}

func TestCryptoPricesNonNegativeAndDated(t *testing.T) {
	t.Parallel()

	r := Crypto(Options{Rows: 50}, newRand(11))
	prev := ""
	for i := range r.Rows {
		d := r.Cell(i, 0).Text
		assert.Greater(t, d, prev)
		prev = d
		p, err := strconv.ParseFloat(r.Cell(i, 1).Text, 64)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, p, 0.0)
	}
	assert.Equal(t, "2024-01-01", r.Cell(0, 0).Text)
}
