package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabjobs/internal/schema"
	"tabjobs/internal/table"
)

func users(t *testing.T) table.Table {
	t.Helper()
	in := raw([]string{"name", "email", "age"},
		[]string{"Ivan", "user0@example.com", "20"},
		[]string{"Maria", "user1@example.com", "<nil>"},
		[]string{"Petr", "user0@example.com", "30"},
		[]string{"<nil>", "<nil>", "41"},
		[]string{"Elena", "<nil>", "42"},
		[]string{"Oleg", "user1@example.com", "50"},
	)
	out, err := Coerce(in, schema.New(
		schema.Column{Name: "name", Kind: table.String, Nullable: true},
		schema.Column{Name: "email", Kind: table.String, Nullable: true},
		schema.Column{Name: "age", Kind: table.Int, Nullable: true},
	))
	require.NoError(t, err)
	return out
}

// TestDeduplicateKeepsFirstInOrder verifies the first occurrence of each key
// survives, input order is preserved, and rows with a missing key are never
// collapsed.
func TestDeduplicateKeepsFirstInOrder(t *testing.T) {
	t.Parallel()

	out, err := Deduplicate(users(t), "email")
	require.NoError(t, err)
	assert.Equal(t, []string{"Ivan", "Maria", "", "Elena"}, strs(t, out, "name"))

	// Idempotent and no duplicate keys remain.
	again, err := Deduplicate(out, "email")
	require.NoError(t, err)
	assert.True(t, out.Equal(again))
}

func TestDedupPolicies(t *testing.T) {
	t.Parallel()

	last, err := Dedup{Keys: []string{"email"}, Policy: KeepLast}.Apply(users(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"Petr", "", "Elena", "Oleg"}, strs(t, last, "name"))

	// Maria lacks an age; Oleg is complete and wins for user1.
	complete, err := Dedup{Keys: []string{"email"}, Policy: MostComplete}.Apply(users(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"Petr", "", "Elena", "Oleg"}, strs(t, complete, "name"))

	_, err = Dedup{Keys: []string{"email"}, Policy: "random"}.Apply(users(t))
	assert.Error(t, err)
}

func TestDedupAllColumnsAndMissingKey(t *testing.T) {
	t.Parallel()

	tb := table.MustNew(table.Column{Name: "a", Kind: table.Int, Values: []table.Value{
		table.IntValue(1), table.IntValue(1), table.Missing(table.Int), table.Missing(table.Int),
	}})
	out, err := Dedup{}.Apply(tb)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "", ""}, strs(t, out, "a"))

	_, err = Deduplicate(tb, "nope")
	require.ErrorIs(t, err, table.ErrKeyNotFound)
}

// TestResolveMissingKeepsKind verifies replacement never changes the column
// kind: a literal that is not an int becomes a sentinel, not zero.
func TestResolveMissingKeepsKind(t *testing.T) {
	t.Parallel()

	in := users(t)
	out, err := ResolveMissing(in, MissingPolicy{
		"name":  Replace("N/A"),
		"email": Replace("N/A"),
		"age":   Replace("N/A"),
	})
	require.NoError(t, err)

	age, _ := out.Column("age")
	assert.Equal(t, table.Int, age.Kind)
	assert.True(t, age.Values[1].IsSentinel())
	_, ok := age.Values[1].Float()
	assert.False(t, ok)
	assert.Equal(t, []string{"Ivan", "Maria", "Petr", "N/A", "Elena", "Oleg"}, strs(t, out, "name"))

	// Input is untouched.
	name, _ := in.Column("name")
	assert.True(t, name.Values[3].IsMissing())

	numeric, err := ResolveMissing(in, MissingPolicy{"age": Replace("0")})
	require.NoError(t, err)
	assert.Equal(t, "0", strs(t, numeric, "age")[1])
}

func TestResolveMissingDrop(t *testing.T) {
	t.Parallel()

	out, err := DropMissing(users(t), "email", "age")
	require.NoError(t, err)
	assert.Equal(t, []string{"Ivan", "Petr", "Oleg"}, strs(t, out, "name"))

	_, err = ResolveMissing(users(t), MissingPolicy{"nope": DropRow()})
	require.ErrorIs(t, err, table.ErrKeyNotFound)
}

func TestFillNullable(t *testing.T) {
	t.Parallel()

	s := schema.New(
		schema.Column{Name: "id", Kind: table.Int},
		schema.Column{Name: "email", Kind: table.String, Nullable: true},
	)
	assert.Equal(t, MissingPolicy{"email": Replace("N/A")}, FillNullable(s, "N/A"))
}

func TestCountMissing(t *testing.T) {
	t.Parallel()

	counts := CountMissing(users(t))
	assert.Equal(t, []MissingCount{{"name", 1}, {"email", 2}, {"age", 1}}, counts)
}

func TestMask(t *testing.T) {
	t.Parallel()

	tb := table.MustNew(table.Column{Name: "email", Kind: table.String, Values: []table.Value{
		table.StringValue("user7@example.com"),
		table.StringValue("a@example.com"),
		table.StringValue("N/A"),
		table.Missing(table.String),
		table.StringValue("ёжик@пример.рф"),
		table.StringValue("@example.com"),
	}})
	out, err := Mask{Column: "email", Keep: 1}.Apply(tb)
	require.NoError(t, err)
	assert.Equal(t, []string{"u****@example.com", "*@example.com", "N/A", "", "ё***@пример.рф", "*@example.com"}, strs(t, out, "email"))

	whole, err := Mask{Column: "email", Keep: 2, Char: '#', Sep: NoSep}.Apply(tb)
	require.NoError(t, err)
	assert.Equal(t, "N/#", strs(t, whole, "email")[2])

	_, err = Mask{Column: "age", Keep: 1}.Apply(tb)
	require.ErrorIs(t, err, table.ErrKeyNotFound)
}
