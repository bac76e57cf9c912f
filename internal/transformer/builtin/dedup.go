package builtin

import (
	"fmt"
	"strings"

	"github.com/zeebo/xxh3"

	"tabjobs/internal/table"
)

// Dedup policies.
const (
	KeepFirst    = "keep-first"
	KeepLast     = "keep-last"
	MostComplete = "most-complete"
)

// Dedup collapses rows that share the same values in Keys.
//
//   - "keep-first"   : keep the earliest occurrence (default)
//   - "keep-last"    : keep the latest occurrence
//   - "most-complete": keep the row with the most non-missing cells; ties
//     break toward the later row
//
// Surviving rows keep their original relative order. A row whose key has a
// missing or sentinel value in any key column cannot be compared and is
// always kept. With no Keys, every column is part of the key.
//
// Keys are hashed with xxh3 into buckets; equal hashes are confirmed by
// comparing the key values, so the pass is linear in the row count.
type Dedup struct {
	Keys   []string
	Policy string
}

// Deduplicate keeps the first row for each distinct key.
func Deduplicate(t table.Table, keys ...string) (table.Table, error) {
	return Dedup{Keys: keys}.Apply(t)
}

func (d Dedup) Apply(t table.Table) (table.Table, error) {
	policy := strings.ToLower(strings.TrimSpace(d.Policy))
	switch policy {
	case "":
		policy = KeepFirst
	case KeepFirst, KeepLast, MostComplete:
	default:
		return table.Table{}, table.Errorf("dedup", table.ErrInvalidExpression, "", "unknown policy %q", d.Policy)
	}

	names := d.Keys
	if len(names) == 0 {
		names = t.Names()
	}
	keys := make([]table.Column, len(names))
	for i, n := range names {
		c, err := t.Column(n)
		if err != nil {
			return table.Table{}, table.NotFound("dedup", n)
		}
		keys[i] = c
	}
	cols := t.Columns()

	sameKey := func(a, b int) bool {
		for _, c := range keys {
			if !c.Values[a].Equal(c.Values[b]) {
				return false
			}
		}
		return true
	}
	scoreOf := func(r int) int {
		n := 0
		for _, c := range cols {
			if c.Values[r].IsValid() {
				n++
			}
		}
		return n
	}

	type group struct {
		first  int // representative row for collision checks
		winner int
		score  int
	}
	var (
		groups  []group
		buckets = make(map[uint64][]int, t.NumRows())
		keep    = make([]bool, t.NumRows())
		buf     []byte
	)
	for r := 0; r < t.NumRows(); r++ {
		buf = buf[:0]
		keyed := true
		for _, c := range keys {
			v := c.Values[r]
			if !v.IsValid() {
				keyed = false
				break
			}
			buf = v.AppendKey(buf)
			buf = append(buf, '\x1f')
		}
		if !keyed {
			keep[r] = true
			continue
		}
		h := xxh3.Hash(buf)

		gi := -1
		for _, cand := range buckets[h] {
			if sameKey(groups[cand].first, r) {
				gi = cand
				break
			}
		}
		if gi < 0 {
			buckets[h] = append(buckets[h], len(groups))
			g := group{first: r, winner: r}
			if policy == MostComplete {
				g.score = scoreOf(r)
			}
			groups = append(groups, g)
			continue
		}

		g := &groups[gi]
		switch policy {
		case KeepLast:
			g.winner = r
		case MostComplete:
			if s := scoreOf(r); s >= g.score {
				g.winner, g.score = r, s
			}
		}
	}
	for _, g := range groups {
		keep[g.winner] = true
	}

	rows := make([]int, 0, len(groups))
	for r, k := range keep {
		if k {
			rows = append(rows, r)
		}
	}
	return t.Take(rows), nil
}

// String describes the dedup step for logs.
func (d Dedup) String() string {
	p := d.Policy
	if p == "" {
		p = KeepFirst
	}
	return fmt.Sprintf("dedup(%s by %s)", p, strings.Join(d.Keys, ","))
}
