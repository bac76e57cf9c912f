// Package fixture generates the synthetic raw batches each job starts from.
//
// Generators are deterministic for a given *rand.Rand: the injected source
// is the only randomness they use. Every batch deliberately carries a few
// malformed or absent cells so the cleaning path is always exercised.
package fixture

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"strconv"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"tabjobs/internal/table"
)

// Fixture names, one per job.
const (
	SalesName        = "sales"
	CryptoName       = "crypto"
	UsersName        = "users"
	TransactionsName = "transactions"
	IncidentsName    = "incidents"
)

// Options sizes a fixture.
type Options struct {
	Rows  int
	Start time.Time // first date; defaults to 2024-01-01
}

func (o Options) start() time.Time {
	if o.Start.IsZero() {
		return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return o.Start
}

// Names lists the available fixtures.
func Names() []string {
	return []string{SalesName, CryptoName, UsersName, TransactionsName, IncidentsName}
}

// Generate builds the named fixture.
func Generate(name string, o Options, rng *rand.Rand) (table.Raw, error) {
	if o.Rows < 0 {
		return table.Raw{}, fmt.Errorf("fixture: rows must be >= 0, got %d", o.Rows)
	}
	switch name {
	case SalesName:
		return Sales(o, rng), nil
	case CryptoName:
		return Crypto(o, rng), nil
	case UsersName:
		return Users(o, rng), nil
	case TransactionsName:
		return Transactions(o, rng), nil
	case IncidentsName:
		return Incidents(o, rng), nil
	}
	return table.Raw{}, fmt.Errorf("fixture: unknown fixture %q (have %v)", name, Names())
}

var (
	products     = []string{"Phone", "Laptop", "Tablet", "Headphones"}
	firstNames   = []string{"Ivan", "Maria", "Petr", "Elena", "Alexey"}
	lastNames    = []string{"Ivanov", "Petrova", "Sidorov", "Kuznetsova", "Smirnov"}
	operations   = []string{"Purchase", "Transfer", "Withdrawal"}
	txCategories = []string{"Groceries", "Electronics", "Clothing", "Entertainment"}
	attackTypes  = []string{"Virus", "Phishing", "DDoS", "Spyware"}
	severities   = []string{"Low", "Medium", "High"}
)

func pick(rng *rand.Rand, from []string) string { return from[rng.IntN(len(from))] }

func uniform(rng *rand.Rand, lo, hi float64) float64 { return lo + rng.Float64()*(hi-lo) }

func money(v float64) string { return strconv.FormatFloat(table.Round(v, 2), 'f', -1, 64) }

func day(t time.Time) string { return t.Format(table.DateLayout) }

func texts(vs ...string) []table.Cell {
	out := make([]table.Cell, len(vs))
	for i, v := range vs {
		out[i] = table.Text(v)
	}
	return out
}

// Sales: random dates within 50 days of the start, product, quantity 1..9
// and unit price 5000..150000. About one row in twenty has a corrupted
// date, quantity or price.
func Sales(o Options, rng *rand.Rand) table.Raw {
	r := table.Raw{Header: []string{"Date", "Product", "Quantity", "Price"}}
	start := o.start()
	for i := 0; i < o.Rows; i++ {
		row := texts(
			day(start.AddDate(0, 0, rng.IntN(50))),
			pick(rng, products),
			strconv.Itoa(1+rng.IntN(9)),
			money(uniform(rng, 5000, 150000)),
		)
		if rng.IntN(20) == 0 {
			switch rng.IntN(4) {
			case 0:
				row[0] = table.Text("31/02/2024")
			case 1:
				row[2] = table.Text("several")
			case 2:
				row[3] = table.Text("free")
			default:
				row[3] = table.Null()
			}
		}
		r.Rows = append(r.Rows, row)
	}
	return r
}

// Crypto: one price per day from the start date, a random walk from 30000
// with normally distributed daily returns, floored at zero.
func Crypto(o Options, rng *rand.Rand) table.Raw {
	r := table.Raw{Header: []string{"Date", "Price"}}
	returns := distuv.Normal{Mu: 0.001, Sigma: 0.02, Src: rng}
	price := 30000.0
	start := o.start()
	for i := 0; i < o.Rows; i++ {
		price = math.Max(0, price*(1+returns.Rand()))
		r.Rows = append(r.Rows, texts(day(start.AddDate(0, 0, i)), money(price)))
	}
	return r
}

// Users: names, ages 18..59 and e-mails where the first quarter of the
// addresses repeats, plus two absent cells per column.
func Users(o Options, rng *rand.Rand) table.Raw {
	r := table.Raw{Header: []string{"FirstName", "LastName", "Email", "Age"}}
	unique := o.Rows - o.Rows/4
	for i := 0; i < o.Rows; i++ {
		n := i
		if i >= unique {
			n = i - unique
		}
		r.Rows = append(r.Rows, texts(
			pick(rng, firstNames),
			pick(rng, lastNames),
			fmt.Sprintf("user%d@example.com", n),
			strconv.Itoa(18+rng.IntN(42)),
		))
	}
	if o.Rows > 0 {
		for j := range r.Header {
			for range 2 {
				r.Rows[rng.IntN(o.Rows)][j] = table.Null()
			}
		}
	}
	return r
}

// Transactions: operation type, category, amount 100..5000 and quantity
// 1..19.
func Transactions(o Options, rng *rand.Rand) table.Raw {
	r := table.Raw{Header: []string{"Operation", "Category", "Amount", "Quantity"}}
	for i := 0; i < o.Rows; i++ {
		r.Rows = append(r.Rows, texts(
			pick(rng, operations),
			pick(rng, txCategories),
			money(uniform(rng, 100, 5000)),
			strconv.Itoa(1+rng.IntN(19)),
		))
	}
	return r
}

// Incidents: attack type and severity on consecutive days.
func Incidents(o Options, rng *rand.Rand) table.Raw {
	r := table.Raw{Header: []string{"AttackType", "Severity", "Date"}}
	start := o.start()
	for i := 0; i < o.Rows; i++ {
		r.Rows = append(r.Rows, texts(
			pick(rng, attackTypes),
			pick(rng, severities),
			day(start.AddDate(0, 0, i)),
		))
	}
	return r
}

// Severities returns the severity levels in ascending order.
func Severities() []string { return slices.Clone(severities) }
