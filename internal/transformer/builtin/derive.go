package builtin

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"tabjobs/internal/table"
)

// Operand is a column reference or a numeric constant.
type Operand struct {
	Column string
	Const  float64
}

// IsConst reports whether the operand is a literal.
func (o Operand) IsConst() bool { return o.Column == "" }

func (o Operand) String() string {
	if o.IsConst() {
		return strconv.FormatFloat(o.Const, 'f', -1, 64)
	}
	return o.Column
}

// Expr derives a Float column Name = Left Op Right, Op one of + - * /.
//
// A missing or sentinel operand, division by zero, or an overflow yields a
// missing result. Results are rounded to Precision decimals; a negative
// Precision leaves them unrounded.
type Expr struct {
	Name      string
	Left      Operand
	Op        byte
	Right     Operand
	Precision int
}

// ParseExpr parses "quantity * price" style binary expressions. Operands are
// column names or numeric literals.
func ParseExpr(name, src string, precision int) (Expr, error) {
	bad := func(msg string) (Expr, error) {
		return Expr{}, &table.Error{Op: "derive", Kind: table.ErrInvalidExpression, Column: name, Row: -1, Value: src, Msg: msg}
	}
	s := strings.TrimSpace(src)
	opAt := -1
	if f := strings.Fields(s); len(f) == 3 && len(f[1]) == 1 && strings.Contains("+-*/", f[1]) {
		opAt = strings.Index(s, " "+f[1]+" ") + 1
	} else {
		// First operator that is not a sign or an exponent sign.
		for i := 1; i < len(s); i++ {
			if !strings.ContainsRune("+-*/", rune(s[i])) {
				continue
			}
			if (s[i] == '+' || s[i] == '-') && (s[i-1] == 'e' || s[i-1] == 'E') && isNumberPrefix(s[:i-1]) {
				continue
			}
			opAt = i
			break
		}
	}
	if opAt <= 0 {
		return bad("expected <operand> <op> <operand>")
	}
	l, r := strings.TrimSpace(s[:opAt]), strings.TrimSpace(s[opAt+1:])
	if l == "" || r == "" {
		return bad("empty operand")
	}
	return Expr{Name: name, Left: parseOperand(l), Op: s[opAt], Right: parseOperand(r), Precision: precision}, nil
}

func parseOperand(s string) Operand {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Operand{Const: f}
	}
	return Operand{Column: s}
}

func isNumberPrefix(s string) bool {
	s = strings.TrimSpace(s)
	_, err := strconv.ParseFloat(s, 64)
	return s != "" && err == nil
}

func (e Expr) String() string {
	return fmt.Sprintf("%s = %s %c %s", e.Name, e.Left, e.Op, e.Right)
}

// Derive appends (or replaces) the column computed by e.
func Derive(t table.Table, e Expr) (table.Table, error) { return e.Apply(t) }

func (e Expr) Apply(t table.Table) (table.Table, error) {
	if e.Name == "" {
		return table.Table{}, table.Errorf("derive", table.ErrInvalidExpression, "", "derived column needs a name")
	}
	if !strings.ContainsRune("+-*/", rune(e.Op)) {
		return table.Table{}, table.Errorf("derive", table.ErrInvalidExpression, e.Name, "unknown operator %q", e.Op)
	}
	left, err := e.operand(t, e.Left)
	if err != nil {
		return table.Table{}, err
	}
	right, err := e.operand(t, e.Right)
	if err != nil {
		return table.Table{}, err
	}

	vals := make([]table.Value, t.NumRows())
	for i := range vals {
		a, aok := left(i)
		b, bok := right(i)
		if !aok || !bok {
			vals[i] = table.Missing(table.Float)
			continue
		}
		var v float64
		switch e.Op {
		case '+':
			v = a + b
		case '-':
			v = a - b
		case '*':
			v = a * b
		case '/':
			if b == 0 {
				vals[i] = table.Missing(table.Float)
				continue
			}
			v = a / b
		}
		if math.IsInf(v, 0) {
			vals[i] = table.Missing(table.Float)
			continue
		}
		vals[i] = table.FloatValue(table.Round(v, e.Precision))
	}
	return t.WithColumn(table.Column{Name: e.Name, Kind: table.Float, Values: vals})
}

func (e Expr) operand(t table.Table, o Operand) (func(int) (float64, bool), error) {
	if o.IsConst() {
		return func(int) (float64, bool) { return o.Const, true }, nil
	}
	c, err := t.Column(o.Column)
	if err != nil {
		return nil, &table.Error{Op: "derive", Kind: table.ErrInvalidExpression, Column: o.Column, Row: -1,
			Msg: fmt.Sprintf("%s: no such column", e)}
	}
	if !c.Kind.Numeric() {
		return nil, &table.Error{Op: "derive", Kind: table.ErrInvalidExpression, Column: o.Column, Row: -1,
			Msg: fmt.Sprintf("%s: %s column is not numeric", e, c.Kind)}
	}
	return func(i int) (float64, bool) { return c.Values[i].Float() }, nil
}
