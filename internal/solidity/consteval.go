package solidity

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/math"
)

var units = map[string]*big.Int{
	"wei":     big.NewInt(1),
	"gwei":    big.NewInt(1e9),
	"ether":   new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil),
	"seconds": big.NewInt(1),
	"minutes": big.NewInt(60),
	"hours":   big.NewInt(3600),
	"days":    big.NewInt(86400),
	"weeks":   big.NewInt(604800),
}

var two256 = new(big.Int).Lsh(big.NewInt(1), 256)

// Env resolves an identifier to a constant value.
type Env func(name string) (*big.Int, bool)

// EvalConst folds e to a 256-bit unsigned value, wrapping on overflow as the
// EVM does. Comparisons and logical operators yield 0 or 1. ok is false when
// e reads a non-constant name, calls a function or divides by zero.
func EvalConst(e Expr, env Env) (v *big.Int, ok bool) {
	if len(e) == 0 {
		return nil, false
	}
	ev := &evaluator{toks: e, env: env}
	v, ok = ev.binary(0)
	if !ok || ev.pos != len(ev.toks) {
		return nil, false
	}
	return v, true
}

type evaluator struct {
	toks Expr
	pos  int
	env  Env
}

// Binary operators by precedence, loosest first.
var precedence = map[string]int{
	"||": 1, "&&": 2,
	"==": 3, "!=": 3,
	"<": 4, ">": 4, "<=": 4, ">=": 4,
	"|": 5, "^": 6, "&": 7,
	"<<": 8, ">>": 8,
	"+": 9, "-": 9,
	"*": 10, "/": 10, "%": 10,
	"**": 11,
}

func (ev *evaluator) peek() string {
	if ev.pos < len(ev.toks) {
		return ev.toks[ev.pos].Text
	}
	return ""
}

func (ev *evaluator) binary(minPrec int) (*big.Int, bool) {
	lhs, ok := ev.unary()
	if !ok {
		return nil, false
	}
	for {
		op := ev.peek()
		prec, isOp := precedence[op]
		if !isOp || prec <= minPrec {
			return lhs, true
		}
		ev.pos++
		next := prec
		if op == "**" {
			// Right associative.
			next = prec - 1
		}
		rhs, ok := ev.binary(next)
		if !ok {
			return nil, false
		}
		if lhs, ok = apply(op, lhs, rhs); !ok {
			return nil, false
		}
	}
}

func (ev *evaluator) unary() (*big.Int, bool) {
	switch ev.peek() {
	case "-":
		ev.pos++
		v, ok := ev.unary()
		if !ok {
			return nil, false
		}
		return math.U256(new(big.Int).Neg(v)), true
	case "~":
		ev.pos++
		v, ok := ev.unary()
		if !ok {
			return nil, false
		}
		return math.U256(new(big.Int).Not(v)), true
	case "!":
		ev.pos++
		v, ok := ev.unary()
		if !ok {
			return nil, false
		}
		return boolInt(v.Sign() == 0), true
	}
	return ev.primary()
}

func (ev *evaluator) primary() (*big.Int, bool) {
	if ev.pos >= len(ev.toks) {
		return nil, false
	}
	t := ev.toks[ev.pos]
	ev.pos++
	switch {
	case t.Text == "(":
		v, ok := ev.binary(0)
		if !ok || ev.peek() != ")" {
			return nil, false
		}
		ev.pos++
		return v, true
	case t.Kind == TokNumber:
		v, ok := parseNumber(t.Text)
		if !ok {
			return nil, false
		}
		if u, isUnit := units[ev.peek()]; isUnit {
			ev.pos++
			v = math.U256(new(big.Int).Mul(v, u))
		}
		return v, true
	case t.Text == "true":
		return big.NewInt(1), true
	case t.Text == "false":
		return big.NewInt(0), true
	case t.Kind == TokIdent:
		if ev.peek() == "(" || ev.peek() == "." || ev.peek() == "[" || ev.env == nil {
			return nil, false
		}
		v, ok := ev.env(t.Text)
		if !ok {
			return nil, false
		}
		return new(big.Int).Set(v), true
	}
	return nil, false
}

func parseNumber(s string) (*big.Int, bool) {
	s = strings.ReplaceAll(s, "_", "")
	if mant, exp, ok := strings.Cut(strings.ToLower(s), "e"); ok && !strings.HasPrefix(s, "0x") {
		m, ok1 := math.ParseBig256(mant)
		x, ok2 := math.ParseBig256(exp)
		if !ok1 || !ok2 || x.BitLen() > 16 {
			return nil, false
		}
		return math.U256(m.Mul(m, new(big.Int).Exp(big.NewInt(10), x, nil))), true
	}
	return math.ParseBig256(s)
}

func boolInt(b bool) *big.Int {
	if b {
		return big.NewInt(1)
	}
	return big.NewInt(0)
}

func apply(op string, a, b *big.Int) (*big.Int, bool) {
	r := new(big.Int)
	switch op {
	case "+":
		r.Add(a, b)
	case "-":
		r.Sub(a, b)
	case "*":
		r.Mul(a, b)
	case "/":
		if b.Sign() == 0 {
			return nil, false
		}
		r.Div(a, b)
	case "%":
		if b.Sign() == 0 {
			return nil, false
		}
		r.Mod(a, b)
	case "**":
		r.Exp(a, b, two256)
	case "<<":
		if b.BitLen() > 16 {
			return big.NewInt(0), true
		}
		r.Lsh(a, uint(b.Uint64()))
	case ">>":
		if b.BitLen() > 16 {
			return big.NewInt(0), true
		}
		r.Rsh(a, uint(b.Uint64()))
	case "&":
		r.And(a, b)
	case "|":
		r.Or(a, b)
	case "^":
		r.Xor(a, b)
	case "==":
		return boolInt(a.Cmp(b) == 0), true
	case "!=":
		return boolInt(a.Cmp(b) != 0), true
	case "<":
		return boolInt(a.Cmp(b) < 0), true
	case ">":
		return boolInt(a.Cmp(b) > 0), true
	case "<=":
		return boolInt(a.Cmp(b) <= 0), true
	case ">=":
		return boolInt(a.Cmp(b) >= 0), true
	case "&&":
		return boolInt(a.Sign() != 0 && b.Sign() != 0), true
	case "||":
		return boolInt(a.Sign() != 0 || b.Sign() != 0), true
	default:
		return nil, false
	}
	return math.U256(r), true
}
