package interp

import (
	"fmt"
	"math"
)

// NumKind tags which of the three numeric sub-variants a Number holds.
type NumKind uint8

const (
	NumInt NumKind = iota
	NumFloat
	NumRational
)

// Number is the numeric tower: Int (signed word), Float (IEEE-754
// double), and Rational (always-reduced numerator/denominator pair),
// with a lifting lattice Int < Rational < Float for binary operations.
type Number struct {
	Kind NumKind
	I    int64
	F    float64
	RNum int64
	RDen int64 // always > 0, always reduced with RNum via gcd
}

// Int builds an integer Number.
func Int(i int64) Number { return Number{Kind: NumInt, I: i} }

// Float builds a floating point Number.
func Float(f float64) Number { return Number{Kind: NumFloat, F: f} }

// Rational builds a reduced rational Number. Panics if den is zero, since
// this is a host programming error, not a language-level ArithmeticError
// (callers must check for zero divisors themselves; see Div).
func Rational(num, den int64) Number {
	if den == 0 {
		panic("interp: rational with zero denominator")
	}
	return Number{Kind: NumRational, RNum: num, RDen: den}.reduce()
}

func gcdInt(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

func (n Number) reduce() Number {
	if n.Kind != NumRational {
		return n
	}
	if n.RDen < 0 {
		n.RNum, n.RDen = -n.RNum, -n.RDen
	}
	d := gcdInt(n.RNum, n.RDen)
	n.RNum /= d
	n.RDen /= d
	return n
}

// ToFloat converts any Number to its closest float64 approximation.
func (n Number) ToFloat() float64 {
	switch n.Kind {
	case NumInt:
		return float64(n.I)
	case NumFloat:
		return n.F
	case NumRational:
		return float64(n.RNum) / float64(n.RDen)
	}
	return 0
}

// ToInt truncates any Number toward zero.
func (n Number) ToInt() int64 {
	switch n.Kind {
	case NumInt:
		return n.I
	case NumFloat:
		return int64(n.F)
	case NumRational:
		return int64(n.ToFloat())
	}
	return 0
}

func asRational(n Number) Number {
	if n.Kind == NumRational {
		return n
	}
	return Rational(n.I, 1)
}

// join computes the lifted result kind for a binary op between a and b,
// per the lattice Int < Rational < Float.
func join(a, b NumKind) NumKind {
	if a == NumFloat || b == NumFloat {
		return NumFloat
	}
	if a == NumRational || b == NumRational {
		return NumRational
	}
	return NumInt
}

// Add implements +.
func (a Number) Add(b Number) Number {
	switch join(a.Kind, b.Kind) {
	case NumInt:
		return Int(a.I + b.I)
	case NumFloat:
		return Float(a.ToFloat() + b.ToFloat())
	default:
		ra, rb := asRational(a), asRational(b)
		return Rational(ra.RNum*rb.RDen+rb.RNum*ra.RDen, ra.RDen*rb.RDen)
	}
}

// Sub implements -.
func (a Number) Sub(b Number) Number {
	switch join(a.Kind, b.Kind) {
	case NumInt:
		return Int(a.I - b.I)
	case NumFloat:
		return Float(a.ToFloat() - b.ToFloat())
	default:
		ra, rb := asRational(a), asRational(b)
		return Rational(ra.RNum*rb.RDen-rb.RNum*ra.RDen, ra.RDen*rb.RDen)
	}
}

// Mul implements *.
func (a Number) Mul(b Number) Number {
	switch join(a.Kind, b.Kind) {
	case NumInt:
		return Int(a.I * b.I)
	case NumFloat:
		return Float(a.ToFloat() * b.ToFloat())
	default:
		ra, rb := asRational(a), asRational(b)
		return Rational(ra.RNum*rb.RNum, ra.RDen*rb.RDen)
	}
}

// ErrZeroDivisor is returned by Div when the divisor is exactly zero,
// wrapped into a KindArithmetic *Error by the caller.
var ErrZeroDivisor = fmt.Errorf("division by zero")

// Div implements /. Int/Int truncates rather than promoting to
// Rational; division by a zero divisor of any kind is an error rather
// than a panic or an infinity.
func (a Number) Div(b Number) (Number, error) {
	if b.isZero() {
		return Number{}, ErrZeroDivisor
	}
	switch join(a.Kind, b.Kind) {
	case NumInt:
		return Int(a.I / b.I), nil
	case NumFloat:
		return Float(a.ToFloat() / b.ToFloat()), nil
	default:
		ra, rb := asRational(a), asRational(b)
		return Rational(ra.RNum*rb.RDen, ra.RDen*rb.RNum), nil
	}
}

func (n Number) isZero() bool {
	switch n.Kind {
	case NumInt:
		return n.I == 0
	case NumFloat:
		return n.F == 0
	case NumRational:
		return n.RNum == 0
	}
	return false
}

// Modulo truncates both operands to Int then returns the Int
// remainder. Lossy for Float and Rational operands, deliberately.
func (a Number) Modulo(b Number) (Number, error) {
	bi := b.ToInt()
	if bi == 0 {
		return Number{}, ErrZeroDivisor
	}
	return Int(a.ToInt() % bi), nil
}

// Floor always returns an Int.
func (n Number) Floor() Number {
	switch n.Kind {
	case NumInt:
		return n
	case NumFloat:
		return Int(int64(math.Floor(n.F)))
	default:
		return Int(int64(math.Floor(n.ToFloat())))
	}
}

// Ceiling always returns an Int.
func (n Number) Ceiling() Number {
	switch n.Kind {
	case NumInt:
		return n
	case NumFloat:
		return Int(int64(math.Ceil(n.F)))
	default:
		return Int(int64(math.Ceil(n.ToFloat())))
	}
}

// Sqrt of an Int floors to an Int, of a Float stays a Float, and of a
// Rational truncates each component's square root independently to Int — approximate in
// general, kept bit-exact to this algorithm for determinism.
func (n Number) Sqrt() Number {
	switch n.Kind {
	case NumInt:
		return Int(int64(math.Floor(math.Sqrt(float64(n.I)))))
	case NumFloat:
		return Float(math.Sqrt(n.F))
	default:
		num := int64(math.Sqrt(float64(n.RNum)))
		den := int64(math.Sqrt(float64(n.RDen)))
		if den == 0 {
			den = 1
		}
		return Rational(num, den)
	}
}

// Compare returns -1, 0, or 1 as a is less than, equal to, or greater
// than b, lifting per the same lattice as the arithmetic operators.
func (a Number) Compare(b Number) int {
	switch join(a.Kind, b.Kind) {
	case NumInt:
		switch {
		case a.I < b.I:
			return -1
		case a.I > b.I:
			return 1
		default:
			return 0
		}
	case NumFloat:
		af, bf := a.ToFloat(), b.ToFloat()
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	default:
		ra, rb := asRational(a), asRational(b)
		lhs := ra.RNum * rb.RDen
		rhs := rb.RNum * ra.RDen
		switch {
		case lhs < rhs:
			return -1
		case lhs > rhs:
			return 1
		default:
			return 0
		}
	}
}

// Eq reports numeric equality across variants: 1 = 1/1 = 1.0.
func (a Number) Eq(b Number) bool { return a.Compare(b) == 0 }

// String renders the number; a rational with denominator 1 prints as a
// bare integer.
func (n Number) String() string {
	switch n.Kind {
	case NumInt:
		return fmt.Sprintf("%d", n.I)
	case NumFloat:
		return fmt.Sprintf("%g", n.F)
	case NumRational:
		if n.RDen == 1 {
			return fmt.Sprintf("%d", n.RNum)
		}
		return fmt.Sprintf("%d/%d", n.RNum, n.RDen)
	}
	return "?"
}
