package reader_test

import (
	"reflect"
	"testing"

	"github.com/pongascript/pong/interp"
	"github.com/pongascript/pong/reader"
)

func mustParse(t *testing.T, src string) interp.Value {
	t.Helper()
	v, err := reader.ParseOne(src)
	if err != nil {
		t.Fatalf("ParseOne(%q) error: %v", src, err)
	}
	return v
}

func TestParseLiterals(t *testing.T) {
	if v := mustParse(t, "42"); v.Kind != interp.KNumber || v.Num.I != 42 {
		t.Fatalf("got %v", v)
	}
	if v := mustParse(t, "-7"); v.Num.I != -7 {
		t.Fatalf("got %v", v)
	}
	if v := mustParse(t, "3.14"); v.Kind != interp.KNumber || v.Num.Kind != interp.NumFloat {
		t.Fatalf("got %v", v)
	}
	if v := mustParse(t, `"hi there"`); v.Kind != interp.KString || v.Str != "hi there" {
		t.Fatalf("got %v", v)
	}
	if v := mustParse(t, `#\a`); v.Kind != interp.KChar || v.Ch != 'a' {
		t.Fatalf("got %v", v)
	}
	if v := mustParse(t, "#t"); v.Kind != interp.KTrue {
		t.Fatalf("got %v", v)
	}
	if v := mustParse(t, "#f"); v.Kind != interp.KFalse {
		t.Fatalf("got %v", v)
	}
}

func TestNoRationalLiteral(t *testing.T) {
	// Rationals only arise from runtime division; "1/0" and "1/2" are
	// not literals, so a lone one is an integer followed by stray
	// identifier text rather than a number — and can never reach the
	// Rational constructor with a zero denominator.
	if _, err := reader.ParseOne("1/2"); err == nil {
		t.Fatal("expected a trailing-input error for 1/2 at top level")
	}
	if _, err := reader.ParseOne("1/0"); err == nil {
		t.Fatal("expected a trailing-input error for 1/0 at top level")
	}
}

func TestParseRadixIntegers(t *testing.T) {
	cases := []struct {
		src  string
		want int64
	}{
		{"#b1010", 10},
		{"#o17", 15},
		{"#x1F", 31},
		{"#X1f", 31},
		{"#B11", 3},
	}
	for _, c := range cases {
		v := mustParse(t, c.src)
		if v.Kind != interp.KNumber || v.Num.I != c.want {
			t.Errorf("ParseOne(%q) = %v, want %d", c.src, v, c.want)
		}
	}
}

func TestParseFloatForms(t *testing.T) {
	cases := []struct {
		src  string
		want float64
	}{
		{".5", 0.5},
		{"2.", 2.0},
		{"-1.5e2", -150},
		{"+0.25", 0.25},
	}
	for _, c := range cases {
		v := mustParse(t, c.src)
		if v.Kind != interp.KNumber || v.Num.Kind != interp.NumFloat || v.Num.F != c.want {
			t.Errorf("ParseOne(%q) = %v, want float %g", c.src, v, c.want)
		}
	}
}

func TestParseStringEscapes(t *testing.T) {
	v := mustParse(t, `"a\n\t\r\b\f\/\\\"z"`)
	if v.Str != "a\n\t\r\b\f/\\\"z" {
		t.Fatalf("got %q", v.Str)
	}
	v = mustParse(t, `"\u{1F600}"`)
	if v.Str != "\U0001F600" {
		t.Fatalf("got %q, want a single emoji code point", v.Str)
	}
}

func TestSemicolonDelimitsIdentifiers(t *testing.T) {
	v := mustParse(t, "foo; trailing comment\n")
	if v.Kind != interp.KIdentifier || v.Str != "foo" {
		t.Fatalf("got %v, want identifier foo", v)
	}
}

func TestParseIdentifierWithComma(t *testing.T) {
	v := mustParse(t, "a,b")
	if v.Kind != interp.KIdentifier || v.Str != "a,b" {
		t.Fatalf("got %v, want identifier a,b", v)
	}
	// Interior '#' is an ordinary identifier character; only a leading
	// '#' selects hash syntax.
	v = mustParse(t, "ab,#c")
	if v.Kind != interp.KIdentifier || v.Str != "ab,#c" {
		t.Fatalf("got %v, want identifier ab,#c", v)
	}
}

func TestParseSymbol(t *testing.T) {
	v := mustParse(t, "'foo")
	if v.Kind != interp.KSymbol || v.Str != "foo" {
		t.Fatalf("got %v", v)
	}
}

func TestParseQuotedList(t *testing.T) {
	v := mustParse(t, "'(1 2 3)")
	if v.Kind != interp.KList || len(v.Items) != 3 {
		t.Fatalf("got %v", v)
	}
}

func TestParseVector(t *testing.T) {
	v := mustParse(t, "#(1 2 3)")
	if v.Kind != interp.KArray || len(v.Items) != 3 {
		t.Fatalf("got %v", v)
	}
}

func TestParseSexpr(t *testing.T) {
	v := mustParse(t, "(+ 1 2)")
	if v.Kind != interp.KSexpr || len(v.Items) != 3 {
		t.Fatalf("got %v", v)
	}
	if v.Items[0].Kind != interp.KIdentifier || v.Items[0].Str != "+" {
		t.Fatalf("head = %v", v.Items[0])
	}
}

func TestParseNestedSexpr(t *testing.T) {
	v := mustParse(t, "(define (f x) (+ x 1))")
	if v.Kind != interp.KSexpr || len(v.Items) != 3 {
		t.Fatalf("got %v", v)
	}
}

func TestDisplayParseRoundTrip(t *testing.T) {
	srcs := []string{
		"42", "-7", "#t", "#f", `"hi there"`, `#\a`,
		"'foo", "'(1 2 3)", "#(1 2)", "(+ 1 2)",
	}
	for _, src := range srcs {
		v := mustParse(t, src)
		printed := interp.Display(v, nil)
		v2 := mustParse(t, printed)
		if !reflect.DeepEqual(v, v2) {
			t.Errorf("round trip of %q: printed %q, reparsed %#v != %#v", src, printed, v2, v)
		}
	}
}

func TestTrailingInputIsAnError(t *testing.T) {
	if _, err := reader.ParseOne("(+ 1 2) extra"); err == nil {
		t.Fatal("expected an error for trailing input after the form")
	}
}

func TestUnterminatedFormReportsError(t *testing.T) {
	_, err := reader.ParseOne("(+ 1 2")
	if err == nil {
		t.Fatal("expected an error for an unterminated form")
	}
}

func TestParseAllMultipleForms(t *testing.T) {
	vals, err := reader.ParseAll("(define x 1)\n(define y 2)\n")
	if err != nil {
		t.Fatal(err)
	}
	if len(vals) != 2 {
		t.Fatalf("got %d forms, want 2", len(vals))
	}
}

func TestCommentsAreSkipped(t *testing.T) {
	v := mustParse(t, "; a comment\n42 ; trailing\n")
	if v.Kind != interp.KNumber || v.Num.I != 42 {
		t.Fatalf("got %v", v)
	}
}
