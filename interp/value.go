package interp

import (
	"fmt"
	"strings"
)

// Kind tags the variant held by a Value: one struct, many optional
// payload fields, selected by a small enum.
type Kind uint8

const (
	KNull Kind = iota
	KTrue
	KFalse
	KNumber
	KChar
	KString
	KSymbol
	KIdentifier
	KArray
	KList
	KSexpr
	KObject
	KHFunc
	KCFunc
	KMFunc
	KRef
)

func (k Kind) String() string {
	switch k {
	case KNull:
		return "null"
	case KTrue, KFalse:
		return "bool"
	case KNumber:
		return "number"
	case KChar:
		return "char"
	case KString:
		return "string"
	case KSymbol:
		return "symbol"
	case KIdentifier:
		return "identifier"
	case KArray:
		return "array"
	case KList:
		return "list"
	case KSexpr:
		return "sexpr"
	case KObject:
		return "object"
	case KHFunc:
		return "hfunc"
	case KCFunc:
		return "cfunc"
	case KMFunc:
		return "mfunc"
	case KRef:
		return "ref"
	default:
		return "unknown"
	}
}

// Entry is one key/value pair of an Object. Objects keep insertion order
// even though spec semantics treat the order as irrelevant, purely so that
// Display is deterministic.
type Entry struct {
	Key string
	Val Value
}

// Value is one runtime value, of exactly one Kind. Only the fields
// relevant to Kind are meaningful; the rest are zero.
type Value struct {
	Kind Kind

	Num Number // KNumber
	Ch  rune   // KChar

	Str string // KString, KSymbol, KIdentifier

	Items []Value // KArray, KList, KSexpr

	Fields []Entry // KObject

	Handle int // KHFunc: index into the builtin registry

	Params []string // KCFunc, KMFunc: parameter names, in order
	Body   int      // KCFunc, KMFunc: heap id of the Sexpr body
	EnvID  int      // KCFunc: heap id of the captured environment frame

	Ref int // KRef: heap id of the referenced cell
}

// Null, True, False are the three terminal singleton-shaped values.
var (
	Null  = Value{Kind: KNull}
	True  = Value{Kind: KTrue}
	False = Value{Kind: KFalse}
)

// NumberValue wraps a Number as a Value.
func NumberValue(n Number) Value { return Value{Kind: KNumber, Num: n} }

// CharValue wraps a rune as a Value.
func CharValue(r rune) Value { return Value{Kind: KChar, Ch: r} }

// StringValue wraps text as a Value.
func StringValue(s string) Value { return Value{Kind: KString, Str: s} }

// SymbolValue wraps interned text as a Value.
func SymbolValue(s string) Value { return Value{Kind: KSymbol, Str: s} }

// IdentifierValue wraps an unresolved reference name as a Value.
func IdentifierValue(s string) Value { return Value{Kind: KIdentifier, Str: s} }

// ArrayValue builds a vector literal value.
func ArrayValue(items []Value) Value { return Value{Kind: KArray, Items: items} }

// ListValue builds a quoted-list value.
func ListValue(items []Value) Value { return Value{Kind: KList, Items: items} }

// SexprValue builds an unevaluated call-form value.
func SexprValue(items []Value) Value { return Value{Kind: KSexpr, Items: items} }

// ObjectValue builds a key/value record value.
func ObjectValue(fields []Entry) Value { return Value{Kind: KObject, Fields: fields} }

// HFuncValue wraps a built-in handle as a Value.
func HFuncValue(handle int) Value { return Value{Kind: KHFunc, Handle: handle} }

// CFuncValue builds a user closure value.
func CFuncValue(params []string, bodyID, envID int) Value {
	return Value{Kind: KCFunc, Params: params, Body: bodyID, EnvID: envID}
}

// MFuncValue builds a non-evaluating (macro-like) closure value.
func MFuncValue(params []string, bodyID int) Value {
	return Value{Kind: KMFunc, Params: params, Body: bodyID}
}

// RefValue wraps a heap id as a Value.
func RefValue(id int) Value { return Value{Kind: KRef, Ref: id} }

// Bool returns True or False for a host bool, the inverse of Truthy.
func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

// IsCopy reports whether v may be duplicated freely without heap
// allocation. Everything else is heap-resident and shared behind a Ref
// when aliasing matters.
func (v Value) IsCopy() bool {
	switch v.Kind {
	case KNull, KTrue, KFalse, KNumber, KChar, KSymbol, KIdentifier, KHFunc:
		return true
	default:
		return false
	}
}

// IsFunc reports whether v is directly callable (HFunc, CFunc, or MFunc).
func (v Value) IsFunc() bool {
	switch v.Kind {
	case KHFunc, KCFunc, KMFunc:
		return true
	default:
		return false
	}
}

// IsNull reports whether v is the empty-list/unit value.
func (v Value) IsNull() bool { return v.Kind == KNull }

// AsNumber unwraps a numeric payload; ok is false for any other kind.
func (v Value) AsNumber() (Number, bool) { return v.Num, v.Kind == KNumber }

// AsIdentifier unwraps an identifier's name; ok is false for any other
// kind.
func (v Value) AsIdentifier() (string, bool) { return v.Str, v.Kind == KIdentifier }

// AsSexpr unwraps an unevaluated call form's elements; ok is false for
// any other kind.
func (v Value) AsSexpr() ([]Value, bool) { return v.Items, v.Kind == KSexpr }

// Truthy implements the language's truthiness rule: only False is
// falsey. Null and 0 are truthy.
func (v Value) Truthy() bool { return v.Kind != KFalse }

// traceRefs calls visit for every heap id directly reachable from v:
// Ref targets, container elements, object field values, and a
// closure's body and captured environment.
func (v Value) traceRefs(visit func(id int)) {
	switch v.Kind {
	case KRef:
		visit(v.Ref)
	case KArray, KList, KSexpr:
		for _, it := range v.Items {
			it.traceRefs(visit)
		}
	case KObject:
		for _, e := range v.Fields {
			e.Val.traceRefs(visit)
		}
	case KCFunc:
		visit(v.Body)
		visit(v.EnvID)
	case KMFunc:
		visit(v.Body)
	}
}

// Display renders v the way the REPL and the display builtin do: lists as
// '(...), arrays as #(...), sexprs as (...), chars as #\x, booleans as
// #t/#f, symbols with a leading quote, and Ref transparently to its
// target (deref is supplied by the caller via the resolve callback, since
// Value alone cannot walk the heap).
func Display(v Value, resolve func(id int) (Value, bool)) string {
	var b strings.Builder
	display(&b, v, resolve)
	return b.String()
}

func display(b *strings.Builder, v Value, resolve func(int) (Value, bool)) {
	switch v.Kind {
	case KNull:
		b.WriteString("()")
	case KTrue:
		b.WriteString("#t")
	case KFalse:
		b.WriteString("#f")
	case KNumber:
		b.WriteString(v.Num.String())
	case KChar:
		fmt.Fprintf(b, "#\\%c", v.Ch)
	case KString:
		fmt.Fprintf(b, "%q", v.Str)
	case KSymbol:
		b.WriteByte('\'')
		b.WriteString(v.Str)
	case KIdentifier:
		b.WriteString(v.Str)
	case KArray:
		b.WriteString("#(")
		displayItems(b, v.Items, resolve)
		b.WriteByte(')')
	case KList:
		b.WriteString("'(")
		displayItems(b, v.Items, resolve)
		b.WriteByte(')')
	case KSexpr:
		b.WriteByte('(')
		displayItems(b, v.Items, resolve)
		b.WriteByte(')')
	case KObject:
		b.WriteString("{")
		for i, e := range v.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, "%s: ", e.Key)
			display(b, e.Val, resolve)
		}
		b.WriteString("}")
	case KHFunc:
		fmt.Fprintf(b, "#<builtin:%d>", v.Handle)
	case KCFunc:
		fmt.Fprintf(b, "#<lambda(%s)>", strings.Join(v.Params, " "))
	case KMFunc:
		fmt.Fprintf(b, "#<macro(%s)>", strings.Join(v.Params, " "))
	case KRef:
		if resolve != nil {
			if target, ok := resolve(v.Ref); ok {
				display(b, target, resolve)
				return
			}
		}
		fmt.Fprintf(b, "#<ref:%d>", v.Ref)
	default:
		b.WriteString("#<unknown>")
	}
}

func displayItems(b *strings.Builder, items []Value, resolve func(int) (Value, bool)) {
	for i, it := range items {
		if i > 0 {
			b.WriteByte(' ')
		}
		display(b, it, resolve)
	}
}
