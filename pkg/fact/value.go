// Package fact is a typed binding layer over a Mangle-backed fact engine.
// It covers value marshalling between native Go types and the engine's
// tagged value model, staged fact construction, fact retraction, and
// iteration over live facts. Rule evaluation itself belongs to Mangle;
// this package only moves data across that boundary.
package fact

import "fmt"

// Type identifies the active variant of a Value. The tag is the single
// authoritative discriminator; no payload field is meaningful unless the
// tag selects it.
type Type uint16

const (
	TypeFloat Type = iota
	TypeInteger
	TypeSymbol
	TypeString
	TypeMultifield
	TypeExternalAddress
	TypeFactAddress
	TypeInstanceAddress
	TypeInstanceName
	TypeVoid
	TypeBitmap
)

// String returns the lowercase name of the type tag.
func (t Type) String() string {
	switch t {
	case TypeFloat:
		return "float"
	case TypeInteger:
		return "integer"
	case TypeSymbol:
		return "symbol"
	case TypeString:
		return "string"
	case TypeMultifield:
		return "multifield"
	case TypeExternalAddress:
		return "external-address"
	case TypeFactAddress:
		return "fact-address"
	case TypeInstanceAddress:
		return "instance-address"
	case TypeInstanceName:
		return "instance-name"
	case TypeVoid:
		return "void"
	case TypeBitmap:
		return "bitmap"
	default:
		return fmt.Sprintf("type(%d)", uint16(t))
	}
}

// Sym marks a string as an engine symbol rather than an engine string.
// Booleans cross the boundary as the canonical symbols "TRUE" and "FALSE".
type Sym string

// Canonical boolean lexemes.
const (
	symTrue  = "TRUE"
	symFalse = "FALSE"
	symNil   = "nil"
)

// Value is the engine's tagged union as seen by the host.
type Value struct {
	typ  Type
	num  int64
	flt  float64
	lex  string
	list []Value
	bits []byte
	ext  int64
	fct  int64
	inst int64
	env  *Environment
}

// Type reports the active variant.
func (v Value) Type() Type { return v.typ }

// Void returns the void value.
func Void() Value { return Value{typ: TypeVoid} }

// Allocatable is implemented by host types that know how to place
// themselves into an Environment's value model. Fact implements it so a
// fact handle can be written into a slot as a fact address.
type Allocatable interface {
	Allocate(env *Environment) Value
}

// Allocate converts a supported host value into an engine Value. It is
// total over the supported set: all signed and unsigned integer widths,
// both float widths, string, Sym, bool, []byte (bitmap), []Value
// (multifield), and any Allocatable. An unsupported host type is a
// programmer error and panics.
func Allocate(env *Environment, host any) Value {
	switch h := host.(type) {
	case Value:
		return h
	case Allocatable:
		return h.Allocate(env)
	case int:
		return Value{typ: TypeInteger, num: int64(h)}
	case int8:
		return Value{typ: TypeInteger, num: int64(h)}
	case int16:
		return Value{typ: TypeInteger, num: int64(h)}
	case int32:
		return Value{typ: TypeInteger, num: int64(h)}
	case int64:
		return Value{typ: TypeInteger, num: h}
	case uint:
		return Value{typ: TypeInteger, num: int64(h)}
	case uint8:
		return Value{typ: TypeInteger, num: int64(h)}
	case uint16:
		return Value{typ: TypeInteger, num: int64(h)}
	case uint32:
		return Value{typ: TypeInteger, num: int64(h)}
	case uint64:
		return Value{typ: TypeInteger, num: int64(h)}
	case float32:
		return Value{typ: TypeFloat, flt: float64(h)}
	case float64:
		return Value{typ: TypeFloat, flt: h}
	case string:
		return Value{typ: TypeString, lex: h}
	case Sym:
		return Value{typ: TypeSymbol, lex: string(h)}
	case bool:
		if h {
			return Value{typ: TypeSymbol, lex: symTrue}
		}
		return Value{typ: TypeSymbol, lex: symFalse}
	case []byte:
		return Value{typ: TypeBitmap, bits: h}
	case []Value:
		return Value{typ: TypeMultifield, list: h}
	case []string:
		list := make([]Value, len(h))
		for i, s := range h {
			list[i] = Value{typ: TypeString, lex: s}
		}
		return Value{typ: TypeMultifield, list: list}
	default:
		panic(fmt.Sprintf("fact: cannot allocate host value of type %T", host))
	}
}

// NewExternalAddress registers an arbitrary host object with the
// Environment and returns an external-address Value referring to it.
func NewExternalAddress(env *Environment, obj any) Value {
	id := env.registerExternal(obj)
	return Value{typ: TypeExternalAddress, ext: id, env: env}
}

// NewInstanceName wraps an instance name lexeme.
func NewInstanceName(name string) Value {
	return Value{typ: TypeInstanceName, lex: name}
}

// As extracts the typed payload of v when the active tag matches T.
// The second return is false on any tag mismatch; a mismatch is an
// expected outcome when inspecting engine-produced values, not a fault.
//
// Supported T: every integer width (TypeInteger), float32/float64
// (TypeFloat), string (TypeString), Sym (TypeSymbol), bool (TypeSymbol
// with a TRUE/FALSE lexeme), []Value (TypeMultifield), []byte
// (TypeBitmap), and *Fact (TypeFactAddress, resolved against the
// owning Environment).
func As[T any](v Value) (T, bool) {
	var zero T
	switch any(zero).(type) {
	case int:
		if v.typ == TypeInteger {
			return any(int(v.num)).(T), true
		}
	case int8:
		if v.typ == TypeInteger {
			return any(int8(v.num)).(T), true
		}
	case int16:
		if v.typ == TypeInteger {
			return any(int16(v.num)).(T), true
		}
	case int32:
		if v.typ == TypeInteger {
			return any(int32(v.num)).(T), true
		}
	case int64:
		if v.typ == TypeInteger {
			return any(v.num).(T), true
		}
	case uint:
		if v.typ == TypeInteger {
			return any(uint(v.num)).(T), true
		}
	case uint8:
		if v.typ == TypeInteger {
			return any(uint8(v.num)).(T), true
		}
	case uint16:
		if v.typ == TypeInteger {
			return any(uint16(v.num)).(T), true
		}
	case uint32:
		if v.typ == TypeInteger {
			return any(uint32(v.num)).(T), true
		}
	case uint64:
		if v.typ == TypeInteger {
			return any(uint64(v.num)).(T), true
		}
	case float32:
		if v.typ == TypeFloat {
			return any(float32(v.flt)).(T), true
		}
	case float64:
		if v.typ == TypeFloat {
			return any(v.flt).(T), true
		}
	case string:
		if v.typ == TypeString {
			return any(v.lex).(T), true
		}
	case Sym:
		if v.typ == TypeSymbol {
			return any(Sym(v.lex)).(T), true
		}
	case bool:
		if v.typ == TypeSymbol {
			switch v.lex {
			case symTrue:
				return any(true).(T), true
			case symFalse:
				return any(false).(T), true
			}
		}
	case []Value:
		if v.typ == TypeMultifield {
			return any(v.list).(T), true
		}
	case []byte:
		if v.typ == TypeBitmap {
			return any(v.bits).(T), true
		}
	case *Fact:
		if v.typ == TypeFactAddress && v.env != nil {
			if f, ok := v.env.liveFact(v.fct); ok {
				return any(f).(T), true
			}
		}
	}
	return zero, false
}

// External returns the host object behind an external-address value.
func (v Value) External() (any, bool) {
	if v.typ != TypeExternalAddress || v.env == nil {
		return nil, false
	}
	return v.env.lookupExternal(v.ext)
}
