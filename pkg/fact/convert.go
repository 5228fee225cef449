package fact

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/mangle/ast"
)

// Name-constant namespaces used to mirror value variants that Mangle
// constants cannot carry natively.
const (
	factNamePrefix     = "/fact/f"
	externNamePrefix   = "/extern/e"
	instanceNamePrefix = "/instance/"
	voidName           = "/void"
)

// valueToTerm converts a Value into the Mangle term mirrored into the
// engine store. Every variant maps onto a constant; conversion is total.
func valueToTerm(v Value) ast.BaseTerm {
	return valueToConstant(v)
}

func valueToConstant(v Value) ast.Constant {
	switch v.typ {
	case TypeInteger:
		return ast.Number(v.num)
	case TypeFloat:
		return ast.Float64(v.flt)
	case TypeString:
		return ast.String(v.lex)
	case TypeSymbol:
		switch v.lex {
		case symTrue:
			return ast.TrueConstant
		case symFalse:
			return ast.FalseConstant
		}
		if isIdentifier(v.lex) {
			if name, err := ast.Name("/" + v.lex); err == nil {
				return name
			}
		}
		return ast.String(v.lex)
	case TypeFactAddress:
		name, _ := ast.Name(factNamePrefix + strconv.FormatInt(v.fct, 10))
		return name
	case TypeExternalAddress:
		name, _ := ast.Name(externNamePrefix + strconv.FormatInt(v.ext, 10))
		return name
	case TypeInstanceAddress:
		name, _ := ast.Name(instanceNamePrefix + "i" + strconv.FormatInt(v.inst, 10))
		return name
	case TypeInstanceName:
		if isIdentifier(v.lex) {
			if name, err := ast.Name(instanceNamePrefix + v.lex); err == nil {
				return name
			}
		}
		return ast.String(v.lex)
	case TypeVoid:
		name, _ := ast.Name(voidName)
		return name
	case TypeBitmap:
		return ast.String(hex.EncodeToString(v.bits))
	case TypeMultifield:
		elems := make([]ast.Constant, len(v.list))
		for i, item := range v.list {
			elems[i] = valueToConstant(item)
		}
		return ast.List(elems)
	default:
		panic(fmt.Sprintf("fact: cannot convert value of type %s", v.typ))
	}
}

// constantToValue converts an engine constant back into a Value,
// resolving mirrored name namespaces to their address variants.
func (e *Environment) constantToValue(c ast.Constant) Value {
	switch c.Type {
	case ast.NumberType:
		return Value{typ: TypeInteger, num: c.NumValue}
	case ast.Float64Type:
		return Value{typ: TypeFloat, flt: math.Float64frombits(uint64(c.NumValue))}
	case ast.StringType:
		return Value{typ: TypeString, lex: c.Symbol}
	case ast.BytesType:
		return Value{typ: TypeBitmap, bits: []byte(c.Symbol)}
	case ast.NameType:
		sym := c.Symbol
		switch sym {
		case "/true":
			return Value{typ: TypeSymbol, lex: symTrue}
		case "/false":
			return Value{typ: TypeSymbol, lex: symFalse}
		case voidName:
			return Value{typ: TypeVoid}
		}
		if rest, ok := strings.CutPrefix(sym, factNamePrefix); ok {
			if idx, err := strconv.ParseInt(rest, 10, 64); err == nil {
				return Value{typ: TypeFactAddress, fct: idx, env: e}
			}
		}
		if rest, ok := strings.CutPrefix(sym, externNamePrefix); ok {
			if id, err := strconv.ParseInt(rest, 10, 64); err == nil {
				return Value{typ: TypeExternalAddress, ext: id, env: e}
			}
		}
		if rest, ok := strings.CutPrefix(sym, instanceNamePrefix); ok {
			if len(rest) > 1 && rest[0] == 'i' {
				if id, err := strconv.ParseInt(rest[1:], 10, 64); err == nil {
					return Value{typ: TypeInstanceAddress, inst: id, env: e}
				}
			}
			return Value{typ: TypeInstanceName, lex: rest}
		}
		return Value{typ: TypeSymbol, lex: strings.TrimPrefix(sym, "/")}
	default:
		return Value{typ: TypeString, lex: c.String()}
	}
}

// boundAdmits reports whether a declared slot bound accepts a value of
// the given tag. Unrecognized bound expressions are permissive; bound
// enforcement is a convenience on top of Mangle's own analysis, not a
// replacement for it.
func boundAdmits(bound ast.Constant, t Type) bool {
	if bound.Type != ast.NameType {
		return true
	}
	switch bound.Symbol {
	case "/number":
		return t == TypeInteger
	case "/float64":
		return t == TypeFloat
	case "/string":
		return t == TypeString
	case "/bytes":
		return t == TypeBitmap
	case "/name":
		switch t {
		case TypeSymbol, TypeFactAddress, TypeExternalAddress,
			TypeInstanceAddress, TypeInstanceName, TypeVoid:
			return true
		}
		return false
	default:
		return true
	}
}

// boundAdmitsNil reports whether the default nil symbol written into an
// unset slot satisfies the slot's bound.
func boundAdmitsNil(bound ast.Constant) bool {
	return boundAdmits(bound, TypeSymbol)
}

// isIdentifier reports whether s is a valid Mangle name segment:
// [a-z_][a-zA-Z0-9_]*.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	if !(c >= 'a' && c <= 'z') && c != '_' {
		return false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z') && !(c >= 'A' && c <= 'Z') &&
			!(c >= '0' && c <= '9') && c != '_' {
			return false
		}
	}
	return true
}
