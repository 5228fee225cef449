package factmap

import (
	"fmt"
	"reflect"

	"factbind/pkg/fact"
)

// View is the read-accessor contract a compiled mapping generates: one
// read-only query per mapped field, keyed by Go field name, returning
// the field's resolved representation. Both the host struct and a live
// fact satisfy it. Asking for a field the mapping does not declare, or
// through a getter that does not match the field's type, is a
// programmer error and panics.
type View interface {
	Int(field string) int64
	Uint(field string) uint64
	Float(field string) float64
	Text(field string) string
	Sym(field string) fact.Sym
	Bool(field string) bool
	Strings(field string) []string
	Bytes(field string) []byte
	Ref(field string) *fact.Fact
	Any(field string) any
}

// Host wraps a struct value in the mapping's accessor contract.
func (m *Mapping[T]) Host(host *T) View {
	return &hostView[T]{m: m, host: host}
}

type hostView[T any] struct {
	m    *Mapping[T]
	host *T
}

func (v *hostView[T]) fieldValue(field string, want slotKind, getter string) reflect.Value {
	fm := v.m.field(field)
	if fm.kind != want {
		panic(fmt.Sprintf("factmap: field %q of template %q is %s, not readable via %s",
			field, v.m.template, fm.typ, getter))
	}
	return reflect.ValueOf(v.host).Elem().Field(fm.index)
}

func (v *hostView[T]) Int(field string) int64 {
	return v.fieldValue(field, kindInt, "Int").Int()
}

func (v *hostView[T]) Uint(field string) uint64 {
	return v.fieldValue(field, kindUint, "Uint").Uint()
}

func (v *hostView[T]) Float(field string) float64 {
	return v.fieldValue(field, kindFloat, "Float").Float()
}

func (v *hostView[T]) Text(field string) string {
	return v.fieldValue(field, kindText, "Text").String()
}

func (v *hostView[T]) Sym(field string) fact.Sym {
	return fact.Sym(v.fieldValue(field, kindSym, "Sym").String())
}

func (v *hostView[T]) Bool(field string) bool {
	return v.fieldValue(field, kindBool, "Bool").Bool()
}

func (v *hostView[T]) Strings(field string) []string {
	fm := v.m.field(field)
	rv := v.fieldValue(field, kindStrings, "Strings")
	if fm.policy == PolicyBorrow {
		if s, ok := rv.Interface().([]string); ok {
			return s
		}
	}
	out := make([]string, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).String()
	}
	return out
}

func (v *hostView[T]) Bytes(field string) []byte {
	fm := v.m.field(field)
	rv := v.fieldValue(field, kindBytes, "Bytes")
	if fm.policy == PolicyBorrow {
		return rv.Bytes()
	}
	out := make([]byte, rv.Len())
	copy(out, rv.Bytes())
	return out
}

func (v *hostView[T]) Ref(field string) *fact.Fact {
	rv := v.fieldValue(field, kindFact, "Ref")
	f, _ := rv.Interface().(*fact.Fact)
	return f
}

func (v *hostView[T]) Any(field string) any {
	fm := v.m.field(field)
	switch fm.kind {
	case kindInt:
		return v.Int(field)
	case kindUint:
		return v.Uint(field)
	case kindFloat:
		return v.Float(field)
	case kindText:
		return v.Text(field)
	case kindSym:
		return v.Sym(field)
	case kindBool:
		return v.Bool(field)
	case kindStrings:
		return v.Strings(field)
	case kindBytes:
		return v.Bytes(field)
	case kindFact:
		return v.Ref(field)
	default:
		panic(fmt.Sprintf("factmap: field %q has unknown kind", field))
	}
}

// Asserted wraps a live fact in the mapping's accessor contract. A tag
// mismatch between the mapping and the fact's actual slot values means
// the compiled mapping disagrees with the live schema; that is a fatal
// internal-consistency fault, not a recoverable condition.
type Asserted[T any] struct {
	m *Mapping[T]
	f *fact.Fact
}

// Wrap places an existing live fact behind the mapping's accessor
// contract. The fact is assumed to have been asserted against the same
// schema the mapping was compiled for.
func (m *Mapping[T]) Wrap(f *fact.Fact) *Asserted[T] {
	return &Asserted[T]{m: m, f: f}
}

// Fact returns the underlying live fact handle.
func (a *Asserted[T]) Fact() *fact.Fact { return a.f }

func (a *Asserted[T]) slot(field string) (fact.Value, *fieldMapping) {
	fm := a.m.field(field)
	return a.f.Slot(fm.slot), fm
}

func mustAs[V any](v fact.Value, template, slot string) V {
	out, ok := fact.As[V](v)
	if !ok {
		panic(fmt.Sprintf("factmap: slot %q of template %q holds %s; mapping diverges from schema",
			slot, template, v.Type()))
	}
	return out
}

func (a *Asserted[T]) Int(field string) int64 {
	v, fm := a.slot(field)
	return mustAs[int64](v, a.m.template, fm.slot)
}

func (a *Asserted[T]) Uint(field string) uint64 {
	v, fm := a.slot(field)
	return mustAs[uint64](v, a.m.template, fm.slot)
}

func (a *Asserted[T]) Float(field string) float64 {
	v, fm := a.slot(field)
	return mustAs[float64](v, a.m.template, fm.slot)
}

func (a *Asserted[T]) Text(field string) string {
	v, fm := a.slot(field)
	return mustAs[string](v, a.m.template, fm.slot)
}

func (a *Asserted[T]) Sym(field string) fact.Sym {
	v, fm := a.slot(field)
	return mustAs[fact.Sym](v, a.m.template, fm.slot)
}

func (a *Asserted[T]) Bool(field string) bool {
	v, fm := a.slot(field)
	return mustAs[bool](v, a.m.template, fm.slot)
}

func (a *Asserted[T]) Strings(field string) []string {
	v, fm := a.slot(field)
	list := mustAs[[]fact.Value](v, a.m.template, fm.slot)
	out := make([]string, len(list))
	for i, item := range list {
		out[i] = mustAs[string](item, a.m.template, fm.slot)
	}
	return out
}

func (a *Asserted[T]) Bytes(field string) []byte {
	v, fm := a.slot(field)
	return mustAs[[]byte](v, a.m.template, fm.slot)
}

func (a *Asserted[T]) Ref(field string) *fact.Fact {
	v, fm := a.slot(field)
	return mustAs[*fact.Fact](v, a.m.template, fm.slot)
}

func (a *Asserted[T]) Any(field string) any {
	fm := a.m.field(field)
	switch fm.kind {
	case kindInt:
		return a.Int(field)
	case kindUint:
		return a.Uint(field)
	case kindFloat:
		return a.Float(field)
	case kindText:
		return a.Text(field)
	case kindSym:
		return a.Sym(field)
	case kindBool:
		return a.Bool(field)
	case kindStrings:
		return a.Strings(field)
	case kindBytes:
		return a.Bytes(field)
	case kindFact:
		return a.Ref(field)
	default:
		panic(fmt.Sprintf("factmap: field %q has unknown kind", field))
	}
}
