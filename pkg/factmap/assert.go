package factmap

import (
	"fmt"
	"reflect"

	"factbind/pkg/fact"
)

// Assert converts a host value into one new fact: it opens a builder
// against the mapping's template, writes every mapped field in
// declaration order, and asserts. Any individual slot write failure
// collapses into the same opaque assertion failure; there is no
// partial-slot recovery.
func (m *Mapping[T]) Assert(env *fact.Environment, host T) (*Asserted[T], error) {
	fb, err := env.NewFactBuilder(m.template)
	if err != nil {
		return nil, err
	}
	defer fb.Dispose()

	rv := reflect.ValueOf(&host).Elem()
	for i := range m.fields {
		fm := &m.fields[i]
		arg, err := m.putArg(rv.Field(fm.index), fm)
		if err != nil {
			return nil, &fact.AssertError{Template: m.template, Reason: err.Error()}
		}
		if err := fb.Put(fm.slot, arg); err != nil {
			return nil, &fact.AssertError{
				Template: m.template,
				Reason:   fmt.Sprintf("slot %q write failed", fm.slot),
			}
		}
	}

	f, err := fb.Assert()
	if err != nil {
		return nil, err
	}
	return &Asserted[T]{m: m, f: f}, nil
}

func (m *Mapping[T]) putArg(rv reflect.Value, fm *fieldMapping) (any, error) {
	switch fm.kind {
	case kindInt:
		return rv.Int(), nil
	case kindUint:
		return rv.Uint(), nil
	case kindFloat:
		return rv.Float(), nil
	case kindText:
		return rv.String(), nil
	case kindSym:
		return fact.Sym(rv.String()), nil
	case kindBool:
		return rv.Bool(), nil
	case kindStrings:
		out := make([]string, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).String()
		}
		return out, nil
	case kindBytes:
		return rv.Bytes(), nil
	case kindFact:
		f, _ := rv.Interface().(*fact.Fact)
		if f == nil {
			return nil, fmt.Errorf("field %q holds a nil fact reference", fm.name)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("field %q has unknown kind", fm.name)
	}
}

// Recover reads every mapped field off a live fact and constructs a
// fresh host value. It is available only on mappings compiled with
// recovery enabled. A per-field conversion failure means the mapping
// and the live schema diverged and panics; values are never silently
// defaulted.
func (m *Mapping[T]) Recover(a *Asserted[T]) T {
	if !m.recoverable {
		panic(fmt.Sprintf("factmap: mapping for template %q was compiled without recovery", m.template))
	}

	var host T
	rv := reflect.ValueOf(&host).Elem()
	for i := range m.fields {
		fm := &m.fields[i]
		field := rv.Field(fm.index)
		v := a.f.Slot(fm.slot)
		switch fm.kind {
		case kindInt:
			field.SetInt(mustAs[int64](v, m.template, fm.slot))
		case kindUint:
			field.SetUint(mustAs[uint64](v, m.template, fm.slot))
		case kindFloat:
			field.SetFloat(mustAs[float64](v, m.template, fm.slot))
		case kindText:
			field.SetString(mustAs[string](v, m.template, fm.slot))
		case kindSym:
			field.SetString(string(mustAs[fact.Sym](v, m.template, fm.slot)))
		case kindBool:
			field.SetBool(mustAs[bool](v, m.template, fm.slot))
		case kindStrings:
			list := mustAs[[]fact.Value](v, m.template, fm.slot)
			out := reflect.MakeSlice(fm.typ, len(list), len(list))
			for j, item := range list {
				out.Index(j).SetString(mustAs[string](item, m.template, fm.slot))
			}
			field.Set(out)
		case kindBytes:
			field.SetBytes(mustAs[[]byte](v, m.template, fm.slot))
		case kindFact:
			field.Set(reflect.ValueOf(mustAs[*fact.Fact](v, m.template, fm.slot)))
		default:
			panic(fmt.Sprintf("factmap: field %q has unknown kind", fm.name))
		}
	}
	return host
}
