// Package factmap compiles declarative slot mappings for Go struct
// types. A compiled Mapping produces the read-accessor contract for the
// struct, the same contract over a live fact, an assert operation
// converting struct to fact, and an optional recover operation
// converting fact back to struct. Mappings are built once per schema
// with reflection; the per-access hot path only walks precomputed
// field tables.
package factmap

import (
	"fmt"
	"reflect"
	"strings"

	"factbind/pkg/fact"
)

// Policy controls the representation a generated accessor returns.
type Policy int

const (
	// PolicyDefault resolves to Copy for booleans, integers, floats and
	// pointers, and to Borrow for everything else.
	PolicyDefault Policy = iota
	// PolicyBorrow returns the field's value sharing its backing storage.
	PolicyBorrow
	// PolicyCopy returns a shallow copy.
	PolicyCopy
	// PolicyClone returns a deep copy.
	PolicyClone
)

func (p Policy) String() string {
	switch p {
	case PolicyBorrow:
		return "borrow"
	case PolicyCopy:
		return "copy"
	case PolicyClone:
		return "clone"
	default:
		return "default"
	}
}

// slotKind is the resolved engine representation of a mapped field.
type slotKind int

const (
	kindInt slotKind = iota
	kindUint
	kindFloat
	kindText
	kindSym
	kindBool
	kindStrings
	kindBytes
	kindFact
)

type fieldMapping struct {
	name   string // Go field name
	slot   string // engine slot name
	index  int    // struct field index
	typ    reflect.Type
	kind   slotKind
	policy Policy
}

// Mapping is a compiled schema mapping for struct type T.
type Mapping[T any] struct {
	template    string
	fields      []fieldMapping
	byName      map[string]int
	consumeSelf bool
	recoverable bool
}

type options struct {
	consumeSelf bool
	recoverable bool
}

// Option configures Compile.
type Option func(*options)

// ConsumeOnAssert records that Assert takes ownership of the host value.
// Go's copy semantics make this indistinguishable at runtime; the flag
// is kept so co-designed schemas can round-trip their full description.
func ConsumeOnAssert() Option {
	return func(o *options) { o.consumeSelf = true }
}

// WithoutRecovery disables the generated recover operation.
func WithoutRecovery() Option {
	return func(o *options) { o.recoverable = false }
}

var (
	symType  = reflect.TypeOf(fact.Sym(""))
	factType = reflect.TypeOf((*fact.Fact)(nil))
)

// Compile builds the mapping for struct type T against a named
// template. Field options come from `fact:"slot,policy"` struct tags:
// an empty slot name defaults to the lower_snake_case field name, a
// slot name of "-" skips the field, and the policy token is one of
// borrow, copy, clone.
func Compile[T any](template string, opts ...Option) (*Mapping[T], error) {
	o := options{recoverable: true}
	for _, opt := range opts {
		opt(&o)
	}

	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("factmap: %s is not a struct type", t)
	}

	m := &Mapping[T]{
		template:    template,
		byName:      make(map[string]int),
		consumeSelf: o.consumeSelf,
		recoverable: o.recoverable,
	}

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		slot, policy, skip, err := parseTag(f)
		if err != nil {
			return nil, err
		}
		if skip {
			continue
		}
		kind, err := resolveKind(f)
		if err != nil {
			return nil, err
		}
		if policy == PolicyDefault {
			policy = defaultPolicy(f.Type)
		}
		m.byName[f.Name] = len(m.fields)
		m.fields = append(m.fields, fieldMapping{
			name:   f.Name,
			slot:   slot,
			index:  i,
			typ:    f.Type,
			kind:   kind,
			policy: policy,
		})
	}

	return m, nil
}

func parseTag(f reflect.StructField) (slot string, policy Policy, skip bool, err error) {
	tag := f.Tag.Get("fact")
	parts := strings.Split(tag, ",")
	slot = parts[0]
	if slot == "-" {
		return "", PolicyDefault, true, nil
	}
	if slot == "" {
		slot = lowerSnake(f.Name)
	}
	for _, p := range parts[1:] {
		switch p {
		case "":
		case "borrow":
			policy = PolicyBorrow
		case "copy":
			policy = PolicyCopy
		case "clone":
			policy = PolicyClone
		default:
			return "", PolicyDefault, false,
				fmt.Errorf("factmap: field %s: unknown policy %q", f.Name, p)
		}
	}
	return slot, policy, false, nil
}

func resolveKind(f reflect.StructField) (slotKind, error) {
	t := f.Type
	if t == symType {
		return kindSym, nil
	}
	if t == factType {
		return kindFact, nil
	}
	switch t.Kind() {
	case reflect.Bool:
		return kindBool, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return kindInt, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return kindUint, nil
	case reflect.Float32, reflect.Float64:
		return kindFloat, nil
	case reflect.String:
		return kindText, nil
	case reflect.Slice:
		switch t.Elem().Kind() {
		case reflect.String:
			return kindStrings, nil
		case reflect.Uint8:
			return kindBytes, nil
		}
	}
	return 0, fmt.Errorf("factmap: field %s: unsupported type %s", f.Name, t)
}

func defaultPolicy(t reflect.Type) Policy {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.Pointer:
		return PolicyCopy
	default:
		return PolicyBorrow
	}
}

// Template returns the schema name the mapping was compiled against.
func (m *Mapping[T]) Template() string { return m.template }

// ConsumesSelf reports whether Assert was declared to take ownership.
func (m *Mapping[T]) ConsumesSelf() bool { return m.consumeSelf }

// Recoverable reports whether Recover is available.
func (m *Mapping[T]) Recoverable() bool { return m.recoverable }

// Fields returns the mapped Go field names in declaration order.
func (m *Mapping[T]) Fields() []string {
	out := make([]string, len(m.fields))
	for i, f := range m.fields {
		out[i] = f.name
	}
	return out
}

// SlotFor returns the engine slot a Go field maps onto.
func (m *Mapping[T]) SlotFor(field string) (string, bool) {
	i, ok := m.byName[field]
	if !ok {
		return "", false
	}
	return m.fields[i].slot, true
}

func (m *Mapping[T]) field(name string) *fieldMapping {
	i, ok := m.byName[name]
	if !ok {
		panic(fmt.Sprintf("factmap: mapping for template %q has no field %q", m.template, name))
	}
	return &m.fields[i]
}

// lowerSnake converts a Go field name to its default slot name:
// "RuleName" becomes "rule_name".
func lowerSnake(name string) string {
	var sb strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(r - 'A' + 'a')
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
