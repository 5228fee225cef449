package fact

import "fmt"

// Fact is a borrowing handle to one live fact in the engine's working
// memory. The engine owns the fact; the handle is valid until the fact
// is retracted or the Environment is closed.
type Fact struct {
	env *Environment
	rec *factRecord
}

// Index returns the fact's stable identifier, assigned at assert time.
// Indices are allocated monotonically and never recycled, so an index
// is unique among all facts the environment has ever asserted.
func (f *Fact) Index() int64 { return f.rec.index }

// TemplateName returns the name of the template the fact was asserted
// against.
func (f *Fact) TemplateName() string { return f.rec.template }

// Slot reads the current value of a named slot. Asking for a slot the
// template does not declare, or reading from a retracted fact or a
// closed environment, is a programmer error and panics: the handle is
// stale and rejecting it beats dereferencing it.
func (f *Fact) Slot(name string) Value {
	if f.env.closed {
		panic(fmt.Sprintf("fact: slot read on fact f-%d of closed environment", f.rec.index))
	}
	if !f.rec.live {
		panic(fmt.Sprintf("fact: slot read on retracted fact f-%d", f.rec.index))
	}
	v, ok := f.rec.slots[name]
	if !ok {
		panic(fmt.Sprintf("fact: template %q has no slot %q", f.rec.template, name))
	}
	return v
}

// Retract removes the fact from the engine's store and consumes the
// handle. A second retraction of the same fact fails with a typed
// error; there is no retry path either way.
func (f *Fact) Retract() error {
	return f.env.retractFact(f.rec)
}

// Allocate lets a fact handle be written into a slot as a fact-address
// value.
func (f *Fact) Allocate(env *Environment) Value {
	return Value{typ: TypeFactAddress, fct: f.rec.index, env: f.env}
}

// String renders the fact for logs and diagnostics.
func (f *Fact) String() string {
	return fmt.Sprintf("f-%d (%s)", f.rec.index, f.rec.template)
}
