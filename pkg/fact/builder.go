package fact

import "go.uber.org/zap"

type builderState int

const (
	builderOpen builderState = iota
	builderAsserted
	builderAborted
	builderDisposed
)

// FactBuilder stages the slots of one fact against a named template.
// Exactly one of Assert, Abort or Dispose finishes the builder; after
// that it cannot be reused. The intended shape is
//
//	fb, err := env.NewFactBuilder("f1")
//	if err != nil { ... }
//	defer fb.Dispose()
//	if err := fb.Put("a", 1); err != nil { ... }
//	f, err := fb.Assert()
//
// where Dispose is a no-op when Assert or Abort already ran.
type FactBuilder struct {
	env      *Environment
	template string
	staged   map[string]Value
	state    builderState
}

// NewFactBuilder opens a builder against a declared template.
func (e *Environment) NewFactBuilder(template string) (*FactBuilder, error) {
	if e.closed {
		return nil, ErrEnvironmentClosed
	}
	if _, ok := e.templates[template]; !ok {
		return nil, &AssertError{Template: template, Reason: "template not declared"}
	}
	return &FactBuilder{
		env:      e,
		template: template,
		staged:   make(map[string]Value),
	}, nil
}

// Put stages one slot value. The last write per slot wins. A failed Put
// leaves the builder open and the staged slots unchanged.
func (b *FactBuilder) Put(slot string, host any) error {
	if b.state != builderOpen {
		return &SlotError{Template: b.template, Slot: slot, Kind: SlotBuilderNotOpen}
	}
	info, ok := b.env.templateInfo(b.template)
	if !ok {
		return &SlotError{Template: b.template, Slot: slot, Kind: SlotEnvironmentClosed}
	}
	pos := info.slotPosition(slot)
	if pos < 0 {
		return &SlotError{Template: b.template, Slot: slot, Kind: SlotUnknown}
	}
	v := Allocate(b.env, host)
	if len(info.bounds) > pos && !boundAdmits(info.bounds[pos], v.Type()) {
		return &SlotError{Template: b.template, Slot: slot, Kind: SlotTypeMismatch}
	}
	b.staged[slot] = v
	return nil
}

// Assert finalizes all staged slots atomically into one new fact and
// returns a live handle. The builder is consumed whether or not the
// engine accepts the fact.
func (b *FactBuilder) Assert() (*Fact, error) {
	if b.state != builderOpen {
		return nil, &AssertError{Template: b.template, Reason: "builder not open"}
	}
	staged := b.staged
	b.release(builderAsserted)
	f, err := b.env.assertFact(b.template, staged)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Abort consumes the builder and discards all staged slots. No fact is
// created.
func (b *FactBuilder) Abort() {
	if b.state != builderOpen {
		return
	}
	b.release(builderAborted)
	b.env.log.Debug("builder aborted", zap.String("template", b.template))
}

// Dispose releases the builder's staged slots if neither Assert nor
// Abort ran. It is safe to call any number of times, including after
// Assert or Abort, which makes it suitable for defer.
func (b *FactBuilder) Dispose() {
	if b.state != builderOpen {
		return
	}
	b.release(builderDisposed)
}

func (b *FactBuilder) release(next builderState) {
	b.staged = nil
	b.state = next
}
