package fact

// Template is a borrowing handle to a named schema declared in loaded
// source. It scopes fact iteration to one declaration.
type Template struct {
	env  *Environment
	name string
}

// Name returns the template's declared name.
func (t *Template) Name() string { return t.name }

// Slots returns the slot names in declaration order.
func (t *Template) Slots() []string {
	info, ok := t.env.templateInfo(t.name)
	if !ok {
		return nil
	}
	out := make([]string, len(info.slots))
	copy(out, info.slots)
	return out
}
