package fact

// factCursor walks the environment's assertion-order index, skipping
// retracted entries. Mutating the fact store while a cursor is in use
// has engine-defined behavior; this layer does not serialize iteration
// against concurrent assertion or retraction.
type factCursor struct {
	env      *Environment
	template string // empty means all templates
	pos      int
	cur      *Fact
	done     bool
}

func (c *factCursor) next() bool {
	if c.done || c.env.closed {
		c.cur = nil
		c.done = true
		return false
	}
	for c.pos < len(c.env.order) {
		idx := c.env.order[c.pos]
		c.pos++
		rec, ok := c.env.records[idx]
		if !ok || !rec.live {
			continue
		}
		if c.template != "" && rec.template != c.template {
			continue
		}
		c.cur = &Fact{env: c.env, rec: rec}
		return true
	}
	c.cur = nil
	c.done = true
	return false
}

// FactIterator is a lazy, single-pass traversal of every live fact in
// the Environment, oldest to newest by assertion order. Once exhausted
// it stays exhausted; construct a fresh iterator to traverse again.
type FactIterator struct {
	c factCursor
}

// Facts returns an iterator over all live facts.
func (e *Environment) Facts() *FactIterator {
	return &FactIterator{c: factCursor{env: e}}
}

// Next advances to the next live fact. It returns false permanently
// once the sequence is exhausted.
func (it *FactIterator) Next() bool { return it.c.next() }

// Fact returns the fact at the current position. Valid only after a
// Next call that returned true.
func (it *FactIterator) Fact() *Fact { return it.c.cur }

// TemplateIterator is the schema-scoped variant of FactIterator,
// visiting only facts asserted against one template. Same ordering and
// termination contract.
type TemplateIterator struct {
	c factCursor
}

// Facts returns an iterator over the live facts of this template.
func (t *Template) Facts() *TemplateIterator {
	return &TemplateIterator{c: factCursor{env: t.env, template: t.name}}
}

// Next advances to the next live fact of the template.
func (it *TemplateIterator) Next() bool { return it.c.next() }

// Fact returns the fact at the current position. Valid only after a
// Next call that returned true.
func (it *TemplateIterator) Fact() *Fact { return it.c.cur }
