package fact

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config holds environment configuration.
type Config struct {
	// FactLimit caps the number of live host-asserted facts. Zero means
	// unlimited.
	FactLimit int
	// Logger receives debug-level lifecycle events. Nil disables logging.
	Logger *zap.Logger
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{FactLimit: 100000}
}

// templateInfo is the engine-side view of one declared template: the
// Mangle predicate, the slot names (declaration argument names,
// lowercased) and the optional per-slot type bounds.
type templateInfo struct {
	sym    ast.PredicateSym
	slots  []string
	bounds []ast.Constant
}

func (t *templateInfo) slotPosition(name string) int {
	for i, s := range t.slots {
		if s == name {
			return i
		}
	}
	return -1
}

// factRecord is the authoritative host-side state of one asserted fact.
type factRecord struct {
	index    int64
	template string
	slots    map[string]Value
	order    []string
	atom     ast.Atom
	live     bool
}

type mirrorEntry struct {
	atom ast.Atom
	refs int
}

// Environment owns one engine instance: the Mangle program, the fact
// store, and the host-side fact table. Every other handle in this
// package (Template, FactBuilder, Fact, iterators) borrows it and must
// not be used after Close. The layer is single-threaded by contract;
// callers that share an Environment across goroutines must add their
// own exclusion.
type Environment struct {
	id  uuid.UUID
	cfg Config
	log *zap.Logger

	store     factstore.FactStoreWithRemove
	fragments []parse.SourceUnit
	program   *analysis.ProgramInfo
	preds     map[string]ast.PredicateSym
	templates map[string]*templateInfo

	records map[int64]*factRecord
	order   []int64
	mirrors map[string]*mirrorEntry
	externs map[int64]any

	nextIndex  int64
	nextExtern int64
	liveCount  int
	closed     bool
}

// New creates and initializes an environment.
func New(cfg Config) (*Environment, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.New()
	env := &Environment{
		id:        id,
		cfg:       cfg,
		log:       logger.Named("fact").With(zap.String("env", id.String())),
		store:     factstore.NewSimpleInMemoryStore(),
		preds:     make(map[string]ast.PredicateSym),
		templates: make(map[string]*templateInfo),
		records:   make(map[int64]*factRecord),
		mirrors:   make(map[string]*mirrorEntry),
		externs:   make(map[int64]any),
		nextIndex: 1,
	}
	env.log.Debug("environment created")
	return env, nil
}

// ID returns the environment's correlation id.
func (e *Environment) ID() uuid.UUID { return e.id }

// Close destroys the environment. Every Fact, Template, FactBuilder and
// iterator still referencing it becomes invalid. Closing twice is an
// error.
func (e *Environment) Close() error {
	if e.closed {
		return ErrEnvironmentClosed
	}
	e.closed = true
	e.records = nil
	e.order = nil
	e.mirrors = nil
	e.externs = nil
	e.templates = nil
	e.preds = nil
	e.program = nil
	e.log.Debug("environment closed")
	return nil
}

// Closed reports whether Close has been called.
func (e *Environment) Closed() bool { return e.closed }

// Load parses Mangle source text verbatim, accumulates it with
// previously loaded fragments, and re-analyzes the whole program.
// Templates are registered from Decl declarations.
func (e *Environment) Load(source string) error {
	if e.closed {
		return ErrEnvironmentClosed
	}
	unit, err := parse.Unit(strings.NewReader(source))
	if err != nil {
		return fmt.Errorf("fact: parse source: %w", err)
	}
	e.fragments = append(e.fragments, unit)
	if err := e.rebuild(); err != nil {
		e.fragments = e.fragments[:len(e.fragments)-1]
		return fmt.Errorf("fact: analyze source: %w", err)
	}
	e.log.Debug("source loaded",
		zap.Int("decls", len(unit.Decls)),
		zap.Int("clauses", len(unit.Clauses)))
	return nil
}

// LoadFile reads a Mangle source file and loads it.
func (e *Environment) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("fact: read source file %s: %w", path, err)
	}
	return e.Load(string(data))
}

// rebuild re-analyzes all loaded fragments and refreshes the predicate
// and template indexes.
func (e *Environment) rebuild() error {
	var clauses []ast.Clause
	var decls []ast.Decl
	for _, fragment := range e.fragments {
		clauses = append(clauses, fragment.Clauses...)
		decls = append(decls, fragment.Decls...)
	}

	programInfo, err := analysis.AnalyzeOneUnit(parse.SourceUnit{Clauses: clauses, Decls: decls}, nil)
	if err != nil {
		return err
	}

	e.program = programInfo
	e.preds = make(map[string]ast.PredicateSym, len(programInfo.Decls))
	e.templates = make(map[string]*templateInfo, len(programInfo.Decls))
	for sym, decl := range programInfo.Decls {
		e.preds[sym.Symbol] = sym
		info := &templateInfo{sym: sym}
		for _, arg := range decl.DeclaredAtom.Args {
			v, ok := arg.(ast.Variable)
			if !ok {
				continue
			}
			info.slots = append(info.slots, strings.ToLower(v.Symbol))
		}
		if len(decl.Bounds) > 0 {
			for _, b := range decl.Bounds[0].Bounds {
				if c, ok := b.(ast.Constant); ok {
					info.bounds = append(info.bounds, c)
				}
			}
		}
		e.templates[sym.Symbol] = info
	}
	return nil
}

// Run evaluates all loaded rules to fixpoint over the fact store and
// returns the number of newly derived engine facts. Mangle evaluation
// is run-to-completion; there is no partial-firing mode.
func (e *Environment) Run() (int, error) {
	if e.closed {
		return 0, ErrEnvironmentClosed
	}
	if e.program == nil {
		return 0, fmt.Errorf("fact: no program loaded")
	}
	before := e.store.EstimateFactCount()
	if _, err := mengine.EvalProgramWithStats(e.program, e.store); err != nil {
		return 0, fmt.Errorf("fact: evaluate program: %w", err)
	}
	derived := e.store.EstimateFactCount() - before
	e.log.Debug("program evaluated", zap.Int("derived", derived))
	return derived, nil
}

// FactCount returns the number of live host-asserted facts, or zero
// after Close.
func (e *Environment) FactCount() int {
	if e.closed {
		return 0
	}
	return e.liveCount
}

// StoreSize returns the total number of facts in the underlying engine
// store, including facts derived by Run.
func (e *Environment) StoreSize() int {
	if e.closed {
		return 0
	}
	return e.store.EstimateFactCount()
}

// TemplateNames returns the names of all declared templates, sorted.
func (e *Environment) TemplateNames() []string {
	if e.closed {
		return nil
	}
	names := make([]string, 0, len(e.templates))
	for name := range e.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FindTemplate looks a declared template up by name.
func (e *Environment) FindTemplate(name string) (*Template, error) {
	if e.closed {
		return nil, ErrEnvironmentClosed
	}
	if _, ok := e.templates[name]; !ok {
		return nil, fmt.Errorf("fact: template %q is not declared", name)
	}
	return &Template{env: e, name: name}, nil
}

// Query parses a Mangle atom with variables, scans the engine store
// (asserted and derived facts alike) and returns one binding row per
// matching fact, with engine constants converted back into Values.
func (e *Environment) Query(q string) ([]map[string]Value, error) {
	if e.closed {
		return nil, ErrEnvironmentClosed
	}
	if e.program == nil {
		return nil, fmt.Errorf("fact: no program loaded")
	}

	clean := strings.TrimSpace(q)
	clean = strings.TrimPrefix(clean, "?")
	clean = strings.TrimSuffix(strings.TrimSpace(clean), ".")
	if clean == "" {
		return nil, fmt.Errorf("fact: empty query")
	}

	atom, err := parse.Atom(clean)
	if err != nil {
		atom, err = parse.Atom(clean + ".")
		if err != nil {
			return nil, fmt.Errorf("fact: parse query %q: %w", q, err)
		}
	}

	sym, ok := e.preds[atom.Predicate.Symbol]
	if !ok {
		return nil, fmt.Errorf("fact: predicate %q is not declared", atom.Predicate.Symbol)
	}
	if sym.Arity != len(atom.Args) {
		return nil, fmt.Errorf("fact: predicate %q expects %d arguments, got %d",
			sym.Symbol, sym.Arity, len(atom.Args))
	}

	var rows []map[string]Value
	err = e.store.GetFacts(ast.NewQuery(sym), func(stored ast.Atom) error {
		row := make(map[string]Value)
		bound := make(map[string]string)
		for i, arg := range atom.Args {
			switch a := arg.(type) {
			case ast.Variable:
				if a.Symbol == "_" {
					continue
				}
				c, ok := stored.Args[i].(ast.Constant)
				if !ok {
					return nil
				}
				if prev, seen := bound[a.Symbol]; seen {
					if prev != c.String() {
						return nil // repeated variable, inconsistent binding
					}
					continue
				}
				bound[a.Symbol] = c.String()
				row[a.Symbol] = e.constantToValue(c)
			default:
				if arg.String() != stored.Args[i].String() {
					return nil // constant position mismatch, skip row
				}
			}
		}
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// assertFact finalizes a builder's staged slots into one live fact.
func (e *Environment) assertFact(template string, staged map[string]Value) (*Fact, error) {
	if e.closed {
		return nil, &AssertError{Template: template, Reason: "environment closed"}
	}
	info, ok := e.templates[template]
	if !ok {
		return nil, &AssertError{Template: template, Reason: "template no longer declared"}
	}
	if e.cfg.FactLimit > 0 && e.liveCount >= e.cfg.FactLimit {
		return nil, &AssertError{Template: template, Reason: "fact limit exceeded"}
	}

	slots := make(map[string]Value, len(info.slots))
	args := make([]ast.BaseTerm, len(info.slots))
	for i, slot := range info.slots {
		v, set := staged[slot]
		if !set {
			if len(info.bounds) > i && !boundAdmitsNil(info.bounds[i]) {
				return nil, &AssertError{Template: template, Reason: fmt.Sprintf("slot %q not set", slot)}
			}
			v = Value{typ: TypeSymbol, lex: symNil}
		}
		slots[slot] = v
		args[i] = valueToTerm(v)
	}

	atom := ast.Atom{Predicate: info.sym, Args: args}
	e.addMirror(atom)

	rec := &factRecord{
		index:    e.nextIndex,
		template: template,
		slots:    slots,
		order:    info.slots,
		atom:     atom,
		live:     true,
	}
	e.nextIndex++
	e.records[rec.index] = rec
	e.order = append(e.order, rec.index)
	e.liveCount++

	e.log.Debug("fact asserted",
		zap.Int64("index", rec.index),
		zap.String("template", template))
	return &Fact{env: e, rec: rec}, nil
}

// retractFact removes a live fact from the environment and from the
// engine store mirror.
func (e *Environment) retractFact(rec *factRecord) error {
	if e.closed {
		return &RetractError{Index: rec.index, Kind: RetractEnvironmentClosed}
	}
	if !rec.live {
		return &RetractError{Index: rec.index, Kind: RetractAlreadyRetracted}
	}
	rec.live = false
	delete(e.records, rec.index)
	e.liveCount--
	e.removeMirror(rec.atom)
	e.log.Debug("fact retracted",
		zap.Int64("index", rec.index),
		zap.String("template", rec.template))
	return nil
}

// addMirror reference-counts the engine-store mirror of an asserted
// fact. The store has set semantics, so two live facts with identical
// slot values share one mirror atom.
func (e *Environment) addMirror(atom ast.Atom) {
	key := atom.String()
	if entry, ok := e.mirrors[key]; ok {
		entry.refs++
		return
	}
	e.store.Add(atom)
	e.mirrors[key] = &mirrorEntry{atom: atom, refs: 1}
}

func (e *Environment) removeMirror(atom ast.Atom) {
	key := atom.String()
	entry, ok := e.mirrors[key]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		e.store.Remove(entry.atom)
		delete(e.mirrors, key)
	}
}

// liveFact resolves a fact index to a live handle.
func (e *Environment) liveFact(index int64) (*Fact, bool) {
	if e.closed {
		return nil, false
	}
	rec, ok := e.records[index]
	if !ok || !rec.live {
		return nil, false
	}
	return &Fact{env: e, rec: rec}, true
}

func (e *Environment) registerExternal(obj any) int64 {
	e.nextExtern++
	e.externs[e.nextExtern] = obj
	return e.nextExtern
}

func (e *Environment) lookupExternal(id int64) (any, bool) {
	obj, ok := e.externs[id]
	return obj, ok
}

func (e *Environment) templateInfo(name string) (*templateInfo, bool) {
	if e.closed {
		return nil, false
	}
	info, ok := e.templates[name]
	return info, ok
}
