package factmap_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"factbind/pkg/fact"
	"factbind/pkg/factmap"
)

type alarm struct {
	RuleName string `fact:"rule"`
	Severity int64
	Active   bool
	Score    float64
	Tags     []string `fact:"tags,clone"`
}

const alarmProgram = `Decl alarm_event(Rule, Severity, Active, Score, Tags).`

func newAlarmEnv(t *testing.T) *fact.Environment {
	t.Helper()
	env, err := fact.New(fact.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = env.Close() })
	require.NoError(t, env.Load(alarmProgram))
	return env
}

func sampleAlarm() alarm {
	return alarm{
		RuleName: "disk-full",
		Severity: 3,
		Active:   true,
		Score:    0.75,
		Tags:     []string{"disk", "urgent"},
	}
}

func TestCompileResolvesSlotsAndPolicies(t *testing.T) {
	m, err := factmap.Compile[alarm]("alarm_event")
	require.NoError(t, err)

	require.Equal(t, "alarm_event", m.Template())
	require.False(t, m.ConsumesSelf())
	require.True(t, m.Recoverable())
	require.Equal(t, []string{"RuleName", "Severity", "Active", "Score", "Tags"}, m.Fields())

	slot, ok := m.SlotFor("RuleName")
	require.True(t, ok)
	require.Equal(t, "rule", slot, "tag rename wins")
	slot, ok = m.SlotFor("Severity")
	require.True(t, ok)
	require.Equal(t, "severity", slot, "default slot name is the lower_snake_case field name")
	_, ok = m.SlotFor("Nope")
	require.False(t, ok)
}

func TestCompileOptions(t *testing.T) {
	m, err := factmap.Compile[alarm]("alarm_event",
		factmap.ConsumeOnAssert(), factmap.WithoutRecovery())
	require.NoError(t, err)
	require.True(t, m.ConsumesSelf())
	require.False(t, m.Recoverable())
}

func TestCompileRejectsNonStructs(t *testing.T) {
	_, err := factmap.Compile[int]("alarm_event")
	require.Error(t, err)
}

func TestCompileRejectsUnsupportedFields(t *testing.T) {
	type bad struct {
		C chan int
	}
	_, err := factmap.Compile[bad]("alarm_event")
	require.Error(t, err)
}

func TestCompileRejectsUnknownPolicy(t *testing.T) {
	type bad struct {
		A string `fact:"a,move"`
	}
	_, err := factmap.Compile[bad]("alarm_event")
	require.Error(t, err)
}

func TestHostView(t *testing.T) {
	m, err := factmap.Compile[alarm]("alarm_event")
	require.NoError(t, err)

	host := sampleAlarm()
	v := m.Host(&host)

	require.Equal(t, "disk-full", v.Text("RuleName"))
	require.Equal(t, int64(3), v.Int("Severity"))
	require.True(t, v.Bool("Active"))
	require.Equal(t, 0.75, v.Float("Score"))
	require.Equal(t, []string{"disk", "urgent"}, v.Strings("Tags"))

	require.Panics(t, func() { v.Int("RuleName") }, "wrong getter for the field's type")
	require.Panics(t, func() { v.Text("Nope") }, "unmapped field")
}

func TestClonePolicyCopies(t *testing.T) {
	m, err := factmap.Compile[alarm]("alarm_event")
	require.NoError(t, err)

	host := sampleAlarm()
	got := m.Host(&host).Strings("Tags")
	got[0] = "changed"
	require.Equal(t, "disk", host.Tags[0], "clone must not share backing storage")
}

func TestBorrowPolicyShares(t *testing.T) {
	type borrowed struct {
		Tags []string `fact:"tags,borrow"`
	}
	m, err := factmap.Compile[borrowed]("alarm_event")
	require.NoError(t, err)

	host := borrowed{Tags: []string{"disk"}}
	got := m.Host(&host).Strings("Tags")
	got[0] = "changed"
	require.Equal(t, "changed", host.Tags[0])
}

func TestAssertAndFactView(t *testing.T) {
	env := newAlarmEnv(t)
	m, err := factmap.Compile[alarm]("alarm_event")
	require.NoError(t, err)

	host := sampleAlarm()
	a, err := m.Assert(env, host)
	require.NoError(t, err)
	require.Equal(t, 1, env.FactCount())

	require.Equal(t, "disk-full", a.Text("RuleName"))
	require.Equal(t, int64(3), a.Int("Severity"))
	require.True(t, a.Bool("Active"))
	require.Equal(t, 0.75, a.Float("Score"))
	require.Equal(t, []string{"disk", "urgent"}, a.Strings("Tags"))

	// The underlying handle is a regular fact.
	require.Equal(t, "alarm_event", a.Fact().TemplateName())
	v := a.Fact().Slot("rule")
	require.Equal(t, fact.TypeString, v.Type())
}

func TestAssertCollapsesSlotFailures(t *testing.T) {
	env := newAlarmEnv(t)

	type misnamed struct {
		RuleName string `fact:"no_such_slot"`
	}
	m, err := factmap.Compile[misnamed]("alarm_event")
	require.NoError(t, err)

	_, err = m.Assert(env, misnamed{RuleName: "x"})
	var aerr *fact.AssertError
	require.ErrorAs(t, err, &aerr)
	require.Equal(t, 0, env.FactCount(), "no partial fact on failure")
}

func TestAssertUnknownTemplate(t *testing.T) {
	env := newAlarmEnv(t)
	m, err := factmap.Compile[alarm]("missing_template")
	require.NoError(t, err)
	_, err = m.Assert(env, sampleAlarm())
	require.Error(t, err)
}

func TestRecoverRoundTrip(t *testing.T) {
	env := newAlarmEnv(t)
	m, err := factmap.Compile[alarm]("alarm_event")
	require.NoError(t, err)

	host := sampleAlarm()
	a, err := m.Assert(env, host)
	require.NoError(t, err)

	got := m.Recover(a)
	if diff := cmp.Diff(host, got); diff != "" {
		t.Fatalf("recovered value differs (-want +got):\n%s", diff)
	}
}

func TestRecoverDisabled(t *testing.T) {
	env := newAlarmEnv(t)
	m, err := factmap.Compile[alarm]("alarm_event", factmap.WithoutRecovery())
	require.NoError(t, err)

	a, err := m.Assert(env, sampleAlarm())
	require.NoError(t, err)
	require.Panics(t, func() { m.Recover(a) })
}

func TestFactViewTagMismatchIsFatal(t *testing.T) {
	env := newAlarmEnv(t)
	m, err := factmap.Compile[alarm]("alarm_event")
	require.NoError(t, err)

	a, err := m.Assert(env, sampleAlarm())
	require.NoError(t, err)

	// A second mapping that disagrees with the schema: severity is an
	// integer slot, but this mapping declares it as text.
	type divergent struct {
		Severity string
	}
	bad, err := factmap.Compile[divergent]("alarm_event")
	require.NoError(t, err)

	view := bad.Wrap(a.Fact())
	require.Panics(t, func() { view.Text("Severity") })
}

func TestFactReferenceFields(t *testing.T) {
	env, err := fact.New(fact.Config{})
	require.NoError(t, err)
	defer func() { _ = env.Close() }()
	require.NoError(t, env.Load(`
Decl node(Name).
Decl link(Name, Parent).
`))

	type node struct {
		Name string
	}
	type link struct {
		Name   string
		Parent *fact.Fact
	}

	nodes, err := factmap.Compile[node]("node")
	require.NoError(t, err)
	links, err := factmap.Compile[link]("link", factmap.WithoutRecovery())
	require.NoError(t, err)

	parent, err := nodes.Assert(env, node{Name: "root"})
	require.NoError(t, err)

	child, err := links.Assert(env, link{Name: "leaf", Parent: parent.Fact()})
	require.NoError(t, err)

	ref := child.Ref("Parent")
	require.Equal(t, parent.Fact().Index(), ref.Index())

	// A nil reference cannot be asserted.
	_, err = links.Assert(env, link{Name: "orphan"})
	var aerr *fact.AssertError
	require.ErrorAs(t, err, &aerr)
}
