package fact_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"factbind/pkg/fact"
)

const pathProgram = `
Decl edge(X, Y) bound [/number, /number].
Decl path(X, Y) bound [/number, /number].

path(X, Y) :- edge(X, Y).
path(X, Z) :- edge(X, Y), path(Y, Z).
`

func TestCloseExactlyOnce(t *testing.T) {
	env, err := fact.New(fact.Config{})
	require.NoError(t, err)
	require.NoError(t, env.Close())
	require.ErrorIs(t, env.Close(), fact.ErrEnvironmentClosed)
}

func TestOperationsAfterClose(t *testing.T) {
	env, err := fact.New(fact.Config{})
	require.NoError(t, err)
	require.NoError(t, env.Load(f1Program))
	require.NoError(t, env.Close())

	require.ErrorIs(t, env.Load(f1Program), fact.ErrEnvironmentClosed)
	_, err = env.Run()
	require.ErrorIs(t, err, fact.ErrEnvironmentClosed)
	_, err = env.Query("f1(A, B)")
	require.ErrorIs(t, err, fact.ErrEnvironmentClosed)
	_, err = env.FindTemplate("f1")
	require.ErrorIs(t, err, fact.ErrEnvironmentClosed)
	_, err = env.NewFactBuilder("f1")
	require.ErrorIs(t, err, fact.ErrEnvironmentClosed)
}

func TestCountsAfterClose(t *testing.T) {
	env, err := fact.New(fact.Config{})
	require.NoError(t, err)
	require.NoError(t, env.Load(f1Program))
	mustAssert(t, env, "f1", map[string]any{"a": 1, "b": "x"})
	require.Equal(t, 1, env.FactCount())
	require.Equal(t, 1, env.StoreSize())

	require.NoError(t, env.Close())
	require.Zero(t, env.FactCount())
	require.Zero(t, env.StoreSize())
	require.Nil(t, env.TemplateNames())
}

func TestLoadRejectsBadSource(t *testing.T) {
	env := newTestEnv(t)
	require.Error(t, env.Load("this is not a program ((("))

	// A failed load leaves previously loaded declarations usable.
	require.NoError(t, env.Load(f1Program))
	require.Error(t, env.Load("also not a program )))"))
	_, err := env.FindTemplate("f1")
	require.NoError(t, err)
}

func TestLoadFile(t *testing.T) {
	env := newTestEnv(t)

	path := filepath.Join(t.TempDir(), "f1.mg")
	require.NoError(t, os.WriteFile(path, []byte(f1Program), 0o644))
	require.NoError(t, env.LoadFile(path))

	_, err := env.FindTemplate("f1")
	require.NoError(t, err)

	require.Error(t, env.LoadFile(filepath.Join(t.TempDir(), "missing.mg")))
}

func TestRunDerivesTransitiveClosure(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.Load(pathProgram))

	mustAssert(t, env, "edge", map[string]any{"x": 1, "y": 2})
	mustAssert(t, env, "edge", map[string]any{"x": 2, "y": 3})

	derived, err := env.Run()
	require.NoError(t, err)
	require.GreaterOrEqual(t, derived, 3, "expect path(1,2), path(2,3), path(1,3)")

	// Host-asserted facts are unaffected by derivation.
	require.Equal(t, 2, env.FactCount())
	require.GreaterOrEqual(t, env.StoreSize(), 5)
}

func TestQueryBindings(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.Load(pathProgram))

	mustAssert(t, env, "edge", map[string]any{"x": 1, "y": 2})
	mustAssert(t, env, "edge", map[string]any{"x": 2, "y": 3})
	_, err := env.Run()
	require.NoError(t, err)

	rows, err := env.Query("path(X, Y)")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for _, row := range rows {
		x, ok := fact.As[int64](row["X"])
		require.True(t, ok)
		y, ok := fact.As[int64](row["Y"])
		require.True(t, ok)
		require.Less(t, x, y)
	}

	rows, err = env.Query("path(1, Y)")
	require.NoError(t, err)
	require.Len(t, rows, 2, "constant positions filter rows")

	_, err = env.Query("unknown(X)")
	require.Error(t, err)
	_, err = env.Query("")
	require.Error(t, err)
}

func TestQueryConvertsLexemes(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.Load(`Decl tagged(Name, Label) bound [/number, /string].`))
	mustAssert(t, env, "tagged", map[string]any{"name": 7, "label": "hot"})

	rows, err := env.Query("tagged(N, L)")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	label, ok := fact.As[string](rows[0]["L"])
	require.True(t, ok)
	require.Equal(t, "hot", label)
}

func TestRunWithoutProgram(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Run()
	require.Error(t, err)
}

func TestRetractRemovesFromEngineStore(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.Load(f1Program))

	f := mustAssert(t, env, "f1", map[string]any{"a": 1, "b": "x"})
	require.Equal(t, 1, env.StoreSize())
	require.NoError(t, f.Retract())
	require.Equal(t, 0, env.StoreSize())
}

func TestIdenticalFactsShareOneMirror(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.Load(f1Program))

	slots := map[string]any{"a": 1, "b": "same"}
	first := mustAssert(t, env, "f1", slots)
	second := mustAssert(t, env, "f1", slots)
	require.Equal(t, 1, env.StoreSize(), "the engine store has set semantics")

	require.NoError(t, first.Retract())
	require.Equal(t, 1, env.StoreSize(), "mirror survives while a twin is live")
	require.NoError(t, second.Retract())
	require.Equal(t, 0, env.StoreSize())
}

func TestTemplateNamesAndSlots(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.Load(pathProgram))

	require.Equal(t, []string{"edge", "path"}, env.TemplateNames())

	tmpl, err := env.FindTemplate("edge")
	require.NoError(t, err)
	require.Equal(t, "edge", tmpl.Name())
	require.Equal(t, []string{"x", "y"}, tmpl.Slots())

	_, err = env.FindTemplate("vertex")
	require.Error(t, err)
}
