package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/lazygrid/grid"
)

type squareProducer struct{ runs int }

func (p *squareProducer) Name() string      { return "Square" }
func (p *squareProducer) Outputs() []string { return []string{"M.y"} }
func (p *squareProducer) Compute(g *grid.Registry) error {
	p.runs++
	v, err := g.Peek("M.x")
	if err != nil {
		return err
	}
	n := v.(int)
	return g.CommitBuffer("M.y", n*n, false)
}

func TestCollectorObservesEngine(t *testing.T) {
	promReg := prometheus.NewRegistry()
	c := New(promReg)

	g := grid.New(grid.WithObserver(c))
	p := &squareProducer{}
	require.NoError(t, g.Declare("M.x", grid.Decl{}))
	require.NoError(t, g.Declare("M.y", grid.Decl{Deps: []string{"M.x"}, Producer: p}))

	require.NoError(t, g.CommitBuffer("M.x", 6, false))
	_, err := g.Read("M.y")
	require.NoError(t, err)

	// x commit + y commit.
	assert.Equal(t, float64(2), testutil.ToFloat64(c.Commits))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.EnsurePasses))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.ProducerRuns.WithLabelValues("Square")))

	// A cache hit is another ensure pass but no producer run.
	_, err = g.Read("M.y")
	require.NoError(t, err)
	assert.Equal(t, float64(2), testutil.ToFloat64(c.EnsurePasses))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.ProducerRuns.WithLabelValues("Square")))
}

func TestCollectorCountsValidationFailures(t *testing.T) {
	promReg := prometheus.NewRegistry()
	c := New(promReg)

	g := grid.New(grid.WithObserver(c))
	require.NoError(t, g.Declare("n", grid.Decl{Spec: &grid.Spec{Kind: grid.KindArray}}))

	err := g.CommitBuffer("n", "not an array", false)
	var verr *grid.ValidationError
	require.ErrorAs(t, err, &verr)

	assert.Equal(t, float64(1), testutil.ToFloat64(c.ValidationFailures))
}

func TestCollectorRegisters(t *testing.T) {
	promReg := prometheus.NewRegistry()
	New(promReg)

	families, err := promReg.Gather()
	require.NoError(t, err)

	// Vec metrics stay absent until first labeled observation; the plain
	// counters register immediately.
	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["lazygrid_ensure_passes_total"])
	assert.True(t, names["lazygrid_commits_total"])
	assert.True(t, names["lazygrid_validation_failures_total"])
}
