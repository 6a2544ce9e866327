package pipeline

import (
	"bytes"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artifact-collector/src/metrics"
)

func TestRun_AllStepsInOrder(t *testing.T) {
	var order []string
	step := func(name string) Step {
		return Step{Name: name, Run: func() error { order = append(order, name); return nil }}
	}
	rec := metrics.New()
	p := New(zerolog.Nop(), rec, step("pull"), step("ensure-directory"))
	p.Add(step("snapshots"))

	require.NoError(t, p.Run())
	assert.Equal(t, []string{"pull", "ensure-directory", "snapshots"}, order)
	assert.Equal(t, []string{"pull", "ensure-directory", "snapshots"}, p.Steps())
	assert.Greater(t, testutil.ToFloat64(rec.LastSuccess), 0.0)
}

func TestRun_StopsAtFirstFailure(t *testing.T) {
	boom := errors.New("boom")
	var ran []string
	var buf bytes.Buffer
	rec := metrics.New()
	p := New(zerolog.New(&buf), rec,
		Step{Name: "pull", Run: func() error { ran = append(ran, "pull"); return nil }},
		Step{Name: "snapshots", Run: func() error { ran = append(ran, "snapshots"); return boom }},
		Step{Name: "compress", Run: func() error { ran = append(ran, "compress"); return nil }},
	)

	err := p.Run()
	require.Error(t, err)

	var se *StepError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "snapshots", se.Step)
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, "step snapshots failed: boom", err.Error())
	assert.Equal(t, []string{"pull", "snapshots"}, ran)
	assert.Contains(t, buf.String(), `"step":"snapshots"`)
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.StepFailures.WithLabelValues("snapshots")))
	assert.Equal(t, 0.0, testutil.ToFloat64(rec.LastSuccess))
}
