package metrics_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Breeze/breeze.sharp-sub000/contrib/metrics"
	"github.com/Breeze/breeze.sharp-sub000/dataservice/memory"
	"github.com/Breeze/breeze.sharp-sub000/entity"
	"github.com/Breeze/breeze.sharp-sub000/internal/testmodel"
)

// value returns the value of the metric with the given name and labels.
// Histograms report their sample count.
func value(t *testing.T, g prometheus.Gatherer, name string, labels map[string]string) float64 {
	t.Helper()
	mfs, err := g.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
	Metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue Metrics
				}
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				return float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return 0
}

func TestCollector(t *testing.T) {
	ctx := context.Background()
	svc := memory.MustNew(testmodel.Schemas())
	require.NoError(t, svc.Seed("Order", map[string]any{"freight": 1.0}, map[string]any{"freight": 2.0}))

	c := metrics.New(metrics.WithConstLabels(prometheus.Labels{"manager": "test"}))
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))
	m := entity.MustNewManager(svc.Graph(), entity.WithDataService(svc), entity.WithMetrics(c))

	o, err := m.CreateEntity("Order", map[string]any{"freight": 3.0})
	require.NoError(t, err)
	_, err = m.ExecuteQuery(ctx, entity.NewQuery("Orders"))
	require.NoError(t, err)
	_, err = m.ExecuteQuery(ctx, entity.NewQuery("Nope"))
	require.Error(t, err)

	assert.Equal(t, 3.0, value(t, reg, "breeze_entities_attached_total", nil))
	assert.Equal(t, 3.0, value(t, reg, "breeze_cached_entities", nil))
	assert.Equal(t, 1.0, value(t, reg, "breeze_queries_total", map[string]string{"resource": "Orders", "status": "success"}))
	assert.Equal(t, 1.0, value(t, reg, "breeze_queries_total", map[string]string{"resource": "Nope", "status": "error"}))
	assert.Equal(t, 2.0, value(t, reg, "breeze_query_entities_total", map[string]string{"resource": "Orders"}))
	assert.Equal(t, 1.0, value(t, reg, "breeze_query_duration_seconds", map[string]string{"resource": "Orders"}))

	_, err = m.SaveChanges(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.0, value(t, reg, "breeze_saves_total", map[string]string{"status": "success"}))
	assert.Equal(t, 1.0, value(t, reg, "breeze_saved_entities_total", nil))
	assert.Equal(t, 1.0, value(t, reg, "breeze_save_duration_seconds", nil))

	require.True(t, m.Detach(o))
	assert.Equal(t, 1.0, value(t, reg, "breeze_entities_detached_total", nil))
	assert.Equal(t, 2.0, value(t, reg, "breeze_cached_entities", nil))

	doc := m.Export()
	other := entity.MustNewManager(svc.Graph(), entity.WithMetrics(c))
	_, err = other.Import(doc, entity.ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2.0, value(t, reg, "breeze_entities_imported_total", nil))
}

func TestCollectorSaveError(t *testing.T) {
	errOffline := errors.New("offline")
	svc := memory.MustNew(testmodel.Schemas(), memory.WithSaveHook(func(context.Context, *entity.Document) error {
		return errOffline
	}))
	c := metrics.New(metrics.WithNamespace("app"), metrics.WithBuckets(0.1, 1))
	reg := prometheus.NewRegistry()
	reg.MustRegister(c)
	m := entity.MustNewManager(svc.Graph(), entity.WithDataService(svc), entity.WithMetrics(c))

	_, err := m.CreateEntity("Order", nil)
	require.NoError(t, err)
	_, err = m.SaveChanges(context.Background())
	require.ErrorIs(t, err, errOffline)

	assert.Equal(t, 1.0, value(t, reg, "app_saves_total", map[string]string{"status": "error"}))
	assert.Equal(t, 0.0, value(t, reg, "app_saved_entities_total", nil))
}
