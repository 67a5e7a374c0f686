package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func family(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric %s not found", name)
	return nil
}

func TestCollectorCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCollection("ai-safety", "primary", 6)
	c.RecordCollection("ai-safety", "primary", 2)
	c.RecordCategoryExhausted("business-ai")
	c.RecordAIFallback("gemini")
	c.RecordPublish("posted")
	c.RecordPublish("posted")
	c.RecordMetricsFetched("day1", 9)

	mf := family(t, reg, "slate_collected_articles_total")
	require.Len(t, mf.GetMetric(), 1)
	assert.Equal(t, 8.0, mf.GetMetric()[0].GetCounter().GetValue())

	mf = family(t, reg, "slate_publish_total")
	assert.Equal(t, 2.0, mf.GetMetric()[0].GetCounter().GetValue())

	mf = family(t, reg, "slate_category_exhausted_total")
	assert.Equal(t, "business-ai", mf.GetMetric()[0].GetLabel()[0].GetValue())
}

func TestCollectorSlotGaugeResets(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSlotStatuses(map[string]int{"ready": 9})
	c.RecordSlotStatuses(map[string]int{"ready": 8, "posted": 1})

	mf := family(t, reg, "slate_slots")
	values := map[string]float64{}
	for _, m := range mf.GetMetric() {
		values[m.GetLabel()[0].GetValue()] = m.GetGauge().GetValue()
	}
	assert.Equal(t, map[string]float64{"ready": 8, "posted": 1}, values)
}

func TestHandlerServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordStage("collect", "completed", 3*time.Second)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `slate_stage_duration_seconds_count{stage="collect",status="completed"} 1`)
}
