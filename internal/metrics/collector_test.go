package metrics

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var collectorNamespaceSeq uint64

func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func TestNewCollector(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	assert.NotNil(t, collector.httpRequestsTotal)
	assert.NotNil(t, collector.stageDuration)
	assert.NotNil(t, collector.providerRequestsTotal)
	assert.NotNil(t, collector.llmTokensUsed)
}

func TestCollector_RecordHTTPRequest(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordHTTPRequest("POST", "/api/v1/chat", 200, 100*time.Millisecond, 1024, 2048)
	collector.RecordHTTPRequest("POST", "/api/v1/chat", 503, 10*time.Millisecond, 10, 20)

	assert.Equal(t, 2, testutil.CollectAndCount(collector.httpRequestsTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("POST", "/api/v1/chat", "5xx")))
}

func TestCollector_PipelineMetrics(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.ObserveStage("retrieving", 20*time.Millisecond)
	collector.ObserveStage("generating", time.Second)
	collector.RecordAnswer("itinerary", "ok")
	collector.RecordAnswer("itinerary", "ok")
	collector.RecordAnswer("factual", "degraded")
	collector.RecordEnrichmentFailure()

	assert.Equal(t, 2, testutil.CollectAndCount(collector.stageDuration))
	assert.Equal(t, float64(2), testutil.ToFloat64(collector.answersTotal.WithLabelValues("itinerary", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.enrichmentFailures))
}

func TestCollector_ProviderMetrics(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordProviderRequest("openai", "embed", "success", 200*time.Millisecond)
	collector.RecordProviderRequest("pinecone", "query", "error", 50*time.Millisecond)
	collector.RecordTokens("openai", "gpt-4o-mini", 100, 50)

	assert.Equal(t, 2, testutil.CollectAndCount(collector.providerRequestsTotal))
	assert.Equal(t, float64(50), testutil.ToFloat64(collector.llmTokensUsed.WithLabelValues("openai", "gpt-4o-mini", "completion")))
}

func TestCollector_RecordCacheLookup(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordCacheLookup("redis", true)
	collector.RecordCacheLookup("redis", false)
	collector.RecordCacheLookup("redis", false)

	assert.Equal(t, float64(1), testutil.ToFloat64(collector.cacheHits.WithLabelValues("redis")))
	assert.Equal(t, float64(2), testutil.ToFloat64(collector.cacheMisses.WithLabelValues("redis")))
}

func TestCollector_RecordDBConnections(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordDBConnections("sqlite", 1, 1)

	assert.Equal(t, float64(1), testutil.ToFloat64(collector.dbConnectionsOpen.WithLabelValues("sqlite")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.dbConnectionsIdle.WithLabelValues("sqlite")))
}

func TestCollector_ConcurrentRecording(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			collector.RecordHTTPRequest("GET", "/health", 200, time.Millisecond, 0, 64)
			collector.RecordCacheLookup("memory", true)
			collector.ObserveStage("ranking", time.Millisecond)
		}()
	}
	wg.Wait()

	assert.Equal(t, float64(10), testutil.ToFloat64(collector.cacheHits.WithLabelValues("memory")))
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, "2xx", statusCode(204))
	assert.Equal(t, "3xx", statusCode(302))
	assert.Equal(t, "4xx", statusCode(429))
	assert.Equal(t, "5xx", statusCode(502))
	assert.Equal(t, "unknown", statusCode(0))
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	r.ObserveStage("done", time.Second)
	r.RecordCacheLookup("memory", true)
	r.RecordProviderRequest("openai", "chat", "success", time.Second)
	r.RecordTokens("openai", "m", 1, 1)
	r.RecordEnrichmentFailure()
	r.RecordAnswer("general", "ok")
}
