package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/BaSui01/travelrag/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"
)

// keepGlobals 测试结束后恢复全局 provider 与 propagator
func keepGlobals(t *testing.T) {
	t.Helper()
	tp, mp, prop := otel.GetTracerProvider(), otel.GetMeterProvider(), otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetMeterProvider(mp)
		otel.SetTextMapPropagator(prop)
	})
}

func TestInit(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.TelemetryConfig
		enabled bool
	}{
		{"disabled", config.TelemetryConfig{}, false},
		{"enabled", config.TelemetryConfig{Enabled: true, OTLPEndpoint: "localhost:4317", ServiceName: "travelrag-test", SampleRate: 0.5}, true},
		{"default service name", config.TelemetryConfig{Enabled: true, OTLPEndpoint: "localhost:4317", SampleRate: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keepGlobals(t)

			p, err := Init(tt.cfg, zaptest.NewLogger(t))
			require.NoError(t, err)
			require.NotNil(t, p)
			t.Cleanup(func() {
				// 没有 collector，导出失败可以忽略
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = p.Shutdown(ctx)
			})

			if !tt.enabled {
				assert.Nil(t, p.tp)
				assert.Nil(t, p.mp)
				return
			}
			assert.IsType(t, &sdktrace.TracerProvider{}, otel.GetTracerProvider())
			assert.IsType(t, &sdkmetric.MeterProvider{}, otel.GetMeterProvider())
			assert.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")
		})
	}
}

func TestInit_NilLogger(t *testing.T) {
	keepGlobals(t)

	p, err := Init(config.TelemetryConfig{}, nil)
	require.NoError(t, err)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestProviders_ShutdownNil(t *testing.T) {
	var p *Providers
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestTracer_ResolvedLazily(t *testing.T) {
	keepGlobals(t)

	// Init 晚于组件构造时，Tracer 仍解析到新安装的 provider
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	_, span := Tracer().Start(context.Background(), "rag.retrieving")
	span.End()

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "rag.retrieving", ended[0].Name())
	assert.Equal(t, InstrumentationName, ended[0].InstrumentationScope().Name)
}
