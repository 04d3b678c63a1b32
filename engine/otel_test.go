package engine

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestProcessWithTracerRecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	e := newTestEngine(t, Config{}, WithOTel(OTelOptions{TracerProvider: tp}))

	_, err := e.Process(context.Background(), rawWithPerformance("a", 0.5, 1))
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "engine.Process", spans[0].Name())
}

func TestProcessFailureMarksSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	e := newTestEngine(t, Config{}, WithOTel(OTelOptions{TracerProvider: tp}))

	_, err := e.Process(context.Background(), rawWithPerformance("a", math.NaN(), 0))
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.NotEmpty(t, spans[0].Events(), "error recorded on span")
}

func TestProcessWithoutOTelIsNilSafe(t *testing.T) {
	e := newTestEngine(t, Config{})

	_, err := e.Process(context.Background(), rawWithPerformance("a", 0.5, 1))
	require.NoError(t, err)
}
