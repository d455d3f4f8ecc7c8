package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogTraceCorrelation(t *testing.T) {
	tp, err := InitTracer(context.Background(), "blogsmith-test", "test")
	require.NoError(t, err)
	defer tp.Shutdown(context.Background())

	var buf bytes.Buffer
	log := slog.New(&traceHandler{inner: slog.NewJSONHandler(&buf, nil)})

	ctx, span := StartSpan(context.Background(), "pipeline.extract")
	log.InfoContext(ctx, "inside span")
	span.End()

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.NotEmpty(t, line["trace_id"])
	assert.NotEmpty(t, line["span_id"])
}

func TestLogWithoutSpanHasNoTraceFields(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(&traceHandler{inner: slog.NewJSONHandler(&buf, nil)})

	log.InfoContext(context.Background(), "no span")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.NotContains(t, line, "trace_id")
	assert.NotContains(t, line, "span_id")
}
