package log

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/mocktracer"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

func TestWithDDAddsCorrelationFields(t *testing.T) {
	mt := mocktracer.Start()
	defer mt.Stop()

	core, logs := observer.New(zap.InfoLevel)
	sp, ctx := tracer.StartSpanFromContext(context.Background(), "test.op")
	WithDD(ctx, zap.New(core)).Info("hello")
	sp.Finish()

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.NotEmpty(t, fields["dd.trace_id"])
	assert.NotEmpty(t, fields["dd.span_id"])
}

func TestWithDDWithoutSpan(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	WithDD(context.Background(), zap.New(core), zap.String("post_id", "p1")).Info("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "p1", fields["post_id"])
	_, has := fields["dd.trace_id"]
	assert.False(t, has)
}

func TestLBeforeInit(t *testing.T) {
	assert.NotNil(t, L())
}
