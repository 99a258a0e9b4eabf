package observability

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitDisabledIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{}, nil)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Init(context.Background(), Config{Enabled: true, ServiceName: "test", Writer: &buf}, nil)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "llm.Invoke")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), `"Name":"llm.Invoke"`)
}
