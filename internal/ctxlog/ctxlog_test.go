package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext_ReturnsEmbeddedLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := WithLogger(context.Background(), logger)
	require.Same(t, logger, FromContext(ctx))
}

func TestWith_AddsAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := With(WithLogger(context.Background(), logger), "rank", 3)
	FromContext(ctx).Info("hello")

	assert.Contains(t, buf.String(), "rank=3")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestFromContext_PanicsWithoutLogger(t *testing.T) {
	assert.Panics(t, func() { FromContext(context.Background()) })
}
