package tracing

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpanTree(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "search", "req-1")
	_, child := StartChildSpan(ctx, "search.score")
	child.SetAttr("candidates", 3)
	child.End()
	root.End()

	assert.Same(t, root, FromContext(ctx))
	require.Len(t, root.Children(), 1)
	assert.Equal(t, "req-1", child.TraceID)
}

func TestStartChildSpan_WithoutParent(t *testing.T) {
	ctx, s := StartChildSpan(context.Background(), "orphan")
	s.End()
	assert.Empty(t, s.TraceID)
	assert.Same(t, s, FromContext(ctx))
	assert.Nil(t, FromContext(context.Background()))
}

func TestSpan_LogDepthFirst(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	ctx, root := StartSpan(context.Background(), "search", "req-2")
	cctx, a := StartChildSpan(ctx, "a")
	_, a1 := StartChildSpan(cctx, "a1")
	_, b := StartChildSpan(ctx, "b")
	for _, s := range []*Span{a1, a, b, root} {
		s.End()
	}
	root.Log()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	var names, parents []string
	for _, line := range lines {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		names = append(names, rec["span"].(string))
		p, _ := rec["parent"].(string)
		parents = append(parents, p)
	}
	assert.Equal(t, []string{"search", "a", "a1", "b"}, names)
	assert.Equal(t, []string{"", "search", "a", "search"}, parents)
}
