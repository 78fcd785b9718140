package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&Config{Level: "debug", Format: "json", Writer: &buf})
	require.NoError(t, err)

	at := time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)
	l.With(String("component", "engine")).Info("window found",
		String("body", "Moon"),
		Int("step_minutes", 2),
		Int64("steps", 1234),
		Float64("lon", 45.5),
		Bool("refined", false),
		Time("entry", at),
		Duration("took", 1500*time.Millisecond),
	)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "window found", entry["message"])
	assert.Equal(t, "engine", entry["component"])
	assert.Equal(t, "Moon", entry["body"])
	assert.EqualValues(t, 2, entry["step_minutes"])
	assert.EqualValues(t, 1234, entry["steps"])
	assert.EqualValues(t, 45.5, entry["lon"])
	assert.EqualValues(t, 1500, entry["took"])
	assert.Contains(t, entry, "caller")
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&Config{Level: "WARN", Writer: &buf})
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("hidden")
	assert.Zero(t, buf.Len())
	assert.False(t, l.DebugEnabled())

	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestLogger_InvalidLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud"})
	require.Error(t, err)
}

type capturePublisher struct {
	mu      sync.Mutex
	topic   string
	batches [][]AggregatedLogEntry
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return nil
}

func TestLogCollector_AggregatesErrors(t *testing.T) {
	pub := &capturePublisher{}
	l := Nop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 10, Topic: "astro-logs", Publisher: pub})

	for i := 0; i < 3; i++ {
		l.Error("provider failed", String("body", "Mars"), Error(errors.New("timeout")))
	}
	l.Warn("not collected")
	require.Equal(t, 1, l.collector.Pending())

	l.RemoveCollector()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.batches, 1)
	assert.Equal(t, "astro-logs", pub.topic)
	entry := pub.batches[0][0]
	assert.Equal(t, 3, entry.Count)
	assert.Equal(t, "Mars", entry.Fields["body"])
	assert.Equal(t, "timeout", entry.Fields["error"])
	assert.Contains(t, entry.Caller, "logger/logger_test.go")
}

func TestLogCollector_ThresholdFlush(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 2, Publisher: pub})

	c.AddLog("error", "a", nil, "x:1")
	c.AddLog("error", "b", nil, "x:2")
	c.Close()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.batches, 1)
	assert.Len(t, pub.batches[0], 2)
	assert.Zero(t, c.Pending())
}
