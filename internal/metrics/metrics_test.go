package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersCollectors(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := New(reg)

	m.AudioChunks.Inc()
	m.AudioBytes.Add(4096)
	m.InputLevel.Set(0.5)
	m.StreamEvents.WithLabelValues("delta").Inc()
	m.StreamSends.Inc()
	m.Sessions.WithLabelValues("realtime").Inc()

	if got := testutil.ToFloat64(m.AudioChunks); got != 1 {
		t.Fatalf("unexpected chunk count: %v", got)
	}
	if got := testutil.ToFloat64(m.InputLevel); got != 0.5 {
		t.Fatalf("unexpected level: %v", got)
	}
	if got := testutil.ToFloat64(m.StreamEvents.WithLabelValues("delta")); got != 1 {
		t.Fatalf("unexpected event count: %v", got)
	}
	if got := testutil.ToFloat64(m.Sessions.WithLabelValues("realtime")); got != 1 {
		t.Fatalf("unexpected session count: %v", got)
	}
}

func TestNewPanicsOnDuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	New(reg)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected duplicate registration to panic")
		}
	}()
	New(reg)
}
