package audit

import (
	"context"
	"sync"
	"testing"
	"time"
)

// mockStore records all batches that were inserted.
type mockStore struct {
	mu      sync.Mutex
	batches [][]Turn
}

func (m *mockStore) BatchInsert(ctx context.Context, turns []Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]Turn, len(turns))
	copy(cp, turns)
	m.batches = append(m.batches, cp)
	return nil
}

func (m *mockStore) totalInserted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.batches {
		n += len(b)
	}
	return n
}

func sampleTurn(outcome string) Turn {
	return Turn{
		OrgID:        "org-1",
		UserID:       "user-1",
		Timestamp:    time.Now(),
		Outcome:      outcome,
		LatencyMs:    42,
		MessageChars: 30,
	}
}

func TestCollector_RecordAddsToBuffer(t *testing.T) {
	ms := &mockStore{}
	c := NewCollector(ms, 100, time.Hour)

	c.Record(sampleTurn(OutcomeOK))
	c.Record(sampleTurn(OutcomeRejected))

	c.mu.Lock()
	bufLen := len(c.buffer)
	c.mu.Unlock()

	if bufLen != 2 {
		t.Fatalf("expected buffer length 2, got %d", bufLen)
	}
	if ms.totalInserted() != 0 {
		t.Fatalf("expected 0 inserted before flush, got %d", ms.totalInserted())
	}
}

func TestCollector_FlushOnBatchSize(t *testing.T) {
	tests := []struct {
		name      string
		batchSize int
		records   int
		wantFlush int
	}{
		{name: "exact batch size triggers flush", batchSize: 3, records: 3, wantFlush: 3},
		{name: "below batch size buffers", batchSize: 5, records: 4, wantFlush: 0},
		{name: "two full batches", batchSize: 2, records: 4, wantFlush: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := &mockStore{}
			c := NewCollector(ms, tt.batchSize, time.Hour)

			for i := 0; i < tt.records; i++ {
				c.Record(sampleTurn(OutcomeOK))
			}

			if got := ms.totalInserted(); got != tt.wantFlush {
				t.Fatalf("expected %d flushed, got %d", tt.wantFlush, got)
			}
		})
	}
}

func TestCollector_StopFlushesRemainder(t *testing.T) {
	ms := &mockStore{}
	c := NewCollector(ms, 100, time.Hour)

	done := make(chan struct{})
	go func() {
		c.Start(context.Background())
		close(done)
	}()

	c.Record(sampleTurn(OutcomeOK))
	c.Record(sampleTurn(OutcomeProvider))

	c.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("collector did not stop")
	}

	if got := ms.totalInserted(); got != 2 {
		t.Fatalf("expected 2 flushed on stop, got %d", got)
	}
}

func TestCollector_TickerFlush(t *testing.T) {
	ms := &mockStore{}
	c := NewCollector(ms, 100, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Start(ctx)

	c.Record(sampleTurn(OutcomeOK))

	deadline := time.After(2 * time.Second)
	for ms.totalInserted() < 1 {
		select {
		case <-deadline:
			t.Fatal("ticker never flushed the buffer")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
