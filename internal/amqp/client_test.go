package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"bilancio/internal/core"

	"github.com/rabbitmq/amqp091-go"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},  // capped at 30s
		{10, 30 * time.Second}, // capped at 30s
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if result := exponentialBackoff(tt.attempt); result != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, result, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"closed connection", errors.New("connection closed"), true},
		{"EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"amqp closed sentinel", fmt.Errorf("publish: %w", amqp091.ErrClosed), true},
		{"other error", errors.New("some other error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := isConnectionError(tt.err); result != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, result, tt.expected)
			}
		})
	}
}

func TestClient_CircuitBreaker(t *testing.T) {
	client := &Client{exchangeName: "test_exchange", queueName: "test_queue"}

	if client.isCircuitOpen() {
		t.Fatal("Circuit breaker should be closed initially")
	}

	for i := 0; i < maxFailures; i++ {
		client.recordFailure()
	}
	if !client.isCircuitOpen() {
		t.Fatal("Circuit breaker should be open after max failures")
	}

	client.lastFailure = time.Now().Add(-openTimeout - time.Second)
	if client.isCircuitOpen() {
		t.Fatal("Circuit should transition to half-open after timeout")
	}
	if atomic.LoadInt32(&client.state) != StateHalfOpen {
		t.Fatal("State should be StateHalfOpen after timeout")
	}

	// one failure while half-open trips it again
	client.recordFailure()
	if atomic.LoadInt32(&client.state) != StateOpen {
		t.Fatal("half-open failure should reopen the circuit")
	}

	client.recordSuccess()
	if client.isCircuitOpen() || atomic.LoadInt64(&client.failureCount) != 0 {
		t.Fatal("success should close the circuit and reset failures")
	}
}

func TestClient_PublishShortCircuits(t *testing.T) {
	client := &Client{exchangeName: "test_exchange", queueName: "test_queue"}
	evt := NewLedgerEvent(OpCreate, core.KindExpense, 1, "u1", core.Period{Year: 2025, Month: time.March})

	atomic.StoreInt32(&client.state, StateOpen)
	client.lastFailure = time.Now()
	err := client.Publish(context.Background(), evt)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("Publish() error = %v, want ErrCircuitOpen", err)
	}

	atomic.StoreInt32(&client.state, StateClosed)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.Publish(ctx, evt); err != context.Canceled {
		t.Fatalf("Publish() error = %v, want context.Canceled", err)
	}
}

func TestNewLedgerEvent(t *testing.T) {
	evt := NewLedgerEvent(OpUpdate, core.KindBudget, 7, "user-1", core.Period{Year: 2025, Month: time.November})

	if evt.EventID == "" || evt.Timestamp.IsZero() {
		t.Fatalf("event not stamped: %+v", evt)
	}
	if evt.Year != 2025 || evt.Month != 11 {
		t.Errorf("period = %d-%d", evt.Year, evt.Month)
	}
	if evt.Period() != (core.Period{Year: 2025, Month: time.November}) {
		t.Errorf("Period() = %v", evt.Period())
	}
}

func TestLedgerEventFromJSON(t *testing.T) {
	body := []byte(`{"event_id":"e1","op":"delete","kind":"income","entry_id":3,"user_id":"u1","year":2025,"month":2,"timestamp":"2025-02-03T10:00:00Z"}`)
	evt, err := LedgerEventFromJSON(body)
	if err != nil {
		t.Fatalf("LedgerEventFromJSON() error = %v", err)
	}
	if evt.Op != OpDelete || evt.Kind != core.KindIncome || evt.EntryID != 3 {
		t.Errorf("decoded %+v", evt)
	}

	for _, bad := range []string{
		`{"entry_id": "x"}`,
		`{"op":"rename","kind":"income","entry_id":1,"user_id":"u"}`,
		`{"op":"create","kind":"transfer","entry_id":1,"user_id":"u"}`,
		`{"op":"create","kind":"income","entry_id":0,"user_id":"u"}`,
	} {
		if _, err := LedgerEventFromJSON([]byte(bad)); err == nil {
			t.Errorf("expected error for %s", bad)
		} else if strings.TrimSpace(err.Error()) == "" {
			t.Errorf("empty error for %s", bad)
		}
	}
}
