package amqp

import (
	"errors"
	"fmt"
	"testing"
	"time"
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
		{15, 30 * time.Second}, // capped at 30s
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			result := exponentialBackoff(tt.attempt)
			if result != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, result, tt.expected)
			}
		})
	}
}

func TestShouldRequeue(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "transient store failure requeues",
			err:      errors.New("insert staged transaction: database is locked"),
			expected: true,
		},
		{
			name:     "unprocessable message is dropped",
			err:      fmt.Errorf("%w: parse staged date %q", ErrUnprocessable, "10/01/2026"),
			expected: false,
		},
		{
			name:     "deeply wrapped unprocessable is still dropped",
			err:      fmt.Errorf("handle message: %w", fmt.Errorf("%w: bad amount", ErrUnprocessable)),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldRequeue(tt.err); got != tt.expected {
				t.Errorf("shouldRequeue(%v) = %v, want %v", tt.err, got, tt.expected)
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
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "connection refused",
			err:      errors.New("connection refused"),
			expected: true,
		},
		{
			name:     "closed connection",
			err:      errors.New("connection closed"),
			expected: true,
		},
		{
			name:     "EOF",
			err:      errors.New("unexpected EOF"),
			expected: true,
		},
		{
			name:     "broken pipe",
			err:      errors.New("broken pipe"),
			expected: true,
		},
		{
			name:     "closed network connection",
			err:      errors.New("use of closed network connection"),
			expected: true,
		},
		{
			name:     "delivery channel closed",
			err:      errors.New("message channel closed"),
			expected: true,
		},
		{
			name:     "other error",
			err:      errors.New("some other error"),
			expected: false,
		},
		{
			name:     "validation error",
			err:      errors.New("invalid input"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isConnectionError(tt.err)
			if result != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, result, tt.expected)
			}
		})
	}
}

func TestStagedTransactionMessageRoundTrip(t *testing.T) {
	msg := NewStagedTransactionMessage("wa-42", "2026-01-15", "expense", "1250.50", "Nafta", "whatsapp")
	msg.Category = "Combustibles"

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	decoded, err := StagedTransactionMessageFromJSON(body)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}

	if decoded.TxRef != "wa-42" {
		t.Errorf("tx_ref = %q", decoded.TxRef)
	}
	if decoded.Amount != "1250.50" {
		t.Errorf("amount = %q", decoded.Amount)
	}
	if decoded.Category != "Combustibles" {
		t.Errorf("category not round-tripped: %+v", decoded)
	}
	if decoded.Timestamp.IsZero() {
		t.Error("timestamp should be set")
	}
}

func TestStagedTransactionMessageFromJSONInvalid(t *testing.T) {
	if _, err := StagedTransactionMessageFromJSON([]byte("not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}
