package session

import (
	"testing"
	"time"
)

func TestValidAt(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{"future", now.Add(time.Second), true},
		{"exactly_now", now, false},
		{"past", now.Add(-time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Session{ExpiresAt: tt.expiresAt}
			if got := s.ValidAt(now); got != tt.want {
				t.Fatalf("ValidAt() = %v, want %v", got, tt.want)
			}
		})
	}
}
