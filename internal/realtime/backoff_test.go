package realtime

import (
	"testing"
	"time"
)

func TestExponential_Delay(t *testing.T) {
	policy := DefaultPolicy()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 0, want: time.Second},
		{attempt: 1, want: 1500 * time.Millisecond},
		{attempt: 2, want: 2250 * time.Millisecond},
		{attempt: 3, want: 3375 * time.Millisecond},
		{attempt: 9, want: 30 * time.Second},
		{attempt: 10000, want: 30 * time.Second},
		{attempt: -1, want: time.Second},
	}

	for _, tt := range tests {
		if got := policy.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestExponential_NonDecreasingAndCapped(t *testing.T) {
	policies := map[string]Exponential{
		"default":  DefaultPolicy(),
		"doubling": {Base: 100 * time.Millisecond, Factor: 2, Max: 5 * time.Second},
		"shrink":   {Base: time.Second, Factor: 0.5, Max: 10 * time.Second},
	}

	for name, policy := range policies {
		t.Run(name, func(t *testing.T) {
			var prev time.Duration
			for n := 0; n < 200; n++ {
				d := policy.Delay(n)
				if d < prev {
					t.Fatalf("Delay(%d) = %v is less than Delay(%d) = %v", n, d, n-1, prev)
				}
				if d > policy.Max {
					t.Fatalf("Delay(%d) = %v exceeds max %v", n, d, policy.Max)
				}
				prev = d
			}
		})
	}
}

func TestFixed_Delay(t *testing.T) {
	policy := Fixed{Interval: 3 * time.Second}
	for n := 0; n < 5; n++ {
		if got := policy.Delay(n); got != 3*time.Second {
			t.Errorf("Delay(%d) = %v, want 3s", n, got)
		}
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		Disconnected: "disconnected",
		Connecting:   "connecting",
		Connected:    "connected",
		Closing:      "closing",
		State(42):    "unknown",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(state), got, want)
		}
	}
}
