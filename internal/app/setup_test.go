package app

import "testing"

func TestRateBurstFromEnv(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
	}{
		{"unset", "", 0},
		{"valid", "120", 120},
		{"negative", "-5", 0},
		{"garbage", "lots", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SURFKIT_RATE_BURST", tt.value)
			if got := rateBurstFromEnv(); got != tt.want {
				t.Errorf("rateBurstFromEnv() = %d, want %d", got, tt.want)
			}
		})
	}
}
