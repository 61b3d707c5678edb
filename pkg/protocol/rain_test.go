package protocol

import "testing"

func TestRainAccumulator(t *testing.T) {
	tests := []struct {
		name   string
		counts []int
		deltas []int
	}{
		{
			name:   "baseline then normal then wraparound",
			counts: []int{5, 8, 3},
			deltas: []int{0, 3, 123},
		},
		{
			name:   "no rain",
			counts: []int{17, 17, 17},
			deltas: []int{0, 0, 0},
		},
		{
			name:   "wrap at domain edge",
			counts: []int{127, 0},
			deltas: []int{0, 1},
		},
		{
			name:   "first observation never accumulates",
			counts: []int{126},
			deltas: []int{0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := NewRainAccumulator()
			for i, c := range tt.counts {
				if got := acc.Update(c); got != tt.deltas[i] {
					t.Errorf("Update(%d) [step %d] = %d, want %d", c, i, got, tt.deltas[i])
				}
			}
		})
	}
}
