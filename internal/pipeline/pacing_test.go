package pipeline

import (
	"testing"
	"time"
)

func TestDeterminePauseBetweenVMsScalesWithLog2(t *testing.T) {
	cases := []struct {
		count int
		want  time.Duration
	}{
		{0, 0},
		{1, 0},
		{2, 2 * time.Second},
		{4, 4 * time.Second},
		{5, 6 * time.Second},
	}
	for _, c := range cases {
		got := determinePauseBetweenVMs(c.count)
		if got != c.want {
			t.Errorf("determinePauseBetweenVMs(%d) = %v, want %v", c.count, got, c.want)
		}
	}
}
