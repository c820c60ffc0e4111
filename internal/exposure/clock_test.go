package exposure

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWholeSeconds_Truncates(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want int64
	}{
		{0, 0},
		{999 * time.Millisecond, 0},
		{time.Second, 1},
		{2500 * time.Millisecond, 2},
		{2999 * time.Millisecond, 2},
		{-1500 * time.Millisecond, -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, wholeSeconds(tt.in), "%v", tt.in)
	}
}

func TestSystemClock(t *testing.T) {
	before := time.Now()
	now := SystemClock{}.Now()
	assert.False(t, now.Before(before))
}
