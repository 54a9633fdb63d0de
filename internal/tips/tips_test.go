package tips

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAt_Wraps(t *testing.T) {
	assert.Equal(t, 8, Len())
	assert.Equal(t, "The Pomodoro Technique", At(0).Title)
	assert.Equal(t, At(0), At(Len()))
	assert.Equal(t, At(Len()-1), At(-1))
}

func TestNext_Cycles(t *testing.T) {
	n := 0
	seen := map[string]bool{}
	for range Len() {
		seen[At(n).Title] = true
		n = Next(n)
	}
	assert.Zero(t, n)
	assert.Len(t, seen, Len())
}
