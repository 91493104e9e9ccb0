package collatz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStep(t *testing.T) {
	for i := 0; i < len(sevenTrace)-1; i++ {
		assert.Equal(t, sevenTrace[i+1], Step(sevenTrace[i]), "Step(%d)", sevenTrace[i])
	}
}

func TestStep_Parity(t *testing.T) {
	for n := uint64(1); n <= 1000; n++ {
		if n%2 == 0 {
			assert.Equal(t, n/2, Step(n))
		} else {
			assert.Equal(t, 3*n+1, Step(n))
		}
	}
}
