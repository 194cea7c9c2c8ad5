package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsFinishedState(t *testing.T) {
	for _, s := range []string{"Finished", "COMPLETED", " done ", "finished"} {
		assert.True(t, IsFinishedState(s), s)
	}
	for _, s := range []string{"", "In Progress", "Draft", "finish"} {
		assert.False(t, IsFinishedState(s), s)
	}
}

func TestSameState(t *testing.T) {
	assert.True(t, SameState("Delivered", " delivered"))
	assert.False(t, SameState("delivered", "pending"))
}
