package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGoroutineID(t *testing.T) {
	self := GoroutineID()
	assert.Greater(t, self, int64(0))
	assert.Equal(t, self, GoroutineID())

	other := make(chan int64)
	go func() { other <- GoroutineID() }()
	id := <-other
	assert.Greater(t, id, int64(0))
	assert.NotEqual(t, self, id)
}
