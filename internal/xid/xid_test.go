package xid

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReferenceEmbedsTimestamp(t *testing.T) {
	at := time.Date(2024, 1, 1, 15, 30, 45, 0, time.Local)
	ref := Reference("POS", at)

	assert.True(t, strings.HasPrefix(ref, "POS-20240101-153045"), "got %s", ref)
}

func TestNewIsUnique(t *testing.T) {
	a := New("req")
	b := New("req")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "req-"))
}
