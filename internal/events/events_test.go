package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmit_AssignsIDAndTimestamp(t *testing.T) {
	log := NewLog()
	ev := log.Emit(TypeEvidence, "found a match", map[string]any{"score": 0.9})

	require.NotEmpty(t, ev.EventID)
	assert.False(t, ev.Timestamp.IsZero())
	assert.Equal(t, TypeEvidence, ev.Type)
	assert.Equal(t, 1, log.Len())
}

func TestAppend_IdempotentByEventID(t *testing.T) {
	log := NewLog()
	ev := Event{EventID: "fixed-id", Type: TypeFinal, Message: "done"}

	log.Append(ev)
	log.Append(ev)
	log.Append(ev)

	assert.Equal(t, 1, log.Len())
}

func TestAppend_NeverRewritesPastEvent(t *testing.T) {
	log := NewLog()
	original := Event{EventID: "fixed-id", Type: TypeFinal, Message: "first"}
	log.Append(original)

	mutated := original
	mutated.Message = "second"
	log.Append(mutated)

	all := log.All()
	require.Len(t, all, 1)
	assert.Equal(t, "first", all[0].Message)
}

func TestSince_ReturnsOnlyNewEvents(t *testing.T) {
	log := NewLog()
	log.Emit(TypeStepStart, "a", nil)
	log.Emit(TypeStepUpdate, "b", nil)

	first, n := log.Since(0)
	require.Len(t, first, 2)
	assert.Equal(t, 2, n)

	log.Emit(TypeStepComplete, "c", nil)
	more, n2 := log.Since(n)
	require.Len(t, more, 1)
	assert.Equal(t, "c", more[0].Message)
	assert.Equal(t, 3, n2)
}

func TestSince_OutOfRangeReturnsNil(t *testing.T) {
	log := NewLog()
	log.Emit(TypeStepStart, "a", nil)

	out, n := log.Since(5)
	assert.Nil(t, out)
	assert.Equal(t, 1, n)
}

func TestAll_ReturnsDefensiveCopy(t *testing.T) {
	log := NewLog()
	log.Emit(TypeStepStart, "a", nil)

	snapshot := log.All()
	snapshot[0].Message = "mutated"

	assert.Equal(t, "a", log.All()[0].Message)
}
