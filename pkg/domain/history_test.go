package domain_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snap(i int) domain.Snapshot {
	d := domain.Data{}
	d.Set("ns", "i", i)
	return domain.Snapshot{State: domain.FlowID(fmt.Sprintf("flow-%d", i)), Step: "s", Data: d}
}

func TestHistory_BoundedDropsOldest(t *testing.T) {
	h := domain.NewHistory(3)
	for i := 0; i < 10; i++ {
		h.Push(snap(i))
		assert.LessOrEqual(t, h.Len(), h.Cap())
	}

	entries := h.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, domain.FlowID("flow-7"), entries[0].State)
	assert.Equal(t, domain.FlowID("flow-9"), entries[2].State)

	last, ok := h.Pop()
	require.True(t, ok)
	assert.Equal(t, domain.FlowID("flow-9"), last.State)
	assert.Equal(t, 2, h.Len())
}

func TestHistory_PopEmpty(t *testing.T) {
	h := domain.NewHistory(2)
	_, ok := h.Pop()
	assert.False(t, ok)
}

func TestHistory_PushDeepCopies(t *testing.T) {
	h := domain.NewHistory(2)
	d := domain.Data{}
	d.Set("registration", "address", map[string]any{"district": "Khordha"})
	h.Push(domain.Snapshot{State: "registration", Step: "postalCode", Data: d})

	// mutate the live value after pushing
	d.Map("registration", "address")["district"] = "Cuttack"

	got, ok := h.Pop()
	require.True(t, ok)
	assert.Equal(t, "Khordha", got.Data.Map("registration", "address")["district"])
}

func TestHistory_JSONRoundTrip(t *testing.T) {
	h := domain.NewHistory(4)
	h.Push(snap(1))
	h.Push(snap(2))

	raw, err := json.Marshal(h)
	require.NoError(t, err)

	var back domain.History
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, 4, back.Cap())
	require.Equal(t, 2, back.Len())
	top, _ := back.Peek()
	assert.Equal(t, domain.FlowID("flow-2"), top.State)
}
