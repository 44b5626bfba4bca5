package domain

import "encoding/json"

// DefaultHistoryCap bounds back-navigation depth when no capacity is configured.
const DefaultHistoryCap = 10

// Snapshot is one restorable point of a session.
type Snapshot struct {
	State FlowID `json:"state"`
	Step  StepID `json:"step"`
	Data  Data   `json:"data"`
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{State: s.State, Step: s.Step, Data: s.Data.Clone()}
}

// History is a fixed-capacity ring of snapshots. When full, pushing drops
// the oldest entry. Entries are deep-copied on the way in and on the way out.
type History struct {
	buf   []Snapshot
	start int
	n     int
}

// NewHistory creates an empty ring that holds at most capacity snapshots.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCap
	}
	return &History{buf: make([]Snapshot, capacity)}
}

// Cap returns the capacity of the ring.
func (h *History) Cap() int { return len(h.buf) }

// Len returns the number of stored snapshots.
func (h *History) Len() int { return h.n }

// Push stores a deep copy of s as the most recent entry.
func (h *History) Push(s Snapshot) {
	if len(h.buf) == 0 {
		h.buf = make([]Snapshot, DefaultHistoryCap)
	}
	if h.n == len(h.buf) {
		// full: overwrite the oldest slot and advance the head
		h.buf[h.start] = s.Clone()
		h.start = (h.start + 1) % len(h.buf)
		return
	}
	h.buf[(h.start+h.n)%len(h.buf)] = s.Clone()
	h.n++
}

// Pop removes and returns the most recent entry.
func (h *History) Pop() (Snapshot, bool) {
	if h.n == 0 {
		return Snapshot{}, false
	}
	idx := (h.start + h.n - 1) % len(h.buf)
	s := h.buf[idx]
	h.buf[idx] = Snapshot{}
	h.n--
	return s, true
}

// Peek returns a copy of the most recent entry without removing it.
func (h *History) Peek() (Snapshot, bool) {
	if h.n == 0 {
		return Snapshot{}, false
	}
	return h.buf[(h.start+h.n-1)%len(h.buf)].Clone(), true
}

// Entries returns copies of the stored snapshots, oldest first.
func (h *History) Entries() []Snapshot {
	out := make([]Snapshot, 0, h.n)
	for i := 0; i < h.n; i++ {
		out = append(out, h.buf[(h.start+i)%len(h.buf)].Clone())
	}
	return out
}

// Clone returns an independent copy of the ring.
func (h *History) Clone() *History {
	if h == nil {
		return nil
	}
	out := NewHistory(h.Cap())
	for _, s := range h.Entries() {
		out.Push(s)
	}
	return out
}

type historyJSON struct {
	Cap     int        `json:"cap"`
	Entries []Snapshot `json:"entries"`
}

func (h *History) MarshalJSON() ([]byte, error) {
	return json.Marshal(historyJSON{Cap: h.Cap(), Entries: h.Entries()})
}

func (h *History) UnmarshalJSON(b []byte) error {
	var raw historyJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*h = *NewHistory(raw.Cap)
	for _, s := range raw.Entries {
		h.Push(s)
	}
	return nil
}
