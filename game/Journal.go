package game

import (
	"fmt"
)

// Experience is one decided round as recorded in the Journal
type Experience struct {
	State   []float64
	Action  int
	LogProb float64
	Value   float64
	Reward  float64
	Done    bool
}

// Journal is a bounded ring buffer of the most recent experiences,
// kept for rolling reward reporting. When full, adding a new entry
// evicts the oldest in O(1). The Journal is distinct from the
// learning agent's rollout buffer: it is never drained by a learning
// pass.
type Journal struct {
	entries []Experience
	head    int // Index of the oldest entry
	size    int
}

// DefaultJournalCapacity is the default bound on retained experiences
const DefaultJournalCapacity = 10000

// NewJournal returns a Journal retaining at most capacity experiences
func NewJournal(capacity int) *Journal {
	if capacity < 1 {
		panic(fmt.Sprintf("newjournal: capacity must be positive, got %d",
			capacity))
	}
	return &Journal{entries: make([]Experience, capacity)}
}

// Add records an experience, evicting the oldest when full
func (j *Journal) Add(e Experience) {
	tail := (j.head + j.size) % len(j.entries)
	j.entries[tail] = e
	if j.size < len(j.entries) {
		j.size++
	} else {
		j.head = (j.head + 1) % len(j.entries)
	}
}

// Len returns the number of retained experiences
func (j *Journal) Len() int {
	return j.size
}

// Cap returns the Journal's capacity
func (j *Journal) Cap() int {
	return len(j.entries)
}

// At returns the i-th retained experience, 0 being the oldest
func (j *Journal) At(i int) Experience {
	if i < 0 || i >= j.size {
		panic(fmt.Sprintf("at: index %d out of range [0, %d)", i, j.size))
	}
	return j.entries[(j.head+i)%len(j.entries)]
}

// MeanReward returns the average reward over the n most recent
// experiences, or over all of them when fewer are retained. An empty
// Journal yields 0.
func (j *Journal) MeanReward(n int) float64 {
	if j.size == 0 || n < 1 {
		return 0
	}
	n = min(n, j.size)

	sum := 0.0
	for i := j.size - n; i < j.size; i++ {
		sum += j.At(i).Reward
	}
	return sum / float64(n)
}
