package download

import (
	"sort"
	"sync"

	"github.com/dmitrijs2005/pvault/internal/client/models"
)

// Tracker records which ids are being downloaded. Each id has its own
// indicator; finishing one never touches another.
type Tracker struct {
	mu     sync.Mutex
	active map[models.ID]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{active: map[models.ID]struct{}{}}
}

// Start marks id in progress. It returns false if it already was.
func (t *Tracker) Start(id models.ID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, busy := t.active[id]; busy {
		return false
	}
	t.active[id] = struct{}{}
	return true
}

func (t *Tracker) Done(id models.ID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.active, id)
}

func (t *Tracker) InProgress(id models.ID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, busy := t.active[id]
	return busy
}

// Active returns the ids in progress, sorted.
func (t *Tracker) Active() []models.ID {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]models.ID, 0, len(t.active))
	for id := range t.active {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
