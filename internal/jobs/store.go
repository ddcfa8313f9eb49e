package jobs

// Store is the persistence abstraction for job state.
// Implementations can be in-memory, file-based, or remote.
// The Repository uses Store for all reads and writes and handles locking.
type Store interface {
	GetJob(id RunID) (*JobState, bool)
	SetJob(s *JobState)
	DeleteJob(id RunID)
	ListRunIDs() []RunID
}

// InMemoryStore is an in-memory implementation of Store.
type InMemoryStore struct {
	jobs map[RunID]*JobState
}

// NewInMemoryStore returns a new empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		jobs: make(map[RunID]*JobState),
	}
}

// GetJob implements Store.GetJob.
func (s *InMemoryStore) GetJob(id RunID) (*JobState, bool) {
	st, ok := s.jobs[id]
	return st, ok
}

// SetJob implements Store.SetJob.
func (s *InMemoryStore) SetJob(st *JobState) {
	s.jobs[st.RunID] = st
}

// DeleteJob implements Store.DeleteJob.
func (s *InMemoryStore) DeleteJob(id RunID) {
	delete(s.jobs, id)
}

// ListRunIDs implements Store.ListRunIDs.
func (s *InMemoryStore) ListRunIDs() []RunID {
	ids := make([]RunID, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	return ids
}
