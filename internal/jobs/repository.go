package jobs

import (
	"errors"
	"sync"
	"time"
)

// Repository defines the concurrency-safe contract for accessing and mutating
// job state.
type Repository interface {
	// Create records a new job. It fails with ErrJobExists if the run id is taken.
	Create(st JobState) error

	// Get returns a copy of the job's state.
	Get(id RunID) (JobState, bool)

	// Update applies fn to the stored state. Jobs in a terminal status are
	// not modified and ErrJobFinished is returned.
	Update(id RunID, fn func(*JobState)) error

	// Delete removes a job; deleting a missing job is a no-op.
	Delete(id RunID)

	// ActiveCount returns the number of jobs that are queued or processing.
	// Used for metrics.
	ActiveCount() int
}

var (
	// ErrJobExists is returned when creating a job whose run id is already recorded.
	ErrJobExists = errors.New("job already exists")

	// ErrJobNotFound is returned when updating an unknown job.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobFinished is returned when updating a completed or failed job.
	ErrJobFinished = errors.New("job already finished")
)

// InMemoryRepository is a concurrency-safe in-memory implementation of Repository.
type InMemoryRepository struct {
	mu    sync.RWMutex
	store Store
	now   func() time.Time
}

// NewInMemoryRepository constructs a new repository with a default in-memory store.
func NewInMemoryRepository() *InMemoryRepository {
	return NewInMemoryRepositoryWithStore(NewInMemoryStore())
}

// NewInMemoryRepositoryWithStore constructs a repository that uses the given Store.
func NewInMemoryRepositoryWithStore(store Store) *InMemoryRepository {
	return &InMemoryRepository{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Create implements Repository.Create.
func (r *InMemoryRepository) Create(st JobState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.store.GetJob(st.RunID); exists {
		return ErrJobExists
	}
	now := r.now()
	st.CreatedAt = now
	st.UpdatedAt = now
	r.store.SetJob(&st)
	return nil
}

// Get implements Repository.Get.
func (r *InMemoryRepository) Get(id RunID) (JobState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.store.GetJob(id)
	if !ok {
		return JobState{}, false
	}
	return *st, true
}

// Update implements Repository.Update.
func (r *InMemoryRepository) Update(id RunID, fn func(*JobState)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.store.GetJob(id)
	if !ok {
		return ErrJobNotFound
	}
	if st.Status.Terminal() {
		return ErrJobFinished
	}
	updated := *st
	fn(&updated)
	updated.RunID = id
	updated.UpdatedAt = r.now()
	r.store.SetJob(&updated)
	return nil
}

// Delete implements Repository.Delete.
func (r *InMemoryRepository) Delete(id RunID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store.DeleteJob(id)
}

// ActiveCount implements Repository.ActiveCount.
func (r *InMemoryRepository) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, id := range r.store.ListRunIDs() {
		if st, ok := r.store.GetJob(id); ok && !st.Status.Terminal() {
			n++
		}
	}
	return n
}
