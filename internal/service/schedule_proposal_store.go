package service

import (
	"sync"
	"time"

	"github.com/noah-isme/classgrid-api/internal/dto"
	"github.com/noah-isme/classgrid-api/internal/scheduler"
)

// scheduleProposal is a generated schedule awaiting optimization, export or
// save. Schedule is never mutated once stored; optimization replaces the
// proposal with a new revision.
type scheduleProposal struct {
	ID          string
	TermID      string
	Revision    int
	Input       scheduler.Input
	Catalog     *scheduler.Catalog
	Schedule    *scheduler.Schedule
	Weights     scheduler.Weights
	Report      scheduler.Report
	GeneratedAt time.Time
}

// cachedProposal is the redis form of a proposal. The catalog and schedule
// are rebuilt from Input and Assignments on load.
type cachedProposal struct {
	ID          string                 `json:"id"`
	TermID      string                 `json:"termId"`
	Revision    int                    `json:"revision"`
	GeneratedAt time.Time              `json:"generatedAt"`
	Input       scheduler.Input        `json:"input"`
	Weights     scheduler.Weights      `json:"weights"`
	Assignments []scheduler.Assignment `json:"assignments"`
	Report      scheduler.Report       `json:"report"`
}

func (p *scheduleProposal) cached() cachedProposal {
	return cachedProposal{
		ID:          p.ID,
		TermID:      p.TermID,
		Revision:    p.Revision,
		GeneratedAt: p.GeneratedAt,
		Input:       p.Input,
		Weights:     p.Weights,
		Assignments: p.Schedule.Assignments(),
		Report:      p.Report,
	}
}

func (c cachedProposal) restore() (*scheduleProposal, error) {
	cat, err := scheduler.NewCatalog(c.Input)
	if err != nil {
		return nil, err
	}
	sched, err := cat.ScheduleFrom(c.Assignments)
	if err != nil {
		return nil, err
	}
	return &scheduleProposal{
		ID:          c.ID,
		TermID:      c.TermID,
		Revision:    c.Revision,
		Input:       c.Input,
		Catalog:     cat,
		Schedule:    sched,
		Weights:     c.Weights,
		Report:      c.Report,
		GeneratedAt: c.GeneratedAt,
	}, nil
}

type proposalStore struct {
	ttl   time.Duration
	now   func() time.Time
	mu    sync.RWMutex
	items map[string]*scheduleProposal
}

func newProposalStore(ttl time.Duration) *proposalStore {
	return &proposalStore{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]*scheduleProposal),
	}
}

func (s *proposalStore) Save(p *scheduleProposal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[p.ID] = p
}

// Replace swaps in next only while the stored revision still equals
// revision. It reports whether the swap happened.
func (s *proposalStore) Replace(next *scheduleProposal, revision int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.items[next.ID]
	if ok && current.Revision != revision {
		return false
	}
	s.items[next.ID] = next
	return true
}

func (s *proposalStore) Get(id string) (*scheduleProposal, bool) {
	s.mu.RLock()
	p, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if s.now().Sub(p.GeneratedAt) > s.ttl {
		s.Delete(id)
		return nil, false
	}
	return p, true
}

func (s *proposalStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

// Sweep drops expired proposals and returns how many were removed.
func (s *proposalStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, p := range s.items {
		if s.now().Sub(p.GeneratedAt) > s.ttl {
			delete(s.items, id)
			removed++
		}
	}
	return removed
}

type jobStore struct {
	mu    sync.RWMutex
	items map[string]*dto.OptimizationJobResponse
}

func newJobStore() *jobStore {
	return &jobStore{items: make(map[string]*dto.OptimizationJobResponse)}
}

func (s *jobStore) Put(job dto.OptimizationJobResponse) {
	s.mu.Lock()
	s.items[job.JobID] = &job
	s.mu.Unlock()
}

func (s *jobStore) Get(id string) (dto.OptimizationJobResponse, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.items[id]
	if !ok {
		return dto.OptimizationJobResponse{}, false
	}
	return *job, true
}

// Update applies fn to a stored job and returns the updated copy.
func (s *jobStore) Update(id string, fn func(*dto.OptimizationJobResponse)) (dto.OptimizationJobResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.items[id]
	if !ok {
		return dto.OptimizationJobResponse{}, false
	}
	fn(job)
	return *job, true
}
