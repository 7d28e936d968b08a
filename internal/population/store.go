package population

import (
	"fmt"
)

// AllocationError reports a failure to create or map backing storage for
// the population arrays. It is fatal: the run aborts without output.
type AllocationError struct {
	Path string
	Err  error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocate population storage %s: %v", e.Path, e.Err)
}

func (e *AllocationError) Unwrap() error { return e.Err }

// Options selects the storage backend at construction time. The backend
// never changes simulation results for a fixed seed; it only changes where
// the arrays live.
type Options struct {
	MMap bool   // back arrays with files instead of heap slices
	Dir  string // directory for backing files when MMap is set
}

// backend owns the raw arrays and their cleanup.
type backend interface {
	arrays() arrays
	close() error
}

// arrays is the structure-of-arrays agent record, one element per agent.
type arrays struct {
	capital     []float64
	tier        []uint8
	employed    []bool
	unempMonths []uint32
	state       []uint8
}

// Store holds the per-agent state arrays for a run.
type Store struct {
	n  int
	be backend

	Capital     []float64
	Tier        []uint8
	Employed    []bool
	UnempMonths []uint32
	State       []uint8
}

// New allocates a population store for n agents. With Options.MMap the
// arrays are memory-mapped files under Options.Dir; creation or mapping
// failure returns an *AllocationError.
func New(n int, opts Options) (*Store, error) {
	if n <= 0 {
		return nil, fmt.Errorf("population size must be positive, got %d", n)
	}

	var be backend
	var err error
	if opts.MMap {
		be, err = newMMapBackend(n, opts.Dir)
	} else {
		be = newMemBackend(n)
	}
	if err != nil {
		return nil, err
	}

	a := be.arrays()
	return &Store{
		n:           n,
		be:          be,
		Capital:     a.capital,
		Tier:        a.tier,
		Employed:    a.employed,
		UnempMonths: a.unempMonths,
		State:       a.state,
	}, nil
}

// Len returns the total number of agents, fixed for the run.
func (s *Store) Len() int { return s.n }

// Close releases backing storage. For the memory backend it is a no-op.
func (s *Store) Close() error {
	if s.be == nil {
		return nil
	}
	err := s.be.close()
	s.be = nil
	return err
}

// ChunkView is a mutable window over a contiguous index range [Start, End).
// All slices share backing storage with the store.
type ChunkView struct {
	Start int
	End   int

	Capital     []float64
	Tier        []uint8
	Employed    []bool
	UnempMonths []uint32
	State       []uint8
}

// Len returns the number of agents in the view.
func (v ChunkView) Len() int { return v.End - v.Start }

// Chunk returns a mutable view of agents [lo, hi).
func (s *Store) Chunk(lo, hi int) ChunkView {
	return ChunkView{
		Start:       lo,
		End:         hi,
		Capital:     s.Capital[lo:hi],
		Tier:        s.Tier[lo:hi],
		Employed:    s.Employed[lo:hi],
		UnempMonths: s.UnempMonths[lo:hi],
		State:       s.State[lo:hi],
	}
}

// memBackend keeps all arrays on the Go heap.
type memBackend struct {
	a arrays
}

func newMemBackend(n int) *memBackend {
	return &memBackend{a: arrays{
		capital:     make([]float64, n),
		tier:        make([]uint8, n),
		employed:    make([]bool, n),
		unempMonths: make([]uint32, n),
		state:       make([]uint8, n),
	}}
}

func (b *memBackend) arrays() arrays { return b.a }
func (b *memBackend) close() error  { return nil }
