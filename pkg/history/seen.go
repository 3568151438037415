package history

import (
	"os"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// SeenFilter is a persisted bloom filter of every target key observed in any
// previous run. It only annotates diffs ("first time ever seen"); a false
// positive just drops the annotation for one genuinely new target, so the
// probabilistic membership is acceptable here, unlike in enumeration dedup.
type SeenFilter struct {
	filter *bloom.BloomFilter
	size   uint
	fpRate float64
	mu     sync.Mutex
}

// NewSeenFilter creates a filter sized for n keys at the given false
// positive rate.
func NewSeenFilter(n uint, fp float64) *SeenFilter {
	return &SeenFilter{
		filter: bloom.NewWithEstimates(n, fp),
		size:   n,
		fpRate: fp,
	}
}

// TestAndAdd reports whether key was already present and records it.
func (f *SeenFilter) TestAndAdd(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filter.TestAndAdd([]byte(key))
}

// Test reports probabilistic membership.
func (f *SeenFilter) Test(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filter.Test([]byte(key))
}

// Save persists the filter state.
func (f *SeenFilter) Save(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.filter.MarshalBinary()
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

// Load restores the filter state. A missing file is not an error: the
// filter simply starts empty on the first run.
func (f *SeenFilter) Load(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	fresh := bloom.NewWithEstimates(f.size, f.fpRate)
	if err := fresh.UnmarshalBinary(data); err != nil {
		return err
	}
	f.filter = fresh
	return nil
}
