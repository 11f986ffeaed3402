package bgrep

import (
	"sync"
)

// ScannerPool is a pool of Scanner instances for one PatternSet.
// It lets concurrent searches reuse chunk buffers instead of allocating a new
// one per stream.
type ScannerPool struct {
	pool sync.Pool
	set  *PatternSet
	opts []Option
}

// NewScannerPool creates a new ScannerPool with the given options.
// All scanners created from this pool will use these options.
func NewScannerPool(set *PatternSet, opts ...Option) (*ScannerPool, error) {
	// Validate options by creating a test scanner
	s, err := NewScanner(set, opts...)
	if err != nil {
		return nil, err
	}

	p := &ScannerPool{
		set:  set,
		opts: opts,
	}
	p.pool.Put(s)

	return p, nil
}

// Get retrieves a Scanner from the pool, or creates a new one if the pool is empty.
func (p *ScannerPool) Get() (*Scanner, error) {
	if v := p.pool.Get(); v != nil {
		return v.(*Scanner), nil
	}

	return NewScanner(p.set, p.opts...)
}

// Put returns a Scanner to the pool for reuse.
// The scanner should not be used after being returned to the pool.
func (p *ScannerPool) Put(s *Scanner) {
	// Clear the reader to avoid holding references
	s.Reset()
	p.pool.Put(s)
}
