package fetch

import (
	"errors"
	"fmt"
	"os"
	"sync"

	bloom "github.com/bits-and-blooms/bloom/v3"
	"github.com/edsrzf/mmap-go"
)

// SeenTracker is a disk-backed bloom filter used to avoid re-fetching
// profile URLs already pulled down in this run. It uses a memory-mapped
// file so memory footprint stays constant regardless of crawl size,
// sized for 100,000+ URLs at a 0.1% false-positive rate.
type SeenTracker struct {
	mu        sync.Mutex
	filter    *bloom.BloomFilter
	file      *os.File
	mmap      mmap.MMap
	tmpPath   string
	count     uint64 // URLs added since last sync
	syncEvery uint64 // sync to disk every N URLs
	lastErr   error  // last error from a sync operation
}

// NewSeenTracker creates a tracker backed by a temp file in the OS temp
// directory, sized for 100,000 URLs at a 0.1% false-positive rate.
func NewSeenTracker() (*SeenTracker, error) {
	filter := bloom.NewWithEstimates(100000, 0.001)

	tmpFile, err := os.CreateTemp(os.TempDir(), "ypcrawl-seen-*.bloom")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	filterSize := filter.Cap()
	if err := tmpFile.Truncate(int64(filterSize)); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("truncate temp file: %w", err)
	}

	mapped, err := mmap.MapRegion(tmpFile, int(filterSize), mmap.RDWR, 0, 0)
	if err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("mmap temp file: %w", err)
	}

	data, err := filter.MarshalBinary()
	if err != nil {
		_ = mapped.Unmap()
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("marshal bloom filter: %w", err)
	}
	if len(data) > len(mapped) {
		_ = mapped.Unmap()
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("filter data (%d) exceeds mmap size (%d)", len(data), len(mapped))
	}
	copy(mapped, data)

	return &SeenTracker{
		filter:    filter,
		file:      tmpFile,
		mmap:      mapped,
		tmpPath:   tmpPath,
		syncEvery: 1000,
	}, nil
}

// Mark records url as seen.
func (s *SeenTracker) Mark(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.filter.AddString(url)
	s.count++
	if s.count >= s.syncEvery {
		if err := s.syncLocked(); err != nil {
			s.lastErr = err
		}
	}
}

// Seen reports whether url has already been marked. Bloom filters never
// false-negative, so a false result is always trustworthy; a true result
// may rarely be a false positive.
func (s *SeenTracker) Seen(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter.TestString(url)
}

// MarkIfNew atomically tests and marks url, returning true iff this call
// was the first to mark it.
func (s *SeenTracker) MarkIfNew(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.filter.TestString(url) {
		return false
	}
	s.filter.AddString(url)
	s.count++
	if s.count >= s.syncEvery {
		if err := s.syncLocked(); err != nil {
			s.lastErr = err
		}
	}
	return true
}

// syncLocked persists the bloom filter to disk. Must be called with mu held.
func (s *SeenTracker) syncLocked() error {
	data, err := s.filter.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal bloom filter: %w", err)
	}
	if len(data) <= len(s.mmap) {
		copy(s.mmap, data)
	}
	if flushErr := s.mmap.Flush(); flushErr != nil {
		return fmt.Errorf("flush mmap: %w", flushErr)
	}
	s.count = 0
	return nil
}

// Close flushes pending data and releases the backing file.
func (s *SeenTracker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if s.lastErr != nil {
		errs = append(errs, s.lastErr)
	}

	if s.mmap != nil {
		if s.count > 0 {
			if syncErr := s.syncLocked(); syncErr != nil {
				errs = append(errs, syncErr)
			}
		}
		if err := s.mmap.Unmap(); err != nil {
			errs = append(errs, fmt.Errorf("unmap: %w", err))
		}
		s.mmap = nil
	}

	if s.file != nil {
		if err := s.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close file: %w", err))
		}
		s.file = nil
	}

	if s.tmpPath != "" {
		if err := os.Remove(s.tmpPath); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("remove temp file: %w", err))
		}
		s.tmpPath = ""
	}

	if len(errs) > 0 {
		return fmt.Errorf("close seen tracker: %w", errors.Join(errs...))
	}
	return nil
}

// LastError returns the last error encountered during a periodic sync, so
// callers can surface disk I/O problems without interrupting the crawl.
func (s *SeenTracker) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}
