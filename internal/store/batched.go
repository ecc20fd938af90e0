package store

import "sync"

// Batch buffers file records produced by parallel classification workers so
// a single writer can commit them in one transaction.
//
// Thread safety: Add may be called from many goroutines. CommitBatch must
// only run after all workers are done adding.
type Batch struct {
	mu    sync.Mutex
	files []File
}

// NewBatch creates an empty Batch.
func NewBatch() *Batch {
	return &Batch{}
}

// Add buffers a copy of f.
func (b *Batch) Add(f *File) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.files = append(b.files, *f)
}

// Len returns the number of buffered records.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.files)
}

// Files returns a snapshot of the buffered records.
func (b *Batch) Files() []File {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]File, len(b.files))
	copy(out, b.files)
	return out
}
