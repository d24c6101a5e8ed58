package upload

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

type State int

const (
	StateNotStarted State = iota
	StateUploading
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not started"
	case StateUploading:
		return "uploading"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Progress is reported after every chunk the server accepted.
type Progress struct {
	File string
	// ChunkIndex is the zero-based index of the chunk just completed.
	ChunkIndex  int
	TotalChunks int
	Percent     int
	BytesSent   int64
	TotalBytes  int64
}

type ProgressFunc func(Progress)

// Task tracks one upload of one file. A task runs at most once.
type Task struct {
	File        *File
	ChunkSize   int64
	TotalChunks int

	mu        sync.Mutex
	state     State
	completed int
	percent   int
	sent      int64
	err       error
}

func NewTask(file *File, chunkSize int64) (*Task, error) {
	if file == nil {
		return nil, errors.New("file must be provided")
	}
	if chunkSize <= 0 {
		return nil, errors.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if file.Size < 0 {
		return nil, errors.Errorf("invalid size %d for %s", file.Size, file.Name)
	}
	return &Task{
		File:        file,
		ChunkSize:   chunkSize,
		TotalChunks: ChunkCount(file.Size, chunkSize),
	}, nil
}

// ChunkCount is max(1, ceil(size/chunkSize)). An empty file is sent as one empty chunk.
func ChunkCount(size, chunkSize int64) int {
	if size <= 0 {
		return 1
	}
	return int((size + chunkSize - 1) / chunkSize)
}

// ChunkBounds returns the byte range [start, end) of chunk i.
func (t *Task) ChunkBounds(i int) (int64, int64) {
	start := int64(i) * t.ChunkSize
	end := start + t.ChunkSize
	if end > t.File.Size {
		end = t.File.Size
	}
	if start > end {
		start = end
	}
	return start, end
}

// Percent is ceil(completed*100/total), held at 99 until the last chunk is done. Rounding up
// makes a 250 MiB file sent in 100 MiB chunks report 34, 67 and 100; rounding to nearest would
// give 33 and 67, and 5 of 6 chunks would show 83 rather than 84.
func Percent(completed, total int) int {
	if total <= 0 || completed >= total {
		return 100
	}
	p := (completed*100 + total - 1) / total
	if p > 99 {
		p = 99
	}
	return p
}

func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Task) Percent() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.percent
}

// Err returns the failure of a failed task.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Task) begin() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateNotStarted {
		return errors.Errorf("upload of %s is already %s", t.File.Name, t.state)
	}
	t.state = StateUploading
	return nil
}

func (t *Task) chunkDone(size int64) Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completed++
	t.sent += size
	if p := Percent(t.completed, t.TotalChunks); p > t.percent {
		t.percent = p
	}
	return Progress{
		File:        t.File.Name,
		ChunkIndex:  t.completed - 1,
		TotalChunks: t.TotalChunks,
		Percent:     t.percent,
		BytesSent:   t.sent,
		TotalBytes:  t.File.Size,
	}
}

func (t *Task) finish(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.state = StateFailed
		t.err = err
		return
	}
	t.state = StateSucceeded
	t.percent = 100
}
