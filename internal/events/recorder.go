package events

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// FileRecorder appends events to a JSONL file. A mutex serializes writers
// in-process; an exclusive flock on "<path>.lock" serializes processes so
// that Seq stays unique when several runs share one log.
// Recording errors are written to stderr and never returned.
//
// FileRecorder implements [Provider].
type FileRecorder struct {
	mu     sync.Mutex
	path   string
	lock   *flock.Flock
	file   *os.File
	seq    uint64
	size   int64 // file size after our last write
	stderr io.Writer
}

// NewFileRecorder opens (or creates) the event log at path. Parent
// directories are created as needed.
func NewFileRecorder(path string, stderr io.Writer) (*FileRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating event log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	return &FileRecorder{
		path:   path,
		lock:   flock.New(path + ".lock"),
		file:   file,
		size:   -1,
		stderr: stderr,
	}, nil
}

// Record stamps e with the next Seq (and Ts when zero) and appends it
// as one JSON line. Failures go to stderr.
func (r *FileRecorder) Record(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.appendLocked(e); err != nil {
		fmt.Fprintf(r.stderr, "events: %v\n", err) //nolint:errcheck // best-effort stderr
	}
}

func (r *FileRecorder) appendLocked(e Event) error {
	if err := r.lock.Lock(); err != nil {
		return fmt.Errorf("lock: %w", err)
	}
	defer r.lock.Unlock() //nolint:errcheck // released on close anyway

	if err := r.resync(); err != nil {
		fmt.Fprintf(r.stderr, "events: %v\n", err) //nolint:errcheck // best-effort stderr
	}
	e.Seq = r.seq + 1
	if e.Ts.IsZero() {
		e.Ts = time.Now()
	}
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if _, err := r.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	r.seq = e.Seq
	if fi, err := r.file.Stat(); err == nil {
		r.size = fi.Size()
	}
	return nil
}

// resync picks up the highest Seq when the file changed size since our
// last write, i.e. another process appended to it.
func (r *FileRecorder) resync() error {
	fi, err := r.file.Stat()
	if err != nil || fi.Size() == r.size {
		return nil
	}
	latest, err := ReadLatestSeq(r.path)
	r.seq = max(r.seq, latest)
	return err
}

// List returns events matching the filter from the underlying file.
func (r *FileRecorder) List(filter Filter) ([]Event, error) {
	return ReadFiltered(r.path, filter)
}

// LatestSeq returns the highest sequence number in the event log.
func (r *FileRecorder) LatestSeq() (uint64, error) {
	return ReadLatestSeq(r.path)
}

// Close closes the underlying file.
func (r *FileRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file.Close()
}
