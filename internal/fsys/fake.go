package fsys

import (
	"os"
	"path/filepath"
	"time"
)

// Fake is an in-memory [FS] for testing. It records all calls (spy) and
// simulates filesystem state (fake). Pre-populate Dirs, Files, ReadOnly and
// Errors before calling methods.
type Fake struct {
	Dirs     map[string]bool   // pre-populated directories
	Files    map[string][]byte // pre-populated files
	ReadOnly map[string]bool   // existing paths that are not writable
	Errors   map[string]error  // path → injected error (checked first)
	Calls    []Call            // spy log
}

// Call records a single method invocation on [Fake].
type Call struct {
	Method string // "Stat", "ReadFile", "Exists", or "Writable"
	Path   string // path argument
}

// NewFake returns a ready-to-use [Fake] with empty maps.
func NewFake() *Fake {
	return &Fake{
		Dirs:     make(map[string]bool),
		Files:    make(map[string][]byte),
		ReadOnly: make(map[string]bool),
		Errors:   make(map[string]error),
	}
}

// AddDir records dir and all of its parents as directories.
func (f *Fake) AddDir(dir string) {
	for p := filepath.Clean(dir); p != "." && p != "/" && p != string(filepath.Separator); p = filepath.Dir(p) {
		f.Dirs[p] = true
	}
}

// AddFile stores data at name and records its parent directories.
func (f *Fake) AddFile(name string, data []byte) {
	f.AddDir(filepath.Dir(name))
	cp := make([]byte, len(data))
	copy(cp, data)
	f.Files[filepath.Clean(name)] = cp
}

// ReadFile records the call and returns the file contents from Files.
func (f *Fake) ReadFile(name string) ([]byte, error) {
	f.Calls = append(f.Calls, Call{Method: "ReadFile", Path: name})
	if err, ok := f.Errors[name]; ok {
		return nil, err
	}
	if data, ok := f.Files[filepath.Clean(name)]; ok {
		cp := make([]byte, len(data))
		copy(cp, data)
		return cp, nil
	}
	return nil, &os.PathError{Op: "read", Path: name, Err: os.ErrNotExist}
}

// Stat records the call and returns info based on Dirs/Files maps.
func (f *Fake) Stat(name string) (os.FileInfo, error) {
	f.Calls = append(f.Calls, Call{Method: "Stat", Path: name})
	return f.stat(name)
}

func (f *Fake) stat(name string) (os.FileInfo, error) {
	if err, ok := f.Errors[name]; ok {
		return nil, err
	}
	clean := filepath.Clean(name)
	if f.Dirs[clean] {
		return fakeFileInfo{name: filepath.Base(clean), dir: true}, nil
	}
	if data, ok := f.Files[clean]; ok {
		return fakeFileInfo{name: filepath.Base(clean), size: int64(len(data))}, nil
	}
	return nil, &os.PathError{Op: "stat", Path: name, Err: os.ErrNotExist}
}

// Exists records the call and reports whether name is a known dir or file.
func (f *Fake) Exists(name string) bool {
	f.Calls = append(f.Calls, Call{Method: "Exists", Path: name})
	_, err := f.stat(name)
	return err == nil
}

// Writable records the call and reports whether name exists and is not
// listed in ReadOnly.
func (f *Fake) Writable(name string) bool {
	f.Calls = append(f.Calls, Call{Method: "Writable", Path: name})
	if _, err := f.stat(name); err != nil {
		return false
	}
	return !f.ReadOnly[filepath.Clean(name)]
}

// --- fake os.FileInfo ---

type fakeFileInfo struct {
	name string
	size int64
	dir  bool
}

func (fi fakeFileInfo) Name() string { return fi.name }
func (fi fakeFileInfo) Size() int64  { return fi.size }
func (fi fakeFileInfo) Mode() os.FileMode {
	if fi.dir {
		return os.ModeDir | 0o755
	}
	return 0o644
}
func (fi fakeFileInfo) ModTime() time.Time { return time.Time{} }
func (fi fakeFileInfo) IsDir() bool        { return fi.dir }
func (fi fakeFileInfo) Sys() any           { return nil }

var (
	_ FS = (*Fake)(nil)
	_ FS = OSFS{}
)

// Ensure fakeFileInfo implements os.FileInfo at compile time.
var _ os.FileInfo = fakeFileInfo{}
