package doctor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// --- Filesystem checks ---

// FoldersCheck verifies each required folder exists and is writable.
type FoldersCheck struct{}

// Name returns the check identifier.
func (c *FoldersCheck) Name() string { return "folders" }

// Run emits one finding per required folder, in declaration order.
func (c *FoldersCheck) Run(_ context.Context, cc *CheckContext) ([]Finding, error) {
	out := make([]Finding, 0, len(cc.RequiredFolders))
	for _, req := range cc.RequiredFolders {
		path := filepath.Join(cc.RootPath, req.Path)
		switch {
		case !cc.FS.Exists(path):
			out = append(out, Fail(req.Path,
				fmt.Sprintf("folder %s not found (usage: %s)", req.Path, req.Comment)))
		case !cc.FS.Writable(path):
			out = append(out, Warn(req.Path,
				fmt.Sprintf("folder %s is not writable (usage: %s)", req.Path, req.Comment)))
		default:
			out = append(out, OK(req.Path, fmt.Sprintf("folder %s found", req.Path)))
		}
	}
	return out, nil
}

// FilesCheck verifies each required file exists. Writability is not checked.
type FilesCheck struct{}

// Name returns the check identifier.
func (c *FilesCheck) Name() string { return "files" }

// Run emits one finding per required file, in declaration order.
func (c *FilesCheck) Run(_ context.Context, cc *CheckContext) ([]Finding, error) {
	out := make([]Finding, 0, len(cc.RequiredFiles))
	for _, req := range cc.RequiredFiles {
		if cc.FS.Exists(filepath.Join(cc.RootPath, req.Path)) {
			out = append(out, OK(req.Path, fmt.Sprintf("file %s found", req.Path)))
			continue
		}
		out = append(out, Fail(req.Path,
			fmt.Sprintf("file %s not found (usage: %s)", req.Path, req.Comment)))
	}
	return out, nil
}

// --- PHP checks ---

// extensionsErr returns the registry's load error when it exposes one.
func extensionsErr(cc *CheckContext) error {
	if l, ok := cc.Extensions.(interface{ LoadErr() error }); ok {
		return l.LoadErr()
	}
	return nil
}

// ExtensionsCheck verifies every required PHP extension is loaded.
type ExtensionsCheck struct{}

// Name returns the check identifier.
func (c *ExtensionsCheck) Name() string { return "required-extensions" }

// Run emits one finding per required extension.
func (c *ExtensionsCheck) Run(_ context.Context, cc *CheckContext) ([]Finding, error) {
	if err := extensionsErr(cc); err != nil {
		return nil, err
	}
	out := make([]Finding, 0, len(cc.RequiredExtensions))
	for _, ext := range cc.RequiredExtensions {
		if cc.Extensions.IsLoaded(ext) {
			out = append(out, OK(ext, fmt.Sprintf("required PHP module %s found", ext)))
			continue
		}
		out = append(out, Fail(ext, fmt.Sprintf("required PHP module %s not found", ext)))
	}
	return out, nil
}

// BytecodeCacheCheck verifies that at least one bytecode cache is loaded.
// Candidates are tried in order and the first loaded one wins.
type BytecodeCacheCheck struct{}

// Name returns the check identifier.
func (c *BytecodeCacheCheck) Name() string { return "bytecode-cache" }

// Run emits exactly one finding.
func (c *BytecodeCacheCheck) Run(_ context.Context, cc *CheckContext) ([]Finding, error) {
	if err := extensionsErr(cc); err != nil {
		return nil, err
	}
	for _, ext := range cc.BytecodeCacheCandidates {
		if cc.Extensions.IsLoaded(ext) {
			return []Finding{OK(ext, fmt.Sprintf("bytecode cache %s found", ext))}, nil
		}
	}
	return []Finding{Fail("bytecode cache",
		fmt.Sprintf("no bytecode cache found; install any one of %s",
			strings.Join(cc.BytecodeCacheCandidates, ", ")))}, nil
}
