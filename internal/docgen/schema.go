// Package docgen generates JSON Schema and markdown documentation from
// syscheck's Go config structs and cobra command tree.
package docgen

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/invopop/jsonschema"

	"github.com/magerun-tools/syscheck/internal/config"
)

// ModulePath is the import path doc comments are keyed under.
const ModulePath = "github.com/magerun-tools/syscheck"

// ModuleRoot finds the repo root by walking up from the current directory
// looking for go.mod. Returns the absolute path.
func ModuleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found in any parent of %s", dir)
		}
		dir = parent
	}
}

// durationType is mapped to a string schema since config files spell
// durations like "30s".
var durationType = reflect.TypeOf(time.Duration(0))

// newReflector creates a jsonschema.Reflector configured for TOML field
// names. When withComments is set, Go doc comments are extracted from the
// source tree as descriptions.
//
// AddGoComments requires the path parameter to be "." with the working
// directory set to the module root, so that filepath.Walk produces paths
// like "internal/config" which gopath.Join maps to the correct import path.
func newReflector(withComments bool) (*jsonschema.Reflector, error) {
	r := &jsonschema.Reflector{
		FieldNameTag:               "toml",
		RequiredFromJSONSchemaTags: true,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == durationType {
				return &jsonschema.Schema{
					Type:        "string",
					Pattern:     `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`,
					Description: `Go duration, e.g. "30s" or "1m30s".`,
				}
			}
			return nil
		},
	}
	if !withComments {
		return r, nil
	}

	root, err := ModuleRoot()
	if err != nil {
		return nil, err
	}
	orig, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}
	if err := os.Chdir(root); err != nil {
		return nil, fmt.Errorf("chdir to module root: %w", err)
	}
	defer func() { _ = os.Chdir(orig) }()

	if err := r.AddGoComments(ModulePath, "./internal"); err != nil {
		return nil, fmt.Errorf("extracting Go comments: %w", err)
	}
	return r, nil
}

// GenerateConfigSchema produces a JSON Schema for syscheck.toml. It
// reflects config.Config using TOML field names and, when the module
// source is reachable from the working directory, uses doc comments as
// descriptions.
func GenerateConfigSchema() (*jsonschema.Schema, error) {
	r, err := newReflector(true)
	if err != nil {
		// Installed binaries run without the source tree.
		if r, err = newReflector(false); err != nil {
			return nil, err
		}
	}
	s := r.Reflect(&config.Config{})
	s.Title = "syscheck configuration"
	s.Description = "Schema for syscheck.toml, the check lists used by syscheck."
	return s, nil
}

// WriteSchema writes s as indented JSON to path, replacing it atomically.
func WriteSchema(path string, s *jsonschema.Schema) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}
	return writeAtomic(path, ".gendoc-schema-*", func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "%s\n", data)
		return err
	})
}
