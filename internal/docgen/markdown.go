package docgen

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
)

// RenderMarkdown writes a field reference for every object type in the
// schema's $defs. The root type comes first, the rest sort by name.
func RenderMarkdown(w io.Writer, s *jsonschema.Schema) error {
	return RenderConfigReference(w, s, nil)
}

// RenderConfigReference is RenderMarkdown followed by a "Defaults" section
// quoting example as TOML. An empty example omits the section.
func RenderConfigReference(w io.Writer, s *jsonschema.Schema, example []byte) error {
	m := &mdWriter{w: w}
	title := s.Title
	if title == "" {
		title = "Configuration Reference"
	}
	m.printf("# %s\n\n", title)
	m.para(s.Description)
	m.printf("%s", generatedNote)

	for _, name := range definitionOrder(s) {
		writeDefinition(m, name, s.Definitions[name])
	}
	if len(example) > 0 {
		m.printf("## Defaults\n\nUsed when no config file is found.\n\n```toml\n%s```\n", example)
	}
	return m.err
}

// WriteMarkdown renders the config reference to path atomically.
func WriteMarkdown(path string, s *jsonschema.Schema, example []byte) error {
	return writeAtomic(path, ".gendoc-md-*", func(w io.Writer) error {
		return RenderConfigReference(w, s, example)
	})
}

// definitionOrder lists the object definitions of s, root type first.
func definitionOrder(s *jsonschema.Schema) []string {
	root := refName(s.Ref)
	var names []string
	for name, def := range s.Definitions {
		if def != nil && def.Properties != nil {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		if (names[i] == root) != (names[j] == root) {
			return names[i] == root
		}
		return names[i] < names[j]
	})
	return names
}

func writeDefinition(m *mdWriter, name string, def *jsonschema.Schema) {
	m.printf("## %s\n\n", name)
	m.para(def.Description)

	required := make(map[string]bool, len(def.Required))
	for _, r := range def.Required {
		required[r] = true
	}
	var rows [][]string
	for p := def.Properties.Oldest(); p != nil; p = p.Next() {
		req := ""
		if required[p.Key] {
			req = "**yes**"
		}
		dflt := ""
		if p.Value.Default != nil {
			dflt = code(fmt.Sprint(p.Value.Default))
		}
		rows = append(rows, []string{code(p.Key), typeName(p.Value), req, dflt, cell(describe(p.Value))})
	}
	m.table([]string{"Field", "Type", "Required", "Default", "Description"}, rows)
}

// typeName renders a property type the way it reads in Go: []T for
// arrays, map[string]T for maps, the definition name for refs.
func typeName(prop *jsonschema.Schema) string {
	switch {
	case prop.Ref != "":
		return refName(prop.Ref)
	case prop.Type == "array" && prop.Items != nil:
		return "[]" + typeName(prop.Items)
	case prop.Type == "object" && prop.AdditionalProperties != nil:
		return "map[string]" + typeName(prop.AdditionalProperties)
	case prop.Type == "":
		return "any"
	}
	return prop.Type
}

// refName returns the last path element of a $ref like "#/$defs/Config".
func refName(ref string) string {
	return ref[strings.LastIndex(ref, "/")+1:]
}

// describe returns the property description with any enum values
// appended. Enums on array items count.
func describe(prop *jsonschema.Schema) string {
	enum := prop.Enum
	if len(enum) == 0 && prop.Items != nil {
		enum = prop.Items.Enum
	}
	if len(enum) == 0 {
		return prop.Description
	}
	vals := make([]string, len(enum))
	for i, v := range enum {
		vals[i] = code(fmt.Sprint(v))
	}
	return strings.TrimSpace(prop.Description + " Enum: " + strings.Join(vals, ", "))
}
