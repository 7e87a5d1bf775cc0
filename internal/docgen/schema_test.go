package docgen

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// defProperties extracts the properties map for a named $defs entry.
func defProperties(t *testing.T, raw map[string]interface{}, defName string) map[string]interface{} {
	t.Helper()
	defs, ok := raw["$defs"].(map[string]interface{})
	if !ok {
		t.Fatal("no $defs")
	}
	def, ok := defs[defName].(map[string]interface{})
	if !ok {
		t.Fatalf("no %s definition in $defs", defName)
	}
	props, ok := def["properties"].(map[string]interface{})
	if !ok {
		t.Fatalf("%s has no properties", defName)
	}
	return props
}

func rawConfigSchema(t *testing.T) map[string]interface{} {
	t.Helper()
	s, err := GenerateConfigSchema()
	if err != nil {
		t.Fatalf("GenerateConfigSchema: %v", err)
	}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return raw
}

func TestGenerateConfigSchema(t *testing.T) {
	raw := rawConfigSchema(t)

	if raw["title"] != "syscheck configuration" {
		t.Errorf("title = %v", raw["title"])
	}
	props := defProperties(t, raw, "Config")
	for _, expected := range []string{"filesystem", "php", "security", "database", "checks"} {
		if _, ok := props[expected]; !ok {
			t.Errorf("missing Config property %q", expected)
		}
	}
	for _, bad := range []string{"Filesystem", "PHP", "Checks"} {
		if _, ok := props[bad]; ok {
			t.Errorf("found Go-style property %q, expected TOML name", bad)
		}
	}
}

func TestConfigSchemaNothingRequiredAtTop(t *testing.T) {
	raw := rawConfigSchema(t)
	cfg := raw["$defs"].(map[string]interface{})["Config"].(map[string]interface{})
	if req, ok := cfg["required"]; ok {
		t.Errorf("Config.required = %v, want none", req)
	}
}

func TestConfigSchemaPathRequired(t *testing.T) {
	raw := rawConfigSchema(t)
	entry := raw["$defs"].(map[string]interface{})["PathEntry"].(map[string]interface{})
	required, ok := entry["required"].([]interface{})
	if !ok || len(required) != 1 || required[0] != "path" {
		t.Errorf("PathEntry.required = %v, want [path]", entry["required"])
	}
}

func TestConfigSchemaDurationsAreStrings(t *testing.T) {
	raw := rawConfigSchema(t)
	for _, def := range []string{"Security", "Database"} {
		props := defProperties(t, raw, def)
		timeout, ok := props["timeout"].(map[string]interface{})
		if !ok {
			t.Fatalf("%s.timeout missing", def)
		}
		if timeout["type"] != "string" {
			t.Errorf("%s.timeout type = %v, want string", def, timeout["type"])
		}
	}
}

func TestConfigSchemaDescriptions(t *testing.T) {
	raw := rawConfigSchema(t)
	props := defProperties(t, raw, "PathEntry")
	path, ok := props["path"].(map[string]interface{})
	if !ok {
		t.Fatal("PathEntry path property not a map")
	}
	if desc, _ := path["description"].(string); desc == "" {
		t.Error("PathEntry.path has no description — AddGoComments may not be extracting comments")
	}
}

func TestConfigSchemaBinaryDefault(t *testing.T) {
	raw := rawConfigSchema(t)
	binary := defProperties(t, raw, "PHP")["binary"].(map[string]interface{})
	if binary["default"] != "php" {
		t.Errorf("php.binary default = %v, want php", binary["default"])
	}
}

func TestGenerateConfigSchemaWithoutSource(t *testing.T) {
	orig, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(orig) }()

	s, err := GenerateConfigSchema()
	if err != nil {
		t.Fatalf("GenerateConfigSchema outside the module: %v", err)
	}
	if _, ok := s.Definitions["Config"]; !ok {
		t.Error("schema has no Config definition")
	}
}

func TestWriteSchema(t *testing.T) {
	s, err := GenerateConfigSchema()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "syscheck-schema.json")
	if err := WriteSchema(path, s); err != nil {
		t.Fatalf("WriteSchema: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if data[len(data)-1] != '\n' {
		t.Error("schema file does not end in a newline")
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Errorf("written schema is not JSON: %v", err)
	}

	if err := WriteSchema(filepath.Join(t.TempDir(), "missing", "x.json"), s); err == nil {
		t.Error("WriteSchema into a missing directory succeeded")
	}
}
