package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"front50store/internal/objects"
)

// writeLocalConfig points the CLI at a local backend rooted in a temp dir.
func writeLocalConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	configText := fmt.Sprintf(`environment = "production"

[storage]
backend = "local"
local_dir = %q

[s3]
bucket = "spinnaker"
root_folder = "front50"
`, filepath.Join(dir, "buckets"))
	if err := os.WriteFile(configPath, []byte(configText), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return configPath
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append(args, "--env-file", ""))
	err := cmd.Execute()
	return out.String(), err
}

func TestTypesCommand(t *testing.T) {
	out, err := execute(t, "", "types")
	if err != nil {
		t.Fatalf("types: %v", err)
	}
	if !strings.Contains(out, "application\tapplications\tapplication-metadata.json") {
		t.Fatalf("expected application type in output:\n%s", out)
	}
	if got := strings.Count(out, "\n"); got != len(objects.BuiltinTypes()) {
		t.Fatalf("expected %d lines, got %d", len(objects.BuiltinTypes()), got)
	}
}

func TestObjectCommandsRoundTrip(t *testing.T) {
	configPath := writeLocalConfig(t)

	if _, err := execute(t, "", "ensure-bucket", "--config", configPath); err != nil {
		t.Fatalf("ensure-bucket: %v", err)
	}

	out, err := execute(t, `{"name":"myapp","email":"team@example.com"}`, "put", "applications", "MyApp", "-", "--config", configPath, "--user", "alice")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if !strings.Contains(out, "front50/applications/myapp/application-metadata.json") {
		t.Fatalf("unexpected put output: %s", out)
	}

	docPath := filepath.Join(t.TempDir(), "pipeline.json")
	if err := os.WriteFile(docPath, []byte(`{"name":"deploy"}`), 0o600); err != nil {
		t.Fatalf("write pipeline doc: %v", err)
	}
	if _, err := execute(t, "", "put", "pipeline", "deploy", docPath, "--config", configPath); err != nil {
		t.Fatalf("put from file: %v", err)
	}

	out, err = execute(t, "", "get", "application", "myapp", "--config", configPath)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !strings.Contains(out, `"lastModifiedBy": "alice"`) || !strings.Contains(out, `"name": "myapp"`) {
		t.Fatalf("unexpected get output:\n%s", out)
	}

	out, err = execute(t, "", "list", "applications", "--config", configPath)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.HasPrefix(out, "myapp\t") {
		t.Fatalf("unexpected list output: %q", out)
	}

	if _, err := execute(t, "", "delete", "applications", "myapp", "--config", configPath); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err = execute(t, "", "get", "applications", "myapp", "--config", configPath)
	if !errors.Is(err, objects.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	out, err = execute(t, "", "get", "pipelines", "deploy", "--config", configPath)
	if err != nil {
		t.Fatalf("get pipeline: %v", err)
	}
	if !strings.Contains(out, `"lastModifiedBy": "anonymous"`) {
		t.Fatalf("expected anonymous author:\n%s", out)
	}
}

func TestCommandErrors(t *testing.T) {
	configPath := writeLocalConfig(t)

	tests := []struct {
		name  string
		stdin string
		args  []string
		want  string
	}{
		{name: "unknown type", args: []string{"list", "widgets"}, want: "unknown object type"},
		{name: "missing args", args: []string{"get", "applications"}, want: "accepts 2 arg(s)"},
		{name: "invalid json", stdin: "{", args: []string{"put", "applications", "x"}, want: "decode object"},
		{name: "missing file", args: []string{"put", "applications", "x", "/nonexistent/file.json"}, want: "read object"},
		{name: "unknown command", args: []string{"nope"}, want: "unknown command"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := execute(t, tc.stdin, append(tc.args, "--config", configPath)...)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}
