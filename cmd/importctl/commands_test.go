package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"recipe-importer/internal/core/session"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestClassifyCommand(t *testing.T) {
	out, err := run(t, "", "classify", "https://instagram.com/p/abc")
	if err != nil {
		t.Fatalf("classify error = %v", err)
	}
	if !strings.Contains(out, `"platform": "instagram"`) {
		t.Fatalf("output = %s", out)
	}
}

func TestParseCommandReadsStdin(t *testing.T) {
	out, err := run(t, "Bolo\nIngredientes:\n3 ovos\nModo de Preparo:\nMisture", "parse")
	if err != nil {
		t.Fatalf("parse error = %v", err)
	}
	var res struct {
		Draft struct {
			Title string `json:"title"`
		} `json:"draft"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("invalid output %s: %v", out, err)
	}
	if res.Draft.Title != "Bolo" {
		t.Fatalf("output = %s", out)
	}
}

func TestImportCommandLocalSave(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("APP_IMPORT_SERVICE_ENABLED", "false")
	t.Setenv("DATABASE_URL", "file:"+filepath.Join(dir, "cli.db"))

	out, err := run(t, "", "import", "--local", "--save", "--text", "Bolo\nIngredientes:\n3 ovos\nModo de Preparo:\nMisture")
	if err != nil {
		t.Fatalf("import error = %v, output = %s", err, out)
	}
	var snap session.Snapshot
	if err := json.Unmarshal([]byte(out), &snap); err != nil {
		t.Fatalf("invalid output %s: %v", out, err)
	}
	if snap.State != session.StateCompleted || snap.RecipeID == "" {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestImportCommandRequiresInput(t *testing.T) {
	if _, err := run(t, "", "import"); err == nil {
		t.Fatal("expected error without input flags")
	}
}
