package identikit

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAndRekey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "identikits.json")
	fixture := `{
    "Mario Rossi": {"ruolo": "organizzatore", "motto": "sempre avanti"},
    "Anna Bianchi": "profilo libero"
}`
	if err := os.WriteFile(path, []byte(fixture), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	set, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(set) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(set))
	}

	out := set.Rekey(map[string]string{"Mario Rossi": "Drago Saggio"})
	if _, ok := out["Drago Saggio"]; !ok {
		t.Fatalf("mapped author must be rekeyed: %v", out)
	}
	if string(out["Drago Saggio"]) != string(set["Mario Rossi"]) {
		t.Fatalf("profile blob must pass through unmodified")
	}
	if _, ok := out["Anna Bianchi"]; !ok {
		t.Fatalf("unmapped author must keep its key: %v", out)
	}
	if _, ok := out["Mario Rossi"]; ok {
		t.Fatalf("original key must not survive rekeying")
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatalf("missing identikit file must abort the run")
	}
}
