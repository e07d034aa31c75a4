package games

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/oneirogames/oneiro/pkg/config"
	"github.com/oneirogames/oneiro/pkg/logger"
)

func writeManifest(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func testLibrary(t *testing.T, base string) *library {
	t.Helper()
	lib := NewLibrary(config.Library{BasePath: base}, logger.Default())
	t.Cleanup(lib.Close)
	return lib
}

func TestScanFindsManifests(t *testing.T) {
	base := t.TempDir()
	writeManifest(t, filepath.Join(base, "plasma"), "manifest.yaml", `
type: synth
id: plasma
title: Plasma
engine: synth
`)
	writeManifest(t, filepath.Join(base, "maze"), "game.yml", `
type: synth
id: maze
engine: synth
weights: maze.bin
`)

	lib := testLibrary(t, base)
	if !lib.IsLoading() {
		t.Error("library claims loaded before the first scan")
	}
	lib.Scan()
	if lib.IsLoading() {
		t.Error("library claims loading after a scan")
	}

	d, err := lib.Find("synth", "plasma")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if d.Title != "Plasma" {
		t.Errorf("descriptor: %+v", d)
	}

	maze, err := lib.Find("synth", "maze")
	if err != nil {
		t.Fatalf("find maze: %v", err)
	}
	if got := maze.WeightsPath(); got != filepath.Join(base, "maze", "maze.bin") {
		t.Errorf("weights path %q not anchored to the manifest dir", got)
	}

	if _, err = lib.Find("synth", "void"); err != ErrNotFound {
		t.Errorf("want ErrNotFound, got %v", err)
	}
}

// The manifests shipped in the repo must always parse, a typo there
// would leave a fresh deployment with an empty catalog.
func TestScanShippedManifests(t *testing.T) {
	lib := testLibrary(t, filepath.Join("..", "..", "games"))
	lib.Scan()

	d, err := lib.Find("synth", "plasma")
	if err != nil {
		t.Fatalf("shipped plasma manifest rejected: %v", err)
	}
	if d.Engine != "synth" {
		t.Errorf("engine %q, want synth", d.Engine)
	}
	if len(d.Buttons) == 0 {
		t.Error("button map missing")
	}
}

func TestScanSkipsBrokenManifests(t *testing.T) {
	base := t.TempDir()
	writeManifest(t, base, "no-engine.yaml", "type: synth\nid: x\n")
	writeManifest(t, base, "garbage.yaml", "::: not yaml {{{")
	writeManifest(t, base, "ok.yaml", "type: synth\nid: ok\nengine: synth\n")

	lib := testLibrary(t, base)
	lib.Scan()

	if _, err := lib.Find("synth", "ok"); err != nil {
		t.Errorf("valid manifest lost: %v", err)
	}
	if _, err := lib.Find("synth", "x"); err == nil {
		t.Error("manifest without engine accepted")
	}
	if got := len(lib.List()["synth"]); got != 1 {
		t.Errorf("catalog size %d, want 1", got)
	}
}

func TestRescanReplacesCatalog(t *testing.T) {
	base := t.TempDir()
	writeManifest(t, base, "a.yaml", "type: synth\nid: a\nengine: synth\n")

	lib := testLibrary(t, base)
	lib.Scan()
	if _, err := lib.Find("synth", "a"); err != nil {
		t.Fatalf("find: %v", err)
	}

	if err := os.Remove(filepath.Join(base, "a.yaml")); err != nil {
		t.Fatal(err)
	}
	writeManifest(t, base, "b.yaml", "type: synth\nid: b\nengine: synth\n")
	lib.Scan()

	if _, err := lib.Find("synth", "a"); err == nil {
		t.Error("removed game still listed")
	}
	if _, err := lib.Find("synth", "b"); err != nil {
		t.Errorf("new game not listed: %v", err)
	}
}
