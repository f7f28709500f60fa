package commands

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/mosaicnetworks/accord/src/contract"
)

func TestBlacklistCmd(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "blacklist.jar")
	from := filepath.Join(dir, "names.txt")

	if err := os.WriteFile(from, []byte("TCF National Bank Wisconsin\n\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cmd := NewBlacklistCmd()
	cmd.SetArgs([]string{"--out", out, "--from", from, "Crossland Savings"})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}

	archive, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	names, err := contract.ReadBlacklist(archive)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"Crossland Savings", "TCF National Bank Wisconsin"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("got %v, want %v", names, want)
	}
}
