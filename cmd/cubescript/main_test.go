package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/cubescript/config"
	"github.com/chazu/cubescript/vm"
)

func newQuietInterp() *vm.Interp {
	in := vm.New()
	in.Console = vm.NewWriterConsole(&bytes.Buffer{}, &bytes.Buffer{})
	return in
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestIncomplete(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"echo hi", false},
		{"f = [", true},
		{"f = [\n  echo hi\n]", false},
		{"result (+ 1", true},
		{`echo "["`, false},
		{`echo "^"["`, false},
		{"echo // [", false},
		{"f = [[]", true},
	}
	for _, tt := range tests {
		if got := incomplete(tt.src); got != tt.want {
			t.Errorf("incomplete(%q) = %v, want %v", tt.src, got, tt.want)
		}
	}
}

func TestCompileAndRunCompiled(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "sum.cfg", "v = (+ 2 3)")
	out := filepath.Join(dir, "sum.csb")

	if err := compileFile(newQuietInterp(), src, out); err != nil {
		t.Fatal(err)
	}

	in := newQuietInterp()
	if err := runFile(in, out); err != nil {
		t.Fatal(err)
	}
	v, err := in.GetValue("v")
	if err != nil || v.GetStr() != "5" {
		t.Errorf("v = %v, %v, want 5", v, err)
	}

	shifted := newQuietInterp()
	if _, err := shifted.Execute("other = 1"); err != nil {
		t.Fatal(err)
	}
	if err := runFile(shifted, out); err != nil {
		t.Fatal(err)
	}
	if v, _ := shifted.GetValue("v"); v.GetStr() != "5" {
		t.Errorf("v = %q after recompiling a stale cache", v.GetStr())
	}
}

func TestRunSourceFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.cfg", "greeting = hello")
	in := newQuietInterp()
	in.Dir = t.TempDir()
	if err := runFile(in, path); err != nil {
		t.Fatal(err)
	}
	if v, _ := in.GetValue("greeting"); v.GetStr() != "hello" {
		t.Errorf("greeting = %q", v.GetStr())
	}
	if err := runFile(in, filepath.Join(dir, "missing.cfg")); err == nil {
		t.Errorf("runFile(missing) succeeded")
	}
}

func TestDisassembleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "d.cfg", "echo hi")
	var buf bytes.Buffer
	if err := disassembleFile(newQuietInterp(), path, &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "; === d.cfg ===") {
		t.Errorf("disassembly:\n%s", buf.String())
	}
}

func TestRunStdin(t *testing.T) {
	in := newQuietInterp()
	if err := runStdin(in, strings.NewReader("x = 4\ny = (* $x 2)")); err != nil {
		t.Fatal(err)
	}
	if v, _ := in.GetValue("y"); v.GetStr() != "8" {
		t.Errorf("y = %q", v.GetStr())
	}
}

func TestEvalAndPrint(t *testing.T) {
	in := newQuietInterp()
	var buf bytes.Buffer
	evalAndPrint(in, "result (+ 1 2)", &buf)
	evalAndPrint(in, "v = 1", &buf)
	if buf.String() != "3\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestListIdents(t *testing.T) {
	in := newQuietInterp()
	if _, err := in.Execute("myalias = hello"); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	listIdents(in, "my", &buf)
	if got := strings.TrimSpace(buf.String()); got != "alias    myalias = hello" {
		t.Errorf("listIdents = %q", got)
	}
}

func TestPersistAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default(dir)
	cfg.Persist.Config = "saved.cfg"
	cfg.Persist.Database = "snapshots.db"
	cfg.Exec.Autoexec = []string{"autoexec.cfg", "absent.cfg"}
	writeFile(t, dir, "autoexec.cfg", "fromauto = yes")

	first := newQuietInterp()
	if _, err := first.Execute("greet = [result hi]"); err != nil {
		t.Fatal(err)
	}
	if err := savePersistent(first, cfg); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "saved.cfg")); err != nil {
		t.Fatalf("config not written: %v", err)
	}

	second := newQuietInterp()
	startup(second, cfg)
	if v, _ := second.Execute("greet"); v.GetStr() != "hi" {
		t.Errorf("greet = %q after startup", v.GetStr())
	}
	if v, _ := second.GetValue("fromauto"); v.GetStr() != "yes" {
		t.Errorf("autoexec did not run")
	}

	third := newQuietInterp()
	if err := restoreSnapshot(third, cfg, "latest"); err != nil {
		t.Fatal(err)
	}
	if v, _ := third.Execute("greet"); v.GetStr() != "hi" {
		t.Errorf("greet = %q after restore", v.GetStr())
	}

	var buf bytes.Buffer
	if err := listSnapshots(cfg, &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "exit") {
		t.Errorf("snapshots:\n%s", buf.String())
	}
}

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := loadConfig(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Dir != dir || cfg.Runtime.MaxRunDepth != vm.MaxRunDepth {
		t.Errorf("cfg = %+v", cfg)
	}
}
