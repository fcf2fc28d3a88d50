package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/cubescript/vm"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[runtime]
max-run-depth = 64
trace = true

[log]
verbosity = 2
path = "logs/cube.log"

[exec]
autoexec = ["autoexec.cfg", "/etc/cube/extra.cfg"]

[persist]
config = "saved.cfg"
database = "idents.db"

[vars]
name = "player"
`)

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Runtime.MaxRunDepth != 64 {
		t.Errorf("max-run-depth = %d, want 64", c.Runtime.MaxRunDepth)
	}
	if !c.Runtime.Trace {
		t.Error("trace = false, want true")
	}
	if c.Log.Verbosity != 2 {
		t.Errorf("verbosity = %d, want 2", c.Log.Verbosity)
	}
	if got, want := c.LogPath(), filepath.Join(c.Dir, "logs", "cube.log"); got != want {
		t.Errorf("LogPath() = %q, want %q", got, want)
	}
	paths := c.ExecPaths()
	if len(paths) != 2 || paths[0] != filepath.Join(c.Dir, "autoexec.cfg") || paths[1] != "/etc/cube/extra.cfg" {
		t.Errorf("ExecPaths() = %v", paths)
	}
	if got := c.ConfigPath(); got != filepath.Join(c.Dir, "saved.cfg") {
		t.Errorf("ConfigPath() = %q", got)
	}
	if got := c.DatabasePath(); got != filepath.Join(c.Dir, "idents.db") {
		t.Errorf("DatabasePath() = %q", got)
	}
	if c.Vars["name"] != "player" {
		t.Errorf("vars = %v", c.Vars)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "[exec]\n")

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Runtime.MaxRunDepth != vm.MaxRunDepth {
		t.Errorf("max-run-depth = %d, want %d", c.Runtime.MaxRunDepth, vm.MaxRunDepth)
	}
	if c.Log.Verbosity != 1 {
		t.Errorf("verbosity = %d, want 1", c.Log.Verbosity)
	}
	if c.LogPath() != "" || c.ConfigPath() != "" || c.DatabasePath() != "" {
		t.Errorf("unset paths should stay empty")
	}
	if len(c.ExecPaths()) != 0 {
		t.Errorf("ExecPaths() = %v, want none", c.ExecPaths())
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Error("Load of an empty dir succeeded")
	}

	dir := t.TempDir()
	writeConfig(t, dir, "[runtime\nmax-run-depth = ")
	if _, err := Load(dir); err == nil {
		t.Error("Load of malformed toml succeeded")
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "[runtime]\nmax-run-depth = 32\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	c, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if c == nil || c.Runtime.MaxRunDepth != 32 {
		t.Fatalf("FindAndLoad = %+v, want the root config", c)
	}
	abs, _ := filepath.Abs(root)
	if c.Dir != abs {
		t.Errorf("Dir = %q, want %q", c.Dir, abs)
	}
}

func TestApply(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[runtime]
max-run-depth = 12

[vars]
greeting = "hello"
level = "7"
`)
	c, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}

	in := vm.New()
	var level int32
	vm.MustRegister(in.RegisterIntVar(vm.IntVarDef{Name: "level", Max: 10, Storage: &level}))
	if err := c.Apply(in); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if in.MaxRunDepth != 12 || in.Dir != c.Dir {
		t.Errorf("MaxRunDepth = %d, Dir = %q", in.MaxRunDepth, in.Dir)
	}
	if level != 7 {
		t.Errorf("level = %d, want 7", level)
	}
	if v, _ := in.GetValue("greeting"); v.GetStr() != "hello" {
		t.Errorf("greeting = %q", v.GetStr())
	}

	vm.MustRegister(in.RegisterIntVar(vm.IntVarDef{Name: "fixed", Min: 1, Max: 0}))
	c.Vars = map[string]string{"fixed": "3"}
	if err := c.Apply(in); !errors.Is(err, vm.ErrReadOnly) {
		t.Errorf("Apply(read-only) = %v, want ErrReadOnly", err)
	}
}
