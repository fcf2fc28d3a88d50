package persist

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/cubescript/vm"
)

type settings struct {
	fov     int32
	col     int32
	scratch int32
	sens    float32
	name    string
}

func newWorld(t *testing.T) (*vm.Interp, *settings) {
	t.Helper()
	in := vm.New()
	in.Console = vm.NewWriterConsole(&bytes.Buffer{}, &bytes.Buffer{})
	s := &settings{}
	vm.MustRegister(in.RegisterIntVar(vm.IntVarDef{Name: "fov", Min: 10, Default: 90, Max: 150, Storage: &s.fov, Flags: vm.FlagPersist}))
	vm.MustRegister(in.RegisterIntVar(vm.IntVarDef{Name: "col", Min: 0, Max: 0xFFFFFF, Storage: &s.col, Flags: vm.FlagPersist | vm.FlagHex}))
	vm.MustRegister(in.RegisterIntVar(vm.IntVarDef{Name: "scratch", Min: 0, Max: 10, Storage: &s.scratch}))
	vm.MustRegister(in.RegisterFloatVar(vm.FloatVarDef{Name: "sens", Min: 0, Default: 1, Max: 10, Storage: &s.sens, Flags: vm.FlagPersist}))
	vm.MustRegister(in.RegisterStringVar(vm.StringVarDef{Name: "name", Default: "anon", Storage: &s.name, Flags: vm.FlagPersist}))
	return in, s
}

func mustExecute(t *testing.T, in *vm.Interp, src string) {
	t.Helper()
	if _, err := in.Execute(src); err != nil {
		t.Fatalf("Execute(%q): %v", src, err)
	}
}

func TestCollect(t *testing.T) {
	in, _ := newWorld(t)
	mustExecute(t, in, `fov 100; scratch 3; greet = [echo hi]; persistidents 0; temp = x; persistidents 1`)

	var names []string
	for _, e := range Collect(in) {
		names = append(names, e.Name)
	}
	got := strings.Join(names, " ")
	if want := "col fov name sens greet"; got != want {
		t.Errorf("Collect names = %q, want %q", got, want)
	}
}

func TestCollectSkipsOverrides(t *testing.T) {
	in, _ := newWorld(t)
	in.SetOverrideMode(true)
	mustExecute(t, in, "mapalias = 1")
	in.SetOverrideMode(false)
	for _, e := range Collect(in) {
		if e.Name == "mapalias" {
			t.Errorf("overridden alias was collected")
		}
	}
}

func TestWriteConfig(t *testing.T) {
	in, _ := newWorld(t)
	mustExecute(t, in, `fov 100; col 16 32 48; sens 2.5; name "a b"; greet = [echo hi]; weird = "["`)

	var buf bytes.Buffer
	if err := WriteConfig(&buf, in); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"\ncol 0x102030\n",
		"\nfov 100\n",
		"\nname \"a b\"\n",
		"\nsens 2.5\n",
		"\n\ngreet = [echo hi]\n",
		"\nweird = \"[\"\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("config missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "scratch") {
		t.Errorf("non-persistent variable written:\n%s", out)
	}
}

func TestWriteConfigRoundTrip(t *testing.T) {
	in, _ := newWorld(t)
	mustExecute(t, in, `fov 120; col 1 2 3; sens 0.5; name "x^ny"; greet = [result (concatword hi $arg1)]; odd = "]["`)
	var buf bytes.Buffer
	if err := WriteConfig(&buf, in); err != nil {
		t.Fatal(err)
	}

	fresh, s := newWorld(t)
	mustExecute(t, fresh, buf.String())
	if s.fov != 120 || s.col != 0x010203 || s.sens != 0.5 || s.name != "x\ny" {
		t.Errorf("restored %+v", *s)
	}
	v, err := fresh.Execute("greet there")
	if err != nil || v.GetStr() != "hithere" {
		t.Errorf("greet = %v, %v", v, err)
	}
	if v, _ := fresh.GetValue("odd"); v.GetStr() != "][" {
		t.Errorf("odd = %q", v.GetStr())
	}
}

func TestValidBlock(t *testing.T) {
	tests := []struct {
		s    string
		want bool
	}{
		{"echo hi", true},
		{"if $a [b] [c (d)]", true},
		{`echo "]"`, true},
		{`echo "a^"b"`, true},
		{"[", false},
		{"]", false},
		{"(]", false},
		{`echo "open`, false},
		{"a // b", false},
		{"@x", false},
	}
	for _, tt := range tests {
		if got := validBlock(tt.s); got != tt.want {
			t.Errorf("validBlock(%q) = %v, want %v", tt.s, got, tt.want)
		}
	}
}

func openStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "snapshots.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestStoreSaveLoad(t *testing.T) {
	st := openStore(t)
	in, s := newWorld(t)
	mustExecute(t, in, `fov 110; col 0x0A0B0C; sens 3; name saved; greet = [result hello]`)

	id, err := st.Save(in, "first")
	if err != nil {
		t.Fatal(err)
	}

	mustExecute(t, in, `fov 20; col 0; sens 1; name changed; greet = [result bye]`)
	if err := st.Load(id, in); err != nil {
		t.Fatal(err)
	}
	if s.fov != 110 || s.col != 0x0A0B0C || s.sens != 3 || s.name != "saved" {
		t.Errorf("restored %+v", *s)
	}
	if v, _ := in.Execute("greet"); v.GetStr() != "hello" {
		t.Errorf("greet = %q", v.GetStr())
	}
}

func TestStoreSkipsUndefinedVars(t *testing.T) {
	st := openStore(t)
	in, _ := newWorld(t)
	id, err := st.Save(in, "")
	if err != nil {
		t.Fatal(err)
	}

	bare := vm.New()
	bare.Console = vm.NewWriterConsole(&bytes.Buffer{}, &bytes.Buffer{})
	if err := st.Load(id, bare); err != nil {
		t.Fatal(err)
	}
	if bare.Find("fov") != nil {
		t.Errorf("Load created an alias for an undefined variable")
	}
}

func TestStoreLoadSkipsRejectedEntries(t *testing.T) {
	st := openStore(t)
	in, _ := newWorld(t)
	mustExecute(t, in, "alpha = first; clash = [result 1]; zeta = last; fov 120")
	id, err := st.Save(in, "")
	if err != nil {
		t.Fatal(err)
	}

	target, s := newWorld(t)
	vm.MustRegister(target.RegisterCommand(vm.CommandDef{Name: "clash", Fn: func(in *vm.Interp, a []vm.Value) {}}))
	if err := st.Load(id, target); err != nil {
		t.Fatalf("Load = %v, want rejected entries skipped", err)
	}
	if target.Find("clash").Kind != vm.KindCommand {
		t.Errorf("clash was replaced")
	}
	for name, want := range map[string]string{"alpha": "first", "zeta": "last"} {
		if v, _ := target.GetValue(name); v.GetStr() != want {
			t.Errorf("%s = %q, want %q", name, v.GetStr(), want)
		}
	}
	if s.fov != 120 {
		t.Errorf("fov = %d, want 120", s.fov)
	}
}

func TestStoreListAndLatest(t *testing.T) {
	st := openStore(t)
	if _, err := st.Latest(); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("Latest on empty store = %v, want ErrSnapshotNotFound", err)
	}

	in, _ := newWorld(t)
	first, err := st.Save(in, "one")
	if err != nil {
		t.Fatal(err)
	}
	mustExecute(t, in, "extra = 1")
	second, err := st.Save(in, "two")
	if err != nil {
		t.Fatal(err)
	}

	snaps, err := st.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 2 || snaps[0].ID != second || snaps[1].ID != first {
		t.Fatalf("List = %+v", snaps)
	}
	if snaps[0].Label != "two" || snaps[0].Count != snaps[1].Count+1 {
		t.Errorf("List = %+v", snaps)
	}
	if latest, err := st.Latest(); err != nil || latest != second {
		t.Errorf("Latest = %q, %v, want %q", latest, err, second)
	}
}

func TestStoreLoadMissing(t *testing.T) {
	st := openStore(t)
	in, _ := newWorld(t)
	if err := st.Load("nope", in); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("Load(nope) = %v, want ErrSnapshotNotFound", err)
	}
}
