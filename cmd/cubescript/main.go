// CubeScript CLI - runs scripts, evaluates expressions and hosts a REPL
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"golang.org/x/term"

	"github.com/chazu/cubescript/config"
	"github.com/chazu/cubescript/persist"
	"github.com/chazu/cubescript/vm"
)

var log = commonlog.GetLogger("cubescript.cli")

type options struct {
	expr        string
	interactive bool
	disasm      bool
	compileOut  string
	configDir   string
	verbosity   int
	noPersist   bool
	restore     string
	snapshots   bool
}

func main() {
	var opts options
	flag.StringVar(&opts.expr, "e", "", "Evaluate an expression and print its result")
	flag.BoolVar(&opts.interactive, "i", false, "Start the REPL after running files")
	flag.BoolVar(&opts.disasm, "disasm", false, "Print the bytecode of each file instead of running it")
	flag.StringVar(&opts.compileOut, "compile", "", "Compile the single input file to a .csb cache file")
	flag.StringVar(&opts.configDir, "config", "", "Directory to search for "+config.FileName+" (default: current directory)")
	flag.IntVar(&opts.verbosity, "v", -1, "Log verbosity (overrides [log] verbosity)")
	flag.BoolVar(&opts.noPersist, "no-persist", false, "Do not write persistent identifiers on exit")
	flag.StringVar(&opts.restore, "restore", "", "Restore a snapshot by ID (or 'latest') before running")
	flag.BoolVar(&opts.snapshots, "snapshots", false, "List saved snapshots and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cubescript [options] [files...]\n\n")
		fmt.Fprintf(os.Stderr, "Runs CubeScript files (.cfg source or .csb compiled blocks).\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  cubescript                         # Start REPL\n")
		fmt.Fprintf(os.Stderr, "  cubescript -e 'result (+ 1 2)'     # Evaluate an expression\n")
		fmt.Fprintf(os.Stderr, "  cubescript game.cfg                # Run a script\n")
		fmt.Fprintf(os.Stderr, "  cubescript -compile game.csb game.cfg\n")
		fmt.Fprintf(os.Stderr, "  cubescript -disasm game.cfg\n")
	}
	flag.Parse()

	if err := run(opts, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options, paths []string) error {
	cfg, err := loadConfig(opts.configDir)
	if err != nil {
		return err
	}

	verbosity := cfg.Log.Verbosity
	if opts.verbosity >= 0 {
		verbosity = opts.verbosity
	}
	var logPath *string
	if p := cfg.LogPath(); p != "" {
		logPath = &p
	}
	commonlog.Configure(verbosity, logPath)

	in := vm.New()
	in.Console = vm.NewWriterConsole(os.Stdout, os.Stderr)
	if err := cfg.Apply(in); err != nil {
		return err
	}

	if opts.snapshots {
		return listSnapshots(cfg, os.Stdout)
	}
	if opts.compileOut != "" {
		if len(paths) != 1 {
			return fmt.Errorf("-compile takes exactly one input file")
		}
		return compileFile(in, paths[0], opts.compileOut)
	}
	if opts.disasm {
		for _, path := range paths {
			if err := disassembleFile(in, path, os.Stdout); err != nil {
				return err
			}
		}
		return nil
	}

	startup(in, cfg)
	if opts.restore != "" {
		if err := restoreSnapshot(in, cfg, opts.restore); err != nil {
			return err
		}
	}

	for _, path := range paths {
		if err := runFile(in, path); err != nil {
			return err
		}
	}

	if opts.expr != "" {
		v, err := in.Execute(opts.expr)
		if err != nil {
			return err
		}
		if !v.IsNull() {
			fmt.Println(v.GetStr())
		}
	}

	if opts.interactive || (len(paths) == 0 && opts.expr == "") {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			if err := runREPL(in); err != nil {
				return err
			}
		} else if err := runStdin(in, os.Stdin); err != nil {
			return err
		}
	}

	if opts.noPersist {
		return nil
	}
	return savePersistent(in, cfg)
}

// loadConfig finds cubescript.toml starting at dir, falling back to defaults.
func loadConfig(dir string) (*config.Config, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		dir = wd
	}
	cfg, err := config.FindAndLoad(dir)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default(dir)
	}
	return cfg, nil
}

// startup runs the persisted config script followed by the autoexec list.
// Missing files are skipped.
func startup(in *vm.Interp, cfg *config.Config) {
	var paths []string
	if p := cfg.ConfigPath(); p != "" {
		paths = append(paths, p)
	}
	paths = append(paths, cfg.ExecPaths()...)
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			log.Debugf("skipping %s: %v", p, err)
			continue
		}
		if err := in.ExecFile(p); err != nil {
			log.Warningf("%s: %v", p, err)
		}
	}
}

func runStdin(in *vm.Interp, r io.Reader) error {
	src, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	_, err = in.Execute(string(src))
	return err
}

// savePersistent writes the persistent identifiers to the configured config
// script and snapshot database.
func savePersistent(in *vm.Interp, cfg *config.Config) error {
	if p := cfg.ConfigPath(); p != "" {
		if err := writeConfigFile(in, p); err != nil {
			return err
		}
	}
	if p := cfg.DatabasePath(); p != "" {
		store, err := persist.Open(p)
		if err != nil {
			return err
		}
		defer store.Close()
		id, err := store.Save(in, "exit")
		if err != nil {
			return err
		}
		log.Infof("saved snapshot %s", id)
	}
	return nil
}

func writeConfigFile(in *vm.Interp, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := persist.WriteConfig(f, in); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return os.Rename(tmp, path)
}

func openStore(cfg *config.Config) (*persist.Store, error) {
	p := cfg.DatabasePath()
	if p == "" {
		return nil, fmt.Errorf("no [persist] database configured in %s", config.FileName)
	}
	return persist.Open(p)
}

func restoreSnapshot(in *vm.Interp, cfg *config.Config, id string) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	if id == "latest" {
		if id, err = store.Latest(); err != nil {
			return err
		}
	}
	return store.Load(id, in)
}

func listSnapshots(cfg *config.Config, w io.Writer) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	snaps, err := store.List()
	if err != nil {
		return err
	}
	for _, s := range snaps {
		fmt.Fprintf(w, "%s  %s  %3d  %s\n", s.ID, s.Created.Format("2006-01-02 15:04:05"), s.Count, s.Label)
	}
	return nil
}
