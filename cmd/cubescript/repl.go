package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/chazu/cubescript/vm"
)

func runREPL(in *vm.Interp) error {
	cfg := &readline.Config{Prompt: ">> "}
	if home, err := os.UserHomeDir(); err == nil {
		cfg.HistoryFile = filepath.Join(home, ".cubescript_history")
	}
	rl, err := readline.NewEx(cfg)
	if err != nil {
		return fmt.Errorf("starting REPL: %w", err)
	}
	defer rl.Close()

	fmt.Println("CubeScript REPL (type 'quit' to exit, ':help' for commands)")

	var buf strings.Builder
	for {
		if buf.Len() == 0 {
			rl.SetPrompt(">> ")
		} else {
			rl.SetPrompt(".. ")
		}

		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buf.Reset()
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		if buf.Len() == 0 {
			trimmed := strings.TrimSpace(line)
			if trimmed == "quit" || trimmed == "exit" {
				break
			}
			if strings.HasPrefix(trimmed, ":") {
				handleREPLCommand(in, trimmed)
				continue
			}
		}

		if buf.Len() > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(line)
		if incomplete(buf.String()) {
			continue
		}

		src := buf.String()
		buf.Reset()
		evalAndPrint(in, src, os.Stdout)
	}
	fmt.Println()
	return nil
}

func handleREPLCommand(in *vm.Interp, cmd string) {
	name, arg, _ := strings.Cut(cmd, " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case ":help", ":h", ":?":
		fmt.Println("REPL Commands:")
		fmt.Println("  :help, :h, :?      Show this help")
		fmt.Println("  :disasm <code>     Show the bytecode for <code>")
		fmt.Println("  :idents [prefix]   List identifiers")
		fmt.Println("  quit, exit         Exit REPL")
	case ":disasm":
		fmt.Print(in.Compile(arg, "repl").DisassembleWithNames(in))
	case ":idents":
		listIdents(in, arg, os.Stdout)
	default:
		fmt.Printf("Unknown command: %s (try :help)\n", name)
	}
}

func listIdents(in *vm.Interp, prefix string, w io.Writer) {
	for _, id := range in.Idents() {
		if id.Flags&vm.FlagArg != 0 || !strings.HasPrefix(id.Name, prefix) {
			continue
		}
		switch {
		case id.Kind.IsVar(), id.Kind == vm.KindAlias:
			fmt.Fprintf(w, "%-8s %s = %s\n", id.Kind, id.Name, id.String())
		default:
			fmt.Fprintf(w, "%-8s %s %s\n", id.Kind, id.Name, id.Args)
		}
	}
}

// evalAndPrint runs src and prints a non-null result.
func evalAndPrint(in *vm.Interp, src string, w io.Writer) {
	v, err := in.Execute(src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	if !v.IsNull() {
		fmt.Fprintln(w, v.GetStr())
	}
}

// incomplete reports whether src ends inside an open bracket or
// parenthesis, in which case the REPL keeps reading lines.
func incomplete(src string) bool {
	depth := 0
	for i := 0; i < len(src); i++ {
		switch src[i] {
		case '[', '(':
			depth++
		case ']', ')':
			depth--
		case '"':
			for i++; i < len(src) && src[i] != '"' && src[i] != '\n'; i++ {
				if src[i] == '^' {
					i++
				}
			}
		case '/':
			if i+1 < len(src) && src[i+1] == '/' {
				for i < len(src) && src[i] != '\n' {
					i++
				}
			}
		}
	}
	return depth > 0
}
