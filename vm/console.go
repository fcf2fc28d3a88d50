package vm

import (
	"fmt"
	"io"

	"github.com/tliron/commonlog"
)

// Console is the sink for script output and non-fatal diagnostics: unknown
// commands, read-only writes, bad alias targets.
type Console interface {
	// Warnf reports a recoverable script problem.
	Warnf(format string, args ...any)
	// Echo prints a line produced by the script.
	Echo(line string)
}

// LogConsole sends everything to commonlog. Warnings go out at Warning level
// and echoed lines at Notice level.
type LogConsole struct {
	Log commonlog.Logger
}

// NewLogConsole creates a console logging under "cubescript.console".
func NewLogConsole() *LogConsole {
	return &LogConsole{Log: commonlog.GetLogger("cubescript.console")}
}

func (c *LogConsole) Warnf(format string, args ...any) {
	c.Log.Warningf(format, args...)
}

func (c *LogConsole) Echo(line string) {
	c.Log.Notice(line)
}

// WriterConsole prints echoed lines to Out and warnings to Err. Warnings are
// also logged at Warning level.
type WriterConsole struct {
	Out io.Writer
	Err io.Writer
	log commonlog.Logger
}

// NewWriterConsole creates a console writing to out and errOut.
func NewWriterConsole(out, errOut io.Writer) *WriterConsole {
	return &WriterConsole{Out: out, Err: errOut, log: commonlog.GetLogger("cubescript.console")}
}

func (c *WriterConsole) Warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c.log.Warning(msg)
	fmt.Fprintln(c.Err, msg)
}

func (c *WriterConsole) Echo(line string) {
	fmt.Fprintln(c.Out, line)
}
