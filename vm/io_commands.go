package vm

// ---------------------------------------------------------------------------
// Output and file commands
// ---------------------------------------------------------------------------

func (in *Interp) registerIOCommands() {
	in.command("echo", "C", func(in *Interp, a []Value) {
		in.Console.Echo(a[0].GetStr())
	})
	in.command("error", "C", func(in *Interp, a []Value) {
		in.Console.Warnf("%s", a[0].GetStr())
	})

	// exec runs a script file and returns 1 on success. A zero second
	// argument silences the report of a missing file.
	in.command("exec", "sb", func(in *Interp, a []Value) {
		path := a[0].GetStr()
		var discard Value
		if err := in.execFile(path, &discard); err != nil {
			if a[1].GetInt() != 0 {
				in.Console.Warnf("could not read %q", path)
			}
			in.log.Debugf("exec %s: %s", path, err)
			in.IntRet(0)
			return
		}
		in.IntRet(1)
	})
}
