// Command aislvm is the VM driver of spec.md §6: it loads a compiled
// .aislc artifact and runs it. Flag parsing and the Stdio abstraction
// mirror the teacher's cmd/nenuphar/main.go, split from the compiler
// driver (cmd/aislc) because spec.md defines "compiler" and "vm" as two
// separate CLI contracts.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mna/mainer"

	"github.com/aislang/aisl/internal/cli"
	"github.com/aislang/aisl/lang/bytecode"
	"github.com/aislang/aisl/lang/host"
	"github.com/aislang/aisl/lang/value"
	"github.com/aislang/aisl/lang/vm"
)

const binName = "aislvm"

var (
	// placeholder values, replaced on build
	version   = "{v}"
	buildDate = "{d}"
)

var usage = fmt.Sprintf(`usage: %s <input.aislc>
       %[1]s -h|--help
       %[1]s -v|--version

Runs a compiled AISL bytecode artifact. The process exit code is the
program's own exit code if it returns or halts with an int value,
otherwise 0.
`, binName)

type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	args []string
}

func (c *Cmd) SetArgs(args []string)          { c.args = args }
func (c *Cmd) SetFlags(flags map[string]bool) {}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) != 1 {
		return fmt.Errorf("expected exactly 1 argument (<input.aislc>), got %d", len(c.args))
	}
	return nil
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{EnvVars: true, EnvPrefix: strings.ToUpper(binName) + "_"}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, usage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, usage)
		return mainer.Success
	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	cfg, err := cli.LoadConfig()
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return mainer.Failure
	}

	code, err := c.run(stdio)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, cli.FormatError(err, cfg.ErrorFormat))
		return mainer.Failure
	}
	return mainer.ExitCode(code)
}

func (c *Cmd) run(stdio mainer.Stdio) (int64, error) {
	data, err := os.ReadFile(c.args[0])
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", c.args[0], err)
	}
	prog, err := bytecode.DecodeBinary(data)
	if err != nil {
		return 0, err
	}
	if err := prog.ValidateJumps(); err != nil {
		return 0, err
	}

	th := vm.NewThread(prog, vm.IOContext{
		Stdout: stdio.Stdout,
		Stderr: stdio.Stderr,
		Stdin:  stdio.Stdin,
	})
	th.Host = host.NewTable()

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	result, err := th.Run(ctx, "main")
	if err != nil {
		return 0, err
	}
	if result.Tag() == value.IntT {
		return result.AsInt(), nil
	}
	return 0, nil
}

func main() {
	c := &Cmd{BuildVersion: version, BuildDate: buildDate}
	os.Exit(int(c.Main(os.Args, mainer.CurrentStdio())))
}
