// Command aislc is the compiler driver of spec.md §6: it reads a .aisl
// source file, compiles it to a bytecode artifact, and writes the
// serialized .aislc file. Flag parsing and the Stdio abstraction mirror
// the teacher's cmd/nenuphar/main.go, split into its own binary because
// spec.md defines "compiler" and "vm" as two separate CLI contracts.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mna/mainer"

	"github.com/aislang/aisl/internal/cli"
	"github.com/aislang/aisl/lang/bytecode"
	"github.com/aislang/aisl/lang/compiler"
	"github.com/aislang/aisl/lang/desugar"
	"github.com/aislang/aisl/lang/sexpr"
)

const binName = "aislc"

var (
	// placeholder values, replaced on build
	version   = "{v}"
	buildDate = "{d}"
)

var usage = fmt.Sprintf(`usage: %s [--ast-export] <input.aisl> <output.aislc>
       %[1]s -h|--help
       %[1]s -v|--version

Compiles an AISL source file to a bytecode artifact. With --ast-export, an
additional <output.aislc>.ast text dump of the desugared AST is produced.
`, binName)

// Cmd is aislc's single command; there is no subcommand dispatch (unlike
// the teacher's multi-command Cmd) since spec.md gives the compiler driver
// exactly one job.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help      bool `flag:"h,help"`
	Version   bool `flag:"v,version"`
	AstExport bool `flag:"ast-export"`

	args []string
}

func (c *Cmd) SetArgs(args []string)          { c.args = args }
func (c *Cmd) SetFlags(flags map[string]bool) {}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) != 2 {
		return fmt.Errorf("expected exactly 2 arguments (<input.aisl> <output.aislc>), got %d", len(c.args))
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
	if err := c.run(cfg, stdio); err != nil {
		fmt.Fprintln(stdio.Stderr, cli.FormatError(err, cfg.ErrorFormat))
		return mainer.Failure
	}
	return mainer.Success
}

func (c *Cmd) run(cfg cli.Config, stdio mainer.Stdio) error {
	inPath, outPath := c.args[0], c.args[1]
	src, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", inPath, err)
	}
	mod, err := sexpr.Read(src, inPath)
	if err != nil {
		return err
	}
	prog, err := compiler.CompileStandalone(mod)
	if err != nil {
		return err
	}
	if err := prog.ValidateJumps(); err != nil {
		return err
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", outPath, err)
	}
	defer out.Close()
	if err := bytecode.WriteBinary(out, prog); err != nil {
		return err
	}

	if c.AstExport {
		desugared, err := desugar.New().Module(mod)
		if err != nil {
			return err
		}
		dumpPath := outPath + ".ast"
		if err := os.WriteFile(dumpPath, []byte(fmt.Sprintf("%#v\n", desugared)), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", dumpPath, err)
		}
	}
	return nil
}

func main() {
	c := &Cmd{BuildVersion: version, BuildDate: buildDate}
	os.Exit(int(c.Main(os.Args, mainer.CurrentStdio())))
}
