// Command stratum is the host embedding demo for the VM (spec §6.3): it
// loads a source file, compiles it, and runs it through internal/vm with
// the host bridge and optional native code generator wired in, generalizing
// the teacher's 52-line main.go (read file, tokenize, parse, hand off to
// runtime.NewHybridEngine) into three subcommands over urfave/cli/v2.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"stratum/internal/coverage"
	"stratum/internal/debug"
	"stratum/internal/frontend/compiler"
	"stratum/internal/frontend/parser"
	"stratum/internal/host"
	"stratum/internal/jit"
	"stratum/internal/object"
	"stratum/internal/vm"
)

var log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).With().Timestamp().Logger()

func main() {
	app := &cli.App{
		Name:  "stratum",
		Usage: "run and inspect Stratum programs",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "jit", Usage: "enable the native code generator (§4.6)"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log each subsystem stage"},
		},
		Commands: []*cli.Command{
			runCommand,
			runDebugCommand,
			coverageCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		os.Exit(1)
	}
}

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "compile and execute a .strat file",
	ArgsUsage: "<file>",
	Action: func(c *cli.Context) error {
		fn, err := loadAndCompile(c)
		if err != nil {
			return err
		}
		bridge := newBridge()
		cfg := vm.Config{Host: bridge}
		if c.Bool("jit") {
			cfg.JIT = jit.NewEngine(0)
		}
		machine := vm.New(cfg)
		bridge.BindVM(machine)

		result, err := machine.Run(fn)
		if err != nil {
			return err
		}
		fmt.Println(result.String())
		return nil
	},
}

var runDebugCommand = &cli.Command{
	Name:      "run-debug",
	Usage:     "run under the stepping debugger, honoring breakpoints (§4.4)",
	ArgsUsage: "<file>",
	Flags: []cli.Flag{
		&cli.IntSliceFlag{Name: "break", Usage: "line number to break at (repeatable)"},
		&cli.BoolFlag{Name: "stop-on-entry", Usage: "pause before the first instruction (§4.4 PauseReason::Entry)"},
	},
	Action: func(c *cli.Context) error {
		fn, err := loadAndCompile(c)
		if err != nil {
			return err
		}
		bridge := newBridge()
		machine := vm.New(vm.Config{Host: bridge})
		bridge.BindVM(machine)

		session := debug.NewSession(machine)
		for _, line := range c.IntSlice("break") {
			session.AddBreakpoint(fn.Chunk.Source, line)
		}

		res := session.Start(fn, c.Bool("stop-on-entry"))
		for res.Kind == debug.Paused {
			fmt.Fprintf(os.Stderr, "paused (%s)\n%s\n", res.Reason, res.State)
			res = session.StepOverNow()
		}
		if res.Kind == debug.Error {
			return res.Err
		}
		fmt.Println(res.Value.String())
		return nil
	},
}

var coverageCommand = &cli.Command{
	Name:      "coverage",
	Usage:     "run a file and emit a coverage report (§6.5)",
	ArgsUsage: "<file>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "format", Value: "text", Usage: "text | html | lcov"},
	},
	Action: func(c *cli.Context) error {
		fn, err := loadAndCompile(c)
		if err != nil {
			return err
		}
		format, err := coverage.ParseFormat(c.String("format"))
		if err != nil {
			return err
		}

		bridge := newBridge()
		machine := vm.New(vm.Config{Host: bridge})
		bridge.BindVM(machine)

		collector := coverage.NewCollector()
		collector.Attach(machine)

		if _, err := machine.Run(fn); err != nil {
			return err
		}
		fmt.Println(coverage.GenerateReport(collector, format))
		return nil
	},
}

// loadAndCompile reads the source file named as the command's sole argument,
// accepts only the .strat and .st extensions, and
// runs it through the parser + compiler pipeline.
func loadAndCompile(c *cli.Context) (*object.Function, error) {
	filename := c.Args().First()
	if filename == "" {
		return nil, cli.Exit("usage: stratum <command> <file>", 1)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".strat" && ext != ".st" {
		return nil, fmt.Errorf("only .strat and .st files are supported (got %s)", ext)
	}

	if c.Bool("verbose") {
		log.Info().Str("file", filename).Msg("reading source")
	}
	source, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filename, err)
	}

	prog, err := parser.Parse(string(source))
	if err != nil {
		return nil, err
	}
	if c.Bool("verbose") {
		log.Info().Msg("parsed, compiling")
	}
	fn, err := compiler.Compile(prog)
	if err != nil {
		return nil, err
	}
	fn.Chunk.Source = filename
	return fn, nil
}

// newBridge wires every host namespace this embedder ships with (§4.7).
func newBridge() *host.Bridge {
	b := host.NewBridge()
	host.RegisterFmaths(b)
	host.RegisterTime(b)
	host.RegisterIO(b)
	host.RegisterPlaceholders(b)
	return b
}
