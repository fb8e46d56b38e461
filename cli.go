package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"cpemu/emu/log"
)

type mode byte

const (
	runMode     mode = iota // Run a synthetic workload
	scriptMode              // Run a Lua scenario
	regsMode                // List mapped registers
	versionMode             // Show cpemu version
)

type (
	CLI struct {
		Run     Run     `cmd:"" help:"Run a synthetic command stream through the FIFO. (default command)" default:"withargs"`
		Script  Script  `cmd:"" help:"Run a Lua scenario."`
		Regs    Regs    `cmd:"" help:"List the mapped registers."`
		Version Version `cmd:"" help:"Show cpemu version."`

		Log    logModMask `help:"${log_help}" placeholder:"mod0,mod1,..."`
		Config string     `help:"${config_help}" type:"path" placeholder:"FILE"`

		mode mode
	}

	Run struct {
		Bursts        int    `name:"bursts" help:"Number of gather pipe bursts. (overrides config)"`
		DualCore      bool   `name:"dual-core" help:"Run the GPU in its own goroutine."`
		Deterministic bool   `name:"deterministic" help:"Deterministic GPU thread (dual core only)."`
		NoDrain       bool   `name:"no-drain" help:"Keep GPU reads disabled, the FIFO eventually overflows."`
		Save          string `name:"save" help:"Write a snapshot once done." type:"path" placeholder:"FILE"`
		Load          string `name:"load" help:"Start from a snapshot instead of setting up the FIFO." type:"existingfile" placeholder:"FILE"`
		CPUProfile    string `name:"cpuprofile" help:"${cpuprofile_help}" type:"path"`
	}

	Script struct {
		Path     string `arg:"" name:"/path/to/script.lua" help:"Lua scenario to run." type:"existingfile"`
		DualCore bool   `name:"dual-core" help:"Run the GPU in its own goroutine."`
	}

	Regs struct {
		DualCore bool `name:"dual-core" help:"Show the dual core mapping."`
		Wii      bool `name:"wii" help:"Show the Wii mapping (extended address masks)."`
	}

	Version struct{}
)

var vars = kong.Vars{
	"config_help":     "Config file. (default: config.toml in the cpemu config directory)",
	"cpuprofile_help": "Write CPU profile to file.",
	"log_help":        "Enable logging for specified modules.",
}

func parseArgs(args []string) CLI {
	var cfg CLI
	parser, err := kong.New(&cfg,
		kong.Name("cpemu"),
		kong.Description("Graphics command processor FIFO emulator."),
		kong.UsageOnError(),
		kong.Help(printHelp),
		vars)
	if err != nil {
		panic(err)
	}

	ctx, err := parser.Parse(args)
	checkf(err, "failed to parse command line")
	checkf(ctx.Error, "failed to parse command line")

	switch ctx.Command() {
	case "script </path/to/script.lua>":
		cfg.mode = scriptMode
	case "regs":
		cfg.mode = regsMode
	case "version":
		cfg.mode = versionMode
	default:
		cfg.mode = runMode
	}
	return cfg
}

func printHelp(options kong.HelpOptions, ctx *kong.Context) error {
	if err := kong.DefaultHelpPrinter(options, ctx); err != nil {
		return err
	}
	loggingHelp := `
Log modules:
  The --log flag accepts a comma-separated list of modules.

  Valid log modules are:
%s

  As a special case, the following values are accepted:
    - no                     Disable all logging.
    - all                    Enable all logs.
`
	var strs []string
	for _, m := range log.ModuleNames() {
		strs = append(strs, "    - "+m)
	}

	fmt.Fprintf(os.Stderr, loggingHelp, strings.Join(strs, "\n"))
	return nil
}

type logModMask log.ModuleMask

// Decode decodes a comma-separated list of module names into a module mask.
//
// Implements kong.MapperValue interface.
func (lm logModMask) Decode(ctx *kong.DecodeContext) error {
	nolog := false
	allLogs := false

	tok := ctx.Scan.Pop()
	for _, v := range strings.Split(tok.Value.(string), ",") {
		switch v {
		case "all":
			allLogs = true
		case "no":
			nolog = true
		default:
			mod, ok := log.ModuleByName(v)
			if !ok {
				return fmt.Errorf("unknown log module %s", v)
			}
			lm |= logModMask(mod.Mask())
		}
	}

	if nolog {
		if allLogs {
			return fmt.Errorf("cannot use 'all' and 'no' together")
		}
		if lm != 0 {
			return fmt.Errorf("cannot combine 'no' with other log modules")
		}
		log.Disable()
		return nil
	}

	if allLogs {
		lm = logModMask(log.ModuleMaskAll)
	}

	log.EnableDebugModules(log.ModuleMask(lm))
	return nil
}

func checkf(err error, format string, args ...any) {
	if err == nil {
		return
	}
	fatalf(format+".\n"+err.Error(), args...)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "fatal error:")
	fmt.Fprintf(os.Stderr, "\n\t%s\n", fmt.Sprintf(format, args...))
	os.Exit(1)
}
