package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/user-none/emvdp/log"
)

type mode byte

const (
	runMode     mode = iota // Run a ROM headless
	infoMode                // Show ROM header
	modesMode               // Check and print counter modes
	versionMode             // Show version
)

type (
	CLI struct {
		Run     Run     `cmd:"" help:"Run ROM in emulator."`
		Info    Info    `cmd:"" help:"Show ROM header."`
		Modes   Modes   `cmd:"" help:"Verify and list the VDP counter modes."`
		Version Version `cmd:"" help:"Show emvdp version."`

		mode mode
	}

	Run struct {
		RomPath string `arg:"" name:"/path/to/rom" help:"ROM to run." required:"true" type:"existingfile"`

		Config   string     `name:"config" help:"TOML configuration file." type:"path"`
		Region   string     `name:"region" help:"Region: auto, ntsc or pal. Overrides the config file."`
		Frames   int        `name:"frames" help:"Frames to run, 0 runs until interrupted. Overrides the config file." default:"-1"`
		Realtime bool       `name:"realtime" help:"Pace frames to the region frame rate."`
		Report   int        `name:"report" help:"Log progress every N frames (needs --log emu)." default:"0"`
		Trace    *outfile   `name:"trace" help:"Write VDP event trace as JSON lines." placeholder:"FILE|stdout|stderr"`
		Log      logModMask `help:"${log_help}" placeholder:"mod0,mod1,..."`

		logSet bool
	}

	Info struct {
		RomPath string `arg:"" name:"/path/to/rom" type:"existingfile"`
	}

	Modes   struct{}
	Version struct{}
)

var vars = kong.Vars{
	"log_help": "Enable debug logging for specified modules.",
}

func parseArgs(args []string) CLI {
	var cfg CLI
	parser, err := kong.New(&cfg,
		kong.Name("emvdp"),
		kong.Description("Genesis VDP timing core. github.com/user-none/emvdp"),
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
	case "info </path/to/rom>":
		cfg.mode = infoMode
	case "modes":
		cfg.mode = modesMode
	case "version":
		cfg.mode = versionMode
	default:
		cfg.mode = runMode
		cfg.Run.logSet = cfg.Run.Log != 0
	}
	return cfg
}

func printHelp(options kong.HelpOptions, ctx *kong.Context) error {
	if err := kong.DefaultHelpPrinter(options, ctx); err != nil {
		return err
	}
	if strings.HasPrefix(ctx.Command(), "run") {
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
	}

	return nil
}

type logModMask log.ModuleMask

// Decode decodes a comma-separated list of module names into a module mask.
//
// Implements kong.MapperValue interface.
func (lm *logModMask) Decode(ctx *kong.DecodeContext) error {
	tok := ctx.Scan.Pop()
	names := strings.Split(tok.Value.(string), ",")

	nolog := false
	allLogs := false
	var rest []string
	for _, v := range names {
		switch v {
		case "all":
			allLogs = true
		case "no":
			nolog = true
		default:
			rest = append(rest, v)
		}
	}

	mask, err := moduleMask(rest)
	if err != nil {
		return err
	}

	if nolog {
		if allLogs {
			return fmt.Errorf("cannot use 'all' and 'no' together")
		}
		if mask != 0 {
			return fmt.Errorf("cannot combine 'no' with other log modules")
		}
		log.Disable()
		return nil
	}

	if allLogs {
		mask = log.ModuleMaskAll
	}

	*lm = logModMask(mask)
	log.EnableDebugModules(mask)
	return nil
}

// moduleMask builds a debug mask from module names.
func moduleMask(names []string) (log.ModuleMask, error) {
	var mask log.ModuleMask
	for _, v := range names {
		if v == "all" {
			return log.ModuleMaskAll, nil
		}
		mod, ok := log.ModuleByName(v)
		if !ok {
			return 0, fmt.Errorf("unknown log module %s", v)
		}
		mask |= mod.Mask()
	}
	return mask, nil
}

type outfile struct {
	w     io.Writer
	name  string
	close func() error
}

// Decode decodes FILE|stdout|stderr into an io.WriteCloser
// that writes to that file.
//
// Implements kong.MapperValue interface.
func (f *outfile) Decode(ctx *kong.DecodeContext) error {
	tok := ctx.Scan.Pop()
	f.name = tok.Value.(string)
	f.close = func() error { return nil }

	switch f.name {
	case "stdout":
		f.w = os.Stdout
	case "stderr":
		f.w = os.Stderr
	default:
		fd, err := os.Create(f.name)
		if err != nil {
			return err
		}
		f.w = fd
		f.close = fd.Close
	}
	return nil
}

func (f *outfile) String() string              { return f.name }
func (f *outfile) Write(p []byte) (int, error) { return f.w.Write(p) }
func (f *outfile) Close() error                { return f.close() }

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
