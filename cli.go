package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"aciatx/log"
)

type mode byte

const (
	sendMode    mode = iota // Transmit on the real bus
	simMode                 // Transmit to the simulated chip
	clockMode               // Show timer plans
	configMode              // Show effective configuration
	checkMode               // Analyze a saved trace
	versionMode             // Show version
)

type (
	CLI struct {
		Send    Send      `cmd:"" help:"Transmit the message through the ACIA."`
		Sim     Sim       `cmd:"" help:"Run the driver against a simulated ACIA and print what a terminal receives."`
		Clock   Clock     `cmd:"" help:"Show the timer plan for common bit rates."`
		Config  ConfigCmd `cmd:"" help:"Print the effective configuration."`
		Check   Check     `cmd:"" help:"Decode and check a bus trace saved with sim --trace-json."`
		Version Version   `cmd:"" help:"Show aciatx version."`

		ConfigPath string     `name:"config" help:"${config_help}" type:"path" placeholder:"FILE"`
		Log        logModMask `help:"${log_help}" placeholder:"mod0,mod1,..."`

		mode mode
	}

	Send struct {
		Message string `arg:"" optional:"" help:"${message_help}"`

		Once   bool `help:"Send the message once and exit."`
		Strict bool `help:"${strict_help}"`
	}

	Sim struct {
		Message string `arg:"" optional:"" help:"${message_help}"`

		Repeat int      `help:"Number of times the message is sent." default:"1"`
		Strict bool     `help:"${strict_help}"`
		Trace  *outfile `name:"trace" help:"Write the bus trace." placeholder:"FILE|stdout|stderr"`
		JSON   *outfile `name:"trace-json" help:"Save the bus trace as JSON lines." placeholder:"FILE|stdout|stderr"`
	}

	Check struct {
		Path string `arg:"" name:"/path/to/trace" type:"existingfile"`
	}

	Clock struct {
		TimerHz uint64 `name:"timer-hz" help:"Timer input clock in Hz. (default: from config)"`
		Bits    uint   `name:"bits" help:"Timer counter width. (default: from config)"`
	}

	ConfigCmd struct {
		Save bool `help:"Write the effective configuration to the configuration file."`
	}

	Version struct{}
)

var vars = kong.Vars{
	"config_help":  "Configuration file. (default: " + DefaultConfigPath() + ")",
	"message_help": "Message to send instead of the configured one.",
	"strict_help":  "Poll the status register before each character instead of relying on the character delay.",
	"log_help":     "Enable logging for specified modules.",
}

func parseArgs(args []string) CLI {
	var cfg CLI
	parser, err := kong.New(&cfg,
		kong.Name("aciatx"),
		kong.Description("6850 ACIA transmitter over bit-banged GPIO."),
		kong.UsageOnError(),
		kong.Help(printHelp),
		vars)
	if err != nil {
		panic(err)
	}

	ctx, err := parser.Parse(args)
	checkf(err, "failed to parse command line")
	checkf(ctx.Error, "failed to parse command line")

	cfg.mode = commandMode(ctx.Command())
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = DefaultConfigPath()
	}
	return cfg
}

func commandMode(cmd string) mode {
	name, _, _ := strings.Cut(cmd, " ")
	switch name {
	case "sim":
		return simMode
	case "clock":
		return clockMode
	case "config":
		return configMode
	case "check":
		return checkMode
	case "version":
		return versionMode
	}
	return sendMode
}

func printHelp(options kong.HelpOptions, ctx *kong.Context) error {
	if err := kong.DefaultHelpPrinter(options, ctx); err != nil {
		return err
	}
	if ctx.Command() == "" || strings.HasPrefix(ctx.Command(), "send") || strings.HasPrefix(ctx.Command(), "sim") {
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
func (lm logModMask) Decode(ctx *kong.DecodeContext) error {
	mask, err := parseLogModules(ctx.Scan.Pop().Value.(string))
	if err != nil {
		return err
	}
	if mask == 0 {
		log.Disable()
		return nil
	}
	log.EnableDebugModules(mask)
	return nil
}

// parseLogModules parses a --log value. A zero mask means "no".
func parseLogModules(s string) (log.ModuleMask, error) {
	var mask log.ModuleMask
	nolog := false
	allLogs := false

	for _, v := range strings.Split(s, ",") {
		switch v {
		case "all":
			allLogs = true
		case "no":
			nolog = true
		default:
			mod, ok := log.ModuleByName(v)
			if !ok {
				return 0, fmt.Errorf("unknown log module %s", v)
			}
			mask |= mod.Mask()
		}
	}

	if nolog {
		if allLogs {
			return 0, fmt.Errorf("cannot use 'all' and 'no' together")
		}
		if mask != 0 {
			return 0, fmt.Errorf("cannot combine 'no' with other log modules")
		}
		return 0, nil
	}

	if allLogs {
		mask = log.ModuleMaskAll
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
