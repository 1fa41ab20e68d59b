package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/quiz-tapper/internal/config"
	"github.com/ironsheep/quiz-tapper/internal/logging"
	"github.com/ironsheep/quiz-tapper/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const usage = `quiz-tapper - answer multiple-choice quiz screens on an Android phone

Usage: quiz-tapper <command> [options] [args]

Commands:
  run          Answer questions on the attached device until none is shown
  match <png>  Detect the layout in a saved screenshot and print it as JSON
               (--out overlay.png also writes the detected boxes)
  mcp          Serve the detector as MCP tools over stdin/stdout
  serve        Serve the detector over HTTP (POST /v1/match, GET /health)
  devices      List adb devices
  version      Print version information
  help         Print this help message

Every command accepts --config FILE and the options below; environment
variables QUIZ_TAPPER_<KEY> override the file and flags override both.
Run "quiz-tapper <command> -h" for the option list.

match exits with status 1 when the screenshot shows no settled layout.
`

type command func(ctx context.Context, env *env, args []string) error

var commands = map[string]command{
	"run":     runCmd,
	"match":   matchCmd,
	"mcp":     mcpCmd,
	"serve":   serveCmd,
	"devices": devicesCmd,
}

// env carries what every command needs.
type env struct {
	stdout io.Writer
	stderr io.Writer
	lookup config.LookupFunc
	cfg    *config.Config
	log    *logrus.Logger
}

// errNoMatch makes match exit non-zero without printing an error.
var errNoMatch = errors.New("no layout matched")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(realMain(ctx, os.Args[1:], os.Stdout, os.Stderr, os.LookupEnv))
}

func realMain(ctx context.Context, args []string, stdout, stderr io.Writer, lookup config.LookupFunc) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	switch args[0] {
	case "--version", "-v", "version":
		fmt.Fprintf(stdout, "quiz-tapper %s\n", Version)
		fmt.Fprintf(stdout, "  Build time: %s\n", BuildTime)
		fmt.Fprintf(stdout, "  Git commit: %s\n", GitCommit)
		return 0
	case "--help", "-h", "help":
		fmt.Fprint(stdout, usage)
		return 0
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	e := &env{stdout: stdout, stderr: stderr, lookup: lookup}
	if err := cmd(ctx, e, args[1:]); err != nil {
		switch {
		case errors.Is(err, flag.ErrHelp):
			return 0
		case errors.Is(err, errNoMatch):
			return 1
		}
		fmt.Fprintf(stderr, "quiz-tapper %s: %v\n", args[0], err)
		return 1
	}
	return 0
}

// setup parses flags into e.cfg and builds the logger. Logs always go to
// stderr since stdout carries JSON or the MCP protocol.
func (e *env) setup(fs *flag.FlagSet, args []string) error {
	fs.SetOutput(e.stderr)
	cfg, err := config.Load(fs, args, e.lookup)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log, err := logging.New(e.stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	e.cfg, e.log = cfg, log
	server.Version = Version
	return nil
}
