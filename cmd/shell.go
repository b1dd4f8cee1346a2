package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/dorkyrobot/cftp/internal/config"
	"github.com/dorkyrobot/cftp/internal/nav"
	"github.com/dorkyrobot/cftp/internal/observability"
	"github.com/dorkyrobot/cftp/internal/tui"
)

// Env holds the runtime dependencies shared by shell commands.
type Env struct {
	Cfg    *config.Config
	Engine *nav.Engine
	User   string
	Out    io.Writer

	// TTY selects the human-oriented renderings of stat output and the
	// prompt.
	TTY bool

	// Progress returns the progress reporter for a transfer; nil disables
	// progress output.
	Progress func(label string) tui.ProgressFunc
}

type subcommand struct {
	run     func(ctx context.Context, env *Env, args []string) error
	usage   string
	summary string
}

var commands = map[string]subcommand{}

func register(name string, run func(ctx context.Context, env *Env, args []string) error, usage, summary string) {
	commands[name] = subcommand{run: run, usage: usage, summary: summary}
}

var exitCommands = map[string]bool{"exit": true, "quit": true, "EOF": true}

// errExit is returned by RunCommand for exit, quit and EOF.
var errExit = errors.New("exit")

// locationCommands take remote paths and complete them.
var locationCommands = map[string]bool{"cd": true, "ls": true, "get": true, "stat": true}

func init() {
	register("help", runHelp, "help [command]", "list commands or show a command's usage")
}

// Shell runs shell command lines against an Env.
type Shell struct {
	env *Env
}

func NewShell(env *Env) *Shell {
	return &Shell{env: env}
}

// RunCommand runs one command given as arguments. It returns errExit when
// the command asks the shell to exit.
func (s *Shell) RunCommand(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return nil
	}
	name, rest := args[0], args[1:]
	if exitCommands[name] {
		return errExit
	}

	sub, ok := commands[name]
	if !ok {
		return failf(nil, "Unknown command %q (see help)", name)
	}

	observability.CLILogger.Debug("Running command",
		zap.String("command", name),
		zap.Strings("args", rest))
	err := sub.run(ctx, s.env, rest)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	return err
}

// Exec runs one command line and reports any failure on the shell's output.
// It returns false when the line asks the shell to exit.
func (s *Shell) Exec(ctx context.Context, line string) bool {
	err := s.RunCommand(ctx, strings.Fields(line))
	switch {
	case errors.Is(err, errExit):
		return false
	case err != nil:
		s.report(err)
	}
	return true
}

func (s *Shell) report(err error) {
	observability.CLILogger.Debug("Command failed", zap.Error(err))
	fmt.Fprintln(s.env.Out, describe(err))
}

// Loop reads and runs command lines until exit or end of input. Ctrl+C
// cancels the running command, or discards the line being edited.
func (s *Shell) Loop(ctx context.Context, r tui.LineReader) error {
	for {
		line, err := r.ReadLine(s.Prompt())
		switch {
		case errors.Is(err, tui.ErrInterrupted):
			continue
		case errors.Is(err, io.EOF):
			fmt.Fprintln(s.env.Out)
			s.goodbye()
			return nil
		case err != nil:
			return err
		}

		cmdCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		more := s.Exec(cmdCtx, line)
		stop()
		if !more {
			s.goodbye()
			return nil
		}
	}
}

func (s *Shell) goodbye() {
	fmt.Fprintln(s.env.Out, "Disconnected from object storage. Goodbye.")
}

// Prompt renders the prompt for the current location.
func (s *Shell) Prompt() string {
	loc := s.env.Engine.Location()
	return tui.Prompt(tui.PromptInfo{
		User:   s.env.User,
		Region: loc.Region,
		Secure: loc.Secure,
		Path:   loc.Path(),
	}, s.env.TTY)
}

// Complete returns the candidates for the last word of line: command names
// for the first word, region names for chregion and remote paths for the
// commands that take them.
func (s *Shell) Complete(ctx context.Context, line string) []string {
	fields := strings.Fields(line)
	open := line == "" || strings.HasSuffix(line, " ")

	word := ""
	if !open && len(fields) > 0 {
		word = fields[len(fields)-1]
	}
	if len(fields) == 0 || (len(fields) == 1 && !open) {
		return withPrefix(commandNames(), word)
	}
	if strings.HasPrefix(word, "-") {
		return nil
	}

	switch name := fields[0]; {
	case name == "chregion":
		regions, err := s.env.Engine.ListRegions(ctx)
		if err != nil {
			observability.CLILogger.Debug("Completion failed", zap.Error(err))
			return nil
		}
		var out []string
		for _, r := range regions {
			if strings.HasPrefix(strings.ToUpper(r), strings.ToUpper(word)) {
				out = append(out, r)
			}
		}
		return out
	case locationCommands[name]:
		out, err := s.env.Engine.Complete(ctx, word)
		if err != nil {
			observability.CLILogger.Debug("Completion failed", zap.Error(err))
			return nil
		}
		return out
	}
	return nil
}

func commandNames() []string {
	names := make([]string, 0, len(commands)+len(exitCommands))
	for name := range commands {
		names = append(names, name)
	}
	names = append(names, "exit", "quit")
	sort.Strings(names)
	return names
}

func withPrefix(words []string, prefix string) []string {
	var out []string
	for _, w := range words {
		if strings.HasPrefix(w, prefix) {
			out = append(out, w)
		}
	}
	return out
}

func runHelp(_ context.Context, env *Env, args []string) error {
	if len(args) > 0 {
		sub, ok := commands[args[0]]
		if !ok {
			return failf(nil, "Unknown command %q (see help)", args[0])
		}
		fmt.Fprintf(env.Out, "usage: %s\n  %s\n", sub.usage, sub.summary)
		return nil
	}

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(env.Out, 0, 4, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(tw, "  %s\t%s\n", commands[name].usage, commands[name].summary)
	}
	fmt.Fprintf(tw, "  %s\t%s\n", "exit", "leave the shell (also quit, Ctrl+D)")
	return tw.Flush()
}
