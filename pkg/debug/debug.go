// Package debug implements the interactive breakpoint REPL behind
// `choreo run --debug`: once per scenario, before any backend action runs,
// it drops the operator into a prompt over that scenario's variables.
package debug

import (
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/choreo-lang/choreo/pkg/engine"
	"github.com/choreo-lang/choreo/pkg/world"
)

// REPL holds the readline session reused across every scenario breakpoint
// in a run, so history and terminal state survive from one break to the
// next.
type REPL struct {
	out io.Writer
	rl  *readline.Instance
}

// New opens a readline session writing prompts and output to out. Close
// the returned REPL when the run finishes.
func New(out io.Writer) (*REPL, error) {
	completer := readline.NewPrefixCompleter(
		readline.PcItem("vars"),
		readline.PcItem("show"),
		readline.PcItem("continue"),
		readline.PcItem("help"),
	)
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "choreo[debug]> ",
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "continue",
		Stdout:          out,
	})
	if err != nil {
		return nil, fmt.Errorf("init readline: %w", err)
	}
	return &REPL{out: out, rl: rl}, nil
}

// Close releases the underlying terminal.
func (r *REPL) Close() error { return r.rl.Close() }

// Break runs the REPL loop for one scenario's breakpoint. It returns once
// the operator types "continue" (or "c"), hits EOF, or interrupts.
func (r *REPL) Break(scenarioName string, w *world.World) {
	fmt.Fprintf(r.out, "\n--- breakpoint: scenario %q ---\n", scenarioName)
	fmt.Fprintln(r.out, "Type 'vars' to list variables, 'show <name>' to inspect one, 'continue' to run the scenario.")

	for {
		r.rl.SetPrompt(fmt.Sprintf("choreo[debug: %s]> ", scenarioName))
		line, err := r.rl.Readline()
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		switch parts[0] {
		case "continue", "c":
			return
		case "vars":
			printVars(r.out, w)
		case "show":
			if len(parts) < 2 {
				fmt.Fprintln(r.out, "usage: show <name>")
				continue
			}
			printVar(r.out, w, parts[1])
		case "help", "?":
			fmt.Fprintln(r.out, "  vars          list all variables in scope")
			fmt.Fprintln(r.out, "  show <name>   print one variable's value")
			fmt.Fprintln(r.out, "  continue (c)  start the scenario")
		default:
			fmt.Fprintf(r.out, "unknown command %q, try 'help'\n", parts[0])
		}
	}
}

// Hook returns an engine.DebugHook bound to this REPL, ready to assign to
// Engine.Debug.
func (r *REPL) Hook() engine.DebugHook {
	return r.Break
}

func printVars(out io.Writer, w *world.World) {
	names := w.Vars.Names()
	if len(names) == 0 {
		fmt.Fprintln(out, "no variables in scope")
		return
	}
	for _, name := range names {
		v, _ := w.Vars.Get(name)
		fmt.Fprintf(out, "  %s = %s\n", name, v.AsString())
	}
}

func printVar(out io.Writer, w *world.World, name string) {
	v, ok := w.Vars.Get(name)
	if !ok {
		fmt.Fprintf(out, "undeclared variable %q\n", name)
		return
	}
	fmt.Fprintf(out, "%s = %s\n", name, v.AsString())
}
