package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"tram/builtins"
	"tram/eval"
	"tram/task"
	"tram/treefile"
)

const (
	historyFile = ".tram_history"
	promptMain  = "tram> "
	promptCont  = "....> "
)

const helpText = `Enter commands as YAML, one flow node per line, e.g.
  {set: {name: x, value: 2}}
  {"*": [{get: x}, 21]}
A line that does not parse yet continues on the next; an empty line submits it.

  :help          this text
  :load <file>   run a command-tree file in this session
  :dump          show the processor state
  :reset         start over with a fresh processor
  :quit          leave
`

type session struct {
	opts     *eval.Options
	registry *builtins.Registry
	p        *eval.Processor
}

func newSession(opts *eval.Options, registry *builtins.Registry) *session {
	s := &session{opts: opts, registry: registry}
	s.reset()
	return s
}

func (s *session) reset() {
	s.p = eval.NewProcessor(s.opts)
	s.registry.Install(s.p)
}

// eval runs cmds in the persistent global scope and prints the outcome
func (s *session) eval(cmds []eval.Command) {
	ev, v, err := s.p.Probe(cmds...)
	if err != nil {
		fmt.Println(err)
		return
	}
	switch ev.Kind {
	case eval.EventNone:
		fmt.Println(v)
	case eval.EventReturn:
		fmt.Println(ev.Value)
	case eval.EventException:
		tb := ev.Err.Traceback
		for _, line := range task.FormatTraceback(tb, ev.Err) {
			fmt.Println(line)
		}
	case eval.EventBreak, eval.EventContinue:
		fmt.Printf("'%s' outside loop\n", ev.Kind)
	}
}

func runREPL(cfg *Config, opts *eval.Options, registry *builtins.Registry) int {
	fmt.Println("tram interactive session. Type :help for help.")

	histPath := cfg.History
	if histPath == "" {
		home, _ := os.UserHomeDir()
		histPath = filepath.Join(home, historyFile)
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	// Load history (best-effort)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	s := newSession(opts, registry)

	for {
		src, ok := readCommand(ln)
		if !ok {
			fmt.Println()
			break
		}
		line := strings.TrimSpace(src)
		if line == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))

		if strings.HasPrefix(line, ":") {
			if done := s.command(line); done {
				break
			}
			continue
		}

		cmds, err := decodeREPL(src)
		if err != nil {
			fmt.Println(err)
			continue
		}
		s.eval(cmds)
	}

	// Persist history (best-effort)
	if f, err := os.Create(histPath); err == nil {
		_, _ = ln.WriteHistory(f)
		_ = f.Close()
	}
	return 0
}

// command handles :help, :quit, :load, :dump and :reset
func (s *session) command(line string) (exit bool) {
	fields := strings.Fields(line)
	switch strings.ToLower(fields[0]) {
	case ":help":
		fmt.Print(helpText)
	case ":quit", ":exit":
		return true
	case ":reset":
		s.reset()
		fmt.Println("session reset.")
	case ":dump":
		fmt.Print(s.p.Dump())
	case ":load":
		if len(fields) < 2 {
			fmt.Println("usage: :load <file>")
			return false
		}
		cmds, err := treefile.DecodeFile(fields[1])
		if err != nil {
			fmt.Println(err)
			return false
		}
		s.eval(cmds)
	default:
		fmt.Println("unknown command. Type :help for help.")
	}
	return false
}

// readCommand reads lines until they form a YAML document that parses, or
// an empty line ends an incomplete one
func readCommand(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			// Ctrl+C aborts the current input
			return "", true
		}

		if b.Len() > 0 {
			if strings.TrimSpace(line) == "" {
				return b.String(), true
			}
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, true
		}
		if _, err := decodeREPL(src); err == nil {
			return src, true
		} else if !incomplete(err) {
			return src, true
		}
	}
}

func decodeREPL(src string) ([]eval.Command, error) {
	return treefile.Decode("<repl>", []byte(src))
}

// incomplete reports whether a YAML syntax error means more input is needed
func incomplete(err error) bool {
	var de *treefile.Error
	if errors.As(err, &de) {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "did not find expected") ||
		strings.Contains(msg, "found unexpected end of stream")
}
