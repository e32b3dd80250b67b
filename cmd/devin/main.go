package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"gopkg.in/yaml.v3"

	"github.com/xMamo/devin"
)

const (
	appName    = "devin"
	configFile = "devin.yaml"
	promptMain = "==> "
	promptCont = "... "
)

// config is the optional devin.yaml next to the working directory.
type config struct {
	MaxDepth int    `yaml:"max_depth"`
	History  string `yaml:"history"`
}

func loadConfig() config {
	cfg := config{
		MaxDepth: devin.DefaultMaxDepth,
		History:  ".devin_history",
	}
	data, err := os.ReadFile(configFile)
	if err != nil {
		return cfg
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "%s: ignoring malformed %s: %v\n", appName, configFile, err)
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = devin.DefaultMaxDepth
	}
	return cfg
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage:
  %[1]s run <file.dv>     parse, check, and run a program
  %[1]s check <file.dv>   parse and type-check only
  %[1]s repl              interactive session
`, appName)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "run":
		os.Exit(cmdRun(os.Args[2:]))
	case "check":
		os.Exit(cmdCheck(os.Args[2:]))
	case "repl":
		os.Exit(cmdRepl())
	case "-h", "--help", "help":
		usage()
	default:
		usage()
		os.Exit(2)
	}
}

func readSource(args []string) (string, string, bool) {
	if len(args) != 1 {
		usage()
		return "", "", false
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		return "", "", false
	}
	return string(data), args[0], true
}

// frontend parses and checks src, printing every diagnostic. It returns
// the program and whether it is clean enough to run (warnings are fine).
func frontend(src string) (*devin.Program, bool) {
	prog, err := devin.Parse(src)
	if err != nil {
		fmt.Fprintln(os.Stderr, devin.WrapErrorWithSource(err, src))
		return nil, false
	}
	diags := devin.Check(prog)
	for _, d := range diags {
		fmt.Fprintln(os.Stderr, devin.RenderDiagnostic(d, src))
	}
	return prog, !devin.HasErrors(diags)
}

func cmdRun(args []string) int {
	src, _, ok := readSource(args)
	if !ok {
		return 2
	}
	prog, clean := frontend(src)
	if !clean {
		return 1
	}
	cfg := loadConfig()
	st := devin.NewState()
	st.MaxDepth = cfg.MaxDepth
	if err := devin.Evaluate(prog, st); err != nil {
		fmt.Fprintln(os.Stderr, devin.WrapErrorWithSource(err, src))
		return 1
	}
	return 0
}

func cmdCheck(args []string) int {
	src, name, ok := readSource(args)
	if !ok {
		return 2
	}
	prog, err := devin.Parse(src)
	if err != nil {
		fmt.Fprintln(os.Stderr, devin.WrapErrorWithSource(err, src))
		return 1
	}
	diags := devin.Check(prog)
	for _, d := range diags {
		fmt.Fprintln(os.Stderr, devin.RenderDiagnostic(d, src))
	}
	if devin.HasErrors(diags) {
		return 1
	}
	fmt.Printf("%s: ok\n", name)
	return 0
}

// ─────────────────────────────── REPL ───────────────────────────────────

// session keeps the declarations accepted so far. Each input rebuilds and
// re-runs the whole program, which is cheap at this language's scale and
// keeps the semantics of the batch pipeline exactly.
type session struct {
	decls []string
	cfg   config
}

// sourceWith joins the session declarations with an optional extra chunk.
func (s *session) sourceWith(extra string) string {
	parts := append(append([]string(nil), s.decls...), extra)
	return strings.Join(parts, "\n")
}

// accept checks and evaluates full source; on success it returns the
// final state.
func (s *session) accept(full string) (*devin.State, bool) {
	prog, err := devin.Parse(full)
	if err != nil {
		fmt.Fprintln(os.Stderr, devin.WrapErrorWithSource(err, full))
		return nil, false
	}
	diags := devin.Check(prog)
	for _, d := range diags {
		fmt.Fprintln(os.Stderr, devin.RenderDiagnostic(d, full))
	}
	if devin.HasErrors(diags) {
		return nil, false
	}
	st := devin.NewState()
	st.MaxDepth = s.cfg.MaxDepth
	if err := devin.EvalDeclarations(prog, st); err != nil {
		fmt.Fprintln(os.Stderr, devin.WrapErrorWithSource(err, full))
		return nil, false
	}
	return st, true
}

func (s *session) handle(input string) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return
	}

	if strings.HasPrefix(trimmed, "var ") || strings.HasPrefix(trimmed, "def ") {
		if _, ok := s.accept(s.sourceWith(trimmed)); ok {
			s.decls = append(s.decls, trimmed)
		}
		return
	}

	// An expression: bind it to `it` and show the result.
	expr := strings.TrimSuffix(trimmed, ";")
	wrapped := "var it = (" + expr + ");"
	st, ok := s.accept(s.sourceWith(wrapped))
	if !ok {
		return
	}
	if v, found := st.Lookup("it"); found && v.Tag != devin.VTUnit {
		fmt.Println(st.Display(v))
	}
}

// incomplete reports whether input fails to parse only because it ends
// too early, so the REPL should read a continuation line.
func incomplete(input string) bool {
	if _, err := devin.ParseInteractive(input); devin.IsIncomplete(err) {
		return true
	}
	// Expression lines are wrapped before evaluation; probe the wrapped
	// form too so multi-line expressions continue.
	trimmed := strings.TrimSpace(input)
	if trimmed == "" || strings.HasPrefix(trimmed, "var ") || strings.HasPrefix(trimmed, "def ") {
		return false
	}
	wrapped := "var it = (" + strings.TrimSuffix(trimmed, ";") + ");"
	_, err := devin.ParseInteractive(wrapped)
	return devin.IsIncomplete(err)
}

func cmdRepl() int {
	cfg := loadConfig()
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	historyPath := filepath.Join(os.TempDir(), cfg.History)
	if f, err := os.Open(historyPath); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyPath); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Println("Devin REPL. Ctrl+C cancels input, Ctrl+D exits.")
	s := &session{cfg: cfg}

	for {
		input, err := line.Prompt(promptMain)
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err == io.EOF {
			fmt.Println()
			return 0
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
			return 1
		}

		for incomplete(input) {
			more, err := line.Prompt(promptCont)
			if errors.Is(err, liner.ErrPromptAborted) || err == io.EOF {
				input = ""
				break
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
				return 1
			}
			input += "\n" + more
		}
		if strings.TrimSpace(input) == "" {
			continue
		}
		line.AppendHistory(input)
		s.handle(input)
	}
}
