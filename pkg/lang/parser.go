package lang

import (
	"fmt"
	"strings"

	"github.com/choreo-lang/choreo/pkg/value"
)

// ParseError wraps a parse failure with source position, surfaced by the
// loader as a LoadError.
type ParseError struct {
	Line, Col int
	Msg       string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Msg)
}

// Parser is a recursive-descent parser over a pre-lexed token stream.
type Parser struct {
	toks []Token
	pos  int
}

// Parse lexes and parses a complete .chor source file.
func Parse(src string) (*File, error) {
	toks, err := NewLexer(src).Tokenize()
	if err != nil {
		return nil, err
	}
	p := &Parser{toks: toks}
	return p.parseFile()
}

func (p *Parser) cur() Token  { return p.toks[p.pos] }
func (p *Parser) at(k TokenKind) bool { return p.cur().Kind == k }

func (p *Parser) atKeyword(kw string) bool {
	return p.cur().Kind == TokIdent && p.cur().Text == kw
}

func (p *Parser) advance() Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) errf(format string, args ...any) error {
	t := p.cur()
	return &ParseError{Line: t.Line, Col: t.Col, Msg: fmt.Sprintf(format, args...)}
}

func (p *Parser) expect(k TokenKind) (Token, error) {
	if !p.at(k) {
		return Token{}, p.errf("unexpected token %q", p.cur().Text)
	}
	return p.advance(), nil
}

func (p *Parser) expectKeyword(kw string) error {
	if !p.atKeyword(kw) {
		return p.errf("expected %q, got %q", kw, p.cur().Text)
	}
	p.advance()
	return nil
}

func (p *Parser) expectString() (string, error) {
	t, err := p.expect(TokString)
	if err != nil {
		return "", err
	}
	return t.Text, nil
}

func (p *Parser) expectIdent() (string, error) {
	t, err := p.expect(TokIdent)
	if err != nil {
		return "", err
	}
	return t.Text, nil
}

func (p *Parser) expectNumber() (float64, error) {
	t, err := p.expect(TokNumber)
	if err != nil {
		return 0, err
	}
	return t.Num, nil
}

func (p *Parser) expectDuration() (float64, error) {
	t, err := p.expect(TokDuration)
	if err != nil {
		return 0, err
	}
	return t.Num, nil
}

// --- top level ---

func (p *Parser) parseFile() (*File, error) {
	f := &File{}
	for !p.at(TokEOF) {
		if !p.at(TokIdent) {
			return nil, p.errf("expected a top-level declaration, got %q", p.cur().Text)
		}
		switch p.cur().Text {
		case "feature":
			p.advance()
			name, err := p.expectString()
			if err != nil {
				return nil, err
			}
			f.Feature = name
		case "actor", "actors":
			p.advance()
			names, err := p.parseIdentOrBraceList()
			if err != nil {
				return nil, err
			}
			f.Actors = append(f.Actors, names...)
		case "env":
			p.advance()
			names, err := p.parseIdentOrBraceList()
			if err != nil {
				return nil, err
			}
			f.EnvNames = append(f.EnvNames, names...)
		case "settings":
			p.advance()
			if err := p.parseSettings(&f.Settings); err != nil {
				return nil, err
			}
		case "var":
			p.advance()
			vd, err := p.parseVarDecl()
			if err != nil {
				return nil, err
			}
			f.Vars = append(f.Vars, vd)
		case "task":
			p.advance()
			td, err := p.parseTaskDecl()
			if err != nil {
				return nil, err
			}
			f.Tasks = append(f.Tasks, td)
		case "background":
			p.advance()
			steps, err := p.parseBraceStepList()
			if err != nil {
				return nil, err
			}
			f.Background = append(f.Background, steps...)
		case "parallel":
			p.advance()
			if err := p.expectKeyword("scenario"); err != nil {
				return nil, err
			}
			sc, err := p.parseScenario(true)
			if err != nil {
				return nil, err
			}
			f.Scenarios = append(f.Scenarios, sc)
		case "scenario":
			p.advance()
			sc, err := p.parseScenario(false)
			if err != nil {
				return nil, err
			}
			f.Scenarios = append(f.Scenarios, sc)
		default:
			return nil, p.errf("unknown top-level keyword %q", p.cur().Text)
		}
	}
	return f, nil
}

func (p *Parser) parseIdentOrBraceList() ([]string, error) {
	if p.at(TokLBrace) {
		p.advance()
		var names []string
		for !p.at(TokRBrace) {
			n, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			names = append(names, n)
		}
		p.advance()
		return names, nil
	}
	n, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	return []string{n}, nil
}

func (p *Parser) parseSettings(s *Settings) error {
	if _, err := p.expect(TokLBrace); err != nil {
		return err
	}
	for !p.at(TokRBrace) {
		key, err := p.expectIdent()
		if err != nil {
			return err
		}
		if _, err := p.expect(TokColon); err != nil {
			return err
		}
		switch key {
		case "timeout_seconds":
			v, err := p.numberOrDuration()
			if err != nil {
				return err
			}
			s.TimeoutSeconds = &v
		case "stop_on_failure":
			b, err := p.expectBool()
			if err != nil {
				return err
			}
			s.StopOnFailure = &b
		case "shell_path", "report_path":
			str, err := p.expectString()
			if err != nil {
				return err
			}
			if key == "shell_path" {
				s.ShellPath = &str
			} else {
				s.ReportPath = &str
			}
		case "expected_failures":
			n, err := p.expectNumber()
			if err != nil {
				return err
			}
			iv := int(n)
			s.ExpectedFailures = &iv
		default:
			return p.errf("unknown setting %q", key)
		}
	}
	p.advance()
	return nil
}

func (p *Parser) numberOrDuration() (float64, error) {
	if p.at(TokDuration) {
		return p.expectDuration()
	}
	return p.expectNumber()
}

func (p *Parser) expectBool() (bool, error) {
	t, err := p.expect(TokIdent)
	if err != nil {
		return false, err
	}
	switch t.Text {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, &ParseError{Line: t.Line, Col: t.Col, Msg: fmt.Sprintf("expected true/false, got %q", t.Text)}
	}
}

func (p *Parser) parseVarDecl() (VarDecl, error) {
	name, err := p.expectIdent()
	if err != nil {
		return VarDecl{}, err
	}
	if _, err := p.expect(TokEquals); err != nil {
		return VarDecl{}, err
	}
	v, err := p.parseLiteralValue()
	if err != nil {
		return VarDecl{}, err
	}
	return VarDecl{Name: name, Value: v}, nil
}

// parseLiteralValue parses a var's right-hand side: a string literal or a
// string-only list literal.
func (p *Parser) parseLiteralValue() (value.Value, error) {
	if p.at(TokLBracket) {
		p.advance()
		var items []value.Value
		for !p.at(TokRBracket) {
			s, err := p.expectString()
			if err != nil {
				return value.Value{}, err
			}
			items = append(items, value.String(s))
			if p.at(TokComma) {
				p.advance()
			}
		}
		p.advance()
		return value.List(items), nil
	}
	s, err := p.expectString()
	if err != nil {
		return value.Value{}, err
	}
	return value.String(s), nil
}

func (p *Parser) parseTaskDecl() (TaskDecl, error) {
	name, err := p.expectIdent()
	if err != nil {
		return TaskDecl{}, err
	}
	if _, err := p.expect(TokLParen); err != nil {
		return TaskDecl{}, err
	}
	var params []string
	for !p.at(TokRParen) {
		pn, err := p.expectIdent()
		if err != nil {
			return TaskDecl{}, err
		}
		params = append(params, pn)
		if p.at(TokComma) {
			p.advance()
		}
	}
	p.advance()
	body, err := p.parseBraceStepList()
	if err != nil {
		return TaskDecl{}, err
	}
	return TaskDecl{Name: name, Params: params, Body: body}, nil
}

func (p *Parser) parseScenario(parallel bool) (ScenarioDecl, error) {
	line := p.cur().Line
	name, err := p.expectString()
	if err != nil {
		return ScenarioDecl{}, err
	}
	sc := ScenarioDecl{Name: name, Parallel: parallel, Line: line}
	if _, err := p.expect(TokLBrace); err != nil {
		return ScenarioDecl{}, err
	}
	for !p.at(TokRBrace) {
		switch {
		case p.atKeyword("test"):
			p.advance()
			td, err := p.parseTest()
			if err != nil {
				return ScenarioDecl{}, err
			}
			sc.Entries = append(sc.Entries, ScenarioEntry{Test: &td})
		case p.atKeyword("foreach"):
			p.advance()
			fe, err := p.parseForEach()
			if err != nil {
				return ScenarioDecl{}, err
			}
			sc.Entries = append(sc.Entries, ScenarioEntry{ForEach: &fe})
		case p.atKeyword("after"):
			p.advance()
			steps, err := p.parseBraceStepList()
			if err != nil {
				return ScenarioDecl{}, err
			}
			sc.After = append(sc.After, steps...)
		default:
			return ScenarioDecl{}, p.errf("expected test, foreach, or after inside scenario, got %q", p.cur().Text)
		}
	}
	p.advance()
	return sc, nil
}

func (p *Parser) parseForEach() (ForEachDecl, error) {
	line := p.cur().Line
	loopVar, err := p.expectIdent()
	if err != nil {
		return ForEachDecl{}, err
	}
	if err := p.expectKeyword("in"); err != nil {
		return ForEachDecl{}, err
	}
	listName, err := p.parseDollarBraceName()
	if err != nil {
		return ForEachDecl{}, err
	}
	if _, err := p.expect(TokLBrace); err != nil {
		return ForEachDecl{}, err
	}
	if err := p.expectKeyword("test"); err != nil {
		return ForEachDecl{}, err
	}
	td, err := p.parseTest()
	if err != nil {
		return ForEachDecl{}, err
	}
	if _, err := p.expect(TokRBrace); err != nil {
		return ForEachDecl{}, err
	}
	return ForEachDecl{Var: loopVar, ListName: listName, Template: td, Line: line}, nil
}

// parseDollarBraceName parses the `${LIST}` reference used by
// `foreach X in ${LIST}`. The lexer keeps "${...}" spans verbatim inside
// identifier tokens, so this strips the wrapper to recover the bare name.
func (p *Parser) parseDollarBraceName() (string, error) {
	t, err := p.expect(TokIdent)
	if err != nil {
		return "", err
	}
	name := t.Text
	if strings.HasPrefix(name, "${") && strings.HasSuffix(name, "}") {
		name = name[2 : len(name)-1]
	}
	return name, nil
}

func (p *Parser) parseTest() (TestDecl, error) {
	line := p.cur().Line
	id, err := p.expectIdent()
	if err != nil {
		return TestDecl{}, err
	}
	desc, err := p.expectString()
	if err != nil {
		return TestDecl{}, err
	}
	td := TestDecl{ID: id, Description: desc, Line: line}
	if _, err := p.expect(TokLBrace); err != nil {
		return TestDecl{}, err
	}
	for !p.at(TokRBrace) {
		blockName, err := p.expectIdent()
		if err != nil {
			return TestDecl{}, err
		}
		if _, err := p.expect(TokColon); err != nil {
			return TestDecl{}, err
		}
		steps, err := p.parseStepsUntilBlockOrEnd()
		if err != nil {
			return TestDecl{}, err
		}
		switch blockName {
		case "given":
			td.Given = steps
		case "when":
			td.When = steps
		case "then":
			td.Then = steps
		default:
			return TestDecl{}, p.errf("unknown block %q in test", blockName)
		}
	}
	p.advance()
	return td, nil
}

// parseStepsUntilBlockOrEnd consumes steps until the next given:/when:/
// then: label or the enclosing '}'.
func (p *Parser) parseStepsUntilBlockOrEnd() ([]Step, error) {
	var steps []Step
	for {
		if p.at(TokRBrace) {
			return steps, nil
		}
		if p.at(TokIdent) && (p.cur().Text == "given" || p.cur().Text == "when" || p.cur().Text == "then") &&
			p.peekKind(1) == TokColon {
			return steps, nil
		}
		step, err := p.parseStep()
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
}

func (p *Parser) peekKind(off int) TokenKind {
	idx := p.pos + off
	if idx >= len(p.toks) {
		return TokEOF
	}
	return p.toks[idx].Kind
}

func (p *Parser) parseBraceStepList() ([]Step, error) {
	if _, err := p.expect(TokLBrace); err != nil {
		return nil, err
	}
	var steps []Step
	for !p.at(TokRBrace) {
		step, err := p.parseStep()
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	p.advance()
	return steps, nil
}

func (p *Parser) parseOptionalAs() (string, error) {
	if p.atKeyword("as") {
		p.advance()
		return p.expectIdent()
	}
	return "", nil
}

func (p *Parser) parseOptionalIgnoreFields() ([]string, error) {
	if !p.atKeyword("ignore_fields") {
		return nil, nil
	}
	p.advance()
	if _, err := p.expect(TokLBracket); err != nil {
		return nil, err
	}
	var fields []string
	for !p.at(TokRBracket) {
		s, err := p.expectString()
		if err != nil {
			return nil, err
		}
		fields = append(fields, s)
		if p.at(TokComma) {
			p.advance()
		}
	}
	p.advance()
	return fields, nil
}

// parseStep dispatches on the leading actor/keyword token to build either
// an Action, a Condition, or a task-call step.
func (p *Parser) parseStep() (Step, error) {
	line, col := p.cur().Line, p.cur().Col

	if p.atKeyword("wait") {
		p.advance()
		var kind ConditionKind
		if p.at(TokGE) {
			p.advance()
			kind = CondWaitAtLeast
		} else if p.at(TokLE) {
			p.advance()
			kind = CondWaitAtMost
		} else {
			return Step{}, p.errf("expected >= or <= after wait")
		}
		d, err := p.expectDuration()
		if err != nil {
			return Step{}, err
		}
		return Step{Condition: &Condition{Kind: kind, DurationSec: d, Line: line, Col: col}}, nil
	}

	if p.atKeyword("task") {
		p.advance()
		return p.parseTaskCall(line, col)
	}

	if !p.at(TokIdent) {
		return Step{}, p.errf("expected a step, got %q", p.cur().Text)
	}
	actor := p.advance().Text

	switch actor {
	case "Test":
		return p.parseTestCondition(line, col)
	case "Terminal":
		return p.parseTerminalStep(line, col)
	case "System":
		return p.parseSystemAction(line, col)
	case "FileSystem":
		return p.parseFileSystemStep(line, col)
	case "Web":
		return p.parseWebStep(line, col)
	default:
		return Step{}, p.errf("unknown actor %q", actor)
	}
}

func (p *Parser) parseTaskCall(line, col int) (Step, error) {
	name, err := p.expectIdent()
	if err != nil {
		return Step{}, err
	}
	if _, err := p.expect(TokLParen); err != nil {
		return Step{}, err
	}
	var args []string
	for !p.at(TokRParen) {
		var s string
		if p.at(TokString) {
			s = p.advance().Text
		} else {
			id, err := p.expectIdent()
			if err != nil {
				return Step{}, err
			}
			s = id
		}
		args = append(args, s)
		if p.at(TokComma) {
			p.advance()
		}
	}
	p.advance()
	return Step{TaskCall: &TaskCall{Name: name, Args: args, Line: line, Col: col}}, nil
}

func (p *Parser) parseTestCondition(line, col int) (Step, error) {
	verb, err := p.expectIdent()
	if err != nil {
		return Step{}, err
	}
	switch verb {
	case "can_start":
		return Step{Condition: &Condition{Actor: "Test", Kind: CondTestCanStart, Line: line, Col: col}}, nil
	case "has_succeeded":
		dep, err := p.expectIdent()
		if err != nil {
			return Step{}, err
		}
		return Step{Condition: &Condition{Actor: "Test", Kind: CondTestHasSucceeded, Path: dep, Line: line, Col: col}}, nil
	default:
		return Step{}, p.errf("unknown Test predicate %q", verb)
	}
}

func (p *Parser) parseTerminalStep(line, col int) (Step, error) {
	verb, err := p.expectIdent()
	if err != nil {
		return Step{}, err
	}
	switch verb {
	case "run":
		cmd, err := p.expectString()
		if err != nil {
			return Step{}, err
		}
		return Step{Action: &Action{Actor: "Terminal", Kind: ActRun, Arg1: cmd, Line: line, Col: col}}, nil
	case "last_command":
		sub, err := p.expectIdent()
		if err != nil {
			return Step{}, err
		}
		switch sub {
		case "succeeded":
			return Step{Condition: &Condition{Actor: "Terminal", Kind: CondLastCommandSucceeded, Line: line, Col: col}}, nil
		case "failed":
			return Step{Condition: &Condition{Actor: "Terminal", Kind: CondLastCommandFailed, Line: line, Col: col}}, nil
		case "exit_code_is":
			n, err := p.expectNumber()
			if err != nil {
				return Step{}, err
			}
			return Step{Condition: &Condition{Actor: "Terminal", Kind: CondExitCodeIs, Number: n, Line: line, Col: col}}, nil
		default:
			return Step{}, p.errf("unknown Terminal last_command predicate %q", sub)
		}
	case "output_contains":
		s, err := p.expectString()
		if err != nil {
			return Step{}, err
		}
		return Step{Condition: &Condition{Actor: "Terminal", Kind: CondOutputContains, Arg: s, Line: line, Col: col}}, nil
	case "stderr_contains":
		s, err := p.expectString()
		if err != nil {
			return Step{}, err
		}
		return Step{Condition: &Condition{Actor: "Terminal", Kind: CondStderrContains, Arg: s, Line: line, Col: col}}, nil
	case "output_starts_with":
		s, err := p.expectString()
		if err != nil {
			return Step{}, err
		}
		return Step{Condition: &Condition{Actor: "Terminal", Kind: CondOutputStartsWith, Arg: s, Line: line, Col: col}}, nil
	case "output_ends_with":
		s, err := p.expectString()
		if err != nil {
			return Step{}, err
		}
		return Step{Condition: &Condition{Actor: "Terminal", Kind: CondOutputEndsWith, Arg: s, Line: line, Col: col}}, nil
	case "output_equals":
		s, err := p.expectString()
		if err != nil {
			return Step{}, err
		}
		return Step{Condition: &Condition{Actor: "Terminal", Kind: CondOutputEquals, Arg: s, Line: line, Col: col}}, nil
	case "output_matches":
		s, err := p.expectString()
		if err != nil {
			return Step{}, err
		}
		captureAs, err := p.parseOptionalAs()
		if err != nil {
			return Step{}, err
		}
		return Step{Condition: &Condition{Actor: "Terminal", Kind: CondOutputMatches, Arg: s, CaptureAs: captureAs, Line: line, Col: col}}, nil
	case "output_is_valid_json":
		return Step{Condition: &Condition{Actor: "Terminal", Kind: CondOutputIsValidJSON, Line: line, Col: col}}, nil
	case "json_output":
		if err := p.expectKeyword("has_path"); err != nil {
			return Step{}, err
		}
		s, err := p.expectString()
		if err != nil {
			return Step{}, err
		}
		return Step{Condition: &Condition{Actor: "Terminal", Kind: CondJSONOutputHasPath, Path: s, Line: line, Col: col}}, nil
	case "stdout_is_empty":
		return Step{Condition: &Condition{Actor: "Terminal", Kind: CondStdoutIsEmpty, Line: line, Col: col}}, nil
	case "stderr_is_empty":
		return Step{Condition: &Condition{Actor: "Terminal", Kind: CondStderrIsEmpty, Line: line, Col: col}}, nil
	default:
		return Step{}, p.errf("unknown Terminal verb %q", verb)
	}
}

func (p *Parser) parseSystemAction(line, col int) (Step, error) {
	verb, err := p.expectIdent()
	if err != nil {
		return Step{}, err
	}
	switch verb {
	case "pause":
		d, err := p.expectDuration()
		if err != nil {
			return Step{}, err
		}
		return Step{Action: &Action{Actor: "System", Kind: ActPause, DurationSec: d, Line: line, Col: col}}, nil
	case "log":
		msg, err := p.expectString()
		if err != nil {
			return Step{}, err
		}
		return Step{Action: &Action{Actor: "System", Kind: ActLog, Arg1: msg, Line: line, Col: col}}, nil
	case "uuid":
		if err := p.expectKeyword("as"); err != nil {
			return Step{}, err
		}
		name, err := p.expectIdent()
		if err != nil {
			return Step{}, err
		}
		return Step{Action: &Action{Actor: "System", Kind: ActUuid, CaptureAs: name, Line: line, Col: col}}, nil
	case "timestamp":
		if err := p.expectKeyword("as"); err != nil {
			return Step{}, err
		}
		name, err := p.expectIdent()
		if err != nil {
			return Step{}, err
		}
		return Step{Action: &Action{Actor: "System", Kind: ActTimestamp, CaptureAs: name, Line: line, Col: col}}, nil
	case "port_is_listening":
		n, err := p.expectNumber()
		if err != nil {
			return Step{}, err
		}
		return Step{Condition: &Condition{Actor: "System", Kind: CondPortIsListening, Number: n, Line: line, Col: col}}, nil
	case "port_is_closed":
		n, err := p.expectNumber()
		if err != nil {
			return Step{}, err
		}
		return Step{Condition: &Condition{Actor: "System", Kind: CondPortIsClosed, Number: n, Line: line, Col: col}}, nil
	case "service_is_running":
		s, err := p.expectString()
		if err != nil {
			return Step{}, err
		}
		return Step{Condition: &Condition{Actor: "System", Kind: CondServiceIsRunning, Arg: s, Line: line, Col: col}}, nil
	case "service_is_stopped":
		s, err := p.expectString()
		if err != nil {
			return Step{}, err
		}
		return Step{Condition: &Condition{Actor: "System", Kind: CondServiceIsStopped, Arg: s, Line: line, Col: col}}, nil
	case "service_is_installed":
		s, err := p.expectString()
		if err != nil {
			return Step{}, err
		}
		return Step{Condition: &Condition{Actor: "System", Kind: CondServiceIsInstalled, Arg: s, Line: line, Col: col}}, nil
	default:
		return Step{}, p.errf("unknown System verb %q", verb)
	}
}

func (p *Parser) parseFileSystemStep(line, col int) (Step, error) {
	verb, err := p.expectIdent()
	if err != nil {
		return Step{}, err
	}
	switch verb {
	case "create_dir":
		s, err := p.expectString()
		if err != nil {
			return Step{}, err
		}
		return Step{Action: &Action{Actor: "FileSystem", Kind: ActCreateDir, Arg1: s, Line: line, Col: col}}, nil
	case "create_file":
		s, err := p.expectString()
		if err != nil {
			return Step{}, err
		}
		content := ""
		if p.atKeyword("with_content") {
			p.advance()
			content, err = p.expectString()
			if err != nil {
				return Step{}, err
			}
		}
		return Step{Action: &Action{Actor: "FileSystem", Kind: ActCreateFile, Arg1: s, Arg2: content, Line: line, Col: col}}, nil
	case "delete_dir":
		s, err := p.expectString()
		if err != nil {
			return Step{}, err
		}
		return Step{Action: &Action{Actor: "FileSystem", Kind: ActDeleteDir, Arg1: s, Line: line, Col: col}}, nil
	case "delete_file":
		s, err := p.expectString()
		if err != nil {
			return Step{}, err
		}
		return Step{Action: &Action{Actor: "FileSystem", Kind: ActDeleteFile, Arg1: s, Line: line, Col: col}}, nil
	case "read_file":
		s, err := p.expectString()
		if err != nil {
			return Step{}, err
		}
		if err := p.expectKeyword("as"); err != nil {
			return Step{}, err
		}
		name, err := p.expectIdent()
		if err != nil {
			return Step{}, err
		}
		return Step{Action: &Action{Actor: "FileSystem", Kind: ActReadFile, Arg1: s, CaptureAs: name, Line: line, Col: col}}, nil
	case "file_exists":
		s, err := p.expectString()
		if err != nil {
			return Step{}, err
		}
		return Step{Condition: &Condition{Actor: "FileSystem", Kind: CondFileExists, Path: s, Line: line, Col: col}}, nil
	case "file_does_not_exist":
		s, err := p.expectString()
		if err != nil {
			return Step{}, err
		}
		return Step{Condition: &Condition{Actor: "FileSystem", Kind: CondFileDoesNotExist, Path: s, Line: line, Col: col}}, nil
	case "dir_exists":
		s, err := p.expectString()
		if err != nil {
			return Step{}, err
		}
		return Step{Condition: &Condition{Actor: "FileSystem", Kind: CondDirExists, Path: s, Line: line, Col: col}}, nil
	case "dir_does_not_exist":
		s, err := p.expectString()
		if err != nil {
			return Step{}, err
		}
		return Step{Condition: &Condition{Actor: "FileSystem", Kind: CondDirDoesNotExist, Path: s, Line: line, Col: col}}, nil
	case "file_contains":
		path, err := p.expectString()
		if err != nil {
			return Step{}, err
		}
		substr, err := p.expectString()
		if err != nil {
			return Step{}, err
		}
		return Step{Condition: &Condition{Actor: "FileSystem", Kind: CondFileContains, Path: path, Arg: substr, Line: line, Col: col}}, nil
	case "file":
		path, err := p.expectString()
		if err != nil {
			return Step{}, err
		}
		sub, err := p.expectIdent()
		if err != nil {
			return Step{}, err
		}
		switch sub {
		case "is_empty":
			return Step{Condition: &Condition{Actor: "FileSystem", Kind: CondFileIsEmpty, Path: path, Line: line, Col: col}}, nil
		case "is_not_empty":
			return Step{Condition: &Condition{Actor: "FileSystem", Kind: CondFileIsNotEmpty, Path: path, Line: line, Col: col}}, nil
		default:
			return Step{}, p.errf("unknown FileSystem file predicate %q", sub)
		}
	default:
		return Step{}, p.errf("unknown FileSystem verb %q", verb)
	}
}

func (p *Parser) parseWebStep(line, col int) (Step, error) {
	verb, err := p.expectIdent()
	if err != nil {
		return Step{}, err
	}
	switch verb {
	case "set_header":
		k, err := p.expectString()
		if err != nil {
			return Step{}, err
		}
		v, err := p.expectString()
		if err != nil {
			return Step{}, err
		}
		return Step{Action: &Action{Actor: "Web", Kind: ActSetHeader, Arg1: k, Arg2: v, Line: line, Col: col}}, nil
	case "clear_header":
		k, err := p.expectString()
		if err != nil {
			return Step{}, err
		}
		return Step{Action: &Action{Actor: "Web", Kind: ActClearHeader, Arg1: k, Line: line, Col: col}}, nil
	case "clear_headers":
		return Step{Action: &Action{Actor: "Web", Kind: ActClearHeaders, Line: line, Col: col}}, nil
	case "set_cookie":
		k, err := p.expectString()
		if err != nil {
			return Step{}, err
		}
		v, err := p.expectString()
		if err != nil {
			return Step{}, err
		}
		return Step{Action: &Action{Actor: "Web", Kind: ActSetCookie, Arg1: k, Arg2: v, Line: line, Col: col}}, nil
	case "clear_cookie":
		k, err := p.expectString()
		if err != nil {
			return Step{}, err
		}
		return Step{Action: &Action{Actor: "Web", Kind: ActClearCookie, Arg1: k, Line: line, Col: col}}, nil
	case "clear_cookies":
		return Step{Action: &Action{Actor: "Web", Kind: ActClearCookies, Line: line, Col: col}}, nil
	case "http_get":
		u, err := p.expectString()
		if err != nil {
			return Step{}, err
		}
		return Step{Action: &Action{Actor: "Web", Kind: ActHTTPGet, Arg1: u, Line: line, Col: col}}, nil
	case "http_delete":
		u, err := p.expectString()
		if err != nil {
			return Step{}, err
		}
		return Step{Action: &Action{Actor: "Web", Kind: ActHTTPDelete, Arg1: u, Line: line, Col: col}}, nil
	case "http_post", "http_put", "http_patch":
		u, err := p.expectString()
		if err != nil {
			return Step{}, err
		}
		if err := p.expectKeyword("with_body"); err != nil {
			return Step{}, err
		}
		body, err := p.expectString()
		if err != nil {
			return Step{}, err
		}
		kind := map[string]ActionKind{"http_post": ActHTTPPost, "http_put": ActHTTPPut, "http_patch": ActHTTPPatch}[verb]
		return Step{Action: &Action{Actor: "Web", Kind: kind, Arg1: u, Arg2: body, Line: line, Col: col}}, nil
	case "response_status_is":
		n, err := p.expectNumber()
		if err != nil {
			return Step{}, err
		}
		return Step{Condition: &Condition{Actor: "Web", Kind: CondResponseStatusIs, Number: n, Line: line, Col: col}}, nil
	case "response_is_success":
		return Step{Condition: &Condition{Actor: "Web", Kind: CondResponseIsSuccess, Line: line, Col: col}}, nil
	case "response_is_error":
		return Step{Condition: &Condition{Actor: "Web", Kind: CondResponseIsError, Line: line, Col: col}}, nil
	case "response_status_is_in":
		if _, err := p.expect(TokLBracket); err != nil {
			return Step{}, err
		}
		var nums []float64
		for !p.at(TokRBracket) {
			n, err := p.expectNumber()
			if err != nil {
				return Step{}, err
			}
			nums = append(nums, n)
			if p.at(TokComma) {
				p.advance()
			}
		}
		p.advance()
		return Step{Condition: &Condition{Actor: "Web", Kind: CondResponseStatusIsIn, Numbers: nums, Line: line, Col: col}}, nil
	case "response_time":
		if err := p.expectKeyword("is_below"); err != nil {
			return Step{}, err
		}
		d, err := p.expectDuration()
		if err != nil {
			return Step{}, err
		}
		return Step{Condition: &Condition{Actor: "Web", Kind: CondResponseTimeIsBelow, DurationSec: d, Line: line, Col: col}}, nil
	case "response_body_contains":
		s, err := p.expectString()
		if err != nil {
			return Step{}, err
		}
		return Step{Condition: &Condition{Actor: "Web", Kind: CondResponseBodyContains, Arg: s, Line: line, Col: col}}, nil
	case "response_body_matches":
		s, err := p.expectString()
		if err != nil {
			return Step{}, err
		}
		captureAs, err := p.parseOptionalAs()
		if err != nil {
			return Step{}, err
		}
		return Step{Condition: &Condition{Actor: "Web", Kind: CondResponseBodyMatches, Arg: s, CaptureAs: captureAs, Line: line, Col: col}}, nil
	case "response_body_equals_json":
		s, err := p.expectString()
		if err != nil {
			return Step{}, err
		}
		fields, err := p.parseOptionalIgnoreFields()
		if err != nil {
			return Step{}, err
		}
		return Step{Condition: &Condition{Actor: "Web", Kind: CondResponseBodyEqualsJSON, Arg: s, IgnoreFields: fields, Line: line, Col: col}}, nil
	case "json_body":
		if err := p.expectKeyword("has_path"); err != nil {
			return Step{}, err
		}
		s, err := p.expectString()
		if err != nil {
			return Step{}, err
		}
		return Step{Condition: &Condition{Actor: "Web", Kind: CondJSONBodyHasPath, Path: s, Line: line, Col: col}}, nil
	case "json_path":
		if err := p.expectKeyword("at"); err != nil {
			return Step{}, err
		}
		path, err := p.expectString()
		if err != nil {
			return Step{}, err
		}
		if p.atKeyword("equals") {
			p.advance()
			v, err := p.expectString()
			if err != nil {
				return Step{}, err
			}
			return Step{Condition: &Condition{Actor: "Web", Kind: CondJSONPathAtEquals, Path: path, Arg: v, Line: line, Col: col}}, nil
		}
		if err := p.expectKeyword("as"); err != nil {
			return Step{}, err
		}
		name, err := p.expectIdent()
		if err != nil {
			return Step{}, err
		}
		return Step{Condition: &Condition{Actor: "Web", Kind: CondJSONPathAtCapture, Path: path, CaptureAs: name, Line: line, Col: col}}, nil
	case "json_response":
		if err := p.expectKeyword("at"); err != nil {
			return Step{}, err
		}
		path, err := p.expectString()
		if err != nil {
			return Step{}, err
		}
		sub, err := p.expectIdent()
		if err != nil {
			return Step{}, err
		}
		switch sub {
		case "is_a_string":
			return Step{Condition: &Condition{Actor: "Web", Kind: CondJSONResponseIsString, Path: path, Line: line, Col: col}}, nil
		case "is_a_number":
			return Step{Condition: &Condition{Actor: "Web", Kind: CondJSONResponseIsNumber, Path: path, Line: line, Col: col}}, nil
		case "is_an_array":
			return Step{Condition: &Condition{Actor: "Web", Kind: CondJSONResponseIsArray, Path: path, Line: line, Col: col}}, nil
		case "is_an_object":
			return Step{Condition: &Condition{Actor: "Web", Kind: CondJSONResponseIsObject, Path: path, Line: line, Col: col}}, nil
		case "has_size":
			n, err := p.expectNumber()
			if err != nil {
				return Step{}, err
			}
			return Step{Condition: &Condition{Actor: "Web", Kind: CondJSONResponseHasSize, Path: path, Number: n, Line: line, Col: col}}, nil
		default:
			return Step{}, p.errf("unknown json_response predicate %q", sub)
		}
	default:
		return Step{}, p.errf("unknown Web verb %q", verb)
	}
}
