package tsql

import (
	"strings"

	"github.com/Abhitodan/SQLDraw/internal/sqlerr"
)

// Parse tokenises and parses procedure text into a Program. It never
// returns a partial AST on failure — per spec §4.1/§7, a parse failure is
// surfaced as sqlerr.ErrBadInput and the caller gets no Program at all.
func Parse(source string) (*Program, error) {
	toks := newLexer(source).tokenize()
	p := &parser{toks: toks, src: source}

	header, err := p.tryParseHeader()
	if err != nil {
		return nil, err
	}

	var body []Stmt
	if header != nil {
		if err := p.expectWord("AS"); err != nil {
			return nil, err
		}
		if p.peekIsWord("BEGIN") {
			p.next()
			body, err = p.parseStmtList(isBlockEnd)
			if err != nil {
				return nil, err
			}
			if err := p.expectWord("END"); err != nil {
				return nil, err
			}
		} else {
			body, err = p.parseStmtList(isEOF)
			if err != nil {
				return nil, err
			}
		}
	} else {
		body, err = p.parseStmtList(isEOF)
		if err != nil {
			return nil, err
		}
	}

	if len(body) == 0 && header == nil {
		return nil, sqlerr.BadInput("empty procedure body")
	}

	return &Program{Header: header, Body: body}, nil
}

type parser struct {
	toks []token
	pos  int
	src  string
}

func (p *parser) cur() token {
	if p.pos >= len(p.toks) {
		return p.toks[len(p.toks)-1] // EOF
	}
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) peekIsWord(word string) bool {
	t := p.cur()
	return t.kind == tokWord && t.upper() == word
}

// peekAheadIsWord looks n tokens ahead (0 = current) for a word match.
func (p *parser) peekAheadIsWord(n int, word string) bool {
	idx := p.pos + n
	if idx >= len(p.toks) {
		idx = len(p.toks) - 1
	}
	t := p.toks[idx]
	return t.kind == tokWord && t.upper() == word
}

func (p *parser) expectWord(word string) error {
	if !p.peekIsWord(word) {
		return sqlerr.BadInput("expected %s at line %d, found %q", word, p.cur().line, p.cur().text)
	}
	p.next()
	return nil
}

func isBlockEnd(p *parser) bool {
	return p.peekIsWord("END") && !p.peekAheadIsWord(1, "TRY") && !p.peekAheadIsWord(1, "CATCH")
}

func isEOF(p *parser) bool {
	return p.cur().kind == tokEOF
}

// tryParseHeader recognises an optional "CREATE|ALTER PROCEDURE name
// (@params...)" prefix. It returns (nil, nil) in batch mode.
func (p *parser) tryParseHeader() (*ProcHeader, error) {
	if !(p.peekIsWord("CREATE") || p.peekIsWord("ALTER")) {
		return nil, nil
	}
	p.next()
	if !(p.peekIsWord("PROCEDURE") || p.peekIsWord("PROC")) {
		return nil, sqlerr.BadInput("expected PROCEDURE at line %d", p.cur().line)
	}
	p.next()

	name := p.parseQualifiedName()
	if name == "" {
		return nil, sqlerr.BadInput("expected procedure name at line %d", p.cur().line)
	}

	var params []Param
	for p.cur().kind == tokVariable {
		params = append(params, p.parseParam())
		if p.cur().kind == tokPunct && p.cur().text == "," {
			p.next()
			continue
		}
		break
	}

	return &ProcHeader{Name: name, Params: params}, nil
}

func (p *parser) parseQualifiedName() string {
	var parts []string
	for p.cur().kind == tokWord || p.cur().kind == tokBracket {
		parts = append(parts, p.next().text)
		if p.cur().kind == tokPunct && p.cur().text == "." {
			p.next()
			continue
		}
		break
	}
	return strings.Join(parts, ".")
}

// parseParam parses "@Name TYPE(...) [= default] [OUTPUT]".
func (p *parser) parseParam() Param {
	name := p.next().text // tokVariable

	var typeParts []string
	for p.cur().kind == tokWord || (p.cur().kind == tokPunct && (p.cur().text == "(" || p.cur().text == ")" || p.cur().text == ",")) || p.cur().kind == tokNumber {
		if p.cur().kind == tokWord {
			up := p.cur().upper()
			if up == "OUTPUT" || up == "OUT" || up == "DEFAULT" || up == "AS" {
				break
			}
		}
		if p.cur().kind == tokPunct && p.cur().text == "," && !inParens(typeParts) {
			break
		}
		typeParts = append(typeParts, p.next().text)
	}

	param := Param{Name: name, SQLType: strings.Join(typeParts, "")}

	if p.peekIsWord("DEFAULT") || (p.cur().kind == tokOp && p.cur().text == "=") {
		p.next()
		param.HasDefault = true
		param.DefaultLiteral = p.next().text
	}
	if p.peekIsWord("OUTPUT") || p.peekIsWord("OUT") {
		p.next()
		param.IsOutput = true
	}
	return param
}

func inParens(parts []string) bool {
	depth := 0
	for _, s := range parts {
		if s == "(" {
			depth++
		}
		if s == ")" {
			depth--
		}
	}
	return depth > 0
}

// parseStmtList parses statements until stop(p) is true.
func (p *parser) parseStmtList(stop func(*parser) bool) ([]Stmt, error) {
	var stmts []Stmt
	for !stop(p) && p.cur().kind != tokEOF {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return stmts, nil
}

func (p *parser) parseStmt() (Stmt, error) {
	switch {
	case p.peekIsWord("IF"):
		return p.parseIf()
	case p.peekIsWord("WHILE"):
		return p.parseWhile()
	case p.peekIsWord("BEGIN") && p.peekAheadIsWord(1, "TRY"):
		return p.parseTryCatch()
	case p.peekIsWord("BEGIN") && !p.peekAheadIsWord(1, "TRAN") && !p.peekAheadIsWord(1, "TRANSACTION"):
		return p.parseBlock()
	default:
		return p.parseSimple()
	}
}

func (p *parser) parseBlock() (Stmt, error) {
	start := p.cur()
	p.next() // BEGIN
	stmts, err := p.parseStmtList(isBlockEnd)
	if err != nil {
		return nil, err
	}
	if err := p.expectWord("END"); err != nil {
		return nil, err
	}
	end := p.toks[max(0, p.pos-1)]
	return &BlockStmt{span: mkSpan(start, end), Stmts: stmts}, nil
}

func (p *parser) parseIf() (Stmt, error) {
	start := p.cur()
	p.next() // IF
	condStart := p.cur()
	for !p.peekIsWord("BEGIN") && p.cur().kind != tokEOF && !isStatementStarterHere(p) {
		p.next()
	}
	condEnd := p.toks[max(0, p.pos-1)]
	condText := strings.TrimSpace(p.src[condStart.start:condEnd.end])

	then, err := p.parseArm()
	if err != nil {
		return nil, err
	}
	var elseArm []Stmt
	lastTok := p.toks[max(0, p.pos-1)]
	if p.peekIsWord("ELSE") {
		p.next()
		elseArm, err = p.parseArm()
		if err != nil {
			return nil, err
		}
		lastTok = p.toks[max(0, p.pos-1)]
	}
	return &IfStmt{span: mkSpan(start, lastTok), CondText: condText, Then: then, Else: elseArm}, nil
}

// parseArm parses the single statement or BEGIN...END block following IF's
// condition or a WHILE's condition.
func (p *parser) parseArm() ([]Stmt, error) {
	if p.peekIsWord("BEGIN") && !p.peekAheadIsWord(1, "TRY") && !p.peekAheadIsWord(1, "TRAN") && !p.peekAheadIsWord(1, "TRANSACTION") {
		blk, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return blk.(*BlockStmt).Stmts, nil
	}
	s, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	return []Stmt{s}, nil
}

func (p *parser) parseWhile() (Stmt, error) {
	start := p.cur()
	p.next() // WHILE
	condStart := p.cur()
	for !p.peekIsWord("BEGIN") && p.cur().kind != tokEOF && !isStatementStarterHere(p) {
		p.next()
	}
	condEnd := p.toks[max(0, p.pos-1)]
	condText := strings.TrimSpace(p.src[condStart.start:condEnd.end])

	body, err := p.parseArm()
	if err != nil {
		return nil, err
	}
	lastTok := p.toks[max(0, p.pos-1)]
	return &WhileStmt{span: mkSpan(start, lastTok), CondText: condText, Body: body}, nil
}

func (p *parser) parseTryCatch() (Stmt, error) {
	start := p.cur()
	p.next() // BEGIN
	if err := p.expectWord("TRY"); err != nil {
		return nil, err
	}
	tryStmts, err := p.parseStmtList(func(p *parser) bool {
		return p.peekIsWord("END") && p.peekAheadIsWord(1, "TRY")
	})
	if err != nil {
		return nil, err
	}
	if err := p.expectWord("END"); err != nil {
		return nil, err
	}
	if err := p.expectWord("TRY"); err != nil {
		return nil, err
	}
	if err := p.expectWord("BEGIN"); err != nil {
		return nil, err
	}
	if err := p.expectWord("CATCH"); err != nil {
		return nil, err
	}
	catchStmts, err := p.parseStmtList(func(p *parser) bool {
		return p.peekIsWord("END") && p.peekAheadIsWord(1, "CATCH")
	})
	if err != nil {
		return nil, err
	}
	if err := p.expectWord("END"); err != nil {
		return nil, err
	}
	if err := p.expectWord("CATCH"); err != nil {
		return nil, err
	}
	end := p.toks[max(0, p.pos-1)]
	return &TryCatchStmt{span: mkSpan(start, end), Try: tryStmts, Catch: catchStmts}, nil
}

// parseSimple consumes tokens greedily until a statement boundary: a
// semicolon, the start of a new recognised statement, or a structural
// keyword (BEGIN/END/IF/WHILE/ELSE) that belongs to the enclosing scope.
func (p *parser) parseSimple() (Stmt, error) {
	start := p.cur()
	if start.kind == tokEOF {
		return nil, sqlerr.BadInput("unexpected end of input")
	}
	keyword := ""
	if start.kind == tokWord {
		keyword = start.upper()
	}
	p.next()

	last := start
	sawSet := false
	for {
		t := p.cur()
		if t.kind == tokEOF {
			break
		}
		if t.kind == tokPunct && t.text == ";" {
			p.next() // consume the terminator, excluded from the snippet
			break
		}
		// UPDATE's own SET clause belongs to the UPDATE, not to a new SET.
		if keyword == "UPDATE" && !sawSet && t.kind == tokWord && t.upper() == "SET" {
			sawSet = true
			last = p.next()
			continue
		}
		if isStatementStarterHere(p) {
			break
		}
		if t.kind == tokWord {
			up := t.upper()
			if up == "END" || up == "ELSE" {
				break
			}
		}
		last = p.next()
	}

	text := strings.TrimSpace(p.src[start.start:last.end])
	return &SimpleStmt{span: mkSpan(start, last), Keyword: keyword, Text: text}, nil
}

// isStatementStarterHere reports whether the parser is sitting at the start
// of a new top-level statement — used both to stop a simple statement and
// to stop an IF/WHILE condition scan before a same-line follow-on
// statement (defensive; well-formed input always has BEGIN or a newline).
func isStatementStarterHere(p *parser) bool {
	t := p.cur()
	if t.kind != tokWord {
		return false
	}
	up := t.upper()
	if up == "IF" || up == "WHILE" {
		return true
	}
	if up == "BEGIN" && !p.peekAheadIsWord(1, "TRAN") && !p.peekAheadIsWord(1, "TRANSACTION") {
		return true
	}
	return statementStarters[up]
}

func mkSpan(start, end token) span {
	return span{startOffset: start.start, endOffset: end.end, startLine: start.line, endLine: end.line}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
