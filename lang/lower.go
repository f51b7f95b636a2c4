package alang

import (
	"regexp"
	"strconv"
	"strings"
)

var reFuncCall = regexp.MustCompile(`^(\w+)\(([^)]*)\)$`)

// LoweredBlock is one block's lowered instruction stream, still containing
// JmpTo/JmpBack placeholders, plus a map from instruction index to the
// source statement text it came from (for debugging).
type LoweredBlock struct {
	Block    *Block
	Words    []Word
	Comments map[int]string
}

// Lower translates every flattened block into a linear instruction
// sequence, resolving variable/function references within the block's own
// symbol table but leaving every cross-block address (calls, conditional
// jumps, loop back-edges) as a placeholder for the placer to resolve.
func Lower(blocks []*Block) ([]LoweredBlock, error) {
	byID := make(map[int]*Block, len(blocks))
	for _, b := range blocks {
		byID[b.ID] = b
	}

	out := make([]LoweredBlock, 0, len(blocks))
	for _, b := range blocks {
		words, comments, err := lowerBlock(b, byID)
		if err != nil {
			return nil, err
		}
		out = append(out, LoweredBlock{Block: b, Words: words, Comments: comments})
	}
	return out, nil
}

func lowerBlock(block *Block, byID map[int]*Block) ([]Word, map[int]string, error) {
	var words []Word
	comments := map[int]string{}

	for _, stmt := range block.Code {
		start := len(words)
		var ws []Word
		var err error
		if stmt.Kind == StmtCond {
			ws, err = lowerCond(stmt, block)
		} else {
			ws, err = lowerStatement(stmt, block, byID)
		}
		if err != nil {
			return nil, nil, err
		}
		words = append(words, ws...)
		comments[start] = stmt.Text
	}

	switch block.Type {
	case BlockFunction:
		comments[len(words)] = "default return"
		words = append(words, NewInstruction(RET, 0, DIR, 0))
	case BlockIf, BlockWhile:
		words = append(words, NewJmpBack())
	}
	return words, comments, nil
}

func lowerCond(stmt Statement, block *Block) ([]Word, error) {
	m := reCondHeader.FindStringSubmatch(stmt.Text)
	if m == nil {
		return nil, &CompileError{Row: stmt.Row, Text: stmt.Text, Msg: "malformed if/while header"}
	}
	op1, operator, op2 := m[2], m[3], m[4]

	m1, d1, err := dereferenceVariable(op1, block.Variables)
	if err != nil {
		return nil, withStmtContext(err, stmt)
	}
	m2, d2, err := dereferenceVariable(op2, block.Variables)
	if err != nil {
		return nil, withStmtContext(err, stmt)
	}

	switch operator {
	case "!=":
		return []Word{
			NewInstruction(LOAD, 0, m1, d1),
			NewInstruction(CMP, 0, m2, d2),
			NewJmpTo(JNE, stmt.Target, 0),
		}, nil
	case "<":
		return []Word{
			NewInstruction(LOAD, 0, m1, d1),
			NewInstruction(CMP, 0, m2, d2),
			NewJmpTo(JGR, stmt.Target, 0),
		}, nil
	case ">":
		return []Word{
			NewInstruction(LOAD, 0, m2, d2),
			NewInstruction(CMP, 0, m1, d1),
			NewJmpTo(JGR, stmt.Target, 0),
		}, nil
	default:
		return nil, &CompileError{Row: stmt.Row, Text: stmt.Text, Msg: "unsupported comparison operator"}
	}
}

var reCondHeader = regexp.MustCompile(`^(if|while)\(([*&]?\w+)(!=|<|>)([*&]?\w+)\)$`)

func lowerStatement(stmt Statement, block *Block, byID map[int]*Block) ([]Word, error) {
	raw := strings.TrimSpace(stmt.Text)

	switch {
	case raw == "halt":
		return []Word{NewInstruction(HALT, 0, DIR, 0)}, nil

	case raw == "return":
		return []Word{NewInstruction(RET, 0, DIR, 0)}, nil

	case strings.HasPrefix(raw, "return "):
		tok := strings.ReplaceAll(strings.TrimSpace(raw[len("return "):]), " ", "")
		terms, _ := splitExprTerms(tok)
		// A single value token returns directly via GR1; a multi-term
		// expression is accumulated in GR0 first, then copied across.
		if len(terms) == 1 {
			if m, data, err := dereferenceVariable(tok, block.Variables); err == nil {
				return []Word{
					NewInstruction(LOAD, 1, m, data),
					NewInstruction(RET, 0, DIR, 0),
				}, nil
			}
		}
		exprWords, err := compileExpr(tok, block, byID)
		if err != nil {
			return nil, withStmtContext(err, stmt)
		}
		return append(exprWords,
			NewInstruction(LOAD, 1, REG, 0),
			NewInstruction(RET, 0, DIR, 0),
		), nil
	}

	s := strings.ReplaceAll(raw, " ", "")
	if idx := strings.IndexByte(s, '='); idx >= 0 {
		lhs, rhs := s[:idx], s[idx+1:]
		exprWords, err := compileExpr(rhs, block, byID)
		if err != nil {
			return nil, withStmtContext(err, stmt)
		}
		assignWords, err := compileAssignment(lhs, block)
		if err != nil {
			return nil, withStmtContext(err, stmt)
		}
		return append(exprWords, assignWords...), nil
	}

	words, err := compileExpr(s, block, byID)
	if err != nil {
		return nil, withStmtContext(err, stmt)
	}
	return words, nil
}

func withStmtContext(err error, stmt Statement) error {
	if ce, ok := err.(*CompileError); ok && ce.Row == 0 {
		ce.Row = stmt.Row
		if ce.Text == "" {
			ce.Text = stmt.Text
		}
		return ce
	}
	return err
}

// compileExpr lowers a left-to-right, no-precedence chain of +, -, * over
// value tokens or function calls, accumulating the result in GR0.
func compileExpr(expr string, block *Block, byID map[int]*Block) ([]Word, error) {
	terms, ops := splitExprTerms(expr)
	if len(terms) == 0 || terms[0] == "" {
		return nil, &CompileError{Msg: "invalid syntax", Text: expr}
	}

	words, err := lowerTerm(terms[0], block, byID, LOAD)
	if err != nil {
		return nil, err
	}

	for i, op := range ops {
		mnemonic := opMnemonic(op)
		ws, err := lowerTerm(terms[i+1], block, byID, mnemonic)
		if err != nil {
			return nil, err
		}
		words = append(words, ws...)
	}
	return words, nil
}

func opMnemonic(op byte) Mnemonic {
	switch op {
	case '+':
		return ADD
	case '-':
		return SUB
	default:
		return MUL
	}
}

// lowerTerm lowers one operand of an expression chain against the given
// accumulating mnemonic (LOAD for the first term, ADD/SUB/MUL otherwise).
func lowerTerm(term string, block *Block, byID map[int]*Block, mnemonic Mnemonic) ([]Word, error) {
	if m := reFuncCall.FindStringSubmatch(term); m != nil {
		callWords, err := lowerCall(m[1], m[2], block, byID)
		if err != nil {
			return nil, err
		}
		return append(callWords, NewInstruction(mnemonic, 0, REG, 1)), nil
	}

	mode, data, err := dereferenceVariable(term, block.Variables)
	if err != nil {
		return nil, err
	}
	return []Word{NewInstruction(mnemonic, 0, mode, data)}, nil
}

// lowerCall lowers a function call: stash GR0, write each argument into the
// callee's parameter slots, call, then restore GR0.
func lowerCall(name, rawArgs string, block *Block, byID map[int]*Block) ([]Word, error) {
	calleeID, ok := block.Functions[name]
	if !ok {
		return nil, &CompileError{Msg: "undeclared function used: " + name, Text: name}
	}
	callee, ok := byID[calleeID]
	if !ok {
		return nil, &CompileError{Msg: "internal error: unknown block referenced by function " + name}
	}

	var args []string
	if trimmed := strings.TrimSpace(rawArgs); trimmed != "" {
		for _, a := range strings.Split(trimmed, ",") {
			args = append(args, strings.TrimSpace(a))
		}
	}
	if len(args) > len(callee.Parameters) {
		return nil, &CompileError{Msg: "too many arguments to function " + name}
	}

	words := []Word{NewInstruction(PUSH, 0, DIR, 0)}
	for i, arg := range args {
		mode, data, err := dereferenceVariable(arg, block.Variables)
		if err != nil {
			return nil, err
		}
		words = append(words, NewInstruction(LOAD, 0, mode, data))

		paramSlot := callee.Variables[callee.Parameters[i]]
		words = append(words, NewInstruction(STORE, 0, DIR, uint32(paramSlot)))
	}
	words = append(words, NewJmpTo(CALL, calleeID, 0))
	words = append(words, NewInstruction(POP, 0, DIR, 0))
	return words, nil
}

// compileAssignment lowers the LHS of an assignment; GR0 must already hold
// the RHS result. Only direct and indirect targets are legal.
func compileAssignment(lhs string, block *Block) ([]Word, error) {
	mode, data, err := dereferenceVariable(lhs, block.Variables)
	if err != nil {
		return nil, err
	}
	if mode != DIR && mode != IND {
		return nil, &CompileError{Msg: "invalid assignment target: " + lhs, Text: lhs}
	}
	return []Word{NewInstruction(STORE, 0, mode, data)}, nil
}

// dereferenceVariable classifies a value token (NAME, &NAME, *NAME, or an
// integer literal) per the addressing table in §4.2.1.
func dereferenceVariable(token string, vars map[string]int) (AddrMode, uint32, error) {
	if token == "" {
		return 0, 0, &CompileError{Msg: "invalid syntax: empty operand"}
	}

	var addrOp byte
	name := token
	if token[0] == '&' || token[0] == '*' {
		addrOp = token[0]
		name = token[1:]
	}

	if lit, err := parseIntLiteral(name); err == nil {
		switch addrOp {
		case 0:
			return IM, lit, nil
		case '*':
			return DIR, lit, nil
		default: // '&'
			return 0, 0, &CompileError{Msg: "invalid address mode for constant", Text: token}
		}
	}

	slot, ok := vars[name]
	if !ok {
		return 0, 0, &CompileError{Msg: "undeclared variable used: " + name, Text: token}
	}
	switch addrOp {
	case '&':
		return IM, uint32(slot), nil
	case '*':
		return IND, uint32(slot), nil
	default:
		return DIR, uint32(slot), nil
	}
}

func parseIntLiteral(s string) (uint32, error) {
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// splitExprTerms splits a no-precedence +/-/* chain into operand terms and
// the operators between them, respecting function-call parentheses.
func splitExprTerms(expr string) ([]string, []byte) {
	var terms []string
	var ops []byte
	depth := 0
	start := 0
	for i := 0; i < len(expr); i++ {
		switch expr[i] {
		case '(':
			depth++
		case ')':
			depth--
		case '+', '-', '*':
			// A '*' at the very start of a term is the dereference sigil
			// (*NAME), not the multiplication operator.
			if depth == 0 && i != start {
				terms = append(terms, expr[start:i])
				ops = append(ops, expr[i])
				start = i + 1
			}
		}
	}
	terms = append(terms, expr[start:])
	return terms, ops
}
