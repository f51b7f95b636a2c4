package alang

import (
	"regexp"
	"strings"
)

var (
	reLineComment = regexp.MustCompile(`^//[^\n]*`)
	reFuncDef     = regexp.MustCompile(`^function\s+(\w+)\(\s*([^)]*)\s*\)\s*\{`)
	reCondDef     = regexp.MustCompile(`^(if|while)\s*\(\s*([*&]?\w+)\s*(!=|<|>)\s*([*&]?\w+)\s*\)\s*\{`)
	reDecl        = regexp.MustCompile(`^int\s+(\w+)\s*;`)
	reStatement   = regexp.MustCompile(`^[A-Za-z0-9_ (),+\-*=&]+;`)
)

// parser threads the two process-wide counters described by the spec's
// concurrency model through one recursive-descent parse. Both are local to
// a single call to Parse.
type parser struct {
	nextBlockID int
	nextSlot    int
}

func (p *parser) allocBlockID() int {
	id := p.nextBlockID
	p.nextBlockID++
	return id
}

func (p *parser) allocSlot() int {
	slot := p.nextSlot
	p.nextSlot++
	return slot
}

// Parse lexes and parses alang source into the flattened, ordered list of
// blocks, global block first.
func Parse(source string) ([]*Block, error) {
	p := &parser{}
	global, _, err := p.parseBlock(source, 0, BlockGlobal, noParent, nil)
	if err != nil {
		return nil, err
	}
	if len(global.Code) != 0 {
		return nil, &ParseError{Msg: "no code apart from variable and function declarations allowed in the global scope"}
	}

	blocks := flatten(global)

	mainFound := false
	for _, b := range blocks {
		if b.Type == BlockFunction && b.Name == "main" {
			mainFound = true
			break
		}
	}
	if !mainFound {
		return nil, &ParseError{Msg: "no main function defined"}
	}
	return blocks, nil
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t'
}

func rowAt(text string, index int) int {
	row := 1
	for i := 0; i < index && i < len(text); i++ {
		if text[i] == '\n' {
			row++
		}
	}
	return row
}

// parseBlock recognises the grammar of one block body starting at pos and
// returns the parsed block plus the index immediately after its closing
// brace (or len(text) for the top-level global block).
func (p *parser) parseBlock(text string, pos int, btype BlockType, parent int, params []string) (*Block, int, error) {
	id := p.allocBlockID()
	block := &Block{
		ID:        id,
		Type:      btype,
		Parent:    parent,
		Variables: map[string]int{},
		Functions: map[string]int{},
	}
	for _, name := range params {
		block.Parameters = append(block.Parameters, name)
		block.Variables[name] = p.allocSlot()
	}

	i := pos
	for i < len(text) {
		for i < len(text) && isSpaceByte(text[i]) {
			i++
		}
		if i >= len(text) {
			break
		}
		t := text[i:]

		switch {
		case text[i] == '}':
			if btype == BlockGlobal {
				return nil, 0, &ParseError{Row: rowAt(text, i), Text: "}", Msg: "unmatched brace, no block to close"}
			}
			return block, i + 1, nil

		case reLineComment.MatchString(t):
			i += reLineComment.FindStringIndex(t)[1]

		default:
			newPos, matched, err := p.parseOne(block, text, i, t)
			if err != nil {
				return nil, 0, err
			}
			if !matched {
				return nil, 0, &ParseError{Row: rowAt(text, i), Text: firstToken(t), Msg: "invalid syntax"}
			}
			i = newPos
		}
	}

	if btype != BlockGlobal {
		return nil, 0, &ParseError{Row: rowAt(text, i), Msg: "unmatched brace, block never closed"}
	}
	return block, i, nil
}

// parseOne tries grammar rules 3 through 6 (function definition, cond
// header, declaration, generic statement) against t, which starts at
// absolute position i in text. It returns the position just past whatever
// it matched, or matched=false if none of the rules apply.
func (p *parser) parseOne(block *Block, text string, i int, t string) (newPos int, matched bool, err error) {
	if loc := reFuncDef.FindStringSubmatchIndex(t); loc != nil {
		name := t[loc[2]:loc[3]]
		rawParams := strings.TrimSpace(t[loc[4]:loc[5]])
		var fnParams []string
		if rawParams != "" {
			for _, part := range strings.Split(rawParams, ",") {
				fnParams = append(fnParams, strings.TrimSpace(part))
			}
		}
		if _, exists := block.Functions[name]; exists {
			return 0, false, &ParseError{Row: rowAt(text, i), Text: name, Msg: "duplicate function definition"}
		}
		child, childEnd, err := p.parseBlock(text, i+loc[1], BlockFunction, block.ID, fnParams)
		if err != nil {
			return 0, false, err
		}
		child.Name = name
		block.Functions[name] = child.ID
		block.children = append(block.children, child)
		return childEnd, true, nil
	}

	if loc := reCondDef.FindStringSubmatchIndex(t); loc != nil {
		kw := t[loc[2]:loc[3]]
		op1 := t[loc[4]:loc[5]]
		op := t[loc[6]:loc[7]]
		op2 := t[loc[8]:loc[9]]
		row := rowAt(text, i)

		childType := BlockIf
		if kw == "while" {
			childType = BlockWhile
		}
		child, childEnd, err := p.parseBlock(text, i+loc[1], childType, block.ID, nil)
		if err != nil {
			return 0, false, err
		}
		block.children = append(block.children, child)
		header := kw + "(" + op1 + op + op2 + ")"
		block.Code = append(block.Code, Statement{Kind: StmtCond, Text: header, Row: row, Target: child.ID})
		return childEnd, true, nil
	}

	if loc := reDecl.FindStringSubmatchIndex(t); loc != nil {
		name := t[loc[2]:loc[3]]
		block.Variables[name] = p.allocSlot()
		return i + loc[1], true, nil
	}

	if loc := reStatement.FindStringIndex(t); loc != nil {
		row := rowAt(text, i)
		raw := t[loc[0] : loc[1]-1] // drop trailing ';'
		block.Code = append(block.Code, Statement{Kind: StmtPlain, Text: strings.TrimSpace(raw), Row: row})
		return i + loc[1], true, nil
	}

	return 0, false, nil
}

func firstToken(t string) string {
	end := strings.IndexAny(t, " \n\r\t")
	if end < 0 {
		end = len(t)
	}
	if end > 40 {
		end = 40
	}
	return t[:end]
}

// flatten performs the post-order-by-definition, pre-order-by-result pass:
// each child inherits its parent's variables/functions (without overwriting
// locally-shadowed names) before being flattened itself. The result is the
// parent followed by all descendants in parse order, matching block_id
// order.
func flatten(root *Block) []*Block {
	for _, child := range root.children {
		for name, slot := range root.Variables {
			if _, shadowed := child.Variables[name]; !shadowed {
				child.Variables[name] = slot
			}
		}
		for name, id := range root.Functions {
			if _, shadowed := child.Functions[name]; !shadowed {
				child.Functions[name] = id
			}
		}
	}

	out := []*Block{root}
	for _, child := range root.children {
		out = append(out, flatten(child)...)
	}
	root.children = nil
	return out
}
