package alang

import "fmt"

// Mnemonic is one of the target VM's opcodes. The numeric values are the
// 5-bit opcode field encoded by the assembler and must match the table in
// §6 of the specification exactly.
type Mnemonic uint8

const (
	NOP Mnemonic = iota
	LOAD
	STORE
	JMP
	ADD
	SUB
	MUL
	JNE
	CMP
	AND
	OR
	HALT
	CALL
	RET
	PUSH
	POP
	LSR
	LSL
	JGR
)

var mnemonicNames = map[Mnemonic]string{
	NOP: "NOP", LOAD: "LOAD", STORE: "STORE", JMP: "JMP", ADD: "ADD",
	SUB: "SUB", MUL: "MUL", JNE: "JNE", CMP: "CMP", AND: "AND", OR: "OR",
	HALT: "HALT", CALL: "CALL", RET: "RET", PUSH: "PUSH", POP: "POP",
	LSR: "LSR", LSL: "LSL", JGR: "JGR",
}

var namesToMnemonic = func() map[string]Mnemonic {
	m := make(map[string]Mnemonic, len(mnemonicNames))
	for code, name := range mnemonicNames {
		m[name] = code
	}
	return m
}()

func (m Mnemonic) String() string {
	if s, ok := mnemonicNames[m]; ok {
		return s
	}
	return fmt.Sprintf("?mnemonic(%d)?", uint8(m))
}

// LookupMnemonic resolves an assembly-text opcode name, case sensitive per
// the table in §6.
func LookupMnemonic(name string) (Mnemonic, bool) {
	m, ok := namesToMnemonic[name]
	return m, ok
}

// AddrMode is the 3-bit operand interpretation of a Word's data field.
type AddrMode uint8

const (
	DIR AddrMode = iota // direct: read memory/slot at data
	IM                  // immediate: data is the value
	IND                 // indirect: read memory at memory[data]
	IDX                 // indexed: reserved, never produced
	REG                 // register: data is a register index (GR0/GR1 convention)
)

var addrModeNames = map[AddrMode]string{
	DIR: "DIR", IM: "IM", IND: "IND", IDX: "IDX", REG: "REG",
}

var namesToAddrMode = func() map[string]AddrMode {
	m := make(map[string]AddrMode, len(addrModeNames))
	for mode, name := range addrModeNames {
		m[name] = mode
	}
	return m
}()

func (m AddrMode) String() string {
	if s, ok := addrModeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("?mode(%d)?", uint8(m))
}

// LookupAddrMode resolves a symbolic addressing mode token such as "IM".
func LookupAddrMode(name string) (AddrMode, bool) {
	m, ok := namesToAddrMode[name]
	return m, ok
}

// wordKind tags the union described in the spec's design notes: a Word is
// either a concrete instruction or one of two relocation placeholders
// produced by the lowerer and resolved by the placer.
type wordKind uint8

const (
	kindConcrete wordKind = iota
	kindJmpTo
	kindJmpBack
)

// Word is the tagged union of a concrete instruction and the two
// relocation placeholders. Only the fields relevant to its Kind are
// meaningful.
type Word struct {
	kind wordKind

	// Concrete fields.
	Op   Mnemonic
	Grx  uint8
	M    AddrMode
	Data uint32

	// JmpTo fields: will become `Op 0 IM (start_address(Block) + Offset)`.
	Block  int
	Offset int
}

// NewInstruction builds a concrete instruction word.
func NewInstruction(op Mnemonic, grx uint8, m AddrMode, data uint32) Word {
	return Word{kind: kindConcrete, Op: op, Grx: grx, M: m, Data: data}
}

// NewJmpTo builds a forward-reference placeholder targeting the start of
// the given block plus a fixed offset (always 0 in this implementation).
func NewJmpTo(op Mnemonic, block int, offset int) Word {
	return Word{kind: kindJmpTo, Op: op, Block: block, Offset: offset}
}

// NewJmpBack builds the back-edge sentinel appended to every if/while body.
func NewJmpBack() Word {
	return Word{kind: kindJmpBack}
}

func (w Word) IsJmpTo() bool   { return w.kind == kindJmpTo }
func (w Word) IsJmpBack() bool { return w.kind == kindJmpBack }
func (w Word) IsConcrete() bool {
	return w.kind == kindConcrete
}

func (w Word) String() string {
	switch w.kind {
	case kindJmpTo:
		return fmt.Sprintf("%s_PLACEHOLDER to:%d offset:%d", w.Op, w.Block, w.Offset)
	case kindJmpBack:
		return "JMP_BACK_PLACEHOLDER"
	default:
		return fmt.Sprintf("%s %d %s %d", w.Op, w.Grx, w.M, w.Data)
	}
}
