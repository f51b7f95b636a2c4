package alang

import "encoding/json"

// Result bundles every artifact produced by compiling one source file,
// ready to be written out by the CLI.
type Result struct {
	Blocks      []*Block
	Program     []Word
	Symbols     map[int]string // address -> source text, for debug output
	Assembly    string
	MachineCode string
}

// Compile runs the full pipeline: parse, lower, place, assemble. The
// returned error is always one of *ParseError, *CompileError or
// *AssembleError.
func Compile(source string) (*Result, error) {
	blocks, err := Parse(source)
	if err != nil {
		return nil, err
	}

	lowered, err := Lower(blocks)
	if err != nil {
		return nil, err
	}

	program, symbols, err := Place(lowered)
	if err != nil {
		return nil, err
	}

	assembly := Format(program)
	machineCode, err := Assemble(assembly)
	if err != nil {
		return nil, err
	}

	return &Result{
		Blocks:      blocks,
		Program:     program,
		Symbols:     symbols,
		Assembly:    assembly,
		MachineCode: machineCode,
	}, nil
}

// ParsedJSON renders the flattened block list as the indented JSON document
// described in the spec's output contract.
func ParsedJSON(blocks []*Block) ([]byte, error) {
	return json.MarshalIndent(blocks, "", "  ")
}
