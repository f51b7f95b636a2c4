package alang

// Place concatenates every block's lowered instruction stream in flattened
// block order, recording each block's start/end address directly on its
// Block, then rewrites every JmpTo placeholder into a concrete JMP/CALL and
// patches the matching if/while body's JmpBack sentinel into a back-edge.
// It also returns a program-wide address-to-source-line map assembled from
// each block's per-instruction comments, for debug-symbol output.
func Place(lowered []LoweredBlock) ([]Word, map[int]string, error) {
	var program []Word
	starts := make(map[int]int, len(lowered))
	byID := make(map[int]*Block, len(lowered))
	comments := make(map[int]string)

	for _, lb := range lowered {
		start := len(program)
		program = append(program, lb.Words...)

		lb.Block.StartAddress = start
		lb.Block.EndAddress = len(program) - 1
		starts[lb.Block.ID] = start
		byID[lb.Block.ID] = lb.Block

		for offset, text := range lb.Comments {
			comments[start+offset] = text
		}
	}

	for idx := 0; idx < len(program); idx++ {
		w := program[idx]
		if !w.IsJmpTo() {
			continue
		}

		target := starts[w.Block] + w.Offset
		program[idx] = NewInstruction(w.Op, 0, IM, uint32(target))

		targetBlock := byID[w.Block]
		switch targetBlock.Type {
		case BlockIf:
			program[targetBlock.EndAddress] = NewInstruction(JMP, 0, IM, uint32(idx+1))
		case BlockWhile:
			program[targetBlock.EndAddress] = NewInstruction(JMP, 0, IM, uint32(idx-2))
		}
	}

	// Any JmpBack left untouched belongs to an unreachable if/while body
	// (no JmpTo ever targeted it); leave the program well-formed by turning
	// it into a no-op rather than an unresolved placeholder.
	for idx, w := range program {
		if w.IsJmpBack() {
			program[idx] = NewInstruction(NOP, 0, DIR, 0)
		}
	}

	return program, comments, nil
}
