package alang_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	alang "alangc/lang"
)

func compileToProgram(t *testing.T, source string) []alang.Word {
	t.Helper()
	blocks, err := alang.Parse(source)
	require.NoError(t, err)

	lowered, err := alang.Lower(blocks)
	require.NoError(t, err)

	program, _, err := alang.Place(lowered)
	require.NoError(t, err)
	return program
}

func TestPlaceLeavesNoJmpToPlaceholders(t *testing.T) {
	program := compileToProgram(t, `
		function helper(x){ return x; }
		function main(){
			int a;
			int i;
			a=helper(1);
			if(a!=0){ a=1; }
			i=3;
			while(i!=0){ i=i-1; }
		}
	`)
	for idx, w := range program {
		require.False(t, w.IsJmpTo(), "unresolved JmpTo at %d", idx)
		require.False(t, w.IsJmpBack(), "unresolved JmpBack at %d", idx)
	}
}

func TestPlaceEveryWordIs33BitEncodable(t *testing.T) {
	program := compileToProgram(t, `function main(){ int a; a=1; }`)
	for _, w := range program {
		require.LessOrEqual(t, w.Grx, uint8(31))
		require.LessOrEqual(t, uint32(w.M), uint32(4))
		require.LessOrEqual(t, w.Data, uint32(0xFFFFF))
	}
}

func TestPlaceIfJumpsPastBodyToFallthrough(t *testing.T) {
	program := compileToProgram(t, `function main(){ int x; if(x!=0){ x=1; } }`)

	// main: LOAD, CMP, JNE, RET — JNE is index 2, fallthrough (RET) is index 3.
	require.Equal(t, alang.JNE, program[2].Op)
	jneTarget := int(program[2].Data)

	// the if-body's final JMP must return to the instruction right after JNE.
	bodyEnd := program[jneTarget:]
	var jmp alang.Word
	for _, w := range bodyEnd {
		if w.Op == alang.JMP {
			jmp = w
			break
		}
	}
	require.Equal(t, alang.JMP, jmp.Op)
	require.EqualValues(t, 3, jmp.Data)
}

func TestPlaceWhileBackEdgeTargetsConditionLoad(t *testing.T) {
	program := compileToProgram(t, `function main(){ int i; i=3; while(i!=0){ i=i-1; } }`)

	// find the JNE guarding the loop body.
	jneIdx := -1
	for idx, w := range program {
		if w.Op == alang.JNE {
			jneIdx = idx
			break
		}
	}
	require.NotEqual(t, -1, jneIdx)

	// the body's terminating JMP must target two words before the JNE (the
	// condition's initial LOAD).
	var jmp alang.Word
	for idx := int(program[jneIdx].Data); idx < len(program); idx++ {
		if program[idx].Op == alang.JMP {
			jmp = program[idx]
			break
		}
	}
	require.Equal(t, alang.JMP, jmp.Op)
	require.EqualValues(t, jneIdx-2, jmp.Data)
}

func TestPlaceEmptyMainIsASingleRET(t *testing.T) {
	program := compileToProgram(t, `function main(){}`)
	require.Len(t, program, 1)
	require.Equal(t, alang.RET, program[0].Op)
	require.Zero(t, program[0].Grx)
	require.Equal(t, alang.DIR, program[0].M)
	require.Zero(t, program[0].Data)
}

func TestPlaceSymbolsMapEveryInstructionToItsSourceLine(t *testing.T) {
	blocks, err := alang.Parse(`function main(){ int a; int b; a=b; }`)
	require.NoError(t, err)

	lowered, err := alang.Lower(blocks)
	require.NoError(t, err)

	program, symbols, err := alang.Place(lowered)
	require.NoError(t, err)

	require.Equal(t, "a=b", symbols[0])
	require.Equal(t, "default return", symbols[len(program)-1])
}
