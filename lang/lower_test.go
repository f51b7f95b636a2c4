package alang_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	alang "alangc/lang"
)

func lowerSource(t *testing.T, source string, blockName string) []alang.Word {
	t.Helper()
	blocks, err := alang.Parse(source)
	require.NoError(t, err)

	lowered, err := alang.Lower(blocks)
	require.NoError(t, err)

	for _, lb := range lowered {
		if lb.Block.Name == blockName {
			return lb.Words
		}
	}
	t.Fatalf("no block named %q", blockName)
	return nil
}

func TestLowerEmptyMainEndsWithRET(t *testing.T) {
	words := lowerSource(t, `function main(){}`, "main")
	require.Len(t, words, 1)
	require.Equal(t, alang.RET, words[0].Op)
}

func TestLowerCopyAssignment(t *testing.T) {
	words := lowerSource(t, `function main(){ int a; int b; a=b; }`, "main")
	require.Len(t, words, 3) // LOAD, STORE, RET
	require.Equal(t, alang.LOAD, words[0].Op)
	require.Equal(t, alang.DIR, words[0].M)
	require.Equal(t, alang.STORE, words[1].Op)
	require.Equal(t, alang.DIR, words[1].M)
	require.NotEqual(t, words[0].Data, words[1].Data)
	require.NotZero(t, words[0].Data)
	require.Equal(t, alang.RET, words[2].Op)
}

func TestLowerAddressOfAndDeref(t *testing.T) {
	words := lowerSource(t, `function main(){ int a; int b; a=&b; }`, "main")
	require.Equal(t, alang.LOAD, words[0].Op)
	require.Equal(t, alang.IM, words[0].M)

	words = lowerSource(t, `function main(){ int a; int b; a=*b; }`, "main")
	require.Equal(t, alang.LOAD, words[0].Op)
	require.Equal(t, alang.IND, words[0].M)

	words = lowerSource(t, `function main(){ int a; int b; *a=b; }`, "main")
	require.Equal(t, alang.LOAD, words[0].Op)
	require.Equal(t, alang.DIR, words[0].M)
	require.Equal(t, alang.STORE, words[1].Op)
	require.Equal(t, alang.IND, words[1].M)
}

func TestLowerArithmeticChainIsLeftToRightRegardlessOfOperator(t *testing.T) {
	words := lowerSource(t, `function main(){ int a; int b; int c; int d; a=b+c-d; }`, "main")
	require.Len(t, words, 5) // LOAD, ADD, SUB, STORE, RET
	require.Equal(t, []alang.Mnemonic{alang.LOAD, alang.ADD, alang.SUB, alang.STORE, alang.RET},
		[]alang.Mnemonic{words[0].Op, words[1].Op, words[2].Op, words[3].Op, words[4].Op})
}

func TestLowerDereferenceAsLeadingTermOfChain(t *testing.T) {
	// A leading '*' is the dereference sigil, not the multiply operator,
	// even when followed by further +/-/* terms.
	words := lowerSource(t, `function main(){ int a; int b; int c; a=*b+c; }`, "main")
	require.Len(t, words, 4) // LOAD(IND), ADD, STORE, RET
	require.Equal(t, alang.LOAD, words[0].Op)
	require.Equal(t, alang.IND, words[0].M)
	require.Equal(t, alang.ADD, words[1].Op)
	require.Equal(t, alang.DIR, words[1].M)
}

func TestLowerReturnExpressionChain(t *testing.T) {
	words := lowerSource(t, `function inc(x){ return x+1; }`, "inc")
	// LOAD(x), ADD(1), LOAD GR1<-REG(GR0), RET
	require.Len(t, words, 4)
	require.Equal(t, []alang.Mnemonic{alang.LOAD, alang.ADD, alang.LOAD, alang.RET},
		[]alang.Mnemonic{words[0].Op, words[1].Op, words[2].Op, words[3].Op})
	require.EqualValues(t, 1, words[2].Grx)
	require.Equal(t, alang.REG, words[2].M)
}

func TestLowerIfEndsInJmpBackBeforeRelocation(t *testing.T) {
	blocks, err := alang.Parse(`function main(){ int x; if(x!=0){ x=1; } }`)
	require.NoError(t, err)

	lowered, err := alang.Lower(blocks)
	require.NoError(t, err)

	for _, lb := range lowered {
		if lb.Block.Type == alang.BlockIf {
			last := lb.Words[len(lb.Words)-1]
			require.True(t, last.IsJmpBack())
		}
	}
}

func TestLowerCallSequenceMatchesCallingConvention(t *testing.T) {
	words := lowerSource(t, `
		function inc(x){ return x+1; }
		function main(){ int a; a=inc(1); }
	`, "main")

	require.Len(t, words, 8) // PUSH, LOAD, STORE, JmpTo(CALL), POP, LOAD(REG), STORE, RET
	ops := make([]alang.Mnemonic, len(words))
	for i, w := range words {
		ops[i] = w.Op
	}
	require.Equal(t, alang.PUSH, ops[0])
	require.Equal(t, alang.LOAD, ops[1])
	require.Equal(t, alang.STORE, ops[2])
	require.True(t, words[3].IsJmpTo())
	require.Equal(t, alang.CALL, words[3].Op)
	require.Equal(t, alang.POP, ops[4])
	require.Equal(t, alang.LOAD, ops[5])
	require.Equal(t, alang.REG, words[5].M)
	require.EqualValues(t, 1, words[5].Data)
}

func TestLowerUndeclaredVariableIsCompileError(t *testing.T) {
	blocks, err := alang.Parse(`function main(){ a=1; }`)
	require.NoError(t, err)

	_, err = alang.Lower(blocks)
	require.Error(t, err)
	require.IsType(t, &alang.CompileError{}, err)
}

func TestLowerAddressOfLiteralIsCompileError(t *testing.T) {
	blocks, err := alang.Parse(`function main(){ int a; a=&5; }`)
	require.NoError(t, err)

	_, err = alang.Lower(blocks)
	require.Error(t, err)
	require.IsType(t, &alang.CompileError{}, err)
}

func TestLowerTooManyArgumentsIsCompileError(t *testing.T) {
	blocks, err := alang.Parse(`
		function f(x){ return x; }
		function main(){ int a; int b; a=f(a,b); }
	`)
	require.NoError(t, err)

	_, err = alang.Lower(blocks)
	require.Error(t, err)
	require.IsType(t, &alang.CompileError{}, err)
}
