// Package alang implements the alang compiler: a lexer/parser, a lowerer
// that produces a linear instruction stream with forward-reference
// placeholders, a placement pass that binds those placeholders to concrete
// jump/call targets, and an assembler that encodes the result into 33-bit
// machine words for the target accumulator/register virtual machine.
//
// The pipeline is always parse -> lower -> place -> assemble, run
// synchronously by Compile. There is no optimisation, no type checking
// beyond "is this identifier declared," and no linking across files.
package alang
