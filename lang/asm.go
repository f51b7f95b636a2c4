package alang

import (
	"fmt"
	"strconv"
	"strings"
)

// Format renders a placed, relocation-free program as human-readable
// assembly text: one "OP GRX M DATA" line per instruction, symbolic
// addressing mode, ready to be fed back into Assemble.
func Format(program []Word) string {
	return FormatDebug(program, nil)
}

// FormatDebug is Format plus, when symbols is non-nil, a trailing "// TEXT"
// debug-symbol comment on every address that has source text attached —
// the assembly-level analogue of the teacher's single-step debugger
// printing the source line behind the current instruction.
func FormatDebug(program []Word, symbols map[int]string) string {
	var sb strings.Builder
	for idx, w := range program {
		fmt.Fprintf(&sb, "%s %d %s %d", w.Op, w.Grx, w.M, w.Data)
		if text, ok := symbols[idx]; ok && text != "" {
			fmt.Fprintf(&sb, " // %s", text)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Assemble encodes assembly text, one instruction per line, into one
// 33-character ASCII binary word per line. Fields are OP [GRX [M [DATA]]],
// numeric fields accept decimal, 0x and 0b, and M may also be given
// symbolically (DIR/IM/IND/IDX/REG). Missing fields default to zero.
func Assemble(text string) (string, error) {
	var out []string
	for row, rawLine := range strings.Split(text, "\n") {
		line := strings.TrimSpace(rawLine)
		if comment := strings.Index(line, "//"); comment >= 0 {
			line = strings.TrimSpace(line[:comment])
		}
		if line == "" {
			continue
		}

		encoded, err := assembleLine(strings.Fields(line))
		if err != nil {
			return "", &AssembleError{Row: row, Line: rawLine, Msg: err.Error()}
		}
		out = append(out, encoded)
	}
	return strings.Join(out, "\n"), nil
}

func assembleLine(fields []string) (string, error) {
	if len(fields) == 0 || len(fields) > 4 {
		return "", fmt.Errorf("expected 1 to 4 fields, got %d", len(fields))
	}

	op, ok := LookupMnemonic(strings.ToUpper(fields[0]))
	if !ok {
		return "", fmt.Errorf("unknown mnemonic %q", fields[0])
	}

	var grx, m, data uint32
	if len(fields) >= 2 {
		v, err := parseField(fields[1])
		if err != nil || v > 31 {
			return "", fmt.Errorf("invalid register index %q", fields[1])
		}
		grx = v
	}
	if len(fields) >= 3 {
		if mode, ok := LookupAddrMode(strings.ToUpper(fields[2])); ok {
			m = uint32(mode)
		} else {
			v, err := parseField(fields[2])
			if err != nil || v > 4 {
				return "", fmt.Errorf("invalid addressing mode %q", fields[2])
			}
			m = v
		}
	}
	if len(fields) >= 4 {
		v, err := parseField(fields[3])
		if err != nil || v > 0xFFFFF {
			return "", fmt.Errorf("invalid data value %q", fields[3])
		}
		data = v
	}

	return fmt.Sprintf("%05b%05b%03b%020b", uint8(op), grx, m, data), nil
}

func parseField(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}
