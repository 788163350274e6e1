package tape

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"tracetape.org/tracetape/opcode"
)

// Format selects how operations are written.
type Format int

const (
	// Compact writes operations as their integer code.
	// It is the format consumed by external evaluators.
	Compact Format = iota
	// Readable writes operations as their mnemonic.
	Readable
)

func (f Format) String() string {
	switch f {
	case Compact:
		return "compact"
	case Readable:
		return "readable"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// ParseFormat parses the output of Format.String
func ParseFormat(x string) (Format, error) {
	switch x {
	case "compact":
		return Compact, nil
	case "readable":
		return Readable, nil
	default:
		return 0, fmt.Errorf("tape: unknown format %q", x)
	}
}

// Write encodes t to w.
//
// The first line is "nInputs nOutputs nInstructions".
// Each instruction follows on its own line as "blockEnd operand1 operand2 operation value".
func Write(w io.Writer, t *Tape, f Format) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%d %d %d\n", t.NumInputs, t.NumOutputs, len(t.Instructions)); err != nil {
		return err
	}
	for _, in := range t.Instructions {
		var err error
		switch f {
		case Readable:
			_, err = fmt.Fprintf(bw, "%9d %9d %9d %5s %s\n", in.BlockEnd, in.Operand1, in.Operand2, in.Op.String(), FormatValue(in.Value))
		case Compact:
			_, err = fmt.Fprintf(bw, "%9d %9d %9d %9d %s\n", in.BlockEnd, in.Operand1, in.Operand2, in.Op.Code(), FormatValue(in.Value))
		default:
			return fmt.Errorf("tape: unknown format %v", f)
		}
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}

// FormatValue formats v in exponent notation with at least 15 digits after the point.
// Values which need more digits to be read back exactly get the digits they need.
func FormatValue(v float64) string {
	s := strconv.FormatFloat(v, 'e', -1, 64)
	i := strings.IndexByte(s, 'e')
	if i < 0 {
		// Inf and NaN
		return s
	}
	mant, exp := s[:i], s[i:]
	digits := 0
	if j := strings.IndexByte(mant, '.'); j >= 0 {
		digits = len(mant) - j - 1
	} else {
		mant += "."
	}
	if digits < 15 {
		mant += strings.Repeat("0", 15-digits)
	}
	return mant + exp
}

// Marshal returns the encoding of t
func Marshal(t *Tape, f Format) []byte {
	var buf bytes.Buffer
	if err := Write(&buf, t, f); err != nil {
		panic(err) // bytes.Buffer does not return errors
	}
	return buf.Bytes()
}

// Read decodes a tape written in either format.
// Operations may be given as integer codes or mnemonics.
// Read does not call Validate.
func Read(r io.Reader) (*Tape, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	var lineNum int
	next := func() ([]string, bool) {
		for sc.Scan() {
			lineNum++
			fields := strings.Fields(sc.Text())
			if len(fields) > 0 {
				return fields, true
			}
		}
		return nil, false
	}

	header, ok := next()
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !ok {
		return nil, FormatError{Msg: "missing header"}
	}
	if len(header) != 3 {
		return nil, FormatError{Line: lineNum, Msg: fmt.Sprintf("header has %d fields, want 3", len(header))}
	}
	var counts [3]int
	for i, field := range header {
		n, err := strconv.Atoi(field)
		if err != nil || n < 0 {
			return nil, FormatError{Line: lineNum, Msg: fmt.Sprintf("bad count %q in header", field)}
		}
		counts[i] = n
	}
	t := &Tape{
		NumInputs:    counts[0],
		NumOutputs:   counts[1],
		Instructions: make([]Instruction, 0, min(counts[2], 1<<16)),
	}
	for {
		fields, ok := next()
		if !ok {
			break
		}
		if len(t.Instructions) == counts[2] {
			return nil, FormatError{Line: lineNum, Msg: fmt.Sprintf("more than the %d instructions declared in the header", counts[2])}
		}
		in, err := parseInstruction(fields)
		if err != nil {
			return nil, FormatError{Line: lineNum, Msg: err.Error()}
		}
		t.Instructions = append(t.Instructions, in)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(t.Instructions) != counts[2] {
		return nil, FormatError{Msg: fmt.Sprintf("header declares %d instructions, found %d", counts[2], len(t.Instructions))}
	}
	return t, nil
}

// Unmarshal is Read on a byte slice.
func Unmarshal(data []byte) (*Tape, error) {
	return Read(bytes.NewReader(data))
}

func parseInstruction(fields []string) (Instruction, error) {
	if len(fields) != 5 {
		return Instruction{}, fmt.Errorf("instruction has %d fields, want 5", len(fields))
	}
	var ints [3]int
	for i := range ints {
		n, err := strconv.Atoi(fields[i])
		if err != nil {
			return Instruction{}, fmt.Errorf("bad index %q", fields[i])
		}
		if n < Unset {
			return Instruction{}, fmt.Errorf("negative index %d", n)
		}
		ints[i] = n
	}
	op, err := parseOp(fields[3])
	if err != nil {
		return Instruction{}, err
	}
	val, err := strconv.ParseFloat(fields[4], 64)
	if err != nil {
		return Instruction{}, fmt.Errorf("bad value %q", fields[4])
	}
	return Instruction{
		BlockEnd: ints[0],
		Operand1: ints[1],
		Operand2: ints[2],
		Op:       op,
		Value:    val,
	}, nil
}

func parseOp(x string) (opcode.Op, error) {
	if code, err := strconv.Atoi(x); err == nil {
		return opcode.FromCode(code)
	}
	return opcode.Parse(x)
}
