package tapecmd

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.brendoncarroll.net/exp/slices2"

	"tracetape.org/tracetape/tape"
)

// ReadVectors reads one input vector per line, as whitespace separated numbers.
// Blank lines and lines starting with '#' are skipped.
// Every vector must have n elements.
func ReadVectors(r io.Reader, n int) ([][]float64, error) {
	var ret [][]float64
	sc := bufio.NewScanner(r)
	var lineNum int
	for sc.Scan() {
		lineNum++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != n {
			return nil, fmt.Errorf("line %d: have %d inputs, want %d", lineNum, len(fields), n)
		}
		xs := make([]float64, n)
		for i, f := range fields {
			x, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			xs[i] = x
		}
		ret = append(ret, xs)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

// WriteVectors writes one output vector per line, in the same notation as tape values.
func WriteVectors(w io.Writer, vecs [][]float64) error {
	bw := bufio.NewWriter(w)
	for _, vec := range vecs {
		strs := slices2.Map(vec, func(x float64) string {
			return tape.FormatValue(x)
		})
		if _, err := fmt.Fprintln(bw, strings.Join(strs, " ")); err != nil {
			return err
		}
	}
	return bw.Flush()
}
