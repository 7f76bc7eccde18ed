package toolbox

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// WriteDelimited writes a 2-D array as text: one row per line, values
// separated by tabs, every row terminated by a newline.  No shape header is
// written; readers must know the shape.
func WriteDelimited(w io.Writer, a *AF32) error {
	if len(a.Shape) != 2 {
		return fmt.Errorf("cannot write array of shape %v as rows", a.Shape)
	}

	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 32)
	for i := 0; i < a.Shape[0]; i++ {
		for j := 0; j < a.Shape[1]; j++ {
			if j > 0 {
				if err := bw.WriteByte('\t'); err != nil {
					return fmt.Errorf("while writing row %d: %w", i, err)
				}
			}
			buf = strconv.AppendFloat(buf[:0], float64(a.At2(i, j)), 'g', -1, 32)
			if _, err := bw.Write(buf); err != nil {
				return fmt.Errorf("while writing row %d: %w", i, err)
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return fmt.Errorf("while writing row %d: %w", i, err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("while flushing rows: %w", err)
	}
	return nil
}

// ReadDelimited parses text written by WriteDelimited into a (rows, cols)
// array.
func ReadDelimited(r io.Reader, rows, cols int) (*AF32, error) {
	out := MakeAF32(rows, cols)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	i := 0
	for sc.Scan() {
		line := sc.Text()
		if i >= rows {
			if strings.TrimSpace(line) == "" {
				continue
			}
			return nil, fmt.Errorf("more than %d rows", rows)
		}

		fields := strings.Split(line, "\t")
		if len(fields) != cols {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(fields), cols)
		}
		for j, f := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 32)
			if err != nil {
				return nil, fmt.Errorf("while parsing row %d column %d: %w", i, j, err)
			}
			out.Set2(i, j, float32(v))
		}
		i++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("while scanning rows: %w", err)
	}
	if i != rows {
		return nil, fmt.Errorf("got %d rows, want %d", i, rows)
	}

	return out, nil
}
