package results

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Header is the exact first line of a results file, trailing spaces
// included.
const Header = "Experiment Index,Packing Density,Big Particle Percentage [%],Small Particle Percentage [%],Ratio of Container and Big Particle = 1: ,Ratio of Big Particle and Small Particle = 1: "

const fieldsPerRow = 6

var (
	ErrHeaderMismatch = errors.New("csv header does not match")
	ErrMalformedRow   = errors.New("malformed csv row")
	ErrNoResults      = errors.New("no results to export")
)

// Encode writes the header and one row per result, numbering rows from 1
// in the given order.
func Encode(w io.Writer, rs []Result) error {
	if len(rs) == 0 {
		return ErrNoResults
	}
	if _, err := io.WriteString(w, Header+"\n"); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	cw := csv.NewWriter(w)
	for i, r := range rs {
		row := []string{
			strconv.Itoa(i + 1),
			formatFloat(r.PackingDensity),
			formatFloat(r.BigPercentage),
			formatFloat(r.SmallPercentage),
			strconv.Itoa(r.ContainerBigRatio),
			strconv.Itoa(r.BigSmallRatio),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Decode reads a results file. Carriage returns are ignored and blank lines
// skipped. The header must match exactly and every row must parse, or
// nothing is returned.
func Decode(r io.Reader) ([]Result, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	text := strings.ReplaceAll(string(raw), "\r", "")

	header, body, _ := strings.Cut(text, "\n")
	if header != Header {
		return nil, ErrHeaderMismatch
	}

	cr := csv.NewReader(strings.NewReader(body))
	cr.FieldsPerRecord = fieldsPerRow
	cr.ReuseRecord = true

	var out []Result
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, fmt.Errorf("line %d: %v: %w", pe.Line+1, pe.Err, ErrMalformedRow)
			}
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		res, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line+1, err)
		}
		out = append(out, res)
	}
	return out, nil
}

func parseRow(rec []string) (Result, error) {
	var (
		res  Result
		errs []error
	)
	parseInt := func(name, s string) int {
		v, err := strconv.Atoi(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s %q: %w", name, s, ErrMalformedRow))
		}
		return v
	}
	parseFloat := func(name, s string) float64 {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s %q: %w", name, s, ErrMalformedRow))
		}
		return v
	}

	res.Index = parseInt("index", rec[0])
	res.PackingDensity = parseFloat("packing density", rec[1])
	res.BigPercentage = parseFloat("big percentage", rec[2])
	res.SmallPercentage = parseFloat("small percentage", rec[3])
	res.ContainerBigRatio = parseInt("container:big ratio", rec[4])
	res.BigSmallRatio = parseInt("big:small ratio", rec[5])

	if len(errs) > 0 {
		return Result{}, errs[0]
	}
	return res, nil
}
