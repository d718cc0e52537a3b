package verify

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"decisiontrace/pkg/record"
)

// scanBufSize bounds a single sink line; records carry prose explanations
// but nothing close to a megabyte.
const scanBufSize = 1 << 20

// Read parses line-delimited records from r. Blank lines are skipped;
// unparseable lines become LoadErrors tagged with source and line number.
// Reading never stops at a bad line.
func Read(r io.Reader, source string) ([]record.Record, []LoadError) {
	var (
		records  []record.Record
		loadErrs []LoadError
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), scanBufSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		rec, err := record.DecodeLine(line)
		if err != nil {
			loadErrs = append(loadErrs, LoadError{File: source, Line: lineNo, Err: err})
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		loadErrs = append(loadErrs, LoadError{File: source, Line: lineNo + 1, Err: err})
	}
	return records, loadErrs
}

// ReadFile loads one JSONL sink file. The returned error covers only the
// inability to open the file; per-line problems come back as LoadErrors.
func ReadFile(path string) ([]record.Record, []LoadError, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open sink file: %w", err)
	}
	defer f.Close()

	records, loadErrs := Read(f, path)
	return records, loadErrs, nil
}

// ReadAll loads several sink files concurrently and returns their records
// and load errors concatenated in the order the paths were given, so two
// passes over the same inputs see the same sequence.
func ReadAll(ctx context.Context, paths []string) ([]record.Record, []LoadError, error) {
	perFileRecords := make([][]record.Record, len(paths))
	perFileErrs := make([][]LoadError, len(paths))

	g, _ := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			records, loadErrs, err := ReadFile(path)
			if err != nil {
				return err
			}
			perFileRecords[i] = records
			perFileErrs[i] = loadErrs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var (
		records  []record.Record
		loadErrs []LoadError
	)
	for i := range paths {
		records = append(records, perFileRecords[i]...)
		loadErrs = append(loadErrs, perFileErrs[i]...)
	}
	return records, loadErrs, nil
}
