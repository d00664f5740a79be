package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/eigensim/eigensim/internal/logx"
	"github.com/eigensim/eigensim/internal/sim"
	"github.com/eigensim/eigensim/internal/store"
)

const importBatch = 1000

func main() {
	var (
		dataDir   = flag.String("data-dir", "./data", "Directory for dataset files")
		model     = flag.Int("model", 0, "Model selector 0-4")
		dim       = flag.Int("dim", 3, "Matrix dimension")
		steps     = flag.Int("steps", 1000, "Time steps per trial")
		inputPath = flag.String("input", "", "Input CSV file (supports .zst)")
	)
	flag.Parse()

	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: import --input <file.csv[.zst]> [options]")
		flag.PrintDefaults()
		os.Exit(1)
	}
	m, ok := sim.ModelFromNumber(uint8(*model))
	if !ok {
		fmt.Fprintf(os.Stderr, "invalid model %d (valid: 0-4)\n", *model)
		os.Exit(1)
	}
	logger := logx.NewLogger()

	inFile, err := os.Open(*inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open input file: %v\n", err)
		os.Exit(1)
	}
	defer inFile.Close()

	var in io.Reader = inFile
	if strings.HasSuffix(*inputPath, ".zst") {
		zr, err := zstd.NewReader(inFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "zstd reader: %v\n", err)
			os.Exit(1)
		}
		defer zr.Close()
		in = zr
	}
	reader := csv.NewReader(in)

	// Skip header row.
	if _, err := reader.Read(); err != nil {
		fmt.Fprintf(os.Stderr, "read header row: %v\n", err)
		os.Exit(1)
	}

	cfg := sim.Config{Model: m, Dim: *dim, Steps: *steps}
	path := filepath.Join(*dataDir, cfg.Filename())

	// Imports rebuild from scratch; an existing dataset under the same
	// name is replaced, not appended to.
	if err := os.MkdirAll(*dataDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "create data dir: %v\n", err)
		os.Exit(1)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "remove existing dataset: %v\n", err)
		os.Exit(1)
	}

	file, err := store.OpenOrCreate(path, store.Header{
		Model: uint8(m), Dim: uint8(*dim), Steps: uint32(*steps),
	}, store.Options{Logger: logger})
	if err != nil {
		fmt.Fprintf(os.Stderr, "create dataset: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	var total uint64
	batch := make([]store.Record, 0, importBatch)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "read row %d: %v\n", total+1, err)
			os.Exit(1)
		}
		rec, err := parseRow(row)
		if err != nil {
			fmt.Fprintf(os.Stderr, "row %d: %v\n", total+1, err)
			os.Exit(1)
		}
		batch = append(batch, rec)
		total++
		if len(batch) == importBatch {
			if err := file.Append(batch); err != nil {
				fmt.Fprintf(os.Stderr, "append: %v\n", err)
				os.Exit(1)
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := file.Append(batch); err != nil {
			fmt.Fprintf(os.Stderr, "append: %v\n", err)
			os.Exit(1)
		}
	}
	if err := file.Finalize(total); err != nil {
		fmt.Fprintf(os.Stderr, "finalize: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Imported %d records into %s\n", total, path)
}

func parseRow(row []string) (store.Record, error) {
	if len(row) < 2 {
		return store.Record{}, fmt.Errorf("need seed and at least one value, got %d fields", len(row))
	}
	seed, err := strconv.ParseUint(row[0], 10, 32)
	if err != nil {
		return store.Record{}, fmt.Errorf("seed %q: %w", row[0], err)
	}
	values := make([]float64, len(row)-1)
	for i, field := range row[1:] {
		values[i], err = strconv.ParseFloat(field, 64)
		if err != nil {
			return store.Record{}, fmt.Errorf("value %q: %w", field, err)
		}
	}
	return store.Record{Seed: uint32(seed), Values: values}, nil
}
