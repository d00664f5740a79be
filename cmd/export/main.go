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

	"github.com/eigensim/eigensim/internal/sim"
	"github.com/eigensim/eigensim/internal/store"
)

func main() {
	var (
		dataDir    = flag.String("data-dir", "./data", "Directory with dataset files")
		model      = flag.Int("model", 0, "Model selector 0-4")
		dim        = flag.Int("dim", 3, "Matrix dimension")
		steps      = flag.Int("steps", 1000, "Time steps per trial")
		outputPath = flag.String("output", "eigenvalues.csv.zst", "Output CSV file (.zst compresses)")
	)
	flag.Parse()

	m, ok := sim.ModelFromNumber(uint8(*model))
	if !ok {
		fmt.Fprintf(os.Stderr, "invalid model %d (valid: 0-4)\n", *model)
		os.Exit(1)
	}
	cfg := sim.Config{Model: m, Dim: *dim, Steps: *steps}
	path := filepath.Join(*dataDir, cfg.Filename())
	header := store.Header{Model: uint8(m), Dim: uint8(*dim), Steps: uint32(*steps)}

	fmt.Printf("Opening dataset: %s\n", path)
	it, err := store.OpenIterator(path, header)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open dataset: %v\n", err)
		os.Exit(1)
	}
	defer it.Close()

	outFile, err := os.Create(*outputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create output file: %v\n", err)
		os.Exit(1)
	}
	defer outFile.Close()

	var out io.Writer = outFile
	var zw *zstd.Encoder
	if strings.HasSuffix(*outputPath, ".zst") {
		zw, err = zstd.NewWriter(outFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "zstd writer: %v\n", err)
			os.Exit(1)
		}
		out = zw
	}
	writer := csv.NewWriter(out)

	var exported uint64
	for rec := it.Next(); rec != nil; rec = it.Next() {
		if exported == 0 {
			if err := writer.Write(csvHeader(len(rec.Values))); err != nil {
				fmt.Fprintf(os.Stderr, "write header: %v\n", err)
				os.Exit(1)
			}
		}
		row := make([]string, 0, 1+len(rec.Values))
		row = append(row, strconv.FormatUint(uint64(rec.Seed), 10))
		for _, v := range rec.Values {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := writer.Write(row); err != nil {
			fmt.Fprintf(os.Stderr, "write row: %v\n", err)
			os.Exit(1)
		}
		exported++
		if exported%1000000 == 0 {
			fmt.Printf("Exported %d records...\n", exported)
		}
	}
	if err := it.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "read dataset: %v\n", err)
		os.Exit(1)
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		fmt.Fprintf(os.Stderr, "flush csv: %v\n", err)
		os.Exit(1)
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "close zstd: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Printf("Exported %d records to %s\n", exported, *outputPath)
}

func csvHeader(values int) []string {
	h := make([]string, 0, 1+values)
	h = append(h, "seed")
	for i := 0; i < values; i++ {
		h = append(h, fmt.Sprintf("v%d", i))
	}
	return h
}
