// Package parser picks the right decoder for an input file based on
// its extension (or an explicit format override) and renders the
// result for the CLI.
package parser

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ossyrian/ipftools/internal/config"
	"github.com/ossyrian/ipftools/internal/ies"
	"github.com/ossyrian/ipftools/internal/ipf"
	"github.com/ossyrian/ipftools/internal/xac"
	"github.com/ossyrian/ipftools/internal/xsm"
)

// Format identifies one of the four decodable asset kinds.
type Format string

const (
	FormatIPF Format = "ipf"
	FormatIES Format = "ies"
	FormatXAC Format = "xac"
	FormatXSM Format = "xsm"
)

// DetectFormat picks a Format from an explicit override or, failing
// that, the input path's extension.
func DetectFormat(explicit, path string) (Format, error) {
	if explicit != "" {
		f := Format(strings.ToLower(explicit))
		switch f {
		case FormatIPF, FormatIES, FormatXAC, FormatXSM:
			return f, nil
		default:
			return "", fmt.Errorf("parser: unknown format override %q", explicit)
		}
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "ipf":
		return FormatIPF, nil
	case "ies":
		return FormatIES, nil
	case "xac":
		return FormatXAC, nil
	case "xsm":
		return FormatXSM, nil
	default:
		return "", fmt.Errorf("parser: cannot detect format from extension %q", ext)
	}
}

// Result is the outcome of decoding one input file, ready for the
// CLI to render as JSON or a hex summary.
type Result struct {
	Format Format
	Value  any

	// Raw holds extracted plaintext bytes when the operation produced
	// some (an IPF entry extraction). Only Raw is available to render
	// in hex mode; other formats always render as JSON regardless of
	// the requested output mode.
	Raw []byte
}

// Run decodes cfg.InputFile according to cfg.Format (or its
// extension) and returns the decoded value.
func Run(cfg *config.Config) (*Result, error) {
	logger := slog.With("file", cfg.InputFile)

	format, err := DetectFormat(cfg.Format, cfg.InputFile)
	if err != nil {
		return nil, err
	}

	logger.Info("decoding", "format", format)

	switch format {
	case FormatIPF:
		return runIPF(cfg, logger)
	case FormatIES:
		value, err := ies.Open(cfg.InputFile)
		if err != nil {
			return nil, err
		}
		logger.Info("decoded ies table", "columns", len(value.Columns), "rows", len(value.Rows))
		return &Result{Format: format, Value: value}, nil
	case FormatXAC:
		value, err := xac.Open(cfg.InputFile)
		if err != nil {
			return nil, err
		}
		for _, w := range value.Warnings {
			logger.Warn(w)
		}
		logger.Info("decoded xac mesh", "meshes", len(value.Meshes), "nodes", len(value.NodeHierarchy.Nodes))
		return &Result{Format: format, Value: value}, nil
	case FormatXSM:
		value, err := xsm.Open(cfg.InputFile)
		if err != nil {
			return nil, err
		}
		for _, w := range value.Warnings {
			logger.Warn(w)
		}
		logger.Info("decoded xsm animation", "submotions", len(value.BoneAnimation.SubMotions))
		return &Result{Format: format, Value: value}, nil
	default:
		return nil, fmt.Errorf("parser: unhandled format %q", format)
	}
}

// ipfResult is what gets rendered for an IPF archive listing: its
// entry table plus summary statistics. An extraction
// (cfg.ExtractIndex >= 0) renders a different value instead: the
// entry and its byte count, with the bytes themselves in Result.Raw.
type ipfResult struct {
	Header  ipf.Header  `json:"header"`
	Entries []ipf.Entry `json:"entries"`
	Stats   ipf.Stats   `json:"stats"`
}

func runIPF(cfg *config.Config, logger *slog.Logger) (*Result, error) {
	archive, err := ipf.Open(cfg.InputFile)
	if err != nil {
		return nil, err
	}

	logger.Info("opened ipf archive", "entries", len(archive.Entries))

	if cfg.ExtractIndex >= 0 {
		data, err := archive.Extract(cfg.ExtractIndex)
		if err != nil {
			return nil, fmt.Errorf("parser: extract entry %d: %w", cfg.ExtractIndex, err)
		}
		if cfg.OutputFile != "" && !cfg.DryRun {
			if err := writeFile(cfg.OutputFile, data); err != nil {
				return nil, err
			}
		}
		return &Result{
			Format: FormatIPF,
			Value: map[string]any{
				"entry":     archive.Entries[cfg.ExtractIndex],
				"byteCount": len(data),
			},
			Raw: data,
		}, nil
	}

	return &Result{Format: FormatIPF, Value: ipfResult{
		Header:  archive.Header,
		Entries: archive.Entries,
		Stats:   ipf.ComputeStats(archive.Entries),
	}}, nil
}

func writeFile(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("parser: create output %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("parser: write output %s: %w", path, err)
	}
	return nil
}

// RenderJSON writes r as indented JSON to w.
func RenderJSON(w io.Writer, r *Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r.Value)
}

// Render writes r to w according to mode ("json" or "hex"). Hex mode
// only applies when r carries extracted raw bytes (an IPF entry
// extraction); every other result renders as JSON regardless of mode.
func Render(w io.Writer, r *Result, mode string) error {
	if strings.ToLower(mode) == "hex" && r.Raw != nil {
		writeHexDump(w, r.Raw)
		return nil
	}
	return RenderJSON(w, r)
}

const hexDumpBytesPerLine = 16

// writeHexDump renders data as offset/hex/ASCII rows, in the style of
// the original tooling's print_hex_viewer.
func writeHexDump(w io.Writer, data []byte) {
	for i := 0; i < len(data); i += hexDumpBytesPerLine {
		end := i + hexDumpBytesPerLine
		if end > len(data) {
			end = len(data)
		}
		chunk := data[i:end]

		fmt.Fprintf(w, "%08d  ", i)
		for _, b := range chunk {
			fmt.Fprintf(w, "%02X ", b)
		}
		for pad := hexDumpBytesPerLine - len(chunk); pad > 0; pad-- {
			fmt.Fprint(w, "   ")
		}
		fmt.Fprint(w, " ")
		for _, b := range chunk {
			if b >= 0x21 && b <= 0x7E || b == ' ' {
				fmt.Fprintf(w, "%c", b)
			} else {
				fmt.Fprint(w, ".")
			}
		}
		fmt.Fprintln(w)
	}
}
