// Package statement parses bank and credit card statement exports into a
// normalized transaction sequence.
//
// Two backends are supported:
//   - OFX/QFX (and QBO) interchange files, via ofxgo
//   - delimited text (CSV) with caller-named columns
//
// A sniffer picks the backend when the caller asks for FormatAuto: known
// interchange extensions route directly, otherwise a short byte prefix is
// checked for OFX signature tokens and CSV is the fallback.
package statement

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const sniffLen = 512

// Parse reads the statement file at path and returns its normalized
// transactions. It fails when the file cannot be opened or is structurally
// invalid for the selected backend; individual bad rows are skipped, not
// fatal.
func Parse(path string, opts Options) (*Statement, error) {
	format := opts.Format
	if format == "" || format == FormatAuto {
		detected, err := DetectFormat(path)
		if err != nil {
			return nil, err
		}
		format = detected
	}

	switch format {
	case FormatOFX:
		return parseOFX(path)
	case FormatCSV:
		return parseCSV(path, opts)
	default:
		return nil, fmt.Errorf("unsupported statement format %q", format)
	}
}

// DetectFormat sniffs the statement format by extension, then by content.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ofx", ".qfx", ".qbo":
		return FormatOFX, nil
	case ".csv":
		return FormatCSV, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open statement file: %w", err)
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, _ := f.Read(head)
	head = head[:n]

	if bytes.Contains(head, []byte("<OFX")) || bytes.Contains(head, []byte("OFXHEADER")) {
		return FormatOFX, nil
	}
	return FormatCSV, nil
}
