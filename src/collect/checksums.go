package collect

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ChecksumsFile is written next to the compressed snapshots.
const ChecksumsFile = "checksums.txt"

// WriteChecksums records "<sha256>  <name>" for each file in dir.
func WriteChecksums(dir string, files []string) error {
	out, err := os.Create(filepath.Join(dir, ChecksumsFile))
	if err != nil {
		return &DestinationWriteError{Path: filepath.Join(dir, ChecksumsFile), Err: err}
	}
	defer out.Close()
	for _, name := range files {
		sum, err := sha256File(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(out, "%s  %s\n", sum, name); err != nil {
			return &DestinationWriteError{Path: out.Name(), Err: err}
		}
	}
	return out.Close()
}

// ChecksumResult is the verification outcome for one listed file.
type ChecksumResult struct {
	Name   string `json:"name"`
	Status string `json:"status"` // ok|mismatch|missing|malformed
}

// VerifyChecksums re-hashes every file listed in dir/checksums.txt.
func VerifyChecksums(dir string) ([]ChecksumResult, error) {
	f, err := os.Open(filepath.Join(dir, ChecksumsFile))
	if err != nil {
		return nil, fmt.Errorf("missing %s: %w", ChecksumsFile, err)
	}
	defer f.Close()

	var results []ChecksumResult
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		// Expect format: <sha256>  <filename>
		parts := strings.SplitN(line, "  ", 2)
		if len(parts) != 2 {
			results = append(results, ChecksumResult{Name: line, Status: "malformed"})
			continue
		}
		want, name := parts[0], parts[1]
		sum, err := sha256File(filepath.Join(dir, name))
		switch {
		case os.IsNotExist(err):
			results = append(results, ChecksumResult{Name: name, Status: "missing"})
		case err != nil || !strings.EqualFold(want, sum):
			results = append(results, ChecksumResult{Name: name, Status: "mismatch"})
		default:
			results = append(results, ChecksumResult{Name: name, Status: "ok"})
		}
	}
	return results, scanner.Err()
}

func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
