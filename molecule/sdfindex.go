package molecule

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// IndexSDF returns the byte offset at which every record of an SD file
// starts, so single records of a large file can be read with ReadRecordAt.
func IndexSDF(r io.Reader) ([]int64, error) {
	br := bufio.NewReader(r)
	var (
		offsets []int64
		pos     int64
		start   int64 = -1
	)
	for {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "$$$$":
			if start >= 0 {
				offsets = append(offsets, start)
			}
			start = -1
		case start < 0 && line != "":
			start = pos
		}
		pos += int64(len(line))
		if err == io.EOF {
			break
		}
	}
	// 最后一条记录可能没有 "$$$$" 结尾
	if start >= 0 && pos > start {
		offsets = append(offsets, start)
	}
	return offsets, nil
}

// WriteIndex writes offsets one per line, the layout LoadIndex reads back.
func WriteIndex(w io.Writer, offsets []int64) error {
	bw := bufio.NewWriter(w)
	for _, off := range offsets {
		bw.WriteString(strconv.FormatInt(off, 10))
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// LoadIndex reads an offset index, one decimal offset per line.
func LoadIndex(r io.Reader) ([]int64, error) {
	var offsets []int64
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		off, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse offset %q: %w", line, err)
		}
		offsets = append(offsets, off)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return offsets, nil
}

// ReadRecordAt parses the record starting at offset off, reading up to the
// next "$$$$" line or the end of the file.
func ReadRecordAt(r io.ReadSeeker, off int64) (*Molecule, error) {
	if _, err := r.Seek(off, io.SeekStart); err != nil {
		return nil, err
	}
	reader := bufio.NewReader(r)
	var sb strings.Builder
	for {
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		if strings.TrimSpace(line) == "$$$$" {
			break
		}
		sb.WriteString(line)
		if !strings.HasSuffix(line, "\n") {
			sb.WriteString("\n")
		}
		if err == io.EOF {
			break
		}
	}
	return ParseMolBlock(sb.String())
}
