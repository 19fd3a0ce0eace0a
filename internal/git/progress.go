package git

import (
	"bufio"
	"bytes"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// ProgressFunc receives incremental checkout progress. completed/total are
// non-decreasing within one call to Checkout.
type ProgressFunc func(label string, completed, total int)

// Progress is one parsed "Updating files:  45% (9/20)" record.
type Progress struct {
	Label     string
	Completed int
	Total     int
}

var progressLine = regexp.MustCompile(`^\s*([^:]+):\s+\d+%\s+\((\d+)/(\d+)\)`)

// ParseProgressLine extracts a progress record from one line of git's
// --progress output.
func ParseProgressLine(line string) (Progress, bool) {
	m := progressLine.FindStringSubmatch(line)
	if m == nil {
		return Progress{}, false
	}

	completed, err := strconv.Atoi(m[2])
	if err != nil {
		return Progress{}, false
	}
	total, err := strconv.Atoi(m[3])
	if err != nil {
		return Progress{}, false
	}

	return Progress{
		Label:     strings.TrimSpace(m[1]),
		Completed: completed,
		Total:     total,
	}, true
}

// scanProgress reads git stderr, reporting progress records and collecting
// everything else into other.
func scanProgress(r io.Reader, report func(Progress), other io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Split(scanRecords)

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		if p, ok := ParseProgressLine(line); ok {
			report(p)
			continue
		}

		_, _ = io.WriteString(other, line+"\n")
	}

	return scanner.Err()
}

// scanRecords splits on '\n' and on the '\r' git uses to redraw progress.
func scanRecords(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
