package reporting

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"social-account-lab/internal/domain"
)

// ParseHandleList reads the newline-delimited handle format. Blank lines and
// lines starting with # are ignored; handles are normalized and deduplicated
// preserving first-seen order.
func ParseHandleList(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	seen := make(map[string]bool)
	var handles []string

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		handle := domain.NormalizeHandle(line)
		if handle == "" || seen[handle] {
			continue
		}
		seen[handle] = true
		handles = append(handles, handle)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read handle list: %w", err)
	}
	return handles, nil
}

// ParseInputHandles accepts either candidate file format: the tabular CSV
// (detected by its header) or the plain handle list.
func ParseInputHandles(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	content := string(data)
	if isCandidateCSV(content) {
		candidates, err := ParseCandidatesCSV(strings.NewReader(content))
		if err != nil {
			return nil, err
		}
		seen := make(map[string]bool)
		var handles []string
		for _, c := range candidates {
			if !seen[c.Handle] {
				seen[c.Handle] = true
				handles = append(handles, c.Handle)
			}
		}
		return handles, nil
	}

	return ParseHandleList(strings.NewReader(content))
}

// isCandidateCSV detects the tabular format by its header line.
func isCandidateCSV(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		return strings.HasPrefix(trimmed, "handle,")
	}
	return false
}
