package extract

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// CountAssignments counts streamlines in a tck2connectome assignment table
// whose nodes match the request. Exclusive requires every node of the
// streamline to be in nodes and at least one to be nonzero; otherwise any
// nonzero requested node suffices. Lines starting with # are comments.
func CountAssignments(path string, nodes []int, exclusive bool) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	wanted := make(map[int]struct{}, len(nodes))
	for _, n := range nodes {
		wanted[n] = struct{}{}
	}

	count := 0
	lineNo := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		assigned, err := parseAssignment(line)
		if err != nil {
			return 0, fmt.Errorf("extract: assignments %s line %d: %w", path, lineNo, err)
		}
		if matchesNodes(assigned, wanted, exclusive) {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	return count, nil
}

func parseAssignment(line string) ([]int, error) {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ','
	})
	out := make([]int, 0, len(fields))
	for _, field := range fields {
		n, err := strconv.Atoi(field)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func matchesNodes(assigned []int, wanted map[int]struct{}, exclusive bool) bool {
	hit := false
	for _, n := range assigned {
		_, ok := wanted[n]
		if exclusive && !ok {
			return false
		}
		if ok && n != 0 {
			hit = true
		}
	}
	return hit
}
