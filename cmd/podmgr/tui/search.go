package tui

import "strings"

// computeMatches returns the indexes of lines containing the pattern,
// case-insensitively, in order.
func computeMatches(lines []string, pattern string) []int {
	if pattern == "" {
		return nil
	}
	needle := strings.ToLower(pattern)
	var matches []int
	for i, line := range lines {
		if strings.Contains(strings.ToLower(line), needle) {
			matches = append(matches, i)
		}
	}
	return matches
}

// nextMatchIdx advances through the match list, wrapping around. reverse
// flips the direction, mirroring n/N after a ?-search.
func nextMatchIdx(current, total int, reverse bool) int {
	if total == 0 {
		return 0
	}
	if reverse {
		return (current - 1 + total) % total
	}
	return (current + 1) % total
}

// refreshSearch recomputes match positions against the current output,
// clamping the active match index.
func refreshSearch(m Model) Model {
	job := m.searchTarget()
	if job == nil || m.SearchPattern == "" {
		m.Matches = nil
		m.MatchIdx = 0
		return m
	}
	m.Matches = computeMatches(job.Output(), m.SearchPattern)
	if m.MatchIdx >= len(m.Matches) {
		m.MatchIdx = 0
	}
	return m
}
