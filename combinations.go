package hotspot

import (
	"regexp"
	"strconv"
	"strings"
)

// The combination matrix in `iw phy <phy> info` looks like:
//
//	valid interface combinations:
//		 * #{ managed } <= 1, #{ AP, P2P-client, P2P-GO } <= 1, #{ P2P-device } <= 1,
//		   total <= 3, #channels <= 2
//		 * #{ IBSS } <= 1, #{ managed } <= 1, total <= 2, #channels <= 1
//
// Entries start with '*' and may wrap across lines. Drivers that cannot run
// multiple interfaces report "interface combinations are not supported".

var (
	roleLimitRe  = regexp.MustCompile(`#\{\s*([^}]+?)\s*\}\s*<=\s*(\d+)`)
	totalLimitRe = regexp.MustCompile(`\btotal\s*<=\s*(\d+)`)
	channelsRe   = regexp.MustCompile(`#channels\s*<=\s*(\d+)`)
)

// ParseCombinations parses the valid-interface-combinations block of an
// `iw phy info` dump into concurrency groups. Input may be the whole dump
// or just the block; entries that carry no role limits are dropped. Returns
// nil when the driver reports no combination support.
func ParseCombinations(raw string) []ConcurrencyGroup {
	if strings.Contains(raw, "interface combinations are not supported") {
		return nil
	}

	block := combinationsBlock(raw)
	if block == "" {
		return nil
	}

	var groups []ConcurrencyGroup
	for _, entry := range splitCombinationEntries(block) {
		g := parseCombinationEntry(entry)
		if len(g.Limits) == 0 {
			continue
		}
		groups = append(groups, g)
	}
	return groups
}

// combinationsBlock extracts the combination section from a full phy dump:
// everything after the header until the indentation returns to a new
// top-level section.
func combinationsBlock(raw string) string {
	lines := strings.Split(raw, "\n")
	start := -1
	for i, line := range lines {
		if strings.Contains(line, "valid interface combinations:") {
			start = i + 1
			break
		}
	}
	if start == -1 {
		// Caller may already have isolated the block.
		if strings.Contains(raw, "#{") {
			return raw
		}
		return ""
	}

	var block []string
	for _, line := range lines[start:] {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		// Entry and continuation lines are indented deeper than the header
		// and either start a new entry or continue the previous one.
		if !strings.HasPrefix(trimmed, "*") && !isContinuation(trimmed) {
			break
		}
		block = append(block, line)
	}
	return strings.Join(block, "\n")
}

// isContinuation recognizes wrapped entry lines, which carry limits but no
// leading '*'.
func isContinuation(trimmed string) bool {
	return strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "total")
}

// splitCombinationEntries joins wrapped lines back into one string per
// '*'-prefixed entry.
func splitCombinationEntries(block string) []string {
	var entries []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			entries = append(entries, current.String())
			current.Reset()
		}
	}

	for _, line := range strings.Split(block, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "*") {
			flush()
			current.WriteString(strings.TrimSpace(strings.TrimPrefix(trimmed, "*")))
			continue
		}
		current.WriteByte(' ')
		current.WriteString(trimmed)
	}
	flush()

	return entries
}

func parseCombinationEntry(entry string) ConcurrencyGroup {
	g := ConcurrencyGroup{}

	for _, m := range roleLimitRe.FindAllStringSubmatch(entry, -1) {
		max, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		var roles []string
		for _, role := range strings.Split(m[1], ",") {
			role = strings.TrimSpace(role)
			if role != "" {
				roles = append(roles, role)
			}
		}
		if len(roles) > 0 {
			g.Limits = append(g.Limits, RoleLimit{Roles: roles, Max: max})
		}
	}

	if m := totalLimitRe.FindStringSubmatch(entry); len(m) == 2 {
		g.MaxTotal, _ = strconv.Atoi(m[1])
	}
	if m := channelsRe.FindStringSubmatch(entry); len(m) == 2 {
		g.MaxChannels, _ = strconv.Atoi(m[1])
	}

	return g
}
