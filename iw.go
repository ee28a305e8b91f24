package hotspot

import (
	"regexp"
	"strconv"
	"strings"
)

// Parsers for `iw` and `rfkill` output. The text formats are the fixed
// external protocol of those tools; keeping the parsing pure makes the
// brittle part testable against verbatim fixtures.

var (
	wiphyRe     = regexp.MustCompile(`\bwiphy\s+(\d+)`)
	devTypeRe   = regexp.MustCompile(`(?m)^\s*type\s+(\S+)`)
	frequencyRe = regexp.MustCompile(`\*\s+(\d+)(?:\.\d+)?\s+MHz\s+\[(\d+)\]`)
)

// parseIwDevInfo extracts the phy name and current operating mode from
// `iw dev <iface> info` output.
func parseIwDevInfo(out string) (phy string, mode WifiMode) {
	if m := wiphyRe.FindStringSubmatch(out); len(m) == 2 {
		phy = "phy" + m[1]
	}

	mode = ModeUnknown
	if m := devTypeRe.FindStringSubmatch(out); len(m) == 2 {
		switch strings.ToLower(m[1]) {
		case "managed", "station":
			mode = ModeManaged
		case "ap":
			mode = ModeAP
		case "monitor":
			mode = ModeMonitor
		}
	}
	return phy, mode
}

// parsePhyModes reads the "Supported interface modes" section of
// `iw phy <phy> info` and reports AP-mode support.
func parsePhyModes(out string) (supportsAP bool) {
	inModes := false
	for _, line := range strings.Split(out, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.Contains(line, "Supported interface modes:") {
			inModes = true
			continue
		}
		if !inModes {
			continue
		}
		if !strings.HasPrefix(trimmed, "*") {
			inModes = false
			continue
		}
		mode := strings.TrimSpace(strings.TrimPrefix(trimmed, "*"))
		if mode == "AP" {
			return true
		}
	}
	return false
}

// parsePhyBands scans frequency entries and reports band support. Entries
// flagged "disabled" or "no IR" cannot be transmitted on and do not count.
func parsePhyBands(out string) (has24, has5 bool) {
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "disabled") || strings.Contains(line, "no IR") {
			continue
		}
		m := frequencyRe.FindStringSubmatch(line)
		if len(m) != 3 {
			continue
		}
		mhz, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		switch {
		case mhz > 2400 && mhz < 2500:
			has24 = true
		case mhz > 5000 && mhz < 6000:
			has5 = true
		}
	}
	return has24, has5
}

type rfkillEntry struct {
	Name string // rfkill device name, e.g. "phy0"
	Type string // e.g. "Wireless LAN"
	Soft bool
	Hard bool
}

// parseRFKillList parses `rfkill list` output into entries.
func parseRFKillList(out string) []rfkillEntry {
	var entries []rfkillEntry
	var current *rfkillEntry

	for _, line := range strings.Split(out, "\n") {
		// Header lines look like "0: phy0: Wireless LAN".
		if len(line) > 0 && line[0] != ' ' && line[0] != '\t' {
			parts := strings.SplitN(line, ":", 3)
			if len(parts) == 3 {
				entries = append(entries, rfkillEntry{
					Name: strings.TrimSpace(parts[1]),
					Type: strings.TrimSpace(parts[2]),
				})
				current = &entries[len(entries)-1]
			}
			continue
		}
		if current == nil {
			continue
		}
		trimmed := strings.ToLower(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(trimmed, "soft blocked:"):
			current.Soft = strings.HasSuffix(trimmed, "yes")
		case strings.HasPrefix(trimmed, "hard blocked:"):
			current.Hard = strings.HasSuffix(trimmed, "yes")
		}
	}
	return entries
}

// rfkillStateFor resolves the kill-switch state for a radio. A device entry
// matching the phy name wins; otherwise any blocked wireless entry counts,
// mirroring a global wifi block.
func rfkillStateFor(entries []rfkillEntry, phy string) RFKillState {
	var global RFKillState
	for _, e := range entries {
		if e.Type != "Wireless LAN" {
			continue
		}
		if phy != "" && e.Name == phy {
			return RFKillState{Hard: e.Hard, Soft: e.Soft}
		}
		global.Hard = global.Hard || e.Hard
		global.Soft = global.Soft || e.Soft
	}
	return global
}

// countStations counts associated clients in `iw dev <iface> station dump`
// output.
func countStations(out string) int {
	return strings.Count(out, "Station ")
}
