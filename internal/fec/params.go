package fec

import (
	"strconv"
	"strings"
)

const (
	// DefaultCycle is used when a requested cycle is not an even year in range.
	DefaultCycle = "2020"
	// DefaultCommitteeType is used when a committee type is not recognized.
	DefaultCommitteeType = "P"

	minCycle = 2000
	maxCycle = 2020

	// ZipSentinel replaces zip codes that are not purely numeric.
	ZipSentinel = "00000"
)

// NormalizeCycle validates a two-year transaction period. Odd years belong to
// the following even year, so only even years between 2000 and 2020 are
// accepted; anything else yields DefaultCycle and false.
func NormalizeCycle(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if !isDigits(value) {
		return DefaultCycle, false
	}
	year, err := strconv.Atoi(value)
	if err != nil || year%2 != 0 || year < minCycle || year > maxCycle {
		return DefaultCycle, false
	}
	return strconv.Itoa(year), true
}

// NormalizeCommitteeType maps H/House, S/Senate and P/Presidential
// (case-insensitive) to the one-letter code. Anything else yields
// DefaultCommitteeType and false.
func NormalizeCommitteeType(value string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "h", "house":
		return "H", true
	case "s", "senate":
		return "S", true
	case "p", "presidential":
		return "P", true
	default:
		return DefaultCommitteeType, false
	}
}

// NormalizeZip keeps purely numeric zip codes and replaces everything else,
// including blanks, with ZipSentinel.
func NormalizeZip(value string) string {
	if !isDigits(value) {
		return ZipSentinel
	}
	return value
}

// CheckpointKey identifies the cursor of one cycle and committee type.
func CheckpointKey(cycle, committeeType string) string {
	return cycle + "-" + committeeType
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return false
		}
	}
	return true
}
