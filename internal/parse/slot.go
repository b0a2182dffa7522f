package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	slotRe     = regexp.MustCompile(`^\s*(\d{1,2}):(\d{2})\s*-\s*(\d{1,2}):(\d{2})\s*$`)
	tableRefRe = regexp.MustCompile(`(?i)^\s*table\s*#?\s*(\d+)\s*$`)
)

// SlotStart holds the starting clock time of a slot label.
type SlotStart struct {
	Hour   int
	Minute int
}

// SlotLabel formats the label of the hour-long slot starting at hour,
// e.g. "09:00 - 10:00".
func SlotLabel(hour int) string {
	return fmt.Sprintf("%02d:00 - %02d:00", hour, hour+1)
}

// ParseSlotLabel extracts the start hour and minute from a label such as
// "14:00 - 15:00".
func ParseSlotLabel(label string) (SlotStart, error) {
	m := slotRe.FindStringSubmatch(label)
	if m == nil {
		return SlotStart{}, fmt.Errorf("unable to parse slot label: %q", label)
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if hour > 23 || minute > 59 {
		return SlotStart{}, fmt.Errorf("slot label out of range: %q", label)
	}
	return SlotStart{Hour: hour, Minute: minute}, nil
}

// TableRef formats the record store's reference for a table id.
func TableRef(id string) string {
	return "Table " + id
}

// TableID extracts the numeric table id from a store reference such as
// "Table 3". A bare number is accepted as well.
func TableID(ref string) (string, bool) {
	s := strings.TrimSpace(ref)
	if m := tableRefRe.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return "", false
	}
	return strconv.Itoa(n), true
}
