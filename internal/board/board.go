package board

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"reservation-dashboard/internal/parse"
)

const (
	FirstHour = 9
	LastHour  = 21
)

// GenerateSlots returns a fresh grid of hourly slots from 09:00 to 21:00,
// all available.
func GenerateSlots() []TimeSlot {
	slots := make([]TimeSlot, 0, LastHour-FirstHour+1)
	for hour := FirstHour; hour <= LastHour; hour++ {
		slots = append(slots, TimeSlot{
			Time:   parse.SlotLabel(hour),
			Hour:   hour,
			Status: StatusAvailable,
		})
	}
	return slots
}

// Midnight returns the local midnight that starts the day containing t.
func Midnight(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// NextMidnight returns the local midnight that starts the day after t.
// Calendar arithmetic keeps it correct across DST shifts.
func NextMidnight(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, loc)
}

// Board is the in-memory table and slot model for one day.
// All methods are safe for concurrent use; each mutation is atomic.
type Board struct {
	mu     sync.Mutex
	loc    *time.Location
	day    time.Time
	tables []Table
}

// New creates a board with tables "Table 1".."Table count" for the day
// containing now.
func New(count int, now time.Time, loc *time.Location) *Board {
	if loc == nil {
		loc = time.Local
	}
	tables := make([]Table, count)
	for i := range tables {
		id := strconv.Itoa(i + 1)
		tables[i] = Table{
			ID:        id,
			Name:      parse.TableRef(id),
			TimeSlots: GenerateSlots(),
		}
	}
	return &Board{
		loc:    loc,
		day:    Midnight(now, loc),
		tables: tables,
	}
}

// Location returns the timezone the board interprets reservation times in.
func (b *Board) Location() *time.Location {
	return b.loc
}

// Day returns the local midnight of the day the board represents.
func (b *Board) Day() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.day
}

// Snapshot returns a deep copy of the tables.
func (b *Board) Snapshot() []Table {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Table, len(b.tables))
	for i, t := range b.tables {
		out[i] = Table{
			ID:        t.ID,
			Name:      t.Name,
			TimeSlots: append([]TimeSlot(nil), t.TimeSlots...),
		}
	}
	return out
}

// Merge overlays reservations onto the slot grid. A reservation matches a
// table when its table reference equals the table name or "Table {id}", and
// a slot when its local hour equals the slot's starting hour on the board
// day. Unmatched slots keep their state; merge never frees a slot.
//
// When several reservations hit the same slot the most recently created one
// wins, with the larger record ID breaking ties, so the outcome does not
// depend on the order the store returned them in.
func (b *Board) Merge(reservations []Reservation) []SlotChange {
	b.mu.Lock()
	defer b.mu.Unlock()

	type slotKey struct {
		table string
		hour  int
	}
	winners := make(map[slotKey]Reservation)
	for _, res := range reservations {
		at, ok := b.localTime(res.Time)
		if !ok {
			continue
		}
		for _, table := range b.tables {
			if res.TableID != table.Name && res.TableID != parse.TableRef(table.ID) {
				continue
			}
			key := slotKey{table: table.ID, hour: at.Hour()}
			if current, exists := winners[key]; !exists || newer(res, current) {
				winners[key] = res
			}
		}
	}

	var changes []SlotChange
	for ti := range b.tables {
		table := &b.tables[ti]
		for si := range table.TimeSlots {
			slot := &table.TimeSlots[si]
			res, ok := winners[slotKey{table: table.ID, hour: slot.Hour}]
			if !ok {
				continue
			}
			if slot.Status == res.Status && slot.CustomerName == res.CustomerName && slot.Pax == res.Pax {
				continue
			}
			slot.Status = res.Status
			slot.CustomerName = res.CustomerName
			slot.Pax = res.Pax
			changes = append(changes, b.change(table.ID, *slot, SourceRemote, res.ID))
		}
	}
	return changes
}

// ResetDaily replaces every table's slots with a fresh grid and moves the
// board to the day containing now. It returns the booked slots it cleared.
func (b *Board) ResetDaily(now time.Time) []SlotChange {
	b.mu.Lock()
	defer b.mu.Unlock()

	var cleared []SlotChange
	for ti := range b.tables {
		for _, slot := range b.tables[ti].TimeSlots {
			if slot.Status != StatusAvailable {
				cleared = append(cleared, b.change(b.tables[ti].ID, TimeSlot{Time: slot.Time, Status: StatusAvailable}, SourceReset, ""))
			}
		}
		b.tables[ti].TimeSlots = GenerateSlots()
	}
	b.day = Midnight(now, b.loc)
	return cleared
}

// ApplyEdit sets the status of the slot labelled label on table tableID.
// Freeing a slot drops its customer details.
func (b *Board) ApplyEdit(tableID, label string, status Status) (SlotChange, error) {
	if _, err := ParseStatus(string(status)); err != nil {
		return SlotChange{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for ti := range b.tables {
		table := &b.tables[ti]
		if table.ID != tableID {
			continue
		}
		for si := range table.TimeSlots {
			slot := &table.TimeSlots[si]
			if slot.Time != label {
				continue
			}
			slot.Status = status
			if status == StatusAvailable {
				slot.CustomerName = ""
				slot.Pax = 0
			}
			return b.change(table.ID, *slot, SourceUser, ""), nil
		}
		return SlotChange{}, fmt.Errorf("%w: %q on table %s", ErrSlotNotFound, label, tableID)
	}
	return SlotChange{}, fmt.Errorf("%w: %s", ErrTableNotFound, tableID)
}

func (b *Board) change(tableID string, slot TimeSlot, source ChangeSource, reservationID string) SlotChange {
	return SlotChange{
		TableID:       tableID,
		Slot:          slot.Time,
		Day:           b.day,
		Status:        slot.Status,
		CustomerName:  slot.CustomerName,
		Pax:           slot.Pax,
		Source:        source,
		ReservationID: reservationID,
	}
}

// localTime parses a reservation timestamp and reports whether it falls on
// the board day.
func (b *Board) localTime(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	t = t.In(b.loc)
	if !Midnight(t, b.loc).Equal(b.day) {
		return time.Time{}, false
	}
	return t, true
}

func newer(a, b Reservation) bool {
	if !a.CreatedTime.Equal(b.CreatedTime) {
		return a.CreatedTime.After(b.CreatedTime)
	}
	return a.ID > b.ID
}
