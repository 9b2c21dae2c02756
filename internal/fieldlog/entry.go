// Package fieldlog defines the record model for search-and-rescue field
// logging: per-team status entries, transmission traffic, and the combined
// document shape shared by the durable store and the JSON interchange format.
package fieldlog

import (
	"fmt"
	"strconv"
	"time"
)

// TimestampLayout is the compact UTC instant format carried on every record.
const TimestampLayout = "20060102T150405Z"

// Now returns the current UTC time in the compact timestamp format.
func Now() string {
	return time.Now().UTC().Format(TimestampLayout)
}

// Location status values for the closed part of the domain. Percentage
// updates synthesize a "N%" label instead (see PercentageLabel).
const (
	StatusAssigned = "assigned"
	StatusArrived  = "arrived"
	StatusComplete = "complete"
)

// TransitSelf marks a team moving under its own power.
const TransitSelf = "self"

// LocationRTB is the reserved location token for a team returning to base.
const LocationRTB = "rtb"

// StatusEntry is one timestamped observation of a team's state. Fields are
// assigned at creation and never mutated; superseding information arrives as
// a new entry.
type StatusEntry struct {
	Team           string  `json:"team"`
	Location       string  `json:"location"`
	LocationStatus string  `json:"location_status"`
	Transit        *string `json:"transit"`
	StatusCode     *int    `json:"status_code"`
	Timestamp      string  `json:"timestamp"`
}

// NewStatusEntry creates a status entry stamped with the current UTC time.
func NewStatusEntry(team, location, locationStatus string, transit *string, statusCode *int) StatusEntry {
	return StatusEntry{
		Team:           team,
		Location:       location,
		LocationStatus: locationStatus,
		Transit:        transit,
		StatusCode:     statusCode,
		Timestamp:      Now(),
	}
}

// Transmission is one logged message between two call signs.
type Transmission struct {
	Timestamp string `json:"timestamp"`
	Dest      string `json:"dest"`
	Src       string `json:"src"`
	Msg       string `json:"msg"`
}

// NewTransmission creates a transmission stamped with the current UTC time.
func NewTransmission(dest, src, msg string) Transmission {
	return Transmission{
		Timestamp: Now(),
		Dest:      dest,
		Src:       src,
		Msg:       msg,
	}
}

// Document is the three-collection shape shared by the store, the JSON
// interchange format, and the HTTP read surface. Field names are fixed.
type Document struct {
	StatusByTeam   map[string][]StatusEntry `json:"status_by_team"`
	LocationByTeam map[string]string        `json:"location_by_team"`
	Transmissions  []Transmission           `json:"transmissions"`
}

// NewDocument returns an empty document with all collections present.
func NewDocument() *Document {
	return &Document{
		StatusByTeam:   make(map[string][]StatusEntry),
		LocationByTeam: make(map[string]string),
		Transmissions:  []Transmission{},
	}
}

// Normalize replaces nil collections with empty ones. Imported documents may
// omit fields entirely; absence means empty, never an error.
func (d *Document) Normalize() {
	if d.StatusByTeam == nil {
		d.StatusByTeam = make(map[string][]StatusEntry)
	}
	if d.LocationByTeam == nil {
		d.LocationByTeam = make(map[string]string)
	}
	if d.Transmissions == nil {
		d.Transmissions = []Transmission{}
	}
}

// PercentageLabel validates a percentage-complete input and folds it into a
// location-status display label. The input must be digits only in 0-100;
// anything else is a validation error, rejected before it reaches the store.
func PercentageLabel(text string) (string, error) {
	if text == "" {
		return "", fmt.Errorf("percentage must be 0-100, got empty input")
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("percentage must be digits 0-100, got %q", text)
		}
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return "", fmt.Errorf("percentage must be digits 0-100, got %q", text)
	}
	if n < 0 || n > 100 {
		return "", fmt.Errorf("percentage must be 0-100, got %d", n)
	}
	return strconv.Itoa(n) + "%", nil
}

// Health-code choices offered by the prompt loop. The stored value is the
// leading integer; "None" stores a null.
var StatusCodeChoices = []string{"None", "4 - ok", "6 - not ok"}

// ParseStatusCode maps a health-code choice to its stored value. "None"
// yields nil. Any choice without a leading integer is a validation error:
// the documented domain is a small fixed integer set, so a raw label string
// is never persisted.
func ParseStatusCode(choice string) (*int, error) {
	if choice == "None" || choice == "" {
		return nil, nil
	}
	i := 0
	for i < len(choice) && choice[i] >= '0' && choice[i] <= '9' {
		i++
	}
	if i == 0 {
		return nil, fmt.Errorf("status code must be numeric or None, got %q", choice)
	}
	n, err := strconv.Atoi(choice[:i])
	if err != nil {
		return nil, fmt.Errorf("status code must be numeric or None, got %q", choice)
	}
	return &n, nil
}
