package fieldlog

// DefaultLocation is the placeholder last-known location for a team that has
// never been assigned one.
const DefaultLocation = "unassigned"

// Log is the in-memory log model: per-team status histories, last-known
// locations, and chronological transmissions. It is constructed once at
// process start (empty or from a loaded document) and mutated only through
// the append operations; persistence is the caller's concern.
type Log struct {
	statusByTeam   map[string][]StatusEntry
	locationByTeam map[string]string
	transmissions  []Transmission
}

// NewLog returns an empty log model.
func NewLog() *Log {
	return &Log{
		statusByTeam:   make(map[string][]StatusEntry),
		locationByTeam: make(map[string]string),
		transmissions:  []Transmission{},
	}
}

// NewLogFromDocument builds a log model from a loaded document. The document
// is copied; later mutations do not alias it.
func NewLogFromDocument(doc *Document) *Log {
	l := NewLog()
	if doc == nil {
		return l
	}
	for team, history := range doc.StatusByTeam {
		l.statusByTeam[team] = append([]StatusEntry(nil), history...)
	}
	for team, loc := range doc.LocationByTeam {
		l.locationByTeam[team] = loc
	}
	l.transmissions = append(l.transmissions, doc.Transmissions...)
	return l
}

// AppendStatus records a status entry for its team and refreshes the team's
// last-known location from the entry.
func (l *Log) AppendStatus(e StatusEntry) {
	l.statusByTeam[e.Team] = append(l.statusByTeam[e.Team], e)
	l.locationByTeam[e.Team] = e.Location
}

// AppendTransmission records a transmission at the end of the traffic log.
func (l *Log) AppendTransmission(t Transmission) {
	l.transmissions = append(l.transmissions, t)
}

// SetLocation records a last-known location for a team that may not have any
// status history yet.
func (l *Log) SetLocation(team, location string) {
	l.locationByTeam[team] = location
}

// LastLocation returns the team's last-known location, or DefaultLocation if
// the team has never been given one.
func (l *Log) LastLocation(team string) string {
	if loc, ok := l.locationByTeam[team]; ok && loc != "" {
		return loc
	}
	return DefaultLocation
}

// Document snapshots the log model into the shared document shape. The
// returned document owns its collections.
func (l *Log) Document() *Document {
	doc := NewDocument()
	for team, history := range l.statusByTeam {
		doc.StatusByTeam[team] = append([]StatusEntry(nil), history...)
	}
	for team, loc := range l.locationByTeam {
		doc.LocationByTeam[team] = loc
	}
	doc.Transmissions = append(doc.Transmissions, l.transmissions...)
	return doc
}
