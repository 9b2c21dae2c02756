package prompt

import (
	"path/filepath"
	"strings"
	"testing"

	"sar_tracker/internal/fieldlog"
	"sar_tracker/internal/storage"
)

// scriptedAsker answers questions from a fixed list, in order.
type scriptedAsker struct {
	t       *testing.T
	answers []string
}

func (a *scriptedAsker) pop() string {
	if len(a.answers) == 0 {
		a.t.Fatal("no more scripted answers")
	}
	next := a.answers[0]
	a.answers = a.answers[1:]
	return next
}

func (a *scriptedAsker) Select(prompt string, choices []string) (string, error) {
	return a.pop(), nil
}

func (a *scriptedAsker) Text(prompt, defaultValue string) (string, error) {
	answer := a.pop()
	if answer == "" {
		return defaultValue, nil
	}
	return answer, nil
}

// recordingNotifier captures notified records.
type recordingNotifier struct {
	statuses      []fieldlog.StatusEntry
	transmissions []fieldlog.Transmission
}

func (n *recordingNotifier) NotifyStatus(e fieldlog.StatusEntry) {
	n.statuses = append(n.statuses, e)
}

func (n *recordingNotifier) NotifyTransmission(t fieldlog.Transmission) {
	n.transmissions = append(n.transmissions, t)
}

func runLoop(t *testing.T, answers []string, opts Options) (*fieldlog.Log, *fieldlog.Document) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "logs.db")
	store, err := storage.Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = store.Close() }()

	lg := fieldlog.NewLog()
	asker := &scriptedAsker{t: t, answers: answers}
	if err := Run(lg, store, asker, opts); err != nil {
		t.Fatalf("Run: %v", err)
	}

	doc, err := store.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	return lg, doc
}

func TestLoopWritesStatusAndTransmission(t *testing.T) {
	notifier := &recordingNotifier{}
	answers := []string{
		"status", "Alpha", "Grid1", "assigned", "self", "4 - ok",
		"transmission", "high bird", "comms", "Hello test",
		"quit",
	}

	_, doc := runLoop(t, answers, Options{Notifier: notifier})

	alpha := doc.StatusByTeam["Alpha"]
	if len(alpha) != 1 {
		t.Fatalf("Alpha history length = %d, want 1", len(alpha))
	}
	e := alpha[0]
	if e.Location != "Grid1" || e.LocationStatus != fieldlog.StatusAssigned {
		t.Errorf("entry = %+v", e)
	}
	if e.Transit == nil || *e.Transit != "self" {
		t.Errorf("Transit = %v, want self", e.Transit)
	}
	if e.StatusCode == nil || *e.StatusCode != 4 {
		t.Errorf("StatusCode = %v, want 4", e.StatusCode)
	}
	if doc.LocationByTeam["Alpha"] != "Grid1" {
		t.Errorf("LocationByTeam[Alpha] = %q, want Grid1", doc.LocationByTeam["Alpha"])
	}

	if len(doc.Transmissions) != 1 {
		t.Fatalf("transmissions = %+v, want 1", doc.Transmissions)
	}
	tx := doc.Transmissions[0]
	if tx.Dest != "high bird" || tx.Src != "comms" || tx.Msg != "Hello test" {
		t.Errorf("transmission = %+v", tx)
	}

	if len(notifier.statuses) != 1 || len(notifier.transmissions) != 1 {
		t.Errorf("notifier saw %d statuses, %d transmissions, want 1 each",
			len(notifier.statuses), len(notifier.transmissions))
	}
}

func TestLoopPercentageFoldsIntoStatus(t *testing.T) {
	answers := []string{
		"status", "Alpha", "Grid1", "percentage", "60", "None",
		"quit",
	}

	_, doc := runLoop(t, answers, Options{})

	e := doc.StatusByTeam["Alpha"][0]
	if e.LocationStatus != "60%" {
		t.Errorf("LocationStatus = %q, want 60%%", e.LocationStatus)
	}
	// No transit is captured for percentage updates.
	if e.Transit != nil {
		t.Errorf("Transit = %v, want nil", e.Transit)
	}
	if e.StatusCode != nil {
		t.Errorf("StatusCode = %v, want nil", e.StatusCode)
	}
}

func TestLoopReasksOnInvalidPercentage(t *testing.T) {
	answers := []string{
		"status", "Alpha", "Grid1", "percentage",
		"-1", "101", "abc", "100", // three rejected, then accepted
		"None",
		"quit",
	}

	_, doc := runLoop(t, answers, Options{})

	if got := doc.StatusByTeam["Alpha"][0].LocationStatus; got != "100%" {
		t.Errorf("LocationStatus = %q, want 100%%", got)
	}
}

func TestLoopArrivedCapturesNoTransit(t *testing.T) {
	answers := []string{
		"status", "Alpha", "Grid2", "arrived", "4 - ok",
		"quit",
	}

	_, doc := runLoop(t, answers, Options{})

	e := doc.StatusByTeam["Alpha"][0]
	if e.LocationStatus != fieldlog.StatusArrived {
		t.Errorf("LocationStatus = %q, want arrived", e.LocationStatus)
	}
	if e.Transit != nil {
		t.Errorf("Transit = %v, want nil", e.Transit)
	}
}

func TestLoopLocationDefaultsToLastKnown(t *testing.T) {
	answers := []string{
		"status", "Alpha", "Grid1", "arrived", "None",
		// Empty location answer takes the default, which is now Grid1.
		"status", "Alpha", "", "complete", "self", "None",
		"quit",
	}

	lg, doc := runLoop(t, answers, Options{})

	second := doc.StatusByTeam["Alpha"][1]
	if second.Location != "Grid1" {
		t.Errorf("second entry location = %q, want carried-over Grid1", second.Location)
	}
	if got := lg.LastLocation("Alpha"); got != "Grid1" {
		t.Errorf("LastLocation = %q, want Grid1", got)
	}
}

func TestLoopDiscardsEmptyTeam(t *testing.T) {
	answers := []string{
		"status", "", // empty team name, entry discarded
		"quit",
	}

	_, doc := runLoop(t, answers, Options{})

	if len(doc.StatusByTeam) != 0 {
		t.Errorf("empty team name produced entries: %+v", doc.StatusByTeam)
	}
}

func TestLoopSequenceScenario(t *testing.T) {
	answers := []string{
		"status", "Alpha", "G1", "assigned", "self", "4 - ok",
		"status", "Alpha", "G2", "arrived", "4 - ok",
		"quit",
	}

	_, doc := runLoop(t, answers, Options{})

	alpha := doc.StatusByTeam["Alpha"]
	if len(alpha) != 2 {
		t.Fatalf("Alpha history length = %d, want 2", len(alpha))
	}
	if alpha[0].Location != "G1" || alpha[1].Location != "G2" {
		t.Errorf("history order wrong: %+v", alpha)
	}
	if doc.LocationByTeam["Alpha"] != "G2" {
		t.Errorf("LocationByTeam[Alpha] = %q, want G2", doc.LocationByTeam["Alpha"])
	}
}

func TestTerminalAskerSelect(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "by number", input: "2\n", want: "transmission"},
		{name: "by text", input: "status\n", want: "status"},
		{name: "case insensitive", input: "QUIT\n", want: "quit"},
		{name: "retry after junk", input: "bogus\n1\n", want: "status"},
	}

	choices := []string{"status", "transmission", "quit"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out strings.Builder
			asker := NewTerminalAsker(strings.NewReader(tt.input), &out)
			got, err := asker.Select("command:", choices)
			if err != nil {
				t.Fatalf("Select: %v", err)
			}
			if got != tt.want {
				t.Errorf("Select = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTerminalAskerTextDefault(t *testing.T) {
	var out strings.Builder
	asker := NewTerminalAsker(strings.NewReader("\n"), &out)
	got, err := asker.Text("location:", "Grid1")
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if got != "Grid1" {
		t.Errorf("Text = %q, want default Grid1", got)
	}
}
