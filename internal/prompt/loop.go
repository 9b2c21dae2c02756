package prompt

import (
	"fmt"
	"io"
	"os"

	"sar_tracker/internal/fieldlog"
	"sar_tracker/internal/storage"
)

// Commands offered at the top of each loop iteration.
const (
	cmdStatus       = "status"
	cmdTransmission = "transmission"
	cmdQuit         = "quit"
)

const locationStatusPercentage = "percentage"

// Notifier receives each record as it is accepted. Publish failures are the
// notifier's to report; the loop treats notification as best-effort since the
// local store stays authoritative.
type Notifier interface {
	NotifyStatus(e fieldlog.StatusEntry)
	NotifyTransmission(t fieldlog.Transmission)
}

// Options configures the loop's defaults.
type Options struct {
	// DefaultDest and DefaultSrc are the tactical call signs suggested for
	// transmission destination and source.
	DefaultDest string
	DefaultSrc  string

	// Notifier, when non-nil, is told about every accepted record.
	Notifier Notifier
}

// Run loops reading commands until the operator quits. Each accepted entry
// mutates the log model and is persisted to the store before the next
// question is asked.
func Run(lg *fieldlog.Log, store *storage.Store, asker Asker, opts Options) error {
	if opts.DefaultDest == "" {
		opts.DefaultDest = "high bird"
	}
	if opts.DefaultSrc == "" {
		opts.DefaultSrc = "comms"
	}

	for {
		cmd, err := asker.Select("command:", []string{cmdStatus, cmdTransmission, cmdQuit})
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		switch cmd {
		case cmdQuit:
			return nil
		case cmdStatus:
			if err := promptStatus(lg, store, asker, opts); err != nil {
				return err
			}
		case cmdTransmission:
			if err := promptTransmission(lg, store, asker, opts); err != nil {
				return err
			}
		}
	}
}

func promptStatus(lg *fieldlog.Log, store *storage.Store, asker Asker, opts Options) error {
	team, err := asker.Text("team:", "")
	if err != nil {
		return err
	}
	if team == "" {
		fmt.Fprintln(os.Stderr, "team name required, entry discarded")
		return nil
	}

	location, err := asker.Text("location: (grid or rtb)", lg.LastLocation(team))
	if err != nil {
		return err
	}

	locationStatus, err := asker.Select("location_status:", []string{
		fieldlog.StatusAssigned,
		fieldlog.StatusArrived,
		locationStatusPercentage,
		fieldlog.StatusComplete,
	})
	if err != nil {
		return err
	}

	var transit *string
	switch locationStatus {
	case locationStatusPercentage:
		// The numeric value folds into the status label; no transit is
		// captured for percentage updates.
		for {
			text, err := asker.Text("Enter percentage (0-100):", "")
			if err != nil {
				return err
			}
			label, err := fieldlog.PercentageLabel(text)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				continue
			}
			locationStatus = label
			break
		}
	case fieldlog.StatusAssigned, fieldlog.StatusComplete:
		t, err := asker.Text("transport:", fieldlog.TransitSelf)
		if err != nil {
			return err
		}
		transit = &t
	}

	var statusCode *int
	for {
		choice, err := asker.Select("status_code:", fieldlog.StatusCodeChoices)
		if err != nil {
			return err
		}
		statusCode, err = fieldlog.ParseStatusCode(choice)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		break
	}

	entry := fieldlog.NewStatusEntry(team, location, locationStatus, transit, statusCode)
	lg.AppendStatus(entry)
	if err := store.AppendStatus(entry); err != nil {
		return fmt.Errorf("persist status entry: %w", err)
	}
	if opts.Notifier != nil {
		opts.Notifier.NotifyStatus(entry)
	}
	return nil
}

func promptTransmission(lg *fieldlog.Log, store *storage.Store, asker Asker, opts Options) error {
	dest, err := asker.Text("Destination:", opts.DefaultDest)
	if err != nil {
		return err
	}
	src, err := asker.Text("Source:", opts.DefaultSrc)
	if err != nil {
		return err
	}
	msg, err := asker.Text("Message:", "")
	if err != nil {
		return err
	}

	t := fieldlog.NewTransmission(dest, src, msg)
	lg.AppendTransmission(t)
	if err := store.AppendTransmission(t); err != nil {
		return fmt.Errorf("persist transmission: %w", err)
	}
	if opts.Notifier != nil {
		opts.Notifier.NotifyTransmission(t)
	}
	return nil
}
