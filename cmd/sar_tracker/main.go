// Command-line entry point for the SAR field log.
//
// Subcommands:
//
//	log      - interactive logging session (status entries and transmissions)
//	export   - dump the store to a JSON document
//	import   - replace the store's contents from a JSON document
//	xlsx     - export the store to a multi-sheet XLSX workbook
//	archive  - mirror the store into the PostgreSQL incident archive
//
// The store is a single SQLite file; every accepted entry is persisted
// immediately, so a crash mid-session loses at most the answer being typed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"sar_tracker/internal/feed"
	"sar_tracker/internal/fieldlog"
	"sar_tracker/internal/interchange"
	"sar_tracker/internal/prompt"
	"sar_tracker/internal/spreadsheet"
	"sar_tracker/internal/storage"
)

const defaultDBPath = "./logs.db"

func usage(w io.Writer) {
	fmt.Fprintln(w, "sar_tracker - interactive field logging for search and rescue - commands:")
	fmt.Fprintln(w, "  log      - interactive logging session")
	fmt.Fprintln(w, "  export   - dump the store to a JSON document")
	fmt.Fprintln(w, "  import   - replace the store from a JSON document")
	fmt.Fprintln(w, "  xlsx     - export the store to an XLSX workbook")
	fmt.Fprintln(w, "  archive  - mirror the store into the PostgreSQL incident archive")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  sar_tracker log [-db logs.db] [-json logs.json] [-nats-url nats://...]")
	fmt.Fprintln(w, "  sar_tracker export -db logs.db -output logs.json")
	fmt.Fprintln(w, "  sar_tracker import -input logs.json -db logs.db")
	fmt.Fprintln(w, "  sar_tracker xlsx -db logs.db -output logs.xlsx")
	fmt.Fprintln(w, "  sar_tracker archive -db logs.db -incident NAME [pg flags]")
	fmt.Fprintln(w, "")
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	switch os.Args[1] {
	case "log":
		runLog(os.Args[2:])
	case "export":
		runExport(os.Args[2:])
	case "import":
		runImport(os.Args[2:])
	case "xlsx":
		runXLSX(os.Args[2:])
	case "archive":
		runArchive(os.Args[2:])
	case "-h", "--help", "help":
		usage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		usage(os.Stderr)
		os.Exit(2)
	}
}

func runLog(args []string) {
	fs := flag.NewFlagSet("log", flag.ExitOnError)
	dbPath := fs.String("db", envOrDefault("SAR_SQLITE_FILE", defaultDBPath), "sqlite file location")
	jsonPath := fs.String("json", "", "also write a JSON snapshot here on exit")
	natsURL := fs.String("nats-url", envOrDefault("SAR_NATS_URL", ""), "publish accepted entries to this NATS server")
	dest := fs.String("dest", "high bird", "default transmission destination call sign")
	src := fs.String("src", "comms", "default transmission source call sign")
	_ = fs.Parse(args)

	store, err := storage.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	// Seed the log model from the store so location defaults carry over
	// between sessions.
	doc, err := store.LoadAll()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load store: %v\n", err)
		os.Exit(1)
	}
	lg := fieldlog.NewLogFromDocument(doc)

	opts := prompt.Options{DefaultDest: *dest, DefaultSrc: *src}
	if *natsURL != "" {
		pub, err := feed.Connect(*natsURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to connect feed: %v\n", err)
			os.Exit(1)
		}
		defer pub.Close()
		opts.Notifier = pub
	}

	asker := prompt.NewTerminalAsker(os.Stdin, os.Stderr)
	if err := prompt.Run(lg, store, asker, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Logging session failed: %v\n", err)
		os.Exit(1)
	}

	if *jsonPath != "" {
		fmt.Fprintf(os.Stderr, "writing logs to json file %s\n", *jsonPath)
		if err := interchange.Export(*dbPath, *jsonPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write JSON snapshot: %v\n", err)
			os.Exit(1)
		}
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	dbPath := fs.String("db", envOrDefault("SAR_SQLITE_FILE", defaultDBPath), "sqlite file location")
	outPath := fs.String("output", "./logs.json", "JSON document destination")
	_ = fs.Parse(args)

	if err := interchange.Export(*dbPath, *outPath); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			fmt.Fprintf(os.Stderr, "Store %s does not exist\n", *dbPath)
		} else {
			fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
		}
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Exported %s to %s\n", *dbPath, *outPath)
}

func runImport(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	inPath := fs.String("input", "./logs.json", "JSON document to import")
	dbPath := fs.String("db", envOrDefault("SAR_SQLITE_FILE", defaultDBPath), "sqlite file location")
	_ = fs.Parse(args)

	if err := interchange.Import(*inPath, *dbPath); err != nil {
		fmt.Fprintf(os.Stderr, "Import failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Imported %s into %s\n", *inPath, *dbPath)
}

func runXLSX(args []string) {
	fs := flag.NewFlagSet("xlsx", flag.ExitOnError)
	dbPath := fs.String("db", envOrDefault("SAR_SQLITE_FILE", defaultDBPath), "sqlite file location")
	outPath := fs.String("output", "./logs.xlsx", "XLSX workbook destination")
	_ = fs.Parse(args)

	if err := spreadsheet.ExportXLSX(*dbPath, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "Spreadsheet export failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Exported %s to %s\n", *dbPath, *outPath)
}

func runArchive(args []string) {
	fs := flag.NewFlagSet("archive", flag.ExitOnError)
	dbPath := fs.String("db", envOrDefault("SAR_SQLITE_FILE", defaultDBPath), "sqlite file location")
	incident := fs.String("incident", "", "incident name to archive under (required)")
	pgHost := fs.String("pg-host", envOrDefault("POSTGRES_HOST", "localhost"), "PostgreSQL host")
	pgPort := fs.Int("pg-port", envOrDefaultInt("POSTGRES_PORT", 5432), "PostgreSQL port")
	pgUser := fs.String("pg-user", envOrDefault("POSTGRES_USER", "sar"), "PostgreSQL user")
	pgPassword := fs.String("pg-password", envOrDefault("POSTGRES_PASSWORD", "sar"), "PostgreSQL password")
	pgDB := fs.String("pg-database", envOrDefault("POSTGRES_DATABASE", "sar_archive"), "PostgreSQL database")
	_ = fs.Parse(args)

	if *incident == "" {
		fmt.Fprintln(os.Stderr, "archive: -incident is required")
		os.Exit(2)
	}

	doc, err := storage.Load(*dbPath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			fmt.Fprintf(os.Stderr, "Store %s does not exist\n", *dbPath)
		} else {
			fmt.Fprintf(os.Stderr, "Failed to load store: %v\n", err)
		}
		os.Exit(1)
	}

	ctx := context.Background()
	pg, err := storage.OpenPostgres(ctx, storage.PostgresConfig{
		Host:     *pgHost,
		Port:     *pgPort,
		Database: *pgDB,
		User:     *pgUser,
		Password: *pgPassword,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open archive: %v\n", err)
		os.Exit(1)
	}
	defer pg.Close()

	if err := pg.CreateSchema(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create archive schema: %v\n", err)
		os.Exit(1)
	}
	if err := pg.ArchiveSnapshot(ctx, *incident, doc); err != nil {
		fmt.Fprintf(os.Stderr, "Archive failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Archived %s as incident %q\n", *dbPath, *incident)
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}
