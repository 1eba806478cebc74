package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/keepsake-app/keepsake/internal/config"
	"github.com/keepsake-app/keepsake/internal/database"
	"github.com/keepsake-app/keepsake/internal/database/artifacts"
	"github.com/keepsake-app/keepsake/internal/database/events"
	"github.com/keepsake-app/keepsake/internal/database/imports"
	"github.com/keepsake-app/keepsake/internal/database/people"
	"github.com/keepsake-app/keepsake/internal/importers"
)

// ImportCommand imports an export file from the command line, without the
// HTTP server. Useful for large archives and scripted migrations.
type ImportCommand struct {
	Format       string
	FilePath     string
	DatabasePath string
	Select       string
	All          bool
	People       bool
	Artifact     bool
	GroupByDay   bool
	DryRun       bool
}

// NewImportCommand creates a new ImportCommand
func NewImportCommand() *ImportCommand {
	return &ImportCommand{}
}

// ParseFlags parses command line flags
func (cmd *ImportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)

	fs.StringVar(&cmd.Format, "format", "", "Source format: messenger, sms, chatgpt, file (auto-detected if not specified)")
	fs.StringVar(&cmd.FilePath, "file", "", "Path to the export file (required)")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the local database file")
	fs.StringVar(&cmd.Select, "select", "", "Comma-separated conversation/file ids to import")
	fs.BoolVar(&cmd.All, "all", false, "Import every conversation and file in the export")
	fs.BoolVar(&cmd.People, "people", true, "Create Person records for participants")
	fs.BoolVar(&cmd.Artifact, "artifact", true, "Create transcript/file Artifacts")
	fs.BoolVar(&cmd.GroupByDay, "group-by-day", false, "Create one Event per active day instead of one per conversation")
	fs.BoolVar(&cmd.DryRun, "dry-run", false, "Parse and show the preview without importing")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import a personal data export into the local database.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s import -file messages.json -format messenger -dry-run\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s import -file sms-backup.xml -format sms -all -group-by-day\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s import -file conversations.json -format chatgpt -select chatgpt:abc123\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.FilePath == "" {
		fs.Usage()
		return fmt.Errorf("-file is required")
	}
	if !cmd.DryRun && !cmd.All && cmd.Select == "" {
		return fmt.Errorf("nothing selected: pass -all, -select or -dry-run")
	}
	return nil
}

// Run executes the import
func (cmd *ImportCommand) Run() error {
	data, err := os.ReadFile(cmd.FilePath)
	if err != nil {
		return fmt.Errorf("read export file: %w", err)
	}

	file := importers.RawExportFile{
		Filename: filepath.Base(cmd.FilePath),
		Origin:   "upload",
		Data:     data,
	}

	format, ok := importers.FormatFromRoute(cmd.Format)
	if !ok {
		if cmd.Format != "" {
			return fmt.Errorf("unknown format %q", cmd.Format)
		}
		format = importers.DetectFormat(file.Filename, file.Data)
	}

	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	orchestrator := importers.NewOrchestrator(importers.Stores{
		People:    people.NewRepository(db.DB),
		Artifacts: artifacts.NewRepository(db.DB),
		Events:    events.NewRepository(db.DB),
		Sources:   db,
		Sessions:  imports.NewRepository(db.DB),
	}, 0)

	parser, err := importers.ParserFor(format)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	output, err := parser.Parse(file)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	preview := output.Result()

	fmt.Printf("Parsed %s export: %d conversations, %d files, %d messages, %d participants\n",
		preview.Format, preview.Stats.ConversationCount, preview.Stats.FileCount,
		preview.Stats.MessageCount, preview.Stats.ParticipantCount)

	if cmd.DryRun {
		for _, conv := range preview.Conversations {
			fmt.Printf("  %s  %s (%d messages)\n", conv.ID, conv.Title, conv.MessageCount)
		}
		for _, f := range preview.Files {
			fmt.Printf("  %s  %s (%d bytes)\n", f.ID, f.Filename, f.Size)
		}
		return nil
	}

	opts := importers.ImportOptions{
		CreatePeople:   cmd.People,
		CreateArtifact: cmd.Artifact,
		GroupByDay:     cmd.GroupByDay,
		Selection:      cmd.selection(output),
	}

	progress := func(processed, total int) {
		fmt.Printf("\rImporting %d/%d", processed, total)
	}
	result, err := orchestrator.Import(context.Background(), 0, format, file, opts, progress)
	fmt.Println()
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	fmt.Printf("Imported %d items: %d people, %d artifacts, %d events\n",
		result.ItemsProcessed, result.PeopleCreated, result.ArtifactsCreated, result.EventsCreated)
	for _, failure := range result.Failures {
		fmt.Printf("  failed %s: %s\n", failure.Item, failure.Reason)
	}
	if result.ItemsProcessed == 0 && len(result.Failures) > 0 {
		return fmt.Errorf("all selected items failed")
	}
	return nil
}

func (cmd *ImportCommand) selection(output *importers.ParseOutput) []string {
	if !cmd.All {
		var ids []string
		for _, id := range strings.Split(cmd.Select, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		return ids
	}
	var ids []string
	for _, conv := range output.Conversations {
		ids = append(ids, conv.ID)
	}
	for _, f := range output.Files {
		ids = append(ids, f.ID)
	}
	return ids
}
