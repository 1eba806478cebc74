package importers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/keepsake-app/keepsake/internal/entities"
	"github.com/keepsake-app/keepsake/internal/services"
)

// Stores bundles the domain-store dependencies of the orchestrator. Sessions
// and Blobs are optional; without them imports still commit but progress is
// not persisted and file artifacts carry no stored path.
type Stores struct {
	People    services.PersonStore
	Artifacts services.ArtifactStore
	Events    services.EventStore
	Sources   services.SourceCatalog
	Sessions  services.ImportSessionStore
	Blobs     services.BlobStore
}

// ProgressFunc receives "processed of total" updates during commit.
type ProgressFunc func(processed, total int)

// SelectedFile is one file of a bulk import, carried with the upload id the
// user selected it by.
type SelectedFile struct {
	ID   string
	File RawExportFile
}

// Orchestrator coordinates the two-step import protocol: Parse is cheap and
// read-only; Import commits the user's selection item by item, isolating
// per-item failures so one bad conversation never aborts the batch.
type Orchestrator struct {
	stores       Stores
	parseWorkers int

	mu        sync.Mutex
	sourceIDs map[string]uint
}

func NewOrchestrator(stores Stores, parseWorkers int) *Orchestrator {
	if parseWorkers <= 0 {
		parseWorkers = 2
	}
	return &Orchestrator{
		stores:       stores,
		parseWorkers: parseWorkers,
		sourceIDs:    make(map[string]uint),
	}
}

// Parse runs the selected parser and derives the preview. It never touches
// the domain store.
func (o *Orchestrator) Parse(format SourceFormat, file RawExportFile) (*ParseResult, error) {
	output, err := o.parseOne(format, file)
	if err != nil {
		return nil, err
	}
	return output.Result(), nil
}

func (o *Orchestrator) parseOne(format SourceFormat, file RawExportFile) (*ParseOutput, error) {
	parser, err := ParserFor(format)
	if err != nil {
		return nil, err
	}
	return parser.Parse(file)
}

// Import re-parses the submitted file and commits the selected conversations
// and file items. An empty selection is a no-op. Parse-phase errors abort the
// whole call; commit-phase errors are recorded per item.
func (o *Orchestrator) Import(ctx context.Context, userID uint, format SourceFormat, file RawExportFile, opts ImportOptions, progress ProgressFunc) (*ImportResult, error) {
	output, err := o.parseOne(format, file)
	if err != nil {
		return nil, err
	}

	run := o.newRun(userID, opts, progress)
	if len(opts.Selection) == 0 {
		return run.result, nil
	}

	selection := opts.selectionSet()
	matched := make(map[string]bool, len(selection))
	var items []commitItem
	for _, conv := range output.Conversations {
		if _, ok := selection[conv.ID]; ok {
			conv := conv
			items = append(items, commitItem{id: conv.ID, format: format, conv: &conv})
			matched[conv.ID] = true
		}
	}
	for _, f := range output.Files {
		if _, ok := selection[f.ID]; ok {
			f := f
			items = append(items, commitItem{id: f.ID, format: format, file: &f})
			matched[f.ID] = true
		}
	}

	// Selected ids absent from the export are reported, not dropped.
	var unmatched []string
	seen := make(map[string]bool, len(opts.Selection))
	for _, id := range opts.Selection {
		if matched[id] || seen[id] {
			continue
		}
		seen[id] = true
		unmatched = append(unmatched, id)
	}

	run.begin(string(format), len(items)+len(unmatched))
	for _, id := range unmatched {
		run.fail(id, fmt.Errorf("no conversation or file with this id in the export"))
	}
	run.commitAll(ctx, items)
	run.finish()
	return run.result, nil
}

// ImportFiles commits a batch of already-uploaded files, typically the
// contents of a ZIP archive. Files are parsed concurrently up to the worker
// bound; the commit phase runs on this goroutine only, which serializes all
// participant resolution for the run. Selection granularity is the file: a
// selected file's conversations and items are committed together.
func (o *Orchestrator) ImportFiles(ctx context.Context, userID uint, files []SelectedFile, opts ImportOptions, progress ProgressFunc) (*ImportResult, error) {
	run := o.newRun(userID, opts, progress)
	if len(files) == 0 {
		return run.result, nil
	}

	type parsedFile struct {
		id     string
		format SourceFormat
		output *ParseOutput
		err    error
	}

	parsed := make([]parsedFile, len(files))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(o.parseWorkers)
	for i, sf := range files {
		i, sf := i, sf
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				parsed[i] = parsedFile{id: sf.ID, err: err}
				return nil
			}
			format := DetectFormat(sf.File.Filename, sf.File.Data)
			output, err := o.parseOne(format, sf.File)
			parsed[i] = parsedFile{id: sf.ID, format: format, output: output, err: err}
			return nil
		})
	}
	// Workers only record outcomes, so the group never returns an error.
	_ = group.Wait()

	run.begin("zip", len(files))
	for _, pf := range parsed {
		if ctx.Err() != nil {
			run.cancelled = true
			break
		}
		if pf.err != nil {
			run.fail(pf.id, pf.err)
			continue
		}

		var itemErr error
		for i := range pf.output.Conversations {
			if err := run.commitConversation(pf.format, &pf.output.Conversations[i]); err != nil {
				itemErr = err
				break
			}
		}
		if itemErr == nil {
			for i := range pf.output.Files {
				if err := run.commitFile(pf.format, &pf.output.Files[i]); err != nil {
					itemErr = err
					break
				}
			}
		}

		if itemErr != nil {
			run.fail(pf.id, itemErr)
		} else {
			run.succeed()
		}
	}
	run.finish()
	return run.result, nil
}

type commitItem struct {
	id     string
	format SourceFormat
	conv   *Conversation
	file   *FileItem
}

// importRun carries the per-call mutable state: the resolver context, the
// session row, and the running counts. It lives for exactly one Import call.
type importRun struct {
	o         *Orchestrator
	userID    uint
	opts      ImportOptions
	progress  ProgressFunc
	resolver  *Resolver
	result    *ImportResult
	session   *entities.ImportSession
	total     int
	done      int
	cancelled bool
}

func (o *Orchestrator) newRun(userID uint, opts ImportOptions, progress ProgressFunc) *importRun {
	runID := uuid.NewString()
	return &importRun{
		o:        o,
		userID:   userID,
		opts:     opts,
		progress: progress,
		resolver: NewResolver(o.stores.People, userID),
		result:   &ImportResult{RunID: runID},
	}
}

// begin opens the progress session once the selected item count is known.
func (r *importRun) begin(sourceName string, total int) {
	r.total = total
	if r.o.stores.Sessions == nil {
		return
	}
	session := &entities.ImportSession{
		UserID:     r.userID,
		RunID:      r.result.RunID,
		SourceID:   r.o.sourceID(sourceName),
		Status:     entities.ImportStatusRunning,
		ItemsTotal: total,
		StartedAt:  time.Now().UTC(),
	}
	if err := r.o.stores.Sessions.Create(session); err != nil {
		log.Printf("Failed to create import session: %v", err)
		return
	}
	r.session = session
	r.result.SessionID = session.ID
}

func (r *importRun) commitAll(ctx context.Context, items []commitItem) {
	for _, item := range items {
		if ctx.Err() != nil {
			// Stop dispatching; already-committed items stay committed.
			r.cancelled = true
			break
		}

		var err error
		switch {
		case item.conv != nil:
			err = r.commitConversation(item.format, item.conv)
		case item.file != nil:
			err = r.commitFile(item.format, item.file)
		}

		if err != nil {
			r.fail(item.id, err)
		} else {
			r.succeed()
		}
	}
}

// commitConversation writes one conversation's artifact, events and person
// links. Counts are incremented only after the corresponding store write
// succeeded, so a mid-item failure leaves the tally accurate.
func (r *importRun) commitConversation(format SourceFormat, conv *Conversation) error {
	sourceID := r.o.sourceID(string(format))
	provenance := fmt.Sprintf("%s:%s", format, r.result.RunID)

	for _, ref := range conv.Participants {
		if _, err := r.resolver.Resolve(ref, r.opts.CreatePeople, sourceID); err != nil {
			return fmt.Errorf("storage: %w", err)
		}
	}

	var artifact *entities.Artifact
	if r.opts.CreateArtifact {
		artifact = &entities.Artifact{
			UserID:          r.userID,
			Type:            entities.ArtifactTypeText,
			Title:           conv.Title,
			SourceSystem:    string(format),
			ImportedFrom:    provenance,
			TranscribedText: RenderTranscript(*conv),
			SourceID:        sourceID,
		}
		if err := r.o.stores.Artifacts.Create(artifact); err != nil {
			return fmt.Errorf("storage: create artifact: %w", err)
		}
		r.result.ArtifactsCreated++
	}

	for _, draft := range SynthesizeEvents(*conv, r.opts.GroupByDay) {
		event := &entities.Event{
			UserID:       r.userID,
			Title:        draft.Title,
			Date:         draft.Date,
			Notes:        draft.Body,
			ImportedFrom: provenance,
		}
		for _, sender := range draft.Senders {
			id, err := r.resolver.Resolve(sender, r.opts.CreatePeople, sourceID)
			if err != nil {
				return fmt.Errorf("storage: %w", err)
			}
			if id != 0 {
				event.People = append(event.People, entities.Person{ID: id})
			}
		}
		if artifact != nil {
			event.Artifacts = append(event.Artifacts, entities.Artifact{ID: artifact.ID})
		}
		if err := r.o.stores.Events.Create(event); err != nil {
			return fmt.Errorf("storage: create event: %w", err)
		}
		r.result.EventsCreated++
	}

	return nil
}

// commitFile writes a generic file as an artifact. Without the artifact
// option there is nothing to create for a plain file, so it is a no-op.
func (r *importRun) commitFile(format SourceFormat, item *FileItem) error {
	if !r.opts.CreateArtifact {
		return nil
	}

	sourceID := r.o.sourceID(string(FormatFile))
	artifact := &entities.Artifact{
		UserID:       r.userID,
		Type:         item.Type,
		Title:        path.Base(item.Filename),
		SourceSystem: string(format),
		ImportedFrom: fmt.Sprintf("%s:%s", format, r.result.RunID),
		FileHash:     item.Hash,
		Mimetype:     item.Mimetype,
		SourceID:     sourceID,
	}
	if r.o.stores.Blobs != nil {
		stored, err := r.o.stores.Blobs.SaveArtifactBlob(r.userID, item.Filename, item.Data)
		if err != nil {
			return fmt.Errorf("storage: save blob: %w", err)
		}
		artifact.FilePath = stored
	}
	if err := r.o.stores.Artifacts.Create(artifact); err != nil {
		return fmt.Errorf("storage: create artifact: %w", err)
	}
	r.result.ArtifactsCreated++
	return nil
}

func (r *importRun) succeed() {
	r.result.ItemsProcessed++
	r.step()
}

func (r *importRun) fail(item string, err error) {
	r.result.Failures = append(r.result.Failures, ItemFailure{
		Item:   item,
		Reason: err.Error(),
	})
	r.step()
}

func (r *importRun) step() {
	r.done++
	if r.progress != nil {
		r.progress(r.done, r.total)
	}
	if r.session != nil {
		r.syncSession()
	}
}

func (r *importRun) syncSession() {
	r.session.ItemsProcessed = r.done
	r.session.PeopleCreated = r.resolver.Created()
	r.session.ArtifactsCreated = r.result.ArtifactsCreated
	r.session.EventsCreated = r.result.EventsCreated
	if err := r.o.stores.Sessions.Update(r.session); err != nil {
		log.Printf("Failed to update import session %d: %v", r.session.ID, err)
	}
}

// finish closes the run: totals the people count from actual resolver
// inserts and settles the session status.
func (r *importRun) finish() {
	r.result.PeopleCreated = r.resolver.Created()
	if r.session == nil {
		return
	}

	status := entities.ImportStatusCompleted
	switch {
	case r.result.ItemsProcessed == 0 && len(r.result.Failures) > 0:
		status = entities.ImportStatusFailed
	case len(r.result.Failures) > 0 || r.cancelled:
		status = entities.ImportStatusPartiallyFailed
	}
	r.session.Status = status

	if failures, err := json.Marshal(r.result.Failures); err == nil && len(r.result.Failures) > 0 {
		r.session.Errors = string(failures)
	}
	now := time.Now().UTC()
	r.session.CompletedAt = &now
	r.syncSession()
}

// sourceID resolves and caches seeded source ids; a missing catalog row maps
// to zero rather than failing the import.
func (o *Orchestrator) sourceID(name string) uint {
	o.mu.Lock()
	defer o.mu.Unlock()
	if id, ok := o.sourceIDs[name]; ok {
		return id
	}
	if o.stores.Sources == nil {
		return 0
	}
	source, err := o.stores.Sources.GetSourceByName(name)
	if err != nil || source == nil {
		log.Printf("Unknown source %q: %v", name, err)
		o.sourceIDs[name] = 0
		return 0
	}
	o.sourceIDs[name] = source.ID
	return source.ID
}
