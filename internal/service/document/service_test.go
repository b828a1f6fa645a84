package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"redline/internal/domain"
	"redline/internal/domain/models"
	"redline/internal/domain/services"
)

type fakeDocumentRepo struct {
	docs   map[string]*models.Document
	nextID int
}

func newFakeDocumentRepo() *fakeDocumentRepo {
	return &fakeDocumentRepo{docs: make(map[string]*models.Document)}
}

func (f *fakeDocumentRepo) Create(ctx context.Context, doc *models.Document) error {
	f.nextID++
	doc.ID = fmt.Sprintf("doc-%d", f.nextID)
	stored := *doc
	f.docs[doc.ID] = &stored
	return nil
}

func (f *fakeDocumentRepo) GetByID(ctx context.Context, id string) (*models.Document, error) {
	doc, ok := f.docs[id]
	if !ok || doc.DeletedAt != nil {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	cp := *doc
	return &cp, nil
}

func (f *fakeDocumentRepo) Update(ctx context.Context, doc *models.Document) error {
	if _, ok := f.docs[doc.ID]; !ok {
		return fmt.Errorf("document %s: %w", doc.ID, domain.ErrNotFound)
	}
	stored := *doc
	f.docs[doc.ID] = &stored
	return nil
}

func (f *fakeDocumentRepo) InvalidateCache(ctx context.Context, id string) error {
	doc, ok := f.docs[id]
	if !ok {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	doc.CachedAnalysis = nil
	return nil
}

func (f *fakeDocumentRepo) MarkDirty(ctx context.Context, id string) error {
	doc, ok := f.docs[id]
	if !ok {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	doc.Dirty = true
	doc.CachedAnalysis = nil
	return nil
}

func (f *fakeDocumentRepo) SetAnalysis(ctx context.Context, doc *models.Document) error {
	if _, ok := f.docs[doc.ID]; !ok {
		return fmt.Errorf("document %s: %w", doc.ID, domain.ErrNotFound)
	}
	doc.Dirty = false
	doc.Pending = false
	stored := *doc
	f.docs[doc.ID] = &stored
	return nil
}

func (f *fakeDocumentRepo) Trash(ctx context.Context, id string) error {
	doc, ok := f.docs[id]
	if !ok {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	now := time.Now()
	doc.DeletedAt = &now
	return nil
}

func (f *fakeDocumentRepo) Delete(ctx context.Context, id string) error {
	delete(f.docs, id)
	return nil
}

func (f *fakeDocumentRepo) CountPending(ctx context.Context, ids []string) (int, error) {
	n := 0
	for _, id := range ids {
		if doc, ok := f.docs[id]; ok && doc.DeletedAt == nil && doc.Pending {
			n++
		}
	}
	return n, nil
}

type fakeRevisionRepo struct {
	revs   map[string]*models.Revision
	nextID int
}

func newFakeRevisionRepo() *fakeRevisionRepo {
	return &fakeRevisionRepo{revs: make(map[string]*models.Revision)}
}

func (f *fakeRevisionRepo) Create(ctx context.Context, rev *models.Revision) error {
	f.nextID++
	rev.ID = fmt.Sprintf("rev-%d", f.nextID)
	stored := *rev
	f.revs[rev.ID] = &stored
	return nil
}

func (f *fakeRevisionRepo) GetByID(ctx context.Context, id string) (*models.Revision, error) {
	rev, ok := f.revs[id]
	if !ok {
		return nil, fmt.Errorf("revision %s: %w", id, domain.ErrNotFound)
	}
	cp := *rev
	return &cp, nil
}

func (f *fakeRevisionRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*models.Revision, error) {
	out := make(map[string]*models.Revision, len(ids))
	for _, id := range ids {
		if rev, ok := f.revs[id]; ok {
			cp := *rev
			out[id] = &cp
		}
	}
	return out, nil
}

func (f *fakeRevisionRepo) Update(ctx context.Context, rev *models.Revision) error {
	if _, ok := f.revs[rev.ID]; !ok {
		return fmt.Errorf("revision %s: %w", rev.ID, domain.ErrNotFound)
	}
	stored := *rev
	f.revs[rev.ID] = &stored
	return nil
}

func (f *fakeRevisionRepo) GetForUpdate(ctx context.Context, id string) (*models.Revision, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeRevisionRepo) DeleteChains(ctx context.Context, uuids []string) error {
	match := make(map[string]bool, len(uuids))
	for _, u := range uuids {
		match[u] = true
	}
	for id, rev := range f.revs {
		if match[rev.UUID] {
			delete(f.revs, id)
		}
	}
	return nil
}

type fakeBatchRepo struct {
	batches map[string]*models.Batch
	nextID  int
}

func newFakeBatchRepo() *fakeBatchRepo {
	return &fakeBatchRepo{batches: make(map[string]*models.Batch)}
}

func (f *fakeBatchRepo) Create(ctx context.Context, batch *models.Batch) error {
	f.nextID++
	batch.ID = fmt.Sprintf("batch-%d", f.nextID)
	stored := *batch
	f.batches[batch.ID] = &stored
	return nil
}

func (f *fakeBatchRepo) GetByID(ctx context.Context, id string) (*models.Batch, error) {
	batch, ok := f.batches[id]
	if !ok {
		return nil, fmt.Errorf("batch %s: %w", id, domain.ErrNotFound)
	}
	cp := *batch
	cp.DocumentIDs = append([]string(nil), batch.DocumentIDs...)
	cp.InvalidDocumentIDs = append([]string(nil), batch.InvalidDocumentIDs...)
	return &cp, nil
}

func (f *fakeBatchRepo) Update(ctx context.Context, batch *models.Batch) error {
	if _, ok := f.batches[batch.ID]; !ok {
		return fmt.Errorf("batch %s: %w", batch.ID, domain.ErrNotFound)
	}
	stored := *batch
	f.batches[batch.ID] = &stored
	return nil
}

func (f *fakeBatchRepo) Delete(ctx context.Context, id string) error {
	delete(f.batches, id)
	return nil
}

// fakeAnalyzer tags every sentence containing "confidential" and counts the
// passes it runs.
type fakeAnalyzer struct {
	doclevelCalls  int
	sentlevelCalls int
	fail           bool
}

func (f *fakeAnalyzer) DoclevelProcess(ctx context.Context, sentences []string) (*models.DoclevelResult, error) {
	f.doclevelCalls++
	if f.fail {
		return nil, errors.New("pipeline unavailable")
	}
	return &models.DoclevelResult{
		Parties:       []models.Party{models.PartyBoth},
		AgreementType: "nda",
	}, nil
}

func (f *fakeAnalyzer) SentlevelProcess(ctx context.Context, sentences []string, parties []models.Party) (*models.SentlevelResult, error) {
	f.sentlevelCalls++
	if f.fail {
		return nil, errors.New("pipeline unavailable")
	}
	result := &models.SentlevelResult{Sentences: make([]models.SentlevelSentence, len(sentences))}
	for i, text := range sentences {
		if strings.Contains(text, "confidential") {
			result.Sentences[i].Annotations = []models.Annotation{{
				Type:         models.AnnotationSuggested,
				Label:        "confidentiality",
				Party:        models.PartyBoth,
				ClassifierID: "test-v1",
			}}
		}
	}
	return result, nil
}

// syncDispatcher runs jobs inline so tests observe their effects immediately.
type syncDispatcher struct {
	jobs []string
}

func (d *syncDispatcher) Dispatch(name string, fn func(ctx context.Context) error) {
	d.jobs = append(d.jobs, name)
	_ = fn(context.Background())
}

// dropDispatcher records jobs without running them.
type dropDispatcher struct {
	jobs []string
}

func (d *dropDispatcher) Dispatch(name string, fn func(ctx context.Context) error) {
	d.jobs = append(d.jobs, name)
}

type fakeDigestCache struct {
	entries       map[string][]byte
	invalidations int
}

func newFakeDigestCache() *fakeDigestCache {
	return &fakeDigestCache{entries: make(map[string][]byte)}
}

func (f *fakeDigestCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, ok := f.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (f *fakeDigestCache) Set(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.entries[key] = raw
	return nil
}

func (f *fakeDigestCache) Invalidate(ctx context.Context, key string) error {
	delete(f.entries, key)
	f.invalidations++
	return nil
}

type fakeNotifier struct {
	events []models.ChangeEvent
}

func (f *fakeNotifier) Publish(ctx context.Context, event models.ChangeEvent) {
	f.events = append(f.events, event)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	svc        *documentService
	docs       *fakeDocumentRepo
	revs       *fakeRevisionRepo
	batches    *fakeBatchRepo
	analyzer   *fakeAnalyzer
	notifier   *fakeNotifier
	dispatcher *syncDispatcher
	digests    *fakeDigestCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fx := &fixture{
		docs:       newFakeDocumentRepo(),
		revs:       newFakeRevisionRepo(),
		batches:    newFakeBatchRepo(),
		analyzer:   &fakeAnalyzer{},
		notifier:   &fakeNotifier{},
		dispatcher: &syncDispatcher{},
		digests:    newFakeDigestCache(),
	}
	fx.svc = &documentService{
		documents:  fx.docs,
		revisions:  fx.revs,
		batches:    fx.batches,
		analyzer:   fx.analyzer,
		notifier:   fx.notifier,
		dispatcher: fx.dispatcher,
		digests:    fx.digests,
		logger:     testLogger(),
		now:        time.Now,
	}
	return fx
}

func (fx *fixture) ingest(t *testing.T, sentences ...string) *models.Document {
	t.Helper()
	doc, err := fx.svc.Ingest(context.Background(), &services.IngestRequest{
		Owner:     "owner",
		Title:     "Test Agreement",
		Sentences: sentences,
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	return doc
}

func TestIngestCreatesAcceptedFirstRevisions(t *testing.T) {
	fx := newFixture(t)
	doc := fx.ingest(t, "This agreement is confidential.", "It lasts two years.")

	if len(doc.Sentences) != 2 {
		t.Fatalf("sentences = %v", doc.Sentences)
	}
	seen := make(map[string]bool)
	for i, id := range doc.Sentences {
		rev, err := fx.revs.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("revision for slot %d: %v", i, err)
		}
		if !rev.Accepted {
			t.Errorf("first revision of slot %d not accepted", i)
		}
		if rev.PrevRevisionID != nil {
			t.Errorf("first revision of slot %d has a predecessor", i)
		}
		if rev.UUID == "" || seen[rev.UUID] {
			t.Errorf("slot %d: sentence uuid missing or reused", i)
		}
		seen[rev.UUID] = true
	}

	if doc.BatchID == nil {
		t.Fatalf("document not attached to a batch")
	}
	batch, err := fx.batches.GetByID(context.Background(), *doc.BatchID)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(batch.DocumentIDs) != 1 || batch.DocumentIDs[0] != doc.ID {
		t.Errorf("batch members = %v", batch.DocumentIDs)
	}
	if !batch.Pending {
		t.Errorf("fresh batch must be pending")
	}

	if len(fx.dispatcher.jobs) != 1 {
		t.Errorf("dispatched jobs = %v, want one initial analysis", fx.dispatcher.jobs)
	}
}

func TestIngestIntoExistingBatch(t *testing.T) {
	fx := newFixture(t)
	first := fx.ingest(t, "Sentence one.")

	doc, err := fx.svc.Ingest(context.Background(), &services.IngestRequest{
		Owner:     "owner",
		BatchID:   first.BatchID,
		Title:     "Second Document",
		Sentences: []string{"Sentence two."},
	})
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}

	batch, _ := fx.batches.GetByID(context.Background(), *first.BatchID)
	if len(batch.DocumentIDs) != 2 {
		t.Errorf("batch members = %v, want both documents", batch.DocumentIDs)
	}
	if *doc.BatchID != *first.BatchID {
		t.Errorf("documents landed in different batches")
	}
}

func TestIngestValidation(t *testing.T) {
	fx := newFixture(t)

	tests := []struct {
		name string
		req  *services.IngestRequest
	}{
		{"missing title", &services.IngestRequest{Owner: "o", Sentences: []string{"a"}}},
		{"no sentences", &services.IngestRequest{Owner: "o", Title: "t"}},
		{"misaligned styles", &services.IngestRequest{
			Owner: "o", Title: "t",
			Sentences: []string{"a", "b"},
			Styles:    []string{"body"},
		}},
		{"misaligned newlines", &services.IngestRequest{
			Owner: "o", Title: "t",
			Sentences: []string{"a"},
			Newlines:  []int{1, 2},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.svc.Ingest(context.Background(), tt.req)
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestIngestImportedComments(t *testing.T) {
	fx := newFixture(t)
	doc, err := fx.svc.Ingest(context.Background(), &services.IngestRequest{
		Owner:     "owner",
		Title:     "Commented Agreement",
		Sentences: []string{"First.", "Second."},
		Comments: [][]models.Comment{
			nil,
			{{Message: "carried over from the source file", Author: "reviewer"}},
		},
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	rev, _ := fx.revs.GetByID(context.Background(), doc.Sentences[1])
	if len(rev.Comments) != 1 {
		t.Fatalf("comments = %v", rev.Comments)
	}
	c := rev.Comments[0]
	if !c.IsImported {
		t.Errorf("imported comment not flagged")
	}
	if c.UUID == "" || c.Timestamp.IsZero() {
		t.Errorf("imported comment missing uuid or timestamp: %+v", c)
	}
}

func TestInitialAnalysisSettlesDocument(t *testing.T) {
	fx := newFixture(t)
	doc := fx.ingest(t, "This agreement is confidential.")

	stored, _ := fx.docs.GetByID(context.Background(), doc.ID)
	if stored.Pending || stored.Dirty {
		t.Errorf("analysis left pending=%v dirty=%v", stored.Pending, stored.Dirty)
	}
	if stored.AgreementType != "nda" {
		t.Errorf("agreement type = %q", stored.AgreementType)
	}
	rev, _ := fx.revs.GetByID(context.Background(), stored.Sentences[0])
	if len(rev.Annotations) != 1 || rev.Annotations[0].Label != "confidentiality" {
		t.Errorf("annotations = %v", rev.Annotations)
	}
}

func TestAnalysisFailureSettlesPending(t *testing.T) {
	fx := newFixture(t)
	fx.analyzer.fail = true
	doc := fx.ingest(t, "Sentence.")

	stored, _ := fx.docs.GetByID(context.Background(), doc.ID)
	if stored.Pending {
		t.Errorf("failed analysis left the document pending")
	}
	if !stored.Failed {
		t.Errorf("failed analysis not recorded")
	}

	var sawError bool
	for _, e := range fx.notifier.events {
		if e.Kind == models.ChangeAnalysisError {
			sawError = true
		}
	}
	if !sawError {
		t.Errorf("no analysis-error event published")
	}
}

func TestAnalysisResultCacheTiers(t *testing.T) {
	fx := newFixture(t)
	doc := fx.ingest(t, "This agreement is confidential.")
	fx.analyzer.doclevelCalls = 0

	// Tier 0: cached composite view is served as-is.
	first, err := fx.svc.AnalysisResult(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("analysis result: %v", err)
	}
	if fx.analyzer.doclevelCalls != 0 {
		t.Errorf("cached read ran the pipeline")
	}

	// Tier 1: invalidated cache recomposes from revisions, no pipeline.
	if err := fx.svc.InvalidateCache(context.Background(), doc.ID); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	second, err := fx.svc.AnalysisResult(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("analysis result after invalidate: %v", err)
	}
	if fx.analyzer.doclevelCalls != 0 {
		t.Errorf("recompose ran the pipeline")
	}
	if len(second.Sentences) != len(first.Sentences) {
		t.Errorf("recomposed view lost sentences")
	}

	// Tier 2: dirty runs the full pipeline.
	if err := fx.docs.MarkDirty(context.Background(), doc.ID); err != nil {
		t.Fatalf("mark dirty: %v", err)
	}
	if _, err := fx.svc.AnalysisResult(context.Background(), doc.ID); err != nil {
		t.Fatalf("analysis result when dirty: %v", err)
	}
	if fx.analyzer.doclevelCalls != 1 {
		t.Errorf("dirty read ran the pipeline %d times, want 1", fx.analyzer.doclevelCalls)
	}
}

func TestAnalysisResultRunsPipelineWhenNeverAnalyzed(t *testing.T) {
	fx := newFixture(t)
	// The initial analysis job is scheduled but never runs, the lost-job
	// case a later read must recover from.
	fx.svc.dispatcher = &dropDispatcher{}
	doc := fx.ingest(t, "This agreement is confidential.")

	stored, _ := fx.docs.GetByID(context.Background(), doc.ID)
	if !stored.Pending {
		t.Fatalf("document settled without analysis running")
	}

	analysis, err := fx.svc.AnalysisResult(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("analysis result: %v", err)
	}
	if fx.analyzer.doclevelCalls != 1 || fx.analyzer.sentlevelCalls != 1 {
		t.Errorf("read of a never-analyzed document must run the pipeline, calls = %d/%d",
			fx.analyzer.doclevelCalls, fx.analyzer.sentlevelCalls)
	}
	if len(analysis.Parties) == 0 || analysis.AgreementType != "nda" {
		t.Errorf("composite served without doc-level analysis: parties=%v type=%q",
			analysis.Parties, analysis.AgreementType)
	}

	stored, _ = fx.docs.GetByID(context.Background(), doc.ID)
	if stored.Pending {
		t.Errorf("document still pending after a successful synchronous analysis")
	}
	rev, _ := fx.revs.GetByID(context.Background(), stored.Sentences[0])
	if len(rev.Annotations) == 0 {
		t.Errorf("pipeline annotations not stored")
	}
}

func TestUpdateSentenceTiers(t *testing.T) {
	fx := newFixture(t)
	doc := fx.ingest(t, "Original sentence.")
	oldID := doc.Sentences[0]

	replacement := &models.Revision{UUID: "sent-x", Text: "Edited sentence."}
	if err := fx.revs.Create(context.Background(), replacement); err != nil {
		t.Fatalf("create replacement: %v", err)
	}

	// Metadata-grade swap: slot moves, cache clears, no dirty flag.
	if err := fx.svc.UpdateSentence(context.Background(), doc.ID, oldID, replacement.ID, false); err != nil {
		t.Fatalf("update sentence: %v", err)
	}
	stored, _ := fx.docs.GetByID(context.Background(), doc.ID)
	if stored.Sentences[0] != replacement.ID {
		t.Errorf("slot = %s, want %s", stored.Sentences[0], replacement.ID)
	}
	if stored.Dirty {
		t.Errorf("metadata-grade update marked the document dirty")
	}
	if stored.CachedAnalysis != nil {
		t.Errorf("composite cache survived the update")
	}

	// Content-grade swap: document goes through a full reanalysis.
	jobs := len(fx.dispatcher.jobs)
	another := &models.Revision{UUID: "sent-x", Text: "Edited again."}
	if err := fx.revs.Create(context.Background(), another); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := fx.svc.UpdateSentence(context.Background(), doc.ID, replacement.ID, another.ID, true); err != nil {
		t.Fatalf("update with reanalyze: %v", err)
	}
	if len(fx.dispatcher.jobs) != jobs+1 {
		t.Errorf("reanalysis not dispatched: %v", fx.dispatcher.jobs)
	}

	// Swapping an id no slot points at is not-found.
	if err := fx.svc.UpdateSentence(context.Background(), doc.ID, "missing", another.ID, false); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDigestDerivationAndCache(t *testing.T) {
	fx := newFixture(t)
	doc := fx.ingest(t, "This agreement is confidential.", "Plain sentence.")

	rev, _ := fx.revs.GetByID(context.Background(), doc.Sentences[1])
	rev.AddAnnotation(models.Annotation{Type: models.AnnotationKeyword, Label: "indemnify"})
	rev.AddAnnotation(models.Annotation{Type: models.AnnotationManual, Label: "liability"})
	if err := fx.revs.Update(context.Background(), rev); err != nil {
		t.Fatalf("update revision: %v", err)
	}
	fx.svc.invalidateDigest(context.Background(), doc.ID)
	if err := fx.docs.InvalidateCache(context.Background(), doc.ID); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	digest, err := fx.svc.Digest(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if digest.SentenceCount != 2 {
		t.Errorf("sentence count = %d", digest.SentenceCount)
	}
	if digest.ClauseCounts["confidentiality"] != 1 || digest.ClauseCounts["liability"] != 1 {
		t.Errorf("clause counts = %v", digest.ClauseCounts)
	}
	if digest.KeywordHits["indemnify"] != 1 {
		t.Errorf("keyword hits = %v", digest.KeywordHits)
	}
	if digest.ByClassifier["test-v1"] != 1 {
		t.Errorf("classifier tallies = %v", digest.ByClassifier)
	}

	// A second read is served from the digest cache without recomposing.
	if _, ok := fx.digests.entries[digestKey(doc.ID)]; !ok {
		t.Fatalf("digest not cached")
	}
	if err := fx.docs.InvalidateCache(context.Background(), doc.ID); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	again, err := fx.svc.Digest(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("second digest: %v", err)
	}
	if again.SentenceCount != digest.SentenceCount {
		t.Errorf("cached digest diverged")
	}
}

func TestTrashLatchesBatch(t *testing.T) {
	fx := newFixture(t)
	// Drop dispatched jobs so both documents stay pending.
	drop := &dropDispatcher{}
	fx.svc.dispatcher = drop

	first := fx.ingest(t, "One.")
	_, err := fx.svc.Ingest(context.Background(), &services.IngestRequest{
		Owner:     "owner",
		BatchID:   first.BatchID,
		Title:     "Second",
		Sentences: []string{"Two."},
	})
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}

	if err := fx.svc.Trash(context.Background(), first.ID); err != nil {
		t.Fatalf("trash first: %v", err)
	}
	batch, _ := fx.batches.GetByID(context.Background(), *first.BatchID)
	if !batch.Pending {
		t.Fatalf("batch latched with a pending member remaining")
	}

	second := batch.DocumentIDs[1]
	if err := fx.svc.Trash(context.Background(), second); err != nil {
		t.Fatalf("trash second: %v", err)
	}
	batch, _ = fx.batches.GetByID(context.Background(), *first.BatchID)
	if batch.Pending {
		t.Errorf("trashing the last pending member must latch the batch")
	}

	if _, err := fx.docs.GetByID(context.Background(), first.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("trashed document still readable: %v", err)
	}
}
