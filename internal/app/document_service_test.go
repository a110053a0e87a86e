package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"studybuddy/internal/ai"
	"studybuddy/internal/apperr"
	"studybuddy/internal/model"
	"studybuddy/internal/ocr"
)

func catText(n int) []byte {
	text := strings.Repeat("Mèo là loài vật nuôi phổ biến. Chó rất trung thành. ", n/40+1)
	return []byte(string([]rune(text)[:n]))
}

func TestUploadTextCreatesEnrichedDocument(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	res, err := env.docs.Upload(context.Background(), UploadInput{UserID: 1, FileName: "dong-vat.txt", Data: catText(2000)})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	doc := res.Document
	if doc.ID == 0 || res.Duplicate || !res.SessionCreated {
		t.Fatalf("unexpected upload result %+v", res)
	}
	if len([]rune(doc.Content)) != 2000 || doc.FileType != "txt" || doc.PageCount != 1 {
		t.Fatalf("unexpected document fields %+v", doc)
	}
	if doc.Summary == "" {
		t.Fatalf("expected a summary")
	}
	if n := len(doc.Questions); n < 3 || n > 6 {
		t.Fatalf("expected 3 to 6 questions, got %d", n)
	}
	if doc.Enrichment != model.EnrichmentReady {
		t.Fatalf("inline enrichment should be ready, got %q", doc.Enrichment)
	}
	if res.Session.Title != "Dong-vat" {
		t.Fatalf("unexpected session title %q", res.Session.Title)
	}
}

func TestUploadSameFileTwiceIsDeduplicated(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	data := catText(600)

	first, err := env.docs.Upload(ctx, UploadInput{UserID: 1, FileName: "notes.md", Data: data})
	if err != nil {
		t.Fatalf("first upload: %v", err)
	}
	second, err := env.docs.Upload(ctx, UploadInput{UserID: 1, SessionID: first.Session.ID, FileName: "notes.md", Data: data})
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if !second.Duplicate || second.Document.ID != first.Document.ID {
		t.Fatalf("expected duplicate of %d, got %+v", first.Document.ID, second)
	}
	docs, err := env.docs.ListDocuments(ctx, 1, first.Session.ID)
	if err != nil || len(docs) != 1 {
		t.Fatalf("expected exactly one stored document, got %d %v", len(docs), err)
	}
	if got := env.llm.count(ai.PresetSummarization); got != 1 {
		t.Fatalf("duplicate upload must not summarise again, got %d calls", got)
	}
}

func TestUploadPDFStoresPages(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.ocr.pages = []ocr.Page{{Number: 1, Markdown: "# Chương 1"}, {Number: 2, Markdown: "Quang hợp ở thực vật."}}
	ctx := context.Background()

	res, err := env.docs.Upload(ctx, UploadInput{UserID: 4, FileName: "sinh-hoc.pdf", Data: []byte("%PDF-1.7 fake")})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if res.Document.PageCount != 2 || res.Document.OCRProvider != "stub" {
		t.Fatalf("unexpected pdf document %+v", res.Document)
	}
	if !strings.Contains(res.Document.Content, "Quang hợp") {
		t.Fatalf("content should hold the ocr text: %q", res.Document.Content)
	}

	view, err := env.docs.Page(ctx, 4, res.Document.ID, 2)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if view.Markdown != "Quang hợp ở thực vật." || view.TotalPages != 2 {
		t.Fatalf("unexpected page view %+v", view)
	}
	if env.pages.hits == 0 {
		t.Fatalf("page view should be served from the cache")
	}
	if _, err := env.docs.Page(ctx, 4, res.Document.ID, 3); !errors.Is(err, ErrPageNotFound) {
		t.Fatalf("expected ErrPageNotFound, got %v", err)
	}
	if _, err := env.docs.Page(ctx, 5, res.Document.ID, 1); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("other users must not read the document, got %v", err)
	}
}

func TestUploadRejectsBadInput(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.docs.Upload(ctx, UploadInput{UserID: 1, FileName: "setup.exe", Data: []byte("MZ\x90\x00")})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	_, err = env.docs.Upload(ctx, UploadInput{UserID: 1, FileName: "blank.txt", Data: []byte("   \n ")})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected empty document to be rejected, got %v", err)
	}
	_, err = env.docs.Upload(ctx, UploadInput{UserID: 1, SessionID: 999, FileName: "a.txt", Data: []byte("abc")})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}

	env.ocr.err = ocr.ErrNoText
	_, err = env.docs.Upload(ctx, UploadInput{UserID: 1, FileName: "scan.pdf", Data: []byte("%PDF-1.4")})
	if !apperr.IsKind(err, apperr.KindFileProcessing) {
		t.Fatalf("expected file processing error, got %v", err)
	}
	if env.ocr.calls != 1 {
		t.Fatalf("terminal ocr errors must not be retried, got %d calls", env.ocr.calls)
	}
}

func TestAsyncEnrichmentPublishesAndBackfills(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{}
	env := newTestEnv(t, withPublisher(pub))
	ctx := context.Background()

	res, err := env.docs.Upload(ctx, UploadInput{UserID: 2, FileName: "bai.txt", Data: catText(800)})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if res.Document.Enrichment != model.EnrichmentPending || res.Document.Summary != "" {
		t.Fatalf("expected pending document, got %+v", res.Document)
	}
	if len(pub.jobs) != 1 || pub.jobs[0].DocumentID != res.Document.ID || pub.jobs[0].RequestID == "" {
		t.Fatalf("unexpected jobs %+v", pub.jobs)
	}

	if err := env.docs.Enrich(ctx, res.Document.ID); err != nil {
		t.Fatalf("enrich: %v", err)
	}
	docs, err := env.docs.ListDocuments(ctx, 2, res.Session.ID)
	if err != nil || len(docs) != 1 {
		t.Fatalf("list: %v", err)
	}
	if docs[0].Enrichment != model.EnrichmentReady || docs[0].Summary == "" || len(docs[0].Questions) < 3 {
		t.Fatalf("document not back-filled: %+v", docs[0])
	}

	if err := env.docs.Enrich(ctx, 12345); err != nil {
		t.Fatalf("missing documents are skipped, got %v", err)
	}
}

func TestMarkFailedLeavesDocumentWithoutEnrichment(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, withPublisher(&recordingPublisher{}))
	ctx := context.Background()
	res, err := env.docs.Upload(ctx, UploadInput{UserID: 2, FileName: "bai.txt", Data: catText(600)})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if err := env.docs.MarkFailed(ctx, res.Document.ID); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	docs, err := env.docs.ListDocuments(ctx, 2, res.Session.ID)
	if err != nil || len(docs) != 1 {
		t.Fatalf("list: %v", err)
	}
	if docs[0].Enrichment != model.EnrichmentFailed {
		t.Fatalf("expected failed enrichment, got %q", docs[0].Enrichment)
	}
}

func TestAsyncEnrichmentFallsBackInline(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, withPublisher(&recordingPublisher{err: errBrokerDown}))
	res, err := env.docs.Upload(context.Background(), UploadInput{UserID: 2, FileName: "bai.txt", Data: catText(500)})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if res.Document.Enrichment != model.EnrichmentReady || res.Document.Summary == "" {
		t.Fatalf("expected inline enrichment after publish failure, got %+v", res.Document)
	}
}

func TestDeleteDocument(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	res, err := env.docs.Upload(ctx, UploadInput{UserID: 3, FileName: "x.txt", Data: catText(300)})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if err := env.docs.DeleteDocument(ctx, 9, res.Document.ID); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("non-owner delete should report not found, got %v", err)
	}
	if err := env.docs.DeleteDocument(ctx, 3, res.Document.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := env.pages.pages[res.Document.ID]; ok {
		t.Fatalf("page cache entry should be dropped")
	}
}
