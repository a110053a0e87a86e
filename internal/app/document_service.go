package app

import (
	"context"
	"path/filepath"
	"strings"

	"studybuddy/internal/apperr"
	"studybuddy/internal/document"
	"studybuddy/internal/model"
	"studybuddy/internal/ocr"
	"studybuddy/internal/pkg/logger"
	"studybuddy/internal/pkg/reqctx"
	"studybuddy/internal/platform/rabbitmq"
	"studybuddy/internal/repository"
	"studybuddy/internal/retry"
	"studybuddy/internal/validate"
)

// EnrichmentPublisher hands summary and question generation to a worker.
type EnrichmentPublisher interface {
	PublishEnrichment(ctx context.Context, job rabbitmq.EnrichmentJob) error
}

type PageCache interface {
	GetPages(ctx context.Context, documentID uint) ([]ocr.Page, bool, error)
	SetPages(ctx context.Context, documentID uint, pages []ocr.Page) error
	DeletePages(ctx context.Context, documentID uint) error
}

type DocumentService struct {
	sessionRepo  *repository.SessionRepository
	documentRepo *repository.DocumentRepository
	ocr          ocr.Provider
	pipeline     *document.Pipeline
	publisher    EnrichmentPublisher
	pageCache    PageCache
	opts         DocumentOptions
	filePolicy   retry.Policy
	dbPolicy     retry.Policy
	log          *logger.Logger
}

type DocumentOptions struct {
	MaxUploadBytes int64
	SummaryWords   int
}

type UploadInput struct {
	UserID    uint
	SessionID uint
	FileName  string
	Data      []byte
}

type UploadResult struct {
	Session        *model.Session         `json:"session"`
	SessionCreated bool                   `json:"session_created"`
	Document       *model.SessionDocument `json:"document"`
	Duplicate      bool                   `json:"duplicate"`
}

type PageView struct {
	DocumentID uint   `json:"document_id"`
	FileName   string `json:"file_name"`
	Page       int    `json:"page"`
	TotalPages int    `json:"total_pages"`
	Markdown   string `json:"markdown"`
}

// NewDocumentService wires the upload pipeline. A nil publisher makes
// enrichment run inline; a nil page cache reads pages from the database.
func NewDocumentService(
	sessionRepo *repository.SessionRepository,
	documentRepo *repository.DocumentRepository,
	provider ocr.Provider,
	pipeline *document.Pipeline,
	publisher EnrichmentPublisher,
	pageCache PageCache,
	opts DocumentOptions,
	log *logger.Logger,
) *DocumentService {
	if log == nil {
		log = logger.Nop()
	}
	if opts.SummaryWords <= 0 {
		opts.SummaryWords = document.DefaultSummaryWords
	}
	return &DocumentService{
		sessionRepo:  sessionRepo,
		documentRepo: documentRepo,
		ocr:          provider,
		pipeline:     pipeline,
		publisher:    publisher,
		pageCache:    pageCache,
		opts:         opts,
		filePolicy:   retry.File,
		dbPolicy:     retry.Database,
		log:          log.With("component", "app.DocumentService"),
	}
}

// Upload validates and extracts a file, then stores it in the session. A
// file with the same name and size already in the session is returned as is
// with Duplicate set.
func (s *DocumentService) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	if input.UserID == 0 {
		return nil, ErrInvalidInput
	}
	name := strings.TrimSpace(input.FileName)
	if err := validate.Upload(name, input.Data, s.opts.MaxUploadBytes); err != nil {
		return nil, err
	}

	session, created, err := s.resolveSession(ctx, input.UserID, input.SessionID, name)
	if err != nil {
		return nil, err
	}
	result := &UploadResult{Session: session, SessionCreated: created}

	size := int64(len(input.Data))
	existing, err := s.documentRepo.FindDuplicate(ctx, session.ID, name, size)
	if err != nil {
		return nil, apperr.Database("document_lookup_failed", err)
	}
	if existing != nil {
		result.Document, result.Duplicate = existing, true
		return result, nil
	}

	extracted, err := retry.Do(ctx, s.filePolicy, func(ctx context.Context) (*document.Extracted, error) {
		return document.Extract(ctx, document.Uploaded{Filename: name, Data: input.Data}, s.ocr)
	})
	if err != nil {
		return nil, s.extractionError(ctx, name, err)
	}
	if err := validate.DocumentContent(extracted.Text); err != nil {
		return nil, err
	}

	doc := &model.SessionDocument{
		SessionID:  session.ID,
		UserID:     input.UserID,
		FileName:   name,
		FileType:   extracted.FileType,
		FileSize:   size,
		Content:    extracted.Text,
		PageCount:  max(len(extracted.Pages), 1),
		Enrichment: model.EnrichmentReady,
	}
	if s.ocr != nil && extracted.FileType == "pdf" {
		doc.OCRProvider = s.ocr.Name()
	}
	if s.publisher != nil {
		doc.Enrichment = model.EnrichmentPending
	} else {
		s.fillEnrichment(ctx, doc)
	}

	saved, err := retry.Do(ctx, s.dbPolicy, func(ctx context.Context) (storedDoc, error) {
		d, ok, err := s.documentRepo.CreateIfAbsent(ctx, doc)
		return storedDoc{doc: d, inserted: ok}, err
	})
	if err != nil {
		return nil, apperr.Database("document_save_failed", err)
	}
	stored := saved.doc
	result.Document = stored
	if !saved.inserted {
		result.Duplicate = true
		return result, nil
	}

	if err := s.storePages(ctx, stored.ID, normalizePages(extracted.Pages, stored.Content)); err != nil {
		s.log.Warn("store document pages failed", "document_id", stored.ID, "error", err)
	}
	if stored.Enrichment == model.EnrichmentPending {
		s.enqueue(ctx, stored)
	}
	return result, nil
}

// Enrich fills in the summary and suggested questions of a stored document.
// A document deleted in the meantime is skipped.
func (s *DocumentService) Enrich(ctx context.Context, documentID uint) error {
	doc, err := s.documentRepo.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if doc == nil {
		s.log.Info("skip enrichment of missing document", "document_id", documentID)
		return nil
	}
	s.fillEnrichment(ctx, doc)
	return s.documentRepo.UpdateEnrichment(ctx, doc.ID, doc.Summary, doc.Questions, model.EnrichmentReady)
}

// MarkFailed flags a document whose enrichment will not be retried.
func (s *DocumentService) MarkFailed(ctx context.Context, documentID uint) error {
	return s.documentRepo.MarkEnrichment(ctx, documentID, model.EnrichmentFailed)
}

func (s *DocumentService) ListDocuments(ctx context.Context, userID, sessionID uint) ([]model.SessionDocument, error) {
	if userID == 0 || sessionID == 0 {
		return nil, ErrInvalidInput
	}
	session, err := s.sessionRepo.GetByIDAndUserID(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return []model.SessionDocument{}, nil
	}
	return s.documentRepo.ListBySessionID(ctx, sessionID)
}

func (s *DocumentService) DeleteDocument(ctx context.Context, userID, documentID uint) error {
	if userID == 0 || documentID == 0 {
		return ErrInvalidInput
	}
	deleted, err := s.documentRepo.DeleteByIDAndUserID(ctx, documentID, userID)
	if err != nil {
		return apperr.Database("document_delete_failed", err)
	}
	if !deleted {
		return ErrDocumentNotFound
	}
	if s.pageCache != nil {
		if err := s.pageCache.DeletePages(ctx, documentID); err != nil {
			s.log.Warn("page cache delete failed", "document_id", documentID, "error", err)
		}
	}
	return nil
}

// Pages returns the document and its pages, from the cache when present.
// Documents stored without page rows are served as a single page.
func (s *DocumentService) Pages(ctx context.Context, userID, documentID uint) (*model.SessionDocument, []ocr.Page, error) {
	if userID == 0 || documentID == 0 {
		return nil, nil, ErrInvalidInput
	}
	doc, err := s.documentRepo.GetByIDAndUserID(ctx, documentID, userID)
	if err != nil {
		return nil, nil, err
	}
	if doc == nil {
		return nil, nil, ErrDocumentNotFound
	}

	if s.pageCache != nil {
		pages, hit, err := s.pageCache.GetPages(ctx, documentID)
		if err != nil {
			s.log.Warn("page cache read failed", "document_id", documentID, "error", err)
		}
		if hit && len(pages) > 0 {
			return doc, pages, nil
		}
	}

	rows, err := s.documentRepo.ListPages(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}
	pages := make([]ocr.Page, 0, len(rows))
	for _, row := range rows {
		pages = append(pages, ocr.Page{Number: row.PageNumber, Markdown: row.Markdown})
	}
	pages = normalizePages(pages, doc.Content)

	if s.pageCache != nil {
		if err := s.pageCache.SetPages(ctx, documentID, pages); err != nil {
			s.log.Warn("page cache write failed", "document_id", documentID, "error", err)
		}
	}
	return doc, pages, nil
}

func (s *DocumentService) Page(ctx context.Context, userID, documentID uint, page int) (*PageView, error) {
	doc, pages, err := s.Pages(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}
	if page < 1 || page > len(pages) {
		return nil, ErrPageNotFound
	}
	return &PageView{
		DocumentID: doc.ID,
		FileName:   doc.FileName,
		Page:       page,
		TotalPages: len(pages),
		Markdown:   pages[page-1].Markdown,
	}, nil
}

func (s *DocumentService) resolveSession(ctx context.Context, userID, sessionID uint, fileName string) (*model.Session, bool, error) {
	if sessionID != 0 {
		session, err := s.sessionRepo.GetByIDAndUserID(ctx, sessionID, userID)
		if err != nil {
			return nil, false, err
		}
		if session == nil {
			return nil, false, ErrSessionNotFound
		}
		return session, false, nil
	}
	title := document.GenerateSmartTitle(strings.TrimSuffix(fileName, filepath.Ext(fileName)))
	session, created, err := s.sessionRepo.FindOrCreate(ctx, userID, title)
	if err != nil {
		return nil, false, apperr.Database("session_create_failed", err)
	}
	return session, created, nil
}

func (s *DocumentService) fillEnrichment(ctx context.Context, doc *model.SessionDocument) {
	doc.Summary = s.pipeline.Summarize(ctx, doc.Content, s.opts.SummaryWords)
	doc.Questions = s.pipeline.GenerateQuestions(ctx, doc.Content)
}

// enqueue publishes an enrichment job, enriching inline when the broker
// refuses it so the document never stays pending.
func (s *DocumentService) enqueue(ctx context.Context, doc *model.SessionDocument) {
	job := rabbitmq.EnrichmentJob{DocumentID: doc.ID, UserID: doc.UserID, RequestID: reqctx.RequestID(ctx)}
	err := s.publisher.PublishEnrichment(ctx, job)
	if err == nil {
		return
	}
	s.log.Warn("publish enrichment failed, enriching inline", "error_id", job.RequestID, "document_id", doc.ID, "error", err)
	s.fillEnrichment(ctx, doc)
	if err := s.documentRepo.UpdateEnrichment(ctx, doc.ID, doc.Summary, doc.Questions, model.EnrichmentReady); err != nil {
		s.log.Error("inline enrichment save failed", "document_id", doc.ID, "error", err)
		_ = s.documentRepo.MarkEnrichment(ctx, doc.ID, model.EnrichmentFailed)
		return
	}
	doc.Enrichment = model.EnrichmentReady
}

func (s *DocumentService) storePages(ctx context.Context, documentID uint, pages []ocr.Page) error {
	rows := make([]model.DocumentPage, 0, len(pages))
	for _, p := range pages {
		rows = append(rows, model.DocumentPage{PageNumber: p.Number, Markdown: p.Markdown})
	}
	if err := s.documentRepo.ReplacePages(ctx, documentID, rows); err != nil {
		return err
	}
	if s.pageCache != nil {
		if err := s.pageCache.SetPages(ctx, documentID, pages); err != nil {
			s.log.Warn("page cache write failed", "document_id", documentID, "error", err)
		}
	}
	return nil
}

func (s *DocumentService) extractionError(ctx context.Context, fileName string, err error) error {
	requestID := reqctx.RequestID(ctx)
	s.log.Error("document extraction failed", "error_id", requestID, "file_name", fileName, "error", err)
	if _, ok := apperr.As(err); ok {
		return err
	}
	failure := apperr.NewLLMFailure(err)
	return apperr.FileProcessing("extraction_failed", "Không thể trích xuất nội dung tài liệu. "+failure.Guidance, err)
}

// normalizePages numbers pages 1..n in order, and falls back to the whole
// text as page 1 when there are none.
func normalizePages(pages []ocr.Page, text string) []ocr.Page {
	if len(pages) == 0 {
		return []ocr.Page{{Number: 1, Markdown: text}}
	}
	out := make([]ocr.Page, len(pages))
	for i, p := range pages {
		out[i] = ocr.Page{Number: i + 1, Markdown: p.Markdown}
	}
	return out
}

type storedDoc struct {
	doc      *model.SessionDocument
	inserted bool
}
