package app

import (
	"context"
	"errors"
	"strings"

	"studybuddy/internal/apperr"
	"studybuddy/internal/document"
	"studybuddy/internal/model"
	"studybuddy/internal/ocr"
	"studybuddy/internal/pkg/logger"
	"studybuddy/internal/repository"
	"studybuddy/internal/retry"
	"studybuddy/internal/validate"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrDocumentNotFound = errors.New("document not found")
	ErrPageNotFound     = errors.New("page not found")
)

type HistoryCache interface {
	GetHistory(ctx context.Context, sessionID uint) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, sessionID uint, messages []model.Message) error
	DeleteHistory(ctx context.Context, sessionID uint) error
}

// PageReader loads a document with its per-page text.
type PageReader interface {
	Pages(ctx context.Context, userID, documentID uint) (*model.SessionDocument, []ocr.Page, error)
}

type ChatService struct {
	sessionRepo  *repository.SessionRepository
	messageRepo  *repository.MessageRepository
	documentRepo *repository.DocumentRepository
	pages        PageReader
	pipeline     *document.Pipeline
	historyCache HistoryCache
	dbPolicy     retry.Policy
	log          *logger.Logger
}

type AskInput struct {
	UserID    uint
	SessionID uint
	Question  string
}

type PageAskInput struct {
	UserID     uint
	DocumentID uint
	Page       int
	// EndPage selects a page range when greater than Page.
	EndPage  int
	Question string
}

type AskResult struct {
	Session          *model.Session `json:"session"`
	SessionCreated   bool           `json:"session_created"`
	UserMessage      *model.Message `json:"user_message"`
	AssistantMessage *model.Message `json:"assistant_message"`
	Fallback         bool           `json:"fallback"`
	Guidance         string         `json:"guidance,omitempty"`
	ErrorID          string         `json:"error_id,omitempty"`
}

func NewChatService(
	sessionRepo *repository.SessionRepository,
	messageRepo *repository.MessageRepository,
	documentRepo *repository.DocumentRepository,
	pages PageReader,
	pipeline *document.Pipeline,
	historyCache HistoryCache,
	log *logger.Logger,
) *ChatService {
	if log == nil {
		log = logger.Nop()
	}
	return &ChatService{
		sessionRepo:  sessionRepo,
		messageRepo:  messageRepo,
		documentRepo: documentRepo,
		pages:        pages,
		pipeline:     pipeline,
		historyCache: historyCache,
		dbPolicy:     retry.Database,
		log:          log.With("component", "app.ChatService"),
	}
}

func (s *ChatService) CreateSession(ctx context.Context, userID uint, title string) (*model.Session, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = model.DefaultSessionTitle
	}
	if err := validate.SessionTitle(title); err != nil {
		return nil, err
	}

	session := &model.Session{UserID: userID, Title: title}
	if _, err := retry.Do(ctx, s.dbPolicy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.sessionRepo.Create(ctx, session)
	}); err != nil {
		return nil, apperr.Database("session_create_failed", err)
	}
	return session, nil
}

// ListSessions returns the 20 most recent sessions with a preview of their
// first user message.
func (s *ChatService) ListSessions(ctx context.Context, userID uint) ([]model.SessionSummary, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	sessions, err := s.sessionRepo.ListByUserID(ctx, userID, repository.DefaultSessionListLimit)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(sessions))
	for _, session := range sessions {
		ids = append(ids, session.ID)
	}
	previews, err := s.messageRepo.FirstUserMessages(ctx, ids)
	if err != nil {
		return nil, err
	}
	counts, err := s.messageRepo.CountBySessions(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]model.SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, model.SessionSummary{
			Session:      session,
			Preview:      document.Preview(previews[session.ID]),
			MessageCount: counts[session.ID],
		})
	}
	return out, nil
}

func (s *ChatService) RenameSession(ctx context.Context, userID, sessionID uint, title string) (*model.Session, error) {
	if userID == 0 || sessionID == 0 {
		return nil, ErrInvalidInput
	}
	title = strings.TrimSpace(title)
	if err := validate.SessionTitle(title); err != nil {
		return nil, err
	}
	ok, err := s.sessionRepo.UpdateTitle(ctx, sessionID, userID, title)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.sessionRepo.GetByIDAndUserID(ctx, sessionID, userID)
}

// DeleteSession removes the session with its messages, documents and pages.
func (s *ChatService) DeleteSession(ctx context.Context, userID, sessionID uint) error {
	if userID == 0 || sessionID == 0 {
		return ErrInvalidInput
	}
	deleted, err := s.sessionRepo.DeleteByIDAndUserID(ctx, sessionID, userID)
	if err != nil {
		return apperr.Database("session_delete_failed", err)
	}
	if !deleted {
		return ErrSessionNotFound
	}
	s.dropHistory(ctx, sessionID)
	return nil
}

// History returns the session's messages oldest first. A session that no
// longer exists yields an empty slice.
func (s *ChatService) History(ctx context.Context, userID, sessionID uint, limit int) ([]model.Message, error) {
	if userID == 0 || sessionID == 0 {
		return nil, ErrInvalidInput
	}
	session, err := s.sessionRepo.GetByIDAndUserID(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return []model.Message{}, nil
	}
	return s.messageRepo.ListBySessionID(ctx, sessionID, limit)
}

func (s *ChatService) Stats(ctx context.Context, userID, sessionID uint) (*model.SessionStats, error) {
	if userID == 0 || sessionID == 0 {
		return nil, ErrInvalidInput
	}
	session, err := s.sessionRepo.GetByIDAndUserID(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	byRole, err := s.messageRepo.CountByRole(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	docs, err := s.documentRepo.CountBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	stats := &model.SessionStats{
		UserMessages:      byRole[model.RoleUser],
		AssistantMessages: byRole[model.RoleAssistant],
		Documents:         docs,
	}
	for _, n := range byRole {
		stats.TotalMessages += n
	}
	return stats, nil
}

// Ask answers a question in a session. Without a session id, the session is
// found or created from the question's smart title. Sessions with documents
// get a document answer; others get a general chat reply.
func (s *ChatService) Ask(ctx context.Context, input AskInput) (*AskResult, error) {
	if input.UserID == 0 {
		return nil, ErrInvalidInput
	}
	question := strings.TrimSpace(input.Question)
	if err := validate.Message(question); err != nil {
		return nil, err
	}

	turn, err := s.loadTurn(ctx, input.UserID, input.SessionID, question)
	if err != nil {
		return nil, err
	}

	var answer document.Answer
	if turn.HasDocuments() {
		answer = s.pipeline.Answer(ctx, question, turn.DocumentText())
	} else {
		answer = s.pipeline.Chat(ctx, turn.ChatHistory(), question)
	}
	return s.record(ctx, turn, question, answer)
}

// AskPage answers a question about one page, or a page range, of a document.
// The exchange is stored in the "Trang {page} - {file}" session.
func (s *ChatService) AskPage(ctx context.Context, input PageAskInput) (*AskResult, error) {
	if input.UserID == 0 || input.DocumentID == 0 {
		return nil, ErrInvalidInput
	}
	question := strings.TrimSpace(input.Question)
	if err := validate.Message(question); err != nil {
		return nil, err
	}

	doc, pages, err := s.pages.Pages(ctx, input.UserID, input.DocumentID)
	if err != nil {
		return nil, err
	}
	text, err := pageText(pages, input.Page, input.EndPage)
	if err != nil {
		return nil, err
	}

	turn := newTurn(ctx, input.UserID)
	session, created, err := s.sessionRepo.FindOrCreate(ctx, input.UserID, document.PageSessionTitle(input.Page, doc.FileName))
	if err != nil {
		return nil, apperr.Database("session_create_failed", err)
	}
	turn.Session, turn.SessionCreated = session, created

	answer := s.pipeline.AnswerWithin(ctx, question, text, document.PageContextBudget)
	return s.record(ctx, turn, question, answer)
}

func (s *ChatService) loadTurn(ctx context.Context, userID, sessionID uint, question string) (*Turn, error) {
	turn := newTurn(ctx, userID)
	if sessionID == 0 {
		session, created, err := s.sessionRepo.FindOrCreate(ctx, userID, document.GenerateSmartTitle(question))
		if err != nil {
			return nil, apperr.Database("session_create_failed", err)
		}
		turn.Session, turn.SessionCreated = session, created
	} else {
		session, err := s.sessionRepo.GetByIDAndUserID(ctx, sessionID, userID)
		if err != nil {
			return nil, err
		}
		if session == nil {
			return nil, ErrSessionNotFound
		}
		turn.Session = session
	}

	docs, err := s.documentRepo.ListBySessionID(ctx, turn.Session.ID)
	if err != nil {
		return nil, err
	}
	turn.Documents = docs
	if !turn.HasDocuments() {
		history, err := s.recentHistory(ctx, turn.Session.ID)
		if err != nil {
			return nil, err
		}
		turn.History = history
	}
	return turn, nil
}

func (s *ChatService) recentHistory(ctx context.Context, sessionID uint) ([]model.Message, error) {
	if s.historyCache != nil {
		if cached, hit, err := s.historyCache.GetHistory(ctx, sessionID); err == nil && hit {
			return cached, nil
		} else if err != nil {
			s.log.Warn("history cache read failed", "session_id", sessionID, "error", err)
		}
	}
	messages, err := s.messageRepo.ListRecent(ctx, sessionID, document.HistoryWindow)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if err := s.historyCache.SetHistory(ctx, sessionID, messages); err != nil {
			s.log.Warn("history cache write failed", "session_id", sessionID, "error", err)
		}
	}
	return messages, nil
}

// record stores the question and the answer and bumps the session.
func (s *ChatService) record(ctx context.Context, turn *Turn, question string, answer document.Answer) (*AskResult, error) {
	userMsg, err := s.saveMessage(ctx, turn, model.RoleUser, question)
	if err != nil {
		return nil, err
	}
	assistantMsg, err := s.saveMessage(ctx, turn, model.RoleAssistant, answer.Text)
	if err != nil {
		return nil, err
	}
	if err := s.sessionRepo.Touch(ctx, turn.Session.ID); err != nil {
		s.log.Warn("touch session failed", "session_id", turn.Session.ID, "error", err)
	}
	s.dropHistory(ctx, turn.Session.ID)

	result := &AskResult{
		Session:          turn.Session,
		SessionCreated:   turn.SessionCreated,
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
		Fallback:         answer.Fallback,
		Guidance:         answer.Guidance(),
	}
	if answer.Fallback {
		result.ErrorID = turn.RequestID
	}
	return result, nil
}

func (s *ChatService) saveMessage(ctx context.Context, turn *Turn, role, content string) (*model.Message, error) {
	msg := &model.Message{
		SessionID: turn.Session.ID,
		UserID:    turn.UserID,
		Role:      role,
		Content:   content,
	}
	_, err := retry.Do(ctx, s.dbPolicy, func(ctx context.Context) (struct{}, error) {
		msg.ID = 0
		return struct{}{}, s.messageRepo.Create(ctx, msg)
	})
	if err != nil {
		s.log.Error("save message failed", "error_id", turn.RequestID, "session_id", turn.Session.ID, "role", role, "error", err)
		return nil, apperr.Database("message_save_failed", err)
	}
	return msg, nil
}

func (s *ChatService) dropHistory(ctx context.Context, sessionID uint) {
	if s.historyCache == nil {
		return
	}
	if err := s.historyCache.DeleteHistory(ctx, sessionID); err != nil {
		s.log.Warn("history cache delete failed", "session_id", sessionID, "error", err)
	}
}

// pageText returns the markdown of page, or of page..end joined with page
// headers when end is past page.
func pageText(pages []ocr.Page, page, end int) (string, error) {
	if err := validate.PageNumber(page, len(pages)); err != nil {
		return "", err
	}
	if end <= page {
		return pages[page-1].Markdown, nil
	}
	if err := validate.PageNumber(end, len(pages)); err != nil {
		return "", err
	}
	return document.JoinPages(pages[page-1 : end]), nil
}
