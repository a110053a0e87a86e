package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"

	"studybuddy/internal/ai"
	"studybuddy/internal/apperr"
	"studybuddy/internal/model"
	"studybuddy/internal/ocr"
)

func TestAskWithoutSessionCreatesTitledSession(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.chat.Ask(ctx, AskInput{UserID: 1, Question: "xin chào bạn"})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if !first.SessionCreated || first.Session.Title != "Xin chào bạn" {
		t.Fatalf("unexpected session %+v created=%v", first.Session, first.SessionCreated)
	}
	if first.AssistantMessage.Content != "Xin chào, tôi có thể giúp gì?" || first.Fallback {
		t.Fatalf("unexpected answer %+v", first.AssistantMessage)
	}

	again, err := env.chat.Ask(ctx, AskInput{UserID: 1, Question: "xin chào bạn"})
	if err != nil {
		t.Fatalf("ask again: %v", err)
	}
	if again.SessionCreated || again.Session.ID != first.Session.ID {
		t.Fatalf("same title should reuse session %d, got %+v", first.Session.ID, again.Session)
	}
}

func TestAskGeneralChatSendsHistory(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.chat.Ask(ctx, AskInput{UserID: 1, Question: "Tôi tên là Lan"})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if _, err := env.chat.Ask(ctx, AskInput{UserID: 1, SessionID: first.Session.ID, Question: "Tôi tên gì?"}); err != nil {
		t.Fatalf("follow up: %v", err)
	}

	msgs := env.llm.lastMessages(ai.PresetChat)
	if len(msgs) != 4 {
		t.Fatalf("expected system, two history messages and the question, got %d", len(msgs))
	}
	if msgs[1].Content != "Tôi tên là Lan" || msgs[3].Content != "Tôi tên gì?" {
		t.Fatalf("unexpected history %+v", msgs)
	}

	history, err := env.chat.History(ctx, 1, first.Session.ID, 0)
	if err != nil || len(history) != 4 {
		t.Fatalf("expected four stored messages, got %d %v", len(history), err)
	}
	if history[0].Role != model.RoleUser || history[1].Role != model.RoleAssistant {
		t.Fatalf("history out of order: %+v", history)
	}
}

func TestAskAnswersFromDocuments(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	up, err := env.docs.Upload(ctx, UploadInput{UserID: 1, FileName: "meo.txt", Data: catText(900)})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	res, err := env.chat.Ask(ctx, AskInput{UserID: 1, SessionID: up.Session.ID, Question: "Mèo ăn gì?"})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if !strings.HasSuffix(res.AssistantMessage.Content, "Mèo ăn cá.") || res.Fallback {
		t.Fatalf("unexpected answer %q", res.AssistantMessage.Content)
	}
	if env.llm.count(ai.PresetChat) != 0 {
		t.Fatalf("sessions with documents must not use general chat")
	}
	prompt := env.llm.lastMessages(ai.PresetDocumentQA)
	if len(prompt) != 2 || !strings.Contains(prompt[1].Content, "Mèo là loài vật nuôi") {
		t.Fatalf("document text missing from prompt: %+v", prompt)
	}
}

func TestAskFallsBackWhenModelFails(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	up, err := env.docs.Upload(ctx, UploadInput{UserID: 1, FileName: "meo.txt", Data: catText(900)})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	env.llm.err = &openai.APIError{HTTPStatusCode: 401, Message: "invalid api key"}
	res, err := env.chat.Ask(ctx, AskInput{UserID: 1, SessionID: up.Session.ID, Question: "Xyzzy plugh?"})
	if err != nil {
		t.Fatalf("fallback must not surface as an error: %v", err)
	}
	want := "Không tìm thấy thông tin cụ thể về 'Xyzzy plugh?' trong tài liệu."
	if res.AssistantMessage.Content != want {
		t.Fatalf("got %q, want %q", res.AssistantMessage.Content, want)
	}
	if !res.Fallback || res.ErrorID == "" {
		t.Fatalf("fallback answer should carry an error id: %+v", res)
	}

	res, err = env.chat.Ask(ctx, AskInput{UserID: 1, SessionID: up.Session.ID, Question: "Chó có trung thành không?"})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if !strings.Contains(res.AssistantMessage.Content, "Chó rất trung thành") {
		t.Fatalf("keyword fallback should quote the document, got %q", res.AssistantMessage.Content)
	}
}

func TestAskRejectsBadInput(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.chat.Ask(ctx, AskInput{UserID: 1, Question: "   "}); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for empty question, got %v", err)
	}
	if _, err := env.chat.Ask(ctx, AskInput{UserID: 1, Question: strings.Repeat("a", 20)}); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected spam to be rejected, got %v", err)
	}
	if _, err := env.chat.Ask(ctx, AskInput{UserID: 1, SessionID: 77, Question: "Còn đó không?"}); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := env.chat.Ask(ctx, AskInput{Question: "Còn đó không?"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAskPage(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.ocr.pages = []ocr.Page{
		{Number: 1, Markdown: "Giới thiệu môn sinh học."},
		{Number: 2, Markdown: "Quang hợp tạo ra oxy."},
		{Number: 3, Markdown: "Hô hấp tế bào."},
	}
	ctx := context.Background()
	up, err := env.docs.Upload(ctx, UploadInput{UserID: 2, FileName: "bai.pdf", Data: []byte("%PDF-1.5")})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	res, err := env.chat.AskPage(ctx, PageAskInput{UserID: 2, DocumentID: up.Document.ID, Page: 2, Question: "Quang hợp là gì?"})
	if err != nil {
		t.Fatalf("ask page: %v", err)
	}
	if res.Session.Title != "Trang 2 - bai.pdf" {
		t.Fatalf("unexpected page session %q", res.Session.Title)
	}
	prompt := env.llm.lastMessages(ai.PresetDocumentQA)
	if !strings.Contains(prompt[1].Content, "Quang hợp tạo ra oxy.") || strings.Contains(prompt[1].Content, "Hô hấp") {
		t.Fatalf("prompt should hold only page 2: %q", prompt[1].Content)
	}

	again, err := env.chat.AskPage(ctx, PageAskInput{UserID: 2, DocumentID: up.Document.ID, Page: 2, Question: "Oxy từ đâu ra?"})
	if err != nil || again.Session.ID != res.Session.ID {
		t.Fatalf("page session should be reused: %v", err)
	}

	if _, err := env.chat.AskPage(ctx, PageAskInput{UserID: 2, DocumentID: up.Document.ID, Page: 1, EndPage: 2, Question: "Tóm tắt hai trang?"}); err != nil {
		t.Fatalf("range ask: %v", err)
	}
	prompt = env.llm.lastMessages(ai.PresetDocumentQA)
	if !strings.Contains(prompt[1].Content, "=== TRANG 1 ===") {
		t.Fatalf("range prompt should carry page headers: %q", prompt[1].Content)
	}

	if _, err := env.chat.AskPage(ctx, PageAskInput{UserID: 2, DocumentID: up.Document.ID, Page: 4, Question: "Trang bốn?"}); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected invalid page to be rejected, got %v", err)
	}
	if _, err := env.chat.AskPage(ctx, PageAskInput{UserID: 3, DocumentID: up.Document.ID, Page: 1, Question: "Của ai?"}); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestAskPageWithLongFileName(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.ocr.pages = []ocr.Page{{Number: 1, Markdown: "Giới thiệu môn sinh học."}}
	ctx := context.Background()
	name := strings.Repeat("b", 251) + ".pdf"
	up, err := env.docs.Upload(ctx, UploadInput{UserID: 2, FileName: name, Data: []byte("%PDF-1.5")})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	res, err := env.chat.AskPage(ctx, PageAskInput{UserID: 2, DocumentID: up.Document.ID, Page: 1, Question: "Môn học là gì?"})
	if err != nil {
		t.Fatalf("ask page: %v", err)
	}
	if n := len([]rune(res.Session.Title)); n > 128 {
		t.Fatalf("page session title has %d runes, exceeds sessions.title column", n)
	}
	if !strings.HasPrefix(res.Session.Title, "Trang 1 - bbb") {
		t.Fatalf("unexpected page session %q", res.Session.Title)
	}
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	session, err := env.chat.CreateSession(ctx, 5, "")
	if err != nil || session.Title != model.DefaultSessionTitle {
		t.Fatalf("create: %+v %v", session, err)
	}
	if _, err := env.chat.Ask(ctx, AskInput{UserID: 5, SessionID: session.ID, Question: "Câu hỏi đầu tiên của tôi"}); err != nil {
		t.Fatalf("ask: %v", err)
	}

	list, err := env.chat.ListSessions(ctx, 5)
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %+v %v", list, err)
	}
	if list[0].Preview != "Câu hỏi đầu tiên của tôi" || list[0].MessageCount != 2 {
		t.Fatalf("unexpected summary %+v", list[0])
	}

	renamed, err := env.chat.RenameSession(ctx, 5, session.ID, "  Ôn thi  ")
	if err != nil || renamed.Title != "Ôn thi" {
		t.Fatalf("rename: %+v %v", renamed, err)
	}
	if _, err := env.chat.RenameSession(ctx, 6, session.ID, "x y z"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("rename by another user: %v", err)
	}

	stats, err := env.chat.Stats(ctx, 5, session.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalMessages != 2 || stats.UserMessages != 1 || stats.AssistantMessages != 1 || stats.Documents != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestDeleteSessionEmptiesEverything(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	up, err := env.docs.Upload(ctx, UploadInput{UserID: 1, FileName: "meo.txt", Data: catText(400)})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	sessionID := up.Session.ID
	if _, err := env.chat.Ask(ctx, AskInput{UserID: 1, SessionID: sessionID, Question: "Mèo ăn gì?"}); err != nil {
		t.Fatalf("ask: %v", err)
	}

	if err := env.chat.DeleteSession(ctx, 1, sessionID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	history, err := env.chat.History(ctx, 1, sessionID, 0)
	if err != nil || history == nil || len(history) != 0 {
		t.Fatalf("expected empty history, got %v %v", history, err)
	}
	docs, err := env.docs.ListDocuments(ctx, 1, sessionID)
	if err != nil || docs == nil || len(docs) != 0 {
		t.Fatalf("expected no documents, got %v %v", docs, err)
	}
	var rows int64
	if err := env.db.Model(&model.SessionDocument{}).Where("session_id = ?", sessionID).Count(&rows).Error; err != nil || rows != 0 {
		t.Fatalf("session_documents rows left: %d %v", rows, err)
	}
	if err := env.chat.DeleteSession(ctx, 1, sessionID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("second delete should report not found, got %v", err)
	}
}
