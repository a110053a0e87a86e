package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"studybuddy/internal/ai"
	"studybuddy/internal/document"
	"studybuddy/internal/ocr"
	"studybuddy/internal/platform/database"
	"studybuddy/internal/platform/rabbitmq"
	"studybuddy/internal/repository"
	"studybuddy/internal/retry"
)

// scriptedLLM answers by preset name and counts calls.
type scriptedLLM struct {
	mu      sync.Mutex
	err     error
	replies map[string]string
	calls   map[string]int
	last    map[string][]ai.ChatMessage
}

func newScriptedLLM() *scriptedLLM {
	return &scriptedLLM{
		replies: map[string]string{
			ai.PresetSummarization.Name: "Tài liệu giới thiệu về mèo và chó.",
			ai.PresetQuestions.Name:     "1. Mèo ăn gì?\n2. Chó sống ở đâu?\n3. Vì sao mèo ngủ nhiều?\n4. Chó có trung thành không?",
			ai.PresetDocumentQA.Name:    "Mèo ăn cá.",
			ai.PresetChat.Name:          "Xin chào, tôi có thể giúp gì?",
		},
		calls: map[string]int{},
		last:  map[string][]ai.ChatMessage{},
	}
}

func (l *scriptedLLM) Complete(_ context.Context, preset ai.Preset, messages []ai.ChatMessage) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls[preset.Name]++
	l.last[preset.Name] = messages
	if l.err != nil {
		return "", l.err
	}
	return l.replies[preset.Name], nil
}

func (l *scriptedLLM) count(preset ai.Preset) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[preset.Name]
}

func (l *scriptedLLM) lastMessages(preset ai.Preset) []ai.ChatMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last[preset.Name]
}

type stubOCR struct {
	pages []ocr.Page
	err   error
	calls int
}

func (s *stubOCR) Name() string { return "stub" }

func (s *stubOCR) Process(context.Context, []byte, string) (*ocr.Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &ocr.Result{Provider: "stub", Pages: s.pages}, nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	err  error
	jobs []rabbitmq.EnrichmentJob
}

func (p *recordingPublisher) PublishEnrichment(_ context.Context, job rabbitmq.EnrichmentJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.jobs = append(p.jobs, job)
	return nil
}

// memoryPages is an in-process PageCache.
type memoryPages struct {
	mu    sync.Mutex
	pages map[uint][]ocr.Page
	hits  int
}

func (m *memoryPages) GetPages(_ context.Context, id uint) ([]ocr.Page, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pages[id]
	if ok {
		m.hits++
	}
	return p, ok, nil
}

func (m *memoryPages) SetPages(_ context.Context, id uint, pages []ocr.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pages == nil {
		m.pages = map[uint][]ocr.Page{}
	}
	m.pages[id] = pages
	return nil
}

func (m *memoryPages) DeletePages(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pages, id)
	return nil
}

type testEnv struct {
	db    *gorm.DB
	llm   *scriptedLLM
	ocr   *stubOCR
	pages *memoryPages
	auth  *AuthService
	chat  *ChatService
	docs  *DocumentService
}

type envOption func(*envConfig)

type envConfig struct {
	publisher EnrichmentPublisher
}

func withPublisher(p EnrichmentPublisher) envOption {
	return func(c *envConfig) { c.publisher = p }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	var cfg envConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := database.New(context.Background(), "sqlite", "file::memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	noSleep := func(context.Context, time.Duration) error { return nil }
	llmPolicy := retry.LLM
	llmPolicy.Sleep = noSleep

	llm := newScriptedLLM()
	provider := &stubOCR{}
	pageCache := &memoryPages{}
	pipeline := document.NewPipeline(llm, nil, document.WithRetryPolicy(llmPolicy))

	users := repository.NewUserRepository(db)
	sessions := repository.NewSessionRepository(db)
	messages := repository.NewMessageRepository(db)
	documents := repository.NewDocumentRepository(db)

	docs := NewDocumentService(sessions, documents, provider, pipeline, cfg.publisher, pageCache, DocumentOptions{MaxUploadBytes: 10 << 20}, nil)
	docs.filePolicy.Sleep = noSleep
	docs.dbPolicy.Sleep = noSleep
	chat := NewChatService(sessions, messages, documents, docs, pipeline, nil, nil)
	chat.dbPolicy.Sleep = noSleep

	return &testEnv{
		db:    db,
		llm:   llm,
		ocr:   provider,
		pages: pageCache,
		auth:  NewAuthService(users, "test-secret", time.Hour),
		chat:  chat,
		docs:  docs,
	}
}

var errBrokerDown = errors.New("broker down")
