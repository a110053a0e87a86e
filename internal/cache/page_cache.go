package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"studybuddy/internal/ocr"
)

// PageCache holds the OCR pages of a document under doc:pages:{id}.
type PageCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewPageCache(client *redisv9.Client, ttl time.Duration) *PageCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &PageCache{client: client, ttl: ttl}
}

func (c *PageCache) GetPages(ctx context.Context, documentID uint) ([]ocr.Page, bool, error) {
	raw, err := c.client.Get(ctx, pagesKey(documentID)).Bytes()
	if errors.Is(err, redisv9.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get pages failed: %w", err)
	}

	var pages []ocr.Page
	if err := json.Unmarshal(raw, &pages); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached pages failed: %w", err)
	}
	return pages, true, nil
}

func (c *PageCache) SetPages(ctx context.Context, documentID uint, pages []ocr.Page) error {
	payload, err := json.Marshal(pages)
	if err != nil {
		return fmt.Errorf("marshal pages cache failed: %w", err)
	}
	if err := c.client.Set(ctx, pagesKey(documentID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set pages failed: %w", err)
	}
	return nil
}

func (c *PageCache) DeletePages(ctx context.Context, documentID uint) error {
	if err := c.client.Del(ctx, pagesKey(documentID)).Err(); err != nil {
		return fmt.Errorf("redis delete pages failed: %w", err)
	}
	return nil
}

func pagesKey(documentID uint) string {
	return fmt.Sprintf("doc:pages:%d", documentID)
}
