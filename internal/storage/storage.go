package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CursorKey 保存最后一条成功推送的新闻链接
const CursorKey = "last_sent_news_link"

// ErrStoreUnavailable Redis 不可用时返回，本轮无法判断新旧，直接中止
var ErrStoreUnavailable = errors.New("cursor store unavailable")

const pingTimeout = 3 * time.Second

// Store 持有整个进程共享的 Redis 会话：首次使用时建立，之后各轮复用
type Store struct {
	opts *redis.Options

	mu    sync.Mutex
	Redis *redis.Client
}

// New 只解析 REDIS_URI，不建立连接
func New(uri string) (*Store, error) {
	opts, err := redis.ParseURL(uri)
	if err != nil {
		return nil, fmt.Errorf("storage: parse redis uri: %w", err)
	}
	return &Store{opts: opts}, nil
}

// Connect 建立会话，可重复调用；已连接时直接返回
func (s *Store) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Redis != nil {
		return nil
	}

	rdb := redis.NewClient(s.opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		// 丢弃半开连接，下一轮重新连接
		_ = rdb.Close()
		return fmt.Errorf("%w: ping %s: %v", ErrStoreUnavailable, s.opts.Addr, err)
	}

	log.Printf("storage: connected to redis %s db=%d", s.opts.Addr, s.opts.DB)
	s.Redis = rdb
	return nil
}

func (s *Store) client() (*redis.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Redis == nil {
		return nil, fmt.Errorf("%w: not connected", ErrStoreUnavailable)
	}
	return s.Redis, nil
}

// GetCursor 返回当前游标；从未写入过时 ok 为 false
func (s *Store) GetCursor(ctx context.Context) (string, bool, error) {
	rdb, err := s.client()
	if err != nil {
		return "", false, err
	}

	link, err := rdb.Get(ctx, CursorKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: get %s: %v", ErrStoreUnavailable, CursorKey, err)
	}
	return link, true, nil
}

// SetCursor 无条件覆盖游标，不设置过期时间
func (s *Store) SetCursor(ctx context.Context, link string) error {
	rdb, err := s.client()
	if err != nil {
		return err
	}

	if err := rdb.Set(ctx, CursorKey, link, 0).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrStoreUnavailable, CursorKey, err)
	}
	return nil
}

// Close 释放会话，仅在进程退出时调用
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Redis == nil {
		return nil
	}
	err := s.Redis.Close()
	s.Redis = nil
	return err
}
