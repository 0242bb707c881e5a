package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/LJTian/MALNewsBot/internal/api"
	"github.com/LJTian/MALNewsBot/internal/collector"
	"github.com/LJTian/MALNewsBot/internal/config"
	"github.com/LJTian/MALNewsBot/internal/pipeline"
	"github.com/LJTian/MALNewsBot/internal/scheduler"
	"github.com/LJTian/MALNewsBot/internal/storage"
	"github.com/LJTian/MALNewsBot/internal/telegram"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// .env 可选，不存在时直接使用进程环境变量
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	store, err := storage.New(cfg.RedisURI)
	if err != nil {
		log.Fatalf("init store failed: %v", err)
	}

	p := pipeline.New(pipeline.Deps{
		Source:       newSource(cfg),
		Images:       collector.NewDetailFetcher(cfg.UserAgent),
		Store:        store,
		Deliverer:    telegram.NewClient(cfg.TelegramAPIURL, cfg.Token, cfg.Chat),
		ChannelLabel: cfg.Chat,
	})

	s, err := scheduler.New(cfg.CronSpec, p)
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s.Start()
	log.Printf("scheduler started: cron=%s", cfg.CronSpec)

	var srv *http.Server
	if cfg.AppPort != "" {
		srv = newHTTPServer(cfg, p, store)
		go func() {
			log.Printf("starting status server at %s ...", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("status server exit: %v", err)
			}
		}()
	}

	<-ctx.Done()
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown status server: %v", err)
		}
	}
	if err := s.Stop(shutdownCtx); err != nil {
		log.Printf("stop scheduler: %v", err)
	}
	if err := store.Close(); err != nil {
		log.Printf("close store: %v", err)
	}
	log.Println("bye")
}

func newSource(cfg *config.Config) pipeline.Source {
	if cfg.NewsSource == "rss" {
		return collector.NewMALRSSFetcher(cfg.NewsRSSURL, cfg.UserAgent)
	}
	return &collector.MALNewsFetcher{URL: cfg.NewsURL, UserAgent: cfg.UserAgent}
}

func newHTTPServer(cfg *config.Config, p *pipeline.Pipeline, store *storage.Store) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	// 若配置了访问密码，则启用 Basic Auth 保护（/health 仍然免认证）
	if cfg.BasicAuthUser != "" && cfg.BasicAuthPass != "" {
		r.Use(api.BasicAuth(cfg.BasicAuthUser, cfg.BasicAuthPass))
	}
	api.NewServer(p, store).RegisterRoutes(r)

	return &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
