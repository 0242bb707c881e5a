package main

import (
	"context"
	"log"

	"github.com/LJTian/MALNewsBot/internal/collector"
	"github.com/LJTian/MALNewsBot/internal/config"
	"github.com/LJTian/MALNewsBot/internal/pipeline"
	"github.com/LJTian/MALNewsBot/internal/scheduler"
	"github.com/LJTian/MALNewsBot/internal/storage"
	"github.com/LJTian/MALNewsBot/internal/telegram"
	"github.com/joho/godotenv"
)

// 一个仅执行一轮推送的命令行入口：适合手动触发或外部定时器调用
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	store, err := storage.New(cfg.RedisURI)
	if err != nil {
		log.Fatalf("init store failed: %v", err)
	}
	defer store.Close()

	var source pipeline.Source = &collector.MALNewsFetcher{URL: cfg.NewsURL, UserAgent: cfg.UserAgent}
	if cfg.NewsSource == "rss" {
		source = collector.NewMALRSSFetcher(cfg.NewsRSSURL, cfg.UserAgent)
	}

	p := pipeline.New(pipeline.Deps{
		Source:       source,
		Images:       collector.NewDetailFetcher(cfg.UserAgent),
		Store:        store,
		Deliverer:    telegram.NewClient(cfg.TelegramAPIURL, cfg.Token, cfg.Chat),
		ChannelLabel: cfg.Chat,
	})

	// 只执行一轮后退出，不涉及 CRON_SPEC
	log.Println("checking for new news...")
	res, err := p.Run(context.Background())
	scheduler.LogResult(res, err)
}
