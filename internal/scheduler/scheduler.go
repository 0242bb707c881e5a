package scheduler

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/LJTian/MALNewsBot/internal/pipeline"
	"github.com/robfig/cron/v3"
)

// Runner 执行一轮推送
type Runner interface {
	Run(ctx context.Context) (pipeline.Result, error)
}

type Scheduler struct {
	cron   *cron.Cron
	runner Runner

	// 启动时那一轮不归 cron 管理，单独计数
	wg sync.WaitGroup
}

func New(spec string, runner Runner) (*Scheduler, error) {
	// 上一轮还没结束时跳过本次触发
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)))

	s := &Scheduler{
		cron:   c,
		runner: runner,
	}

	_, err := c.AddFunc(spec, s.runOnce)
	if err != nil {
		return nil, err
	}

	return s, nil
}

// Start 启动定时任务，并立即执行首轮
func (s *Scheduler) Start() {
	s.cron.Start()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runOnce()
	}()
}

// RunOnce 对外暴露的单次执行入口，方便手动触发
func (s *Scheduler) RunOnce() {
	s.runOnce()
}

// Stop 停止调度，并等待正在执行的轮次（定时触发与启动首轮）结束或 ctx 到期
func (s *Scheduler) Stop(ctx context.Context) error {
	cronDone := s.cron.Stop()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) runOnce() {
	log.Println("checking for new news...")

	res, err := s.runner.Run(context.Background())
	LogResult(res, err)
}

// LogResult 按一轮的结果输出日志
func LogResult(res pipeline.Result, err error) {
	switch {
	case errors.Is(err, pipeline.ErrCycleInProgress):
		log.Println("previous cycle still running, skip")
	case err != nil:
		log.Printf("cycle failed at %s (%s): %v", res.FailedAt, res.Kind, err)
	case res.State == pipeline.StateSkipped:
		log.Println("no new news to send")
	default:
		log.Printf("news sent: %s (%s)", res.Title, res.Link)
	}
}
