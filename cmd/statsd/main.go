package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"go.uber.org/zap"

	"market-stats-go/config"
	"market-stats-go/internal/container"
)

// 实时统计服务：订阅成交流与多交易所行情，输出订单流/VWAP 指标。
func main() {
	cfgPath := flag.String("config", "configs/statsd.yaml", "配置文件路径")
	envFile := flag.String("env", ".env", ".env 文件路径（不存在则忽略）")
	healthEvery := flag.Duration("healthEvery", 30*time.Second, "健康检查间隔，0 关闭")
	flag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		log.Fatalf("加载 .env 失败: %v", err)
	}

	c, err := container.New(*cfgPath)
	if err != nil {
		log.Fatalf("初始化失败: %v", err)
	}
	if err := c.Build(); err != nil {
		log.Fatalf("构建失败: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Start(ctx); err != nil {
		log.Fatalf("启动失败: %v", err)
	}
	lg := c.Logger()
	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		lg.Warn("sd_notify ready failed", zap.Error(err))
	} else if ok {
		lg.Info("sd_notify ready sent")
	}

	if *healthEvery > 0 {
		go func() {
			ticker := time.NewTicker(*healthEvery)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := c.HealthCheck(); err != nil {
						lg.Warn("health check failed", zap.Error(err))
					}
				}
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	lg.Info("shutting down", zap.String("signal", sig.String()))
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	cancel()
	if err := c.Stop(); err != nil {
		os.Exit(1)
	}
}
