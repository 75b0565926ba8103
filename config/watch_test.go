package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcherStopsOnCancel(t *testing.T) {
	path := writeTempConfig(t, sampleYAML)
	w := Watcher{Path: path}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, w.Start(ctx, nil), context.Canceled)
}

func TestWatcherTriggersOnChange(t *testing.T) {
	path := writeTempConfig(t, sampleYAML)

	w := Watcher{Path: path}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := make(chan AppConfig, 4)
	go func() {
		_ = w.Start(ctx, func(cfg AppConfig) { ch <- cfg })
	}()

	// 先写入一个无效文件，应被忽略
	updated := sampleYAML + "\nmetrics:\n  addr: \":9200\"\n"
	deadline := time.After(2 * time.Second)
	for {
		require.NoError(t, os.WriteFile(path, []byte("env: ''\n"), 0o644))
		require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))
		select {
		case cfg := <-ch:
			if cfg.Metrics.Addr != ":9200" {
				continue
			}
			require.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, cfg.Symbols)
			return
		case <-time.After(50 * time.Millisecond):
		case <-deadline:
			t.Fatalf("expected update callback")
		}
	}
}
