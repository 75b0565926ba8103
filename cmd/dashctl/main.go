package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"market-stats-go/config"
	"market-stats-go/dashapi"
)

// 仪表盘 REST 命令行：signals / watchlists / create-watchlist。
func main() {
	cfgPath := flag.String("config", "", "配置文件路径（可选，读取 api 段）")
	envFile := flag.String("env", ".env", ".env 文件路径（不存在则忽略）")
	baseURL := flag.String("baseURL", "", "覆盖 api.baseURL")
	name := flag.String("name", "", "create-watchlist: 名称")
	desc := flag.String("desc", "", "create-watchlist: 描述")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: dashctl [flags] signals|watchlists|create-watchlist\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := config.LoadEnvFile(*envFile); err != nil {
		fatal(err)
	}
	cfg := config.Default()
	if *cfgPath != "" {
		loaded, err := config.LoadWithEnvOverrides(*cfgPath)
		if err != nil {
			fatal(err)
		}
		cfg = loaded
	} else {
		if v := os.Getenv("MS_API_TOKEN"); v != "" {
			cfg.API.Token = v
		}
		if v := os.Getenv("MS_API_BASE_URL"); v != "" {
			cfg.API.BaseURL = v
		}
	}
	if *baseURL != "" {
		cfg.API.BaseURL = *baseURL
	}
	if err := config.ValidateAPI(cfg); err != nil {
		fatal(err)
	}

	client := dashapi.NewClient(cfg.API.BaseURL, cfg.API.Token, cfg.API.RatePerSec, cfg.API.Burst,
		time.Duration(cfg.API.TimeoutMs)*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var out interface{}
	var err error
	switch flag.Arg(0) {
	case "signals":
		out, err = client.ListSignals(ctx)
	case "watchlists":
		out, err = client.ListWatchlists(ctx)
	case "create-watchlist":
		out, err = client.CreateWatchlist(ctx, *name, *desc)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fatal(err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	var apiErr *dashapi.APIError
	if errors.As(err, &apiErr) && apiErr.Retryable {
		fmt.Fprintln(os.Stderr, "request may succeed if retried")
	}
	os.Exit(1)
}
