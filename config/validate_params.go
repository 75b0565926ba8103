package config

// ValidateLive 额外校验实时服务需要的参数（行情源地址等）。
func ValidateLive(cfg AppConfig) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	if cfg.Feed.TradeWSEndpoint == "" {
		return ErrInvalid("feed.tradeWSEndpoint is required")
	}
	venues := append(append([]string(nil), cfg.Feed.TickerVenues...), cfg.Feed.DerivativesVenues...)
	for _, v := range venues {
		switch v {
		case VenueBinanceFutures:
			if cfg.Feed.BinanceRESTURL == "" {
				return ErrInvalid("feed.binanceRESTURL is required for binance_futures")
			}
		case VenueBybit:
			if cfg.Feed.BybitRESTURL == "" {
				return ErrInvalid("feed.bybitRESTURL is required for bybit")
			}
		}
	}
	if cfg.Feed.TickerIntervalMs == 0 {
		return ErrInvalid("feed.tickerIntervalMs must be > 0")
	}
	if len(cfg.Feed.DerivativesVenues) > 0 && cfg.Feed.DerivativesIntervalMs == 0 {
		return ErrInvalid("feed.derivativesIntervalMs must be > 0")
	}
	return nil
}

// ValidateAPI 校验仪表盘 REST 客户端参数。
func ValidateAPI(cfg AppConfig) error {
	if cfg.API.BaseURL == "" {
		return ErrInvalid("api.baseURL is required")
	}
	if cfg.API.RatePerSec <= 0 {
		return ErrInvalid("api.ratePerSec must be > 0")
	}
	return nil
}

// ErrInvalid 用于参数验证错误。
type ErrInvalid string

func (e ErrInvalid) Error() string { return string(e) }
