package dashapi

import "encoding/json"

// Signal 交易信号记录，字段按仪表盘后端返回原样保留。
type Signal struct {
	ID         string  `json:"id"`
	Symbol     string  `json:"symbol"`
	Type       string  `json:"type"`
	Direction  string  `json:"direction"`
	Confidence float64 `json:"confidence"`
	Price      float64 `json:"price"`
	Timestamp  int64   `json:"timestamp"`
	Message    string  `json:"message,omitempty"`
}

// Watchlist 用户自选列表。
type Watchlist struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Symbols     []string `json:"symbols,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
}

type watchlistsEnvelope struct {
	Watchlists []Watchlist `json:"watchlists"`
}

type createWatchlistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// errorBody 兼容 {"error": "..."} / {"detail": "..."} / {"message": "..."}。
type errorBody struct {
	Error   json.RawMessage `json:"error"`
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
}
