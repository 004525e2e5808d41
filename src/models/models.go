package models

import (
	"github.com/shopspring/decimal"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type PriceLevelInfo struct {
	Level        int             `json:"level"`
	Price        int64           `json:"price"` // mantissa, exponent -9
	DisplayPrice decimal.Decimal `json:"display_price"`
	Size         int64           `json:"size"`
	Orders       int64           `json:"orders"`
}

type BookResponse struct {
	SecurityID int32            `json:"security_id"`
	Symbol     string           `json:"symbol,omitempty"`
	View       string           `json:"view"`
	Ordinal    uint64           `json:"ordinal"` // last record applied
	Applied    uint64           `json:"applied"`
	Bids       []PriceLevelInfo `json:"bids"` // best first
	Asks       []PriceLevelInfo `json:"asks"` // best first
	Error      string           `json:"error,omitempty"`
}

type BookSummary struct {
	SecurityID int32            `json:"security_id"`
	Symbol     string           `json:"symbol,omitempty"`
	Applied    uint64           `json:"applied"`
	BestBid    *PriceLevelInfo  `json:"best_bid,omitempty"`
	BestAsk    *PriceLevelInfo  `json:"best_ask,omitempty"`
	Error      string           `json:"error,omitempty"`
}

type BookListResponse struct {
	Count int           `json:"count"`
	Books []BookSummary `json:"books"`
}

type OrderInfo struct {
	OrderID      uint64          `json:"order_id"`
	Price        int64           `json:"price"`
	DisplayPrice decimal.Decimal `json:"display_price"`
	Size         int64           `json:"size"`
	Priority     uint64          `json:"priority"`
}

type OrdersResponse struct {
	SecurityID int32       `json:"security_id"`
	Symbol     string      `json:"symbol,omitempty"`
	Count      int         `json:"count"`
	Bids       []OrderInfo `json:"bids"`
	Asks       []OrderInfo `json:"asks"`
}

type RunResponse struct {
	ID               string   `json:"id"`
	Phase            string   `json:"phase"`
	Input            string   `json:"input"`
	Framing          string   `json:"framing"`
	Format           string   `json:"format"`
	StartedAt        int64    `json:"started_at"` // unix timestamp in milliseconds
	FinishedAt       int64    `json:"finished_at,omitempty"`
	Messages         uint64   `json:"messages"`
	Records          uint64   `json:"records"`
	DecodeErrors     uint64   `json:"decode_errors"`
	Chunks           int      `json:"chunks"`
	UpdatesApplied   uint64   `json:"updates_applied"`
	Instruments      int      `json:"instruments"`
	SequenceFailures []string `json:"sequence_failures,omitempty"`
}

type HealthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Phase         string `json:"phase"`
	Books         int    `json:"books"`
}

type MetricsResponse struct {
	RequestsServed       int64   `json:"requests_served"`
	Books                int     `json:"books"`
	Instruments          int     `json:"instruments"`
	RecordsDecoded       uint64  `json:"records_decoded"`
	UpdatesApplied       uint64  `json:"updates_applied"`
	SequenceFailures     int     `json:"sequence_failures"`
	LatencyP50Ms         float64 `json:"latency_p50_ms"`
	LatencyP99Ms         float64 `json:"latency_p99_ms"`
	LatencyP999Ms        float64 `json:"latency_p999_ms"`
	ThroughputReqsPerSec float64 `json:"throughput_reqs_per_sec"`
}
