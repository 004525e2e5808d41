package handlers

import (
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"mdp-book/src/codec"
	"mdp-book/src/engine"
	"mdp-book/src/models"
	"mdp-book/src/pipeline"
	"mdp-book/src/sink"
	"mdp-book/src/storage"
)

// RunStatus is the view of a decode and replay run the handler reports on.
type RunStatus interface {
	Phase() pipeline.Phase
	Info() storage.RunInfo
	DecodeStats() sink.Stats
	Report() engine.Report
}

type BookHandler struct {
	Run            RunStatus
	Books          *engine.Books
	Instruments    *engine.Instruments
	StartTime      time.Time
	RequestsServed int64

	latencies    []time.Duration
	latenciesMu  sync.RWMutex
	maxLatencies int
}

func NewBookHandler(run RunStatus, books *engine.Books, instruments *engine.Instruments) *BookHandler {
	maxLatencies := 10000
	if envMax := os.Getenv("METRICS_MAX_LATENCIES"); envMax != "" {
		if parsed, err := strconv.Atoi(envMax); err == nil && parsed > 0 {
			maxLatencies = parsed
		}
	}

	return &BookHandler{
		Run:          run,
		Books:        books,
		Instruments:  instruments,
		StartTime:    time.Now(),
		latencies:    make([]time.Duration, 0, maxLatencies),
		maxLatencies: maxLatencies,
	}
}

func (h *BookHandler) ListBooks(c *fiber.Ctx) error {
	startTime := time.Now()
	defer func() { h.observe(time.Since(startTime)) }()

	ids := h.Books.IDs()
	summaries := make([]models.BookSummary, 0, len(ids))
	for _, id := range ids {
		book, ok := h.Books.Get(id)
		if !ok {
			continue
		}
		inst := h.Instruments.Lookup(id)
		snap := book.Snapshot()

		summary := models.BookSummary{
			SecurityID: id,
			Symbol:     inst.Symbol,
			Applied:    snap.Applied,
		}
		bids, asks := snap.Consolidated[codec.SideBid], snap.Consolidated[codec.SideAsk]
		if best := bids.Level(1); !best.Empty() {
			info := levelInfo(inst, 1, best)
			summary.BestBid = &info
		}
		if best := asks.Level(1); !best.Empty() {
			info := levelInfo(inst, 1, best)
			summary.BestAsk = &info
		}
		if err := book.Err(); err != nil {
			summary.Error = err.Error()
		}
		summaries = append(summaries, summary)
	}

	return c.Status(fiber.StatusOK).JSON(models.BookListResponse{
		Count: len(summaries),
		Books: summaries,
	})
}

func (h *BookHandler) GetBook(c *fiber.Ctx) error {
	startTime := time.Now()
	defer func() { h.observe(time.Since(startTime)) }()

	id, err := parseSecurityID(c.Params("securityId"))
	if err != nil {
		log.Warn().
			Err(err).
			Str("security_id", c.Params("securityId")).
			Str("ip", c.IP()).
			Msg("Invalid book request")
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: err.Error(),
		})
	}

	view, ok := engine.ParseView(c.Query("view"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: (&ValidationError{Message: "Invalid view: must be outright, implied or consolidated"}).Error(),
		})
	}

	book, exists := h.Books.Get(id)
	if !exists {
		return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
			Error: "Book not found",
		})
	}

	depth := h.depth(c)
	inst := h.Instruments.Lookup(id)
	snap := book.Snapshot()
	ladders := snap.View(view)

	response := models.BookResponse{
		SecurityID: id,
		Symbol:     inst.Symbol,
		View:       string(view),
		Ordinal:    snap.Ordinal,
		Applied:    snap.Applied,
		Bids:       levelInfos(inst, ladders[codec.SideBid], depth),
		Asks:       levelInfos(inst, ladders[codec.SideAsk], depth),
	}
	// edge case: a stopped book is still served, frozen at its failure
	if err := book.Err(); err != nil {
		response.Error = err.Error()
	}
	return c.Status(fiber.StatusOK).JSON(response)
}

func (h *BookHandler) GetOrders(c *fiber.Ctx) error {
	startTime := time.Now()
	defer func() { h.observe(time.Since(startTime)) }()

	id, err := parseSecurityID(c.Params("securityId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: err.Error(),
		})
	}

	book, exists := h.Books.Get(id)
	if !exists {
		return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
			Error: "Book not found",
		})
	}

	inst := h.Instruments.Lookup(id)
	bids, asks := book.Orders().Queue(h.depth(c))

	return c.Status(fiber.StatusOK).JSON(models.OrdersResponse{
		SecurityID: id,
		Symbol:     inst.Symbol,
		Count:      book.Orders().Len(),
		Bids:       orderInfos(inst, bids),
		Asks:       orderInfos(inst, asks),
	})
}

func (h *BookHandler) CurrentRun(c *fiber.Ctx) error {
	info := h.Run.Info()
	stats := h.Run.DecodeStats()
	rep := h.Run.Report()

	response := models.RunResponse{
		ID:             info.ID,
		Phase:          string(h.Run.Phase()),
		Input:          info.Input,
		Framing:        info.Framing,
		Format:         string(info.Format),
		Messages:       stats.Messages,
		Records:        stats.Records,
		DecodeErrors:   stats.DecodeErrors,
		Chunks:         stats.Chunks,
		UpdatesApplied: rep.Applied,
		Instruments:    len(h.Instruments.All()),
	}
	if !info.StartedAt.IsZero() {
		response.StartedAt = info.StartedAt.UnixMilli()
	}
	if !info.FinishedAt.IsZero() {
		response.FinishedAt = info.FinishedAt.UnixMilli()
	}
	for _, f := range h.Books.Failures() {
		response.SequenceFailures = append(response.SequenceFailures, f.Error())
	}
	return c.Status(fiber.StatusOK).JSON(response)
}

func (h *BookHandler) HealthCheck(c *fiber.Ctx) error {
	uptime := time.Since(h.StartTime).Seconds()

	status := "healthy"
	if h.Run.Phase() == pipeline.PhaseFailed {
		status = "degraded"
	}

	return c.Status(fiber.StatusOK).JSON(models.HealthResponse{
		Status:        status,
		UptimeSeconds: int64(uptime),
		Phase:         string(h.Run.Phase()),
		Books:         h.Books.Len(),
	})
}

func (h *BookHandler) Metrics(c *fiber.Ctx) error {
	p50, p99, p999 := h.calculateLatencyPercentiles()
	throughput := h.calculateThroughput()

	return c.Status(fiber.StatusOK).JSON(models.MetricsResponse{
		RequestsServed:       atomic.LoadInt64(&h.RequestsServed),
		Books:                h.Books.Len(),
		Instruments:          len(h.Instruments.All()),
		RecordsDecoded:       h.Run.DecodeStats().Records,
		UpdatesApplied:       h.Run.Report().Applied,
		SequenceFailures:     len(h.Books.Failures()),
		LatencyP50Ms:         p50,
		LatencyP99Ms:         p99,
		LatencyP999Ms:        p999,
		ThroughputReqsPerSec: throughput,
	})
}

// depth reads the depth query, falling back to BOOK_DEFAULT_DEPTH or 10
// and capped at BOOK_MAX_DEPTH.
func (h *BookHandler) depth(c *fiber.Ctx) int {
	defaultDepth := 10
	if envDepth := os.Getenv("BOOK_DEFAULT_DEPTH"); envDepth != "" {
		if parsed, err := strconv.Atoi(envDepth); err == nil && parsed > 0 {
			defaultDepth = parsed
		}
	}

	maxDepth := 1000
	if envMaxDepth := os.Getenv("BOOK_MAX_DEPTH"); envMaxDepth != "" {
		if parsed, err := strconv.Atoi(envMaxDepth); err == nil && parsed > 0 {
			maxDepth = parsed
		}
	}

	depth, err := strconv.Atoi(c.Query("depth", strconv.Itoa(defaultDepth)))
	if err != nil || depth <= 0 {
		depth = defaultDepth
	}
	// edge case: enforce maximum depth limit
	if depth > maxDepth {
		depth = maxDepth
	}
	return depth
}

func (h *BookHandler) observe(latency time.Duration) {
	atomic.AddInt64(&h.RequestsServed, 1)
	h.recordLatency(latency)
}

func (h *BookHandler) recordLatency(latency time.Duration) {
	h.latenciesMu.Lock()
	defer h.latenciesMu.Unlock()

	h.latencies = append(h.latencies, latency)

	// edge case: maintain rolling window by removing oldest measurements
	if len(h.latencies) > h.maxLatencies {
		removeCount := len(h.latencies) - h.maxLatencies
		h.latencies = h.latencies[removeCount:]
	}
}

func (h *BookHandler) calculateLatencyPercentiles() (p50, p99, p999 float64) {
	h.latenciesMu.RLock()
	defer h.latenciesMu.RUnlock()

	if len(h.latencies) == 0 {
		return 0, 0, 0
	}

	sorted := make([]time.Duration, len(h.latencies))
	copy(sorted, h.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	at := func(q float64) float64 {
		i := int(float64(len(sorted)) * q)
		if i >= len(sorted) {
			i = len(sorted) - 1
		}
		return float64(sorted[i].Nanoseconds()) / 1e6
	}
	return at(0.50), at(0.99), at(0.999)
}

func (h *BookHandler) calculateThroughput() float64 {
	uptime := time.Since(h.StartTime).Seconds()
	if uptime <= 0 {
		return 0
	}
	return float64(atomic.LoadInt64(&h.RequestsServed)) / uptime
}

func levelInfo(inst engine.Instrument, n int, lv engine.Level) models.PriceLevelInfo {
	return models.PriceLevelInfo{
		Level:        n,
		Price:        lv.Price,
		DisplayPrice: inst.DisplayPrice(lv.Price),
		Size:         lv.Size,
		Orders:       lv.Orders,
	}
}

// levelInfos lists the non-empty levels among the first depth, each with
// its ladder level number.
func levelInfos(inst engine.Instrument, ladder engine.Ladder, depth int) []models.PriceLevelInfo {
	out := make([]models.PriceLevelInfo, 0, depth)
	for n := 1; n <= ladder.Depth() && n <= depth; n++ {
		if lv := ladder.Level(n); !lv.Empty() {
			out = append(out, levelInfo(inst, n, lv))
		}
	}
	return out
}

func orderInfos(inst engine.Instrument, orders []engine.Order) []models.OrderInfo {
	out := make([]models.OrderInfo, 0, len(orders))
	for _, o := range orders {
		out = append(out, models.OrderInfo{
			OrderID:      o.ID,
			Price:        o.Price,
			DisplayPrice: inst.DisplayPrice(o.Price),
			Size:         o.Size,
			Priority:     o.Priority,
		})
	}
	return out
}

func parseSecurityID(s string) (int32, error) {
	id, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, &ValidationError{Message: "Invalid security id: " + s}
	}
	return int32(id), nil
}

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
