package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	uploadsTotal             atomic.Uint64
	summariesGeneratedTotal  atomic.Uint64
	summariesFailedTotal     atomic.Uint64
	analysesFinalizedTotal   atomic.Uint64
	topicAnalysesTotal       atomic.Uint64
	topicAnalysesFailedTotal atomic.Uint64
	chatTurnsTotal           atomic.Uint64
	chatTurnsFailedTotal     atomic.Uint64

	aiCallDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
)

// IncUpload increments the upload counter.
func IncUpload() { uploadsTotal.Add(1) }

// IncSummaryGenerated increments the summary success counter.
func IncSummaryGenerated() { summariesGeneratedTotal.Add(1) }

// IncSummaryFailed increments the summary failure counter.
func IncSummaryFailed() { summariesFailedTotal.Add(1) }

// IncAnalysisFinalized increments the finalize counter.
func IncAnalysisFinalized() { analysesFinalizedTotal.Add(1) }

// IncTopicAnalysis increments the topic analysis success counter.
func IncTopicAnalysis() { topicAnalysesTotal.Add(1) }

// IncTopicAnalysisFailed increments the topic analysis failure counter.
func IncTopicAnalysisFailed() { topicAnalysesFailedTotal.Add(1) }

// IncChatTurn increments the chat turn success counter.
func IncChatTurn() { chatTurnsTotal.Add(1) }

// IncChatTurnFailed increments the chat turn failure counter.
func IncChatTurnFailed() { chatTurnsFailedTotal.Add(1) }

// ObserveAICallDurationMs records the duration of one generative AI call.
func ObserveAICallDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	aiCallDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "csv_uploads_total", "Total CSV uploads accepted", uploadsTotal.Load())
	writeCounter(&buf, "summaries_generated_total", "Total data summaries generated", summariesGeneratedTotal.Load())
	writeCounter(&buf, "summaries_failed_total", "Total data summary failures", summariesFailedTotal.Load())
	writeCounter(&buf, "analyses_finalized_total", "Total analyses finalized", analysesFinalizedTotal.Load())
	writeCounter(&buf, "topic_analyses_total", "Total topic analyses completed", topicAnalysesTotal.Load())
	writeCounter(&buf, "topic_analyses_failed_total", "Total topic analysis failures", topicAnalysesFailedTotal.Load())
	writeCounter(&buf, "chat_turns_total", "Total chat turns completed", chatTurnsTotal.Load())
	writeCounter(&buf, "chat_turns_failed_total", "Total chat turn failures", chatTurnsFailedTotal.Load())
	writeHistogram(&buf, "ai_call_duration_ms", "Generative AI call duration in milliseconds", aiCallDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
