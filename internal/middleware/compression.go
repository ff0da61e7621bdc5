// Package middleware holds HTTP middleware shared by the API router.
package middleware

import (
	"bytes"
	"compress/gzip"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

// CompressionConfig holds configuration for response compression
type CompressionConfig struct {
	MinSize          int      // Minimum response size to compress (bytes)
	CompressionLevel int      // Gzip compression level (1-9, 9 is best compression)
	ContentTypes     []string // Content types to compress
}

// DefaultCompressionConfig returns the default compression configuration
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize:          1024,
		CompressionLevel: gzip.DefaultCompression,
		ContentTypes: []string{
			"application/json",
			"text/plain",
		},
	}
}

// Compression gzips analytics responses for clients that accept it.
// Dashboard and trend payloads are large and repetitive.
type Compression struct {
	config CompressionConfig
	stats  CompressionStats
	pool   sync.Pool
}

// NewCompression creates the compression middleware
func NewCompression(config CompressionConfig) *Compression {
	if config.CompressionLevel < gzip.HuffmanOnly || config.CompressionLevel > gzip.BestCompression {
		config.CompressionLevel = gzip.DefaultCompression
	}

	cm := &Compression{config: config}
	cm.pool.New = func() any {
		gz, _ := gzip.NewWriterLevel(nil, cm.config.CompressionLevel)
		return gz
	}
	return cm
}

// bufferedWriter holds the body until the handler chain returns so the
// decision can be made on the final size and content type.
type bufferedWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bufferedWriter) Write(data []byte) (int, error) {
	return w.buf.Write(data)
}

func (w *bufferedWriter) WriteString(s string) (int, error) {
	return w.buf.WriteString(s)
}

// Handler returns the gin middleware
func (cm *Compression) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.Contains(c.GetHeader("Accept-Encoding"), "gzip") {
			c.Next()
			return
		}

		bw := &bufferedWriter{ResponseWriter: c.Writer}
		c.Writer = bw
		defer func() { c.Writer = bw.ResponseWriter }()

		c.Next()

		cm.flush(bw)
	}
}

func (cm *Compression) flush(bw *bufferedWriter) {
	body := bw.buf.Bytes()
	w := bw.ResponseWriter
	header := w.Header()

	if len(body) < cm.config.MinSize || w.Written() ||
		header.Get("Content-Encoding") != "" || !cm.shouldCompress(header.Get("Content-Type")) {
		cm.stats.record(len(body), len(body), false)
		if len(body) > 0 {
			if _, err := w.Write(body); err != nil {
				slog.Debug("Failed to write response", "error", err)
			}
		}
		return
	}

	header.Set("Content-Encoding", "gzip")
	header.Add("Vary", "Accept-Encoding")
	header.Del("Content-Length")

	gz := cm.pool.Get().(*gzip.Writer)
	defer cm.pool.Put(gz)
	gz.Reset(w)

	_, err := gz.Write(body)
	if cerr := gz.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		slog.Debug("Failed to write compressed response", "error", err)
		return
	}
	cm.stats.record(len(body), w.Size(), true)
}

// shouldCompress checks if the content type should be compressed
func (cm *Compression) shouldCompress(contentType string) bool {
	for _, ct := range cm.config.ContentTypes {
		if strings.Contains(contentType, ct) {
			return true
		}
	}
	return false
}

// Stats returns compression statistics for /health
func (cm *Compression) Stats() map[string]any {
	return cm.stats.snapshot()
}

// CompressionStats tracks compression statistics
type CompressionStats struct {
	totalRequests      atomic.Int64
	compressedRequests atomic.Int64
	totalBytes         atomic.Int64
	compressedBytes    atomic.Int64
}

func (cs *CompressionStats) record(originalSize, writtenSize int, compressed bool) {
	cs.totalRequests.Add(1)
	if compressed {
		cs.compressedRequests.Add(1)
		cs.totalBytes.Add(int64(originalSize))
		cs.compressedBytes.Add(int64(writtenSize))
	}
}

func (cs *CompressionStats) snapshot() map[string]any {
	total := cs.totalBytes.Load()
	compressed := cs.compressedBytes.Load()

	ratio := float64(0)
	if total > 0 {
		ratio = float64(compressed) / float64(total)
	}

	return map[string]any{
		"total_requests":      cs.totalRequests.Load(),
		"compressed_requests": cs.compressedRequests.Load(),
		"compression_ratio":   ratio,
	}
}
