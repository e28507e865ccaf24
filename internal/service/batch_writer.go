package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"heliotelligence/internal/domain"
	"heliotelligence/internal/metrics"
	"heliotelligence/internal/repository"
	"heliotelligence/pkg/logger"
)

// BatchWriter buffers telemetry and writes it in batches
type BatchWriter struct {
	repo          repository.TelemetryRepository
	batchSize     int
	flushInterval time.Duration

	mu     sync.Mutex
	buffer []domain.TelemetrySample
	stop   chan struct{}
	wg     sync.WaitGroup

	// Stats
	batchesWritten uint64
	recordsWritten uint64
	writesFailed   uint64
	lastFlushTime  time.Time
	lastFlushCount int
}

// NewBatchWriter creates a new batch writer
func NewBatchWriter(repo repository.TelemetryRepository, batchSize int, flushInterval time.Duration) *BatchWriter {
	bw := &BatchWriter{
		repo:          repo,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		buffer:        make([]domain.TelemetrySample, 0, batchSize),
		stop:          make(chan struct{}),
		lastFlushTime: time.Now(),
	}

	// Start auto-flush goroutine
	bw.wg.Add(1)
	go bw.autoFlush()

	logger.Info(fmt.Sprintf("✓ BatchWriter started: %d size, %v interval", batchSize, flushInterval))
	return bw
}

// Add adds a sample to the buffer and flushes if needed
func (bw *BatchWriter) Add(sample domain.TelemetrySample) {
	bw.mu.Lock()
	bw.buffer = append(bw.buffer, sample)
	size := len(bw.buffer)
	bw.mu.Unlock()

	metrics.TelemetryBufferSize.Set(float64(size))

	if size >= bw.batchSize {
		bw.Flush()
	}
}

// Flush writes all buffered samples to the telemetry store
func (bw *BatchWriter) Flush() {
	bw.mu.Lock()
	if len(bw.buffer) == 0 {
		bw.mu.Unlock()
		return
	}

	// Copy buffer and clear
	toWrite := make([]domain.TelemetrySample, len(bw.buffer))
	copy(toWrite, bw.buffer)
	bw.buffer = bw.buffer[:0]
	bw.mu.Unlock()

	metrics.TelemetryBufferSize.Set(0)

	// Write to store with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startTime := time.Now()
	recordCount := len(toWrite)

	err := bw.repo.Insert(ctx, toWrite)

	elapsed := time.Since(startTime)

	if err != nil {
		atomic.AddUint64(&bw.writesFailed, uint64(recordCount))
		logger.Error(fmt.Sprintf("❌ Batch write FAILED: %v records in %v: %v",
			recordCount, elapsed, err))
		return
	}

	// Stats
	atomic.AddUint64(&bw.batchesWritten, 1)
	atomic.AddUint64(&bw.recordsWritten, uint64(recordCount))
	bw.mu.Lock()
	bw.lastFlushCount = recordCount
	bw.lastFlushTime = time.Now()
	bw.mu.Unlock()

	// Log successful flush
	rps := float64(recordCount) / elapsed.Seconds()
	logger.Debug(fmt.Sprintf("✓ Flushed %d records in %v (%.0f/s)",
		recordCount, elapsed.Round(time.Millisecond), rps))
}

// Size returns current buffer size
func (bw *BatchWriter) Size() int {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return len(bw.buffer)
}

// RecordsWritten returns the running total of persisted samples.
func (bw *BatchWriter) RecordsWritten() uint64 {
	return atomic.LoadUint64(&bw.recordsWritten)
}

// WritesFailed returns the running total of samples lost to failed batches.
func (bw *BatchWriter) WritesFailed() uint64 {
	return atomic.LoadUint64(&bw.writesFailed)
}

// autoFlush periodically flushes the buffer
func (bw *BatchWriter) autoFlush() {
	defer bw.wg.Done()
	ticker := time.NewTicker(bw.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			bw.Flush()
		case <-bw.stop:
			bw.Flush() // Final flush before shutdown
			return
		}
	}
}

// Stats returns writer statistics
func (bw *BatchWriter) Stats() map[string]interface{} {
	bw.mu.Lock()
	lastCount := bw.lastFlushCount
	lastTime := bw.lastFlushTime
	bw.mu.Unlock()

	return map[string]interface{}{
		"batches_written":  atomic.LoadUint64(&bw.batchesWritten),
		"records_written":  atomic.LoadUint64(&bw.recordsWritten),
		"writes_failed":    atomic.LoadUint64(&bw.writesFailed),
		"buffer_size":      bw.Size(),
		"last_flush_count": lastCount,
		"last_flush_time":  lastTime.Format("15:04:05"),
	}
}

// Close stops the batch writer and flushes remaining data
func (bw *BatchWriter) Close() {
	close(bw.stop)
	bw.wg.Wait()
	logger.Info(fmt.Sprintf("✓ BatchWriter closed. Total: %d batches, %d records",
		atomic.LoadUint64(&bw.batchesWritten),
		atomic.LoadUint64(&bw.recordsWritten)))
}
