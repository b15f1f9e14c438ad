package storage

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

// executionLogger is the part of DB the writer needs.
type executionLogger interface {
	LogExecution(ctx context.Context, exec *Execution) error
}

// HistoryWriter records executions asynchronously so a slow database never
// delays an HTTP response.
type HistoryWriter struct {
	db      executionLogger
	ch      chan *Execution
	wg      sync.WaitGroup
	done    chan struct{}
	backoff time.Duration
}

func NewHistoryWriter(db executionLogger, bufferSize int) *HistoryWriter {
	if bufferSize < 1 {
		bufferSize = 10000
	}
	return &HistoryWriter{
		db:      db,
		ch:      make(chan *Execution, bufferSize),
		done:    make(chan struct{}),
		backoff: 100 * time.Millisecond,
	}
}

func (w *HistoryWriter) Start() {
	w.wg.Add(1)
	go w.processLoop()
}

// Log queues a record. It never blocks; records are dropped when the buffer
// is full.
func (w *HistoryWriter) Log(exec *Execution) {
	select {
	case w.ch <- exec:
	default:
		log.Warn().Str("exec_id", exec.ID).Msg("history buffer full, dropping record")
	}
}

// Flush stops the writer and waits up to timeout for queued records.
func (w *HistoryWriter) Flush(timeout time.Duration) {
	close(w.done)

	doneCh := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(doneCh)
	}()

	select {
	case <-doneCh:
		log.Info().Msg("history writer flushed")
	case <-time.After(timeout):
		log.Warn().Msg("history writer flush timed out")
	}
}

func (w *HistoryWriter) processLoop() {
	defer w.wg.Done()

	for {
		select {
		case exec := <-w.ch:
			w.writeWithRetry(exec)
		case <-w.done:
			// Drain remaining entries
			for {
				select {
				case exec := <-w.ch:
					w.writeWithRetry(exec)
				default:
					return
				}
			}
		}
	}
}

func (w *HistoryWriter) writeWithRetry(exec *Execution) {
	const maxRetries = 3

	for attempt := 0; attempt <= maxRetries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := w.db.LogExecution(ctx, exec)
		cancel()

		if err == nil {
			return
		}

		if isPermanent(err) {
			log.Error().
				Err(err).
				Str("exec_id", exec.ID).
				Str("filename", exec.Filename).
				Msg("history record rejected by database, not retrying")
			return
		}

		if attempt < maxRetries {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * w.backoff
			log.Warn().
				Err(err).
				Str("exec_id", exec.ID).
				Int("attempt", attempt+1).
				Dur("backoff", backoff).
				Msg("history write failed, retrying")
			time.Sleep(backoff)
		} else {
			log.Error().
				Err(err).
				Str("exec_id", exec.ID).
				Msg("history write failed permanently after retries")
		}
	}
}

// isPermanent reports whether the database rejected the record itself, so
// writing it again cannot succeed. Connection and timeout errors are
// transient.
func isPermanent(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || len(pgErr.Code) < 2 {
		return false
	}
	switch pgErr.Code[:2] {
	case "22", // data exception, e.g. invalid byte sequence
		"23", // integrity constraint violation, e.g. duplicate id
		"42": // syntax error or missing table
		return true
	}
	return false
}
