package pipeline

import (
	"context"

	"github.com/tokenized/payloadminer/threads"

	"github.com/pkg/errors"
)

// WriteBatch persists a batch of RawRecords. The Store implements this.
type WriteBatch func(ctx context.Context, records []RawRecord) error

// Bus is the single-producer/single-consumer in-process queue between a chain Extractor and its
// batched writer (§4.5). It is bounded so that a slow writer applies backpressure to the
// extractor, and it batches up to batchSize records (default 500) before each write.
type Bus struct {
	records   chan ExtractorPayload
	chain     Chain
	batchSize int
	write     WriteBatch
}

const DefaultBatchSize = 500

// NewBus creates a Record Bus bounded to capacity and batching writes at batchSize.
func NewBus(chain Chain, capacity, batchSize int, write WriteBatch) *Bus {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Bus{
		records:   make(chan ExtractorPayload, capacity),
		chain:     chain,
		batchSize: batchSize,
		write:     write,
	}
}

// Send enqueues a payload, blocking if the bus is full. It returns an error only if the context
// is cancelled while waiting.
func (b *Bus) Send(ctx context.Context, payload ExtractorPayload) error {
	select {
	case b.records <- payload:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "bus send")
	}
}

// Close signals the writer that no more payloads will be sent; it drains and writes whatever
// remains in the channel before the writer thread returns.
func (b *Bus) Close() {
	close(b.records)
}

// ExtractorThread returns a threads.Thread that runs extract, sending every payload it produces
// over the bus, then closes the bus so the writer can drain and stop.
func ExtractorThread(name string, bus *Bus, extract func(ctx context.Context, bus *Bus) error) *threads.Thread {
	return threads.NewThreadWithoutStop(name, func(ctx context.Context) error {
		defer bus.Close()
		return extract(ctx, bus)
	})
}

// WriterThread returns a threads.Thread that accumulates payloads from the bus into batches of
// bus.batchSize and issues one bulk insert per batch (§4.5 batching contract), draining the
// remainder when the bus is closed.
func WriterThread(name string, bus *Bus) *threads.Thread {
	return threads.NewThreadWithoutStop(name, func(ctx context.Context) error {
		batch := make([]RawRecord, 0, bus.batchSize)

		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			if err := bus.write(ctx, batch); err != nil {
				return errors.Wrap(err, "write batch")
			}
			batch = batch[:0]
			return nil
		}

		for payload := range bus.records {
			batch = append(batch, payload.ToRawRecord(bus.chain))
			if len(batch) >= bus.batchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}

		return flush()
	})
}
