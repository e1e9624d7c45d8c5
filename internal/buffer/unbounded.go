package buffer

import "log/slog"

// Unbounded creates a channel buffer that grows as needed.
// It returns a write-only channel to feed data in, and a read-only channel to read data out.
//
// initialCap: The starting size of the backing slice (performance optimization).
// hardLimit: The maximum number of items to buffer before dropping (safety valve).
//
// Closing the input flushes what is queued and then closes the output.
//
// Usage:
//
//	in, out := buffer.Unbounded[event.Event](64, 4096, logger)
//	in <- ev
//	ev := <-out
func Unbounded[T any](initialCap int, hardLimit int, logger *slog.Logger) (chan<- T, <-chan T) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	in := make(chan T, 10)  // Small input buffer to reduce context switching
	out := make(chan T, 10) // Small output buffer

	go func() {
		defer close(out)

		// The queue storage.
		queue := make([]T, 0, initialCap)

		for {
			var next T
			var downstream chan T

			// Enable the 'out' case only if we have data to send.
			if len(queue) > 0 {
				next = queue[0]
				downstream = out
			}

			select {
			case val, ok := <-in:
				if !ok {
					// Input channel closed. Flush remaining queue then exit.
					for _, item := range queue {
						out <- item
					}
					return
				}

				// Safety valve: the consumer has stalled. Drop the oldest.
				if len(queue) >= hardLimit {
					logger.Warn("queue limit reached, dropping oldest", "limit", hardLimit)
					queue = queue[1:]
				}

				queue = append(queue, val)

			case downstream <- next:
				// Data sent successfully. Pop from queue.
				queue = queue[1:]
			}
		}
	}()

	return in, out
}
