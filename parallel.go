package mdtl

import (
	"context"
	"sync"
)

// runParallel calls fn for every index in [0, n) using at most workers
// goroutines. Once ctx is cancelled no new index is handed out; indexes that
// were never started are simply skipped, so callers must treat untouched
// slots as abandoned.
func runParallel(ctx context.Context, workers, n int, fn func(ctx context.Context, i int)) {
	if n == 0 {
		return
	}
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	indexes := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				fn(ctx, i)
			}
		}()
	}

feed:
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			break feed
		case indexes <- i:
		}
	}
	close(indexes)
	wg.Wait()
}
