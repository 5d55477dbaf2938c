package embed

import (
	"context"
	"sync"
)

// EmbedAll embeds every text concurrently through a bounded worker set,
// preserving input order. The first provider error aborts the batch.
func EmbedAll(ctx context.Context, embedder Embedder, texts []string, maxConcurrency int) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}

	vectors := make([][]float32, len(texts))
	errs := make([]error, len(texts))

	var wg sync.WaitGroup
	sem := make(chan struct{}, maxConcurrency)
	for i, text := range texts {
		wg.Add(1)
		go func(idx int, t string) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				errs[idx] = ctx.Err()
				return
			case sem <- struct{}{}:
				defer func() { <-sem }()
				vectors[idx], errs[idx] = embedder.Embed(ctx, t)
			}
		}(i, text)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return vectors, nil
}
