package engine

import (
	"log"
	"os"
	"time"
)

// Options tunes engine behaviour. Zero values pick sensible defaults.
type Options struct {
	// ImportanceThreshold is the minimum importance score an extracted
	// candidate needs to be stored.
	ImportanceThreshold int

	// RetrievalLimit caps how many relevant memories a query returns.
	RetrievalLimit int

	// EmbedConcurrency bounds parallel embedding calls when a turn stores
	// several extracted memories at once.
	EmbedConcurrency int

	// ChatModel, Temperature and MaxTokens configure reply generation.
	ChatModel   string
	Temperature float32
	MaxTokens   int

	// Logger receives fail-soft diagnostics. Defaults to stderr.
	Logger *log.Logger

	// Clock supplies timestamps, overridable in tests.
	Clock func() time.Time
}

func (o Options) withDefaults() Options {
	if o.ImportanceThreshold <= 0 {
		o.ImportanceThreshold = 5
	}
	if o.RetrievalLimit <= 0 {
		o.RetrievalLimit = 5
	}
	if o.EmbedConcurrency <= 0 {
		o.EmbedConcurrency = 4
	}
	if o.ChatModel == "" {
		o.ChatModel = "gpt-4"
	}
	if o.Temperature == 0 {
		o.Temperature = 0.7
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 1000
	}
	if o.Logger == nil {
		o.Logger = log.New(os.Stderr, "memory-engine: ", log.LstdFlags)
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

// ProcessOptions selects which sides of a turn run. The zero value runs both.
type ProcessOptions struct {
	SkipExtract bool
	SkipCurate  bool
}
