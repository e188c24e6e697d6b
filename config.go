package flash

import "time"

// Config holds the tunable parameters for building and querying a
// persisted flash index. The wire format itself fixes the packed-block
// size at 128 values; everything else here is a free choice.
type Config struct {
	// BM25 holds the BM25 scoring constants used by the conjunctive
	// scorer. The defaults below (k1=1.2, b=0.75) match ElasticSearch's.
	BM25 BM25Parameters

	// InlinePostingThreshold is the document-frequency cutoff below
	// which a term dictionary entry stores its postings inline instead
	// of via a skip list.
	InlinePostingThreshold int

	// SnippetPassages is the default number of highlighted passages
	// returned per search result when snippets are requested.
	SnippetPassages int

	// QueryDeadline bounds how long a single query evaluation may run
	// before it returns a partial result. Zero means no deadline.
	QueryDeadline time.Duration

	// BufferPoolSize is the number of scratch buffers kept in the pool
	// for decode/highlight working memory.
	BufferPoolSize int

	// BufferSize is the length, in bytes, of each buffer the pool hands out.
	BufferSize int
}

// DefaultFlashConfig returns the configuration the persisted index
// operations use unless a caller overrides it.
func DefaultFlashConfig() Config {
	return Config{
		BM25: BM25Parameters{
			K1: 1.2,
			B:  0.75,
		},
		InlinePostingThreshold: 128,
		SnippetPassages:        3,
		QueryDeadline:          0,
		BufferPoolSize:         16,
		BufferSize:             4096,
	}
}
