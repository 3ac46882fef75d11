package tokens

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Interface estimates token counts for cost accounting and history trimming.
type Interface interface {
	Estimate(text string) int
}

type estimatorImpl struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
}

// New returns a token estimator backed by the cl100k_base encoding. When the
// encoding cannot be loaded (offline first run), estimates fall back to the
// chars/4 heuristic.
func New() Interface {
	return &estimatorImpl{}
}

func (e *estimatorImpl) Estimate(text string) int {
	if text == "" {
		return 0
	}

	e.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			e.enc = enc
		}
	})

	if e.enc != nil {
		return len(e.enc.Encode(text, nil, nil))
	}

	// 4 chars per token approximation for English text.
	estimate := len(text) / 4
	if estimate == 0 {
		estimate = 1
	}

	return estimate
}
