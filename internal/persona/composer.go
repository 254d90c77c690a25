package persona

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/lazypower/heartline/internal/emotion"
)

const defaultCacheSize = 256

// Composer memoizes Compose. Composition is pure, so a cached instruction is
// always identical to a fresh one.
type Composer struct {
	cache *lru.Cache[string, string]
}

// NewComposer creates a Composer with an LRU of the given size. Non-positive
// sizes use the default.
func NewComposer(size int) (*Composer, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("create prompt cache: %w", err)
	}
	return &Composer{cache: cache}, nil
}

// Build returns the instruction for in, from cache when possible.
func (c *Composer) Build(in Input) string {
	key := cacheKey(in)
	if s, ok := c.cache.Get(key); ok {
		return s
	}
	s := Compose(in)
	c.cache.Add(key, s)
	return s
}

// Len reports the number of cached instructions.
func (c *Composer) Len() int {
	return c.cache.Len()
}

// cacheKey covers every input that reaches the text. Intensity only matters
// through its 1-10 display value, which also fixes its description.
func cacheKey(in Input) string {
	var flags []string
	for _, f := range in.Flags.List() {
		flags = append(flags, string(f))
	}
	return fmt.Sprintf("%s|%s|%d|%d|%s|%s",
		in.UserName, in.Emotion, emotion.ToScale10(in.Intensity),
		in.Score, in.Stage, strings.Join(flags, ","))
}
