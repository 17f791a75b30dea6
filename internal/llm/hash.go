package llm

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// HashEmbedder is an offline embedder based on feature hashing of word
// unigrams and character trigrams. It captures lexical overlap only, which is
// enough for development and tests without an embeddings server.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder creates a HashEmbedder producing vectors of size dim.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim < 2 {
		dim = 2
	}
	return &HashEmbedder{dim: dim}
}

// ModelName returns a name that encodes the dimension.
func (e *HashEmbedder) ModelName() string {
	return fmt.Sprintf("hash-%d", e.dim)
}

// EmbedTexts embeds each text independently. Vectors are L2-normalised.
func (e *HashEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("empty input array")
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.embed(text)
	}
	return out, nil
}

func (e *HashEmbedder) embed(text string) []float32 {
	vec := make([]float64, e.dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	for _, w := range words {
		e.add(vec, "w:"+w, 1.0)
		padded := []rune("^" + w + "$")
		for i := 0; i+3 <= len(padded); i++ {
			e.add(vec, "t:"+string(padded[i:i+3]), 0.5)
		}
	}

	// The last dimension is reserved as a constant bias so no vector is all zeros.
	vec[e.dim-1] += 0.01

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, e.dim)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}

func (e *HashEmbedder) add(vec []float64, feature string, weight float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(e.dim-1))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}
