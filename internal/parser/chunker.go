package parser

import (
	"errors"
	"fmt"
)

const (
	DefaultChunkSize    = 500 // runes
	DefaultChunkOverlap = 50  // runes
)

var ErrInvalidWindow = errors.New("invalid chunk window")

// Chunker splits cleaned text into fixed-size overlapping windows.
type Chunker struct {
	Window  int
	Overlap int
}

func NewChunker(window, overlap int) (*Chunker, error) {
	if err := validateWindow(window, overlap); err != nil {
		return nil, err
	}
	return &Chunker{Window: window, Overlap: overlap}, nil
}

func (c *Chunker) Split(text string) ([]string, error) {
	return SplitText(text, c.Window, c.Overlap)
}

// SplitText slides a window of size window over text, advancing by
// window-overlap. Sizes are counted in runes. Iteration stops once the
// remaining tail is shorter than overlap; such a tail is always contained in
// the previous window, so no text is lost.
func SplitText(text string, window, overlap int) ([]string, error) {
	if err := validateWindow(window, overlap); err != nil {
		return nil, err
	}
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return []string{}, nil
	}
	if n <= window {
		return []string{text}, nil
	}

	var chunks []string
	step := window - overlap
	for start := 0; start < n; {
		end := min(start+window, n)
		chunks = append(chunks, string(runes[start:end]))

		start += step
		if n-start < overlap {
			break
		}
	}
	return chunks, nil
}

func validateWindow(window, overlap int) error {
	if window <= 0 {
		return fmt.Errorf("%w: window must be positive, got %d", ErrInvalidWindow, window)
	}
	if overlap < 0 || overlap >= window {
		return fmt.Errorf("%w: overlap must be in [0, %d), got %d", ErrInvalidWindow, window, overlap)
	}
	return nil
}
