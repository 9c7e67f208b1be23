package dictionary

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/errors"
)

// Load reads a newline-delimited word list, one word per line. Surrounding
// whitespace is trimmed and blank lines are skipped. An empty list is a
// resource error.
func Load(r io.Reader) ([]string, error) {
	var words []string
	s := bufio.NewScanner(r)
	for s.Scan() {
		w := strings.TrimSpace(s.Text())
		if w == "" {
			continue
		}
		words = append(words, w)
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading word list: %v", apperrors.ErrDictionaryUnavailable, err)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("%w: word list is empty", apperrors.ErrDictionaryUnavailable)
	}
	return words, nil
}

// LoadFile reads the word list at path.
func LoadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrDictionaryUnavailable, err)
	}
	defer f.Close()

	words, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return words, nil
}
