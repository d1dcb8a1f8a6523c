package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

func init() {
	// BPE ranks ship with the binary instead of being fetched at startup.
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// Tokenizer counts tokens and cuts text into consecutive windows of at most
// size tokens. Joining the windows gives back the text up to whitespace.
type Tokenizer interface {
	Count(text string) int
	Split(text string, size int) []string
}

type TiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

func NewTiktokenTokenizer(encoding string) (*TiktokenTokenizer, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s encoding: %w", encoding, err)
	}
	return &TiktokenTokenizer{enc: enc}, nil
}

func (t *TiktokenTokenizer) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// Split encodes text once and decodes windows of size token ids. A window
// whose end falls inside a multi-byte character is shortened so it decodes to
// valid UTF-8; the tokens it gives up start the next window. Windows keep
// their leading whitespace, so plain concatenation restores text.
func (t *TiktokenTokenizer) Split(text string, size int) []string {
	if size <= 0 {
		return nil
	}
	ids := t.enc.Encode(text, nil, nil)
	var windows []string
	for start := 0; start < len(ids); {
		end := min(start+size, len(ids))
		for end > start+1 && !utf8.ValidString(t.enc.Decode(ids[start:end])) {
			end--
		}
		// a lone token holding part of a character has to take its neighbours
		for end < len(ids) && !utf8.ValidString(t.enc.Decode(ids[start:end])) {
			end++
		}
		if w := t.enc.Decode(ids[start:end]); strings.TrimSpace(w) != "" {
			windows = append(windows, w)
		}
		start = end
	}
	return windows
}

// WordTokenizer counts whitespace-separated words.
type WordTokenizer struct{}

func (WordTokenizer) Count(text string) int {
	return len(strings.Fields(text))
}

// Split joins runs of size words with single spaces.
func (WordTokenizer) Split(text string, size int) []string {
	if size <= 0 {
		return nil
	}
	words := strings.Fields(text)
	var windows []string
	for i := 0; i < len(words); i += size {
		windows = append(windows, strings.Join(words[i:min(i+size, len(words))], " "))
	}
	return windows
}
