// internal/words/words.go
//
// Word list management for the game.
//
// Responsibilities:
//   - Load the easy (common/daily) and hard (abstract/prize) Persian word
//     lists from environment-provided files or fall back to embedded defaults.
//   - Supply the deterministic daily word and a uniform random word per tier.
//   - Validate that guess text is Persian script.
//
// Tiers:
//   - "easy": everyday vocabulary, served to guests.
//   - "hard": abstract/trap vocabulary, served to logged-in (prize) players.
//
// Environment variables:
//   WORDS_EASY_FILE=/path/to/easy.txt
//   WORDS_HARD_FILE=/path/to/hard.txt
//
// Constraints:
//   • One word per line, Persian script, blank lines ignored.
//   • Both lists must be non-empty after loading; an empty list is a fatal
//     configuration error.
//   • Initialization is run once (sync.Once).

package words

import (
	"bufio"
	"crypto/rand"
	_ "embed"
	"fmt"
	"math/big"
	"os"
	"strings"
	"sync"
)

// Tier selects which word list a word is drawn from.
type Tier string

const (
	TierEasy Tier = "easy" // guests / fun mode
	TierHard Tier = "hard" // logged-in / prize mode
)

// --- embedded defaults (server runs even if no files configured) ---

//go:embed default_easy_words.txt
var embeddedEasy string

//go:embed default_hard_words.txt
var embeddedHard string

var (
	initOnce   sync.Once
	easyWords  []string
	hardWords  []string
	initialErr error
)

// Init loads both word lists exactly once.
// Returns an error if either list ends up empty.
func Init() error {
	initOnce.Do(func() {
		easyPath := os.Getenv("WORDS_EASY_FILE")
		hardPath := os.Getenv("WORDS_HARD_FILE")

		var err error
		if easyPath != "" {
			easyWords, err = readWordFile(easyPath)
			if err != nil {
				initialErr = err
				return
			}
		} else {
			easyWords = normalizeLines(embeddedEasy)
		}
		if hardPath != "" {
			hardWords, err = readWordFile(hardPath)
			if err != nil {
				initialErr = err
				return
			}
		} else {
			hardWords = normalizeLines(embeddedHard)
		}

		if len(easyWords) == 0 {
			initialErr = fmt.Errorf("words: easy list is empty")
			return
		}
		if len(hardWords) == 0 {
			initialErr = fmt.Errorf("words: hard list is empty")
		}
	})
	return initialErr
}

// List returns the word list for a tier.
func List(tier Tier) []string {
	if tier == TierHard {
		return hardWords
	}
	return easyWords
}

// readWordFile loads one word per line from a file, trims whitespace,
// and keeps only Persian-script entries.
func readWordFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		w := strings.TrimSpace(sc.Text())
		if w != "" && IsPersian(w) {
			out = append(out, w)
		}
	}
	return out, sc.Err()
}

// normalizeLines processes an embedded multiline string into a word slice.
func normalizeLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		w := strings.TrimSpace(line)
		if w != "" && IsPersian(w) {
			out = append(out, w)
		}
	}
	return out
}

// IsPersian reports whether s consists only of Arabic-script runes as used
// in Persian text, plus the zero-width non-joiner.
func IsPersian(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r == '‌' { // ZWNJ, common inside compound Persian words
			continue
		}
		if r < 0x0600 || r > 0x06FF {
			return false
		}
	}
	return true
}

// Random returns a cryptographically random word from the tier's list.
// Unlike Daily there is no determinism guarantee; used by unlimited mode.
func Random(tier Tier) string {
	list := List(tier)
	if len(list) == 0 {
		return ""
	}
	nBig, _ := rand.Int(rand.Reader, big.NewInt(int64(len(list))))
	return list[nBig.Int64()]
}

// Stats returns counts of loaded words: (easy, hard).
func Stats() (easyCount int, hardCount int) {
	return len(easyWords), len(hardWords)
}
