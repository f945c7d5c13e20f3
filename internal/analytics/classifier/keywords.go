package classifier

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/dvloznov/smart-ledger/internal/analytics/features"
	"github.com/dvloznov/smart-ledger/internal/domain"
)

//go:embed keywords.yaml
var defaultKeywords []byte

// Keywords maps normalized category names to the words that identify them.
// Seeded words are shared by every user; words learned from feedback belong
// to one user's category. It is safe for concurrent use.
type Keywords struct {
	mu      sync.RWMutex
	words   map[string][]string
	learned map[learnedKey][]string
}

type learnedKey struct {
	userID     string
	categoryID string
}

// NewKeywords returns an empty keyword map.
func NewKeywords() *Keywords {
	return &Keywords{
		words:   map[string][]string{},
		learned: map[learnedKey][]string{},
	}
}

// DefaultKeywords returns the map seeded from the embedded keyword list.
func DefaultKeywords() (*Keywords, error) {
	return ParseKeywords(defaultKeywords)
}

// ParseKeywords builds a keyword map from YAML of the form
// `category name: [word, ...]`. Names and words are normalized.
func ParseKeywords(data []byte) (*Keywords, error) {
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("ParseKeywords: %w", err)
	}
	k := NewKeywords()
	for name, words := range raw {
		k.Add(name, words)
	}
	return k, nil
}

// Add appends words to the category's list, skipping blanks and duplicates.
func (k *Keywords) Add(categoryName string, words []string) {
	key := features.Normalize(categoryName)
	if key == "" {
		return
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.words[key] = appendWords(k.words[key], words)
}

// Learn appends words to one user's category, skipping blanks and duplicates.
func (k *Keywords) Learn(userID, categoryID string, words []string) {
	if userID == "" || categoryID == "" {
		return
	}
	key := learnedKey{userID: userID, categoryID: categoryID}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.learned[key] = appendWords(k.learned[key], words)
}

func appendWords(list, words []string) []string {
	for _, w := range words {
		w = features.Normalize(w)
		if w == "" || slices.Contains(list, w) {
			continue
		}
		list = append(list, w)
	}
	return list
}

// Matches reports whether the normalized description contains any keyword
// of the category.
func (k *Keywords) Matches(categoryName, normalized string) bool {
	if normalized == "" {
		return false
	}
	k.mu.RLock()
	defer k.mu.RUnlock()
	return containsAny(normalized, k.words[features.Normalize(categoryName)])
}

// MatchesCategory reports whether the normalized description contains a
// seeded keyword of the category's name or a word userID taught it.
func (k *Keywords) MatchesCategory(userID string, c domain.Category, normalized string) bool {
	if normalized == "" {
		return false
	}
	k.mu.RLock()
	defer k.mu.RUnlock()
	return containsAny(normalized, k.words[features.Normalize(c.Name)]) ||
		containsAny(normalized, k.learned[learnedKey{userID: userID, categoryID: c.ID}])
}

func containsAny(normalized string, words []string) bool {
	for _, w := range words {
		if strings.Contains(normalized, w) {
			return true
		}
	}
	return false
}

// Words returns a copy of the category's keywords.
func (k *Keywords) Words(categoryName string) []string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return slices.Clone(k.words[features.Normalize(categoryName)])
}

// Learned returns a copy of the words userID taught the category.
func (k *Keywords) Learned(userID, categoryID string) []string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return slices.Clone(k.learned[learnedKey{userID: userID, categoryID: categoryID}])
}
