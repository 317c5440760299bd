// Package transform converts Monzo transactions into Lunch Money
// insert format: category mapping, transfer classification, and the
// record transformation itself.
package transform

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/tomharle/monzo-lunchmoney-sync/pkg/lunchmoney"
)

// CategoryMapper resolves Monzo category codes to Lunch Money category
// ids via a static map file. Map values may be literal numeric ids or
// Lunch Money category display names; names are resolved against the
// category list fetched once per run.
type CategoryMapper struct {
	ids map[string]int64
}

// LoadCategoryMap reads the static category map file. The file maps
// Monzo category codes to either numeric Lunch Money category ids or
// category display names. A missing file is not an error: syncing
// without category mapping is a supported setup.
func LoadCategoryMap(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read category map: %w", err)
	}

	raw := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse category map: %w", err)
	}

	entries := make(map[string]string, len(raw))
	for code, value := range raw {
		entries[code] = fmt.Sprintf("%v", value)
	}
	return entries, nil
}

// BuildCategoryMapper resolves map entries against the Lunch Money
// category list. Numeric entries are validated to be assignable
// categories (not groups); name entries are normalized and matched
// against normalized category names. Entries that cannot be resolved
// are reported once and dropped, never fatal.
func BuildCategoryMapper(entries map[string]string, categories []lunchmoney.Category, log *slog.Logger) *CategoryMapper {
	if log == nil {
		log = slog.Default()
	}

	byName := make(map[string]int64)
	assignable := make(map[int64]bool)
	for _, c := range categories {
		if !c.Assignable() {
			continue
		}
		assignable[c.ID] = true
		if norm := NormalizeCategoryName(c.Name); norm != "" {
			byName[norm] = c.ID
		}
	}

	ids := make(map[string]int64, len(entries))
	for code, value := range entries {
		if id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			if !assignable[id] {
				log.Warn("category map entry points to a category group or unknown id, ignoring",
					"monzo_category", code, "id", id)
				continue
			}
			ids[code] = id
			continue
		}

		id, ok := byName[NormalizeCategoryName(value)]
		if !ok {
			log.Warn("category map entry does not match any Lunch Money category, ignoring",
				"monzo_category", code, "name", value)
			continue
		}
		ids[code] = id
	}

	return &CategoryMapper{ids: ids}
}

// Resolve returns the Lunch Money category id mapped to a Monzo
// category code, if one exists.
func (m *CategoryMapper) Resolve(code string) (int64, bool) {
	if m == nil {
		return 0, false
	}
	id, ok := m.ids[code]
	return id, ok
}

// NormalizeCategoryName normalizes a category name for comparison:
// emoji and other non-alphanumeric decoration are stripped, whitespace
// is collapsed, and the result is lowercased.
// "🥬 Groceries" and "groceries" compare equal.
func NormalizeCategoryName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.ToLower(strings.Join(strings.Fields(b.String()), " "))
}
