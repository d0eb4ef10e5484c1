// Package catalog reads the qualification rule catalog from TOML.
package catalog

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/spec-kit/crm-service/internal/domain"
)

type file struct {
	Rules []ruleEntry `toml:"rule"`
}

type ruleEntry struct {
	ID             string `toml:"id"`
	Label          string `toml:"label"`
	DefaultStatus  string `toml:"default_status"`
	RecallRequired bool   `toml:"recall_required"`
	TicketRequired bool   `toml:"ticket_required"`
	MarkNC         bool   `toml:"mark_nc"`
}

// LoadFile parses and validates the catalog at path.
func LoadFile(path string) ([]domain.QualificationRule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rule catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a catalog. Unknown keys, duplicate ids and incomplete rules are
// rejected so a typo never silently changes qualification behavior.
func Load(r io.Reader) ([]domain.QualificationRule, error) {
	var doc file
	md, err := toml.NewDecoder(r).Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("decode rule catalog: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("unknown keys in rule catalog: %s", strings.Join(keys, ", "))
	}

	seen := make(map[string]struct{}, len(doc.Rules))
	rules := make([]domain.QualificationRule, 0, len(doc.Rules))
	for i, entry := range doc.Rules {
		rule := domain.QualificationRule{
			ID:             strings.TrimSpace(entry.ID),
			Label:          strings.TrimSpace(entry.Label),
			DefaultStatus:  strings.TrimSpace(entry.DefaultStatus),
			RecallRequired: entry.RecallRequired,
			TicketRequired: entry.TicketRequired,
			MarkNC:         entry.MarkNC,
		}
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("rule #%d: %w", i+1, err)
		}
		if _, dup := seen[rule.ID]; dup {
			return nil, fmt.Errorf("rule #%d: duplicate id %q", i+1, rule.ID)
		}
		seen[rule.ID] = struct{}{}
		rules = append(rules, rule)
	}
	return rules, nil
}
