package naming

import (
	"errors"
	"fmt"
	"sort"

	"github.com/reloquent/schemair/internal/config"
)

// FromConfig returns the default policy for fold extended with the
// configured synonyms and rules. Configured rules follow the built-in ones
// and therefore win on conflict.
func FromConfig(fold Fold, cfg config.NamingConfig) (*Policy, error) {
	p := New(fold)
	var errs []error

	classes := make([]string, 0, len(cfg.Synonyms))
	for c := range cfg.Synonyms {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	for _, c := range classes {
		if !p.AddSynonyms(Class(c), cfg.Synonyms[c]...) {
			errs = append(errs, fmt.Errorf("naming.synonyms: unknown class %q", c))
		}
	}

	for _, r := range cfg.Rules {
		p.AddRule(Rule{
			Class:    Class(r.Name),
			Synonyms: r.Synonyms,
			Insert:   Directive(r.Insert),
			Update:   Directive(r.Update),
		})
	}
	return p, errors.Join(errs...)
}
