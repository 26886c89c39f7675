package naming

import "strings"

// Directive controls how a column takes part in INSERT or UPDATE statements.
type Directive string

const (
	// Unset means the column is bound normally.
	Unset Directive = ""
	// None excludes the column from the statement.
	None Directive = "none"
	// ServerDefault sets the column to the server's "now" expression.
	ServerDefault Directive = "serverDefault"
)

// Directives is the classification result for one column.
type Directives struct {
	Insert Directive
	Update Directive
}

// IsZero reports whether no directive was assigned.
func (d Directives) IsZero() bool {
	return d.Insert == Unset && d.Update == Unset
}

// Fold selects how column names are compared against synonyms.
type Fold int

const (
	// FoldNone compares names exactly against the lower-case synonyms.
	FoldNone Fold = iota
	// FoldUpper compares upper-cased names against upper-cased synonyms.
	FoldUpper
)

// Class identifies one of the convention column families.
type Class string

const (
	Creator    Class = "creator"
	Modifier   Class = "modifier"
	CreatedAt  Class = "created_at"
	ModifiedAt Class = "modified_at"
)

// Rule assigns directives to every column matching one of its synonyms.
// An Unset field leaves the corresponding slot untouched.
type Rule struct {
	Class    Class
	Synonyms []string
	Insert   Directive
	Update   Directive
}

// DefaultRules returns the built-in rules. Each class lists the legacy short
// name first, then the full name.
func DefaultRules() []Rule {
	return []Rule{
		{Class: Creator, Synonyms: []string{"enterid", "reg_id"}, Update: None},
		{Class: Modifier, Synonyms: []string{"updateid", "upd_id"}, Insert: None},
		{Class: CreatedAt, Synonyms: []string{"enterdate", "reg_dttm"}, Insert: ServerDefault, Update: None},
		{Class: ModifiedAt, Synonyms: []string{"updatedate", "upd_dttm"}, Insert: None, Update: ServerDefault},
	}
}

// Policy classifies column names using an ordered rule list.
type Policy struct {
	Fold  Fold
	Rules []Rule
}

// New returns a Policy with the default rules and the given fold.
func New(fold Fold) *Policy {
	return &Policy{Fold: fold, Rules: DefaultRules()}
}

// AddSynonyms appends extra spellings to the rules of the given class.
// It returns false when no rule has that class.
func (p *Policy) AddSynonyms(class Class, synonyms ...string) bool {
	found := false
	for i := range p.Rules {
		if p.Rules[i].Class == class {
			p.Rules[i].Synonyms = append(p.Rules[i].Synonyms, synonyms...)
			found = true
		}
	}
	return found
}

// AddRule appends a rule after the existing ones.
func (p *Policy) AddRule(r Rule) {
	p.Rules = append(p.Rules, r)
}

// Classify returns the directives for a column name. Rules are applied in
// declaration order and a later match overwrites the slots it sets, so the
// last matching rule wins.
func (p *Policy) Classify(column string) Directives {
	var d Directives
	name := p.fold(column)
	for _, r := range p.Rules {
		if !p.matches(r, name) {
			continue
		}
		if r.Insert != Unset {
			d.Insert = r.Insert
		}
		if r.Update != Unset {
			d.Update = r.Update
		}
	}
	return d
}

func (p *Policy) matches(r Rule, name string) bool {
	for _, s := range r.Synonyms {
		if p.fold(s) == name {
			return true
		}
	}
	return false
}

func (p *Policy) fold(s string) string {
	if p.Fold == FoldUpper {
		return strings.ToUpper(s)
	}
	return s
}
