package naming

import (
	"strings"
	"testing"

	"github.com/reloquent/schemair/internal/config"
)

func TestFromConfig(t *testing.T) {
	p, err := FromConfig(FoldUpper, config.NamingConfig{
		Synonyms: map[string][]string{"created_at": {"crt_ts"}},
		Rules: []config.NamingRule{
			{Name: "version", Synonyms: []string{"row_version"}, Insert: "serverDefault", Update: "serverDefault"},
			{Name: "frozen_created", Synonyms: []string{"enterdate"}, Update: "serverDefault"},
		},
	})
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}

	if got := p.Classify("CRT_TS"); got != (Directives{Insert: ServerDefault, Update: None}) {
		t.Errorf("CRT_TS = %+v", got)
	}
	if got := p.Classify("ROW_VERSION"); got != (Directives{Insert: ServerDefault, Update: ServerDefault}) {
		t.Errorf("ROW_VERSION = %+v", got)
	}
	// The configured rule overrides the update slot only.
	if got := p.Classify("ENTERDATE"); got != (Directives{Insert: ServerDefault, Update: ServerDefault}) {
		t.Errorf("ENTERDATE = %+v", got)
	}
}

func TestFromConfigUnknownClass(t *testing.T) {
	_, err := FromConfig(FoldNone, config.NamingConfig{
		Synonyms: map[string][]string{"deleted_at": {"del_dttm"}, "owner": {"own_id"}},
	})
	if err == nil {
		t.Fatal("expected error for unknown classes")
	}
	for _, want := range []string{`"deleted_at"`, `"owner"`} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}
