package catalog

import (
	"strings"
	"testing"
)

const sample = `
[[rule]]
id = "RAPPEL"
label = "Call back later"
default_status = "Rappel"
recall_required = true

[[rule]]
id = "NC_DEFECT"
label = "Non-conform delivery"
default_status = "Litige"
ticket_required = true
mark_nc = true
`

func TestLoad(t *testing.T) {
	t.Parallel()

	rules, err := Load(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("rules = %d, want 2", len(rules))
	}
	if !rules[0].RecallRequired || rules[0].TicketRequired {
		t.Errorf("rule 0 = %+v", rules[0])
	}
	if !rules[1].MarkNC || !rules[1].TicketRequired || rules[1].DefaultStatus != "Litige" {
		t.Errorf("rule 1 = %+v", rules[1])
	}
}

func TestLoadRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "unknown key",
			doc:  "[[rule]]\nid = \"A\"\nlabel = \"a\"\ndefault_status = \"s\"\nmark_nc_typo = true\n",
			want: "unknown keys",
		},
		{
			name: "missing label",
			doc:  "[[rule]]\nid = \"A\"\ndefault_status = \"s\"\n",
			want: "label",
		},
		{
			name: "duplicate id",
			doc:  "[[rule]]\nid = \"A\"\nlabel = \"a\"\ndefault_status = \"s\"\n[[rule]]\nid = \"A\"\nlabel = \"b\"\ndefault_status = \"s\"\n",
			want: "duplicate",
		},
		{
			name: "syntax",
			doc:  "[[rule]\n",
			want: "decode",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(strings.NewReader(tc.doc))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("err = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestLoadShippedCatalog(t *testing.T) {
	t.Parallel()

	rules, err := LoadFile("../../configs/rules.toml")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(rules) == 0 {
		t.Fatal("shipped catalog is empty")
	}
}
