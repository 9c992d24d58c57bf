package epg

import (
	"errors"
	"os"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	data, err := os.ReadFile("testdata/small_epg.xml")
	if err != nil {
		t.Fatalf("Failed to read test file: %v", err)
	}

	guide, err := Parse(strings.NewReader(string(data)))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(guide.Index) != 2 {
		t.Errorf("Expected 2 channels, got %d", len(guide.Index))
	}
	if guide.Skipped != 1 {
		t.Errorf("Expected 1 skipped programme, got %d", guide.Skipped)
	}
	if guide.Programmes() != 5 {
		t.Errorf("Expected 5 programmes, got %d", guide.Programmes())
	}

	fox := guide.Index["foxsports502.au"]
	if len(fox) != 2 {
		t.Fatalf("Expected 2 programmes for foxsports502.au, got %d", len(fox))
	}

	p := fox[0]
	if p.Channel != "foxsports502.au" {
		t.Errorf("Expected programme channel 'foxsports502.au', got '%s'", p.Channel)
	}
	if p.Title != "Tim Tszyu & Manny Pacquiao" {
		t.Errorf("Expected programme title 'Tim Tszyu & Manny Pacquiao', got '%s'", p.Title)
	}
	if p.Start != "20250716230000 +0000" {
		t.Errorf("Expected programme start '20250716230000 +0000', got '%s'", p.Start)
	}
	if p.Stop != "20250717003000 +0000" {
		t.Errorf("Expected programme stop '20250717003000 +0000', got '%s'", p.Stop)
	}
	if p.Description != "" {
		t.Errorf("Expected empty description, got '%s'", p.Description)
	}

	p = fox[1]
	if p.Title != "NRL 360" {
		t.Errorf("Expected first title 'NRL 360', got '%s'", p.Title)
	}
	if !strings.Contains(p.Description, "Braith Anasta") {
		t.Errorf("Expected programme description to contain 'Braith Anasta', got '%s'", p.Description)
	}

	espn := guide.Index["espn.us"]
	if len(espn) != 3 {
		t.Fatalf("Expected 3 programmes for espn.us, got %d", len(espn))
	}
	if espn[0].Stop != "" {
		t.Errorf("Expected empty stop, got '%s'", espn[0].Stop)
	}
	if espn[1].Start != "not a time" {
		t.Errorf("Expected raw start to be kept, got '%s'", espn[1].Start)
	}
	if espn[2].Title != DefaultTitle {
		t.Errorf("Expected default title '%s', got '%s'", DefaultTitle, espn[2].Title)
	}
}

func TestParseKeepsDocumentOrder(t *testing.T) {
	input := `<tv>
  <programme channel="c" start="20240115120000 +0000"><title>Noon</title></programme>
  <programme channel="c" start="20240115080000 +0000"><title>Morning</title></programme>
  <programme channel="c" start="20240115100000 +0000"><title>Late Morning</title></programme>
</tv>`

	guide, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	want := []string{"Noon", "Morning", "Late Morning"}
	got := guide.Index["c"]
	if len(got) != len(want) {
		t.Fatalf("Expected %d programmes, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Title != want[i] {
			t.Errorf("Programme %d: expected '%s', got '%s'", i, want[i], got[i].Title)
		}
	}
}

func TestParseIgnoresNestedProgrammes(t *testing.T) {
	input := `<tv><group><programme channel="c" start="20240115120000 +0000"/></group></tv>`

	guide, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(guide.Index) != 0 {
		t.Errorf("Expected no indexed channels, got %d", len(guide.Index))
	}
}

func TestParseEncodingDeclaration(t *testing.T) {
	input := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><tv><programme channel=\"c\" start=\"20240115120000 +0000\"><title>T\xe9l\xe9</title></programme></tv>"

	guide, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := guide.Index["c"][0].Title; got != "Télé" {
		t.Errorf("Expected title 'Télé', got '%s'", got)
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:    "invalid XML",
			input:   "<tv><channel>unclosed",
			wantErr: true,
		},
		{
			name:    "mismatched tags",
			input:   `<tv><programme channel="c"><title>x</desc></programme></tv>`,
			wantErr: true,
		},
		{
			name:    "empty XML",
			input:   "",
			wantErr: true,
		},
		{
			name:    "valid empty TV",
			input:   `<?xml version="1.0" encoding="utf-8"?><tv></tv>`,
			wantErr: false,
		},
		{
			name:    "second root element",
			input:   `<tv></tv><tv><programme channel="c"><title>x</title></programme></tv>`,
			wantErr: true,
		},
		{
			name:    "text after root",
			input:   `<tv><programme channel="c"><title>x</title></programme></tv>junk`,
			wantErr: true,
		},
		{
			name:    "text before root",
			input:   `junk<tv><programme channel="c"><title>x</title></programme></tv>`,
			wantErr: true,
		},
		{
			name:    "byte order mark and surrounding whitespace",
			input:   "\ufeff<?xml version=\"1.0\" encoding=\"utf-8\"?>\n<tv><programme channel=\"c\"><title>x</title></programme></tv>\n\n",
			wantErr: false,
		},
		{
			name:    "comment after root",
			input:   `<tv></tv><!-- generated -->`,
			wantErr: false,
		},
		{
			name:    "missing timestamps",
			input:   `<tv><programme channel="c"><title>x</title></programme></tv>`,
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guide, err := Parse(strings.NewReader(tt.input))
			if (err != nil) != tt.wantErr {
				t.Errorf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrMalformedDocument) {
					t.Errorf("Parse() error = %v, want wrapped %v", err, ErrMalformedDocument)
				}
				if guide != nil {
					t.Error("Parse() should not return a partial guide on error")
				}
			}
		})
	}
}
