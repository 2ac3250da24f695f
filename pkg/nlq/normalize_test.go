package nlq

import (
	"strings"
	"testing"

	"github.com/geoatlas/geoquery-engine/pkg/testhelpers"
)

func TestNormalize_Misspellings(t *testing.T) {
	cat := testhelpers.GeologyCatalog(t)

	nq := Normalize("show me all areas that consider Volcanos terrain", cat)
	if strings.Contains(nq.Text, "Volcanos") || strings.Contains(nq.Text, "terrain ") {
		t.Errorf("misspellings not corrected: %q", nq.Text)
	}
	if !strings.Contains(nq.Text, "volcanic") {
		t.Errorf("volcanos not rewritten: %q", nq.Text)
	}
	if !strings.Contains(nq.Text, "terrane") {
		t.Errorf("terrain not rewritten: %q", nq.Text)
	}
}

func TestNormalize_WordBoundary(t *testing.T) {
	cat := testhelpers.GeologyCatalog(t)

	// "terrains" must not be partially corrupted by the "terrain" rule
	nq := Normalize("subterrainian", cat)
	if nq.Text != "subterrainian" {
		t.Errorf("partial-word correction happened: %q", nq.Text)
	}
}

func TestNormalize_SynonymAnnotation(t *testing.T) {
	cat := testhelpers.GeologyCatalog(t)

	nq := Normalize("show me all areas that consider Volcanos terrain", cat)
	if !strings.Contains(nq.Text, "areas (column: terrane)") {
		t.Errorf("areas not annotated: %q", nq.Text)
	}
	if !strings.Contains(nq.Text, "volcanic (column: litho_fmly)") {
		t.Errorf("volcanic not annotated: %q", nq.Text)
	}
	if len(nq.Annotations) == 0 {
		t.Error("no annotations recorded")
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	cat := testhelpers.GeologyCatalog(t)

	once := Normalize("show me all areas that consider Volcanos terrain", cat)
	twice := Normalize(once.Text, cat)
	if twice.Text != once.Text {
		t.Errorf("double annotation:\nonce:  %q\ntwice: %q", once.Text, twice.Text)
	}
}

func TestNormalize_NoHitsUnchanged(t *testing.T) {
	cat := testhelpers.GeologyCatalog(t)

	raw := "show gold deposits in riyadh and makkah regions"
	nq := Normalize(raw, cat)
	if nq.Text != raw {
		t.Errorf("text changed without synonym or misspelling hits: %q", nq.Text)
	}
}

func TestNormalize_RegionHints(t *testing.T) {
	cat := testhelpers.GeologyCatalog(t)

	nq := Normalize("show gold deposits in riyadh", cat)
	found := false
	for _, h := range nq.Hints {
		if strings.Contains(h, "Riyadh Region") {
			found = true
		}
	}
	if !found {
		t.Errorf("region hint missing: %v", nq.Hints)
	}
	if !strings.Contains(nq.PromptText(), "Riyadh Region") {
		t.Errorf("hint not in prompt text: %q", nq.PromptText())
	}

	// "region" already present, no hint needed
	nq = Normalize("show gold deposits in riyadh region", cat)
	for _, h := range nq.Hints {
		if strings.Contains(h, "REGION:") {
			t.Errorf("unnecessary region hint: %v", nq.Hints)
		}
	}
}

func TestNormalize_SemanticHint(t *testing.T) {
	cat := testhelpers.GeologyCatalog(t)

	nq := Normalize("show all mines", cat)
	found := false
	for _, h := range nq.Hints {
		if strings.Contains(h, "NO commodity filter") {
			found = true
		}
	}
	if !found {
		t.Errorf("semantic hint missing: %v", nq.Hints)
	}

	// commodity named, no hint
	nq = Normalize("show gold mines", cat)
	for _, h := range nq.Hints {
		if strings.Contains(h, "NO commodity filter") {
			t.Errorf("hint present despite commodity: %v", nq.Hints)
		}
	}
}
