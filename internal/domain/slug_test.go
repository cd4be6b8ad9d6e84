package domain

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Croissant", "croissant"},
		{"spaces", "Sea Salt Caramel", "sea-salt-caramel"},
		{"diacritics", "Crème Fraîche", "creme-fraiche"},
		{"punctuation runs", "Flour -- Bread (T65)", "flour-bread-t65"},
		{"leading trailing junk", "  *Rye*  ", "rye"},
		{"digits kept", "Levain 100%", "levain-100"},
		{"already slug", "almond-flour", "almond-flour"},
		{"empty", "", ""},
		{"only punctuation", "!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.in); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSlugifyStable(t *testing.T) {
	// Same name must always produce the same slug; slugs are the
	// identity that archives carry across databases.
	const name = "Pâte à Choux №2"
	first := Slugify(name)
	for i := 0; i < 10; i++ {
		if got := Slugify(name); got != first {
			t.Fatalf("Slugify not stable: %q then %q", first, got)
		}
	}
}

func TestSnapshotCode(t *testing.T) {
	if got := SnapshotCode("croissant", 3); got != "croissant-v3" {
		t.Errorf("SnapshotCode = %q, want %q", got, "croissant-v3")
	}
	if got := SnapshotCode("baguette", 10); got != "baguette-v10" {
		t.Errorf("SnapshotCode = %q, want %q", got, "baguette-v10")
	}
}
