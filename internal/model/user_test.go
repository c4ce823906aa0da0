package model

import "testing"

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase domain", "test1@EXAMPLE.com", "test1@example.com"},
		{"upper local part kept", "TEST2@EXAMPLE.COM", "TEST2@example.com"},
		{"mixed", "Test3@exAMPLE.Com", "Test3@example.com"},
		{"already normal", "user@example.com", "user@example.com"},
		{"no at sign", "not-an-email", "not-an-email"},
		{"empty", "", ""},
		{"surrounding spaces", "  a@B.org ", "a@b.org"},
		{"last at wins", `"a@b"@EXAMPLE.com`, `"a@b"@example.com`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := NormalizeEmail(tt.input); got != tt.want {
				t.Errorf("NormalizeEmail(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCatalogKind_IsValid(t *testing.T) {
	t.Parallel()

	if !KindTag.IsValid() || !KindIngredient.IsValid() {
		t.Error("known kinds should be valid")
	}
	if CatalogKind("recipe").IsValid() {
		t.Error("unknown kind should be invalid")
	}
}

func TestRecipe_Items(t *testing.T) {
	t.Parallel()

	r := &Recipe{}
	r.SetItems(KindTag, []*CatalogItem{{ID: 1, Name: "Vegan"}})
	r.SetItems(KindIngredient, []*CatalogItem{{ID: 2, Name: "Salt"}, {ID: 3, Name: "Kale"}})

	if got := len(r.Items(KindTag)); got != 1 {
		t.Errorf("tags = %d, want 1", got)
	}
	if got := len(r.Items(KindIngredient)); got != 2 {
		t.Errorf("ingredients = %d, want 2", got)
	}
}
