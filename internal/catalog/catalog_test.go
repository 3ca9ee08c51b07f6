package catalog

import "testing"

func sampleProducts() []Product {
	return []Product{
		{ID: 1, Name: "Mouse", Description: "Mouse inalámbrico", Category: "Periféricos", Stock: 5},
		{ID: 2, Name: "Teclado", Description: "Teclado mecánico", Category: "Periféricos", Stock: 3},
		{ID: 3, Name: "ADA Widget", Description: "Accesorio", Category: "Electrónica", Stock: 10},
	}
}

func TestFilter_EmptyQueryAllCategories(t *testing.T) {
	products := sampleProducts()

	got := Filter(products, "", AllCategories)
	if len(got) != len(products) {
		t.Fatalf("filtered = %d products, want %d", len(got), len(products))
	}
}

func TestFilter_CaseInsensitiveQuery(t *testing.T) {
	got := Filter(sampleProducts(), "ada", AllCategories)

	if len(got) != 1 || got[0].ID != 3 {
		t.Fatalf("query 'ada' must match 'ADA Widget', got %+v", got)
	}
}

func TestFilter_QueryMatchesNameDescriptionCategory(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []int64
	}{
		{name: "by name", query: "mo", want: []int64{1}},
		{name: "by description", query: "mecánico", want: []int64{2}},
		{name: "by category", query: "periféricos", want: []int64{1, 2}},
		{name: "no match", query: "zzz", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(sampleProducts(), tt.query, AllCategories)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d products, want %d", len(got), len(tt.want))
			}
			for i, p := range got {
				if p.ID != tt.want[i] {
					t.Fatalf("got[%d].ID = %d, want %d", i, p.ID, tt.want[i])
				}
			}
		})
	}
}

func TestFilter_CategoryAndQueryAreANDed(t *testing.T) {
	got := Filter(sampleProducts(), "teclado", "Periféricos")
	if len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("expected only product 2, got %+v", got)
	}

	got = Filter(sampleProducts(), "teclado", "Electrónica")
	if len(got) != 0 {
		t.Fatalf("expected no products, got %+v", got)
	}
}

func TestFilter_CategoryCaseInsensitive(t *testing.T) {
	got := Filter(sampleProducts(), "", "periféricos")
	if len(got) != 2 {
		t.Fatalf("expected 2 products, got %d", len(got))
	}
}

func TestFilter_IsSubsetOfInput(t *testing.T) {
	products := sampleProducts()
	got := Filter(products, "o", "Periféricos")

	ids := make(map[int64]struct{}, len(products))
	for _, p := range products {
		ids[p.ID] = struct{}{}
	}
	for _, p := range got {
		if _, ok := ids[p.ID]; !ok {
			t.Fatalf("filtered product %d is not in the input list", p.ID)
		}
	}
}

func TestNormalize_LegacyTitle(t *testing.T) {
	raw := []RawProduct{
		{ID: 1, Name: "Mouse"},
		{ID: 2, Title: "Teclado legacy"},
		{ID: 3, Name: "Monitor", Title: "ignorado"},
	}

	got := Normalize(raw)

	want := []string{"Mouse", "Teclado legacy", "Monitor"}
	for i, p := range got {
		if p.Name != want[i] {
			t.Fatalf("got[%d].Name = %q, want %q", i, p.Name, want[i])
		}
	}
}

func TestCategories_UniqueSorted(t *testing.T) {
	products := []Product{
		{Category: "Periféricos"},
		{Category: "Electrónica"},
		{Category: "periféricos"},
		{Category: ""},
	}

	got := Categories(products)
	if len(got) != 2 {
		t.Fatalf("categories = %v, want 2 unique entries", got)
	}
	if got[0] != "Electrónica" || got[1] != "Periféricos" {
		t.Fatalf("categories = %v, want sorted [Electrónica Periféricos]", got)
	}
}
