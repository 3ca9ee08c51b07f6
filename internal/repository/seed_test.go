package repository

import (
	"encoding/json"
	"testing"
)

func TestSeedProducts_EmbeddedJSONIsValid(t *testing.T) {
	var seed []seedProduct
	if err := json.Unmarshal(productsJSON, &seed); err != nil {
		t.Fatalf("embedded productos.json does not decode: %v", err)
	}
	if len(seed) == 0 {
		t.Fatalf("seed catalog is empty")
	}

	for _, p := range seed {
		if p.ID == 0 {
			t.Fatalf("seed product without id: %+v", p)
		}
		if p.name() == "" {
			t.Fatalf("seed product %d has no name", p.ID)
		}
		if p.Category == "" {
			t.Fatalf("seed product %d has no category", p.ID)
		}
		if p.Price <= 0 {
			t.Fatalf("seed product %d has non-positive price", p.ID)
		}
	}
}

func TestSeedProduct_LegacyTitleFallback(t *testing.T) {
	p := seedProduct{Title: "Teclado legacy"}
	if p.name() != "Teclado legacy" {
		t.Fatalf("name() = %q, want legacy title", p.name())
	}

	p = seedProduct{Name: "Mouse", Title: "ignorado"}
	if p.name() != "Mouse" {
		t.Fatalf("name() = %q, nombre must win over titulo", p.name())
	}
}
