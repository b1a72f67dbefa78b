package catalog

import (
	"strings"
	"testing"
)

func TestValidator_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		seed    *SeedFile
		wantErr string
	}{
		{
			name: "valid seed",
			seed: &SeedFile{Products: []SeedProduct{
				{ID: 1, Name: "Lamp", Price: "10.00"},
				{ID: 2, Name: "Desk", Price: "0"},
			}},
		},
		{name: "empty seed", seed: &SeedFile{}, wantErr: "at least one product"},
		{
			name:    "non-positive id",
			seed:    &SeedFile{Products: []SeedProduct{{ID: 0, Name: "Lamp", Price: "1"}}},
			wantErr: "id must be positive",
		},
		{
			name:    "missing name",
			seed:    &SeedFile{Products: []SeedProduct{{ID: 1, Name: "  ", Price: "1"}}},
			wantErr: "name is required",
		},
		{
			name:    "long name",
			seed:    &SeedFile{Products: []SeedProduct{{ID: 1, Name: strings.Repeat("a", 101), Price: "1"}}},
			wantErr: "at most 100",
		},
		{
			name:    "bad price",
			seed:    &SeedFile{Products: []SeedProduct{{ID: 1, Name: "Lamp", Price: "ten"}}},
			wantErr: "not a number",
		},
		{
			name:    "negative price",
			seed:    &SeedFile{Products: []SeedProduct{{ID: 1, Name: "Lamp", Price: "-1"}}},
			wantErr: "zero or positive",
		},
		{
			name:    "too precise price",
			seed:    &SeedFile{Products: []SeedProduct{{ID: 1, Name: "Lamp", Price: "1.001"}}},
			wantErr: "two decimal places",
		},
		{
			name: "duplicate id",
			seed: &SeedFile{Products: []SeedProduct{
				{ID: 1, Name: "Lamp", Price: "1"},
				{ID: 1, Name: "Desk", Price: "2"},
			}},
			wantErr: "duplicate product id",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			products, err := NewValidator().Validate(tt.seed)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(products) != len(tt.seed.Products) {
				t.Fatalf("expected %d products, got %d", len(tt.seed.Products), len(products))
			}
		})
	}
}
