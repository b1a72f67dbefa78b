// Package catalog resolves products for carts and seeds the product table.
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML document listing the products offered by the store.
//
//	products:
//	  - id: 1
//	    name: Desk Lamp
//	    price: "19.99"
type SeedFile struct {
	Products []SeedProduct `yaml:"products"`
}

type SeedProduct struct {
	ID          int64  `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Category    string `yaml:"category"`
	Price       string `yaml:"price"`
}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse decodes a seed document. Unknown keys are rejected so that a typo
// such as "prise" does not silently seed a zero price.
func (p *Parser) Parse(content []byte) (*SeedFile, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)

	var seed SeedFile
	if err := decoder.Decode(&seed); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("seed file is empty")
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &seed, nil
}
