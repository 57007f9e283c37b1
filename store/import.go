package store

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"

	"hisaabpos/domain"
)

// DecodeProducts reads a JSON array, NDJSON, or a single JSON object of products
func DecodeProducts(b []byte) ([]domain.Product, error) {
	btrim := bytes.TrimSpace(b)
	if len(btrim) == 0 {
		return nil, errors.New("empty file")
	}

	var products []domain.Product

	// JSON array
	if btrim[0] == '[' {
		if err := json.Unmarshal(btrim, &products); err != nil {
			return nil, err
		}
		return products, nil
	}

	// NDJSON or single JSON object
	scanner := bufio.NewScanner(bytes.NewReader(btrim))
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var p domain.Product
		if err := json.Unmarshal(line, &p); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

// Seed numbers products without an id after the highest given id, keeping file order,
// and bulk imports them
func (s *InMemoryStore) Seed(ctx context.Context, products []domain.Product) error {
	var max int64
	for _, p := range products {
		if p.ID > max {
			max = p.ID
		}
	}
	numbered := make([]domain.Product, len(products))
	for i, p := range products {
		if p.ID == 0 {
			max++
			p.ID = max
		}
		numbered[i] = p
	}
	return s.BulkImport(ctx, numbered)
}

// SeedFile loads products from path into the store
func (s *InMemoryStore) SeedFile(ctx context.Context, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	products, err := DecodeProducts(b)
	if err != nil {
		return err
	}
	return s.Seed(ctx, products)
}
