package institution

import (
	"encoding/gob"
	"fmt"
	"os"
)

// loadGob deserializes an ordered entity list from a gob-encoded file.
func loadGob(path string) ([]Entity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gob file: %w", err)
	}
	defer f.Close()

	var entities []Entity
	if err := gob.NewDecoder(f).Decode(&entities); err != nil {
		return nil, fmt.Errorf("decode gob: %w", err)
	}
	return entities, nil
}

// SaveGob serializes entities, in order, to a gob-encoded file at path.
func SaveGob(entities []Entity, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create gob file: %w", err)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(entities); err != nil {
		return fmt.Errorf("encode gob: %w", err)
	}
	return nil
}
