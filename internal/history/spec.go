package history

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rxtech-lab/mtsim/internal/types"
	"github.com/rxtech-lab/mtsim/pkg/errors"
)

// LoadSymbolSpec reads a symbol's captured specification from the store.
func (s *Store) LoadSymbolSpec(symbol string) (types.SymbolInfo, error) {
	data, err := os.ReadFile(SpecPath(s.root, symbol))
	if err != nil {
		if os.IsNotExist(err) {
			return types.SymbolInfo{}, errors.Newf(errors.ErrCodeSpecNotFound,
				"no captured specification for symbol %s", symbol)
		}

		return types.SymbolInfo{}, errors.Wrapf(errors.ErrCodeStoreUnavailable, err,
			"failed to read specification for symbol %s", symbol)
	}

	var spec types.SymbolInfo
	if err := json.Unmarshal(data, &spec); err != nil {
		return types.SymbolInfo{}, errors.Wrapf(errors.ErrCodeParseFailed, err,
			"failed to parse specification for symbol %s", symbol)
	}

	return spec, nil
}

// SaveSymbolSpec writes a symbol's specification to the store, creating the
// Symbols directory on first use. The downloader captures specs so the
// tester can replay without a terminal connection.
func (s *Store) SaveSymbolSpec(spec types.SymbolInfo) error {
	if spec.Name == "" {
		return errors.New(errors.ErrCodeInvalidParameter, "symbol specification has no name")
	}

	path := SpecPath(s.root, spec.Name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to create symbols directory", err)
	}

	data, err := json.MarshalIndent(spec, "", "  ")
	if err != nil {
		return errors.Wrapf(errors.ErrCodeWriteFailed, err,
			"failed to encode specification for symbol %s", spec.Name)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(errors.ErrCodeWriteFailed, err,
			"failed to write specification for symbol %s", spec.Name)
	}

	return nil
}
