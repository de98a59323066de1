package bank

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"vocab-mocktest-service/internal/domain"
)

//go:embed sample_banks.json
var sampleBanksJSON []byte

// StaticLoader serves the embedded sample banks. It backs tests and demos and
// doubles as the fallback when the real backing store is unreachable.
type StaticLoader struct {
	banks map[string]domain.Bank
}

func NewStaticLoader() *StaticLoader {
	banks := make(map[string]domain.Bank)
	if err := json.Unmarshal(sampleBanksJSON, &banks); err != nil {
		// Embedded data is compiled in; failing to parse it is a build defect.
		panic(fmt.Sprintf("parse embedded sample banks: %v", err))
	}
	return &StaticLoader{banks: banks}
}

// NewStaticLoaderWith serves a caller-supplied bank map (useful for tests).
func NewStaticLoaderWith(banks map[string]domain.Bank) *StaticLoader {
	return &StaticLoader{banks: banks}
}

func (l *StaticLoader) LoadBank(_ context.Context, sourceID string) (domain.Bank, error) {
	if bank, ok := l.banks[sourceID]; ok {
		return bank, nil
	}
	return domain.Bank{}, domain.ErrBankNotFound
}
