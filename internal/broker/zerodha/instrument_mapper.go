package zerodha

import (
	"fmt"
	"sort"
	"sync"
)

// instrumentMapper maps trading symbols to Kite instrument tokens and back.
type instrumentMapper struct {
	symbolToToken map[string]uint32
	tokenToSymbol map[uint32]string
	mu            sync.RWMutex
}

// newInstrumentMapper builds the mapping for universe from the configured
// tokens. Every symbol must have a token.
func newInstrumentMapper(universe []string, tokens map[string]uint32) (*instrumentMapper, error) {
	im := &instrumentMapper{
		symbolToToken: make(map[string]uint32, len(universe)),
		tokenToSymbol: make(map[uint32]string, len(universe)),
	}
	for _, sym := range universe {
		tok, ok := tokens[sym]
		if !ok || tok == 0 {
			return nil, fmt.Errorf("no instrument token configured for %s", sym)
		}
		if other, dup := im.tokenToSymbol[tok]; dup {
			return nil, fmt.Errorf("instrument token %d mapped to both %s and %s", tok, other, sym)
		}
		im.symbolToToken[sym] = tok
		im.tokenToSymbol[tok] = sym
	}
	return im, nil
}

func (im *instrumentMapper) getToken(symbol string) (uint32, bool) {
	im.mu.RLock()
	defer im.mu.RUnlock()
	token, ok := im.symbolToToken[symbol]
	return token, ok
}

func (im *instrumentMapper) getSymbol(token uint32) string {
	im.mu.RLock()
	defer im.mu.RUnlock()
	return im.tokenToSymbol[token]
}

// getAllTokens returns every token in ascending order.
func (im *instrumentMapper) getAllTokens() []uint32 {
	im.mu.RLock()
	defer im.mu.RUnlock()

	tokens := make([]uint32, 0, len(im.tokenToSymbol))
	for token := range im.tokenToSymbol {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i] < tokens[j] })
	return tokens
}
