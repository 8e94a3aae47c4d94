package product

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// A Header is the keyword/value part of a FITS HDU. Keys are held upper
// case; values are whatever the FITS card held (string, bool, integer
// or float types).
type Header struct {
	keys  []string
	cards map[string]interface{}
}

// NewHeader builds a header from a map, mostly for tests. Key order is not preserved.
func NewHeader(kv map[string]interface{}) Header {
	h := Header{cards: map[string]interface{}{}}
	for k, v := range kv {
		h.Set(k, v)
	}
	return h
}

func (h *Header) Set(key string, val interface{}) {
	if h.cards == nil {
		h.cards = map[string]interface{}{}
	}
	key = strings.ToUpper(strings.TrimSpace(key))
	if _, exists := h.cards[key]; !exists {
		h.keys = append(h.keys, key)
	}
	h.cards[key] = val
}

func (h Header) Has(key string) bool {
	_, exists := h.cards[strings.ToUpper(key)]
	return exists
}

func (h Header) Keys() []string { return append([]string{}, h.keys...) }
func (h Header) Len() int       { return len(h.keys) }

func (h Header) Clone() Header {
	h2 := Header{cards: map[string]interface{}{}}
	for _, k := range h.keys {
		h2.Set(k, h.cards[k])
	}
	return h2
}

// Float returns a numeric card as a float64. Strings holding a number
// are accepted, since some writers quote them.
func (h Header) Float(key string) (float64, bool) {
	v, exists := h.cards[strings.ToUpper(key)]
	if !exists {
		return math.NaN(), false
	}

	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f, true
		}
	}

	return math.NaN(), false
}

func (h Header) FloatOr(key string, def float64) float64 {
	if f, ok := h.Float(key); ok {
		return f
	}
	return def
}

func (h Header) Int(key string) (int, bool) {
	f, ok := h.Float(key)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// Str returns a string card, trimmed of the padding FITS adds.
func (h Header) Str(key string) (string, bool) {
	v, exists := h.cards[strings.ToUpper(key)]
	if !exists {
		return "", false
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s), true
	}
	return fmt.Sprintf("%v", v), true
}

func (h Header) StrOr(key, def string) string {
	if s, ok := h.Str(key); ok {
		return s
	}
	return def
}

func (h Header) String() string {
	str := ""
	for _, k := range h.keys {
		str += fmt.Sprintf("%-8s= %v\n", k, h.cards[k])
	}
	return str
}
