// Package catalog загружает справочник цен (bulk-выгрузку Scryfall) в память.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultCurrency — валюта цен по умолчанию.
const DefaultCurrency = "eur"

// ErrMalformed — файл справочника не является JSON-массивом карточек.
var ErrMalformed = errors.New("malformed catalog")

// Prices — цены одной карты в выбранной валюте. Пустая строка означает отсутствие цены.
type Prices struct {
	Plain string
	Foil  string
}

// For возвращает цену для нужной версии карты.
func (p Prices) For(foil bool) string {
	if foil {
		return p.Foil
	}
	return p.Plain
}

// Index — карточки справочника по Scryfall ID.
type Index struct {
	currency string
	byID     map[string]Prices
}

// NewIndex создаёт индекс из готовых данных.
func NewIndex(currency string, prices map[string]Prices) *Index {
	if prices == nil {
		prices = map[string]Prices{}
	}
	return &Index{currency: currency, byID: prices}
}

// Lookup ищет карту по точному совпадению идентификатора.
func (i *Index) Lookup(id string) (Prices, bool) {
	p, ok := i.byID[id]
	return p, ok
}

// Len — количество карт в индексе.
func (i *Index) Len() int { return len(i.byID) }

// Currency — валюта, по которой построен индекс.
func (i *Index) Currency() string { return i.currency }

type cardRecord struct {
	ID     string             `json:"id"`
	Prices map[string]*string `json:"prices"`
}

// Load читает справочник из файла.
func Load(path, currency string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Decode(f, currency)
}

// Decode потоково разбирает JSON-массив карточек. В памяти остаются только
// идентификатор и две цены в валюте currency (обычная и foil).
// При повторе идентификатора побеждает первая запись.
func Decode(r io.Reader, currency string) (*Index, error) {
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	foilKey := currency + "_foil"

	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, fmt.Errorf("%w: expected array, got %v", ErrMalformed, tok)
	}

	idx := NewIndex(currency, make(map[string]Prices, 1024))
	for dec.More() {
		var rec cardRecord
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("%w: card #%d: %v", ErrMalformed, idx.Len(), err)
		}
		if rec.ID == "" {
			continue
		}
		if _, dup := idx.byID[rec.ID]; dup {
			continue
		}
		idx.byID[rec.ID] = Prices{
			Plain: deref(rec.Prices[currency]),
			Foil:  deref(rec.Prices[foilKey]),
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return idx, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
