package model

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Известные колонки CSV-инвентаря. Остальные колонки переносятся как есть.
const (
	FieldName          = "Name"
	FieldScryfallID    = "Scryfall ID"
	FieldFoil          = "Foil"
	FieldPurchasePrice = "Purchase price"

	// FieldFilename добавляется к строкам в ответах listing/search.
	FieldFilename = "filename"
)

// FoilToken — значение колонки Foil для фойловой версии карты (без учёта регистра).
const FoilToken = "foil"

// Row — строка инвентаря: имя колонки -> значение.
type Row map[string]string

// IsFoil сообщает, относится ли строка к фойловой версии карты.
func (r Row) IsFoil() bool {
	return strings.EqualFold(r[FieldFoil], FoilToken)
}

// Price возвращает цену покупки; пустое или нечисловое значение считается нулём.
func (r Row) Price() decimal.Decimal {
	v := strings.TrimSpace(r[FieldPurchasePrice])
	if v == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Clone возвращает независимую копию строки.
func (r Row) Clone() Row {
	c := make(Row, len(r)+1)
	for k, v := range r {
		c[k] = v
	}
	return c
}

// WithFilename возвращает копию строки, помеченную именем файла-источника.
func (r Row) WithFilename(name string) Row {
	c := r.Clone()
	c[FieldFilename] = name
	return c
}

// Inventory — содержимое одного CSV-файла: порядок колонок и строки.
type Inventory struct {
	Header []string
	Rows   []Row
}

// SortByPrice сортирует строки по убыванию цены. Сортировка стабильная:
// строки с равной ценой сохраняют исходный порядок.
func SortByPrice(rows []Row) {
	prices := make(map[int]decimal.Decimal, len(rows))
	idx := make([]int, len(rows))
	for i := range rows {
		idx[i] = i
		prices[i] = rows[i].Price()
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return prices[idx[a]].GreaterThan(prices[idx[b]])
	})
	sorted := make([]Row, len(rows))
	for i, j := range idx {
		sorted[i] = rows[j]
	}
	copy(rows, sorted)
}

// TopByPrice возвращает не более n самых дорогих строк, не изменяя исходный срез.
func TopByPrice(rows []Row, n int) []Row {
	out := make([]Row, len(rows))
	copy(out, rows)
	SortByPrice(out)
	if len(out) > n {
		out = out[:n]
	}
	return out
}
