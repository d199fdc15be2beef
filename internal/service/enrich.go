package service

import (
	"CardVault/internal/catalog"
	"CardVault/internal/model"
	"context"
	"fmt"

	"go.uber.org/zap"
)

// InventoryStore — операции с файлами инвентаря, нужные сервисам.
type InventoryStore interface {
	List() ([]string, error)
	Read(name string) (*model.Inventory, error)
	Write(name string, inv *model.Inventory) error
}

// CatalogLoader загружает текущий справочник цен.
type CatalogLoader func(ctx context.Context) (*catalog.Index, error)

// FileCatalog возвращает загрузчик справочника из файла path.
func FileCatalog(path, currency string) CatalogLoader {
	return func(ctx context.Context) (*catalog.Index, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return catalog.Load(path, currency)
	}
}

// EnrichSummary — итог обогащения всех файлов.
type EnrichSummary struct {
	Cards   int // карт в справочнике
	Files   int // обработано файлов
	Failed  int // файлов с ошибкой
	Updated int // строк, получивших новую цену
}

// EnrichService подставляет цены из справочника в файлы инвентаря.
type EnrichService struct {
	store  InventoryStore
	locks  *FileLocks
	load   CatalogLoader
	logger *zap.SugaredLogger
}

// NewEnrichService создаёт сервис обогащения.
func NewEnrichService(store InventoryStore, locks *FileLocks, load CatalogLoader, logger *zap.SugaredLogger) *EnrichService {
	if locks == nil {
		locks = NewFileLocks()
	}
	return &EnrichService{store: store, locks: locks, load: load, logger: logger}
}

// EnrichFile загружает справочник и обогащает один файл. Возвращает число
// строк, у которых изменилась цена.
func (s *EnrichService) EnrichFile(ctx context.Context, name string) (int, error) {
	idx, err := s.load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load catalog: %w", err)
	}
	return s.enrichWith(ctx, idx, name)
}

// EnrichAll загружает справочник один раз и обогащает каждый файл хранилища.
// Ошибка отдельного файла пишется в лог и не прерывает проход.
func (s *EnrichService) EnrichAll(ctx context.Context) (EnrichSummary, error) {
	var sum EnrichSummary
	idx, err := s.load(ctx)
	if err != nil {
		return sum, fmt.Errorf("load catalog: %w", err)
	}
	sum.Cards = idx.Len()

	names, err := s.store.List()
	if err != nil {
		return sum, err
	}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Files++
		n, err := s.enrichWith(ctx, idx, name)
		if err != nil {
			sum.Failed++
			s.logger.Warnw("Enrich: file failed", "file", name, "error", err)
			continue
		}
		sum.Updated += n
	}
	s.logger.Infow("Enrich: all files processed",
		"files", sum.Files,
		"failed", sum.Failed,
		"updated_rows", sum.Updated,
		"cards", sum.Cards,
	)
	return sum, nil
}

func (s *EnrichService) enrichWith(ctx context.Context, idx *catalog.Index, name string) (int, error) {
	unlock := s.locks.Lock(name)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	inv, err := s.store.Read(name)
	if err != nil {
		return 0, err
	}
	n := ApplyPrices(inv.Rows, idx)
	model.SortByPrice(inv.Rows)
	if err := s.store.Write(name, inv); err != nil {
		return 0, err
	}
	s.logger.Debugw("Enrich: file updated", "file", name, "rows", len(inv.Rows), "updated_rows", n)
	return n, nil
}

// ApplyPrices переписывает цену покупки у строк, для которых в справочнике
// есть карта с тем же Scryfall ID и непустой ценой нужной версии.
// Возвращает число строк, у которых значение поменялось.
func ApplyPrices(rows []model.Row, idx *catalog.Index) int {
	changed := 0
	for _, row := range rows {
		prices, ok := idx.Lookup(row[model.FieldScryfallID])
		if !ok {
			continue
		}
		price := prices.For(row.IsFoil())
		if price == "" {
			continue
		}
		if row[model.FieldPurchasePrice] != price {
			changed++
		}
		row[model.FieldPurchasePrice] = price
	}
	return changed
}
