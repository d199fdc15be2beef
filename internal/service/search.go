package service

import (
	"CardVault/internal/model"
	"CardVault/internal/repo/fs"
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ListLimit — сколько самых дорогих строк каждого файла попадает в листинг.
const ListLimit = 10

// RowReader — чтение файлов инвентаря.
type RowReader interface {
	List() ([]string, error)
	Read(name string) (*model.Inventory, error)
}

// SearchService отвечает за листинг и поиск по файлам инвентаря.
type SearchService struct {
	store  RowReader
	logger *zap.SugaredLogger
}

// NewSearchService создаёт сервис поиска.
func NewSearchService(store RowReader, logger *zap.SugaredLogger) *SearchService {
	return &SearchService{store: store, logger: logger}
}

// ListTop возвращает до ListLimit самых дорогих строк каждого файла,
// помеченных именем файла. Файлы идут в алфавитном порядке.
func (s *SearchService) ListTop(ctx context.Context) ([]model.Row, error) {
	names, err := s.store.List()
	if err != nil {
		return nil, err
	}

	parts := make([][]model.Row, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			inv, err := s.store.Read(name)
			if err != nil {
				return err
			}
			top := model.TopByPrice(inv.Rows, ListLimit)
			tagged := make([]model.Row, len(top))
			for j, row := range top {
				tagged[j] = row.WithFilename(name)
			}
			parts[i] = tagged
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]model.Row, 0, len(names)*ListLimit)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out, nil
}

// SearchExact ищет строки, у которых имя без учёта регистра совпадает
// с одним из terms. filename задаётся без расширения; пустой — все файлы.
func (s *SearchService) SearchExact(ctx context.Context, terms []string, filename string) ([]model.Row, error) {
	fold := cases.Lower(language.Und)
	want := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		want[fold.String(t)] = struct{}{}
	}
	return s.search(ctx, filename, func(name string) bool {
		_, ok := want[fold.String(name)]
		return ok
	})
}

// SearchSubstring ищет строки, имя которых содержит query без учёта регистра.
func (s *SearchService) SearchSubstring(ctx context.Context, query, filename string) ([]model.Row, error) {
	fold := cases.Lower(language.Und)
	q := fold.String(query)
	return s.search(ctx, filename, func(name string) bool {
		return strings.Contains(fold.String(name), q)
	})
}

func (s *SearchService) search(ctx context.Context, filename string, match func(name string) bool) ([]model.Row, error) {
	names, err := s.targets(filename)
	if err != nil {
		return nil, err
	}

	var out []model.Row
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		inv, err := s.store.Read(name)
		if err != nil {
			return nil, err
		}
		for _, row := range inv.Rows {
			if match(row[model.FieldName]) {
				out = append(out, row.WithFilename(name))
			}
		}
	}
	model.SortByPrice(out)
	s.logger.Debugw("Search done", "files", len(names), "matches", len(out))
	if out == nil {
		out = []model.Row{}
	}
	return out, nil
}

func (s *SearchService) targets(filename string) ([]string, error) {
	if filename == "" {
		return s.store.List()
	}
	name := fs.FileName(filename)
	if err := fs.ValidateName(name); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return []string{name}, nil
}
