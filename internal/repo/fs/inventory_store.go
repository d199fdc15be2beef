package fs

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"CardVault/internal/model"

	"github.com/google/uuid"
)

// Ext — расширение файлов инвентаря.
const Ext = ".csv"

var (
	// ErrNotFound — файла инвентаря нет в хранилище.
	ErrNotFound = errors.New("inventory file not found")
	// ErrInvalidName — имя файла не проходит проверку.
	ErrInvalidName = errors.New("invalid inventory name")
	// ErrMalformed — содержимое не является CSV с заголовком.
	ErrMalformed = errors.New("malformed inventory file")
)

var nameRe = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// FileName строит имя файла инвентаря по имени пользователя.
func FileName(user string) string {
	return user + Ext
}

// ValidateName проверяет, что имя безопасно для файловой системы.
func ValidateName(name string) error {
	if name == "" || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, Ext) || len(name) == len(Ext) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if !nameRe.MatchString(name) {
		return fmt.Errorf("%w: %q (allowed: letters, digits, . _ -)", ErrInvalidName, name)
	}
	return nil
}

// InventoryStore — каталог с CSV-файлами пользователей.
type InventoryStore struct {
	dir string
}

// NewInventoryStore создаёт хранилище поверх каталога dir.
func NewInventoryStore(dir string) *InventoryStore {
	return &InventoryStore{dir: dir}
}

// Dir возвращает каталог хранилища.
func (s *InventoryStore) Dir() string { return s.dir }

// EnsureReady создаёт каталог хранилища, если его ещё нет. Идемпотентна.
func (s *InventoryStore) EnsureReady() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create store dir %s: %w", s.dir, err)
	}
	return nil
}

// Path возвращает полный путь к файлу после проверки имени.
func (s *InventoryStore) Path(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name), nil
}

// List возвращает отсортированные имена CSV-файлов. Временные файлы пропускаются.
func (s *InventoryStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("scan store dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if ValidateName(e.Name()) != nil {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Exists сообщает, есть ли файл с таким именем.
func (s *InventoryStore) Exists(name string) (bool, error) {
	p, err := s.Path(name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Read читает файл целиком.
func (s *InventoryStore) Read(name string) (*model.Inventory, error) {
	p, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	inv, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return inv, nil
}

// Write заменяет содержимое файла. Запись идёт во временный файл с последующим
// переименованием, поэтому читатели видят либо старую, либо новую версию.
func (s *InventoryStore) Write(name string, inv *model.Inventory) error {
	p, err := s.Path(name)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, ".inv-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := encode(tmp, inv); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, p); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

// SaveUpload сохраняет загруженный файл под именем name. Содержимое сначала
// пишется во временный файл и проверяется на корректность CSV.
func (s *InventoryStore) SaveUpload(name string, r io.Reader) error {
	p, err := s.Path(name)
	if err != nil {
		return err
	}
	tmpPath := filepath.Join(s.dir, ".upload-"+uuid.NewString()+".tmp")
	tmp, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("save upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close upload file: %w", err)
	}

	if err := validateFile(tmpPath); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, p); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename upload to %s: %w", name, err)
	}
	return nil
}

// Delete удаляет файл.
func (s *InventoryStore) Delete(name string) error {
	p, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

func validateFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	inv, err := decode(f)
	if err != nil {
		return err
	}
	if len(inv.Header) == 0 {
		return fmt.Errorf("%w: missing header row", ErrMalformed)
	}
	return nil
}

// decode разбирает CSV с заголовком. Ячейки сверх заголовка получают ключи
// вида "_<index>", недостающие ячейки читаются как пустые строки.
func decode(r io.Reader) (*model.Inventory, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	inv := &model.Inventory{}
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return inv, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	inv.Header = header

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		row := make(model.Row, len(inv.Header))
		for i, col := range inv.Header {
			if i < len(rec) {
				row[col] = rec[i]
			} else {
				row[col] = ""
			}
		}
		for i := len(inv.Header); i < len(rec); i++ {
			key := "_" + strconv.Itoa(i)
			row[key] = rec[i]
			inv.Header = append(inv.Header, key)
		}
		inv.Rows = append(inv.Rows, row)
	}
	return inv, nil
}

// encode пишет заголовок и строки. Ключи строк, которых нет в заголовке,
// дописываются в конец заголовка в алфавитном порядке.
func encode(w io.Writer, inv *model.Inventory) error {
	header := append([]string(nil), inv.Header...)
	known := make(map[string]struct{}, len(header))
	for _, h := range header {
		known[h] = struct{}{}
	}
	var extra []string
	for _, row := range inv.Rows {
		for k := range row {
			if _, ok := known[k]; !ok {
				known[k] = struct{}{}
				extra = append(extra, k)
			}
		}
	}
	sort.Strings(extra)
	header = append(header, extra...)

	cw := csv.NewWriter(w)
	if len(header) > 0 {
		if err := cw.Write(header); err != nil {
			return err
		}
	}
	rec := make([]string, len(header))
	for _, row := range inv.Rows {
		for i, col := range header {
			rec[i] = row[col]
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
