package fs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// HomeEnv переопределяет каталог, где CLI хранит сессию.
const HomeEnv = "CARDVAULT_HOME"

// AuthFSStore — файловое хранилище cookie сессии для CLI.
// Файл лежит в <UserConfigDir>/CardVault либо в $CARDVAULT_HOME.
type AuthFSStore struct{}

func configDir() (string, error) {
	p := os.Getenv(HomeEnv)
	if p == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		p = filepath.Join(dir, "CardVault")
	}
	if err := os.MkdirAll(p, 0o700); err != nil {
		return "", err
	}
	return p, nil
}

func tokenPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "auth_token"), nil
}

// Save сохраняет токен в файл; пустой токен не сохраняется.
func (AuthFSStore) Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("empty token")
	}
	p, err := tokenPath()
	if err != nil {
		return err
	}
	return os.WriteFile(p, []byte(token+"\n"), 0o600)
}

// Path — путь к файлу токена.
func (AuthFSStore) Path() (string, error) { return tokenPath() }

// Load читает токен из файла.
func (AuthFSStore) Load() (string, error) {
	p, err := tokenPath()
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return "", err
	}
	// обрезаем завершающие переводы строки/пробелы
	tok := strings.TrimRight(string(b), " \t\r\n")
	if tok == "" {
		return "", errors.New("empty token file")
	}
	return tok, nil
}

// Clear удаляет файл токена. Отсутствие файла ошибкой не считается.
func (AuthFSStore) Clear() error {
	p, err := tokenPath()
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
