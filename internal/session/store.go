// Package session содержит долговременное клиентское хранилище сессии:
// токен доступа и кэшированные поля профиля для отображения.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Profile — кэшированные поля профиля пользователя. Могут устаревать
// относительно сервера до повторного входа или явного обновления.
type Profile struct {
	Name  string `json:"usuario_nombre"`
	Email string `json:"usuario_email"`
}

type state struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	Profile
}

// Store хранит учётные данные сессии в файле и отражает каждую запись
// на диск немедленно. Наличие токена служит признаком аутентификации.
type Store struct {
	path string
	s    state
}

// New открывает хранилище сессии по указанному пути. Отсутствующий файл
// означает анонимную сессию и не является ошибкой.
func New(path string) (*Store, error) {
	st := &Store{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return st, nil
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}

	if err := json.Unmarshal(data, &st.s); err != nil {
		return nil, fmt.Errorf("decode session file: %w", err)
	}

	return st, nil
}

// DefaultPath возвращает путь файла сессии в каталоге конфигурации пользователя.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("user config dir: %w", err)
	}
	return filepath.Join(dir, "tienda", "session.json"), nil
}

// SetCredential сохраняет токен и профиль после успешного входа.
func (st *Store) SetCredential(token, tokenType string, p Profile) error {
	st.s = state{Token: token, TokenType: tokenType, Profile: p}
	return st.persist()
}

// SetProfile обновляет кэшированный профиль, не трогая токен.
func (st *Store) SetProfile(p Profile) error {
	st.s.Profile = p
	return st.persist()
}

// Token возвращает сохранённый токен доступа и признак его наличия.
func (st *Store) Token() (string, bool) {
	return st.s.Token, st.s.Token != ""
}

// IsAuthenticated сообщает, есть ли в хранилище учётные данные.
func (st *Store) IsAuthenticated() bool {
	return st.s.Token != ""
}

// GetProfile возвращает кэшированный профиль.
func (st *Store) GetProfile() Profile {
	return st.s.Profile
}

// Clear удаляет токен и профиль вместе с файлом сессии.
func (st *Store) Clear() error {
	st.s = state{}

	if err := os.Remove(st.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

func (st *Store) persist() error {
	if err := os.MkdirAll(filepath.Dir(st.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	data, err := json.Marshal(st.s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	tmp := st.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}

	if err := os.Rename(tmp, st.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}

	return nil
}
