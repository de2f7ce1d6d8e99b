package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// CredentialStore 设备本地凭证存储：bearer token、用户名、管理员标志。
// Clear 必须把三项作为一个整体清除
type CredentialStore interface {
	Token() (string, error)
	SetToken(token string) error
	Username() (string, error)
	SetUsername(username string) error
	IsAdmin() (bool, error)
	SetIsAdmin(isAdmin bool) error
	Clear() error
}

// 存储键，与历史版本的移动端保持一致
const (
	keyToken    = "auth_token"
	keyIsAdmin  = "is_admin"
	keyUsername = "username"
)

// FileStore 文件后端的凭证存储。单个 JSON 文件，0600 权限，
// 写入时先写临时文件再 rename，避免中途崩溃留下半个文件
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore 创建文件凭证存储，按需创建父目录
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("credential store path must not be empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create credential store directory: %w", err)
		}
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Token() (string, error) {
	return s.get(keyToken)
}

func (s *FileStore) SetToken(token string) error {
	return s.set(keyToken, token)
}

func (s *FileStore) Username() (string, error) {
	return s.get(keyUsername)
}

func (s *FileStore) SetUsername(username string) error {
	return s.set(keyUsername, username)
}

// IsAdmin 读管理员标志。历史上写入方不统一，"true"、"1"、"yes" 都算 true
func (s *FileStore) IsAdmin() (bool, error) {
	value, err := s.get(keyIsAdmin)
	if err != nil {
		return false, err
	}
	return value == "true" || value == "1" || value == "yes", nil
}

func (s *FileStore) SetIsAdmin(isAdmin bool) error {
	return s.set(keyIsAdmin, strconv.FormatBool(isAdmin))
}

// Clear 原子清除全部凭证（登出）
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear credential store: %w", err)
	}
	return nil
}

func (s *FileStore) get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.read()
	if err != nil {
		return "", err
	}
	return entries[key], nil
}

func (s *FileStore) set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.read()
	if err != nil {
		return err
	}
	entries[key] = value
	return s.write(entries)
}

func (s *FileStore) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read credential store: %w", err)
	}

	entries := map[string]string{}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse credential store: %w", err)
	}
	return entries, nil
}

func (s *FileStore) write(entries map[string]string) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode credential store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write credential store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace credential store: %w", err)
	}
	return nil
}
