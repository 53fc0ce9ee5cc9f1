package preferences

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	domainerrors "github.com/siralexgrey/yasno-zrozumilo/internal/domain/errors"
)

// Backend — одне місце зберігання знімка налаштувань.
type Backend interface {
	Load(ctx context.Context) (*Snapshot, error)
	Store(ctx context.Context, snapshot *Snapshot) error
	Name() string
}

// FileBackend зберігає знімок у локальному JSON-файлі. Це єдине джерело
// правди для запущеного процесу; запис іде через тимчасовий файл і rename.
type FileBackend struct {
	path string
}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

func (b *FileBackend) Name() string {
	return "file:" + b.path
}

func (b *FileBackend) Load(_ context.Context) (*Snapshot, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &domainerrors.ErrSnapshotNotFound{}
		}

		return nil, fmt.Errorf("помилка читання файлу налаштувань: %w", err)
	}

	return decodeSnapshot(data)
}

func (b *FileBackend) Store(_ context.Context, snapshot *Snapshot) error {
	data, err := encodeSnapshot(snapshot)
	if err != nil {
		return err
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("помилка створення каталогу даних: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(b.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("помилка створення тимчасового файлу: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return fmt.Errorf("помилка запису файлу налаштувань: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("помилка закриття тимчасового файлу: %w", err)
	}

	if err := os.Rename(tmp.Name(), b.path); err != nil {
		return fmt.Errorf("помилка заміни файлу налаштувань: %w", err)
	}

	return nil
}
