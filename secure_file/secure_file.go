package secure_file

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"voice-assistant/logging"
)

const (
	filePerm = 0o600

	// overwritePasses is the number of random-fill passes applied before a
	// file is removed
	overwritePasses = 3

	shredChunkSize = 32 * 1024
)

type lifecycleImpl struct {
	fileSys afero.Fs
	tempDir string

	mu      sync.Mutex
	tracked map[string]struct{}
}

type Config struct {
	FileSys afero.Fs
	TempDir string
}

func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.FileSys == nil {
		return nil, fmt.Errorf("filesystem is nil")
	}

	tempDir := cfg.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	if err := cfg.FileSys.MkdirAll(tempDir, 0o700); err != nil {
		return nil, fmt.Errorf("temp dir: %w", err)
	}

	return &lifecycleImpl{
		fileSys: cfg.FileSys,
		tempDir: tempDir,
		tracked: make(map[string]struct{}),
	}, nil
}

func (l *lifecycleImpl) Create(path string) (File, error) {
	f, err := l.fileSys.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, filePerm)
	if err != nil {
		return nil, fmt.Errorf("create secure file: %w", err)
	}

	if err := l.fileSys.Chmod(path, filePerm); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("restrict permissions: %w", err)
	}

	l.track(path)

	return f, nil
}

func (l *lifecycleImpl) Open(path string) (File, error) {
	f, err := l.fileSys.OpenFile(path, os.O_RDONLY, filePerm)
	if err != nil {
		return nil, fmt.Errorf("open secure file: %w", err)
	}

	return f, nil
}

func (l *lifecycleImpl) Shred(path string) error {
	defer l.untrack(path)

	info, err := l.fileSys.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat for shred: %w", err)
	}

	if err := l.overwrite(path, info.Size()); err != nil {
		// still remove; a partial overwrite beats leaving the file whole
		logging.SecurityEvent("shred-overwrite-failed", "error", err.Error())
	}

	if err := l.fileSys.Remove(path); err != nil {
		return fmt.Errorf("remove after shred: %w", err)
	}

	logging.SecurityEvent("file-shredded", "passes", overwritePasses)

	return nil
}

func (l *lifecycleImpl) WithTempFile(pattern string, fn func(f File) error) error {
	name := fmt.Sprintf("%s-%s", pattern, uuid.NewString())
	path := filepath.Join(l.tempDir, name)

	f, err := l.Create(path)
	if err != nil {
		return err
	}

	defer func() {
		if err := l.Shred(path); err != nil {
			logging.Errorw("failed to shred temp file", "error", err)
		}
	}()

	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}

	return nil
}

func (l *lifecycleImpl) ShredAll() error {
	l.mu.Lock()
	paths := make([]string, 0, len(l.tracked))
	for p := range l.tracked {
		paths = append(paths, p)
	}
	l.mu.Unlock()

	var firstErr error
	for _, p := range paths {
		if err := l.Shred(p); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// overwrite fills the file with fresh random bytes, syncing after each pass.
func (l *lifecycleImpl) overwrite(path string, size int64) error {
	if size == 0 {
		return nil
	}

	f, err := l.fileSys.OpenFile(path, os.O_WRONLY, filePerm)
	if err != nil {
		return err
	}
	defer f.Close()

	chunk := make([]byte, shredChunkSize)

	for pass := 0; pass < overwritePasses; pass++ {
		if _, err := f.Seek(0, 0); err != nil {
			return err
		}

		remaining := size
		for remaining > 0 {
			n := int64(len(chunk))
			if remaining < n {
				n = remaining
			}

			if _, err := rand.Read(chunk[:n]); err != nil {
				return err
			}

			if _, err := f.Write(chunk[:n]); err != nil {
				return err
			}

			remaining -= n
		}

		if err := f.Sync(); err != nil {
			return err
		}
	}

	return nil
}

func (l *lifecycleImpl) track(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.tracked[path] = struct{}{}
}

func (l *lifecycleImpl) untrack(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.tracked, path)
}
