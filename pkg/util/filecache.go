// FileCache serves source bytes from memory-mapped files.
//
// The scanner reads every unit through one cache for the duration of a run.
// Parsing and text extraction slice the mapped region directly, and every
// string handed out of a run is a copy, so Close can unmap once the run's
// results are built.
//
// Limits:
//   - MaxFiles bounds open descriptors
//   - MaxMemoryMB bounds mapped address space, not resident memory
//
// When mmap fails the file is read with os.ReadFile instead.
package util

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/edsrzf/mmap-go"
)

// FileCache provides read access to source files through memory maps.
//
// Safe for concurrent use.
type FileCache interface {
	// Get returns the mapped file, loading it on first access.
	Get(filePath string) (*MappedFile, error)

	// Read returns the file contents. The slice aliases the mapping and is
	// valid until Invalidate or Close.
	Read(filePath string) ([]byte, error)

	// FetchCode returns the text between two byte offsets. (0,0) returns the
	// whole file.
	FetchCode(filePath string, startByte, endByte uint32) (string, error)

	// Invalidate unmaps one file so the next Get reloads it from disk.
	Invalidate(filePath string) error

	Size() int
	Stats() FileCacheStats

	// Close unmaps every file.
	Close() error
}

// FileCacheConfig controls FileCache limits.
type FileCacheConfig struct {
	// MaxFiles caps cached files. 0 is unlimited.
	MaxFiles int
	// MaxMemoryMB caps mapped size. 0 is unlimited.
	MaxMemoryMB   int
	EnableMetrics bool
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultFileCacheConfig suits a front-end monorepo: 10K files, 2GB mapped.
func DefaultFileCacheConfig() *FileCacheConfig {
	return &FileCacheConfig{
		MaxFiles:      10000,
		MaxMemoryMB:   2048,
		EnableMetrics: true,
	}
}

// UnboundedFileCacheConfig disables both limits.
func UnboundedFileCacheConfig() *FileCacheConfig {
	return &FileCacheConfig{EnableMetrics: true}
}

// MappedFile is one cached file.
type MappedFile struct {
	Path string
	// Data is nil for empty files.
	Data mmap.MMap
	// File is nil for entries read through the fallback.
	File     *os.File
	Size     int64
	MappedAt time.Time

	fallback bool
}

// FileCacheStats tracks cache counters.
type FileCacheStats struct {
	FilesLoaded   int64
	FilesCached   int
	CacheHits     int64
	CacheMisses   int64
	MmapFailures  int64
	Invalidations int64
	TotalMappedMB float64
}

// NewFileCache creates a FileCache. A nil config uses DefaultFileCacheConfig().
func NewFileCache(config *FileCacheConfig) FileCache {
	if config == nil {
		config = DefaultFileCacheConfig()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &fileCacheImpl{
		config: config,
		logger: logger,
		cache:  make(map[string]*MappedFile),
	}
}

type fileCacheImpl struct {
	config *FileCacheConfig
	logger *slog.Logger

	// mu guards cache; statsMu guards stats so counter updates never wait
	// on a load.
	cache map[string]*MappedFile
	mu    sync.RWMutex

	stats   FileCacheStats
	statsMu sync.Mutex
}

func (fc *fileCacheImpl) Get(filePath string) (*MappedFile, error) {
	fc.mu.RLock()
	mf, ok := fc.cache[filePath]
	fc.mu.RUnlock()
	if ok {
		fc.record(func(s *FileCacheStats) { s.CacheHits++ })
		return mf, nil
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()
	if mf, ok := fc.cache[filePath]; ok {
		fc.record(func(s *FileCacheStats) { s.CacheHits++ })
		return mf, nil
	}
	fc.record(func(s *FileCacheStats) { s.CacheMisses++ })

	var fileSize int64
	if fc.config.MaxMemoryMB > 0 {
		stat, err := os.Stat(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to stat file %q: %w", filePath, err)
		}
		fileSize = stat.Size()
	}
	if err := fc.checkLimitsLocked(fileSize); err != nil {
		return nil, err
	}

	mf, err := fc.load(filePath)
	if err != nil {
		return nil, err
	}
	fc.cache[filePath] = mf
	fc.record(func(s *FileCacheStats) { s.FilesLoaded++ })
	return mf, nil
}

func (fc *fileCacheImpl) Read(filePath string) ([]byte, error) {
	mf, err := fc.Get(filePath)
	if err != nil {
		return nil, err
	}
	if mf.Data == nil {
		return []byte{}, nil
	}
	return mf.Data, nil
}

func (fc *fileCacheImpl) checkLimitsLocked(newFileSize int64) error {
	if fc.config.MaxFiles > 0 && len(fc.cache) >= fc.config.MaxFiles {
		return fmt.Errorf("file cache limit reached: %d files (limit: %d)",
			len(fc.cache), fc.config.MaxFiles)
	}
	if fc.config.MaxMemoryMB > 0 && newFileSize > 0 {
		currentMB := fc.totalMappedMBLocked()
		newMB := float64(newFileSize) / (1024 * 1024)
		if currentMB+newMB >= float64(fc.config.MaxMemoryMB) {
			return fmt.Errorf("file cache memory limit reached: %.2f MB + %.2f MB (limit: %d MB)",
				currentMB, newMB, fc.config.MaxMemoryMB)
		}
	}
	return nil
}

func (fc *fileCacheImpl) load(filePath string) (*MappedFile, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %q: %w", filePath, err)
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file %q: %w", filePath, err)
	}

	// Zero-length files cannot be mapped.
	if stat.Size() == 0 {
		return &MappedFile{Path: filePath, File: file, MappedAt: time.Now()}, nil
	}

	data, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		fc.logger.Warn("mmap failed, using fallback", "file", filePath, "size", stat.Size(), "error", err)
		file.Close()
		buf, readErr := os.ReadFile(filePath)
		if readErr != nil {
			return nil, fmt.Errorf("failed to read %q after mmap error %v: %w", filePath, err, readErr)
		}
		fc.record(func(s *FileCacheStats) { s.MmapFailures++ })
		return &MappedFile{
			Path:     filePath,
			Data:     mmap.MMap(buf),
			Size:     int64(len(buf)),
			MappedAt: time.Now(),
			fallback: true,
		}, nil
	}

	return &MappedFile{
		Path:     filePath,
		Data:     data,
		File:     file,
		Size:     stat.Size(),
		MappedAt: time.Now(),
	}, nil
}

func (fc *fileCacheImpl) FetchCode(filePath string, startByte, endByte uint32) (string, error) {
	mf, err := fc.Get(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to get file %q: %w", filePath, err)
	}
	if len(mf.Data) == 0 {
		return "", nil
	}

	if startByte == 0 && endByte == 0 {
		endByte = uint32(len(mf.Data))
	} else if endByte <= startByte {
		return "", fmt.Errorf("invalid byte range: endByte (%d) <= startByte (%d)", endByte, startByte)
	}
	if endByte > uint32(len(mf.Data)) {
		return "", fmt.Errorf("invalid byte range: endByte (%d) > file size (%d) for %q",
			endByte, len(mf.Data), filePath)
	}
	return string(mf.Data[startByte:endByte]), nil
}

func (fc *fileCacheImpl) Invalidate(filePath string) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	mf, ok := fc.cache[filePath]
	if !ok {
		return nil
	}
	delete(fc.cache, filePath)
	fc.record(func(s *FileCacheStats) { s.Invalidations++ })
	return release(mf)
}

func (fc *fileCacheImpl) Size() int {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return len(fc.cache)
}

func (fc *fileCacheImpl) Stats() FileCacheStats {
	fc.mu.RLock()
	cached := len(fc.cache)
	mapped := fc.totalMappedMBLocked()
	fc.mu.RUnlock()

	fc.statsMu.Lock()
	defer fc.statsMu.Unlock()
	stats := fc.stats
	stats.FilesCached = cached
	stats.TotalMappedMB = mapped
	return stats
}

func (fc *fileCacheImpl) totalMappedMBLocked() float64 {
	var total int64
	for _, mf := range fc.cache {
		total += mf.Size
	}
	return float64(total) / (1024 * 1024)
}

func (fc *fileCacheImpl) Close() error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	var errs []error
	for path, mf := range fc.cache {
		if err := release(mf); err != nil {
			fc.logger.Warn("failed to release cached file", "path", path, "error", err)
			errs = append(errs, err)
		}
	}
	fc.cache = make(map[string]*MappedFile)

	fc.statsMu.Lock()
	fc.logger.Debug("file cache closed",
		"files_loaded", fc.stats.FilesLoaded,
		"cache_hits", fc.stats.CacheHits,
		"cache_misses", fc.stats.CacheMisses,
		"mmap_failures", fc.stats.MmapFailures)
	fc.statsMu.Unlock()

	return errors.Join(errs...)
}

func release(mf *MappedFile) error {
	var errs []error
	if mf.Data != nil && !mf.fallback {
		if err := mf.Data.Unmap(); err != nil {
			errs = append(errs, fmt.Errorf("unmap %q: %w", mf.Path, err))
		}
	}
	if mf.File != nil {
		if err := mf.File.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %q: %w", mf.Path, err))
		}
	}
	return errors.Join(errs...)
}

func (fc *fileCacheImpl) record(update func(*FileCacheStats)) {
	if !fc.config.EnableMetrics {
		return
	}
	fc.statsMu.Lock()
	update(&fc.stats)
	fc.statsMu.Unlock()
}
