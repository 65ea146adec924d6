package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DiskCacheEntry is the JSON document stored per cached text.
type DiskCacheEntry struct {
	Embedding  []float32 `json:"embedding"`
	TextPrefix string    `json:"text_prefix"` // First 100 chars
}

// DiskCacheProvider persists embeddings under a directory keyed by the sha256 of the text.
type DiskCacheProvider struct {
	provider   Provider
	directory  string
	maxEntries int
	mu         sync.RWMutex
}

type DiskCacheOption func(*DiskCacheProvider)

func WithDirectory(dir string) DiskCacheOption {
	return func(p *DiskCacheProvider) {
		if dir != "" {
			p.directory = dir
		}
	}
}

func WithMaxEntries(count int) DiskCacheOption {
	return func(p *DiskCacheProvider) {
		p.maxEntries = count
	}
}

func NewDiskCacheProvider(provider Provider, opts ...DiskCacheOption) (*DiskCacheProvider, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get home directory")
	}

	p := &DiskCacheProvider{
		provider:   provider,
		directory:  filepath.Join(homeDir, ".sevasetu", "cache", "embeddings", provider.GetModel().Name),
		maxEntries: 10000,
	}
	for _, opt := range opts {
		opt(p)
	}

	if err := os.MkdirAll(p.directory, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create cache directory")
	}
	return p, nil
}

func (p *DiskCacheProvider) path(text string) string {
	hash := sha256.Sum256([]byte(text))
	return filepath.Join(p.directory, hex.EncodeToString(hash[:]))
}

func (p *DiskCacheProvider) write(text string, embedding []float32) error {
	prefix := text
	if len(prefix) > 100 {
		prefix = prefix[:100]
	}
	data, err := json.Marshal(&DiskCacheEntry{Embedding: embedding, TextPrefix: prefix})
	if err != nil {
		return errors.Wrap(err, "failed to marshal entry")
	}
	if err := os.WriteFile(p.path(text), data, 0644); err != nil {
		return errors.Wrap(err, "failed to write cache file")
	}
	return nil
}

func (p *DiskCacheProvider) read(text string) (*DiskCacheEntry, error) {
	path := p.path(text)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to read cache file")
	}

	now := time.Now()
	_ = os.Chtimes(path, now, now)

	var entry DiskCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		// corrupted entries count as misses
		_ = os.Remove(path)
		return nil, nil
	}
	return &entry, nil
}

// prune drops the least recently used files above maxEntries.
func (p *DiskCacheProvider) prune() error {
	entries, err := os.ReadDir(p.directory)
	if err != nil {
		return errors.Wrap(err, "failed to read cache directory")
	}
	if len(entries) <= p.maxEntries {
		return nil
	}

	type fileInfo struct {
		path    string
		modTime time.Time
	}
	files := make([]fileInfo, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo{path: filepath.Join(p.directory, entry.Name()), modTime: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].modTime.Before(files[j].modTime) })

	for i := 0; i < len(files)-p.maxEntries; i++ {
		if err := os.Remove(files[i].path); err != nil {
			return errors.Wrap(err, "failed to remove cache file")
		}
	}
	return nil
}

func (p *DiskCacheProvider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	out, err := p.GenerateBatchEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// GenerateBatchEmbeddings serves hits from disk and sends only the misses to the wrapped provider.
func (p *DiskCacheProvider) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	p.mu.RLock()
	for i, text := range texts {
		entry, err := p.read(text)
		if err != nil {
			p.mu.RUnlock()
			return nil, err
		}
		if entry != nil {
			out[i] = entry.Embedding
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	p.mu.RUnlock()

	if len(missTexts) == 0 {
		return out, nil
	}
	log.Debug().Int("hits", len(texts)-len(missTexts)).Int("misses", len(missTexts)).Msg("embedding disk cache")

	fresh, err := p.provider.GenerateBatchEmbeddings(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missTexts) {
		return nil, errors.Errorf("provider returned %d embeddings for %d texts", len(fresh), len(missTexts))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for j, i := range missIdx {
		out[i] = fresh[j]
		if err := p.write(missTexts[j], fresh[j]); err != nil {
			return nil, err
		}
	}
	if err := p.prune(); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *DiskCacheProvider) GetCachedEntry(text string) (*DiskCacheEntry, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.read(text)
}

func (p *DiskCacheProvider) GetModel() EmbeddingModel {
	return p.provider.GetModel()
}

func (p *DiskCacheProvider) ClearCache() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.RemoveAll(p.directory); err != nil {
		return errors.Wrap(err, "failed to clear cache")
	}
	return os.MkdirAll(p.directory, 0755)
}

// Close closes the wrapped provider when it holds a client.
func (p *DiskCacheProvider) Close() error {
	if c, ok := p.provider.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
