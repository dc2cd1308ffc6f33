package tier

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"coachdesk/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var overrideSchema string

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func weightsSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("tier_weights.json", strings.NewReader(overrideSchema)); err != nil {
			schemaErr = err
			return
		}
		compiledSchema, schemaErr = compiler.Compile("tier_weights.json")
	})
	return compiledSchema, schemaErr
}

// Snapshot describes the classifier currently served by a Registry.
type Snapshot struct {
	Generation int64     `json:"generation"`
	Version    string    `json:"version"`
	Source     string    `json:"source"`
	LoadedAt   time.Time `json:"loadedAt"`
}

type loaded struct {
	classifier *Classifier
	snapshot   Snapshot
}

// ChangeListener 在权重重载成功后触发。
type ChangeListener func(Snapshot)

// Registry serves the active tier classifier. Without an override path it
// serves the built-in weights; with one it loads, validates and optionally
// watches the file, keeping the previous model whenever a reload fails.
type Registry struct {
	path string
	v    *viper.Viper

	current atomic.Pointer[loaded]

	mu        sync.Mutex
	listeners []ChangeListener
}

// NewRegistry builds a registry. An empty path serves DefaultWeights.
func NewRegistry(path string, watch bool) (*Registry, error) {
	r := &Registry{path: strings.TrimSpace(path)}
	if r.path == "" {
		r.current.Store(&loaded{
			classifier: Default(),
			snapshot:   Snapshot{Generation: 1, Version: Default().Version(), Source: "builtin", LoadedAt: time.Now()},
		})
		return r, nil
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	if watch {
		v := viper.New()
		v.SetConfigFile(r.path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read tier weights failed: %w", err)
		}
		v.OnConfigChange(func(evt fsnotify.Event) {
			if err := r.Reload(); err != nil {
				logger.Errorf("tier weights reload failed, keeping version %s: %v", r.Snapshot().Version, err)
			}
		})
		v.WatchConfig()
		r.v = v
	}
	return r, nil
}

// Classifier returns the active classifier.
func (r *Registry) Classifier() *Classifier {
	if r == nil {
		return Default()
	}
	if cur := r.current.Load(); cur != nil {
		return cur.classifier
	}
	return Default()
}

// Snapshot reports the active version.
func (r *Registry) Snapshot() Snapshot {
	if cur := r.current.Load(); cur != nil {
		return cur.snapshot
	}
	return Snapshot{}
}

// OnChange registers fn for successful reloads.
func (r *Registry) OnChange(fn ChangeListener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

// Reload re-reads the override file. On any error the active model is untouched.
func (r *Registry) Reload() error {
	if r.path == "" {
		return nil
	}
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("read tier weights failed: %w", err)
	}
	w, err := ParseWeights(raw, filepath.Ext(r.path))
	if err != nil {
		return err
	}
	c, err := NewClassifier(w)
	if err != nil {
		return err
	}
	var gen int64 = 1
	if prev := r.current.Load(); prev != nil {
		gen = prev.snapshot.Generation + 1
	}
	next := &loaded{
		classifier: c,
		snapshot: Snapshot{
			Generation: gen,
			Version:    w.Version,
			Source:     filepath.Base(r.path),
			LoadedAt:   time.Now(),
		},
	}
	r.current.Store(next)
	logger.Infof("Tier weights %s loaded from %s", w.Version, filepath.Base(r.path))
	r.notify(next.snapshot)
	return nil
}

func (r *Registry) notify(snap Snapshot) {
	r.mu.Lock()
	listeners := append([]ChangeListener(nil), r.listeners...)
	r.mu.Unlock()
	for _, fn := range listeners {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Errorf("tier weights listener panic: %v", rec)
				}
			}()
			fn(snap)
		}()
	}
}

// ParseWeights decodes a YAML or JSON override and validates it against the
// embedded schema before the structural checks in Weights.Validate.
func ParseWeights(raw []byte, ext string) (Weights, error) {
	doc, err := toJSON(raw, ext)
	if err != nil {
		return Weights{}, err
	}
	if !gjson.ValidBytes(doc) {
		return Weights{}, fmt.Errorf("%w: override is not a JSON document", ErrInvalidWeights)
	}
	if v := gjson.GetBytes(doc, "version"); !v.Exists() || strings.TrimSpace(v.String()) == "" {
		return Weights{}, fmt.Errorf("%w: override has no version", ErrInvalidWeights)
	}
	schema, err := weightsSchema()
	if err != nil {
		return Weights{}, fmt.Errorf("compile tier weights schema failed: %w", err)
	}
	var generic any
	if err := json.Unmarshal(doc, &generic); err != nil {
		return Weights{}, fmt.Errorf("parse tier weights failed: %w", err)
	}
	if err := schema.Validate(generic); err != nil {
		return Weights{}, fmt.Errorf("%w: %v", ErrInvalidWeights, err)
	}
	var w Weights
	if err := json.Unmarshal(doc, &w); err != nil {
		return Weights{}, fmt.Errorf("decode tier weights failed: %w", err)
	}
	if err := w.Validate(); err != nil {
		return Weights{}, err
	}
	return w, nil
}

func toJSON(raw []byte, ext string) ([]byte, error) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "json":
		return bytes.TrimSpace(raw), nil
	case "yaml", "yml", "":
		var doc map[string]any
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parse tier weights yaml failed: %w", err)
		}
		out, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("convert tier weights yaml failed: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported tier weights format %q", ext)
	}
}
