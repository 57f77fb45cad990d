package config

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/osctools/dcocal/pkg/utils/ptr"
)

var defaultFileConfig = &RawFileConfig{
	ForceOverwrite: ptr.To(false),
	VolatileOnly:   ptr.To(false),
	Diagnostics:    ptr.To(false),
	// Reference deployment values: accept up to 5% error, try each target
	// at most 10 times.
	MaxErrorPercent: ptr.To(5),
	MaxAttempts:     ptr.To(10),
}

var _ Config = &File{}

type File struct {
	c        *RawFileConfig
	mu       *sync.RWMutex
	filepath string
}

func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = &RawFileConfig{}
	}

	return &File{
		c:        c,
		mu:       &sync.RWMutex{},
		filepath: configPath,
	}
}

type RawFileConfig struct {
	ForceOverwrite  *bool `json:"forceOverwrite,omitempty"`
	VolatileOnly    *bool `json:"volatileOnly,omitempty"`
	Diagnostics     *bool `json:"diagnostics,omitempty"`
	MaxErrorPercent *int  `json:"maxErrorPercent,omitempty"`
	MaxAttempts     *int  `json:"maxAttempts,omitempty"`
}

func NewRawFileConfigFromConfig(c Config) (*RawFileConfig, error) {
	if c == nil {
		return nil, pkgerrors.New("config is nil")
	}

	return &RawFileConfig{
		ForceOverwrite:  ptr.To(c.ForceOverwrite()),
		VolatileOnly:    ptr.To(c.VolatileOnly()),
		Diagnostics:     ptr.To(c.Diagnostics()),
		MaxErrorPercent: ptr.To(c.MaxErrorPercent()),
		MaxAttempts:     ptr.To(c.MaxAttempts()),
	}, nil
}

func (f *File) ForceOverwrite() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.ForceOverwrite != nil {
		return *f.c.ForceOverwrite
	}
	return *defaultFileConfig.ForceOverwrite
}

func (f *File) VolatileOnly() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.VolatileOnly != nil {
		return *f.c.VolatileOnly
	}
	return *defaultFileConfig.VolatileOnly
}

func (f *File) Diagnostics() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.Diagnostics != nil {
		return *f.c.Diagnostics
	}
	return *defaultFileConfig.Diagnostics
}

func (f *File) MaxErrorPercent() int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.MaxErrorPercent != nil {
		return *f.c.MaxErrorPercent
	}
	return *defaultFileConfig.MaxErrorPercent
}

func (f *File) MaxAttempts() int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.MaxAttempts != nil {
		return *f.c.MaxAttempts
	}
	return *defaultFileConfig.MaxAttempts
}

func (f *File) SetForceOverwrite(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.ForceOverwrite = ptr.To(v)
}

func (f *File) SetVolatileOnly(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.VolatileOnly = ptr.To(v)
}

func (f *File) SetDiagnostics(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.Diagnostics = ptr.To(v)
}

func (f *File) SetMaxErrorPercent(v int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.MaxErrorPercent = ptr.To(v)
}

func (f *File) SetMaxAttempts(v int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.MaxAttempts = ptr.To(v)
}

func (f *File) LogrusFields() logrus.Fields {
	return logrus.Fields{
		"forceOverwrite":  f.ForceOverwrite(),
		"volatileOnly":    f.VolatileOnly(),
		"diagnostics":     f.Diagnostics(),
		"maxErrorPercent": f.MaxErrorPercent(),
		"maxAttempts":     f.MaxAttempts(),
	}
}

// Load reads the config file. A missing file is not an error: defaults
// apply and the file is created on the next Save.
func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.Open(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			// Fresh raw config; the getters fall through to the defaults.
			// Never alias defaultFileConfig or setters would mutate it.
			f.c = &RawFileConfig{}
			return nil
		}
		return pkgerrors.Wrapf(err, "failed to open config file %s", f.filepath)
	}
	defer file.Close()

	b, err := io.ReadAll(file)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read config file %s", f.filepath)
	}

	c := &RawFileConfig{}
	if err := json.Unmarshal(b, c); err != nil {
		return pkgerrors.Wrapf(err, "failed to parse config file %s", f.filepath)
	}
	f.c = c

	return nil
}

func (f *File) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	b, err := json.MarshalIndent(f.c, "", "  ")
	if err != nil {
		return pkgerrors.Wrap(err, "failed to marshal config")
	}

	dir := f.filepath[:strings.LastIndex(f.filepath, "/")+1]
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return pkgerrors.Wrapf(err, "failed to create config dir %s", dir)
		}
	}

	if err := os.WriteFile(f.filepath, b, 0o644); err != nil {
		return pkgerrors.Wrapf(err, "failed to write config file %s", f.filepath)
	}

	return nil
}
