// Package settings persists the account credential and the date-append
// preference in one YAML file.
package settings

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/starford/skythread/internal/models"
	"github.com/starford/skythread/internal/storage"
)

// DefaultFileName is the settings file name inside the data directory.
const DefaultFileName = "settings.yaml"

// Setting keys.
const (
	KeyLoginInfo      = "loginInfo"
	KeyAppendDate     = "appendDate"
	KeyAppendTemplate = "appendTemplate"
)

const maxTemplateLength = 200

// ErrUnknownKey is returned for keys outside the three above.
var ErrUnknownKey = errors.New("settings: unknown key")

var singleLine = regexp.MustCompile(`^[^\r\n]*$`)

type document struct {
	LoginInfo      *models.Credential `yaml:"loginInfo,omitempty"`
	AppendDate     *bool              `yaml:"appendDate,omitempty"`
	AppendTemplate *string            `yaml:"appendTemplate,omitempty"`
}

// Store reads the file on every call so edits made elsewhere are seen by
// the next operation.
type Store struct {
	mu   sync.Mutex
	fs   storage.Provider
	name string
}

// Open returns a Store for the file name under fs. The file need not exist;
// if it does it must parse.
func Open(fs storage.Provider, name string) (*Store, error) {
	if name == "" {
		name = DefaultFileName
	}
	s := &Store{fs: fs, name: name}
	if _, err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the absolute path of the settings file.
func (s *Store) Path() (string, error) {
	return s.fs.Abs(s.name)
}

func (s *Store) load() (document, error) {
	var doc document
	data, err := s.fs.Read(s.name)
	if errors.Is(err, os.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return doc, err
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("settings: parse %s: %w", s.name, err)
	}
	return doc, nil
}

func (s *Store) save(doc document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}
	return s.fs.Write(s.name, data)
}

// update applies fn to the current document and writes the result.
func (s *Store) update(fn func(*document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(&doc); err != nil {
		return err
	}
	return s.save(doc)
}

// Get returns the raw value stored under key.
func (s *Store) Get(key string) (any, bool, error) {
	s.mu.Lock()
	doc, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return nil, false, err
	}
	switch key {
	case KeyLoginInfo:
		if doc.LoginInfo == nil {
			return nil, false, nil
		}
		return *doc.LoginInfo, true, nil
	case KeyAppendDate:
		if doc.AppendDate == nil {
			return nil, false, nil
		}
		return *doc.AppendDate, true, nil
	case KeyAppendTemplate:
		if doc.AppendTemplate == nil {
			return nil, false, nil
		}
		return *doc.AppendTemplate, true, nil
	}
	return nil, false, fmt.Errorf("%w: %s", ErrUnknownKey, key)
}

// Set stores value under key. The value type must match the key.
func (s *Store) Set(key string, value any) error {
	switch key {
	case KeyLoginInfo:
		c, ok := value.(models.Credential)
		if !ok {
			return fmt.Errorf("settings: %s wants a credential, got %T", key, value)
		}
		return s.SetCredential(c)
	case KeyAppendDate:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("settings: %s wants a bool, got %T", key, value)
		}
		return s.SetAppendEnabled(b)
	case KeyAppendTemplate:
		str, ok := value.(string)
		if !ok {
			return fmt.Errorf("settings: %s wants a string, got %T", key, value)
		}
		return s.SetAppendTemplate(str)
	}
	return fmt.Errorf("%w: %s", ErrUnknownKey, key)
}

// Delete clears key.
func (s *Store) Delete(key string) error {
	return s.update(func(d *document) error {
		switch key {
		case KeyLoginInfo:
			d.LoginInfo = nil
		case KeyAppendDate:
			d.AppendDate = nil
		case KeyAppendTemplate:
			d.AppendTemplate = nil
		default:
			return fmt.Errorf("%w: %s", ErrUnknownKey, key)
		}
		return nil
	})
}

// Credential returns the saved account, if any.
func (s *Store) Credential() (models.Credential, bool, error) {
	v, ok, err := s.Get(KeyLoginInfo)
	if err != nil || !ok {
		return models.Credential{}, false, err
	}
	return v.(models.Credential), true, nil
}

// SetCredential replaces the saved account.
func (s *Store) SetCredential(c models.Credential) error {
	if err := ValidateCredential(c); err != nil {
		return err
	}
	return s.update(func(d *document) error {
		d.LoginInfo = &c
		return nil
	})
}

// DeleteCredential forgets the saved account.
func (s *Store) DeleteCredential() error {
	return s.Delete(KeyLoginInfo)
}

// AppendSettings returns the date-append preference with defaults applied.
func (s *Store) AppendSettings() (models.ThreadAppendSettings, error) {
	s.mu.Lock()
	doc, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return models.ThreadAppendSettings{}, err
	}
	out := models.ThreadAppendSettings{Template: models.DefaultAppendTemplate}
	if doc.AppendDate != nil {
		out.Enabled = *doc.AppendDate
	}
	if doc.AppendTemplate != nil && *doc.AppendTemplate != "" {
		out.Template = *doc.AppendTemplate
	}
	return out, nil
}

// SetAppendEnabled turns the date note on or off.
func (s *Store) SetAppendEnabled(enabled bool) error {
	return s.update(func(d *document) error {
		d.AppendDate = &enabled
		return nil
	})
}

// SetAppendTemplate stores the note template.
func (s *Store) SetAppendTemplate(template string) error {
	if err := ValidateTemplate(template); err != nil {
		return err
	}
	return s.update(func(d *document) error {
		d.AppendTemplate = &template
		return nil
	})
}

// ValidateCredential checks a credential before it is saved.
func ValidateCredential(c models.Credential) error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Identifier, validation.Required, validation.Length(1, 253)),
		validation.Field(&c.Secret, validation.Required),
	)
}

// ValidateTemplate checks a note template before it is saved.
func ValidateTemplate(template string) error {
	return validation.Validate(template,
		validation.Length(0, maxTemplateLength),
		validation.Match(singleLine).Error("must be a single line"),
	)
}
