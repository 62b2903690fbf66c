package validation

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/tesserakv/tessera/internal/errors"
	"github.com/tesserakv/tessera/internal/model"
)

const (
	// Size limits
	MaxBucketNameSize = 128
	MaxKeySize        = 1024
	MaxDocumentSize   = 1024 * 1024 // 1 MB

	// Longest wall-clock budget an update may ask for
	MaxUpdateTimeout = 30 * time.Second
)

// Validator validates store operations before they reach a bucket
type Validator struct {
	maxBucketNameSize int
	maxKeySize        int
	maxDocumentSize   int
	maxUpdateTimeout  time.Duration
}

// NewValidator creates a validator with default limits
func NewValidator() *Validator {
	return &Validator{
		maxBucketNameSize: MaxBucketNameSize,
		maxKeySize:        MaxKeySize,
		maxDocumentSize:   MaxDocumentSize,
		maxUpdateTimeout:  MaxUpdateTimeout,
	}
}

// NewValidatorWithLimits creates a validator with custom limits
func NewValidatorWithLimits(maxBucketNameSize, maxKeySize, maxDocumentSize int, maxUpdateTimeout time.Duration) *Validator {
	return &Validator{
		maxBucketNameSize: maxBucketNameSize,
		maxKeySize:        maxKeySize,
		maxDocumentSize:   maxDocumentSize,
		maxUpdateTimeout:  maxUpdateTimeout,
	}
}

// ValidateBucketName validates a bucket name. Names share a flat
// persistence keyspace where '/' separates bucket from key, so the
// separator is forbidden.
func (v *Validator) ValidateBucketName(name string) error {
	if name == "" {
		return errors.InvalidBucketName(name, "bucket name cannot be empty")
	}

	if len(name) > v.maxBucketNameSize {
		return errors.InvalidBucketName(name, fmt.Sprintf("bucket name exceeds maximum size of %d bytes", v.maxBucketNameSize))
	}

	if strings.Contains(name, "/") {
		return errors.InvalidBucketName(name, "bucket name cannot contain '/'")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return errors.InvalidBucketName(name, "bucket name cannot contain control characters")
		}
	}

	return nil
}

// ValidateKey validates a key
func (v *Validator) ValidateKey(key string) error {
	if key == "" {
		return errors.InvalidKey(key, "key cannot be empty")
	}

	if len(key) > v.maxKeySize {
		return errors.InvalidKey(key, fmt.Sprintf("key exceeds maximum size of %d bytes", v.maxKeySize))
	}

	// Control characters are forbidden except tab and newline, which can
	// appear in imported identifiers.
	for _, r := range key {
		if unicode.IsControl(r) && r != '\t' && r != '\n' {
			return errors.InvalidKey(key, "key cannot contain control characters")
		}
	}

	if strings.Contains(key, "\x00") {
		return errors.InvalidKey(key, "key cannot contain null bytes")
	}

	return nil
}

// ValidateValue validates a stored value
func (v *Validator) ValidateValue(value model.Value) error {
	if value == nil {
		return errors.InvalidDocument("value cannot be nil", nil)
	}

	if size := len(value.Bytes()); size > v.maxDocumentSize {
		return errors.InvalidDocument(fmt.Sprintf("document size %d exceeds maximum of %d bytes", size, v.maxDocumentSize), nil)
	}

	return nil
}

// ValidateUpdate validates an update request
func (v *Validator) ValidateUpdate(u model.Update) error {
	if u.Function == "" {
		return errors.InvalidArgument("update function cannot be empty", nil)
	}

	if u.Timeout <= 0 {
		return errors.InvalidArgument("update timeout must be positive", nil)
	}

	if u.Timeout > v.maxUpdateTimeout {
		return errors.InvalidArgument(fmt.Sprintf("update timeout %s exceeds maximum of %s", u.Timeout, v.maxUpdateTimeout), nil)
	}

	return nil
}

// ValidateRange validates a range query
func (v *Validator) ValidateRange(r model.KeyRange) error {
	if r.TimeToLive < 0 {
		return errors.InvalidArgument("range snapshot ttl cannot be negative", nil)
	}

	return nil
}

// SanitizeBucketName strips forbidden characters from a bucket name
func SanitizeBucketName(name string) string {
	sanitized := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || r == '/' {
			return -1
		}
		return r
	}, name)

	sanitized = strings.TrimSpace(sanitized)

	if len(sanitized) > MaxBucketNameSize {
		sanitized = sanitized[:MaxBucketNameSize]
	}

	return sanitized
}

// SanitizeKey strips forbidden characters from a key
func SanitizeKey(key string) string {
	sanitized := strings.Map(func(r rune) rune {
		if r == 0 || (unicode.IsControl(r) && r != '\t' && r != '\n') {
			return -1
		}
		return r
	}, key)

	sanitized = strings.TrimSpace(sanitized)

	if len(sanitized) > MaxKeySize {
		sanitized = sanitized[:MaxKeySize]
	}

	return sanitized
}
