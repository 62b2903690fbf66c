package model

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/tesserakv/tessera/internal/errors"
)

// Value is a stored datum. Buckets treat it as opaque beyond its two
// evaluation capabilities; Bytes exposes the serialized form consumed by
// the persistence hook.
type Value interface {
	// Satisfies evaluates the predicate against this value using the
	// given condition implementation.
	Satisfies(key string, predicate Predicate, condition Condition) (bool, error)

	// Apply runs the update function against this value and returns the
	// resulting value. The receiver is never modified.
	Apply(key string, update Update, function Function) (Value, error)

	// Bytes returns the serialized form of this value.
	Bytes() []byte
}

// Document is an immutable Value holding a msgpack-encoded field map.
// Every access decodes a fresh map, so callers can never mutate the
// stored payload through aliasing.
type Document struct {
	raw []byte
}

// NewDocument encodes the given fields into a Document
func NewDocument(fields map[string]interface{}) (*Document, error) {
	raw, err := msgpack.Marshal(fields)
	if err != nil {
		return nil, errors.InvalidDocument("fields are not encodable", err)
	}
	return &Document{raw: raw}, nil
}

// DocumentFromBytes wraps an already-encoded payload
func DocumentFromBytes(raw []byte) *Document {
	return &Document{raw: raw}
}

// Bytes returns the encoded payload
func (d *Document) Bytes() []byte {
	return d.raw
}

// Fields decodes the payload into a fresh field map
func (d *Document) Fields() (map[string]interface{}, error) {
	var fields map[string]interface{}
	if err := msgpack.Unmarshal(d.raw, &fields); err != nil {
		return nil, errors.InvalidDocument("payload is not decodable", err)
	}
	return fields, nil
}

// Satisfies evaluates predicate.Expression against the decoded fields
func (d *Document) Satisfies(key string, predicate Predicate, condition Condition) (bool, error) {
	fields, err := d.Fields()
	if err != nil {
		return false, err
	}
	return condition.Satisfied(key, fields, predicate.Expression)
}

// Apply runs the update function over the decoded fields and returns a
// new Document built from its output
func (d *Document) Apply(key string, update Update, function Function) (Value, error) {
	fields, err := d.Fields()
	if err != nil {
		return nil, err
	}
	result, err := function.Apply(key, fields, update.Parameters)
	if err != nil {
		return nil, err
	}
	return NewDocument(result)
}
