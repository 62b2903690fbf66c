package errors

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorCode represents internal error codes for store operations
type ErrorCode int

const (
	// Success
	ErrCodeOK ErrorCode = 0

	// Client errors (4xx equivalent)
	ErrCodeInvalidArgument   ErrorCode = 1000
	ErrCodeBucketNotFound    ErrorCode = 1001
	ErrCodeKeyNotFound       ErrorCode = 1002
	ErrCodeInvalidBucketName ErrorCode = 1003
	ErrCodeInvalidKey        ErrorCode = 1004
	ErrCodeInvalidDocument   ErrorCode = 1005
	ErrCodeUnknownComparator ErrorCode = 1006
	ErrCodeUnknownCondition  ErrorCode = 1007
	ErrCodeUnknownFunction   ErrorCode = 1008
	ErrCodeChecksumFailed    ErrorCode = 1009

	// Server errors (5xx equivalent)
	ErrCodeInternal          ErrorCode = 2000
	ErrCodeUnavailable       ErrorCode = 2001
	ErrCodeUpdateCancelled   ErrorCode = 2002
	ErrCodeResourceExhausted ErrorCode = 2003
	ErrCodePersistenceFailed ErrorCode = 2004
)

// StorageError represents a structured error with code and context
type StorageError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Cause   error
}

// Error implements the error interface
func (e *StorageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// ToGRPCStatus converts StorageError to gRPC status
func (e *StorageError) ToGRPCStatus() *status.Status {
	grpcCode := e.toGRPCCode()
	return status.New(grpcCode, e.Error())
}

// toGRPCCode maps internal error codes to gRPC codes
func (e *StorageError) toGRPCCode() codes.Code {
	switch e.Code {
	case ErrCodeOK:
		return codes.OK
	case ErrCodeInvalidArgument, ErrCodeInvalidBucketName, ErrCodeInvalidKey,
		ErrCodeInvalidDocument, ErrCodeUnknownComparator, ErrCodeUnknownCondition,
		ErrCodeUnknownFunction:
		return codes.InvalidArgument
	case ErrCodeBucketNotFound, ErrCodeKeyNotFound:
		return codes.NotFound
	case ErrCodeUpdateCancelled:
		return codes.DeadlineExceeded
	case ErrCodeChecksumFailed:
		return codes.DataLoss
	case ErrCodeResourceExhausted:
		return codes.ResourceExhausted
	case ErrCodeUnavailable:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

// NewStorageError creates a new StorageError
func NewStorageError(code ErrorCode, message string, cause error) *StorageError {
	return &StorageError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Cause:   cause,
	}
}

// WithDetail adds a detail to the error
func (e *StorageError) WithDetail(key string, value interface{}) *StorageError {
	e.Details[key] = value
	return e
}

// Convenience constructors for common errors

func InvalidArgument(message string, cause error) *StorageError {
	return NewStorageError(ErrCodeInvalidArgument, message, cause)
}

func BucketNotFound(bucket string) *StorageError {
	return NewStorageError(ErrCodeBucketNotFound, fmt.Sprintf("bucket not found: %s", bucket), nil).
		WithDetail("bucket", bucket)
}

func KeyNotFound(bucket, key string) *StorageError {
	return NewStorageError(ErrCodeKeyNotFound, fmt.Sprintf("key not found: %s/%s", bucket, key), nil).
		WithDetail("bucket", bucket).
		WithDetail("key", key)
}

func InvalidBucketName(name, reason string) *StorageError {
	return NewStorageError(ErrCodeInvalidBucketName, fmt.Sprintf("invalid bucket name '%s': %s", name, reason), nil).
		WithDetail("bucket", name).
		WithDetail("reason", reason)
}

func InvalidKey(key, reason string) *StorageError {
	return NewStorageError(ErrCodeInvalidKey, fmt.Sprintf("invalid key '%s': %s", key, reason), nil).
		WithDetail("key", key).
		WithDetail("reason", reason)
}

func InvalidDocument(reason string, cause error) *StorageError {
	return NewStorageError(ErrCodeInvalidDocument, fmt.Sprintf("invalid document: %s", reason), cause).
		WithDetail("reason", reason)
}

func UnknownComparator(name string) *StorageError {
	return NewStorageError(ErrCodeUnknownComparator, fmt.Sprintf("unknown comparator: %s", name), nil).
		WithDetail("comparator", name)
}

func UnknownCondition(name string) *StorageError {
	return NewStorageError(ErrCodeUnknownCondition, fmt.Sprintf("unknown condition: %s", name), nil).
		WithDetail("condition", name)
}

func UnknownFunction(name string) *StorageError {
	return NewStorageError(ErrCodeUnknownFunction, fmt.Sprintf("unknown update function: %s", name), nil).
		WithDetail("function", name)
}

func ChecksumFailed(expected, actual uint32) *StorageError {
	return NewStorageError(ErrCodeChecksumFailed, fmt.Sprintf("checksum validation failed: expected %d, got %d", expected, actual), nil).
		WithDetail("expected", expected).
		WithDetail("actual", actual)
}

func InternalError(message string, cause error) *StorageError {
	return NewStorageError(ErrCodeInternal, message, cause)
}

func Unavailable(message string, cause error) *StorageError {
	return NewStorageError(ErrCodeUnavailable, message, cause)
}

// UpdateCancelled signals that an update task did not complete within its
// timeout or failed during evaluation. The stored value is unchanged.
func UpdateCancelled(bucket, key string, cause error) *StorageError {
	return NewStorageError(ErrCodeUpdateCancelled, fmt.Sprintf("update cancelled for %s/%s", bucket, key), cause).
		WithDetail("bucket", bucket).
		WithDetail("key", key)
}

func ResourceExhausted(resource string, current, limit int) *StorageError {
	return NewStorageError(ErrCodeResourceExhausted, fmt.Sprintf("%s exhausted: %d/%d", resource, current, limit), nil).
		WithDetail("resource", resource).
		WithDetail("current", current).
		WithDetail("limit", limit)
}

func PersistenceFailed(message string, cause error) *StorageError {
	return NewStorageError(ErrCodePersistenceFailed, message, cause)
}

// IsStorageError checks if an error is a StorageError
func IsStorageError(err error) bool {
	_, ok := err.(*StorageError)
	return ok
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if se, ok := err.(*StorageError); ok {
		return se.Code
	}
	return ErrCodeInternal
}

// IsCode reports whether err is a StorageError carrying the given code
func IsCode(err error, code ErrorCode) bool {
	se, ok := err.(*StorageError)
	return ok && se.Code == code
}
