package errors

import (
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultsCategoryAndRetryable(t *testing.T) {
	err := New(ErrCodeMissingSource, "source_dir is required")
	assert.Equal(t, CategoryConfiguration, err.Category)
	assert.False(t, err.Retryable)
	assert.Equal(t, "source_dir is required", err.Message)
}

func TestGetCategory(t *testing.T) {
	cases := map[ErrorCode]ErrorCategory{
		ErrCodeMappingCollision:  CategoryConfiguration,
		ErrCodeTransformOverflow: CategoryTransform,
		ErrCodeFileNotFound:      CategoryFilesystem,
		ErrCodeSymbolNotFound:    CategoryInterposition,
		ErrCodeInternalError:     CategoryInternal,
	}
	for code, want := range cases {
		assert.Equal(t, want, GetCategory(code), "code %s", code)
	}
}

func TestErrorStringIncludesComponentAndOperation(t *testing.T) {
	err := New(ErrCodeFileNotFound, "no such file").
		WithComponent("fuse").
		WithOperation("getattr")

	assert.Equal(t, "[fuse:getattr] FILE_NOT_FOUND: no such file", err.Error())
}

func TestUnwrapAndIs(t *testing.T) {
	cause := stderrors.New("backing stat failed")
	err := New(ErrCodeFileNotFound, "stat failed").WithCause(cause)

	assert.Equal(t, cause, err.Unwrap())
	require.True(t, stderrors.Is(err, cause))

	other := New(ErrCodeFileNotFound, "different message")
	assert.True(t, err.Is(other))

	different := New(ErrCodeMountFailed, "mount failed")
	assert.False(t, err.Is(different))
}

func TestWithContextAndDetail(t *testing.T) {
	err := New(ErrCodeInvalidMapping, "bad mapping").
		WithContext("entry", "C:/Users/me:/ccbox/me").
		WithDetail("index", 2)

	assert.Equal(t, "C:/Users/me:/ccbox/me", err.Context["entry"])
	assert.Equal(t, 2, err.Details["index"])
}

func TestJSONRoundTrips(t *testing.T) {
	err := New(ErrCodeMountFailed, "mount failed")
	data := err.JSON()
	assert.Contains(t, data, "MOUNT_FAILED")
	assert.Contains(t, data, "filesystem")

	var decoded TranslationError
	require.NoError(t, json.Unmarshal([]byte(data), &decoded))
	assert.Equal(t, err.Code, decoded.Code)
	assert.Equal(t, err.Category, decoded.Category)
	assert.Equal(t, err.Message, decoded.Message)
}
