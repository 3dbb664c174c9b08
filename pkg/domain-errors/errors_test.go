package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"stategraph/pkg/platform/sentinel"
)

func TestHasCode(t *testing.T) {
	err := New(CodeNotFound, "branch missing")
	require.True(t, HasCode(err, CodeNotFound))
	require.False(t, HasCode(err, CodeConflict))

	wrapped := Wrap(err, CodeInternal, "load branch")
	require.True(t, HasCode(wrapped, CodeInternal))
	require.True(t, HasCode(wrapped, CodeNotFound))

	require.False(t, HasCode(nil, CodeInternal))
	require.False(t, HasCode(fmt.Errorf("plain"), CodeInternal))
}

func TestWrapNil(t *testing.T) {
	require.Nil(t, Wrap(nil, CodeInternal, "ignored"))
}

func TestWrapKeepsSentinels(t *testing.T) {
	err := Wrap(fmt.Errorf("node x: %w", sentinel.ErrNotFound), CodeNotFound, "load node")
	require.True(t, Is(err, sentinel.ErrNotFound))
	require.Equal(t, CodeNotFound, CodeOf(err))
}

func TestCodeOf(t *testing.T) {
	require.Equal(t, CodeValidation, CodeOf(New(CodeValidation, "bad input")))
	require.Equal(t, CodeInternal, CodeOf(fmt.Errorf("plain")))
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:   http.StatusBadRequest,
		CodeTypeMismatch: http.StatusBadRequest,
		CodeNotFound:     http.StatusNotFound,
		CodeConflict:     http.StatusConflict,
		CodeTimeout:      http.StatusGatewayTimeout,
		CodeTransaction:  http.StatusInternalServerError,
		CodeInternal:     http.StatusInternalServerError,
	}
	for code, status := range cases {
		require.Equal(t, status, ToHTTPStatus(New(code, "x")), string(code))
	}
}
