package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	apperrors "github.com/jrsteele09/go-entra-query/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	t.Run("classified error", func(t *testing.T) {
		err := apperrors.New(apperrors.KindInteractiveAuth, "login", stderrors.New("popup closed"))
		require.Equal(t, apperrors.KindInteractiveAuth, apperrors.KindOf(err))
	})

	t.Run("wrapped classified error", func(t *testing.T) {
		err := fmt.Errorf("handler: %w", apperrors.New(apperrors.KindQuery, "query", apperrors.ErrMalformedResponse))
		require.Equal(t, apperrors.KindQuery, apperrors.KindOf(err))
		require.True(t, apperrors.Is(err, apperrors.ErrMalformedResponse))
	})

	t.Run("plain error", func(t *testing.T) {
		require.Equal(t, apperrors.KindUnknown, apperrors.KindOf(stderrors.New("boom")))
		require.Equal(t, apperrors.KindUnknown, apperrors.KindOf(nil))
	})
}

func TestError_Message(t *testing.T) {
	err := apperrors.New(apperrors.KindNoAccount, "login", nil)
	require.Equal(t, "login: no-account failed", err.Error())

	err = apperrors.New(apperrors.KindLogout, "logout", stderrors.New("network down"))
	require.Equal(t, "logout: network down", err.Error())
}

func TestStatusError(t *testing.T) {
	err := fmt.Errorf("execute: %w", &apperrors.StatusError{StatusCode: 400, Code: "DatasetExecuteQueriesError", Message: "bad DAX"})
	require.True(t, apperrors.Is(err, apperrors.ErrUnexpectedStatus))
	require.Contains(t, err.Error(), "400")
	require.Contains(t, err.Error(), "bad DAX")

	var statusErr *apperrors.StatusError
	require.True(t, apperrors.As(err, &statusErr))
	require.Equal(t, 400, statusErr.StatusCode)
}

func TestWrapf(t *testing.T) {
	require.NoError(t, apperrors.Wrapf(nil, "ignored"))

	err := apperrors.Wrapf(apperrors.ErrNotFound, "account %s", "abc")
	require.Equal(t, "account abc: not found", err.Error())
	require.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}
