package errors_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	perrors "github.com/zenty/portal/internal/errors"
)

func TestValidationError_MatchesSentinel(t *testing.T) {
	err := fmt.Errorf("register: %w", perrors.NewValidationError(map[string]string{
		"password": "password must be at least 8 characters",
		"email":    "email is required",
	}))

	require.True(t, perrors.Is(err, perrors.ErrValidation))
	require.Equal(t, "email is required; password must be at least 8 characters", perrors.Message(err))
}

func TestAPIError_StatusAndMessage(t *testing.T) {
	err := perrors.Wrapf(perrors.Wrapf(&perrors.APIError{StatusCode: 409, Message: "email taken"}, "register"), "[sessions Register]")

	require.Equal(t, 409, perrors.StatusCode(err))
	require.Equal(t, "email taken", perrors.Message(err))
	require.Contains(t, err.Error(), "backend returned status 409")
	require.Equal(t, 0, perrors.StatusCode(perrors.ErrNetwork))
	require.Nil(t, perrors.Wrapf(nil, "nothing"))
}
