package crmmodel_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jrsteele09/go-vtiger/crmmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := crmmodel.NewError(crmmodel.ErrTransport, crmmodel.OperationLogin, "", "send request", cause)

	require.ErrorIs(t, err, crmmodel.ErrTransport)
	require.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, crmmodel.ErrLoginRejected)
	assert.Equal(t, "login: transport error: send request: dial tcp: refused", err.Error())

	wrapped := fmt.Errorf("outer: %w", crmmodel.NewError(crmmodel.ErrLoginRejected, crmmodel.OperationLogin, "ACCESS_DENIED", "inactive", nil))
	require.ErrorIs(t, wrapped, crmmodel.ErrLoginRejected)
	assert.Equal(t, "ACCESS_DENIED", crmmodel.CodeOf(wrapped))
	assert.Empty(t, crmmodel.CodeOf(cause))
}

func TestIsAuthErrorCode(t *testing.T) {
	assert.True(t, crmmodel.IsAuthErrorCode(crmmodel.ErrorCodeInvalidUserCredentials))
	assert.True(t, crmmodel.IsAuthErrorCode(crmmodel.ErrorCodeInvalidSessionID))
	assert.False(t, crmmodel.IsAuthErrorCode("ACCESS_DENIED"))
	assert.False(t, crmmodel.IsAuthErrorCode(""))
}
