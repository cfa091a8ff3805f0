package i18n

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestI18nError_DefaultMessage(t *testing.T) {
	e := NewWithMessage("NoSuchID", "Hello, {{.Name}}!").WithParam("Name", "World")
	assert.Equal(t, "Hello, World!", e.Error())
}

func TestErrorWithCode_Kinds(t *testing.T) {
	cases := []struct {
		err  *ErrorWithCode
		kind *ErrorWithCode
	}{
		{ErrorSessionNotFound, ErrNotFound},
		{ErrorSnippetNotFound, ErrNotFound},
		{ErrorNotParticipant, ErrForbidden},
		{ErrorEndNotAllowed, ErrForbidden},
		{ErrorSessionFull, ErrValidation},
		{ErrorSessionExpired, ErrValidation},
		{ErrorEditConflict, ErrConflict},
	}
	for _, tc := range cases {
		wrapped := fmt.Errorf("join: %w", tc.err)
		assert.ErrorIs(t, wrapped, tc.err)
		assert.ErrorIs(t, wrapped, tc.kind, tc.err.MessageID)
	}
	assert.False(t, errors.Is(ErrorSessionFull, ErrNotFound))
	assert.Nil(t, ErrNotFound.Unwrap())
}

func TestErrorWithCode_Codes(t *testing.T) {
	assert.Equal(t, ErrorGone, ErrorSessionExpired.GetCode())
	assert.Equal(t, ErrorBadRequest, ErrorSessionFull.GetCode())
	assert.Equal(t, ErrorForbidden, NewErrorWithCode("X", ErrorForbidden).GetCode())
}
