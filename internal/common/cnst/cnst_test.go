package cnst

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActionType_String(t *testing.T) {
	assert.Equal(t, "collaboration_create", ActionCreate.String())
	assert.Equal(t, "collaboration_end", ActionEnd.String())
	assert.Equal(t, "collaboration_expire", ActionExpire.String())
}

func TestI18nConstants(t *testing.T) {
	assert.Equal(t, "en", LangEN)
	assert.Equal(t, "zh", LangZH)
	assert.Equal(t, LangEN, LangDefault)
	assert.Equal(t, "X-Lang", XLang)
}

func TestErrorConstants(t *testing.T) {
	assert.Equal(t, "session version conflict", ErrVersionConflict.Error())
	assert.NotEqual(t, ErrVersionConflict, ErrDuplicateSession)
}
