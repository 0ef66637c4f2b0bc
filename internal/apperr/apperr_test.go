package apperr

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByKind(t *testing.T) {
	err := NotFound("advance %d not found", 7)

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrConflict))
	assert.Equal(t, "advance 7 not found", err.Error())
}

func TestKindSurvivesWrapping(t *testing.T) {
	base := Wrap(KindReferentialIntegrity, "unknown school", sql.ErrNoRows)
	wrapped := fmt.Errorf("create advance: %w", base)

	assert.Equal(t, KindReferentialIntegrity, KindOf(wrapped))
	assert.True(t, errors.Is(wrapped, ErrReferentialIntegrity))
	assert.True(t, errors.Is(wrapped, sql.ErrNoRows))
	assert.Equal(t, "unknown school", Message(wrapped))
}

func TestUnclassifiedIsInternal(t *testing.T) {
	err := errors.New("connection reset")

	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, "internal error", Message(err))
}
