package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Valbows/NewDomo-sub006/internal/apperrors"
)

type qualificationInput struct {
	ConversationID string `json:"conversation_id" validate:"required"`
	Email          string `json:"email" validate:"omitempty,email"`
}

func TestValidate_Passes(t *testing.T) {
	err := Validate(qualificationInput{ConversationID: "conv-1", Email: "lead@example.com"})
	assert.NoError(t, err)

	err = Validate(qualificationInput{ConversationID: "conv-1"})
	assert.NoError(t, err, "empty optional email should pass")
}

func TestValidate_ReportsJSONFieldNames(t *testing.T) {
	err := Validate(qualificationInput{Email: "nope"})

	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Contains(t, err.Error(), "conversation_id")
	assert.Contains(t, err.Error(), "email")
}

func TestValidate_StructFieldNameFallback(t *testing.T) {
	type untagged struct {
		ConversationID string `validate:"required"`
	}

	err := Validate(untagged{})

	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Contains(t, err.Error(), "ConversationID")
}
