package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTicketStatus_IsTerminal(t *testing.T) {
	assert.False(t, TicketValid.IsTerminal())
	assert.True(t, TicketUsed.IsTerminal())
	assert.True(t, TicketRefunded.IsTerminal())
	assert.True(t, TicketCancelled.IsTerminal())
	assert.False(t, TicketStatus("pending").IsTerminal())
}

func TestUsageMark_IsZero(t *testing.T) {
	assert.True(t, UsageMark{}.IsZero())
	assert.False(t, UsageMark{UsedBy: "gate-a"}.IsZero())
}
