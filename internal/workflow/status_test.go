package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		name string
		from Status
		to   Status
		ok   bool
	}{
		{"draft to in_review", StatusDraft, StatusInReview, true},
		{"in_review resend", StatusInReview, StatusInReview, true},
		{"in_review to approved", StatusInReview, StatusApproved, true},
		{"in_review to changes_requested", StatusInReview, StatusChangesRequested, true},
		{"changes_requested back to in_review", StatusChangesRequested, StatusInReview, true},
		{"draft cannot approve", StatusDraft, StatusApproved, false},
		{"draft cannot request changes", StatusDraft, StatusChangesRequested, false},
		{"approved is terminal", StatusApproved, StatusInReview, false},
		{"approved cannot re-approve", StatusApproved, StatusApproved, false},
		{"changes_requested cannot approve directly", StatusChangesRequested, StatusApproved, false},
		{"unknown status", Status("BOGUS"), StatusInReview, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.ok, CanTransition(tc.from, tc.to))
		})
	}
}

func TestTerminal(t *testing.T) {
	assert.True(t, Terminal(StatusApproved))
	assert.False(t, Terminal(StatusDraft))
	assert.False(t, Terminal(StatusInReview))
	assert.False(t, Terminal(Status("BOGUS")))
}

func TestIsValid(t *testing.T) {
	for _, s := range []Status{StatusDraft, StatusInReview, StatusApproved, StatusChangesRequested} {
		assert.True(t, IsValid(s), string(s))
	}
	assert.False(t, IsValid(Status("draft")))
}
