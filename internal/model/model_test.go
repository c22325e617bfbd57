package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_CanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusActive, StatusComplete, true},
		{StatusActive, StatusCancelled, true},
		{StatusActive, StatusActive, false},
		{StatusComplete, StatusActive, false},
		{StatusComplete, StatusCancelled, false},
		{StatusComplete, StatusComplete, false},
		{StatusCancelled, StatusActive, false},
		{StatusCancelled, StatusComplete, false},
		{StatusCancelled, StatusCancelled, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.from.CanTransition(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, StatusActive.Terminal())
	assert.True(t, StatusComplete.Terminal())
	assert.True(t, StatusCancelled.Terminal())
}

func testEvent(capacity int) *Event {
	return &Event{
		ID:        "ev-1",
		Organizer: "org-1",
		Capacity:  capacity,
		Roster:    []string{},
		Start:     time.Now(),
		End:       time.Now().Add(time.Hour),
		Status:    StatusActive,
	}
}

func TestValidateRegistration_Order(t *testing.T) {
	// Full is checked before duplicate membership: a member re-registering
	// for a full event sees AlreadyFull, matching sequential validation.
	ev := testEvent(1)
	ev.Roster = []string{"user-a"}
	assert.ErrorIs(t, ValidateRegistration(ev, "user-a"), ErrEventFull)

	ev = testEvent(2)
	ev.Roster = []string{"user-a"}
	assert.ErrorIs(t, ValidateRegistration(ev, "user-a"), ErrAlreadyRegistered)

	assert.ErrorIs(t, ValidateRegistration(ev, "org-1"), ErrOrganizerCannotRegister)

	assert.NoError(t, ValidateRegistration(ev, "user-b"))
}

func TestRemoveFromRoster_PreservesOrder(t *testing.T) {
	roster := []string{"a", "b", "c", "d"}

	out, ok := RemoveFromRoster(roster, "b")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "c", "d"}, out)
	assert.Equal(t, []string{"a", "b", "c", "d"}, roster, "input must not be mutated")

	_, ok = RemoveFromRoster(roster, "zz")
	assert.False(t, ok)
}

func TestEventUpdate_Apply(t *testing.T) {
	newContent := "judo fundamentals"
	cap5 := 5

	ev := testEvent(2)
	ev.Roster = []string{"user-a"}

	err := EventUpdate{Content: &newContent, Capacity: &cap5}.Apply(ev)
	require.NoError(t, err)
	assert.Equal(t, newContent, ev.Content)
	assert.Equal(t, 5, ev.Capacity)
	assert.Equal(t, []string{"user-a"}, ev.Roster)
}

func TestEventUpdate_Apply_CapacityBelowRoster(t *testing.T) {
	ev := testEvent(3)
	ev.Roster = []string{"user-a", "user-b"}

	one := 1
	err := EventUpdate{Capacity: &one}.Apply(ev)
	assert.ErrorIs(t, err, ErrCapacityBelowRoster)
}

func TestEventUpdate_Apply_Window(t *testing.T) {
	ev := testEvent(2)
	badEnd := ev.Start.Add(-time.Minute)
	err := EventUpdate{End: &badEnd}.Apply(ev)
	assert.ErrorIs(t, err, ErrInvalidWindow)

	sameEnd := ev.Start
	err = EventUpdate{End: &sameEnd}.Apply(testEvent(2))
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestEventUpdate_Apply_StatusEdges(t *testing.T) {
	complete := StatusComplete
	ev := testEvent(2)
	require.NoError(t, EventUpdate{Status: &complete}.Apply(ev))
	assert.Equal(t, StatusComplete, ev.Status)

	// Terminal events admit no further transitions, including back to
	// active.
	active := StatusActive
	assert.ErrorIs(t, EventUpdate{Status: &active}.Apply(ev), ErrIllegalTransition)
	cancelled := StatusCancelled
	assert.ErrorIs(t, EventUpdate{Status: &cancelled}.Apply(ev), ErrIllegalTransition)
}

func TestEventUpdate_Apply_RosterReplacement(t *testing.T) {
	ev := testEvent(3)

	good := []string{"user-a", "user-b"}
	require.NoError(t, EventUpdate{Roster: &good}.Apply(ev))
	assert.Equal(t, good, ev.Roster)

	withOrganizer := []string{"user-a", "org-1"}
	assert.ErrorIs(t, EventUpdate{Roster: &withOrganizer}.Apply(testEvent(3)), ErrOrganizerCannotRegister)

	withDup := []string{"user-a", "user-a"}
	assert.ErrorIs(t, EventUpdate{Roster: &withDup}.Apply(testEvent(3)), ErrAlreadyRegistered)

	tooMany := []string{"a", "b", "c", "d"}
	assert.ErrorIs(t, EventUpdate{Roster: &tooMany}.Apply(testEvent(3)), ErrCapacityBelowRoster)
}

func TestEvent_IsRegistered(t *testing.T) {
	ev := testEvent(3)
	ev.Roster = []string{"user-a", "user-b"}

	assert.True(t, ev.IsRegistered("user-a"))
	assert.False(t, ev.IsRegistered("user-c"))
	assert.False(t, ev.IsRegistered(""))
}
