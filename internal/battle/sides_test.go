package battle

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guarzo/eve-battles/internal/killmail"
)

func characters(ps []Participant) []int64 {
	ids := make([]int64, len(ps))
	for i, p := range ps {
		ids[i] = p.CharacterID
	}
	return ids
}

func TestAssignSidesFiveKillFight(t *testing.T) {
	b, err := AssignSides(detectOne(fiveKillFight()), nil)
	require.NoError(t, err)

	require.Len(t, b.Sides, 2)
	assert.Equal(t, SideLabel(1), b.Sides[0].ID)
	assert.Equal(t, allianceA, b.Sides[0].AllianceID)
	assert.Equal(t, "alliance:99000001", b.Sides[0].Label)
	assert.Equal(t, []int64{1, 2, 3}, characters(b.Sides[0].Participants))
	assert.Equal(t, SideLabel(2), b.Sides[1].ID)
	assert.Equal(t, []int64{4, 5}, characters(b.Sides[1].Participants))
	assert.Empty(t, b.Unassigned)
	assert.Equal(t, len(b.Participants), b.UniqueParticipants())
}

func TestAssignSidesGrouping(t *testing.T) {
	corpOnly := func(char, corp int64) killmail.Entity {
		return killmail.Entity{CharacterID: char, CorporationID: corp, ShipTypeID: rifter}
	}

	tests := []struct {
		name       string
		events     []killmail.Event
		sides      [][]int64
		unassigned []int64
	}{
		{
			name: "lone third party is a bystander",
			events: []killmail.Event{
				kill(1, 0, 1e6, pilot(10, allianceB, rifter), pilot(1, allianceA, rifter), pilot(2, allianceA, rifter)),
				kill(2, time.Minute, 1e6, pilot(11, allianceB, rifter), pilot(1, allianceA, rifter), pilot(30, allianceC, rifter)),
			},
			sides:      [][]int64{{1, 2}, {10, 11}},
			unassigned: []int64{30},
		},
		{
			name: "corporation fallback",
			events: []killmail.Event{
				kill(1, 0, 1e6, corpOnly(10, 500), corpOnly(1, 400), corpOnly(2, 400), corpOnly(3, 400)),
				kill(2, time.Minute, 1e6, corpOnly(11, 500), corpOnly(1, 400)),
			},
			sides: [][]int64{{1, 2, 3}, {10, 11}},
		},
		{
			name: "equal sizes break ties by alliance before corporation",
			events: []killmail.Event{
				kill(1, 0, 1e6, corpOnly(10, 1), pilot(1, allianceB, rifter), pilot(2, allianceB, rifter)),
				kill(2, time.Minute, 1e6, corpOnly(11, 1), pilot(1, allianceB, rifter)),
			},
			sides: [][]int64{{1, 2}, {10, 11}},
		},
		{
			name: "all singletons keep their sides",
			events: []killmail.Event{
				kill(1, 0, 1e6, pilot(10, allianceB, rifter), pilot(1, allianceA, rifter)),
			},
			sides: [][]int64{{1}, {10}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := AssignSides(detectOne(tt.events), nil)
			require.NoError(t, err)

			var got [][]int64
			for i, s := range b.Sides {
				assert.Equal(t, SideLabel(i+1), s.ID)
				got = append(got, characters(s.Participants))
			}
			assert.Equal(t, tt.sides, got)
			assert.Equal(t, len(tt.unassigned), len(b.Unassigned))
			if len(tt.unassigned) > 0 {
				assert.Equal(t, tt.unassigned, characters(b.Unassigned))
			}
			assert.Equal(t, len(b.Participants), b.UniqueParticipants())
		})
	}
}

func TestAssignSidesIdempotent(t *testing.T) {
	once, err := AssignSides(detectOne(fiveKillFight()), Overrides{{CharacterID: 3, ShipTypeID: guardian}: SideLabel(2)})
	require.NoError(t, err)
	twice, err := AssignSides(once, nil)
	require.NoError(t, err)

	assert.Equal(t, once.Sides, twice.Sides)
	assert.Equal(t, once.Unassigned, twice.Unassigned)
	assert.Equal(t, once.Overrides, twice.Overrides)
}

func TestOverrideToUnassigned(t *testing.T) {
	events := []killmail.Event{
		kill(1, 0, 1e6, pilot(50, allianceB, battleship), pilot(42, allianceA, rifter), pilot(43, allianceA, rifter), pilot(44, allianceA, rifter)),
		kill(2, time.Minute, 1e6, pilot(43, allianceA, rifter), pilot(50, allianceB, battleship), pilot(51, allianceB, battleship)),
	}
	before, err := AssignSides(detectOne(events), nil)
	require.NoError(t, err)
	key := ParticipantKey{CharacterID: 42, ShipTypeID: rifter}
	side, ok := before.SideOf(key)
	require.True(t, ok)
	require.Equal(t, SideLabel(1), side)

	after, err := AssignSides(before, Overrides{key: Unassigned})
	require.NoError(t, err)

	require.Len(t, after.Sides, 2)
	assert.Equal(t, []int64{43, 44}, characters(after.Sides[0].Participants))
	assert.Equal(t, characters(before.Sides[1].Participants), characters(after.Sides[1].Participants))
	assert.Equal(t, []int64{42}, characters(after.Unassigned))
	side, _ = after.SideOf(key)
	assert.Equal(t, Unassigned, side)
	assert.Equal(t, len(after.Participants), after.UniqueParticipants())

	// the input battle is untouched
	assert.Equal(t, []int64{42, 43, 44}, characters(before.Sides[0].Participants))
}

func TestOverrideCreatesAndRemovesSides(t *testing.T) {
	b := detectOne(fiveKillFight())

	moved, err := AssignSides(b, Overrides{
		{CharacterID: 4, ShipTypeID: battleship}: SideLabel(3),
		{CharacterID: 5, ShipTypeID: battleship}: SideLabel(1),
	})
	require.NoError(t, err)

	require.Len(t, moved.Sides, 2)
	assert.Equal(t, SideLabel(1), moved.Sides[0].ID)
	assert.Equal(t, []int64{1, 2, 3, 5}, characters(moved.Sides[0].Participants))
	assert.Equal(t, SideLabel(3), moved.Sides[1].ID)
	assert.Equal(t, []int64{4}, characters(moved.Sides[1].Participants))

	t.Run("unknown participant is ignored", func(t *testing.T) {
		same, err := AssignSides(b, Overrides{{CharacterID: 999, ShipTypeID: rifter}: SideLabel(2)})
		require.NoError(t, err)
		require.Len(t, same.Sides, 2)
		assert.Equal(t, []int64{4, 5}, characters(same.Sides[1].Participants))
	})

	t.Run("invalid side is rejected", func(t *testing.T) {
		_, err := AssignSides(b, Overrides{{CharacterID: 4, ShipTypeID: battleship}: "blue"})
		assert.True(t, errors.Is(err, ErrInvalidSide))
	})
}

func TestNextSide(t *testing.T) {
	available := []SideID{SideLabel(1), SideLabel(2)}
	tests := []struct {
		current SideID
		want    SideID
	}{
		{SideLabel(1), SideLabel(2)},
		{SideLabel(2), Unassigned},
		{Unassigned, SideLabel(1)},
		{"nonsense", SideLabel(1)},
	}
	for _, tt := range tests {
		t.Run(string(tt.current), func(t *testing.T) {
			assert.Equal(t, tt.want, NextSide(tt.current, available))
		})
	}

	assert.Equal(t, Unassigned, NextSide(Unassigned, nil))
}

func TestCycleOverride(t *testing.T) {
	key := ParticipantKey{CharacterID: 42, ShipTypeID: rifter}
	available := []SideID{SideLabel(1), SideLabel(2)}
	original := Overrides{{CharacterID: 7, ShipTypeID: rifter}: SideLabel(2)}

	next := CycleOverride(original, key, SideLabel(1), available)
	assert.Equal(t, SideLabel(2), next[key])
	assert.Len(t, next, 2)
	assert.Len(t, original, 1)

	next = CycleOverride(next, key, next[key], available)
	assert.Equal(t, Unassigned, next[key])
	next = CycleOverride(next, key, next[key], available)
	assert.Equal(t, SideLabel(1), next[key])
}

func TestParticipantKeyText(t *testing.T) {
	key, err := ParseParticipantKey(" 42:587 ")
	require.NoError(t, err)
	assert.Equal(t, ParticipantKey{CharacterID: 42, ShipTypeID: 587}, key)
	assert.Equal(t, "42:587", key.String())

	for _, bad := range []string{"42", "x:587", "42:y"} {
		_, err := ParseParticipantKey(bad)
		assert.Error(t, err, bad)
	}
}
