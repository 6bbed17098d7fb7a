package battle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guarzo/eve-battles/internal/shiptype"
)

func sideOf(ships ...int64) Side {
	s := Side{ID: SideLabel(1)}
	for i, ship := range ships {
		s.Participants = append(s.Participants, Participant{CharacterID: int64(i + 1), ShipTypeID: ship})
	}
	return s
}

func TestAnalyzeComposition(t *testing.T) {
	a := NewCompositionAnalyzer(shiptype.NewStatic(), DefaultCompositionConfig())

	report, err := a.Analyze(sideOf(battleship, battleship, battleship, guardian, guardian, rifter, capsule))
	require.NoError(t, err)

	assert.Equal(t, SideLabel(1), report.SideID)
	assert.Equal(t, 6, report.TotalShips)
	assert.Equal(t, 3, report.UniqueShipTypes)
	assert.Equal(t, map[shiptype.Class]int{
		shiptype.ClassBattleship: 3,
		shiptype.ClassCruiser:    2,
		shiptype.ClassFrigate:    1,
	}, report.ClassBreakdown)
	assert.Equal(t, map[shiptype.Role]int{
		shiptype.RoleDPS:       3,
		shiptype.RoleLogistics: 2,
		shiptype.RoleTackle:    1,
	}, report.RoleDistribution)

	require.Len(t, report.TopShips, 3)
	assert.Equal(t, battleship, report.TopShips[0].ShipTypeID)
	assert.Equal(t, 3, report.TopShips[0].Count)
	assert.InDelta(t, 50.0, report.TopShips[0].Percent, 1e-9)
	assert.Equal(t, guardian, report.TopShips[1].ShipTypeID)
	assert.Equal(t, rifter, report.TopShips[2].ShipTypeID)

	assert.InDelta(t, 0.65, report.Rating, 1e-9)
	assert.Equal(t, []string{"heavy logistics presence"}, report.Insights)
}

func TestCompositionInsights(t *testing.T) {
	tests := []struct {
		name  string
		ships []int64
		want  []string
	}{
		{
			name:  "single hull doctrine",
			ships: []int64{battleship, battleship, battleship, battleship, battleship},
			want:  []string{"no logistics support", "no dedicated tackle", "single-hull doctrine", "damage-heavy composition"},
		},
		{
			name:  "capitals with boosts",
			ships: []int64{naglfar, naglfar, 22470, 11987},
			want:  []string{"heavy logistics presence", "no dedicated tackle", "capital ships present", "command burst support"},
		},
		{
			name:  "recon heavy",
			ships: []int64{11957, 11961, rifter, battleship},
			want:  []string{"significant electronic warfare"},
		},
		{
			name:  "too small for insights",
			ships: []int64{battleship, battleship},
			want:  []string{},
		},
	}
	a := NewCompositionAnalyzer(shiptype.NewStatic(), DefaultCompositionConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := a.Analyze(sideOf(tt.ships...))
			require.NoError(t, err)
			assert.Equal(t, tt.want, report.Insights)
		})
	}
}

func TestAnalyzeEmptySide(t *testing.T) {
	a := NewCompositionAnalyzer(shiptype.NewStatic(), DefaultCompositionConfig())

	for name, side := range map[string]Side{
		"no participants": {ID: SideLabel(2)},
		"only capsules":   sideOf(capsule, capsule),
	} {
		t.Run(name, func(t *testing.T) {
			report, err := a.Analyze(side)
			var insufficient *InsufficientDataError
			require.True(t, errors.As(err, &insufficient))
			assert.Equal(t, StageComposition, insufficient.Stage)
			assert.Zero(t, report.TotalShips)
			assert.NotNil(t, report.Insights)
			assert.Empty(t, report.Insights)
		})
	}
}

func TestTopShipsLimit(t *testing.T) {
	a := NewCompositionAnalyzer(shiptype.NewStatic(), CompositionConfig{TopShips: 2})
	report, err := a.Analyze(sideOf(587, 587, 603, 603, 11987, 24692))
	require.NoError(t, err)
	require.Len(t, report.TopShips, 2)
	assert.Equal(t, int64(587), report.TopShips[0].ShipTypeID)
	assert.Equal(t, int64(603), report.TopShips[1].ShipTypeID)
}
