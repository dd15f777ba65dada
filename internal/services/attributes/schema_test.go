package attributes

import (
	"encoding/json"
	"strconv"
	"testing"

	"github.com/cozy-creator/player-predictor/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullOutfield(rating int) map[string]json.RawMessage {
	attrs := map[string]json.RawMessage{}
	for _, name := range Required(types.PlayerTypeOutfield) {
		attrs[name] = json.RawMessage(strconv.Itoa(rating))
	}
	return attrs
}

func TestRequired(t *testing.T) {
	outfield := Required(types.PlayerTypeOutfield)
	assert.Len(t, outfield, 35)
	assert.Contains(t, outfield, "Sprint Speed")
	assert.Contains(t, outfield, "PHY")

	gk := Required(types.PlayerTypeGoalkeeper)
	assert.Len(t, gk, 12)
	assert.Contains(t, gk, "GK Reflexes")
	assert.Contains(t, gk, "PAS")

	assert.Nil(t, Required("Striker"))
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(types.PlayerTypeOutfield, fullOutfield(30)))

	attrs := fullOutfield(30)
	delete(attrs, "Finishing")
	attrs["Pace"] = json.RawMessage(`"fast"`)
	attrs["Stamina"] = json.RawMessage(`100`)
	attrs["Curve"] = json.RawMessage(`45.5`)
	attrs["PAC"] = json.RawMessage(`"fast"`)

	err := Validate(types.PlayerTypeOutfield, attrs)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidAttributes)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Problems, "Finishing is required")
	assert.Contains(t, verr.Problems, "Stamina must be between 1 and 99")
	assert.Contains(t, verr.Problems, "Curve must be a whole number")
	assert.Contains(t, verr.Problems, "PAC must be a number")
	assert.Len(t, verr.Problems, 4)
}

func TestValidateRejectsUnknownPlayerType(t *testing.T) {
	assert.ErrorIs(t, Validate("Unknown", nil), types.ErrInvalidPlayerType)
}

func TestDeriveFaceStatsOutfield(t *testing.T) {
	attrs := fullOutfield(30)
	for _, stat := range []string{"PAC", "SHO", "PAS", "DRI", "DEF", "PHY"} {
		delete(attrs, stat)
	}
	attrs["Acceleration"] = json.RawMessage(`80`)
	attrs["Sprint Speed"] = json.RawMessage(`81`)
	attrs["PHY"] = json.RawMessage(`12`)

	out, added := DeriveFaceStats(types.PlayerTypeOutfield, attrs)

	assert.ElementsMatch(t, []string{"PAC", "SHO", "PAS", "DRI", "DEF"}, added)
	assert.Equal(t, json.RawMessage(`81`), out["PAC"])
	assert.Equal(t, json.RawMessage(`30`), out["SHO"])
	assert.Equal(t, json.RawMessage(`12`), out["PHY"])
	assert.NotContains(t, attrs, "PAC")
	assert.NoError(t, Validate(types.PlayerTypeOutfield, out))
}

func TestDeriveFaceStatsSkipsIncompleteGroups(t *testing.T) {
	attrs := map[string]json.RawMessage{"Acceleration": json.RawMessage(`70`)}

	out, added := DeriveFaceStats(types.PlayerTypeOutfield, attrs)
	assert.Empty(t, added)
	assert.Equal(t, attrs, out)
}

func TestDeriveFaceStatsGoalkeeperAlias(t *testing.T) {
	attrs := map[string]json.RawMessage{PassingAlias: json.RawMessage(`55`)}

	out, added := DeriveFaceStats(types.PlayerTypeGoalkeeper, attrs)
	assert.Equal(t, []string{"PAS"}, added)
	assert.Equal(t, json.RawMessage(`55`), out["PAS"])
	assert.Equal(t, json.RawMessage(`55`), out[PassingAlias])
}

func TestFaceStatRoundsHalfUp(t *testing.T) {
	assert.Equal(t, 81, FaceStat(80, 81))
	assert.Equal(t, 80, FaceStat(80, 80, 81))
	assert.Equal(t, 0, FaceStat())
}
