// Package attributes describes the rating fields each player type carries
// and the checks applied to them before an inference script is started.
package attributes

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cozy-creator/player-predictor/internal/types"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

const (
	MinRating = 1
	MaxRating = 99
)

// PassingAlias is the goalkeeper passing key some clients send instead of PAS.
const PassingAlias = "PASS"

var ErrInvalidAttributes = errors.New("invalid attributes")

// Group is one category of sliders in the form. FaceStat names the card
// stat that is the rounded mean of the group, if any.
type Group struct {
	Name       string   `json:"name"`
	FaceStat   string   `json:"face_stat,omitempty"`
	Attributes []string `json:"attributes"`
}

var outfieldGroups = []Group{
	{Name: "Pace", FaceStat: "PAC", Attributes: []string{"Acceleration", "Sprint Speed"}},
	{Name: "Shooting", FaceStat: "SHO", Attributes: []string{"Positioning", "Finishing", "Shot Power", "Long Shots", "Volleys", "Penalties"}},
	{Name: "Passing", FaceStat: "PAS", Attributes: []string{"Vision", "Crossing", "Free Kick Accuracy", "Short Passing", "Long Passing", "Curve"}},
	{Name: "Dribbling", FaceStat: "DRI", Attributes: []string{"Agility", "Balance", "Reactions", "Ball Control", "Dribbling", "Composure"}},
	{Name: "Defending", FaceStat: "DEF", Attributes: []string{"Interceptions", "Heading Accuracy", "Def Awareness", "Standing Tackle", "Sliding Tackle"}},
	{Name: "Physical", FaceStat: "PHY", Attributes: []string{"Jumping", "Stamina", "Strength", "Aggression"}},
}

var goalkeeperGroups = []Group{
	{Name: "Goalkeeping", Attributes: []string{"GK Diving", "GK Handling", "GK Kicking", "GK Positioning", "GK Reflexes"}},
	{Name: "Mental", Attributes: []string{"Reactions"}},
	{Name: "Pace", Attributes: []string{"PAC"}},
	{Name: "Shooting", Attributes: []string{"SHO"}},
	{Name: "Passing", Attributes: []string{"PAS"}},
	{Name: "Dribbling", Attributes: []string{"DRI"}},
	{Name: "Defending", Attributes: []string{"DEF"}},
	{Name: "Physical", Attributes: []string{"PHY"}},
}

var validate = validator.New()

var ratingRule = fmt.Sprintf("min=%d,max=%d", MinRating, MaxRating)

// Groups returns the slider groups for playerType.
func Groups(playerType types.PlayerType) []Group {
	switch playerType {
	case types.PlayerTypeOutfield:
		return outfieldGroups
	case types.PlayerTypeGoalkeeper:
		return goalkeeperGroups
	default:
		return nil
	}
}

// Required lists every attribute the inference script for playerType reads,
// face stats included.
func Required(playerType types.PlayerType) []string {
	groups := Groups(playerType)
	fields := lo.FlatMap(groups, func(g Group, _ int) []string {
		return g.Attributes
	})
	faceStats := lo.FilterMap(groups, func(g Group, _ int) (string, bool) {
		return g.FaceStat, g.FaceStat != ""
	})

	return lo.Uniq(append(fields, faceStats...))
}

// ValidationError lists every problem found in one attribute map.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidAttributes
}

// Validate checks that every required attribute is present and is an integer
// rating within range. Attributes outside the schema are left alone.
func Validate(playerType types.PlayerType, attrs map[string]json.RawMessage) error {
	required := Required(playerType)
	if required == nil {
		return types.ErrInvalidPlayerType
	}

	var problems []string
	for _, name := range required {
		raw, ok := attrs[name]
		if !ok {
			problems = append(problems, fmt.Sprintf("%s is required", name))
			continue
		}

		rating, err := parseRating(raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s %s", name, err))
			continue
		}

		if err := validate.Var(rating, ratingRule); err != nil {
			problems = append(problems, fmt.Sprintf("%s must be between %d and %d", name, MinRating, MaxRating))
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}

	return nil
}

// DeriveFaceStats fills in face stats the client did not send. Outfield face
// stats are the rounded mean of their group when every group member is
// numeric; goalkeeper PAS is copied from the PASS alias. The input map is not
// modified; the names of the added fields are returned.
func DeriveFaceStats(playerType types.PlayerType, attrs map[string]json.RawMessage) (map[string]json.RawMessage, []string) {
	out := make(map[string]json.RawMessage, len(attrs)+6)
	for k, v := range attrs {
		out[k] = v
	}

	var added []string
	switch playerType {
	case types.PlayerTypeOutfield:
		for _, group := range outfieldGroups {
			if _, ok := out[group.FaceStat]; ok {
				continue
			}

			value, ok := groupMean(group, out)
			if !ok {
				continue
			}

			out[group.FaceStat] = json.RawMessage(strconv.Itoa(value))
			added = append(added, group.FaceStat)
		}
	case types.PlayerTypeGoalkeeper:
		if _, ok := out["PAS"]; !ok {
			if alias, ok := out[PassingAlias]; ok {
				out["PAS"] = alias
				added = append(added, "PAS")
			}
		}
	}

	return out, added
}

// FaceStat computes a face stat from its component ratings, rounding half up.
func FaceStat(ratings ...float64) int {
	if len(ratings) == 0 {
		return 0
	}

	return int(math.Floor(lo.Sum(ratings)/float64(len(ratings)) + 0.5))
}

func groupMean(group Group, attrs map[string]json.RawMessage) (int, bool) {
	ratings := make([]float64, 0, len(group.Attributes))
	for _, name := range group.Attributes {
		raw, ok := attrs[name]
		if !ok {
			return 0, false
		}

		var rating float64
		if err := json.Unmarshal(raw, &rating); err != nil {
			return 0, false
		}
		ratings = append(ratings, rating)
	}

	return FaceStat(ratings...), true
}

func parseRating(raw json.RawMessage) (int, error) {
	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		return 0, errors.New("must be a number")
	}
	if value != math.Trunc(value) {
		return 0, errors.New("must be a whole number")
	}

	return int(value), nil
}
