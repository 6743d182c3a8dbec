// Package types contains the views served to API and websocket clients.
package types

import (
	"time"

	"github.com/okian/bracketd/internal/domain/bracket"
)

// BracketView is a rendered bracket: the full tree, the rounds a client
// should display and the warnings raised while building it.
type BracketView struct {
	ViewID        string            `json:"view_id"`
	TournamentID  string            `json:"tournament_id"`
	Sequence      uint64            `json:"sequence"`
	Rounds        [][]bracket.Node  `json:"rounds"`
	VisibleRounds []int             `json:"visible_rounds"`
	Champion      *bracket.Player   `json:"champion,omitempty"`
	Warnings      []bracket.Warning `json:"warnings"`
	BuiltAt       time.Time         `json:"built_at"`
}

// PlayerMatch is a search hit for a player name.
type PlayerMatch struct {
	ID       bracket.PlayerID `json:"id"`
	Name     string           `json:"name"`
	Level    int              `json:"level"`
	Distance int              `json:"distance"`
}

// NewBracketView assembles a view from a build result.
func NewBracketView(id, tournamentID string, seq uint64, res bracket.Result, visible []int, verify []bracket.Warning, at time.Time) BracketView {
	warnings := make([]bracket.Warning, 0, len(res.Warnings)+len(verify))
	warnings = append(warnings, res.Warnings...)
	warnings = append(warnings, verify...)

	v := BracketView{
		ViewID:        id,
		TournamentID:  tournamentID,
		Sequence:      seq,
		Rounds:        res.Tree.Rounds,
		VisibleRounds: visible,
		Warnings:      warnings,
		BuiltAt:       at,
	}
	// A full final node holds two finalists whose match is still open.
	if final := res.Tree.Final(); final != nil && final.Occupied() && !final.Full() {
		if final.SlotA != nil {
			v.Champion = final.SlotA
		} else {
			v.Champion = final.SlotB
		}
	}
	return v
}
