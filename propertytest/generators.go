package propertytest

import (
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/commands"
	"github.com/leanovate/gopter/gen"

	"github.com/danieldreier/mcp-vocab/internal/srs"
)

// GenTerm generates a short non-empty word.
func GenTerm() gopter.Gen {
	return gen.AlphaString().SuchThat(func(s string) bool {
		return len(s) > 0 && len(s) <= 20
	}).WithLabel("Term")
}

// GenQuality generates one of the three ratings, biased towards Good.
func GenQuality() gopter.Gen {
	return gen.Weighted([]gen.WeightedGen{
		{Weight: 2, Gen: gen.Const(srs.Again)},
		{Weight: 3, Gen: gen.Const(srs.Good)},
		{Weight: 1, Gen: gen.Const(srs.Easy)},
	}).WithLabel("Quality")
}

// GenCommand picks the next command. Flip and Answer dominate once a session
// is active so that sessions actually run to completion.
func GenCommand(state commands.State) gopter.Gen {
	s := state.(*SessionState)
	weighted := []gen.WeightedGen{
		{Weight: 3, Gen: GenTerm().Map(func(term string) commands.Command {
			return &AddWordCmd{Term: term}
		})},
		{Weight: 1, Gen: gopter.CombineGens(gen.IntRange(0, 8), gen.Bool()).Map(func(v []interface{}) commands.Command {
			return &StartCmd{Size: v[0].(int), Quiz: v[1].(bool)}
		})},
	}
	if s.Active {
		weighted = append(weighted,
			gen.WeightedGen{Weight: 6, Gen: gen.Const(&FlipCmd{})},
			gen.WeightedGen{Weight: 6, Gen: GenQuality().Map(func(q srs.Quality) commands.Command {
				return &AnswerCmd{Quality: q}
			})},
			gen.WeightedGen{Weight: 1, Gen: gen.Const(&RestartCmd{})},
		)
	}
	return gen.Weighted(weighted)
}
