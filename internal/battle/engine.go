package battle

import (
	"github.com/ross1116/pokebattle/internal/pokemon"
	"github.com/ross1116/pokebattle/internal/random"
	"github.com/ross1116/pokebattle/internal/stats"
)

const (
	CritMultiplier = 1.5
	STABMultiplier = 1.5
	meanVariance   = 0.925

	// confusion lasts [confuseMin, confuseMax) of the victim's moves.
	confuseMin, confuseMax = 2, 6
	selfHitPower           = 40
)

// Pipeline applies moves. It holds only immutable data; all randomness comes
// from the engine passed to Resolve.
type Pipeline struct {
	chart   *pokemon.TypeChart
	scripts Scripts
}

func NewPipeline(chart *pokemon.TypeChart, scripts Scripts) *Pipeline {
	if scripts == nil {
		scripts = Scripts{}
	}
	return &Pipeline{chart: chart, scripts: scripts}
}

func (pl *Pipeline) Chart() *pokemon.TypeChart { return pl.chart }

// Resolve uses move from user against each target in order and returns one
// outcome per target. A nil or fainted target yields NoTarget without
// consuming randomness. PP is the caller's concern.
func (pl *Pipeline) Resolve(rng *random.Engine, user *pokemon.Pokemon, move *pokemon.Move, targets []*pokemon.Pokemon) []TargetOutcome {
	outcomes := make([]TargetOutcome, len(targets))
	for i, t := range targets {
		outcomes[i] = pl.resolveOne(rng, user, move, t)
	}
	return outcomes
}

func (pl *Pipeline) resolveOne(rng *random.Engine, user *pokemon.Pokemon, move *pokemon.Move, t *pokemon.Pokemon) TargetOutcome {
	out := TargetOutcome{Effectiveness: pokemon.Effective}
	if t == nil || t.Fainted() {
		out.Kind = NoTarget
		return out
	}
	if move.Accuracy != nil && rng.Range(0, 100) >= *move.Accuracy {
		out.Kind = Missed
		pl.finish(&out, t)
		return out
	}

uses:
	for _, u := range move.Uses {
		if t.Fainted() {
			break
		}
		if u.Kind != pokemon.UseScript {
			if !pl.apply(rng, user, t, move, u, &out) {
				break
			}
			continue
		}
		script, ok := pl.scripts[u.Script]
		if !ok {
			continue
		}
		for _, su := range script(viewOf(user), viewOf(t), move) {
			if su.Kind == pokemon.UseScript || t.Fainted() {
				continue
			}
			if !pl.apply(rng, user, t, move, su, &out) {
				break uses
			}
		}
	}

	if out.Kind == Hit && !out.changed() {
		out.Kind = Failed
	}
	pl.finish(&out, t)
	return out
}

func (pl *Pipeline) finish(out *TargetOutcome, t *pokemon.Pokemon) {
	out.HP = t.HP
	out.Percent = t.HPPercent()
	out.Fainted = t.Fainted()
}

// apply runs one use against t. It returns false when the remaining uses
// must be skipped for this target.
func (pl *Pipeline) apply(rng *random.Engine, user, t *pokemon.Pokemon, move *pokemon.Move, u pokemon.Use, out *TargetOutcome) bool {
	switch u.Kind {
	case pokemon.UseDamage, pokemon.UseDrain:
		eff := pl.chart.Against(move.Type, t.Types()...)
		out.Effectiveness = eff
		if eff == pokemon.Ineffective {
			out.Kind = Immune
			return false
		}
		crit := rng.Chance(1, critDenominator(move.CritStage))
		variance := rng.Range(85, 101)
		dealt := t.Hurt(int(rawDamage(user, t, move, u.Category, eff, float64(variance)/100, crit)))
		out.Damage += dealt
		out.Critical = out.Critical || crit
		if u.Kind == pokemon.UseDrain && dealt > 0 {
			out.Drained += user.Heal(max(dealt*u.Percent/100, 1))
		}

	case pokemon.UseFixed:
		if move.Category != pokemon.StatusMove && pl.chart.Against(move.Type, t.Types()...) == pokemon.Ineffective {
			out.Effectiveness = pokemon.Ineffective
			out.Kind = Immune
			return false
		}
		out.Damage += t.Hurt(u.Amount)

	case pokemon.UseHeal:
		out.Healed += t.Heal(t.MaxHP() * u.Percent / 100)

	case pokemon.UseStatus:
		if t.Status != nil || u.Effect == pokemon.NoStatus || u.Effect.ImmuneTo(t.Types()) {
			return true
		}
		if !roll(rng, u.Chance) {
			return true
		}
		st := pokemon.Status{Kind: u.Effect}
		if lo, hi := u.Effect.Duration(); hi > lo {
			st.Turns = rng.Range(lo, hi)
		}
		if t.Afflict(st) {
			out.Inflicted = u.Effect
		}

	case pokemon.UseConfuse:
		if t.Volatile.Confused > 0 || !roll(rng, u.Chance) {
			return true
		}
		out.Confused = t.Confuse(rng.Range(confuseMin, confuseMax))

	case pokemon.UseFlinch:
		if roll(rng, u.Chance) {
			t.Volatile.Flinched = true
		}

	case pokemon.UseStatStage:
		cur := t.Stages[u.Stat]
		if u.Stage == 0 || (u.Stage > 0 && cur >= stats.MaxStage) || (u.Stage < 0 && cur <= -stats.MaxStage) {
			return true
		}
		if !roll(rng, u.Chance) {
			return true
		}
		if d := t.ChangeStage(u.Stat, u.Stage); d != 0 {
			out.Stages = append(out.Stages, StageChange{Stat: u.Stat, Delta: d})
		}
	}
	return true
}

// roll draws only for chances strictly between never and always.
func roll(rng *random.Engine, chance int) bool {
	if chance <= 0 || chance >= 10 {
		return true
	}
	return rng.Chance(chance, 10)
}

func critDenominator(stage int) int {
	switch {
	case stage <= 0:
		return 16
	case stage == 1:
		return 8
	case stage == 2:
		return 4
	case stage == 3:
		return 3
	}
	return 2
}

// rawDamage is the damage formula before truncation. variance is in
// [0.85, 1.00].
func rawDamage(user, target *pokemon.Pokemon, move *pokemon.Move, cat pokemon.Category, eff pokemon.Effectiveness, variance float64, crit bool) float64 {
	atkStat, defStat := stats.Attack, stats.Defense
	if cat == pokemon.Special {
		atkStat, defStat = stats.SpAttack, stats.SpDefense
	}
	a := user.Effective(atkStat)
	if cat == pokemon.Physical && user.Status != nil && user.Status.Kind == pokemon.Burned {
		a /= 2
	}
	d := max(target.Effective(defStat), 1)

	base := ((2*user.Level/5 + 2) * a * move.Power / d) / 50
	dmg := (float64(base)*float64(eff) + 2) * variance
	if move.Type == user.Species.Primary() {
		dmg *= STABMultiplier
	}
	if crit {
		dmg *= CritMultiplier
	}
	return dmg
}

// selfHit is the damage a confused pokemon deals to itself: a typeless
// physical blow that never crits and has no variance.
func selfHit(p *pokemon.Pokemon) int {
	a := p.Effective(stats.Attack)
	if p.Status != nil && p.Status.Kind == pokemon.Burned {
		a /= 2
	}
	d := max(p.Effective(stats.Defense), 1)
	return ((2*p.Level/5+2)*a*selfHitPower/d)/50 + 2
}

// Estimate is the expected damage of move against target, weighted by
// accuracy, at mean variance and without critical hits. It reads but never
// mutates its arguments and takes no randomness.
func (pl *Pipeline) Estimate(user *pokemon.Pokemon, move *pokemon.Move, target *pokemon.Pokemon) float64 {
	if target == nil || target.Fainted() {
		return 0
	}
	eff := pl.chart.Against(move.Type, target.Types()...)
	var total float64
	var add func(uses []pokemon.Use, scripted bool)
	add = func(uses []pokemon.Use, scripted bool) {
		for _, u := range uses {
			switch u.Kind {
			case pokemon.UseDamage, pokemon.UseDrain:
				if eff != pokemon.Ineffective {
					total += float64(int(rawDamage(user, target, move, u.Category, eff, meanVariance, false)))
				}
			case pokemon.UseFixed:
				if eff != pokemon.Ineffective || move.Category == pokemon.StatusMove {
					total += float64(u.Amount)
				}
			case pokemon.UseScript:
				if fn, ok := pl.scripts[u.Script]; ok && !scripted {
					add(fn(viewOf(user), viewOf(target), move), true)
				}
			}
		}
	}
	add(move.Uses, false)
	total = min(total, float64(target.HP))
	if move.Accuracy != nil {
		total *= float64(*move.Accuracy) / 100
	}
	return total
}
