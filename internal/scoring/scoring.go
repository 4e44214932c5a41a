package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"waveband/internal/logging"
	"waveband/internal/model"
)

const (
	// HistogramBuckets is the fixed number of equal-width buckets the
	// guess domain is split into.
	HistogramBuckets = 10

	bullseyeWindow = 2
	bullseyeBonus  = 25

	persuasionWeight = 10.0

	hostEngagementPerPlayer = 5
	hostEngagementCap       = 50
)

// consensusBands maps population standard deviation onto qualitative
// labels, tightest first. A game with fewer than two valid guesses gets
// the insufficient-data label instead.
var consensusBands = []struct {
	maxStdDev   float64
	label       string
	description string
}{
	{8, "hive_mind", "Near-unanimous: the crowd landed in almost the same spot."},
	{16, "strong_consensus", "Strong consensus with only minor spread."},
	{24, "leaning", "A clear lean with a vocal minority elsewhere."},
	{32, "split", "Genuinely split: two camps on the spectrum."},
	{math.Inf(1), "fractured", "Maximally divided: guesses scattered across the whole spectrum."},
}

const (
	ConsensusInsufficient = "insufficient_data"
)

// SignalSource supplies the external social signal per guess. The
// computation behind it (comment upvotes or otherwise) lives outside
// this engine.
type SignalSource interface {
	Signal(guess *model.Guess) float64
}

// UpvoteSignal reads the upvote count synced onto the guess record.
type UpvoteSignal struct{}

func (UpvoteSignal) Signal(guess *model.Guess) float64 {
	return guess.Upvotes
}

// Engine computes final results for a revealed game on demand.
type Engine struct {
	signals SignalSource
}

func NewEngine(signals SignalSource) *Engine {
	if signals == nil {
		signals = UpvoteSignal{}
	}
	return &Engine{signals: signals}
}

// Results scores a finished game. It refuses Active games: scores would
// leak the target early. Zero guesses yield a well-formed summary with a
// nil median, an empty histogram and the insufficient-data consensus.
func (e *Engine) Results(game *model.Game, guesses []*model.Guess) (*model.ScoreSummary, error) {
	if game.Phase == model.PhaseActive {
		return nil, fmt.Errorf("%w: results are not available while guessing is open", model.ErrPhaseInvalid)
	}

	valid := filterValid(game.ID, guesses)

	summary := &model.ScoreSummary{
		GameID:      game.ID,
		TargetValue: game.SecretTarget,
		Players:     make([]model.PlayerResult, 0, len(valid)),
		Histogram:   histogram(valid),
		Accolades:   map[model.Accolade]string{},
		Consensus:   e.consensus(valid),
	}

	if len(valid) == 0 {
		summary.Host = e.hostResult(game, nil, 0)
		return summary, nil
	}

	values := make([]int, len(valid))
	for i, g := range valid {
		values[i] = g.Value
	}
	median := medianOf(values)
	summary.FinalMedian = &median

	for _, guess := range valid {
		breakdown := e.breakdown(game.SecretTarget, guess)
		summary.Players = append(summary.Players, model.PlayerResult{
			UserID:     guess.UserID,
			Username:   guess.Username,
			GuessValue: guess.Value,
			Breakdown:  breakdown,
		})
	}

	rank(summary.Players, valid)
	e.awardAccolades(summary, valid, game.SecretTarget, median)
	summary.Host = e.hostResult(game, summary.FinalMedian, len(valid))

	return summary, nil
}

// breakdown computes one player's score parts. Accuracy decreases
// monotonically and symmetrically with distance from the target.
func (e *Engine) breakdown(target int, guess *model.Guess) model.ScoreBreakdown {
	distance := absInt(guess.Value - target)

	b := model.ScoreBreakdown{
		Accuracy: model.MaxGuessValue - distance,
	}
	if distance <= bullseyeWindow {
		b.Bonus = bullseyeBonus
	}

	signal := e.signals.Signal(guess)
	if !math.IsInf(signal, 0) && !math.IsNaN(signal) && signal > 0 {
		b.Persuasion = int(math.Round(signal * persuasionWeight))
	}

	b.Total = b.Accuracy + b.Bonus + b.Persuasion
	return b
}

// hostResult rewards the host for a clue that steered the crowd onto
// the target, plus a capped engagement component per participant.
func (e *Engine) hostResult(game *model.Game, finalMedian *int, participants int) model.HostResult {
	result := model.HostResult{UserID: game.HostUserID}

	if finalMedian != nil {
		drift := absInt(*finalMedian - game.SecretTarget)
		result.CluePoints = maxInt(0, model.MaxGuessValue-2*drift)
	}

	result.EngagementPoints = minInt(participants*hostEngagementPerPlayer, hostEngagementCap)
	result.Total = result.CluePoints + result.EngagementPoints
	return result
}

func (e *Engine) consensus(guesses []*model.Guess) model.Consensus {
	if len(guesses) < 2 {
		return model.Consensus{
			Type:        ConsensusInsufficient,
			Description: "Not enough guesses to measure consensus.",
		}
	}

	data := make([]float64, len(guesses))
	for i, g := range guesses {
		data[i] = float64(g.Value)
	}
	stdDev, err := stats.StandardDeviationPopulation(data)
	if err != nil || math.IsNaN(stdDev) {
		logging.Log.Warnf("SCORING: stddev failed for %d guesses: %v", len(guesses), err)
		return model.Consensus{
			Type:        ConsensusInsufficient,
			Description: "Not enough guesses to measure consensus.",
		}
	}

	for _, band := range consensusBands {
		if stdDev < band.maxStdDev {
			return model.Consensus{
				Type:              band.label,
				StandardDeviation: stdDev,
				Description:       band.description,
			}
		}
	}
	// Unreachable: the last band is unbounded.
	return model.Consensus{Type: ConsensusInsufficient, StandardDeviation: stdDev}
}

// awardAccolades picks best accuracy (ties to the earliest submission),
// top persuasion, and most contrarian (farthest from the final median,
// not the target).
func (e *Engine) awardAccolades(summary *model.ScoreSummary, guesses []*model.Guess, target, median int) {
	var bullseye, persuasive, contrarian *model.Guess
	var bestSignal float64

	for _, g := range guesses {
		if bullseye == nil || better(g, bullseye, absInt(g.Value-target), absInt(bullseye.Value-target)) {
			bullseye = g
		}
		if signal := e.signals.Signal(g); persuasive == nil || signal > bestSignal {
			persuasive = g
			bestSignal = signal
		}
		if contrarian == nil || better(g, contrarian, -absInt(g.Value-median), -absInt(contrarian.Value-median)) {
			contrarian = g
		}
	}

	if bullseye != nil {
		summary.Accolades[model.AccoladeBullseye] = bullseye.UserID
	}
	if persuasive != nil && bestSignal > 0 {
		summary.Accolades[model.AccoladeTopPersuasion] = persuasive.UserID
	}
	if contrarian != nil {
		summary.Accolades[model.AccoladeContrarian] = contrarian.UserID
	}

	index := make(map[string]int, len(summary.Players))
	for i := range summary.Players {
		index[summary.Players[i].UserID] = i
	}
	for accolade, userID := range summary.Accolades {
		if i, ok := index[userID]; ok {
			summary.Players[i].Accolades = append(summary.Players[i].Accolades, accolade)
		}
	}
	for i := range summary.Players {
		sort.Slice(summary.Players[i].Accolades, func(a, b int) bool {
			return summary.Players[i].Accolades[a] < summary.Players[i].Accolades[b]
		})
	}
}

// better prefers a strictly smaller metric, breaking ties by earlier
// submission time.
func better(candidate, incumbent *model.Guess, candidateMetric, incumbentMetric int) bool {
	if candidateMetric != incumbentMetric {
		return candidateMetric < incumbentMetric
	}
	return candidate.CreatedAt.Before(incumbent.CreatedAt)
}

func rank(players []model.PlayerResult, guesses []*model.Guess) {
	submitted := make(map[string]int64, len(guesses))
	for _, g := range guesses {
		submitted[g.UserID] = g.CreatedAt.UnixNano()
	}
	sort.SliceStable(players, func(i, j int) bool {
		if players[i].Breakdown.Total != players[j].Breakdown.Total {
			return players[i].Breakdown.Total > players[j].Breakdown.Total
		}
		return submitted[players[i].UserID] < submitted[players[j].UserID]
	})
	for i := range players {
		players[i].Rank = i + 1
	}
}

// histogram buckets guess values into fixed-width ranges over the full
// domain. The maximum value folds into the last bucket.
func histogram(guesses []*model.Guess) []model.HistogramBucket {
	if len(guesses) == 0 {
		return []model.HistogramBucket{}
	}

	width := (model.MaxGuessValue - model.MinGuessValue) / HistogramBuckets
	buckets := make([]model.HistogramBucket, HistogramBuckets)
	for i := range buckets {
		buckets[i].Min = model.MinGuessValue + i*width
		buckets[i].Max = buckets[i].Min + width - 1
	}
	buckets[HistogramBuckets-1].Max = model.MaxGuessValue

	for _, g := range guesses {
		idx := (g.Value - model.MinGuessValue) / width
		if idx >= HistogramBuckets {
			idx = HistogramBuckets - 1
		}
		buckets[idx].Count++
	}
	return buckets
}

// filterValid drops malformed guesses instead of propagating them into
// the statistics.
func filterValid(gameID string, guesses []*model.Guess) []*model.Guess {
	valid := make([]*model.Guess, 0, len(guesses))
	for _, g := range guesses {
		if g == nil {
			continue
		}
		if g.Value < model.MinGuessValue || g.Value > model.MaxGuessValue {
			logging.Log.Warnf("SCORING: dropping out-of-range guess %s (%d) on game %s", g.ID, g.Value, gameID)
			continue
		}
		valid = append(valid, g)
	}
	return valid
}

func medianOf(values []int) int {
	data := make([]float64, len(values))
	for i, v := range values {
		data[i] = float64(v)
	}
	median, err := stats.Median(data)
	if err != nil {
		return 0
	}
	return int(math.Round(median))
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
