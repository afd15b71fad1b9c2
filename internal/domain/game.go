// Package domain contains pure, dependency-free domain models and types
// for the jury scoring engine.
package domain

import (
	"iter"
	"math/rand/v2"
	"slices"
	"strconv"
)

// Vote bounds accepted by Judge.
const (
	MinVote = 0
	MaxVote = 10
)

// Shuffler permutes n elements through swap. *rand.Rand from math/rand/v2
// satisfies it, so tests can inject a seeded source and assert exact orders.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

type globalShuffler struct{}

func (globalShuffler) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// NewSeededShuffler returns a deterministic Shuffler for the given seed.
func NewSeededShuffler(seed uint64) Shuffler {
	return rand.New(rand.NewPCG(seed, seed))
}

// CellStatus tags whether a score cell still holds a vote sum or has been
// replaced by its jury average.
type CellStatus int

const (
	// CellRaw cells accumulate votes.
	CellRaw CellStatus = iota
	// CellAveraged cells hold the jury average and are closed.
	CellAveraged
)

// String returns the string representation of the cell status.
func (s CellStatus) String() string {
	if s == CellAveraged {
		return "averaged"
	}
	return "raw"
}

// Cell is one (player, criterion) entry of the score matrix.
type Cell struct {
	// Sum is the total of the votes recorded so far.
	Sum int
	// Votes is the number of votes recorded so far.
	Votes int
	// Average is the jury average, set once the cell is summarized.
	Average float64
	// Status tells which of Sum or Average is authoritative.
	Status CellStatus
}

// Value returns the cell's current numeric value: the vote sum while raw,
// the average once summarized.
func (c Cell) Value() float64 {
	if c.Status == CellAveraged {
		return c.Average
	}
	return float64(c.Sum)
}

// CellRef names a cell by player and criterion.
type CellRef struct {
	Player    string
	Criterion string
}

func (r CellRef) String() string { return r.Player + "/" + r.Criterion }

// Option configures a Game at construction.
type Option func(*Game)

// WithShuffler sets the randomness source used by Set and FinishTurn.
func WithShuffler(s Shuffler) Option {
	return func(g *Game) {
		if s != nil {
			g.shuffler = s
		}
	}
}

// WithPlayers seeds the player roster.
func WithPlayers(names ...string) Option {
	return func(g *Game) { g.players = append(g.players, names...) }
}

// WithJury seeds the jury roster.
func WithJury(names ...string) Option {
	return func(g *Game) { g.jury = append(g.jury, names...) }
}

// WithCriteria seeds the criteria roster.
func WithCriteria(names ...string) Option {
	return func(g *Game) { g.criteria = append(g.criteria, names...) }
}

// Game owns the rosters and the score matrix of one jury-judged game.
//
// A Game starts in PhaseSetup, where rosters may change, and moves to
// PhaseActive on Set, after which rosters are frozen and only voting and
// aggregation are allowed. Game performs no locking: it expects a single
// writer calling operations sequentially.
type Game struct {
	phase    Phase
	players  []string
	jury     []string
	criteria []string
	shuffler Shuffler

	// Resolved by Set. Rows and columns are keyed by the first occurrence
	// of each name, so reshuffling players never moves cells.
	playerIdx    map[string]int
	criterionIdx map[string]int
	cells        [][]Cell
}

// NewGame creates a Game in PhaseSetup.
func NewGame(opts ...Option) *Game {
	g := &Game{
		phase:    PhaseSetup,
		players:  make([]string, 0),
		jury:     make([]string, 0),
		criteria: make([]string, 0),
		shuffler: globalShuffler{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Phase returns the current lifecycle phase.
func (g *Game) Phase() Phase { return g.phase }

// Players ranges over the player roster in its current order. Each range
// reads the live roster, so it reflects reshuffles and additions.
func (g *Game) Players() iter.Seq[string] { return liveSeq(&g.players) }

// Jury ranges over the jury roster in insertion order.
func (g *Game) Jury() iter.Seq[string] { return liveSeq(&g.jury) }

// Criteria ranges over the criteria roster in its current order.
func (g *Game) Criteria() iter.Seq[string] { return liveSeq(&g.criteria) }

func liveSeq(roster *[]string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, name := range *roster {
			if !yield(name) {
				return
			}
		}
	}
}

// PlayerCount returns the number of entries in the player roster.
func (g *Game) PlayerCount() int { return len(g.players) }

// JuryCount returns the number of entries in the jury roster.
func (g *Game) JuryCount() int { return len(g.jury) }

// CriterionCount returns the number of entries in the criteria roster.
func (g *Game) CriterionCount() int { return len(g.criteria) }

// CanStart reports whether every roster has at least one entry.
func (g *Game) CanStart() bool {
	return len(g.players) > 0 && len(g.jury) > 0 && len(g.criteria) > 0
}

// AddPlayer appends a player to the roster.
func (g *Game) AddPlayer(name string) error { return g.add("AddPlayer", &g.players, name) }

// AddJuror appends a juror to the jury.
func (g *Game) AddJuror(name string) error { return g.add("AddJuror", &g.jury, name) }

// AddCriterion appends a judged criterion.
func (g *Game) AddCriterion(name string) error { return g.add("AddCriterion", &g.criteria, name) }

// AddPlayers adds each name in order and stops at the first failure.
// Names added before the failure stay in the roster.
func (g *Game) AddPlayers(names ...string) error { return addEach(g.AddPlayer, names) }

// AddJurors adds each name in order and stops at the first failure.
func (g *Game) AddJurors(names ...string) error { return addEach(g.AddJuror, names) }

// AddCriteria adds each name in order and stops at the first failure.
func (g *Game) AddCriteria(names ...string) error { return addEach(g.AddCriterion, names) }

// RemovePlayer removes the first occurrence of name from the player roster.
func (g *Game) RemovePlayer(name string) error {
	return g.remove("RemovePlayer", &g.players, name)
}

// RemoveJuror removes the first occurrence of name from the jury.
func (g *Game) RemoveJuror(name string) error {
	return g.remove("RemoveJuror", &g.jury, name)
}

// RemoveCriterion removes the first occurrence of name from the criteria.
// It fails with ErrNotFound during setup when name is absent, and always
// fails with ErrInvalidPhase once the game is active.
func (g *Game) RemoveCriterion(name string) error {
	return g.remove("RemoveCriterion", &g.criteria, name)
}

func (g *Game) add(op string, roster *[]string, name string) error {
	if g.phase != PhaseSetup {
		return NewGameError(op, name, ErrInvalidPhase)
	}
	*roster = append(*roster, name)
	return nil
}

func (g *Game) remove(op string, roster *[]string, name string) error {
	if g.phase != PhaseSetup {
		return NewGameError(op, name, ErrInvalidPhase)
	}
	i := slices.Index(*roster, name)
	if i < 0 {
		return NewGameError(op, name, ErrNotFound)
	}
	*roster = slices.Delete(*roster, i, i+1)
	return nil
}

func addEach(add func(string) error, names []string) error {
	for _, name := range names {
		if err := add(name); err != nil {
			return err
		}
	}
	return nil
}

// Set freezes the rosters and starts the game. It shuffles players and
// criteria once, leaves the jury in insertion order, and allocates a score
// matrix with every cell at zero. A second call fails with ErrInvalidPhase.
func (g *Game) Set() error {
	if !g.phase.CanTransitionTo(PhaseActive) {
		return NewGameError("Set", "", ErrInvalidPhase)
	}

	shuffle(g.shuffler, g.players)
	shuffle(g.shuffler, g.criteria)

	g.playerIdx = indexNames(g.players)
	g.criterionIdx = indexNames(g.criteria)
	g.cells = make([][]Cell, len(g.playerIdx))
	for i := range g.cells {
		g.cells[i] = make([]Cell, len(g.criterionIdx))
	}

	g.phase = PhaseActive
	return nil
}

func shuffle(s Shuffler, names []string) {
	s.Shuffle(len(names), func(i, j int) { names[i], names[j] = names[j], names[i] })
}

// indexNames assigns one index per distinct name, in order of first
// occurrence.
func indexNames(names []string) map[string]int {
	idx := make(map[string]int, len(names))
	for _, name := range names {
		if _, ok := idx[name]; !ok {
			idx[name] = len(idx)
		}
	}
	return idx
}

// Judge adds vote to the (player, criterion) cell.
func (g *Game) Judge(player, criterion string, vote int) error {
	const op = "Judge"
	if g.phase != PhaseActive {
		return NewGameError(op, "", ErrInvalidPhase)
	}
	if vote < MinVote || vote > MaxVote {
		return NewGameError(op, strconv.Itoa(vote), ErrInvalidVote)
	}

	cell, err := g.cell(op, player, criterion)
	if err != nil {
		return err
	}
	if cell.Status == CellAveraged {
		return NewGameError(op, CellRef{player, criterion}.String(), ErrAlreadySummarized)
	}

	cell.Sum += vote
	cell.Votes++
	return nil
}

// SummarizeTurn replaces the (player, criterion) vote sum with its average
// over the jury roster size and returns that average. Each cell can be
// summarized once; later calls fail with ErrAlreadySummarized.
func (g *Game) SummarizeTurn(player, criterion string) (float64, error) {
	const op = "SummarizeTurn"
	if g.phase != PhaseActive {
		return 0, NewGameError(op, "", ErrInvalidPhase)
	}

	cell, err := g.cell(op, player, criterion)
	if err != nil {
		return 0, err
	}
	if cell.Status == CellAveraged {
		return 0, NewGameError(op, CellRef{player, criterion}.String(), ErrAlreadySummarized)
	}
	if len(g.jury) == 0 {
		return 0, NewGameError(op, CellRef{player, criterion}.String(), ErrEmptyJury)
	}

	cell.Average = float64(cell.Sum) / float64(len(g.jury))
	cell.Status = CellAveraged
	return cell.Average, nil
}

// FinishTurn reshuffles the player order between criteria. Scores and
// criteria are untouched.
func (g *Game) FinishTurn() error {
	if g.phase != PhaseActive {
		return NewGameError("FinishTurn", "", ErrInvalidPhase)
	}
	shuffle(g.shuffler, g.players)
	return nil
}

// FinishGame returns each player's mean cell value across the criteria
// roster. It does not check that cells were summarized: a raw cell
// contributes its vote sum. Use Pending to check first.
func (g *Game) FinishGame() (map[string]float64, error) {
	const op = "FinishGame"
	if g.phase != PhaseActive {
		return nil, NewGameError(op, "", ErrInvalidPhase)
	}
	if len(g.criteria) == 0 {
		return nil, NewGameError(op, "", ErrNoCriteria)
	}

	final := make(map[string]float64, len(g.playerIdx))
	for _, player := range g.players {
		row := g.cells[g.playerIdx[player]]
		var total float64
		for _, criterion := range g.criteria {
			total += row[g.criterionIdx[criterion]].Value()
		}
		final[player] = total / float64(len(g.criteria))
	}
	return final, nil
}

// Cell returns a copy of the (player, criterion) cell.
func (g *Game) Cell(player, criterion string) (Cell, error) {
	const op = "Cell"
	if g.phase != PhaseActive {
		return Cell{}, NewGameError(op, "", ErrInvalidPhase)
	}
	cell, err := g.cell(op, player, criterion)
	if err != nil {
		return Cell{}, err
	}
	return *cell, nil
}

func (g *Game) cell(op, player, criterion string) (*Cell, error) {
	row, ok := g.playerIdx[player]
	if !ok {
		return nil, NewGameError(op, player, ErrNotFound)
	}
	col, ok := g.criterionIdx[criterion]
	if !ok {
		return nil, NewGameError(op, criterion, ErrNotFound)
	}
	return &g.cells[row][col], nil
}

// Scores returns a snapshot of the score matrix as player -> criterion ->
// value. It is nil while the game is in setup.
func (g *Game) Scores() map[string]map[string]float64 {
	if g.phase != PhaseActive {
		return nil
	}
	scores := make(map[string]map[string]float64, len(g.playerIdx))
	for player, row := range g.playerIdx {
		byCriterion := make(map[string]float64, len(g.criterionIdx))
		for criterion, col := range g.criterionIdx {
			byCriterion[criterion] = g.cells[row][col].Value()
		}
		scores[player] = byCriterion
	}
	return scores
}

// Pending lists the cells that have not been summarized yet, in player and
// criteria roster order. It is nil while the game is in setup.
func (g *Game) Pending() []CellRef {
	if g.phase != PhaseActive {
		return nil
	}
	var pending []CellRef
	seen := make(map[CellRef]bool)
	for _, player := range g.players {
		row := g.cells[g.playerIdx[player]]
		for _, criterion := range g.criteria {
			ref := CellRef{Player: player, Criterion: criterion}
			if seen[ref] {
				continue
			}
			seen[ref] = true
			if row[g.criterionIdx[criterion]].Status == CellRaw {
				pending = append(pending, ref)
			}
		}
	}
	return pending
}
