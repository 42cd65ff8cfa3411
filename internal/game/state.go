package game

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/google/uuid"

	"snakebattle/pkg/realtime"
)

// Phase is the room's lifecycle stage.
type Phase uint8

const (
	Lobby Phase = iota
	Countdown
	Playing
	GameOver
)

var phaseNames = [4]string{"Lobby", "Countdown", "Playing", "GameOver"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", uint8(p))
}

func (p Phase) MarshalText() ([]byte, error) {
	if int(p) >= len(phaseNames) {
		return nil, fmt.Errorf("invalid phase %d", uint8(p))
	}
	return []byte(phaseNames[p]), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	for i, name := range phaseNames {
		if name == string(b) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", b)
}

// Difficulty selects a bot strategy.
type Difficulty uint8

const (
	BotEasy Difficulty = iota
	BotMedium
	BotHard
)

var difficultyNames = [3]string{"Easy", "Medium", "Hard"}

func (d Difficulty) String() string {
	if int(d) < len(difficultyNames) {
		return difficultyNames[d]
	}
	return fmt.Sprintf("Difficulty(%d)", uint8(d))
}

// ParseDifficulty resolves a difficulty name.
func ParseDifficulty(s string) (Difficulty, error) {
	for i, name := range difficultyNames {
		if name == s {
			return Difficulty(i), nil
		}
	}
	return 0, fmt.Errorf("unknown difficulty %q", s)
}

func (d Difficulty) MarshalText() ([]byte, error) {
	if int(d) >= len(difficultyNames) {
		return nil, fmt.Errorf("invalid difficulty %d", uint8(d))
	}
	return []byte(difficultyNames[d]), nil
}

func (d *Difficulty) UnmarshalText(b []byte) error {
	v, err := ParseDifficulty(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Player is one participant in a room, human or bot.
type Player struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id,omitempty"`
	AccessToken string         `json:"-"`
	Name        string         `json:"name"`
	Snake       Snake          `json:"snake"`
	Ready       bool           `json:"ready"`
	Active      *ActivePowerUp `json:"active_power,omitempty"`
	Bot         bool           `json:"is_bot"`
	Difficulty  *Difficulty    `json:"difficulty,omitempty"`
	Slot        int            `json:"slot"`
}

// Linked reports whether the player's score should be submitted.
func (p *Player) Linked() bool {
	return !p.Bot && p.UserID != "" && p.AccessToken != ""
}

var (
	ErrRoomFull      = errors.New("room is full")
	ErrInProgress    = errors.New("game already in progress")
	ErrAlreadyJoined = errors.New("already joined")
	ErrNotJoined     = errors.New("not joined")
	ErrNotReady      = errors.New("not all players are ready")
	ErrWrongPhase    = errors.New("not allowed in current phase")
)

// State is one room's complete game state.
type State struct {
	Phase      Phase              `json:"phase"`
	Players    map[string]*Player `json:"players"`
	Food       []Point            `json:"food"`
	PowerUps   []PowerUp          `json:"power_ups"`
	Width      int                `json:"grid_width"`
	Height     int                `json:"grid_height"`
	Winner     string             `json:"winner,omitempty"`
	Countdown  realtime.Countdown `json:"-"`
	SpawnTicks int                `json:"-"`

	Settings Settings `json:"-"`
	Rules    Rules    `json:"-"`
}

// NewState creates an empty lobby sized by settings.
func NewState(settings Settings) *State {
	settings = settings.Normalize()
	w, h := settings.MapSize.Dimensions()
	return &State{
		Phase:    Lobby,
		Players:  make(map[string]*Player),
		Width:    w,
		Height:   h,
		Settings: settings,
		Rules:    RulesFor(settings),
	}
}

// PlayerIDs returns player ids in sorted order. Every per-player pass of the
// simulation iterates in this order.
func (s *State) PlayerIDs() []string {
	ids := make([]string, 0, len(s.Players))
	for id := range s.Players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Humans returns the number of non-bot players.
func (s *State) Humans() int {
	n := 0
	for _, p := range s.Players {
		if !p.Bot {
			n++
		}
	}
	return n
}

// AddPlayer admits a human in the lobby, countdown or game-over phases.
func (s *State) AddPlayer(id, name, userID, token string) (*Player, error) {
	if _, ok := s.Players[id]; ok {
		return nil, ErrAlreadyJoined
	}
	if s.Phase == Playing {
		return nil, ErrInProgress
	}
	slot, ok := s.freeSlot()
	if !ok {
		return nil, fmt.Errorf("%w (max %d players)", ErrRoomFull, s.Settings.MaxPlayers)
	}
	if name == "" {
		name = fmt.Sprintf("Player %d", slot+1)
	}
	p := &Player{
		ID:          id,
		UserID:      userID,
		AccessToken: token,
		Name:        name,
		Slot:        slot,
	}
	p.Snake = s.spawnSnake(slot)
	s.Players[id] = p
	return p, nil
}

// AddBot admits a bot. Bots are always ready.
func (s *State) AddBot(d Difficulty) (*Player, error) {
	if s.Phase == Playing {
		return nil, ErrInProgress
	}
	slot, ok := s.freeSlot()
	if !ok {
		return nil, fmt.Errorf("%w (max %d players)", ErrRoomFull, s.Settings.MaxPlayers)
	}
	diff := d
	p := &Player{
		ID:         "bot_" + uuid.NewString(),
		Name:       d.String() + " Bot",
		Ready:      true,
		Bot:        true,
		Difficulty: &diff,
		Slot:       slot,
	}
	p.Snake = s.spawnSnake(slot)
	s.Players[p.ID] = p
	return p, nil
}

// RemovePlayer drops a player and reports whether it existed.
func (s *State) RemovePlayer(id string) bool {
	if _, ok := s.Players[id]; !ok {
		return false
	}
	delete(s.Players, id)
	return true
}

// AllReady reports whether at least one player is present and all are ready.
func (s *State) AllReady() bool {
	if len(s.Players) == 0 {
		return false
	}
	for _, p := range s.Players {
		if !p.Ready {
			return false
		}
	}
	return true
}

func (s *State) freeSlot() (int, bool) {
	if len(s.Players) >= s.Settings.MaxPlayers {
		return 0, false
	}
	var used [MaxPlayers]bool
	for _, p := range s.Players {
		if p.Slot >= 0 && p.Slot < MaxPlayers {
			used[p.Slot] = true
		}
	}
	for i, u := range used {
		if !u {
			return i, true
		}
	}
	return 0, false
}

// SpawnPoint returns the head cell and heading for a spawn slot.
func (s *State) SpawnPoint(slot int) (Point, Direction) {
	switch slot % MaxPlayers {
	case 0:
		return Point{X: 5, Y: s.Height / 2}, Right
	case 1:
		return Point{X: s.Width - 6, Y: s.Height / 2}, Left
	case 2:
		return Point{X: s.Width / 2, Y: 5}, Down
	default:
		return Point{X: s.Width / 2, Y: s.Height - 6}, Up
	}
}

func (s *State) spawnSnake(slot int) Snake {
	pos, dir := s.SpawnPoint(slot)
	return NewSnake(pos, dir, Colors[slot%MaxPlayers])
}

// InBounds reports whether p lies on the grid.
func (s *State) InBounds(p Point) bool {
	return p.X >= 0 && p.X < s.Width && p.Y >= 0 && p.Y < s.Height
}

// Occupied reports whether p is part of any snake's body, living or dead.
func (s *State) Occupied(p Point) bool {
	for _, pl := range s.Players {
		if pl.Snake.Contains(p) {
			return true
		}
	}
	return false
}

func (s *State) hasFood(p Point) bool {
	for _, f := range s.Food {
		if f == p {
			return true
		}
	}
	return false
}

func (s *State) hasPowerUp(p Point) bool {
	for _, pu := range s.PowerUps {
		if pu.Position == p {
			return true
		}
	}
	return false
}

func (s *State) randomInterior(rng *rand.Rand) Point {
	return Point{
		X: 1 + rng.Intn(max(s.Width-2, 1)),
		Y: 1 + rng.Intn(max(s.Height-2, 1)),
	}
}

// SpawnFood places one food item on a free interior cell. It gives up after
// FoodAttempts rejected placements and reports false.
func (s *State) SpawnFood(rng *rand.Rand) bool {
	for range FoodAttempts {
		p := s.randomInterior(rng)
		if s.Occupied(p) || s.hasFood(p) {
			continue
		}
		s.Food = append(s.Food, p)
		return true
	}
	return false
}

// SpawnPowerUp places a random power-up on a cell holding no snake, food or
// other power-up. It gives up after PowerUpAttempts placements.
func (s *State) SpawnPowerUp(rng *rand.Rand) bool {
	kind := PowerUpTypes[rng.Intn(len(PowerUpTypes))]
	for range PowerUpAttempts {
		p := s.randomInterior(rng)
		if s.Occupied(p) || s.hasFood(p) || s.hasPowerUp(p) {
			continue
		}
		s.PowerUps = append(s.PowerUps, PowerUp{ID: uuid.NewString(), Position: p, Type: kind})
		return true
	}
	return false
}

// StartCountdown moves a ready lobby into the countdown: snakes return to their
// spawn slots, food is re-seeded and power-ups are cleared.
func (s *State) StartCountdown(rng *rand.Rand) error {
	if s.Phase != Lobby {
		return ErrWrongPhase
	}
	if !s.AllReady() {
		return ErrNotReady
	}
	for _, id := range s.PlayerIDs() {
		p := s.Players[id]
		p.Snake = s.spawnSnake(p.Slot)
		p.Active = nil
	}
	s.Food = s.Food[:0]
	for range InitialFood {
		s.SpawnFood(rng)
	}
	s.PowerUps = s.PowerUps[:0]
	s.SpawnTicks = 0
	s.Winner = ""
	s.Phase = Countdown
	s.Countdown.Start(CountdownFrom, s.Rules.TicksPerSecond)
	return nil
}

// ReturnToLobby ends a finished game. Human ready flags are cleared; bots stay
// ready. Room membership is untouched.
func (s *State) ReturnToLobby() error {
	if s.Phase != GameOver {
		return ErrWrongPhase
	}
	s.Phase = Lobby
	for _, p := range s.Players {
		p.Ready = p.Bot
	}
	return nil
}

// Reset returns an abandoned room to an empty lobby.
func (s *State) Reset() {
	s.Phase = Lobby
	s.Food = s.Food[:0]
	s.PowerUps = s.PowerUps[:0]
	s.Winner = ""
	s.Countdown.Clear()
	s.SpawnTicks = 0
}
