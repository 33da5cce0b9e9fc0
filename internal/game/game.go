// internal/game/game.go
package game

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fadugame/fadu/internal/models"
)

// Scoring constants for round resolution.
const (
	emptyHandBonus     = 4 // playing your last card
	callSuccessBonus   = 3
	callFailurePenalty = 2 // subtracted from the caller
	lowestHandAward    = 1 // each true lowest-sum player on a failed call
)

// cardsPerHand is dealt to every player at round start.
const cardsPerHand = 5

// DefaultRoundDelay is the pause between a round ending and the next
// round being dealt.
const DefaultRoundDelay = 5 * time.Second

// persistTimeout bounds the store round-trip during round end.
const persistTimeout = 5 * time.Second

// turnState tracks the current player's progress through their turn.
// It is reset explicitly at round start and after every rotation.
type turnState struct {
	firstAction bool // no draw or play has happened yet this turn
	hasDrawn    bool
}

// Game is the authoritative engine for a single Fadu game: hands, turn
// order, deck, scoring, and round lifecycle. All state is guarded by
// Mu; exported methods take the lock, *Locked helpers assume it is
// held. Broadcasting goes through the injected callbacks so the engine
// is testable without a live transport.
type Game struct {
	ID     uuid.UUID
	HostID uuid.UUID

	// Players in roster order; roster order is the turn order.
	Players []*models.Player

	CurrentRound int
	TotalRounds  int
	Completed    bool

	deck        *deck
	rng         *rand.Rand
	currentIdx  int
	turn        turnState
	roundActive bool

	// RoundDelay is the pause before the next round is dealt.
	RoundDelay time.Duration

	// deferred is the pending next-round (or round-end retry) timer.
	// Cancelled on teardown so destroyed games are never acted on.
	deferred      *time.Timer
	pendingWinner *uuid.UUID
	tornDown      bool

	store       Store
	history     ActionSink
	actionIndex int

	Mu sync.Mutex

	BroadcastFn         BroadcastFunc
	BroadcastToPlayerFn BroadcastToPlayerFunc

	log *logrus.Entry
}

// NewGame builds the engine for a game aggregate that has just entered
// the playing state. StartRound must be called to deal the first round.
func NewGame(rec *models.GameRecord, store Store, history ActionSink) *Game {
	seed := uint64(time.Now().UnixNano())
	rng := rand.New(rand.NewPCG(seed, seed>>17))

	g := &Game{
		ID:           rec.ID,
		HostID:       rec.HostID,
		CurrentRound: rec.CurrentRound,
		TotalRounds:  rec.TotalRounds,
		rng:          rng,
		deck:         newDeck(rng),
		RoundDelay:   DefaultRoundDelay,
		store:        store,
		history:      history,
		log:          logrus.WithField("game", rec.ID),
	}
	for _, entry := range rec.Players {
		g.Players = append(g.Players, &models.Player{
			ID:        entry.UserID,
			Username:  entry.Username,
			Connected: entry.Connected,
		})
	}
	if idx := g.playerIndex(rec.HostID); idx >= 0 {
		g.currentIdx = idx
	}
	return g
}

// StartRound deals a new round. Safe to call from the deferred timer;
// it is a no-op once the game has completed or been torn down.
func (g *Game) StartRound() {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	g.startRoundLocked()
}

// startRoundLocked resets per-round state, deals hands, flips the first
// discard and notifies the starter. Assumes lock is held.
func (g *Game) startRoundLocked() {
	if g.Completed || g.tornDown || g.roundActive {
		return
	}

	// Round one starts from the freshly built deck; later rounds return
	// every dealt card to the draw pile so the same 52 cards circulate.
	if g.CurrentRound <= 1 {
		g.CurrentRound = 1
		g.deck = newDeck(g.rng)
	} else {
		hands := make([][]models.Card, len(g.Players))
		for i, p := range g.Players {
			hands[i] = p.Hand
		}
		g.deck.reclaim(hands...)
	}

	for _, p := range g.Players {
		p.Hand = nil
		p.RoundScore = 0
	}

	for _, p := range g.Players {
		for i := 0; i < cardsPerHand; i++ {
			card, _, err := g.deck.draw()
			if err != nil {
				g.log.WithError(err).Error("deck exhausted during deal")
				g.emit(errorEvent(uuid.Nil, "Failed to start round"))
				return
			}
			p.Hand = append(p.Hand, card)
		}
	}

	// Flip one card to seed the discard pile.
	card, _, err := g.deck.draw()
	if err != nil {
		g.log.WithError(err).Error("deck exhausted flipping first discard")
		g.emit(errorEvent(uuid.Nil, "Failed to start round"))
		return
	}
	g.deck.discard(card)

	// Round one is opened by the host; later rounds by the previous
	// round's winner (set by endRoundLocked).
	if g.CurrentRound == 1 {
		if idx := g.playerIndex(g.HostID); idx >= 0 {
			g.currentIdx = idx
		}
	}

	g.turn = turnState{firstAction: true}
	g.roundActive = true

	// The seated starter may have dropped during the inter-round delay;
	// skip ahead so the round never opens waiting on a disconnected
	// player.
	if cur := g.currentPlayer(); cur != nil && !cur.Connected {
		g.rotateTurnLocked()
	}

	g.logAction(uuid.Nil, "round_start", map[string]interface{}{"round": g.CurrentRound})
	g.broadcastStateLocked()
	g.notifyTurnLocked()
}

// PlayCard moves the card at cardIndex from the player's hand to the
// discard top. Playing the last card awards the empty-hand bonus and
// ends the round; otherwise the turn rotates.
func (g *Game) PlayCard(userID uuid.UUID, cardIndex int) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	player, err := g.checkTurn(userID)
	if err != nil {
		return g.reject(userID, err)
	}
	if cardIndex < 0 || cardIndex >= len(player.Hand) {
		return g.reject(userID, ErrInvalidIndex)
	}

	card := player.Hand[cardIndex]
	top := g.deck.top()
	if !g.turn.hasDrawn && card.Rank != top.Rank {
		// A held rank match must be used before drawing is an option.
		if player.HasRank(top.Rank) {
			return g.reject(userID, ErrMustPlayMatchOrDraw)
		}
		return g.reject(userID, ErrMustDrawFirst)
	}

	player.Hand = append(player.Hand[:cardIndex], player.Hand[cardIndex+1:]...)
	g.deck.discard(card)
	g.logAction(userID, "play_card", map[string]interface{}{
		"suit": card.Suit, "rank": card.Rank, "index": cardIndex,
	})

	if len(player.Hand) == 0 {
		player.RoundScore += emptyHandBonus
		g.endRoundLocked(userID)
		return nil
	}

	g.rotateTurnLocked()
	g.broadcastStateLocked()
	g.notifyTurnLocked()
	return nil
}

// DrawCard draws one card from the draw pile into the player's hand,
// reshuffling the discard pile first when the pile runs low. Only the
// drawer learns the card; the room sees the hand-size delta.
func (g *Game) DrawCard(userID uuid.UUID) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	player, err := g.checkTurn(userID)
	if err != nil {
		return g.reject(userID, err)
	}

	card, reshuffled, err := g.deck.draw()
	if reshuffled {
		g.emit(GameEvent{Type: EventDeckReshuffled})
		g.logAction(uuid.Nil, "deck_reshuffled", nil)
	}
	if err != nil {
		// Unreachable while card conservation holds; fatal for the round.
		g.log.Error("draw pile exhausted after reshuffle")
		g.emit(errorEvent(uuid.Nil, ErrDeckExhausted.Error()))
		return err
	}

	player.Hand = append(player.Hand, card)
	g.turn.hasDrawn = true
	g.turn.firstAction = false

	g.logAction(userID, "draw_card", nil)
	g.emit(GameEvent{Type: EventCardDrawn, Payload: map[string]interface{}{
		"userId":   userID.String(),
		"handSize": len(player.Hand),
	}})
	g.sendHandLocked(player)
	return nil
}

// MakeCall resolves a claim that the caller holds the uniquely lowest
// hand sum. Legal only before the caller has drawn this turn. Always
// ends the round.
func (g *Game) MakeCall(userID uuid.UUID) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	player, err := g.checkTurn(userID)
	if err != nil {
		return g.reject(userID, err)
	}
	if !g.turn.firstAction || g.turn.hasDrawn {
		return g.reject(userID, ErrCallWindowClosed)
	}

	// Hand sums and the lowest-sum set, in roster order so tie-breaks
	// are deterministic.
	handValues := make(map[string]int, len(g.Players))
	lowest := 0
	var lowestPlayers []uuid.UUID
	for i, p := range g.Players {
		sum := p.HandSum()
		handValues[p.ID.String()] = sum
		switch {
		case i == 0 || sum < lowest:
			lowest = sum
			lowestPlayers = []uuid.UUID{p.ID}
		case sum == lowest:
			lowestPlayers = append(lowestPlayers, p.ID)
		}
	}

	successful := len(lowestPlayers) == 1 && lowestPlayers[0] == userID

	var winner uuid.UUID
	var message string
	if successful {
		player.RoundScore += callSuccessBonus
		winner = userID
		message = player.Username + " made a successful call and earned 3 points!"
	} else {
		player.RoundScore -= callFailurePenalty
		for _, id := range lowestPlayers {
			if id == userID {
				continue
			}
			if lp := g.playerByID(id); lp != nil {
				lp.RoundScore += lowestHandAward
			}
			if winner == uuid.Nil {
				winner = id
			}
		}
		message = player.Username + " made an unsuccessful call and lost 2 points. Players with the lowest sum earned 1 point each."
	}

	payload := map[string]interface{}{
		"userId":     userID.String(),
		"successful": successful,
		"handValues": handValues,
		"message":    message,
	}
	if !successful {
		ids := make([]string, 0, len(lowestPlayers))
		for _, id := range lowestPlayers {
			ids = append(ids, id.String())
		}
		payload["lowestPlayers"] = ids
	}
	g.logAction(userID, "make_call", map[string]interface{}{"successful": successful})
	g.emit(GameEvent{Type: EventCallMade, Payload: payload})

	g.endRoundLocked(winner)
	return nil
}

// HandleDisconnect marks the player disconnected and, when it was
// their turn, rotates turn ownership so the game is not stalled. No
// further recovery is attempted; a re-join reactivates the seat.
func (g *Game) HandleDisconnect(userID uuid.UUID) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	player := g.playerByID(userID)
	if player == nil || !player.Connected {
		return
	}
	player.Connected = false
	g.logAction(userID, "player_disconnect", nil)

	if g.roundActive && g.currentPlayer() == player {
		g.rotateTurnLocked()
		g.broadcastStateLocked()
		g.notifyTurnLocked()
		return
	}
	g.broadcastStateLocked()
}

// HandleReconnect reactivates the seat and resynchronizes the player.
func (g *Game) HandleReconnect(userID uuid.UUID) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	player := g.playerByID(userID)
	if player == nil {
		return
	}
	player.Connected = true
	g.logAction(userID, "player_reconnect", nil)

	g.broadcastStateLocked()
	if g.roundActive && g.currentPlayer() == player {
		g.notifyTurnLocked()
	}
}

// Teardown cancels any deferred round start so a destroyed game is
// never acted on by a late timer.
func (g *Game) Teardown() {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	g.tornDown = true
	g.roundActive = false
	if g.deferred != nil {
		g.deferred.Stop()
		g.deferred = nil
	}
	g.pendingWinner = nil
}

// endRoundLocked merges round tallies into the durable cumulative score
// map. The save must succeed before any round-end broadcast goes out;
// on failure the round is not considered advanced and the commit is
// retried. Assumes lock is held.
func (g *Game) endRoundLocked(winnerID uuid.UUID) {
	g.roundActive = false
	g.pendingWinner = nil

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	rec, err := g.store.FetchGame(ctx, g.ID)
	if err != nil {
		g.failRoundEndLocked(winnerID, err)
		return
	}

	// Skip the merge when a prior attempt already committed this round
	// (save reported failure but actually landed); retried commits must
	// not double-apply the deltas.
	if rec.CurrentRound <= g.CurrentRound {
		if rec.Scores == nil {
			rec.Scores = make(map[uuid.UUID]int)
		}
		for _, p := range g.Players {
			rec.Scores[p.ID] += p.RoundScore
		}
		rec.CurrentRound = g.CurrentRound + 1
		if rec.CurrentRound > rec.TotalRounds {
			rec.Status = models.StatusCompleted
		}
		if err := g.store.SaveGame(ctx, rec); err != nil {
			g.failRoundEndLocked(winnerID, err)
			return
		}
	}

	// Committed. Now it is safe to advance in-memory state and speak.
	g.CurrentRound = rec.CurrentRound
	for _, p := range g.Players {
		p.RoundScore = 0
	}
	if idx := g.playerIndex(winnerID); idx >= 0 {
		g.currentIdx = idx
	}

	scores := make(map[string]int, len(rec.Scores))
	for id, s := range rec.Scores {
		scores[id.String()] = s
	}

	if rec.Status == models.StatusCompleted {
		g.completeLocked(ctx, rec, scores)
		return
	}

	g.logAction(uuid.Nil, "round_end", map[string]interface{}{
		"round": rec.CurrentRound - 1, "winner": winnerID.String(),
	})
	g.emit(GameEvent{Type: EventRoundEnded, Payload: map[string]interface{}{
		"roundNumber":      rec.CurrentRound - 1,
		"scores":           scores,
		"nextRoundStarter": winnerID.String(),
	}})

	g.deferred = time.AfterFunc(g.RoundDelay, g.StartRound)
}

// completeLocked finishes the game: final ranking, per-user lifetime
// aggregates, completion broadcast. The aggregate itself is already
// durable at this point. Assumes lock is held.
func (g *Game) completeLocked(ctx context.Context, rec *models.GameRecord, scores map[string]int) {
	g.Completed = true

	// Winners are everyone sharing the maximum cumulative score, in
	// roster order.
	best := 0
	var winners []uuid.UUID
	for i, entry := range rec.Players {
		score := rec.Scores[entry.UserID]
		switch {
		case i == 0 || score > best:
			best = score
			winners = []uuid.UUID{entry.UserID}
		case score == best:
			winners = append(winners, entry.UserID)
		}
	}
	won := make(map[uuid.UUID]bool, len(winners))
	winnerIDs := make([]string, 0, len(winners))
	for _, id := range winners {
		won[id] = true
		winnerIDs = append(winnerIDs, id.String())
	}

	for _, entry := range rec.Players {
		if err := g.store.IncrementUserStats(ctx, entry.UserID, won[entry.UserID], rec.Scores[entry.UserID]); err != nil {
			g.log.WithError(err).WithField("user", entry.UserID).Error("failed to update user stats")
		}
	}

	g.logAction(uuid.Nil, "game_completed", map[string]interface{}{"winners": winnerIDs})
	g.emit(GameEvent{Type: EventGameCompleted, Payload: map[string]interface{}{
		"scores":  scores,
		"winners": winnerIDs,
	}})
	g.log.WithField("winners", winnerIDs).Info("game completed")
}

// failRoundEndLocked reports a persistence failure and schedules a
// commit retry with the same winner. The round is not advanced.
// Assumes lock is held.
func (g *Game) failRoundEndLocked(winnerID uuid.UUID, err error) {
	g.log.WithError(err).Error("failed to persist round end")
	g.emit(errorEvent(uuid.Nil, "Failed to end round"))

	w := winnerID
	g.pendingWinner = &w
	g.deferred = time.AfterFunc(g.RoundDelay, func() {
		g.Mu.Lock()
		defer g.Mu.Unlock()
		if g.pendingWinner == nil || g.Completed || g.tornDown {
			return
		}
		retry := *g.pendingWinner
		g.endRoundLocked(retry)
	})
}

// checkTurn validates that the round is active and that userID is the
// current player. Assumes lock is held.
func (g *Game) checkTurn(userID uuid.UUID) (*models.Player, error) {
	if !g.roundActive {
		return nil, ErrRoundInactive
	}
	player := g.playerByID(userID)
	if player == nil {
		return nil, ErrPlayerNotFound
	}
	if cur := g.currentPlayer(); cur == nil || cur.ID != userID {
		return nil, ErrNotYourTurn
	}
	return player, nil
}

// rotateTurnLocked advances turn ownership to the next connected player
// in roster order (cyclic) and resets the per-turn flags. Assumes lock
// is held.
func (g *Game) rotateTurnLocked() {
	n := len(g.Players)
	if n == 0 {
		return
	}
	for i := 1; i <= n; i++ {
		idx := (g.currentIdx + i) % n
		if g.Players[idx].Connected {
			g.currentIdx = idx
			g.turn = turnState{firstAction: true}
			return
		}
	}
	// Nobody connected; advance anyway so ownership still rotates.
	g.currentIdx = (g.currentIdx + 1) % n
	g.turn = turnState{firstAction: true}
}

// notifyTurnLocked tells the current player it is their turn. canCall
// stays open until they draw; mustDraw when they hold no rank match
// for the discard top. Assumes lock is held.
func (g *Game) notifyTurnLocked() {
	cur := g.currentPlayer()
	if cur == nil || !g.roundActive {
		return
	}
	mustDraw := true
	if top := g.deck.top(); top != nil {
		mustDraw = !cur.HasRank(top.Rank)
	}
	g.emitToPlayer(cur.ID, GameEvent{Type: EventYourTurn, Payload: map[string]interface{}{
		"canCall":  g.turn.firstAction && !g.turn.hasDrawn,
		"mustDraw": mustDraw,
	}})
}

// broadcastStateLocked sends the public snapshot room-wide and each
// connected player their private hand. Assumes lock is held.
func (g *Game) broadcastStateLocked() {
	g.emit(GameEvent{Type: EventGameStateUpdate, State: g.publicState()})
	for _, p := range g.Players {
		if p.Connected {
			g.sendHandLocked(p)
		}
	}
}

// sendHandLocked sends a player their full hand privately. Assumes
// lock is held.
func (g *Game) sendHandLocked(p *models.Player) {
	hand := make([]models.Card, len(p.Hand))
	copy(hand, p.Hand)
	g.emitToPlayer(p.ID, GameEvent{Type: EventUpdateHand, Payload: map[string]interface{}{
		"hand": hand,
	}})
}

// reject reports a validation failure to the acting player only.
// Assumes lock is held.
func (g *Game) reject(userID uuid.UUID, err error) error {
	g.emitToPlayer(userID, errorEvent(userID, err.Error()))
	return err
}

func (g *Game) emit(ev GameEvent) {
	if g.BroadcastFn == nil {
		g.log.WithField("event", ev.Type).Warn("BroadcastFn is nil, dropping event")
		return
	}
	g.BroadcastFn(ev)
}

func (g *Game) emitToPlayer(playerID uuid.UUID, ev GameEvent) {
	if g.BroadcastToPlayerFn == nil {
		g.log.WithField("event", ev.Type).Warn("BroadcastToPlayerFn is nil, dropping event")
		return
	}
	if p := g.playerByID(playerID); p != nil && !p.Connected {
		return
	}
	g.BroadcastToPlayerFn(playerID, ev)
}

func (g *Game) currentPlayer() *models.Player {
	if g.currentIdx < 0 || g.currentIdx >= len(g.Players) {
		return nil
	}
	return g.Players[g.currentIdx]
}

func (g *Game) playerByID(userID uuid.UUID) *models.Player {
	for _, p := range g.Players {
		if p.ID == userID {
			return p
		}
	}
	return nil
}

func (g *Game) playerIndex(userID uuid.UUID) int {
	for i, p := range g.Players {
		if p.ID == userID {
			return i
		}
	}
	return -1
}

// logAction publishes an action record to the historian, if one is
// configured. Assumes lock is held for the index increment; publishing
// itself is asynchronous and best-effort.
func (g *Game) logAction(actorID uuid.UUID, actionType string, payload map[string]interface{}) {
	if g.history == nil {
		return
	}
	g.actionIndex++
	if payload == nil {
		payload = map[string]interface{}{}
	}
	rec := ActionRecord{
		GameID:      g.ID,
		ActionIndex: g.actionIndex,
		ActorUserID: actorID,
		ActionType:  actionType,
		Payload:     payload,
		Timestamp:   time.Now().UnixMilli(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := g.history.PublishAction(ctx, rec); err != nil {
			g.log.WithError(err).WithField("action", rec.ActionType).Error("failed publishing action record")
		}
	}()
}
