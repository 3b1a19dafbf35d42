// Package bot is a scripted client of the line protocol. It logs in, places
// a fleet and plays until the game ends.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"ctchen222/Battleship/internal/game"
	"ctchen222/Battleship/pkg/proto"
)

// maxRejectedShots stops a bot whose shots keep being refused.
const maxRejectedShots = 10

// LineConn is the client end of a connection.
type LineConn interface {
	ReadLine() (string, error)
	WriteLine(line string) error
	Close() error
}

// Result summarises a finished game from the bot's side.
type Result struct {
	Opponent string
	Won      bool
	Forfeit  bool
	Shots    int
	Hits     int
}

// Bot plays one game per Play call.
type Bot struct {
	Name       string
	Token      string
	Difficulty Difficulty
	// Fleet defaults to a random legal layout.
	Fleet []Ship

	rng *rand.Rand
	log *slog.Logger
}

// New creates a bot. seed makes its fleet and shots reproducible.
func New(name string, difficulty Difficulty, seed uint64) *Bot {
	return &Bot{
		Name:       name,
		Difficulty: difficulty,
		rng:        rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		log:        slog.Default().With("player.name", name, "bot.difficulty", string(difficulty)),
	}
}

type play struct {
	bot      *Bot
	conn     LineConn
	tracking Tracking
	result   Result
	finished bool
	pending  *game.Coord
	refusals int
}

// Play runs the conversation on conn until the server ends it. conn is
// closed when ctx is cancelled.
func (b *Bot) Play(ctx context.Context, conn LineConn) (Result, error) {
	if b.rng == nil {
		b.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if b.log == nil {
		b.log = slog.Default().With("player.name", b.Name)
	}
	if len(b.Fleet) == 0 {
		b.Fleet = RandomFleet(b.rng)
	}

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	p := &play{bot: b, conn: conn}
	login := "LOGIN: " + b.Name
	if b.Token != "" {
		login += " " + b.Token
	}
	if err := conn.WriteLine(login); err != nil {
		return p.result, fmt.Errorf("sending login: %w", err)
	}

	for {
		line, err := conn.ReadLine()
		if err != nil {
			if p.finished {
				return p.result, nil
			}
			if ctx.Err() != nil {
				return p.result, ctx.Err()
			}
			return p.result, fmt.Errorf("connection lost before the game ended: %w", err)
		}
		done, err := p.handle(line)
		if err != nil {
			return p.result, err
		}
		if done {
			return p.result, nil
		}
	}
}

func (p *play) handle(line string) (bool, error) {
	switch {
	case line == proto.LineGoodbye:
		return true, nil
	case strings.HasPrefix(line, "OPPONENT: "):
		p.result.Opponent = strings.TrimPrefix(line, "OPPONENT: ")
	case strings.HasPrefix(line, "INFO: Place your ships"):
		return false, p.placeFleet()
	case line == game.MsgYourTurn:
		return false, p.fire()
	case strings.HasPrefix(line, "HIT:"), strings.HasPrefix(line, "MISS:"), strings.HasPrefix(line, "SUNK:"):
		return false, p.shotResult(line)
	case line == game.MsgYouWon, line == game.MsgOpponentForfeited:
		p.finished, p.result.Won = true, true
		p.result.Forfeit = line == game.MsgOpponentForfeited
	case line == game.MsgYouLost, line == game.MsgYouForfeited:
		p.finished = true
		p.result.Forfeit = line == game.MsgYouForfeited
	case strings.HasPrefix(line, "ERROR: "):
		return false, p.rejected(line)
	}
	return false, nil
}

func (p *play) placeFleet() error {
	for _, s := range p.bot.Fleet {
		parts := make([]string, 0, len(s.Cells)+2)
		parts = append(parts, "PLACE", string(s.Type))
		for _, c := range s.Cells {
			parts = append(parts, c.String())
		}
		if err := p.conn.WriteLine(strings.Join(parts, " ")); err != nil {
			return fmt.Errorf("placing %s: %w", s.Type, err)
		}
	}
	return nil
}

func (p *play) fire() error {
	target, ok := NextShot(&p.tracking, p.bot.Difficulty, p.bot.rng)
	if !ok {
		return errors.New("no squares left to target")
	}
	p.pending = &target
	p.result.Shots++
	return p.conn.WriteLine("FIRE " + target.String())
}

// shotResult applies a result line. Both players see every shot; only the
// first result after our own FIRE belongs to us.
func (p *play) shotResult(line string) error {
	if p.pending == nil {
		return nil
	}
	target := *p.pending
	p.pending = nil

	kind, rest, _ := strings.Cut(line, ":")
	switch kind {
	case "MISS":
		p.tracking.Record(target, Miss)
	case "HIT":
		p.result.Hits++
		p.tracking.Record(target, Hit)
	case "SUNK":
		p.result.Hits++
		var cells []game.Coord
		for _, raw := range strings.Fields(rest) {
			c, err := proto.ParseCoord(raw)
			if err != nil {
				return fmt.Errorf("unreadable sunk line %q: %w", line, err)
			}
			cells = append(cells, c)
		}
		p.tracking.RecordSunk(cells)
	}
	return nil
}

// rejected retries after a refused shot; other errors are only logged.
func (p *play) rejected(line string) error {
	p.bot.log.Warn("Server rejected a command", "line", line)
	if p.pending == nil {
		return nil
	}
	p.tracking.Record(*p.pending, Miss)
	p.pending = nil
	p.result.Shots--
	p.refusals++
	if p.refusals > maxRejectedShots {
		return fmt.Errorf("too many rejected shots, last: %s", line)
	}
	return p.fire()
}
