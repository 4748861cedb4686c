package player

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/hesabu/core"
	"github.com/trezcool/hesabu/core/abacus"
	"github.com/trezcool/hesabu/core/assignment"
)

type Phase string

const (
	PhaseLoading        Phase = "loading"
	PhasePlaying        Phase = "playing"
	PhasePaused         Phase = "paused"
	PhaseCompleted      Phase = "completed"
	PhaseAnswerRevealed Phase = "answer_revealed"
	PhaseFinished       Phase = "finished"
)

// ErrClosed is returned by the commands sent to a Session that is not running anymore.
var ErrClosed = errors.New("player session closed")

// State is a snapshot of a Session.
type State struct {
	SessionID      string   `json:"session_id"`
	AssignmentID   string   `json:"assignment_id"`
	Phase          Phase    `json:"phase"`
	QuestionIndex  int      `json:"question_index"`
	QuestionCount  int      `json:"question_count"`
	QuestionLabel  string   `json:"question_label"`
	Tokens         []string `json:"tokens"`
	Cursor         int      `json:"cursor"`
	Current        string   `json:"current"` // token on screen, empty once completed
	Display        string   `json:"display"` // Current with the abacus glyphs
	Paused         bool     `json:"paused"`
	Completed      bool     `json:"completed"`
	AnswerRevealed bool     `json:"answer_revealed"`
	Answer         string   `json:"answer,omitempty"`
	CanNext        bool     `json:"can_next"`
	CanPrevious    bool     `json:"can_previous"`
	CanHome        bool     `json:"can_home"`
	Beeps          int      `json:"beeps"` // one per token shown
}

type Option func(*Session)

func WithClock(clock Clock) Option {
	return func(s *Session) { s.clock = clock }
}

func WithLogger(logger core.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

type command struct {
	fn    func()
	reply chan State
}

// Session plays an Assignment back, one token at a time.
// All of its state is owned by the Run loop; the other methods only send commands to it.
type Session struct {
	id       string
	asg      assignment.Assignment
	interval time.Duration
	clock    Clock
	logger   core.Logger

	cmds    chan command
	fires   chan uint64
	updates chan State
	done    chan struct{}

	// loop state
	index     int
	tokens    []string
	cursor    int
	paused    bool
	completed bool
	revealed  bool
	answer    string
	finished  bool
	beeps     int
	timer     Timer
	gen       uint64 // generation of the armed timer
}

func NewSession(asg assignment.Assignment, opts ...Option) *Session {
	s := &Session{
		id:       uuid.NewString(),
		asg:      asg,
		interval: asg.Interval(),
		clock:    realClock{},
		cmds:     make(chan command),
		fires:    make(chan uint64),
		updates:  make(chan State, 1),
		done:     make(chan struct{}),
		tokens:   []string{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.updates <- State{
		SessionID:     s.id,
		AssignmentID:  asg.ID,
		Phase:         PhaseLoading,
		QuestionCount: len(asg.Sequence),
		Tokens:        []string{},
	}
	return s
}

func (s *Session) ID() string { return s.id }

// Updates streams the state after every change. Slow readers only miss intermediate states.
// The channel is closed when Run returns.
func (s *Session) Updates() <-chan State { return s.updates }

// Done is closed when Run returns.
func (s *Session) Done() <-chan struct{} { return s.done }

// Run plays the Assignment until it is finished (nil) or ctx is done (ctx.Err()).
func (s *Session) Run(ctx context.Context) error {
	defer func() {
		s.stopTimer()
		close(s.done)
		close(s.updates)
	}()

	if len(s.asg.Sequence) == 0 {
		s.finished = true
		s.publish()
		return nil
	}
	s.load(0)
	s.publish()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-s.cmds:
			cmd.fn()
			st := s.publish()
			cmd.reply <- st
			if s.finished {
				return nil
			}
		case gen := <-s.fires:
			if gen != s.gen || s.timer == nil {
				continue // stale
			}
			s.timer = nil
			s.cursor++
			s.show()
			s.publish()
		}
	}
}

func (s *Session) do(ctx context.Context, fn func()) (State, error) {
	cmd := command{fn: fn, reply: make(chan State, 1)}
	select {
	case s.cmds <- cmd:
	case <-s.done:
		return State{}, ErrClosed
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
	return <-cmd.reply, nil
}

func (s *Session) Snapshot(ctx context.Context) (State, error) {
	return s.do(ctx, func() {})
}

func (s *Session) Pause(ctx context.Context) (State, error) {
	return s.do(ctx, s.pause)
}

func (s *Session) Resume(ctx context.Context) (State, error) {
	return s.do(ctx, s.resume)
}

func (s *Session) TogglePause(ctx context.Context) (State, error) {
	return s.do(ctx, func() {
		if s.paused {
			s.resume()
		} else {
			s.pause()
		}
	})
}

// RevealAnswer evaluates the question once all of its tokens were shown.
func (s *Session) RevealAnswer(ctx context.Context) (State, error) {
	return s.do(ctx, func() {
		if !s.completed || s.revealed {
			return
		}
		s.answer = abacus.Evaluate(abacus.Join(s.tokens)).String()
		s.revealed = true
	})
}

func (s *Session) Next(ctx context.Context) (State, error) {
	return s.do(ctx, func() {
		if s.completed && s.index < len(s.asg.Sequence)-1 {
			s.load(s.index + 1)
		}
	})
}

func (s *Session) Previous(ctx context.Context) (State, error) {
	return s.do(ctx, func() {
		if s.completed && s.index > 0 {
			s.load(s.index - 1)
		}
	})
}

// Home leaves the player. Run returns once the final state is published.
func (s *Session) Home(ctx context.Context) (State, error) {
	return s.do(ctx, func() {
		s.stopTimer()
		s.finished = true
	})
}

// Do applies a named command: pause, resume, toggle, answer, next, previous or home.
func (s *Session) Do(ctx context.Context, name string) (State, error) {
	switch name {
	case "pause":
		return s.Pause(ctx)
	case "resume":
		return s.Resume(ctx)
	case "toggle":
		return s.TogglePause(ctx)
	case "answer":
		return s.RevealAnswer(ctx)
	case "next":
		return s.Next(ctx)
	case "previous":
		return s.Previous(ctx)
	case "home":
		return s.Home(ctx)
	case "state":
		return s.Snapshot(ctx)
	}
	return State{}, errors.Errorf("unknown command %q", name)
}

func (s *Session) load(i int) {
	s.stopTimer()
	s.index = i
	s.tokens = abacus.Tokenize(s.asg.Sequence[i].Question)
	s.cursor = 0
	s.paused = false
	s.completed = false
	s.revealed = false
	s.answer = ""
	if s.logger != nil {
		s.logger.Debug(fmt.Sprintf("session %s: %s question %d %v", s.id, s.asg.ID, i+1, s.tokens))
	}
	s.show()
}

// show puts the token under the cursor on screen and arms the timer moving past it.
func (s *Session) show() {
	if s.cursor >= len(s.tokens) {
		s.stopTimer()
		s.completed = true
		return
	}
	s.beeps++
	s.arm()
}

func (s *Session) arm() {
	s.stopTimer()
	gen := s.gen
	s.timer = s.clock.AfterFunc(s.interval, func() {
		select {
		case s.fires <- gen:
		case <-s.done:
		}
	})
}

// stopTimer also invalidates a fire that is already on its way.
func (s *Session) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

func (s *Session) pause() {
	if s.paused || s.completed {
		return
	}
	s.paused = true
	s.stopTimer()
}

// resume shows the current token again for a whole interval.
func (s *Session) resume() {
	if !s.paused {
		return
	}
	s.paused = false
	s.show()
}

func (s *Session) phase() Phase {
	switch {
	case s.finished:
		return PhaseFinished
	case s.revealed:
		return PhaseAnswerRevealed
	case s.completed:
		return PhaseCompleted
	case s.paused:
		return PhasePaused
	}
	return PhasePlaying
}

func (s *Session) snapshot() State {
	count := len(s.asg.Sequence)
	st := State{
		SessionID:      s.id,
		AssignmentID:   s.asg.ID,
		Phase:          s.phase(),
		QuestionIndex:  s.index,
		QuestionCount:  count,
		Tokens:         append([]string{}, s.tokens...),
		Cursor:         s.cursor,
		Paused:         s.paused,
		Completed:      s.completed,
		AnswerRevealed: s.revealed,
		Answer:         s.answer,
		Beeps:          s.beeps,
	}
	if count > 0 {
		st.QuestionLabel = abacus.QuestionLabel(s.index)
	}
	if s.cursor < len(s.tokens) {
		st.Current = s.tokens[s.cursor]
		st.Display = abacus.FormatForDisplay(st.Current)
	}
	if s.completed && !s.finished {
		st.CanNext = s.index < count-1
		st.CanPrevious = s.index > 0
		st.CanHome = s.index == count-1
	}
	return st
}

// publish replaces the pending update, if any. Only the Run loop sends.
func (s *Session) publish() State {
	st := s.snapshot()
	select {
	case <-s.updates:
	default:
	}
	s.updates <- st
	return st
}
