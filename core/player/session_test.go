package player

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/hesabu/core/assignment"
)

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.clock.leaky {
		return false // too late: already firing
	}
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
	leaky  bool // Stop does not prevent the fire
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the time forward and fires the timers that are due, outside of the lock.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due, pending []*fakeTimer
	for _, t := range c.timers {
		switch {
		case t.stopped:
		case !t.at.After(c.now):
			t.stopped = true
			due = append(due, t)
		default:
			pending = append(pending, t)
		}
	}
	c.timers = pending
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

func (c *fakeClock) active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int
	for _, t := range c.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

func newAssignment(interval float64, questions ...string) assignment.Assignment {
	na := assignment.NewAssignment{NumQuestions: len(questions), TimeInterval: interval, Questions: questions}
	return assignment.Assignment{
		ID:           "Assignment-1",
		CreatedAt:    time.Now().UTC(),
		NumQuestions: na.NumQuestions,
		TimeInterval: na.TimeInterval,
		Sequence:     na.Sequence(),
	}
}

type harness struct {
	t     *testing.T
	ctx   context.Context
	clock *fakeClock
	s     *Session
	errc  chan error
}

func start(t *testing.T, asg assignment.Assignment) *harness {
	ctx, cancel := context.WithCancel(context.Background())
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	h := &harness{t: t, ctx: ctx, clock: clock, s: NewSession(asg, WithClock(clock)), errc: make(chan error, 1)}
	go func() { h.errc <- h.s.Run(ctx) }()
	t.Cleanup(cancel)

	// wait for the first question to be loaded; sessions without questions are already closed
	_, _ = h.s.Snapshot(ctx)
	return h
}

func (h *harness) state() State {
	st, err := h.s.Snapshot(h.ctx)
	require.NoError(h.t, err)
	return st
}

// step advances the clock then waits for the loop to have handled the fires.
func (h *harness) step(d time.Duration) State {
	h.clock.Advance(d)
	return h.state()
}

func (h *harness) do(cmd string) State {
	st, err := h.s.Do(h.ctx, cmd)
	require.NoError(h.t, err)
	return st
}

func TestSession_reveal(t *testing.T) {
	h := start(t, newAssignment(1, "1+2-3*2"))

	st := h.state()
	assert.Equal(t, PhasePlaying, st.Phase)
	assert.Equal(t, "A", st.QuestionLabel)
	assert.Equal(t, []string{"1", "+2", "-3", "*2"}, st.Tokens)
	assert.Equal(t, 0, st.Cursor)
	assert.Equal(t, "1", st.Current)
	assert.Equal(t, 1, st.Beeps)

	st = h.step(999 * time.Millisecond)
	assert.Equal(t, 0, st.Cursor)

	st = h.step(time.Millisecond)
	assert.Equal(t, 1, st.Cursor)
	assert.Equal(t, "+2", st.Current)
	assert.Equal(t, 2, st.Beeps)

	h.step(time.Second)
	st = h.step(time.Second)
	assert.Equal(t, "*2", st.Current)
	assert.Equal(t, "x2", st.Display)
	assert.False(t, st.Completed)

	st = h.step(time.Second)
	assert.True(t, st.Completed)
	assert.Equal(t, PhaseCompleted, st.Phase)
	assert.Equal(t, 4, st.Cursor)
	assert.Equal(t, "", st.Current)
	assert.Equal(t, 4, st.Beeps)
	assert.True(t, st.CanHome)
	assert.False(t, st.CanNext)
	assert.False(t, st.CanPrevious)
	assert.Zero(t, h.clock.active())

	// completion is terminal for the question
	st = h.step(10 * time.Second)
	assert.Equal(t, 4, st.Cursor)
	assert.Equal(t, 4, st.Beeps)
}

func TestSession_pauseResume(t *testing.T) {
	h := start(t, newAssignment(2, "5+5+5"))

	st := h.step(2 * time.Second)
	assert.Equal(t, 1, st.Cursor)

	st = h.do("pause")
	assert.Equal(t, PhasePaused, st.Phase)
	assert.True(t, st.Paused)
	assert.Zero(t, h.clock.active())

	// paused: the cursor never moves
	st = h.step(time.Minute)
	assert.Equal(t, 1, st.Cursor)
	assert.Equal(t, 2, st.Beeps)

	// answer is not available before completion
	st = h.do("answer")
	assert.False(t, st.AnswerRevealed)

	st = h.do("toggle")
	assert.Equal(t, PhasePlaying, st.Phase)
	assert.Equal(t, 1, st.Cursor)
	assert.Equal(t, 3, st.Beeps) // token on screen beeps again

	// resume restarts a whole interval
	st = h.step(1999 * time.Millisecond)
	assert.Equal(t, 1, st.Cursor)
	st = h.step(time.Millisecond)
	assert.Equal(t, 2, st.Cursor)

	st = h.do("resume") // not paused: no-op
	assert.Equal(t, 4, st.Beeps)
	assert.Equal(t, 1, h.clock.active())
}

func TestSession_zeroInterval(t *testing.T) {
	for _, interval := range []float64{0, -1} {
		h := start(t, newAssignment(interval, "1+2+3"))

		st := h.state()
		assert.Equal(t, 0, st.Cursor)
		assert.Equal(t, 1, st.Beeps)

		// each due fire moves the cursor exactly once
		for want := 1; want <= 2; want++ {
			st = h.step(0)
			assert.Equal(t, want, st.Cursor, "interval %v", interval)
			assert.Equal(t, want+1, st.Beeps, "interval %v", interval)
			assert.False(t, st.Completed)
		}

		st = h.step(0)
		assert.Equal(t, 3, st.Cursor)
		assert.True(t, st.Completed)
		assert.Equal(t, PhaseCompleted, st.Phase)
		assert.Zero(t, h.clock.active())
	}
}

func TestSession_answer(t *testing.T) {
	tests := []struct {
		name     string
		question string
		want     string
	}{
		{name: "sum", question: "1+2-3*2", want: "-3"},
		{name: "division", question: "10/4", want: "2.5"},
		{name: "division by zero", question: "10/0", want: "Invalid Expression"},
		{name: "glyphs", question: "3×4÷2", want: "6"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := start(t, newAssignment(1, tc.question))
			st := h.state()
			for !st.Completed {
				st = h.step(time.Second)
			}
			st = h.do("answer")
			assert.Equal(t, PhaseAnswerRevealed, st.Phase)
			assert.True(t, st.AnswerRevealed)
			assert.Equal(t, tc.want, st.Answer)
		})
	}
}

func TestSession_emptyQuestion(t *testing.T) {
	h := start(t, newAssignment(1, "no digits here", "7"))

	st := h.state()
	assert.True(t, st.Completed)
	assert.Equal(t, []string{}, st.Tokens)
	assert.Zero(t, st.Beeps)
	assert.True(t, st.CanNext)
	assert.Zero(t, h.clock.active())

	st = h.do("answer")
	assert.Equal(t, "Invalid Expression", st.Answer)
}

func TestSession_navigation(t *testing.T) {
	h := start(t, newAssignment(1, "1+1", "2+2", "3"))

	// not completed yet
	st := h.do("next")
	assert.Equal(t, 0, st.QuestionIndex)
	assert.False(t, st.CanNext)

	h.step(time.Second)
	st = h.step(time.Second)
	require.True(t, st.Completed)
	assert.True(t, st.CanNext)
	assert.False(t, st.CanPrevious)
	assert.False(t, st.CanHome)

	st = h.do("previous") // no neighbour
	assert.Equal(t, 0, st.QuestionIndex)

	st = h.do("answer")
	assert.Equal(t, "2", st.Answer)

	st = h.do("next")
	assert.Equal(t, 1, st.QuestionIndex)
	assert.Equal(t, "B", st.QuestionLabel)
	assert.Equal(t, []string{"2", "+2"}, st.Tokens)
	assert.Equal(t, 0, st.Cursor)
	assert.False(t, st.Completed)
	assert.False(t, st.AnswerRevealed)
	assert.Empty(t, st.Answer)
	assert.Equal(t, 1, h.clock.active())

	h.step(time.Second)
	st = h.step(time.Second)
	require.True(t, st.Completed)
	assert.True(t, st.CanPrevious)

	st = h.do("previous")
	assert.Equal(t, 0, st.QuestionIndex)
	assert.Equal(t, "1", st.Current)

	h.step(time.Second)
	h.step(time.Second)
	h.do("next")
	h.step(time.Second)
	h.step(time.Second)
	st = h.do("next")
	assert.Equal(t, 2, st.QuestionIndex)
	assert.Equal(t, "C", st.QuestionLabel)

	st = h.step(time.Second)
	assert.True(t, st.Completed)
	assert.True(t, st.CanHome)
	assert.False(t, st.CanNext)

	st = h.do("home")
	assert.Equal(t, PhaseFinished, st.Phase)
	assert.NoError(t, <-h.errc)

	_, err := h.s.Snapshot(h.ctx)
	assert.Equal(t, ErrClosed, err)
}

func TestSession_staleTimer(t *testing.T) {
	h := start(t, newAssignment(1, "1+2+3"))
	h.clock.mu.Lock()
	h.clock.leaky = true
	h.clock.mu.Unlock()

	// the stopped timer still fires along with the new one: only the new one may advance
	h.do("pause")
	h.do("resume")
	st := h.step(time.Second)
	assert.Equal(t, 1, st.Cursor)
	assert.Equal(t, 3, st.Beeps)

	st = h.step(time.Second)
	assert.Equal(t, 2, st.Cursor)
}

func TestSession_draft(t *testing.T) {
	h := start(t, assignment.Assignment{ID: "Assignment-2", Sequence: []assignment.Question{}})

	assert.NoError(t, <-h.errc)
	var last State
	for st := range h.s.Updates() {
		last = st
	}
	assert.Equal(t, PhaseFinished, last.Phase)
	assert.Equal(t, "Assignment-2", last.AssignmentID)
}

func TestSession_cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	clock := &fakeClock{}
	s := NewSession(newAssignment(1, "1+2"), WithClock(clock))

	assert.Equal(t, PhaseLoading, (<-s.Updates()).Phase)

	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()
	_, err := s.Snapshot(ctx)
	require.NoError(t, err)

	cancel()
	assert.Equal(t, context.Canceled, <-errc)
	assert.Zero(t, clock.active())
	<-s.Done()
}

func TestSession_Do_unknown(t *testing.T) {
	h := start(t, newAssignment(1, "1"))
	_, err := h.s.Do(h.ctx, "rewind")
	assert.Error(t, err)
}
