// Package queue is the Queue & Playback Controller (QPC, spec §4.9):
// it owns the play queue and cursor, and issues Load/Stop/Seek commands
// to the Audio Pipeline Controller in response to queue edits and
// playback completion.
package queue

import (
	"math/rand"
	"sync"

	"github.com/drgolem/musicplayer/pkg/model"
	"github.com/drgolem/musicplayer/pkg/types"
)

// Controller is the subset of the Audio Pipeline Controller the queue
// drives. pkg/pipeline implements this; queue depends only on the
// interface so it can be tested without a real audio device.
type Controller interface {
	Load(song model.Song) error
	Stop()
	Seek(seconds float64) error
}

// State is the APC playback state the queue needs to decide whether a
// tick should auto-advance (spec §4.9's "if APC.state == Finished"
// rule). Queue shares pipeline's state enum rather than redeclaring
// it, since a Tick's argument is always a snapshot read straight off
// the pipeline.
type State = types.PlayerState

const (
	StateStopped = types.StateStopped
	StatePaused  = types.StatePaused
	StatePlaying = types.StatePlaying
	StateFinished = types.StateFinished
)

// Queue owns the ordered song list and play cursor.
type Queue struct {
	mu     sync.Mutex
	songs  []model.Song
	cursor int // -1 means unset
	ctrl   Controller

	advancePending bool // guards auto-advance idempotency across repeated Finished observations
}

// New returns an empty queue driving ctrl.
func New(ctrl Controller) *Queue {
	return &Queue{cursor: -1, ctrl: ctrl}
}

// Songs returns a snapshot copy of the current queue contents.
func (q *Queue) Songs() []model.Song {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]model.Song, len(q.songs))
	copy(out, q.songs)
	return out
}

// Cursor returns the current cursor, or -1 if unset.
func (q *Queue) Cursor() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.cursor
}

// Add appends songs to the queue. If the cursor was unset, it becomes
// 0 and playback of the first appended song is loaded.
func (q *Queue) Add(songs ...model.Song) error {
	q.mu.Lock()
	wasUnset := q.cursor < 0
	q.songs = append(q.songs, songs...)
	if wasUnset && len(q.songs) > 0 {
		q.cursor = 0
	}
	current, ok := q.currentLocked()
	q.mu.Unlock()

	if wasUnset && ok {
		return q.ctrl.Load(current)
	}
	return nil
}

// PlayIndex sets the cursor to i and loads it.
func (q *Queue) PlayIndex(i int) error {
	q.mu.Lock()
	if i < 0 || i >= len(q.songs) {
		q.mu.Unlock()
		return nil
	}
	q.cursor = i
	current, _ := q.currentLocked()
	q.mu.Unlock()
	return q.ctrl.Load(current)
}

// Next shifts the cursor forward by one, saturating at the last index
// (no wrap), and loads the new current song.
func (q *Queue) Next() error {
	return q.shift(1)
}

// Prev shifts the cursor backward by one, saturating at 0 (no wrap),
// and loads the new current song.
func (q *Queue) Prev() error {
	return q.shift(-1)
}

func (q *Queue) shift(delta int) error {
	q.mu.Lock()
	if q.cursor < 0 || len(q.songs) == 0 {
		q.mu.Unlock()
		return nil
	}
	next := q.cursor + delta
	if next < 0 {
		next = 0
	}
	if next > len(q.songs)-1 {
		next = len(q.songs) - 1
	}
	q.cursor = next
	current, _ := q.currentLocked()
	q.mu.Unlock()
	return q.ctrl.Load(current)
}

// Delete removes the song at index i and applies the cursor-update
// rules from spec §4.9.
func (q *Queue) Delete(i int) error {
	q.mu.Lock()
	if i < 0 || i >= len(q.songs) {
		q.mu.Unlock()
		return nil
	}

	cursor := q.cursor
	q.songs = append(q.songs[:i], q.songs[i+1:]...)
	newLen := len(q.songs)

	switch {
	case newLen == 0:
		q.cursor = -1
		q.mu.Unlock()
		q.ctrl.Stop()
		return nil
	case i == cursor && cursor == 0:
		// cursor stays 0; reload.
	case i == cursor && cursor == newLen:
		q.cursor = newLen - 1
	case i < cursor:
		q.cursor = cursor - 1
		q.mu.Unlock()
		return nil
	default: // i > cursor
		q.mu.Unlock()
		return nil
	}

	current, ok := q.currentLocked()
	q.mu.Unlock()
	if !ok {
		return nil
	}
	return q.ctrl.Load(current)
}

// Clear empties the queue and stops playback.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.songs = nil
	q.cursor = -1
	q.mu.Unlock()
	q.ctrl.Stop()
}

// ClearExceptPlaying retains only the currently-playing song, moving
// it to index 0.
func (q *Queue) ClearExceptPlaying() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cursor < 0 || q.cursor >= len(q.songs) {
		q.songs = nil
		q.cursor = -1
		return
	}
	current := q.songs[q.cursor]
	q.songs = []model.Song{current}
	q.cursor = 0
}

// Shuffle randomly permutes the queue while preserving the identity of
// the currently playing song; the cursor follows it to its new index.
func (q *Queue) Shuffle() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.songs) < 2 {
		return
	}

	var playingID string
	hadCursor := q.cursor >= 0 && q.cursor < len(q.songs)
	if hadCursor {
		playingID = q.songs[q.cursor].Path
	}

	rand.Shuffle(len(q.songs), func(i, j int) {
		q.songs[i], q.songs[j] = q.songs[j], q.songs[i]
	})

	if hadCursor {
		for i, s := range q.songs {
			if s.Path == playingID {
				q.cursor = i
				break
			}
		}
	}
}

// SeekBy clamps elapsed+delta to [0, duration] and issues APC.Seek.
func (q *Queue) SeekBy(deltaSeconds, durationSeconds, elapsedSeconds float64) error {
	target := elapsedSeconds + deltaSeconds
	if target < 0 {
		target = 0
	}
	if target > durationSeconds {
		target = durationSeconds
	}
	return q.ctrl.Seek(target)
}

// Tick observes the current APC state and auto-advances on Finished,
// per spec §4.9. It is idempotent: repeated Finished observations
// across calls before the APC transitions away from Finished (i.e.
// before the triggered Load takes effect) do not double-advance.
func (q *Queue) Tick(state State) error {
	if state != StateFinished {
		q.mu.Lock()
		q.advancePending = false
		q.mu.Unlock()
		return nil
	}

	q.mu.Lock()
	if q.advancePending {
		q.mu.Unlock()
		return nil
	}
	q.advancePending = true
	atEnd := q.cursor >= len(q.songs)-1
	q.mu.Unlock()

	if atEnd {
		q.Clear()
		return nil
	}
	return q.Next()
}

func (q *Queue) currentLocked() (model.Song, bool) {
	if q.cursor < 0 || q.cursor >= len(q.songs) {
		return model.Song{}, false
	}
	return q.songs[q.cursor], true
}
