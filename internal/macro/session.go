package macro

import (
	"fmt"

	"go.uber.org/zap"

	"inputpipe/internal/input"
	"inputpipe/internal/world"
)

// State is the macro engine mode.
type State int

const (
	Idle State = iota
	Recording
	Paused
	Playing
)

func (s State) String() string {
	switch s {
	case Recording:
		return "recording"
	case Paused:
		return "paused"
	case Playing:
		return "playing"
	default:
		return "idle"
	}
}

// Session is the record/playback state machine. It owns the frame buffer.
// Not safe for concurrent use; the pipeline drives it from the tick thread.
type Session struct {
	state    State
	frames   []Frame
	index    int
	takeover bool

	fireOffset int32

	store Store
	log   *zap.Logger
}

func NewSession(store Store, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{store: store, log: log}
}

func (s *Session) State() State { return s.state }
func (s *Session) Len() int { return len(s.frames) }
func (s *Session) Index() int { return s.index }

// Frames returns a copy of the buffer.
func (s *Session) Frames() []Frame {
	out := make([]Frame, len(s.frames))
	copy(out, s.frames)
	return out
}

func (s *Session) setState(next State) {
	if next != s.state {
		s.log.Debug("macro state change",
			zap.Stringer("from", s.state),
			zap.Stringer("to", next),
			zap.Int("frames", len(s.frames)))
	}
	s.state = next
}

// ToggleRecord stops an active recording, or starts a fresh one that clears
// the buffer. Starting while playing interrupts playback.
func (s *Session) ToggleRecord() string {
	switch s.state {
	case Recording, Paused:
		s.setState(Idle)
		return fmt.Sprintf("Recording stopped (%d frames)", len(s.frames))
	default:
		s.frames = s.frames[:0]
		s.index = 0
		s.takeover = false
		s.setState(Recording)
		return "Recording started"
	}
}

// TogglePause flips between Recording and Paused. Other states ignore it.
func (s *Session) TogglePause() string {
	switch s.state {
	case Recording:
		s.setState(Paused)
		return fmt.Sprintf("Recording paused at %d frames", len(s.frames))
	case Paused:
		s.setState(Recording)
		return "Recording resumed"
	default:
		return ""
	}
}

// TogglePlay interrupts playback, or starts it from frame zero. With
// takeover set, natural completion continues into Recording.
func (s *Session) TogglePlay(takeover bool) string {
	if s.state == Playing {
		s.setState(Idle)
		return "Playback stopped"
	}
	if len(s.frames) == 0 {
		return "Nothing to play"
	}
	s.index = 0
	s.takeover = takeover
	s.setState(Playing)
	if takeover {
		return fmt.Sprintf("Playing %d frames, then recording", len(s.frames))
	}
	return fmt.Sprintf("Playing %d frames", len(s.frames))
}

// Truncate drops up to n frames from the tail. Only honoured while paused.
func (s *Session) Truncate(n int) int {
	if s.state != Paused || n <= 0 {
		return 0
	}
	if n > len(s.frames) {
		n = len(s.frames)
	}
	s.frames = s.frames[:len(s.frames)-n]
	return n
}

// Override applies the current playback frame to cmd and advances. The tick
// that applies the last frame also ends playback. Returns false when not
// playing.
func (s *Session) Override(cmd *input.Command) bool {
	if s.state != Playing {
		return false
	}
	if s.index >= len(s.frames) {
		s.finish()
		return false
	}
	if s.index == 0 {
		s.fireOffset = int32(cmd.Fire) - s.frames[0].Fire
	}
	s.frames[s.index].apply(cmd, s.fireOffset)
	s.index++
	if s.index >= len(s.frames) {
		s.finish()
	}
	return true
}

func (s *Session) finish() {
	if s.takeover {
		s.takeover = false
		s.setState(Recording)
		return
	}
	s.setState(Idle)
}

// Capture appends the committed command while recording.
func (s *Session) Capture(cmd input.Command, self world.Self) {
	if s.state != Recording {
		return
	}
	s.frames = append(s.frames, NewFrame(cmd, self.Pos, self.Vel))
}

// Save writes the buffer to the named macro file.
func (s *Session) Save(name string) (string, error) {
	path, err := s.store.Path(name)
	if err != nil {
		return "", err
	}
	if err := WriteFile(path, s.frames); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	s.log.Info("macro saved", zap.String("path", path), zap.Int("frames", len(s.frames)))
	return fmt.Sprintf("Saved %d frames to %s", len(s.frames), path), nil
}

// Load replaces the buffer with the named macro file. The buffer is cleared
// first, so a failed load leaves it empty. Any recording or playback stops.
func (s *Session) Load(name string) (string, error) {
	s.frames = s.frames[:0]
	s.index = 0
	s.takeover = false
	s.setState(Idle)

	path, err := s.store.Path(name)
	if err != nil {
		return "", err
	}
	frames, err := ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("load %s: %w", path, err)
	}
	s.frames = frames
	s.log.Info("macro loaded", zap.String("path", path), zap.Int("frames", len(frames)))
	return fmt.Sprintf("Loaded %d frames from %s", len(frames), path), nil
}
