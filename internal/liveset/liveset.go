// Package liveset is the in-memory live set served by the host process.
package liveset

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Track is one mixer channel.
type Track struct {
	Name       string
	Color      int
	IsFoldable bool
	CanBeArmed bool
	Mute       bool
	Solo       bool
	Arm        bool
	Volume     float64
	ClipSlots  int
}

// Set is a mutex-guarded live set. All methods are safe for concurrent use.
type Set struct {
	mu         sync.RWMutex
	tempo      float64
	playing    bool
	scenes     int
	tracks     []Track
	firedClips map[int]int
	firedScene int
}

var ErrInvalidSet = errors.New("invalid live set")

// New validates tracks and builds a Set. A track with zero ClipSlots gets
// one slot per scene.
func New(tempo float64, scenes int, tracks []Track) (*Set, error) {
	if tempo <= 0 {
		return nil, fmt.Errorf("%w: tempo must be > 0, got %v", ErrInvalidSet, tempo)
	}
	if scenes < 0 {
		return nil, fmt.Errorf("%w: scenes must be >= 0, got %d", ErrInvalidSet, scenes)
	}

	owned := make([]Track, len(tracks))
	for i, tr := range tracks {
		if strings.TrimSpace(tr.Name) == "" {
			return nil, fmt.Errorf("%w: track %d has no name", ErrInvalidSet, i)
		}
		if tr.Volume < 0 || tr.Volume > 1 {
			return nil, fmt.Errorf("%w: track %q volume must be within [0,1], got %v", ErrInvalidSet, tr.Name, tr.Volume)
		}
		if tr.ClipSlots < 0 {
			return nil, fmt.Errorf("%w: track %q clip slots must be >= 0", ErrInvalidSet, tr.Name)
		}
		if tr.ClipSlots == 0 {
			tr.ClipSlots = scenes
		}
		if !tr.CanBeArmed {
			tr.Arm = false
		}
		owned[i] = tr
	}

	return &Set{
		tempo:      tempo,
		scenes:     scenes,
		tracks:     owned,
		firedClips: make(map[int]int),
		firedScene: -1,
	}, nil
}

// Demo returns an 8-track, 10-scene set at 120 BPM. The last track is a
// return track and cannot be armed.
func Demo() *Set {
	set, err := New(120, 10, []Track{
		{Name: "Drums", Color: 0xff3636, CanBeArmed: true, Volume: 0.85},
		{Name: "Bass", Color: 0xf66c03, CanBeArmed: true, Volume: 0.8},
		{Name: "Keys", Color: 0x99724b, CanBeArmed: true, Volume: 0.7},
		{Name: "Pad", Color: 0x5480e4, CanBeArmed: true, Volume: 0.6},
		{Name: "Lead", Color: 0x10a4ee, CanBeArmed: true, Volume: 0.75},
		{Name: "Vocals", Color: 0x8bc99c, CanBeArmed: true, Volume: 0.8},
		{Name: "FX Group", Color: 0xb88dfa, IsFoldable: true, Volume: 0.7},
		{Name: "A-Reverb", Color: 0x3c3c3c, Volume: 0.5},
	})
	if err != nil {
		panic(err)
	}
	return set
}

func (s *Set) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = true
}

func (s *Set) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
}

func (s *Set) IsPlaying() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playing
}

func (s *Set) Tempo() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tempo
}

// SetTempo stores bpm; non-positive values are ignored.
func (s *Set) SetTempo(bpm float64) {
	if bpm <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tempo = bpm
}

func (s *Set) SceneCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scenes
}

func (s *Set) TrackCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tracks)
}

// Track returns a copy of track i.
func (s *Set) Track(i int) (Track, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.tracks) {
		return Track{}, false
	}
	return s.tracks[i], true
}

// Tracks returns a copy of every track.
func (s *Set) Tracks() []Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Track, len(s.tracks))
	copy(out, s.tracks)
	return out
}

// SetTrackVolume reports false for an unknown track or a volume outside [0,1].
func (s *Set) SetTrackVolume(i int, volume float64) bool {
	if volume < 0 || volume > 1 {
		return false
	}
	return s.updateTrack(i, func(tr *Track) bool {
		tr.Volume = volume
		return true
	})
}

func (s *Set) SetTrackMute(i int, on bool) bool {
	return s.updateTrack(i, func(tr *Track) bool {
		tr.Mute = on
		return true
	})
}

func (s *Set) SetTrackSolo(i int, on bool) bool {
	return s.updateTrack(i, func(tr *Track) bool {
		tr.Solo = on
		return true
	})
}

// SetTrackArm reports false when the track cannot be armed.
func (s *Set) SetTrackArm(i int, on bool) bool {
	return s.updateTrack(i, func(tr *Track) bool {
		if !tr.CanBeArmed {
			return false
		}
		tr.Arm = on
		return true
	})
}

func (s *Set) updateTrack(i int, apply func(*Track) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.tracks) {
		return false
	}
	return apply(&s.tracks[i])
}

// FireClip launches slot on track and starts the transport.
func (s *Set) FireClip(track, slot int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if track < 0 || track >= len(s.tracks) {
		return false
	}
	if slot < 0 || slot >= s.tracks[track].ClipSlots {
		return false
	}
	s.firedClips[track] = slot
	s.playing = true
	return true
}

// FireScene launches row scene on every track that has that slot and
// starts the transport.
func (s *Set) FireScene(scene int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if scene < 0 || scene >= s.scenes {
		return false
	}
	for i, tr := range s.tracks {
		if scene < tr.ClipSlots {
			s.firedClips[i] = scene
		}
	}
	s.firedScene = scene
	s.playing = true
	return true
}

// FiredClip returns the last slot launched on track.
func (s *Set) FiredClip(track int) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slot, ok := s.firedClips[track]
	return slot, ok
}

// FiredScene returns the last scene launched.
func (s *Set) FiredScene() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.firedScene, s.firedScene >= 0
}
