package liveset

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDemoShape(t *testing.T) {
	set := Demo()

	require.Equal(t, 120.0, set.Tempo())
	require.False(t, set.IsPlaying())
	require.Equal(t, 8, set.TrackCount())
	require.Equal(t, 10, set.SceneCount())

	last, ok := set.Track(7)
	require.True(t, ok)
	require.False(t, last.CanBeArmed)
	require.Equal(t, 10, last.ClipSlots)

	group, ok := set.Track(6)
	require.True(t, ok)
	require.True(t, group.IsFoldable)
}

func TestNewRejectsInvalidSets(t *testing.T) {
	tests := []struct {
		name   string
		tempo  float64
		scenes int
		tracks []Track
		want   string
	}{
		{name: "zero tempo", tempo: 0, want: "tempo must be > 0"},
		{name: "negative scenes", tempo: 120, scenes: -1, want: "scenes must be >= 0"},
		{name: "unnamed track", tempo: 120, tracks: []Track{{Name: " "}}, want: "has no name"},
		{name: "loud track", tempo: 120, tracks: []Track{{Name: "x", Volume: 1.2}}, want: "volume must be within"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.tempo, tc.scenes, tc.tracks)
			require.ErrorIs(t, err, ErrInvalidSet)
			require.ErrorContains(t, err, tc.want)
		})
	}
}

func TestTrackMutations(t *testing.T) {
	set := Demo()

	require.True(t, set.SetTrackVolume(0, 0.25))
	require.False(t, set.SetTrackVolume(0, 1.5))
	require.False(t, set.SetTrackVolume(99, 0.5))
	require.True(t, set.SetTrackMute(1, true))
	require.True(t, set.SetTrackSolo(2, true))
	require.True(t, set.SetTrackArm(3, true))
	require.False(t, set.SetTrackArm(7, true))
	require.False(t, set.SetTrackMute(-1, true))

	drums, _ := set.Track(0)
	require.Equal(t, 0.25, drums.Volume)
	bass, _ := set.Track(1)
	require.True(t, bass.Mute)
	keys, _ := set.Track(2)
	require.True(t, keys.Solo)
	pad, _ := set.Track(3)
	require.True(t, pad.Arm)
	ret, _ := set.Track(7)
	require.False(t, ret.Arm)
}

func TestTracksReturnsCopy(t *testing.T) {
	set := Demo()
	tracks := set.Tracks()
	tracks[0].Name = "mutated"

	first, _ := set.Track(0)
	require.Equal(t, "Drums", first.Name)
}

func TestFireClipAndScene(t *testing.T) {
	set := Demo()

	require.False(t, set.FireClip(0, 10))
	require.False(t, set.FireClip(8, 0))
	require.False(t, set.IsPlaying())

	require.True(t, set.FireClip(2, 4))
	require.True(t, set.IsPlaying())
	slot, ok := set.FiredClip(2)
	require.True(t, ok)
	require.Equal(t, 4, slot)

	_, ok = set.FiredScene()
	require.False(t, ok)
	require.False(t, set.FireScene(10))
	require.True(t, set.FireScene(3))
	scene, ok := set.FiredScene()
	require.True(t, ok)
	require.Equal(t, 3, scene)
	slot, _ = set.FiredClip(0)
	require.Equal(t, 3, slot)
}

func TestTransportAndTempo(t *testing.T) {
	set := Demo()
	set.Play()
	require.True(t, set.IsPlaying())
	set.Stop()
	require.False(t, set.IsPlaying())

	set.SetTempo(150)
	require.Equal(t, 150.0, set.Tempo())
	set.SetTempo(-3)
	require.Equal(t, 150.0, set.Tempo())
}

func TestConcurrentAccess(t *testing.T) {
	set := Demo()
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			set.SetTrackVolume(i, 0.5)
			set.SetTempo(float64(100 + i))
		}()
		go func() {
			defer wg.Done()
			_ = set.Tracks()
			_ = set.Tempo()
		}()
	}
	wg.Wait()

	for _, tr := range set.Tracks() {
		require.Equal(t, 0.5, tr.Volume)
	}
}

func writeFixture(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadTOML(t *testing.T) {
	path := writeFixture(t, "set.toml", `
tempo = 154.0
is_playing = true
scenes = 4

[[tracks]]
name = "Kick"
color = 16711680
volume = 0.9

[[tracks]]
name = "Group"
is_foldable = true

[[tracks]]
name = "Return"
can_be_armed = false
clip_slots = 2
`)

	set, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 154.0, set.Tempo())
	require.True(t, set.IsPlaying())
	require.Equal(t, 4, set.SceneCount())
	require.Equal(t, 3, set.TrackCount())

	kick, _ := set.Track(0)
	require.Equal(t, 0.9, kick.Volume)
	require.True(t, kick.CanBeArmed)
	group, _ := set.Track(1)
	require.False(t, group.CanBeArmed)
	require.Equal(t, defaultTrackVolume, group.Volume)
	ret, _ := set.Track(2)
	require.False(t, ret.CanBeArmed)
	require.Equal(t, 2, ret.ClipSlots)
}

func TestLoadYAML(t *testing.T) {
	path := writeFixture(t, "set.yml", `
tempo: 98.5
scenes: 2
tracks:
  - name: Drums
    mute: true
  - name: Bass
    volume: 0
`)

	set, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 98.5, set.Tempo())
	require.False(t, set.IsPlaying())

	drums, _ := set.Track(0)
	require.True(t, drums.Mute)
	bass, _ := set.Track(1)
	require.Equal(t, 0.0, bass.Volume)
}

func TestLoadRejectsBadFixtures(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
		want string
	}{
		{name: "unknown extension", file: "set.json", body: "{}", want: "unsupported extension"},
		{name: "toml syntax", file: "set.toml", body: "tempo = ", want: "parse live set"},
		{name: "toml unknown key", file: "set.toml", body: "tempo = 120\nbpm = 3\n", want: "unknown key"},
		{name: "yaml unknown key", file: "set.yaml", body: "tempo: 120\nbpm: 3\n", want: "parse live set"},
		{name: "missing tempo", file: "set.yaml", body: "scenes: 2\n", want: "tempo must be > 0"},
		{name: "bad volume", file: "set.toml", body: "tempo = 120\n[[tracks]]\nname = \"x\"\nvolume = 2.0\n", want: "volume must be within"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeFixture(t, tc.file, tc.body))
			require.ErrorContains(t, err, tc.want)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.ErrorContains(t, err, "read live set")
}
