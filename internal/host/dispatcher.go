// Package host maps inbound OSC commands onto live set mutations and builds
// the reply for each.
package host

import (
	"context"
	"log/slog"
	"math"

	"github.com/rbright/liveosc/internal/ipc"
	"github.com/rbright/liveosc/internal/liveset"
	"github.com/rbright/liveosc/internal/logging"
	"github.com/rbright/liveosc/internal/osc"
)

const (
	MinTempo = 20.0
	MaxTempo = 999.0
)

// Song is the get/set surface the dispatcher drives.
type Song interface {
	Play()
	Stop()
	IsPlaying() bool
	Tempo() float64
	SetTempo(bpm float64)
	SceneCount() int
	TrackCount() int
	Track(i int) (liveset.Track, bool)
	SetTrackVolume(i int, volume float64) bool
	SetTrackMute(i int, on bool) bool
	SetTrackSolo(i int, on bool) bool
	SetTrackArm(i int, on bool) bool
	FireClip(track, slot int) bool
	FireScene(scene int) bool
}

type command func(osc.Message) (osc.Message, bool)

// Dispatcher implements ipc.Handler. Requests it cannot apply get no reply.
type Dispatcher struct {
	song     Song
	logger   *slog.Logger
	commands map[string]command
}

var _ ipc.Handler = (*Dispatcher)(nil)

func NewDispatcher(song Song, logger *slog.Logger) *Dispatcher {
	logger = logging.OrDiscard(logger)
	d := &Dispatcher{song: song, logger: logger}
	d.commands = map[string]command{
		ipc.AddressPlay:        d.play,
		ipc.AddressStop:        d.stop,
		ipc.AddressTempo:       d.tempo,
		ipc.AddressTrackVolume: d.trackVolume,
		ipc.AddressTrackMute:   d.trackToggle(song.SetTrackMute),
		ipc.AddressTrackSolo:   d.trackToggle(song.SetTrackSolo),
		ipc.AddressTrackArm:    d.trackToggle(song.SetTrackArm),
		ipc.AddressClipLaunch:  d.clipLaunch,
		ipc.AddressSceneLaunch: d.sceneLaunch,
		ipc.AddressLiveSetInfo: d.liveSetInfo,
		ipc.AddressTracks:      d.tracks,
	}
	return d
}

// Addresses lists the request addresses with a handler.
func (d *Dispatcher) Addresses() []string {
	out := make([]string, 0, len(d.commands))
	for addr := range d.commands {
		out = append(out, addr)
	}
	return out
}

func (d *Dispatcher) Handle(_ context.Context, msg osc.Message) (osc.Message, bool) {
	cmd, ok := d.commands[msg.Address]
	if !ok {
		d.logger.Debug("no handler for address", "address", msg.Address)
		return osc.Message{}, false
	}
	reply, ok := cmd(msg)
	if !ok {
		d.logger.Debug("command ignored", "message", msg.String())
		return osc.Message{}, false
	}
	d.logger.Debug("command applied", "message", msg.String(), "reply", reply.String())
	return reply, true
}

func success(address string, args ...osc.Argument) (osc.Message, bool) {
	return osc.Message{
		Address:   ipc.ResponseAddress(address),
		Arguments: append([]osc.Argument{osc.String(ipc.StatusSuccess)}, args...),
	}, true
}

func ignore() (osc.Message, bool) {
	return osc.Message{}, false
}

func (d *Dispatcher) play(msg osc.Message) (osc.Message, bool) {
	d.song.Play()
	return success(msg.Address)
}

func (d *Dispatcher) stop(msg osc.Message) (osc.Message, bool) {
	d.song.Stop()
	return success(msg.Address)
}

func (d *Dispatcher) tempo(msg osc.Message) (osc.Message, bool) {
	bpm, err := msg.ReadNumber(0)
	if err != nil || math.IsNaN(bpm) {
		return ignore()
	}
	applied := clamp(bpm, MinTempo, MaxTempo)
	d.song.SetTempo(applied)
	return success(msg.Address, osc.Float(float32(applied)))
}

func (d *Dispatcher) trackVolume(msg osc.Message) (osc.Message, bool) {
	track, err := msg.ReadInt32(0)
	if err != nil {
		return ignore()
	}
	volume, err := msg.ReadNumber(1)
	if err != nil || math.IsNaN(volume) {
		return ignore()
	}
	applied := clamp(volume, 0, 1)
	if !d.song.SetTrackVolume(int(track), applied) {
		return ignore()
	}
	return success(msg.Address, osc.Int(track), osc.Float(float32(applied)))
}

func (d *Dispatcher) trackToggle(set func(int, bool) bool) command {
	return func(msg osc.Message) (osc.Message, bool) {
		track, err := msg.ReadInt32(0)
		if err != nil {
			return ignore()
		}
		on, err := msg.ReadBool(1)
		if err != nil {
			return ignore()
		}
		if !set(int(track), on) {
			return ignore()
		}
		return success(msg.Address, osc.Int(track), osc.Int(boolInt(on)))
	}
}

func (d *Dispatcher) clipLaunch(msg osc.Message) (osc.Message, bool) {
	track, err := msg.ReadInt32(0)
	if err != nil {
		return ignore()
	}
	slot, err := msg.ReadInt32(1)
	if err != nil {
		return ignore()
	}
	if !d.song.FireClip(int(track), int(slot)) {
		return ignore()
	}
	return success(msg.Address, osc.Int(track), osc.Int(slot))
}

func (d *Dispatcher) sceneLaunch(msg osc.Message) (osc.Message, bool) {
	scene, err := msg.ReadInt32(0)
	if err != nil {
		return ignore()
	}
	if !d.song.FireScene(int(scene)) {
		return ignore()
	}
	return success(msg.Address, osc.Int(scene))
}

func (d *Dispatcher) liveSetInfo(msg osc.Message) (osc.Message, bool) {
	payload, err := ipc.MarshalLiveSetInfo(ipc.LiveSetInfo{
		Tempo:      d.song.Tempo(),
		IsPlaying:  d.song.IsPlaying(),
		TrackCount: d.song.TrackCount(),
		SceneCount: d.song.SceneCount(),
	})
	if err != nil {
		d.logger.Error("encode live set info failed", "error", err.Error())
		return ignore()
	}
	return osc.Message{Address: ipc.ResponseAddress(msg.Address), Arguments: []osc.Argument{osc.String(payload)}}, true
}

func (d *Dispatcher) tracks(msg osc.Message) (osc.Message, bool) {
	count := d.song.TrackCount()
	snapshots := make([]ipc.TrackSnapshot, 0, count)
	for i := range count {
		tr, ok := d.song.Track(i)
		if !ok {
			continue
		}
		snapshots = append(snapshots, ipc.TrackSnapshot{
			Index:      i,
			Name:       tr.Name,
			Color:      tr.Color,
			IsFoldable: tr.IsFoldable,
			Mute:       tr.Mute,
			Solo:       tr.Solo,
			Arm:        tr.Arm,
			Volume:     tr.Volume,
		})
	}
	payload, err := ipc.MarshalTracks(snapshots)
	if err != nil {
		d.logger.Error("encode track list failed", "error", err.Error())
		return ignore()
	}
	return osc.Message{Address: ipc.ResponseAddress(msg.Address), Arguments: []osc.Argument{osc.String(payload)}}, true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
