// Package live is the typed controller API over the OSC request gate.
package live

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rbright/liveosc/internal/ipc"
	"github.com/rbright/liveosc/internal/osc"
)

// ErrUnavailable wraps every failed call: no reply, bad request, socket
// failure or an unreadable reply.
var ErrUnavailable = errors.New("live set unavailable")

// Exchanger is the request/response primitive the client runs on.
// *ipc.Conn satisfies it.
type Exchanger interface {
	SendAndWait(ctx context.Context, req osc.Message, responseAddress string, timeout time.Duration) (osc.Message, error)
}

// Client issues typed commands. Safe for concurrent use.
type Client struct {
	ex      Exchanger
	timeout time.Duration
}

// NewClient wraps ex. A zero timeout uses the exchanger's default.
func NewClient(ex Exchanger, timeout time.Duration) *Client {
	return &Client{ex: ex, timeout: timeout}
}

func (c *Client) Play(ctx context.Context) error {
	_, err := c.command(ctx, ipc.AddressPlay)
	return err
}

func (c *Client) Stop(ctx context.Context) error {
	_, err := c.command(ctx, ipc.AddressStop)
	return err
}

// SetTempo returns the tempo the host applied after clamping.
func (c *Client) SetTempo(ctx context.Context, bpm float64) (float64, error) {
	reply, err := c.command(ctx, ipc.AddressTempo, bpm)
	if err != nil {
		return 0, err
	}
	return c.number(reply, 1)
}

// SetTrackVolume returns the volume the host applied after clamping.
func (c *Client) SetTrackVolume(ctx context.Context, track int, volume float64) (float64, error) {
	reply, err := c.command(ctx, ipc.AddressTrackVolume, track, volume)
	if err != nil {
		return 0, err
	}
	return c.number(reply, 2)
}

func (c *Client) MuteTrack(ctx context.Context, track int, on bool) (bool, error) {
	return c.toggle(ctx, ipc.AddressTrackMute, track, on)
}

func (c *Client) SoloTrack(ctx context.Context, track int, on bool) (bool, error) {
	return c.toggle(ctx, ipc.AddressTrackSolo, track, on)
}

// ArmTrack fails with ErrUnavailable for tracks that cannot be armed; the
// host does not reply to those.
func (c *Client) ArmTrack(ctx context.Context, track int, on bool) (bool, error) {
	return c.toggle(ctx, ipc.AddressTrackArm, track, on)
}

func (c *Client) LaunchClip(ctx context.Context, track, slot int) error {
	_, err := c.command(ctx, ipc.AddressClipLaunch, track, slot)
	return err
}

func (c *Client) LaunchScene(ctx context.Context, scene int) error {
	_, err := c.command(ctx, ipc.AddressSceneLaunch, scene)
	return err
}

func (c *Client) GetLiveSetInfo(ctx context.Context) (ipc.LiveSetInfo, error) {
	payload, err := c.query(ctx, ipc.AddressLiveSetInfo)
	if err != nil {
		return ipc.LiveSetInfo{}, err
	}
	info, err := ipc.UnmarshalLiveSetInfo(payload)
	if err != nil {
		return ipc.LiveSetInfo{}, unavailable(ipc.AddressLiveSetInfo, err)
	}
	return info, nil
}

func (c *Client) GetTrackNames(ctx context.Context) ([]ipc.TrackSnapshot, error) {
	payload, err := c.query(ctx, ipc.AddressTracks)
	if err != nil {
		return nil, err
	}
	tracks, err := ipc.UnmarshalTracks(payload)
	if err != nil {
		return nil, unavailable(ipc.AddressTracks, err)
	}
	return tracks, nil
}

func (c *Client) toggle(ctx context.Context, address string, track int, on bool) (bool, error) {
	reply, err := c.command(ctx, address, track, on)
	if err != nil {
		return false, err
	}
	state, err := reply.ReadBool(2)
	if err != nil {
		return false, unavailable(address, err)
	}
	return state, nil
}

// command sends address with args and requires a "success" acknowledgement.
func (c *Client) command(ctx context.Context, address string, args ...any) (osc.Message, error) {
	reply, err := c.exchange(ctx, address, args...)
	if err != nil {
		return osc.Message{}, err
	}
	status, err := reply.ReadString(0)
	if err != nil {
		return osc.Message{}, unavailable(address, err)
	}
	if status != ipc.StatusSuccess {
		return osc.Message{}, unavailable(address, fmt.Errorf("host replied %q", status))
	}
	return reply, nil
}

// query returns the single string payload of an info reply.
func (c *Client) query(ctx context.Context, address string) (string, error) {
	reply, err := c.exchange(ctx, address)
	if err != nil {
		return "", err
	}
	payload, err := reply.ReadString(0)
	if err != nil {
		return "", unavailable(address, err)
	}
	return payload, nil
}

func (c *Client) exchange(ctx context.Context, address string, args ...any) (osc.Message, error) {
	req, err := osc.NewMessage(address, args...)
	if err != nil {
		return osc.Message{}, unavailable(address, err)
	}
	reply, err := c.ex.SendAndWait(ctx, req, "", c.timeout)
	if err != nil {
		return osc.Message{}, unavailable(address, err)
	}
	return reply, nil
}

func (c *Client) number(reply osc.Message, i int) (float64, error) {
	v, err := reply.ReadNumber(i)
	if err != nil {
		return 0, unavailable(reply.Address, err)
	}
	return v, nil
}

func unavailable(address string, err error) error {
	return fmt.Errorf("%s: %w: %w", address, ErrUnavailable, err)
}
