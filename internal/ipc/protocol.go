// Package ipc carries OSC datagrams between the controller and the host:
// the UDP socket pair, the response correlator, the per-address request gate,
// and the host-side serve loop.
package ipc

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	DefaultHost                 = "127.0.0.1"
	DefaultCommandPort          = 11000
	DefaultResponsePort         = 11001
	DefaultFallbackResponsePort = 11002

	DefaultTimeout      = 5 * time.Second
	DefaultPollInterval = 100 * time.Millisecond

	ResponseSuffix = "/response"
)

const (
	AddressPlay        = "/live/play"
	AddressStop        = "/live/stop"
	AddressTempo       = "/live/tempo"
	AddressTrackVolume = "/live/track/volume"
	AddressTrackMute   = "/live/track/mute"
	AddressTrackSolo   = "/live/track/solo"
	AddressTrackArm    = "/live/track/arm"
	AddressClipLaunch  = "/live/clip/launch"
	AddressSceneLaunch = "/live/scene/launch"
	AddressLiveSetInfo = "/live/get"
	AddressTracks      = "/live/tracks"
)

// StatusSuccess is the first argument of every command acknowledgement.
const StatusSuccess = "success"

// ResponseAddress returns the address a reply to address is published on.
func ResponseAddress(address string) string {
	return address + ResponseSuffix
}

// LiveSetInfo is the JSON payload of a /live/get reply.
type LiveSetInfo struct {
	Tempo      float64 `json:"tempo"`
	IsPlaying  bool    `json:"is_playing"`
	TrackCount int     `json:"track_count"`
	SceneCount int     `json:"scene_count"`
}

// TrackSnapshot is one element of the JSON array in a /live/tracks reply.
type TrackSnapshot struct {
	Index      int     `json:"index"`
	Name       string  `json:"name"`
	Color      int     `json:"color"`
	IsFoldable bool    `json:"is_foldable"`
	Mute       bool    `json:"mute"`
	Solo       bool    `json:"solo"`
	Arm        bool    `json:"arm"`
	Volume     float64 `json:"volume"`
}

func MarshalLiveSetInfo(info LiveSetInfo) (string, error) {
	data, err := json.Marshal(info)
	if err != nil {
		return "", fmt.Errorf("encode live set info: %w", err)
	}
	return string(data), nil
}

// UnmarshalLiveSetInfo parses and sanity-checks a /live/get payload.
func UnmarshalLiveSetInfo(payload string) (LiveSetInfo, error) {
	var info LiveSetInfo
	if err := json.Unmarshal([]byte(payload), &info); err != nil {
		return LiveSetInfo{}, fmt.Errorf("decode live set info: %w", err)
	}
	if info.Tempo <= 0 {
		return LiveSetInfo{}, fmt.Errorf("decode live set info: tempo must be > 0, got %v", info.Tempo)
	}
	if info.TrackCount < 0 || info.SceneCount < 0 {
		return LiveSetInfo{}, fmt.Errorf("decode live set info: negative counts")
	}
	return info, nil
}

func MarshalTracks(tracks []TrackSnapshot) (string, error) {
	if tracks == nil {
		tracks = []TrackSnapshot{}
	}
	data, err := json.Marshal(tracks)
	if err != nil {
		return "", fmt.Errorf("encode track list: %w", err)
	}
	return string(data), nil
}

func UnmarshalTracks(payload string) ([]TrackSnapshot, error) {
	var tracks []TrackSnapshot
	if err := json.Unmarshal([]byte(payload), &tracks); err != nil {
		return nil, fmt.Errorf("decode track list: %w", err)
	}
	if tracks == nil {
		return nil, fmt.Errorf("decode track list: payload is not an array")
	}
	return tracks, nil
}
