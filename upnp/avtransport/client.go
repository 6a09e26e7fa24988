// Package avtransport implements the AVTransport:1 control point
// client §4.13 names: Play(InstanceID, Speed), Pause(InstanceID),
// Seek(InstanceID, Unit, Target), GetPositionInfo(InstanceID).
// Grounded on
// original_source/upnp/src/service_client.rs's av_play/av_pause/
// av_seek/av_position_info, built on upnp/soapclient.
package avtransport

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fenwick-labs/corelode/upnp/soap"
	"github.com/fenwick-labs/corelode/upnp/soapclient"
)

// SeekMode is the Seek action's Unit argument, enumerating the subset
// of AVTransport:1's A_ARG_TYPE_SeekMode values §4.13 names.
type SeekMode string

const (
	SeekTrackNr SeekMode = "TRACK_NR"
	SeekRelTime SeekMode = "REL_TIME"
	SeekAbsTime SeekMode = "ABS_TIME"
)

// PositionInfo is GetPositionInfo's decoded out-args.
type PositionInfo struct {
	Track         uint32
	TrackDuration string
	TrackURI      string
	RelTime       string
	AbsTime       string
}

// Client is a control point for a single renderer's AVTransport:1
// service.
type Client struct {
	soap *soapclient.Client
}

// New wraps an already-constructed *soapclient.Client, built from the
// renderer's fetched SCPD document and control URL.
func New(soapClient *soapclient.Client) *Client {
	return &Client{soap: soapClient}
}

// Play starts playback on instanceID at the given speed ("1" is normal
// speed; AVTransport:1 also permits fast-forward/rewind ratios as
// strings, hence the plain string type rather than a numeric one).
func (c *Client) Play(ctx context.Context, instanceID uint32, speed string) error {
	_, err := c.soap.CallStrict(ctx, "Play", []soap.Argument{
		{Name: "InstanceID", Value: strconv.FormatUint(uint64(instanceID), 10)},
		{Name: "Speed", Value: speed},
	})
	return err
}

// Pause pauses playback on instanceID.
func (c *Client) Pause(ctx context.Context, instanceID uint32) error {
	_, err := c.soap.CallStrict(ctx, "Pause", []soap.Argument{
		{Name: "InstanceID", Value: strconv.FormatUint(uint64(instanceID), 10)},
	})
	return err
}

// Seek moves the transport's position to target, interpreted according
// to unit.
func (c *Client) Seek(ctx context.Context, instanceID uint32, unit SeekMode, target string) error {
	_, err := c.soap.CallStrict(ctx, "Seek", []soap.Argument{
		{Name: "InstanceID", Value: strconv.FormatUint(uint64(instanceID), 10)},
		{Name: "Unit", Value: string(unit)},
		{Name: "Target", Value: target},
	})
	return err
}

// GetPositionInfo returns instanceID's current track and position.
func (c *Client) GetPositionInfo(ctx context.Context, instanceID uint32) (PositionInfo, error) {
	args, err := c.soap.CallStrict(ctx, "GetPositionInfo", []soap.Argument{
		{Name: "InstanceID", Value: strconv.FormatUint(uint64(instanceID), 10)},
	})
	if err != nil {
		return PositionInfo{}, err
	}

	var info PositionInfo
	for _, a := range args {
		switch a.Name {
		case "Track":
			n, err := strconv.ParseUint(a.Value, 10, 32)
			if err != nil {
				return PositionInfo{}, fmt.Errorf("avtransport: Track: %w", err)
			}
			info.Track = uint32(n)
		case "TrackDuration":
			info.TrackDuration = a.Value
		case "TrackURI":
			info.TrackURI = a.Value
		case "RelTime":
			info.RelTime = a.Value
		case "AbsTime":
			info.AbsTime = a.Value
		}
	}
	return info, nil
}
