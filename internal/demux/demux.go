// Package demux extracts subtitle tracks from Matroska (MKV) video
// containers via github.com/dwbuiten/matroska, converting the extracted
// packets straight into SRT text the rest of this service already knows
// how to handle.
package demux

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dwbuiten/matroska"

	"github.com/odedia/translation-layer/internal/apperr"
	"github.com/odedia/translation-layer/pkg/subs"
)

// Track describes one subtitle track found in a container.
type Track struct {
	Index    uint8
	Language string
	Title    string
	Codec    string
}

// Demuxer extracts subtitle tracks from video files.
type Demuxer interface {
	SubtitleTracks(ctx context.Context, path string) ([]Track, error)
	ExtractTrack(ctx context.Context, path string, index uint8) (string, error)
}

// Matroska is the Demuxer implementation for .mkv containers.
type Matroska struct{}

// NewMatroska returns a Matroska Demuxer.
func NewMatroska() *Matroska {
	return &Matroska{}
}

// SubtitleTracks lists every subtitle track in the container at path
// without reading any packet data.
func (m *Matroska) SubtitleTracks(ctx context.Context, path string) ([]Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.NewNotFound("cannot open container file", err).WithContext("path", path)
	}
	defer f.Close()

	d, err := matroska.NewDemuxer(f)
	if err != nil {
		return nil, apperr.NewBadInput("cannot parse container", err).WithContext("path", path)
	}

	var tracks []Track
	seen := make(map[uint8]bool)
	for i := uint8(0); i < d.GetNumTracks(); i++ {
		info, err := d.GetTrackInfo(i)
		if err != nil {
			continue
		}
		if info.Type != matroska.TypeSubtitle || !strings.HasPrefix(info.CodecID, "S_TEXT") {
			continue
		}
		if seen[info.Number] {
			continue
		}
		seen[info.Number] = true
		tracks = append(tracks, Track{
			Index:    info.Number,
			Language: info.Language,
			Title:    info.Name,
			Codec:    info.CodecID,
		})
	}

	if len(tracks) == 0 {
		return nil, apperr.NewEmpty("container has no subtitle tracks", nil).WithContext("path", path)
	}
	return tracks, nil
}

// ExtractTrack demuxes the subtitle track at index and renders it as SRT
// text.
func (m *Matroska) ExtractTrack(ctx context.Context, path string, index uint8) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", apperr.NewNotFound("cannot open container file", err).WithContext("path", path)
	}
	defer f.Close()

	d, err := matroska.NewDemuxer(f)
	if err != nil {
		return "", apperr.NewBadInput("cannot parse container", err).WithContext("path", path)
	}

	info := d.GetFileInfo()
	scale := time.Duration(info.TimecodeScale)

	var cues []subs.Cue
	cueIndex := 1
	for {
		if err := ctx.Err(); err != nil {
			return "", apperr.NewInternal("extraction cancelled", err)
		}

		packet, err := d.ReadPacket()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", apperr.NewInternal("error reading container packet", err)
		}
		if packet.Track != index {
			continue
		}

		start := time.Duration(packet.StartTime) * scale
		end := time.Duration(packet.EndTime) * scale
		text := strings.TrimSpace(string(packet.Data))
		if text == "" {
			continue
		}

		cues = append(cues, subs.Cue{
			Index: cueIndex,
			Start: start,
			End:   end,
			Text:  text,
		})
		cueIndex++
	}

	if len(cues) == 0 {
		return "", apperr.NewEmpty("track had no extractable cues", nil).WithContext("path", path).WithContext("track", fmt.Sprintf("%d", index))
	}

	return subs.GenerateSRT(cues), nil
}
