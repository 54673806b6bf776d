// Package tagging writes track metadata into produced audio files: native
// ID3 frames for MP3, Vorbis comments and cover art for FLAC, and an ffmpeg
// metadata rewrite for the container formats ffmpeg handles better than any
// Go library (m4a, aiff, wav).
package tagging

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"

	"cratekeeper/internal/constants"
	"cratekeeper/internal/domain"
)

// TagFile writes the track's metadata into the audio file at path,
// dispatching on extension. coverArt may be nil.
func TagFile(ctx context.Context, path string, track *domain.Track, coverArt []byte) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case constants.ExtMP3:
		return tagMP3(path, track, coverArt)
	case constants.ExtFLAC:
		return tagFLAC(path, track, coverArt)
	case constants.ExtM4A, constants.ExtAIFF, constants.ExtWAV:
		return tagWithFFmpeg(ctx, path, track)
	default:
		return fmt.Errorf("unsupported file format: %s", filepath.Ext(path))
	}
}

func tagMP3(path string, track *domain.Track, coverArt []byte) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to open mp3 for tagging: %w", err)
	}
	defer func() {
		_ = tag.Close()
	}()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetTitle(track.Title)
	tag.SetArtist(track.Artist)
	tag.SetAlbum(track.Album)
	tag.SetGenre(track.Genre)
	if track.BPM > 0 {
		tag.AddTextFrame("TBPM", id3v2.EncodingUTF8, strconv.Itoa(track.BPM))
	}
	if track.Key != "" && track.Key != "Unknown" {
		tag.AddTextFrame("TKEY", id3v2.EncodingUTF8, track.Key)
	}
	if track.SourceURL != "" {
		tag.AddTextFrame("WOAF", id3v2.EncodingUTF8, track.SourceURL)
	}

	if len(coverArt) > 0 {
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    constants.MimeTypeJPEG,
			PictureType: id3v2.PTFrontCover,
			Description: "Front cover",
			Picture:     coverArt,
		})
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("failed to save mp3 tags: %w", err)
	}
	return nil
}

func tagFLAC(path string, track *domain.Track, coverArt []byte) error {
	f, err := flac.ParseFile(path)
	if err != nil {
		return fmt.Errorf("failed to parse flac file: %w", err)
	}

	// Drop any existing comment and picture blocks; we rewrite both.
	kept := f.Meta[:0]
	for _, block := range f.Meta {
		if block.Type == flac.VorbisComment || block.Type == flac.Picture {
			continue
		}
		kept = append(kept, block)
	}
	f.Meta = kept

	cmt := flacvorbis.New()
	fields := map[string]string{
		flacvorbis.FIELD_TITLE:  track.Title,
		flacvorbis.FIELD_ARTIST: track.Artist,
		flacvorbis.FIELD_ALBUM:  track.Album,
		flacvorbis.FIELD_GENRE:  track.Genre,
	}
	if track.BPM > 0 {
		fields["BPM"] = strconv.Itoa(track.BPM)
	}
	if track.Key != "" && track.Key != "Unknown" {
		fields["INITIALKEY"] = track.Key
	}
	if track.SourceURL != "" {
		fields["WEBSITE"] = track.SourceURL
	}
	for field, value := range fields {
		if value == "" {
			continue
		}
		if err := cmt.Add(field, value); err != nil {
			return fmt.Errorf("failed to add vorbis comment %s: %w", field, err)
		}
	}
	cmtBlock := cmt.Marshal()
	f.Meta = append(f.Meta, &cmtBlock)

	if len(coverArt) > 0 {
		picture, err := flacpicture.NewFromImageData(
			flacpicture.PictureTypeFrontCover, "Front cover", coverArt, constants.MimeTypeJPEG)
		if err != nil {
			return fmt.Errorf("failed to build cover art block: %w", err)
		}
		picBlock := picture.Marshal()
		f.Meta = append(f.Meta, &picBlock)
	}

	if err := f.Save(path); err != nil {
		return fmt.Errorf("failed to save flac tags: %w", err)
	}
	return nil
}
