// Package transform maps extracted records onto star schema rows.
package transform

import (
	"github.com/sparkify/sparkify-etl/internal/extract"
	"github.com/sparkify/sparkify-etl/internal/store"
)

// SongAndArtist maps one song-file record onto its song and artist rows.
// Every field must be present; year, location and coordinates may be null.
func SongAndArtist(rec extract.Record) (*store.Song, *store.Artist, error) {
	var (
		song   store.Song
		artist store.Artist
		err    error
	)

	if song.ID, err = rec.String("song_id"); err != nil {
		return nil, nil, err
	}
	if song.Title, err = rec.String("title"); err != nil {
		return nil, nil, err
	}
	if song.ArtistID, err = rec.String("artist_id"); err != nil {
		return nil, nil, err
	}
	if song.Year, err = rec.OptInt("year"); err != nil {
		return nil, nil, err
	}
	if song.Duration, err = rec.Float("duration"); err != nil {
		return nil, nil, err
	}

	artist.ID = song.ArtistID
	if artist.Name, err = rec.String("artist_name"); err != nil {
		return nil, nil, err
	}
	if artist.Location, err = rec.OptString("artist_location"); err != nil {
		return nil, nil, err
	}
	if artist.Latitude, err = rec.OptFloat("artist_latitude"); err != nil {
		return nil, nil, err
	}
	if artist.Longitude, err = rec.OptFloat("artist_longitude"); err != nil {
		return nil, nil, err
	}

	return &song, &artist, nil
}
