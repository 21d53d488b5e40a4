// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

package progress

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenPercentages_Rules(t *testing.T) {
	repo := newFakeRepo()
	service := newService(repo, nil)
	ctx := context.Background()

	// Fixture books covering every rule branch.
	repo.addSingleFileBook("halfway", 3600)
	repo.playback[playbackKey{bookID: "halfway"}] = 1800

	repo.addSingleFileBook("overshoot", 1000)
	repo.playback[playbackKey{bookID: "overshoot"}] = 1500 // client reported past the end

	repo.addSingleFileBook("zero-duration", 0)
	repo.playback[playbackKey{bookID: "zero-duration"}] = 500

	repo.addSingleFileBook("finished", 1000)
	repo.read["finished"] = true
	repo.playback[playbackKey{bookID: "finished"}] = 700 // sticky flag beats the raw numbers

	repo.addSingleFileBook("untouched", 1000)

	repo.addPlaylistBook("album", map[string]int{"t1": 600, "t2": 600, "t3": 800})
	repo.completed["t1"] = true                                     // counts full 600
	repo.playback[playbackKey{bookID: "album", trackID: "t2"}] = 300 // counts 300
	repo.playback[playbackKey{bookID: "album", trackID: "t3"}] = 900 // clamped to 800
	// album listened = 600 + 300 + 800 = 1700 of 2000

	percentages, err := service.ListenPercentages(ctx, "user-1", []string{
		"halfway", "overshoot", "zero-duration", "finished", "untouched", "album", "unknown-book",
	})
	require.NoError(t, err)

	assert.Equal(t, 50.0, percentages["halfway"])
	assert.Equal(t, 100.0, percentages["overshoot"], "clamped to duration before dividing")
	assert.Equal(t, 0.0, percentages["zero-duration"])
	assert.Equal(t, 100.0, percentages["finished"])
	assert.Equal(t, 0.0, percentages["untouched"])
	assert.Equal(t, 85.0, percentages["album"])

	_, known := percentages["unknown-book"]
	assert.False(t, known, "books missing from the catalog are omitted")
}

func TestListenPercentage_PlaylistSeekBackDoesNotShrink(t *testing.T) {
	repo := newFakeRepo()
	service := newService(repo, nil)
	ctx := context.Background()

	repo.addPlaylistBook("album", map[string]int{"t1": 600})

	// Listen halfway through the track.
	_, err := service.UpdateProgress(ctx, UpdateInput{
		UserID: "user-1", BookID: "album", TrackID: "t1",
		PlayedSeconds: 300, PositionSeconds: 300,
	})
	require.NoError(t, err)

	percentage, err := service.ListenPercentage(ctx, "user-1", "album")
	require.NoError(t, err)
	assert.Equal(t, 50.0, percentage)

	// Seek back to the start. The resume position moves to 10, but the
	// percentage is built from the playback high-water mark and stays put.
	_, err = service.UpdateProgress(ctx, UpdateInput{
		UserID: "user-1", BookID: "album", TrackID: "t1",
		PlayedSeconds: 10, PositionSeconds: 10,
	})
	require.NoError(t, err)

	assert.Equal(t, 10, repo.trackProgress["t1"], "resume point follows the user backwards")

	percentage, err = service.ListenPercentage(ctx, "user-1", "album")
	require.NoError(t, err)
	assert.Equal(t, 50.0, percentage, "aggregation reads the high-water mark, not the resume point")
}

func TestListenPercentages_Rounding(t *testing.T) {
	repo := newFakeRepo()
	service := newService(repo, nil)

	repo.addSingleFileBook("thirds", 3600)
	repo.playback[playbackKey{bookID: "thirds"}] = 1200 // 33.333…%

	percentages, err := service.ListenPercentages(context.Background(), "user-1", []string{"thirds"})
	require.NoError(t, err)
	assert.Equal(t, 33.33, percentages["thirds"])
}

func TestListenPercentages_EmptySet(t *testing.T) {
	service := newService(newFakeRepo(), nil)

	percentages, err := service.ListenPercentages(context.Background(), "user-1", nil)
	require.NoError(t, err)
	assert.Empty(t, percentages)
}

func TestListenPercentage_Bounds(t *testing.T) {
	repo := newFakeRepo()
	service := newService(repo, nil)
	ctx := context.Background()

	repo.addPlaylistBook("album", map[string]int{"t1": 100, "t2": 100})
	repo.completed["t1"] = true
	repo.completed["t2"] = true
	repo.playback[playbackKey{bookID: "album", trackID: "t1"}] = 100000 // completed wins; the raw mark is irrelevant

	percentage, err := service.ListenPercentage(ctx, "user-1", "album")
	require.NoError(t, err)
	assert.LessOrEqual(t, percentage, 100.0)
	assert.Equal(t, 100.0, percentage)

	// Unknown books resolve to zero, not an error.
	percentage, err = service.ListenPercentage(ctx, "user-1", "ghost")
	require.NoError(t, err)
	assert.Equal(t, 0.0, percentage)
}
