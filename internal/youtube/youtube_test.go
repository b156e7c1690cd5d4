package youtube

import (
	"testing"

	"github.com/kkdai/youtube/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBestProgressiveFormat(t *testing.T) {
	video := &youtube.Video{
		Formats: youtube.FormatList{
			{MimeType: "audio/webm", AudioChannels: 2},
			{MimeType: "video/mp4", Width: 640, Height: 360, AudioChannels: 2, Bitrate: 500_000},
			{MimeType: "video/mp4", Width: 1280, Height: 720, AudioChannels: 2, Bitrate: 1_500_000},
			{MimeType: "video/webm", Width: 1920, Height: 1080},
			{MimeType: "video/mp4", Width: 1280, Height: 720, AudioChannels: 2, Bitrate: 2_000_000},
		},
	}

	format := bestProgressiveFormat(video)
	require.NotNil(t, format)
	assert.Equal(t, 720, format.Height, "1080p has no audio and must lose to 720p")
	assert.Equal(t, 2_000_000, format.Bitrate, "ties break on bitrate")
}

func TestBestProgressiveFormatNone(t *testing.T) {
	video := &youtube.Video{
		Formats: youtube.FormatList{
			{MimeType: "audio/mp4", AudioChannels: 2},
			{MimeType: "video/mp4", Width: 1920, Height: 1080},
		},
	}
	assert.Nil(t, bestProgressiveFormat(video))
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, "mp4", extensionFor(`video/mp4; codecs="avc1.64001F, mp4a.40.2"`))
	assert.Equal(t, "webm", extensionFor("video/webm"))
	assert.Equal(t, "mp4", extensionFor("garbage"))
}
