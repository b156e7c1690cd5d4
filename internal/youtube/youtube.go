package youtube

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/kkdai/youtube/v2"
	"github.com/schollz/progressbar/v3"
)

// Client resolves and downloads YouTube lessons. The platform stores only
// the video id, so resolution goes through the public watch URL.
type Client struct {
	yt youtube.Client
}

func NewClient(httpClient *http.Client) *Client {
	return &Client{yt: youtube.Client{HTTPClient: httpClient}}
}

// Download saves the best progressive format to <outputDir>/<baseName>.<ext>
// and returns the written path. The extension follows the chosen format.
func (c *Client) Download(ctx context.Context, videoId, outputDir, baseName string) (string, error) {
	watchURL := fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoId)

	var video *youtube.Video
	err := retry.Do(
		func() error {
			var err error
			video, err = c.yt.GetVideoContext(ctx, watchURL)
			return err
		},
		retry.Attempts(5),
		retry.Delay(time.Second),
		retry.MaxDelay(10*time.Second),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return "", fmt.Errorf("failed to resolve video %s: %v", videoId, err)
	}

	format := bestProgressiveFormat(video)
	if format == nil {
		return "", fmt.Errorf("no progressive format with audio for video %s", videoId)
	}

	stream, size, err := c.yt.GetStreamContext(ctx, video, format)
	if err != nil {
		return "", fmt.Errorf("failed to open stream: %v", err)
	}
	defer func() {
		err := stream.Close()
		if err != nil {
			print("Failed to close stream")
		}
	}()

	outputPath := filepath.Join(outputDir, baseName+"."+extensionFor(format.MimeType))
	file, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %v", err)
	}

	bar := progressbar.NewOptions64(
		size,
		progressbar.OptionSetDescription("Downloading"),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)

	_, err = io.Copy(io.MultiWriter(file, bar), stream)
	if closeErr := file.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("failed to download video %s: %v", videoId, err)
	}

	fmt.Println() // New line after progress bar
	return outputPath, nil
}

// bestProgressiveFormat prefers the highest resolution among formats that
// carry both audio and video, breaking ties by bitrate.
func bestProgressiveFormat(video *youtube.Video) *youtube.Format {
	formats := video.Formats.WithAudioChannels()

	var best *youtube.Format
	for i := range formats {
		f := &formats[i]
		if f.Width == 0 || f.Height == 0 {
			continue
		}
		if best == nil || f.Height > best.Height ||
			(f.Height == best.Height && bitrateFor(f) > bitrateFor(best)) {
			best = f
		}
	}
	return best
}

func bitrateFor(f *youtube.Format) int {
	if f.Bitrate > 0 {
		return f.Bitrate
	}
	return f.AverageBitrate
}

func extensionFor(mimeType string) string {
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	parts := strings.Split(mimeType, "/")
	if len(parts) == 2 && parts[1] != "" {
		return parts[1]
	}
	return "mp4"
}
