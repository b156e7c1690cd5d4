package vimeo

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/schollz/progressbar/v3"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:141.0) Gecko/20100101 Firefox/141.0"

// Client fetches player configs and downloads Vimeo streams. Embeds are
// scoped to the platform that hosts them, so requests carry the member
// site as Referer and Origin.
type Client struct {
	httpClient *http.Client
	referer    string

	// PlayerBase is the player host, overridable in tests.
	PlayerBase string
}

func NewClient(httpClient *http.Client, referer string) *Client {
	return &Client{
		httpClient: httpClient,
		referer:    strings.TrimSuffix(referer, "/"),
		PlayerBase: "https://player.vimeo.com",
	}
}

func (c *Client) GetVideoConfig(vimeoId string) (*VideoConfig, error) {
	configURL := fmt.Sprintf("%s/video/%s/config", c.PlayerBase, vimeoId)

	headers := map[string]string{
		"User-Agent":      userAgent,
		"Accept":          "application/json",
		"Accept-Language": "pt-BR,pt;q=0.8,en-US;q=0.5,en;q=0.3",
		"Referer":         c.referer + "/",
		"Origin":          c.referer,
		"Sec-Fetch-Dest":  "empty",
		"Sec-Fetch-Mode":  "cors",
		"Sec-Fetch-Site":  "cross-site",
		"Connection":      "keep-alive",
	}

	var config VideoConfig
	err := retry.Do(
		func() error {
			req, err := http.NewRequest("GET", configURL, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}

			for k, v := range headers {
				req.Header.Set(k, v)
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}

			body, err := io.ReadAll(resp.Body)
			if closeErr := resp.Body.Close(); closeErr != nil {
				return closeErr
			}
			if err != nil {
				return err
			}

			if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound {
				return retry.Unrecoverable(fmt.Errorf("player config returned status %d", resp.StatusCode))
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
			}

			return json.Unmarshal(body, &config)
		},
		retry.Attempts(MaxRetries),
		retry.Delay(time.Second),
		retry.MaxDelay(10*time.Second),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch player config for %s: %v", vimeoId, err)
	}

	return &config, nil
}

func (c *Client) DownloadVideo(config *VideoConfig, outputPath string) error {
	// Progressive MP4 is the cheap path, try it first
	if bestURL, bestQuality := c.getBestProgressiveURL(config); bestURL != "" {
		fmt.Printf("Downloading progressive MP4 stream (%dp)\n", bestQuality)
		return c.downloadWithChunks(bestURL, outputPath)
	}

	if config.Request.Files.HLS.DefaultCDN != "" {
		if cdn, ok := config.Request.Files.HLS.Cdns[config.Request.Files.HLS.DefaultCDN]; ok && cdn.URL != "" {
			fmt.Println("Downloading HLS stream...")
			return c.downloadHLSVideo(cdn.URL, outputPath)
		}
	}

	if config.Request.Files.Dash.DefaultCDN != "" {
		if cdn, ok := config.Request.Files.Dash.Cdns[config.Request.Files.Dash.DefaultCDN]; ok && cdn.URL != "" {
			fmt.Println("Downloading DASH stream...")
			return c.downloadDashVideo(cdn.URL, outputPath)
		}
	}

	return fmt.Errorf("no suitable video URL found (tried Progressive, HLS, and DASH)")
}

func (c *Client) getBestProgressiveURL(config *VideoConfig) (string, int) {
	var bestURL string
	var bestQuality int

	for _, prog := range config.Request.Files.Progressive {
		quality := 0
		if _, err := fmt.Sscanf(prog.Quality, "%dp", &quality); err != nil {
			continue
		}
		if quality > bestQuality {
			bestQuality = quality
			bestURL = prog.URL
		}
	}

	return bestURL, bestQuality
}

func (c *Client) downloadDashVideo(url, outputPath string) error {
	fmt.Printf("Remuxing DASH stream: %s\n", filepath.Base(outputPath))

	cmd := exec.Command("ffmpeg",
		"-referer", c.referer+"/",
		"-i", url,
		"-c", "copy",
		"-movflags", "+faststart",
		"-y",
		outputPath)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %v\nOutput: %s", err, stderr.String())
	}

	return nil
}

func (c *Client) downloadHLSVideo(url, outputPath string) error {
	fmt.Printf("Remuxing HLS stream: %s\n", filepath.Base(outputPath))

	cmd := exec.Command("ffmpeg",
		"-referer", c.referer+"/",
		"-i", url,
		"-c", "copy",
		"-bsf:a", "aac_adtstoasc",
		"-movflags", "+faststart",
		"-y",
		outputPath)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %v\nOutput: %s", err, stderr.String())
	}

	return nil
}

func (c *Client) downloadWithChunks(url string, outputPath string) error {
	req, err := http.NewRequest("HEAD", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create HEAD request: %v", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", c.referer+"/")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed HEAD request: %v", err)
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			print("Failed to close response body")
		}
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HEAD request failed with status: %d", resp.StatusCode)
	}

	fileSize := resp.ContentLength
	if fileSize <= 0 {
		return fmt.Errorf("invalid file size: %d", fileSize)
	}

	writer, err := NewBufferedFileWriter(outputPath, fileSize)
	if err != nil {
		return fmt.Errorf("failed to create output file: %v", err)
	}
	defer func(writer *BufferedFileWriter) {
		err := writer.Close()
		if err != nil {
			print("Failed to close output file")
		}
	}(writer)

	bar := progressbar.NewOptions64(
		fileSize,
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

	numChunks := int(math.Ceil(float64(fileSize) / float64(ChunkSize)))
	chunks := make([]struct {
		start int64
		end   int64
	}, numChunks)

	for i := 0; i < numChunks; i++ {
		start := int64(i) * ChunkSize
		end := start + ChunkSize
		if end > fileSize {
			end = fileSize
		}
		chunks[i] = struct {
			start int64
			end   int64
		}{start, end}
	}

	bufferPool := sync.Pool{
		New: func() interface{} {
			return make([]byte, MemoryBuffer)
		},
	}

	var wg sync.WaitGroup
	errors := make(chan error, numChunks)
	limiter := make(chan struct{}, MaxChunkWorkers)

	for i, chunk := range chunks {
		wg.Add(1)
		go func(chunkIndex int, start, end int64) {
			defer wg.Done()
			limiter <- struct{}{}        // Acquire semaphore
			defer func() { <-limiter }() // Release semaphore

			buffer := bufferPool.Get().([]byte)
			defer bufferPool.Put(buffer)

			var lastErr error
			for attempt := 0; attempt < MaxRetries; attempt++ {
				if err := c.downloadChunk(url, writer, start, end, bar, buffer); err != nil {
					lastErr = err
					time.Sleep(time.Second)
					continue
				}
				lastErr = nil
				break
			}

			if lastErr != nil {
				errors <- fmt.Errorf("chunk %d failed after %d retries: %v",
					chunkIndex, MaxRetries, lastErr)
			}
		}(i, chunk.start, chunk.end)
	}

	wg.Wait()
	close(errors)

	var errMsgs []string
	for err := range errors {
		if err != nil {
			errMsgs = append(errMsgs, err.Error())
		}
	}

	if len(errMsgs) > 0 {
		return fmt.Errorf("chunk download errors:\n%s",
			strings.Join(errMsgs, "\n"))
	}

	fmt.Println() // New line after progress bar
	return nil
}

func (c *Client) downloadChunk(url string, writer *BufferedFileWriter,
	start, end int64, bar *progressbar.ProgressBar, buffer []byte) error {

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}

	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end-1))
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", c.referer+"/")
	req.Header.Set("Origin", c.referer)
	req.Header.Set("Accept", "*/*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("chunk request failed: %v", err)
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			print("Failed to close response body")
		}
	}(resp.Body)

	if resp.StatusCode != http.StatusPartialContent {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	reader := bufio.NewReader(resp.Body)
	written := int64(0)

	for written < end-start {
		n, err := reader.Read(buffer)
		if err != nil && err != io.EOF {
			return fmt.Errorf("failed to read chunk: %v", err)
		}
		if n == 0 {
			break
		}

		if _, err := writer.WriteAt(buffer[:n], start+written); err != nil {
			return fmt.Errorf("failed to write chunk: %v", err)
		}

		written += int64(n)
		err = bar.Add64(int64(n))
		if err != nil {
			return err
		}
	}

	return nil
}
