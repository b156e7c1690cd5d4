// lesson.go

package downloader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/katomaro/curseduca-dl/internal/config"
	"github.com/katomaro/curseduca-dl/internal/extractor"
	"github.com/katomaro/curseduca-dl/internal/utils"
)

// Lesson types the platform streams from third parties.
const (
	lessonTypeYouTube = 4
	lessonTypeVimeo   = 7
)

// WatchData is the lesson payload from the shared lessons service.
type WatchData struct {
	VideoId         string          `json:"videoId"`
	Description     string          `json:"description"`
	Complementaries []Complementary `json:"complementaries"`
}

type Complementary struct {
	Id    int    `json:"id"`
	Title string `json:"title"`
	File  struct {
		URL string `json:"url"`
	} `json:"file"`
}

func (d *Downloader) downloadLesson(outputDir string, lesson extractor.Lesson) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create lesson directory: %v", err)
	}

	watch, err := d.fetchWatchData(lesson.UUID)
	if err != nil {
		return err
	}

	// A failed video keeps the lesson out of the completed state, but the
	// extras are still worth saving on this pass.
	var videoErr error
	if watch.VideoId == "" {
		fmt.Printf("  - No video id for lesson '%s'\n", lesson.Title)
	} else if videoErr = d.downloadLessonVideo(outputDir, lesson.Type, watch.VideoId); videoErr != nil {
		fmt.Printf("Warning: Failed to download video: %v\n", videoErr)
	}

	if watch.Description != "" {
		if err := d.saveDescription(outputDir, watch.Description); err != nil {
			fmt.Printf("Warning: Failed to save description: %v\n", err)
		}
	}

	for _, attachment := range watch.Complementaries {
		if attachment.File.URL == "" {
			fmt.Printf("  - Attachment '%s' has no file url, skipping\n", attachment.Title)
			continue
		}
		if err := d.downloadAttachment(outputDir, attachment); err != nil {
			fmt.Printf("Warning: Failed to download attachment '%s': %v\n", attachment.Title, err)
		}
	}

	return videoErr
}

func (d *Downloader) fetchWatchData(lessonUUID string) (*WatchData, error) {
	watchURL := d.LessonsAPI + fmt.Sprintf(config.WatchPathFormat, lessonUUID)

	req, err := http.NewRequest("GET", watchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	d.setAPIHeaders(req)

	resp, err := d.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("watch endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var watch WatchData
	if err := json.NewDecoder(resp.Body).Decode(&watch); err != nil {
		return nil, fmt.Errorf("failed to decode watch data: %v", err)
	}

	return &watch, nil
}

func (d *Downloader) downloadLessonVideo(outputDir string, lessonType int, videoId string) error {
	switch lessonType {
	case lessonTypeVimeo:
		videoConfig, err := d.Vimeo.GetVideoConfig(videoId)
		if err != nil {
			return err
		}
		return d.Vimeo.DownloadVideo(videoConfig, filepath.Join(outputDir, "Aula.mp4"))
	case lessonTypeYouTube:
		_, err := d.YouTube.Download(context.Background(), videoId, outputDir, "Aula")
		return err
	default:
		return fmt.Errorf("unsupported lesson type %d", lessonType)
	}
}

// saveDescription converts the lesson description from HTML to markdown and
// writes it next to the video.
func (d *Downloader) saveDescription(outputDir, descriptionHTML string) error {
	markdown, err := htmltomarkdown.ConvertString(descriptionHTML)
	if err != nil {
		return fmt.Errorf("failed to convert description: %v", err)
	}

	descPath := filepath.Join(outputDir, "Descrição.txt")
	if err := os.WriteFile(descPath, []byte(markdown), 0644); err != nil {
		return fmt.Errorf("failed to write description: %v", err)
	}

	fmt.Println("  + Saved description")
	return nil
}

func (d *Downloader) downloadAttachment(outputDir string, attachment Complementary) error {
	params := url.Values{}
	params.Set("fileName", attachment.Title)
	params.Set("fileUrl", attachment.File.URL)
	params.Set("api_key", d.APIKey)

	downloadURL := fmt.Sprintf("%s%s?%s", d.LessonsAPI, config.AttachmentPath, params.Encode())

	req, err := http.NewRequest("GET", downloadURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}

	for k, v := range config.DefaultHeaders {
		req.Header.Set(k, v)
	}
	req.Header.Set("Referer", d.BaseURL+"/")

	resp, err := d.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("attachment endpoint returned %d", resp.StatusCode)
	}

	name := attachment.Title
	if name == "" {
		name = "arquivo_complementar"
	}
	name = utils.SanitizeFilename(name, config.MaxFilenameLength)

	outPath := filepath.Join(outputDir, name)
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %v", err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return fmt.Errorf("failed to write attachment: %v", err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close attachment file: %v", err)
	}

	fmt.Printf("  + Saved attachment: %s\n", name)
	return nil
}
