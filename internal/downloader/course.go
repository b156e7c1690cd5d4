// course.go

package downloader

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/katomaro/curseduca-dl/internal/config"
	"github.com/katomaro/curseduca-dl/internal/extractor"
	"github.com/katomaro/curseduca-dl/internal/utils"
)

const courseMetadataMaxAge = 24 * time.Hour

type DownloadState struct {
	Completed map[string]bool `json:"completed"`
	LastSync  time.Time       `json:"last_sync"`
}

type lessonJob struct {
	lesson    extractor.Lesson
	outputDir string
	number    int
}

func (d *Downloader) DownloadCourse(course Course) error {
	printBox(fmt.Sprintf("Downloading course: %s", course.Name))

	data, err := d.fetchCourseData(course)
	if err != nil {
		return err
	}

	state, err := d.loadDownloadState(course.Slug)
	if err != nil {
		state = &DownloadState{
			Completed: make(map[string]bool),
			LastSync:  time.Now(),
		}
	}

	courseDir := filepath.Join(d.BasePath, utils.SanitizeFilename(data.Title, config.MaxFilenameLength))
	if err := os.MkdirAll(courseDir, 0755); err != nil {
		return fmt.Errorf("failed to create course directory: %v", err)
	}

	// Build the download queue
	var queue []lessonJob
	var totalLessons, unsupported, alreadyDone int

	fmt.Printf("\nCourse: %s\n", data.Title)

	for moduleIdx, module := range data.Modules {
		fmt.Printf("\nModule %d: %s\n", moduleIdx+1, module.Title)

		moduleDir := filepath.Join(courseDir,
			fmt.Sprintf("%d. %s", moduleIdx+1, utils.SanitizeFilename(module.Title, config.MaxFilenameLength)))

		for lessonIdx, lesson := range module.Lessons {
			totalLessons++

			if lesson.Type != lessonTypeYouTube && lesson.Type != lessonTypeVimeo {
				fmt.Printf("- [!] Lesson %d: %s (unsupported type %d)\n",
					lessonIdx+1, lesson.Title, lesson.Type)
				unsupported++
				continue
			}

			if state.Completed[lesson.UUID] {
				fmt.Printf("- [✓] Lesson %d: %s (already downloaded)\n",
					lessonIdx+1, lesson.Title)
				alreadyDone++
				continue
			}

			lessonDir := filepath.Join(moduleDir,
				fmt.Sprintf("%d. %s", lessonIdx+1, utils.SanitizeFilename(lesson.Title, config.MaxFilenameLength)))

			queue = append(queue, lessonJob{
				lesson:    lesson,
				outputDir: lessonDir,
				number:    lessonIdx + 1,
			})
			fmt.Printf("- [ ] Lesson %d: %s (queued)\n", lessonIdx+1, lesson.Title)
		}
	}

	if len(queue) == 0 {
		fmt.Printf("\nNothing to download (%d done, %d unsupported)\n", alreadyDone, unsupported)
		return nil
	}

	fmt.Printf("\nPreparing to download %d/%d lessons\n", len(queue), totalLessons)

	// Lessons download one at a time; only the video collaborators
	// parallelize internally. State is saved after every finished lesson so
	// an interrupted run resumes where it stopped.
	var successCount, failedCount int
	for i, job := range queue {
		fmt.Printf("\n[%d/%d] Starting download: Lesson %d - %s\n",
			i+1, len(queue), job.number, job.lesson.Title)

		if err := d.downloadLesson(job.outputDir, job.lesson); err != nil {
			fmt.Printf("❌ Failed lesson %d: %v\n", job.number, err)
			failedCount++
		} else {
			fmt.Printf("✅ Completed lesson %d: %s\n", job.number, job.lesson.Title)
			successCount++

			state.Completed[job.lesson.UUID] = true
			if err := d.saveDownloadState(course.Slug, state); err != nil {
				fmt.Printf("Warning: Failed to save download state: %v\n", err)
			}
		}

		completed := successCount + failedCount
		fmt.Printf("Progress: %.1f%% (%d/%d) ✅ Success: %d ❌ Failed: %d\n",
			float64(completed)/float64(len(queue))*100,
			completed, len(queue), successCount, failedCount)
	}

	fmt.Printf("\n\nDownload Summary for %s:\n", data.Title)
	fmt.Printf("Total Lessons: %d\n", totalLessons)
	fmt.Printf("Previously Downloaded: %d\n", alreadyDone)
	fmt.Printf("Successfully Downloaded: %d\n", successCount)
	fmt.Printf("Unsupported: %d\n", unsupported)
	fmt.Printf("Failed Downloads: %d\n", failedCount)

	if failedCount > 0 {
		return fmt.Errorf("%d lessons failed to download", failedCount)
	}

	return nil
}

func (d *Downloader) DownloadAllCourses() error {
	courses, err := d.ListCourses()
	if err != nil {
		return err
	}
	return d.DownloadCourses(courses)
}

// DownloadCourses runs through an already-listed batch of courses one at a
// time.
func (d *Downloader) DownloadCourses(courses []Course) error {
	printBox(fmt.Sprintf("Downloading all %d courses", len(courses)))

	var failed int
	for i, course := range courses {
		fmt.Printf("\n[%d/%d] 📚 Starting course: %s\n", i+1, len(courses), course.Name)

		if err := d.DownloadCourse(course); err != nil {
			fmt.Printf("❌ Error downloading course '%s': %v\n", course.Name, err)
			failed++
			continue
		}

		fmt.Printf("✅ Completed course: %s\n", course.Name)
	}

	fmt.Printf("\n🎉 Download Summary:\n")
	fmt.Printf("Total Courses: %d\n", len(courses))
	fmt.Printf("Completed: %d\n", len(courses)-failed)
	fmt.Printf("Failed: %d\n", failed)

	if failed > 0 {
		return fmt.Errorf("%d courses failed to download", failed)
	}

	return nil
}

// fetchCourseData returns the simplified course structure, refreshing the
// cached copy when it is older than a day.
func (d *Downloader) fetchCourseData(course Course) (*extractor.SimplifiedCourse, error) {
	var data extractor.SimplifiedCourse
	cacheKey := fmt.Sprintf("course_%s", course.Slug)

	found, err := d.Cache.Get(cacheKey, &data)
	if err != nil {
		fmt.Printf("Cache error: %v, fetching fresh data\n", err)
		found = false
	}

	if found && !d.Cache.IsStale(cacheKey, courseMetadataMaxAge) {
		fmt.Println("Using cached course metadata")
		return &data, nil
	}

	fmt.Println("Fetching course metadata...")
	html, err := d.fetchCoursePage(course.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch course page: %v", err)
	}

	record, ok := extractor.FindCourseRecord(extractor.Extract(html))
	if !ok {
		return nil, fmt.Errorf("no course data found in page (layout changed?)")
	}

	data = extractor.Simplify(record)

	if err := d.Cache.Set(cacheKey, data); err != nil {
		fmt.Printf("Warning: Failed to cache course metadata: %v\n", err)
	}

	return &data, nil
}

func (d *Downloader) fetchCoursePage(courseURL string) (string, error) {
	req, err := http.NewRequest("GET", courseURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %v", err)
	}

	for k, v := range config.DefaultHeaders {
		req.Header.Set(k, v)
	}

	resp, err := d.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %v", err)
	}

	return string(body), nil
}

func (d *Downloader) loadDownloadState(slug string) (*DownloadState, error) {
	var state DownloadState
	found, err := d.Cache.Get(fmt.Sprintf("download_state_%s", slug), &state)
	if err != nil || !found {
		return nil, fmt.Errorf("no download state found")
	}
	if state.Completed == nil {
		state.Completed = make(map[string]bool)
	}
	return &state, nil
}

func (d *Downloader) saveDownloadState(slug string, state *DownloadState) error {
	state.LastSync = time.Now()
	return d.Cache.Set(fmt.Sprintf("download_state_%s", slug), state)
}
