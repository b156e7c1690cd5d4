package downloader

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/katomaro/curseduca-dl/internal/config"
)

// Course is one card from the restricted-area catalog.
type Course struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Slug string `json:"slug"`
}

// ListCourses walks the paginated member catalog until a page comes back
// without cards.
func (d *Downloader) ListCourses() ([]Course, error) {
	var courses []Course
	seen := make(map[string]bool)

	for page := 1; ; page++ {
		pageCourses, err := d.fetchCatalogPage(page)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch catalog page %d: %v", page, err)
		}
		if len(pageCourses) == 0 {
			break
		}

		for _, course := range pageCourses {
			if seen[course.Slug] {
				continue
			}
			seen[course.Slug] = true
			courses = append(courses, course)
		}

		time.Sleep(200 * time.Millisecond)
	}

	if len(courses) == 0 {
		return nil, fmt.Errorf("no courses found (is the account enrolled in any?)")
	}

	return courses, nil
}

func (d *Downloader) fetchCatalogPage(page int) ([]Course, error) {
	params := url.Values{}
	params.Set("redirect", "0")
	params.Set("limit", strconv.Itoa(config.CoursesPerPage))
	params.Set("page", strconv.Itoa(page))

	listURL := fmt.Sprintf("%s%s?%s", d.BaseURL, config.RestrictedPath, params.Encode())
	req, err := http.NewRequest("GET", listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}

	for k, v := range config.DefaultHeaders {
		req.Header.Set(k, v)
	}

	resp, err := d.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog page: %v", err)
	}

	var courses []Course
	doc.Find("div.classified").Each(func(i int, card *goquery.Selection) {
		link := card.Find("a.font-size-h4").First()
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return
		}

		courseURL := href
		if !strings.HasPrefix(courseURL, "http") {
			courseURL = d.BaseURL + courseURL
		}

		courses = append(courses, Course{
			Name: strings.TrimSpace(link.Text()),
			URL:  courseURL,
			Slug: slugFromURL(courseURL),
		})
	})

	return courses, nil
}

// slugFromURL takes the last path segment as the course slug.
func slugFromURL(courseURL string) string {
	parsed, err := url.Parse(courseURL)
	if err != nil {
		return "curso"
	}

	path := strings.Trim(parsed.Path, "/")
	if path == "" {
		return "curso"
	}

	segments := strings.Split(path, "/")
	return segments[len(segments)-1]
}
