// simplify.go

package extractor

// SimplifiedCourse is the normalized projection of a course record that the
// download pipeline works from.
type SimplifiedCourse struct {
	Title   string   `json:"title"`
	Slug    string   `json:"slug"`
	Modules []Module `json:"modules"`
}

type Module struct {
	ID      int      `json:"id"`
	UUID    string   `json:"uuid"`
	Title   string   `json:"title"`
	Lessons []Lesson `json:"lessons"`
}

type Lesson struct {
	ID     int    `json:"id"`
	UUID   string `json:"uuid"`
	Title  string `json:"title"`
	Type   int    `json:"type"`
	Status string `json:"status"`
}

// Simplify reduces a raw course record to the module/lesson tree. It never
// fails: missing fields fall back to defaults, entries that are not tagged
// MODULE or LESSON (or carry no data) are skipped.
func Simplify(record map[string]any) SimplifiedCourse {
	course := SimplifiedCourse{Title: "Unknown", Slug: "Unknown"}

	content := getMap(getMap(record, "content"), "content")
	if content == nil {
		return course
	}

	course.Title = getString(content, "title", "Unknown")
	course.Slug = getString(content, "slug", "Unknown")

	for _, item := range getSlice(content, "structure") {
		entry, ok := item.(map[string]any)
		if !ok || getString(entry, "type", "") != "MODULE" {
			continue
		}
		data := getMap(entry, "data")
		if data == nil {
			continue
		}

		module := Module{
			ID:    getInt(data, "id"),
			UUID:  getString(data, "uuid", ""),
			Title: getString(data, "title", ""),
		}

		for _, lessonItem := range getSlice(data, "structure") {
			lessonEntry, ok := lessonItem.(map[string]any)
			if !ok || getString(lessonEntry, "type", "") != "LESSON" {
				continue
			}
			lessonData := getMap(lessonEntry, "data")
			if lessonData == nil {
				continue
			}

			module.Lessons = append(module.Lessons, Lesson{
				ID:     getInt(lessonData, "id"),
				UUID:   getString(lessonData, "uuid", ""),
				Title:  getString(lessonData, "title", ""),
				Type:   getInt(lessonData, "type"),
				Status: getString(lessonData, "status", "ACTIVE"),
			})
		}

		course.Modules = append(course.Modules, module)
	}

	return course
}

func getMap(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	v, _ := m[key].(map[string]any)
	return v
}

func getSlice(m map[string]any, key string) []any {
	if m == nil {
		return nil
	}
	v, _ := m[key].([]any)
	return v
}

func getString(m map[string]any, key, fallback string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return fallback
}

func getInt(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}
