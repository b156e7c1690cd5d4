// config.go

package config

import (
	"os"
	"path/filepath"
	"strings"
)

// Curseduca shared API hosts. The member-facing site is whitelabel and its
// address comes from BASE_URL, but every tenant talks to these backends.
const (
	PlatformAPIURL = "https://application.curseduca.pro"
	AuthAPIURL     = "https://prof.curseduca.pro"
	LessonsAPIURL  = "https://clas.curseduca.pro"

	LoginPath        = "/login"
	RestrictedPath   = "/restrita"
	PlatformKeyPath  = "/platform-by-url"
	AuthLoginPath    = "/login?redirectUrl="
	WatchPathFormat  = "/bff/aulas/%s/watch"
	AttachmentPath   = "/lessons-complementaries/download"
	CoursesPerPage   = 100
)

// MaxFilenameLength caps sanitized file and directory names
const MaxFilenameLength = 100

// DefaultHeaders HTTP request headers for page fetches
var DefaultHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:141.0) Gecko/20100101 Firefox/141.0",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language": "pt-BR,pt;q=0.8,en-US;q=0.5,en;q=0.3",
	"Connection":      "keep-alive",
	"Cache-Control":   "no-cache",
}

// JsonHeaders are sent on the cross-site API calls (platform key, auth, watch)
var JsonHeaders = map[string]string{
	"Accept":         "application/json, text/plain, */*",
	"Content-Type":   "application/json",
	"Sec-Fetch-Dest": "empty",
	"Sec-Fetch-Mode": "cors",
	"Sec-Fetch-Site": "cross-site",
}

// GetBaseURL returns the whitelabel platform URL from env without a trailing slash
func GetBaseURL() string {
	return strings.TrimSuffix(strings.TrimSpace(os.Getenv("BASE_URL")), "/")
}

// GetEmail returns the login email from env
func GetEmail() string {
	return strings.TrimSpace(os.Getenv("EMAIL"))
}

// GetPassword returns the login password from env. Not trimmed, passwords
// may contain spaces.
func GetPassword() string {
	return os.Getenv("PASSWORD")
}

// GetDownloadPath returns the processed download path from env
func GetDownloadPath() string {
	path := os.Getenv("DOWNLOAD_PATH")
	if path == "" {
		path = "downloads"
	}

	// Expand ~ to home directory if present
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	return path
}
