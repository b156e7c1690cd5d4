package downloader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"

	"github.com/katomaro/curseduca-dl/internal/cache"
	"github.com/katomaro/curseduca-dl/internal/config"
	"github.com/katomaro/curseduca-dl/internal/vimeo"
	"github.com/katomaro/curseduca-dl/internal/youtube"
)

type Tenant struct {
	Id   int    `json:"id"`
	Uuid string `json:"uuid"`
	Slug string `json:"slug"`
}

type Member struct {
	Id      int    `json:"id"`
	Uuid    string `json:"uuid"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
	Tenant  Tenant `json:"tenant"`
}

// Auth is the payload returned by the shared auth service. CurrentLoginId
// is a hash, not a number.
type Auth struct {
	AccessToken      string `json:"accessToken"`
	RefreshToken     string `json:"refreshToken"`
	ExpiresAt        string `json:"expiresAt"`
	AuthenticationId int    `json:"authenticationId"`
	CurrentLoginId   string `json:"currentLoginId"`
	Member           Member `json:"member"`
}

type Downloader struct {
	Client   *http.Client
	BasePath string
	BaseURL  string
	APIKey   string
	Auth     *Auth
	Cache    *cache.Cache
	Vimeo    *vimeo.Client
	YouTube  *youtube.Client

	// Shared API hosts, overridable in tests.
	PlatformAPI string
	AuthAPI     string
	LessonsAPI  string
}

func New(baseURL, basePath string) (*Downloader, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Jar: jar}

	c, err := cache.New(basePath)
	if err != nil {
		return nil, err
	}

	baseURL = strings.TrimSuffix(baseURL, "/")
	return &Downloader{
		Client:      client,
		BasePath:    basePath,
		BaseURL:     baseURL,
		Cache:       c,
		Vimeo:       vimeo.NewClient(client, baseURL),
		YouTube:     youtube.NewClient(client),
		PlatformAPI: config.PlatformAPIURL,
		AuthAPI:     config.AuthAPIURL,
		LessonsAPI:  config.LessonsAPIURL,
	}, nil
}

// Login runs the whitelabel auth flow: warm up the member site, resolve
// the tenant API key from the platform URL, authenticate against the
// shared auth service, then plant the session cookies the site expects.
func (d *Downloader) Login(email, password string) error {
	printBox("Authenticating")

	if err := d.visitLoginPage(); err != nil {
		return fmt.Errorf("failed to reach login page: %v", err)
	}

	apiKey, err := d.fetchPlatformKey()
	if err != nil {
		return fmt.Errorf("failed to get platform key: %v", err)
	}
	d.APIKey = apiKey

	auth, err := d.authenticate(email, password)
	if err != nil {
		return err
	}
	d.Auth = auth

	if err := d.setSessionCookies(); err != nil {
		return fmt.Errorf("failed to set session cookies: %v", err)
	}

	fmt.Printf("✓ Logged in as %s (tenant: %s)\n", auth.Member.Name, auth.Member.Tenant.Slug)
	return nil
}

func (d *Downloader) visitLoginPage() error {
	req, err := http.NewRequest("GET", d.BaseURL+config.LoginPath, nil)
	if err != nil {
		return err
	}

	for k, v := range config.DefaultHeaders {
		req.Header.Set(k, v)
	}

	resp, err := d.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	_, err = io.Copy(io.Discard, resp.Body)
	return err
}

// fetchPlatformKey asks the platform service for the tenant API key. The
// service resolves the tenant from the Origin header.
func (d *Downloader) fetchPlatformKey() (string, error) {
	req, err := http.NewRequest("GET", d.PlatformAPI+config.PlatformKeyPath, nil)
	if err != nil {
		return "", err
	}

	d.setAPIHeaders(req)

	resp, err := d.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("platform key request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode platform key: %v", err)
	}
	if payload.Key == "" {
		return "", fmt.Errorf("no API key for %s (not a Curseduca platform?)", d.BaseURL)
	}

	return payload.Key, nil
}

func (d *Downloader) authenticate(email, password string) (*Auth, error) {
	credentials := map[string]string{
		"username": email,
		"password": password,
	}

	jsonData, err := json.Marshal(credentials)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal credentials: %v", err)
	}

	loginURL := d.AuthAPI + config.AuthLoginPath
	req, err := http.NewRequest("POST", loginURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create login request: %v", err)
	}

	d.setAPIHeaders(req)

	resp, err := d.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed login request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("login failed with status %d: %s", resp.StatusCode, string(body))
	}

	var auth Auth
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return nil, fmt.Errorf("failed to decode auth response: %v", err)
	}
	if auth.AccessToken == "" {
		return nil, fmt.Errorf("auth response missing access token")
	}

	return &auth, nil
}

// setAPIHeaders marks a request as a cross-site call from the member site.
func (d *Downloader) setAPIHeaders(req *http.Request) {
	for k, v := range config.JsonHeaders {
		req.Header.Set(k, v)
	}
	req.Header.Set("User-Agent", config.DefaultHeaders["User-Agent"])
	req.Header.Set("Origin", d.BaseURL)
	req.Header.Set("Referer", d.BaseURL+"/")
	if d.APIKey != "" {
		req.Header.Set("api_key", d.APIKey)
	}
	if d.Auth != nil {
		req.Header.Set("Authorization", "Bearer "+d.Auth.AccessToken)
	}
}

// setSessionCookies replicates the cookies the web client stores after
// login, scoped to the parent domain so every tenant subdomain sees them.
func (d *Downloader) setSessionCookies() error {
	siteURL, err := url.Parse(d.BaseURL)
	if err != nil {
		return err
	}

	member := d.Auth.Member
	userData := map[string]interface{}{
		"id_prof_profile":        member.Id,
		"nm_name":                member.Name,
		"id_prof_authentication": d.Auth.AuthenticationId,
		"im_image":               nil,
		"nm_email":               member.Email,
		"tenant_uuid":            member.Tenant.Uuid,
		"slug_profile":           fmt.Sprintf("%s%d", strings.ReplaceAll(strings.ToLower(member.Name), " ", ""), member.Id),
		"is_admin":               member.IsAdmin,
		"nm_headline":            "",
	}

	userJSON, err := json.Marshal(userData)
	if err != nil {
		return fmt.Errorf("failed to marshal user cookie: %v", err)
	}

	values := map[string]string{
		"access_token":     d.Auth.AccessToken,
		"admin-lang":       "pt_BR",
		"allow_tutorial":   "true",
		"api_key":          d.APIKey,
		"current_login_id": d.Auth.CurrentLoginId,
		"language":         "pt_BR",
		"language_tenant":  "1",
		"platform_url":     d.BaseURL,
		"tenant_slug":      member.Tenant.Slug,
		"tenant_uuid":      member.Tenant.Uuid,
		"tenantId":         strconv.Itoa(member.Tenant.Id),
		"user":             url.QueryEscape(string(userJSON)),
		"view":             "2",
	}

	domain := cookieDomain(siteURL.Hostname())
	var cookies []*http.Cookie
	for name, value := range values {
		cookies = append(cookies, &http.Cookie{
			Name:   name,
			Value:  value,
			Domain: domain,
			Path:   "/",
		})
	}

	d.Client.Jar.SetCookies(siteURL, cookies)
	return nil
}

// cookieDomain drops the tenant subdomain: portal.example.com.br becomes
// example.com.br.
func cookieDomain(host string) string {
	parts := strings.SplitN(host, ".", 2)
	if len(parts) == 2 {
		return parts[1]
	}
	return host
}

func printBox(text string) {
	fmt.Println("====================================")
	fmt.Println(text)
	fmt.Println("====================================")
}
