package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/colorstring"
	"golang.org/x/term"

	"github.com/katomaro/curseduca-dl/internal/config"
	"github.com/katomaro/curseduca-dl/internal/downloader"
)

func main() {
	urlFlag := flag.String("url", "", "Platform URL (e.g. https://cursos.example.com.br)")
	courseFlag := flag.Int("c", 0, "Course number from the listing (0 asks interactively)")
	allFlag := flag.Bool("all", false, "Download every enrolled course")
	listFlag := flag.Bool("list", false, "List enrolled courses and exit")
	outputFlag := flag.String("o", "", "Output directory (default: downloads)")
	clearCacheFlag := flag.Bool("clear-cache", false, "Drop cached course metadata and download state first")
	flag.Parse()

	// .env is optional, anything missing from it gets prompted for
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Printf("Error loading .env file: %v\n", err)
		os.Exit(1)
	}

	baseURL := *urlFlag
	if baseURL == "" {
		baseURL = config.GetBaseURL()
	}
	if baseURL == "" {
		baseURL = prompt("Platform URL (https://...): ")
	}
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		fmt.Println("A platform URL is required (use -url or set BASE_URL in .env)")
		os.Exit(1)
	}
	if !strings.HasPrefix(baseURL, "http") {
		baseURL = "https://" + baseURL
	}

	email := config.GetEmail()
	if email == "" {
		email = prompt("Email: ")
	}

	password := config.GetPassword()
	if password == "" {
		password = promptPassword("Password: ")
	}

	if email == "" || password == "" {
		fmt.Println("Email and password are required (prompt, or EMAIL and PASSWORD in .env)")
		os.Exit(1)
	}

	basePath := *outputFlag
	if basePath == "" {
		basePath = config.GetDownloadPath()
	}

	dl, err := downloader.New(baseURL, basePath)
	if err != nil {
		fmt.Printf("Error creating downloader: %v\n", err)
		os.Exit(1)
	}

	if *clearCacheFlag {
		dl.Cache.List()
		if err := dl.Cache.Clear(); err != nil {
			fmt.Printf("Error clearing cache: %v\n", err)
			os.Exit(1)
		}
		colorstring.Println("[yellow]Cache cleared")
	}

	if err := dl.Login(email, password); err != nil {
		fmt.Printf("Error logging in: %v\n", err)
		os.Exit(1)
	}

	courses, err := dl.ListCourses()
	if err != nil {
		fmt.Printf("Error listing courses: %v\n", err)
		os.Exit(1)
	}

	printCourseMenu(courses)

	if *listFlag {
		return
	}

	if *allFlag {
		if err := dl.DownloadCourses(courses); err != nil {
			fmt.Printf("Error downloading courses: %v\n", err)
			os.Exit(1)
		}
		return
	}

	choice := *courseFlag
	if choice == 0 && !isFlagSet("c") {
		choice = askCourseNumber(len(courses))
	}

	if choice == 0 {
		if err := dl.DownloadCourses(courses); err != nil {
			fmt.Printf("Error downloading courses: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if choice < 1 || choice > len(courses) {
		fmt.Printf("Invalid course number %d (pick 1-%d)\n", choice, len(courses))
		os.Exit(1)
	}

	if err := dl.DownloadCourse(courses[choice-1]); err != nil {
		fmt.Printf("Error downloading course: %v\n", err)
		os.Exit(1)
	}
}

func printCourseMenu(courses []downloader.Course) {
	colorstring.Println("\n[bold]Available courses:")
	for i, course := range courses {
		colorstring.Printf("  [cyan]%2d[reset]. %s\n", i+1, course.Name)
	}
	fmt.Println("   0. All courses")
}

func askCourseNumber(max int) int {
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Printf("\nWhich course? (1-%d, 0 for all): ", max)

		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Printf("Error reading choice: %v\n", err)
			os.Exit(1)
		}

		choice, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil || choice < 0 || choice > max {
			colorstring.Println("[red]Not a valid course number")
			continue
		}

		return choice
	}
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func prompt(label string) string {
	fmt.Print(label)

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(line)
}

// promptPassword reads a line without echoing it.
func promptPassword(label string) string {
	fmt.Print(label)

	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(password))
}
