package util

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	controlChars  = regexp.MustCompile(`[\x00-\x1f\x7f]`)
	reservedChars = regexp.MustCompile(`[\\/:*?"<>|]`)
	dashRuns      = regexp.MustCompile(`-+`)
)

// Device names Windows refuses as file names regardless of extension.
var reservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// PrepareOutputDir validates dir as a destination for compressed files,
// creating it when missing, and returns its absolute path.
func PrepareOutputDir(dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", fmt.Errorf("output directory cannot be empty")
	}
	abs, err := filepath.Abs(filepath.Clean(dir))
	if err != nil {
		return "", fmt.Errorf("cannot resolve output directory: %w", err)
	}

	info, err := os.Stat(abs)
	switch {
	case err == nil && !info.IsDir():
		return "", fmt.Errorf("path exists but is not a directory: %s", abs)
	case os.IsNotExist(err):
		if err := os.MkdirAll(abs, 0755); err != nil {
			return "", fmt.Errorf("cannot create output directory: %w", err)
		}
	case err != nil:
		return "", fmt.Errorf("cannot access output directory: %w", err)
	}

	if err := checkWritePermission(abs); err != nil {
		return "", fmt.Errorf("no write permission for output directory: %w", err)
	}
	return abs, nil
}

// checkWritePermission creates and removes a marker file in dirPath.
func checkWritePermission(dirPath string) error {
	marker := filepath.Join(dirPath, ".squish_write_check")
	file, err := os.Create(marker)
	if err != nil {
		return err
	}
	file.Close()
	return os.Remove(marker)
}

// SanitizeFileName replaces characters that are invalid in file names on
// Windows, macOS or Linux. The extension is kept intact.
func SanitizeFileName(name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	base = controlChars.ReplaceAllString(base, "")
	base = reservedChars.ReplaceAllString(base, "-")
	base = strings.Trim(base, " .")
	base = dashRuns.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-")

	if base == "" {
		base = "image"
	}
	if reservedNames[strings.ToUpper(base)] {
		base += "_"
	}
	return base + reservedChars.ReplaceAllString(ext, "")
}
