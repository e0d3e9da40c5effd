package utils

import (
	"strings"

	ua "github.com/mssola/user_agent"
)

// DeviceInfo is what the request log records about the caller's browser
type DeviceInfo struct {
	DeviceType string `json:"device_type"` // mobile, tablet, desktop
	OS         string `json:"os"`
	Browser    string `json:"browser"`
	BrowserVer string `json:"browser_ver"`
	IsBot      bool   `json:"is_bot"`
	Platform   string `json:"platform"` // android, ios, windows, mac, linux
}

var tabletIndicators = []string{"ipad", "tablet", "kindle", "playbook", "nexus 7", "nexus 9", "nexus 10", "sm-t"}

// Ordered so that "iphone os" is not read as some other platform first
var platforms = []struct{ match, platform string }{
	{"android", "android"},
	{"iphone os", "ios"},
	{"ios", "ios"},
	{"windows", "windows"},
	{"mac os x", "mac"},
	{"macos", "mac"},
	{"chrome os", "chromeos"},
	{"ubuntu", "linux"},
	{"linux", "linux"},
}

// ParseUserAgent extracts device information from a User-Agent string
func ParseUserAgent(userAgent string) DeviceInfo {
	if userAgent == "" || userAgent == "Unknown" {
		return DeviceInfo{
			DeviceType: "unknown",
			OS:         "Unknown",
			Browser:    "Unknown",
			Platform:   "unknown",
		}
	}

	parser := ua.New(userAgent)
	browser, version := parser.Browser()
	if browser == "" {
		browser = "Unknown"
	}

	osInfo := parser.OSInfo()
	osName := strings.TrimSpace(osInfo.Name + " " + osInfo.Version)
	if osInfo.Name == "" {
		osName = "Unknown"
	}

	return DeviceInfo{
		DeviceType: deviceType(parser),
		OS:         osName,
		Browser:    browser,
		BrowserVer: version,
		IsBot:      parser.Bot(),
		Platform:   platformOf(osInfo.Name),
	}
}

func deviceType(parser *ua.UserAgent) string {
	if !parser.Mobile() {
		if strings.Contains(strings.ToLower(parser.UA()), "ipad") {
			return "tablet"
		}
		return "desktop"
	}
	lower := strings.ToLower(parser.UA())
	for _, indicator := range tabletIndicators {
		if strings.Contains(lower, indicator) {
			return "tablet"
		}
	}
	return "mobile"
}

func platformOf(osName string) string {
	lower := strings.ToLower(osName)
	for _, p := range platforms {
		if strings.Contains(lower, p.match) {
			return p.platform
		}
	}
	return "unknown"
}
