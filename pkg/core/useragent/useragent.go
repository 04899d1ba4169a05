// Package useragent classifies user agent strings into the device, browser and
// OS buckets shown on the analytics dashboard.
package useragent

import (
	"strings"

	ua "github.com/mssola/useragent"
)

const (
	unknown = "Unknown"
	other   = "Other"
)

type Info struct {
	Device  string
	Browser string
	OS      string
}

func Parse(userAgent string) Info {
	if strings.TrimSpace(userAgent) == "" {
		return Info{Device: unknown, Browser: unknown, OS: unknown}
	}

	agent := ua.New(userAgent)
	if agent.Bot() {
		return Info{Device: "Bot", Browser: "Bot", OS: operatingSystem(agent)}
	}

	browser, _ := agent.Browser()
	if browser == "" {
		browser = other
	}
	os := operatingSystem(agent)
	return Info{Device: device(agent, os), Browser: browser, OS: os}
}

// Android tablets omit the Mobile token that phones send.
func device(agent *ua.UserAgent, os string) string {
	switch {
	case agent.Platform() == "iPad":
		return "Tablet"
	case os == "Android" && !agent.Mobile():
		return "Tablet"
	case agent.Mobile():
		return "Mobile"
	}
	return "Desktop"
}

// iOS reports itself "like Mac OS X", so the platform is checked first.
func operatingSystem(agent *ua.UserAgent) string {
	switch agent.Platform() {
	case "iPhone", "iPad", "iPod", "iPod touch":
		return "iOS"
	}

	os := agent.OS()
	switch {
	case strings.Contains(os, "Android"):
		return "Android"
	case strings.HasPrefix(os, "Windows"):
		return "Windows"
	case strings.Contains(os, "Mac OS X"):
		return "macOS"
	case strings.Contains(os, "CrOS"):
		return "ChromeOS"
	case strings.Contains(os, "Linux"):
		return "Linux"
	}
	return other
}
