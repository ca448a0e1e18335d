package browser

import (
	"fmt"
	"math/rand/v2"

	"github.com/stupside/veil/internal/shield"
)

// Profile is the desktop identity a browser presents over CDP. The values
// the in-page script pins (hardware concurrency, device memory) are taken
// from the same constants so both layers agree.
type Profile struct {
	UserAgent           string
	Brands              [][2]string // [brand, major version]
	FullVersionList     [][2]string // [brand, full version]
	Platform            string      // Client Hints platform
	PlatformVersion     string
	Architecture        string
	Bitness             string
	NavigatorPlatform   string
	AcceptLanguage      string
	Languages           []string
	TimezoneID          string
	ScreenWidth         int
	ScreenHeight        int
	HardwareConcurrency int64
}

type osPreset struct {
	ua                string
	navigatorPlatform string
	platform          string
	platformVersion   string
	architecture      string
}

var osPresets = []osPreset{
	{"Windows NT 10.0; Win64; x64", "Win32", "Windows", "15.0.0", "x86"},
	{"Macintosh; Intel Mac OS X 10_15_7", "MacIntel", "macOS", "14.5.0", "arm"},
	{"X11; Linux x86_64", "Linux x86_64", "Linux", "6.5.0", "x86"},
}

var screens = [][2]int{{1920, 1080}, {2560, 1440}, {1536, 864}}

var locales = []struct {
	timezone  string
	accept    string
	languages []string
}{
	{"America/New_York", "en-US,en;q=0.9", []string{"en-US", "en"}},
	{"Europe/London", "en-GB,en;q=0.9", []string{"en-GB", "en"}},
}

var chromeMajors = []string{"131", "132", "133"}

// NewProfile picks a consistent random desktop identity.
func NewProfile() *Profile {
	osp := osPresets[rand.IntN(len(osPresets))]
	scr := screens[rand.IntN(len(screens))]
	loc := locales[rand.IntN(len(locales))]
	major := chromeMajors[rand.IntN(len(chromeMajors))]
	full := major + ".0.0.0"

	return &Profile{
		UserAgent: fmt.Sprintf(
			"Mozilla/5.0 (%s) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%s Safari/537.36",
			osp.ua, full,
		),
		Brands:              [][2]string{{"Not A(Brand", "8"}, {"Chromium", major}, {"Google Chrome", major}},
		FullVersionList:     [][2]string{{"Not A(Brand", "8.0.0.0"}, {"Chromium", full}, {"Google Chrome", full}},
		Platform:            osp.platform,
		PlatformVersion:     osp.platformVersion,
		Architecture:        osp.architecture,
		Bitness:             "64",
		NavigatorPlatform:   osp.navigatorPlatform,
		AcceptLanguage:      loc.accept,
		Languages:           loc.languages,
		TimezoneID:          loc.timezone,
		ScreenWidth:         scr[0],
		ScreenHeight:        scr[1],
		HardwareConcurrency: shield.HardwareConcurrency,
	}
}
