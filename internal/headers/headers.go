// Package headers generates randomized but internally consistent browser
// header profiles. An inconsistent fingerprint (a Chrome User-Agent paired
// with Firefox-only headers) is itself a detection signal, so everything in
// a profile is derived from one chosen browser family.
package headers

import (
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Profile is a coherent header bundle for one simulated client.
type Profile struct {
	UserAgent       string
	Accept          string
	AcceptLanguage  string
	SecCHUA         string // Chromium family only
	SecCHUAMobile   string
	SecCHUAPlatform string
	SecFetchSite    string
	SecGPC          bool // Firefox only
	DNT             bool
	CacheControl    string
}

var userAgents = []string{
	// Chrome on Windows
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	// Chrome on Mac
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	// Chrome on Linux
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	// Edge on Windows
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
	// Firefox on Windows
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:120.0) Gecko/20100101 Firefox/120.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:122.0) Gecko/20100101 Firefox/122.0",
	// Firefox on Mac
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:121.0) Gecko/20100101 Firefox/121.0",
	// Safari on Mac
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
}

var acceptLanguages = []string{
	"en-US,en;q=0.9",
	"en-GB,en;q=0.9,en-US;q=0.8",
	"de-DE,de;q=0.9,en-US;q=0.8,en;q=0.7",
	"de-CH,de;q=0.9,en-US;q=0.8,en;q=0.7",
	"fr-FR,fr;q=0.9,en-US;q=0.8,en;q=0.7",
	"fr-CH,fr;q=0.9,de;q=0.8,en;q=0.7",
	"it-CH,it;q=0.9,de;q=0.8,en;q=0.7",
	"es-ES,es;q=0.9,en;q=0.8",
	"nl-NL,nl;q=0.9,en;q=0.8",
}

var acceptValues = []string{
	"text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
	"text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
}

// secCHUA values keyed by the Chrome major version found in the UA, so the
// client hint never disagrees with the User-Agent.
var secCHUAByVersion = map[string]string{
	"119": `"Not_A Brand";v="8", "Chromium";v="119", "Google Chrome";v="119"`,
	"120": `"Not_A Brand";v="8", "Chromium";v="120", "Google Chrome";v="120"`,
	"121": `"Not_A Brand";v="8", "Chromium";v="121", "Google Chrome";v="121"`,
}

const secCHUAEdge = `"Chromium";v="120", "Not_A Brand";v="24", "Microsoft Edge";v="120"`

// Generator produces header profiles and human-like delays. One instance is
// shared by every concurrent run, so draws from the random source are
// serialized by a mutex.
type Generator struct {
	mu   sync.Mutex
	rand *rand.Rand
}

// NewGenerator returns a generator seeded from the current time.
func NewGenerator() *Generator {
	return &Generator{rand: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewGeneratorWithSeed returns a deterministic generator for tests.
func NewGeneratorWithSeed(seed int64) *Generator {
	return &Generator{rand: rand.New(rand.NewSource(seed))}
}

// RandomProfile draws a User-Agent and derives the rest of the header set
// from the same browser family.
func (g *Generator) RandomProfile() Profile {
	g.mu.Lock()
	defer g.mu.Unlock()

	ua := userAgents[g.rand.Intn(len(userAgents))]

	p := Profile{
		UserAgent:      ua,
		Accept:         acceptValues[g.rand.Intn(len(acceptValues))],
		AcceptLanguage: acceptLanguages[g.rand.Intn(len(acceptLanguages))],
		SecFetchSite:   []string{"none", "same-origin", "cross-site"}[g.rand.Intn(3)],
	}

	switch {
	case strings.Contains(ua, "Edg/"):
		p.SecCHUA = secCHUAEdge
		p.SecCHUAMobile = "?0"
		p.SecCHUAPlatform = `"Windows"`
	case strings.Contains(ua, "Chrome/"):
		p.SecCHUA = secCHUAByVersion[chromeMajor(ua)]
		p.SecCHUAMobile = "?0"
		p.SecCHUAPlatform = platformHint(ua)
	case strings.Contains(ua, "Firefox/"):
		p.SecGPC = true
	}

	if g.rand.Float64() < 0.3 {
		p.DNT = true
	}
	if g.rand.Float64() < 0.2 {
		p.CacheControl = []string{"max-age=0", "no-cache"}[g.rand.Intn(2)]
	}

	return p
}

// Header renders the profile as request headers.
func (p Profile) Header() map[string]string {
	// Accept-Encoding is deliberately not set: the HTTP transport adds
	// gzip itself and transparently decompresses, which stops working the
	// moment the header is set by hand.
	h := map[string]string{
		"User-Agent":                p.UserAgent,
		"Accept":                    p.Accept,
		"Accept-Language":           p.AcceptLanguage,
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            p.SecFetchSite,
		"Sec-Fetch-User":            "?1",
	}
	if p.SecCHUA != "" {
		h["Sec-CH-UA"] = p.SecCHUA
		h["Sec-CH-UA-Mobile"] = p.SecCHUAMobile
		h["Sec-CH-UA-Platform"] = p.SecCHUAPlatform
	}
	if p.SecGPC {
		h["Sec-GPC"] = "1"
	}
	if p.DNT {
		h["DNT"] = "1"
	}
	if p.CacheControl != "" {
		h["Cache-Control"] = p.CacheControl
	}
	return h
}

// RandomDelay returns a duration drawn from a triangular distribution
// peaked at the midpoint of [min, max]. Mid-biased timing looks more like a
// human between page loads than uniform noise does.
func (g *Generator) RandomDelay(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	lo, hi := float64(min), float64(max)
	mode := (lo + hi) / 2

	// Inverse transform sampling of the triangular CDF.
	g.mu.Lock()
	u := g.rand.Float64()
	g.mu.Unlock()
	var v float64
	if u < (mode-lo)/(hi-lo) {
		v = lo + math.Sqrt(u*(hi-lo)*(mode-lo))
	} else {
		v = hi - math.Sqrt((1-u)*(hi-lo)*(hi-mode))
	}
	return time.Duration(v)
}

func chromeMajor(ua string) string {
	i := strings.Index(ua, "Chrome/")
	if i < 0 {
		return ""
	}
	rest := ua[i+len("Chrome/"):]
	if j := strings.IndexByte(rest, '.'); j > 0 {
		return rest[:j]
	}
	return rest
}

func platformHint(ua string) string {
	switch {
	case strings.Contains(ua, "Windows"):
		return `"Windows"`
	case strings.Contains(ua, "Mac OS X"):
		return `"macOS"`
	default:
		return `"Linux"`
	}
}
