// Package parser extracts listing data from the JSON state embedded in
// server-rendered Airbnb HTML. Missing optional leaves are normal content
// variance and are tolerated; a missing top-level anchor means the scraper
// itself is broken and is surfaced as an explicit error, never as an empty
// result.
package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// stateScriptID is the anchor script element carrying the embedded state.
// If the site renames it, every parse fails with ErrMissingState; that is
// an upstream contract break, not something this package works around.
const stateScriptID = "data-deferred-state-0"

// ErrUpstreamFormat is the base class for "the site changed its markup"
// failures. Callers use errors.Is to tell these apart from network errors.
var ErrUpstreamFormat = errors.New("upstream format error")

var (
	// ErrMissingState means the anchor script element was not found.
	ErrMissingState = fmt.Errorf("%w: missing %s script", ErrUpstreamFormat, stateScriptID)
	// ErrInvalidState means the anchor was found but held undecodable JSON.
	ErrInvalidState = fmt.Errorf("%w: undecodable embedded state", ErrUpstreamFormat)
)

// extractState locates the anchor script and decodes the embedded JSON
// document.
func extractState(html string) (map[string]any, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	sel := doc.Find("script#" + stateScriptID)
	if sel.Length() == 0 {
		return nil, ErrMissingState
	}

	var state map[string]any
	if err := json.Unmarshal([]byte(sel.First().Text()), &state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	return state, nil
}

// niobeEntries returns the data payloads of the niobeClientData cache. Each
// cache entry is a [querySignature, payload] pair; only payloads carrying a
// "data" key are of interest.
func niobeEntries(state map[string]any) []map[string]any {
	raw, _ := state["niobeClientData"].([]any)
	entries := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		pair, ok := item.([]any)
		if !ok || len(pair) < 2 {
			continue
		}
		payload, ok := pair[1].(map[string]any)
		if !ok {
			continue
		}
		if _, ok := payload["data"]; !ok {
			continue
		}
		entries = append(entries, payload)
	}
	return entries
}

// dig walks a nested map by key path and returns nil when any level is
// absent or not a map.
func dig(node any, path ...string) any {
	cur := node
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[key]
	}
	return cur
}

func digString(node any, path ...string) string {
	s, _ := dig(node, path...).(string)
	return s
}

func digSlice(node any, path ...string) []any {
	s, _ := dig(node, path...).([]any)
	return s
}

func digFloat(node any, path ...string) float64 {
	f, _ := dig(node, path...).(float64)
	return f
}

func digInt(node any, path ...string) int {
	// encoding/json decodes all numbers as float64.
	return int(digFloat(node, path...))
}

func digBool(node any, path ...string) bool {
	b, _ := dig(node, path...).(bool)
	return b
}
