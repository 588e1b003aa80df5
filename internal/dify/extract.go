package dify

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"
)

// ExtractResult is what a domain's extraction rule pulled out of a
// workflow_finished payload.
type ExtractResult struct {
	Result []string
	Files  []FileRef
}

// ExtractFunc turns the terminal payload plus the text accumulated from
// text_chunk frames into the final result. ok=false means nothing usable was
// found and the run is reported as failed.
type ExtractFunc func(payload finishedData, raw json.RawMessage, accumulatedText string) (ExtractResult, bool)

// urlSearchBudget bounds the recursive URL walk so a pathological payload
// cannot pin the relay.
const urlSearchBudget = 512

// uploadPathPattern matches the engine's file-preview path shape. Last-resort
// recovery for responses where the URL is buried in an unexpected field.
var uploadPathPattern = regexp.MustCompile(`/files/[0-9a-fA-F-]{36}/file-preview[^\s"'\\]*`)

// newExtractor builds the shared priority-ordered extraction rule:
//  1. explicit files[] on the payload,
//  2. any url/remote_url nested anywhere in the payload,
//  3. an upload-path-shaped string in the serialized payload,
//  4. named output keys (textKeys, checked in order; strings or string arrays),
//  5. the accumulated text chunks, when the domain allows it.
func newExtractor(baseURL string, textKeys []string, textFallback bool) ExtractFunc {
	return func(payload finishedData, raw json.RawMessage, accumulatedText string) (ExtractResult, bool) {
		if files := explicitFiles(payload, baseURL); len(files) > 0 {
			return ExtractResult{Files: files}, true
		}
		if files := nestedFiles(raw, baseURL); len(files) > 0 {
			return ExtractResult{Files: files}, true
		}
		if files := scannedFiles(raw, baseURL); len(files) > 0 {
			return ExtractResult{Files: files}, true
		}
		if result := outputValues(payload.Outputs, textKeys); len(result) > 0 {
			return ExtractResult{Result: result}, true
		}
		if textFallback && strings.TrimSpace(accumulatedText) != "" {
			return ExtractResult{Result: []string{accumulatedText}}, true
		}
		return ExtractResult{}, false
	}
}

func explicitFiles(payload finishedData, baseURL string) []FileRef {
	var out []FileRef
	for _, f := range payload.Files {
		u := f.URL
		if u == "" {
			u = f.RemoteURL
		}
		if u == "" {
			continue
		}
		out = append(out, FileRef{URL: resolveURL(baseURL, u)})
	}
	return out
}

func nestedFiles(raw json.RawMessage, baseURL string) []FileRef {
	if len(raw) == 0 {
		return nil
	}
	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil
	}
	budget := urlSearchBudget
	var urls []string
	collectURLs(tree, &budget, &urls)
	out := make([]FileRef, 0, len(urls))
	seen := make(map[string]bool, len(urls))
	for _, u := range urls {
		resolved := resolveURL(baseURL, u)
		if seen[resolved] {
			continue
		}
		seen[resolved] = true
		out = append(out, FileRef{URL: resolved})
	}
	return out
}

// collectURLs walks the JSON tree depth-first gathering url/remote_url string
// fields. Map keys are visited in sorted order so results are deterministic.
func collectURLs(v any, budget *int, out *[]string) {
	if *budget <= 0 {
		return
	}
	*budget--
	switch t := v.(type) {
	case map[string]any:
		for _, key := range []string{"url", "remote_url"} {
			if s, ok := t[key].(string); ok && strings.TrimSpace(s) != "" {
				*out = append(*out, s)
			}
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if k == "url" || k == "remote_url" {
				continue
			}
			collectURLs(t[k], budget, out)
		}
	case []any:
		for _, item := range t {
			collectURLs(item, budget, out)
		}
	}
}

func scannedFiles(raw json.RawMessage, baseURL string) []FileRef {
	if len(raw) == 0 {
		return nil
	}
	matches := uploadPathPattern.FindAllString(string(raw), -1)
	out := make([]FileRef, 0, len(matches))
	seen := make(map[string]bool, len(matches))
	for _, m := range matches {
		resolved := resolveURL(baseURL, m)
		if seen[resolved] {
			continue
		}
		seen[resolved] = true
		out = append(out, FileRef{URL: resolved})
	}
	return out
}

// outputValues pulls string or string-array values for the first key that
// yields anything.
func outputValues(outputs json.RawMessage, keys []string) []string {
	if len(outputs) == 0 || len(keys) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(outputs, &m); err != nil {
		return nil
	}
	for _, key := range keys {
		switch v := m[key].(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return []string{v}
			}
		case []any:
			var vals []string
			for _, item := range v {
				if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
					vals = append(vals, s)
				}
			}
			if len(vals) > 0 {
				return vals
			}
		}
	}
	return nil
}

func resolveURL(baseURL, u string) string {
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	base := strings.TrimRight(baseURL, "/")
	if !strings.HasPrefix(u, "/") {
		u = "/" + u
	}
	return base + u
}
