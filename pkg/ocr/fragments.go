package ocr

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DecodeFragments parses detector output in the nested list layout used by
// PaddleOCR-style services:
//
//	[[ [[x,y],[x,y],[x,y],[x,y]], ["text", 0.98] ], ...]
//
// optionally wrapped in a per-image list, and also accepts objects shaped like
// Fragment. Entries that cannot be read are counted in skipped rather than
// failing the whole page. Box validity is left to the assembler.
func DecodeFragments(data []byte) (fragments []Fragment, skipped int, err error) {
	var outer []json.RawMessage
	if err := json.Unmarshal(data, &outer); err != nil {
		return nil, 0, fmt.Errorf("decode detector output: %w", err)
	}
	if len(outer) == 0 || isNull(outer[0]) {
		return nil, 0, nil
	}
	if len(outer) == 1 && isEmptyList(outer[0]) {
		// a single page with no detections
		return nil, 0, nil
	}
	items := outer
	if listDepth(outer[0]) >= 4 {
		if err := json.Unmarshal(outer[0], &items); err != nil {
			return nil, 0, fmt.Errorf("decode detector page: %w", err)
		}
	}
	fragments = make([]Fragment, 0, len(items))
	for _, raw := range items {
		f, ok := decodeFragment(raw)
		if !ok {
			skipped++
			continue
		}
		fragments = append(fragments, f)
	}
	return fragments, skipped, nil
}

func decodeFragment(raw json.RawMessage) (Fragment, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		var obj struct {
			Box        [][]float64 `json:"box"`
			Text       *string     `json:"text"`
			Confidence float64     `json:"confidence"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil || obj.Text == nil {
			return Fragment{}, false
		}
		box, ok := pointsFrom(obj.Box)
		if !ok {
			return Fragment{}, false
		}
		return Fragment{Box: box, Text: *obj.Text, Confidence: obj.Confidence}, true
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil || len(parts) < 2 {
		return Fragment{}, false
	}
	var coords [][]float64
	if err := json.Unmarshal(parts[0], &coords); err != nil {
		return Fragment{}, false
	}
	box, ok := pointsFrom(coords)
	if !ok {
		return Fragment{}, false
	}
	var rec []json.RawMessage
	if err := json.Unmarshal(parts[1], &rec); err != nil || len(rec) == 0 {
		return Fragment{}, false
	}
	var f Fragment
	if err := json.Unmarshal(rec[0], &f.Text); err != nil {
		return Fragment{}, false
	}
	if len(rec) > 1 {
		_ = json.Unmarshal(rec[1], &f.Confidence)
	}
	f.Box = box
	return f, true
}

func pointsFrom(coords [][]float64) ([]Point, bool) {
	pts := make([]Point, 0, len(coords))
	for _, c := range coords {
		if len(c) < 2 {
			return nil, false
		}
		pts = append(pts, Point{X: c[0], Y: c[1]})
	}
	return pts, true
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func isEmptyList(raw json.RawMessage) bool {
	var arr []json.RawMessage
	return json.Unmarshal(raw, &arr) == nil && len(arr) == 0
}

// listDepth counts how many arrays are nested along the first element of raw.
func listDepth(raw json.RawMessage) int {
	depth := 0
	for {
		var arr []json.RawMessage
		if err := json.Unmarshal(raw, &arr); err != nil {
			return depth
		}
		depth++
		if len(arr) == 0 {
			return depth
		}
		raw = arr[0]
	}
}
