package session

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/jscyril/wavtagger/api"
)

// exportPrecision is the number of decimal places kept in exported times
const exportPrecision = 4

// ExportTags renders tags as an indented JSON array of [start, end] pairs
// rounded to four decimal places, in insertion order
func ExportTags(tags []api.Tag) ([]byte, error) {
	pairs := make([][2]float64, len(tags))
	for i, t := range tags {
		pairs[i] = [2]float64{round(t.Start), round(t.End)}
	}

	data, err := json.MarshalIndent(pairs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}
	return data, nil
}

func round(v float64) float64 {
	scale := math.Pow(10, exportPrecision)
	return math.Round(v*scale) / scale
}
