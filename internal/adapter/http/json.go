package http

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"github.com/couchcryptid/covid-dashboard-service/internal/pipeline"
)

// finiteFloats encodes NaN and ±Inf as null. Log-scaled series contain them
// wherever a count is zero or a ratio is negative.
type finiteFloats []float64

func (f finiteFloats) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("null"), nil
	}
	buf := make([]byte, 0, 2+len(f)*8)
	buf = append(buf, '[')
	for i, v := range f {
		if i > 0 {
			buf = append(buf, ',')
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			buf = append(buf, "null"...)
			continue
		}
		buf = strconv.AppendFloat(buf, v, 'g', -1, 64)
	}
	return append(buf, ']'), nil
}

type traceResponse struct {
	Name string       `json:"name"`
	X    []string     `json:"x"`
	Y    finiteFloats `json:"y"`
	Mode string       `json:"mode"`
}

type axisResponse struct {
	Title string       `json:"title,omitempty"`
	Range finiteFloats `json:"range,omitempty"`
}

type layoutResponse struct {
	XAxis axisResponse `json:"xaxis"`
	YAxis axisResponse `json:"yaxis"`
}

type chartResponse struct {
	Data   []traceResponse `json:"data"`
	Layout layoutResponse  `json:"layout"`
}

func newChartResponse(c pipeline.Chart) chartResponse {
	out := chartResponse{
		Data: make([]traceResponse, len(c.Data)),
		Layout: layoutResponse{
			XAxis: axisResponse{Title: c.Layout.XAxis.Title, Range: c.Layout.XAxis.Range},
			YAxis: axisResponse{Title: c.Layout.YAxis.Title, Range: c.Layout.YAxis.Range},
		},
	}
	for i, t := range c.Data {
		out.Data[i] = traceResponse{
			Name: t.Name,
			X:    t.X,
			Y:    finiteFloats(t.Y),
			Mode: t.Mode,
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
