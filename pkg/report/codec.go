package report

import (
	"encoding/json"
	"fmt"
)

type reportJSON struct {
	SourceName string         `json:"source_name"`
	Format     string         `json:"format,omitempty"`
	Endpoints  []endpointJSON `json:"endpoints"`
}

type endpointJSON struct {
	Key     string   `json:"key"`
	Samples []Sample `json:"samples"`
}

// MarshalJSON encodes the report with its endpoints in first-seen order
func (r *Report) MarshalJSON() ([]byte, error) {
	out := reportJSON{
		SourceName: r.SourceName,
		Format:     r.Format,
		Endpoints:  make([]endpointJSON, 0, len(r.keys)),
	}
	for _, k := range r.keys {
		out.Endpoints = append(out.Endpoints, endpointJSON{Key: k, Samples: r.samples[k]})
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a report written by MarshalJSON
func (r *Report) UnmarshalJSON(data []byte) error {
	var in reportJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("failed to decode report: %w", err)
	}

	*r = Report{
		SourceName: in.SourceName,
		Format:     in.Format,
		samples:    make(map[string][]Sample, len(in.Endpoints)),
	}
	for _, e := range in.Endpoints {
		r.track(e.Key)
		r.samples[e.Key] = append(r.samples[e.Key], e.Samples...)
	}
	return nil
}
