package models

// ChannelOption is a destination selector as presented to users: a display
// label plus the destination's opaque id.
type ChannelOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// DispatchResult is the outcome of sending one payload to one destination.
// Partial failure across a batch is reported per destination, never collapsed.
type DispatchResult struct {
	Destination string `json:"destination"`
	OK          bool   `json:"ok"`
	Error       string `json:"error,omitempty"`
}

// DispatchSummary is the overall outcome of a batch send.
type DispatchSummary struct {
	Message string           `json:"message"`
	Results []DispatchResult `json:"results,omitempty"`
}

// Failed reports whether any destination in the batch failed.
func (s DispatchSummary) Failed() bool {
	for _, result := range s.Results {
		if !result.OK {
			return true
		}
	}

	return false
}
