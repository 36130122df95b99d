package report

import (
	"errors"

	"github.com/smallbiznis/insight/internal/basket"
	"github.com/smallbiznis/insight/internal/budget"
	"github.com/smallbiznis/insight/internal/lifecycle"
	"github.com/smallbiznis/insight/internal/rfm"
	"github.com/smallbiznis/insight/internal/segmentation"
)

// Report is the full analysis payload returned to clients.
type Report struct {
	AnalyzedData []rfm.Profile           `json:"analyzedData"`
	Centroids    []segmentation.Centroid `json:"centroids"`
	Rules        []basket.Rule           `json:"rules"`
	Transitions  []lifecycle.Transition  `json:"transitions"`
	Budget       []budget.Channel        `json:"budget"`
	// Offline marks reports produced from synthetic data because the
	// remote analyzer was unreachable.
	Offline bool `json:"offline,omitempty"`
}

var (
	ErrEmptyDataset = errors.New("empty_dataset")
)
