package model

import (
	"context"
	"fmt"
	"net/http"

	"FeatureMill/internal/domain/models"
	xhttp "FeatureMill/pkg/http"
)

// FitReport is the outcome of one model fit: the evaluation metric on the
// held-out tail and a reference to the fitted artifact.
type FitReport struct {
	Metric   float64
	ModelRef string
}

// Trainer fits and scores one model over a dense dataset. Implementations
// must be deterministic for identical inputs.
type Trainer interface {
	Fit(ctx context.Context, ds *Dataset, params models.ModelParameterSet) (FitReport, error)
}

// LocalTrainer fits an in-process random forest. Feature selection runs on
// the training split only, then the selected columns are carried to the test
// split.
type LocalTrainer struct {
	selector   FeatureSelector
	seed       int64
	splitRatio float64
}

type LocalTrainerOption func(*LocalTrainer)

func WithSelector(s FeatureSelector) LocalTrainerOption {
	return func(t *LocalTrainer) { t.selector = s }
}

func WithSeed(seed int64) LocalTrainerOption {
	return func(t *LocalTrainer) { t.seed = seed }
}

func WithSplitRatio(ratio float64) LocalTrainerOption {
	return func(t *LocalTrainer) { t.splitRatio = ratio }
}

func NewLocalTrainer(opts ...LocalTrainerOption) *LocalTrainer {
	t := &LocalTrainer{
		selector:   CorrelationSelector{},
		seed:       1,
		splitRatio: 0.8,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *LocalTrainer) Fit(ctx context.Context, ds *Dataset, params models.ModelParameterSet) (FitReport, error) {
	train, test := ds.Split(t.splitRatio)

	keep, err := t.selector.Select(train, params.NFeatures)
	if err != nil {
		return FitReport{}, fmt.Errorf("feature selection: %w", err)
	}
	train = train.Project(keep)
	test = test.Project(keep)

	forest, err := FitForest(ctx, train, params, t.seed)
	if err != nil {
		return FitReport{}, fmt.Errorf("fit forest: %w", err)
	}

	return FitReport{
		Metric:   WeightedF1(test.Y, forest.PredictAll(test.X)),
		ModelRef: forest.Ref(),
	}, nil
}

// RemoteTrainer delegates fitting to an external training service over
// HTTP, used when the fit should run on a dedicated box.
type RemoteTrainer struct {
	client  *xhttp.Client
	baseURL string
}

func NewRemoteTrainer(client *xhttp.Client, baseURL string) *RemoteTrainer {
	return &RemoteTrainer{client: client, baseURL: baseURL}
}

type remoteFitRequest struct {
	Columns []string               `json:"columns"`
	X       [][]float64            `json:"x"`
	Y       []int                  `json:"y"`
	Params  map[string]interface{} `json:"params"`
}

type remoteFitResponse struct {
	Metric   float64 `json:"metric"`
	ModelRef string  `json:"model_ref"`
	Error    string  `json:"error,omitempty"`
}

func (t *RemoteTrainer) Fit(ctx context.Context, ds *Dataset, params models.ModelParameterSet) (FitReport, error) {
	req := remoteFitRequest{
		Columns: ds.Columns,
		X:       ds.X,
		Y:       ds.Y,
		Params: map[string]interface{}{
			"n_estimators":      params.NEstimators,
			"max_depth":         params.MaxDepth,
			"min_samples_split": params.MinSamplesSplit,
			"min_samples_leaf":  params.MinSamplesLeaf,
			"n_features":        params.NFeatures,
		},
	}

	var resp remoteFitResponse
	err := t.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: http.MethodPost,
		URL:    t.baseURL + "/fit",
		Body:   req,
	}, &resp)
	if err != nil {
		return FitReport{}, fmt.Errorf("remote fit: %w", err)
	}
	if resp.Error != "" {
		return FitReport{}, fmt.Errorf("remote fit rejected: %s", resp.Error)
	}
	return FitReport{Metric: resp.Metric, ModelRef: resp.ModelRef}, nil
}
