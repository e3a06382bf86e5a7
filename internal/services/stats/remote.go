package stats

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"FinWalk/internal/domain/models"
	domsvc "FinWalk/internal/domain/service"
	xhttp "FinWalk/pkg/http"
)

// RemoteTTest delegates the test to an external statistics service
// exposing POST /stats/ttest.
type RemoteTTest struct {
	baseURL  string
	method   Method
	attempts int
	client   *xhttp.Client
}

type ttestRequest struct {
	A           []float64 `json:"a"`
	B           []float64 `json:"b"`
	Alternative string    `json:"alternative"`
	Method      string    `json:"method"`
}

type ttestResponse struct {
	Statistic float64 `json:"statistic"`
	PValue    float64 `json:"p_value"`
	DF        float64 `json:"df"`
}

func NewRemoteTTest(baseURL string, method Method, timeout time.Duration, attempts int, opts ...xhttp.ClientOption) (*RemoteTTest, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("stats service url is required")
	}
	if _, err := NewTTest(method); err != nil {
		return nil, err
	}
	if method == "" {
		method = MethodWelch
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RemoteTTest{
		baseURL:  baseURL,
		method:   method,
		attempts: attempts,
		client:   xhttp.NewClient(append([]xhttp.ClientOption{xhttp.WithTimeout(timeout)}, opts...)...),
	}, nil
}

func (r *RemoteTTest) Name() string { return "remote-t-test/" + string(r.method) }

func (r *RemoteTTest) Test(ctx context.Context, a, b []float64, alt models.Alternative) (models.TestOutcome, error) {
	if !alt.Valid() {
		return models.TestOutcome{}, fmt.Errorf("unknown alternative %q", alt)
	}
	req := ttestRequest{A: a, B: b, Alternative: remoteAlternative(alt), Method: string(r.method)}

	var resp ttestResponse
	if err := r.postWithRetry(ctx, "/stats/ttest", req, &resp); err != nil {
		return models.TestOutcome{}, err
	}
	if math.IsNaN(resp.PValue) || resp.PValue < 0 || resp.PValue > 1 {
		return models.TestOutcome{}, fmt.Errorf("stats service returned p-value %v", resp.PValue)
	}
	return models.TestOutcome{Statistic: resp.Statistic, PValue: resp.PValue, DF: resp.DF}, nil
}

// remoteAlternative translates to scipy naming, where a is the first sample.
func remoteAlternative(alt models.Alternative) string {
	switch alt {
	case models.AltOutSampleGreater:
		return "greater"
	case models.AltOutSampleLess:
		return "less"
	default:
		return "two-sided"
	}
}

func (r *RemoteTTest) post(ctx context.Context, path string, payload, dest interface{}) error {
	err := r.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    r.baseURL + path,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: payload,
	}, dest)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}

func (r *RemoteTTest) postWithRetry(ctx context.Context, path string, payload, dest interface{}) error {
	var err error
	for i := 1; i <= r.attempts || i == 1; i++ {
		if err = r.post(ctx, path, payload, dest); err == nil {
			return nil
		}
		var se *xhttp.StatusError
		if errors.As(err, &se) && !se.Temporary() {
			return err
		}
		if i >= r.attempts {
			break
		}
		select {
		case <-time.After(time.Duration(i) * 50 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

var _ domsvc.TwoSampleTest = (*RemoteTTest)(nil)
