package stats

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"FinWalk/internal/domain/models"
	domsvc "FinWalk/internal/domain/service"
)

// Method selects the t-test variant.
type Method string

const (
	MethodWelch   Method = "welch"
	MethodStudent Method = "student"
	MethodPaired  Method = "paired"
)

// TTest is a two-sample t-test computed locally with gonum.
type TTest struct {
	method Method
}

func NewTTest(method Method) (*TTest, error) {
	switch method {
	case "":
		method = MethodWelch
	case MethodWelch, MethodStudent, MethodPaired:
	default:
		return nil, fmt.Errorf("unknown t-test method %q", method)
	}
	return &TTest{method: method}, nil
}

func (t *TTest) Name() string { return "t-test/" + string(t.method) }

// Test returns the t statistic of mean(a) - mean(b) and its p-value under alt.
// Zero standard error with equal means gives t = 0.
func (t *TTest) Test(_ context.Context, a, b []float64, alt models.Alternative) (models.TestOutcome, error) {
	if len(a) < 2 || len(b) < 2 {
		return models.TestOutcome{}, fmt.Errorf("need at least 2 observations per sample, got %d and %d", len(a), len(b))
	}

	var diff, se2, df float64
	switch t.method {
	case MethodPaired:
		if len(a) != len(b) {
			return models.TestOutcome{}, fmt.Errorf("paired test needs equal lengths, got %d and %d", len(a), len(b))
		}
		d := make([]float64, len(a))
		for i := range a {
			d[i] = a[i] - b[i]
		}
		md, vd := stat.MeanVariance(d, nil)
		n := float64(len(d))
		diff, se2, df = md, vd/n, n-1
	case MethodStudent:
		ma, va := stat.MeanVariance(a, nil)
		mb, vb := stat.MeanVariance(b, nil)
		na, nb := float64(len(a)), float64(len(b))
		pooled := ((na-1)*va + (nb-1)*vb) / (na + nb - 2)
		diff, se2, df = ma-mb, pooled*(1/na+1/nb), na+nb-2
	default:
		ma, va := stat.MeanVariance(a, nil)
		mb, vb := stat.MeanVariance(b, nil)
		na, nb := float64(len(a)), float64(len(b))
		qa, qb := va/na, vb/nb
		diff, se2 = ma-mb, qa+qb
		df = se2 * se2 / (qa*qa/(na-1) + qb*qb/(nb-1))
		if math.IsNaN(df) {
			df = na + nb - 2
		}
	}

	var tstat float64
	switch {
	case se2 > 0:
		tstat = diff / math.Sqrt(se2)
	case diff == 0:
		tstat = 0
	default:
		tstat = math.Copysign(math.Inf(1), diff)
	}

	p, err := pValue(tstat, df, alt)
	if err != nil {
		return models.TestOutcome{}, err
	}
	return models.TestOutcome{Statistic: tstat, PValue: p, DF: df}, nil
}

func pValue(tstat, df float64, alt models.Alternative) (float64, error) {
	var cdf, sf float64
	switch {
	case math.IsInf(tstat, 1):
		cdf, sf = 1, 0
	case math.IsInf(tstat, -1):
		cdf, sf = 0, 1
	default:
		dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
		cdf, sf = dist.CDF(tstat), dist.Survival(tstat)
	}

	switch alt {
	case models.AltOutSampleGreater:
		return sf, nil
	case models.AltOutSampleLess:
		return cdf, nil
	case models.AltTwoSided:
		return math.Min(1, 2*math.Min(cdf, sf)), nil
	default:
		return 0, fmt.Errorf("unknown alternative %q", alt)
	}
}

var _ domsvc.TwoSampleTest = (*TTest)(nil)
