package model

import "math"

// Metrics summarises holdout accuracy.
type Metrics struct {
	Rows int     `json:"rows"`
	MAE  float64 `json:"mae"`
	RMSE float64 `json:"rmse"`
	R2   float64 `json:"r2"`
}

func evaluate(actual, predicted []float64) Metrics {
	var absSum, sqSum float64
	for i := range actual {
		d := predicted[i] - actual[i]
		absSum += math.Abs(d)
		sqSum += d * d
	}
	n := float64(len(actual))
	_, std := meanStd(actual)
	r2 := 0.0
	if std > 0 {
		r2 = 1 - sqSum/(n*std*std)
	}
	return Metrics{
		Rows: len(actual),
		MAE:  absSum / n,
		RMSE: math.Sqrt(sqSum / n),
		R2:   r2,
	}
}

func meanStd(vals []float64) (mean, std float64) {
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))
	for _, v := range vals {
		std += (v - mean) * (v - mean)
	}
	std = math.Sqrt(std / float64(len(vals)))
	return
}
