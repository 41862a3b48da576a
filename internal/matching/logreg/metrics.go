// internal/matching/logreg/metrics.go
package logreg

import "scholarship-workers/internal/models"

// confusionMatrix accumulates per-fold validation outcomes across a
// cross-validation run.
type confusionMatrix struct {
	TP, TN, FP, FN int
}

func (c *confusionMatrix) record(predictedApproved, actualApproved bool) {
	switch {
	case predictedApproved && actualApproved:
		c.TP++
	case predictedApproved && !actualApproved:
		c.FP++
	case !predictedApproved && actualApproved:
		c.FN++
	default:
		c.TN++
	}
}

func (c *confusionMatrix) total() int {
	return c.TP + c.TN + c.FP + c.FN
}

func (c *confusionMatrix) metrics() models.ModelMetrics {
	var m models.ModelMetrics
	if total := c.total(); total > 0 {
		m.Accuracy = float64(c.TP+c.TN) / float64(total)
	}
	if c.TP+c.FP > 0 {
		m.Precision = float64(c.TP) / float64(c.TP+c.FP)
	}
	if c.TP+c.FN > 0 {
		m.Recall = float64(c.TP) / float64(c.TP+c.FN)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}
