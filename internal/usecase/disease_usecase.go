package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"smartplant/internal/infra/classifier"

	"go.uber.org/zap"
)

type DiseaseUsecase struct {
	classifier classifier.Classifier
	log        *zap.Logger
}

func NewDiseaseUsecase(c classifier.Classifier, log *zap.Logger) *DiseaseUsecase {
	return &DiseaseUsecase{classifier: c, log: log}
}

// most_likely は [label, prob] の2要素配列
type ClassifyOutput struct {
	Predictions map[string]float64 `json:"predictions"`
	MostLikely  []interface{}      `json:"most_likely"`
}

func (u *DiseaseUsecase) Classify(ctx context.Context, filename string, image []byte) (ClassifyOutput, error) {
	if len(image) == 0 {
		return ClassifyOutput{}, NewHTTPError(http.StatusBadRequest, "No image provided")
	}

	preds, err := u.classifier.Classify(ctx, filename, image)
	if err != nil {
		if errors.Is(err, classifier.ErrNotConfigured) {
			return ClassifyOutput{}, NewHTTPError(http.StatusServiceUnavailable, "Classifier is not configured")
		}
		u.log.Error("disease_classify_failed", zap.String("filename", filename), zap.Error(err))
		return ClassifyOutput{}, WrapHTTPError(http.StatusBadGateway, "Failed to classify image", fmt.Errorf("%w: %v", ErrExternalService, err))
	}
	if len(preds) == 0 {
		return ClassifyOutput{}, WrapHTTPError(http.StatusBadGateway, "Failed to classify image", ErrExternalService)
	}

	label, prob := mostLikely(preds)
	return ClassifyOutput{Predictions: preds, MostLikely: []interface{}{label, prob}}, nil
}

// 同率ならラベル名の昇順で先頭
func mostLikely(preds map[string]float64) (string, float64) {
	labels := make([]string, 0, len(preds))
	for l := range preds {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	best := labels[0]
	for _, l := range labels[1:] {
		if preds[l] > preds[best] {
			best = l
		}
	}
	return best, preds[best]
}
