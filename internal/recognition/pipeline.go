package recognition

import (
	"context"
	"os"
	"time"

	"log/slog"

	"fapiao/internal/config"
	"fapiao/internal/invoice"
	"fapiao/internal/logging"
	"fapiao/internal/services"
	"fapiao/internal/services/siliconflow"
)

// Extractor abstracts the cloud recognition collaborator.
type Extractor interface {
	IsConfigured() bool
	ExtractFields(ctx context.Context, filePath string) (siliconflow.Extraction, error)
}

// Pipeline drives one item's status from pending to a terminal recognition
// state. A single attempt per call; retries are the collaborator's concern.
type Pipeline struct {
	extractor Extractor
	rules     []CategoryRule
	threshold float64
	logger    *slog.Logger
}

// NewPipeline constructs the recognition pipeline from application config.
func NewPipeline(cfg *config.Config, logger *slog.Logger) *Pipeline {
	client := siliconflow.NewClient(
		cfg.SiliconFlow.APIKey,
		siliconflow.WithBaseURL(cfg.SiliconFlow.BaseURL),
		siliconflow.WithModel(cfg.SiliconFlow.Model),
		siliconflow.WithTimeout(time.Duration(cfg.SiliconFlow.TimeoutSeconds)*time.Second),
	)
	return NewPipelineWithExtractor(client, RulesFromConfig(cfg), cfg.Recognition.ConfidenceThreshold, logger)
}

// NewPipelineWithExtractor allows injecting the collaborator (used in tests).
func NewPipelineWithExtractor(extractor Extractor, rules []CategoryRule, threshold float64, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		extractor: extractor,
		rules:     rules,
		threshold: threshold,
		logger:    logging.NewComponentLogger(logger, "recognition"),
	}
}

// RulesFromConfig converts configured categories into inference rules,
// preserving their order.
func RulesFromConfig(cfg *config.Config) []CategoryRule {
	rules := make([]CategoryRule, 0, len(cfg.Categories))
	for _, category := range cfg.Categories {
		rules = append(rules, CategoryRule{Label: category.Label, Keywords: category.Keywords})
	}
	return rules
}

// RecognizeItem runs one recognition attempt and updates the item's status,
// extracted fields, and failure reason in place. Terminal statuses are ok,
// needs_review, and failed; only a fresh call re-evaluates the item.
func (p *Pipeline) RecognizeItem(ctx context.Context, item *invoice.Item) {
	logger := logging.WithContext(ctx, p.logger).With(logging.String("old_name", item.OldName))
	defer item.Touch()

	extracted, err := p.extract(ctx, item)
	if err != nil {
		p.fail(item, services.FailureReason(err))
		logger.Warn("recognition failed", logging.String("reason", item.FailureReason), logging.Error(err))
		return
	}

	item.InvoiceDate = extracted.InvoiceDate
	item.ItemName = extracted.ItemName
	item.Amount = extracted.Amount
	item.Category = InferCategory(item.ItemName, item.OldName, p.rules)
	item.VendorName = ""
	item.FieldsConfidence = fieldsConfidence(item)
	item.OverallConfidence = extracted.Confidence
	item.ExtractedText = ""

	if item.InvoiceDate == "" || item.ItemName == "" || item.Amount == "" {
		item.Status = invoice.StatusFailed
		item.FailureReason = invoice.ReasonMissingRequiredFields
		logger.Info("recognition incomplete", logging.String("reason", item.FailureReason))
		return
	}

	if p.threshold > 0 && item.OverallConfidence < p.threshold {
		item.Status = invoice.StatusNeedsReview
		item.FailureReason = invoice.ReasonLowConfidence
		logger.Info("recognition needs review",
			logging.Float64("confidence", item.OverallConfidence),
			logging.Float64("threshold", p.threshold),
		)
		return
	}

	item.Status = invoice.StatusOK
	item.FailureReason = ""
	logger.Info("recognition ok",
		logging.String("invoice_date", item.InvoiceDate),
		logging.String("category", item.Category),
		logging.String("amount", item.Amount),
	)
}

// extract validates preconditions and calls the collaborator. Every failure
// path is tagged with the sentinel whose FailureReason classification matches
// the state machine's error taxonomy.
func (p *Pipeline) extract(ctx context.Context, item *invoice.Item) (siliconflow.Extraction, error) {
	if p.extractor == nil || !p.extractor.IsConfigured() {
		return siliconflow.Extraction{}, services.Wrap(services.ErrConfiguration, "recognition", "extract", "api key not configured", nil)
	}
	if _, err := os.Stat(item.SourcePath); err != nil {
		return siliconflow.Extraction{}, services.Wrap(services.ErrNotFound, "recognition", "extract", item.SourcePath, err)
	}
	extracted, err := p.extractor.ExtractFields(ctx, item.SourcePath)
	if err != nil {
		return siliconflow.Extraction{}, services.Wrap(services.ErrExternalService, "recognition", "extract", "cloud extraction", err)
	}
	return extracted, nil
}

func (p *Pipeline) fail(item *invoice.Item, reason string) {
	item.Status = invoice.StatusFailed
	item.FailureReason = reason
	item.OverallConfidence = 0
}

// fieldsConfidence synthesizes the per-field confidence map exposed through
// the API: required fields are scored by presence, category by whether
// inference beat the fallback.
func fieldsConfidence(item *invoice.Item) map[string]float64 {
	presence := func(value string) float64 {
		if value != "" {
			return 1.0
		}
		return 0.0
	}
	categoryScore := 0.7
	if item.Category != "" && item.Category != FallbackCategory {
		categoryScore = 0.95
	}
	return map[string]float64{
		"invoice_date": presence(item.InvoiceDate),
		"item_name":    presence(item.ItemName),
		"amount":       presence(item.Amount),
		"category":     categoryScore,
	}
}
