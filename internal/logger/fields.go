package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	FieldProvider = "ai_provider"
	FieldModel    = "ai_model"

	FieldDocumentID = "document_id"
	FieldRank       = "rank"
	FieldScore      = "score"
	FieldTitle      = "job_title"
	FieldCompany    = "company"
)

// WithFields attaches fields to logger, falling back to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// WithCommonFields tags every entry with the completion provider and model.
// Blank values are omitted.
func WithCommonFields(logger *zap.Logger, provider, model string) *zap.Logger {
	var fields []zap.Field
	if provider = strings.TrimSpace(provider); provider != "" {
		fields = append(fields, zap.String(FieldProvider, provider))
	}
	if model = strings.TrimSpace(model); model != "" {
		fields = append(fields, zap.String(FieldModel, model))
	}
	return WithFields(logger, fields...)
}

// IndexedFields describe one posting as stored in the index.
func IndexedFields(documentID, title, company string) []zap.Field {
	return []zap.Field{
		zap.String(FieldDocumentID, documentID),
		zap.String(FieldTitle, title),
		zap.String(FieldCompany, company),
	}
}

// PostingFields describe one retrieved posting in its ranked position.
func PostingFields(rank int, documentID, title, company string, score float64) []zap.Field {
	return []zap.Field{
		zap.Int(FieldRank, rank),
		zap.String(FieldDocumentID, documentID),
		zap.String(FieldTitle, title),
		zap.String(FieldCompany, company),
		zap.Float64(FieldScore, score),
	}
}
