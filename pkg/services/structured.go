// Package services implements the answering flows of the assistant:
// routing a query to the structured SQL path or the semantic retrieval
// path, generating the final reply, and maintaining chat history.
package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/brewline-ai/brewline-engine/pkg/catalog"
	"github.com/brewline-ai/brewline-engine/pkg/llm"
	"github.com/brewline-ai/brewline-engine/pkg/models"
	"github.com/brewline-ai/brewline-engine/pkg/prompts"
	sqlsafety "github.com/brewline-ai/brewline-engine/pkg/sql"
)

// refusalUnsafeSQL is the reply when a generated query fails validation
// or execution. The user never sees the query or the reason.
const refusalUnsafeSQL = "Xin lỗi, tôi không thể thực hiện truy vấn này vì lý do an toàn hoặc truy vấn không hợp lệ."

// Structured answers questions by generating a SQL query, validating
// it, executing it against the catalog, and phrasing the results.
type Structured struct {
	client      llm.ChatClient
	catalog     *catalog.Store
	temperature float64
	logger      *zap.Logger
}

// NewStructured creates the structured answering service.
func NewStructured(client llm.ChatClient, store *catalog.Store, temperature float64, logger *zap.Logger) *Structured {
	return &Structured{
		client:      client,
		catalog:     store,
		temperature: temperature,
		logger:      logger.Named("structured"),
	}
}

// Answer runs the full structured flow. Validation failures and
// execution errors produce a polite refusal rather than an error: the
// model wrote a bad query, the user asked a fine question.
func (s *Structured) Answer(ctx context.Context, query, history, schemaInfo string, customer *models.Customer, purchases []models.PurchaseItem) (string, error) {
	genPrompt := prompts.SQLGenerationWithAggregate(query, schemaInfo, history, s.catalog.Dialect().AggregateFunc())

	raw, err := s.client.GenerateResponse(ctx, genPrompt, prompts.SystemMessage, s.temperature)
	if err != nil {
		return "", err
	}

	sqlQuery := llm.ExtractSQL(raw)
	safety := sqlsafety.CheckReadOnly(sqlQuery)
	if !safety.Safe {
		s.logger.Warn("rejected generated query",
			zap.Error(safety.Err()),
			zap.String("query", sqlQuery))
		return refusalUnsafeSQL, nil
	}

	s.logger.Info("executing generated query", zap.String("tier", string(safety.Tier)))

	results, err := s.catalog.ExecuteAndFormat(ctx, safety.Normalized)
	if err != nil {
		s.logger.Warn("generated query failed", zap.Error(err))
		return refusalUnsafeSQL, nil
	}

	answerPrompt := prompts.SQLResponse(query, results, history, customer, purchases)
	return s.client.GenerateResponse(ctx, answerPrompt, prompts.SystemMessage, s.temperature)
}
