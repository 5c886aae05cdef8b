package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/brewline-ai/brewline-engine/pkg/models"
)

// excludedDocumentColumns keeps binary blobs and noise out of the
// retrieval corpus, keyed by lowercase table name.
var excludedDocumentColumns = map[string]map[string]bool{
	"customers": {"embedding": true, "picture": true},
	"product":   {"Link_Image": true},
}

// LoadRowDocuments flattens every row of every table into a retrieval
// document: "Bảng <table>: <display name>: <value>, ...". NULLs render
// as "không có" so the embedding still carries the column.
func (s *Store) LoadRowDocuments(ctx context.Context) ([]models.RowDocument, error) {
	tables, err := s.dialect.TableNames(ctx, s.db)
	if err != nil {
		return nil, err
	}

	var documents []models.RowDocument
	for _, table := range tables {
		excluded := excludedDocumentColumns[strings.ToLower(table)]

		columns, results, err := s.ExecuteQuery(ctx, fmt.Sprintf("SELECT * FROM %s", quoteIdent(table)))
		if err != nil {
			return nil, fmt.Errorf("load table %s: %w", table, err)
		}

		for _, row := range results {
			parts := make([]string, 0, len(columns))
			data := make(map[string]any, len(columns))
			for _, col := range columns {
				if excluded[col] {
					continue
				}
				value := row[col]
				data[col] = value

				valueStr := "không có"
				if value != nil {
					valueStr = fmt.Sprintf("%v", value)
				}
				parts = append(parts, fmt.Sprintf("%s: %s", s.translations.DisplayName(col), valueStr))
			}

			documents = append(documents, models.RowDocument{
				Table:   table,
				Content: fmt.Sprintf("Bảng %s: %s", table, strings.Join(parts, ", ")),
				Data:    data,
			})
		}
	}

	return documents, nil
}

// LoadDescriptionDocuments returns one document per product carrying
// its description text, for the description-only index that serves
// image-upload queries.
func (s *Store) LoadDescriptionDocuments(ctx context.Context) ([]models.DescriptionDocument, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT Id, Name_Product, Descriptions FROM Product ORDER BY Id")
	if err != nil {
		return nil, fmt.Errorf("load product descriptions: %w", err)
	}
	defer rows.Close()

	var documents []models.DescriptionDocument
	for rows.Next() {
		var doc models.DescriptionDocument
		var description *string
		if err := rows.Scan(&doc.ProductID, &doc.Name, &description); err != nil {
			return nil, fmt.Errorf("scan product description: %w", err)
		}
		if description != nil {
			doc.Description = *description
		}
		documents = append(documents, doc)
	}
	return documents, rows.Err()
}
