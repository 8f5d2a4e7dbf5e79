// Package pipeline keeps the search index in step with published documents.
package pipeline

import (
	"context"
	"errors"
	"fincra-wisdom/internal/model"
	"fincra-wisdom/internal/repository"
	"fincra-wisdom/pkg/es"
	"fincra-wisdom/pkg/log"
	"fincra-wisdom/pkg/tasks"
	"fmt"

	"gorm.io/gorm"
)

// IndexWriter is the subset of *es.Client the indexer writes through.
type IndexWriter interface {
	IndexDocument(ctx context.Context, doc es.Document) error
	DeleteDocument(ctx context.Context, id uint) error
}

// Indexer processes DocumentIndexTasks consumed from Kafka.
type Indexer struct {
	documents repository.DocumentRepository
	index     IndexWriter
}

func NewIndexer(documents repository.DocumentRepository, index IndexWriter) *Indexer {
	return &Indexer{documents: documents, index: index}
}

// Process indexes or removes one document. An index task for a document that no
// longer exists removes it instead.
func (i *Indexer) Process(ctx context.Context, task tasks.DocumentIndexTask) error {
	switch task.Action {
	case tasks.ActionDelete:
		return i.index.DeleteDocument(ctx, task.DocumentID)
	case tasks.ActionIndex:
	default:
		log.Warnw("unknown index action, skipping", "action", task.Action, "document_id", task.DocumentID)
		return nil
	}

	doc, err := i.documents.FindByID(ctx, task.DocumentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return i.index.DeleteDocument(ctx, task.DocumentID)
	}
	if err != nil {
		return fmt.Errorf("load document %d: %w", task.DocumentID, err)
	}

	if err := i.index.IndexDocument(ctx, toIndexed(doc)); err != nil {
		return fmt.Errorf("index document %d: %w", doc.ID, err)
	}
	log.Infow("document indexed", "document_id", doc.ID)
	return nil
}

func toIndexed(doc *model.Document) es.Document {
	return es.Document{
		ID:             doc.ID,
		Title:          doc.Title,
		Summary:        doc.Summary,
		Tags:           doc.Tags,
		Category:       doc.Category,
		DepartmentID:   doc.DepartmentID,
		DepartmentName: doc.DepartmentName,
		CircleName:     doc.CircleName,
		SearchableText: doc.SearchableText,
		ViewCount:      doc.ViewCount,
		PublishedAt:    doc.PublishedAt,
	}
}
