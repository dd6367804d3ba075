package memory

import (
	"fmt"
	"strings"
	"sync"
)

// Document is a single indexed item returned by retrieval searches.
type Document struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// DocumentIndex is a naive process-local retrieval backend scoped by tenant.
// Search is a linear scan with substring matching (case sensitive) assigning
// a constant score of 1.0 to every hit. Suitable for tests and demos; swap
// for a vector store or semantic index for production retrieval.
type DocumentIndex struct {
	mu   sync.RWMutex
	next map[string]int                 // tenantID -> next id serial
	docs map[string]map[string]Document // tenantID -> docID -> document
}

// NewDocumentIndex constructs an empty index.
func NewDocumentIndex() *DocumentIndex {
	return &DocumentIndex{
		next: make(map[string]int),
		docs: make(map[string]map[string]Document),
	}
}

// Add indexes a document for the tenant, generating a simple incremental id.
// Ids come from a per-tenant serial that never goes backwards, so a deleted
// document's id is not handed out again.
func (d *DocumentIndex) Add(tenantID, content string, metadata map[string]any) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.docs[tenantID]; !ok {
		d.docs[tenantID] = make(map[string]Document)
	}
	docID := fmt.Sprintf("doc_%d", d.next[tenantID])
	d.next[tenantID]++
	d.docs[tenantID][docID] = Document{ID: docID, Content: content, Metadata: metadata}
	return docID
}

// Search returns documents whose content contains the query, up to limit.
// An empty query matches every document. Result order is unspecified.
func (d *DocumentIndex) Search(tenantID, query string, limit int) []Document {
	d.mu.RLock()
	defer d.mu.RUnlock()
	tenantDocs, ok := d.docs[tenantID]
	if !ok {
		return nil
	}
	results := make([]Document, 0, limit)
	for _, doc := range tenantDocs {
		if limit > 0 && len(results) >= limit {
			break
		}
		if query == "" || strings.Contains(doc.Content, query) {
			md := make(map[string]any, len(doc.Metadata))
			for k, v := range doc.Metadata {
				md[k] = v
			}
			results = append(results, Document{ID: doc.ID, Content: doc.Content, Score: 1.0, Metadata: md})
		}
	}
	return results
}

// Delete removes an indexed document by id.
func (d *DocumentIndex) Delete(tenantID, docID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	tenantDocs, ok := d.docs[tenantID]
	if !ok {
		return fmt.Errorf("document not found")
	}
	if _, ok := tenantDocs[docID]; !ok {
		return fmt.Errorf("document not found")
	}
	delete(tenantDocs, docID)
	return nil
}
