// Package es indexes and searches published documents in Elasticsearch.
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fincra-wisdom/internal/config"
	"fincra-wisdom/pkg/log"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Document is the indexed projection of a published document.
type Document struct {
	ID             uint      `json:"id"`
	Title          string    `json:"title"`
	Summary        string    `json:"summary"`
	Tags           []string  `json:"tags"`
	Category       string    `json:"category"`
	DepartmentID   uint      `json:"department_id"`
	DepartmentName string    `json:"department_name"`
	CircleName     string    `json:"circle_name"`
	SearchableText string    `json:"searchable_text"`
	ViewCount      int64     `json:"view_count"`
	PublishedAt    time.Time `json:"published_at"`
}

// Hit is one search result.
type Hit struct {
	DocumentID uint
	Score      float64
}

// Client wraps an Elasticsearch client bound to one index.
type Client struct {
	es        *elasticsearch.Client
	indexName string
}

// NewClient connects to the configured cluster and creates the index if it is missing.
func NewClient(esCfg config.ElasticsearchConfig) (*Client, error) {
	var addresses []string
	for _, a := range strings.Split(esCfg.Addresses, ",") {
		if a = strings.TrimSpace(a); a != "" {
			addresses = append(addresses, a)
		}
	}
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: addresses,
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	})
	if err != nil {
		return nil, err
	}
	c := &Client{es: es, indexName: esCfg.IndexName}
	if err := c.createIndexIfNotExists(); err != nil {
		return nil, err
	}
	return c, nil
}

const indexMapping = `{
	"mappings": {
		"properties": {
			"id": { "type": "long" },
			"title": { "type": "text", "fields": { "keyword": { "type": "keyword" } } },
			"summary": { "type": "text" },
			"tags": { "type": "keyword" },
			"category": { "type": "keyword" },
			"department_id": { "type": "long" },
			"department_name": { "type": "text" },
			"circle_name": { "type": "text" },
			"searchable_text": { "type": "text" },
			"view_count": { "type": "long" },
			"published_at": { "type": "date" }
		}
	}
}`

func (c *Client) createIndexIfNotExists() error {
	res, err := c.es.Indices.Exists([]string{c.indexName})
	if err != nil {
		return fmt.Errorf("check index %q: %w", c.indexName, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		log.Infof("Elasticsearch index '%s' already exists", c.indexName)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("unexpected status %d checking index %q", res.StatusCode, c.indexName)
	}

	res, err = c.es.Indices.Create(
		c.indexName,
		c.es.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return fmt.Errorf("create index %q: %w", c.indexName, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index %q: %s", c.indexName, res.String())
	}

	log.Infof("Elasticsearch index '%s' created", c.indexName)
	return nil
}

// IndexDocument upserts doc under its id.
func (c *Client) IndexDocument(ctx context.Context, doc Document) error {
	docBytes, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      c.indexName,
		DocumentID: strconv.FormatUint(uint64(doc.ID), 10),
		Body:       bytes.NewReader(docBytes),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("index document %d: %s", doc.ID, res.String())
		return errors.New("failed to index document")
	}
	return nil
}

// DeleteDocument removes a document from the index. A missing document is not an error.
func (c *Client) DeleteDocument(ctx context.Context, id uint) error {
	req := esapi.DeleteRequest{
		Index:      c.indexName,
		DocumentID: strconv.FormatUint(uint64(id), 10),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		log.Errorf("delete document %d from index: %s", id, res.String())
		return errors.New("failed to delete document from index")
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID    string  `json:"_id"`
			Score float64 `json:"_score"`
		} `json:"hits"`
	} `json:"hits"`
}

// searchBody builds a multi_match query boosting title over summary and tags.
func searchBody(query string, limit int) map[string]interface{} {
	return map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    []string{"title^3", "summary^2", "tags^2", "searchable_text"},
				"fuzziness": "AUTO",
			},
		},
		"_source": false,
	}
}

// Search returns the ids of the best matching documents, best first.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	body, err := json.Marshal(searchBody(query, limit))
	if err != nil {
		return nil, err
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.indexName),
		c.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search index: %s", res.String())
	}

	var out searchResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	hits := make([]Hit, 0, len(out.Hits.Hits))
	for _, h := range out.Hits.Hits {
		id, err := strconv.ParseUint(h.ID, 10, 64)
		if err != nil {
			continue
		}
		hits = append(hits, Hit{DocumentID: uint(id), Score: h.Score})
	}
	return hits, nil
}
