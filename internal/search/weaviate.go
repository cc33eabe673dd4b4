package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/auth"
	"github.com/weaviate/weaviate/entities/models"
	"github.com/weaviate/weaviate/entities/schema"
)

// WeaviateIndex keeps one Weaviate class per dataset.
type WeaviateIndex struct {
	Client *weaviate.Client
	Prefix string
}

func NewWeaviateIndex(scheme, host, apiKey, prefix string) (*WeaviateIndex, error) {
	cfg := weaviate.Config{Scheme: scheme, Host: host}
	if apiKey != "" {
		cfg.AuthConfig = auth.ApiKey{Value: apiKey}
	}

	client, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %w", err)
	}
	return &WeaviateIndex{Client: client, Prefix: prefix}, nil
}

func (w *WeaviateIndex) Create(ctx context.Context, dataset string) error {
	class := &models.Class{
		Class:       ClassName(w.Prefix, dataset),
		Description: fmt.Sprintf("PITs of dataset %s", dataset),
		Vectorizer:  "none",
		Properties:  pitProperties(),
	}

	if err := w.Client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("failed to create index %s: %w", class.Class, err)
	}
	slog.InfoContext(ctx, "Created search index", "dataset", dataset, "class", class.Class)
	return nil
}

// Delete drops the class. A missing class is reported as an error so that a
// dataset whose index vanished out-of-band is noticed.
func (w *WeaviateIndex) Delete(ctx context.Context, dataset string) error {
	name := ClassName(w.Prefix, dataset)
	if err := w.Client.Schema().ClassDeleter().WithClassName(name).Do(ctx); err != nil {
		return fmt.Errorf("failed to delete index %s: %w", name, err)
	}
	slog.InfoContext(ctx, "Deleted search index", "dataset", dataset, "class", name)
	return nil
}

func pitProperties() []*models.Property {
	text := []string{string(schema.DataTypeText)}
	return []*models.Property{
		{Name: "pitId", DataType: text},
		{Name: "uri", DataType: text},
		{Name: "name", DataType: text},
		{Name: "type", DataType: text},
		{Name: "dataset", DataType: text},
		{Name: "validSince", DataType: text},
		{Name: "validUntil", DataType: text},
	}
}

// ClassName maps a dataset id onto a valid Weaviate class name. Class names
// must start with an upper-case letter and only contain [_0-9A-Za-z], so the
// id is escaped injectively: '_' becomes "__", '-' becomes "_0" and any other
// byte outside the alphabet becomes "_x" plus two hex digits.
func ClassName(prefix, dataset string) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteByte('_')
	for i := 0; i < len(dataset); i++ {
		c := dataset[i]
		switch {
		case c == '_':
			b.WriteString("__")
		case c == '-':
			b.WriteString("_0")
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "_x%02x", c)
		}
	}
	return b.String()
}
