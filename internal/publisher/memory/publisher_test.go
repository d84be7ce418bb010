package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/vc-portfolio-digest/internal/crawler"
)

func TestPublisherRecordsJSON(t *testing.T) {
	t.Parallel()

	pub := New()
	rec := crawler.CompanyRecord{
		Name:        "Acme",
		URL:         "https://acme.io",
		ProcessedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	id1, err := pub.Publish(context.Background(), "companies", rec)
	require.NoError(t, err)
	assert.Equal(t, "memory-1", id1)
	id2, err := pub.Publish(context.Background(), "other", map[string]int{"n": 1})
	require.NoError(t, err)
	assert.Equal(t, "memory-2", id2)

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "companies", msgs[0].Topic)
	assert.JSONEq(t, `{
		"company_name": "Acme",
		"url": "https://acme.io",
		"long_summary": "",
		"short_summary": "",
		"cache_file": "",
		"processed_at": "2024-01-02T03:04:05Z"
	}`, string(msgs[0].Data))

	msgs[0].Topic = "modified"
	assert.Equal(t, "companies", pub.Messages()[0].Topic)
}

func TestPublisherRejectsUnencodable(t *testing.T) {
	t.Parallel()

	pub := New()
	_, err := pub.Publish(context.Background(), "t", make(chan int))
	require.Error(t, err)
	assert.Empty(t, pub.Messages())
}
