package gcs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresClientAndBucket(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "b"})
	assert.ErrorContains(t, err, "client is required")

	assert.ErrorContains(t, Config{}.Validate(), "bucket name is required")
	assert.NoError(t, Config{Bucket: "digest"}.Validate())
}

func TestJoinObjectName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		prefix  string
		path    string
		want    string
		wantErr bool
	}{
		{name: "no prefix", path: "progress.json", want: "progress.json"},
		{name: "prefix", prefix: "runs/a16z", path: "progress.json", want: "runs/a16z/progress.json"},
		{name: "leading slash", prefix: "runs", path: "/company_urls.txt", want: "runs/company_urls.txt"},
		{name: "empty", path: "  ", wantErr: true},
		{name: "traversal", prefix: "runs", path: "../secret", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := JoinObjectName(tc.prefix, tc.path)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestObjectURI(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "gs://digest/runs/progress.json", ObjectURI("digest", "runs/progress.json"))
}
