package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/LouYuanbo1/postmanager/param"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCriteria(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		want    *param.Criteria
		wantErr bool
		// mismatch 非空时期望 TypeMismatchError 且字段为该值
		mismatch string
	}{
		{
			name: "empty document",
			yaml: "",
			want: &param.Criteria{},
		},
		{
			name: "full",
			yaml: `
statuses: [Active]
from_page: 1
to_page: 3
areas: [sfbay]
sub_areas: [sfc, eby]
categories: ["furniture - by owner"]
posted_dates: ["2024-03-05 14:30"]
posting_ids: ["7001", "7002"]
titles_regex: "^Oak"
`,
			want: &param.Criteria{
				Statuses:    []string{"Active"},
				FromPage:    param.Int(1),
				ToPage:      param.Int(3),
				Areas:       []string{"sfbay"},
				SubAreas:    []string{"sfc", "eby"},
				Categories:  []string{"furniture - by owner"},
				PostedDates: []string{"2024-03-05 14:30"},
				PostingIDs:  []string{"7001", "7002"},
				TitlesRegex: "^Oak",
			},
		},
		{
			name: "explicit pages",
			yaml: "pages: [2, 5]\ntitles: [\"Oak table\"]\n",
			want: &param.Criteria{Pages: []int{2, 5}, Titles: []string{"Oak table"}},
		},
		{
			name: "null value means unset",
			yaml: "statuses:\nto_page: 4\n",
			want: &param.Criteria{ToPage: param.Int(4)},
		},
		{
			name:     "single value where a list is required",
			yaml:     "statuses: Active\n",
			mismatch: "statuses",
		},
		{
			name:     "list where a single value is required",
			yaml:     "titles_regex: [a, b]\n",
			mismatch: "titles_regex",
		},
		{
			name:     "nested list",
			yaml:     "posting_ids: [[1, 2]]\n",
			mismatch: "posting_ids",
		},
		{
			name:     "top level list",
			yaml:     "- Active\n",
			mismatch: "criteria",
		},
		{
			name:    "unknown field",
			yaml:    "subareas: [sfc]\n",
			wantErr: true,
		},
		{
			name:    "page is not a number",
			yaml:    "pages: [one]\n",
			wantErr: true,
		},
		{
			name:    "invalid yaml",
			yaml:    "statuses: [Active\n",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCriteria([]byte(tt.yaml))
			if tt.mismatch != "" {
				var mismatch *TypeMismatchError
				require.ErrorAs(t, err, &mismatch)
				assert.Equal(t, tt.mismatch, mismatch.Field)
				return
			}
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseCriteria() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadCriteria(t *testing.T) {
	path := filepath.Join(t.TempDir(), "criteria.yaml")
	require.NoError(t, os.WriteFile(path, []byte("statuses: [Deleted]\n"), 0o600))

	got, err := LoadCriteria(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Deleted"}, got.Statuses)

	_, err = LoadCriteria(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
