package repository_test

import (
	"testing"

	"github.com/salesflow/salesflow-api/internal/repository"
	"github.com/stretchr/testify/assert"
)

func TestNormalizePaging(t *testing.T) {
	tests := []struct {
		page, size         int
		wantPage, wantSize int
	}{
		{0, 0, 1, repository.DefaultPageSize},
		{-3, 10, 1, 10},
		{2, 500, 2, repository.MaxPageSize},
		{4, 25, 4, 25},
	}
	for _, tt := range tests {
		page, size := repository.NormalizePaging(tt.page, tt.size)
		assert.Equal(t, tt.wantPage, page)
		assert.Equal(t, tt.wantSize, size)
	}
}

func TestBuildOrderClause(t *testing.T) {
	fields := map[string]string{"performedAt": "performed_at"}

	assert.Equal(t, "performed_at ASC", repository.BuildOrderClause(repository.SortConfig{Field: "performedAt", Order: repository.SortOrderAsc}, fields, "id"))
	assert.Equal(t, "id DESC", repository.BuildOrderClause(repository.SortConfig{Field: "password"}, fields, "id"))
	assert.Equal(t, repository.SortOrderAsc, repository.ParseSortOrder("ASC"))
	assert.Equal(t, repository.SortOrderDesc, repository.ParseSortOrder("sideways"))
}
