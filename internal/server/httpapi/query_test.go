package httpapi

import (
	"net/url"
	"testing"

	"github.com/dmitrijs2005/gophadmin/internal/common"
	"github.com/dmitrijs2005/gophadmin/internal/server/models"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestParseQueryOptions(t *testing.T) {
	v, err := url.ParseQuery("filter=email:contains:a:b&filter=and:id:in:1,2&sort=email&sort=createdAt:desc&limit=5&page=3&include=permissions,%20roles")
	require.NoError(t, err)

	got, err := parseQueryOptions(v)
	require.NoError(t, err)

	want := models.QueryOptions{
		Filters: []models.QueryFilter{
			{Field: "email", Operator: "contains", Value: "a:b"},
			{Field: "id", Operator: "in", Value: "1,2", Logic: "and"},
		},
		Sort: []models.QuerySort{
			{Field: "email", Direction: "asc"},
			{Field: "createdAt", Direction: "desc"},
		},
		Limit:   5,
		Page:    3,
		Include: []string{"permissions", "roles"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parseQueryOptions mismatch (-want +got):\n%s", diff)
	}
}

func TestParseQueryOptions_DefaultsAndErrors(t *testing.T) {
	got, err := parseQueryOptions(url.Values{})
	require.NoError(t, err)
	require.Equal(t, 1, got.Page)
	require.Zero(t, got.Limit)

	_, err = parseQueryOptions(url.Values{"filter": {"email"}})
	require.ErrorIs(t, err, common.ErrUnsupportedQuery)

	_, err = parseQueryOptions(url.Values{"sort": {":desc"}})
	require.ErrorIs(t, err, common.ErrUnsupportedQuery)

	_, err = parseQueryOptions(url.Values{"page": {"zero"}})
	require.ErrorIs(t, err, common.ErrorValidation)
}
