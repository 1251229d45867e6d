package assistant_test

import (
	"testing"

	"github.com/salesflow/salesflow-api/internal/assistant"
	"github.com/salesflow/salesflow-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQueryResponse(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantReply  string
		wantNav    *string
		wantParsed bool
	}{
		{"plain text", "not json at all", "not json at all", nil, false},
		{"allowed route", `{"reply":"Three deals are stalled.","navigateTo":"/opportunities"}`, "Three deals are stalled.", strPtr("/opportunities"), true},
		{"disallowed route", `{"reply":"ok","navigateTo":"/evil"}`, "ok", nil, true},
		{"absolute url", `{"reply":"ok","navigateTo":"https://evil.example/clients"}`, "ok", nil, true},
		{"null route", `{"reply":"ok","navigateTo":null}`, "ok", nil, true},
		{"fenced", "```json\n{\"reply\":\"fenced\",\"navigateTo\":\"/contracts/\"}\n```", "fenced", strPtr("/contracts"), true},
		{"prose around object", `Sure! {"reply":"inside","navigateTo":"Clients"} hope that helps`, "inside", strPtr("/clients"), true},
		{"broken json", `{"reply": "unterminated`, `{"reply": "unterminated`, nil, false},
		{"blank reply falls back to raw", `{"navigateTo":"/users"}`, `{"navigateTo":"/users"}`, strPtr("/users"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, parsed := assistant.ParseQueryResponse(tt.raw)
			assert.Equal(t, tt.wantParsed, parsed)
			assert.Equal(t, tt.wantReply, resp.Reply)
			assert.Equal(t, tt.wantNav, resp.NavigateTo)
		})
	}
}

func TestParseContractTerms(t *testing.T) {
	resp, parsed := assistant.ParseContractTerms(`{"terms":"1. Payment within 30 days.","notes":["Check currency", ""]}`)
	assert.True(t, parsed)
	assert.Equal(t, "1. Payment within 30 days.", resp.Terms)
	assert.Equal(t, []string{"Check currency"}, resp.Notes)

	resp, parsed = assistant.ParseContractTerms("  1. Payment within 30 days.  ")
	assert.False(t, parsed)
	assert.Equal(t, "1. Payment within 30 days.", resp.Terms)
	assert.NotNil(t, resp.Notes)
	assert.Empty(t, resp.Notes)
}

func TestParseClientDraft(t *testing.T) {
	t.Run("nested fields", func(t *testing.T) {
		resp, parsed := assistant.ParseClientDraft(`{"fields":{"name":"City of Lyon","clientType":1,"industry":"Public sector"},"notes":["No tax number given"]}`)
		require.True(t, parsed)
		assert.Equal(t, "City of Lyon", resp.Fields.Name)
		assert.Equal(t, domain.ClientTypeGovernment, resp.Fields.ClientType)
		assert.Equal(t, []string{"No tax number given"}, resp.Notes)
	})

	t.Run("flat fields with label type", func(t *testing.T) {
		resp, parsed := assistant.ParseClientDraft(`{"name":"Red Cross","clientType":"NonProfit"}`)
		require.True(t, parsed)
		assert.Equal(t, domain.ClientTypeNonProfit, resp.Fields.ClientType)
		assert.Empty(t, resp.Notes)
	})

	t.Run("out of range type", func(t *testing.T) {
		resp, _ := assistant.ParseClientDraft(`{"fields":{"name":"Acme","clientType":9}}`)
		assert.Equal(t, domain.ClientTypePrivate, resp.Fields.ClientType)
		assert.Len(t, resp.Notes, 1)
	})

	t.Run("unparseable", func(t *testing.T) {
		resp, parsed := assistant.ParseClientDraft("I could not understand that company.")
		assert.False(t, parsed)
		assert.Empty(t, resp.Fields.Name)
		assert.Equal(t, []string{"I could not understand that company."}, resp.Notes)
	})
}

func strPtr(s string) *string { return &s }
