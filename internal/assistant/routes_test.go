package assistant_test

import (
	"testing"

	"github.com/salesflow/salesflow-api/internal/assistant"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeRoute(t *testing.T) {
	tests := []struct {
		in   string
		want *string
	}{
		{"/dashboard", strPtr("/dashboard")},
		{"/pricing-requests", strPtr("/pricing-requests")},
		{"  /Reports/ ", strPtr("/reports")},
		{"users", strPtr("/users")},
		{"/clients?filter=active", strPtr("/clients")},
		{"/clients/123", nil},
		{"/evil", nil},
		{"//evil.example/clients", nil},
		{"javascript:alert(1)", nil},
		{"", nil},
		{"/", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, assistant.SanitizeRoute(tt.in))
		})
	}
}

func TestSanitizeRouteOnlyYieldsAllowedRoutes(t *testing.T) {
	for _, route := range assistant.AllowedRoutes {
		got := assistant.SanitizeRoute(route)
		if assert.NotNil(t, got) {
			assert.True(t, assistant.IsAllowedRoute(*got))
		}
	}
	assert.Len(t, assistant.AllowedRoutes, 10)
}

func TestInferRoute(t *testing.T) {
	tests := []struct {
		prompt string
		want   *string
	}{
		{"Which contracts expire next month?", strPtr("/contracts")},
		{"Show me my overdue tasks", strPtr("/activities")},
		{"What is the status of the pricing request for Acme?", strPtr("/pricing-requests")},
		{"How big is our pipeline?", strPtr("/opportunities")},
		{"Who is the main contact at Globex?", strPtr("/contacts")},
		{"List government customers", strPtr("/clients")},
		{"Any proposals awaiting approval?", strPtr("/proposals")},
		{"Open the monthly report", strPtr("/reports")},
		{"Which team members are inactive?", strPtr("/users")},
		{"Give me an overview", strPtr("/dashboard")},
		{"Schedule a follow-up", strPtr("/activities")},
		{"Hello there", nil},
	}
	for _, tt := range tests {
		t.Run(tt.prompt, func(t *testing.T) {
			assert.Equal(t, tt.want, assistant.InferRoute(tt.prompt))
		})
	}
}
