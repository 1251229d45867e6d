package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/salesflow/salesflow-api/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestWriteAdvanceResults(t *testing.T) {
	var buf bytes.Buffer
	failed := writeAdvanceResults(&buf, []domain.AdvanceResult{
		{OpportunityID: uuid.New(), Title: "Fleet renewal", From: domain.StageLead, To: domain.StageQualified},
		{OpportunityID: uuid.New(), Title: "Office fit-out", From: domain.StageProposal, To: domain.StageNegotiation, Error: "backend returned 409"},
	})

	assert.Equal(t, 1, failed)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, lines[1], "Fleet renewal")
	assert.Contains(t, lines[1], "ok")
	assert.Contains(t, lines[2], "backend returned 409")
}

func TestReadLine(t *testing.T) {
	line, err := readLine(strings.NewReader("s3cret  \nignored"))
	assert.NoError(t, err)
	assert.Equal(t, "s3cret", line)

	line, err = readLine(strings.NewReader("no-newline"))
	assert.NoError(t, err)
	assert.Equal(t, "no-newline", line)
}
