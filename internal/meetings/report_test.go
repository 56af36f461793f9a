package meetings

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OER-Forge/raisemyhand/internal/models"
)

func sampleQuestions() []models.Question {
	created := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	return []models.Question{
		{QuestionNumber: 2, Text: "What is a closure?", Upvotes: 5,
			Status: models.StatusApproved, AnsweredInClass: true, CreatedAt: created},
		{QuestionNumber: 1, Text: "Will this be on the exam?", Upvotes: 3,
			Status: models.StatusApproved, CreatedAt: created.Add(-time.Minute)},
		{QuestionNumber: 3, Text: "off topic", Upvotes: 0,
			Status: models.StatusRejected, CreatedAt: created.Add(time.Minute)},
	}
}

func TestBuildStats(t *testing.T) {
	s := buildStats(sampleQuestions())
	assert.Equal(t, 3, s.TotalQuestions)
	assert.Equal(t, 1, s.AnsweredQuestions)
	assert.Equal(t, 8, s.TotalUpvotes)

	empty := buildStats(nil)
	assert.Equal(t, ReportStats{}, empty)
}

func TestWriteReportCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReportCSV(&buf, sampleQuestions()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4, "header plus one row per question")

	assert.Equal(t,
		[]string{"Number", "Question", "Upvotes", "Status", "Answered In Class", "Created At"},
		records[0])
	assert.Equal(t, "2", records[1][0])
	assert.Equal(t, "What is a closure?", records[1][1])
	assert.Equal(t, "5", records[1][2])
	assert.Equal(t, "Yes", records[1][4])
	assert.Equal(t, "No", records[2][4])
	assert.Equal(t, "rejected", records[3][3])
}

func TestWriteReportCSV_QuotesCommasAndNewlines(t *testing.T) {
	questions := []models.Question{
		{QuestionNumber: 1, Text: "why x, not y?\nasking for a friend", Upvotes: 1,
			Status: models.StatusApproved, CreatedAt: time.Now()},
	}

	var buf bytes.Buffer
	require.NoError(t, writeReportCSV(&buf, questions))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "why x, not y?\nasking for a friend", records[1][1])
}
