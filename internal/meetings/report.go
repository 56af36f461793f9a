package meetings

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/OER-Forge/raisemyhand/internal/models"
	"github.com/OER-Forge/raisemyhand/pkg/response"
)

// ReportStats summarizes a meeting for the JSON report.
type ReportStats struct {
	TotalQuestions    int `json:"total_questions"`
	AnsweredQuestions int `json:"answered_questions"`
	TotalUpvotes      int `json:"total_upvotes"`
}

func buildStats(questions []models.Question) ReportStats {
	var s ReportStats
	s.TotalQuestions = len(questions)
	for _, q := range questions {
		if q.AnsweredInClass {
			s.AnsweredQuestions++
		}
		s.TotalUpvotes += q.Upvotes
	}
	return s
}

// writeReportCSV renders the meeting's questions as CSV, most upvoted first.
func writeReportCSV(w io.Writer, questions []models.Question) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Number", "Question", "Upvotes", "Status", "Answered In Class", "Created At"}); err != nil {
		return err
	}
	for _, q := range questions {
		answered := "No"
		if q.AnsweredInClass {
			answered = "Yes"
		}
		record := []string{
			strconv.Itoa(q.QuestionNumber),
			q.Text,
			strconv.Itoa(q.Upvotes),
			string(q.Status),
			answered,
			q.CreatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Report handles GET /api/instructor/meetings/:code/report?format=json|csv.
func (h *Handler) Report(c *gin.Context) {
	m, err := h.authorize(c)
	if err != nil {
		return
	}
	questions, err := h.questions.ListByMeeting(c.Request.Context(), m.ID, false)
	if err != nil {
		response.Internal(c, "failed to list questions")
		return
	}

	if c.DefaultQuery("format", "json") == "csv" {
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition",
			fmt.Sprintf("attachment; filename=meeting_%s_report.csv", m.MeetingCode))
		c.Status(http.StatusOK)
		if err := writeReportCSV(c.Writer, questions); err != nil {
			h.logger.Error("write report csv", zap.Error(err))
		}
		return
	}

	response.OK(c, gin.H{
		"meeting":   m,
		"questions": questions,
		"stats":     buildStats(questions),
	})
}
