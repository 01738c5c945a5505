package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffpulse/internal/assistant"
	"staffpulse/internal/authz"
	apperrors "staffpulse/internal/errors"
	"staffpulse/internal/store"
)

func TestAssistantService_Ask(t *testing.T) {
	st := store.NewMemory()
	id := storedReport(t, st)
	mock := assistant.NewMock()
	mock.Answer = "Sales grew forty percent."
	svc := NewAssistantService(st, allSheetsAuthorizer(), mock, nil, testLogger())

	answer, err := svc.Ask(context.Background(), "alice", id, "How did sales do?")
	require.NoError(t, err)
	assert.Equal(t, "Sales grew forty percent.", answer)

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "How did sales do?", calls[0].Question)
	assert.Contains(t, calls[0].Context, "Company Total")
	assert.Contains(t, calls[0].Context, "Temp Division")
	assert.Contains(t, calls[0].Context, "Revenue Growth")
}

func TestAssistantService_Ask_ContextOmitsHiddenSheets(t *testing.T) {
	st := store.NewMemory()
	id := storedReport(t, st)
	mock := assistant.NewMock()
	auth := &stubAuthorizer{sheets: authz.NewSheetSet("Perm Division")}
	svc := NewAssistantService(st, auth, mock, nil, testLogger())

	_, err := svc.Ask(context.Background(), "bob", id, "What were the placement fees?")
	require.NoError(t, err)

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Context, "Perm Division")
	assert.NotContains(t, calls[0].Context, "Company Total")
	assert.NotContains(t, calls[0].Context, "Temp Division")
}

func TestAssistantService_Ask_ReportNotFound(t *testing.T) {
	svc := NewAssistantService(store.NewMemory(), allSheetsAuthorizer(), assistant.NewMock(), nil, testLogger())

	_, err := svc.Ask(context.Background(), "alice", "missing-id", "Anything?")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrTypeNotFound, appErr.Type)
}

func TestAssistantService_Ask_RateLimited(t *testing.T) {
	st := store.NewMemory()
	id := storedReport(t, st)
	mock := assistant.NewMock()
	mock.Err = &assistant.RateLimitError{RetryAfter: 30 * time.Second}
	svc := NewAssistantService(st, allSheetsAuthorizer(), mock, nil, testLogger())

	_, err := svc.Ask(context.Background(), "alice", id, "How did sales do?")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrTypeRateLimit, appErr.Type)
	assert.Equal(t, 30, appErr.Context["retry_after_seconds"])
}

func TestRenderReportContext(t *testing.T) {
	text := renderReportContext(testReport())

	assert.Contains(t, text, `"13WeekReport_Week_14.xlsx"`)
	assert.Contains(t, text, "week 14")
	assert.Contains(t, text, "3 cost-center sheets")
	assert.Contains(t, text, "Latest week (Week 14): total sales 140000.00")
	assert.Contains(t, text, "(35.7% of revenue)")
	assert.Contains(t, text, "Previous week (Week 13)")
	assert.Contains(t, text, "13-week average")
	assert.Contains(t, text, "Year to date")
	assert.Contains(t, text, "placement and conversion fees 31200.00")
	assert.Contains(t, text, "Finding (positive): Revenue Growth.")
}
