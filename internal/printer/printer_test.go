package printer_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/tierd/internal/httpapi"
	"github.com/slok/tierd/internal/printer"
)

var createdAt = time.Date(2026, 1, 30, 10, 0, 0, 0, time.UTC)

func taskFixture() httpapi.TaskResponse {
	finished := createdAt.Add(time.Minute)
	return httpapi.TaskResponse{
		ID:         "01J0TASK",
		Type:       "os-release:create",
		Status:     "completed",
		Args:       json.RawMessage(`{"version":"2026.01.1"}`),
		CreatedAt:  createdAt,
		FinishedAt: &finished,
		Result:     json.RawMessage(`{"snapshot":"leios-stable-2026.01.1"}`),
		CreatedBy:  "admin",
	}
}

func TestTablePrinterPrintTask(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintTask(taskFixture())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Type:       os-release:create")
	assert.Contains(t, out, "Finished:   2026-01-30 10:01:00 UTC")
	assert.Contains(t, out, `Result:     {"snapshot":"leios-stable-2026.01.1"}`)
	assert.NotContains(t, out, "Message:")
}

func TestTablePrinterPrintTasks(t *testing.T) {
	tests := map[string]struct {
		tasks    []httpapi.TaskResponse
		expLines int
	}{
		"No tasks should print nothing.": {
			tasks:    nil,
			expLines: 0,
		},

		"Tasks should be printed with a header.": {
			tasks:    []httpapi.TaskResponse{taskFixture(), {ID: "t2", Type: "testing-repo:update", Status: "pending", CreatedAt: createdAt}},
			expLines: 3,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			p := printer.NewTablePrinter(&buf)

			err := p.PrintTasks(test.tasks)
			require.NoError(t, err)

			out := strings.TrimSpace(buf.String())
			if test.expLines == 0 {
				assert.Empty(t, out)
				return
			}
			lines := strings.Split(out, "\n")
			assert.Len(t, lines, test.expLines)
			assert.True(t, strings.HasPrefix(lines[0], "ID"))
			assert.Contains(t, lines[2], "t2")
			assert.Contains(t, lines[2], " - ")
		})
	}
}

func TestTablePrinterPrintPromotion(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	resolved := createdAt.Add(time.Hour)
	err := p.PrintPromotion(httpapi.PromotionResponse{
		ID: "pr1", PackageID: "p1", ReleaseID: "r1", Arch: "amd64", Status: "denied",
		RequestedBy: "dev", ReviewedBy: "admin", DecisionReason: "broken", CreatedAt: createdAt, ResolvedAt: &resolved,
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Status:       denied")
	assert.Contains(t, out, "Reviewed by:  admin")
	assert.Contains(t, out, "Reason:       broken")
}

func TestJSONPrinterPrintTasks(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewJSONPrinter(&buf)

	err := p.PrintTasks([]httpapi.TaskResponse{taskFixture()})
	require.NoError(t, err)

	var got []httpapi.TaskResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "01J0TASK", got[0].ID)
	assert.Contains(t, buf.String(), `"status": "completed"`)
}

func TestJSONPrinterEmptyListIsArray(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewJSONPrinter(&buf)

	require.NoError(t, p.PrintPromotions(nil))
	assert.Equal(t, "[]", strings.TrimSpace(buf.String()))
}

func TestTablePrinterPrintMessage(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintMessage("ok")
	require.NoError(t, err)
	assert.Equal(t, "ok", strings.TrimSpace(buf.String()))
}
