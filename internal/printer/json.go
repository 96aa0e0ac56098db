package printer

import (
	"encoding/json"
	"io"

	"github.com/slok/tierd/internal/httpapi"
)

// JSONPrinter prints the resources in JSON format, the same shape the admin API uses.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

// messageOutput represents a simple message output.
type messageOutput struct {
	Message string `json:"message"`
}

func (j *JSONPrinter) PrintTasks(tasks []httpapi.TaskResponse) error {
	if tasks == nil {
		tasks = []httpapi.TaskResponse{}
	}
	return j.encode(tasks)
}

func (j *JSONPrinter) PrintTask(task httpapi.TaskResponse) error { return j.encode(task) }

func (j *JSONPrinter) PrintMoves(moves []httpapi.MoveResponse) error {
	if moves == nil {
		moves = []httpapi.MoveResponse{}
	}
	return j.encode(moves)
}

func (j *JSONPrinter) PrintOSReleases(releases []httpapi.OSReleaseResponse) error {
	if releases == nil {
		releases = []httpapi.OSReleaseResponse{}
	}
	return j.encode(releases)
}

func (j *JSONPrinter) PrintPromotions(reqs []httpapi.PromotionResponse) error {
	if reqs == nil {
		reqs = []httpapi.PromotionResponse{}
	}
	return j.encode(reqs)
}

func (j *JSONPrinter) PrintPromotion(req httpapi.PromotionResponse) error { return j.encode(req) }

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	return j.encode(messageOutput{Message: msg})
}

func (j *JSONPrinter) encode(v any) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
