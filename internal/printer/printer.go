package printer

import "github.com/slok/tierd/internal/httpapi"

// Printer knows how to print the tierd resources in different formats.
type Printer interface {
	PrintTasks(tasks []httpapi.TaskResponse) error
	PrintTask(task httpapi.TaskResponse) error
	PrintMoves(moves []httpapi.MoveResponse) error
	PrintOSReleases(releases []httpapi.OSReleaseResponse) error
	PrintPromotions(reqs []httpapi.PromotionResponse) error
	PrintPromotion(req httpapi.PromotionResponse) error
	PrintMessage(msg string) error
}
