package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskOrderRelease = "orders.release"

// OrderReleasePayload identifies the cancelled order whose leads should be
// returned to the pool.
type OrderReleasePayload struct {
	OrderID string `json:"orderId"`
}

func NewOrderReleaseTask(payload OrderReleasePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderRelease, data), nil
}

func ParseOrderReleasePayload(task *asynq.Task) (OrderReleasePayload, error) {
	var payload OrderReleasePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return OrderReleasePayload{}, err
	}
	return payload, nil
}
