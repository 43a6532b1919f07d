package scheduler

import (
	"encoding/json"

	"property_portal_backend/internal/notification/mailer"

	"github.com/hibiken/asynq"
)

const TaskEmailBatch = "notification.email.batch"

func NewEmailBatchTask(batch mailer.Batch) (*asynq.Task, error) {
	data, err := json.Marshal(batch)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskEmailBatch, data), nil
}

func ParseEmailBatchPayload(task *asynq.Task) (mailer.Batch, error) {
	var batch mailer.Batch
	if err := json.Unmarshal(task.Payload(), &batch); err != nil {
		return mailer.Batch{}, err
	}
	return batch, nil
}
