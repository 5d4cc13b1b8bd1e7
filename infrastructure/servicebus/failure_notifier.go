package servicebus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/logger"
)

// NewServiceBus creates the Azure Service Bus client used for terminal
// failure notices.
func NewServiceBus(namespace string) (*azservicebus.Client, error) {
	return azservicebus.NewClient(namespace, nil, nil)
}

// terminalFailureMessage is the dead-letter style notice operators consume.
type terminalFailureMessage struct {
	PostID     string         `json:"post_id"`
	Platform   model.Platform `json:"platform"`
	RetryCount int            `json:"retry_count"`
	ErrorCode  string         `json:"error_code"`
	Message    string         `json:"message"`
	FailedAt   time.Time      `json:"failed_at"`
}

// FailureNotifier sends terminal publish failures to a Service Bus queue.
// A nil client turns every notify into a logged no-op.
type FailureNotifier struct {
	client *azservicebus.Client
	queue  string
}

func NewFailureNotifier(client *azservicebus.Client, queue string) *FailureNotifier {
	return &FailureNotifier{client: client, queue: queue}
}

func (n *FailureNotifier) NotifyTerminalFailure(ctx context.Context, job *model.PublishJob, errorCode, message string) error {
	if n.client == nil {
		logger.GetLogger().WithField("post_id", job.PostID).Info("Service Bus client is nil - skipping failure notice")
		return nil
	}

	payload, err := json.Marshal(terminalFailureMessage{
		PostID:     job.PostID,
		Platform:   job.Platform,
		RetryCount: job.RetryCount,
		ErrorCode:  errorCode,
		Message:    message,
		FailedAt:   time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	sender, err := n.client.NewSender(n.queue, nil)
	if err != nil {
		logger.GetLogger().
			WithField("error", err).
			Error("Error while making new sender service bus.")
		return err
	}
	defer func(sender *azservicebus.Sender, ctx context.Context) {
		if err := sender.Close(ctx); err != nil {
			logger.GetLogger().
				WithField("error", err).
				Error("Error while closing sender.")
		}
	}(sender, context.Background())

	if err := sender.SendMessage(ctx, &azservicebus.Message{Body: payload}, nil); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while sending message.")
		return err
	}
	return nil
}
