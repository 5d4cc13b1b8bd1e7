package persistence

import (
	"context"
	"time"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/logger"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

// PublicationAuditRepository appends attempt history to Mongo. With a nil
// client every append is a logged no-op so the worker keeps running when
// Mongo is down.
type PublicationAuditRepository struct {
	client   *mongo.Client
	database string
}

func NewPublicationAuditRepository(client *mongo.Client, database string) *PublicationAuditRepository {
	return &PublicationAuditRepository{client: client, database: database}
}

func (r *PublicationAuditRepository) Append(ctx context.Context, audit *model.PublicationAudit) error {
	if r.client == nil {
		logger.GetLogger().Info("Mongo client is nil - skipping publication audit append")
		return nil
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now().UTC()
	}
	collection := r.client.Database(r.database).Collection("publication_audit")
	_, err := collection.InsertOne(ctx, audit)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while appending publication audit")
	}
	return err
}
