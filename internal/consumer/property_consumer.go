package consumer

import (
	"encoding/json"
	"log"

	"github.com/atypikhouse/booking-service/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PropertyConsumer struct {
	db *gorm.DB
}

func NewPropertyConsumer(db *gorm.DB) *PropertyConsumer {
	return &PropertyConsumer{db: db}
}

// Start listens for messages and upserts properties into the local booking DB.
func (pc *PropertyConsumer) Start(msgs <-chan amqp.Delivery) {
	go func() {
		for msg := range msgs {
			pc.handleMessage(msg)
		}
		log.Println("[PropertyConsumer] channel closed, stopping consumer")
	}()
}

func (pc *PropertyConsumer) handleMessage(msg amqp.Delivery) {
	var property models.Property
	if err := json.Unmarshal(msg.Body, &property); err != nil {
		log.Printf("[PropertyConsumer] failed to unmarshal: %v", err)
		msg.Nack(false, false)
		return
	}

	// Upsert: insert or update on conflict (same ID from the catalog service)
	result := pc.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "category", "owner_id", "nightly_rate", "max_guests", "is_available", "updated_at"}),
	}).Create(&property)

	if result.Error != nil {
		log.Printf("[PropertyConsumer] failed to upsert property %d: %v", property.ID, result.Error)
		msg.Nack(false, true) // requeue
		return
	}

	log.Printf("[PropertyConsumer] synced property %d: %s", property.ID, property.Name)
	msg.Ack(false)
}
