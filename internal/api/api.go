package api

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"message-api/internal/config"
	"message-api/internal/model"
)

// MessageStore is the persistence the handlers need.
type MessageStore interface {
	CreateMessage(ctx context.Context, m *model.Message) error
	ListMessages(ctx context.Context) ([]model.Message, error)
	Ping(ctx context.Context) error
}

// EventPublisher is notified after a message has been stored.
type EventPublisher interface {
	PublishMessageCreated(ctx context.Context, m model.Message) error
}

type API struct {
	Store     MessageStore
	Publisher EventPublisher
	Cfg       *config.Config
	Log       *logrus.Logger

	validate *validator.Validate
}

func NewAPI(store MessageStore, publisher EventPublisher, cfg *config.Config, log *logrus.Logger) *API {
	return &API{
		Store:     store,
		Publisher: publisher,
		Cfg:       cfg,
		Log:       log,
		validate:  newValidator(),
	}
}
