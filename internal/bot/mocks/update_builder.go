package mocks

import (
	"strings"

	"github.com/go-telegram/bot/models"
)

// UpdateBuilder helps construct test Update objects.
type UpdateBuilder struct {
	update *models.Update
}

// NewUpdateBuilder creates a new UpdateBuilder.
func NewUpdateBuilder() *UpdateBuilder {
	return &UpdateBuilder{update: &models.Update{}}
}

func testUser(userID int64) models.User {
	return models.User{ID: userID, FirstName: "Test", LastName: "User", Username: "testuser"}
}

func privateChat(chatID int64) models.Chat {
	return models.Chat{ID: chatID, Type: "private"}
}

func textMessage(chatID, userID int64, text string) *models.Message {
	from := testUser(userID)
	return &models.Message{ID: 1, Chat: privateChat(chatID), From: &from, Text: text}
}

// WithMessage sets a private-chat message on the update.
func (b *UpdateBuilder) WithMessage(chatID, userID int64, text string) *UpdateBuilder {
	b.update.Message = textMessage(chatID, userID, text)
	return b
}

// WithCommand sets a message whose leading /word is tagged as a bot command,
// the way Telegram delivers commands.
func (b *UpdateBuilder) WithCommand(chatID, userID int64, text string) *UpdateBuilder {
	b.WithMessage(chatID, userID, text)
	if !strings.HasPrefix(text, "/") {
		return b
	}
	cmd, _, _ := strings.Cut(text, " ")
	b.update.Message.Entities = []models.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	return b
}

// WithMessageID sets a custom message ID.
func (b *UpdateBuilder) WithMessageID(messageID int) *UpdateBuilder {
	if b.update.Message != nil {
		b.update.Message.ID = messageID
	}
	return b
}

// WithFrom replaces the sender on the message or callback query.
func (b *UpdateBuilder) WithFrom(userID int64, username, firstName, lastName string) *UpdateBuilder {
	user := models.User{ID: userID, Username: username, FirstName: firstName, LastName: lastName}
	if b.update.Message != nil {
		b.update.Message.From = &user
	}
	if b.update.CallbackQuery != nil {
		b.update.CallbackQuery.From = user
	}
	return b
}

// WithCallbackQuery sets an inline-button press on the update.
func (b *UpdateBuilder) WithCallbackQuery(callbackID string, chatID, userID int64, messageID int, data string) *UpdateBuilder {
	b.update.CallbackQuery = &models.CallbackQuery{
		ID:   callbackID,
		From: testUser(userID),
		Message: models.MaybeInaccessibleMessage{
			Message: &models.Message{ID: messageID, Chat: privateChat(chatID)},
		},
		Data: data,
	}
	return b
}

// WithEditedMessage sets an edited message on the update.
func (b *UpdateBuilder) WithEditedMessage(chatID, userID int64, text string) *UpdateBuilder {
	b.update.EditedMessage = textMessage(chatID, userID, text)
	return b
}

// Build returns the constructed Update.
func (b *UpdateBuilder) Build() *models.Update {
	return b.update
}

// MessageUpdate creates a plain text message update.
func MessageUpdate(chatID, userID int64, text string) *models.Update {
	return NewUpdateBuilder().WithMessage(chatID, userID, text).Build()
}

// CommandUpdate creates a command update such as "/add Netflix 649".
func CommandUpdate(chatID, userID int64, command string) *models.Update {
	return NewUpdateBuilder().WithCommand(chatID, userID, command).Build()
}

// CallbackQueryUpdate creates a callback query update.
func CallbackQueryUpdate(chatID, userID int64, messageID int, data string) *models.Update {
	return NewUpdateBuilder().
		WithCallbackQuery("callback-query-id", chatID, userID, messageID, data).
		Build()
}
