// Package chat adapts the Telegram Bot API to the bot router: it decodes
// updates into events and implements the outbound transport.
package chat

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

// Update is a Bot API update as delivered by getUpdates, the webhook and
// the bot_updates topic.
type Update = tgbotapi.Update

// Message is an incoming or sent chat message.
type Message = tgbotapi.Message

// User is a Telegram account.
type User = tgbotapi.User

// Chat is the conversation a message belongs to.
type Chat = tgbotapi.Chat

// CallbackQuery is an inline keyboard press.
type CallbackQuery = tgbotapi.CallbackQuery
