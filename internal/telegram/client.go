// Package telegram exposes the arbitrage queries as a Telegram bot.
// It long-polls for commands, runs them against the analyzer and replies with
// MarkdownV2 messages, retrying deliveries that fail.
//
// Commands:
//
//	/search <item>        list the variant families matching an item name
//	/arb <item> [group]   analyze one family (the first by default)
//	/arball <item>        analyze every family
//	/help                 show usage
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/silverroute/internal/analyzer"
	"github.com/rewired-gh/silverroute/internal/logger"
)

// maxMessageLen is Telegram's limit on the text of one message.
const maxMessageLen = 4096

// Querier runs search and arbitrage queries.
type Querier interface {
	Search(ctx context.Context, query string) analyzer.SearchReport
	Query(ctx context.Context, input string, sel analyzer.Selection) (analyzer.QueryReport, error)
}

// botAPI is the subset of *tgbotapi.BotAPI the client uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Client handles Telegram commands and replies
type Client struct {
	bot            botAPI
	allowed        map[int64]bool
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client. chatIDs is an optional
// comma-separated allow-list; when empty every chat may use the bot.
func NewClient(botToken, chatIDs string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	allowed, err := parseChatIDs(chatIDs)
	if err != nil {
		return nil, err
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	logger.Info("Authorized on Telegram account %s", bot.Self.UserName)

	return newClient(bot, allowed, maxRetries, retryDelayBase), nil
}

func newClient(bot botAPI, allowed map[int64]bool, maxRetries int, retryDelayBase time.Duration) *Client {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}
	return &Client{
		bot:            bot,
		allowed:        allowed,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}
}

func parseChatIDs(s string) (map[int64]bool, error) {
	allowed := make(map[int64]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chat ID %q: %w", part, err)
		}
		allowed[id] = true
	}
	return allowed, nil
}

// ListenForCommands polls for updates and answers commands until ctx is done.
func (c *Client) ListenForCommands(ctx context.Context, q Querier) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := c.bot.GetUpdatesChan(u)
	defer c.bot.StopReceivingUpdates()

	logger.Info("Listening for Telegram commands")
	for {
		select {
		case <-ctx.Done():
			logger.Info("Telegram listener stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			c.handleUpdate(ctx, q, update)
		}
	}
}

func (c *Client) handleUpdate(ctx context.Context, q Querier, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || !msg.IsCommand() {
		return
	}
	chatID := msg.Chat.ID
	if len(c.allowed) > 0 && !c.allowed[chatID] {
		logger.Warn("Ignoring command from unauthorized chat %d", chatID)
		return
	}

	logger.Debug("Received /%s from chat %d", msg.Command(), chatID)
	reply := c.execute(ctx, q, msg.Command(), msg.CommandArguments())
	if err := c.Send(ctx, chatID, reply); err != nil {
		logger.Error("Failed to reply to chat %d: %v", chatID, err)
	}
}

// execute runs one command and returns the MarkdownV2 reply.
func (c *Client) execute(ctx context.Context, q Querier, command, args string) string {
	args = strings.TrimSpace(args)

	switch command {
	case "start", "help":
		return helpMessage()

	case "search":
		if args == "" {
			return escapeMarkdownV2("Usage: /search <item>")
		}
		return formatSearch(q.Search(ctx, args))

	case "arb", "arball":
		if args == "" {
			return escapeMarkdownV2(fmt.Sprintf("Usage: /%s <item>", command))
		}
		term, sel := parseSelection(args)
		sel.All = command == "arball"
		out, err := q.Query(ctx, term, sel)
		if err != nil {
			return "❌ " + escapeMarkdownV2(err.Error())
		}
		return formatQuery(out)

	default:
		return escapeMarkdownV2("Unknown command. Send /help for usage.")
	}
}

// parseSelection splits a trailing group number off the arguments.
func parseSelection(args string) (string, analyzer.Selection) {
	fields := strings.Fields(args)
	if len(fields) > 1 {
		if n, err := strconv.Atoi(fields[len(fields)-1]); err == nil {
			return strings.Join(fields[:len(fields)-1], " "), analyzer.Selection{Group: n}
		}
	}
	return args, analyzer.Selection{}
}

// Send delivers text to a chat, splitting it to fit Telegram's limit.
func (c *Client) Send(ctx context.Context, chatID int64, text string) error {
	for _, part := range splitMessage(text, maxMessageLen) {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = tgbotapi.ModeMarkdownV2
		msg.DisableWebPagePreview = true
		if err := c.sendWithRetry(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) sendWithRetry(ctx context.Context, msg tgbotapi.MessageConfig) error {
	var lastErr error

	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retryDelayBase * time.Duration(i+1)):
		}
	}

	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}

// splitMessage breaks text at line boundaries into parts of at most limit bytes.
// A single line longer than limit is cut.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var parts []string
	var current strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		for len(line) > limit {
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
			cut := limit
			for cut > 1 && !utf8.RuneStart(line[cut]) {
				cut--
			}
			// never split an escape sequence: an odd run of trailing
			// backslashes ends in an unpaired escape
			if trailingBackslashes(line[:cut])%2 == 1 {
				cut--
			}
			parts = append(parts, line[:cut])
			line = line[cut:]
		}
		if current.Len() > 0 && current.Len()+len(line) > limit {
			parts = append(parts, current.String())
			current.Reset()
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

func trailingBackslashes(s string) int {
	n := 0
	for i := len(s) - 1; i >= 0 && s[i] == '\\'; i-- {
		n++
	}
	return n
}
