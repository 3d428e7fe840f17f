package bot

import (
	"context"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"streakbot/internal/tenant"
	"streakbot/internal/transport"
	"streakbot/pkg/tgui"
	logx "streakbot/pkg/logx"
)

// callbackUnit tags all inline-button data this handler owns.
const callbackUnit = "bot"

var ridSeq atomic.Uint64

func newReqID() string {
	n := ridSeq.Add(1)
	return strconv.FormatInt(time.Now().UnixNano(), 36) + "-" + strconv.FormatUint(n, 36)
}

func (h *Handler) routeMessage(root context.Context, up transport.Update) {
	if up.Message == nil {
		return
	}
	msg := up.Message
	text := strings.TrimSpace(msg.Text)

	if strings.HasPrefix(text, "/") {
		word := strings.TrimPrefix(strings.Fields(text)[0], "/")
		if i := strings.IndexByte(word, '@'); i >= 0 {
			word = word[:i]
		}
		switch word {
		case "start":
			h.enqueue(root, up, transport.ChatTarget{ChatID: msg.ChatID}, msg.FromID, "/start", h.handleStart)
		case "help":
			h.enqueue(root, up, transport.ChatTarget{ChatID: msg.ChatID}, msg.FromID, "/help", h.handleHelp)
		default:
			h.notify.Notify(msg.ChatID, "Unknown command. Try /help.")
		}
		return
	}

	h.enqueue(root, up, transport.ChatTarget{ChatID: msg.ChatID}, msg.FromID, "text", func(ctx context.Context, req *Request) error {
		h.handleText(ctx, req, text)
		return nil
	})
}

func (h *Handler) routeCallback(root context.Context, up transport.Update) {
	if up.Callback == nil {
		return
	}
	cb := up.Callback

	unit, action, payload := tgui.Split(cb.Data)
	if unit != callbackUnit || action == "" {
		_ = h.adapter.AnswerCallback(root, cb.ID, "unknown action")
		return
	}

	handler := func(ctx context.Context, req *Request) error {
		return h.handleCallback(ctx, req, action, payload)
	}

	ok := h.enqueue(root, up, transport.ChatTarget{ChatID: cb.ChatID}, cb.FromID, "cb:"+action, handler,
		func() {
			// best-effort to stop the "loading" spinner
			_ = h.adapter.AnswerCallback(root, cb.ID, "")
		})
	if !ok {
		_ = h.adapter.AnswerCallback(root, cb.ID, "busy")
	}
}

// enqueue wraps one update into a middleware chain and hands it to the
// worker pool. after runs once the handler returns (used for callback
// acks). Returns false when the queue is saturated.
func (h *Handler) enqueue(root context.Context, up transport.Update, chat transport.ChatTarget, fromID int64, action string, fn HandlerFunc, after ...func()) bool {
	rid := newReqID()
	req := &Request{
		Update: up,
		Chat:   chat,
		FromID: fromID,
		Action: action,
		ReqID:  rid,
		Logger: h.log.With(
			logx.String("rid", rid),
			logx.Int64("chat_id", chat.ChatID),
			logx.String("action", action),
		),
	}

	final := Chain(
		fn,
		MWPanicRecover(h.log),
		MWRequestLog(h.log),
		MWTimeout(defaultHandlerTimeout),
	)

	queued := h.tryEnqueue(func() {
		_ = final(root, req)
		for _, f := range after {
			f()
		}
	})
	if !queued && up.Kind == transport.UpdateMessage {
		h.notify.Notify(chat.ChatID, "Busy, try again in a moment.")
	}
	return queued
}

func (h *Handler) handleStart(ctx context.Context, req *Request) error {
	h.store.GetOrCreate(req.Chat.ChatID)
	_, err := greetingMessage().Send(ctx, h.adapter, req.Chat)
	return err
}

func (h *Handler) handleHelp(ctx context.Context, req *Request) error {
	_, err := helpMessage().Send(ctx, h.adapter, req.Chat)
	return err
}

func (h *Handler) handleCallback(ctx context.Context, req *Request, action, payload string) error {
	chatID := req.Chat.ChatID
	ref := transport.MessageRef{ChatID: chatID, MessageID: req.Update.Callback.MessageID}

	switch action {
	case "menu":
		// Back also abandons any pending prompt.
		h.modes.Clear(chatID)
		return menuMessage().Edit(ctx, h.adapter, ref)

	case "settings":
		return settingsMessage().Edit(ctx, h.adapter, ref)

	case "start":
		h.notify.Notify(chatID, startReply(h.sched.StartTenant(chatID), h.store, chatID))
		return nil

	case "stop":
		h.notify.Notify(chatID, stopReply(h.sched.StopTenant(chatID)))
		return nil

	case "status":
		st, ok := h.sched.Snapshot(chatID)
		if !ok {
			st.Config = h.store.GetOrCreate(chatID)
		}
		_, err := statusMessage(st).Send(ctx, h.adapter, req.Chat)
		return err

	case "set":
		mode, prompt, ok := promptFor(payload)
		if !ok {
			_ = h.adapter.AnswerCallback(ctx, req.Update.Callback.ID, "unknown action")
			return nil
		}
		h.modes.Set(chatID, mode)
		h.notify.Notify(chatID, prompt)
		return nil

	default:
		_ = h.adapter.AnswerCallback(ctx, req.Update.Callback.ID, "unknown action")
		return nil
	}
}

// handleText consumes one free-text message. The pending mode is taken
// before validation, so even a rejected value leaves the prompt state.
func (h *Handler) handleText(ctx context.Context, req *Request, text string) {
	chatID := req.Chat.ChatID
	mode := h.modes.Take(chatID)
	if mode == tenant.ModeNone {
		req.Logger.Debug("free text without pending mode; ignoring")
		return
	}
	h.notify.Notify(chatID, h.applyInput(ctx, chatID, mode, text))
}

// applyInput validates one submitted value and commits it to the tenant
// store. Returns the reply for the tenant; invalid values change nothing.
func (h *Handler) applyInput(ctx context.Context, chatID int64, mode tenant.InputMode, raw string) string {
	value := strings.TrimSpace(raw)

	switch mode {
	case tenant.ModeToken:
		if value == "" {
			return "Token can't be empty. Tap Set Token to try again."
		}
		var old string
		h.store.Update(chatID, func(c *tenant.Config) {
			old = c.Token
			c.Token = value
		})
		if h.creds != nil && old != "" && old != value {
			h.creds.Evict(old)
		}
		if h.verifier != nil {
			go h.verifyToken(ctx, chatID, value)
		}
		return "Token saved."

	case tenant.ModeOwner:
		if value == "" {
			return "Username can't be empty. Tap Set Username to try again."
		}
		h.store.Update(chatID, func(c *tenant.Config) { c.Owner = value })
		return "Username saved: " + value

	case tenant.ModeRepos:
		repos := parseRepos(value)
		if len(repos) == 0 {
			return "Send at least one repository name. Tap Set Repos to try again."
		}
		h.store.Update(chatID, func(c *tenant.Config) { c.Repos = repos })
		return "Repositories saved: " + strings.Join(repos, ", ")

	case tenant.ModeFile:
		if value == "" {
			return "File name can't be empty. Tap Set File to try again."
		}
		h.store.Update(chatID, func(c *tenant.Config) { c.File = value })
		return "File saved: " + value

	case tenant.ModeDelay:
		secs, err := strconv.Atoi(value)
		if err != nil || secs <= 0 {
			return "Delay must be a whole number of seconds greater than zero. Tap Set Delay to try again."
		}
		h.store.Update(chatID, func(c *tenant.Config) { c.Interval = time.Duration(secs) * time.Second })
		return "Delay saved: " + strconv.Itoa(secs) + "s"

	default:
		return "Nothing pending. Use the Settings menu."
	}
}

// verifyToken runs the advisory credential check off the handler path.
// The token is already stored; this only reports back.
func (h *Handler) verifyToken(ctx context.Context, chatID int64, token string) {
	vctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := h.verifier.Verify(vctx, token); err != nil {
		h.log.Warn("token check failed", logx.Int64("chat_id", chatID), logx.Err(err))
		h.notify.Notify(chatID, "⚠️ Heads up: the token didn't pass a quick check. Pushes may fail until it's replaced.")
		return
	}
	h.notify.Notify(chatID, "Token verified.")
}

// parseRepos splits on commas and whitespace, keeping order and
// duplicates. Duplicates are the tenant's call; each one is pushed.
func parseRepos(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
}
