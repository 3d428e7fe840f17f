package tgui

import (
	"context"
	"strings"

	kit "streakbot/internal/transport"

	tele "gopkg.in/telebot.v4"
)

// Message is a rendered UI payload: text + send options.
// It is intended as a single ergonomic "unit" that handlers can build once and
// send/edit without repeating ParseMode/preview/markup boilerplate.
type Message struct {
	Text string
	Opt  *kit.SendOptions
}

// Send sends the Message via the provided adapter.
func (m Message) Send(ctx context.Context, ad kit.Adapter, to kit.ChatTarget) (kit.MessageRef, error) {
	if m.Opt == nil {
		m.Opt = &kit.SendOptions{}
	}
	return ad.SendText(ctx, to, m.Text, m.Opt)
}

// Edit edits the message referred by ref.
func (m Message) Edit(ctx context.Context, ad kit.Adapter, ref kit.MessageRef) error {
	if m.Opt == nil {
		m.Opt = &kit.SendOptions{}
	}
	return ad.EditText(ctx, ref, m.Text, m.Opt)
}

// Builder is the main ergonomic UI builder.
// Default: ParseMode=HTML, DisablePreview=true.
type Builder struct {
	parseMode      string
	disablePreview bool
	rm             *tele.ReplyMarkup
	lines          []string
}

// New creates a new builder with sensible defaults for Telegram.
func New() *Builder {
	return &Builder{parseMode: "HTML", disablePreview: true}
}

// ParseMode overrides Telegram parse mode ("HTML", "Markdown", or empty).
func (b *Builder) ParseMode(mode string) *Builder {
	b.parseMode = strings.TrimSpace(mode)
	return b
}

// DisablePreview sets DisableWebPagePreview.
func (b *Builder) DisablePreview(v bool) *Builder {
	b.disablePreview = v
	return b
}

// Inline attaches an inline keyboard.
func (b *Builder) Inline(kb *Inline) *Builder {
	if kb == nil {
		b.rm = nil
		return b
	}
	b.rm = kb.Markup()
	return b
}

// Markup attaches a ready reply markup (e.g. from Grid2).
func (b *Builder) Markup(rm *tele.ReplyMarkup) *Builder {
	b.rm = rm
	return b
}

// Title adds a bold title line. Emoji is optional.
func (b *Builder) Title(emoji, title string) *Builder {
	e := strings.TrimSpace(emoji)
	t := strings.TrimSpace(title)
	if t == "" {
		return b
	}
	if strings.EqualFold(b.parseMode, "HTML") {
		if e != "" {
			b.lines = append(b.lines, Esc(e).String()+" "+wrap("b", Esc(t)).String())
		} else {
			b.lines = append(b.lines, wrap("b", Esc(t)).String())
		}
		return b
	}
	// plain / markdown
	if e != "" {
		b.lines = append(b.lines, e+" "+t)
	} else {
		b.lines = append(b.lines, t)
	}
	return b
}

// Section adds a section header.
func (b *Builder) Section(title string) *Builder {
	t := strings.TrimSpace(title)
	if t == "" {
		return b
	}
	if strings.EqualFold(b.parseMode, "HTML") {
		b.lines = append(b.lines, wrap("b", Esc(t)).String())
		return b
	}
	b.lines = append(b.lines, t)
	return b
}

// Line adds a single line, escaping when ParseMode is HTML.
func (b *Builder) Line(s string) *Builder {
	if strings.TrimSpace(s) == "" {
		b.lines = append(b.lines, "")
		return b
	}
	if strings.EqualFold(b.parseMode, "HTML") {
		b.lines = append(b.lines, Esc(s).String())
	} else {
		b.lines = append(b.lines, s)
	}
	return b
}

// RawLine appends a line without escaping. Only use if you know what you're doing.
func (b *Builder) RawLine(s string) *Builder {
	b.lines = append(b.lines, s)
	return b
}

// Blank inserts an empty line.
func (b *Builder) Blank() *Builder { return b.Line("") }

// KV adds a "key: value" row with consistent formatting.
func (b *Builder) KV(key, value string) *Builder {
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if key == "" {
		return b
	}
	if strings.EqualFold(b.parseMode, "HTML") {
		// bold key, value escaped.
		b.lines = append(b.lines, "• "+wrap("b", Esc(key)).String()+": "+Esc(value).String())
		return b
	}
	if value == "" {
		b.lines = append(b.lines, "• "+key)
	} else {
		b.lines = append(b.lines, "• "+key+": "+value)
	}
	return b
}

// Code adds an inline <code>...</code> line when ParseMode is HTML.
// For non-HTML parse modes it falls back to plain text.
func (b *Builder) Code(s string) *Builder {
	s = strings.TrimSpace(s)
	if s == "" {
		return b
	}
	if strings.EqualFold(b.parseMode, "HTML") {
		// Code() already escapes. Use RawLine to avoid double escaping.
		b.lines = append(b.lines, Code(s).String())
		return b
	}
	b.lines = append(b.lines, s)
	return b
}

// Build produces a ready-to-send Message.
func (b *Builder) Build() Message {
	text := strings.Join(b.lines, "\n")
	text = strings.Trim(text, "\n")

	opt := &kit.SendOptions{ParseMode: b.parseMode, DisablePreview: b.disablePreview}
	if b.rm != nil {
		opt.ReplyMarkupAdapter = b.rm
	}
	return Message{Text: text, Opt: opt}
}
