package tgui

import (
	"strings"
	"testing"

	tele "gopkg.in/telebot.v4"
)

func TestEscEscapesHTML(t *testing.T) {
	got := Esc(`<b>&"'`).String()
	if strings.ContainsAny(got, "<>") {
		t.Fatalf("Esc left raw angle brackets: %q", got)
	}
	if !strings.Contains(got, "&lt;b&gt;") {
		t.Fatalf("Esc(%q) = %q", `<b>`, got)
	}
}

func TestWrappersEscapeInner(t *testing.T) {
	if got := B("a<b").String(); got != "<b>a&lt;b</b>" {
		t.Fatalf("B = %q", got)
	}
	if got := Code("x & y").String(); got != "<code>x &amp; y</code>" {
		t.Fatalf("Code = %q", got)
	}
}

func TestDataSplitRoundTrip(t *testing.T) {
	t.Parallel()
	cases := []struct {
		unit, action, payload string
		encoded               string
	}{
		{"bot", "menu", "", "bot:menu"},
		{"bot", "set", "token", "bot:set:token"},
		{"bot", "set", "a:b:c", "bot:set:a:b:c"},
		{" bot ", " start ", "", "bot:start"},
	}
	for _, tc := range cases {
		enc := Data(tc.unit, tc.action, tc.payload)
		if enc != tc.encoded {
			t.Errorf("Data(%q,%q,%q) = %q, want %q", tc.unit, tc.action, tc.payload, enc, tc.encoded)
			continue
		}
		u, a, p := Split(enc)
		if u != strings.TrimSpace(tc.unit) || a != strings.TrimSpace(tc.action) || p != tc.payload {
			t.Errorf("Split(%q) = %q,%q,%q", enc, u, a, p)
		}
	}
}

func TestSplitDegenerateInputs(t *testing.T) {
	if u, a, p := Split("menu"); u != "menu" || a != "" || p != "" {
		t.Fatalf("Split(menu) = %q,%q,%q", u, a, p)
	}
	if u, a, p := Split(""); u != "" || a != "" || p != "" {
		t.Fatalf("Split(empty) = %q,%q,%q", u, a, p)
	}
}

func TestBuilderEscapesLinesAndKV(t *testing.T) {
	msg := New().
		Title("🤖", "My <Bot>").
		KV("Repo", "a<b&c").
		Line("plain <script>").
		Build()

	if strings.Contains(msg.Text, "<script>") || strings.Contains(msg.Text, "<Bot>") {
		t.Fatalf("unescaped user input in output: %q", msg.Text)
	}
	if !strings.Contains(msg.Text, "<b>My &lt;Bot&gt;</b>") {
		t.Fatalf("title not rendered as bold HTML: %q", msg.Text)
	}
	if !strings.Contains(msg.Text, "• <b>Repo</b>: a&lt;b&amp;c") {
		t.Fatalf("KV row wrong: %q", msg.Text)
	}
}

func TestBuilderDefaultsAndMarkup(t *testing.T) {
	kb := NewInline().Row(Btn("Go", Data("bot", "start", "")))
	msg := New().Line("hi").Inline(kb).Build()

	if msg.Opt == nil {
		t.Fatal("Opt not set")
	}
	if msg.Opt.ParseMode != "HTML" || !msg.Opt.DisablePreview {
		t.Fatalf("defaults = %+v", msg.Opt)
	}
	if msg.Opt.ReplyMarkupAdapter == nil {
		t.Fatal("inline keyboard not attached")
	}
}

func TestBuilderTrimsOuterBlankLines(t *testing.T) {
	msg := New().Blank().Line("body").Blank().Build()
	if msg.Text != "body" {
		t.Fatalf("Text = %q, want outer blanks trimmed", msg.Text)
	}
}

func TestGrid2SplitsRows(t *testing.T) {
	btns := []tele.Btn{
		Btn("A", "u:a"), Btn("B", "u:b"), Btn("C", "u:c"),
		Btn("D", "u:d"), Btn("E", "u:e"),
	}
	rm := Grid2(btns)
	if rm == nil {
		t.Fatal("nil markup")
	}
	rows := rm.InlineKeyboard
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3 (2+2+1)", len(rows))
	}
	if len(rows[0]) != 2 || len(rows[1]) != 2 || len(rows[2]) != 1 {
		t.Fatalf("row sizes = %d,%d,%d, want 2,2,1", len(rows[0]), len(rows[1]), len(rows[2]))
	}
	if rows[2][0].Text != "E" {
		t.Fatalf("last button = %q, want E", rows[2][0].Text)
	}
}
