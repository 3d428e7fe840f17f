package bot

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"streakbot/internal/scheduler"
	"streakbot/internal/tenant"
	"streakbot/pkg/tgui"

	tele "gopkg.in/telebot.v4"
)

const notSet = "not set"

func mainMenu() *tgui.Inline {
	return tgui.NewInline().
		Row(tgui.Btn("⚙️ Settings", tgui.Data(callbackUnit, "settings", ""))).
		Row(
			tgui.Btn("▶️ Start Push", tgui.Data(callbackUnit, "start", "")),
			tgui.Btn("⏹ Stop Push", tgui.Data(callbackUnit, "stop", "")),
		).
		Row(tgui.Btn("📊 Status", tgui.Data(callbackUnit, "status", "")))
}

func settingsMarkup() *tele.ReplyMarkup {
	return tgui.Grid2([]tele.Btn{
		tgui.Btn("🔑 Set Token", tgui.Data(callbackUnit, "set", "token")),
		tgui.Btn("👤 Set Username", tgui.Data(callbackUnit, "set", "owner")),
		tgui.Btn("📦 Set Repos", tgui.Data(callbackUnit, "set", "repos")),
		tgui.Btn("📄 Set File", tgui.Data(callbackUnit, "set", "file")),
		tgui.Btn("⏱ Set Delay", tgui.Data(callbackUnit, "set", "delay")),
		tgui.Btn("⬅️ Back", tgui.Data(callbackUnit, "menu", "")),
	})
}

func greetingMessage() tgui.Message {
	return tgui.New().
		Title("👋", "Streak bot").
		Blank().
		Line("I keep your GitHub streak alive: on a schedule I commit a timestamped file to your repositories.").
		Blank().
		Line("Fill in Settings, then hit Start Push. /help explains the pieces.").
		Inline(mainMenu()).
		Build()
}

func menuMessage() tgui.Message {
	return tgui.New().
		Line("What do you want to do?").
		Inline(mainMenu()).
		Build()
}

func settingsMessage() tgui.Message {
	return tgui.New().
		Line("Pick a setting to change, then send the new value as a message.").
		Markup(settingsMarkup()).
		Build()
}

func helpMessage() tgui.Message {
	return tgui.New().
		Title("ℹ️", "Help").
		Blank().
		Line("The bot commits a small file to your GitHub repositories on a fixed delay, keeping the contribution graph green.").
		Blank().
		KV("Token", "a GitHub access token with contents write access").
		KV("Username", "the account that owns the repositories").
		KV("Repos", "one or more repository names, comma or space separated").
		KV("File", "the path committed on every push").
		KV("Delay", "seconds between pushes").
		Blank().
		Line("/start shows the menu again.").
		Build()
}

// promptFor maps a settings button payload to its input mode and prompt.
func promptFor(field string) (tenant.InputMode, string, bool) {
	switch field {
	case "token":
		return tenant.ModeToken, "Send your GitHub access token. It needs contents write access to the target repositories.", true
	case "owner":
		return tenant.ModeOwner, "Send the GitHub username that owns the target repositories.", true
	case "repos":
		return tenant.ModeRepos, "Send the repository names, separated by commas or spaces.", true
	case "file":
		return tenant.ModeFile, "Send the file name to commit, for example log.md.", true
	case "delay":
		return tenant.ModeDelay, "Send the delay between pushes, in whole seconds.", true
	default:
		return tenant.ModeNone, "", false
	}
}

func startReply(err error, store *tenant.Store, chatID int64) string {
	if err == nil {
		cfg, _ := store.Get(chatID)
		return "▶️ Push cycle started. Pushing every " + formatSeconds(cfg.Interval) +
			" to " + repoCount(len(cfg.Repos)) + "."
	}

	var missing *tenant.MissingConfigError
	switch {
	case errors.As(err, &missing):
		return "Can't start yet: " + missing.Error() + "."
	case errors.Is(err, tenant.ErrAlreadyRunning):
		return "Push cycle is already running."
	case errors.Is(err, scheduler.ErrNotStarted):
		return "The bot is still starting up. Try again in a moment."
	default:
		return "Couldn't start the push cycle: " + err.Error()
	}
}

func stopReply(err error) string {
	switch {
	case err == nil:
		return "⏹ Push cycle stopped."
	case errors.Is(err, tenant.ErrNotRunning):
		return "Push cycle is not running."
	default:
		return "Couldn't stop the push cycle: " + err.Error()
	}
}

// statusMessage renders a tenant snapshot. The token never appears,
// only whether one is stored.
func statusMessage(st scheduler.Status) tgui.Message {
	cfg := st.Config

	running := "no"
	if cfg.Running() {
		running = "yes"
	}
	token := notSet
	if cfg.Token != "" {
		token = "set"
	}
	owner := cfg.Owner
	if owner == "" {
		owner = notSet
	}
	repos := notSet
	if len(cfg.Repos) > 0 {
		repos = strings.Join(cfg.Repos, ", ")
	}
	file := cfg.File
	if file == "" {
		file = notSet
	}

	b := tgui.New().
		Title("📊", "Status").
		KV("Running", running).
		KV("Token", token).
		KV("Username", owner).
		KV("Repositories", repos).
		KV("File", file).
		KV("Delay", formatSeconds(cfg.Interval))

	if n := len(st.History); n > 0 {
		b.Blank().Section("Recent pushes")
		// newest first, at most five
		for i := n - 1; i >= 0 && i > n-6; i-- {
			o := st.History[i]
			switch {
			case o.OK() && o.Created:
				b.Line("✅ " + o.Repo + " — created")
			case o.OK():
				b.Line("✅ " + o.Repo + " — updated")
			default:
				b.Line("⚠️ " + o.Repo + " — " + o.Error)
			}
		}
	}

	return b.Inline(mainMenu()).Build()
}

func formatSeconds(d time.Duration) string {
	return strconv.Itoa(int(d/time.Second)) + "s"
}

func repoCount(n int) string {
	if n == 1 {
		return "1 repository"
	}
	return strconv.Itoa(n) + " repositories"
}
