// Package tgui provides small Telegram UI helpers:
//   - Inline keyboard builders
//   - Callback data helpers (unit:action)
//   - A simple, safe message builder with sensible defaults
//
// Design goals:
//   - Ergonomic for handlers (one builder covers text + send options)
//   - Safe by default for Telegram ParseMode="HTML" (auto escaping)
//   - Reusable patterns for status cards, prompts and menus
package tgui
