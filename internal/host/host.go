// Package host resolves the embedding chat host's launch environment into a
// single Context value. The context is built once at boot and injected into
// everything that needs identity, theme, or the start parameter, so absence
// of the host is explicit instead of being re-discovered ad hoc.
package host

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// DevChatID is the fixed identity used when no host is present and the
// build runs in dev mode, matching the host emulator used during local
// development.
const DevChatID int64 = 123456789

// Profile carries the host-supplied account fields. All fields are
// best-effort; only ID is load-bearing.
type Profile struct {
	ID        int64
	FirstName string
	LastName  string
	Username  string
	Phone     string
}

// Theme carries the host's theme parameters as CSS color values.
type Theme struct {
	BG         string
	Text       string
	Hint       string
	Button     string
	ButtonText string
}

// Context is the resolved host environment for one session.
type Context struct {
	// Present reports whether a host environment was detected at all.
	Present bool

	// ChatID is the resolved subject identity, 0 when none could be
	// determined. See Resolve for the priority order.
	ChatID int64

	User       Profile
	Theme      Theme
	StartParam string
}

// Env is the raw launch environment handed to Resolve: the host's init-data
// blob plus the launch URL query, and whether dev fallbacks are allowed.
type Env struct {
	InitData string
	Query    url.Values
	DevMode  bool
}

// Resolve builds the host context from the launch environment. Identity is
// taken from, in priority order: the host's init-data user, a chat_id or
// subject_id query parameter, and (dev mode only) DevChatID. A zero ChatID
// is a valid outcome and must short-circuit dependent operations.
func Resolve(env Env) Context {
	ctx := Context{}

	values, ok := parseInitData(env.InitData)
	if ok {
		ctx.Present = true
		ctx.User = parseUser(values.Get("user"))
		ctx.ChatID = ctx.User.ID
		ctx.StartParam = values.Get("start_param")
		ctx.Theme = parseTheme(values.Get("theme_params"))
	}

	// Host value first, query fallback second.
	if ctx.StartParam == "" && env.Query != nil {
		ctx.StartParam = env.Query.Get("tgWebAppStartParam")
	}
	if ctx.Theme == (Theme{}) && env.Query != nil {
		ctx.Theme = parseTheme(env.Query.Get("tgWebAppThemeParams"))
	}

	if ctx.ChatID == 0 {
		ctx.ChatID = chatIDFromQuery(env.Query)
	}
	if ctx.ChatID == 0 && env.DevMode {
		ctx.ChatID = DevChatID
	}

	return ctx
}

func parseInitData(raw string) (url.Values, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, false
	}
	return values, true
}

func parseUser(raw string) Profile {
	if raw == "" || !gjson.Valid(raw) {
		return Profile{}
	}
	return Profile{
		ID:        gjson.Get(raw, "id").Int(),
		FirstName: gjson.Get(raw, "first_name").String(),
		LastName:  gjson.Get(raw, "last_name").String(),
		Username:  gjson.Get(raw, "username").String(),
		Phone:     gjson.Get(raw, "phone_number").String(),
	}
}

func parseTheme(raw string) Theme {
	if raw == "" || !gjson.Valid(raw) {
		return Theme{}
	}
	return Theme{
		BG:         gjson.Get(raw, "bg_color").String(),
		Text:       gjson.Get(raw, "text_color").String(),
		Hint:       gjson.Get(raw, "hint_color").String(),
		Button:     gjson.Get(raw, "button_color").String(),
		ButtonText: gjson.Get(raw, "button_text_color").String(),
	}
}

// chatIDFromQuery accepts an explicit identity for non-host testing
// contexts. Only positive integers count.
func chatIDFromQuery(query url.Values) int64 {
	if query == nil {
		return 0
	}
	for _, key := range []string{"chat_id", "subject_id"} {
		raw := strings.TrimSpace(query.Get(key))
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err == nil && id > 0 {
			return id
		}
	}
	return 0
}
