package webui

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/arendahub/miniapp-client/internal/backend"
	"github.com/arendahub/miniapp-client/internal/config"
	"github.com/arendahub/miniapp-client/internal/flow"
	"github.com/arendahub/miniapp-client/internal/host"
)

// fieldPattern validates passport and SNILS input: digits, spaces, and
// hyphens only. Authoritative validation stays server-side.
var fieldPattern = regexp.MustCompile(`^[\d\s-]+$`)

const (
	notProvidedM = "не указан"
	notProvidedN = "не указано"
)

type basePage struct {
	Title   string
	Theme   host.Theme
	Refresh int
}

type homePage struct {
	basePage
	Copy     config.HomeCopy
	Username string
	Phone    string
}

type applicationPage struct {
	basePage
	Copy      config.ApplicationCopy
	Username  string
	Phone     string
	FirstName string
	LastName  string
	Passport  string
	SNILS     string
	Error     string
}

type waitingPage struct {
	basePage
	Copy       config.WaitingCopy
	StatusText string
}

type contractPage struct {
	basePage
	Copy      config.ContractCopy
	Confirmed bool
	Error     string
}

type rejectedPage struct {
	basePage
	Copy config.RejectedCopy
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s.recorder.Record(backend.ActionPageView, "home", "Пользователь открыл страницу приветствия")
	s.session.Enter(flow.StateHome)

	profile := s.backend.FetchProfile(ctx)
	if profile != nil && (profile.State == "" || flow.State(profile.State) == flow.StateHome) {
		// First contact: make sure the record exists with an explicit state.
		s.backend.SetState(ctx, string(flow.StateHome))
	}

	s.render(w, http.StatusOK, "home", homePage{
		basePage: basePage{Title: s.pages.Home.Title, Theme: s.host.Theme},
		Copy:     s.pages.Home,
		Username: s.displayUsername(profile),
		Phone:    s.displayPhone(profile),
	})
}

func (s *Server) handleGoApplication(w http.ResponseWriter, r *http.Request) {
	s.recorder.Record(backend.ActionButtonClick, "home", "Нажата кнопка 'Заполнить анкету'")
	s.session.Apply(r.Context(), flow.GoToApplication)
	http.Redirect(w, r, flow.RouteApplication, http.StatusSeeOther)
}

func (s *Server) handleApplicationForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s.recorder.Record(backend.ActionPageView, "application", "Пользователь открыл страницу анкеты")
	s.session.Enter(flow.StateApplication)
	s.backend.SetState(ctx, string(flow.StateApplication))

	profile := s.backend.FetchProfile(ctx)
	s.render(w, http.StatusOK, "application", s.applicationData(profile, "", "", ""))
}

func (s *Server) handleApplicationSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, flow.RouteApplication, http.StatusSeeOther)
		return
	}

	passport := strings.TrimSpace(r.PostFormValue("passport_number"))
	snils := strings.TrimSpace(r.PostFormValue("snils"))

	if !fieldPattern.MatchString(passport) || !fieldPattern.MatchString(snils) {
		profile := s.backend.FetchProfile(ctx)
		data := s.applicationData(profile, passport, snils, s.pages.Application.InvalidField)
		s.render(w, http.StatusUnprocessableEntity, "application", data)
		return
	}

	s.recorder.Record(backend.ActionFormSubmit, "application", "Отправка анкеты")

	result := s.backend.SubmitApplication(ctx, passport, snils)
	if result.Success {
		s.session.Apply(ctx, flow.GoToWaiting)
		s.recorder.Record(backend.ActionButtonClick, "application", "Анкета успешно отправлена")
		http.Redirect(w, r, flow.RouteWaiting, http.StatusSeeOther)
		return
	}

	message := result.Message
	if message == "" {
		message = s.pages.Application.GenericFailure
	}
	profile := s.backend.FetchProfile(ctx)
	s.render(w, http.StatusBadGateway, "application", s.applicationData(profile, passport, snils, message))
}

func (s *Server) handleWaiting(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// A terminal decision may already have landed between refreshes.
	if decided := s.session.Decided(); decided != "" {
		http.Redirect(w, r, decided, http.StatusFound)
		return
	}

	s.recorder.Record(backend.ActionPageView, "waiting", "Пользователь открыл страницу ожидания")
	s.session.Enter(flow.StateWaiting)
	s.backend.SetState(ctx, string(flow.StateWaiting))
	s.session.EnsurePolling()

	statusText := s.session.LastStatus()
	if statusText == backend.StatusInProgress {
		statusText = s.pages.Waiting.StatusInReview
	}

	s.render(w, http.StatusOK, "waiting", waitingPage{
		basePage:   basePage{Title: s.pages.Waiting.Title, Theme: s.host.Theme, Refresh: int(flow.PollInterval.Seconds())},
		Copy:       s.pages.Waiting,
		StatusText: statusText,
	})
}

func (s *Server) handleContract(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s.recorder.Record(backend.ActionPageView, "contract", "Пользователь открыл страницу договора")
	s.session.Enter(flow.StateContract)
	s.backend.SetState(ctx, string(flow.StateContract))

	profile := s.backend.FetchProfile(ctx)
	confirmed := profile != nil && profile.ContractConfirmed

	s.render(w, http.StatusOK, "contract", contractPage{
		basePage:  basePage{Title: s.pages.Contract.Title, Theme: s.host.Theme},
		Copy:      s.pages.Contract,
		Confirmed: confirmed,
	})
}

// handleContractPDF proxies the contract document. The identity travels in
// the request header to the backend; the URL the page embeds carries no
// credentials.
func (s *Server) handleContractPDF(w http.ResponseWriter, r *http.Request) {
	data, ok := s.backend.FetchContractPDF(r.Context())
	if !ok {
		http.Error(w, "contract unavailable", http.StatusBadGateway)
		return
	}

	if r.URL.Query().Get("download") == "1" {
		s.recorder.Record(backend.ActionButtonClick, "contract", "Скачан договор")
		w.Header().Set("Content-Disposition", `attachment; filename="contract.pdf"`)
	}
	w.Header().Set("Content-Type", "application/pdf")
	_, _ = w.Write(data)
}

func (s *Server) handleContractConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s.recorder.Record(backend.ActionButtonClick, "contract", "Нажата кнопка 'Одобряю'")

	if s.backend.ConfirmContract(ctx) {
		s.recorder.Record(backend.ActionButtonClick, "contract", "Договор подтвержден")
		http.Redirect(w, r, flow.RouteContract, http.StatusSeeOther)
		return
	}

	s.render(w, http.StatusBadGateway, "contract", contractPage{
		basePage: basePage{Title: s.pages.Contract.Title, Theme: s.host.Theme},
		Copy:     s.pages.Contract,
		Error:    s.pages.Contract.ConfirmError,
	})
}

func (s *Server) handleRejected(w http.ResponseWriter, r *http.Request) {
	s.recorder.Record(backend.ActionPageView, "rejected", "Пользователь открыл страницу отклоненной анкеты")
	s.session.Enter(flow.StateRejected)
	s.backend.SetState(r.Context(), string(flow.StateRejected))

	s.render(w, http.StatusOK, "rejected", rejectedPage{
		basePage: basePage{Title: s.pages.Rejected.Title, Theme: s.host.Theme},
		Copy:     s.pages.Rejected,
	})
}

func (s *Server) applicationData(profile *backend.Profile, passport, snils, errMsg string) applicationPage {
	firstName := fallback(profileField(profile, func(p *backend.Profile) string { return p.FirstName }), s.host.User.FirstName)
	lastName := fallback(profileField(profile, func(p *backend.Profile) string { return p.LastName }), s.host.User.LastName)

	return applicationPage{
		basePage:  basePage{Title: s.pages.Application.Title, Theme: s.host.Theme},
		Copy:      s.pages.Application,
		Username:  s.displayUsername(profile),
		Phone:     s.displayPhone(profile),
		FirstName: orText(firstName, notProvidedN),
		LastName:  orText(lastName, notProvidedN),
		Passport:  passport,
		SNILS:     snils,
		Error:     errMsg,
	}
}

// displayUsername prefers the stored handle, falls back to the host's, and
// normalizes the @ prefix.
func (s *Server) displayUsername(profile *backend.Profile) string {
	username := profileField(profile, func(p *backend.Profile) string { return p.Username })
	if username == "" && s.host.User.Username != "" {
		username = "@" + s.host.User.Username
	}
	if username == "" {
		return notProvidedM
	}
	if !strings.HasPrefix(username, "@") {
		username = "@" + username
	}
	return username
}

func (s *Server) displayPhone(profile *backend.Profile) string {
	phone := fallback(profileField(profile, func(p *backend.Profile) string { return p.Phone }), s.host.User.Phone)
	return orText(phone, notProvidedM)
}

func profileField(profile *backend.Profile, get func(*backend.Profile) string) string {
	if profile == nil {
		return ""
	}
	return get(profile)
}

func fallback(primary, secondary string) string {
	if primary != "" {
		return primary
	}
	return secondary
}

func orText(value, placeholder string) string {
	if value == "" {
		return placeholder
	}
	return value
}
