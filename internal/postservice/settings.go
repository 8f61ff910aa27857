package postservice

import "github.com/starford/skythread/internal/models"

// Account is the saved account as shown to the user. The secret is never
// returned.
type Account struct {
	Username string `json:"username"`
}

// SettingsView is what the settings panel shows.
type SettingsView struct {
	Account        *Account `json:"account"`
	AppendDate     bool     `json:"append_date"`
	AppendTemplate string   `json:"append_template"`
	Hotkey         string   `json:"hotkey"`
}

// Settings returns the current settings.
func (s *Service) Settings() (SettingsView, error) {
	view := SettingsView{Hotkey: s.hotkey}
	cred, ok, err := s.settings.Credential()
	if err != nil {
		return view, err
	}
	if ok {
		view.Account = &Account{Username: cred.Identifier}
	}
	as, err := s.settings.AppendSettings()
	if err != nil {
		return view, err
	}
	view.AppendDate = as.Enabled
	view.AppendTemplate = as.Template
	return view, nil
}

// Login saves the account used for posting. It does not contact the network.
func (s *Service) Login(cred models.Credential) error {
	return s.settings.SetCredential(cred)
}

// Logout forgets the saved account.
func (s *Service) Logout() error {
	return s.settings.DeleteCredential()
}

// SetAppend updates the date-append preference. Nil fields are left as is.
func (s *Service) SetAppend(enabled *bool, template *string) error {
	if template != nil {
		if err := s.settings.SetAppendTemplate(*template); err != nil {
			return err
		}
	}
	if enabled != nil {
		return s.settings.SetAppendEnabled(*enabled)
	}
	return nil
}
