package engine

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Templates holds the agent-authored message text for every point in the
// flow. Fields left empty in an override file keep their defaults.
type Templates struct {
	Greeting         string `yaml:"greeting"` // {name} is replaced with the lead's name
	ConsentClarify   string `yaml:"consent_clarify"`
	AgeQuestion      string `yaml:"age_question"`
	AgeRetry         string `yaml:"age_retry"`
	CountryQuestion  string `yaml:"country_question"`
	CountryRetry     string `yaml:"country_retry"`
	InterestQuestion string `yaml:"interest_question"`
	InterestRetry    string `yaml:"interest_retry"`
	SecuredClose     string `yaml:"secured_close"`
	DeclineAck       string `yaml:"decline_ack"`
	Concluded        string `yaml:"concluded"`
	FollowUp         string `yaml:"follow_up"`
}

// DefaultTemplates returns the stock wording of the qualification flow.
func DefaultTemplates() Templates {
	return Templates{
		Greeting:         "Hey {name}, thank you for filling out the form. I'd like to gather some information from you. Is that okay?",
		ConsentClarify:   "Sorry, I didn't catch that. I'd like to gather some information from you. Is that okay?",
		AgeQuestion:      "Great! What is your age?",
		AgeRetry:         "Sorry, could you provide your age as a number (e.g., 30)?",
		CountryQuestion:  "Got it. Which country are you from?",
		CountryRetry:     "Could you please let me know which country you are from?",
		InterestQuestion: "Thanks! What product or service are you interested in?",
		InterestRetry:    "Could you please tell me what product or service you are interested in?",
		SecuredClose:     "Excellent, thank you for the information! We'll be in touch.",
		DeclineAck:       "Alright, no problem. Have a great day!",
		Concluded:        "This conversation has already concluded. Thank you!",
		FollowUp:         "Just checking in to see if you're still interested. Let me know when you're ready to continue.",
	}
}

// LoadTemplates reads a YAML override file on top of the defaults.
func LoadTemplates(path string) (Templates, error) {
	tpl := DefaultTemplates()
	data, err := os.ReadFile(path)
	if err != nil {
		return tpl, fmt.Errorf("read templates file: %w", err)
	}

	var override Templates
	if err := yaml.Unmarshal(data, &override); err != nil {
		return tpl, fmt.Errorf("parse templates file: %w", err)
	}

	merge := func(dst *string, src string) {
		if strings.TrimSpace(src) != "" {
			*dst = src
		}
	}
	merge(&tpl.Greeting, override.Greeting)
	merge(&tpl.ConsentClarify, override.ConsentClarify)
	merge(&tpl.AgeQuestion, override.AgeQuestion)
	merge(&tpl.AgeRetry, override.AgeRetry)
	merge(&tpl.CountryQuestion, override.CountryQuestion)
	merge(&tpl.CountryRetry, override.CountryRetry)
	merge(&tpl.InterestQuestion, override.InterestQuestion)
	merge(&tpl.InterestRetry, override.InterestRetry)
	merge(&tpl.SecuredClose, override.SecuredClose)
	merge(&tpl.DeclineAck, override.DeclineAck)
	merge(&tpl.Concluded, override.Concluded)
	merge(&tpl.FollowUp, override.FollowUp)

	return tpl, nil
}

func (t Templates) greetingFor(name string) string {
	display := strings.TrimSpace(name)
	if display == "" {
		display = "there"
	}
	return strings.ReplaceAll(t.Greeting, "{name}", display)
}
