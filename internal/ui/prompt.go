package ui

import (
	"github.com/AlecAivazis/survey/v2"
)

// Input asks for a line of text.
func Input(message, defaultValue, help string) (string, error) {
	var result string
	prompt := &survey.Input{
		Message: message,
		Default: defaultValue,
		Help:    help,
	}
	err := survey.AskOne(prompt, &result)
	return result, err
}

// Password asks for a secret without echo.
func Password(message, help string) (string, error) {
	var result string
	prompt := &survey.Password{
		Message: message,
		Help:    help,
	}
	err := survey.AskOne(prompt, &result)
	return result, err
}

// Select asks for one of options.
func Select(message string, options []string, defaultValue string) (string, error) {
	var result string
	prompt := &survey.Select{
		Message: message,
		Options: options,
	}
	if defaultValue != "" {
		prompt.Default = defaultValue
	}
	err := survey.AskOne(prompt, &result)
	return result, err
}

// Confirm asks a yes/no question.
func Confirm(message string, defaultValue bool) (bool, error) {
	result := defaultValue
	prompt := &survey.Confirm{
		Message: message,
		Default: defaultValue,
	}
	err := survey.AskOne(prompt, &result)
	return result, err
}
