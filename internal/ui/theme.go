package ui

import (
	"image/color"

	"charm.land/lipgloss/v2"
)

// Theme defines the colors and styles of the query input. Host apps can
// supply their own theme.
type Theme struct {
	Field            lipgloss.Style // field key inside a filter token
	Operator         lipgloss.Style // operator inside a filter token
	Value            lipgloss.Style // value inside a filter token
	FreeText         lipgloss.Style // free-text token
	TokenFocused     lipgloss.Style // wrapper for the focused token
	TokenInvalid     lipgloss.Style // wrapper for tokens marked invalid
	Prompt           lipgloss.Style // input prompt glyph
	Placeholder      lipgloss.Style
	SuggestionItem   lipgloss.Style
	SuggestionActive lipgloss.Style
	SuggestionDetail lipgloss.Style
	Status           lipgloss.Style
	StatusError      lipgloss.Style
	Hint             lipgloss.Style
}

// DefaultTheme returns the dark palette.
func DefaultTheme() Theme {
	var (
		blue   color.Color = lipgloss.Color("39")
		purple color.Color = lipgloss.Color("135")
		green  color.Color = lipgloss.Color("114")
		grey   color.Color = lipgloss.Color("245")
		dim    color.Color = lipgloss.Color("240")
		red    color.Color = lipgloss.Color("203")
		white  color.Color = lipgloss.Color("255")
		bg     color.Color = lipgloss.Color("236")
	)
	return Theme{
		Field:            lipgloss.NewStyle().Foreground(blue).Background(bg),
		Operator:         lipgloss.NewStyle().Foreground(purple).Background(bg),
		Value:            lipgloss.NewStyle().Foreground(green).Background(bg),
		FreeText:         lipgloss.NewStyle().Foreground(white).Background(bg),
		TokenFocused:     lipgloss.NewStyle().Reverse(true),
		TokenInvalid:     lipgloss.NewStyle().Foreground(red).Underline(true),
		Prompt:           lipgloss.NewStyle().Foreground(blue),
		Placeholder:      lipgloss.NewStyle().Foreground(dim),
		SuggestionItem:   lipgloss.NewStyle().Foreground(grey),
		SuggestionActive: lipgloss.NewStyle().Foreground(white).Reverse(true),
		SuggestionDetail: lipgloss.NewStyle().Foreground(dim),
		Status:           lipgloss.NewStyle().Foreground(grey),
		StatusError:      lipgloss.NewStyle().Foreground(red),
		Hint:             lipgloss.NewStyle().Foreground(dim),
	}
}

// PlainTheme returns a style-free palette for --no-color and piped output.
func PlainTheme() Theme {
	plain := lipgloss.NewStyle()
	return Theme{
		Field:            plain,
		Operator:         plain,
		Value:            plain,
		FreeText:         plain,
		TokenFocused:     lipgloss.NewStyle().Reverse(true),
		TokenInvalid:     plain,
		Prompt:           plain,
		Placeholder:      plain,
		SuggestionItem:   plain,
		SuggestionActive: lipgloss.NewStyle().Reverse(true),
		SuggestionDetail: plain,
		Status:           plain,
		StatusError:      plain,
		Hint:             plain,
	}
}
