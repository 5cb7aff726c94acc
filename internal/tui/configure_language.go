package tui

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/webwhisper/internal/language"
)

// getLanguageOptions lists auto-detect first, then the quick choices, then
// every other language. The current selection is marked.
func getLanguageOptions(current string) []huh.Option[string] {
	var options []huh.Option[string]
	seen := make(map[string]bool)

	add := func(lang language.Language) {
		if seen[lang.Code] {
			return
		}
		seen[lang.Code] = true
		label := lang.Name
		if lang.Code == language.AutoCode {
			label = "Auto-detect (recommended)"
		} else if lang.NativeName != "" && lang.NativeName != lang.Name {
			label = fmt.Sprintf("%s (%s)", lang.Name, lang.NativeName)
		}
		if lang.Code == current {
			label += " (current)"
		}
		options = append(options, huh.NewOption(label, lang.Code))
	}

	for _, code := range language.QuickChoices() {
		add(language.FromCode(code))
	}
	for _, lang := range language.List() {
		add(lang)
	}
	return options
}
